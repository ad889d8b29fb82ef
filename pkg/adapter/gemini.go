package adapter

import (
	"context"
	"strings"

	"github.com/abhivel/lyfe/pkg/model"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/genai"
)

// LLM invokes the language model with a transcript and returns raw text output.
type LLM interface {
	Invoke(ctx context.Context, system string, msgs []model.Message) (string, error)
}

// Embedder maps an image or a text string to a fixed-length vector.
type Embedder interface {
	EmbedImage(ctx context.Context, data []byte, mimeType string) ([]float32, error)
	EmbedText(ctx context.Context, text string) ([]float32, error)
}

// GeminiClient implements LLM and Embedder on top of the Gemini API.
type GeminiClient struct {
	client          *genai.Client
	generativeModel string
	embeddingModel  string
	dimension       int32
}

type GeminiOption func(*GeminiClient)

func WithGenerativeModel(m string) GeminiOption {
	return func(g *GeminiClient) {
		g.generativeModel = m
	}
}

func WithEmbeddingModel(m string) GeminiOption {
	return func(g *GeminiClient) {
		g.embeddingModel = m
	}
}

func NewGemini(ctx context.Context, projectID, location string, opts ...GeminiOption) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		Project:  projectID,
		Location: location,
		Backend:  genai.BackendVertexAI,
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create genai client")
	}

	g := &GeminiClient{
		client:          client,
		generativeModel: "gemini-2.5-flash",
		embeddingModel:  "multimodalembedding@001",
		dimension:       model.VectorDimension,
	}

	for _, opt := range opts {
		opt(g)
	}

	return g, nil
}

// Invoke sends the transcript with a system instruction and requires a JSON
// reply. The reply text is returned undecoded; validation happens in the
// protocol codec.
func (g *GeminiClient) Invoke(ctx context.Context, system string, msgs []model.Message) (string, error) {
	contents := make([]*genai.Content, 0, len(msgs))
	for _, msg := range msgs {
		if msg.Role == model.RoleSystem {
			// System turns travel via SystemInstruction; the caller already
			// folds its fixed instruction into the system argument.
			continue
		}
		contents = append(contents, toContent(msg))
	}

	thinkingBudget := int32(0)
	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(system, ""),
		ResponseMIMEType:  "application/json",
		ThinkingConfig: &genai.ThinkingConfig{
			IncludeThoughts: false,
			ThinkingBudget:  &thinkingBudget,
		},
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.generativeModel, contents, config)
	if err != nil {
		return "", goerr.Wrap(err, "failed to generate content")
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", goerr.New("empty response from model")
	}

	var textParts []string
	for _, part := range resp.Candidates[0].Content.Parts {
		if part.Text != "" {
			textParts = append(textParts, part.Text)
		}
	}
	if len(textParts) == 0 {
		return "", goerr.New("model response has no text parts")
	}
	return strings.Join(textParts, "\n"), nil
}

func toContent(msg model.Message) *genai.Content {
	role := genai.Role(genai.RoleUser)
	if msg.Role == model.RoleAssistant {
		role = genai.RoleModel
	}

	parts := make([]*genai.Part, 0, len(msg.Parts))
	for _, p := range msg.Parts {
		if p.Image != nil {
			parts = append(parts, genai.NewPartFromBytes(p.Image.Data, p.Image.MIMEType))
			continue
		}
		parts = append(parts, genai.NewPartFromText(p.Text))
	}
	return genai.NewContentFromParts(parts, role)
}

func (g *GeminiClient) EmbedText(ctx context.Context, text string) ([]float32, error) {
	return g.embed(ctx, genai.Text(text))
}

func (g *GeminiClient) EmbedImage(ctx context.Context, data []byte, mimeType string) ([]float32, error) {
	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{genai.NewPartFromBytes(data, mimeType)}, genai.RoleUser),
	}
	return g.embed(ctx, contents)
}

func (g *GeminiClient) embed(ctx context.Context, contents []*genai.Content) ([]float32, error) {
	dim := g.dimension
	resp, err := g.client.Models.EmbedContent(ctx, g.embeddingModel, contents, &genai.EmbedContentConfig{
		OutputDimensionality: &dim,
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to embed content")
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Values) == 0 {
		return nil, goerr.New("empty embedding response")
	}

	vec := resp.Embeddings[0].Values
	if len(vec) != int(g.dimension) {
		return nil, goerr.New("unexpected embedding dimension",
			goerr.V("got", len(vec)), goerr.V("want", g.dimension))
	}
	return vec, nil
}
