package chat

import (
	"context"
	_ "embed"
	"fmt"
	"io"
	"strings"

	"github.com/abhivel/lyfe/pkg/adapter"
	"github.com/abhivel/lyfe/pkg/model"
	"github.com/abhivel/lyfe/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

//go:embed prompt/system.md
var systemPrompt string

var (
	// ErrIterationLimitExceeded means the model kept querying past the turn
	// budget without producing an answer.
	ErrIterationLimitExceeded = goerr.New("query turn limit exceeded")

	// ErrTranscriptLimitExceeded means the accumulated transcript grew past
	// the byte budget.
	ErrTranscriptLimitExceeded = goerr.New("transcript size limit exceeded")
)

// State is the terminal state of a conversation turn.
type State string

const (
	StateDone   State = "done"
	StateFailed State = "failed"
)

// Result is the outcome of one Run call.
type Result struct {
	State    State
	Message  string
	PhotoIDs []model.PhotoID
	Turns    int
}

// Searcher resolves a search query to photo records.
type Searcher interface {
	Search(ctx context.Context, query string) ([]*model.Photo, error)
}

// Controller drives the retrieve-then-answer loop: the model either answers
// or asks for a photo search, whose results are fed back as a user turn.
type Controller struct {
	llm      adapter.LLM
	searcher Searcher

	maxTurns           int
	maxTranscriptBytes int
	output             io.Writer
}

type Option func(*Controller)

// WithMaxTurns bounds how many query turns the model may spend per question.
func WithMaxTurns(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.maxTurns = n
		}
	}
}

// WithMaxTranscriptBytes bounds the accumulated transcript size.
func WithMaxTranscriptBytes(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.maxTranscriptBytes = n
		}
	}
}

// WithOutput directs progress notes, such as issued search queries, to w.
func WithOutput(w io.Writer) Option {
	return func(c *Controller) {
		c.output = w
	}
}

func New(llm adapter.LLM, searcher Searcher, opts ...Option) *Controller {
	c := &Controller{
		llm:                llm,
		searcher:           searcher,
		maxTurns:           5,
		maxTranscriptBytes: 8 * 1024 * 1024,
		output:             io.Discard,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run executes the loop for the given transcript. The transcript slice is
// not mutated; retrieval turns are appended to an internal copy. A non-nil
// Result is returned even on error, carrying StateFailed.
func (c *Controller) Run(ctx context.Context, transcript []model.Message) (*Result, error) {
	msgs := make([]model.Message, len(transcript))
	copy(msgs, transcript)

	result := &Result{State: StateFailed}

	for turn := 0; turn < c.maxTurns; turn++ {
		result.Turns = turn + 1

		if err := ctx.Err(); err != nil {
			return result, goerr.Wrap(err, "conversation canceled")
		}
		if size := transcriptSize(msgs); size > c.maxTranscriptBytes {
			return result, goerr.Wrap(ErrTranscriptLimitExceeded, "transcript too large",
				goerr.V("size", size), goerr.V("limit", c.maxTranscriptBytes))
		}

		raw, err := c.llm.Invoke(ctx, systemPrompt, msgs)
		if err != nil {
			return result, goerr.Wrap(err, "model invocation failed")
		}
		msgs = append(msgs, model.NewTextMessage(model.RoleAssistant, raw))

		resp, err := model.ParseLLMResponse(raw)
		if err != nil {
			return result, goerr.Wrap(err, "model reply violates the output contract")
		}

		if !resp.IsQuery() {
			result.State = StateDone
			result.Message = resp.Response.Message
			result.PhotoIDs = resp.Response.PhotoIDs
			return result, nil
		}

		query := resp.Query.SearchQuery
		fmt.Fprintf(c.output, "searching photos: %s\n", query)
		logging.From(ctx).Debug("model issued search", "query", query, "turn", turn+1)

		photos, err := c.searcher.Search(ctx, query)
		if err != nil {
			return result, goerr.Wrap(err, "photo search failed", goerr.V("query", query))
		}
		msgs = append(msgs, searchResultMessages(query, photos)...)
	}

	return result, goerr.Wrap(ErrIterationLimitExceeded, "model never answered",
		goerr.V("max_turns", c.maxTurns))
}

// searchResultMessages renders retrieved photos as user turns, one message
// per photo with its caption line and image bytes.
func searchResultMessages(query string, photos []*model.Photo) []model.Message {
	if len(photos) == 0 {
		return []model.Message{model.NewTextMessage(model.RoleUser,
			fmt.Sprintf("No photos matched the search %q.", query))}
	}

	msgs := make([]model.Message, 0, len(photos))
	for _, photo := range photos {
		msgs = append(msgs, model.Message{
			Role: model.RoleUser,
			Parts: []model.Part{
				model.NewTextPart(photoCaption(photo)),
				model.NewImagePart(photo.MIMEType(), photo.Data),
			},
		})
	}
	return msgs
}

func photoCaption(photo *model.Photo) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Photo id %s", photo.ID)
	if photo.Location != "" {
		fmt.Fprintf(&sb, ", taken in %s", photo.Location)
	}
	if photo.CapturedAt != nil {
		fmt.Fprintf(&sb, " on %s", photo.CapturedAt.Format("2006-01-02"))
	}
	sb.WriteString(":")
	return sb.String()
}

func transcriptSize(msgs []model.Message) int {
	size := 0
	for _, msg := range msgs {
		size += msg.Size()
	}
	return size
}
