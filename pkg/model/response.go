package model

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/m-mizutani/goerr/v2"
)

// Protocol errors returned by ParseLLMResponse. All of them are fatal to the
// current agent loop turn.
var (
	ErrMalformedSyntax = goerr.New("malformed response syntax")
	ErrMissingEnvelope = goerr.New("missing response envelope")
	ErrMissingField    = goerr.New("missing required field")
	ErrInvalidPhotoID  = goerr.New("invalid photo ID in response")
	ErrUnknownVariant  = goerr.New("unknown response variant")
)

// QueryPayload asks for more photo context.
type QueryPayload struct {
	SearchQuery string `json:"search_query"`
}

// ResponsePayload is the final answer. PhotoIDs keeps the order and duplicates
// exactly as the model emitted them.
type ResponsePayload struct {
	Message  string    `json:"message"`
	PhotoIDs []PhotoID `json:"photo_ids"`
}

// LLMResponse is the closed two-variant model output: exactly one of Query or
// Response is non-nil.
type LLMResponse struct {
	Query    *QueryPayload
	Response *ResponsePayload
}

// IsQuery reports whether the model asked for more photo context.
func (r *LLMResponse) IsQuery() bool {
	return r.Query != nil
}

const (
	variantQuery    = "query"
	variantResponse = "response"
)

// ParseLLMResponse decodes and validates raw model output into one of the two
// permitted variants. Pure: no side effects, same input always yields the same
// result or the same error kind.
func ParseLLMResponse(raw string) (*LLMResponse, error) {
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()

	var top any
	if err := dec.Decode(&top); err != nil {
		return nil, goerr.Wrap(ErrMalformedSyntax, "response is not valid JSON", goerr.V("raw", truncate(raw, 256)))
	}
	// The reply must be exactly one JSON value; trailing prose or a second
	// value is malformed.
	if dec.More() {
		return nil, goerr.Wrap(ErrMalformedSyntax, "trailing data after JSON value", goerr.V("raw", truncate(raw, 256)))
	}

	obj, ok := top.(map[string]any)
	if !ok {
		return nil, goerr.Wrap(ErrMissingEnvelope, "top level is not an object")
	}
	rawType, hasType := obj["type"]
	rawPayload, hasPayload := obj["payload"]
	if !hasType || !hasPayload {
		return nil, goerr.Wrap(ErrMissingEnvelope, "type or payload key is absent")
	}
	variant, ok := rawType.(string)
	if !ok {
		return nil, goerr.Wrap(ErrMissingEnvelope, "type is not a string")
	}
	payload, ok := rawPayload.(map[string]any)
	if !ok {
		payload = nil
	}

	switch variant {
	case variantQuery:
		query, ok := payload["search_query"].(string)
		if !ok || query == "" {
			return nil, goerr.Wrap(ErrMissingField, "query payload requires search_query", goerr.V("field", "search_query"))
		}
		return &LLMResponse{Query: &QueryPayload{SearchQuery: query}}, nil

	case variantResponse:
		message, ok := payload["message"].(string)
		if !ok {
			return nil, goerr.Wrap(ErrMissingField, "response payload requires message", goerr.V("field", "message"))
		}
		rawIDs, ok := payload["photo_ids"].([]any)
		if !ok {
			return nil, goerr.Wrap(ErrMissingField, "response payload requires photo_ids", goerr.V("field", "photo_ids"))
		}
		ids := make([]PhotoID, 0, len(rawIDs))
		for i, elem := range rawIDs {
			id, err := coercePhotoID(elem)
			if err != nil {
				// No partial acceptance: one bad element fails the whole parse.
				return nil, goerr.Wrap(ErrInvalidPhotoID, "photo_ids element is not an integer", goerr.V("index", i))
			}
			ids = append(ids, id)
		}
		return &LLMResponse{Response: &ResponsePayload{Message: message, PhotoIDs: ids}}, nil

	default:
		return nil, goerr.Wrap(ErrUnknownVariant, "unexpected type value", goerr.V("type", variant))
	}
}

// coercePhotoID accepts JSON integers, integral floats, and decimal strings.
func coercePhotoID(v any) (PhotoID, error) {
	switch n := v.(type) {
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return PhotoID(i), nil
		}
		f, err := n.Float64()
		if err != nil || f != float64(int64(f)) {
			return 0, goerr.New("non-integral number", goerr.V("value", n.String()))
		}
		return PhotoID(int64(f)), nil
	case string:
		i, err := strconv.ParseInt(n, 10, 64)
		if err != nil {
			return 0, goerr.Wrap(err, "non-numeric string", goerr.V("value", n))
		}
		return PhotoID(i), nil
	default:
		return 0, goerr.New("unsupported photo ID type")
	}
}

// Encode renders the response in the canonical envelope form, the inverse of
// ParseLLMResponse. A nil PhotoIDs slice is normalized to an empty array.
func (r *LLMResponse) Encode() (string, error) {
	var env struct {
		Type    string `json:"type"`
		Payload any    `json:"payload"`
	}

	switch {
	case r.Query != nil && r.Response == nil:
		env.Type = variantQuery
		env.Payload = r.Query
	case r.Response != nil && r.Query == nil:
		env.Type = variantResponse
		payload := *r.Response
		if payload.PhotoIDs == nil {
			payload.PhotoIDs = []PhotoID{}
		}
		env.Payload = payload
	default:
		return "", goerr.New("exactly one response variant must be set")
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(env); err != nil {
		return "", goerr.Wrap(err, "failed to encode response")
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
