package model_test

import (
	"errors"
	"testing"

	"github.com/abhivel/lyfe/pkg/model"
	"github.com/m-mizutani/gt"
)

func TestParseQueryVariant(t *testing.T) {
	raw := `{"type":"query","payload":{"search_query":"beach sunset"}}`
	resp := gt.R1(model.ParseLLMResponse(raw)).NoError(t)

	gt.True(t, resp.IsQuery())
	gt.Equal(t, resp.Query.SearchQuery, "beach sunset")
	gt.Nil(t, resp.Response)
}

func TestParseResponseVariant(t *testing.T) {
	raw := `{"type":"response","payload":{"message":"You visited in July 2023.","photo_ids":[12,47]}}`
	resp := gt.R1(model.ParseLLMResponse(raw)).NoError(t)

	gt.False(t, resp.IsQuery())
	gt.Equal(t, resp.Response.Message, "You visited in July 2023.")
	gt.Equal(t, resp.Response.PhotoIDs, []model.PhotoID{12, 47})
}

func TestParseResponseEmptyPhotoIDs(t *testing.T) {
	raw := `{"type":"response","payload":{"message":"No matching photos.","photo_ids":[]}}`
	resp := gt.R1(model.ParseLLMResponse(raw)).NoError(t)

	gt.A(t, resp.Response.PhotoIDs).Length(0)
}

func TestParsePreservesOrderAndDuplicates(t *testing.T) {
	raw := `{"type":"response","payload":{"message":"ok","photo_ids":[3,1,3,2]}}`
	resp := gt.R1(model.ParseLLMResponse(raw)).NoError(t)

	gt.Equal(t, resp.Response.PhotoIDs, []model.PhotoID{3, 1, 3, 2})
}

func TestParsePhotoIDCoercion(t *testing.T) {
	// Integral floats and decimal strings are accepted as IDs.
	raw := `{"type":"response","payload":{"message":"ok","photo_ids":[12,47.0,"33"]}}`
	resp := gt.R1(model.ParseLLMResponse(raw)).NoError(t)

	gt.Equal(t, resp.Response.PhotoIDs, []model.PhotoID{12, 47, 33})
}

func TestParseErrors(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want error
	}{
		{"not json", `answer: the beach`, model.ErrMalformedSyntax},
		{"truncated", `{"type":"query","payload":{"search_`, model.ErrMalformedSyntax},
		{"trailing prose", `{"type":"query","payload":{"search_query":"beach"}} I hope that helps!`, model.ErrMalformedSyntax},
		{"two values", `{"type":"query","payload":{"search_query":"a"}}{"type":"query","payload":{"search_query":"b"}}`, model.ErrMalformedSyntax},
		{"top level array", `[1,2,3]`, model.ErrMissingEnvelope},
		{"top level string", `"query"`, model.ErrMissingEnvelope},
		{"no type", `{"payload":{"search_query":"x"}}`, model.ErrMissingEnvelope},
		{"no payload", `{"type":"query"}`, model.ErrMissingEnvelope},
		{"type not string", `{"type":7,"payload":{}}`, model.ErrMissingEnvelope},
		{"unknown variant", `{"type":"action","payload":{}}`, model.ErrUnknownVariant},
		{"query without search_query", `{"type":"query","payload":{}}`, model.ErrMissingField},
		{"query with empty search_query", `{"type":"query","payload":{"search_query":""}}`, model.ErrMissingField},
		{"response without message", `{"type":"response","payload":{"photo_ids":[]}}`, model.ErrMissingField},
		{"response without photo_ids", `{"type":"response","payload":{"message":"hi"}}`, model.ErrMissingField},
		{"fractional id", `{"type":"response","payload":{"message":"hi","photo_ids":[1.5]}}`, model.ErrInvalidPhotoID},
		{"non-numeric string id", `{"type":"response","payload":{"message":"hi","photo_ids":["abc"]}}`, model.ErrInvalidPhotoID},
		{"null id", `{"type":"response","payload":{"message":"hi","photo_ids":[null]}}`, model.ErrInvalidPhotoID},
		{"one bad id fails all", `{"type":"response","payload":{"message":"hi","photo_ids":[1,2,"x",4]}}`, model.ErrInvalidPhotoID},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := model.ParseLLMResponse(tc.raw)
			gt.Error(t, err)
			gt.True(t, errors.Is(err, tc.want))
		})
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	cases := []struct {
		name string
		resp *model.LLMResponse
	}{
		{"query", &model.LLMResponse{Query: &model.QueryPayload{SearchQuery: "mountain hike"}}},
		{"response", &model.LLMResponse{Response: &model.ResponsePayload{
			Message:  "Three photos match.",
			PhotoIDs: []model.PhotoID{5, 9, 5},
		}}},
		{"response without photos", &model.LLMResponse{Response: &model.ResponsePayload{
			Message: "Nothing found.",
		}}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			encoded := gt.R1(tc.resp.Encode()).NoError(t)
			decoded := gt.R1(model.ParseLLMResponse(encoded)).NoError(t)

			gt.Equal(t, decoded.IsQuery(), tc.resp.IsQuery())
			if tc.resp.Query != nil {
				gt.Equal(t, decoded.Query.SearchQuery, tc.resp.Query.SearchQuery)
			}
			if tc.resp.Response != nil {
				gt.Equal(t, decoded.Response.Message, tc.resp.Response.Message)
				want := tc.resp.Response.PhotoIDs
				if want == nil {
					want = []model.PhotoID{}
				}
				gt.Equal(t, decoded.Response.PhotoIDs, want)
			}
		})
	}
}

func TestEncodeRejectsAmbiguousVariant(t *testing.T) {
	_, err := (&model.LLMResponse{}).Encode()
	gt.Error(t, err)

	both := &model.LLMResponse{
		Query:    &model.QueryPayload{SearchQuery: "x"},
		Response: &model.ResponsePayload{Message: "y"},
	}
	_, err = both.Encode()
	gt.Error(t, err)
}
