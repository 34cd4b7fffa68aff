package gpt

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"homework-grader/api/internal/ocr"
)

var (
	_ ocr.Judge          = (*Engine)(nil)
	_ ocr.ImageSegmenter = (*Engine)(nil)
)

func responsesServer(t *testing.T, text string, seen *map[string]any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/responses", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		raw, _ := io.ReadAll(r.Body)
		if seen != nil {
			_ = json.Unmarshal(raw, seen)
		}
		env := map[string]any{
			"object": "response",
			"output": []any{
				map[string]any{"role": "assistant", "content": []any{
					map[string]any{"type": "output_text", "text": text},
				}},
			},
		}
		_ = json.NewEncoder(w).Encode(env)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestJudgeSteps(t *testing.T) {
	var body map[string]any
	srv := responsesServer(t, "```json\n{\"steps\":[{\"index\":0,\"correct\":false,\"comment\":\"sign\"}]}\n```", &body)
	e := New("test-key", "gpt-4o-mini").WithBaseURL(srv.URL + "/")

	js, err := e.JudgeSteps(context.Background(), ocr.JudgeRequest{
		ProblemText: "15 - (-4)",
		Steps:       []ocr.StepPair{{From: "15 - (-4)", To: "11"}},
	})
	require.NoError(t, err)
	require.Len(t, js, 1)
	assert.False(t, js[0].Correct)
	assert.Equal(t, "sign", js[0].Comment)

	assert.Equal(t, "gpt-4o-mini", body["model"])
	assert.EqualValues(t, 0, body["temperature"])
	format := body["text"].(map[string]any)["format"].(map[string]any)
	assert.Equal(t, "json_schema", format["type"])
	assert.Equal(t, JUDGE, format["name"])
	assert.Equal(t, true, format["strict"])
}

func TestSegment_NoTemperatureForGPT5(t *testing.T) {
	var body map[string]any
	srv := responsesServer(t, `{"problems":[{"problem_id":"","problem_text":"1+1","steps":[{"from":"1+1","to":"2"}]}]}`, &body)
	e := New("test-key", "gpt-5-mini").WithBaseURL(srv.URL)

	ps, err := e.Segment(context.Background(), "1. 1+1=2")
	require.NoError(t, err)
	require.Len(t, ps, 1)
	assert.Equal(t, "problem_1", ps[0].ID)
	_, has := body["temperature"]
	assert.False(t, has)
}

func TestResponses_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"quota"}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	e := New("test-key", "").WithBaseURL(srv.URL)
	_, err := e.Segment(context.Background(), "2+2=4")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestSegmentImage_RejectsNonImage(t *testing.T) {
	e := New("test-key", "")
	_, err := e.SegmentImage(context.Background(), []byte("%PDF-1.7"), "")
	assert.Error(t, err)
}

func TestMissingKey(t *testing.T) {
	_, err := New("", "").Segment(context.Background(), "1+1=2")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OPENAI_API_KEY")
}

func TestExtractResponsesText(t *testing.T) {
	assert.Equal(t, "x", extractResponsesText([]byte(`{"output_text":" x "}`)))
	assert.Equal(t, "a\nb", extractResponsesText([]byte(`{"output":[{"content":[{"type":"output_text","text":"a"},{"type":"reasoning","text":"z"},{"type":"text","text":"b"}]}]}`)))
	assert.Empty(t, extractResponsesText([]byte(`nope`)))
	assert.Equal(t, "ab...", truncateBytes([]byte("abcdef"), 2))
}
