package services

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/openai/openai-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wastejobs-backend/internal/models"
)

const toolCallResponse = `{
  "id": "chatcmpl-1",
  "object": "chat.completion",
  "created": 1760000000,
  "model": "gpt-4o-mini",
  "choices": [{
    "index": 0,
    "finish_reason": "tool_calls",
    "message": {
      "role": "assistant",
      "content": null,
      "tool_calls": [{
        "id": "call_1",
        "type": "function",
        "function": {"name": "classify_waste_item", "arguments": "{\"category\":\"electronics\",\"title\":\"Telewizor\"}"}
      }]
    }
  }]
}`

func TestOpenAIClassifierPredict(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		raw, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(raw, &body))
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, toolCallResponse)
	}))
	defer srv.Close()

	c := NewOpenAIClassifier("sk-test", "", option.WithBaseURL(srv.URL+"/"), option.WithMaxRetries(0))
	got, err := c.Predict(context.Background(), "aGVsbG8=", "stary telewizor")
	require.NoError(t, err)
	assert.Equal(t, models.CategoryPrediction{Category: "electronics", Title: "Telewizor"}, got)

	assert.Equal(t, "gpt-4o-mini", body["model"])
	raw, _ := json.Marshal(body["messages"])
	assert.Contains(t, string(raw), "data:image/jpeg;base64,aGVsbG8=")
	assert.Contains(t, string(raw), "stary telewizor")
}

func TestOpenAIClassifierFailures(t *testing.T) {
	_, err := NewOpenAIClassifier("", "").Predict(context.Background(), "x", "")
	assert.Error(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		io.WriteString(w, `{"error":{"message":"boom","type":"server_error"}}`)
	}))
	defer srv.Close()

	c := NewOpenAIClassifier("sk-test", "", option.WithBaseURL(srv.URL+"/"), option.WithMaxRetries(0))
	_, err = c.Predict(context.Background(), "x", "")
	assert.Error(t, err)
}

func TestImageURL(t *testing.T) {
	assert.Equal(t, "data:image/png;base64,AA", imageURL("data:image/png;base64,AA"))
	assert.Equal(t, "https://cdn.example.com/a.jpg", imageURL("https://cdn.example.com/a.jpg"))
	assert.Equal(t, "data:image/jpeg;base64,AA", imageURL("AA"))
}
