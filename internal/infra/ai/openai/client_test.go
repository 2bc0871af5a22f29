package openai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/ingredient-copilot/internal/domain/ai"
	"github.com/bryanwahyu/ingredient-copilot/internal/domain/failure"
)

func completion(content, finish string) string {
	body, _ := json.Marshal(map[string]any{
		"id":     "chatcmpl-1",
		"object": "chat.completion",
		"model":  "gpt-4o-mini",
		"choices": []map[string]any{{
			"index":         0,
			"message":       map[string]string{"role": "assistant", "content": content},
			"finish_reason": finish,
		}},
		"usage": map[string]int{"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15},
	})
	return string(body)
}

func newTestClient(t *testing.T, model string, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(Options{APIKey: "test", BaseURL: srv.URL + "/v1", Model: model, Timeout: 2 * time.Second}, nil)
}

func TestGenerateSendsSampling(t *testing.T) {
	var got map[string]any
	c := newTestClient(t, "gpt-4o-mini", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, completion(`{"ok": true}`, "stop"))
	})

	out, err := c.Generate(context.Background(), "hello", ai.GenerateOptions{Temperature: 0.5, MaxTokens: 100, Purpose: "intent"})

	require.NoError(t, err)
	assert.Equal(t, `{"ok": true}`, out)
	assert.InDelta(t, 0.5, got["temperature"], 0.0001)
	assert.EqualValues(t, 100, got["max_tokens"])
	assert.Equal(t, "gpt-4o-mini", c.Model())
}

func TestGenerateReasoningModelUsesCompletionTokens(t *testing.T) {
	var got map[string]any
	c := newTestClient(t, "o3-mini", func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &got))
		_, _ = io.WriteString(w, completion("ok", "stop"))
	})

	_, err := c.Generate(context.Background(), "hello", ai.GenerateOptions{Temperature: 0.7})

	require.NoError(t, err)
	assert.EqualValues(t, defaultMaxTokens, got["max_completion_tokens"])
	assert.NotContains(t, got, "max_tokens")
}

func TestGenerateQuotaExceeded(t *testing.T) {
	c := newTestClient(t, "gpt-4o-mini", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = io.WriteString(w, `{"error": {"message": "Rate limit reached", "type": "requests", "code": "rate_limit_exceeded"}}`)
	})

	_, err := c.Generate(context.Background(), "hello", ai.GenerateOptions{})

	require.Error(t, err)
	assert.Equal(t, failure.KindAIService, failure.KindOf(err))
	assert.ErrorIs(t, err, ai.ErrQuotaExceeded)
}

func TestGenerateContentFiltered(t *testing.T) {
	c := newTestClient(t, "gpt-4o-mini", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, completion("", "content_filter"))
	})

	_, err := c.Generate(context.Background(), "hello", ai.GenerateOptions{})

	assert.ErrorIs(t, err, ai.ErrContentBlocked)
	assert.Equal(t, failure.KindAIService, failure.KindOf(err))
}

func TestVisionOCRParsesEnvelope(t *testing.T) {
	c := newTestClient(t, "gpt-4o-mini", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, completion("```json\n{\"text\": \"Sugar, Salt\", \"confidence\": 91}\n```", "stop"))
	})

	res, err := NewVisionOCR(c, nil).Extract(context.Background(), []byte{0xff, 0xd8}, "image/jpeg")

	require.NoError(t, err)
	assert.Equal(t, "Sugar, Salt", res.Text)
	assert.Equal(t, 91.0, res.Confidence)
}

func TestVisionOCRSendsZeroTemperature(t *testing.T) {
	var got map[string]any
	c := newTestClient(t, "gpt-4o-mini", func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &got))
		_, _ = io.WriteString(w, completion("Sugar", "stop"))
	})

	_, err := NewVisionOCR(c, nil).Extract(context.Background(), []byte{1}, "image/png")

	require.NoError(t, err)
	require.Contains(t, got, "temperature")
	assert.InDelta(t, 0, got["temperature"], 1e-6)
}

func TestVisionOCRPlainTextReply(t *testing.T) {
	c := newTestClient(t, "gpt-4o-mini", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, completion("Whole grain oats, honey", "stop"))
	})

	res, err := NewVisionOCR(c, nil).Extract(context.Background(), []byte{1}, "")

	require.NoError(t, err)
	assert.Equal(t, "Whole grain oats, honey", res.Text)
	assert.Zero(t, res.Confidence)
}

func TestVisionOCRServiceDown(t *testing.T) {
	c := newTestClient(t, "gpt-4o-mini", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := NewVisionOCR(c, nil).Extract(context.Background(), []byte{1}, "image/png")

	assert.Equal(t, failure.KindOCR, failure.KindOf(err))
}
