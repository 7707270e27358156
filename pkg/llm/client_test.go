package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"laura-rag-go/internal/config"
	"laura-rag-go/pkg/errs"
)

type recordingWriter struct {
	frames []string
	err    error
}

func (w *recordingWriter) WriteMessage(_ int, data []byte) error {
	if w.err != nil {
		return w.err
	}
	w.frames = append(w.frames, string(data))
	return nil
}

func newClient(t *testing.T, handler http.HandlerFunc) Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(config.MistralConfig{APIKey: "test-key", BaseURL: srv.URL, ChatModel: "mistral-small"})
}

func temperature(v float64) *GenerationParams {
	return &GenerationParams{Temperature: &v}
}

func TestComplete_SendsModelMessagesAndTemperature(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "mistral-small", body["model"])
		assert.InDelta(t, 0.4, body["temperature"], 1e-9)
		assert.NotContains(t, body, "stream")
		msgs := body["messages"].([]any)
		require.Len(t, msgs, 2)
		assert.Equal(t, "system", msgs[0].(map[string]any)["role"])

		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"Hello there"}}]}`))
	})

	msg, err := client.Complete(context.Background(), []Message{
		{Role: "system", Content: "be nice"},
		{Role: "user", Content: "hi"},
	}, temperature(0.4))
	require.NoError(t, err)
	assert.Equal(t, Message{Role: "assistant", Content: "Hello there"}, msg)
}

func TestComplete_MissingContent(t *testing.T) {
	for _, body := range []string{
		`{"choices":[]}`,
		`{"choices":[{"message":{"role":"assistant","content":""}}]}`,
		`{"id":"x"}`,
		`not-json`,
	} {
		t.Run(body, func(t *testing.T) {
			client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(body))
			})
			_, err := client.Complete(context.Background(), []Message{{Role: "user", Content: "hi"}}, nil)
			var upstream *errs.UpstreamError
			require.ErrorAs(t, err, &upstream)
			assert.Equal(t, http.StatusBadGateway, upstream.Status)
		})
	}
}

func TestComplete_PropagatesStatus(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	})
	_, err := client.Complete(context.Background(), []Message{{Role: "user", Content: "hi"}}, nil)
	var upstream *errs.UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, http.StatusUnauthorized, upstream.Status)
}

func TestComplete_MissingKey(t *testing.T) {
	client := NewClient(config.MistralConfig{BaseURL: "http://127.0.0.1:1", ChatModel: "mistral-small"})
	_, err := client.Complete(context.Background(), []Message{{Role: "user", Content: "hi"}}, nil)
	assert.True(t, errs.IsConfig(err))
}

func TestStreamChatMessages_ForwardsDeltas(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, true, body["stream"])
		assert.Equal(t, "text/event-stream", r.Header.Get("Accept"))

		w.Header().Set("Content-Type", "text/event-stream")
		for _, part := range []string{"Hel", "lo", ""} {
			fmt.Fprintf(w, "data: {\"choices\":[{\"delta\":{\"content\":%q}}]}\n\n", part)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	})

	writer := &recordingWriter{}
	answer, err := client.StreamChatMessages(context.Background(), []Message{{Role: "user", Content: "hi"}}, nil, writer)
	require.NoError(t, err)
	assert.Equal(t, "Hello", answer)
	assert.Equal(t, []string{"Hel", "lo"}, writer.frames)
}

func TestStreamChatMessages_EmptyStreamIsUpstreamError(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "data: [DONE]\n\n")
	})
	_, err := client.StreamChatMessages(context.Background(), []Message{{Role: "user", Content: "hi"}}, nil, &recordingWriter{})
	assert.True(t, errs.IsUpstream(err))
}

func TestStreamChatMessages_WriterFailure(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"x\"}}]}\n\n")
	})
	_, err := client.StreamChatMessages(context.Background(), []Message{{Role: "user", Content: "hi"}}, nil,
		&recordingWriter{err: errors.New("closed")})
	require.Error(t, err)
	assert.False(t, errs.IsUpstream(err))
}
