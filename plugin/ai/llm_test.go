package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestFormatMessages tests prompt assembly.
func TestFormatMessages(t *testing.T) {
	messages := FormatMessages("be terse", "hello")
	require.Len(t, messages, 2)
	assert.Equal(t, "system", messages[0].Role)
	assert.Equal(t, "user", messages[1].Role)
	assert.Equal(t, "hello", messages[1].Content)

	messages = FormatMessages("", "hello")
	require.Len(t, messages, 1)
	assert.Equal(t, UserMessage("hello"), messages[0])
}

// fakeOpenAI serves /v1/chat/completions, failing the first failures calls.
func fakeOpenAI(t *testing.T, failures int32, content string) (*httptest.Server, *atomic.Int32, *atomic.Value) {
	t.Helper()
	var calls atomic.Int32
	var lastRequest atomic.Value

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			http.NotFound(w, r)
			return
		}
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		lastRequest.Store(body)

		w.Header().Set("Content-Type", "application/json")
		if calls.Add(1) <= failures {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error":{"message":"upstream down","type":"server_error"}}`))
			return
		}
		_, _ = fmt.Fprintf(w, `{"id":"chatcmpl-1","object":"chat.completion","model":"gpt-3.5-turbo","choices":[{"index":0,"message":{"role":"assistant","content":%q},"finish_reason":"stop"}]}`, content)
	}))
	t.Cleanup(srv.Close)
	return srv, &calls, &lastRequest
}

func newTestProvider(t *testing.T, baseURL string, retries int) *Provider {
	t.Helper()
	p, err := NewProvider(&Config{
		APIKey:      "test-key",
		BaseURL:     baseURL,
		Model:       DefaultModel,
		Temperature: DefaultTemperature,
		MaxRetries:  retries,
	})
	require.NoError(t, err)
	p.backoff = func(int) time.Duration { return time.Millisecond }
	return p
}

func TestProviderChat(t *testing.T) {
	srv, calls, lastRequest := fakeOpenAI(t, 0, `{"severity":"HIGH"}`)
	p := newTestProvider(t, srv.URL+"/v1", 3)

	got, err := p.Chat(context.Background(), FormatMessages("", "classify"))
	require.NoError(t, err)
	assert.Equal(t, `{"severity":"HIGH"}`, got)
	assert.Equal(t, int32(1), calls.Load())

	body := lastRequest.Load().(map[string]any)
	assert.Equal(t, DefaultModel, body["model"])
	assert.Equal(t, map[string]any{"type": "json_object"}, body["response_format"])
	assert.InDelta(t, DefaultTemperature, body["temperature"], 0.0001)
}

func TestProviderChat_Retries(t *testing.T) {
	srv, calls, _ := fakeOpenAI(t, 2, `{}`)
	p := newTestProvider(t, srv.URL+"/v1", 3)

	_, err := p.Chat(context.Background(), FormatMessages("", "classify"))
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestProviderChat_GivesUp(t *testing.T) {
	srv, calls, _ := fakeOpenAI(t, 10, `{}`)
	p := newTestProvider(t, srv.URL+"/v1", 2)

	_, err := p.Chat(context.Background(), FormatMessages("", "classify"))
	require.Error(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestNewProvider_RequiresKey(t *testing.T) {
	_, err := NewProvider(&Config{})
	assert.Error(t, err)
	_, err = NewProvider(nil)
	assert.Error(t, err)
}
