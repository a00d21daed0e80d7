package engine

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newOpenAIStub(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		msgs, _ := body["messages"].([]any)
		if len(msgs) != 2 {
			t.Errorf("got %d messages, want 2", len(msgs))
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"c1","object":"chat.completion","created":0,"model":"gpt-4o-mini",
			"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"hello from openai"}}]}`))
	})
	mux.HandleFunc("/v1/embeddings", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		// Out of order on purpose: results must be placed by index.
		w.Write([]byte(`{"object":"list","model":"text-embedding-3-small",
			"usage":{"prompt_tokens":2,"total_tokens":2},
			"data":[{"object":"embedding","index":1,"embedding":[0,1]},
			        {"object":"embedding","index":0,"embedding":[1,0]}]}`))
	})
	mux.HandleFunc("/v1/models", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"object":"list","data":[{"id":"gpt-4o-mini","object":"model","created":0,"owned_by":"openai"}]}`))
	})
	return httptest.NewServer(mux)
}

func TestOpenAIEngine_Chat(t *testing.T) {
	srv := newOpenAIStub(t)
	defer srv.Close()

	e := NewOpenAIEngine("sk-test", srv.URL+"/v1/")
	got, err := e.Chat(context.Background(), "gpt-4o-mini", []Message{
		{Role: "system", Content: "be brief"},
		{Role: "user", Content: "hi"},
	}, ChatOptions{})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if got != "hello from openai" {
		t.Errorf("got %q, want %q", got, "hello from openai")
	}
}

func TestOpenAIEngine_ChatJSONSetsResponseFormat(t *testing.T) {
	formats := make(chan any, 2)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		formats <- body["response_format"]
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"c1","object":"chat.completion","created":0,"model":"gpt-4o-mini",
			"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"{}"}}]}`))
	}))
	defer srv.Close()

	e := NewOpenAIEngine("sk-test", srv.URL+"/v1/")
	msgs := []Message{{Role: RoleUser, Content: "facts please"}}

	if _, err := e.Chat(context.Background(), "gpt-4o-mini", msgs, ChatOptions{JSON: true}); err != nil {
		t.Fatalf("Chat: %v", err)
	}
	rf, ok := (<-formats).(map[string]any)
	if !ok {
		t.Fatal("expected response_format in request body")
	}
	if rf["type"] != "json_object" {
		t.Errorf("response_format.type = %v, want json_object", rf["type"])
	}

	if _, err := e.Chat(context.Background(), "gpt-4o-mini", msgs, ChatOptions{}); err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if rf := <-formats; rf != nil {
		t.Errorf("plain chat sent response_format %v", rf)
	}
}

func TestOpenAIEngine_EmbedBatchOrdersByIndex(t *testing.T) {
	srv := newOpenAIStub(t)
	defer srv.Close()

	e := NewOpenAIEngine("sk-test", srv.URL+"/v1/")
	vecs, err := e.EmbedBatch(context.Background(), "text-embedding-3-small", []string{"a", "b"})
	if err != nil {
		t.Fatalf("EmbedBatch: %v", err)
	}
	if len(vecs) != 2 {
		t.Fatalf("got %d vectors, want 2", len(vecs))
	}
	if vecs[0][0] != 1 || vecs[1][1] != 1 {
		t.Errorf("vectors not placed by index: %v", vecs)
	}
}

func TestOpenAIEngine_ListModels(t *testing.T) {
	srv := newOpenAIStub(t)
	defer srv.Close()

	e := NewOpenAIEngine("sk-test", srv.URL+"/v1/")
	if !e.IsRunning(context.Background()) {
		t.Fatal("IsRunning() = false, want true")
	}
	models, err := e.ListModels(context.Background())
	if err != nil {
		t.Fatalf("ListModels: %v", err)
	}
	if len(models) != 1 || models[0] != "gpt-4o-mini" {
		t.Errorf("models = %v, want [gpt-4o-mini]", models)
	}
}

func TestOpenAIEngine_PullUnsupported(t *testing.T) {
	e := NewOpenAIEngine("sk-test", "")
	err := e.PullModel(context.Background(), "gpt-4o-mini", nil)
	if !errors.Is(err, ErrPullUnsupported) {
		t.Errorf("err = %v, want ErrPullUnsupported", err)
	}
}
