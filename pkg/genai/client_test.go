package genai_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/lessonforge/lessonforge/internal/config"
	"github.com/lessonforge/lessonforge/pkg/genai"
)

func testConfig(baseURL string) config.EngineConfig {
	return config.EngineConfig{
		BaseURL:                 baseURL,
		Model:                   "test-model",
		Timeout:                 2 * time.Second,
		Retries:                 0,
		Backoff:                 time.Millisecond,
		CircuitFailureThreshold: 3,
		CircuitReset:            time.Minute,
	}
}

func TestGenerate_Success(t *testing.T) {
	draftJSON := `{\"title\":\"Logic\",\"principles\":[{\"title\":\"Modus ponens\",\"body\":\"If p then q.\"}]}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/x-ndjson")
		fmt.Fprintf(w, `{"model":"test-model","response":"%s","done":true}`+"\n", draftJSON)
	}))
	defer srv.Close()

	c, err := genai.NewClient(testConfig(srv.URL), srv.Client())
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	defer c.Close()

	draft, err := c.Generate(context.Background(), "Logic")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if draft.Title != "Logic" || len(draft.Principles) != 1 {
		t.Fatalf("unexpected draft: %+v", draft)
	}
}

func TestGenerate_CircuitOpensAfterFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c, err := genai.NewClient(testConfig(srv.URL), srv.Client())
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	defer c.Close()

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, err := c.Generate(ctx, "Logic"); err == nil {
			t.Fatalf("attempt %d: expected error from failing server", i)
		}
	}

	// threshold reached: the breaker rejects without touching the server
	if _, err := c.Generate(ctx, "Logic"); !errors.Is(err, genai.ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}
}

func TestValidate_NilDraft(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	c, err := genai.NewClient(testConfig(srv.URL), srv.Client())
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	defer c.Close()

	if _, err := c.Validate(context.Background(), "Logic", nil); err == nil {
		t.Fatalf("expected error for nil draft")
	}
}

func TestNewClient_BadBaseURL(t *testing.T) {
	if _, err := genai.NewClient(config.EngineConfig{BaseURL: "://not-a-url"}, nil); err == nil {
		t.Fatalf("expected error for invalid base url")
	}
}

func TestClose_Idempotent(t *testing.T) {
	c, err := genai.NewClient(testConfig("http://localhost:11434"), &http.Client{})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("first close: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
}
