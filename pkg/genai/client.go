// Package genai is the client for the generative content service. It
// wraps the Ollama API client and adds per-request timeouts, bounded
// retries with backoff, and a circuit breaker. The two operations mirror
// the pipeline's two stages: Generate produces a topic draft for a
// subject title, Validate fact-checks a draft and scores its confidence.
package genai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/ollama/ollama/api"

	"github.com/lessonforge/lessonforge/internal/config"
	"github.com/lessonforge/lessonforge/internal/models"
)

var ErrCircuitOpen = errors.New("genai circuit open")

// Client wraps the Ollama API client for the content service.
type Client struct {
	api    *api.Client
	cfg    config.EngineConfig
	client *http.Client

	// simple circuit breaker state
	failures  int32
	openUntil int64 // unix nano
	closed    int32 // atomic flag for Close()
}

// NewClient creates a new content service client.
func NewClient(cfg config.EngineConfig, httpClient *http.Client) (*Client, error) {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	u, err := url.ParseRequestURI(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}

	c := &Client{
		api:    api.NewClient(u, httpClient),
		cfg:    cfg,
		client: httpClient,
	}
	logger.Info("genai: client created", slog.String("base_url", cfg.BaseURL), slog.String("model", cfg.Model), slog.Duration("timeout", cfg.Timeout))
	return c, nil
}

func NewDefaultClient(cfg config.EngineConfig) (*Client, error) {
	defaultClient := &http.Client{
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   10 * time.Second,
				KeepAlive: 15 * time.Second,
			}).DialContext,
			ForceAttemptHTTP2:     true,
			MaxIdleConns:          100,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		},
	}

	return NewClient(cfg, defaultClient)
}

// package-level logger for pkg/genai; can be replaced by callers
var logger = slog.New(slog.NewJSONHandler(os.Stdout, nil))

// SetLogger sets the logger used by pkg/genai. Passing nil is a no-op.
func SetLogger(l *slog.Logger) {
	if l != nil {
		logger = l
	}
}

func (c *Client) isCircuitOpen() bool {
	if atomic.LoadInt32(&c.failures) < int32(c.cfg.CircuitFailureThreshold) {
		return false
	}

	if time.Now().UnixNano() < atomic.LoadInt64(&c.openUntil) {
		return true
	}

	// attempt half-open: reset failures and allow a request
	atomic.StoreInt32(&c.failures, 0)
	return false
}

func (c *Client) recordFailure() {
	v := atomic.AddInt32(&c.failures, 1)
	if v >= int32(c.cfg.CircuitFailureThreshold) {
		atomic.StoreInt64(&c.openUntil, time.Now().Add(c.cfg.CircuitReset).UnixNano())
	}
}

// Close releases resources held by the client. It closes idle connections
// on the underlying transport and is safe to call multiple times.
func (c *Client) Close() error {
	if c == nil {
		return nil
	}
	if !atomic.CompareAndSwapInt32(&c.closed, 0, 1) {
		return nil
	}
	if c.client != nil && c.client.Transport != nil {
		if tr, ok := c.client.Transport.(interface{ CloseIdleConnections() }); ok {
			tr.CloseIdleConnections()
		}
	}
	return nil
}

// Health pings the service by listing available models.
func (c *Client) Health(ctx context.Context) error {
	if c.isCircuitOpen() {
		return ErrCircuitOpen
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	resp, err := c.api.List(ctx)
	if err != nil {
		c.recordFailure()
		return fmt.Errorf("health check failed: %w", err)
	}
	if len(resp.Models) == 0 {
		c.recordFailure()
		return fmt.Errorf("health check failed: no models available")
	}

	atomic.StoreInt32(&c.failures, 0)
	return nil
}

// Generate asks the model for structured learning content on a subject.
func (c *Client) Generate(ctx context.Context, title string) (*models.TopicDraft, error) {
	prompt, err := RenderTemplate(generatePrompt, map[string]any{"Title": title})
	if err != nil {
		return nil, fmt.Errorf("render generate prompt: %w", err)
	}

	out, err := c.complete(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("generate content: %w", err)
	}

	draft, err := ParseTopicDraft(ctx, out)
	if err != nil {
		logger.Error("genai: unusable generate output", slog.Any("err", err), slog.String("title", title))
		return nil, fmt.Errorf("parse generated content: %w", err)
	}
	if draft.Title == "" {
		draft.Title = title
	}

	return draft, nil
}

// Validate fact-checks a draft and returns a confidence report. Callers
// treat failures here as best-effort.
func (c *Client) Validate(ctx context.Context, title string, draft *models.TopicDraft) (*models.ValidationReport, error) {
	if draft == nil {
		return nil, fmt.Errorf("draft is nil")
	}

	prompt, err := RenderTemplate(validatePrompt, map[string]any{"Title": title, "Draft": draft})
	if err != nil {
		return nil, fmt.Errorf("render validate prompt: %w", err)
	}

	out, err := c.complete(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("validate content: %w", err)
	}

	report, err := ParseValidationReport(ctx, out)
	if err != nil {
		return nil, fmt.Errorf("parse validation report: %w", err)
	}

	return report, nil
}

// complete sends a prompt and collects the streamed response text, with
// retries and per-attempt timeout.
func (c *Client) complete(ctx context.Context, prompt string) (string, error) {
	if c.isCircuitOpen() {
		return "", ErrCircuitOpen
	}

	var lastErr error
	for attempt := 0; attempt <= c.cfg.Retries; attempt++ {
		ctxReq, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
		req := &api.GenerateRequest{Model: c.cfg.Model, Prompt: prompt}

		var sb strings.Builder
		start := time.Now()
		err := c.api.Generate(ctxReq, req, func(r api.GenerateResponse) error {
			sb.WriteString(r.Response)
			return nil
		})
		cancel()

		if err == nil {
			atomic.StoreInt32(&c.failures, 0)
			logger.Info("genai: completion", slog.String("model", c.cfg.Model), slog.Int64("latency_ms", time.Since(start).Milliseconds()))
			return sb.String(), nil
		}

		lastErr = err
		c.recordFailure()

		if ctx.Err() != nil {
			break
		}

		time.Sleep(c.cfg.Backoff * time.Duration(attempt+1))
		if c.isCircuitOpen() {
			return "", ErrCircuitOpen
		}
	}

	return "", fmt.Errorf("completion failed after retries: %w", lastErr)
}
