package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"analysis-gateway/internal/domain"
	"analysis-gateway/internal/domain/model"
	"analysis-gateway/internal/domain/ports/adapter"
	"analysis-gateway/internal/infra/metrics"
)

// Compile-time assurance this client satisfies the port
var _ adapter.JobClient = (*OpenAIClient)(nil)

// OpenAIClient implements adapter.JobClient against the OpenAI Assistants v2 API
// (threads, messages, runs). One thread is a conversation context, one run is a job.
type OpenAIClient struct {
	apiKey     string
	base       string // e.g., https://api.openai.com/v1
	assistants map[model.AnalysisType]string
	client     *http.Client
}

func NewOpenAIClient(apiKey, base string, assistants map[string]string, timeout time.Duration) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, errors.New("openai api key empty")
	}
	if len(assistants) == 0 {
		return nil, errors.New("no assistants configured")
	}
	if base == "" {
		base = "https://api.openai.com/v1"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	m := make(map[model.AnalysisType]string, len(assistants))
	for k, v := range assistants {
		m[model.NormalizeType(k)] = v
	}
	return &OpenAIClient{
		apiKey:     apiKey,
		base:       strings.TrimRight(base, "/"),
		assistants: m,
		client:     &http.Client{Timeout: timeout},
	}, nil
}

func (o *OpenAIClient) Open(ctx context.Context, t model.AnalysisType) (string, error) {
	reqBody := map[string]any{
		"metadata": map[string]string{"source": "analysis-gateway", "type": string(t)},
	}
	var thread struct {
		ID string `json:"id"`
	}
	if err := o.do(ctx, "open", http.MethodPost, "/threads", reqBody, &thread); err != nil {
		return "", err
	}
	if thread.ID == "" {
		return "", fmt.Errorf("%w: open: empty thread id", domain.ErrUpstreamUnavailable)
	}
	return thread.ID, nil
}

func (o *OpenAIClient) Submit(ctx context.Context, contextID, text string) error {
	reqBody := struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}{Role: "user", Content: text}
	return o.do(ctx, "submit", http.MethodPost, "/threads/"+url.PathEscape(contextID)+"/messages", reqBody, nil)
}

func (o *OpenAIClient) Start(ctx context.Context, contextID string, t model.AnalysisType) (string, error) {
	assistantID, ok := o.assistants[t]
	if !ok {
		return "", fmt.Errorf("%w: unknown analysis type %q", domain.ErrInvalidRequest, t)
	}
	reqBody := struct {
		AssistantID string `json:"assistant_id"`
	}{AssistantID: assistantID}
	var run struct {
		ID string `json:"id"`
	}
	if err := o.do(ctx, "start", http.MethodPost, "/threads/"+url.PathEscape(contextID)+"/runs", reqBody, &run); err != nil {
		return "", err
	}
	if run.ID == "" {
		return "", fmt.Errorf("%w: start: empty run id", domain.ErrUpstreamUnavailable)
	}
	return run.ID, nil
}

func (o *OpenAIClient) Poll(ctx context.Context, contextID, jobID string) (model.JobStatus, error) {
	var run struct {
		Status string `json:"status"`
	}
	path := "/threads/" + url.PathEscape(contextID) + "/runs/" + url.PathEscape(jobID)
	if err := o.do(ctx, "poll", http.MethodGet, path, nil, &run); err != nil {
		return "", err
	}
	return mapRunStatus(run.Status), nil
}

func (o *OpenAIClient) FetchResult(ctx context.Context, contextID string) (string, error) {
	var payload struct {
		Data []struct {
			Role    string `json:"role"`
			Content []struct {
				Type string `json:"type"`
				Text *struct {
					Value string `json:"value"`
				} `json:"text"`
			} `json:"content"`
		} `json:"data"`
	}
	if err := o.do(ctx, "fetch", http.MethodGet, "/threads/"+url.PathEscape(contextID)+"/messages", nil, &payload); err != nil {
		return "", err
	}
	// messages are listed newest first
	for _, m := range payload.Data {
		if m.Role != "assistant" {
			continue
		}
		if len(m.Content) == 0 || m.Content[0].Text == nil {
			return "", domain.ErrNoResult
		}
		return m.Content[0].Text.Value, nil
	}
	return "", domain.ErrNoResult
}

// mapRunStatus folds the backend's run states into the four job states.
func mapRunStatus(s string) model.JobStatus {
	switch s {
	case "completed":
		return model.JobStatusSucceeded
	case "cancelled":
		return model.JobStatusCancelled
	case "failed", "expired", "incomplete":
		return model.JobStatusFailed
	default: // queued, in_progress, requires_action, cancelling
		return model.JobStatusRunning
	}
}

func (o *OpenAIClient) do(ctx context.Context, op, method, path string, body, out any) error {
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, o.base+path, rdr)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)
	req.Header.Set("OpenAI-Beta", "assistants=v2")

	resp, err := o.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		metrics.IncUpstreamCall(op, "unavailable")
		return fmt.Errorf("%w: %s: %v", domain.ErrUpstreamUnavailable, op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		metrics.IncUpstreamCall(op, "unavailable")
		return fmt.Errorf("%w: %s: http %d: %s", domain.ErrUpstreamUnavailable, op, resp.StatusCode, upstreamMessage(resp.Body))
	}
	if resp.StatusCode == http.StatusNotFound {
		metrics.IncUpstreamCall(op, "rejected")
		return fmt.Errorf("%w: %w: %s: %s", domain.ErrUpstreamRejected, domain.ErrContextGone, op, upstreamMessage(resp.Body))
	}
	if resp.StatusCode >= 400 {
		metrics.IncUpstreamCall(op, "rejected")
		return fmt.Errorf("%w: %s: http %d: %s", domain.ErrUpstreamRejected, op, resp.StatusCode, upstreamMessage(resp.Body))
	}
	metrics.IncUpstreamCall(op, "ok")

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %s: decode response: %v", domain.ErrUpstreamUnavailable, op, err)
	}
	return nil
}

// upstreamMessage extracts error.message from an error body, falling back to a short prefix.
func upstreamMessage(r io.Reader) string {
	b, _ := io.ReadAll(io.LimitReader(r, 4096))
	var e struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(b, &e) == nil && e.Error.Message != "" {
		return e.Error.Message
	}
	s := strings.TrimSpace(string(b))
	if len(s) > 200 {
		s = s[:200]
	}
	if s == "" {
		return "request failed"
	}
	return s
}
