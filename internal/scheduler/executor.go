package scheduler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ErlanBelekov/workflow-scheduler/internal/domain"
)

// InternalSecretHeader authenticates the dispatcher to the workflow API.
const InternalSecretHeader = "X-Internal-Secret"

// Executor starts a workflow run through the application's execute endpoint.
type Executor struct {
	client  *http.Client
	baseURL string
	secret  string
	timeout time.Duration
}

func NewExecutor(baseURL, secret string, timeout time.Duration) *Executor {
	return &Executor{
		client:  &http.Client{},
		baseURL: strings.TrimRight(baseURL, "/"),
		secret:  secret,
		timeout: timeout,
	}
}

type ExecutionResult struct {
	StatusCode int
	Err        error
	Duration   time.Duration
}

// OK reports a 2xx answer with no transport error.
func (r ExecutionResult) OK() bool {
	return r.Err == nil && r.StatusCode >= 200 && r.StatusCode < 300
}

// Message describes a failed result for last_error.
func (r ExecutionResult) Message() string {
	if r.Err != nil {
		return r.Err.Error()
	}
	return fmt.Sprintf("unexpected status code: %d", r.StatusCode)
}

type executeRequest struct {
	TriggerType string    `json:"triggerType"`
	BlockID     string    `json:"blockId"`
	ScheduledAt time.Time `json:"scheduledAt"`
}

// Trigger asks the application to run the schedule's workflow once.
// scheduledAt is the due time the run stands for.
func (e *Executor) Trigger(ctx context.Context, s *domain.Schedule) ExecutionResult {
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	payload, err := json.Marshal(executeRequest{
		TriggerType: domain.TriggerTypeSchedule,
		BlockID:     s.BlockID,
		ScheduledAt: s.NextRunAt.UTC(),
	})
	if err != nil {
		return ExecutionResult{Err: fmt.Errorf("encode request: %w", err), Duration: time.Since(start)}
	}

	endpoint := e.baseURL + "/api/workflows/" + url.PathEscape(s.WorkflowID) + "/execute"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return ExecutionResult{Err: fmt.Errorf("build request: %w", err), Duration: time.Since(start)}
	}
	req.Header.Set("Content-Type", "application/json")
	if e.secret != "" {
		req.Header.Set(InternalSecretHeader, e.secret)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return ExecutionResult{Err: fmt.Errorf("do request: %w", err), Duration: time.Since(start)}
	}
	defer func() { _ = resp.Body.Close() }()

	result := ExecutionResult{StatusCode: resp.StatusCode}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		if msg := strings.TrimSpace(string(snippet)); msg != "" {
			result.Err = fmt.Errorf("execute returned %d: %s", resp.StatusCode, msg)
		}
	}
	_, _ = io.Copy(io.Discard, resp.Body) // drain so the connection can be reused
	result.Duration = time.Since(start)
	return result
}
