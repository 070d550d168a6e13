package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/exp/slog"

	"careline/internal/config"
	"careline/internal/domain/action"
)

// HTTPClient submits queued actions to the agency backend and probes its
// health endpoint. It implements both Submitter and Pinger.
type HTTPClient struct {
	client    *http.Client
	config    *config.Config
	log       *slog.Logger
	baseURL   string
	token     string
	userAgent string
}

func NewHTTPClient(cfg *config.Config, log *slog.Logger) *HTTPClient {
	client := &http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			IdleConnTimeout:     90 * time.Second,
			DisableCompression:  false,
			DisableKeepAlives:   false,
			MaxIdleConnsPerHost: 10,
		},
	}

	scheme := "http://"
	if cfg.EnableTLS {
		scheme = "https://"
	}

	return &HTTPClient{
		client:    client,
		config:    cfg,
		log:       log.With(slog.String("component", "http_client")),
		baseURL:   scheme + cfg.ServerAddress,
		userAgent: "CareLine-Agent/1.0",
	}
}

// SetToken sets the bearer token attached to subsequent requests.
func (h *HTTPClient) SetToken(token string) {
	h.token = token
}

// HealthCheck probes backend availability.
func (h *HTTPClient) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, "GET", h.baseURL+"/api/v1/health", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", h.userAgent)

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("backend unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("backend returned status: %d", resp.StatusCode)
	}

	return nil
}

// Submit maps one queued action onto its backend endpoint and classifies
// the response. Transport failures, timeouts and server errors are
// retryable; a 409 carries the backend's current record state; any other
// 4xx is a terminal rejection.
func (h *HTTPClient) Submit(ctx context.Context, a *action.QueuedAction) *SubmitResult {
	method, path, err := endpointFor(a)
	if err != nil {
		return &SubmitResult{Status: SubmitRejected, Err: err}
	}

	resp, err := h.doRequest(ctx, method, path, a.Payload)
	if err != nil {
		return &SubmitResult{Status: SubmitRetryable, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &SubmitResult{Status: SubmitRetryable, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	h.log.Debug("action submitted",
		"id", a.ID,
		"type", a.Type,
		"status", resp.StatusCode,
	)

	switch {
	case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated:
		return &SubmitResult{Status: SubmitOK}

	case resp.StatusCode == http.StatusConflict:
		var conflictResp struct {
			Error        string         `json:"error"`
			ServerRecord map[string]any `json:"server_record"`
		}
		if err := json.Unmarshal(body, &conflictResp); err != nil {
			return &SubmitResult{
				Status: SubmitRetryable,
				Err:    fmt.Errorf("failed to parse conflict response: %w", err),
			}
		}
		return &SubmitResult{Status: SubmitConflict, ServerRecord: conflictResp.ServerRecord}

	case resp.StatusCode == http.StatusRequestTimeout ||
		resp.StatusCode == http.StatusTooManyRequests ||
		resp.StatusCode >= 500:
		return &SubmitResult{
			Status: SubmitRetryable,
			Err:    fmt.Errorf("backend returned status: %d", resp.StatusCode),
		}

	default:
		return &SubmitResult{Status: SubmitRejected, Err: rejectionError(resp.StatusCode, body)}
	}
}

func (h *HTTPClient) doRequest(ctx context.Context, method, path string, payload json.RawMessage) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, h.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", h.userAgent)
	if h.config.DeviceID != "" {
		req.Header.Set("X-Device-ID", h.config.DeviceID)
	}
	if h.token != "" {
		req.Header.Set("Authorization", "Bearer "+h.token)
	}

	h.log.Debug("sending request",
		"method", method,
		"url", req.URL.String(),
	)

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	return resp, nil
}

// endpointFor maps an action type onto the backend route, pulling path
// parameters out of the payload.
func endpointFor(a *action.QueuedAction) (method, path string, err error) {
	rec, err := a.Record()
	if err != nil {
		return "", "", fmt.Errorf("failed to decode payload: %w", err)
	}
	visitID, _ := rec["visit_id"].(string)
	if visitID == "" {
		return "", "", fmt.Errorf("payload of %s has no visit_id", a.ID)
	}

	switch a.Type {
	case action.TypeVisitCheckIn:
		return "POST", "/api/v1/visits/" + visitID + "/check-in", nil
	case action.TypeVisitCheckOut:
		return "POST", "/api/v1/visits/" + visitID + "/check-out", nil
	case action.TypeTaskComplete:
		taskID, _ := rec["task_id"].(string)
		if taskID == "" {
			return "", "", fmt.Errorf("payload of %s has no task_id", a.ID)
		}
		return "POST", "/api/v1/visits/" + visitID + "/tasks/" + taskID + "/complete", nil
	case action.TypeCareNote:
		noteID, _ := rec["note_id"].(string)
		if noteID == "" {
			return "", "", fmt.Errorf("payload of %s has no note_id", a.ID)
		}
		return "PUT", "/api/v1/visits/" + visitID + "/notes/" + noteID, nil
	}

	return "", "", fmt.Errorf("%w: %q", action.ErrUnknownType, a.Type)
}

func rejectionError(status int, body []byte) error {
	var errResp struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
		return fmt.Errorf("backend rejected action: %s", errResp.Error)
	}
	return fmt.Errorf("backend rejected action: status %d", status)
}
