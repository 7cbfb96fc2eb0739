package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"atelier_back/gallery"
)

// generateTimeout is the client-side ceiling on one generation call,
// independent of whatever timeout the remote service enforces itself.
const generateTimeout = 5 * time.Minute

// remote carries the HTTP plumbing and the in-flight slot shared by the
// avatar and outfit clients. Each client owns its own remote, so the two can
// run concurrently while each enforces last-write-wins for its own calls.
type remote struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	timeout    time.Duration
	slot       slot
}

// newRemoteFromEnv builds the transport from environment variables.
//
// Expected variables:
//   - GEN_BASE_URL: base URL of the remote generation service (required)
//   - GEN_API_KEY: optional API key; absence means an unauthenticated deployment
func newRemoteFromEnv() (*remote, error) {
	baseURL := strings.TrimSpace(os.Getenv("GEN_BASE_URL"))
	if baseURL == "" {
		return nil, errors.New("generation: GEN_BASE_URL environment variable is required")
	}
	baseURL = strings.TrimRight(baseURL, "/")
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		return nil, fmt.Errorf("generation: invalid base URL %q", baseURL)
	}

	return &remote{
		// The per-operation context enforces the deadline; no transport-level timeout.
		httpClient: &http.Client{},
		baseURL:    baseURL,
		apiKey:     strings.TrimSpace(os.Getenv("GEN_API_KEY")),
		timeout:    generateTimeout,
	}, nil
}

// postJSON issues one POST and decodes the 2xx response into out. Non-2xx
// answers and undecodable payloads come back as *ServiceError.
func (r *remote) postJSON(ctx context.Context, path string, payload, out any) error {
	body := &bytes.Buffer{}
	if err := json.NewEncoder(body).Encode(payload); err != nil {
		return fmt.Errorf("generation: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("generation: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if r.apiKey != "" {
		req.Header.Set("X-API-Key", r.apiKey)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("generation: execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &ServiceError{Status: resp.StatusCode, Message: serviceMessage(resp.Body)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &ServiceError{Status: resp.StatusCode, Message: "malformed response payload"}
	}
	return nil
}

// serviceMessage extracts the service-provided error message when present.
func serviceMessage(body io.Reader) string {
	snippet, _ := io.ReadAll(io.LimitReader(body, 4<<10))
	var wrapped struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(snippet, &wrapped); err == nil {
		if wrapped.Error != "" {
			return wrapped.Error
		}
		if wrapped.Message != "" {
			return wrapped.Message
		}
	}
	return strings.TrimSpace(string(snippet))
}

// classifyError maps a failed call onto the error taxonomy. Service errors
// pass through typed; context outcomes become the two cancellation sentinels;
// anything else is a transport failure.
func classifyError(ctx context.Context, err error) error {
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		return err
	}
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded), errors.Is(err, context.DeadlineExceeded):
		return ErrTimedOut
	case errors.Is(ctx.Err(), context.Canceled), errors.Is(err, context.Canceled):
		return ErrCancelled
	}
	return fmt.Errorf("generation: request failed: %w", err)
}

// Cancel aborts the in-flight call, if any.
func (r *remote) Cancel() bool {
	if r == nil {
		return false
	}
	return r.slot.cancelCurrent()
}

// Busy reports whether a call is in flight.
func (r *remote) Busy() bool {
	return r != nil && r.slot.busy()
}

// Client drives avatar generation against the remote service. At most one
// request is in flight per client; starting a new one cancels the previous.
type Client struct {
	*remote
}

// NewClientFromEnv constructs the avatar generation client.
func NewClientFromEnv() (*Client, error) {
	r, err := newRemoteFromEnv()
	if err != nil {
		return nil, err
	}
	return &Client{remote: r}, nil
}

// GenerateRequest describes one avatar generation call.
type GenerateRequest struct {
	Mode         gallery.GenerationMode `json:"mode"`
	Count        int                    `json:"count"`
	Prompt       string                 `json:"prompt,omitempty"`
	ReferenceURL string                 `json:"reference_url,omitempty"`
	Checkpoint   string                 `json:"checkpoint,omitempty"`
	Seed         *int64                 `json:"seed,omitempty"`
	Truncation   *float64               `json:"truncation,omitempty"`
}

// ResultItem is one generated artifact as reported by the service.
type ResultItem struct {
	URL      string         `json:"url"`
	Seed     *int64         `json:"seed,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// GenerateResult is a successful generation batch. Warnings accompany success
// (for example a non-commercially-licensed checkpoint was used) and never fail
// the call.
type GenerateResult struct {
	Mode     gallery.GenerationMode `json:"mode"`
	Results  []ResultItem           `json:"results"`
	Warnings []string               `json:"warnings,omitempty"`
}

// Generate issues the call. It suspends until the service answers, the
// 5-minute deadline fires, or the call is cancelled — whichever comes first.
// A call superseded by a newer one settles as ErrCancelled and commits
// nothing.
func (c *Client) Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
	if c == nil {
		return nil, errors.New("generation: client is nil")
	}
	if req.Count <= 0 {
		req.Count = 1
	}

	opCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	op := c.slot.begin(cancel)

	var decoded GenerateResult
	err := c.postJSON(opCtx, "/generate", req, &decoded)

	if !c.slot.end(op) {
		// A newer call owns the slot; this settlement must not surface results.
		return nil, ErrCancelled
	}
	if err != nil {
		return nil, classifyError(opCtx, err)
	}
	if decoded.Mode == "" {
		decoded.Mode = req.Mode
	}
	return &decoded, nil
}
