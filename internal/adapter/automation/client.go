// Package automation talks to the browser-automation sidecar that fills in
// the Chicago 311 tree-planting form.
package automation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/couchcryptid/tree-request-service/internal/domain"
	"github.com/couchcryptid/tree-request-service/internal/observability"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// Options tune session concurrency and pacing.
type Options struct {
	Timeout     time.Duration
	MaxSessions int64
	// RatePerMinute limits how often new sessions may start.
	RatePerMinute float64
	Burst         int
}

// Client opens submission sessions against the sidecar.
type Client struct {
	baseURL    string
	httpClient *http.Client
	sessions   *semaphore.Weighted
	limiter    *rate.Limiter
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a sidecar client rooted at baseURL.
func NewClient(baseURL string, opts Options, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: opts.Timeout},
		sessions:   semaphore.NewWeighted(opts.MaxSessions),
		limiter:    rate.NewLimiter(rate.Limit(opts.RatePerMinute/60), opts.Burst),
		metrics:    metrics,
		logger:     logger,
	}
}

// Open reserves an automation session. It blocks until a session slot is
// free and the start rate allows another submission. The session must be
// closed by the caller.
func (c *Client) Open(ctx context.Context) (*Session, error) {
	if err := c.sessions.Acquire(ctx, 1); err != nil {
		return nil, &domain.ExternalSubmissionError{Message: "waiting for automation session", Err: err}
	}
	if err := c.limiter.Wait(ctx); err != nil {
		c.sessions.Release(1)
		return nil, &domain.ExternalSubmissionError{Message: "waiting for submission slot", Err: err}
	}
	c.metrics.AutomationInFlight.Inc()
	return &Session{client: c}, nil
}

// Session is a single reserved automation slot.
type Session struct {
	client *Client
	once   sync.Once
}

// Close releases the session slot. It is safe to call more than once.
func (s *Session) Close() error {
	s.once.Do(func() {
		s.client.metrics.AutomationInFlight.Dec()
		s.client.sessions.Release(1)
	})
	return nil
}

// Submit files the request with 311 and returns the issued SR number.
// An address the 311 picker cannot find yields an error wrapping
// domain.ErrAddressNotFound.
func (s *Session) Submit(ctx context.Context, sub domain.Submission) (domain.Receipt, error) {
	start := time.Now()
	defer func() {
		s.client.metrics.SubmissionDuration.Observe(time.Since(start).Seconds())
	}()
	return s.client.submit(ctx, sub)
}

type plantTreeResponse struct {
	Success      bool   `json:"success"`
	SRNumber     string `json:"sr_number"`
	Confirmation string `json:"confirmation"`
	Error        string `json:"error"`
}

func (c *Client) submit(ctx context.Context, sub domain.Submission) (domain.Receipt, error) {
	body, err := json.Marshal(sub)
	if err != nil {
		return domain.Receipt{}, fmt.Errorf("encode submission: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/plant-tree", bytes.NewReader(body))
	if err != nil {
		return domain.Receipt{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.Receipt{}, &domain.ExternalSubmissionError{Message: "automation request", Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusUnprocessableEntity:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return domain.Receipt{}, &domain.ExternalSubmissionError{
			Message: fmt.Sprintf("Invalid address: %s", sub.Address),
			Err:     fmt.Errorf("status %d: %s: %w", resp.StatusCode, bytes.TrimSpace(msg), domain.ErrAddressNotFound),
		}
	case resp.StatusCode != http.StatusOK:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return domain.Receipt{}, &domain.ExternalSubmissionError{
			Message: fmt.Sprintf("automation status %d: %s", resp.StatusCode, bytes.TrimSpace(msg)),
		}
	}

	var out plantTreeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return domain.Receipt{}, &domain.ExternalSubmissionError{Message: "decode automation response", Err: err}
	}

	if !out.Success {
		if isAddressNotFound(out.Error) {
			return domain.Receipt{}, &domain.ExternalSubmissionError{
				Message: fmt.Sprintf("Invalid address: %s", sub.Address),
				Err:     domain.ErrAddressNotFound,
			}
		}
		return domain.Receipt{}, &domain.ExternalSubmissionError{Message: nonEmpty(out.Error, "submission rejected")}
	}

	sr := out.SRNumber
	if sr == "" {
		sr = ParseSRNumber(out.Confirmation)
	}
	if sr == "" {
		return domain.Receipt{}, &domain.ExternalSubmissionError{Message: "no service request number in confirmation"}
	}

	c.logger.Info("311 request submitted", "address", sub.Address, "sr_number", sr)
	return domain.Receipt{SRNumber: sr}, nil
}

// ParseSRNumber extracts the SR number from a 311 confirmation sentence,
// which ends with it ("... Your service request number is SR24-01234567.").
func ParseSRNumber(confirmation string) string {
	fields := strings.Fields(confirmation)
	if len(fields) == 0 {
		return ""
	}
	return strings.TrimRight(fields[len(fields)-1], ".")
}

func isAddressNotFound(msg string) bool {
	msg = strings.ToLower(msg)
	return strings.Contains(msg, "address not found") || strings.Contains(msg, "invalid address")
}

func nonEmpty(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
