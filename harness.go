package procfixture

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Harness drives a running fault service over HTTP, the way an integration
// test triggers a stimulus before checking what the monitor captured.
type Harness struct {
	// BaseURL is the scheme://host:port of the service
	BaseURL string
	// Concurrency is the maximum number of triggers in flight
	Concurrency int
	// Timeout is the per-trigger timeout
	Timeout time.Duration
	// Limiter paces triggers; nil disables pacing
	Limiter *rate.Limiter
	// Client performs the requests
	Client *http.Client
}

// HarnessOption configures a Harness
type HarnessOption func(*Harness)

// WithConcurrency sets the maximum number of concurrent triggers
func WithConcurrency(n int) HarnessOption {
	return func(h *Harness) {
		h.Concurrency = n
	}
}

// WithTimeout sets the per-trigger timeout
func WithTimeout(d time.Duration) HarnessOption {
	return func(h *Harness) {
		h.Timeout = d
	}
}

// WithRate paces triggers to r per second with the given burst
func WithRate(r float64, burst int) HarnessOption {
	return func(h *Harness) {
		h.Limiter = rate.NewLimiter(rate.Limit(r), burst)
	}
}

// WithHTTPClient replaces the HTTP client
func WithHTTPClient(c *http.Client) HarnessOption {
	return func(h *Harness) {
		h.Client = c
	}
}

// NewHarness creates a Harness for the service at baseURL
func NewHarness(baseURL string, opts ...HarnessOption) (*Harness, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base url: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("base url %q: want http(s)://host:port", baseURL)
	}

	h := &Harness{
		BaseURL:     strings.TrimRight(baseURL, "/"),
		Concurrency: 4,
		Timeout:     30 * time.Second,
		Client:      &http.Client{},
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.Concurrency < 1 {
		h.Concurrency = 1
	}
	return h, nil
}

// TriggerResult describes the outcome of one trigger
type TriggerResult struct {
	Fault     Fault
	Status    int
	RequestID string
	// Dropped is set when the connection closed without a response, the
	// expected outcome of the terminate fault.
	Dropped bool
	// Raised is the decoded body of a 500 response
	Raised   *ErrorResponse
	Duration time.Duration
}

// Trigger requests the route of f once and checks the outcome matches the
// fault: 500 for raising faults, 200 otherwise, and for terminate either a
// dropped connection or 200.
func (h *Harness) Trigger(ctx context.Context, f Fault) (TriggerResult, error) {
	res := TriggerResult{Fault: f, RequestID: uuid.NewString()}
	path := f.Path()
	if path == "" {
		return res, &OpError{Fault: f, Path: path, Err: ErrUnknownFault}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.BaseURL+path, nil)
	if err != nil {
		return res, &OpError{Fault: f, Path: path, Err: err}
	}
	req.Header.Set(RequestIDHeader, res.RequestID)

	start := time.Now()
	resp, err := h.Client.Do(req)
	res.Duration = time.Since(start)
	if err != nil {
		if f == FaultTerminate && ctx.Err() == nil {
			res.Dropped = true
			return res, nil
		}
		return res, &OpError{Fault: f, Path: path, Err: err}
	}
	defer resp.Body.Close()

	res.Status = resp.StatusCode
	body, err := io.ReadAll(resp.Body)
	if err != nil && !(f == FaultTerminate && ctx.Err() == nil) {
		return res, &OpError{Fault: f, Path: path, Err: err}
	}
	if resp.StatusCode == http.StatusInternalServerError {
		var er ErrorResponse
		if json.Unmarshal(body, &er) == nil {
			res.Raised = &er
		}
	}

	want := http.StatusOK
	if f.Raises() {
		want = http.StatusInternalServerError
	}
	if res.Status != want {
		return res, &OpError{
			Fault: f,
			Path:  path,
			Err:   fmt.Errorf("%w: got %d, want %d", ErrUnexpectedStatus, res.Status, want),
		}
	}
	return res, nil
}

// TriggerAll triggers each fault with bounded concurrency, pacing and a
// per-trigger timeout. Results are returned in argument order; failures are
// aggregated in a MultiError.
func (h *Harness) TriggerAll(ctx context.Context, faults ...Fault) ([]TriggerResult, error) {
	results := make([]TriggerResult, len(faults))
	if len(faults) == 0 {
		return results, nil
	}

	var mu sync.Mutex
	merr := &MultiError{}

	g := new(errgroup.Group)
	g.SetLimit(h.Concurrency)
	for idx, f := range faults {
		g.Go(func() error {
			if h.Limiter != nil {
				if err := h.Limiter.Wait(ctx); err != nil {
					mu.Lock()
					merr.Add(&OpError{Fault: f, Path: f.Path(), Err: err})
					mu.Unlock()
					return nil
				}
			}

			opCtx := ctx
			if h.Timeout > 0 {
				var cancel context.CancelFunc
				opCtx, cancel = context.WithTimeout(ctx, h.Timeout)
				defer cancel()
			}

			res, err := h.Trigger(opCtx, f)
			mu.Lock()
			results[idx] = res
			merr.Add(err)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return results, merr.Err()
}

// Health queries the health route
func (h *Harness) Health(ctx context.Context) (HealthResponse, error) {
	var hr HealthResponse
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.BaseURL+HealthPath, nil)
	if err != nil {
		return hr, err
	}
	resp, err := h.Client.Do(req)
	if err != nil {
		return hr, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return hr, fmt.Errorf("%w: health returned %d", ErrUnexpectedStatus, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(&hr); err != nil {
		return hr, fmt.Errorf("decoding health: %w", err)
	}
	return hr, nil
}

// WaitHealthy polls the health route every interval until it answers or ctx is done
func (h *Harness) WaitHealthy(ctx context.Context, interval time.Duration) (HealthResponse, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		hr, err := h.Health(ctx)
		if err == nil {
			return hr, nil
		}
		select {
		case <-ctx.Done():
			return hr, fmt.Errorf("waiting for %s: %w (last error: %v)", h.BaseURL, ctx.Err(), err)
		case <-ticker.C:
		}
	}
}
