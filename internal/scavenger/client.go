// Package scavenger is the HTTP client for the remote rewards service.
package scavenger

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/scavmine/scavctl/internal/log"
)

// maxErrorBody caps how much of an error response body is kept in results.
const maxErrorBody = 200

// Breaker trip thresholds. An open breaker fails submissions fast (as
// per-address network errors) instead of hammering a service that is down.
var (
	breakerMinRequests  uint32 = 10
	breakerFailingRatio        = 0.6
)

// Client calls the rewards service. All submissions share one circuit
// breaker; only transport-level failures count against it.
type Client struct {
	base    string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
}

// New creates a client for the given base URL with the default 10s timeout.
func New(baseURL string) *Client {
	return NewWithTimeout(baseURL, 10*time.Second)
}

// NewWithTimeout creates a client with a custom HTTP timeout.
func NewWithTimeout(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		base: strings.TrimRight(baseURL, "/"),
		http: &http.Client{Timeout: timeout},
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name: "scavenger",
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				ratio := float64(counts.TotalFailures) / float64(counts.Requests)
				return counts.Requests > breakerMinRequests && ratio >= breakerFailingRatio
			},
		}),
	}
}

// termsResponse is the body of the registration message endpoint.
type termsResponse struct {
	Message string `json:"message"`
}

// Terms fetches the exact text every registering address must sign.
// Fetched once per batch and reused verbatim for every signature.
func (c *Client) Terms(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/TandC", nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch registration message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("fetch registration message: HTTP %d", resp.StatusCode)
	}

	var terms termsResponse
	if err := json.NewDecoder(resp.Body).Decode(&terms); err != nil {
		return "", fmt.Errorf("decode registration message: %w", err)
	}
	if terms.Message == "" {
		return "", fmt.Errorf("registration message is empty")
	}
	return terms.Message, nil
}

// Register submits a registration for one address.
// POST /register/{address}/{signatureHex}/{pubkeyHex} with an empty JSON body.
func (c *Client) Register(ctx context.Context, address, signatureHex, pubkeyHex string) Result {
	url := fmt.Sprintf("%s/register/%s/%s/%s", c.base, address, signatureHex, pubkeyHex)
	return c.post(ctx, url, strings.NewReader("{}"), "application/json")
}

// DonateTo submits a consolidation for one original address.
// POST /donate_to/{destination}/{original}/{signatureHex} with no body.
func (c *Client) DonateTo(ctx context.Context, destination, original, signatureHex string) Result {
	url := fmt.Sprintf("%s/donate_to/%s/%s/%s", c.base, destination, original, signatureHex)
	return c.post(ctx, url, nil, "")
}

// post performs a POST and classifies the response. The HTTP round trip
// runs inside the circuit breaker; status classification happens outside
// so 4xx responses never trip it.
func (c *Client) post(ctx context.Context, url string, body io.Reader, contentType string) Result {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return Result{Outcome: OutcomeNetworkError, Err: err}
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	out, err := c.breaker.Execute(func() (interface{}, error) {
		return c.http.Do(req)
	})
	if err != nil {
		log.API.Debug().Err(err).Str("url", url).Msg("request failed")
		return Result{Outcome: OutcomeNetworkError, Err: err}
	}
	resp := out.(*http.Response)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{Outcome: OutcomeNetworkError, Err: fmt.Errorf("read response: %w", err)}
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return Result{
			Outcome:    OutcomeRateLimited,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
		}
	case resp.StatusCode >= 200 && resp.StatusCode <= 299:
		return Result{Outcome: OutcomeSuccess, Payload: data}
	default:
		return Result{
			Outcome: OutcomeHTTPError,
			Status:  resp.StatusCode,
			Body:    truncate(string(data), maxErrorBody),
		}
	}
}

// parseRetryAfter parses a Retry-After header given in seconds.
// Returns 0 if the header is absent or not a number.
func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}
	secs, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
