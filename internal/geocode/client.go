package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Options configure a Client. Zero values fall back to defaults.
type Options struct {
	BaseURL          string
	APIKey           string
	Country          string
	Regions          RegionSet
	MinDelay         time.Duration
	Timeout          time.Duration
	RetryMaxAttempts int
	RetryBaseDelay   time.Duration
	RetryMaxDelay    time.Duration
	Logger           *zap.Logger
}

// DefaultBaseURL is the public search endpoint queried when none is configured.
const DefaultBaseURL = "https://geocode.maps.co/search"

// Client queries a forward-geocoding search endpoint and returns the
// administrative region of the first hit.
type Client struct {
	httpClient       *http.Client
	limiter          *rate.Limiter
	baseURL          string
	apiKey           string
	country          string
	regions          RegionSet
	retryMaxAttempts int
	retryBaseDelay   time.Duration
	retryMaxDelay    time.Duration
	logger           *zap.Logger
}

type searchResult struct {
	DisplayName string `json:"display_name"`
	Address     struct {
		State string `json:"state"`
	} `json:"address"`
}

// NewClient builds a client. Calls are spaced at least MinDelay apart.
func NewClient(opt Options) *Client {
	if opt.BaseURL == "" {
		opt.BaseURL = DefaultBaseURL
	}
	if opt.Country == "" {
		opt.Country = "Malaysia"
	}
	if opt.Regions.Len() == 0 {
		opt.Regions = MalaysiaRegions()
	}
	if opt.Timeout <= 0 {
		opt.Timeout = 10 * time.Second
	}
	if opt.RetryMaxAttempts <= 0 {
		opt.RetryMaxAttempts = 1
	}
	if opt.RetryBaseDelay <= 0 {
		opt.RetryBaseDelay = 500 * time.Millisecond
	}
	if opt.RetryMaxDelay <= 0 {
		opt.RetryMaxDelay = 4 * time.Second
	}
	if opt.Logger == nil {
		opt.Logger = zap.NewNop()
	}
	limit := rate.Inf
	if opt.MinDelay > 0 {
		limit = rate.Every(opt.MinDelay)
	}
	return &Client{
		httpClient:       &http.Client{Timeout: opt.Timeout},
		limiter:          rate.NewLimiter(limit, 1),
		baseURL:          opt.BaseURL,
		apiKey:           opt.APIKey,
		country:          opt.Country,
		regions:          opt.Regions,
		retryMaxAttempts: opt.RetryMaxAttempts,
		retryBaseDelay:   opt.RetryBaseDelay,
		retryMaxDelay:    opt.RetryMaxDelay,
		logger:           opt.Logger,
	}
}

// Resolve looks name up within the configured country. A hit whose region
// is not in the region set yields ErrRegionNotAllowed.
func (c *Client) Resolve(ctx context.Context, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrNotFound
	}
	q := url.Values{}
	q.Set("q", name+", "+c.country)
	if c.apiKey != "" {
		q.Set("api_key", c.apiKey)
	}
	endpoint := c.baseURL + "?" + q.Encode()

	backoff := c.retryBaseDelay
	var lastErr error
	for attempt := 1; attempt <= c.retryMaxAttempts; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", err
		}
		results, err := c.search(ctx, endpoint)
		if err == nil {
			return c.pickRegion(name, results)
		}
		lastErr = err
		if !retryable(err) || attempt == c.retryMaxAttempts {
			break
		}
		wait := withJitter(backoff)
		var rl *RateLimitError
		if errors.As(err, &rl) && rl.RetryAfter > 0 {
			wait = rl.RetryAfter
		}
		if wait > c.retryMaxDelay {
			wait = c.retryMaxDelay
		}
		c.logger.Debug("geocode retry",
			zap.String("name", name),
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err))
		if err := sleepCtx(ctx, wait); err != nil {
			return "", err
		}
		backoff *= 2
	}
	return "", lastErr
}

func (c *Client) search(ctx context.Context, endpoint string) ([]searchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &UnreachableError{Host: req.URL.Host, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return nil, classifyStatus(resp, strings.TrimSpace(string(body)))
	}
	var out []searchResult
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return out, nil
}

func (c *Client) pickRegion(name string, results []searchResult) (string, error) {
	if len(results) == 0 {
		return "", fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	state := strings.TrimSpace(results[0].Address.State)
	if state == "" {
		return "", fmt.Errorf("%w: %s has no state", ErrNotFound, name)
	}
	canon, ok := c.regions.Canonical(state)
	if !ok {
		return "", fmt.Errorf("%w: %s -> %s", ErrRegionNotAllowed, name, state)
	}
	return canon, nil
}

func classifyStatus(resp *http.Response, msg string) error {
	apiErr := &APIError{StatusCode: resp.StatusCode, Message: msg}
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		var ra time.Duration
		if v := resp.Header.Get("Retry-After"); v != "" {
			if secs, err := parseRetryAfterSeconds(v); err == nil && secs > 0 {
				ra = time.Duration(secs) * time.Second
			}
		}
		return &RateLimitError{APIError: apiErr, RetryAfter: ra}
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, apiErr.Error())
	case resp.StatusCode >= 500 && resp.StatusCode <= 599:
		return &ServerError{APIError: apiErr}
	}
	return apiErr
}

func retryable(err error) bool {
	var rl *RateLimitError
	var se *ServerError
	var ue *UnreachableError
	switch {
	case errors.As(err, &rl), errors.As(err, &se):
		return true
	case errors.As(err, &ue):
		return isRetryableNetErr(ue.Err)
	}
	return false
}

func isRetryableNetErr(err error) bool {
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return true
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}

// parseRetryAfterSeconds interprets a Retry-After header as seconds or HTTP date.
func parseRetryAfterSeconds(v string) (int, error) {
	if s, err := strconv.Atoi(v); err == nil {
		return s, nil
	}
	if t, err := http.ParseTime(v); err == nil {
		d := time.Until(t)
		if d < 0 {
			d = 0
		}
		return int(d.Seconds()), nil
	}
	return 0, fmt.Errorf("invalid Retry-After: %q", v)
}

// withJitter returns d with +/- 20% jitter applied.
func withJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 500 * time.Millisecond
	}
	f := 0.8 + rand.Float64()*0.4
	out := time.Duration(float64(d) * f)
	if out <= 0 {
		return d
	}
	return out
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
