package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"sumo_tracker/ingestion/internal/cache"
	"sumo_tracker/ingestion/internal/metrics"

	"github.com/rs/zerolog/log"
)

// ErrCacheMiss is returned in cache-only mode when a request shape has no
// cached response. There is no network fallback in that mode.
var ErrCacheMiss = errors.New("response not in cache")

// Mode selects the caching behavior of the client at construction time.
type Mode int

const (
	// ModeDisabled bypasses the cache entirely.
	ModeDisabled Mode = iota
	// ModeReadWrite serves cached responses and caches successful fetches.
	ModeReadWrite
	// ModeOnly serves exclusively from the cache; a miss is a failure.
	// Used for fully offline reprocessing.
	ModeOnly
)

// ParseMode parses a cache mode config value.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "disabled":
		return ModeDisabled, nil
	case "readwrite":
		return ModeReadWrite, nil
	case "only":
		return ModeOnly, nil
	}
	return ModeDisabled, fmt.Errorf("unknown cache mode %q", s)
}

// Client issues rate-limited requests to the sumo association site,
// transparently serving and populating a response cache.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	store       cache.Store
	mode        Mode
	delay       time.Duration
	retryDelays []time.Duration

	mu          sync.Mutex
	lastRequest time.Time
}

// Options configures a Client. Zero values fall back to production defaults.
type Options struct {
	Timeout     time.Duration
	Delay       time.Duration // minimum spacing between network requests
	RetryDelays []time.Duration
	Store       cache.Store
	Mode        Mode
}

// New creates a client for the given base URL.
func New(baseURL string, opts Options) *Client {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Delay == 0 {
		opts.Delay = time.Second
	}
	if opts.RetryDelays == nil {
		opts.RetryDelays = []time.Duration{2 * time.Second, 5 * time.Second}
	}

	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		store:       opts.Store,
		mode:        opts.Mode,
		delay:       opts.Delay,
		retryDelays: opts.RetryDelays,
		httpClient: &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 2,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// Response is the outcome of one request, either fetched or synthesized from
// the cache.
type Response struct {
	Status int
	Body   []byte
}

// Text returns the response body as a string.
func (r *Response) Text() string {
	return string(r.Body)
}

// JSON decodes the response body into v.
func (r *Response) JSON(v interface{}) error {
	return json.Unmarshal(r.Body, v)
}

// do performs one request against the site, consulting the cache first.
// Only genuinely successful (2xx) responses are ever written to the cache.
func (c *Client) do(ctx context.Context, method, path string, params, form map[string]string) (*Response, error) {
	fullURL := c.baseURL + path

	var fingerprint string
	if c.mode != ModeDisabled {
		if c.store != nil {
			fingerprint = cache.Fingerprint(method, fullURL, params, form)

			if raw, ok := c.store.Get(fingerprint); ok {
				var entry cache.Entry
				err := json.Unmarshal(raw, &entry)
				if err == nil {
					metrics.RecordCacheHit()
					log.Debug().
						Str("url", fullURL).
						Str("fingerprint", fingerprint).
						Msg("Serving response from cache")
					return &Response{Status: entry.Status, Body: entry.Body}, nil
				}
				log.Warn().
					Err(err).
					Str("fingerprint", fingerprint).
					Msg("Corrupt cache entry, refetching")
			}

			metrics.RecordCacheMiss()
		}

		// A missing store counts as a miss; cache-only mode never falls
		// back to the network.
		if c.mode == ModeOnly {
			return nil, fmt.Errorf("%s %s: %w", method, fullURL, ErrCacheMiss)
		}
	}

	resp, err := c.fetch(ctx, method, path, params, form)
	if err != nil {
		return nil, err
	}

	if c.mode == ModeReadWrite && c.store != nil {
		entry := cache.Entry{
			Method:    method,
			URL:       fullURL,
			Status:    resp.Status,
			Body:      resp.Body,
			FetchedAt: time.Now().UTC(),
		}
		data, err := json.Marshal(&entry)
		if err == nil {
			err = c.store.Set(fingerprint, data)
		}
		if err != nil {
			log.Warn().Err(err).Str("url", fullURL).Msg("Failed to cache response")
		}
	}

	return resp, nil
}

// fetch performs the real network request with rate limiting and retries.
func (c *Client) fetch(ctx context.Context, method, path string, params, form map[string]string) (*Response, error) {
	fullURL := c.baseURL + path

	var lastErr error
	for attempt := 0; attempt <= len(c.retryDelays); attempt++ {
		if attempt > 0 {
			backoff := c.retryDelays[attempt-1]
			log.Info().
				Str("url", fullURL).
				Int("attempt", attempt).
				Dur("backoff", backoff).
				Msg("Retrying request after backoff")

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		if err := c.waitTurn(ctx); err != nil {
			return nil, err
		}

		req, err := c.newRequest(ctx, method, fullURL, params, form)
		if err != nil {
			return nil, err
		}

		log.Debug().
			Str("url", fullURL).
			Str("method", method).
			Int("attempt", attempt+1).
			Msg("Fetching from source site")

		start := time.Now()
		resp, err := c.httpClient.Do(req)
		if err != nil {
			metrics.RecordRequest(path, "error", time.Since(start).Seconds())
			lastErr = fmt.Errorf("request failed: %w", err)
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			metrics.RecordRequest(path, "error", time.Since(start).Seconds())
			lastErr = fmt.Errorf("failed to read response body: %w", err)
			continue
		}

		metrics.RecordRequest(path, strconv.Itoa(resp.StatusCode), time.Since(start).Seconds())

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			lastErr = fmt.Errorf("source returned status %d for %s", resp.StatusCode, fullURL)
			log.Warn().
				Str("url", fullURL).
				Int("status", resp.StatusCode).
				Int("attempt", attempt+1).
				Msg("Request failed, will retry")
			continue
		}

		return &Response{Status: resp.StatusCode, Body: body}, nil
	}

	return nil, lastErr
}

// waitTurn blocks until the minimum inter-request spacing has elapsed.
// The mutex serializes concurrent callers so the per-host limit holds even
// if the crawler is ever parallelized.
func (c *Client) waitTurn(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if wait := c.delay - time.Since(c.lastRequest); wait > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	c.lastRequest = time.Now()
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, fullURL string, params, form map[string]string) (*http.Request, error) {
	var body io.Reader
	if len(form) > 0 {
		values := url.Values{}
		for k, v := range form {
			values.Set(k, v)
		}
		body = strings.NewReader(values.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", "sumo-tracker/1.0")
	req.Header.Set("Accept", "application/json")
	if len(form) > 0 {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("X-Requested-With", "XMLHttpRequest")
	}

	if len(params) > 0 {
		q := req.URL.Query()
		for k, v := range params {
			q.Add(k, v)
		}
		req.URL.RawQuery = q.Encode()
	}

	return req, nil
}

// jsonObjectPattern extracts a JSON object embedded in a non-JSON response,
// which the site occasionally returns around the AJAX payload.
var jsonObjectPattern = regexp.MustCompile(`(?s)\{.*\}`)

// ExtractJSON decodes v from the response body, falling back to the first
// embedded JSON object if the body as a whole is not valid JSON.
func (r *Response) ExtractJSON(v interface{}) error {
	if err := json.Unmarshal(r.Body, v); err == nil {
		return nil
	}

	embedded := jsonObjectPattern.Find(r.Body)
	if embedded == nil {
		return fmt.Errorf("no JSON object found in response")
	}
	if err := json.Unmarshal(embedded, v); err != nil {
		return fmt.Errorf("failed to decode embedded JSON: %w", err)
	}
	return nil
}
