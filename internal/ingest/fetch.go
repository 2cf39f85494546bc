package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/temoto/robotstxt"

	"github.com/ppiankov/forensia/internal/model"
)

var (
	// ErrDisallowed is returned when robots.txt forbids fetching a document
	ErrDisallowed = errors.New("disallowed by robots.txt")
)

// StatusError is a non-2xx response
type StatusError struct {
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status: %d %s", e.Code, e.Status)
}

// Retryable reports whether the status is worth another attempt
func (e *StatusError) Retryable() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= 500
}

// fetchSleep is swapped out in tests
var fetchSleep = func(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Fetcher retrieves fixture documents published by remote collectors
type Fetcher struct {
	client    *http.Client
	userAgent string
	maxBytes  int64
	retries   int
	robots    *robotsChecker
	logger    *slog.Logger
}

// NewFetcher creates a fetcher from the ingest configuration
func NewFetcher(cfg model.IngestConfig, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Retries < 1 {
		cfg.Retries = 1
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = model.DefaultConfig().Ingest.MaxBytes
	}
	client := &http.Client{
		Timeout:   cfg.Timeout,
		Transport: &http.Transport{Proxy: proxyFunc(cfg.HTTPProxy, cfg.HTTPSProxy)},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 3 {
				return fmt.Errorf("stopped after 3 redirects")
			}
			return nil
		},
	}
	f := &Fetcher{
		client:    client,
		userAgent: cfg.UserAgent,
		maxBytes:  cfg.MaxBytes,
		retries:   cfg.Retries,
		logger:    logger,
	}
	if cfg.RespectRobots {
		f.robots = newRobotsChecker(client, cfg.UserAgent)
	}
	return f
}

// proxyFunc uses explicit proxies when configured, else the environment
func proxyFunc(httpProxy, httpsProxy string) func(*http.Request) (*url.URL, error) {
	if httpProxy == "" && httpsProxy == "" {
		return http.ProxyFromEnvironment
	}
	return func(req *http.Request) (*url.URL, error) {
		if req.URL.Scheme == "https" && httpsProxy != "" {
			return url.Parse(httpsProxy)
		}
		if httpProxy != "" {
			return url.Parse(httpProxy)
		}
		return http.ProxyFromEnvironment(req)
	}
}

// Fetch downloads rawURL, retrying transient failures with backoff, and
// decodes it as a Document
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Document, error) {
	if f.robots != nil {
		allowed, err := f.robots.allowed(ctx, rawURL)
		if err != nil {
			return nil, err
		}
		if !allowed {
			return nil, fmt.Errorf("%s: %w", rawURL, ErrDisallowed)
		}
	}

	var (
		body   []byte
		format string
		err    error
	)
	backoff := time.Second
	for attempt := 1; attempt <= f.retries; attempt++ {
		body, format, err = f.get(ctx, rawURL)
		if err == nil || !retryable(err) || attempt == f.retries {
			break
		}
		f.logger.Debug("fetch failed, retrying",
			slog.String("url", rawURL), slog.Int("attempt", attempt), slog.Any("error", err))
		if serr := fetchSleep(ctx, backoff); serr != nil {
			return nil, serr
		}
		backoff *= 2
	}
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", rawURL, err)
	}

	doc, err := Decode(bytes.NewReader(body), format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", rawURL, err)
	}
	return doc, nil
}

func (f *Fetcher) get(ctx context.Context, rawURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "application/json, application/yaml;q=0.9, text/yaml;q=0.9, */*;q=0.5")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, "", &StatusError{Code: resp.StatusCode, Status: http.StatusText(resp.StatusCode)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("read body: %w", err)
	}
	if int64(len(body)) > f.maxBytes {
		return nil, "", fmt.Errorf("document exceeds %d bytes", f.maxBytes)
	}
	return body, formatOf(resp.Header.Get("Content-Type"), resp.Request.URL.Path), nil
}

// retryable treats transport errors and 429/5xx as transient
func retryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Retryable()
	}
	var ue *url.Error
	return errors.As(err, &ue)
}

// formatOf picks the decoder from the content type, then the path extension
func formatOf(contentType, urlPath string) string {
	ct := strings.ToLower(contentType)
	switch {
	case strings.Contains(ct, "json"):
		return "json"
	case strings.Contains(ct, "yaml"):
		return "yaml"
	}
	if ext := strings.TrimPrefix(path.Ext(urlPath), "."); ext == "json" {
		return "json"
	}
	return "yaml"
}

// robotsChecker caches parsed robots.txt per host
type robotsChecker struct {
	client    *http.Client
	userAgent string

	mu    sync.RWMutex
	hosts map[string]*robotstxt.RobotsData
}

func newRobotsChecker(client *http.Client, userAgent string) *robotsChecker {
	return &robotsChecker{client: client, userAgent: userAgent, hosts: make(map[string]*robotstxt.RobotsData)}
}

// allowed reports whether the agent may fetch rawURL. An unreachable
// robots.txt allows everything.
func (r *robotsChecker) allowed(ctx context.Context, rawURL string) (bool, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false, fmt.Errorf("parse URL: %w", err)
	}

	r.mu.RLock()
	data, ok := r.hosts[u.Host]
	r.mu.RUnlock()
	if !ok {
		data, err = r.load(ctx, u)
		if err != nil {
			return true, nil
		}
		r.mu.Lock()
		r.hosts[u.Host] = data
		r.mu.Unlock()
	}
	return data.TestAgent(u.EscapedPath(), productToken(r.userAgent)), nil
}

func (r *robotsChecker) load(ctx context.Context, u *url.URL) (*robotstxt.RobotsData, error) {
	robotsURL := fmt.Sprintf("%s://%s/robots.txt", u.Scheme, u.Host)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", r.userAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	return robotstxt.FromResponse(resp)
}

// productToken reduces "Forensia/0.1 (+url)" to "Forensia"
func productToken(ua string) string {
	parts := strings.Fields(ua)
	if len(parts) == 0 {
		return ua
	}
	return strings.Split(parts[0], "/")[0]
}
