package ics

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	appLog "medula/internal/log"
)

const (
	defaultFetchTimeout = 15 * time.Second
	// maxBodyBytes caps a downloaded calendar.
	maxBodyBytes = 10 << 20
)

// ErrHostNotAllowed is returned when a URL, or a redirect it leads to, names
// a host outside the fetcher's allowlist.
var ErrHostNotAllowed = errors.New("ics: host not allowed")

// Fetcher downloads ICS documents for import. Network errors and 5xx
// responses are retried with exponential backoff; 4xx responses are not.
type Fetcher struct {
	client     *http.Client
	newBackOff func() backoff.BackOff

	// allowed is nil for an unrestricted fetcher.
	allowed map[string]bool
}

type FetcherOption func(*Fetcher)

// WithBackOff replaces the retry policy.
func WithBackOff(f func() backoff.BackOff) FetcherOption {
	return func(fe *Fetcher) { fe.newBackOff = f }
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) FetcherOption {
	return func(fe *Fetcher) { fe.client = c }
}

// WithAllowedHosts restricts fetches to the given host names (ports are
// ignored, case is not significant). Redirects are held to the same list.
// An empty list allows nothing.
func WithAllowedHosts(hosts []string) FetcherOption {
	return func(fe *Fetcher) {
		fe.allowed = make(map[string]bool, len(hosts))
		for _, h := range hosts {
			if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
				fe.allowed[h] = true
			}
		}
	}
}

// NewFetcher builds a Fetcher whose requests time out after timeout
// (15s when zero).
func NewFetcher(timeout time.Duration, opts ...FetcherOption) *Fetcher {
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	f := &Fetcher{
		client: &http.Client{Timeout: timeout},
		newBackOff: func() backoff.BackOff {
			exp := backoff.NewExponentialBackOff()
			exp.InitialInterval = 500 * time.Millisecond
			exp.MaxElapsedTime = time.Minute
			return backoff.WithMaxRetries(exp, 4)
		},
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.allowed != nil {
		c := *f.client
		c.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return errors.New("stopped after 10 redirects")
			}
			return f.checkHost(req.URL)
		}
		f.client = &c
	}
	return f
}

func (f *Fetcher) checkHost(u *url.URL) error {
	if f.allowed == nil || f.allowed[strings.ToLower(u.Hostname())] {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrHostNotAllowed, u.Hostname())
}

// Fetch downloads the document at rawURL.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	if rawURL == "" {
		return nil, errors.New("source URL is empty")
	}
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, fmt.Errorf("unsupported ICS URL %q", redactURL(rawURL))
	}
	if err := f.checkHost(u); err != nil {
		appLog.Info("ics fetch refused", "url", redactURL(rawURL))
		return nil, err
	}

	var body []byte
	attempt := 0
	op := func() error {
		attempt++
		b, err := f.fetchOnce(ctx, rawURL)
		if err != nil {
			appLog.Error("ics fetch attempt failed", err, "url", redactURL(rawURL), "attempt", attempt)
			return err
		}
		body = b
		return nil
	}

	if err := backoff.Retry(op, backoff.WithContext(f.newBackOff(), ctx)); err != nil {
		return nil, err
	}
	appLog.Info("ics fetch success", "url", redactURL(rawURL), "bytes", len(body), "attempts", attempt)
	return body, nil
}

func (f *Fetcher) fetchOnce(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	req.Header.Set("Accept", "text/calendar")

	resp, err := f.client.Do(req)
	if err != nil {
		if errors.Is(err, ErrHostNotAllowed) {
			return nil, backoff.Permanent(err)
		}
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		return io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	case resp.StatusCode >= 500:
		return nil, errors.New(resp.Status)
	default:
		return nil, backoff.Permanent(errors.New(resp.Status))
	}
}

// redactURL keeps only scheme and host so tokens in paths or queries are
// never logged.
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "ics://...(redacted)"
	}
	return u.Scheme + "://" + u.Host + "/...(redacted)"
}
