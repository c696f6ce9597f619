package feed

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"review_feed/internal/adapters/observability"
	"review_feed/internal/domain"
)

const maxAttempts = 4

// HTTPProvider fetches the whole feed document from a URL with client-side
// rate limiting. 429 and transient 5xx are retried, honouring Retry-After.
type HTTPProvider struct {
	url  string
	host string
	key  string
	hc   *http.Client
	rl   *rate.Limiter

	// base backoff delay; doubled per retry
	backoff time.Duration
}

type HTTPOption func(*HTTPProvider)

func WithAPIKey(key string) HTTPOption { return func(p *HTTPProvider) { p.key = key } }

func WithHTTPClient(hc *http.Client) HTTPOption { return func(p *HTTPProvider) { p.hc = hc } }

func WithBackoff(d time.Duration) HTTPOption { return func(p *HTTPProvider) { p.backoff = d } }

func NewHTTPProvider(rawURL string, rps int, opts ...HTTPOption) (*HTTPProvider, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("feed url %q is not an absolute http(s) url", rawURL)
	}
	if rps <= 0 {
		rps = 5
	}
	p := &HTTPProvider{
		url:     rawURL,
		host:    u.Host,
		hc:      &http.Client{Timeout: 20 * time.Second},
		rl:      rate.NewLimiter(rate.Limit(rps), rps),
		backoff: 200 * time.Millisecond,
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

func (p *HTTPProvider) GetFeed(ctx context.Context) (domain.Feed, error) {
	body, err := p.get(ctx)
	if err != nil {
		observability.ObserveFeedLoad("unavailable")
		return domain.Feed{}, domain.SourceUnavailable(err)
	}
	f, err := Decode(body)
	if err != nil {
		observability.ObserveFeedLoad("decode_failure")
		return domain.Feed{}, err
	}
	observability.ObserveFeedLoad("ok")
	return f, nil
}

func (p *HTTPProvider) get(ctx context.Context) ([]byte, error) {
	if err := p.rl.Wait(ctx); err != nil {
		return nil, err
	}

	var lastErr error
	for i := 0; i < maxAttempts; i++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
		if err != nil {
			return nil, err
		}
		if p.key != "" {
			req.Header.Set("X-API-Key", p.key)
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", "review-feed/1.0")

		start := time.Now()
		resp, err := p.hc.Do(req)
		if err != nil {
			observability.ObserveExternal("feed", p.host, 0, time.Since(start))
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			if i < maxAttempts-1 && sleepCtx(ctx, backoff(p.backoff, i)) {
				continue
			}
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, lastErr
		}
		observability.ObserveExternal("feed", p.host, resp.StatusCode, time.Since(start))

		switch resp.StatusCode {
		case http.StatusOK:
			b, err := io.ReadAll(resp.Body)
			resp.Body.Close()
			return b, err

		case http.StatusTooManyRequests, http.StatusInternalServerError,
			http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			wait := retryAfter(resp)
			resp.Body.Close()
			if wait == 0 {
				wait = backoff(p.backoff, i)
			}
			lastErr = fmt.Errorf("remote %d", resp.StatusCode)
			if i < maxAttempts-1 && sleepCtx(ctx, wait) {
				continue
			}
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, lastErr

		default:
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			return nil, fmt.Errorf("bad status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
		}
	}
	return nil, lastErr
}

var _ domain.FeedProvider = (*HTTPProvider)(nil)
