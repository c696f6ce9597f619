package imagecache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang/groupcache/lru"
	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"review_feed/internal/adapters/observability"
	"review_feed/internal/domain"
)

const (
	DefaultCapacity = 256
	DefaultWorkers  = 8

	maxBodyBytes = 16 << 20
)

// Doer is the subset of *http.Client the cache needs.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

type Options struct {
	// Capacity bounds the in-memory tier; older entries are evicted first.
	Capacity int
	// Workers bounds concurrent network fetches.
	Workers int

	// Store is the durable tier. Nil disables it.
	Store     domain.ResponseStore
	StoreName string // metrics label, e.g. "redis"

	Client   Doer
	Executor domain.Executor
	Logger   zerolog.Logger
}

// Cache resolves images through a memory tier, an optional durable tier and
// finally the network. One instance is created per session and injected
// into whatever needs it.
type Cache struct {
	store     domain.ResponseStore
	storeName string
	client    Doer
	exec      domain.Executor
	log       zerolog.Logger
	sem       *semaphore.Weighted

	mu  sync.Mutex
	mem *lru.Cache
}

func New(opts Options) *Cache {
	if opts.Capacity <= 0 {
		opts.Capacity = DefaultCapacity
	}
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.Client == nil {
		opts.Client = &http.Client{Timeout: 20 * time.Second}
	}
	if opts.StoreName == "" {
		opts.StoreName = "durable"
	}
	mem := lru.New(opts.Capacity)
	mem.OnEvicted = func(lru.Key, interface{}) { observability.ObserveCache("memory", "evict") }

	return &Cache{
		store:     opts.Store,
		storeName: opts.StoreName,
		client:    opts.Client,
		exec:      opts.Executor,
		log:       opts.Logger,
		sem:       semaphore.NewWeighted(int64(opts.Workers)),
		mem:       mem,
	}
}

// Fetch resolves url in the background and delivers the result on the
// Executor. A cancelled task never delivers.
func (c *Cache) Fetch(ctx context.Context, url string, done func(domain.Image, error)) domain.Task {
	t := newTask(ctx)
	go func() {
		img, err := c.Get(t.ctx, url)
		t.finish(img, err)
		if t.Cancelled() || done == nil {
			return
		}
		c.exec.Post(func() {
			if t.Cancelled() {
				return
			}
			done(img, err)
		})
	}()
	return t
}

// Get resolves url synchronously. It blocks; never call it on the loop.
func (c *Cache) Get(ctx context.Context, rawURL string) (img domain.Image, err error) {
	defer func() {
		outcome := "ok"
		switch {
		case err != nil && ctx.Err() != nil:
			outcome = "cancelled"
		case err != nil:
			outcome = domain.ImageErrorKindOf(err).String()
		}
		observability.ObserveImageFetch(outcome)
	}()

	u, err := parseImageURL(rawURL)
	if err != nil {
		return domain.Image{}, &domain.ImageFetchError{Kind: domain.ImageInvalidURL, URL: rawURL, Err: err}
	}

	if img, ok := c.cached(rawURL); ok {
		return img, nil
	}

	if img, ok := c.fromStore(ctx, rawURL); ok {
		return c.remember(rawURL, img), nil
	}

	body, err := c.download(ctx, u)
	if err != nil {
		return domain.Image{}, err
	}
	img, err = decode(rawURL, body)
	if err != nil {
		return domain.Image{}, &domain.ImageFetchError{Kind: domain.ImageMissingData, URL: rawURL, Err: err}
	}

	img = c.remember(rawURL, img)
	c.persist(ctx, rawURL, body)
	return img, nil
}

// Len is the number of images held in memory.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mem.Len()
}

func parseImageURL(raw string) (*url.URL, error) {
	u, err := url.ParseRequestURI(strings.TrimSpace(raw))
	if err != nil {
		return nil, err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return nil, errors.New("missing host")
	}
	return u, nil
}

func (c *Cache) cached(url string) (domain.Image, bool) {
	c.mu.Lock()
	v, ok := c.mem.Get(url)
	c.mu.Unlock()
	if !ok {
		observability.ObserveCache("memory", "miss")
		return domain.Image{}, false
	}
	observability.ObserveCache("memory", "hit")
	return v.(domain.Image), true
}

// remember stores img unless another fetch got there first, and returns the
// entry that ends up cached.
func (c *Cache) remember(url string, img domain.Image) domain.Image {
	c.mu.Lock()
	defer c.mu.Unlock()
	if v, ok := c.mem.Get(url); ok {
		return v.(domain.Image)
	}
	c.mem.Add(url, img)
	observability.ObserveCache("memory", "set")
	observability.SetImageMemoryEntries(c.mem.Len())
	return img
}

func (c *Cache) fromStore(ctx context.Context, url string) (domain.Image, bool) {
	if c.store == nil {
		return domain.Image{}, false
	}
	body, ok, err := c.store.Get(ctx, url)
	if err != nil {
		observability.ObserveCache(c.storeName, "error")
		c.log.Warn().Err(err).Str("url", url).Msg("response store read failed")
		return domain.Image{}, false
	}
	if !ok {
		return domain.Image{}, false
	}
	img, err := decode(url, body)
	if err != nil {
		c.log.Warn().Err(err).Str("url", url).Msg("stored response is not decodable; refetching")
		return domain.Image{}, false
	}
	return img, true
}

func (c *Cache) persist(ctx context.Context, url string, body []byte) {
	if c.store == nil {
		return
	}
	if err := c.store.Put(ctx, url, body); err != nil {
		observability.ObserveCache(c.storeName, "error")
		c.log.Warn().Err(err).Str("url", url).Msg("response store write failed")
	}
}

func (c *Cache) download(ctx context.Context, u *url.URL) ([]byte, error) {
	raw := u.String()
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return nil, &domain.ImageFetchError{Kind: domain.ImageTransport, URL: raw, Err: err}
	}
	defer c.sem.Release(1)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, raw, nil)
	if err != nil {
		return nil, &domain.ImageFetchError{Kind: domain.ImageInvalidURL, URL: raw, Err: err}
	}
	req.Header.Set("Accept", "image/*")
	req.Header.Set("User-Agent", "review-feed/1.0")

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		observability.ObserveExternal("images", u.Host, 0, time.Since(start))
		return nil, &domain.ImageFetchError{Kind: domain.ImageTransport, URL: raw, Err: err}
	}
	if resp == nil {
		return nil, &domain.ImageFetchError{Kind: domain.ImageUnknown, URL: raw}
	}
	defer resp.Body.Close()
	observability.ObserveExternal("images", u.Host, resp.StatusCode, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &domain.ImageFetchError{Kind: domain.ImageHTTPStatus, URL: raw, Status: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &domain.ImageFetchError{Kind: domain.ImageTransport, URL: raw, Err: err}
	}
	return body, nil
}

var _ domain.ImageFetcher = (*Cache)(nil)
