package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog"

	"review_feed/internal/adapters/feed"
	"review_feed/internal/adapters/rating"
	redisad "review_feed/internal/adapters/redis"
	"review_feed/internal/adapters/textmeasure"
	"review_feed/internal/app"
	"review_feed/internal/domain"
	"review_feed/internal/imagecache"
	"review_feed/internal/layout"
	"review_feed/internal/shared"
	mysqlstore "review_feed/internal/storage/mysql"
)

// Stack is one session's worth of wired components.
type Stack struct {
	Loop   *app.Loop
	Images *imagecache.Cache
	Feed   domain.FeedProvider
	List   *app.FeedList
	Layout *layout.Engine
	Text   *textmeasure.Monospace
	Rating rating.Stars

	store   domain.ResponseStore
	ping    func(context.Context) error
	closers []func() error
}

// Build wires the stack described by cfg. The loop is not started; call Run.
func Build(ctx context.Context, cfg shared.Config, log zerolog.Logger) (*Stack, error) {
	layoutCfg, err := shared.LoadLayout(cfg.LayoutConfig)
	if err != nil {
		return nil, err
	}

	s := &Stack{Text: textmeasure.New(), Rating: rating.New()}

	if err := s.openStore(ctx, cfg, log); err != nil {
		s.Close()
		return nil, err
	}

	provider, err := feed.Open(cfg.FeedSource, cfg.FeedAPIKey, cfg.FeedRPS, cfg.FeedLatencyMin, cfg.FeedLatencyMax)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.Feed = provider

	s.Loop = app.NewLoop(log.With().Str("component", "loop").Logger())
	s.Images = imagecache.New(imagecache.Options{
		Capacity:  cfg.ImageCacheEntries,
		Workers:   cfg.ImageFetchWorkers,
		Store:     s.store,
		StoreName: cfg.ResponseCache,
		Executor:  s.Loop,
		Logger:    log.With().Str("component", "images").Logger(),
	})
	s.List = app.NewFeedList(s.Loop, provider, s.Images, s.Rating, app.Options{
		Limit:    cfg.PageLimit,
		MaxLines: cfg.TruncationLines,
		Logger:   log.With().Str("component", "feed").Logger(),
	})
	s.Layout = layout.NewEngine(layoutCfg, s.Text)

	log.Info().
		Str("feed", sourceName(cfg.FeedSource)).
		Str("response_cache", cfg.ResponseCache).
		Int("page_limit", cfg.PageLimit).
		Msg("stack ready")
	return s, nil
}

func (s *Stack) openStore(ctx context.Context, cfg shared.Config, log zerolog.Logger) error {
	switch cfg.ResponseCache {
	case "redis":
		st := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB, cfg.CacheTTL)
		s.closers = append(s.closers, st.Close)
		if err := st.Ping(ctx); err != nil {
			return fmt.Errorf("redis ping: %w", err)
		}
		s.store, s.ping = st, st.Ping
		log.Info().Str("addr", cfg.RedisAddr).Msg("redis response cache ok")

	case "mysql":
		db, err := sql.Open("mysql", cfg.MySQLDSN)
		if err != nil {
			return fmt.Errorf("sql.Open: %w", err)
		}
		s.closers = append(s.closers, db.Close)
		if err := db.PingContext(ctx); err != nil {
			return fmt.Errorf("mysql ping: %w", err)
		}
		st := mysqlstore.New(db, cfg.CacheTTL)
		if err := st.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("mysql schema: %w", err)
		}
		s.store, s.ping = st, st.Ping
		log.Info().Msg("mysql response cache ok")
	}
	return nil
}

// Run drives the single-writer loop until ctx is cancelled.
func (s *Stack) Run(ctx context.Context) error {
	if err := s.Loop.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// Ready checks the durable tier, if any.
func (s *Stack) Ready(r *http.Request) error {
	if s.ping == nil {
		return nil
	}
	return s.ping(r.Context())
}

func (s *Stack) Close() error {
	if s.List != nil {
		s.List.Close()
	}
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i]())
	}
	s.closers = nil
	return errors.Join(errs...)
}

func sourceName(src string) string {
	if src == "" {
		return "fixture"
	}
	return src
}
