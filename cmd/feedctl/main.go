package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/semaphore"

	"review_feed/internal/adapters/observability"
	"review_feed/internal/app"
	"review_feed/internal/bootstrap"
	"review_feed/internal/domain"
	"review_feed/internal/layout"
	"review_feed/internal/shared"
)

type flags struct {
	width    float64
	limit    int
	source   string
	maxPages int
	asJSON   bool
	workers  int
}

func main() {
	cfg := shared.Load()
	log.Logger = observability.NewLogger(cfg.AppEnv)

	f := &flags{}
	cmd := &cli.Command{
		Name:  "feedctl",
		Usage: "Page through the review feed and warm the image cache",
		Description: `feedctl drives the same list state machine and layout engine as the API.

Examples:
  feedctl pages --width 320
  feedctl pages --json --max-pages 2
  feedctl warm --workers 16`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "feed",
				Usage:       "feed source: file path, http(s) URL, or empty for the built-in fixture",
				Sources:     cli.EnvVars("FEED_SOURCE"),
				Value:       cfg.FeedSource,
				Destination: &f.source,
			},
			&cli.IntFlag{
				Name:        "limit",
				Usage:       "page size",
				Sources:     cli.EnvVars("PAGE_LIMIT"),
				Value:       cfg.PageLimit,
				Destination: &f.limit,
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "pages",
				Usage: "Load pages until the feed is exhausted and print each row with its layout",
				Flags: []cli.Flag{
					&cli.FloatFlag{
						Name:        "width",
						Usage:       "layout width in points",
						Value:       375,
						Destination: &f.width,
					},
					&cli.IntFlag{
						Name:        "max-pages",
						Usage:       "stop after this many pages (0 = until exhausted)",
						Destination: &f.maxPages,
					},
					&cli.BoolFlag{
						Name:        "json",
						Usage:       "print rows as JSON lines",
						Destination: &f.asJSON,
					},
				},
				Action: func(ctx context.Context, _ *cli.Command) error {
					cfg.FeedSource, cfg.PageLimit = f.source, f.limit
					return runPages(ctx, cfg, f, os.Stdout)
				},
			},
			{
				Name:  "warm",
				Usage: "Fetch every avatar and photo of the feed into the response cache",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:        "workers",
						Usage:       "concurrent fetches",
						Sources:     cli.EnvVars("IMAGE_FETCH_WORKERS"),
						Value:       cfg.ImageFetchWorkers,
						Destination: &f.workers,
					},
				},
				Action: func(ctx context.Context, _ *cli.Command) error {
					cfg.FeedSource, cfg.PageLimit = f.source, f.limit
					return runWarm(ctx, cfg, f.workers, os.Stdout)
				},
			},
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cmd.Run(ctx, os.Args); err != nil {
		log.Error().Err(err).Msg("feedctl failed")
		os.Exit(1)
	}
}

func runPages(ctx context.Context, cfg shared.Config, f *flags, out io.Writer) error {
	stack, err := bootstrap.Build(ctx, cfg, log.Logger)
	if err != nil {
		return err
	}
	defer stack.Close()

	loopCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go stack.Run(loopCtx)

	printed := 0
	for page := 1; f.maxPages == 0 || page <= f.maxPages; page++ {
		stack.List.LoadNextPage()
		s, err := waitSettled(ctx, stack.List)
		if err != nil {
			return err
		}
		if len(s.Rows) == printed {
			return fmt.Errorf("page %d: feed returned nothing new; see log", page)
		}
		for _, row := range s.Rows[printed:] {
			res := stack.Layout.Compute(row, f.width)
			if err := printRow(out, stack, row, res, f.asJSON); err != nil {
				return err
			}
		}
		printed = len(s.Rows)
		if s.Phase == app.PhaseExhausted {
			break
		}
	}
	return nil
}

// waitSettled polls until no page load is in flight.
func waitSettled(ctx context.Context, list *app.FeedList) (app.State, error) {
	t := time.NewTicker(20 * time.Millisecond)
	defer t.Stop()
	for {
		s, err := list.Snapshot(ctx)
		if err != nil {
			return s, err
		}
		if s.Phase != app.PhaseLoading {
			return s, nil
		}
		select {
		case <-ctx.Done():
			return s, ctx.Err()
		case <-t.C:
		}
	}
}

type jsonRow struct {
	ID     domain.RowID   `json:"id,omitempty"`
	Kind   domain.RowKind `json:"kind"`
	Title  string         `json:"title"`
	Text   string         `json:"text,omitempty"`
	Layout layout.Result  `json:"layout"`
}

func printRow(out io.Writer, stack *bootstrap.Stack, row domain.Row, res layout.Result, asJSON bool) error {
	switch r := row.(type) {
	case domain.ReviewRow:
		if asJSON {
			return json.NewEncoder(out).Encode(jsonRow{ID: r.ID, Kind: r.Kind(), Title: r.Username.Text, Text: r.Text.Text, Layout: res})
		}
		lines := stack.Text.Lines(r.Text.Text, res.Frames.Text.W)
		if r.MaxLines > 0 && len(lines) > r.MaxLines {
			lines = lines[:r.MaxLines]
		}
		fmt.Fprintf(out, "%s  %s  (h=%.0f)\n", r.Username.Text, r.Rating.Text, res.Height)
		if len(r.PhotoURLs) > 0 {
			fmt.Fprintf(out, "    [%d photos]\n", len(r.PhotoURLs))
		}
		if !r.Text.IsEmpty() {
			fmt.Fprintf(out, "    %s\n", strings.Join(lines, "\n    "))
		}
		if res.ShowMore {
			fmt.Fprintf(out, "    %s\n", stack.Layout.Config().ShowMoreLabel)
		}
		_, err := fmt.Fprintf(out, "    %s\n\n", r.Created.Text)
		return err

	case domain.TotalRow:
		if asJSON {
			return json.NewEncoder(out).Encode(jsonRow{Kind: r.Kind(), Title: r.CountText.Text, Layout: res})
		}
		_, err := fmt.Fprintf(out, "-- %s --\n", r.CountText.Text)
		return err
	}
	return nil
}

// runWarm resolves every image URL in the feed through the cache so the
// durable tier is populated before the first session.
func runWarm(ctx context.Context, cfg shared.Config, workers int, out io.Writer) error {
	stack, err := bootstrap.Build(ctx, cfg, log.Logger)
	if err != nil {
		return err
	}
	defer stack.Close()

	fd, err := stack.Feed.GetFeed(ctx)
	if err != nil {
		return err
	}
	urls := imageURLs(fd)
	log.Info().Int("urls", len(urls)).Int("workers", workers).Msg("warming image cache")

	if workers <= 0 {
		workers = 1
	}
	sem := semaphore.NewWeighted(int64(workers))
	var (
		wg     sync.WaitGroup
		ok     atomic.Int32
		failed atomic.Int32
	)
	for _, u := range urls {
		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}
		wg.Add(1)
		go func(url string) {
			defer wg.Done()
			defer sem.Release(1)

			if _, err := stack.Images.Get(ctx, url); err != nil {
				failed.Add(1)
				log.Warn().Str("url", url).Err(err).Msg("warm failed")
				return
			}
			ok.Add(1)
		}(u)
	}
	wg.Wait()

	_, err = fmt.Fprintf(out, "warmed %d of %d images (%d failed)\n", ok.Load(), len(urls), failed.Load())
	if err != nil {
		return err
	}
	return ctx.Err()
}

func imageURLs(f domain.Feed) []string {
	seen := map[string]bool{}
	var urls []string
	add := func(u string) {
		u = strings.TrimSpace(u)
		if u == "" || seen[u] {
			return
		}
		seen[u] = true
		urls = append(urls, u)
	}
	for _, it := range f.Items {
		if it.AvatarURL != nil {
			add(*it.AvatarURL)
		}
		for _, p := range it.PhotoURLs {
			add(p)
		}
	}
	return urls
}
