package prefetch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Sternrassler/streamlist/pkg/paginator"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var pagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "streamlist_prefetch_pages_total",
	Help: "Pages fetched by the cache warmer by list and outcome",
}, []string{"list", "outcome"})

// Config holds warmer configuration.
type Config struct {
	// MaxConcurrency is the maximum number of parallel requests.
	// Twitch allows 800 points per minute; a handful of workers is plenty.
	MaxConcurrency int

	// Timeout per page fetch.
	Timeout time.Duration
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig() Config {
	return Config{
		MaxConcurrency: 4,
		Timeout:        15 * time.Second,
	}
}

// PageFunc fetches the page at index and reports whether further pages exist.
type PageFunc func(ctx context.Context, index int) (hasMore bool, err error)

// FromFetchFunc adapts a paginator fetch function into a blocking PageFunc.
func FromFetchFunc[E any](fetch paginator.FetchFunc[E]) PageFunc {
	return func(ctx context.Context, index int) (bool, error) {
		type result struct {
			hasMore bool
			err     error
		}
		ch := make(chan result, 1)
		fetch(ctx, paginator.Request{Index: index}, func(p paginator.Page[E], err error) {
			ch <- result{p.HasMore, err}
		})
		select {
		case r := <-ch:
			return r.hasMore, r.err
		case <-ctx.Done():
			return false, ctx.Err()
		}
	}
}

// Result summarizes a warm run.
type Result struct {
	Warmed   int
	Failed   int
	Duration time.Duration
}

// Warmer fetches pages in parallel.
type Warmer struct {
	config Config
	logger zerolog.Logger
}

// NewWarmer creates a new warmer.
func NewWarmer(config Config) *Warmer {
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = 4
	}
	if config.Timeout <= 0 {
		config.Timeout = 15 * time.Second
	}

	return &Warmer{
		config: config,
		logger: log.With().Str("component", "prefetch").Logger(),
	}
}

// WarmPages fetches page 0 to learn whether the list continues, then pages
// 1..pages-1 in parallel. Workers stop at the first failure; the pages warmed
// so far are reported together with the error.
func (w *Warmer) WarmPages(ctx context.Context, name string, pages int, fetch PageFunc) (Result, error) {
	start := time.Now()
	if pages <= 0 {
		return Result{}, nil
	}

	firstCtx, cancel := context.WithTimeout(ctx, w.config.Timeout)
	hasMore, err := fetch(firstCtx, 0)
	cancel()
	if err != nil {
		pagesTotal.WithLabelValues(name, "failed").Inc()
		return Result{Failed: 1, Duration: time.Since(start)}, fmt.Errorf("fetch first page: %w", err)
	}
	pagesTotal.WithLabelValues(name, "warmed").Inc()

	if !hasMore || pages == 1 {
		res := Result{Warmed: 1, Duration: time.Since(start)}
		w.logger.Info().
			Str("list", name).
			Int("pages", 1).
			Dur("duration", res.Duration).
			Msg("Warm complete (single page)")
		return res, nil
	}

	w.logger.Info().
		Str("list", name).
		Int("pages", pages).
		Int("workers", w.config.MaxConcurrency).
		Msg("Starting parallel warm")

	pageQueue := make(chan int, pages-1)
	for index := 1; index < pages; index++ {
		pageQueue <- index
	}
	close(pageQueue)

	var (
		mu       sync.Mutex
		res      = Result{Warmed: 1}
		firstErr error
		wg       sync.WaitGroup
	)

	for i := 0; i < w.config.MaxConcurrency; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for index := range pageQueue {
				if ctx.Err() != nil {
					w.logger.Debug().Int("worker_id", workerID).Msg("Worker stopping (context cancelled)")
					return
				}

				pageCtx, cancel := context.WithTimeout(ctx, w.config.Timeout)
				_, err := fetch(pageCtx, index)
				cancel()

				mu.Lock()
				if err != nil {
					res.Failed++
					if firstErr == nil {
						firstErr = err
					}
				} else {
					res.Warmed++
				}
				mu.Unlock()

				if err != nil {
					pagesTotal.WithLabelValues(name, "failed").Inc()
					w.logger.Warn().
						Err(err).
						Int("worker_id", workerID).
						Int("page", index).
						Msg("Page warm failed")
					return
				}
				pagesTotal.WithLabelValues(name, "warmed").Inc()
			}
		}(i)
	}
	wg.Wait()

	res.Duration = time.Since(start)
	if firstErr == nil && ctx.Err() != nil {
		firstErr = ctx.Err()
	}
	if firstErr != nil {
		w.logger.Warn().
			Err(firstErr).
			Str("list", name).
			Int("warmed", res.Warmed).
			Msg("Warm incomplete - returning partial result")
		if errors.Is(firstErr, context.Canceled) || errors.Is(firstErr, context.DeadlineExceeded) {
			return res, firstErr
		}
		return res, fmt.Errorf("warm %s (partial: %d/%d pages): %w", name, res.Warmed, pages, firstErr)
	}

	w.logger.Info().
		Str("list", name).
		Int("pages", res.Warmed).
		Dur("duration", res.Duration).
		Msg("Warm complete")

	return res, nil
}
