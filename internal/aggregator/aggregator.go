// Package aggregator walks the ranked source list for a data domain
// until one yields usable data, normalizing, caching, and logging
// along the way. Transport errors and soft misses both mean "try next
// source"; only full exhaustion surfaces to the caller.
package aggregator

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"coinpanel/internal/cache"
	"coinpanel/internal/domain"
	"coinpanel/internal/normalize"
	"coinpanel/internal/registry"
	"coinpanel/internal/requestlog"
	"coinpanel/internal/retry"
	"coinpanel/internal/transport"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	DefaultCacheTTL  = 60 * time.Second
	DefaultNewsLimit = 20
)

type Options struct {
	CacheTTL  time.Duration
	NewsLimit int
}

type Service struct {
	tracer    trace.Tracer
	registry  *registry.Registry
	table     *normalize.Table
	store     cache.Store
	retrier   *retry.Controller
	direct    transport.Invoker
	relay     transport.Invoker
	requests  *requestlog.Buffer
	archive   ArticleLister
	cacheTTL  time.Duration
	newsLimit int
}

// ArticleLister serves previously archived articles when every live
// news source is down.
type ArticleLister interface {
	ListRecent(ctx context.Context, limit int) ([]domain.NewsArticle, error)
}

// SetArchive attaches the optional news archive used as the terminal
// fallback for News.
func (s *Service) SetArchive(archive ArticleLister) {
	s.archive = archive
}

func New(
	tracer trace.Tracer,
	reg *registry.Registry,
	table *normalize.Table,
	store cache.Store,
	retrier *retry.Controller,
	direct, relay transport.Invoker,
	requests *requestlog.Buffer,
	opts Options,
) *Service {
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = DefaultCacheTTL
	}
	if opts.NewsLimit <= 0 {
		opts.NewsLimit = DefaultNewsLimit
	}
	return &Service{
		tracer:    tracer,
		registry:  reg,
		table:     table,
		store:     store,
		retrier:   retrier,
		direct:    direct,
		relay:     relay,
		requests:  requests,
		cacheTTL:  opts.CacheTTL,
		newsLimit: opts.NewsLimit,
	}
}

// Requests exposes the attempt log for diagnostics endpoints.
func (s *Service) Requests() *requestlog.Buffer { return s.requests }

// invokeSource runs one retry-wrapped transport call for a source.
func (s *Service) invokeSource(ctx context.Context, src registry.Descriptor, p registry.Params) (retry.Outcome, error) {
	invoker := s.direct
	if src.RequiresRelay {
		invoker = s.relay
	}
	url := src.BuildURL(p)
	var headers map[string]string
	if src.AuthHeaders != nil {
		headers = src.AuthHeaders()
	}
	return s.retrier.Do(ctx, func(ctx context.Context) ([]byte, error) {
		return invoker.Invoke(ctx, url, headers)
	})
}

// Price resolves the current quote for a symbol, trying sources in
// priority order and stopping at the first usable record.
func (s *Service) Price(ctx context.Context, symbol string) (*domain.PriceQuote, error) {
	ctx, span := s.tracer.Start(ctx, "aggregator.price")
	defer span.End()
	span.SetAttributes(attribute.String("symbol", symbol))

	if !domain.IsSupportedSymbol(symbol) {
		return nil, fmt.Errorf("unsupported symbol: %s", symbol)
	}

	key := "price:" + symbol
	if payload, ok := s.store.Get(ctx, key); ok {
		var quote domain.PriceQuote
		if err := json.Unmarshal(payload, &quote); err == nil {
			return &quote, nil
		}
	}

	sources := s.registry.SourcesFor(domain.DomainPrice)
	params := registry.Params{Symbol: symbol}
	var degraded *domain.PriceQuote

	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		outcome, err := s.invokeSource(ctx, src, params)
		if err != nil {
			s.requests.Record(src.ID, false, err.Error())
			continue
		}
		if outcome.Degraded {
			s.requests.Record(src.ID, false, outcome.DegradedBy)
			if degraded == nil {
				degraded = &domain.PriceQuote{Symbol: symbol, SourceID: src.ID, Fallback: true, ObservedAt: time.Now().UTC()}
			}
			continue
		}
		quote, err := s.table.Price(src.ID, symbol, outcome.Body)
		if err != nil || quote == nil {
			s.requests.Record(src.ID, false, softMissMessage(err))
			continue
		}
		s.requests.Record(src.ID, true, "")
		s.writeThrough(ctx, key, quote)
		return quote, nil
	}

	if degraded != nil {
		return degraded, nil
	}
	return nil, &domain.ExhaustedError{Domain: domain.DomainPrice, Attempted: len(sources)}
}

// Sentiment resolves the current fear/greed reading, first success
// wins.
func (s *Service) Sentiment(ctx context.Context) (*domain.SentimentReading, error) {
	ctx, span := s.tracer.Start(ctx, "aggregator.sentiment")
	defer span.End()

	const key = "sentiment"
	if payload, ok := s.store.Get(ctx, key); ok {
		var reading domain.SentimentReading
		if err := json.Unmarshal(payload, &reading); err == nil {
			return &reading, nil
		}
	}

	sources := s.registry.SourcesFor(domain.DomainSentiment)
	var degraded *domain.SentimentReading

	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		outcome, err := s.invokeSource(ctx, src, registry.Params{})
		if err != nil {
			s.requests.Record(src.ID, false, err.Error())
			continue
		}
		if outcome.Degraded {
			s.requests.Record(src.ID, false, outcome.DegradedBy)
			if degraded == nil {
				degraded = &domain.SentimentReading{
					Value:          50,
					Classification: domain.Neutral,
					SourceID:       src.ID,
					Fallback:       true,
					ObservedAt:     time.Now().UTC(),
				}
			}
			continue
		}
		reading, err := s.table.Sentiment(src.ID, outcome.Body)
		if err != nil || reading == nil {
			s.requests.Record(src.ID, false, softMissMessage(err))
			continue
		}
		s.requests.Record(src.ID, true, "")
		s.writeThrough(ctx, key, reading)
		return reading, nil
	}

	if degraded != nil {
		return degraded, nil
	}
	return nil, &domain.ExhaustedError{Domain: domain.DomainSentiment, Attempted: len(sources)}
}

// News queries all sources concurrently, isolating per-source failure,
// then merges, dedups by title identity, and returns the most recent
// limit articles.
func (s *Service) News(ctx context.Context, limit int) ([]domain.NewsArticle, error) {
	ctx, span := s.tracer.Start(ctx, "aggregator.news")
	defer span.End()

	if limit <= 0 {
		limit = s.newsLimit
	}

	key := fmt.Sprintf("news:%d", limit)
	if payload, ok := s.store.Get(ctx, key); ok {
		var articles []domain.NewsArticle
		if err := json.Unmarshal(payload, &articles); err == nil {
			return articles, nil
		}
	}

	sources := s.registry.SourcesFor(domain.DomainNews)
	params := registry.Params{Limit: limit}

	// ordered by source priority so dedup keeps the higher-ranked copy
	perSource := make([][]domain.NewsArticle, len(sources))
	var wg sync.WaitGroup
	for i, src := range sources {
		wg.Add(1)
		go func(i int, src registry.Descriptor) {
			defer wg.Done()
			outcome, err := s.invokeSource(ctx, src, params)
			if err != nil {
				s.requests.Record(src.ID, false, err.Error())
				return
			}
			if outcome.Degraded {
				s.requests.Record(src.ID, false, outcome.DegradedBy)
				return
			}
			articles, err := s.table.News(src.ID, outcome.Body)
			if err != nil || len(articles) == 0 {
				s.requests.Record(src.ID, false, softMissMessage(err))
				return
			}
			s.requests.Record(src.ID, true, "")
			perSource[i] = articles
		}(i, src)
	}
	wg.Wait()

	merged := mergeArticles(perSource, limit)
	if len(merged) == 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		// stale archived headlines beat an empty dashboard
		if s.archive != nil {
			if archived, err := s.archive.ListRecent(ctx, limit); err == nil && len(archived) > 0 {
				log.Printf("aggregator: all news sources exhausted, serving %d archived articles", len(archived))
				return archived, nil
			}
		}
		return nil, &domain.ExhaustedError{Domain: domain.DomainNews, Attempted: len(sources)}
	}

	s.writeThrough(ctx, key, merged)
	return merged, nil
}

func mergeArticles(perSource [][]domain.NewsArticle, limit int) []domain.NewsArticle {
	seen := make(map[string]bool)
	var merged []domain.NewsArticle
	for _, articles := range perSource {
		for _, a := range articles {
			id := a.IdentityKey()
			if id == "" || seen[id] {
				continue
			}
			seen[id] = true
			merged = append(merged, a)
		}
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].PublishedAt.After(merged[j].PublishedAt)
	})
	if len(merged) > limit {
		merged = merged[:limit]
	}
	return merged
}

func (s *Service) writeThrough(ctx context.Context, key string, value any) {
	payload, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := s.store.Set(ctx, key, payload, s.cacheTTL); err != nil {
		log.Printf("cache write error for %s: %v", key, err)
	}
}

func softMissMessage(err error) string {
	if err != nil {
		return err.Error()
	}
	return "soft miss: no usable data"
}
