package job

import (
	"context"
	"log"
	"time"

	"coinpanel/internal/domain"
	"coinpanel/internal/stream"

	"go.opentelemetry.io/otel/trace"
)

// Poller keeps the cache warm by walking each domain on its own ticker
// and by reacting to push frames from the realtime stream.
type Poller struct {
	tracer       trace.Tracer
	source       DataRefresher
	archive      ArticleArchiver
	updates      UpdateSource
	pollInterval time.Duration
	newsLimit    int
}

type DataRefresher interface {
	Price(ctx context.Context, symbol string) (*domain.PriceQuote, error)
	News(ctx context.Context, limit int) ([]domain.NewsArticle, error)
	Sentiment(ctx context.Context) (*domain.SentimentReading, error)
}

type ArticleArchiver interface {
	UpsertArticles(ctx context.Context, articles []domain.NewsArticle) error
}

type UpdateSource interface {
	Subscribe(frameType string, h stream.Handler)
}

// NewPoller builds a poller. archive and updates may be nil; the news
// archive and stream-triggered refreshes are then skipped.
func NewPoller(tracer trace.Tracer, source DataRefresher, archive ArticleArchiver, updates UpdateSource, pollIntervalSecs, newsLimit int) *Poller {
	return &Poller{
		tracer:       tracer,
		source:       source,
		archive:      archive,
		updates:      updates,
		pollInterval: time.Duration(pollIntervalSecs) * time.Second,
		newsLimit:    newsLimit,
	}
}

// Start launches the background polling goroutines. Blocks until ctx
// is cancelled.
func (p *Poller) Start(ctx context.Context) {
	log.Println("Poller starting...")

	if p.updates != nil {
		p.updates.Subscribe("update", func(msg stream.Message) {
			p.handleUpdate(ctx, msg)
		})
	}

	// Prices every pollInterval (default 60s)
	go p.pollLoop(ctx, "prices", p.pollInterval, 0, p.refreshPrices)

	// News every 3x pollInterval, staggered behind the price loop
	go p.pollLoop(ctx, "news", 3*p.pollInterval, 10*time.Second, p.refreshNews)

	// Sentiment every 5x pollInterval
	go p.pollLoop(ctx, "sentiment", 5*p.pollInterval, 20*time.Second, p.refreshSentiment)

	<-ctx.Done()
	log.Println("Poller stopped")
}

func (p *Poller) pollLoop(ctx context.Context, name string, interval, stagger time.Duration, fn func(context.Context) error) {
	if stagger > 0 {
		select {
		case <-ctx.Done():
			return
		case <-time.After(stagger):
		}
	}

	// Run immediately on start
	if err := fn(ctx); err != nil {
		log.Printf("poller %s initial run error: %v", name, err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := fn(ctx); err != nil {
				log.Printf("poller %s error: %v", name, err)
			}
		}
	}
}

func (p *Poller) refreshPrices(ctx context.Context) error {
	ctx, span := p.tracer.Start(ctx, "poller.refresh-prices")
	defer span.End()

	var lastErr error
	for _, symbol := range domain.SupportedSymbols {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if _, err := p.source.Price(ctx, symbol); err != nil {
			log.Printf("poller: price refresh for %s failed: %v", symbol, err)
			lastErr = err
		}
	}
	return lastErr
}

func (p *Poller) refreshNews(ctx context.Context) error {
	ctx, span := p.tracer.Start(ctx, "poller.refresh-news")
	defer span.End()

	articles, err := p.source.News(ctx, p.newsLimit)
	if err != nil {
		return err
	}
	if p.archive != nil {
		if err := p.archive.UpsertArticles(ctx, articles); err != nil {
			log.Printf("poller: news archive write failed: %v", err)
		}
	}
	return nil
}

func (p *Poller) refreshSentiment(ctx context.Context) error {
	ctx, span := p.tracer.Start(ctx, "poller.refresh-sentiment")
	defer span.End()

	_, err := p.source.Sentiment(ctx)
	return err
}

// handleUpdate refreshes the domain named in a push frame so the next
// read serves fresh data instead of waiting out the ticker.
func (p *Poller) handleUpdate(ctx context.Context, msg stream.Message) {
	switch domain.DataDomain(msg.Domain) {
	case domain.DomainPrice:
		if err := p.refreshPrices(ctx); err != nil {
			log.Printf("poller: stream-triggered price refresh failed: %v", err)
		}
	case domain.DomainNews:
		if err := p.refreshNews(ctx); err != nil {
			log.Printf("poller: stream-triggered news refresh failed: %v", err)
		}
	case domain.DomainSentiment:
		if err := p.refreshSentiment(ctx); err != nil {
			log.Printf("poller: stream-triggered sentiment refresh failed: %v", err)
		}
	default:
		log.Printf("poller: update frame for unknown domain %q ignored", msg.Domain)
	}
}
