package aggregator

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"coinpanel/internal/cache"
	"coinpanel/internal/domain"
	"coinpanel/internal/normalize"
	"coinpanel/internal/registry"
	"coinpanel/internal/requestlog"
	"coinpanel/internal/retry"
	"coinpanel/internal/transport"

	"go.opentelemetry.io/otel/trace"
)

var testTracer = trace.NewNoopTracerProvider().Tracer("test")

type fakeInvoker struct {
	mu      sync.Mutex
	calls   []string
	handler func(url string) ([]byte, error)
}

func (f *fakeInvoker) Invoke(ctx context.Context, url string, headers map[string]string) ([]byte, error) {
	f.mu.Lock()
	f.calls = append(f.calls, url)
	f.mu.Unlock()
	return f.handler(url)
}

func (f *fakeInvoker) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func priceSource(id string, priority int) registry.Descriptor {
	return registry.Descriptor{
		ID: id, Priority: priority, Domain: domain.DomainPrice,
		BuildURL: func(p registry.Params) string { return "https://" + id },
	}
}

func newsSource(id string, priority int) registry.Descriptor {
	return registry.Descriptor{
		ID: id, Priority: priority, Domain: domain.DomainNews,
		BuildURL: func(p registry.Params) string { return "https://" + id },
	}
}

func sentimentSource(id string, priority int) registry.Descriptor {
	return registry.Descriptor{
		ID: id, Priority: priority, Domain: domain.DomainSentiment,
		BuildURL: func(p registry.Params) string { return "https://" + id },
	}
}

func newService(reg *registry.Registry, invoker transport.Invoker, opts Options) *Service {
	return New(
		testTracer,
		reg,
		normalize.NewTable(),
		cache.NewMemory(),
		retry.New(1),
		invoker,
		invoker,
		requestlog.NewBuffer(50),
		opts,
	)
}

func TestPriceTriesSourcesInPriorityOrder(t *testing.T) {
	t.Parallel()

	reg := registry.FromDescriptors([]registry.Descriptor{
		priceSource("src-c", 3),
		priceSource("src-a", 1),
		priceSource("src-b", 2),
	})
	invoker := &fakeInvoker{handler: func(url string) ([]byte, error) {
		if url == "https://src-c" {
			return []byte(`{"price":97000}`), nil
		}
		return nil, &transport.Error{Kind: transport.KindNetwork, URL: url}
	}}
	svc := newService(reg, invoker, Options{})

	quote, err := svc.Price(context.Background(), "BTC")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if quote.SourceID != "src-c" || quote.PriceUSD != 97000 {
		t.Fatalf("unexpected quote: %+v", quote)
	}

	attempts := svc.Requests().Snapshot()
	if len(attempts) != 3 {
		t.Fatalf("expected 3 logged attempts, got %d", len(attempts))
	}
	wantOrder := []string{"src-a", "src-b", "src-c"}
	for i, id := range wantOrder {
		if attempts[i].SourceID != id {
			t.Fatalf("attempt %d = %s, want %s", i, attempts[i].SourceID, id)
		}
	}
	if attempts[0].Success || attempts[1].Success || !attempts[2].Success {
		t.Fatalf("unexpected success flags: %+v", attempts)
	}
}

func TestPriceCacheShortCircuit(t *testing.T) {
	t.Parallel()

	reg := registry.FromDescriptors([]registry.Descriptor{priceSource("src-a", 1)})
	invoker := &fakeInvoker{handler: func(url string) ([]byte, error) {
		return []byte(`{"price":42}`), nil
	}}
	svc := newService(reg, invoker, Options{CacheTTL: 50 * time.Millisecond})

	for i := 0; i < 2; i++ {
		if _, err := svc.Price(context.Background(), "BTC"); err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
	}
	if invoker.callCount() != 1 {
		t.Fatalf("expected 1 transport call within TTL, got %d", invoker.callCount())
	}

	time.Sleep(60 * time.Millisecond)
	if _, err := svc.Price(context.Background(), "BTC"); err != nil {
		t.Fatalf("post-expiry call: %v", err)
	}
	if invoker.callCount() != 2 {
		t.Fatalf("expected a fresh transport call after TTL, got %d", invoker.callCount())
	}
}

func TestSoftMissAndHardFailBothAdvance(t *testing.T) {
	t.Parallel()

	reg := registry.FromDescriptors([]registry.Descriptor{
		priceSource("soft", 1),
		priceSource("hard", 2),
		priceSource("good", 3),
	})
	invoker := &fakeInvoker{handler: func(url string) ([]byte, error) {
		switch url {
		case "https://soft":
			return []byte(`{}`), nil // parses, no usable fields
		case "https://hard":
			return nil, &transport.Error{Kind: transport.KindHTTPStatus, Status: http.StatusInternalServerError, URL: url}
		default:
			return []byte(`{"price":7}`), nil
		}
	}}
	svc := newService(reg, invoker, Options{})

	quote, err := svc.Price(context.Background(), "ETH")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if quote.SourceID != "good" {
		t.Fatalf("expected third source to win, got %s", quote.SourceID)
	}
	if len(svc.Requests().Snapshot()) != 3 {
		t.Fatalf("expected all 3 attempts logged")
	}
}

func TestRateLimitDegradesAndTraversalContinues(t *testing.T) {
	t.Parallel()

	reg := registry.FromDescriptors([]registry.Descriptor{
		priceSource("limited", 1),
		priceSource("good", 2),
	})
	invoker := &fakeInvoker{handler: func(url string) ([]byte, error) {
		if url == "https://limited" {
			return nil, &transport.Error{Kind: transport.KindHTTPStatus, Status: http.StatusTooManyRequests, URL: url}
		}
		return []byte(`{"price":11}`), nil
	}}
	svc := newService(reg, invoker, Options{})

	quote, err := svc.Price(context.Background(), "SOL")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if quote.SourceID != "good" || quote.Fallback {
		t.Fatalf("expected real data from the next source, got %+v", quote)
	}
}

func TestRateLimitOnlySourceYieldsFallbackRecord(t *testing.T) {
	t.Parallel()

	reg := registry.FromDescriptors([]registry.Descriptor{priceSource("limited", 1)})
	invoker := &fakeInvoker{handler: func(url string) ([]byte, error) {
		return nil, &transport.Error{Kind: transport.KindHTTPStatus, Status: http.StatusTooManyRequests, URL: url}
	}}
	svc := newService(reg, invoker, Options{})

	quote, err := svc.Price(context.Background(), "BTC")
	if err != nil {
		t.Fatalf("rate limit must not surface an error, got %v", err)
	}
	if !quote.Fallback || quote.SourceID != "limited" {
		t.Fatalf("expected fallback placeholder, got %+v", quote)
	}
}

func TestPriceExhaustionError(t *testing.T) {
	t.Parallel()

	reg := registry.FromDescriptors([]registry.Descriptor{
		priceSource("a", 1), priceSource("b", 2), priceSource("c", 3), priceSource("d", 4),
	})
	invoker := &fakeInvoker{handler: func(url string) ([]byte, error) {
		return nil, &transport.Error{Kind: transport.KindNetwork, URL: url}
	}}
	svc := newService(reg, invoker, Options{})

	_, err := svc.Price(context.Background(), "BTC")
	var exhausted *domain.ExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("expected ExhaustedError, got %v", err)
	}
	if exhausted.Attempted != 4 || exhausted.Domain != domain.DomainPrice {
		t.Fatalf("unexpected exhaustion detail: %+v", exhausted)
	}
}

func TestPriceRejectsUnsupportedSymbol(t *testing.T) {
	t.Parallel()

	svc := newService(registry.FromDescriptors(nil), &fakeInvoker{handler: func(string) ([]byte, error) { return nil, nil }}, Options{})
	if _, err := svc.Price(context.Background(), "NOPE"); err == nil {
		t.Fatal("expected error for unsupported symbol")
	}
}

func TestNewsMergesAndDeduplicates(t *testing.T) {
	t.Parallel()

	reg := registry.FromDescriptors([]registry.Descriptor{
		newsSource("news-a", 1),
		newsSource("news-b", 2),
		newsSource("news-broken", 3),
	})
	invoker := &fakeInvoker{handler: func(url string) ([]byte, error) {
		switch url {
		case "https://news-a":
			return []byte(`{"items":[
				{"title":"Bitcoin Hits $50K","link":"https://a/1","pubDate":"2026-08-01 10:00:00"},
				{"title":"ETH News","link":"https://a/2","pubDate":"2026-08-01 09:00:00"}]}`), nil
		case "https://news-b":
			return []byte(`{"items":[
				{"title":"bitcoin hits $50k ","link":"https://b/1","pubDate":"2026-08-01 08:00:00"},
				{"title":"SOL News","link":"https://b/2","pubDate":"2026-08-01 11:00:00"}]}`), nil
		default:
			return nil, &transport.Error{Kind: transport.KindNetwork, URL: url}
		}
	}}
	svc := newService(reg, invoker, Options{})

	articles, err := svc.News(context.Background(), 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(articles) != 3 {
		t.Fatalf("expected 3 deduped articles, got %d: %+v", len(articles), articles)
	}
	// newest first
	if articles[0].Title != "SOL News" {
		t.Fatalf("expected recency ordering, got %+v", articles)
	}
	// titles differing only in case/whitespace collapse, keeping the
	// higher-priority source's copy
	for _, a := range articles {
		if a.IdentityKey() == "bitcoin hits $50k" && a.SourceID != "news-a" {
			t.Fatalf("dedup kept the wrong copy: %+v", a)
		}
	}
}

func TestNewsSingleSourceFailureDoesNotAbortBatch(t *testing.T) {
	t.Parallel()

	reg := registry.FromDescriptors([]registry.Descriptor{
		newsSource("dead", 1),
		newsSource("alive", 2),
	})
	invoker := &fakeInvoker{handler: func(url string) ([]byte, error) {
		if url == "https://dead" {
			return nil, &transport.Error{Kind: transport.KindTimeout, URL: url}
		}
		return []byte(`{"items":[{"title":"Only Story","link":"https://x/1","pubDate":"2026-08-01 10:00:00"}]}`), nil
	}}
	svc := newService(reg, invoker, Options{})

	articles, err := svc.News(context.Background(), 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(articles) != 1 || articles[0].SourceID != "alive" {
		t.Fatalf("unexpected articles: %+v", articles)
	}
}

func TestNewsExhaustion(t *testing.T) {
	t.Parallel()

	reg := registry.FromDescriptors([]registry.Descriptor{
		newsSource("a", 1), newsSource("b", 2),
	})
	invoker := &fakeInvoker{handler: func(url string) ([]byte, error) {
		return []byte(`{"items":[]}`), nil
	}}
	svc := newService(reg, invoker, Options{})

	_, err := svc.News(context.Background(), 5)
	var exhausted *domain.ExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("expected ExhaustedError, got %v", err)
	}
	if exhausted.Attempted != 2 || exhausted.Domain != domain.DomainNews {
		t.Fatalf("unexpected exhaustion detail: %+v", exhausted)
	}
}

type fakeArchive struct {
	articles []domain.NewsArticle
	err      error
	lastLim  int
}

func (f *fakeArchive) ListRecent(_ context.Context, limit int) ([]domain.NewsArticle, error) {
	f.lastLim = limit
	return f.articles, f.err
}

func TestNewsExhaustionFallsBackToArchive(t *testing.T) {
	t.Parallel()

	reg := registry.FromDescriptors([]registry.Descriptor{
		newsSource("a", 1), newsSource("b", 2),
	})
	invoker := &fakeInvoker{handler: func(url string) ([]byte, error) {
		return nil, &transport.Error{Kind: transport.KindNetwork, URL: url}
	}}
	svc := newService(reg, invoker, Options{})
	archive := &fakeArchive{articles: []domain.NewsArticle{
		{Title: "Bitcoin climbs", SourceID: "coindesk"},
		{Title: "ETH upgrade ships", SourceID: "decrypt"},
	}}
	svc.SetArchive(archive)

	articles, err := svc.News(context.Background(), 5)
	if err != nil {
		t.Fatalf("expected archived articles, got error %v", err)
	}
	if len(articles) != 2 || articles[0].Title != "Bitcoin climbs" {
		t.Fatalf("unexpected articles: %+v", articles)
	}
	if archive.lastLim != 5 {
		t.Fatalf("expected archive queried with limit 5, got %d", archive.lastLim)
	}
}

func TestNewsEmptyArchiveStillExhausts(t *testing.T) {
	t.Parallel()

	reg := registry.FromDescriptors([]registry.Descriptor{newsSource("a", 1)})
	invoker := &fakeInvoker{handler: func(url string) ([]byte, error) {
		return nil, &transport.Error{Kind: transport.KindNetwork, URL: url}
	}}
	svc := newService(reg, invoker, Options{})
	svc.SetArchive(&fakeArchive{})

	_, err := svc.News(context.Background(), 5)
	var exhausted *domain.ExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("expected ExhaustedError when archive is empty, got %v", err)
	}
}

func TestNewsTopKByRecency(t *testing.T) {
	t.Parallel()

	reg := registry.FromDescriptors([]registry.Descriptor{newsSource("a", 1)})
	invoker := &fakeInvoker{handler: func(url string) ([]byte, error) {
		return []byte(`{"items":[
			{"title":"Old","link":"https://x/1","pubDate":"2026-07-01 10:00:00"},
			{"title":"Newest","link":"https://x/2","pubDate":"2026-08-02 10:00:00"},
			{"title":"Middle","link":"https://x/3","pubDate":"2026-08-01 10:00:00"}]}`), nil
	}}
	svc := newService(reg, invoker, Options{})

	articles, err := svc.News(context.Background(), 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(articles) != 2 || articles[0].Title != "Newest" || articles[1].Title != "Middle" {
		t.Fatalf("unexpected top-K: %+v", articles)
	}
}

func TestSentimentFirstSuccessAndCache(t *testing.T) {
	t.Parallel()

	reg := registry.FromDescriptors([]registry.Descriptor{
		sentimentSource("alternative-me", 1),
	})
	invoker := &fakeInvoker{handler: func(url string) ([]byte, error) {
		return []byte(`{"data":[{"value":"63","value_classification":"Greed","timestamp":"1771009800"}]}`), nil
	}}
	svc := newService(reg, invoker, Options{})

	reading, err := svc.Sentiment(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reading.Value != 63 || reading.Classification != domain.Greed || reading.SourceID != "alternative-me" {
		t.Fatalf("unexpected reading: %+v", reading)
	}

	if _, err := svc.Sentiment(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if invoker.callCount() != 1 {
		t.Fatalf("expected cached second read, got %d calls", invoker.callCount())
	}
}

func TestCancelledContextStopsTraversal(t *testing.T) {
	t.Parallel()

	reg := registry.FromDescriptors([]registry.Descriptor{
		priceSource("a", 1), priceSource("b", 2), priceSource("c", 3),
	})
	ctx, cancel := context.WithCancel(context.Background())
	invoker := &fakeInvoker{handler: func(url string) ([]byte, error) {
		cancel()
		return nil, &transport.Error{Kind: transport.KindNetwork, URL: url}
	}}
	svc := newService(reg, invoker, Options{})

	_, err := svc.Price(ctx, "BTC")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if invoker.callCount() != 1 {
		t.Fatalf("expected traversal to stop after cancel, got %d calls", invoker.callCount())
	}
}
