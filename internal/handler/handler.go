package handler

import (
	"context"

	"coinpanel/internal/domain"
	"coinpanel/internal/requestlog"
	"coinpanel/internal/stream"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"
)

// Aggregator is the slice of the traversal engine the HTTP surface
// needs.
type Aggregator interface {
	Price(ctx context.Context, symbol string) (*domain.PriceQuote, error)
	News(ctx context.Context, limit int) ([]domain.NewsArticle, error)
	Sentiment(ctx context.Context) (*domain.SentimentReading, error)
	Requests() *requestlog.Buffer
}

type SourceLister interface {
	DomainSources(d domain.DataDomain) []SourceView
}

// SourceView is the read-only registry projection returned by the
// diagnostics endpoint.
type SourceView struct {
	ID            string `json:"id"`
	DisplayName   string `json:"display_name"`
	Priority      int    `json:"priority"`
	RequiresRelay bool   `json:"requires_relay"`
}

type StreamStatus interface {
	State() stream.State
	SessionID() string
}

type Handler struct {
	tracer     trace.Tracer
	aggregator Aggregator
	sources    SourceLister
	stream     StreamStatus
}

func New(tracer trace.Tracer, aggregator Aggregator, sources SourceLister, streamClient StreamStatus) *Handler {
	return &Handler{
		tracer:     tracer,
		aggregator: aggregator,
		sources:    sources,
		stream:     streamClient,
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.Health)
	r.GET("/api/prices/:symbol", h.GetPrice)
	r.GET("/api/news", h.GetNews)
	r.GET("/api/sentiment", h.GetSentiment)
	r.GET("/api/sources/:domain", h.GetSources)
	r.GET("/api/requests", h.GetRequestLog)
}
