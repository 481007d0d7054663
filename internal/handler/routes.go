package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"coinpanel/internal/domain"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

// Health godoc
// @Summary      Service liveness and stream status
// @Produce      json
// @Router       /health [get]
func (h *Handler) Health(c *gin.Context) {
	resp := gin.H{"status": "ok"}
	if h.stream != nil {
		resp["stream_state"] = h.stream.State().String()
		if id := h.stream.SessionID(); id != "" {
			resp["stream_session"] = id
		}
	}
	c.JSON(http.StatusOK, resp)
}

// GetPrice godoc
// @Summary      Get the current aggregated price for an asset
// @Description  Walks the ranked price sources until one answers; the
// @Description  source_id and fallback fields tell the renderer where
// @Description  the number came from.
// @Produce      json
// @Param        symbol  path  string  true  "Asset symbol (e.g., BTC)"
// @Router       /api/prices/{symbol} [get]
func (h *Handler) GetPrice(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-price")
	defer span.End()

	symbol := strings.ToUpper(c.Param("symbol"))
	span.SetAttributes(attribute.String("symbol", symbol))

	if !domain.IsSupportedSymbol(symbol) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":             "unsupported symbol: " + symbol,
			"supported_symbols": domain.SupportedSymbols,
		})
		return
	}

	quote, err := h.aggregator.Price(ctx, symbol)
	if err != nil {
		h.renderAggregateError(c, err)
		return
	}
	c.JSON(http.StatusOK, quote)
}

// GetNews godoc
// @Summary      Get merged, deduplicated news from all sources
// @Produce      json
// @Param        limit  query  int  false  "Max articles (default 20, max 100)"
// @Router       /api/news [get]
func (h *Handler) GetNews(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-news")
	defer span.End()

	limit := 0
	if l := c.Query("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}

	articles, err := h.aggregator.News(ctx, limit)
	if err != nil {
		h.renderAggregateError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"articles": articles, "count": len(articles)})
}

// GetSentiment godoc
// @Summary      Get the current fear & greed reading
// @Produce      json
// @Router       /api/sentiment [get]
func (h *Handler) GetSentiment(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-sentiment")
	defer span.End()

	reading, err := h.aggregator.Sentiment(ctx)
	if err != nil {
		h.renderAggregateError(c, err)
		return
	}
	c.JSON(http.StatusOK, reading)
}

// GetSources godoc
// @Summary      List the registered sources for a domain in fallback order
// @Produce      json
// @Param        domain  path  string  true  "price | news | sentiment"
// @Router       /api/sources/{domain} [get]
func (h *Handler) GetSources(c *gin.Context) {
	_, span := h.tracer.Start(c.Request.Context(), "handler.get-sources")
	defer span.End()

	d := domain.DataDomain(strings.ToLower(c.Param("domain")))
	if !d.IsValid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown domain: " + string(d)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"domain": d, "sources": h.sources.DomainSources(d)})
}

// GetRequestLog godoc
// @Summary      Recent source attempts, oldest first
// @Produce      json
// @Router       /api/requests [get]
func (h *Handler) GetRequestLog(c *gin.Context) {
	_, span := h.tracer.Start(c.Request.Context(), "handler.get-request-log")
	defer span.End()

	c.JSON(http.StatusOK, gin.H{"attempts": h.aggregator.Requests().Snapshot()})
}

// renderAggregateError distinguishes full exhaustion (every source
// failed or soft-missed) from plain internal errors so the dashboard
// can show an explicit empty state instead of a generic failure.
func (h *Handler) renderAggregateError(c *gin.Context, err error) {
	var exhausted *domain.ExhaustedError
	if errors.As(err, &exhausted) {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":     "all sources exhausted",
			"domain":    exhausted.Domain,
			"attempted": exhausted.Attempted,
		})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
