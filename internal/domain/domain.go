package domain

import (
	"fmt"
	"strings"
	"time"
)

// DataDomain is one category of aggregated data with its own source
// list and canonical record shape.
type DataDomain string

const (
	DomainPrice     DataDomain = "price"
	DomainNews      DataDomain = "news"
	DomainSentiment DataDomain = "sentiment"
)

func (d DataDomain) IsValid() bool {
	return d == DomainPrice || d == DomainNews || d == DomainSentiment
}

// SupportedSymbols lists the assets the dashboard tracks.
var SupportedSymbols = []string{"BTC", "ETH", "SOL", "XRP", "ADA", "DOGE", "DOT", "LINK", "AVAX", "LTC"}

func IsSupportedSymbol(symbol string) bool {
	for _, s := range SupportedSymbols {
		if s == symbol {
			return true
		}
	}
	return false
}

// PriceQuote is the canonical price record. Fallback marks a degraded
// placeholder produced after a source was rate-limited.
type PriceQuote struct {
	Symbol       string    `json:"symbol"`
	PriceUSD     float64   `json:"price_usd"`
	Change24hPct float64   `json:"change_24h_pct,omitempty"`
	MarketCapUSD float64   `json:"market_cap_usd,omitempty"`
	SourceID     string    `json:"source_id"`
	Fallback     bool      `json:"fallback,omitempty"`
	ObservedAt   time.Time `json:"observed_at"`
}

// NewsArticle is the canonical news record.
type NewsArticle struct {
	Title       string    `json:"title"`
	Link        string    `json:"link"`
	Summary     string    `json:"summary,omitempty"`
	SourceID    string    `json:"source_id"`
	PublishedAt time.Time `json:"published_at"`
}

// IdentityKey is the dedup key for articles: the lower-cased, trimmed
// title. Two case/whitespace variants of the same headline collapse.
func (a NewsArticle) IdentityKey() string {
	return strings.ToLower(strings.TrimSpace(a.Title))
}

type SentimentClass string

const (
	ExtremeFear  SentimentClass = "Extreme Fear"
	Fear         SentimentClass = "Fear"
	Neutral      SentimentClass = "Neutral"
	Greed        SentimentClass = "Greed"
	ExtremeGreed SentimentClass = "Extreme Greed"
)

// SentimentReading is the canonical fear/greed record. Value is always
// inside [0,100].
type SentimentReading struct {
	Value          int            `json:"value"`
	Classification SentimentClass `json:"classification"`
	SourceID       string         `json:"source_id"`
	Fallback       bool           `json:"fallback,omitempty"`
	ObservedAt     time.Time      `json:"observed_at"`
}

// ClampSentiment forces a provider value into the [0,100] scale.
func ClampSentiment(value int) int {
	if value < 0 {
		return 0
	}
	if value > 100 {
		return 100
	}
	return value
}

// ClassifySentiment maps a clamped value onto the five-band scale.
func ClassifySentiment(value int) SentimentClass {
	value = ClampSentiment(value)
	switch {
	case value <= 25:
		return ExtremeFear
	case value <= 45:
		return Fear
	case value <= 55:
		return Neutral
	case value <= 75:
		return Greed
	default:
		return ExtremeGreed
	}
}

// ExhaustedError reports that every registered source for a domain
// either errored or soft-missed. Attempted is the number of sources
// tried, kept for diagnostics.
type ExhaustedError struct {
	Domain    DataDomain
	Attempted int
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("all %d sources exhausted for domain %s", e.Attempted, e.Domain)
}
