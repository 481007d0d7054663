package normalize

import (
	"encoding/json"
	"strconv"

	"coinpanel/internal/domain"
)

// Best-effort extraction for source ids with no registered normalizer.
// Probes common field names instead of failing closed; anything it
// cannot recover is a soft miss.

var priceFieldNames = []string{"price", "last", "lastPrice", "amount", "priceUsd", "price_usd", "usd", "rate", "value"}

var nestingFieldNames = []string{"data", "result", "ticker", "quote", "now"}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case string:
		if f, err := strconv.ParseFloat(n, 64); err == nil {
			return f, true
		}
	}
	return 0, false
}

func probeFloat(node map[string]any, names []string, depth int) (float64, bool) {
	for _, name := range names {
		if v, ok := node[name]; ok {
			if f, ok := asFloat(v); ok {
				return f, true
			}
		}
	}
	if depth <= 0 {
		return 0, false
	}
	for _, name := range nestingFieldNames {
		if child, ok := node[name].(map[string]any); ok {
			if f, ok := probeFloat(child, names, depth-1); ok {
				return f, true
			}
		}
	}
	return 0, false
}

func genericPrice(symbol string, raw []byte) (*domain.PriceQuote, error) {
	var node map[string]any
	if err := json.Unmarshal(raw, &node); err != nil {
		return nil, nil
	}
	price, ok := probeFloat(node, priceFieldNames, 2)
	if !ok || price <= 0 {
		return nil, nil
	}
	q := &domain.PriceQuote{PriceUSD: price}
	if change, ok := probeFloat(node, []string{"change_24h", "change24h", "priceChangePercent", "percent_change_24h", "changePercent24Hr"}, 2); ok {
		q.Change24hPct = change
	}
	return q, nil
}

func genericNews(raw []byte) ([]domain.NewsArticle, error) {
	var node map[string]any
	if err := json.Unmarshal(raw, &node); err != nil {
		return nil, nil
	}
	var rows []any
	for _, name := range []string{"items", "articles", "news", "results", "Data", "data", "posts"} {
		if list, ok := node[name].([]any); ok {
			rows = list
			break
		}
	}
	var out []domain.NewsArticle
	for _, row := range rows {
		entry, ok := row.(map[string]any)
		if !ok {
			continue
		}
		title, _ := entry["title"].(string)
		link, _ := entry["link"].(string)
		if link == "" {
			link, _ = entry["url"].(string)
		}
		summary, _ := entry["description"].(string)
		if summary == "" {
			summary, _ = entry["summary"].(string)
		}
		if a, ok := article(title, link, htmlStrip(summary), parseNewsDate(stringField(entry, "pubDate", "published_at", "publishedAt", "date"))); ok {
			out = append(out, a)
		}
	}
	return out, nil
}

func stringField(entry map[string]any, names ...string) string {
	for _, name := range names {
		if s, ok := entry[name].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

func genericSentiment(raw []byte) (*domain.SentimentReading, error) {
	var node map[string]any
	if err := json.Unmarshal(raw, &node); err != nil {
		return nil, nil
	}
	value, ok := probeFloat(node, []string{"value", "index", "score", "fgi", "fear_greed"}, 2)
	if !ok {
		return nil, nil
	}
	reading := &domain.SentimentReading{Value: int(value)}
	if cls := stringField(node, "value_classification", "classification", "sentiment"); cls != "" {
		reading.Classification = parseClassification(cls)
	}
	return reading, nil
}
