// Package normalize converts raw provider payloads into canonical
// records. One registered function per source id; unknown ids fall
// back to a best-effort extractor probing common field names.
//
// A normalizer returning (nil, nil) is a soft miss: the payload parsed
// but held no usable data. The traversal engine treats that the same
// as a transport error, trying the next source.
package normalize

import (
	"time"

	"coinpanel/internal/domain"
)

type PriceFunc func(symbol string, raw []byte) (*domain.PriceQuote, error)

type NewsFunc func(raw []byte) ([]domain.NewsArticle, error)

type SentimentFunc func(raw []byte) (*domain.SentimentReading, error)

// Table maps source ids to their normalizers, resolved once at
// construction.
type Table struct {
	price     map[string]PriceFunc
	news      map[string]NewsFunc
	sentiment map[string]SentimentFunc
	now       func() time.Time
}

func NewTable() *Table {
	t := &Table{
		price:     make(map[string]PriceFunc),
		news:      make(map[string]NewsFunc),
		sentiment: make(map[string]SentimentFunc),
		now:       time.Now,
	}
	t.registerDefaults()
	return t
}

func (t *Table) registerDefaults() {
	t.price["coingecko"] = normalizeCoinGeckoPrice
	t.price["binance"] = normalizeBinancePrice
	t.price["coinbase"] = normalizeCoinbasePrice
	t.price["coincap"] = normalizeCoinCapPrice
	t.price["kraken"] = normalizeKrakenPrice
	t.price["coinpaprika"] = normalizeCoinPaprikaPrice
	t.price["cryptocompare"] = normalizeCryptoComparePrice
	t.price["bitfinex"] = normalizeBitfinexPrice
	t.price["okx"] = normalizeOKXPrice
	t.price["kucoin"] = normalizeKuCoinPrice
	t.price["coinmarketcap"] = normalizeCoinMarketCapPrice
	t.price["local-unified"] = normalizeLocalPrice
	t.price["local-ultimate"] = normalizeLocalPrice

	t.news["cryptocompare-news"] = normalizeCryptoCompareNews
	t.news["coinstats-news"] = normalizeCoinStatsNews
	t.news["cryptopanic"] = normalizeCryptoPanicNews
	t.news["reddit-crypto"] = normalizeRedditNews
	t.news["messari-news"] = normalizeMessariNews
	t.news["newsdata"] = normalizeNewsDataNews
	for _, id := range []string{"coindesk", "cointelegraph", "decrypt", "bitcoinmagazine", "theblock"} {
		t.news[id] = normalizeRSSJSONNews
	}

	t.sentiment["alternative-me"] = normalizeAlternativeMeSentiment
	t.sentiment["alternative-me-history"] = normalizeAlternativeMeSentiment
	t.sentiment["coinstats-insights"] = normalizeCoinStatsSentiment
	t.sentiment["coinmarketcap-fng"] = normalizeCoinMarketCapSentiment
}

// Price normalizes a raw price payload, stamping source id and
// observation time on the result.
func (t *Table) Price(sourceID, symbol string, raw []byte) (*domain.PriceQuote, error) {
	fn, ok := t.price[sourceID]
	if !ok {
		fn = genericPrice
	}
	quote, err := fn(symbol, raw)
	if err != nil || quote == nil {
		return nil, err
	}
	quote.Symbol = symbol
	quote.SourceID = sourceID
	if quote.ObservedAt.IsZero() {
		quote.ObservedAt = t.now().UTC()
	}
	return quote, nil
}

// News normalizes a raw news payload, stamping source id on every
// article.
func (t *Table) News(sourceID string, raw []byte) ([]domain.NewsArticle, error) {
	fn, ok := t.news[sourceID]
	if !ok {
		fn = genericNews
	}
	articles, err := fn(raw)
	if err != nil || len(articles) == 0 {
		return nil, err
	}
	for i := range articles {
		articles[i].SourceID = sourceID
		if articles[i].PublishedAt.IsZero() {
			articles[i].PublishedAt = t.now().UTC()
		}
	}
	return articles, nil
}

// Sentiment normalizes a raw sentiment payload, clamping the value and
// deriving the classification when the provider gives none.
func (t *Table) Sentiment(sourceID string, raw []byte) (*domain.SentimentReading, error) {
	fn, ok := t.sentiment[sourceID]
	if !ok {
		fn = genericSentiment
	}
	reading, err := fn(raw)
	if err != nil || reading == nil {
		return nil, err
	}
	reading.Value = domain.ClampSentiment(reading.Value)
	if reading.Classification == "" {
		reading.Classification = domain.ClassifySentiment(reading.Value)
	}
	reading.SourceID = sourceID
	if reading.ObservedAt.IsZero() {
		reading.ObservedAt = t.now().UTC()
	}
	return reading, nil
}
