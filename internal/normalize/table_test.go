package normalize

import (
	"testing"
	"time"

	"coinpanel/internal/domain"
)

func newTestTable() *Table {
	t := NewTable()
	t.now = func() time.Time { return time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC) }
	return t
}

func TestPriceNormalizers(t *testing.T) {
	t.Parallel()

	tbl := newTestTable()
	cases := []struct {
		sourceID string
		raw      string
		want     float64
	}{
		{"coingecko", `{"bitcoin":{"usd":97000.5,"usd_24h_change":2.3,"usd_market_cap":1900000000}}`, 97000.5},
		{"binance", `{"lastPrice":"97001.10","priceChangePercent":"2.34"}`, 97001.10},
		{"coinbase", `{"data":{"amount":"97002.2","currency":"USD"}}`, 97002.2},
		{"coincap", `{"data":{"priceUsd":"97003.3","changePercent24Hr":"-1.2","marketCapUsd":"1.9e12"}}`, 97003.3},
		{"kraken", `{"result":{"XXBTZUSD":{"c":["97004.4","0.01"]}}}`, 97004.4},
		{"coinpaprika", `{"quotes":{"USD":{"price":97005.5,"percent_change_24h":0.5,"market_cap":1900000000}}}`, 97005.5},
		{"cryptocompare", `{"RAW":{"BTC":{"USD":{"PRICE":97006.6,"CHANGEPCT24HOUR":1.1,"MKTCAP":1900000000}}}}`, 97006.6},
		{"bitfinex", `[96000,10,96001,5,100,0.1,97007.7,1000,98000,95000]`, 97007.7},
		{"okx", `{"data":[{"last":"97008.8"}]}`, 97008.8},
		{"kucoin", `{"data":{"price":"97009.9"}}`, 97009.9},
		{"coinmarketcap", `{"data":{"BTC":{"quote":{"USD":{"price":97010.1,"percent_change_24h":3,"market_cap":1900000000}}}}}`, 97010.1},
		{"local-unified", `{"success":true,"data":{"price":97011.2,"change_24h":1.5}}`, 97011.2},
	}
	for _, tc := range cases {
		got, err := tbl.Price(tc.sourceID, "BTC", []byte(tc.raw))
		if err != nil {
			t.Errorf("%s: unexpected error: %v", tc.sourceID, err)
			continue
		}
		if got == nil {
			t.Errorf("%s: unexpected soft miss", tc.sourceID)
			continue
		}
		if got.PriceUSD != tc.want {
			t.Errorf("%s: price = %v, want %v", tc.sourceID, got.PriceUSD, tc.want)
		}
		if got.SourceID != tc.sourceID || got.Symbol != "BTC" {
			t.Errorf("%s: record not stamped: %+v", tc.sourceID, got)
		}
		if got.ObservedAt.IsZero() {
			t.Errorf("%s: missing observation time", tc.sourceID)
		}
	}
}

func TestPriceSoftMissOnEmptyPayload(t *testing.T) {
	t.Parallel()

	tbl := newTestTable()
	cases := map[string]string{
		"coingecko":     `{}`,
		"kraken":        `{"result":{}}`,
		"okx":           `{"data":[]}`,
		"local-unified": `{"success":false,"data":{}}`,
		"binance":       `{"lastPrice":"0"}`,
	}
	for sourceID, raw := range cases {
		got, err := tbl.Price(sourceID, "BTC", []byte(raw))
		if err != nil {
			t.Errorf("%s: soft miss must not error, got %v", sourceID, err)
		}
		if got != nil {
			t.Errorf("%s: expected soft miss, got %+v", sourceID, got)
		}
	}
}

func TestPriceUnknownSourceUsesGenericExtractor(t *testing.T) {
	t.Parallel()

	tbl := newTestTable()
	got, err := tbl.Price("brand-new-exchange", "ETH", []byte(`{"ticker":{"last":"3500.25"}}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil || got.PriceUSD != 3500.25 {
		t.Fatalf("generic extractor failed: %+v", got)
	}
	if got.SourceID != "brand-new-exchange" {
		t.Fatalf("record not stamped: %+v", got)
	}
}

func TestNewsNormalizers(t *testing.T) {
	t.Parallel()

	tbl := newTestTable()
	cases := []struct {
		sourceID  string
		raw       string
		wantTitle string
	}{
		{"cryptocompare-news", `{"Data":[{"title":"Bitcoin Hits $50K","url":"https://a/1","published_on":1700000000,"body":"big day"}]}`, "Bitcoin Hits $50K"},
		{"coinstats-news", `{"news":[{"title":"ETH Upgrade Live","link":"https://a/2","feedDate":1700000000000,"description":"merge"}]}`, "ETH Upgrade Live"},
		{"cryptopanic", `{"results":[{"title":"SOL Rallies","url":"https://a/3","published_at":"2026-08-01T10:00:00Z"}]}`, "SOL Rallies"},
		{"coindesk", `{"items":[{"title":"Markets Wrap","link":"https://a/4","pubDate":"2026-08-01 09:00:00","description":"<p>daily</p>"}]}`, "Markets Wrap"},
		{"reddit-crypto", `{"data":{"children":[{"data":{"title":"Discussion Thread","permalink":"/r/cc/1","created_utc":1700000000}}]}}`, "Discussion Thread"},
		{"messari-news", `{"data":[{"title":"Research Note","url":"https://a/5","published_at":"2026-08-01T08:00:00Z"}]}`, "Research Note"},
	}
	for _, tc := range cases {
		got, err := tbl.News(tc.sourceID, []byte(tc.raw))
		if err != nil {
			t.Errorf("%s: unexpected error: %v", tc.sourceID, err)
			continue
		}
		if len(got) != 1 {
			t.Errorf("%s: expected 1 article, got %d", tc.sourceID, len(got))
			continue
		}
		if got[0].Title != tc.wantTitle || got[0].SourceID != tc.sourceID {
			t.Errorf("%s: unexpected article %+v", tc.sourceID, got[0])
		}
	}
}

func TestNewsSkipsEntriesWithoutTitleOrLink(t *testing.T) {
	t.Parallel()

	tbl := newTestTable()
	raw := `{"items":[{"title":"","link":"https://a/1"},{"title":"No Link","link":""},{"title":"Good","link":"https://a/2"}]}`
	got, err := tbl.News("coindesk", []byte(raw))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].Title != "Good" {
		t.Fatalf("unexpected articles: %+v", got)
	}
}

func TestSentimentNormalizers(t *testing.T) {
	t.Parallel()

	tbl := newTestTable()
	got, err := tbl.Sentiment("alternative-me", []byte(`{"data":[{"value":"63","value_classification":"Greed","timestamp":"1771009800"}]}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Value != 63 || got.Classification != domain.Greed {
		t.Fatalf("unexpected reading: %+v", got)
	}
	if !got.ObservedAt.Equal(time.Unix(1771009800, 0).UTC()) {
		t.Fatalf("unexpected timestamp: %v", got.ObservedAt)
	}

	got, err = tbl.Sentiment("coinstats-insights", []byte(`{"now":{"value":54,"value_classification":"Neutral"}}`))
	if err != nil || got == nil || got.Value != 54 || got.Classification != domain.Neutral {
		t.Fatalf("coinstats: got %+v err %v", got, err)
	}
}

func TestSentimentClampAndDerivedClassification(t *testing.T) {
	t.Parallel()

	tbl := newTestTable()

	// provider value above scale, no classification supplied
	got, err := tbl.Sentiment("alternative-me", []byte(`{"data":[{"value":"130","value_classification":"","timestamp":"0"}]}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Value != 100 || got.Classification != domain.ExtremeGreed {
		t.Fatalf("expected clamp to 100/Extreme Greed, got %+v", got)
	}

	got, err = tbl.Sentiment("alternative-me", []byte(`{"data":[{"value":"-5","value_classification":"","timestamp":"0"}]}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Value != 0 || got.Classification != domain.ExtremeFear {
		t.Fatalf("expected clamp to 0/Extreme Fear, got %+v", got)
	}
}

func TestSentimentUnknownSourceGenericProbe(t *testing.T) {
	t.Parallel()

	tbl := newTestTable()
	got, err := tbl.Sentiment("new-index", []byte(`{"data":{"score":"72"}}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil || got.Value != 72 || got.Classification != domain.Greed {
		t.Fatalf("unexpected reading: %+v", got)
	}
}

func TestSentimentSoftMissOnUnusablePayload(t *testing.T) {
	t.Parallel()

	tbl := newTestTable()
	for _, raw := range []string{`{"data":[]}`, `{"unrelated":true}`} {
		got, err := tbl.Sentiment("alternative-me", []byte(raw))
		if err != nil {
			t.Fatalf("soft miss must not error, got %v", err)
		}
		if got != nil {
			t.Fatalf("expected soft miss for %s, got %+v", raw, got)
		}
	}
}
