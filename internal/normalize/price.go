package normalize

import (
	"encoding/json"
	"fmt"
	"strconv"

	"coinpanel/internal/domain"
)

// number accepts providers that quote numerics as JSON strings.
type number float64

func (n *number) UnmarshalJSON(b []byte) error {
	s := string(b)
	if len(s) >= 2 && s[0] == '"' {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		s = str
	}
	if s == "" || s == "null" {
		*n = 0
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("parse numeric %q: %w", s, err)
	}
	*n = number(f)
	return nil
}

func quote(price, change, marketCap float64) *domain.PriceQuote {
	if price <= 0 {
		return nil // soft miss: parsed but no usable price
	}
	return &domain.PriceQuote{PriceUSD: price, Change24hPct: change, MarketCapUSD: marketCap}
}

// {"bitcoin":{"usd":97000,"usd_24h_change":2.3,"usd_market_cap":1.9e12}}
func normalizeCoinGeckoPrice(symbol string, raw []byte) (*domain.PriceQuote, error) {
	var payload map[string]map[string]float64
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("coingecko payload: %w", err)
	}
	for _, row := range payload {
		return quote(row["usd"], row["usd_24h_change"], row["usd_market_cap"]), nil
	}
	return nil, nil
}

// {"lastPrice":"97000.10","priceChangePercent":"2.34",...}
func normalizeBinancePrice(symbol string, raw []byte) (*domain.PriceQuote, error) {
	var payload struct {
		LastPrice          number `json:"lastPrice"`
		PriceChangePercent number `json:"priceChangePercent"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("binance payload: %w", err)
	}
	return quote(float64(payload.LastPrice), float64(payload.PriceChangePercent), 0), nil
}

// {"data":{"amount":"97000.10","currency":"USD"}}
func normalizeCoinbasePrice(symbol string, raw []byte) (*domain.PriceQuote, error) {
	var payload struct {
		Data struct {
			Amount number `json:"amount"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("coinbase payload: %w", err)
	}
	return quote(float64(payload.Data.Amount), 0, 0), nil
}

// {"data":{"priceUsd":"97000.1","changePercent24Hr":"2.3","marketCapUsd":"1.9e12"}}
func normalizeCoinCapPrice(symbol string, raw []byte) (*domain.PriceQuote, error) {
	var payload struct {
		Data struct {
			PriceUsd         number `json:"priceUsd"`
			ChangePercent24h number `json:"changePercent24Hr"`
			MarketCapUsd     number `json:"marketCapUsd"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("coincap payload: %w", err)
	}
	return quote(float64(payload.Data.PriceUsd), float64(payload.Data.ChangePercent24h), float64(payload.Data.MarketCapUsd)), nil
}

// {"result":{"XXBTZUSD":{"c":["97000.1","0.1"],...}}} — first result
// entry, c[0] is the last trade price.
func normalizeKrakenPrice(symbol string, raw []byte) (*domain.PriceQuote, error) {
	var payload struct {
		Result map[string]struct {
			C []number `json:"c"`
		} `json:"result"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("kraken payload: %w", err)
	}
	for _, row := range payload.Result {
		if len(row.C) == 0 {
			return nil, nil
		}
		return quote(float64(row.C[0]), 0, 0), nil
	}
	return nil, nil
}

// {"quotes":{"USD":{"price":97000.1,"percent_change_24h":2.3,"market_cap":1.9e12}}}
func normalizeCoinPaprikaPrice(symbol string, raw []byte) (*domain.PriceQuote, error) {
	var payload struct {
		Quotes struct {
			USD struct {
				Price           number `json:"price"`
				PercentChange24 number `json:"percent_change_24h"`
				MarketCap       number `json:"market_cap"`
			} `json:"USD"`
		} `json:"quotes"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("coinpaprika payload: %w", err)
	}
	usd := payload.Quotes.USD
	return quote(float64(usd.Price), float64(usd.PercentChange24), float64(usd.MarketCap)), nil
}

// {"RAW":{"BTC":{"USD":{"PRICE":97000.1,"CHANGEPCT24HOUR":2.3,"MKTCAP":1.9e12}}}}
func normalizeCryptoComparePrice(symbol string, raw []byte) (*domain.PriceQuote, error) {
	var payload struct {
		Raw map[string]map[string]struct {
			Price         number `json:"PRICE"`
			ChangePct24h  number `json:"CHANGEPCT24HOUR"`
			MarketCap     number `json:"MKTCAP"`
		} `json:"RAW"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("cryptocompare payload: %w", err)
	}
	row, ok := payload.Raw[symbol]["USD"]
	if !ok {
		return nil, nil
	}
	return quote(float64(row.Price), float64(row.ChangePct24h), float64(row.MarketCap)), nil
}

// Bitfinex tickers are positional arrays; index 6 is the last price.
func normalizeBitfinexPrice(symbol string, raw []byte) (*domain.PriceQuote, error) {
	var fields []number
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("bitfinex payload: %w", err)
	}
	if len(fields) < 7 {
		return nil, nil
	}
	return quote(float64(fields[6]), 0, 0), nil
}

// {"data":[{"last":"97000.1",...}]}
func normalizeOKXPrice(symbol string, raw []byte) (*domain.PriceQuote, error) {
	var payload struct {
		Data []struct {
			Last number `json:"last"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("okx payload: %w", err)
	}
	if len(payload.Data) == 0 {
		return nil, nil
	}
	return quote(float64(payload.Data[0].Last), 0, 0), nil
}

// {"data":{"price":"97000.1",...}}
func normalizeKuCoinPrice(symbol string, raw []byte) (*domain.PriceQuote, error) {
	var payload struct {
		Data struct {
			Price number `json:"price"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("kucoin payload: %w", err)
	}
	return quote(float64(payload.Data.Price), 0, 0), nil
}

// {"data":{"BTC":{"quote":{"USD":{"price":...,"percent_change_24h":...,"market_cap":...}}}}}
func normalizeCoinMarketCapPrice(symbol string, raw []byte) (*domain.PriceQuote, error) {
	var payload struct {
		Data map[string]struct {
			Quote struct {
				USD struct {
					Price           number `json:"price"`
					PercentChange24 number `json:"percent_change_24h"`
					MarketCap       number `json:"market_cap"`
				} `json:"USD"`
			} `json:"quote"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("coinmarketcap payload: %w", err)
	}
	row, ok := payload.Data[symbol]
	if !ok {
		return nil, nil
	}
	usd := row.Quote.USD
	return quote(float64(usd.Price), float64(usd.PercentChange24), float64(usd.MarketCap)), nil
}

// Backend surface: {"success":true,"data":{"price":...,"change_24h":...}}.
// Any non-success or empty body is a soft miss, never fatal.
func normalizeLocalPrice(symbol string, raw []byte) (*domain.PriceQuote, error) {
	var payload struct {
		Success bool `json:"success"`
		Data    struct {
			Price     number `json:"price"`
			Change24h number `json:"change_24h"`
			MarketCap number `json:"market_cap"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil || !payload.Success {
		return nil, nil
	}
	return quote(float64(payload.Data.Price), float64(payload.Data.Change24h), float64(payload.Data.MarketCap)), nil
}
