package registry

import (
	"fmt"
	"strings"

	"coinpanel/internal/domain"
)

// Per-provider asset identifiers for the supported symbols.
var (
	coinGeckoIDs = map[string]string{
		"BTC": "bitcoin", "ETH": "ethereum", "SOL": "solana", "XRP": "ripple",
		"ADA": "cardano", "DOGE": "dogecoin", "DOT": "polkadot", "LINK": "chainlink",
		"AVAX": "avalanche-2", "LTC": "litecoin",
	}
	coinCapIDs = map[string]string{
		"BTC": "bitcoin", "ETH": "ethereum", "SOL": "solana", "XRP": "xrp",
		"ADA": "cardano", "DOGE": "dogecoin", "DOT": "polkadot", "LINK": "chainlink",
		"AVAX": "avalanche", "LTC": "litecoin",
	}
	coinPaprikaIDs = map[string]string{
		"BTC": "btc-bitcoin", "ETH": "eth-ethereum", "SOL": "sol-solana", "XRP": "xrp-xrp",
		"ADA": "ada-cardano", "DOGE": "doge-dogecoin", "DOT": "dot-polkadot", "LINK": "link-chainlink",
		"AVAX": "avax-avalanche", "LTC": "ltc-litecoin",
	}
)

func staticHeaders(h map[string]string) func() map[string]string {
	if len(h) == 0 {
		return nil
	}
	return func() map[string]string { return h }
}

// defaultSources declares every provider the aggregator knows how to
// talk to. Priorities within a domain keep fallback deterministic;
// local backend sources sit last.
func defaultSources(opts Options) []Descriptor {
	backend := strings.TrimRight(opts.BackendBaseURL, "/")

	sources := []Descriptor{
		// ---- price ----
		{
			ID: "coingecko", DisplayName: "CoinGecko", Priority: 1, Domain: domain.DomainPrice,
			BuildURL: func(p Params) string {
				return fmt.Sprintf("https://api.coingecko.com/api/v3/simple/price?ids=%s&vs_currencies=usd&include_24hr_change=true&include_market_cap=true", coinGeckoIDs[p.Symbol])
			},
		},
		{
			ID: "binance", DisplayName: "Binance", Priority: 2, Domain: domain.DomainPrice,
			BuildURL: func(p Params) string {
				return fmt.Sprintf("https://api.binance.com/api/v3/ticker/24hr?symbol=%sUSDT", p.Symbol)
			},
		},
		{
			ID: "coinbase", DisplayName: "Coinbase", Priority: 3, Domain: domain.DomainPrice,
			BuildURL: func(p Params) string {
				return fmt.Sprintf("https://api.coinbase.com/v2/prices/%s-USD/spot", p.Symbol)
			},
		},
		{
			ID: "coincap", DisplayName: "CoinCap", Priority: 4, Domain: domain.DomainPrice,
			BuildURL: func(p Params) string {
				return fmt.Sprintf("https://api.coincap.io/v2/assets/%s", coinCapIDs[p.Symbol])
			},
		},
		{
			ID: "kraken", DisplayName: "Kraken", Priority: 5, Domain: domain.DomainPrice,
			BuildURL: func(p Params) string {
				return fmt.Sprintf("https://api.kraken.com/0/public/Ticker?pair=%sUSD", p.Symbol)
			},
		},
		{
			ID: "coinpaprika", DisplayName: "CoinPaprika", Priority: 6, Domain: domain.DomainPrice,
			BuildURL: func(p Params) string {
				return fmt.Sprintf("https://api.coinpaprika.com/v1/tickers/%s", coinPaprikaIDs[p.Symbol])
			},
		},
		{
			ID: "cryptocompare", DisplayName: "CryptoCompare", Priority: 7, Domain: domain.DomainPrice,
			BuildURL: func(p Params) string {
				return fmt.Sprintf("https://min-api.cryptocompare.com/data/pricemultifull?fsyms=%s&tsyms=USD", p.Symbol)
			},
			AuthHeaders: staticHeaders(map[string]string{"authorization": "Apikey " + opts.CryptoCompareKey}),
		},
		{
			ID: "bitstamp", DisplayName: "Bitstamp", Priority: 8, Domain: domain.DomainPrice,
			BuildURL: func(p Params) string {
				return fmt.Sprintf("https://www.bitstamp.net/api/v2/ticker/%susd/", strings.ToLower(p.Symbol))
			},
		},
		{
			ID: "gemini", DisplayName: "Gemini", Priority: 9, Domain: domain.DomainPrice,
			BuildURL: func(p Params) string {
				return fmt.Sprintf("https://api.gemini.com/v1/pubticker/%susd", strings.ToLower(p.Symbol))
			},
		},
		{
			ID: "bitfinex", DisplayName: "Bitfinex", Priority: 10, Domain: domain.DomainPrice,
			BuildURL: func(p Params) string {
				return fmt.Sprintf("https://api-pub.bitfinex.com/v2/ticker/t%sUSD", p.Symbol)
			},
		},
		{
			ID: "okx", DisplayName: "OKX", Priority: 11, RequiresRelay: true, Domain: domain.DomainPrice,
			BuildURL: func(p Params) string {
				return fmt.Sprintf("https://www.okx.com/api/v5/market/ticker?instId=%s-USDT", p.Symbol)
			},
		},
		{
			ID: "kucoin", DisplayName: "KuCoin", Priority: 12, RequiresRelay: true, Domain: domain.DomainPrice,
			BuildURL: func(p Params) string {
				return fmt.Sprintf("https://api.kucoin.com/api/v1/market/orderbook/level1?symbol=%s-USDT", p.Symbol)
			},
		},
		{
			ID: "coinmarketcap", DisplayName: "CoinMarketCap", Priority: 13, Domain: domain.DomainPrice,
			BuildURL: func(p Params) string {
				return fmt.Sprintf("https://pro-api.coinmarketcap.com/v1/cryptocurrency/quotes/latest?symbol=%s&convert=USD", p.Symbol)
			},
			AuthHeaders: staticHeaders(map[string]string{"X-CMC_PRO_API_KEY": opts.CoinMarketCapKey}),
		},
		{
			ID: "local-unified", DisplayName: "Local Backend (unified)", Priority: 14, Domain: domain.DomainPrice,
			BuildURL: func(p Params) string {
				return fmt.Sprintf("%s/api/resources/unified?symbol=%s", backend, p.Symbol)
			},
		},
		{
			ID: "local-ultimate", DisplayName: "Local Backend (ultimate)", Priority: 15, Domain: domain.DomainPrice,
			BuildURL: func(p Params) string {
				return fmt.Sprintf("%s/api/resources/ultimate?symbol=%s", backend, p.Symbol)
			},
		},

		// ---- news ----
		{
			ID: "cryptocompare-news", DisplayName: "CryptoCompare News", Priority: 1, Domain: domain.DomainNews,
			BuildURL: func(p Params) string {
				return "https://min-api.cryptocompare.com/data/v2/news/?lang=EN"
			},
			AuthHeaders: staticHeaders(map[string]string{"authorization": "Apikey " + opts.CryptoCompareKey}),
		},
		{
			ID: "coinstats-news", DisplayName: "CoinStats News", Priority: 2, Domain: domain.DomainNews,
			BuildURL: func(p Params) string {
				return fmt.Sprintf("https://api.coinstats.app/public/v1/news?skip=0&limit=%d", p.Limit)
			},
		},
		{
			ID: "cryptopanic", DisplayName: "CryptoPanic", Priority: 3, Domain: domain.DomainNews,
			BuildURL: func(p Params) string {
				return fmt.Sprintf("https://cryptopanic.com/api/v1/posts/?auth_token=%s&public=true", opts.CryptoPanicKey)
			},
		},
		{
			ID: "coindesk", DisplayName: "CoinDesk", Priority: 4, RequiresRelay: true, Domain: domain.DomainNews,
			BuildURL: func(p Params) string {
				return "https://api.rss2json.com/v1/api.json?rss_url=https%3A%2F%2Fwww.coindesk.com%2Farc%2Foutboundfeeds%2Frss%2F"
			},
		},
		{
			ID: "cointelegraph", DisplayName: "Cointelegraph", Priority: 5, RequiresRelay: true, Domain: domain.DomainNews,
			BuildURL: func(p Params) string {
				return "https://api.rss2json.com/v1/api.json?rss_url=https%3A%2F%2Fcointelegraph.com%2Frss"
			},
		},
		{
			ID: "decrypt", DisplayName: "Decrypt", Priority: 6, RequiresRelay: true, Domain: domain.DomainNews,
			BuildURL: func(p Params) string {
				return "https://api.rss2json.com/v1/api.json?rss_url=https%3A%2F%2Fdecrypt.co%2Ffeed"
			},
		},
		{
			ID: "bitcoinmagazine", DisplayName: "Bitcoin Magazine", Priority: 7, RequiresRelay: true, Domain: domain.DomainNews,
			BuildURL: func(p Params) string {
				return "https://api.rss2json.com/v1/api.json?rss_url=https%3A%2F%2Fbitcoinmagazine.com%2F.rss%2Ffull%2F"
			},
		},
		{
			ID: "reddit-crypto", DisplayName: "r/CryptoCurrency", Priority: 8, Domain: domain.DomainNews,
			BuildURL: func(p Params) string {
				return fmt.Sprintf("https://www.reddit.com/r/CryptoCurrency/hot.json?limit=%d", p.Limit)
			},
		},
		{
			ID: "messari-news", DisplayName: "Messari News", Priority: 9, Domain: domain.DomainNews,
			BuildURL: func(p Params) string {
				return "https://data.messari.io/api/v1/news"
			},
		},
		{
			ID: "newsdata", DisplayName: "NewsData", Priority: 10, Domain: domain.DomainNews,
			BuildURL: func(p Params) string {
				return fmt.Sprintf("https://newsdata.io/api/1/news?apikey=%s&q=cryptocurrency&language=en", opts.NewsDataKey)
			},
		},
		{
			ID: "theblock", DisplayName: "The Block", Priority: 11, RequiresRelay: true, Domain: domain.DomainNews,
			BuildURL: func(p Params) string {
				return "https://api.rss2json.com/v1/api.json?rss_url=https%3A%2F%2Fwww.theblock.co%2Frss.xml"
			},
		},
		{
			ID: "local-news", DisplayName: "Local Backend (news)", Priority: 12, Domain: domain.DomainNews,
			BuildURL: func(p Params) string {
				return fmt.Sprintf("%s/api/resources/unified?kind=news&limit=%d", backend, p.Limit)
			},
		},

		// ---- sentiment ----
		{
			ID: "alternative-me", DisplayName: "Alternative.me Fear & Greed", Priority: 1, Domain: domain.DomainSentiment,
			BuildURL: func(p Params) string {
				return "https://api.alternative.me/fng/?limit=1"
			},
		},
		{
			ID: "alternative-me-history", DisplayName: "Alternative.me (history)", Priority: 2, Domain: domain.DomainSentiment,
			BuildURL: func(p Params) string {
				return "https://api.alternative.me/fng/?limit=7"
			},
		},
		{
			ID: "cfgi", DisplayName: "CFGI", Priority: 3, RequiresRelay: true, Domain: domain.DomainSentiment,
			BuildURL: func(p Params) string {
				return "https://cfgi.io/api/fear-greed/latest"
			},
		},
		{
			ID: "coinstats-insights", DisplayName: "CoinStats Insights", Priority: 4, Domain: domain.DomainSentiment,
			BuildURL: func(p Params) string {
				return "https://api.coinstats.app/public/v1/insights/fear-and-greed"
			},
		},
		{
			ID: "bitdegree", DisplayName: "BitDegree", Priority: 5, RequiresRelay: true, Domain: domain.DomainSentiment,
			BuildURL: func(p Params) string {
				return "https://www.bitdegree.org/api/fear-and-greed-index"
			},
		},
		{
			ID: "blockchaincenter", DisplayName: "Blockchain Center", Priority: 6, RequiresRelay: true, Domain: domain.DomainSentiment,
			BuildURL: func(p Params) string {
				return "https://www.blockchaincenter.net/api/fear-and-greed"
			},
		},
		{
			ID: "cryptorank-sentiment", DisplayName: "CryptoRank", Priority: 7, Domain: domain.DomainSentiment,
			BuildURL: func(p Params) string {
				return "https://api.cryptorank.io/v0/widgets/fear-greed"
			},
		},
		{
			ID: "coinybubble", DisplayName: "CoinyBubble", Priority: 8, Domain: domain.DomainSentiment,
			BuildURL: func(p Params) string {
				return "https://api.coinybubble.com/v1/latest"
			},
		},
		{
			ID: "coinmarketcap-fng", DisplayName: "CoinMarketCap Fear & Greed", Priority: 9, Domain: domain.DomainSentiment,
			BuildURL: func(p Params) string {
				return "https://pro-api.coinmarketcap.com/v3/fear-and-greed/latest"
			},
			AuthHeaders: staticHeaders(map[string]string{"X-CMC_PRO_API_KEY": opts.CoinMarketCapKey}),
		},
		{
			ID: "local-sentiment", DisplayName: "Local Backend (sentiment)", Priority: 10, Domain: domain.DomainSentiment,
			BuildURL: func(p Params) string {
				return backend + "/api/resources/unified?kind=sentiment"
			},
		},
	}

	return sources
}
