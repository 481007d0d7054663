package normalize

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"coinpanel/internal/domain"
)

func article(title, link, summary string, published time.Time) (domain.NewsArticle, bool) {
	title = strings.TrimSpace(title)
	if title == "" || strings.TrimSpace(link) == "" {
		return domain.NewsArticle{}, false
	}
	return domain.NewsArticle{
		Title:       title,
		Link:        strings.TrimSpace(link),
		Summary:     strings.TrimSpace(summary),
		PublishedAt: published,
	}, true
}

func parseNewsDate(v string) time.Time {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}
	}
	layouts := []string{time.RFC3339, "2006-01-02 15:04:05", time.RFC1123Z, time.RFC1123}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

// {"Data":[{"title":...,"url":...,"published_on":1700000000,"body":...}]}
func normalizeCryptoCompareNews(raw []byte) ([]domain.NewsArticle, error) {
	var payload struct {
		Data []struct {
			Title       string `json:"title"`
			URL         string `json:"url"`
			PublishedOn int64  `json:"published_on"`
			Body        string `json:"body"`
		} `json:"Data"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("cryptocompare news payload: %w", err)
	}
	var out []domain.NewsArticle
	for _, row := range payload.Data {
		if a, ok := article(row.Title, row.URL, row.Body, time.Unix(row.PublishedOn, 0).UTC()); ok {
			out = append(out, a)
		}
	}
	return out, nil
}

// {"news":[{"title":...,"link":...,"feedDate":1700000000000,"description":...}]}
func normalizeCoinStatsNews(raw []byte) ([]domain.NewsArticle, error) {
	var payload struct {
		News []struct {
			Title       string `json:"title"`
			Link        string `json:"link"`
			FeedDate    int64  `json:"feedDate"`
			Description string `json:"description"`
		} `json:"news"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("coinstats news payload: %w", err)
	}
	var out []domain.NewsArticle
	for _, row := range payload.News {
		if a, ok := article(row.Title, row.Link, row.Description, time.UnixMilli(row.FeedDate).UTC()); ok {
			out = append(out, a)
		}
	}
	return out, nil
}

// {"results":[{"title":...,"url":...,"published_at":"2026-01-02T15:04:05Z"}]}
func normalizeCryptoPanicNews(raw []byte) ([]domain.NewsArticle, error) {
	var payload struct {
		Results []struct {
			Title       string `json:"title"`
			URL         string `json:"url"`
			PublishedAt string `json:"published_at"`
		} `json:"results"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("cryptopanic payload: %w", err)
	}
	var out []domain.NewsArticle
	for _, row := range payload.Results {
		if a, ok := article(row.Title, row.URL, "", parseNewsDate(row.PublishedAt)); ok {
			out = append(out, a)
		}
	}
	return out, nil
}

// rss2json envelope shared by the RSS-backed sources:
// {"items":[{"title":...,"link":...,"pubDate":"2026-01-02 15:04:05","description":...}]}
func normalizeRSSJSONNews(raw []byte) ([]domain.NewsArticle, error) {
	var payload struct {
		Items []struct {
			Title       string `json:"title"`
			Link        string `json:"link"`
			PubDate     string `json:"pubDate"`
			Description string `json:"description"`
		} `json:"items"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("rss2json payload: %w", err)
	}
	var out []domain.NewsArticle
	for _, row := range payload.Items {
		if a, ok := article(row.Title, row.Link, htmlStrip(row.Description), parseNewsDate(row.PubDate)); ok {
			out = append(out, a)
		}
	}
	return out, nil
}

// {"data":{"children":[{"data":{"title":...,"permalink":"/r/...","created_utc":1700000000}}]}}
func normalizeRedditNews(raw []byte) ([]domain.NewsArticle, error) {
	var payload struct {
		Data struct {
			Children []struct {
				Data struct {
					Title      string  `json:"title"`
					Permalink  string  `json:"permalink"`
					CreatedUTC float64 `json:"created_utc"`
					Stickied   bool    `json:"stickied"`
				} `json:"data"`
			} `json:"children"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("reddit payload: %w", err)
	}
	var out []domain.NewsArticle
	for _, child := range payload.Data.Children {
		row := child.Data
		if row.Stickied {
			continue
		}
		link := "https://www.reddit.com" + row.Permalink
		if a, ok := article(row.Title, link, "", time.Unix(int64(row.CreatedUTC), 0).UTC()); ok {
			out = append(out, a)
		}
	}
	return out, nil
}

// {"data":[{"title":...,"url":...,"published_at":"..."}]}
func normalizeMessariNews(raw []byte) ([]domain.NewsArticle, error) {
	var payload struct {
		Data []struct {
			Title       string `json:"title"`
			URL         string `json:"url"`
			PublishedAt string `json:"published_at"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("messari payload: %w", err)
	}
	var out []domain.NewsArticle
	for _, row := range payload.Data {
		if a, ok := article(row.Title, row.URL, "", parseNewsDate(row.PublishedAt)); ok {
			out = append(out, a)
		}
	}
	return out, nil
}

// {"results":[{"title":...,"link":...,"pubDate":"...","description":...}]}
func normalizeNewsDataNews(raw []byte) ([]domain.NewsArticle, error) {
	var payload struct {
		Results []struct {
			Title       string `json:"title"`
			Link        string `json:"link"`
			PubDate     string `json:"pubDate"`
			Description string `json:"description"`
		} `json:"results"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("newsdata payload: %w", err)
	}
	var out []domain.NewsArticle
	for _, row := range payload.Results {
		if a, ok := article(row.Title, row.Link, row.Description, parseNewsDate(row.PubDate)); ok {
			out = append(out, a)
		}
	}
	return out, nil
}

func htmlStrip(in string) string {
	if strings.TrimSpace(in) == "" {
		return ""
	}
	var b strings.Builder
	inside := false
	for _, r := range in {
		switch r {
		case '<':
			inside = true
			continue
		case '>':
			inside = false
			continue
		}
		if !inside {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}
