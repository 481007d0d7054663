package normalize

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"coinpanel/internal/domain"
)

// parseClassification maps provider classification spellings onto the
// five-band enum. Unknown spellings return "" so the table derives the
// band from the value instead.
func parseClassification(v string) domain.SentimentClass {
	switch strings.ToLower(strings.NewReplacer("-", " ", "_", " ").Replace(strings.TrimSpace(v))) {
	case "extreme fear":
		return domain.ExtremeFear
	case "fear":
		return domain.Fear
	case "neutral":
		return domain.Neutral
	case "greed":
		return domain.Greed
	case "extreme greed":
		return domain.ExtremeGreed
	default:
		return ""
	}
}

// {"data":[{"value":"63","value_classification":"Greed","timestamp":"1771009800"}]}
func normalizeAlternativeMeSentiment(raw []byte) (*domain.SentimentReading, error) {
	var payload struct {
		Data []struct {
			Value          string `json:"value"`
			Classification string `json:"value_classification"`
			Timestamp      string `json:"timestamp"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("alternative.me payload: %w", err)
	}
	if len(payload.Data) == 0 {
		return nil, nil
	}
	row := payload.Data[0]
	value, err := strconv.Atoi(strings.TrimSpace(row.Value))
	if err != nil {
		return nil, nil
	}
	reading := &domain.SentimentReading{
		Value:          value,
		Classification: parseClassification(row.Classification),
	}
	if ts, err := strconv.ParseInt(strings.TrimSpace(row.Timestamp), 10, 64); err == nil {
		if ts > 1_000_000_000_000 {
			ts /= 1000
		}
		reading.ObservedAt = time.Unix(ts, 0).UTC()
	}
	return reading, nil
}

// {"now":{"value":54,"value_classification":"Neutral"}}
func normalizeCoinStatsSentiment(raw []byte) (*domain.SentimentReading, error) {
	var payload struct {
		Now struct {
			Value          *int   `json:"value"`
			Classification string `json:"value_classification"`
		} `json:"now"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("coinstats sentiment payload: %w", err)
	}
	if payload.Now.Value == nil {
		return nil, nil
	}
	return &domain.SentimentReading{
		Value:          *payload.Now.Value,
		Classification: parseClassification(payload.Now.Classification),
	}, nil
}

// {"data":{"value":54,"value_classification":"Fear","update_time":"..."}}
func normalizeCoinMarketCapSentiment(raw []byte) (*domain.SentimentReading, error) {
	var payload struct {
		Data struct {
			Value          *int   `json:"value"`
			Classification string `json:"value_classification"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("coinmarketcap sentiment payload: %w", err)
	}
	if payload.Data.Value == nil {
		return nil, nil
	}
	return &domain.SentimentReading{
		Value:          *payload.Data.Value,
		Classification: parseClassification(payload.Data.Classification),
	}, nil
}
