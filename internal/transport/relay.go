package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

// DefaultRelayEndpoints are public CORS relays tried in order. Each
// expects the target URL appended percent-encoded and may wrap the
// provider payload in a "contents" envelope.
var DefaultRelayEndpoints = []string{
	"https://api.allorigins.win/get?url=",
	"https://corsproxy.io/?",
	"https://api.codetabs.com/v1/proxy?quest=",
}

// Relay re-issues the logical request through an ordered list of relay
// endpoints, advancing to the next relay on failure. Attempts are
// bounded by the relay list length.
type Relay struct {
	relays []string
	inner  Invoker
}

func NewRelay(relays []string, inner Invoker) *Relay {
	if len(relays) == 0 {
		relays = DefaultRelayEndpoints
	}
	return &Relay{relays: relays, inner: inner}
}

func (r *Relay) Invoke(ctx context.Context, target string, headers map[string]string) ([]byte, error) {
	var lastErr error
	for _, relay := range r.relays {
		if err := ctx.Err(); err != nil {
			return nil, &Error{Kind: KindNetwork, URL: target, Err: err}
		}
		wrapped := relay + url.QueryEscape(target)
		body, err := r.inner.Invoke(ctx, wrapped, headers)
		if err != nil {
			lastErr = err
			continue
		}
		return unwrapEnvelope(body), nil
	}
	if lastErr == nil {
		lastErr = &Error{Kind: KindNetwork, URL: target, Err: fmt.Errorf("no relay endpoints configured")}
	}
	return nil, lastErr
}

// unwrapEnvelope recovers the original provider payload from a relay
// envelope. Some relays nest it under "contents" (as a JSON string or
// object); others return the payload as-is.
func unwrapEnvelope(body []byte) []byte {
	trimmed := strings.TrimSpace(string(body))
	if !strings.HasPrefix(trimmed, "{") {
		return body
	}
	var envelope struct {
		Contents json.RawMessage `json:"contents"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || len(envelope.Contents) == 0 {
		return body
	}
	// contents may itself be a JSON-encoded string holding the payload
	var inner string
	if err := json.Unmarshal(envelope.Contents, &inner); err == nil {
		return []byte(inner)
	}
	return envelope.Contents
}
