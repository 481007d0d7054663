package transport

import (
	"context"
	"io"
	"net/http"
	"time"
)

// Direct issues the network call straight at the provider with a
// bounded per-call timeout.
type Direct struct {
	client  *http.Client
	timeout time.Duration
}

func NewDirect(timeout time.Duration) *Direct {
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	return &Direct{
		client:  &http.Client{Timeout: timeout},
		timeout: timeout,
	}
}

func (d *Direct) Invoke(ctx context.Context, url string, headers map[string]string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &Error{Kind: KindNetwork, URL: url, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, classify(url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return nil, &Error{Kind: KindHTTPStatus, Status: resp.StatusCode, URL: url}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classify(url, err)
	}
	return body, nil
}
