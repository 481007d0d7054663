package transport

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(bytes.NewBufferString(body)),
		Header:     make(http.Header),
	}
}

func TestDirectInvokeSuccess(t *testing.T) {
	t.Parallel()

	d := NewDirect(5 * time.Second)
	d.client = &http.Client{Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
		if req.Header.Get("Accept") != "application/json" {
			t.Fatalf("missing accept header")
		}
		if req.Header.Get("X-Api-Key") != "k" {
			t.Fatalf("missing auth header")
		}
		return jsonResponse(http.StatusOK, `{"ok":true}`), nil
	})}

	body, err := d.Invoke(context.Background(), "https://example.com/data", map[string]string{"X-Api-Key": "k"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(body) != `{"ok":true}` {
		t.Fatalf("unexpected body: %s", body)
	}
}

func TestDirectInvokeHTTPStatus(t *testing.T) {
	t.Parallel()

	d := NewDirect(5 * time.Second)
	d.client = &http.Client{Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusTooManyRequests, `slow down`), nil
	})}

	_, err := d.Invoke(context.Background(), "https://example.com", nil)
	if err == nil {
		t.Fatal("expected error")
	}
	var te *Error
	if !errors.As(err, &te) {
		t.Fatalf("expected *Error, got %T", err)
	}
	if te.Kind != KindHTTPStatus || te.Status != http.StatusTooManyRequests {
		t.Fatalf("unexpected error: %+v", te)
	}
	if !IsRateLimited(err) {
		t.Fatal("expected rate-limited classification")
	}
}

func TestDirectInvokeTimeoutDistinct(t *testing.T) {
	t.Parallel()

	d := NewDirect(5 * time.Second)
	d.client = &http.Client{Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return nil, context.DeadlineExceeded
	})}

	_, err := d.Invoke(context.Background(), "https://example.com", nil)
	if !IsTimeout(err) {
		t.Fatalf("expected timeout classification, got %v", err)
	}
	if IsRateLimited(err) {
		t.Fatal("timeout must not classify as rate-limited")
	}
}

type fakeInvoker struct {
	calls  []string
	bodies map[string][]byte
	errs   map[string]error
}

func (f *fakeInvoker) Invoke(ctx context.Context, u string, headers map[string]string) ([]byte, error) {
	f.calls = append(f.calls, u)
	if err, ok := f.errs[u]; ok {
		return nil, err
	}
	return f.bodies[u], nil
}

func TestRelayAdvancesToNextRelay(t *testing.T) {
	t.Parallel()

	target := "https://blocked.example/api"
	first := "https://relay-a/get?url=" + url.QueryEscape(target)
	second := "https://relay-b/?" + url.QueryEscape(target)

	inner := &fakeInvoker{
		bodies: map[string][]byte{second: []byte(`{"price":1}`)},
		errs:   map[string]error{first: &Error{Kind: KindNetwork, URL: first}},
	}
	r := NewRelay([]string{"https://relay-a/get?url=", "https://relay-b/?"}, inner)

	body, err := r.Invoke(context.Background(), target, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(body) != `{"price":1}` {
		t.Fatalf("unexpected body: %s", body)
	}
	if len(inner.calls) != 2 {
		t.Fatalf("expected 2 relay attempts, got %d", len(inner.calls))
	}
}

func TestRelayExhaustsAllRelays(t *testing.T) {
	t.Parallel()

	target := "https://blocked.example/api"
	inner := &fakeInvoker{errs: map[string]error{}}
	relays := []string{"https://relay-a/?", "https://relay-b/?", "https://relay-c/?"}
	for _, rl := range relays {
		u := rl + url.QueryEscape(target)
		inner.errs[u] = &Error{Kind: KindNetwork, URL: u}
	}
	r := NewRelay(relays, inner)

	if _, err := r.Invoke(context.Background(), target, nil); err == nil {
		t.Fatal("expected error after all relays failed")
	}
	if len(inner.calls) != len(relays) {
		t.Fatalf("expected %d attempts, got %d", len(relays), len(inner.calls))
	}
}

func TestUnwrapEnvelope(t *testing.T) {
	t.Parallel()

	// contents as JSON-encoded string
	got := unwrapEnvelope([]byte(`{"contents":"{\"price\":42}","status":{"http_code":200}}`))
	if !strings.Contains(string(got), `"price":42`) {
		t.Fatalf("unexpected unwrap: %s", got)
	}

	// contents as raw object
	got = unwrapEnvelope([]byte(`{"contents":{"price":7}}`))
	if string(got) != `{"price":7}` {
		t.Fatalf("unexpected unwrap: %s", got)
	}

	// payload with no envelope passes through
	got = unwrapEnvelope([]byte(`{"price":9}`))
	if string(got) != `{"price":9}` {
		t.Fatalf("unexpected passthrough: %s", got)
	}
}
