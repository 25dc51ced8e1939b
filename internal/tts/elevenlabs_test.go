package tts

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
)

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func rewriteTo(ts *httptest.Server) *http.Client {
	u, _ := url.Parse(ts.URL)
	return &http.Client{Transport: roundTripperFunc(func(r *http.Request) (*http.Response, error) {
		r.URL.Scheme = u.Scheme
		r.URL.Host = u.Host
		return http.DefaultTransport.RoundTrip(r)
	})}
}

func TestElevenLabs_NoKey(t *testing.T) {
	calls := 0
	e := NewElevenLabsClient("", "voice")
	e.HTTPClient = &http.Client{Transport: roundTripperFunc(func(r *http.Request) (*http.Response, error) {
		calls++
		return nil, nil
	})}
	if _, err := e.Synthesize(context.Background(), "hello"); err == nil {
		t.Fatal("expected error when api key is missing")
	}
	if calls != 0 {
		t.Fatalf("expected no network calls without a key, got %d", calls)
	}
}

func TestElevenLabs_ReturnsClip(t *testing.T) {
	clip := []byte{0x01, 0x02, 0x03, 0x04}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("xi-api-key"); got != "key" {
			t.Errorf("unexpected api key header %q", got)
		}
		if got := r.URL.Query().Get("output_format"); got != "pcm_16000" {
			t.Errorf("unexpected output format %q", got)
		}
		w.Write(clip)
	}))
	defer ts.Close()

	e := NewElevenLabsClient("key", "voice")
	e.HTTPClient = rewriteTo(ts)
	pcm, err := e.Synthesize(context.Background(), "hello there")
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if !bytes.Equal(pcm, clip) {
		t.Fatalf("unexpected clip %v", pcm)
	}
}

func TestElevenLabs_HTTPFailure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer ts.Close()

	e := NewElevenLabsClient("key", "voice")
	e.HTTPClient = rewriteTo(ts)
	if _, err := e.Synthesize(context.Background(), "hello"); err == nil {
		t.Fatal("expected error")
	}
}
