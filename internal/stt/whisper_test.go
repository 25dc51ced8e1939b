package stt

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestWhisper_NoKey(t *testing.T) {
	calls := 0
	c := NewWhisperClient("", "whisper-1", "en")
	c.HTTPClient = &http.Client{Transport: roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		calls++
		return http.DefaultTransport.RoundTrip(req)
	})}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := c.Transcribe(ctx, []byte("audio")); err == nil {
		t.Fatalf("expected error with missing key")
	}
	if calls != 0 {
		t.Fatalf("expected no network call without key, got %d", calls)
	}
}

func TestWhisper_DecodesText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		if got := r.FormValue("model"); got != "whisper-1" {
			t.Errorf("expected model field, got %q", got)
		}
		if got := r.FormValue("language"); got != "en" {
			t.Errorf("expected language field, got %q", got)
		}
		if _, _, err := r.FormFile("file"); err != nil {
			t.Errorf("expected file part: %v", err)
		}
		w.WriteHeader(200)
		_, _ = w.Write([]byte(`{"text":"  what are your hours  "}`))
	}))
	defer srv.Close()

	c := NewWhisperClient("key", "whisper-1", "en")
	c.HTTPClient = &http.Client{Timeout: time.Second, Transport: roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		req.URL.Scheme = "http"
		req.URL.Host = srv.Listener.Addr().String()
		return http.DefaultTransport.RoundTrip(req)
	})}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	got, err := c.Transcribe(ctx, []byte("pcm"))
	if err != nil {
		t.Fatalf("transcribe: %v", err)
	}
	if got != "what are your hours" {
		t.Fatalf("expected trimmed transcript, got %q", got)
	}
}

func TestWhisper_HTTPFailures(t *testing.T) {
	cases := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"status_non_2xx", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(500); _, _ = w.Write([]byte("oops")) }},
		{"bad_json", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("not-json")) }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(tc.handler)
			defer srv.Close()
			c := NewWhisperClient("key", "whisper-1", "en")
			c.HTTPClient = &http.Client{Timeout: time.Second, Transport: roundTripperFunc(func(req *http.Request) (*http.Response, error) {
				req.URL.Scheme = "http"
				req.URL.Host = srv.Listener.Addr().String()
				return http.DefaultTransport.RoundTrip(req)
			})}
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			if _, err := c.Transcribe(ctx, []byte("pcm")); err == nil {
				t.Fatalf("expected error; got nil")
			}
		})
	}
}

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }
