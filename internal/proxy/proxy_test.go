package proxy

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
)

func TestTokenBucket(t *testing.T) {
	b := NewTokenBucket(3, 0)
	for i := 0; i < 3; i++ {
		if !b.Allow() {
			t.Fatalf("request %d refused with tokens left", i)
		}
	}
	if b.Allow() {
		t.Fatal("allowed past capacity with zero refill")
	}

	// refilling bucket recovers
	r := NewTokenBucket(1, 1000)
	r.Allow()
	if !r.Allow() {
		t.Fatal("fast refill did not recover a token")
	}
}

func TestProxyPassthrough(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("tile-bytes"))
	}))
	defer upstream.Close()

	h := New([]string{upstream.URL})
	req := httptest.NewRequest(http.MethodGet, "/gurs/proxy?url="+url.QueryEscape(upstream.URL+"/wms?REQUEST=GetMap"), nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
		t.Fatalf("content-type=%q", ct)
	}
	if cc := rec.Header().Get("Cache-Control"); cc == "" {
		t.Fatal("missing cache header")
	}
	body, _ := io.ReadAll(rec.Body)
	if string(body) != "tile-bytes" {
		t.Fatalf("body=%q", body)
	}
}

func TestProxyForwardsUpstreamStatus(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such layer", http.StatusNotFound)
	}))
	defer upstream.Close()

	h := New([]string{upstream.URL})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/gurs/proxy?url="+url.QueryEscape(upstream.URL), nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status=%d, want upstream 404 passed through", rec.Code)
	}
}

func TestProxyRejectsBadRequests(t *testing.T) {
	h := New([]string{"https://allowed.test/wms"})

	tests := []struct {
		name   string
		target string
		method string
		want   int
	}{
		{"missing url", "/gurs/proxy", http.MethodGet, http.StatusBadRequest},
		{"not allowlisted", "/gurs/proxy?url=" + url.QueryEscape("https://evil.test/x"), http.MethodGet, http.StatusBadRequest},
		{"bad scheme", "/gurs/proxy?url=" + url.QueryEscape("file:///etc/passwd"), http.MethodGet, http.StatusBadRequest},
		{"post", "/gurs/proxy?url=" + url.QueryEscape("https://allowed.test/wms"), http.MethodPost, http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.target, nil))
		if rec.Code != tt.want {
			t.Fatalf("%s: status=%d, want %d", tt.name, rec.Code, tt.want)
		}
	}
}

func TestProxyRateLimits(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer upstream.Close()

	h := New([]string{upstream.URL})
	target := "/gurs/proxy?url=" + url.QueryEscape(upstream.URL)

	limited := 0
	for i := 0; i < bucketCapacity+10; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
		if rec.Code == http.StatusTooManyRequests {
			limited++
			if ra := rec.Header().Get("Retry-After"); ra == "" {
				t.Fatal("missing Retry-After on 429")
			}
		}
	}
	if limited == 0 {
		t.Fatal("no request was rate limited past bucket capacity")
	}
}

func TestProxyBadGateway(t *testing.T) {
	// allowlisted but unreachable
	h := New([]string{"http://127.0.0.1:1"})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/gurs/proxy?url="+url.QueryEscape("http://127.0.0.1:1/wms"), nil))
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status=%d, want 502", rec.Code)
	}
}
