// Package proxy is the same-origin GET proxy for upstream GURS services.
// Browsers cannot call the WMS servers directly (no CORS), so tile and
// feature requests are funneled through here, gated by an allowlist and a
// shared token bucket.
package proxy

import (
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// Rate limit shared by all callers of the proxy. The upstream tolerates
// bursts but throttles sustained load.
const (
	bucketCapacity = 40
	refillPerSec   = 2.0
)

// TokenBucket is a monotonic-clock token bucket. Allow is safe for
// concurrent use.
type TokenBucket struct {
	mu       sync.Mutex
	capacity float64
	refill   float64
	tokens   float64
	last     time.Time
}

// NewTokenBucket creates a full bucket holding capacity tokens that refills
// at refillPerSec tokens per second.
func NewTokenBucket(capacity, refillPerSec float64) *TokenBucket {
	return &TokenBucket{
		capacity: capacity,
		refill:   refillPerSec,
		tokens:   capacity,
		last:     time.Now(),
	}
}

// Allow takes one token if available.
func (b *TokenBucket) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	b.tokens += now.Sub(b.last).Seconds() * b.refill
	if b.tokens > b.capacity {
		b.tokens = b.capacity
	}
	b.last = now

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// Handler proxies GET requests to allowlisted upstream URLs.
type Handler struct {
	allowed []string
	bucket  *TokenBucket
	client  *http.Client
}

// New creates a proxy that forwards only to URLs prefixed by one of the
// allowed base URLs.
func New(allowedBases []string) *Handler {
	return &Handler{
		allowed: allowedBases,
		bucket:  NewTokenBucket(bucketCapacity, refillPerSec),
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// ServeHTTP handles GET /gurs/proxy?url=<encoded upstream URL>. The
// upstream status, content type and body pass through unchanged; cache
// headers are added so the browser does not re-fetch identical tiles.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	raw := r.URL.Query().Get("url")
	if raw == "" {
		http.Error(w, "missing url parameter", http.StatusBadRequest)
		return
	}
	target, err := url.Parse(raw)
	if err != nil || (target.Scheme != "http" && target.Scheme != "https") {
		http.Error(w, "invalid url parameter", http.StatusBadRequest)
		return
	}
	if !h.allowedURL(raw) {
		log.Printf("[proxy] refused %s", target.Host)
		http.Error(w, "url not allowed", http.StatusBadRequest)
		return
	}

	if !h.bucket.Allow() {
		w.Header().Set("Retry-After", "1")
		http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
		return
	}

	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, raw, nil)
	if err != nil {
		http.Error(w, "invalid url parameter", http.StatusBadRequest)
		return
	}
	resp, err := h.client.Do(req)
	if err != nil {
		log.Printf("[proxy] upstream %s: %v", target.Host, err)
		http.Error(w, "upstream request failed", http.StatusBadGateway)
		return
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.WriteHeader(resp.StatusCode)
	if _, err := io.Copy(w, resp.Body); err != nil {
		log.Printf("[proxy] copy from %s: %v", target.Host, err)
	}
}

func (h *Handler) allowedURL(raw string) bool {
	for _, base := range h.allowed {
		if strings.HasPrefix(raw, base) {
			return true
		}
	}
	return false
}
