package maps

import (
	"context"
	"log"
	"math"
	"sync"
	"time"

	"github.com/joeblew999/plat-parcel/pkg/gursclient"
)

// defaultDebounce is how long the view must stay quiet before a write.
const defaultDebounce = 1500 * time.Millisecond

// StateWriter persists a session's view state. Best effort; the persister
// logs and drops failures.
type StateWriter interface {
	SaveMapState(ctx context.Context, sessionID string, state gursclient.ViewState) error
}

// Persister observes view changes and writes center/zoom to the backend
// after a quiet period. Every view change cancels the pending timer and
// schedules a new one, so a burst of pan/zoom events collapses into one
// write (last-write-wins, not accumulation).
type Persister struct {
	client    StateWriter
	sessionID string
	delay     time.Duration

	mu      sync.Mutex
	pending *time.Timer
	latest  gursclient.ViewState
	closed  bool
	writes  sync.WaitGroup
}

// NewPersister creates a persister for one session. A non-positive delay
// gets the default 1.5s.
func NewPersister(client StateWriter, sessionID string, delay time.Duration) *Persister {
	if delay <= 0 {
		delay = defaultDebounce
	}
	return &Persister{client: client, sessionID: sessionID, delay: delay}
}

// ViewChanged records the newest state and restarts the debounce timer.
func (p *Persister) ViewChanged(state gursclient.ViewState) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.latest = state
	if p.pending != nil && p.pending.Stop() {
		p.writes.Done()
	}
	p.writes.Add(1)
	p.pending = time.AfterFunc(p.delay, func() {
		defer p.writes.Done()
		p.write()
	})
}

func (p *Persister) write() {
	p.mu.Lock()
	state := p.latest
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	rounded := gursclient.ViewState{
		CenterLon: math.Round(state.CenterLon*1e6) / 1e6,
		CenterLat: math.Round(state.CenterLat*1e6) / 1e6,
		Zoom:      state.Zoom,
	}
	if err := p.client.SaveMapState(ctx, p.sessionID, rounded); err != nil {
		// persistence is best-effort, never surfaced
		log.Printf("[persist] saving view state failed: %v", err)
	}
}

// Wait blocks until all scheduled writes have fired or been cancelled.
func (p *Persister) Wait() {
	p.writes.Wait()
}

// Close cancels any pending write. Safe to call more than once.
func (p *Persister) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	if p.pending != nil {
		if p.pending.Stop() {
			p.writes.Done()
		}
		p.pending = nil
	}
	p.mu.Unlock()
}
