package idempotency

import (
	"context"
	"log"
	"sync"
	"time"
)

const sweepTimeout = 30 * time.Second

// Reaper periodically purges expired idempotency records. It shares nothing
// with the request path except the Store; expired records are already
// invisible to claims, so the sweep only reclaims storage.
type Reaper struct {
	store    Store
	interval time.Duration

	mu   sync.Mutex // guards stop/done across Start/Stop callers
	stop chan struct{}
	done chan struct{}
}

func NewReaper(store Store, interval time.Duration) *Reaper {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Reaper{store: store, interval: interval}
}

// Start launches the sweep loop. Starting an already-running reaper is a
// no-op; Start and Stop are safe to call from multiple goroutines.
func (r *Reaper) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stop != nil {
		return
	}
	r.stop = make(chan struct{})
	r.done = make(chan struct{})
	go r.run(r.stop, r.done)
}

// Stop halts the loop and waits for any in-flight sweep to finish. Stopping
// an already-stopped reaper is a no-op.
func (r *Reaper) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stop == nil {
		return
	}
	close(r.stop)
	<-r.done
	r.stop = nil
	r.done = nil
}

func (r *Reaper) run(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			r.Sweep()
		case <-stop:
			return
		}
	}
}

// Sweep runs one purge pass and logs the removal count.
func (r *Reaper) Sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	removed, err := r.store.SweepExpired(ctx, time.Now().UTC())
	if err != nil {
		log.Printf("reaper: sweep failed: %v", err)
		return
	}
	if removed > 0 {
		log.Printf("reaper: removed %d expired idempotency records", removed)
	}
}
