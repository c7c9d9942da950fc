package hub

import (
	"strings"
	"sync"
	"time"
)

// RateLimiter coalesces output events that arrive within one interval into a
// single message stamped with the time of the first.
type RateLimiter struct {
	mu       sync.Mutex
	pending  *pendingOutput
	interval time.Duration
	onFlush  func(msg EventMessage)
}

type pendingOutput struct {
	texts []string
	time  float64
	timer *time.Timer
}

func NewRateLimiter(interval time.Duration, onFlush func(EventMessage)) *RateLimiter {
	return &RateLimiter{
		interval: interval,
		onFlush:  onFlush,
	}
}

func (r *RateLimiter) Add(msg EventMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.pending == nil {
		r.pending = &pendingOutput{time: msg.Time}
		r.pending.timer = time.AfterFunc(r.interval, r.FlushAll)
	}
	r.pending.texts = append(r.pending.texts, msg.Data)
}

// FlushAll emits whatever is pending. onFlush runs under the lock so that a
// timer flush cannot reorder with an explicit one.
func (r *RateLimiter) FlushAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	p := r.pending
	if p == nil {
		return
	}
	r.pending = nil
	p.timer.Stop()

	if r.onFlush != nil && len(p.texts) > 0 {
		r.onFlush(EventMessage{
			Type: "event",
			Time: p.time,
			Kind: "o",
			Data: strings.Join(p.texts, ""),
		})
	}
}
