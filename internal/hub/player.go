package hub

import (
	"context"
	"sync"
	"time"

	"github.com/user/scriptcast/internal/asciicast"
	"github.com/user/scriptcast/internal/clock"
)

// Player replays a recording through a hub in real time, scaled by speed.
type Player struct {
	hub   *Hub
	clock clock.Clock
	speed float64

	mu     sync.Mutex
	paused bool
	resume chan struct{}
}

func NewPlayer(h *Hub, c clock.Clock, speed float64) *Player {
	if c == nil {
		c = clock.Real()
	}
	if speed <= 0 {
		speed = 1
	}
	return &Player{hub: h, clock: c, speed: speed}
}

// Control handles a viewer "pause" or "resume" request.
func (p *Player) Control(action string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch action {
	case "pause":
		if !p.paused {
			p.paused = true
			p.resume = make(chan struct{})
		}
	case "resume":
		if p.paused {
			p.paused = false
			close(p.resume)
		}
	}
}

// Play broadcasts the header, then every event after its scaled delay, then
// an end message.
func (p *Player) Play(ctx context.Context, rec *asciicast.Recording) error {
	p.hub.SetHeader(rec.Header)

	var elapsed time.Duration
	for _, ev := range rec.Events {
		if err := p.sleep(ctx, p.scale(ev.Time)); err != nil {
			return err
		}
		if err := p.waitWhilePaused(ctx); err != nil {
			return err
		}
		elapsed += ev.Time
		p.hub.BroadcastEvent(EventMessage{
			Time: elapsed.Seconds(),
			Kind: ev.Kind.String(),
			Data: ev.Data,
		})
	}
	p.hub.BroadcastEnd()
	return nil
}

func (p *Player) scale(d time.Duration) time.Duration {
	return time.Duration(float64(d) / p.speed)
}

func (p *Player) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	select {
	case <-p.clock.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Player) waitWhilePaused(ctx context.Context) error {
	p.mu.Lock()
	paused, resume := p.paused, p.resume
	p.mu.Unlock()
	if !paused {
		return nil
	}
	select {
	case <-resume:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
