package run

import (
	"time"

	"github.com/user/scriptcast/internal/asciicast"
)

// Fragment is what one instruction contributes to the timeline. Event times
// are deltas local to the fragment. Wait is time that belongs to whichever
// event comes next.
type Fragment struct {
	Events []asciicast.Event
	Wait   time.Duration
}

// Assemble joins fragments into the final event sequence: the initial prompt,
// every fragment in order, and a closing line break typeSpeed after the last
// event. Wait time is added to the first event of the next fragment that has
// any; wait time left at the end goes to the closing line break.
func Assemble(fragments []Fragment, prompt string, typeSpeed time.Duration) []asciicast.Event {
	size := 2
	for _, f := range fragments {
		size += len(f.Events)
	}
	events := make([]asciicast.Event, 0, size)
	events = append(events, asciicast.Output(0, prompt))

	var debt time.Duration
	for _, f := range fragments {
		debt += f.Wait
		if len(f.Events) == 0 {
			continue
		}
		first := len(events)
		events = append(events, f.Events...)
		events[first].Time += debt
		debt = 0
	}

	events = append(events, asciicast.Outputln(typeSpeed))
	events[len(events)-1].Time += debt
	return events
}
