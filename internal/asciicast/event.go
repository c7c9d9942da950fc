package asciicast

import (
	"fmt"
	"time"
)

// EventKind is the single-character event code of a recording line.
type EventKind byte

const (
	KindInput  EventKind = 'i'
	KindOutput EventKind = 'o'
	KindMarker EventKind = 'm'
)

func (k EventKind) String() string {
	switch k {
	case KindInput:
		return "i"
	case KindOutput:
		return "o"
	case KindMarker:
		return "m"
	default:
		return fmt.Sprintf("EventKind(%d)", byte(k))
	}
}

// ParseEventKind maps a recording kind code back to an EventKind.
func ParseEventKind(code string) (EventKind, error) {
	switch code {
	case "i":
		return KindInput, nil
	case "o":
		return KindOutput, nil
	case "m":
		return KindMarker, nil
	default:
		return 0, fmt.Errorf("unknown event kind %q", code)
	}
}

// Event is one delta-encoded unit of a recording. Time is the delay since the
// previous event, never an absolute offset.
type Event struct {
	Time time.Duration
	Kind EventKind
	Data string
}

func Input(delta time.Duration, data string) Event {
	return Event{Time: delta, Kind: KindInput, Data: data}
}

func Output(delta time.Duration, data string) Event {
	return Event{Time: delta, Kind: KindOutput, Data: data}
}

// Outputln is an output event carrying a terminal line break.
func Outputln(delta time.Duration) Event {
	return Output(delta, "\r\n")
}

func Marker(delta time.Duration, label string) Event {
	return Event{Time: delta, Kind: KindMarker, Data: label}
}

// TotalDuration sums the deltas of events.
func TotalDuration(events []Event) time.Duration {
	var total time.Duration
	for _, ev := range events {
		total += ev.Time
	}
	return total
}
