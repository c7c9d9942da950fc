package asciicast

import "time"

// Version is the only recording format version this package reads and writes.
const Version = 2

// Header is the first line of a recording. Zero-valued optional fields are
// omitted from the encoded form.
type Header struct {
	Width         uint16
	Height        uint16
	Timestamp     time.Time
	Duration      *time.Duration
	IdleTimeLimit *float64
	Command       string
	Title         string
	Env           map[string]string
}

// Recording is a header plus its ordered event sequence.
type Recording struct {
	Header Header
	Events []Event
}
