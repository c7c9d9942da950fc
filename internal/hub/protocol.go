package hub

import (
	"maps"

	"github.com/user/scriptcast/internal/asciicast"
)

// HeaderMessage describes the recording being replayed. It is the first
// message every client receives.
type HeaderMessage struct {
	Type      string            `json:"type"`
	Width     uint16            `json:"width"`
	Height    uint16            `json:"height"`
	Timestamp int64             `json:"timestamp,omitempty"`
	Duration  float64           `json:"duration,omitempty"`
	Title     string            `json:"title,omitempty"`
	Command   string            `json:"command,omitempty"`
	Env       map[string]string `json:"env,omitempty"`
}

func newHeaderMessage(h asciicast.Header) HeaderMessage {
	msg := HeaderMessage{
		Type:    "header",
		Width:   h.Width,
		Height:  h.Height,
		Title:   h.Title,
		Command: h.Command,
		Env:     maps.Clone(h.Env),
	}
	if !h.Timestamp.IsZero() {
		msg.Timestamp = h.Timestamp.Unix()
	}
	if h.Duration != nil {
		msg.Duration = h.Duration.Seconds()
	}
	return msg
}

// EventMessage is one replayed event. Time is seconds since the start of the
// recording.
type EventMessage struct {
	Type string  `json:"type"`
	Time float64 `json:"time"`
	Kind string  `json:"kind"`
	Data string  `json:"data"`
}

type EndMessage struct {
	Type string `json:"type"`
}

type ErrorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// ClientMessage is sent by viewers. Type is "pause" or "resume".
type ClientMessage struct {
	Type string `json:"type"`
}
