package asciicast

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"time"
)

type wireHeader struct {
	Version       int               `json:"version"`
	Width         uint16            `json:"width"`
	Height        uint16            `json:"height"`
	Timestamp     *int64            `json:"timestamp"`
	Duration      *float64          `json:"duration"`
	IdleTimeLimit *float64          `json:"idle_time_limit"`
	Command       string            `json:"command"`
	Title         string            `json:"title"`
	Env           map[string]string `json:"env"`
}

// Read parses a recording, transparently decompressing zstd input.
func Read(r io.Reader) (*Recording, error) {
	br := bufio.NewReader(r)
	if magic, err := br.Peek(len(zstdMagic)); err == nil && bytes.Equal(magic, zstdMagic) {
		zr, err := newZstdReader(br)
		if err != nil {
			return nil, err
		}
		defer zr.Close()
		br = bufio.NewReader(zr)
	}

	line, err := readLine(br)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("asciicast: empty recording")
		}
		return nil, fmt.Errorf("asciicast: read header: %w", err)
	}
	header, err := decodeHeader(line)
	if err != nil {
		return nil, err
	}

	rec := &Recording{Header: header}
	for lineNum := 2; ; lineNum++ {
		line, err := readLine(br)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("asciicast: read line %d: %w", lineNum, err)
		}
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		ev, err := decodeEvent(line)
		if err != nil {
			return nil, fmt.Errorf("asciicast: line %d: %w", lineNum, err)
		}
		rec.Events = append(rec.Events, ev)
	}
	return rec, nil
}

func readLine(br *bufio.Reader) ([]byte, error) {
	line, err := br.ReadBytes('\n')
	if len(line) > 0 && (err == nil || errors.Is(err, io.EOF)) {
		return bytes.TrimRight(line, "\r\n"), nil
	}
	return nil, err
}

func decodeHeader(line []byte) (Header, error) {
	var wh wireHeader
	if err := json.Unmarshal(line, &wh); err != nil {
		return Header{}, fmt.Errorf("asciicast: decode header: %w", err)
	}
	if wh.Version != Version {
		return Header{}, fmt.Errorf("asciicast: unsupported version %d", wh.Version)
	}
	h := Header{
		Width:         wh.Width,
		Height:        wh.Height,
		IdleTimeLimit: wh.IdleTimeLimit,
		Command:       wh.Command,
		Title:         wh.Title,
		Env:           wh.Env,
	}
	if wh.Timestamp != nil {
		h.Timestamp = time.Unix(*wh.Timestamp, 0)
	}
	if wh.Duration != nil {
		d := secondsToDuration(*wh.Duration)
		h.Duration = &d
	}
	return h, nil
}

func decodeEvent(line []byte) (Event, error) {
	var fields []json.RawMessage
	if err := json.Unmarshal(line, &fields); err != nil {
		return Event{}, fmt.Errorf("decode event: %w", err)
	}
	if len(fields) != 3 {
		return Event{}, fmt.Errorf("decode event: want 3 elements, got %d", len(fields))
	}
	var (
		secs float64
		code string
		data string
	)
	if err := json.Unmarshal(fields[0], &secs); err != nil {
		return Event{}, fmt.Errorf("decode event time: %w", err)
	}
	if secs < 0 {
		return Event{}, fmt.Errorf("negative event time %f", secs)
	}
	if err := json.Unmarshal(fields[1], &code); err != nil {
		return Event{}, fmt.Errorf("decode event kind: %w", err)
	}
	kind, err := ParseEventKind(code)
	if err != nil {
		return Event{}, err
	}
	if err := json.Unmarshal(fields[2], &data); err != nil {
		return Event{}, fmt.Errorf("decode event data: %w", err)
	}
	return Event{Time: secondsToDuration(secs), Kind: kind, Data: data}, nil
}

// secondsToDuration rounds to whole microseconds, the precision of the
// six-decimal wire format.
func secondsToDuration(secs float64) time.Duration {
	return time.Duration(math.Round(secs*1e6)) * time.Microsecond
}
