// Package stream decodes the decomposition service's event stream into
// typed domain events. The wire format is newline-delimited text where
// only lines beginning with the "data:" prefix carry payload; everything
// else (comments, keep-alives) is ignored. The decoded sequence is
// finite, forward-only, and not restartable.
package stream

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

const dataPrefix = "data:"

// Event is one decoded unit from a streaming response.
type Event interface {
	streamEvent()
}

// Latency reports the server-measured decomposition latency.
type Latency struct {
	Millis int
}

// StepProduced carries one decomposed micro-win. Ordinal is the running
// position of the step within this stream, starting at 1. ID is the
// server-assigned step id, or the ordinal when the server omitted one.
type StepProduced struct {
	ID      int64
	Action  string
	Ordinal int
}

// SidebarTitleReady signals that the server has generated a title for
// the quest, so the sidebar list is worth refreshing.
type SidebarTitleReady struct{}

func (Latency) streamEvent()           {}
func (StepProduced) streamEvent()      {}
func (SidebarTitleReady) streamEvent() {}

// record is the structured payload of a single data line. Unknown
// fields are ignored so the protocol can grow without breaking older
// clients.
type record struct {
	LatencyMS    *float64        `json:"latency_ms"`
	CurrentStep  *recordStep     `json:"current_step"`
	SidebarTitle json.RawMessage `json:"sidebar_title"`
}

type recordStep struct {
	ID     int64  `json:"id"`
	Action string `json:"action"`
}

// Decoder lazily turns a byte stream into an ordered sequence of
// events. Chunk boundaries in the underlying reader are arbitrary; the
// decoder buffers until it sees a full line.
type Decoder struct {
	r       *bufio.Reader
	steps   int
	done    bool
	lastErr error
}

// NewDecoder wraps the raw byte channel of a streaming response.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: bufio.NewReader(r)}
}

// Next returns the next decoded event. It returns io.EOF when the
// underlying stream has completed, and a transport error if the stream
// broke mid-read. Malformed or unrecognized lines are skipped rather
// than surfaced: the stream is best-effort and one garbled record must
// not abort an otherwise successful decomposition.
func (d *Decoder) Next() (Event, error) {
	if d.done {
		if d.lastErr != nil {
			return nil, d.lastErr
		}
		return nil, io.EOF
	}

	for {
		line, err := d.r.ReadString('\n')
		if err != nil {
			d.done = true
			if err != io.EOF {
				d.lastErr = fmt.Errorf("reading stream: %w", err)
				return nil, d.lastErr
			}
			// A final unterminated line still counts.
			if ev := d.decodeLine(line); ev != nil {
				return ev, nil
			}
			return nil, io.EOF
		}

		if ev := d.decodeLine(line); ev != nil {
			return ev, nil
		}
	}
}

// decodeLine inspects a single line and returns its event, or nil when
// the line carries nothing.
func (d *Decoder) decodeLine(line string) Event {
	line = strings.TrimRight(line, "\r\n")
	if !strings.HasPrefix(line, dataPrefix) {
		return nil
	}
	payload := strings.TrimSpace(strings.TrimPrefix(line, dataPrefix))
	if payload == "" {
		return nil
	}

	var rec record
	if err := json.Unmarshal([]byte(payload), &rec); err != nil {
		return nil
	}

	switch {
	case rec.LatencyMS != nil:
		return Latency{Millis: int(*rec.LatencyMS)}

	case rec.CurrentStep != nil && rec.CurrentStep.Action != "":
		d.steps++
		id := rec.CurrentStep.ID
		if id == 0 {
			id = int64(d.steps)
		}
		return StepProduced{
			ID:      id,
			Action:  rec.CurrentStep.Action,
			Ordinal: d.steps,
		}

	case len(rec.SidebarTitle) > 0 && !bytes.Equal(rec.SidebarTitle, []byte("null")):
		return SidebarTitleReady{}

	default:
		return nil
	}
}
