package trace

import (
	"errors"
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"

	"github.com/OpenTraceLab/motorctl/pkg/transport"
)

// Filter selects events. Nil or zero fields match everything.
type Filter struct {
	Request    *uint8
	Direction  *transport.Direction
	FailedOnly bool
}

func (f *Filter) matches(ev Event) bool {
	if f.Request != nil && ev.Request != *f.Request {
		return false
	}
	if f.Direction != nil && ev.Direction != *f.Direction {
		return false
	}
	if f.FailedOnly && !ev.Failed() {
		return false
	}
	return true
}

// Reader streams events from a trace log.
type Reader struct {
	dec    *cbor.Decoder
	filter Filter
}

// NewReader returns a Reader over every event in r.
func NewReader(r io.Reader) *Reader {
	return NewFilteredReader(r, Filter{})
}

// NewFilteredReader returns a Reader over the events in r that match f.
func NewFilteredReader(r io.Reader, f Filter) *Reader {
	return &Reader{dec: decMode.NewDecoder(r), filter: f}
}

// Next returns the next matching event, or io.EOF at the end of the log.
func (r *Reader) Next() (Event, error) {
	for {
		var ev Event
		if err := r.dec.Decode(&ev); err != nil {
			if errors.Is(err, io.EOF) {
				return Event{}, io.EOF
			}
			return Event{}, fmt.Errorf("failed to decode trace event: %w", err)
		}
		if r.filter.matches(ev) {
			return ev, nil
		}
	}
}

// ReadAll decodes every event in r.
func ReadAll(r io.Reader) ([]Event, error) {
	return ReadFiltered(r, Filter{})
}

// ReadFiltered decodes every event in r that matches f.
func ReadFiltered(r io.Reader, f Filter) ([]Event, error) {
	rd := NewFilteredReader(r, f)
	var events []Event
	for {
		ev, err := rd.Next()
		if err == io.EOF {
			return events, nil
		}
		if err != nil {
			return events, err
		}
		events = append(events, ev)
	}
}
