package trace

import (
	"errors"
	"io"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/OpenTraceLab/motorctl/pkg/transport"
)

// Recorder is a transport.Transport that forwards every transfer to
// another transport and appends an Event for it to a writer.
type Recorder struct {
	next transport.Transport
	enc  *cbor.Encoder
	now  func() time.Time

	mu     sync.Mutex
	err    error
	closed bool
}

// NewRecorder wraps next, logging to w. The Recorder does not close w.
func NewRecorder(next transport.Transport, w io.Writer) *Recorder {
	return &Recorder{
		next: next,
		enc:  encMode.NewEncoder(w),
		now:  time.Now,
	}
}

// Control forwards the transfer and records it.
func (r *Recorder) Control(dir transport.Direction, request uint8, value, index uint16, data []byte) (int, error) {
	start := r.now()
	n, err := r.next.Control(dir, request, value, index, data)

	ev := Event{
		Timestamp:   start,
		Direction:   dir,
		Request:     request,
		Value:       value,
		Index:       index,
		Length:      len(data),
		Transferred: n,
	}
	switch {
	case err != nil:
		ev.Error = err.Error()
		var terr *transport.Error
		if errors.As(err, &terr) {
			ev.ErrorKind = terr.Kind
		}
	case dir == transport.In:
		ev.Data = append([]byte(nil), data[:min(max(n, 0), len(data))]...)
	default:
		ev.Data = append([]byte(nil), data...)
	}
	r.record(ev)
	return n, err
}

func (r *Recorder) record(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || r.err != nil {
		return
	}
	// Only the first write error is kept; transfers go on regardless.
	r.err = r.enc.Encode(ev)
}

// Err returns the first error encountered writing the log.
func (r *Recorder) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// Close closes the wrapped transport. Later transfers are not recorded.
func (r *Recorder) Close() error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	return r.next.Close()
}
