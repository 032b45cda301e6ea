// Package trace records control transfers to a CBOR log and reads them
// back, for debugging device communication after the fact.
package trace

import (
	"fmt"
	"strings"
	"time"

	"github.com/OpenTraceLab/motorctl/pkg/transport"
)

// Event is one recorded control transfer. CBOR encoding uses integer keys.
type Event struct {
	Timestamp   time.Time           `cbor:"1,keyasint"`
	Direction   transport.Direction `cbor:"2,keyasint"`
	Request     uint8               `cbor:"3,keyasint"`
	Value       uint16              `cbor:"4,keyasint"`
	Index       uint16              `cbor:"5,keyasint"`
	Length      int                 `cbor:"6,keyasint"`
	Transferred int                 `cbor:"7,keyasint"`

	// Data is the payload sent for Out transfers and the bytes received
	// for In transfers.
	Data []byte `cbor:"8,keyasint,omitempty"`

	Error     string         `cbor:"9,keyasint,omitempty"`
	ErrorKind transport.Kind `cbor:"10,keyasint,omitempty"`
}

// Failed reports whether the transfer returned an error.
func (e Event) Failed() bool { return e.Error != "" }

// String formats the event as a single log line.
func (e Event) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %-3s req=0x%02X value=0x%04X index=0x%04X len=%d",
		e.Timestamp.Format("15:04:05.000000"), e.Direction, e.Request, e.Value, e.Index, e.Length)
	if e.Failed() {
		fmt.Fprintf(&b, " error=%q", e.Error)
		return b.String()
	}
	fmt.Fprintf(&b, " n=%d", e.Transferred)
	if len(e.Data) > 0 {
		fmt.Fprintf(&b, " data=% X", e.Data)
	}
	return b.String()
}
