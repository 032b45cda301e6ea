// Package sim provides in-memory controllers and bootloaders that implement
// transport.Transport, for tests and for running the CLI without hardware.
package sim

import (
	"errors"
	"fmt"

	"github.com/OpenTraceLab/motorctl/pkg/transport"
)

// Request captures one control transfer issued to a simulator.
type Request struct {
	Dir     transport.Direction
	Request uint8
	Value   uint16
	Index   uint16
	Data    []byte // payload for Out transfers, nil for In
	Length  int    // len(data) as passed by the caller
}

// Hook lets a test override the response to any request. When handled is
// false the simulator processes the request normally.
type Hook func(req Request, data []byte) (n int, handled bool, err error)

var errStalled = errors.New("request stalled")

// Stall returns the error a real transport reports when the device stalls a
// request.
func Stall(request uint8) error {
	return &transport.Error{
		Op:   fmt.Sprintf("control transfer 0x%02X", request),
		Kind: transport.KindStall,
		Err:  errStalled,
	}
}

var errClosed = &transport.Error{Op: "control transfer", Kind: transport.KindDisconnected, Err: errors.New("simulator closed")}

// recorder holds the bookkeeping shared by the simulators.
type recorder struct {
	OnControl Hook

	requests []Request
	closes   int
}

// Requests returns a copy of every request issued so far.
func (r *recorder) Requests() []Request {
	return append([]Request(nil), r.requests...)
}

// RequestsOf returns the requests with the given code.
func (r *recorder) RequestsOf(code uint8) []Request {
	var out []Request
	for _, req := range r.requests {
		if req.Request == code {
			out = append(out, req)
		}
	}
	return out
}

// Closes reports how many times Close was called.
func (r *recorder) Closes() int { return r.closes }

func (r *recorder) record(dir transport.Direction, request uint8, value, index uint16, data []byte) Request {
	req := Request{Dir: dir, Request: request, Value: value, Index: index, Length: len(data)}
	if dir == transport.Out {
		req.Data = append([]byte(nil), data...)
	}
	r.requests = append(r.requests, req)
	return req
}

func (r *recorder) hook(req Request, data []byte) (int, bool, error) {
	if r.OnControl == nil {
		return 0, false, nil
	}
	return r.OnControl(req, data)
}
