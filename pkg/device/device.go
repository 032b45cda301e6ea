// Package device implements the command layer for controllers running their
// application firmware: discovery, settings transfer, motor commands, and
// status readout.
package device

import (
	"context"
	"errors"
	"fmt"

	"github.com/OpenTraceLab/motorctl/pkg/names"
	"github.com/OpenTraceLab/motorctl/pkg/transport"
)

var (
	// ErrTimeout is returned when the device does not finish an operation
	// within its deadline.
	ErrTimeout = errors.New("timed out")

	// ErrProductMismatch is returned when settings for one product are
	// written to another.
	ErrProductMismatch = errors.New("settings are for a different product")

	// ErrNotSupported is returned for requests the product cannot perform.
	ErrNotSupported = errors.New("not supported by this product")
)

// Device describes a controller found on the bus. It is a plain value and
// holds no resources.
type Device struct {
	Product         names.Product
	VendorID        uint16
	ProductID       uint16
	SerialNumber    string
	OSID            string
	FirmwareVersion uint16 // BCD

	info transport.Info
}

// FromInfo builds a Device from a discovered USB device.
func FromInfo(info transport.Info) Device {
	product, _ := names.ProductFromUSBID(info.ProductID)
	return Device{
		Product:         product,
		VendorID:        info.VendorID,
		ProductID:       info.ProductID,
		SerialNumber:    info.SerialNumber,
		OSID:            info.Path,
		FirmwareVersion: info.FirmwareVersion,
		info:            info,
	}
}

// Info returns the USB description the device was discovered with.
func (d Device) Info() transport.Info { return d.info }

// Name returns the product name, e.g. "Motor Controller G2 18v19".
func (d Device) Name() string {
	info, _ := names.LookupProduct(d.Product)
	return info.Name
}

// FirmwareVersionString formats the BCD firmware version as "1.05".
func (d Device) FirmwareVersionString() string {
	return fmt.Sprintf("%x.%02x", d.FirmwareVersion>>8, d.FirmwareVersion&0xFF)
}

// IsController reports whether vid/pid identify a controller in application
// mode.
func IsController(vid, pid uint16) bool {
	if vid != names.VendorID {
		return false
	}
	_, ok := names.ProductFromUSBID(pid)
	return ok
}

// List returns every connected controller in application mode.
func List(ctx context.Context) ([]Device, error) {
	infos, err := transport.Enumerate(ctx, IsController)
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}
	devs := make([]Device, 0, len(infos))
	for _, info := range infos {
		devs = append(devs, FromInfo(info))
	}
	return devs, nil
}

// Open opens a session with d over USB.
func Open(d Device, opts ...Option) (*Handle, error) {
	t, err := transport.OpenUSB(d.info)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", d.Name(), err)
	}
	return NewHandle(d, t, opts...), nil
}
