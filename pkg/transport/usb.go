package transport

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/gousb"
)

const (
	requestTypeIn  = gousb.ControlIn | gousb.ControlVendor | gousb.ControlDevice
	requestTypeOut = gousb.ControlOut | gousb.ControlVendor | gousb.ControlDevice
)

// Info describes a discovered USB device.
type Info struct {
	VendorID        uint16
	ProductID       uint16
	SerialNumber    string
	FirmwareVersion uint16 // BCD, from bcdDevice
	Bus             int
	Address         int
	Path            string
}

// Label returns a short human-readable identifier.
func (i Info) Label() string {
	if i.SerialNumber != "" {
		return fmt.Sprintf("%04X:%04X #%s", i.VendorID, i.ProductID, i.SerialNumber)
	}
	return fmt.Sprintf("%04X:%04X at %s", i.VendorID, i.ProductID, i.Path)
}

// Enumerate lists connected devices accepted by match. Devices whose strings
// cannot be read for lack of permission are still reported.
func Enumerate(ctx context.Context, match func(vid, pid uint16) bool) ([]Info, error) {
	usb := gousb.NewContext()
	defer usb.Close()

	devs, err := usb.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		select {
		case <-ctx.Done():
			return false
		default:
		}
		return match(uint16(desc.Vendor), uint16(desc.Product))
	})
	defer func() {
		for _, d := range devs {
			d.Close()
		}
	}()
	if err != nil && !errors.Is(err, gousb.ErrorAccess) {
		return nil, classify("enumerate devices", err)
	}

	infos := make([]Info, 0, len(devs))
	for _, d := range devs {
		serial, _ := d.SerialNumber()
		infos = append(infos, infoFromDesc(d.Desc, serial))
	}
	return infos, ctx.Err()
}

func infoFromDesc(desc *gousb.DeviceDesc, serial string) Info {
	return Info{
		VendorID:        uint16(desc.Vendor),
		ProductID:       uint16(desc.Product),
		SerialNumber:    serial,
		FirmwareVersion: uint16(desc.Device),
		Bus:             desc.Bus,
		Address:         desc.Address,
		Path:            fmt.Sprintf("%d-%s", desc.Bus, formatPorts(desc.Path)),
	}
}

func formatPorts(path []int) string {
	if len(path) == 0 {
		return "0"
	}
	s := fmt.Sprint(path[0])
	for _, p := range path[1:] {
		s += fmt.Sprintf(".%d", p)
	}
	return s
}

// USB is a Transport backed by a libusb device handle.
type USB struct {
	ctx  *gousb.Context
	dev  *gousb.Device
	info Info
}

// OpenUSB opens the device described by info.
func OpenUSB(info Info) (*USB, error) {
	ctx := gousb.NewContext()

	devs, err := ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		return desc.Bus == info.Bus && desc.Address == info.Address &&
			uint16(desc.Vendor) == info.VendorID && uint16(desc.Product) == info.ProductID
	})
	if err != nil && len(devs) == 0 {
		ctx.Close()
		return nil, classify("open device", err)
	}
	if len(devs) == 0 {
		ctx.Close()
		return nil, &Error{Op: "open device", Kind: KindDisconnected,
			Err: fmt.Errorf("device %s not found", info.Label())}
	}
	for _, extra := range devs[1:] {
		extra.Close()
	}

	dev := devs[0]
	dev.ControlTimeout = DefaultTimeout
	return &USB{ctx: ctx, dev: dev, info: info}, nil
}

// Info returns the descriptor of the open device.
func (u *USB) Info() Info { return u.info }

// SetTimeout changes the per-transfer timeout.
func (u *USB) SetTimeout(d time.Duration) {
	u.dev.ControlTimeout = d
}

func (u *USB) Control(dir Direction, request uint8, value, index uint16, data []byte) (int, error) {
	if u.dev == nil {
		return 0, &Error{Op: "control transfer", Kind: KindDisconnected, Err: errors.New("transport closed")}
	}
	rType := uint8(requestTypeOut)
	if dir == In {
		rType = uint8(requestTypeIn)
	}
	n, err := u.dev.Control(rType, request, value, index, data)
	if err != nil {
		return n, classify(fmt.Sprintf("control transfer 0x%02X", request), err)
	}
	return n, nil
}

// Close releases the device and the libusb context. It is safe to call more
// than once.
func (u *USB) Close() error {
	var err error
	if u.dev != nil {
		err = u.dev.Close()
		u.dev = nil
	}
	if u.ctx != nil {
		if cerr := u.ctx.Close(); err == nil {
			err = cerr
		}
		u.ctx = nil
	}
	return err
}

// classify maps a libusb error onto a transport Error.
func classify(op string, err error) error {
	kind := KindOther
	switch {
	case errors.Is(err, gousb.ErrorPipe):
		kind = KindStall
	case errors.Is(err, gousb.ErrorTimeout):
		kind = KindTimeout
	case errors.Is(err, gousb.ErrorNoDevice), errors.Is(err, gousb.ErrorNotFound):
		kind = KindDisconnected
	case errors.Is(err, gousb.ErrorAccess):
		kind = KindAccessDenied
	}
	return &Error{Op: op, Kind: kind, Err: err}
}
