package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/OpenTraceLab/motorctl/pkg/bootloader"
	"github.com/OpenTraceLab/motorctl/pkg/device"
	"github.com/OpenTraceLab/motorctl/pkg/names"
	"github.com/OpenTraceLab/motorctl/pkg/sim"
	"github.com/OpenTraceLab/motorctl/pkg/trace"
	"github.com/OpenTraceLab/motorctl/pkg/transport"
)

const (
	bootloaderWait = 10 * time.Second
	bootloaderPoll = 250 * time.Millisecond
)

// tracedTransport records to a trace file it owns.
type tracedTransport struct {
	*trace.Recorder
	f *os.File
}

func (t *tracedTransport) Close() error {
	err := t.Recorder.Close()
	if rerr := t.Recorder.Err(); rerr != nil {
		logger.Warn("trace incomplete", "path", t.f.Name(), "err", rerr)
	}
	if ferr := t.f.Close(); err == nil {
		err = ferr
	}
	return err
}

// traced wraps t in a trace recorder when --trace is set. On failure t is
// closed.
func traced(t transport.Transport) (transport.Transport, error) {
	if cfg.Trace == "" {
		return t, nil
	}
	f, err := os.OpenFile(cfg.Trace, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		t.Close()
		return nil, fmt.Errorf("failed to open trace file: %w", err)
	}
	logger.Info("tracing transfers", "path", cfg.Trace)
	return &tracedTransport{Recorder: trace.NewRecorder(t, f), f: f}, nil
}

func simulatedProduct() (names.Product, error) {
	p, ok := names.ProductFromShortName(cfg.Simulate)
	if !ok {
		return names.ProductUnknown, fmt.Errorf("unknown product %q for --simulate", cfg.Simulate)
	}
	return p, nil
}

// choose picks the item whose serial number matches want, or the only item
// when want is empty.
func choose[T any](items []T, serialOf func(T) string, want, what string) (T, error) {
	var zero T
	if want != "" {
		for _, it := range items {
			if serialOf(it) == want {
				return it, nil
			}
		}
		return zero, fmt.Errorf("no %s with serial number %s found", what, want)
	}
	switch len(items) {
	case 0:
		return zero, fmt.Errorf("no %s found", what)
	case 1:
		return items[0], nil
	}
	return zero, fmt.Errorf("%d %ss found, use --serial to pick one", len(items), what)
}

func listDevices(ctx context.Context) ([]device.Device, error) {
	if cfg.Simulate == "" {
		return device.List(ctx)
	}
	p, err := simulatedProduct()
	if err != nil {
		return nil, err
	}
	s := sim.NewDevice(p)
	info, _ := names.LookupProduct(p)
	return []device.Device{{
		Product:         p,
		VendorID:        names.VendorID,
		ProductID:       info.USBID,
		SerialNumber:    s.SerialNumber,
		OSID:            "simulated",
		FirmwareVersion: s.FirmwareVersion,
	}}, nil
}

// openDevice opens the controller selected by the global flags.
func openDevice(ctx context.Context) (*device.Handle, error) {
	devs, err := listDevices(ctx)
	if err != nil {
		return nil, err
	}
	d, err := choose(devs, func(d device.Device) string { return d.SerialNumber }, cfg.Serial, "device")
	if err != nil {
		return nil, err
	}

	var t transport.Transport
	if cfg.Simulate != "" {
		t = sim.NewDevice(d.Product)
	} else {
		usb, err := transport.OpenUSB(d.Info())
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", d.Name(), err)
		}
		t = usb
	}
	if t, err = traced(t); err != nil {
		return nil, err
	}
	logger.Info("device opened", "device", d.Name(), "serial", d.SerialNumber)
	return device.NewHandle(d, t, device.WithLogger(logger)), nil
}

func simGeometry(t bootloader.Type) sim.Geometry {
	return sim.Geometry{
		AppAddress:             t.AppAddress,
		AppSize:                t.AppSize,
		WriteBlockSize:         t.WriteBlockSize,
		EEPROMAddress:          t.EEPROMAddress,
		EEPROMSize:             t.EEPROMSize,
		SupportsReadingFlash:   t.SupportsReadingFlash,
		EraseFlashErasesEEPROM: t.EraseFlashErasesEEPROM,
	}
}

func listBootloaders(ctx context.Context) ([]bootloader.Device, error) {
	if cfg.Simulate == "" {
		return bootloader.List(ctx)
	}
	// A simulated controller only enters its bootloader on request.
	return nil, nil
}

// openBootloader returns a session with the selected device's bootloader,
// asking the application firmware to start it first when needed.
func openBootloader(ctx context.Context) (*bootloader.Handle, error) {
	opts := []bootloader.Option{bootloader.WithLogger(logger)}
	serialOf := func(d bootloader.Device) string { return d.SerialNumber }

	boots, err := listBootloaders(ctx)
	if err != nil {
		return nil, err
	}
	if b, err := choose(boots, serialOf, cfg.Serial, "bootloader"); err == nil {
		return openBootloaderDevice(b, opts)
	}

	h, err := openDevice(ctx)
	if err != nil {
		return nil, err
	}
	d := h.Device()
	err = h.StartBootloader()
	h.Close()
	if err != nil && !transport.IsKind(err, transport.KindDisconnected) {
		return nil, err
	}

	if cfg.Simulate != "" {
		typ, ok := bootloader.TypeForProduct(d.Product)
		if !ok {
			return nil, fmt.Errorf("no bootloader known for %s", d.Name())
		}
		b := sim.NewBootloader(simGeometry(typ))
		b.ExpectedDeviceCode = typ.DeviceCode
		t, err := traced(b)
		if err != nil {
			return nil, err
		}
		return bootloader.NewHandle(typ, t, opts...), nil
	}

	deadline := time.Now().Add(bootloaderWait)
	for time.Now().Before(deadline) {
		time.Sleep(bootloaderPoll)
		boots, err := bootloader.List(ctx)
		if err != nil {
			return nil, err
		}
		if b, err := choose(boots, serialOf, d.SerialNumber, "bootloader"); err == nil {
			return openBootloaderDevice(b, opts)
		}
	}
	return nil, errors.New("timed out waiting for the bootloader to appear")
}

func openBootloaderDevice(b bootloader.Device, opts []bootloader.Option) (*bootloader.Handle, error) {
	usb, err := transport.OpenUSB(b.Info())
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", b.Type.Name, err)
	}
	t, err := traced(usb)
	if err != nil {
		return nil, err
	}
	logger.Info("bootloader opened", "type", b.Type.Name, "serial", b.SerialNumber)
	return bootloader.NewHandle(b.Type, t, opts...), nil
}
