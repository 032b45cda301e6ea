package bootloader

import (
	"errors"
	"fmt"

	"github.com/OpenTraceLab/motorctl/pkg/names"
)

// ErrNotSupported is returned for requests the bootloader variant cannot
// perform.
var ErrNotSupported = errors.New("not supported by this bootloader")

// DeviceError is an error code reported by the bootloader itself.
type DeviceError struct {
	Code        uint8
	Description string

	// Err is the transport error that led to the code being fetched, if
	// any.
	Err error
}

func newDeviceError(code uint8, cause error) *DeviceError {
	desc, _ := names.BootloaderErrorDescription(code)
	return &DeviceError{Code: code, Description: desc, Err: cause}
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("error code 0x%02X: %s", e.Code, e.Description)
}

func (e *DeviceError) Unwrap() error { return e.Err }
