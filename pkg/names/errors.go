package names

import "strings"

// Error bits used in the error_enable/error_latch/error_hard settings and in
// the halting/occurred error flag variables.
const (
	ErrorAwaitingCommand    = 0
	ErrorNoPower            = 1
	ErrorMotorDriver        = 2
	ErrorInputInvalid       = 3
	ErrorInputDisconnect    = 4
	ErrorFeedbackDisconnect = 5
	ErrorSoftOvercurrent    = 6
	ErrorSerialSignal       = 7
	ErrorSerialOverrun      = 8
	ErrorSerialBufferFull   = 9
	ErrorSerialCRC          = 10
	ErrorSerialProtocol     = 11
	ErrorSerialTimeout      = 12
	ErrorHardOvercurrent    = 13
)

// ErrorCount is the number of defined error bits.
const ErrorCount = 14

var errorNames = Table{
	{ErrorAwaitingCommand, "awaiting_command"},
	{ErrorNoPower, "no_power"},
	{ErrorMotorDriver, "motor_driver"},
	{ErrorInputInvalid, "input_invalid"},
	{ErrorInputDisconnect, "input_disconnect"},
	{ErrorFeedbackDisconnect, "feedback_disconnect"},
	{ErrorSoftOvercurrent, "soft_overcurrent"},
	{ErrorSerialSignal, "serial_signal"},
	{ErrorSerialOverrun, "serial_overrun"},
	{ErrorSerialBufferFull, "serial_rx_buffer_full"},
	{ErrorSerialCRC, "serial_crc"},
	{ErrorSerialProtocol, "serial_protocol"},
	{ErrorSerialTimeout, "serial_timeout"},
	{ErrorHardOvercurrent, "hard_overcurrent"},
}

var errorDescriptions = map[uint16]string{
	ErrorAwaitingCommand:    "Awaiting command",
	ErrorNoPower:            "No power",
	ErrorMotorDriver:        "Motor driver error",
	ErrorInputInvalid:       "Input invalid",
	ErrorInputDisconnect:    "Input disconnect",
	ErrorFeedbackDisconnect: "Feedback disconnect",
	ErrorSoftOvercurrent:    "Soft overcurrent",
	ErrorSerialSignal:       "Serial signal error",
	ErrorSerialOverrun:      "Serial overrun",
	ErrorSerialBufferFull:   "Serial RX buffer full",
	ErrorSerialCRC:          "Serial CRC error",
	ErrorSerialProtocol:     "Serial protocol error",
	ErrorSerialTimeout:      "Serial timeout error",
	ErrorHardOvercurrent:    "Hard overcurrent",
}

// ErrorName returns the short name of an error bit, e.g. "no_power".
func ErrorName(bit uint16) string {
	n, _ := errorNames.Name(bit)
	return n
}

// ErrorDescription returns the human-readable description of an error bit.
func ErrorDescription(bit uint16) string {
	if d, ok := errorDescriptions[bit]; ok {
		return d
	}
	return Unknown
}

// ErrorBitFromName resolves a short error name.
func ErrorBitFromName(name string) (uint16, bool) {
	return errorNames.Code(name)
}

// ErrorFlagsString lists the names of all set bits in flags, separated by
// ", ". An empty mask yields "none".
func ErrorFlagsString(flags uint16) string {
	var parts []string
	for bit := uint16(0); bit < 16; bit++ {
		if flags&(1<<bit) == 0 {
			continue
		}
		parts = append(parts, ErrorName(bit))
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, ", ")
}

// Bootloader device-side error codes, as returned by the get-last-error
// request.
var bootloaderErrors = map[uint8]string{
	0x00: "No error.",
	0x01: "An unspecified error occurred.",
	0x02: "The length of the request was invalid.",
	0x03: "The bootloader is not in the right state for this request.",
	0x04: "The request was not recognized.",
	0x05: "The address is not aligned to a write block.",
	0x06: "Address is not in the correct range.",
	0x07: "The flash must be erased before it can be written.",
	0x08: "Writing to flash failed.",
	0x09: "Writing to EEPROM failed.",
	0x0A: "The upload type is not supported.",
	0x0B: "The device code does not match.",
	0x0C: "The application is not valid.",
}

// BootloaderErrorDescription translates a bootloader error code into its
// fixed description.
func BootloaderErrorDescription(code uint8) (string, bool) {
	d, ok := bootloaderErrors[code]
	if !ok {
		return "Unknown error code.", false
	}
	return d, true
}
