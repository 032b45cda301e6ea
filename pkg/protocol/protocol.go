// Package protocol holds the vendor request codes and wire layouts shared by
// the controller firmware, its bootloader, and the host-side packages.
package protocol

// MaxTransferSize is the largest data stage a single control transfer moves.
const MaxTransferSize = 64

// Application-mode vendor requests.
const (
	ReqReinitialize         = 0x10
	ReqSetEEPROMSettingByte = 0x13
	ReqGetDebugData         = 0x20
	ReqSetTarget            = 0x84
	ReqMotorOff             = 0x87
	ReqGetEEPROMSettings    = 0xE3
	ReqGetVariables         = 0xE5
	ReqSetRAMSettings       = 0xE6
	ReqGetRAMSettings       = 0xEA
	ReqForceDutyCycleTarget = 0xF2
	ReqForceDutyCycle       = 0xF4
	ReqStartBootloader      = 0xFF
)

// Flags carried in the value of a get-variables request.
const (
	GetVarsClearErrorsHalting  = 1 << 0
	GetVarsClearErrorsOccurred = 1 << 1
	GetVarsClearChoppingCount  = 1 << 2
)

// Bootloader vendor requests.
const (
	ReqBootInitialize    = 0x80
	ReqBootEraseFlash    = 0x81
	ReqBootWriteFlash    = 0x82
	ReqBootGetLastError  = 0x83
	ReqBootCheckApp      = 0x84
	ReqBootReadFlash     = 0x86
	ReqBootSetDeviceCode = 0x87
	ReqBootReadEEPROM    = 0x88
	ReqBootWriteEEPROM   = 0x89
	ReqBootRestart       = 0xFE
)

// RestartDelayMs is the delay the bootloader waits before resetting after a
// restart request.
const RestartDelayMs = 100

// Upload type values carried by the bootloader initialize request.
const (
	UploadTypeStandard       = 0
	UploadTypeDeviceSpecific = 1
	UploadTypePlain          = 2
)
