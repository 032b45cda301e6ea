package protocol

import (
	"encoding/binary"
	"fmt"
)

// VariablesSize is the size of the variables blob.
const VariablesSize = 0x3D

// Variable offsets.
const (
	VarInput                      = 0x00
	VarTarget                     = 0x02
	VarFeedback                   = 0x04
	VarScaledFeedback             = 0x06
	VarIntegral                   = 0x08
	VarDutyCycleTarget            = 0x0A
	VarDutyCycle                  = 0x0C
	VarCurrentLowRes              = 0x0E
	VarPIDPeriodExceeded          = 0x0F
	VarPIDPeriodCount             = 0x10
	VarErrorFlagsHalting          = 0x12
	VarErrorFlagsOccurred         = 0x14
	VarForceMode                  = 0x16
	VarVINVoltage                 = 0x17
	VarCurrent                    = 0x19
	VarDeviceReset                = 0x1B
	VarUpTime                     = 0x1C
	VarRCPulseWidth               = 0x20
	VarFBTReading                 = 0x22
	VarRawCurrent                 = 0x24
	VarEncodedHardCurrentLimit    = 0x26
	VarLastDutyCycle              = 0x28
	VarCurrentChoppingConsecutive = 0x2A
	VarCurrentChoppingOccurrence  = 0x2B
	VarAnalogReadings             = 0x2C
	VarDigitalReadings            = 0x3C
)

// PinCount is the number of pins reported in the readings fields.
const PinCount = 8

// Variables is a snapshot of the controller's runtime state.
type Variables struct {
	Input                      uint16
	Target                     uint16
	Feedback                   uint16
	ScaledFeedback             uint16
	Integral                   int16
	DutyCycleTarget            int16
	DutyCycle                  int16
	CurrentLowRes              uint8
	PIDPeriodExceeded          bool
	PIDPeriodCount             uint16
	ErrorFlagsHalting          uint16
	ErrorFlagsOccurred         uint16
	ForceMode                  uint8
	VINVoltage                 uint16 // mV
	Current                    uint16 // mA
	DeviceReset                uint8
	UpTime                     uint32 // ms
	RCPulseWidth               uint16 // 1/12 us
	FBTReading                 uint16
	RawCurrent                 uint16
	EncodedHardCurrentLimit    uint16
	LastDutyCycle              int16
	CurrentChoppingConsecutive uint8
	CurrentChoppingOccurrence  uint8
	AnalogReadings             [PinCount]uint16
	DigitalReadings            uint8
}

// DigitalReading reports the logic level seen on pin.
func (v *Variables) DigitalReading(pin int) bool {
	return v.DigitalReadings>>uint(pin)&1 != 0
}

// DecodeVariables parses a variables blob.
func DecodeVariables(buf []byte) (Variables, error) {
	if len(buf) < VariablesSize {
		return Variables{}, fmt.Errorf("variables blob too short: got %d bytes, want %d", len(buf), VariablesSize)
	}
	le := binary.LittleEndian
	u16 := func(off int) uint16 { return le.Uint16(buf[off:]) }

	v := Variables{
		Input:                      u16(VarInput),
		Target:                     u16(VarTarget),
		Feedback:                   u16(VarFeedback),
		ScaledFeedback:             u16(VarScaledFeedback),
		Integral:                   int16(u16(VarIntegral)),
		DutyCycleTarget:            int16(u16(VarDutyCycleTarget)),
		DutyCycle:                  int16(u16(VarDutyCycle)),
		CurrentLowRes:              buf[VarCurrentLowRes],
		PIDPeriodExceeded:          buf[VarPIDPeriodExceeded] != 0,
		PIDPeriodCount:             u16(VarPIDPeriodCount),
		ErrorFlagsHalting:          u16(VarErrorFlagsHalting),
		ErrorFlagsOccurred:         u16(VarErrorFlagsOccurred),
		ForceMode:                  buf[VarForceMode],
		VINVoltage:                 u16(VarVINVoltage),
		Current:                    u16(VarCurrent),
		DeviceReset:                buf[VarDeviceReset],
		UpTime:                     le.Uint32(buf[VarUpTime:]),
		RCPulseWidth:               u16(VarRCPulseWidth),
		FBTReading:                 u16(VarFBTReading),
		RawCurrent:                 u16(VarRawCurrent),
		EncodedHardCurrentLimit:    u16(VarEncodedHardCurrentLimit),
		LastDutyCycle:              int16(u16(VarLastDutyCycle)),
		CurrentChoppingConsecutive: buf[VarCurrentChoppingConsecutive],
		CurrentChoppingOccurrence:  buf[VarCurrentChoppingOccurrence],
		DigitalReadings:            buf[VarDigitalReadings],
	}
	for i := range v.AnalogReadings {
		v.AnalogReadings[i] = u16(VarAnalogReadings + 2*i)
	}
	return v, nil
}

// EncodeVariables serializes v in the device layout.
func EncodeVariables(v Variables) [VariablesSize]byte {
	var buf [VariablesSize]byte
	le := binary.LittleEndian
	put := func(off int, x uint16) { le.PutUint16(buf[off:], x) }

	put(VarInput, v.Input)
	put(VarTarget, v.Target)
	put(VarFeedback, v.Feedback)
	put(VarScaledFeedback, v.ScaledFeedback)
	put(VarIntegral, uint16(v.Integral))
	put(VarDutyCycleTarget, uint16(v.DutyCycleTarget))
	put(VarDutyCycle, uint16(v.DutyCycle))
	buf[VarCurrentLowRes] = v.CurrentLowRes
	if v.PIDPeriodExceeded {
		buf[VarPIDPeriodExceeded] = 1
	}
	put(VarPIDPeriodCount, v.PIDPeriodCount)
	put(VarErrorFlagsHalting, v.ErrorFlagsHalting)
	put(VarErrorFlagsOccurred, v.ErrorFlagsOccurred)
	buf[VarForceMode] = v.ForceMode
	put(VarVINVoltage, v.VINVoltage)
	put(VarCurrent, v.Current)
	buf[VarDeviceReset] = v.DeviceReset
	le.PutUint32(buf[VarUpTime:], v.UpTime)
	put(VarRCPulseWidth, v.RCPulseWidth)
	put(VarFBTReading, v.FBTReading)
	put(VarRawCurrent, v.RawCurrent)
	put(VarEncodedHardCurrentLimit, v.EncodedHardCurrentLimit)
	put(VarLastDutyCycle, uint16(v.LastDutyCycle))
	buf[VarCurrentChoppingConsecutive] = v.CurrentChoppingConsecutive
	buf[VarCurrentChoppingOccurrence] = v.CurrentChoppingOccurrence
	for i, r := range v.AnalogReadings {
		put(VarAnalogReadings+2*i, r)
	}
	buf[VarDigitalReadings] = v.DigitalReadings
	return buf
}
