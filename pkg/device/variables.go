package device

import (
	"encoding/binary"
	"fmt"

	"github.com/OpenTraceLab/motorctl/pkg/protocol"
)

// Variables is a decoded snapshot of the device status.
type Variables = protocol.Variables

// Flags accepted by GetVariables and GetVariableSegment. The device clears
// the selected counters after reporting them.
const (
	ClearErrorsHalting  = protocol.GetVarsClearErrorsHalting
	ClearErrorsOccurred = protocol.GetVarsClearErrorsOccurred
	ClearChoppingCount  = protocol.GetVarsClearChoppingCount
)

// GetVariables reads the full variables blob.
func (h *Handle) GetVariables(flags uint16) (Variables, error) {
	var buf [protocol.VariablesSize]byte
	if err := h.readBlob("get variables", protocol.ReqGetVariables, flags, buf[:], 0, len(buf)); err != nil {
		return Variables{}, fmt.Errorf("failed to read variables: %w", err)
	}
	return protocol.DecodeVariables(buf[:])
}

// GetVariableSegment reads length bytes of the variables blob starting at
// offset in a single transfer.
func (h *Handle) GetVariableSegment(offset, length int, flags uint16) ([]byte, error) {
	if length <= 0 || length > protocol.MaxTransferSize || offset < 0 || offset+length > protocol.VariablesSize {
		return nil, fmt.Errorf("invalid variable segment %d+%d", offset, length)
	}
	buf := make([]byte, length)
	if err := h.readSegment("get variables", protocol.ReqGetVariables, flags, uint16(offset), buf); err != nil {
		return nil, fmt.Errorf("failed to read variables: %w", err)
	}
	return buf, nil
}

// ClearErrors clears the halting error flags and returns the ones that were
// set.
func (h *Handle) ClearErrors() (uint16, error) {
	b, err := h.GetVariableSegment(protocol.VarErrorFlagsHalting, 2, ClearErrorsHalting)
	if err != nil {
		return 0, fmt.Errorf("failed to clear errors: %w", err)
	}
	return binary.LittleEndian.Uint16(b), nil
}

// RunMotor clears the halting errors and sets the target to the value the
// device already had, in that order, so the motor resumes at its last
// target.
func (h *Handle) RunMotor() error {
	b, err := h.GetVariableSegment(protocol.VarTarget, 2, ClearErrorsHalting)
	if err != nil {
		return fmt.Errorf("failed to run motor: %w", err)
	}
	if err := h.SetTarget(binary.LittleEndian.Uint16(b)); err != nil {
		return fmt.Errorf("failed to run motor: %w", err)
	}
	return nil
}
