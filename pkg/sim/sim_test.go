package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OpenTraceLab/motorctl/pkg/names"
	"github.com/OpenTraceLab/motorctl/pkg/protocol"
	"github.com/OpenTraceLab/motorctl/pkg/settings"
	"github.com/OpenTraceLab/motorctl/pkg/transport"
)

func TestDeviceDefaults(t *testing.T) {
	d := NewDevice(names.Product24v21)
	assert.Equal(t, settings.Defaults(names.Product24v21), d.Settings())
	assert.Equal(t, d.EEPROM, d.RAM)
	assert.Equal(t, uint16(1<<names.ErrorAwaitingCommand), d.Variables.ErrorFlagsHalting)
}

func TestDeviceRecordsRequests(t *testing.T) {
	d := NewDevice(names.Product18v19)

	_, err := d.Control(transport.Out, protocol.ReqSetTarget, 3000, 0, nil)
	require.NoError(t, err)
	buf := make([]byte, 4)
	_, err = d.Control(transport.In, protocol.ReqGetVariables, 0, 0, buf)
	require.NoError(t, err)

	reqs := d.Requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, Request{Dir: transport.Out, Request: protocol.ReqSetTarget, Value: 3000}, reqs[0])
	assert.Nil(t, reqs[1].Data)
	assert.Equal(t, 4, reqs[1].Length)
	assert.Len(t, d.RequestsOf(protocol.ReqSetTarget), 1)

	assert.Equal(t, uint16(3000), d.Variables.Target)
	assert.Zero(t, d.Variables.ErrorFlagsHalting)
}

func TestDeviceHook(t *testing.T) {
	d := NewDevice(names.Product18v19)
	d.OnControl = func(req Request, data []byte) (int, bool, error) {
		if req.Request == protocol.ReqMotorOff {
			return 0, true, Stall(req.Request)
		}
		return 0, false, nil
	}

	_, err := d.Control(transport.Out, protocol.ReqMotorOff, 0, 0, nil)
	assert.True(t, transport.IsStall(err))
	assert.EqualError(t, err, "control transfer 0x87: request stalled")

	_, err = d.Control(transport.Out, protocol.ReqSetTarget, 100, 0, nil)
	assert.NoError(t, err)
}

func TestDeviceUnknownRequestStalls(t *testing.T) {
	d := NewDevice(names.Product18v19)
	_, err := d.Control(transport.Out, 0x55, 0, 0, nil)
	assert.True(t, transport.IsStall(err))
}

func TestDeviceClosed(t *testing.T) {
	d := NewDevice(names.Product18v19)
	require.NoError(t, d.Close())
	assert.Equal(t, 1, d.Closes())

	_, err := d.Control(transport.Out, protocol.ReqMotorOff, 0, 0, nil)
	assert.True(t, transport.IsKind(err, transport.KindDisconnected))
	assert.Empty(t, d.Requests())
}

func TestBootloaderWriteRequiresErase(t *testing.T) {
	b := NewBootloader(Geometry{AppAddress: 0x2000, AppSize: 0x100, WriteBlockSize: 64, EEPROMAddress: 0xF000, EEPROMSize: 16})

	_, err := b.Control(transport.Out, protocol.ReqBootInitialize, 0, 0, nil)
	require.NoError(t, err)
	_, err = b.Control(transport.Out, protocol.ReqBootWriteFlash, 0x2000, 0, make([]byte, 64))
	assert.True(t, transport.IsStall(err))
	assert.Equal(t, uint8(BootErrNotErased), b.LastError)

	resp := make([]byte, 2)
	for {
		_, err := b.Control(transport.In, protocol.ReqBootEraseFlash, 0, 0, resp)
		require.NoError(t, err)
		if resp[1] == 0 {
			break
		}
	}
	assert.True(t, b.Erased)

	_, err = b.Control(transport.Out, protocol.ReqBootWriteFlash, 0x2040, 0, []byte{1, 2, 3})
	assert.True(t, transport.IsStall(err))
	assert.Equal(t, uint8(BootErrLength), b.LastError)

	block := make([]byte, 64)
	block[0] = 0xAA
	n, err := b.Control(transport.Out, protocol.ReqBootWriteFlash, 0x2040, 0, block)
	require.NoError(t, err)
	assert.Equal(t, 64, n)
	assert.Equal(t, byte(0xAA), b.Flash[0x40])
}
