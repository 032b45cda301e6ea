package serialcmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OpenTraceLab/motorctl/pkg/names"
	"github.com/OpenTraceLab/motorctl/pkg/protocol"
	"github.com/OpenTraceLab/motorctl/pkg/settings"
)

// fakePort records writes and serves reads from a canned response. An
// exhausted response reads as a timeout, like a serial port.
type fakePort struct {
	written bytes.Buffer
	resp    []byte
}

func (p *fakePort) Write(b []byte) (int, error) { return p.written.Write(b) }

func (p *fakePort) Read(b []byte) (int, error) {
	n := copy(b, p.resp)
	p.resp = p.resp[n:]
	return n, nil
}

func crcBitwise(msg []byte) byte {
	var crc byte
	for _, b := range msg {
		crc ^= b
		for j := 0; j < 8; j++ {
			if crc&1 != 0 {
				crc ^= 0x91
			}
			crc >>= 1
		}
	}
	return crc
}

func TestCRC7(t *testing.T) {
	assert.Equal(t, byte(0x17), CRC7([]byte{0x83, 0x01}))
	assert.Equal(t, byte(0x00), CRC7(nil))
	for i := 0; i < 256; i++ {
		msg := []byte{byte(i), byte(i * 3), 0x7F}
		assert.Equal(t, crcBitwise(msg), CRC7(msg))
	}
}

func TestCommandFraming(t *testing.T) {
	tests := []struct {
		name string
		opts []Option
		run  func(c *Conn) error
		want []byte
	}{
		{
			name: "compact set target",
			run:  func(c *Conn) error { return c.SetTarget(3000) },
			want: []byte{0xD8, 0x5D},
		},
		{
			name: "addressed set target",
			opts: []Option{WithDeviceNumber(11)},
			run:  func(c *Conn) error { return c.SetTarget(3000) },
			want: []byte{0xAA, 0x0B, 0x58, 0x5D},
		},
		{
			name: "addressed set target with CRC",
			opts: []Option{WithDeviceNumber(11), WithCRC()},
			run:  func(c *Conn) error { return c.SetTarget(3000) },
			want: []byte{0xAA, 0x0B, 0x58, 0x5D, 0x79},
		},
		{
			name: "compact with CRC",
			opts: []Option{WithCRC()},
			run:  func(c *Conn) error { return c.SetTarget(3000) },
			want: []byte{0xD8, 0x5D, 0x19},
		},
		{
			name: "14-bit device number",
			opts: []Option{WithDeviceNumber(300), With14BitDeviceNumber()},
			run:  func(c *Conn) error { return c.StopMotor() },
			want: []byte{0xAA, 0x2C, 0x02, 0x7F},
		},
		{
			name: "stop motor",
			run:  func(c *Conn) error { return c.StopMotor() },
			want: []byte{0xFF},
		},
		{
			name: "negative duty cycle target",
			run:  func(c *Conn) error { return c.ForceDutyCycleTarget(-300) },
			want: []byte{0xF2, 0x54, 0x7D},
		},
		{
			name: "duty cycle",
			run:  func(c *Conn) error { return c.ForceDutyCycle(600) },
			want: []byte{0xF4, 0x58, 0x04},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &fakePort{}
			require.NoError(t, tt.run(New(p, tt.opts...)))
			assert.Equal(t, tt.want, p.written.Bytes())
		})
	}
}

func TestInvalidArguments(t *testing.T) {
	p := &fakePort{}
	c := New(p)
	assert.Error(t, c.SetTarget(4096))
	assert.Error(t, c.ForceDutyCycle(601))
	assert.Error(t, c.ForceDutyCycleTarget(-601))
	_, err := c.GetVariableSegment(0, 16, false)
	assert.Error(t, err)
	_, err = c.GetVariableSegment(protocol.VariablesSize-1, 2, false)
	assert.Error(t, err)

	c = New(p, WithDeviceNumber(200))
	assert.Error(t, c.StopMotor())
	assert.Zero(t, p.written.Len())
}

func TestGetVariableSegment(t *testing.T) {
	p := &fakePort{resp: []byte{0xE0, 0x2E}}
	c := New(p)

	b, err := c.GetVariableSegment(protocol.VarVINVoltage, 2, false)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xE0, 0x2E}, b)
	assert.Equal(t, []byte{0xE5, 0x17, 0x02}, p.written.Bytes())
}

func TestGetVariableSegmentClearHaltingWithCRC(t *testing.T) {
	p := &fakePort{resp: []byte{0x01, 0x00, CRC7([]byte{0x01, 0x00})}}
	c := New(p, WithCRC())

	b, err := c.GetVariableSegment(protocol.VarErrorFlagsHalting, 2, true)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x00}, b)

	sent := p.written.Bytes()
	assert.Equal(t, byte(0xE3), sent[0])
	assert.Equal(t, CRC7(sent[:3]), sent[3])
}

func TestGetVariableSegmentBadCRC(t *testing.T) {
	p := &fakePort{resp: []byte{0xE0, 0x2E, 0x00}}
	c := New(p, WithCRC())

	_, err := c.GetVariableSegment(protocol.VarVINVoltage, 2, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CRC")
}

func TestGetVariableSegmentTimeout(t *testing.T) {
	p := &fakePort{resp: []byte{0xE0}}
	c := New(p)

	_, err := c.GetVariableSegment(protocol.VarVINVoltage, 2, false)
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestGetVariables(t *testing.T) {
	want := protocol.Variables{
		Target:          1234,
		VINVoltage:      11900,
		UpTime:          5000,
		DutyCycle:       -42,
		DigitalReadings: 0x81,
	}
	blob := protocol.EncodeVariables(want)
	p := &fakePort{resp: blob[:]}

	got, err := New(p).GetVariables()
	require.NoError(t, err)
	assert.Equal(t, want, got)
	// 0x3D bytes in 15-byte segments.
	assert.Equal(t, 5*3, p.written.Len())
}

func TestOptionsFromSettings(t *testing.T) {
	s := settings.Defaults(names.Product18v19)
	cfg := DefaultConfig()
	for _, opt := range OptionsFromSettings(s) {
		opt(&cfg)
	}
	assert.False(t, cfg.Addressed)
	assert.False(t, cfg.CRC)

	s.SerialDisableCompactProtocol = true
	s.SerialEnableCRC = true
	s.SerialDeviceNumber = 20
	cfg = DefaultConfig()
	for _, opt := range OptionsFromSettings(s) {
		opt(&cfg)
	}
	assert.True(t, cfg.Addressed)
	assert.True(t, cfg.CRC)
	assert.Equal(t, uint16(20), cfg.DeviceNumber)
	assert.False(t, cfg.Use14BitDeviceNumber)
}
