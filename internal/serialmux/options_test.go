package serialmux

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.bug.st/serial"
)

func TestPortOptionsNormalizeDefaults(t *testing.T) {
	got, err := PortOptions{}.Normalize()
	require.NoError(t, err)
	assert.Equal(t, PortOptions{BaudRate: DefaultBaudRate, DataBits: 8, StopBits: 1, Parity: "N"}, got)
}

func TestPortOptionsNormalizeParity(t *testing.T) {
	for in, want := range map[string]string{"even": "E", " O ": "O", "none": "N", "n": "N"} {
		got, err := PortOptions{Parity: in}.Normalize()
		require.NoError(t, err, in)
		assert.Equal(t, want, got.Parity, in)
	}
}

func TestPortOptionsNormalizeErrors(t *testing.T) {
	tests := []struct {
		name string
		opts PortOptions
	}{
		{"data bits low", PortOptions{DataBits: 4}},
		{"data bits high", PortOptions{DataBits: 9}},
		{"stop bits", PortOptions{StopBits: 3}},
		{"parity", PortOptions{Parity: "mark"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.opts.Normalize()
			assert.Error(t, err)
			_, err = tt.opts.SerialMode()
			assert.Error(t, err)
		})
	}
}

func TestPortOptionsString(t *testing.T) {
	assert.Equal(t, "115200/8N1", PortOptions{}.String())
	assert.Equal(t, "9600/7E2", PortOptions{BaudRate: 9600, DataBits: 7, StopBits: 2, Parity: "even"}.String())
	assert.Equal(t, "invalid", PortOptions{StopBits: 5}.String())
}

func TestPortOptionsSerialMode(t *testing.T) {
	mode, err := PortOptions{BaudRate: 9600, DataBits: 7, StopBits: 2, Parity: "O"}.SerialMode()
	require.NoError(t, err)
	assert.Equal(t, &serial.Mode{
		BaudRate: 9600,
		DataBits: 7,
		StopBits: serial.TwoStopBits,
		Parity:   serial.OddParity,
	}, mode)
}

func TestNewRealSerialMuxErrors(t *testing.T) {
	_, err := NewRealSerialMux("/dev/does-not-exist", PortOptions{Parity: "bogus"})
	assert.Error(t, err)

	_, err = NewRealSerialMux("/dev/does-not-exist-rover", PortOptions{})
	assert.Error(t, err)
}
