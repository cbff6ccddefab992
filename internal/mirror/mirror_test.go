package mirror

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wavesurfer/mctg/client"
)

type fakeWriter struct {
	writes []writeCall
	err    error
}

type writeCall struct {
	unitID uint8
	addr   uint16
	regs   []uint16
}

func (f *fakeWriter) WriteRegisters(unitID uint8, addr uint16, regs []uint16) error {
	f.writes = append(f.writes, writeCall{unitID: unitID, addr: addr, regs: regs})
	return f.err
}

func state(id client.ElectrodeID) client.ElectrodeState {
	return client.ElectrodeState{
		ID:               id,
		HardwareType:     client.HardwareMC700B,
		OperatingMode:    client.ModeCurrentClamp,
		ScaledOutSignal:  1,
		RawOutSignal:     0,
		ScaleFactorUnits: 1,
		Alpha:            10,
		ScaleFactor:      0.01,
		LPFCutoff:        10000,
		MembraneCap:      33e-12,
	}
}

func TestEncode_Layout(t *testing.T) {
	regs := Encode(state(0x100CBE3D))

	require.Len(t, regs, RegistersPerElectrode)
	assert.Equal(t, uint16(0x100C), regs[RegIDHigh])
	assert.Equal(t, uint16(0xBE3D), regs[RegIDLow])

	tt := []struct {
		desc     string
		index    int
		expected uint16
	}{
		{"hardware type", RegHardwareType, 1},
		{"operating mode", RegOperatingMode, 1},
		{"scaled output", RegScaledOutSignal, 1},
		{"raw output", RegRawOutSignal, 0},
		{"scale units", RegScaleUnits, 1},
		{"reserved", RegReserved, 0},
	}
	for _, tc := range tt {
		t.Run(tc.desc, func(t *testing.T) {
			assert.Equal(t, tc.expected, regs[tc.index])
		})
	}

	assert.Equal(t, float32(10), DecodeFloat(regs, RegAlpha))
	assert.Equal(t, float32(0.01), DecodeFloat(regs, RegScaleFactor))
	assert.Equal(t, float32(10000), DecodeFloat(regs, RegLPFCutoff))
	assert.Equal(t, float32(33e-12), DecodeFloat(regs, RegMembraneCap))
}

func TestMirror_BlockAssignment(t *testing.T) {
	fake := &fakeWriter{}
	m := New(fake, 7, 100)

	m.Telegraph(state(1))
	m.Telegraph(state(2))
	m.Telegraph(state(1))

	require.Len(t, fake.writes, 3)
	expected := []uint16{100, 116, 100}
	for i, w := range fake.writes {
		assert.Equal(t, uint8(7), w.unitID, "write %d", i)
		assert.Equal(t, expected[i], w.addr, "write %d", i)
	}
}

func TestMirror_Full(t *testing.T) {
	fake := &fakeWriter{}
	m := New(fake, 1, 0)

	for i := 1; i <= MaxElectrodes+1; i++ {
		m.Telegraph(state(client.ElectrodeID(i)))
	}

	require.Len(t, fake.writes, MaxElectrodes)
	last := fake.writes[len(fake.writes)-1]
	assert.Equal(t, uint16((MaxElectrodes-1)*RegistersPerElectrode), last.addr)
}

func TestMirror_WriteErrorIsAbsorbed(t *testing.T) {
	fake := &fakeWriter{err: errors.New("connection reset")}
	m := New(fake, 1, 0)

	m.Telegraph(state(1))
	m.Telegraph(state(1))

	assert.Len(t, fake.writes, 2)
}

func TestEndpointClient_EndpointRequired(t *testing.T) {
	_, err := NewEndpointClient(EndpointConfig{})
	assert.Error(t, err)
}

func TestPackRegisters(t *testing.T) {
	assert.Equal(t, []byte{0x01, 0x02, 0xA0, 0xB0}, packRegisters([]uint16{0x0102, 0xA0B0}))
}
