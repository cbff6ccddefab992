package client

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDescribeScaleUnits(t *testing.T) {
	tt := []struct {
		desc     string
		units    uint32
		hw       HardwareType
		mode     OperatingMode
		signal   uint32
		expected string
	}{
		{"700B index", 3, HardwareMC700B, ModeVoltageClamp, 1, "V/A"},
		{"700B first", 0, HardwareMC700B, ModeCurrentClamp, 0, "V/V"},
		{"700B none", 8, HardwareMC700B, ModeCurrentClamp, 0, "None"},
		{"700B out of range", 9, HardwareMC700B, ModeCurrentClamp, 0, UnknownScaleUnits},
		{"700A vc Im uA override", 5, HardwareMC700A, ModeVoltageClamp, 1, "V/uA"},
		{"700A vc Im", 6, HardwareMC700A, ModeVoltageClamp, 1, "V/nA"},
		{"700A vc Im any other units", 0, HardwareMC700A, ModeVoltageClamp, 1, "V/nA"},
		{"700A vc Vm", 0, HardwareMC700A, ModeVoltageClamp, 0, "V/V"},
		{"700A vc 100Vp", 1, HardwareMC700A, ModeVoltageClamp, 3, "V/mV"},
		{"700A cc Vm", 0, HardwareMC700A, ModeCurrentClamp, 2, "V/V"},
		{"700A cc units 5 no override", 5, HardwareMC700A, ModeCurrentClamp, 1, "V/nA"},
		{"700A i=0 uses current clamp table", 0, HardwareMC700A, ModeCurrentClampZero, 3, "V/mV"},
		{"700A selector 4", 0, HardwareMC700A, ModeVoltageClamp, 4, UnknownSignal},
		{"700A unknown mode", 0, HardwareMC700A, OperatingMode(7), 1, UnknownScaleUnits},
		{"unknown hardware", 0, HardwareType(2), ModeVoltageClamp, 1, UnknownScaleUnits},
	}
	for _, tc := range tt {
		t.Run(tc.desc, func(t *testing.T) {
			actual := DescribeScaleUnits(tc.units, tc.hw, tc.mode, tc.signal)
			assert.Equal(t, tc.expected, actual)
		})
	}
}

func TestDescribeScaledOutput(t *testing.T) {
	tt := []struct {
		desc          string
		signal        uint32
		hw            HardwareType
		mode          OperatingMode
		expectedLong  string
		expectedShort string
	}{
		{"700B Im", 0, HardwareMC700B, ModeVoltageClamp, "Membrane Current", "Im"},
		{"700B Vm", 1, HardwareMC700B, ModeCurrentClamp, "Membrane Potential", "Vm"},
		{"700B Aux2", 7, HardwareMC700B, ModeCurrentClamp, "Auxiliary 2", "Aux2"},
		{"700B out of range", 8, HardwareMC700B, ModeCurrentClamp, UnknownSignal, UnknownSignal},
		{"700A vc 0", 0, HardwareMC700A, ModeVoltageClamp, "Membrane Potential", "Vm"},
		{"700A vc 1", 1, HardwareMC700A, ModeVoltageClamp, "Membrane Current", "Im"},
		{"700A vc 5", 5, HardwareMC700A, ModeVoltageClamp, "Bath Potential", "Vb"},
		{"700A cc 0", 0, HardwareMC700A, ModeCurrentClamp, "Command Current", "Vext"},
		{"700A cc 2", 2, HardwareMC700A, ModeCurrentClamp, "Membrane Potential", "Vm"},
		{"700A i=0 3", 3, HardwareMC700A, ModeCurrentClampZero, "100 x AC Membrane Potential", "100Vm"},
		{"700A selector 4", 4, HardwareMC700A, ModeVoltageClamp, UnknownSignal, UnknownSignal},
		{"700A selector 6", 6, HardwareMC700A, ModeCurrentClamp, UnknownSignal, UnknownSignal},
		{"unknown hardware", 0, HardwareType(9), ModeVoltageClamp, UnknownHardware, UnknownHardware},
	}
	for _, tc := range tt {
		t.Run(tc.desc, func(t *testing.T) {
			long, short := DescribeScaledOutput(tc.signal, tc.hw, tc.mode)
			assert.Equal(t, tc.expectedLong, long)
			assert.Equal(t, tc.expectedShort, short)
		})
	}
}

func TestScaledUnits(t *testing.T) {
	assert.Equal(t, "mV", scaledUnits(1))
	assert.Equal(t, "pA", scaledUnits(7))
	assert.Equal(t, "???", scaledUnits(8))
}
