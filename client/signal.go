package client

// UnknownSignal is returned for scaled output selectors outside the known set.
const UnknownSignal = "ERROR - Unknown uScaledOutSignal value"

// UnknownHardware is returned for telegraphs from an unrecognized amplifier family.
const UnknownHardware = "ERROR - Unknown uHardwareType value"

// UnknownScaleUnits is returned when no unit string can be derived.
const UnknownScaleUnits = "UNKNOWN_SCALE_UNITS"

// ScaleUnits is the fixed unit table indexed by the scale-units selector of a 700B.
var ScaleUnits = []string{"V/V", "V/mV", "V/uV", "V/A", "V/mA", "V/uA", "V/nA", "V/pA", "None"}

// The 700B reports self-describing selectors.
var (
	gldrLongNames  = []string{"Membrane Current", "Membrane Potential", "Pipette Potential", "100x AC Membrane Potential", "Command Current", "External Command Potential", "Auxiliary 1", "Auxiliary 2"}
	gldrShortNames = []string{"Im", "Vm", "Vp", "100Vp", "Icmd", "Vext", "Aux1", "Aux2"}
)

// signalName is one entry of the empirical 700A selector tables.
type signalName struct {
	long, short, units string
}

// The selector values of a 700A do not match the vendor header (which claims
// 0=I_CMD_SUMMED, 1=V_CMD_SUMMED, 2=I_CMD_EXT, 3=V_CMD_EXT, 5=V_MEMBRANE).
// These tables were measured on the scaled output BNC. Selector 4 is never sent.
var (
	voltageClamp700A = map[uint32]signalName{
		0: {"Membrane Potential", "Vm", "V/V"},
		1: {"Membrane Current", "Im", "V/nA"},
		2: {"Pipette Potential", "Vp", "V/V"},
		3: {"100 x AC Pipette Potential", "100Vp", "V/mV"},
		5: {"Bath Potential", "Vb", ""},
	}
	currentClamp700A = map[uint32]signalName{
		0: {"Command Current", "Vext", "V/nA"},
		1: {"Membrane Current", "Im", "V/nA"},
		2: {"Membrane Potential", "Vm", "V/V"},
		3: {"100 x AC Membrane Potential", "100Vm", "V/mV"},
		5: {"Bath Potential", "Vb", ""},
	}
)

func table700A(mode OperatingMode) (map[uint32]signalName, bool) {
	switch mode {
	case ModeVoltageClamp:
		return voltageClamp700A, true
	case ModeCurrentClamp, ModeCurrentClampZero:
		return currentClamp700A, true
	default:
		return nil, false
	}
}

// DescribeScaledOutput names the signal routed to the scaled output.
// The units of its scale factor come from DescribeScaleUnits.
func DescribeScaledOutput(signal uint32, hw HardwareType, mode OperatingMode) (longName, shortName string) {
	switch hw {
	case HardwareMC700A:
		table, ok := table700A(mode)
		if !ok {
			return UnknownSignal, UnknownSignal
		}
		name, ok := table[signal]
		if !ok {
			return UnknownSignal, UnknownSignal
		}
		return name.long, name.short
	case HardwareMC700B:
		if int(signal) >= len(gldrLongNames) {
			return UnknownSignal, UnknownSignal
		}
		return gldrLongNames[signal], gldrShortNames[signal]
	default:
		return UnknownHardware, UnknownHardware
	}
}

// DescribeScaleUnits returns the unit string of the scaled output's scale factor.
func DescribeScaleUnits(units uint32, hw HardwareType, mode OperatingMode, signal uint32) string {
	switch hw {
	case HardwareMC700A:
		table, ok := table700A(mode)
		if !ok {
			return UnknownScaleUnits
		}
		name, ok := table[signal]
		if !ok {
			return UnknownSignal
		}
		if mode == ModeVoltageClamp && signal == 1 && units == 5 {
			return "V/uA"
		}
		return name.units
	case HardwareMC700B:
		if int(units) >= len(ScaleUnits) {
			return UnknownScaleUnits
		}
		return ScaleUnits[units]
	default:
		return UnknownScaleUnits
	}
}

// scaledUnits is the physical unit left after multiplying volts by the scaled gain.
func scaledUnits(units uint32) string {
	switch units {
	case 0:
		return "V"
	case 1:
		return "mV"
	case 2:
		return "uV"
	case 3:
		return "A"
	case 4:
		return "mA"
	case 5:
		return "uA"
	case 6:
		return "nA"
	case 7:
		return "pA"
	default:
		return "???"
	}
}
