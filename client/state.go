package client

import (
	"fmt"
	"strings"
	"time"
)

// ElectrodeState contains the most recent telegraph received for one electrode.
// The amplifier cannot tell when an electrode goes offline, so a state may be stale:
// Updated is the only staleness signal.
type ElectrodeState struct {
	ID                  ElectrodeID
	OperatingMode       OperatingMode
	ScaledOutSignal     uint32
	Alpha               float64
	ScaleFactor         float64
	ScaleFactorUnits    uint32
	LPFCutoff           float64
	MembraneCap         float64
	ExtCmdSens          float64
	RawOutSignal        uint32
	RawScaleFactor      float64
	RawScaleFactorUnits uint32
	HardwareType        HardwareType
	SecondaryAlpha      float64
	SecondaryLPFCutoff  float64
	AppVersion          string
	FirmwareVersion     string
	DSPVersion          string
	SerialNumber        string
	Updated             time.Time
}

// newElectrodeState copies a telegraph verbatim. 700A version fields are replaced by a placeholder.
func newElectrodeState(id ElectrodeID, t Telegraph, now time.Time) ElectrodeState {
	result := ElectrodeState{
		ID:                  id,
		OperatingMode:       t.OperatingMode,
		ScaledOutSignal:     t.ScaledOutSignal,
		Alpha:               t.Alpha,
		ScaleFactor:         t.ScaleFactor,
		ScaleFactorUnits:    t.ScaleFactorUnits,
		LPFCutoff:           t.LPFCutoff,
		MembraneCap:         t.MembraneCap,
		ExtCmdSens:          t.ExtCmdSens,
		RawOutSignal:        t.RawOutSignal,
		RawScaleFactor:      t.RawScaleFactor,
		RawScaleFactorUnits: t.RawScaleFactorUnits,
		HardwareType:        t.HardwareType,
		SecondaryAlpha:      t.SecondaryAlpha,
		SecondaryLPFCutoff:  t.SecondaryLPFCutoff,
		Updated:             now,
	}
	if t.HardwareType == HardwareMC700A {
		result.AppVersion = unspecified700A
		result.FirmwareVersion = unspecified700A
		result.DSPVersion = unspecified700A
		result.SerialNumber = unspecified700A
	} else {
		result.AppVersion = truncateVersion(t.AppVersion)
		result.FirmwareVersion = truncateVersion(t.FirmwareVersion)
		result.DSPVersion = truncateVersion(t.DSPVersion)
		result.SerialNumber = truncateVersion(t.SerialNumber)
	}
	return result
}

// Age is the time since the state was last updated.
func (s ElectrodeState) Age() time.Duration {
	return time.Since(s.Updated)
}

// ScaledOutSignalName returns the long and short name of the scaled output signal.
func (s ElectrodeState) ScaledOutSignalName() (string, string) {
	return DescribeScaledOutput(s.ScaledOutSignal, s.HardwareType, s.OperatingMode)
}

// ScaleFactorUnitsName returns the unit string of the scale factor.
func (s ElectrodeState) ScaleFactorUnitsName() string {
	return DescribeScaleUnits(s.ScaleFactorUnits, s.HardwareType, s.OperatingMode, s.ScaledOutSignal)
}

// ScaledGain converts volts on the scaled output into ScaledUnits.
func (s ElectrodeState) ScaledGain() float64 {
	return s.Alpha * s.ScaleFactor
}

// ScaledUnits is the unit of a scaled output sample multiplied by ScaledGain.
func (s ElectrodeState) ScaledUnits() string {
	return scaledUnits(s.ScaleFactorUnits)
}

// Address unpacks the ID according to the hardware type. Fields that do not apply are zero.
func (s ElectrodeState) Address() (comPort, axoBus, channel, serialNumber uint32) {
	switch s.HardwareType {
	case HardwareMC700A:
		comPort, axoBus, channel = Unpack700AID(s.ID)
	case HardwareMC700B:
		serialNumber, channel = Unpack700BID(s.ID)
	}
	return
}

func (s ElectrodeState) String() string {
	comPort, axoBus, channel, serialNumber := s.Address()
	longName, shortName := s.ScaledOutSignalName()

	var b strings.Builder
	fmt.Fprintf(&b, "ElectrodeState:\n")
	fmt.Fprintf(&b, "\tID:                     %s (%d)\n", s.ID, uint32(s.ID))
	fmt.Fprintf(&b, "\tOperating Mode:         %s\n", s.OperatingMode)
	fmt.Fprintf(&b, "\tScaled Out Signal:      %s (%s)\n", longName, shortName)
	fmt.Fprintf(&b, "\tAlpha:                  %3.4f\n", s.Alpha)
	fmt.Fprintf(&b, "\tScaleFactor:            %3.4f\n", s.ScaleFactor)
	fmt.Fprintf(&b, "\tScaleFactorUnits:       %s\n", s.ScaleFactorUnitsName())
	fmt.Fprintf(&b, "\tLPF Cutoff:             %3.4f\n", s.LPFCutoff)
	fmt.Fprintf(&b, "\tMembrane Capacitance:   %g\n", s.MembraneCap)
	fmt.Fprintf(&b, "\tExt Cmd Sense:          %g\n", s.ExtCmdSens)
	fmt.Fprintf(&b, "\tRaw Scale Factor:       %3.4f\n", s.RawScaleFactor)
	fmt.Fprintf(&b, "\tHardware Type:          %s\n", s.HardwareType)
	fmt.Fprintf(&b, "\tSecondary Alpha:        %3.4f\n", s.SecondaryAlpha)
	fmt.Fprintf(&b, "\tSecondary LPF Cutoff:   %3.4f\n", s.SecondaryLPFCutoff)
	fmt.Fprintf(&b, "\tApp Version:            %s\n", s.AppVersion)
	fmt.Fprintf(&b, "\tFirmware Version:       %s\n", s.FirmwareVersion)
	fmt.Fprintf(&b, "\tDSP Version:            %s\n", s.DSPVersion)
	fmt.Fprintf(&b, "\tSerial Number:          %s\n", s.SerialNumber)
	fmt.Fprintf(&b, "\tComPortID:              %d\n", comPort)
	fmt.Fprintf(&b, "\tAxoBusID:               %d\n", axoBus)
	fmt.Fprintf(&b, "\tChannelID:              %d\n", channel)
	fmt.Fprintf(&b, "\tSerialNum:              %d\n", serialNumber)
	fmt.Fprintf(&b, "\tAge:                    %s\n", s.Age().Round(time.Millisecond))
	return b.String()
}
