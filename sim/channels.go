package sim

import (
	"strconv"

	"github.com/wavesurfer/mctg/client"
)

// Channel700A returns the telegraph of a 700A channel in voltage clamp with a membrane current output.
func Channel700A(comPort, axoBus, channel uint32) client.Telegraph {
	return client.Telegraph{
		Version:             client.APIVersion700A,
		ComPortID:           comPort,
		AxoBusID:            axoBus,
		ChannelID:           channel,
		OperatingMode:       client.ModeVoltageClamp,
		ScaledOutSignal:     1,
		Alpha:               1,
		ScaleFactor:         0.5,
		ScaleFactorUnits:    4,
		LPFCutoff:           client.LPFBypass,
		MembraneCap:         0,
		ExtCmdSens:          0.02,
		RawOutSignal:        1,
		RawScaleFactor:      0.5,
		RawScaleFactorUnits: 4,
		HardwareType:        client.HardwareMC700A,
	}
}

// Channel700B returns the telegraph of a 700B channel in current clamp with a membrane potential output.
func Channel700B(serial uint32, channel uint32) client.Telegraph {
	return client.Telegraph{
		Version:             client.APIVersion700B,
		ChannelID:           channel,
		OperatingMode:       client.ModeCurrentClamp,
		ScaledOutSignal:     1,
		Alpha:               10,
		ScaleFactor:         0.01,
		ScaleFactorUnits:    1,
		LPFCutoff:           10000,
		MembraneCap:         33e-12,
		ExtCmdSens:          400e-12,
		RawOutSignal:        0,
		RawScaleFactor:      0.5,
		RawScaleFactorUnits: 6,
		HardwareType:        client.HardwareMC700B,
		SecondaryAlpha:      1,
		SecondaryLPFCutoff:  client.LPFBypass,
		AppVersion:          "2.2.0.16",
		FirmwareVersion:     "1.4.0.53",
		DSPVersion:          "3.1.0.2",
		SerialNumber:        strconv.FormatUint(uint64(serial), 10),
	}
}
