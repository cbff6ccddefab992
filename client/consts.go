package client

import "fmt"

// Version of the telegraph tracker.
const Version = "0.3"

// HardwareType identifies the amplifier family that sent a telegraph.
type HardwareType uint32

// All supported amplifier families.
const (
	HardwareMC700A HardwareType = 0
	HardwareMC700B HardwareType = 1
)

var hardwareTypeNames = []string{"MultiClamp 700A", "MultiClamp 700B"}

func (t HardwareType) String() string {
	if int(t) < len(hardwareTypeNames) {
		return hardwareTypeNames[t]
	}
	return fmt.Sprintf("UNKNOWN_HARDWARE_TYPE(%d)", uint32(t))
}

// OperatingMode represents the clamp mode of an electrode.
type OperatingMode uint32

// All operating modes reported by the amplifier.
const (
	ModeVoltageClamp     OperatingMode = 0
	ModeCurrentClamp     OperatingMode = 1
	ModeCurrentClampZero OperatingMode = 2
)

var modeNames = []string{"V-Clamp", "I-Clamp", "I = 0"}

func (m OperatingMode) String() string {
	if int(m) < len(modeNames) {
		return modeNames[m]
	}
	return fmt.Sprintf("UNKNOWN_MODE(%d)", uint32(m))
}

// Protocol versions found in the uVersion field of a telegraph.
const (
	APIVersion700A uint32 = 5
	APIVersion700B uint32 = 13
)

// LPFBypass is reported as the lowpass cutoff when the filter is bypassed.
const LPFBypass = 100000.0

// Names under which the notification types are registered with the transport.
const (
	OpenMessageName      = "MultiClampTelegraphOpenMsg"
	CloseMessageName     = "MultiClampTelegraphCloseMsg"
	RequestMessageName   = "MultiClampTelegraphRequestMsg"
	ReconnectMessageName = "MultiClampTelegraphReconnectMsg"
	BroadcastMessageName = "MultiClampTelegraphBroadcastMsg"
	IDMessageName        = "MultiClampTelegraphIdMsg"
	StopMessageName      = "MCT_STOP"
)

// MessageType is an opaque notification type id handed out by a Transport.
type MessageType uint32

// MessageCopyData is the fixed type of payload-bearing notifications.
// Its Tag names the registered type the payload belongs to.
const MessageCopyData MessageType = 0x004A

// Handle addresses an endpoint on a transport.
type Handle uint32

// BroadcastHandle addresses every endpoint on a transport.
const BroadcastHandle Handle = 0xFFFF

// unspecified700A replaces the version strings a 700A does not supply.
const unspecified700A = "UNSPECIFIED"

// maxVersionStringLength is the capacity of a version string field without its terminator.
const maxVersionStringLength = 15
