package client

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
)

// ErrShortPayload indicates a telegraph payload smaller than the vendor structure.
var ErrShortPayload = errors.New("telegraph payload too short")

// Telegraph is the state report broadcast by the amplifier-control program.
type Telegraph struct {
	Version             uint32
	ComPortID           uint32
	AxoBusID            uint32
	ChannelID           uint32
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
	SeriesResistance    float64
}

// encodedTelegraph mirrors the vendor structure with its natural alignment.
type encodedTelegraph struct {
	Version             uint32
	StructSize          uint32
	ComPortID           uint32
	AxoBusID            uint32
	ChannelID           uint32
	OperatingMode       uint32
	ScaledOutSignal     uint32
	_                   uint32
	Alpha               float64
	ScaleFactor         float64
	ScaleFactorUnits    uint32
	_                   uint32
	LPFCutoff           float64
	MembraneCap         float64
	ExtCmdSens          float64
	RawOutSignal        uint32
	_                   uint32
	RawScaleFactor      float64
	RawScaleFactorUnits uint32
	HardwareType        uint32
	SecondaryAlpha      float64
	SecondaryLPFCutoff  float64
	AppVersion          [16]byte
	FirmwareVersion     [16]byte
	DSPVersion          [16]byte
	SerialNumber        [16]byte
	SeriesResistance    float64
	_                   [80]byte
}

// TelegraphSize is the size of an encoded telegraph in bytes.
var TelegraphSize = binary.Size(encodedTelegraph{})

// ParseTelegraph decodes a telegraph payload. Trailing bytes are ignored.
func ParseTelegraph(b []byte) (Telegraph, error) {
	if len(b) < TelegraphSize {
		return Telegraph{}, fmt.Errorf("%w: %d < %d bytes", ErrShortPayload, len(b), TelegraphSize)
	}
	var raw encodedTelegraph
	err := binary.Read(bytes.NewReader(b[:TelegraphSize]), binary.LittleEndian, &raw)
	if err != nil {
		return Telegraph{}, fmt.Errorf("cannot read telegraph: %v", err)
	}

	return Telegraph{
		Version:             raw.Version,
		ComPortID:           raw.ComPortID,
		AxoBusID:            raw.AxoBusID,
		ChannelID:           raw.ChannelID,
		OperatingMode:       OperatingMode(raw.OperatingMode),
		ScaledOutSignal:     raw.ScaledOutSignal,
		Alpha:               raw.Alpha,
		ScaleFactor:         raw.ScaleFactor,
		ScaleFactorUnits:    raw.ScaleFactorUnits,
		LPFCutoff:           raw.LPFCutoff,
		MembraneCap:         raw.MembraneCap,
		ExtCmdSens:          raw.ExtCmdSens,
		RawOutSignal:        raw.RawOutSignal,
		RawScaleFactor:      raw.RawScaleFactor,
		RawScaleFactorUnits: raw.RawScaleFactorUnits,
		HardwareType:        HardwareType(raw.HardwareType),
		SecondaryAlpha:      raw.SecondaryAlpha,
		SecondaryLPFCutoff:  raw.SecondaryLPFCutoff,
		AppVersion:          cString(raw.AppVersion[:]),
		FirmwareVersion:     cString(raw.FirmwareVersion[:]),
		DSPVersion:          cString(raw.DSPVersion[:]),
		SerialNumber:        cString(raw.SerialNumber[:]),
		SeriesResistance:    raw.SeriesResistance,
	}, nil
}

// Encode renders the telegraph in the vendor layout.
func (t Telegraph) Encode() []byte {
	raw := encodedTelegraph{
		Version:             t.Version,
		StructSize:          uint32(TelegraphSize),
		ComPortID:           t.ComPortID,
		AxoBusID:            t.AxoBusID,
		ChannelID:           t.ChannelID,
		OperatingMode:       uint32(t.OperatingMode),
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
		HardwareType:        uint32(t.HardwareType),
		SecondaryAlpha:      t.SecondaryAlpha,
		SecondaryLPFCutoff:  t.SecondaryLPFCutoff,
		SeriesResistance:    t.SeriesResistance,
	}
	copy(raw.AppVersion[:maxVersionStringLength], t.AppVersion)
	copy(raw.FirmwareVersion[:maxVersionStringLength], t.FirmwareVersion)
	copy(raw.DSPVersion[:maxVersionStringLength], t.DSPVersion)
	copy(raw.SerialNumber[:maxVersionStringLength], t.SerialNumber)

	buf := bytes.NewBuffer(make([]byte, 0, TelegraphSize))
	// writing a fixed-size struct into a bytes.Buffer cannot fail
	_ = binary.Write(buf, binary.LittleEndian, &raw)
	return buf.Bytes()
}

// KnownVersion reports if the telegraph carries one of the accepted protocol versions.
// Commander 2.2 sends 700B+1 with an unchanged layout.
func (t Telegraph) KnownVersion() bool {
	switch t.Version {
	case APIVersion700A, APIVersion700B, APIVersion700B + 1:
		return true
	default:
		return false
	}
}

// ElectrodeID computes the address of the sending channel. ok is false for unknown hardware.
func (t Telegraph) ElectrodeID() (id ElectrodeID, ok bool) {
	switch t.HardwareType {
	case HardwareMC700A:
		return Pack700AID(t.ComPortID, t.AxoBusID, t.ChannelID), true
	case HardwareMC700B:
		return Pack700BID(leadingUint(t.SerialNumber), t.ChannelID), true
	default:
		return 0, false
	}
}

func cString(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}

// leadingUint parses the leading decimal digits of s, zero if there are none.
func leadingUint(s string) uint32 {
	s = strings.TrimLeft(s, " \t")
	var result uint64
	for _, c := range s {
		if c < '0' || c > '9' {
			break
		}
		result = result*10 + uint64(c-'0')
		if result > 0xFFFFFFFF {
			return 0xFFFFFFFF
		}
	}
	return uint32(result)
}

func truncateVersion(s string) string {
	if len(s) > maxVersionStringLength {
		return s[:maxVersionStringLength]
	}
	return s
}
