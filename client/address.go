package client

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ElectrodeID is the packed hardware address of one amplifier channel.
//
// 700A ids carry comPort, axoBus and channel in bits 0-7, 8-15 and 16-23.
// 700B ids carry the serial number in bits 0-27 and the channel in bits 28-31.
// Channels are one-based, so a 700A id never sets bits 28-31 while a 700B id
// always does: the two layouts cannot collide for valid inputs.
type ElectrodeID uint32

// ErrInvalidAddress indicates sub-fields that cannot be packed into an ElectrodeID.
var ErrInvalidAddress = errors.New("invalid electrode address")

func (id ElectrodeID) String() string {
	return fmt.Sprintf("0x%08X", uint32(id))
}

// ParseElectrodeID reads an id in hexadecimal (0x prefix) or decimal notation.
func ParseElectrodeID(s string) (ElectrodeID, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 0, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a 32 bit number", ErrInvalidAddress, s)
	}
	return ElectrodeID(v), nil
}

// Pack700AID packs a 700A address. Out-of-range fields are truncated, use Get700AID for validation.
func Pack700AID(comPort, axoBus, channel uint32) ElectrodeID {
	return ElectrodeID((comPort & 0xFF) | (axoBus&0xFF)<<8 | (channel&0xFF)<<16)
}

// Unpack700AID is the inverse of Pack700AID. Applied to a 700B id the result is meaningless.
func Unpack700AID(id ElectrodeID) (comPort, axoBus, channel uint32) {
	v := uint32(id)
	return v & 0xFF, (v >> 8) & 0xFF, (v >> 16) & 0xFF
}

// Pack700BID packs a 700B address. Out-of-range fields are truncated, use Get700BID for validation.
func Pack700BID(serialNumber, channel uint32) ElectrodeID {
	return ElectrodeID((serialNumber & 0x0FFFFFFF) | (channel&0x0F)<<28)
}

// Unpack700BID is the inverse of Pack700BID. Applied to a 700A id the result is meaningless.
func Unpack700BID(id ElectrodeID) (serialNumber, channel uint32) {
	v := uint32(id)
	return v & 0x0FFFFFFF, v >> 28
}

// Get700AID validates and packs a 700A address.
func Get700AID(comPort, axoBus, channel uint32) (ElectrodeID, error) {
	if comPort > 0xFF || axoBus > 0xFF {
		return 0, fmt.Errorf("%w: comPort %d and axoBus %d must be < 256", ErrInvalidAddress, comPort, axoBus)
	}
	if channel < 1 || channel > 0xFF {
		return 0, fmt.Errorf("%w: 700A channel %d must be in 1..255", ErrInvalidAddress, channel)
	}
	return Pack700AID(comPort, axoBus, channel), nil
}

// Get700BID validates and packs a 700B address.
func Get700BID(serialNumber, channel uint32) (ElectrodeID, error) {
	if serialNumber > 0x0FFFFFFF {
		return 0, fmt.Errorf("%w: serial number %d does not fit 28 bits", ErrInvalidAddress, serialNumber)
	}
	if channel < 1 || channel > 0x0F {
		return 0, fmt.Errorf("%w: 700B channel %d must be in 1..15", ErrInvalidAddress, channel)
	}
	return Pack700BID(serialNumber, channel), nil
}
