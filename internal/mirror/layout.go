package mirror

import (
	"math"

	"github.com/wavesurfer/mctg/client"
)

// Electrode block layout. These values define the register protocol and are not configurable.

// RegistersPerElectrode is the size of one electrode block.
const RegistersPerElectrode = 16

// MaxElectrodes is the number of blocks, one per slot of the electrode table.
const MaxElectrodes = client.TableCapacity

// Register indices inside a block.
const (
	RegIDHigh          = 0
	RegIDLow           = 1
	RegHardwareType    = 2
	RegOperatingMode   = 3
	RegScaledOutSignal = 4
	RegRawOutSignal    = 5
	RegScaleUnits      = 6
	RegReserved        = 7
	RegAlpha           = 8
	RegScaleFactor     = 10
	RegLPFCutoff       = 12
	RegMembraneCap     = 14
)

// Encode converts an electrode state into its register block.
// Floating point values are stored as IEEE 754 float32, high word first.
// No IO. No side effects.
func Encode(state client.ElectrodeState) []uint16 {
	regs := make([]uint16, RegistersPerElectrode)

	regs[RegIDHigh] = uint16(uint32(state.ID) >> 16)
	regs[RegIDLow] = uint16(uint32(state.ID))
	regs[RegHardwareType] = uint16(state.HardwareType)
	regs[RegOperatingMode] = uint16(state.OperatingMode)
	regs[RegScaledOutSignal] = uint16(state.ScaledOutSignal)
	regs[RegRawOutSignal] = uint16(state.RawOutSignal)
	regs[RegScaleUnits] = uint16(state.ScaleFactorUnits)

	putFloat(regs, RegAlpha, state.Alpha)
	putFloat(regs, RegScaleFactor, state.ScaleFactor)
	putFloat(regs, RegLPFCutoff, state.LPFCutoff)
	putFloat(regs, RegMembraneCap, state.MembraneCap)

	return regs
}

func putFloat(regs []uint16, index int, value float64) {
	bits := math.Float32bits(float32(value))
	regs[index] = uint16(bits >> 16)
	regs[index+1] = uint16(bits)
}

// DecodeFloat reads a float stored by Encode.
func DecodeFloat(regs []uint16, index int) float32 {
	return math.Float32frombits(uint32(regs[index])<<16 | uint32(regs[index+1]))
}
