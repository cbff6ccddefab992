// Package mirror copies every received telegraph into Modbus holding registers,
// so that PLCs and SCADA tools can follow the amplifier settings.
package mirror

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/wavesurfer/mctg/client"
)

// RegisterWriter writes holding registers. It is implemented by EndpointClient.
type RegisterWriter interface {
	WriteRegisters(unitID uint8, addr uint16, regs []uint16) error
}

// Mirror is a client.TelegraphListener. Each electrode gets the next free block
// in the order of its first telegraph and keeps it for the lifetime of the mirror.
type Mirror struct {
	writer      RegisterWriter
	unitID      uint8
	baseAddress uint16

	mu     sync.Mutex
	blocks map[client.ElectrodeID]int
}

// New returns a mirror writing to the given unit, with the first block at baseAddress.
func New(writer RegisterWriter, unitID uint8, baseAddress uint16) *Mirror {
	return &Mirror{
		writer:      writer,
		unitID:      unitID,
		baseAddress: baseAddress,
		blocks:      make(map[client.ElectrodeID]int),
	}
}

// Telegraph implements client.TelegraphListener.
func (m *Mirror) Telegraph(state client.ElectrodeState) {
	block, ok := m.block(state.ID)
	if !ok {
		log.Warn().Stringer("id", state.ID).Int("max", MaxElectrodes).Msg("no mirror block left, electrode not mirrored")
		return
	}

	addr := m.Address(block)
	err := m.writer.WriteRegisters(m.unitID, addr, Encode(state))
	if err != nil {
		log.Error().Err(err).Stringer("id", state.ID).Uint16("address", addr).Msg("cannot mirror telegraph")
		return
	}
	log.Debug().Stringer("id", state.ID).Uint16("address", addr).Msg("telegraph mirrored")
}

func (m *Mirror) block(id client.ElectrodeID) (int, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if block, ok := m.blocks[id]; ok {
		return block, true
	}
	if len(m.blocks) >= MaxElectrodes {
		return 0, false
	}
	block := len(m.blocks)
	m.blocks[id] = block
	return block, true
}

// Address returns the first register of the given block.
func (m *Mirror) Address(block int) uint16 {
	return m.baseAddress + uint16(block*RegistersPerElectrode)
}
