package client

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// TableCapacity is the number of electrodes the tracker can hold. Rarely more than two are present.
const TableCapacity = 16

type slotState int

const (
	slotEmpty slotState = iota
	slotOccupied
	// slotConsumed holds data that was already read out once.
	slotConsumed
)

type slot struct {
	state slotState
	ElectrodeState
}

// stateTable holds the latest state per electrode and the fresh-ID mailbox.
// One lock guards both; it is never held across a blocking wait.
type stateTable struct {
	mu       sync.Mutex
	slots    [TableCapacity]slot
	freshIDs []ElectrodeID
	now      func() time.Time
}

func newStateTable() *stateTable {
	return &stateTable{
		freshIDs: make([]ElectrodeID, 0, TableCapacity),
		now:      time.Now,
	}
}

// FindSlot returns the index of the occupied slot holding id, or -1.
func (t *stateTable) FindSlot(id ElectrodeID) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.findLocked(id)
}

func (t *stateTable) findLocked(id ElectrodeID) int {
	for i := range t.slots {
		if t.slots[i].state == slotOccupied && t.slots[i].ID == id {
			return i
		}
	}
	return -1
}

// AllocateSlot claims the first slot without unread data for id, or returns -1 if the table is full.
// A consumed slot counts as free even when empty slots follow it.
func (t *stateTable) AllocateSlot(id ElectrodeID) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.allocateLocked(id)
}

func (t *stateTable) allocateLocked(id ElectrodeID) int {
	for i := range t.slots {
		if t.slots[i].state != slotOccupied {
			t.slots[i] = slot{state: slotOccupied, ElectrodeState: ElectrodeState{ID: id}}
			return i
		}
	}
	return -1
}

// Upsert stores the telegraph under its electrode ID. If the table is full the update is dropped.
func (t *stateTable) Upsert(telegraph Telegraph) (ElectrodeState, bool) {
	id, ok := telegraph.ElectrodeID()
	if !ok {
		log.Warn().Uint32("hardware_type", uint32(telegraph.HardwareType)).Msg("unrecognizable hardware type, telegraph dropped")
		return ElectrodeState{}, false
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	index := t.reuseLocked(id)
	if index < 0 {
		index = t.allocateLocked(id)
	}
	if index < 0 {
		log.Warn().Stringer("id", id).Int("capacity", TableCapacity).Msg("electrode table full, telegraph dropped")
		return ElectrodeState{}, false
	}

	state := newElectrodeState(id, telegraph, t.now())
	t.slots[index] = slot{state: slotOccupied, ElectrodeState: state}
	return state, true
}

// reuseLocked finds a slot already bound to id, consumed or not, so an id never holds two slots.
func (t *stateTable) reuseLocked(id ElectrodeID) int {
	for i := range t.slots {
		if t.slots[i].state != slotEmpty && t.slots[i].ID == id {
			return i
		}
	}
	return -1
}

// ReadAndMarkStale returns a copy of the slot and marks it consumed.
// A second read of the same slot before the next telegraph finds nothing.
func (t *stateTable) ReadAndMarkStale(index int) (ElectrodeState, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.readLocked(index)
}

func (t *stateTable) readLocked(index int) (ElectrodeState, bool) {
	if index < 0 || index >= len(t.slots) || t.slots[index].state != slotOccupied {
		return ElectrodeState{}, false
	}
	t.slots[index].state = slotConsumed
	return t.slots[index].ElectrodeState, true
}

// Take finds and consumes the state of id under a single lock acquisition.
//
// Consumption is destructive: of two callers racing for the same electrode only
// one receives the state. Callers relying on this must not be changed to a
// non-destructive read without agreeing on the contract.
func (t *stateTable) Take(id ElectrodeID) (ElectrodeState, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.readLocked(t.findLocked(id))
}

// Reset marks every slot empty and clears the fresh-ID mailbox.
func (t *stateTable) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range t.slots {
		t.slots[i] = slot{}
	}
	t.freshIDs = t.freshIDs[:0]
}

// Occupied counts the slots holding unread data.
func (t *stateTable) Occupied() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	count := 0
	for i := range t.slots {
		if t.slots[i].state == slotOccupied {
			count++
		}
	}
	return count
}

// RecordFreshID adds id to the mailbox unless it is already there or the mailbox is full.
func (t *stateTable) RecordFreshID(id ElectrodeID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, known := range t.freshIDs {
		if known == id {
			return
		}
	}
	if len(t.freshIDs) >= TableCapacity {
		log.Warn().Stringer("id", id).Msg("fresh id list full, id dropped")
		return
	}
	t.freshIDs = append(t.freshIDs, id)
}

// CollectFreshIDs drains the mailbox.
func (t *stateTable) CollectFreshIDs() []ElectrodeID {
	t.mu.Lock()
	defer t.mu.Unlock()
	result := make([]ElectrodeID, len(t.freshIDs))
	copy(result, t.freshIDs)
	t.freshIDs = t.freshIDs[:0]
	return result
}
