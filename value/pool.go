package value

import "bytes"

const (
	tableMaxLoad       = 0.75
	minGrowthThreshold = 10
	growthFactor       = 2
)

// slotState distinguishes a truly-empty table slot from a tombstone left by
// a removed entry; both have a nil key, so the state needs to be held
// alongside it.
type slotState int

const (
	slotEmpty slotState = iota
	slotTombstone
	slotOccupied
)

type poolEntry struct {
	state slotState
	text  *TextObject
}

// TextPool is an open-addressing hash set of interned TextObjects, keyed by
// content hash and probed linearly. It guarantees that any two texts with
// equal bytes share one canonical *TextObject.
type TextPool struct {
	entries []poolEntry
	count   int // live entries; tombstones are not counted
}

func NewTextPool() *TextPool {
	return &TextPool{}
}

func growCapacity(capacity int) int {
	if capacity < minGrowthThreshold {
		return minGrowthThreshold
	}
	return capacity * growthFactor
}

// findSlot locates the slot that either already holds chars, or is the first
// tombstone/empty slot encountered probing forward from the hash bucket so a
// subsequent insert can claim it. Matches the encoding of entries returned
// by table.c's find_new_or_existing_entry / find_interned_text combined,
// since TextPool only ever stores content-addressed entries.
func findSlot(entries []poolEntry, capacity int, chars []byte, hash uint32) int {
	index := int(hash % uint32(capacity))
	firstTombstone := -1
	for {
		entry := &entries[index]
		switch entry.state {
		case slotEmpty:
			if firstTombstone != -1 {
				return firstTombstone
			}
			return index
		case slotTombstone:
			if firstTombstone == -1 {
				firstTombstone = index
			}
		case slotOccupied:
			if entry.text.Hash == hash && bytes.Equal(entry.text.Bytes, chars) {
				return index
			}
		}
		index = (index + 1) % capacity
	}
}

func (p *TextPool) grow(newCapacity int) {
	newEntries := make([]poolEntry, newCapacity)
	p.count = 0
	for _, old := range p.entries {
		if old.state != slotOccupied {
			continue
		}
		slot := findSlot(newEntries, newCapacity, old.text.Bytes, old.text.Hash)
		newEntries[slot] = poolEntry{state: slotOccupied, text: old.text}
		p.count++
	}
	p.entries = newEntries
}

// find returns the canonical TextObject for chars, or nil if no text with
// those bytes is interned yet.
func (p *TextPool) find(chars []byte, hash uint32) *TextObject {
	if len(p.entries) == 0 {
		return nil
	}
	index := int(hash % uint32(len(p.entries)))
	for {
		entry := &p.entries[index]
		switch entry.state {
		case slotEmpty:
			return nil
		case slotOccupied:
			if entry.text.Hash == hash && bytes.Equal(entry.text.Bytes, chars) {
				return entry.text
			}
		}
		index = (index + 1) % len(p.entries)
	}
}

// intern inserts text into the pool, assuming the caller has already
// confirmed (via find) that no equal text is present.
func (p *TextPool) intern(text *TextObject) {
	if float64(p.count+1) > float64(len(p.entries))*tableMaxLoad {
		p.grow(growCapacity(len(p.entries)))
	}
	slot := findSlot(p.entries, len(p.entries), text.Bytes, text.Hash)
	if p.entries[slot].state != slotOccupied {
		p.count++
	}
	p.entries[slot] = poolEntry{state: slotOccupied, text: text}
}
