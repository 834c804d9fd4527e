// services/hal/mailbox.go
package hal

import "sync/atomic"

// RawEdge is one captured interrupt: which pin, the raw level at capture
// time, and a monotonic-ish millisecond timestamp.
type RawEdge struct {
	Pin   int
	Level bool
	TS    int64 // milliseconds
}

// Mailbox is a single-slot, overwrite-on-write handoff buffer between
// interrupt context and the poll task. A store overwrites any unread previous
// value ("latest wins"); a second interrupt on a different pin arriving
// before the poll task drains the first is lost, which is an accepted,
// documented limitation of the design.
//
// The slot packs pin, level and timestamp into one uint64 so the interrupt
// path is a pair of lock-free atomic stores: O(1), no allocation, no lock.
type Mailbox struct {
	slot  atomic.Uint64
	ready atomic.Bool
}

const (
	mbPinMask  = 0xFF
	mbLevelBit = 1 << 8
	mbTSShift  = 16
	mbTSMaskMs = (1 << 48) - 1 // 48 bits of milliseconds, ~8900 years
)

// Store captures one edge. Safe to call from interrupt context.
func (m *Mailbox) Store(pin int, level bool, tsMs int64) {
	v := uint64(tsMs&mbTSMaskMs)<<mbTSShift | uint64(pin)&mbPinMask
	if level {
		v |= mbLevelBit
	}
	m.slot.Store(v)
	m.ready.Store(true)
}

// Take drains the mailbox. The second return is false when nothing unread is
// present. An overwrite racing between the flag swap and the slot load simply
// yields the newer edge, which is the contract.
func (m *Mailbox) Take() (RawEdge, bool) {
	if !m.ready.Swap(false) {
		return RawEdge{}, false
	}
	v := m.slot.Load()
	return RawEdge{
		Pin:   int(v & mbPinMask),
		Level: v&mbLevelBit != 0,
		TS:    int64(v >> mbTSShift),
	}, true
}
