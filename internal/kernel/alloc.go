// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package kernel

import (
	"math"
	"sync/atomic"
)

// IndexAllocator hands out slots of a fixed-capacity array by atomically
// incrementing a ControlState word. The word keeps counting past capacity so
// the demand stays observable, and saturates at math.MaxUint32 instead of
// wrapping; slots at or past capacity are refused and the caller drops the
// item.
type IndexAllocator struct {
	counter  *uint32
	capacity uint32
}

// NewIndexAllocator returns an allocator over counter.
func NewIndexAllocator(counter *uint32, capacity uint32) IndexAllocator {
	return IndexAllocator{counter: counter, capacity: capacity}
}

// Alloc reserves the next slot. ok is false when the array is full.
func (a IndexAllocator) Alloc() (slot uint32, ok bool) {
	for {
		slot = atomic.LoadUint32(a.counter)
		if slot == math.MaxUint32 {
			return slot, false
		}
		if atomic.CompareAndSwapUint32(a.counter, slot, slot+1) {
			return slot, slot < a.capacity
		}
	}
}

// Count returns the number of slots handed out, clamped to capacity.
func (a IndexAllocator) Count() uint32 {
	return min(atomic.LoadUint32(a.counter), a.capacity)
}
