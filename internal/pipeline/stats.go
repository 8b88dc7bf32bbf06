// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package pipeline

import (
	"time"

	"github.com/gogpu/cmaa/device"
)

// Stats are the per-frame counters read back from ControlState.
type Stats struct {
	Device string
	Width  int
	Height int

	// Candidates, Items and Locations are the stored entries; the Dropped
	// counts are the allocations past capacity.
	Candidates        int
	CandidatesDropped int
	Items             int
	ItemsDropped      int
	Locations         int
	LocationsDropped  int

	QuadsApplied  int
	PixelsApplied int

	Duration time.Duration
}

func statsFrom(control []uint32, l device.FrameLayout) Stats {
	split := func(counter uint32, capacity int) (kept, dropped int) {
		n := int(counter)
		if n > capacity {
			return capacity, n - capacity
		}
		return n, 0
	}
	s := Stats{Width: l.Width, Height: l.Height}
	s.Candidates, s.CandidatesDropped = split(control[device.ControlCandidateCount], l.CandidateCapacity)
	s.Items, s.ItemsDropped = split(control[device.ControlItemCount], l.ItemCapacity)
	s.Locations, s.LocationsDropped = split(control[device.ControlLocationCount], l.LocationCapacity)
	s.QuadsApplied = int(control[device.ControlQuadsApplied])
	s.PixelsApplied = int(control[device.ControlPixelsApplied])
	return s
}

// Dropped reports whether any allocation was discarded.
func (s Stats) Dropped() bool {
	return s.CandidatesDropped > 0 || s.ItemsDropped > 0 || s.LocationsDropped > 0
}
