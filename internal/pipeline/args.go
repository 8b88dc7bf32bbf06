// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package pipeline

import "github.com/gogpu/cmaa/device"

// Axis is the dispatch dimension an indirect consumer is spread along.
type Axis uint8

const (
	// AxisX gives (groups, 1, 1); used for ProcessCandidates.
	AxisX Axis = iota
	// AxisY gives (1, groups, 1); used for DeferredColorApply2x2.
	AxisY
)

// ArgsFor is the host-side form of ComputeDispatchArgs: it clamps n to
// capacity and returns the workgroup counts for groups of g invocations,
// along with the clamped count.
func ArgsFor(n, capacity, g uint32, axis Axis) (args [3]uint32, count uint32) {
	count = min(n, capacity)
	groups := uint32(0)
	if g > 0 {
		groups = (count + g - 1) / g
	}
	if axis == AxisY {
		return [3]uint32{1, groups, 1}, count
	}
	return [3]uint32{groups, 1, 1}, count
}

// EdgeDetectGroups returns the EdgesColor2x2 grid for a w×h frame. Each
// workgroup of wg invocations covers (wg-2)×(wg-2) quads; the outer ring is
// halo.
func EdgeDetectGroups(w, h int, wg [3]uint32) [3]uint32 {
	l := device.NewFrameLayout(w, h)
	ox, oy := max(int(wg[0])-2, 1), max(int(wg[1])-2, 1)
	return [3]uint32{
		uint32((l.QuadWidth + ox - 1) / ox),
		uint32((l.QuadHeight + oy - 1) / oy),
		1,
	}
}
