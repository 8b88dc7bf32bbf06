// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package kernel

import (
	"sync/atomic"

	"github.com/gogpu/cmaa/device"
)

// ComputeDispatchArgs writes the indirect arguments of the next dispatch.
//
// The kernel runs with a 1×1×1 workgroup and the dispatch shape selects the
// counter: dispatched 2×1×1, workgroup x==1 sizes ProcessCandidates from the
// candidate counter along X; dispatched 1×2×1, workgroup y==1 sizes
// DeferredColorApply2x2 from the location counter along Y. The clamped item
// count is published in ControlDispatchCount so the consumer masks the
// invocations of its last, partial workgroup.
func ComputeDispatchArgs(r *Resources, wg, _ [3]uint32) {
	p := &r.Params
	switch {
	case wg[0] == 1 && wg[1] == 0:
		n := r.candidateAllocator().Count()
		r.writeArgs(groups(n, p.CandidateGroupSize), 1, 1)
		atomic.StoreUint32(&r.Control[device.ControlDispatchCount], n)
	case wg[0] == 0 && wg[1] == 1:
		n := r.locationAllocator().Count()
		r.writeArgs(1, groups(n, p.ApplyGroupSize), 1)
		atomic.StoreUint32(&r.Control[device.ControlDispatchCount], n)
	}
}

func (r *Resources) writeArgs(x, y, z uint32) {
	r.Args[0], r.Args[1], r.Args[2], r.Args[3] = x, y, z, 0
}

// groups is ceil(n/size).
func groups(n, size uint32) uint32 {
	if size == 0 {
		return 0
	}
	return (n + size - 1) / size
}
