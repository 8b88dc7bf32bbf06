// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package kernel

import (
	"sync/atomic"

	"github.com/gogpu/cmaa/device"
)

// ProcessCandidates turns one candidate quad into deferred blend items.
//
// Every edge recorded in the quad's mask separates a pixel p from a
// neighbour n. Both sides receive an item: p gets mix(p, n, w) and n gets
// mix(n, p, w). An item is linked into the list of the quad that contains
// its pixel, which for edges on the quad border is a neighbouring quad.
func ProcessCandidates(r *Resources, wg, lid [3]uint32) {
	p := &r.Params
	i := wg[0]*p.CandidateGroupSize + lid[0]
	if i >= atomic.LoadUint32(&r.Control[device.ControlDispatchCount]) {
		return
	}

	qx, qy, shape := device.UnpackCandidate(r.Candidates[i])
	mask := r.Edges.at(int(qx), int(qy))
	for sub := uint32(0); sub < 4; sub++ {
		x, y := int(2*qx+sub&1), int(2*qy+sub>>1)
		if shape&device.ShapeVertical != 0 && mask&device.EdgeRight(sub) != 0 {
			r.blendAcross(x, y, x+1, y)
		}
		if shape&device.ShapeHorizontal != 0 && mask&device.EdgeBottom(sub) != 0 {
			r.blendAcross(x, y, x, y+1)
		}
	}
}

func (r *Resources) blendAcross(x0, y0, x1, y1 int) {
	a, b := r.Color.at(x0, y0), r.Color.at(x1, y1)
	w := r.Params.BlendWeight
	r.insert(x0, y0, mix(a, b, w))
	r.insert(x1, y1, mix(b, a, w))
}

// insert links a blend item for pixel (x, y) at the head of its quad's list.
// The invocation whose exchange replaced the sentinel is the only one that
// sees it, so it alone records the quad location.
func (r *Resources) insert(x, y int, rgb [3]float32) {
	slot, ok := r.itemAllocator().Alloc()
	if !ok {
		return
	}
	qx, qy := uint32(x>>1), uint32(y>>1)
	r.Items[2*slot] = PackR11G11B10(rgb)
	old := r.Heads.Exchange(qx, qy, slot)
	r.Items[2*slot+1] = device.PackLink(device.SubIndex(x, y), old)
	if old != device.HeadSentinel {
		return
	}
	if loc, ok := r.locationAllocator().Alloc(); ok {
		r.Locations[loc] = device.PackLocation(qx, qy)
	}
}

func mix(a, b [3]float32, t float32) [3]float32 {
	return [3]float32{
		a[0] + (b[0]-a[0])*t,
		a[1] + (b[1]-a[1])*t,
		a[2] + (b[2]-a[2])*t,
	}
}
