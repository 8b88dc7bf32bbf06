// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package kernel

import "github.com/gogpu/cmaa/device"

// EdgesColor2x2 classifies the edges of one 2×2 quad.
//
// Each invocation owns one quad. The outer ring of a workgroup is halo: it
// maps to quads owned by the neighbouring workgroups and writes nothing, so a
// workgroup writes EdgesOutputX×EdgesOutputY quads. For every pixel of the
// quad the edge to its right and to its bottom neighbour is tested; the
// left and top edges belong to the neighbouring pixels. A quad with any edge
// is appended to the candidate list.
func EdgesColor2x2(r *Resources, wg, lid [3]uint32) {
	if lid[0] < edgesHalo || lid[1] < edgesHalo ||
		lid[0] >= EdgesWorkgroupX-edgesHalo || lid[1] >= EdgesWorkgroupY-edgesHalo {
		return
	}
	p := &r.Params
	qx := wg[0]*EdgesOutputX + lid[0] - edgesHalo
	qy := wg[1]*EdgesOutputY + lid[1] - edgesHalo
	if qx >= p.QuadWidth || qy >= p.QuadHeight {
		return
	}

	w, h := int(p.Width), int(p.Height)
	var mask, shape uint32
	for sub := uint32(0); sub < 4; sub++ {
		x, y := int(2*qx+sub&1), int(2*qy+sub>>1)
		if x >= w || y >= h {
			continue
		}
		c := r.Color.at(x, y)
		if x+1 < w && contrast(c, r.Color.at(x+1, y)) > p.EdgeThreshold {
			mask |= device.EdgeRight(sub)
			shape |= device.ShapeVertical
		}
		if y+1 < h && contrast(c, r.Color.at(x, y+1)) > p.EdgeThreshold {
			mask |= device.EdgeBottom(sub)
			shape |= device.ShapeHorizontal
		}
	}
	r.Edges.set(int(qx), int(qy), mask)
	if mask == 0 {
		return
	}

	if slot, ok := r.candidateAllocator().Alloc(); ok {
		r.Candidates[slot] = device.PackCandidate(qx, qy, shape)
	}
}

// contrast is the largest absolute channel difference of two colors.
func contrast(a, b [3]float32) float32 {
	d := float32(0)
	for i := range a {
		v := a[i] - b[i]
		if v < 0 {
			v = -v
		}
		d = max(d, v)
	}
	return d
}
