// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package kernel

import (
	"sync/atomic"

	"github.com/gogpu/cmaa/device"
)

// DeferredColorApply2x2 resolves the blend list of one recorded quad.
//
// The list is an unordered multiset: each pixel of the quad becomes the
// mean of the items addressed to it, and pixels without items keep their
// color. The head is claimed with a compare-and-swap back to the sentinel,
// so a quad is resolved once even if it was recorded twice. The walk stops
// after ItemCapacity nodes.
func DeferredColorApply2x2(r *Resources, wg, lid [3]uint32) {
	p := &r.Params
	i := wg[1]*p.ApplyGroupSize + lid[0]
	if i >= atomic.LoadUint32(&r.Control[device.ControlDispatchCount]) {
		return
	}

	qx, qy := device.UnpackLocation(r.Locations[i])
	head := r.Heads.Load(qx, qy)
	if head == device.HeadSentinel || !r.Heads.CompareAndSwap(qx, qy, head, device.HeadSentinel) {
		return
	}

	var sum [4][3]float32
	var n [4]uint32
	next := head & device.LinkIndexMask
	for steps := uint32(0); next < p.ItemCapacity && steps < p.ItemCapacity; steps++ {
		rgb := UnpackR11G11B10(r.Items[2*next])
		sub, link := device.UnpackLink(r.Items[2*next+1])
		for c := range rgb {
			sum[sub][c] += rgb[c]
		}
		n[sub]++
		next = link
	}

	var pixels uint32
	for sub := uint32(0); sub < 4; sub++ {
		if n[sub] == 0 {
			continue
		}
		x, y := int(2*qx+sub&1), int(2*qy+sub>>1)
		if x >= int(p.Width) || y >= int(p.Height) {
			continue
		}
		inv := 1 / float32(n[sub])
		r.Color.setRGB(x, y, [3]float32{sum[sub][0] * inv, sum[sub][1] * inv, sum[sub][2] * inv})
		pixels++
	}
	atomic.AddUint32(&r.Control[device.ControlQuadsApplied], 1)
	atomic.AddUint32(&r.Control[device.ControlPixelsApplied], pixels)
}
