// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package kernel is the CPU implementation of the four CMAA2 compute kernels.
//
// Each kernel is a function of one invocation: it receives the workgroup id
// and the local invocation id, exactly like the WGSL entry points in
// internal/gpu/shaders. The caller (internal/software) runs every invocation
// of a dispatch, in any order and in parallel, and waits for all of them
// before running the next dispatch. Invocations of one dispatch communicate
// only through sync/atomic operations on the control words, the list heads
// and the slot allocators.
package kernel

import (
	"fmt"

	"github.com/gogpu/cmaa/device"
)

// Workgroup sizes. They match @workgroup_size in the WGSL kernels.
const (
	EdgesWorkgroupX = 16
	EdgesWorkgroupY = 16

	// edgesHalo is the one-quad border of an edges workgroup that only
	// provides context and writes nothing.
	edgesHalo = 1

	// EdgesOutputX and EdgesOutputY are the quads written per workgroup.
	EdgesOutputX = EdgesWorkgroupX - 2*edgesHalo
	EdgesOutputY = EdgesWorkgroupY - 2*edgesHalo

	CandidatesWorkgroupX = 256
	ApplyWorkgroupX      = 256
)

// Workgroup returns the declared workgroup size of k.
func Workgroup(k device.Kernel) [3]uint32 {
	switch k {
	case device.KernelEdgesColor2x2:
		return [3]uint32{EdgesWorkgroupX, EdgesWorkgroupY, 1}
	case device.KernelProcessCandidates:
		return [3]uint32{CandidatesWorkgroupX, 1, 1}
	case device.KernelDeferredColorApply2x2:
		return [3]uint32{ApplyWorkgroupX, 1, 1}
	default:
		return [3]uint32{1, 1, 1}
	}
}

// Func is one kernel invocation.
type Func func(r *Resources, wg, lid [3]uint32)

// Lookup returns the implementation of k.
func Lookup(k device.Kernel) (Func, error) {
	switch k {
	case device.KernelEdgesColor2x2:
		return EdgesColor2x2, nil
	case device.KernelComputeDispatchArgs:
		return ComputeDispatchArgs, nil
	case device.KernelProcessCandidates:
		return ProcessCandidates, nil
	case device.KernelDeferredColorApply2x2:
		return DeferredColorApply2x2, nil
	default:
		return nil, fmt.Errorf("kernel: unknown kernel %v", k)
	}
}

// ColorView is an RGBA float image with a row pitch in texels.
type ColorView struct {
	Pix   []float32
	Pitch int
}

func (c ColorView) at(x, y int) [3]float32 {
	i := (y*c.Pitch + x) * 4
	return [3]float32{c.Pix[i], c.Pix[i+1], c.Pix[i+2]}
}

// setRGB writes the color channels and keeps alpha.
func (c ColorView) setRGB(x, y int, rgb [3]float32) {
	i := (y*c.Pitch + x) * 4
	c.Pix[i], c.Pix[i+1], c.Pix[i+2] = rgb[0], rgb[1], rgb[2]
}

// EdgeView is the R8Uint EdgeMask image, one texel per quad.
type EdgeView struct {
	Texels []uint8
	Pitch  int
}

func (e EdgeView) at(qx, qy int) uint32 { return uint32(e.Texels[qy*e.Pitch+qx]) }

func (e EdgeView) set(qx, qy int, mask uint32) { e.Texels[qy*e.Pitch+qx] = uint8(mask) }

// Resources is the CPU view of device.Bindings for one dispatch.
type Resources struct {
	Params device.Params

	Color ColorView
	Edges EdgeView
	Heads AtomicScalarStore

	Candidates []uint32
	// Items holds two words per blend item: packed color, link.
	Items     []uint32
	Locations []uint32
	Control   []uint32
	Args      []uint32
}

func (r *Resources) candidateAllocator() IndexAllocator {
	return NewIndexAllocator(&r.Control[device.ControlCandidateCount], r.Params.CandidateCapacity)
}

func (r *Resources) itemAllocator() IndexAllocator {
	return NewIndexAllocator(&r.Control[device.ControlItemCount], r.Params.ItemCapacity)
}

func (r *Resources) locationAllocator() IndexAllocator {
	return NewIndexAllocator(&r.Control[device.ControlLocationCount], r.Params.LocationCapacity)
}
