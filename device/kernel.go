// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package device

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Kernel identifies one of the pipeline's compute kernels.
type Kernel uint8

// Pipeline kernels in dispatch order. KernelComputeDispatchArgs runs twice.
const (
	// KernelEdgesColor2x2 detects edges and appends shape candidates.
	KernelEdgesColor2x2 Kernel = iota

	// KernelComputeDispatchArgs converts a ControlState counter into
	// indirect dispatch arguments.
	KernelComputeDispatchArgs

	// KernelProcessCandidates builds the per-quad deferred blend lists.
	KernelProcessCandidates

	// KernelDeferredColorApply2x2 resolves the per-quad lists into color.
	KernelDeferredColorApply2x2

	// KernelCount is the number of kernels.
	KernelCount
)

// String returns the kernel entry point name.
func (k Kernel) String() string {
	switch k {
	case KernelEdgesColor2x2:
		return "edges_color2x2"
	case KernelComputeDispatchArgs:
		return "compute_dispatch_args"
	case KernelProcessCandidates:
		return "process_candidates"
	case KernelDeferredColorApply2x2:
		return "deferred_color_apply2x2"
	default:
		return fmt.Sprintf("Kernel(%d)", uint8(k))
	}
}

// Params are the per-frame constants every kernel reads. The layout matches
// the WGSL Params uniform: eleven 32-bit fields plus one pad word.
type Params struct {
	Width              uint32
	Height             uint32
	QuadWidth          uint32
	QuadHeight         uint32
	CandidateCapacity  uint32
	ItemCapacity       uint32
	LocationCapacity   uint32
	CandidateGroupSize uint32
	ApplyGroupSize     uint32
	EdgeThreshold      float32
	BlendWeight        float32
}

// ParamsSize is the byte size of the Params uniform.
const ParamsSize = 12 * 4

// Bytes serializes p in little-endian order.
func (p Params) Bytes() []byte {
	buf := make([]byte, ParamsSize)
	le := binary.LittleEndian
	le.PutUint32(buf[0:4], p.Width)
	le.PutUint32(buf[4:8], p.Height)
	le.PutUint32(buf[8:12], p.QuadWidth)
	le.PutUint32(buf[12:16], p.QuadHeight)
	le.PutUint32(buf[16:20], p.CandidateCapacity)
	le.PutUint32(buf[20:24], p.ItemCapacity)
	le.PutUint32(buf[24:28], p.LocationCapacity)
	le.PutUint32(buf[28:32], p.CandidateGroupSize)
	le.PutUint32(buf[32:36], p.ApplyGroupSize)
	le.PutUint32(buf[36:40], math.Float32bits(p.EdgeThreshold))
	le.PutUint32(buf[40:44], math.Float32bits(p.BlendWeight))
	return buf
}

// HeadStore is the ListHeads resource: an R32Uint image on devices with
// atomic image support, otherwise a buffer of QuadWidth*QuadHeight words.
// Exactly one field is set.
type HeadStore struct {
	Image  Image
	Buffer Buffer
}

// Bound reports whether exactly one representation is set.
func (h HeadStore) Bound() bool { return (h.Image == nil) != (h.Buffer == nil) }

// Bindings is the resource set a kernel dispatch sees. Kernels ignore the
// fields they do not use.
type Bindings struct {
	Params     Params
	Color      Image
	Edges      Image
	Heads      HeadStore
	Candidates Buffer
	Items      Buffer
	Locations  Buffer
	Control    Buffer
	Args       Buffer
}

// Check verifies that every resource kernel k touches is bound.
func (b *Bindings) Check(k Kernel) error {
	if b == nil {
		return fmt.Errorf("%w: %v: nil bindings", ErrUnboundResource, k)
	}
	missing := func(name string) error {
		return fmt.Errorf("%w: %v needs %s", ErrUnboundResource, k, name)
	}
	if b.Control == nil {
		return missing("control")
	}
	switch k {
	case KernelEdgesColor2x2:
		switch {
		case b.Color == nil:
			return missing("color")
		case b.Edges == nil:
			return missing("edges")
		case b.Candidates == nil:
			return missing("candidates")
		}
	case KernelComputeDispatchArgs:
		if b.Args == nil {
			return missing("args")
		}
	case KernelProcessCandidates:
		switch {
		case b.Color == nil:
			return missing("color")
		case b.Edges == nil:
			return missing("edges")
		case b.Candidates == nil:
			return missing("candidates")
		case b.Items == nil:
			return missing("items")
		case b.Locations == nil:
			return missing("locations")
		case !b.Heads.Bound():
			return missing("heads")
		}
	case KernelDeferredColorApply2x2:
		switch {
		case b.Color == nil:
			return missing("color")
		case b.Items == nil:
			return missing("items")
		case b.Locations == nil:
			return missing("locations")
		case !b.Heads.Bound():
			return missing("heads")
		}
	default:
		return fmt.Errorf("%w: unknown kernel %v", ErrUnboundResource, k)
	}
	return nil
}
