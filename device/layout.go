// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package device

// Sentinels and bit layouts shared by every backend. The WGSL kernels in
// internal/gpu/shaders declare the same values.
const (
	// HeadSentinel marks an empty per-quad list.
	HeadSentinel uint32 = 0xFFFFFFFF

	// LinkIndexMask selects the next-item index of a blend item link.
	LinkIndexMask uint32 = 0x3FFFFFFF

	// LinkEnd terminates a list. It is HeadSentinel with the
	// pixel-in-quad bits stripped.
	LinkEnd = HeadSentinel & LinkIndexMask

	// linkSubShift positions the pixel-in-quad index in a link word.
	linkSubShift = 30

	// candidateYShift and candidateShapeShift position the candidate fields.
	candidateYShift     = 15
	candidateShapeShift = 30
	candidateCoordMask  = 1<<candidateYShift - 1

	// MaxQuadCoord is the largest quad coordinate a candidate can encode.
	MaxQuadCoord = candidateCoordMask
)

// ControlState word offsets.
const (
	ControlCandidateCount = 0
	ControlItemCount      = 1
	ControlLocationCount  = 2
	ControlDispatchCount  = 3
	ControlQuadsApplied   = 4
	ControlPixelsApplied  = 5

	// ControlWords is the ControlState size in words.
	ControlWords = 16
)

// IndirectArgsWords is the IndirectDispatchArgs size: x, y, z and one pad.
const IndirectArgsWords = 4

// Candidate shape descriptor bits.
const (
	// ShapeVertical: the quad has at least one edge between horizontal
	// neighbours (a right-edge bit).
	ShapeVertical uint32 = 1 << 0

	// ShapeHorizontal: the quad has at least one edge between vertical
	// neighbours (a bottom-edge bit).
	ShapeHorizontal uint32 = 1 << 1
)

// FrameLayout holds the per-frame resource dimensions for a W×H surface.
type FrameLayout struct {
	Width  int
	Height int

	// QuadWidth and QuadHeight are the 2×2 quad grid dimensions. EdgeMask
	// and ListHeads use this resolution.
	QuadWidth  int
	QuadHeight int

	CandidateCapacity int
	ItemCapacity      int
	LocationCapacity  int
}

// NewFrameLayout computes the layout of a w×h frame.
func NewFrameLayout(w, h int) FrameLayout {
	px := w * h
	return FrameLayout{
		Width:             w,
		Height:            h,
		QuadWidth:         (w + 1) / 2,
		QuadHeight:        (h + 1) / 2,
		CandidateCapacity: max(px/4, 1),
		ItemCapacity:      max(px/2, 1),
		LocationCapacity:  max((px+3)/6, 1),
	}
}

// Quads returns the number of 2×2 quads.
func (l FrameLayout) Quads() int { return l.QuadWidth * l.QuadHeight }

// QuadIndex returns the flat ListHeads index of quad (qx, qy).
func (l FrameLayout) QuadIndex(qx, qy int) int { return qy*l.QuadWidth + qx }

// SubIndex returns the pixel-in-quad index of pixel (x, y): 0 top-left,
// 1 top-right, 2 bottom-left, 3 bottom-right.
func SubIndex(x, y int) uint32 { return uint32(y&1)<<1 | uint32(x&1) }

// EdgeRight is the EdgeMask bit for the edge between pixel sub and its
// right neighbour.
func EdgeRight(sub uint32) uint32 { return 1 << (2 * sub) }

// EdgeBottom is the EdgeMask bit for the edge between pixel sub and its
// bottom neighbour.
func EdgeBottom(sub uint32) uint32 { return 1 << (2*sub + 1) }

// PackCandidate encodes a quad coordinate and shape descriptor.
func PackCandidate(qx, qy, shape uint32) uint32 {
	return qx&candidateCoordMask | (qy&candidateCoordMask)<<candidateYShift | shape<<candidateShapeShift
}

// UnpackCandidate decodes a candidate entry.
func UnpackCandidate(c uint32) (qx, qy, shape uint32) {
	return c & candidateCoordMask, c >> candidateYShift & candidateCoordMask, c >> candidateShapeShift
}

// PackLink encodes a blend item link word.
func PackLink(sub, next uint32) uint32 { return sub<<linkSubShift | next&LinkIndexMask }

// UnpackLink decodes a blend item link word.
func UnpackLink(link uint32) (sub, next uint32) { return link >> linkSubShift, link & LinkIndexMask }

// PackLocation encodes a ListHeadLocationList entry.
func PackLocation(qx, qy uint32) uint32 { return qx&0xFFFF | qy<<16 }

// UnpackLocation decodes a ListHeadLocationList entry.
func UnpackLocation(loc uint32) (qx, qy uint32) { return loc & 0xFFFF, loc >> 16 }
