// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package kernel

import "sync/atomic"

// AtomicScalarStore is a 2D grid of 32-bit words addressed by quad
// coordinate, with atomic access. The list-head protocol uses only these
// three operations, so it runs unchanged on either representation.
type AtomicScalarStore interface {
	// Load atomically reads the word at (x, y).
	Load(x, y uint32) uint32

	// Exchange atomically stores v at (x, y) and returns the previous word.
	Exchange(x, y, v uint32) uint32

	// CompareAndSwap atomically replaces old with v at (x, y) and reports
	// whether it did.
	CompareAndSwap(x, y, old, v uint32) bool
}

// ImageStore is an AtomicScalarStore over R32Uint image texels with a row
// pitch.
type ImageStore struct {
	texels []uint32
	width  uint32
	height uint32
	pitch  uint32
}

// NewImageStore wraps texels of a width×height image whose rows are pitch
// texels apart.
func NewImageStore(texels []uint32, width, height, pitch int) *ImageStore {
	if pitch < width || len(texels) < pitch*(height-1)+width {
		panic("kernel: image store smaller than its extent")
	}
	return &ImageStore{texels: texels, width: uint32(width), height: uint32(height), pitch: uint32(pitch)}
}

func (s *ImageStore) addr(x, y uint32) *uint32 {
	if x >= s.width || y >= s.height {
		panic("kernel: image store coordinate out of range")
	}
	return &s.texels[y*s.pitch+x]
}

// Load implements AtomicScalarStore.
func (s *ImageStore) Load(x, y uint32) uint32 { return atomic.LoadUint32(s.addr(x, y)) }

// Exchange implements AtomicScalarStore.
func (s *ImageStore) Exchange(x, y, v uint32) uint32 { return atomic.SwapUint32(s.addr(x, y), v) }

// CompareAndSwap implements AtomicScalarStore.
func (s *ImageStore) CompareAndSwap(x, y, old, v uint32) bool {
	return atomic.CompareAndSwapUint32(s.addr(x, y), old, v)
}

// BufferStore is an AtomicScalarStore over a flat buffer indexed y*width+x,
// used where images cannot be accessed atomically.
type BufferStore struct {
	words []uint32
	width uint32
}

// NewBufferStore wraps a buffer of at least width*height words.
func NewBufferStore(words []uint32, width, height int) *BufferStore {
	if len(words) < width*height {
		panic("kernel: buffer store smaller than its extent")
	}
	return &BufferStore{words: words[:width*height], width: uint32(width)}
}

// Load implements AtomicScalarStore.
func (s *BufferStore) Load(x, y uint32) uint32 {
	return atomic.LoadUint32(&s.words[y*s.width+x])
}

// Exchange implements AtomicScalarStore.
func (s *BufferStore) Exchange(x, y, v uint32) uint32 {
	return atomic.SwapUint32(&s.words[y*s.width+x], v)
}

// CompareAndSwap implements AtomicScalarStore.
func (s *BufferStore) CompareAndSwap(x, y, old, v uint32) bool {
	return atomic.CompareAndSwapUint32(&s.words[y*s.width+x], old, v)
}

var (
	_ AtomicScalarStore = (*ImageStore)(nil)
	_ AtomicScalarStore = (*BufferStore)(nil)
)
