// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package device defines the contract between the CMAA2 frame orchestrator and
// the compute backends that execute it.
//
// The orchestrator never touches backend resources directly. It allocates
// transient images and buffers through [Allocator], records work through
// [Commands] and hands the frame back with [Frame.Submit]. A backend is
// free to execute the recorded work on a GPU queue or on CPU goroutines, as
// long as every dispatch observes all writes of the dispatches recorded
// before it.
//
// # Architecture
//
//	           cmaa.Filter.Apply
//	                  |
//	        internal/pipeline (stage order, arena)
//	                  |
//	           device.Device
//	         /                \
//	internal/software     internal/gpu
//	 (goroutines +          (wgpu hal, WGSL,
//	  sync/atomic)           indirect dispatch)
//
// # Frame layout
//
// The per-frame resources, their sizes and the bit packing shared between the
// kernels of every backend are described by [FrameLayout] and the Pack*
// helpers in layout.go. WGSL kernels mirror these constants.
//
// # ListHeads representation
//
// [Capabilities.AtomicImages] reports whether the device supports atomic
// operations on random-write images. When it does not, the orchestrator binds
// the per-quad list heads as a flat buffer indexed by y*quadWidth+x instead.
// The kernels see the same logical store either way.
package device
