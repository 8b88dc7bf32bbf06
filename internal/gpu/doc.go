//go:build !nogpu

// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package gpu implements device.Device on WebGPU through the gogpu/wgpu HAL.
//
// Every frame is recorded into one hal command encoder with one compute
// pass per dispatch; pass boundaries order the passes' storage writes.
// Images are linear storage buffers (RGBA32Float as vec4<f32>, the integer
// formats as one u32 per texel) because WGSL has no atomics on storage
// textures, so the device reports Capabilities.AtomicImages = false and
// ListHeads is bound as a buffer.
//
// The kernels are the WGSL files under shaders/. They are validated with
// naga when a device is created, and their declared workgroup sizes are read
// from the parsed modules.
//
// Build with -tags nogpu to exclude this package.
package gpu
