// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package software implements device.Device on CPU goroutines.
//
// Dispatches run the kernels of internal/kernel over their full grid on a
// worker pool; every dispatch finishes before the next recorded command
// starts. ListHeads can be bound as an image or as a buffer, so both
// representations of the list-head store are exercised without a GPU.
package software

import (
	"context"
	"fmt"
	"sync"

	"github.com/gogpu/cmaa/device"
	"github.com/gogpu/cmaa/internal/kernel"
	"github.com/gogpu/cmaa/internal/parallel"
)

// Name is the registry name of the software device.
const Name = "software"

// maxWorkgroups matches the WebGPU default limit so a frame that runs here
// also fits a GPU dispatch.
const maxWorkgroups = 65535

// Options configure a software Device.
type Options struct {
	// Workers is the worker goroutine count. 0 means GOMAXPROCS.
	Workers int

	// AtomicImages reports atomic image support, which makes the pipeline
	// bind ListHeads as an image instead of a buffer.
	AtomicImages bool
}

// Device is a CPU device.
type Device struct {
	mu     sync.RWMutex
	pool   *parallel.WorkerPool
	caps   device.Capabilities
	closed bool
}

var _ device.Device = (*Device)(nil)

// New creates a software device.
func New(opts Options) *Device {
	return &Device{
		pool: parallel.NewWorkerPool(opts.Workers),
		caps: device.Capabilities{
			AtomicImages:              opts.AtomicImages,
			MaxWorkgroupsPerDimension: maxWorkgroups,
		},
	}
}

// Name returns "software".
func (d *Device) Name() string { return Name }

// Capabilities returns the device capabilities.
func (d *Device) Capabilities() device.Capabilities { return d.caps }

// Workgroup returns the workgroup size of kernel k.
func (d *Device) Workgroup(k device.Kernel) [3]uint32 { return kernel.Workgroup(k) }

// BeginFrame opens a frame over the host surface. The surface memory is
// used directly as the frame's color image.
func (d *Device) BeginFrame(ctx context.Context, color device.HostSurface) (device.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := color.Validate(); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, device.ErrDeviceClosed
	}
	f := &frame{dev: d}
	f.color = hostImage(f, color)
	return f, nil
}

// Close stops the worker pool.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	d.pool.Close()
	return nil
}

// runGrid runs every invocation of an x×y×z grid of workgroups. Workgroups
// are spread over the pool; the invocations of one workgroup run in order on
// one goroutine.
func (d *Device) runGrid(k device.Kernel, fn kernel.Func, r *kernel.Resources, groups [3]uint32) error {
	for _, n := range groups {
		if n > d.caps.MaxWorkgroupsPerDimension {
			return fmt.Errorf("software: %v dispatch %v exceeds %d workgroups per dimension",
				k, groups, d.caps.MaxWorkgroupsPerDimension)
		}
	}
	x, y := int(groups[0]), int(groups[1])
	total := x * y * int(groups[2])
	if total == 0 {
		return nil
	}
	size := kernel.Workgroup(k)
	return d.pool.Range(total, func(lo, hi int) {
		for gi := lo; gi < hi; gi++ {
			wg := [3]uint32{uint32(gi % x), uint32(gi / x % y), uint32(gi / (x * y))}
			for lz := uint32(0); lz < size[2]; lz++ {
				for ly := uint32(0); ly < size[1]; ly++ {
					for lx := uint32(0); lx < size[0]; lx++ {
						fn(r, wg, [3]uint32{lx, ly, lz})
					}
				}
			}
		}
	})
}
