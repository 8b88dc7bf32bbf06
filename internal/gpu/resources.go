//go:build !nogpu

// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/cmaa/device"
)

// minBufferSize is the smallest buffer handed to the HAL.
const minBufferSize = 4

// image is a frame image stored as a linear storage buffer of Width*Height
// texels without row padding. Float images take 16 bytes per texel; integer
// images take one 32-bit word per texel regardless of format.
type image struct {
	owner     *frame
	desc      device.ImageDesc
	buf       hal.Buffer
	size      uint64
	destroyed bool
}

func (i *image) ImageDesc() device.ImageDesc { return i.desc }

// imageSize returns the byte size of the storage behind desc.
func imageSize(desc device.ImageDesc) uint64 {
	if desc.Format.IsFloat() {
		return uint64(desc.Texels()) * 16
	}
	return uint64(desc.Texels()) * 4
}

type buffer struct {
	owner     *frame
	desc      device.BufferDesc
	buf       hal.Buffer
	size      uint64
	destroyed bool
}

func (b *buffer) BufferDesc() device.BufferDesc { return b.desc }

// createStorage allocates a storage buffer usable by every kernel binding and
// by the copy commands.
func createStorage(dev hal.Device, label string, size uint64, indirect bool) (hal.Buffer, error) {
	usage := gputypes.BufferUsageStorage | gputypes.BufferUsageCopySrc | gputypes.BufferUsageCopyDst
	if indirect {
		usage |= gputypes.BufferUsageIndirect
	}
	buf, err := dev.CreateBuffer(&hal.BufferDescriptor{
		Label: label,
		Size:  max(size, minBufferSize),
		Usage: usage,
	})
	if err != nil {
		return nil, fmt.Errorf("cmaa gpu: create buffer %q: %w", label, err)
	}
	return buf, nil
}

func (f *frame) image(img device.Image, format device.Format) (*image, error) {
	i, ok := img.(*image)
	if !ok || i.owner != f {
		return nil, device.ErrForeignResource
	}
	if i.destroyed {
		return nil, fmt.Errorf("cmaa gpu: image %q used after destroy", i.desc.Label)
	}
	if format != 0 && i.desc.Format != format {
		return nil, fmt.Errorf("cmaa gpu: image %q is %v, want %v", i.desc.Label, i.desc.Format, format)
	}
	return i, nil
}

func (f *frame) buffer(buf device.Buffer) (*buffer, error) {
	b, ok := buf.(*buffer)
	if !ok || b.owner != f {
		return nil, device.ErrForeignResource
	}
	if b.destroyed {
		return nil, fmt.Errorf("cmaa gpu: buffer %q used after destroy", b.desc.Label)
	}
	return b, nil
}

// binding is one resolved bind group entry.
type binding struct {
	buf  hal.Buffer
	size uint64
}

// resolve maps the Bindings of kernel k onto the buffers of its bind group,
// in binding order. The params buffer is supplied by the caller.
func (f *frame) resolve(k device.Kernel, b *device.Bindings, params binding) ([]binding, error) {
	decls := kernelBindings(k)
	out := make([]binding, len(decls))
	for n, d := range decls {
		var (
			r   binding
			err error
		)
		switch d.slot {
		case slotParams:
			r = params
		case slotColor:
			r, err = f.imageBinding(b.Color, device.FormatRGBA32Float)
		case slotEdges:
			r, err = f.imageBinding(b.Edges, device.FormatR8Uint)
		case slotHeads:
			if b.Heads.Image != nil {
				r, err = f.imageBinding(b.Heads.Image, device.FormatR32Uint)
			} else {
				r, err = f.bufferBinding(b.Heads.Buffer)
			}
		case slotCandidates:
			r, err = f.bufferBinding(b.Candidates)
		case slotItems:
			r, err = f.bufferBinding(b.Items)
		case slotLocations:
			r, err = f.bufferBinding(b.Locations)
		case slotControl:
			r, err = f.bufferBinding(b.Control)
		case slotArgs:
			r, err = f.bufferBinding(b.Args)
		}
		if err != nil {
			return nil, fmt.Errorf("%v binding %d: %w", k, n, err)
		}
		out[n] = r
	}
	return out, nil
}

func (f *frame) imageBinding(img device.Image, format device.Format) (binding, error) {
	i, err := f.image(img, format)
	if err != nil {
		return binding{}, err
	}
	return binding{buf: i.buf, size: i.size}, nil
}

func (f *frame) bufferBinding(buf device.Buffer) (binding, error) {
	b, err := f.buffer(buf)
	if err != nil {
		return binding{}, err
	}
	return binding{buf: b.buf, size: b.size}, nil
}

// writesColor reports whether kernel k writes its color binding.
func writesColor(k device.Kernel) bool {
	for _, d := range kernelBindings(k) {
		if d.slot == slotColor {
			return d.kind == bindStorageRW
		}
	}
	return false
}
