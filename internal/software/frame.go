// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package software

import (
	"context"
	"fmt"

	"github.com/gogpu/cmaa/device"
	"github.com/gogpu/cmaa/internal/kernel"
)

// command is one recorded operation.
type command struct {
	name string
	run  func() error
}

// frame records commands and runs them on Submit.
type frame struct {
	dev       *Device
	color     *image
	images    []*image
	buffers   []*buffer
	cmds      []command
	submitted bool
	released  bool
}

var _ device.Frame = (*frame)(nil)

func (f *frame) recordable() error {
	if f.submitted || f.released {
		return device.ErrFrameSubmitted
	}
	return nil
}

func (f *frame) record(name string, run func() error) {
	f.cmds = append(f.cmds, command{name: name, run: run})
}

// Color returns the host surface image.
func (f *frame) Color() device.Image { return f.color }

// CreateImage allocates a zeroed image.
func (f *frame) CreateImage(desc device.ImageDesc) (device.Image, error) {
	if err := f.recordable(); err != nil {
		return nil, err
	}
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	img := newImage(f, desc)
	f.images = append(f.images, img)
	return img, nil
}

// CreateBuffer allocates a zeroed buffer.
func (f *frame) CreateBuffer(desc device.BufferDesc) (device.Buffer, error) {
	if err := f.recordable(); err != nil {
		return nil, err
	}
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	buf := &buffer{owner: f, desc: desc, words: make([]uint32, desc.Words())}
	f.buffers = append(f.buffers, buf)
	return buf, nil
}

// DestroyImage releases an image. The host color image is not released.
func (f *frame) DestroyImage(img device.Image) {
	if i, ok := img.(*image); ok && i.owner == f && i != f.color {
		i.release()
	}
}

// DestroyBuffer releases a buffer.
func (f *frame) DestroyBuffer(buf device.Buffer) {
	if b, ok := buf.(*buffer); ok && b.owner == f {
		b.release()
	}
}

// Fill records setting every word of b to value.
func (f *frame) Fill(b device.Buffer, value uint32) error {
	if err := f.recordable(); err != nil {
		return err
	}
	buf, err := f.buffer(b)
	if err != nil {
		return err
	}
	f.record("fill "+buf.desc.Label, func() error {
		for i := range buf.words {
			buf.words[i] = value
		}
		return nil
	})
	return nil
}

// FillImage records setting every texel of an integer image to value.
func (f *frame) FillImage(img device.Image, value uint32) error {
	if err := f.recordable(); err != nil {
		return err
	}
	i, err := f.image(img, 0)
	if err != nil {
		return err
	}
	if i.desc.Format.IsFloat() {
		return fmt.Errorf("software: FillImage on float image %q", i.desc.Label)
	}
	f.record("fill "+i.desc.Label, func() error {
		for t := range i.u32 {
			i.u32[t] = value
		}
		for t := range i.u8 {
			i.u8[t] = uint8(value)
		}
		return nil
	})
	return nil
}

// CopyImage records a row-by-row copy between two float images.
func (f *frame) CopyImage(dst, src device.Image) error {
	if err := f.recordable(); err != nil {
		return err
	}
	d, err := f.image(dst, device.FormatRGBA32Float)
	if err != nil {
		return fmt.Errorf("copy dst: %w", err)
	}
	s, err := f.image(src, device.FormatRGBA32Float)
	if err != nil {
		return fmt.Errorf("copy src: %w", err)
	}
	if d.desc.Width != s.desc.Width || d.desc.Height != s.desc.Height {
		return fmt.Errorf("software: copy %dx%d into %dx%d",
			s.desc.Width, s.desc.Height, d.desc.Width, d.desc.Height)
	}
	f.record("copy "+s.desc.Label+" -> "+d.desc.Label, func() error {
		row := s.desc.Width * 4
		for y := 0; y < s.desc.Height; y++ {
			copy(d.f32[y*d.pitch*4:y*d.pitch*4+row], s.f32[y*s.pitch*4:y*s.pitch*4+row])
		}
		return nil
	})
	return nil
}

// Dispatch records a direct dispatch.
func (f *frame) Dispatch(k device.Kernel, b *device.Bindings, x, y, z uint32) error {
	fn, r, err := f.prepare(k, b)
	if err != nil {
		return err
	}
	f.record(k.String(), func() error {
		return f.dev.runGrid(k, fn, r, [3]uint32{x, y, z})
	})
	return nil
}

// DispatchIndirect records a dispatch whose workgroup counts are read from
// args when the command runs.
func (f *frame) DispatchIndirect(k device.Kernel, b *device.Bindings, args device.Buffer, offset uint64) error {
	fn, r, err := f.prepare(k, b)
	if err != nil {
		return err
	}
	if offset%4 != 0 {
		return device.ErrOffsetNotAligned
	}
	ab, err := f.buffer(args)
	if err != nil {
		return fmt.Errorf("indirect args: %w", err)
	}
	if ab.desc.Usage&device.BufferIndirect == 0 {
		return fmt.Errorf("software: buffer %q lacks indirect usage", ab.desc.Label)
	}
	at := int(offset / 4)
	if at+3 > len(ab.words) {
		return device.ErrOffsetOutOfRange
	}
	f.record(k.String()+" (indirect)", func() error {
		groups := [3]uint32(ab.words[at : at+3])
		return f.dev.runGrid(k, fn, r, groups)
	})
	return nil
}

func (f *frame) prepare(k device.Kernel, b *device.Bindings) (kernel.Func, *kernel.Resources, error) {
	if err := f.recordable(); err != nil {
		return nil, nil, err
	}
	if err := b.Check(k); err != nil {
		return nil, nil, err
	}
	fn, err := kernel.Lookup(k)
	if err != nil {
		return nil, nil, err
	}
	r, err := f.resources(b)
	if err != nil {
		return nil, nil, fmt.Errorf("%v: %w", k, err)
	}
	return fn, r, nil
}

// ReadBuffer records a copy of src into dst.
func (f *frame) ReadBuffer(src device.Buffer, dst []uint32) error {
	if err := f.recordable(); err != nil {
		return err
	}
	b, err := f.buffer(src)
	if err != nil {
		return err
	}
	if len(dst) > len(b.words) {
		return fmt.Errorf("software: read %d words from %q of %d", len(dst), b.desc.Label, len(b.words))
	}
	f.record("read "+b.desc.Label, func() error {
		copy(dst, b.words)
		return nil
	})
	return nil
}

// Submit runs the recorded commands in order. The context is checked
// between commands; a cancelled frame stops where it is.
func (f *frame) Submit(ctx context.Context) error {
	if err := f.recordable(); err != nil {
		return err
	}
	f.submitted = true

	f.dev.mu.RLock()
	defer f.dev.mu.RUnlock()
	if f.dev.closed {
		return device.ErrDeviceClosed
	}
	for _, c := range f.cmds {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("software: frame cancelled before %s: %w", c.name, err)
		}
		if err := c.run(); err != nil {
			return fmt.Errorf("software: %s: %w", c.name, err)
		}
	}
	f.cmds = nil
	return nil
}

// Release frees every resource the frame still holds.
func (f *frame) Release() {
	if f.released {
		return
	}
	f.released = true
	for _, img := range f.images {
		img.release()
	}
	for _, buf := range f.buffers {
		buf.release()
	}
	f.images, f.buffers, f.cmds = nil, nil, nil
}
