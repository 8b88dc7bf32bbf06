//go:build !nogpu

// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpu

import (
	"context"
	"fmt"
	"time"
	"unsafe"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/cmaa/device"
)

const (
	// fenceTimeout bounds the wait for a submitted frame.
	fenceTimeout = 5 * time.Second

	// pollInterval is the sleep between completion polls.
	pollInterval = 50 * time.Microsecond
)

// readback copies a staging buffer into host words after submit.
type readback struct {
	staging hal.Buffer
	dst     []uint32
}

// frame encodes every command into one hal command encoder. Resources and
// bind groups stay alive until Release because the GPU reads them only after
// Submit.
type frame struct {
	dev     *Device
	host    device.HostSurface
	color   *image
	encoder hal.CommandEncoder
	cmdBuf  hal.CommandBuffer

	images     []*image
	buffers    []*buffer
	params     map[device.Params]hal.Buffer
	bindGroups []hal.BindGroup
	scratch    []hal.Buffer
	reads      []readback
	dispatches int

	colorDirty bool
	inFlight   bool
	submitted  bool
	released   bool
}

var _ device.Frame = (*frame)(nil)

func (f *frame) recordable() error {
	if f.submitted || f.released {
		return device.ErrFrameSubmitted
	}
	return nil
}

// Color returns the image holding the uploaded host surface.
func (f *frame) Color() device.Image { return f.color }

// CreateImage allocates an image. Its contents are undefined until filled
// or copied into.
func (f *frame) CreateImage(desc device.ImageDesc) (device.Image, error) {
	if err := f.recordable(); err != nil {
		return nil, err
	}
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	size := imageSize(desc)
	buf, err := createStorage(f.dev.device, desc.Label, size, false)
	if err != nil {
		return nil, err
	}
	img := &image{owner: f, desc: desc, buf: buf, size: max(size, minBufferSize)}
	f.images = append(f.images, img)
	return img, nil
}

// CreateBuffer allocates a buffer. Its contents are undefined until filled.
func (f *frame) CreateBuffer(desc device.BufferDesc) (device.Buffer, error) {
	if err := f.recordable(); err != nil {
		return nil, err
	}
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	size := uint64(desc.Size())
	buf, err := createStorage(f.dev.device, desc.Label, size, desc.Usage&device.BufferIndirect != 0)
	if err != nil {
		return nil, err
	}
	b := &buffer{owner: f, desc: desc, buf: buf, size: max(size, minBufferSize)}
	f.buffers = append(f.buffers, b)
	return b, nil
}

// DestroyImage marks img destroyed. The storage is freed on Release, after
// the commands that use it have run.
func (f *frame) DestroyImage(img device.Image) {
	if i, ok := img.(*image); ok && i.owner == f && i != f.color {
		i.destroyed = true
	}
}

// DestroyBuffer marks buf destroyed. The storage is freed on Release.
func (f *frame) DestroyBuffer(buf device.Buffer) {
	if b, ok := buf.(*buffer); ok && b.owner == f {
		b.destroyed = true
	}
}

// fillWords records setting size bytes of dst to value.
func (f *frame) fillWords(dst hal.Buffer, size uint64, value uint32) error {
	if value == 0 {
		f.encoder.ClearBuffer(dst, 0, size)
		return nil
	}
	src, err := f.dev.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "cmaa_fill",
		Size:  size,
		Usage: gputypes.BufferUsageCopySrc | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("cmaa gpu: create fill buffer: %w", err)
	}
	f.scratch = append(f.scratch, src)

	words := make([]uint32, size/4)
	for i := range words {
		words[i] = value
	}
	if err := f.dev.queue.WriteBuffer(src, 0, asBytes(words)); err != nil {
		return fmt.Errorf("cmaa gpu: write fill buffer: %w", err)
	}
	f.encoder.CopyBufferToBuffer(src, dst, []hal.BufferCopy{{Size: size}})
	return nil
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
	return f.fillWords(buf.buf, buf.size, value)
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
		return fmt.Errorf("cmaa gpu: FillImage on float image %q", i.desc.Label)
	}
	if i.desc.Format == device.FormatR8Uint {
		value &= 0xFF
	}
	return f.fillWords(i.buf, i.size, value)
}

// CopyImage records a copy between two float images of the same size.
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
		return fmt.Errorf("cmaa gpu: copy %dx%d into %dx%d",
			s.desc.Width, s.desc.Height, d.desc.Width, d.desc.Height)
	}
	f.encoder.CopyBufferToBuffer(s.buf, d.buf, []hal.BufferCopy{{Size: imageSize(s.desc)}})
	if d == f.color {
		f.colorDirty = true
	}
	return nil
}

// paramsBuffer returns a uniform buffer holding p, creating it on first use.
func (f *frame) paramsBuffer(p device.Params) (hal.Buffer, error) {
	if buf, ok := f.params[p]; ok {
		return buf, nil
	}
	buf, err := f.dev.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "cmaa_params",
		Size:  device.ParamsSize,
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("cmaa gpu: create params buffer: %w", err)
	}
	if err := f.dev.queue.WriteBuffer(buf, 0, p.Bytes()); err != nil {
		f.dev.device.DestroyBuffer(buf)
		return nil, fmt.Errorf("cmaa gpu: write params: %w", err)
	}
	f.params[p] = buf
	return buf, nil
}

// prepare validates a dispatch and builds its bind group.
func (f *frame) prepare(k device.Kernel, b *device.Bindings) (hal.ComputePipeline, hal.BindGroup, error) {
	if err := f.recordable(); err != nil {
		return nil, nil, err
	}
	if err := b.Check(k); err != nil {
		return nil, nil, err
	}
	pipeline, layout, err := f.dev.disp.pipeline(k)
	if err != nil {
		return nil, nil, err
	}
	params, err := f.paramsBuffer(b.Params)
	if err != nil {
		return nil, nil, err
	}
	resolved, err := f.resolve(k, b, binding{buf: params, size: device.ParamsSize})
	if err != nil {
		return nil, nil, err
	}

	entries := make([]gputypes.BindGroupEntry, len(resolved))
	for n, r := range resolved {
		entries[n] = gputypes.BindGroupEntry{
			Binding: uint32(n),
			Resource: gputypes.BufferBinding{
				Buffer: r.buf.NativeHandle(),
				Size:   r.size,
			},
		}
	}
	bg, err := f.dev.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:   "cmaa_" + k.String() + "_bg",
		Layout:  layout,
		Entries: entries,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("cmaa gpu: create bind group for %s: %w", k, err)
	}
	f.bindGroups = append(f.bindGroups, bg)

	if writesColor(k) && b.Color == device.Image(f.color) {
		f.colorDirty = true
	}
	return pipeline, bg, nil
}

// Dispatch records a direct dispatch.
func (f *frame) Dispatch(k device.Kernel, b *device.Bindings, x, y, z uint32) error {
	limit := f.dev.caps.MaxWorkgroupsPerDimension
	if x > limit || y > limit || z > limit {
		return fmt.Errorf("cmaa gpu: %v dispatch [%d %d %d] exceeds %d workgroups per dimension",
			k, x, y, z, limit)
	}
	pipeline, bg, err := f.prepare(k, b)
	if err != nil {
		return err
	}
	pass := f.encoder.BeginComputePass(&hal.ComputePassDescriptor{Label: k.String()})
	pass.SetPipeline(pipeline)
	pass.SetBindGroup(0, bg, nil)
	pass.Dispatch(x, y, z)
	pass.End()
	f.dispatches++
	return nil
}

// DispatchIndirect records a dispatch whose workgroup counts are read from
// args by the GPU.
func (f *frame) DispatchIndirect(k device.Kernel, b *device.Bindings, args device.Buffer, offset uint64) error {
	if err := f.recordable(); err != nil {
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
		return fmt.Errorf("cmaa gpu: buffer %q lacks indirect usage", ab.desc.Label)
	}
	if offset+12 > uint64(ab.desc.Size()) {
		return device.ErrOffsetOutOfRange
	}
	pipeline, bg, err := f.prepare(k, b)
	if err != nil {
		return err
	}
	pass := f.encoder.BeginComputePass(&hal.ComputePassDescriptor{Label: k.String() + "_indirect"})
	pass.SetPipeline(pipeline)
	pass.SetBindGroup(0, bg, nil)
	pass.DispatchIndirect(ab.buf, offset)
	pass.End()
	f.dispatches++
	return nil
}

// staging records a copy of size bytes of src into a new mappable buffer.
func (f *frame) staging(src hal.Buffer, size uint64) (hal.Buffer, error) {
	buf, err := f.dev.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "cmaa_staging",
		Size:  size,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("cmaa gpu: create staging buffer: %w", err)
	}
	f.scratch = append(f.scratch, buf)
	f.encoder.CopyBufferToBuffer(src, buf, []hal.BufferCopy{{Size: size}})
	return buf, nil
}

// ReadBuffer records a copy of the first len(dst) words of src into dst.
func (f *frame) ReadBuffer(src device.Buffer, dst []uint32) error {
	if err := f.recordable(); err != nil {
		return err
	}
	b, err := f.buffer(src)
	if err != nil {
		return err
	}
	if len(dst) > b.desc.Words() {
		return fmt.Errorf("cmaa gpu: read %d words from %q of %d", len(dst), b.desc.Label, b.desc.Words())
	}
	if len(dst) == 0 {
		return nil
	}
	staging, err := f.staging(b.buf, uint64(len(dst))*4)
	if err != nil {
		return err
	}
	f.reads = append(f.reads, readback{staging: staging, dst: dst})
	return nil
}

// Submit finishes encoding, submits the command buffer and waits for it.
// The context is honoured up to the submit; a submitted frame always runs to
// completion. Readbacks and the color write-back happen after the wait.
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
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("cmaa gpu: frame cancelled before submit: %w", err)
	}

	var colorStaging hal.Buffer
	if f.colorDirty {
		var err error
		if colorStaging, err = f.staging(f.color.buf, imageSize(f.color.desc)); err != nil {
			return err
		}
	}

	cmdBuf, err := f.encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("cmaa gpu: end encoding: %w", err)
	}
	f.cmdBuf = cmdBuf

	start := time.Now()
	idx, err := f.dev.queue.Submit([]hal.CommandBuffer{cmdBuf})
	if err != nil {
		return fmt.Errorf("cmaa gpu: submit: %w", err)
	}
	f.inFlight = true
	for f.dev.queue.PollCompleted() < idx {
		if time.Since(start) > fenceTimeout {
			return fmt.Errorf("cmaa gpu: GPU timeout after %v", fenceTimeout)
		}
		time.Sleep(pollInterval)
	}
	f.inFlight = false

	for _, r := range f.reads {
		if err := f.mapInto(r.staging, asBytes(r.dst)); err != nil {
			return err
		}
	}
	if colorStaging != nil {
		n := f.host.Width * f.host.Height * 4
		if err := f.mapInto(colorStaging, asBytes(f.host.Pix[:n])); err != nil {
			return err
		}
	}

	slogger().Debug("cmaa gpu: frame complete",
		"dispatches", f.dispatches,
		"bind_groups", len(f.bindGroups),
		"color_written", colorStaging != nil,
		"elapsed", time.Since(start))
	return nil
}

// mapInto copies the contents of a staging buffer into dst.
func (f *frame) mapInto(staging hal.Buffer, dst []byte) error {
	m, err := f.dev.device.MapBuffer(staging, 0, uint64(len(dst)))
	if err != nil {
		return fmt.Errorf("cmaa gpu: map staging buffer: %w", err)
	}
	copy(dst, unsafe.Slice((*byte)(m.Ptr), len(dst)))
	if err := f.dev.device.UnmapBuffer(staging); err != nil {
		return fmt.Errorf("cmaa gpu: unmap staging buffer: %w", err)
	}
	return nil
}

// Release frees every GPU object the frame created. A frame that timed out
// waits for the device to go idle first.
func (f *frame) Release() {
	if f.released {
		return
	}
	f.dev.mu.RLock()
	defer f.dev.mu.RUnlock()
	f.release()
}

// release is Release with the device lock held.
func (f *frame) release() {
	if f.released {
		return
	}
	f.released = true

	dev := f.dev.device
	if dev == nil {
		return
	}
	if f.inFlight {
		if err := dev.WaitIdle(); err != nil {
			slogger().Warn("cmaa gpu: wait idle on release", "error", err)
		}
	}
	if f.cmdBuf != nil {
		dev.FreeCommandBuffer(f.cmdBuf)
	} else if f.encoder != nil {
		f.encoder.DiscardEncoding()
	}
	for _, bg := range f.bindGroups {
		dev.DestroyBindGroup(bg)
	}
	for _, buf := range f.params {
		dev.DestroyBuffer(buf)
	}
	for _, buf := range f.scratch {
		dev.DestroyBuffer(buf)
	}
	for _, b := range f.buffers {
		dev.DestroyBuffer(b.buf)
		b.destroyed = true
	}
	for _, i := range f.images {
		dev.DestroyBuffer(i.buf)
		i.destroyed = true
	}
	if f.encoder != nil {
		f.encoder.Destroy()
	}
	f.bindGroups, f.params, f.scratch, f.reads = nil, nil, nil, nil
	f.buffers, f.images = nil, nil
}

// asBytes reinterprets a word slice as its backing bytes.
func asBytes[T uint32 | float32](s []T) []byte {
	if len(s) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), len(s)*4) //nolint:gosec // 4-byte elements
}
