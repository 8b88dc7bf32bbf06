// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package device

import (
	"context"
	"errors"
	"fmt"
)

// Errors returned by devices and frames.
var (
	// ErrFrameSubmitted is returned when a frame is used after Submit.
	ErrFrameSubmitted = errors.New("device: frame already submitted")

	// ErrForeignResource is returned when a resource created by another
	// device or frame is passed to a frame.
	ErrForeignResource = errors.New("device: resource does not belong to this frame")

	// ErrUnboundResource is returned when a kernel is dispatched without a
	// resource it reads or writes.
	ErrUnboundResource = errors.New("device: kernel resource not bound")

	// ErrOffsetNotAligned is returned when an indirect dispatch offset is not
	// a multiple of 4 bytes.
	ErrOffsetNotAligned = errors.New("device: indirect offset must be 4-byte aligned")

	// ErrOffsetOutOfRange is returned when an indirect dispatch reads past the
	// end of its arguments buffer.
	ErrOffsetOutOfRange = errors.New("device: indirect offset out of range")

	// ErrInvalidDescriptor is returned for zero-sized or malformed descriptors.
	ErrInvalidDescriptor = errors.New("device: invalid resource descriptor")

	// ErrDeviceClosed is returned when a closed device is asked to begin a frame.
	ErrDeviceClosed = errors.New("device: device closed")
)

// Format is the texel format of an image.
type Format uint8

// Image formats used by the pipeline.
const (
	// FormatRGBA32Float is four 32-bit float channels.
	FormatRGBA32Float Format = iota + 1

	// FormatR8Uint is one 8-bit unsigned integer channel.
	FormatR8Uint

	// FormatR32Uint is one 32-bit unsigned integer channel.
	FormatR32Uint
)

// String returns the format name.
func (f Format) String() string {
	switch f {
	case FormatRGBA32Float:
		return "rgba32float"
	case FormatR8Uint:
		return "r8uint"
	case FormatR32Uint:
		return "r32uint"
	default:
		return fmt.Sprintf("Format(%d)", uint8(f))
	}
}

// IsFloat reports whether the format stores float color.
func (f Format) IsFloat() bool { return f == FormatRGBA32Float }

// BufferUsage is a bitmask specifying how a buffer is bound.
type BufferUsage uint8

// Buffer usage flags.
const (
	// BufferStructured is an array of fixed-stride elements.
	BufferStructured BufferUsage = 1 << 0

	// BufferRaw is addressed as 32-bit words; used for ControlState.
	BufferRaw BufferUsage = 1 << 1

	// BufferIndirect can be read by DispatchIndirect.
	BufferIndirect BufferUsage = 1 << 2
)

// ImageDesc describes a transient 2D image.
type ImageDesc struct {
	Label       string
	Width       int
	Height      int
	Format      Format
	RandomWrite bool
}

// Validate checks that the descriptor can be allocated.
func (d ImageDesc) Validate() error {
	if d.Width <= 0 || d.Height <= 0 {
		return fmt.Errorf("%w: image %q is %dx%d", ErrInvalidDescriptor, d.Label, d.Width, d.Height)
	}
	if d.Format < FormatRGBA32Float || d.Format > FormatR32Uint {
		return fmt.Errorf("%w: image %q has format %v", ErrInvalidDescriptor, d.Label, d.Format)
	}
	return nil
}

// Texels returns Width*Height.
func (d ImageDesc) Texels() int { return d.Width * d.Height }

// BufferDesc describes a transient linear buffer of Count elements.
type BufferDesc struct {
	Label  string
	Count  int
	Stride int
	Usage  BufferUsage
}

// Validate checks that the descriptor can be allocated.
func (d BufferDesc) Validate() error {
	if d.Count <= 0 || d.Stride <= 0 || d.Stride%4 != 0 {
		return fmt.Errorf("%w: buffer %q count=%d stride=%d", ErrInvalidDescriptor, d.Label, d.Count, d.Stride)
	}
	return nil
}

// Size returns the buffer size in bytes.
func (d BufferDesc) Size() int { return d.Count * d.Stride }

// Words returns the buffer size in 32-bit words.
func (d BufferDesc) Words() int { return d.Size() / 4 }

// Image is a transient image owned by a frame.
type Image interface {
	ImageDesc() ImageDesc
}

// Buffer is a transient buffer owned by a frame.
type Buffer interface {
	BufferDesc() BufferDesc
}

// Capabilities reports optional device features.
type Capabilities struct {
	// AtomicImages is true when random-write images support atomic
	// exchange and compare-and-swap.
	AtomicImages bool

	// MaxWorkgroupsPerDimension bounds every dispatch dimension.
	MaxWorkgroupsPerDimension uint32
}

// HostSurface is the frame color handed to a device: Width*Height RGBA
// texels of float32, row-major, no padding. The device writes the processed
// color back into Pix when the frame is submitted.
type HostSurface struct {
	Width  int
	Height int
	Pix    []float32
}

// Validate checks that Pix covers the surface.
func (s HostSurface) Validate() error {
	if s.Width <= 0 || s.Height <= 0 {
		return fmt.Errorf("%w: surface is %dx%d", ErrInvalidDescriptor, s.Width, s.Height)
	}
	if len(s.Pix) < s.Width*s.Height*4 {
		return fmt.Errorf("%w: surface pixels %d < %d", ErrInvalidDescriptor, len(s.Pix), s.Width*s.Height*4)
	}
	return nil
}

// Allocator creates and destroys transient frame resources.
type Allocator interface {
	CreateImage(desc ImageDesc) (Image, error)
	CreateBuffer(desc BufferDesc) (Buffer, error)
	DestroyImage(img Image)
	DestroyBuffer(buf Buffer)
}

// Commands records work on the frame's single command stream. Commands
// execute in recording order and each one observes every write made by the
// commands before it.
type Commands interface {
	// Fill sets every 32-bit word of b to value.
	Fill(b Buffer, value uint32) error

	// FillImage sets every texel of an integer image to value.
	FillImage(img Image, value uint32) error

	// CopyImage copies src into dst. Both must have the same size and format.
	CopyImage(dst, src Image) error

	// Dispatch runs kernel k over x*y*z workgroups.
	Dispatch(k Kernel, b *Bindings, x, y, z uint32) error

	// DispatchIndirect runs kernel k with workgroup counts read from three
	// 32-bit words of args starting at offset bytes.
	DispatchIndirect(k Kernel, b *Bindings, args Buffer, offset uint64) error

	// ReadBuffer copies the first len(dst) words of src into dst when the
	// frame is submitted.
	ReadBuffer(src Buffer, dst []uint32) error
}

// Frame is one frame's resource scope and command stream.
type Frame interface {
	Allocator
	Commands

	// Color returns the image holding the host surface.
	Color() Image

	// Submit executes the recorded commands, waits for completion and
	// writes the color image back to the host surface.
	Submit(ctx context.Context) error

	// Release drops the frame. Resources not destroyed yet are destroyed.
	Release()
}

// Device runs CMAA2 frames.
type Device interface {
	Name() string
	Capabilities() Capabilities

	// Workgroup returns the declared workgroup size of kernel k.
	Workgroup(k Kernel) [3]uint32

	// BeginFrame imports the host surface and opens a command stream.
	BeginFrame(ctx context.Context, color HostSurface) (Frame, error)

	Close() error
}
