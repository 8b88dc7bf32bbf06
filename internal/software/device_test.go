// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package software

import (
	"context"
	"errors"
	"testing"

	"github.com/gogpu/cmaa/device"
)

func surface(w, h int, v float32) device.HostSurface {
	pix := make([]float32, w*h*4)
	for i := range pix {
		pix[i] = v
	}
	return device.HostSurface{Width: w, Height: h, Pix: pix}
}

func beginFrame(t *testing.T, d *Device, s device.HostSurface) device.Frame {
	t.Helper()
	f, err := d.BeginFrame(context.Background(), s)
	if err != nil {
		t.Fatalf("BeginFrame: %v", err)
	}
	t.Cleanup(f.Release)
	return f
}

func mustBuffer(t *testing.T, f device.Frame, desc device.BufferDesc) device.Buffer {
	t.Helper()
	b, err := f.CreateBuffer(desc)
	if err != nil {
		t.Fatalf("CreateBuffer(%q): %v", desc.Label, err)
	}
	return b
}

func mustImage(t *testing.T, f device.Frame, desc device.ImageDesc) device.Image {
	t.Helper()
	img, err := f.CreateImage(desc)
	if err != nil {
		t.Fatalf("CreateImage(%q): %v", desc.Label, err)
	}
	return img
}

func TestDevice_Capabilities(t *testing.T) {
	for _, atomicImages := range []bool{false, true} {
		d := New(Options{Workers: 2, AtomicImages: atomicImages})
		caps := d.Capabilities()
		if caps.AtomicImages != atomicImages {
			t.Errorf("AtomicImages = %v, want %v", caps.AtomicImages, atomicImages)
		}
		if caps.MaxWorkgroupsPerDimension != maxWorkgroups {
			t.Errorf("MaxWorkgroupsPerDimension = %d", caps.MaxWorkgroupsPerDimension)
		}
		if d.Name() != Name {
			t.Errorf("Name() = %q", d.Name())
		}
		if err := d.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	}
}

func TestDevice_BeginFrameValidation(t *testing.T) {
	d := New(Options{Workers: 1})
	defer d.Close()

	tests := []struct {
		name string
		s    device.HostSurface
	}{
		{"zero width", device.HostSurface{Width: 0, Height: 4, Pix: make([]float32, 16)}},
		{"short pixels", device.HostSurface{Width: 4, Height: 4, Pix: make([]float32, 10)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := d.BeginFrame(context.Background(), tt.s)
			if !errors.Is(err, device.ErrInvalidDescriptor) {
				t.Errorf("BeginFrame = %v, want ErrInvalidDescriptor", err)
			}
		})
	}
}

func TestDevice_BeginFrameAfterClose(t *testing.T) {
	d := New(Options{Workers: 1})
	d.Close()
	_, err := d.BeginFrame(context.Background(), surface(2, 2, 0))
	if !errors.Is(err, device.ErrDeviceClosed) {
		t.Errorf("BeginFrame after Close = %v, want ErrDeviceClosed", err)
	}
}

func TestFrame_FillAndRead(t *testing.T) {
	d := New(Options{Workers: 2})
	defer d.Close()
	f := beginFrame(t, d, surface(4, 4, 0))

	b := mustBuffer(t, f, device.BufferDesc{Label: "words", Count: 8, Stride: 4, Usage: device.BufferRaw})
	if err := f.Fill(b, 0xABCD); err != nil {
		t.Fatal(err)
	}
	got := make([]uint32, 8)
	if err := f.ReadBuffer(b, got); err != nil {
		t.Fatal(err)
	}
	if got[0] != 0 {
		t.Fatal("ReadBuffer wrote before Submit")
	}
	if err := f.Submit(context.Background()); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	for i, w := range got {
		if w != 0xABCD {
			t.Errorf("word %d = %#x", i, w)
		}
	}
}

func TestFrame_UseAfterSubmit(t *testing.T) {
	d := New(Options{Workers: 1})
	defer d.Close()
	f := beginFrame(t, d, surface(2, 2, 0))
	b := mustBuffer(t, f, device.BufferDesc{Label: "b", Count: 1, Stride: 4})

	if err := f.Submit(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := f.Submit(context.Background()); !errors.Is(err, device.ErrFrameSubmitted) {
		t.Errorf("second Submit = %v, want ErrFrameSubmitted", err)
	}
	if err := f.Fill(b, 1); !errors.Is(err, device.ErrFrameSubmitted) {
		t.Errorf("Fill after Submit = %v, want ErrFrameSubmitted", err)
	}
}

func TestFrame_ForeignResource(t *testing.T) {
	d := New(Options{Workers: 1})
	defer d.Close()
	a := beginFrame(t, d, surface(2, 2, 0))
	b := beginFrame(t, d, surface(2, 2, 0))

	buf := mustBuffer(t, a, device.BufferDesc{Label: "a", Count: 4, Stride: 4})
	if err := b.Fill(buf, 0); !errors.Is(err, device.ErrForeignResource) {
		t.Errorf("Fill with foreign buffer = %v, want ErrForeignResource", err)
	}
	if err := b.CopyImage(b.Color(), a.Color()); !errors.Is(err, device.ErrForeignResource) {
		t.Errorf("CopyImage with foreign image = %v, want ErrForeignResource", err)
	}
}

func TestFrame_CopyImageMismatch(t *testing.T) {
	d := New(Options{Workers: 1})
	defer d.Close()
	f := beginFrame(t, d, surface(4, 4, 0))

	small := mustImage(t, f, device.ImageDesc{Label: "small", Width: 2, Height: 2, Format: device.FormatRGBA32Float})
	if err := f.CopyImage(small, f.Color()); err == nil {
		t.Error("CopyImage between sizes succeeded")
	}
	edges := mustImage(t, f, device.ImageDesc{Label: "edges", Width: 4, Height: 4, Format: device.FormatR8Uint})
	if err := f.CopyImage(edges, f.Color()); err == nil {
		t.Error("CopyImage between formats succeeded")
	}
	if err := f.FillImage(f.Color(), 0); err == nil {
		t.Error("FillImage on float image succeeded")
	}
}

func TestFrame_DispatchIndirectChecks(t *testing.T) {
	d := New(Options{Workers: 1})
	defer d.Close()
	f := beginFrame(t, d, surface(4, 4, 0))

	control := mustBuffer(t, f, device.BufferDesc{Label: "control", Count: device.ControlWords, Stride: 4, Usage: device.BufferRaw})
	args := mustBuffer(t, f, device.BufferDesc{Label: "args", Count: 1, Stride: 16, Usage: device.BufferIndirect})
	plain := mustBuffer(t, f, device.BufferDesc{Label: "plain", Count: 1, Stride: 16, Usage: device.BufferRaw})
	b := &device.Bindings{Control: control, Args: args}

	tests := []struct {
		name   string
		args   device.Buffer
		offset uint64
		want   error
	}{
		{"unaligned", args, 2, device.ErrOffsetNotAligned},
		{"past end", args, 8, device.ErrOffsetOutOfRange},
		{"foreign", nil, 0, device.ErrForeignResource},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := f.DispatchIndirect(device.KernelComputeDispatchArgs, b, tt.args, tt.offset)
			if !errors.Is(err, tt.want) {
				t.Errorf("DispatchIndirect = %v, want %v", err, tt.want)
			}
		})
	}
	if err := f.DispatchIndirect(device.KernelComputeDispatchArgs, b, plain, 0); err == nil {
		t.Error("DispatchIndirect from a non-indirect buffer succeeded")
	}
	if err := f.DispatchIndirect(device.KernelComputeDispatchArgs, b, args, 4); err != nil {
		t.Errorf("DispatchIndirect at offset 4 = %v", err)
	}
}

func TestFrame_DispatchUnbound(t *testing.T) {
	d := New(Options{Workers: 1})
	defer d.Close()
	f := beginFrame(t, d, surface(4, 4, 0))
	control := mustBuffer(t, f, device.BufferDesc{Label: "control", Count: device.ControlWords, Stride: 4})

	err := f.Dispatch(device.KernelEdgesColor2x2, &device.Bindings{Control: control, Color: f.Color()}, 1, 1, 1)
	if !errors.Is(err, device.ErrUnboundResource) {
		t.Errorf("Dispatch = %v, want ErrUnboundResource", err)
	}
}

// edgesFrame records an edge pass over a frame with one dark corner pixel.
func edgesFrame(t *testing.T, d *Device, w, h int, groups [3]uint32) (device.Frame, []uint32) {
	t.Helper()
	s := surface(w, h, 1)
	s.Pix[0], s.Pix[1], s.Pix[2] = 0, 0, 0
	f := beginFrame(t, d, s)
	l := device.NewFrameLayout(w, h)

	color := mustImage(t, f, device.ImageDesc{Label: "color", Width: w, Height: h, Format: device.FormatRGBA32Float})
	edges := mustImage(t, f, device.ImageDesc{Label: "edges", Width: l.QuadWidth, Height: l.QuadHeight, Format: device.FormatR8Uint, RandomWrite: true})
	candidates := mustBuffer(t, f, device.BufferDesc{Label: "candidates", Count: l.CandidateCapacity, Stride: 4, Usage: device.BufferStructured})
	control := mustBuffer(t, f, device.BufferDesc{Label: "control", Count: device.ControlWords, Stride: 4, Usage: device.BufferRaw})

	b := &device.Bindings{
		Params: device.Params{
			Width: uint32(w), Height: uint32(h),
			QuadWidth: uint32(l.QuadWidth), QuadHeight: uint32(l.QuadHeight),
			CandidateCapacity: uint32(l.CandidateCapacity),
			ItemCapacity:      uint32(l.ItemCapacity),
			LocationCapacity:  uint32(l.LocationCapacity),
			EdgeThreshold:     0.07,
			BlendWeight:       0.25,
		},
		Color:      color,
		Edges:      edges,
		Candidates: candidates,
		Control:    control,
	}
	for _, step := range []error{
		f.CopyImage(color, f.Color()),
		f.Fill(control, 0),
		f.Dispatch(device.KernelEdgesColor2x2, b, groups[0], groups[1], groups[2]),
	} {
		if step != nil {
			t.Fatalf("record: %v", step)
		}
	}
	got := make([]uint32, device.ControlWords)
	if err := f.ReadBuffer(control, got); err != nil {
		t.Fatal(err)
	}
	return f, got
}

func TestFrame_EdgesThroughPaddedImage(t *testing.T) {
	for _, atomicImages := range []bool{false, true} {
		d := New(Options{Workers: 3, AtomicImages: atomicImages})
		f, control := edgesFrame(t, d, 5, 7, [3]uint32{1, 1, 1})
		if err := f.Submit(context.Background()); err != nil {
			t.Fatalf("Submit: %v", err)
		}
		if n := control[device.ControlCandidateCount]; n != 1 {
			t.Errorf("candidates = %d, want 1", n)
		}
		d.Close()
	}
}

func TestFrame_SubmitCancelled(t *testing.T) {
	d := New(Options{Workers: 1})
	defer d.Close()
	f, control := edgesFrame(t, d, 4, 4, [3]uint32{1, 1, 1})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := f.Submit(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Submit = %v, want context.Canceled", err)
	}
	if control[device.ControlCandidateCount] != 0 {
		t.Error("commands ran after cancellation")
	}
}

func TestFrame_DispatchLimit(t *testing.T) {
	d := New(Options{Workers: 1})
	defer d.Close()
	f, _ := edgesFrame(t, d, 4, 4, [3]uint32{maxWorkgroups + 1, 1, 1})
	if err := f.Submit(context.Background()); err == nil {
		t.Error("Submit of an oversized dispatch succeeded")
	}
}

func TestFrame_SubmitAfterClose(t *testing.T) {
	d := New(Options{Workers: 1})
	f := beginFrame(t, d, surface(2, 2, 0))
	d.Close()
	if err := f.Submit(context.Background()); !errors.Is(err, device.ErrDeviceClosed) {
		t.Errorf("Submit after Close = %v, want ErrDeviceClosed", err)
	}
}
