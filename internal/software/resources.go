// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package software

import (
	"fmt"

	"github.com/gogpu/cmaa/device"
	"github.com/gogpu/cmaa/internal/kernel"
)

// rowAlign is the row pitch alignment of images, in texels.
const rowAlign = 16

// image is a CPU image. Exactly one of f32, u8 and u32 is allocated,
// according to the format.
type image struct {
	owner     *frame
	desc      device.ImageDesc
	pitch     int
	f32       []float32
	u8        []uint8
	u32       []uint32
	destroyed bool
}

func (i *image) ImageDesc() device.ImageDesc { return i.desc }

func newImage(owner *frame, desc device.ImageDesc) *image {
	img := &image{owner: owner, desc: desc, pitch: (desc.Width + rowAlign - 1) &^ (rowAlign - 1)}
	n := img.pitch * desc.Height
	switch desc.Format {
	case device.FormatRGBA32Float:
		img.f32 = make([]float32, n*4)
	case device.FormatR8Uint:
		img.u8 = make([]uint8, n)
	case device.FormatR32Uint:
		img.u32 = make([]uint32, n)
	}
	return img
}

// hostImage wraps the host surface without copying.
func hostImage(owner *frame, s device.HostSurface) *image {
	return &image{
		owner: owner,
		desc: device.ImageDesc{
			Label:       "host color",
			Width:       s.Width,
			Height:      s.Height,
			Format:      device.FormatRGBA32Float,
			RandomWrite: true,
		},
		pitch: s.Width,
		f32:   s.Pix[:s.Width*s.Height*4],
	}
}

func (i *image) release() {
	i.f32, i.u8, i.u32 = nil, nil, nil
	i.destroyed = true
}

type buffer struct {
	owner     *frame
	desc      device.BufferDesc
	words     []uint32
	destroyed bool
}

func (b *buffer) BufferDesc() device.BufferDesc { return b.desc }

func (b *buffer) release() {
	b.words = nil
	b.destroyed = true
}

func (f *frame) image(img device.Image, format device.Format) (*image, error) {
	i, ok := img.(*image)
	if !ok || i.owner != f {
		return nil, device.ErrForeignResource
	}
	if i.destroyed {
		return nil, fmt.Errorf("software: image %q used after destroy", i.desc.Label)
	}
	if format != 0 && i.desc.Format != format {
		return nil, fmt.Errorf("software: image %q is %v, want %v", i.desc.Label, i.desc.Format, format)
	}
	return i, nil
}

func (f *frame) buffer(buf device.Buffer) (*buffer, error) {
	b, ok := buf.(*buffer)
	if !ok || b.owner != f {
		return nil, device.ErrForeignResource
	}
	if b.destroyed {
		return nil, fmt.Errorf("software: buffer %q used after destroy", b.desc.Label)
	}
	return b, nil
}

// resources resolves bindings into the kernel's CPU view. Unbound fields
// stay zero.
func (f *frame) resources(b *device.Bindings) (*kernel.Resources, error) {
	r := &kernel.Resources{Params: b.Params}
	if b.Color != nil {
		img, err := f.image(b.Color, device.FormatRGBA32Float)
		if err != nil {
			return nil, fmt.Errorf("color: %w", err)
		}
		r.Color = kernel.ColorView{Pix: img.f32, Pitch: img.pitch}
	}
	if b.Edges != nil {
		img, err := f.image(b.Edges, device.FormatR8Uint)
		if err != nil {
			return nil, fmt.Errorf("edges: %w", err)
		}
		r.Edges = kernel.EdgeView{Texels: img.u8, Pitch: img.pitch}
	}
	switch {
	case b.Heads.Image != nil:
		img, err := f.image(b.Heads.Image, device.FormatR32Uint)
		if err != nil {
			return nil, fmt.Errorf("heads: %w", err)
		}
		r.Heads = kernel.NewImageStore(img.u32, img.desc.Width, img.desc.Height, img.pitch)
	case b.Heads.Buffer != nil:
		buf, err := f.buffer(b.Heads.Buffer)
		if err != nil {
			return nil, fmt.Errorf("heads: %w", err)
		}
		qw, qh := int(b.Params.QuadWidth), int(b.Params.QuadHeight)
		if len(buf.words) < qw*qh {
			return nil, fmt.Errorf("heads: buffer %q holds %d words, want %d", buf.desc.Label, len(buf.words), qw*qh)
		}
		r.Heads = kernel.NewBufferStore(buf.words, qw, qh)
	}

	words := []struct {
		name string
		buf  device.Buffer
		dst  *[]uint32
	}{
		{"candidates", b.Candidates, &r.Candidates},
		{"items", b.Items, &r.Items},
		{"locations", b.Locations, &r.Locations},
		{"control", b.Control, &r.Control},
		{"args", b.Args, &r.Args},
	}
	for _, w := range words {
		if w.buf == nil {
			continue
		}
		buf, err := f.buffer(w.buf)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", w.name, err)
		}
		*w.dst = buf.words
	}
	return r, checkCapacity(r)
}

// checkCapacity rejects bindings smaller than the capacities in Params; the
// kernels index up to those capacities without further checks.
func checkCapacity(r *kernel.Resources) error {
	p := &r.Params
	short := func(name string, have, want int) error {
		return fmt.Errorf("software: %s holds %d words, want %d", name, have, want)
	}
	switch {
	case r.Candidates != nil && len(r.Candidates) < int(p.CandidateCapacity):
		return short("candidates", len(r.Candidates), int(p.CandidateCapacity))
	case r.Items != nil && len(r.Items) < 2*int(p.ItemCapacity):
		return short("items", len(r.Items), 2*int(p.ItemCapacity))
	case r.Locations != nil && len(r.Locations) < int(p.LocationCapacity):
		return short("locations", len(r.Locations), int(p.LocationCapacity))
	case r.Control != nil && len(r.Control) < device.ControlWords:
		return short("control", len(r.Control), device.ControlWords)
	case r.Args != nil && len(r.Args) < device.IndirectArgsWords:
		return short("args", len(r.Args), device.IndirectArgsWords)
	}
	if r.Color.Pix != nil && len(r.Color.Pix) < (r.Color.Pitch*(int(p.Height)-1)+int(p.Width))*4 {
		return fmt.Errorf("software: color image smaller than %dx%d", p.Width, p.Height)
	}
	if r.Edges.Texels != nil && len(r.Edges.Texels) < r.Edges.Pitch*(int(p.QuadHeight)-1)+int(p.QuadWidth) {
		return fmt.Errorf("software: edge image smaller than %dx%d", p.QuadWidth, p.QuadHeight)
	}
	return nil
}
