// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package pipeline

import "github.com/gogpu/cmaa/device"

// frameResources are the transient resources of one frame.
type frameResources struct {
	color      device.Image
	edges      device.Image
	heads      device.HeadStore
	candidates device.Buffer
	items      device.Buffer
	locations  device.Buffer
	control    device.Buffer
	args       device.Buffer
}

// allocate creates the frame resources in a. ListHeads is an image when the
// device has atomic images and a buffer otherwise.
func allocate(a *Arena, l device.FrameLayout, caps device.Capabilities) (*frameResources, error) {
	r := &frameResources{}
	var err error
	if r.color, err = a.Image(device.ImageDesc{
		Label: "cmaa color", Width: l.Width, Height: l.Height,
		Format: device.FormatRGBA32Float, RandomWrite: true,
	}); err != nil {
		return nil, err
	}
	if r.edges, err = a.Image(device.ImageDesc{
		Label: "cmaa edges", Width: l.QuadWidth, Height: l.QuadHeight,
		Format: device.FormatR8Uint, RandomWrite: true,
	}); err != nil {
		return nil, err
	}
	if caps.AtomicImages {
		r.heads.Image, err = a.Image(device.ImageDesc{
			Label: "cmaa list heads", Width: l.QuadWidth, Height: l.QuadHeight,
			Format: device.FormatR32Uint, RandomWrite: true,
		})
	} else {
		r.heads.Buffer, err = a.Buffer(device.BufferDesc{
			Label: "cmaa list heads", Count: l.Quads(), Stride: 4, Usage: device.BufferStructured,
		})
	}
	if err != nil {
		return nil, err
	}

	buffers := []struct {
		dst  *device.Buffer
		desc device.BufferDesc
	}{
		{&r.candidates, device.BufferDesc{Label: "cmaa candidates", Count: l.CandidateCapacity, Stride: 4, Usage: device.BufferStructured}},
		{&r.items, device.BufferDesc{Label: "cmaa blend items", Count: l.ItemCapacity, Stride: 8, Usage: device.BufferStructured}},
		{&r.locations, device.BufferDesc{Label: "cmaa head locations", Count: l.LocationCapacity, Stride: 4, Usage: device.BufferStructured}},
		{&r.control, device.BufferDesc{Label: "cmaa control", Count: device.ControlWords, Stride: 4, Usage: device.BufferRaw}},
		{&r.args, device.BufferDesc{Label: "cmaa dispatch args", Count: device.IndirectArgsWords, Stride: 4, Usage: device.BufferIndirect}},
	}
	for _, b := range buffers {
		if *b.dst, err = a.Buffer(b.desc); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *frameResources) bindings(p device.Params) *device.Bindings {
	return &device.Bindings{
		Params:     p,
		Color:      r.color,
		Edges:      r.edges,
		Heads:      r.heads,
		Candidates: r.candidates,
		Items:      r.items,
		Locations:  r.locations,
		Control:    r.control,
		Args:       r.args,
	}
}

// clearHeads records the reset of every list head to the sentinel.
func (r *frameResources) clearHeads(cmd device.Commands) error {
	if r.heads.Image != nil {
		return cmd.FillImage(r.heads.Image, device.HeadSentinel)
	}
	return cmd.Fill(r.heads.Buffer, device.HeadSentinel)
}
