// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package pipeline

import (
	"errors"
	"fmt"

	"github.com/gogpu/cmaa/device"
)

// Errors returned by the frame arena.
var (
	// ErrResourceCreation wraps a device failure to create a frame resource.
	ErrResourceCreation = errors.New("pipeline: resource creation failed")

	// ErrArenaReleased is returned when a released arena is asked for a
	// resource.
	ErrArenaReleased = errors.New("pipeline: arena released")
)

// arenaEntry is one resource; exactly one field is set.
type arenaEntry struct {
	image  device.Image
	buffer device.Buffer
}

// Arena owns the transient resources of one frame. Every image and buffer is
// created through it and destroyed by Release in reverse creation order.
type Arena struct {
	alloc    device.Allocator
	entries  []arenaEntry
	released bool
}

// NewArena returns an arena allocating from alloc.
func NewArena(alloc device.Allocator) *Arena {
	return &Arena{alloc: alloc}
}

// Image creates an image owned by the arena.
func (a *Arena) Image(desc device.ImageDesc) (device.Image, error) {
	if a.released {
		return nil, ErrArenaReleased
	}
	img, err := a.alloc.CreateImage(desc)
	if err != nil {
		return nil, fmt.Errorf("%w: image %q: %w", ErrResourceCreation, desc.Label, err)
	}
	a.entries = append(a.entries, arenaEntry{image: img})
	return img, nil
}

// Buffer creates a buffer owned by the arena.
func (a *Arena) Buffer(desc device.BufferDesc) (device.Buffer, error) {
	if a.released {
		return nil, ErrArenaReleased
	}
	buf, err := a.alloc.CreateBuffer(desc)
	if err != nil {
		return nil, fmt.Errorf("%w: buffer %q: %w", ErrResourceCreation, desc.Label, err)
	}
	a.entries = append(a.entries, arenaEntry{buffer: buf})
	return buf, nil
}

// Len returns the number of live resources.
func (a *Arena) Len() int { return len(a.entries) }

// Release destroys every resource, newest first. It is safe to call more
// than once.
func (a *Arena) Release() {
	for i := len(a.entries) - 1; i >= 0; i-- {
		e := a.entries[i]
		if e.image != nil {
			a.alloc.DestroyImage(e.image)
		} else {
			a.alloc.DestroyBuffer(e.buffer)
		}
	}
	a.entries = a.entries[:0]
	a.released = true
}

// Reset releases every resource and makes the arena usable again.
func (a *Arena) Reset() {
	a.Release()
	a.released = false
}
