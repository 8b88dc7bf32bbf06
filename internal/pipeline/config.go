// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package pipeline

import (
	"errors"
	"fmt"
	"math"

	"github.com/gogpu/cmaa/device"
)

// Errors returned for configurations and frames the pipeline cannot run.
var (
	// ErrInvalidConfig is returned by Config.Validate.
	ErrInvalidConfig = errors.New("pipeline: invalid config")

	// ErrFrameTooLarge is returned when a frame exceeds the packing ranges
	// or the dispatch limits of the device.
	ErrFrameTooLarge = errors.New("pipeline: frame too large")
)

// Default tuning values.
const (
	DefaultEdgeThreshold = 0.07
	DefaultBlendWeight   = 0.25
)

// Config tunes the kernels.
type Config struct {
	// EdgeThreshold is the largest RGB channel difference two neighbours
	// may have without forming an edge.
	EdgeThreshold float32

	// BlendWeight is how far a pixel is pulled toward its neighbour across
	// an edge. 0.5 averages the two.
	BlendWeight float32
}

// DefaultConfig returns the default tuning.
func DefaultConfig() Config {
	return Config{
		EdgeThreshold: DefaultEdgeThreshold,
		BlendWeight:   DefaultBlendWeight,
	}
}

// Validate reports whether the config can be used.
func (c Config) Validate() error {
	t, w := float64(c.EdgeThreshold), float64(c.BlendWeight)
	switch {
	case math.IsNaN(t) || t < 0 || t > 1:
		return fmt.Errorf("%w: edge threshold %v outside [0, 1]", ErrInvalidConfig, c.EdgeThreshold)
	case math.IsNaN(w) || w <= 0 || w > 0.5:
		return fmt.Errorf("%w: blend weight %v outside (0, 0.5]", ErrInvalidConfig, c.BlendWeight)
	}
	return nil
}

// maxItems bounds the blend item pool: item indices live in the low 30
// bits of a link.
const maxItems = int(device.LinkIndexMask)

// checkFrame rejects frames whose quad coordinates or item indices do not
// fit their packed fields, or whose worst-case dispatches exceed caps.
func checkFrame(l device.FrameLayout, caps device.Capabilities, candidateGroup, applyGroup uint32, edgeGroups [3]uint32) error {
	if l.QuadWidth-1 > device.MaxQuadCoord || l.QuadHeight-1 > device.MaxQuadCoord {
		return fmt.Errorf("%w: %dx%d quads exceed coordinate range %d",
			ErrFrameTooLarge, l.QuadWidth, l.QuadHeight, device.MaxQuadCoord+1)
	}
	if l.ItemCapacity >= maxItems {
		return fmt.Errorf("%w: %d blend items exceed link range", ErrFrameTooLarge, l.ItemCapacity)
	}
	limit := caps.MaxWorkgroupsPerDimension
	if limit == 0 {
		return nil
	}
	cand, _ := ArgsFor(uint32(l.CandidateCapacity), uint32(l.CandidateCapacity), candidateGroup, AxisX)
	apply, _ := ArgsFor(uint32(l.LocationCapacity), uint32(l.LocationCapacity), applyGroup, AxisY)
	for _, d := range []struct {
		name   string
		groups [3]uint32
	}{
		{"edge detect", edgeGroups},
		{"candidate", cand},
		{"apply", apply},
	} {
		for _, n := range d.groups {
			if n > limit {
				return fmt.Errorf("%w: %s dispatch %v exceeds %d workgroups per dimension",
					ErrFrameTooLarge, d.name, d.groups, limit)
			}
		}
	}
	return nil
}
