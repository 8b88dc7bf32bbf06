// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package pipeline records and runs the CMAA2 pass sequence on a device.
//
// A frame copies the host color into a working image, runs
//
//	EdgeDetect → ArgsFromCount → CandidateProcess → ArgsFromCount → DeferredApply
//
// on one command stream and copies the result back. Every resource lives in
// a per-frame Arena. The host surface is written only by the final copy, so
// a frame that fails or is cancelled leaves it untouched.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gogpu/cmaa/device"
)

// Pipeline runs frames on one device.
type Pipeline struct {
	dev device.Device
	cfg Config
}

// New returns a pipeline for dev.
func New(dev device.Device, cfg Config) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Pipeline{dev: dev, cfg: cfg}, nil
}

// Device returns the device frames run on.
func (p *Pipeline) Device() device.Device { return p.dev }

// Config returns the kernel tuning.
func (p *Pipeline) Config() Config { return p.cfg }

// recorder records the passes of one frame in stage order.
type recorder struct {
	frame  device.Frame
	res    *frameResources
	b      *device.Bindings
	edge   [3]uint32
	stages Tracker
}

func (r *recorder) stage(s Stage, record func() error) error {
	if err := r.stages.Advance(s); err != nil {
		return err
	}
	if err := record(); err != nil {
		return fmt.Errorf("pipeline: %v: %w", s, err)
	}
	return nil
}

func (r *recorder) edgeDetect() error {
	return r.stage(StageEdgeDetect, func() error {
		return r.frame.Dispatch(device.KernelEdgesColor2x2, r.b, r.edge[0], r.edge[1], r.edge[2])
	})
}

func (r *recorder) candidateArgs() error {
	return r.stage(StageArgsReady1, func() error {
		return r.frame.Dispatch(device.KernelComputeDispatchArgs, r.b, 2, 1, 1)
	})
}

func (r *recorder) candidateProcess() error {
	return r.stage(StageCandidateProcess, func() error {
		return r.frame.DispatchIndirect(device.KernelProcessCandidates, r.b, r.res.args, 0)
	})
}

func (r *recorder) applyArgs() error {
	return r.stage(StageArgsReady2, func() error {
		return r.frame.Dispatch(device.KernelComputeDispatchArgs, r.b, 1, 2, 1)
	})
}

func (r *recorder) deferredApply() error {
	return r.stage(StageDeferredApply, func() error {
		return r.frame.DispatchIndirect(device.KernelDeferredColorApply2x2, r.b, r.res.args, 0)
	})
}

// Run antialiases host in place and returns the frame counters.
func (p *Pipeline) Run(ctx context.Context, host device.HostSurface) (Stats, error) {
	start := time.Now()
	if err := host.Validate(); err != nil {
		return Stats{}, err
	}
	l := device.NewFrameLayout(host.Width, host.Height)
	caps := p.dev.Capabilities()
	candidateGroup := p.dev.Workgroup(device.KernelProcessCandidates)[0]
	applyGroup := p.dev.Workgroup(device.KernelDeferredColorApply2x2)[0]
	edge := EdgeDetectGroups(host.Width, host.Height, p.dev.Workgroup(device.KernelEdgesColor2x2))
	if err := checkFrame(l, caps, candidateGroup, applyGroup, edge); err != nil {
		return Stats{}, err
	}

	frame, err := p.dev.BeginFrame(ctx, host)
	if err != nil {
		return Stats{}, fmt.Errorf("pipeline: begin frame: %w", err)
	}
	defer frame.Release()
	arena := NewArena(frame)
	defer arena.Release()

	res, err := allocate(arena, l, caps)
	if err != nil {
		return Stats{}, err
	}
	rec := &recorder{
		frame: frame,
		res:   res,
		b: res.bindings(device.Params{
			Width:              uint32(l.Width),
			Height:             uint32(l.Height),
			QuadWidth:          uint32(l.QuadWidth),
			QuadHeight:         uint32(l.QuadHeight),
			CandidateCapacity:  uint32(l.CandidateCapacity),
			ItemCapacity:       uint32(l.ItemCapacity),
			LocationCapacity:   uint32(l.LocationCapacity),
			CandidateGroupSize: candidateGroup,
			ApplyGroupSize:     applyGroup,
			EdgeThreshold:      p.cfg.EdgeThreshold,
			BlendWeight:        p.cfg.BlendWeight,
		}),
		edge: edge,
	}

	control := make([]uint32, device.ControlWords)
	steps := []func() error{
		func() error { return frame.CopyImage(res.color, frame.Color()) },
		func() error { return frame.Fill(res.control, 0) },
		func() error { return frame.Fill(res.args, 0) },
		func() error { return res.clearHeads(frame) },
		rec.edgeDetect,
		rec.candidateArgs,
		rec.candidateProcess,
		rec.applyArgs,
		rec.deferredApply,
		func() error { return rec.stages.Advance(StageIdle) },
		func() error { return frame.ReadBuffer(res.control, control) },
		// The host write is the last command.
		func() error { return frame.CopyImage(frame.Color(), res.color) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return Stats{}, err
		}
	}

	if err := frame.Submit(ctx); err != nil {
		return Stats{}, fmt.Errorf("pipeline: submit: %w", err)
	}

	stats := statsFrom(control, l)
	stats.Device = p.dev.Name()
	stats.Duration = time.Since(start)
	log := slogger()
	if log.Enabled(ctx, slog.LevelDebug) {
		log.DebugContext(ctx, "cmaa: frame done",
			"device", stats.Device,
			"size", fmt.Sprintf("%dx%d", l.Width, l.Height),
			"candidates", stats.Candidates,
			"items", stats.Items,
			"quads", stats.QuadsApplied,
			"pixels", stats.PixelsApplied,
			"duration", stats.Duration)
	}
	if stats.Dropped() {
		log.Debug("cmaa: capacity overflow",
			"candidates_dropped", stats.CandidatesDropped,
			"items_dropped", stats.ItemsDropped,
			"locations_dropped", stats.LocationsDropped)
	}
	return stats, nil
}
