// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package pipeline

import (
	"errors"
	"fmt"
)

// ErrStageOrder is returned when a frame is advanced to a stage that does
// not follow the current one.
var ErrStageOrder = errors.New("pipeline: stage out of order")

// Stage is the position of a frame in the pass sequence.
type Stage uint8

// Stages in execution order. A frame returns to StageIdle after
// StageDeferredApply.
const (
	StageIdle Stage = iota
	StageEdgeDetect
	StageArgsReady1
	StageCandidateProcess
	StageArgsReady2
	StageDeferredApply
)

// String returns the stage name.
func (s Stage) String() string {
	switch s {
	case StageIdle:
		return "Idle"
	case StageEdgeDetect:
		return "EdgeDetect"
	case StageArgsReady1:
		return "ArgsReady1"
	case StageCandidateProcess:
		return "CandidateProcess"
	case StageArgsReady2:
		return "ArgsReady2"
	case StageDeferredApply:
		return "DeferredApply"
	default:
		return fmt.Sprintf("Stage(%d)", uint8(s))
	}
}

// Next returns the stage that follows s.
func (s Stage) Next() Stage {
	if s >= StageDeferredApply {
		return StageIdle
	}
	return s + 1
}

// Tracker enforces the stage order of one frame.
type Tracker struct {
	stage Stage
}

// Stage returns the current stage.
func (t *Tracker) Stage() Stage { return t.stage }

// Advance moves to stage to. It fails with ErrStageOrder unless to is the
// successor of the current stage.
func (t *Tracker) Advance(to Stage) error {
	if want := t.stage.Next(); to != want {
		return fmt.Errorf("%w: %v -> %v, want %v", ErrStageOrder, t.stage, to, want)
	}
	t.stage = to
	return nil
}

// Reset returns the tracker to StageIdle.
func (t *Tracker) Reset() { t.stage = StageIdle }
