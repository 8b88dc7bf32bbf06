//go:build !nogpu

// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpu

import (
	_ "embed"
	"fmt"

	"github.com/gogpu/naga"
	"github.com/gogpu/naga/ir"

	"github.com/gogpu/cmaa/device"
	"github.com/gogpu/cmaa/internal/kernel"
)

//go:embed shaders/edges_color2x2.wgsl
var shaderEdgesColor2x2 string

//go:embed shaders/compute_dispatch_args.wgsl
var shaderComputeDispatchArgs string

//go:embed shaders/process_candidates.wgsl
var shaderProcessCandidates string

//go:embed shaders/deferred_color_apply2x2.wgsl
var shaderDeferredColorApply2x2 string

// entryPoint is the compute entry point of every kernel.
const entryPoint = "main"

// shaderSource returns the WGSL source of kernel k.
func shaderSource(k device.Kernel) string {
	switch k {
	case device.KernelEdgesColor2x2:
		return shaderEdgesColor2x2
	case device.KernelComputeDispatchArgs:
		return shaderComputeDispatchArgs
	case device.KernelProcessCandidates:
		return shaderProcessCandidates
	case device.KernelDeferredColorApply2x2:
		return shaderDeferredColorApply2x2
	default:
		return ""
	}
}

// reflectWorkgroup parses and validates src with naga and returns the
// workgroup size of its compute entry point.
func reflectWorkgroup(src string) ([3]uint32, error) {
	ast, err := naga.Parse(src)
	if err != nil {
		return [3]uint32{}, fmt.Errorf("parse: %w", err)
	}
	module, err := naga.LowerWithSource(ast, src)
	if err != nil {
		return [3]uint32{}, fmt.Errorf("lower: %w", err)
	}
	errs, err := naga.Validate(module)
	if err != nil {
		return [3]uint32{}, fmt.Errorf("validate: %w", err)
	}
	if len(errs) > 0 {
		return [3]uint32{}, fmt.Errorf("validate: %w", errs[0])
	}
	for _, ep := range module.EntryPoints {
		if ep.Name == entryPoint && ep.Stage == ir.StageCompute {
			return ep.Workgroup, nil
		}
	}
	return [3]uint32{}, fmt.Errorf("no compute entry point %q", entryPoint)
}

// kernelWorkgroups returns the workgroup size of every kernel. A shader
// naga cannot reflect falls back to the size the CPU kernel declares.
func kernelWorkgroups() [device.KernelCount][3]uint32 {
	var sizes [device.KernelCount][3]uint32
	for k := device.Kernel(0); k < device.KernelCount; k++ {
		wg, err := reflectWorkgroup(shaderSource(k))
		if err != nil {
			slogger().Warn("cmaa gpu: shader reflection failed, using built-in workgroup size",
				"kernel", k.String(), "error", err)
			wg = kernel.Workgroup(k)
		}
		sizes[k] = wg
	}
	return sizes
}
