//go:build !nogpu

// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpu

import (
	"fmt"
	"sync"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/cmaa/device"
)

// binding kinds of a kernel's bind group.
type bindingKind uint8

const (
	bindUniform bindingKind = iota
	bindStorageRO
	bindStorageRW
)

// slot names the Bindings field a WGSL binding reads.
type slot uint8

const (
	slotParams slot = iota
	slotColor
	slotEdges
	slotHeads
	slotCandidates
	slotItems
	slotLocations
	slotControl
	slotArgs
)

// kernelBinding is one @group(0) @binding(n) declaration.
type kernelBinding struct {
	slot slot
	kind bindingKind
}

// kernelBindings lists the bindings of kernel k in binding order. They match
// the declarations in shaders/*.wgsl.
func kernelBindings(k device.Kernel) []kernelBinding {
	switch k {
	case device.KernelEdgesColor2x2:
		return []kernelBinding{
			{slotParams, bindUniform},
			{slotColor, bindStorageRO},
			{slotEdges, bindStorageRW},
			{slotCandidates, bindStorageRW},
			{slotControl, bindStorageRW},
		}
	case device.KernelComputeDispatchArgs:
		return []kernelBinding{
			{slotParams, bindUniform},
			{slotControl, bindStorageRW},
			{slotArgs, bindStorageRW},
		}
	case device.KernelProcessCandidates:
		return []kernelBinding{
			{slotParams, bindUniform},
			{slotColor, bindStorageRO},
			{slotEdges, bindStorageRO},
			{slotCandidates, bindStorageRO},
			{slotItems, bindStorageRW},
			{slotHeads, bindStorageRW},
			{slotLocations, bindStorageRW},
			{slotControl, bindStorageRW},
		}
	case device.KernelDeferredColorApply2x2:
		return []kernelBinding{
			{slotParams, bindUniform},
			{slotColor, bindStorageRW},
			{slotItems, bindStorageRO},
			{slotHeads, bindStorageRW},
			{slotLocations, bindStorageRO},
			{slotControl, bindStorageRW},
		}
	default:
		return nil
	}
}

func layoutEntries(k device.Kernel) []gputypes.BindGroupLayoutEntry {
	bindings := kernelBindings(k)
	entries := make([]gputypes.BindGroupLayoutEntry, len(bindings))
	for i, b := range bindings {
		t := gputypes.BufferBindingTypeStorage
		switch b.kind {
		case bindUniform:
			t = gputypes.BufferBindingTypeUniform
		case bindStorageRO:
			t = gputypes.BufferBindingTypeReadOnlyStorage
		}
		entries[i] = gputypes.BindGroupLayoutEntry{
			Binding:    uint32(i),
			Visibility: gputypes.ShaderStageCompute,
			Buffer:     &gputypes.BufferBindingLayout{Type: t},
		}
	}
	return entries
}

// dispatcher owns the compiled compute pipelines of the four kernels.
type dispatcher struct {
	mu sync.RWMutex

	device hal.Device

	pipelines       [device.KernelCount]hal.ComputePipeline
	pipelineLayouts [device.KernelCount]hal.PipelineLayout
	bgLayouts       [device.KernelCount]hal.BindGroupLayout
	shaderModules   [device.KernelCount]hal.ShaderModule

	initialized bool
}

func newDispatcher(dev hal.Device) *dispatcher {
	return &dispatcher{device: dev}
}

// init compiles every kernel. Calling it again after success is a no-op.
func (d *dispatcher) init() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.initialized {
		return nil
	}

	for k := device.Kernel(0); k < device.KernelCount; k++ {
		src := shaderSource(k)
		if src == "" {
			return fmt.Errorf("cmaa gpu: missing shader source for %s", k)
		}
		label := "cmaa_" + k.String()

		module, err := d.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
			Label:  label,
			Source: hal.ShaderSource{WGSL: src},
		})
		if err != nil {
			d.destroyPartialInit(k)
			return fmt.Errorf("cmaa gpu: create shader module for %s: %w", k, err)
		}
		d.shaderModules[k] = module

		entries := layoutEntries(k)
		bgLayout, err := d.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
			Label:   label + "_bgl",
			Entries: entries,
		})
		if err != nil {
			d.destroyPartialInit(k + 1)
			return fmt.Errorf("cmaa gpu: create bind group layout for %s: %w", k, err)
		}
		d.bgLayouts[k] = bgLayout

		pipelineLayout, err := d.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
			Label:            label + "_pl",
			BindGroupLayouts: []hal.BindGroupLayout{bgLayout},
		})
		if err != nil {
			d.destroyPartialInit(k + 1)
			return fmt.Errorf("cmaa gpu: create pipeline layout for %s: %w", k, err)
		}
		d.pipelineLayouts[k] = pipelineLayout

		pipeline, err := d.device.CreateComputePipeline(&hal.ComputePipelineDescriptor{
			Label:  label,
			Layout: pipelineLayout,
			Compute: hal.ComputeState{
				Module:     module,
				EntryPoint: entryPoint,
			},
		})
		if err != nil {
			d.destroyPartialInit(k + 1)
			return fmt.Errorf("cmaa gpu: create compute pipeline for %s: %w", k, err)
		}
		d.pipelines[k] = pipeline

		slogger().Debug("cmaa gpu: pipeline created",
			"kernel", k.String(),
			"bindings", len(entries),
			"shader_bytes", len(src))
	}

	d.initialized = true
	return nil
}

// destroyPartialInit releases the objects of kernels [0, upTo).
func (d *dispatcher) destroyPartialInit(upTo device.Kernel) {
	for k := device.Kernel(0); k < upTo; k++ {
		d.destroyKernel(k)
	}
}

func (d *dispatcher) destroyKernel(k device.Kernel) {
	if d.pipelines[k] != nil {
		d.device.DestroyComputePipeline(d.pipelines[k])
		d.pipelines[k] = nil
	}
	if d.pipelineLayouts[k] != nil {
		d.device.DestroyPipelineLayout(d.pipelineLayouts[k])
		d.pipelineLayouts[k] = nil
	}
	if d.bgLayouts[k] != nil {
		d.device.DestroyBindGroupLayout(d.bgLayouts[k])
		d.bgLayouts[k] = nil
	}
	if d.shaderModules[k] != nil {
		d.device.DestroyShaderModule(d.shaderModules[k])
		d.shaderModules[k] = nil
	}
}

// close releases every pipeline object.
func (d *dispatcher) close() {
	d.mu.Lock()
	defer d.mu.Unlock()

	for k := device.Kernel(0); k < device.KernelCount; k++ {
		d.destroyKernel(k)
	}
	d.initialized = false
}

// pipeline returns the pipeline and bind group layout of k.
func (d *dispatcher) pipeline(k device.Kernel) (hal.ComputePipeline, hal.BindGroupLayout, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if !d.initialized {
		return nil, nil, fmt.Errorf("cmaa gpu: dispatcher not initialized")
	}
	return d.pipelines[k], d.bgLayouts[k], nil
}
