//go:build !nogpu

// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpu

import (
	"context"
	"fmt"
	"sync"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	_ "github.com/gogpu/wgpu/hal/vulkan" // register the Vulkan backend

	"github.com/gogpu/cmaa/device"
)

// Name is the registry name of the GPU device.
const Name = "wgpu"

// Device runs frames on a wgpu HAL device.
type Device struct {
	mu sync.RWMutex

	instance hal.Instance
	device   hal.Device
	queue    hal.Queue
	disp     *dispatcher

	workgroups [device.KernelCount][3]uint32
	caps       device.Capabilities
	adapter    string

	// external is true when device and queue belong to a provider and must
	// not be destroyed here.
	external bool
	closed   bool
}

var _ device.Device = (*Device)(nil)

// NewDevice wraps an open HAL device and queue. The caller keeps ownership:
// Close releases the pipelines but not the device.
func NewDevice(dev hal.Device, queue hal.Queue) (*Device, error) {
	if dev == nil || queue == nil {
		return nil, fmt.Errorf("cmaa gpu: nil device or queue")
	}
	d := newDevice(dev, queue, gputypes.DefaultLimits())
	d.external = true
	d.adapter = "external"
	if err := d.disp.init(); err != nil {
		return nil, err
	}
	return d, nil
}

// NewFromProvider wraps the device of a provider exposing HalDevice() and
// HalQueue(), such as a gogpu application window.
func NewFromProvider(provider any) (*Device, error) {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, fmt.Errorf("cmaa gpu: provider does not expose HAL types")
	}
	dev, ok := hp.HalDevice().(hal.Device)
	if !ok || dev == nil {
		return nil, fmt.Errorf("cmaa gpu: provider HalDevice is not hal.Device")
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("cmaa gpu: provider HalQueue is not hal.Queue")
	}
	return NewDevice(dev, queue)
}

// Open creates a standalone Vulkan device, preferring a discrete or
// integrated GPU.
func Open() (*Device, error) {
	backend, ok := hal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		return nil, fmt.Errorf("cmaa gpu: vulkan backend not available")
	}
	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return nil, fmt.Errorf("cmaa gpu: create instance: %w", err)
	}

	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, fmt.Errorf("cmaa gpu: no GPU adapters found")
	}
	selected := &adapters[0]
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}

	limits := gputypes.DefaultLimits()
	open, err := selected.Adapter.Open(gputypes.Features(0), limits)
	if err != nil {
		instance.Destroy()
		return nil, fmt.Errorf("cmaa gpu: open device: %w", err)
	}

	d := newDevice(open.Device, open.Queue, limits)
	d.instance = instance
	d.adapter = selected.Info.Name
	if err := d.disp.init(); err != nil {
		open.Device.Destroy()
		instance.Destroy()
		return nil, err
	}
	slogger().Info("cmaa gpu: device opened", "adapter", d.adapter)
	return d, nil
}

func newDevice(dev hal.Device, queue hal.Queue, limits gputypes.Limits) *Device {
	return &Device{
		device:     dev,
		queue:      queue,
		disp:       newDispatcher(dev),
		workgroups: kernelWorkgroups(),
		caps: device.Capabilities{
			// Storage textures with atomics are not portable across HAL
			// backends; ListHeads is always a buffer here.
			AtomicImages:              false,
			MaxWorkgroupsPerDimension: limits.MaxComputeWorkgroupsPerDimension,
		},
	}
}

// Name returns "wgpu".
func (d *Device) Name() string { return Name }

// Adapter returns the adapter name, or "external" for a wrapped device.
func (d *Device) Adapter() string { return d.adapter }

// Capabilities returns the device capabilities.
func (d *Device) Capabilities() device.Capabilities { return d.caps }

// Workgroup returns the workgroup size declared by the WGSL source of k.
func (d *Device) Workgroup(k device.Kernel) [3]uint32 {
	if k >= device.KernelCount {
		return [3]uint32{1, 1, 1}
	}
	return d.workgroups[k]
}

// BeginFrame uploads the host surface into a storage buffer and opens a
// command encoder.
func (d *Device) BeginFrame(ctx context.Context, color device.HostSurface) (device.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := color.Validate(); err != nil {
		return nil, err
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return nil, device.ErrDeviceClosed
	}

	f := &frame{dev: d, host: color, params: make(map[device.Params]hal.Buffer)}
	desc := device.ImageDesc{
		Label:       "cmaa_color",
		Width:       color.Width,
		Height:      color.Height,
		Format:      device.FormatRGBA32Float,
		RandomWrite: true,
	}
	img, err := f.CreateImage(desc)
	if err != nil {
		return nil, err
	}
	f.color = img.(*image)

	n := color.Width * color.Height * 4
	if err := d.queue.WriteBuffer(f.color.buf, 0, asBytes(color.Pix[:n])); err != nil {
		f.release()
		return nil, fmt.Errorf("cmaa gpu: upload color: %w", err)
	}

	encoder, err := d.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "cmaa_frame"})
	if err != nil {
		f.release()
		return nil, fmt.Errorf("cmaa gpu: create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("cmaa_frame"); err != nil {
		encoder.Destroy()
		f.release()
		return nil, fmt.Errorf("cmaa gpu: begin encoding: %w", err)
	}
	f.encoder = encoder
	return f, nil
}

// Close releases the pipelines, and the device itself when it was opened
// by Open. Frames still open on a wrapped device can be released after
// Close.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true

	d.disp.close()
	if d.external {
		return nil
	}
	if d.device != nil {
		d.device.Destroy()
	}
	if d.instance != nil {
		d.instance.Destroy()
	}
	d.device, d.queue, d.instance = nil, nil, nil
	return nil
}
