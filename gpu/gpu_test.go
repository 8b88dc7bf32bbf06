//go:build !nogpu

package gpu

import (
	"context"
	"slices"
	"testing"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"

	"github.com/gogpu/cmaa"
)

// noopProvider exposes a noop HAL device the way a gogpu window does.
type noopProvider struct {
	device hal.Device
	queue  hal.Queue
	info   gpucontext.AdapterInfo
}

func (p *noopProvider) Device() gpucontext.Device             { return p.device }
func (p *noopProvider) Queue() gpucontext.Queue               { return p.queue }
func (p *noopProvider) SurfaceFormat() gputypes.TextureFormat { return gputypes.TextureFormatUndefined }
func (p *noopProvider) Adapter() gpucontext.Adapter           { return nil }
func (p *noopProvider) AdapterInfo() gpucontext.AdapterInfo   { return p.info }
func (p *noopProvider) HalDevice() any                        { return p.device }
func (p *noopProvider) HalQueue() any                         { return p.queue }

// headlessProvider has no HAL accessors.
type headlessProvider struct{ *noopProvider }

func (headlessProvider) HalDevice() {}

func newNoopProvider(t *testing.T) *noopProvider {
	t.Helper()
	instance, err := noop.API{}.CreateInstance(nil)
	if err != nil {
		t.Fatalf("CreateInstance: %v", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	open, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() {
		open.Device.Destroy()
		instance.Destroy()
	})
	return &noopProvider{
		device: open.Device,
		queue:  open.Queue,
		info:   gpucontext.AdapterInfo{Name: "noop", Type: gpucontext.AdapterTypeSoftware},
	}
}

func TestRegistered(t *testing.T) {
	if !slices.Contains(cmaa.Backends(), cmaa.BackendWGPU) {
		t.Errorf("Backends() = %v, want %q registered", cmaa.Backends(), cmaa.BackendWGPU)
	}
}

func TestSetDeviceProvider_SharedDevice(t *testing.T) {
	p := newNoopProvider(t)
	if err := SetDeviceProvider(p); err != nil {
		t.Fatalf("SetDeviceProvider: %v", err)
	}
	t.Cleanup(ClearDeviceProvider)

	f, err := cmaa.New(cmaa.WithDevice(cmaa.BackendWGPU))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer f.Close()
	if f.Device() != cmaa.BackendWGPU {
		t.Errorf("Device() = %q", f.Device())
	}
	stats, err := f.Apply(context.Background(), cmaa.NewSurface(16, 9))
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if stats.Device != cmaa.BackendWGPU || stats.Width != 16 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestSetDeviceProvider_Rejects(t *testing.T) {
	if err := SetDeviceProvider(nil); err == nil {
		t.Error("SetDeviceProvider(nil) succeeded")
	}
	if err := SetDeviceProvider(headlessProvider{&noopProvider{}}); err == nil {
		t.Error("SetDeviceProvider accepted a provider without HAL accessors")
	}
}
