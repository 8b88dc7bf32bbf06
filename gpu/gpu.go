//go:build !nogpu

// Package gpu registers the wgpu device with cmaa.
//
// Import this package to run the CMAA2 kernels as WGSL compute shaders:
//
//	import _ "github.com/gogpu/cmaa/gpu"
//
// The device is opened lazily by cmaa.New. Without a provider it creates a
// standalone Vulkan device; if that fails, cmaa falls back to the software
// device.
package gpu

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/gogpu/gpucontext"

	"github.com/gogpu/cmaa"
	"github.com/gogpu/cmaa/device"
	gpuimpl "github.com/gogpu/cmaa/internal/gpu"
)

func init() {
	if err := cmaa.RegisterBackend(cmaa.BackendWGPU, defaultBackend); err != nil {
		cmaa.Logger().Warn("cmaa gpu: backend not registered", "err", err)
	}
}

// backend opens wgpu devices, on the provider's device when one is set.
type backend struct {
	mu       sync.Mutex
	provider any
}

var defaultBackend = &backend{}

func (b *backend) Open(cmaa.DeviceConfig) (device.Device, error) {
	b.mu.Lock()
	p := b.provider
	b.mu.Unlock()
	if p != nil {
		return gpuimpl.NewFromProvider(p)
	}
	return gpuimpl.Open()
}

func (b *backend) SetLogger(l *slog.Logger) {
	gpuimpl.SetLogger(l)
}

// SetDeviceProvider makes filters created afterwards share the GPU device of
// an external provider (e.g., a gogpu window) instead of opening their own.
// The provider must also expose HalDevice() and HalQueue(). A software
// adapter is accepted, but filters will likely run faster on the software
// device.
func SetDeviceProvider(provider gpucontext.DeviceProvider) error {
	if provider == nil {
		return fmt.Errorf("cmaa gpu: nil device provider")
	}
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	if _, ok := provider.(halProvider); !ok {
		return fmt.Errorf("cmaa gpu: provider does not expose HAL types")
	}
	if info := provider.AdapterInfo(); info.Type == gpucontext.AdapterTypeSoftware {
		cmaa.Logger().Warn("cmaa gpu: provider uses a software adapter", "adapter", info.Name)
	}
	defaultBackend.mu.Lock()
	defaultBackend.provider = provider
	defaultBackend.mu.Unlock()
	return nil
}

// ClearDeviceProvider restores standalone device creation.
func ClearDeviceProvider() {
	defaultBackend.mu.Lock()
	defaultBackend.provider = nil
	defaultBackend.mu.Unlock()
}
