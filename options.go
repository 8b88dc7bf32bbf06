package cmaa

import (
	"github.com/gogpu/cmaa/device"
	"github.com/gogpu/cmaa/internal/pipeline"
)

// Option configures a Filter during creation.
//
// Example:
//
//	// Software device with a stricter edge threshold
//	f, err := cmaa.New(cmaa.WithDevice("software"), cmaa.WithEdgeThreshold(0.1))
type Option func(*options)

type options struct {
	device   string
	instance device.Device
	config   pipeline.Config
	dev      DeviceConfig
}

func defaultOptions() options {
	return options{config: pipeline.DefaultConfig()}
}

// WithDevice selects a registered backend by name ("wgpu", "software").
// Without it New uses the highest-priority backend that opens.
func WithDevice(name string) Option {
	return func(o *options) {
		o.device = name
	}
}

// WithDeviceInstance runs the filter on an already open device. The filter
// does not close it.
func WithDeviceInstance(d device.Device) Option {
	return func(o *options) {
		o.instance = d
	}
}

// WithEdgeThreshold sets the minimum per-channel color difference that
// counts as an edge. The default is 0.07.
func WithEdgeThreshold(t float32) Option {
	return func(o *options) {
		o.config.EdgeThreshold = t
	}
}

// WithBlendWeight sets the weight of a neighbour's color in a blend item.
// The default is 0.25.
func WithBlendWeight(w float32) Option {
	return func(o *options) {
		o.config.BlendWeight = w
	}
}

// WithWorkers sets the goroutine count of the software device.
func WithWorkers(n int) Option {
	return func(o *options) {
		o.dev.Workers = n
	}
}

// WithAtomicImages makes the software device bind ListHeads as an atomic
// image instead of a buffer.
func WithAtomicImages(enabled bool) Option {
	return func(o *options) {
		o.dev.AtomicImages = enabled
	}
}
