package cmaa

import (
	"context"
	"fmt"
	"sync"

	"github.com/gogpu/cmaa/device"
	"github.com/gogpu/cmaa/internal/pipeline"
)

// Stats are the counters of one applied frame.
type Stats = pipeline.Stats

// Config holds the filter's tuning parameters.
type Config = pipeline.Config

// Filter applies CMAA2 to surfaces on one device. Apply calls are
// serialized; a Filter is safe for concurrent use.
type Filter struct {
	mu     sync.Mutex
	dev    device.Device
	pipe   *pipeline.Pipeline
	owned  bool
	closed bool
}

// New opens a device and builds a filter on it.
func New(opts ...Option) (*Filter, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if err := o.config.Validate(); err != nil {
		return nil, err
	}

	dev, owned := o.instance, false
	if dev == nil {
		var err error
		if dev, err = openDevice(o.device, o.dev); err != nil {
			return nil, err
		}
		owned = true
	}

	p, err := pipeline.New(dev, o.config)
	if err != nil {
		if owned {
			dev.Close()
		}
		return nil, err
	}
	slogger().Debug("cmaa: filter ready",
		"device", dev.Name(),
		"edge_threshold", o.config.EdgeThreshold,
		"blend_weight", o.config.BlendWeight)
	return &Filter{dev: dev, pipe: p, owned: owned}, nil
}

// Device returns the name of the device the filter runs on.
func (f *Filter) Device() string { return f.dev.Name() }

// Config returns the filter's pipeline configuration.
func (f *Filter) Config() Config { return f.pipe.Config() }

// Apply runs one frame over s. On error s is left unmodified.
func (f *Filter) Apply(ctx context.Context, s *Surface) (Stats, error) {
	host, err := s.host()
	if err != nil {
		return Stats{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return Stats{}, fmt.Errorf("cmaa: apply: %w", device.ErrDeviceClosed)
	}
	return f.pipe.Run(ctx, host)
}

// Close releases the device if the filter opened it.
func (f *Filter) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil
	}
	f.closed = true
	if f.owned {
		return f.dev.Close()
	}
	return nil
}

// Apply runs one frame over s on a filter built from opts and closes it.
func Apply(ctx context.Context, s *Surface, opts ...Option) (Stats, error) {
	f, err := New(opts...)
	if err != nil {
		return Stats{}, err
	}
	defer f.Close()
	return f.Apply(ctx, s)
}
