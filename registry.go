package cmaa

import (
	"cmp"
	"errors"
	"fmt"
	"slices"

	"github.com/gogpu/gpucontext"

	"github.com/gogpu/cmaa/device"
	"github.com/gogpu/cmaa/internal/software"
)

var (
	// ErrUnknownDevice is returned by New when WithDevice names a backend
	// that is not registered.
	ErrUnknownDevice = errors.New("cmaa: unknown device")

	// ErrNoDevice is returned by New when no registered backend opens.
	ErrNoDevice = errors.New("cmaa: no device available")
)

// DeviceConfig is passed to a Backend when a filter opens its device.
type DeviceConfig struct {
	// Workers is the CPU worker count for the software device. 0 means
	// GOMAXPROCS.
	Workers int

	// AtomicImages forces the software device to report atomic image
	// support, binding ListHeads as an image.
	AtomicImages bool
}

// Backend opens devices of one kind.
type Backend interface {
	Open(cfg DeviceConfig) (device.Device, error)
}

// Backend names in priority order.
const (
	BackendWGPU     = "wgpu"
	BackendSoftware = software.Name
)

// backendPriority ranks the built-in backends, best first. Other backends
// follow in name order.
var backendPriority = []string{BackendWGPU, BackendSoftware}

var backends = gpucontext.NewRegistry[Backend](
	gpucontext.WithPriority(backendPriority...),
)

func init() {
	backends.Register(BackendSoftware, func() Backend { return softwareBackend{} })
}

// RegisterBackend makes a backend available under name, replacing any
// previous registration. The gpu package calls it from init.
func RegisterBackend(name string, b Backend) error {
	if name == "" || b == nil {
		return fmt.Errorf("cmaa: register backend %q: empty name or nil backend", name)
	}
	backends.Register(name, func() Backend { return b })
	propagateLogger(b, Logger())
	return nil
}

// Backends returns the registered backend names, highest priority first.
func Backends() []string {
	names := backends.Available()
	rank := func(n string) int {
		if i := slices.Index(backendPriority, n); i >= 0 {
			return i
		}
		return len(backendPriority)
	}
	slices.SortFunc(names, func(a, b string) int {
		return cmp.Or(cmp.Compare(rank(a), rank(b)), cmp.Compare(a, b))
	})
	return names
}

// openDevice opens the named backend, or the best one that opens when name
// is empty.
func openDevice(name string, cfg DeviceConfig) (device.Device, error) {
	if name != "" {
		if !backends.Has(name) {
			return nil, fmt.Errorf("%w: %q (registered: %v)", ErrUnknownDevice, name, Backends())
		}
		dev, err := backends.Get(name).Open(cfg)
		if err != nil {
			return nil, fmt.Errorf("cmaa: open %s device: %w", name, err)
		}
		return dev, nil
	}

	var errs []error
	for _, n := range Backends() {
		dev, err := backends.Get(n).Open(cfg)
		if err == nil {
			if len(errs) > 0 {
				slogger().Warn("cmaa: falling back to device", "device", n, "err", errors.Join(errs...))
			}
			return dev, nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", n, err))
	}
	if len(errs) == 0 {
		return nil, ErrNoDevice
	}
	return nil, fmt.Errorf("%w: %w", ErrNoDevice, errors.Join(errs...))
}

type softwareBackend struct{}

func (softwareBackend) Open(cfg DeviceConfig) (device.Device, error) {
	return software.New(software.Options{Workers: cfg.Workers, AtomicImages: cfg.AtomicImages}), nil
}
