package cmaa

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"

	"github.com/gogpu/cmaa/device"
	"github.com/gogpu/cmaa/internal/pipeline"
	"github.com/gogpu/cmaa/internal/software"
)

func whiteWithDarkCorner(w, h int) *Surface {
	s := NewSurface(w, h)
	for i := range s.Pix {
		s.Pix[i] = 1
	}
	s.Set(0, 0, [4]float32{0, 0, 0, 1})
	return s
}

func TestApply_BlendsCorner(t *testing.T) {
	for _, atomicImages := range []bool{false, true} {
		s := whiteWithDarkCorner(8, 8)
		stats, err := Apply(context.Background(), s,
			WithDevice(BackendSoftware), WithWorkers(2), WithAtomicImages(atomicImages))
		if err != nil {
			t.Fatalf("Apply: %v", err)
		}
		if stats.Device != BackendSoftware || stats.QuadsApplied != 1 || stats.PixelsApplied != 3 {
			t.Errorf("stats = %+v", stats)
		}
		if got := s.At(0, 0); got != [4]float32{0.25, 0.25, 0.25, 1} {
			t.Errorf("corner = %v, want 0.25 rgb", got)
		}
		if got := s.At(1, 0); got != [4]float32{0.75, 0.75, 0.75, 1} {
			t.Errorf("right neighbour = %v, want 0.75 rgb", got)
		}
		if got := s.At(5, 5); got != [4]float32{1, 1, 1, 1} {
			t.Errorf("far pixel = %v, want untouched", got)
		}
	}
}

func TestApply_FlatImageUnchanged(t *testing.T) {
	s := NewSurface(13, 9)
	for i := range s.Pix {
		s.Pix[i] = 0.3
	}
	want := slices.Clone(s.Pix)
	stats, err := Apply(context.Background(), s, WithDevice(BackendSoftware))
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if !slices.Equal(s.Pix, want) || stats.Candidates != 0 {
		t.Errorf("flat image changed, stats %+v", stats)
	}
}

func TestNew_InvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		opt  Option
	}{
		{"negative threshold", WithEdgeThreshold(-1)},
		{"zero weight", WithBlendWeight(0)},
		{"weight too large", WithBlendWeight(0.75)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.opt); !errors.Is(err, pipeline.ErrInvalidConfig) {
				t.Errorf("New = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestFilter_Config(t *testing.T) {
	f, err := New(WithDevice(BackendSoftware), WithEdgeThreshold(0.2), WithBlendWeight(0.5))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if cfg := f.Config(); cfg.EdgeThreshold != 0.2 || cfg.BlendWeight != 0.5 {
		t.Errorf("Config() = %+v", cfg)
	}
}

func TestFilter_ApplyAfterClose(t *testing.T) {
	f, err := New(WithDevice(BackendSoftware))
	if err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Errorf("second Close = %v", err)
	}
	if _, err := f.Apply(context.Background(), NewSurface(2, 2)); !errors.Is(err, device.ErrDeviceClosed) {
		t.Errorf("Apply after Close = %v, want ErrDeviceClosed", err)
	}
}

func TestFilter_DeviceInstanceNotClosed(t *testing.T) {
	dev := software.New(software.Options{Workers: 1})
	defer dev.Close()

	f, err := New(WithDeviceInstance(dev))
	if err != nil {
		t.Fatal(err)
	}
	f.Close()

	// The device still runs frames for its owner.
	g, err := New(WithDeviceInstance(dev))
	if err != nil {
		t.Fatal(err)
	}
	defer g.Close()
	if _, err := g.Apply(context.Background(), whiteWithDarkCorner(4, 4)); err != nil {
		t.Errorf("Apply on shared device: %v", err)
	}
}

func TestFilter_InvalidSurface(t *testing.T) {
	f, err := New(WithDevice(BackendSoftware))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if _, err := f.Apply(context.Background(), &Surface{Width: 3, Height: 3}); !errors.Is(err, device.ErrInvalidDescriptor) {
		t.Errorf("Apply = %v, want ErrInvalidDescriptor", err)
	}
	if _, err := f.Apply(context.Background(), nil); !errors.Is(err, device.ErrInvalidDescriptor) {
		t.Errorf("Apply(nil) = %v, want ErrInvalidDescriptor", err)
	}
}

func TestFilter_ConcurrentApply(t *testing.T) {
	f, err := New(WithDevice(BackendSoftware), WithWorkers(2))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	var wg sync.WaitGroup
	for range 8 {
		wg.Go(func() {
			s := whiteWithDarkCorner(10, 6)
			if _, err := f.Apply(context.Background(), s); err != nil {
				t.Errorf("Apply: %v", err)
				return
			}
			if got := s.At(0, 0)[0]; got != 0.25 {
				t.Errorf("corner = %v, want 0.25", got)
			}
		})
	}
	wg.Wait()
}

func BenchmarkFilterApply(b *testing.B) {
	f, err := New(WithDevice(BackendSoftware))
	if err != nil {
		b.Fatal(err)
	}
	defer f.Close()
	src := NewSurface(320, 240)
	for y := 0; y < src.Height; y++ {
		for x := 0; x < src.Width; x++ {
			if (x/7+y/5)%2 == 0 {
				src.Set(x, y, [4]float32{1, 1, 1, 1})
			}
		}
	}
	s := NewSurface(src.Width, src.Height)
	b.ReportAllocs()
	for b.Loop() {
		copy(s.Pix, src.Pix)
		if _, err := f.Apply(context.Background(), s); err != nil {
			b.Fatal(err)
		}
	}
}
