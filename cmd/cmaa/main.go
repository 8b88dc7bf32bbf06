// Command cmaa applies CMAA2 anti-aliasing to image files.
//
// Usage:
//
//	cmaa [flags] image...
//
// Inputs may be PNG, JPEG, BMP, TIFF, WebP, TGA or OpenEXR. Results are
// written as PNG, WebP or OpenEXR next to each other in -out.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/gogpu/cmaa"
	_ "github.com/gogpu/cmaa/gpu" // register the wgpu device
	"github.com/gogpu/cmaa/metrics"
)

var logPtr atomic.Pointer[slog.Logger]

func logger() *slog.Logger {
	if l := logPtr.Load(); l != nil {
		return l
	}
	return slog.Default()
}

type config struct {
	device       string
	threshold    float64
	weight       float64
	workers      int
	atomicImages bool
	out          string
	format       string
	jobs         int
	timeout      time.Duration
	metricsFile  string
	verbose      bool
	inputs       []string
}

func parseFlags(args []string) (config, error) {
	var c config
	fs := flag.NewFlagSet("cmaa", flag.ContinueOnError)
	fs.StringVar(&c.device, "device", "", `device name ("wgpu", "software"); empty picks the best available`)
	fs.Float64Var(&c.threshold, "threshold", 0.07, "edge detection threshold")
	fs.Float64Var(&c.weight, "weight", 0.25, "neighbour blend weight")
	fs.IntVar(&c.workers, "workers", 0, "software device goroutines (0 = GOMAXPROCS)")
	fs.BoolVar(&c.atomicImages, "atomic-images", false, "software device: keep list heads in an atomic image")
	fs.StringVar(&c.out, "out", ".", "output directory")
	fs.StringVar(&c.format, "format", "", "output format: png, webp or exr (default: input format or png)")
	fs.IntVar(&c.jobs, "jobs", runtime.GOMAXPROCS(0), "files decoded and encoded concurrently")
	fs.DurationVar(&c.timeout, "timeout", time.Minute, "per-image timeout")
	fs.StringVar(&c.metricsFile, "metrics", "", "write Prometheus metrics to this textfile")
	fs.BoolVar(&c.verbose, "v", false, "debug logging")
	if err := fs.Parse(args); err != nil {
		return c, err
	}
	c.inputs = fs.Args()
	if len(c.inputs) == 0 {
		return c, fmt.Errorf("no input images")
	}
	if c.jobs < 1 {
		c.jobs = 1
	}
	if _, err := outputFormat(c.format, ""); err != nil {
		return c, err
	}
	return c, nil
}

func main() {
	cfg, err := parseFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, "cmaa:", err)
		os.Exit(2)
	}

	level := slog.LevelInfo
	if cfg.verbose {
		level = slog.LevelDebug
	}
	l := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	logPtr.Store(l)
	cmaa.SetLogger(l)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		l.Error("cmaa failed", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config) error {
	f, err := cmaa.New(
		cmaa.WithDevice(cfg.device),
		cmaa.WithEdgeThreshold(float32(cfg.threshold)),
		cmaa.WithBlendWeight(float32(cfg.weight)),
		cmaa.WithWorkers(cfg.workers),
		cmaa.WithAtomicImages(cfg.atomicImages),
	)
	if err != nil {
		return err
	}
	defer f.Close()
	logger().Info("filter ready", "device", f.Device())

	var (
		reg *prometheus.Registry
		rec *metrics.Recorder
	)
	if cfg.metricsFile != "" {
		reg = prometheus.NewRegistry()
		if rec, err = metrics.NewRecorder(reg); err != nil {
			return err
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.jobs)
	for _, in := range cfg.inputs {
		g.Go(func() error {
			return processFile(ctx, f, rec, cfg, in)
		})
	}
	err = g.Wait()

	if reg != nil {
		if werr := prometheus.WriteToTextfile(cfg.metricsFile, reg); werr != nil && err == nil {
			err = fmt.Errorf("write metrics: %w", werr)
		}
	}
	return err
}

func processFile(ctx context.Context, f *cmaa.Filter, rec *metrics.Recorder, cfg config, in string) error {
	format, err := outputFormat(cfg.format, in)
	if err != nil {
		return err
	}
	s, err := readSurface(in)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.timeout)
	defer cancel()
	stats, err := f.Apply(ctx, s)
	if err != nil {
		if rec != nil {
			rec.ObserveError(f.Device())
		}
		return fmt.Errorf("%s: %w", in, err)
	}
	if rec != nil {
		rec.Observe(stats)
	}

	out := outputPath(cfg.out, in, format)
	if err := writeSurface(out, format, s); err != nil {
		return err
	}
	logger().Info("processed",
		"in", in,
		"out", out,
		"size", fmt.Sprintf("%dx%d", s.Width, s.Height),
		"quads", stats.QuadsApplied,
		"dropped", stats.Dropped(),
		"duration", stats.Duration)
	return nil
}
