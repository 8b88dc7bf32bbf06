// Package cmaa applies Conservative Morphological Anti-Aliasing 2.0 to
// rendered frames.
//
// # Overview
//
// CMAA2 is a post-process: it looks at a finished color image, finds the
// color discontinuities between neighbouring pixels and blends the pixels
// along them. It runs as four compute kernels:
//
//  1. EdgesColor2x2 detects edges per 2×2 quad and appends shape candidates.
//  2. ComputeDispatchArgs turns the candidate count into dispatch arguments.
//  3. ProcessCandidates builds a per-quad list of deferred blend items.
//  4. DeferredColorApply2x2 averages each quad's list into the color image.
//
// Quads that no kernel touches keep their color bit-for-bit.
//
// # Quick Start
//
//	f, err := cmaa.New()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer f.Close()
//
//	s := cmaa.FromImage(img)
//	stats, err := f.Apply(ctx, s)
//	out := s.ToNRGBA()
//
// # Devices
//
// The kernels run on a device. The software device is always available and
// runs the kernels on a goroutine pool. Importing the gpu package registers
// the wgpu device, which runs the same kernels as WGSL compute shaders:
//
//	import _ "github.com/gogpu/cmaa/gpu"
//
// [New] picks the highest-priority device that opens, falling back to the
// software device with a warning. [WithDevice] selects one by name.
//
// # Logging
//
// The package is silent by default. [SetLogger] enables log/slog output for
// this package and every device.
package cmaa
