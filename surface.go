package cmaa

import (
	"fmt"
	"image"
	"image/color"

	"golang.org/x/image/draw"

	"github.com/gogpu/cmaa/device"
)

// Surface is a frame of straight-alpha RGBA float color, row-major without
// padding. Apply rewrites Pix in place.
type Surface struct {
	Width  int
	Height int
	Pix    []float32
}

// NewSurface allocates a transparent black w×h surface.
func NewSurface(w, h int) *Surface {
	return &Surface{Width: w, Height: h, Pix: make([]float32, w*h*4)}
}

// FromImage converts img to a surface. Color is converted to straight
// alpha at 16 bits per channel before widening to float.
func FromImage(img image.Image) *Surface {
	b := img.Bounds()
	rgba, ok := img.(*image.NRGBA64)
	if !ok || rgba.Bounds().Min != (image.Point{}) {
		rgba = image.NewNRGBA64(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	}
	s := NewSurface(b.Dx(), b.Dy())
	for y := 0; y < s.Height; y++ {
		for x := 0; x < s.Width; x++ {
			c := rgba.NRGBA64At(x, y)
			i := (y*s.Width + x) * 4
			s.Pix[i] = float32(c.R) / 0xFFFF
			s.Pix[i+1] = float32(c.G) / 0xFFFF
			s.Pix[i+2] = float32(c.B) / 0xFFFF
			s.Pix[i+3] = float32(c.A) / 0xFFFF
		}
	}
	return s
}

// At returns the color of pixel (x, y).
func (s *Surface) At(x, y int) [4]float32 {
	i := (y*s.Width + x) * 4
	return [4]float32(s.Pix[i : i+4])
}

// Set stores the color of pixel (x, y).
func (s *Surface) Set(x, y int, c [4]float32) {
	i := (y*s.Width + x) * 4
	copy(s.Pix[i:i+4], c[:])
}

// ToNRGBA64 converts the surface to a 16-bit image, clamping to [0, 1].
func (s *Surface) ToNRGBA64() *image.NRGBA64 {
	img := image.NewNRGBA64(image.Rect(0, 0, s.Width, s.Height))
	for y := 0; y < s.Height; y++ {
		for x := 0; x < s.Width; x++ {
			c := s.At(x, y)
			img.SetNRGBA64(x, y, color.NRGBA64{
				R: unorm16(c[0]), G: unorm16(c[1]), B: unorm16(c[2]), A: unorm16(c[3]),
			})
		}
	}
	return img
}

// ToNRGBA converts the surface to an 8-bit image, clamping to [0, 1].
func (s *Surface) ToNRGBA() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, s.Width, s.Height))
	for y := 0; y < s.Height; y++ {
		for x := 0; x < s.Width; x++ {
			c := s.At(x, y)
			img.SetNRGBA(x, y, color.NRGBA{
				R: unorm8(c[0]), G: unorm8(c[1]), B: unorm8(c[2]), A: unorm8(c[3]),
			})
		}
	}
	return img
}

func unorm16(v float32) uint16 {
	return uint16(clamp01(v)*0xFFFF + 0.5)
}

func unorm8(v float32) uint8 {
	return uint8(clamp01(v)*0xFF + 0.5)
}

func clamp01(v float32) float32 {
	switch {
	case v > 1:
		return 1
	case v >= 0:
		return v
	default:
		// Also catches NaN.
		return 0
	}
}

func (s *Surface) host() (device.HostSurface, error) {
	if s == nil {
		return device.HostSurface{}, fmt.Errorf("%w: nil surface", device.ErrInvalidDescriptor)
	}
	h := device.HostSurface{Width: s.Width, Height: s.Height, Pix: s.Pix}
	return h, h.Validate()
}
