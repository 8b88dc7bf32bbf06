package main

import (
	"errors"
	"fmt"
	"image"
	_ "image/jpeg" // register decoder
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/HugoSmits86/nativewebp"
	_ "github.com/ftrvxmtrx/tga" // register decoder
	"github.com/mrjoshuak/go-openexr/exr"
	_ "golang.org/x/image/bmp"  // register decoder
	_ "golang.org/x/image/tiff" // register decoder
	_ "golang.org/x/image/webp" // register decoder

	"github.com/gogpu/cmaa"
)

// Output formats.
const (
	formatPNG  = "png"
	formatWebP = "webp"
	formatEXR  = "exr"
)

var errUnsupportedFormat = errors.New("unsupported output format")

// readSurface decodes an image file. EXR files keep their float color;
// everything else goes through image.Decode.
func readSurface(path string) (*cmaa.Surface, error) {
	if isEXR(path) {
		img, err := exr.DecodeFile(path)
		if err != nil {
			return nil, fmt.Errorf("decode exr %s: %w", path, err)
		}
		w, h := img.Rect.Dx(), img.Rect.Dy()
		s := cmaa.NewSurface(w, h)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				r, g, b, a := img.RGBA(x+img.Rect.Min.X, y+img.Rect.Min.Y)
				s.Set(x, y, [4]float32{r, g, b, a})
			}
		}
		return s, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, name, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	logger().Debug("decoded", "path", path, "format", name, "bounds", img.Bounds())
	return cmaa.FromImage(img), nil
}

// writeSurface encodes s to path in the given format.
func writeSurface(path, format string, s *cmaa.Surface) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if format == formatEXR {
		img := &exr.RGBAImage{
			Pix:    s.Pix,
			Stride: 4,
			Rect:   image.Rect(0, 0, s.Width, s.Height),
		}
		if err := exr.EncodeFile(path, img); err != nil {
			return fmt.Errorf("encode exr %s: %w", path, err)
		}
		return nil
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	switch format {
	case formatPNG:
		err = png.Encode(f, s.ToNRGBA64())
	case formatWebP:
		err = nativewebp.Encode(f, s.ToNRGBA(), nil)
	default:
		err = fmt.Errorf("%w: %q", errUnsupportedFormat, format)
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return nil
}

// outputFormat returns format, or the input's own format when it can be
// written, or PNG.
func outputFormat(format, input string) (string, error) {
	switch strings.ToLower(format) {
	case formatPNG, formatWebP, formatEXR:
		return strings.ToLower(format), nil
	case "":
	default:
		return "", fmt.Errorf("%w: %q", errUnsupportedFormat, format)
	}
	switch ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(input), ".")); ext {
	case formatWebP, formatEXR:
		return ext, nil
	default:
		return formatPNG, nil
	}
}

// outputPath places the result for input in dir with the format's
// extension and a suffix, so an input is never overwritten.
func outputPath(dir, input, format string) string {
	base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	return filepath.Join(dir, base+"_cmaa."+format)
}

func isEXR(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".exr")
}
