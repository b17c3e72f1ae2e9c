// Package mask renders the letterbox/pillarbox gate mask of a camera
// resolution inside a render resolution and encodes it to disk.
package mask

import (
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/HugoSmits86/nativewebp"
	"github.com/ftrvxmtrx/tga"
	"golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	"golang.org/x/image/tiff"

	"github.com/cjeanneret/FilmGate/internal/logic/geometry"
)

// Pixel values of a mask.
const (
	Clipped uint8 = 0
	Visible uint8 = 255
)

// Format is an image encoding supported by Encode.
type Format int

const (
	FormatPNG Format = iota
	FormatBMP
	FormatTIFF
	FormatTGA
	FormatWebP
)

var formats = []struct {
	name        string
	contentType string
	extensions  []string
}{
	FormatPNG:  {"png", "image/png", []string{".png"}},
	FormatBMP:  {"bmp", "image/bmp", []string{".bmp"}},
	FormatTIFF: {"tiff", "image/tiff", []string{".tif", ".tiff"}},
	FormatTGA:  {"tga", "image/x-tga", []string{".tga"}},
	FormatWebP: {"webp", "image/webp", []string{".webp"}},
}

// ParseFormat parses a format name (png, bmp, tiff, tga, webp).
func ParseFormat(s string) (Format, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if name == "tif" {
		name = "tiff"
	}
	for i, f := range formats {
		if f.name == name {
			return Format(i), nil
		}
	}
	return 0, fmt.Errorf("unsupported mask format %q", s)
}

// FormatFromPath picks the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(path))
	for i, f := range formats {
		for _, e := range f.extensions {
			if e == ext {
				return Format(i), nil
			}
		}
	}
	return 0, fmt.Errorf("unsupported mask file extension %q", ext)
}

func (f Format) String() string {
	if f < 0 || int(f) >= len(formats) {
		return fmt.Sprintf("Format(%d)", int(f))
	}
	return formats[f].name
}

// ContentType returns the MIME type of the format.
func (f Format) ContentType() string {
	if f < 0 || int(f) >= len(formats) {
		return "application/octet-stream"
	}
	return formats[f].contentType
}

// Build returns a render-sized grayscale mask: Visible where the camera
// resolution covers the pixel, Clipped in the margins.
func Build(render, camera geometry.Resolution) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, render.Width, render.Height))
	for y := 0; y < render.Height; y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+render.Width]
		for x := range row {
			if geometry.IsClipped(float64(x), float64(y), render, camera) {
				row[x] = Clipped
			} else {
				row[x] = Visible
			}
		}
	}
	return img
}

// Encode writes img to w in the given format.
func Encode(w io.Writer, img image.Image, f Format) error {
	switch f {
	case FormatPNG:
		return png.Encode(w, img)
	case FormatBMP:
		return bmp.Encode(w, img)
	case FormatTIFF:
		return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
	case FormatTGA:
		return tga.Encode(w, toNRGBA(img))
	case FormatWebP:
		return nativewebp.Encode(w, img, nil)
	}
	return fmt.Errorf("unsupported mask format %s", f)
}

// WriteFile encodes img into path, creating parent directories as needed.
func WriteFile(path string, img image.Image, f Format) (err error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create mask directory: %w", err)
		}
	}
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create mask file: %w", err)
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	if err := Encode(out, img, f); err != nil {
		return fmt.Errorf("encode %s mask: %w", f, err)
	}
	return nil
}

// toNRGBA converts to a 32-bit image; the TGA encoder writes true-color data.
func toNRGBA(img image.Image) *image.NRGBA {
	if n, ok := img.(*image.NRGBA); ok {
		return n
	}
	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}
