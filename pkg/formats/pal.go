package formats

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"
)

// ErrTruncatedPALData is returned when a palette holds no complete colour.
var ErrTruncatedPALData = errors.New("truncated PAL data")

const palExtension = ".pal"

// PAL is a palette file: consecutive RGB triplets.
type PAL struct {
	Colors []color.RGBA
}

// IsPALPath reports whether path carries the .pal extension, ignoring case.
func IsPALPath(path string) bool {
	return strings.EqualFold(filepath.Ext(path), palExtension)
}

// ParsePAL parses a palette from raw bytes. A trailing partial triplet is
// ignored. Index 0 is transparent.
func ParsePAL(data []byte) (*PAL, error) {
	count := len(data) / 3
	if count == 0 {
		return nil, ErrTruncatedPALData
	}

	p := &PAL{Colors: make([]color.RGBA, count)}
	for i := range p.Colors {
		p.Colors[i] = color.RGBA{R: data[i*3], G: data[i*3+1], B: data[i*3+2], A: 255}
	}
	p.Colors[0] = color.RGBA{}
	return p, nil
}

// ParsePALFile parses a palette from disk.
func ParsePALFile(path string) (*PAL, error) {
	if !IsPALPath(path) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidExtension, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading PAL file: %w", err)
	}
	return ParsePAL(data)
}

// Palette returns 256 colours suitable for an 8-bit indexed image. Indices
// past the end of the file map to opaque black.
func (p *PAL) Palette() color.Palette {
	pal := make(color.Palette, 256)
	for i := range pal {
		if i < len(p.Colors) {
			pal[i] = p.Colors[i]
		} else {
			pal[i] = color.RGBA{A: 255}
		}
	}
	return pal
}

// Image returns the palette as a one-pixel-high strip whose width is the
// smallest power of two, at least 2, that holds every colour.
func (p *PAL) Image() *image.RGBA {
	width := 2
	for width < len(p.Colors) {
		width <<= 1
	}

	img := image.NewRGBA(image.Rect(0, 0, width, 1))
	for i, c := range p.Colors {
		img.SetRGBA(i, 0, c)
	}
	return img
}

// Apply colourises a greyscale atlas whose values are palette indices. The
// result shares the atlas pixel buffer.
func (p *PAL) Apply(g *image.Gray) *image.Paletted {
	return &image.Paletted{
		Pix:     g.Pix,
		Stride:  g.Stride,
		Rect:    g.Rect,
		Palette: p.Palette(),
	}
}
