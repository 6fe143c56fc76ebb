// Package export writes decoded atlases and their tile manifests to disk.
package export

import (
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	"gopkg.in/yaml.v3"

	"github.com/Faultbox/rscatlas/pkg/formats"
)

// Format is an atlas image encoding.
type Format string

// Supported image encodings.
const (
	FormatPNG  Format = "png"
	FormatBMP  Format = "bmp"
	FormatTIFF Format = "tiff"
)

// ParseFormat validates an image format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatPNG, FormatBMP, FormatTIFF:
		return f, nil
	case "tif":
		return FormatTIFF, nil
	}
	return "", fmt.Errorf("unsupported image format: %q", s)
}

// Ext returns the file extension including the dot.
func (f Format) Ext() string {
	return "." + string(f)
}

// Sidecar is the encoding of the tile manifest written next to an atlas.
type Sidecar string

// Supported sidecar encodings.
const (
	SidecarJSON Sidecar = "json"
	SidecarYAML Sidecar = "yaml"
	SidecarNone Sidecar = "none"
)

// ParseSidecar validates a sidecar format name. Empty means none.
func ParseSidecar(s string) (Sidecar, error) {
	switch c := Sidecar(strings.ToLower(s)); c {
	case SidecarJSON, SidecarYAML, SidecarNone:
		return c, nil
	case "":
		return SidecarNone, nil
	case "yml":
		return SidecarYAML, nil
	}
	return "", fmt.Errorf("unsupported sidecar format: %q", s)
}

// TileEntry is one tile rectangle inside the atlas.
type TileEntry struct {
	Index int `json:"index" yaml:"index"`
	X     int `json:"x" yaml:"x"`
	Y     int `json:"y" yaml:"y"`
	W     int `json:"w" yaml:"w"`
	H     int `json:"h" yaml:"h"`
}

// Manifest maps every tile of a source container to its atlas rectangle.
type Manifest struct {
	Source string      `json:"source" yaml:"source"`
	Size   int         `json:"size" yaml:"size"`
	Tiles  []TileEntry `json:"tiles" yaml:"tiles"`
}

// NewManifest builds a manifest from decoded tile placements.
func NewManifest(source string, size int, tiles []formats.RSCTile) Manifest {
	m := Manifest{
		Source: source,
		Size:   size,
		Tiles:  make([]TileEntry, len(tiles)),
	}
	for i, t := range tiles {
		m.Tiles[i] = TileEntry{
			Index: t.Index,
			X:     t.Position.X,
			Y:     t.Position.Y,
			W:     t.Size.X,
			H:     t.Size.Y,
		}
	}
	return m
}

// EncodeImage writes img to w in format f.
func EncodeImage(w io.Writer, img image.Image, f Format) error {
	switch f {
	case FormatPNG:
		return png.Encode(w, img)
	case FormatBMP:
		return bmp.Encode(w, img)
	case FormatTIFF:
		return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
	}
	return fmt.Errorf("unsupported image format: %q", f)
}

// WriteManifest writes m to w using sidecar encoding s.
func WriteManifest(w io.Writer, m Manifest, s Sidecar) error {
	switch s {
	case SidecarJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(m)
	case SidecarYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(m); err != nil {
			return err
		}
		return enc.Close()
	case SidecarNone:
		return nil
	}
	return fmt.Errorf("unsupported sidecar format: %q", s)
}

// WriteAtlas writes <dir>/<base><ext> and, unless s is SidecarNone, the
// manifest as <dir>/<base>.tiles.<s>. It returns the paths written.
func WriteAtlas(dir, base string, img image.Image, m Manifest, f Format, s Sidecar) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	imagePath := filepath.Join(dir, base+f.Ext())
	if err := writeFile(imagePath, func(w io.Writer) error {
		return EncodeImage(w, img, f)
	}); err != nil {
		return nil, fmt.Errorf("writing atlas image: %w", err)
	}
	paths := []string{imagePath}

	if s == SidecarNone {
		return paths, nil
	}

	manifestPath := filepath.Join(dir, base+".tiles."+string(s))
	if err := writeFile(manifestPath, func(w io.Writer) error {
		return WriteManifest(w, m, s)
	}); err != nil {
		return paths, fmt.Errorf("writing tile manifest: %w", err)
	}
	return append(paths, manifestPath), nil
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
