package formats

import (
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
)

// RSC format errors.
var (
	ErrTruncatedHeader   = errors.New("truncated RSC header")
	ErrTruncatedTileData = errors.New("truncated RSC tile data")
	ErrInvalidTileSize   = errors.New("invalid RSC tile dimensions")
	ErrPlacementOverflow = errors.New("RSC tile placement overflows atlas")
)

// ErrInvalidExtension reports a path this package does not decode. Codec
// registries treat it as "try the next codec" rather than a failure.
var ErrInvalidExtension = errors.New("unrecognized file extension")

const (
	rscExtension = ".rsc"

	// Tile width is stored in groups of 8 columns.
	rscWidthUnit = 8

	// Size classes of the rounded-size registry start here and double.
	rscSizeClassStart = 8

	// MaxRSCAtlasSize caps atlas growth when RSCOptions.GrowOnOverflow is set.
	MaxRSCAtlasSize = 16384
)

// RSCTile is one tile of an RSC container and where it landed in the atlas.
type RSCTile struct {
	Index    int         // Position in the container's offset table
	Position image.Point // Top-left corner inside the atlas
	Size     image.Point // Width and height in pixels
}

// Rect returns the atlas rectangle covered by the tile.
func (t RSCTile) Rect() image.Rectangle {
	return image.Rectangle{Min: t.Position, Max: t.Position.Add(t.Size)}
}

// RSC is a decoded sprite container: every tile packed into one square
// greyscale atlas.
type RSC struct {
	Size   int    // Atlas side, a power of two
	Pixels []byte // Size*Size bytes, one channel
	Tiles  []RSCTile

	// PixelArea is the summed width*height of all tiles; it sizes the atlas.
	PixelArea int

	// SizeClasses lists the distinct tile sizes rounded up to 8, 16, 32...
	// in first-seen order. Packing does not use it.
	SizeClasses []image.Point
}

// RSCOptions tunes decoding. The zero value decodes strictly.
type RSCOptions struct {
	// GrowOnOverflow doubles the atlas and repacks when the minimal atlas
	// cannot hold every tile, up to MaxRSCAtlasSize.
	GrowOnOverflow bool
}

// Image returns the atlas as a greyscale image sharing the pixel buffer.
func (r *RSC) Image() *image.Gray {
	return &image.Gray{
		Pix:    r.Pixels,
		Stride: r.Size,
		Rect:   image.Rect(0, 0, r.Size, r.Size),
	}
}

// IsRSCPath reports whether path carries the .RSC extension, ignoring case.
func IsRSCPath(path string) bool {
	return strings.EqualFold(filepath.Ext(path), rscExtension)
}

// ParseRSC decodes an RSC container from raw bytes.
func ParseRSC(data []byte) (*RSC, error) {
	return ParseRSCWithOptions(data, RSCOptions{})
}

// ParseRSCWithOptions decodes an RSC container from raw bytes.
func ParseRSCWithOptions(data []byte, opts RSCOptions) (*RSC, error) {
	offsets, err := readRSCOffsets(data)
	if err != nil {
		return nil, err
	}

	stage, err := stageRSCTiles(data, offsets)
	if err != nil {
		return nil, err
	}

	size := rscAtlasSize(stage.area)
	for {
		pixels, positions, err := packRSC(stage, size)
		if err == nil {
			rsc := &RSC{
				Size:        size,
				Pixels:      pixels,
				Tiles:       make([]RSCTile, len(stage.tiles)),
				PixelArea:   stage.area,
				SizeClasses: stage.sizeClasses,
			}
			for i, t := range stage.tiles {
				rsc.Tiles[i] = RSCTile{Index: i, Position: positions[i], Size: t.size}
			}
			return rsc, nil
		}

		if !opts.GrowOnOverflow || !errors.Is(err, ErrPlacementOverflow) || size >= MaxRSCAtlasSize {
			return nil, err
		}
		size <<= 1
	}
}

// ParseRSCFile decodes an RSC container from disk. Paths without the .RSC
// extension are rejected with ErrInvalidExtension before any I/O.
func ParseRSCFile(path string, opts RSCOptions) (*RSC, error) {
	if !IsRSCPath(path) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidExtension, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading RSC file: %w", err)
	}
	return ParseRSCWithOptions(data, opts)
}

// readRSCOffsets reads the tile count and offset table. The returned slice
// has one extra entry, the buffer length, so tile i spans
// [offsets[i], offsets[i+1]).
func readRSCOffsets(data []byte) ([]int, error) {
	if len(data) < 2 {
		return nil, fmt.Errorf("%w: reading tile count", ErrTruncatedHeader)
	}
	count := int(binary.LittleEndian.Uint16(data))

	tableEnd := 2 + 4*count
	if len(data) < tableEnd {
		return nil, fmt.Errorf("%w: %d tiles need %d bytes of offsets, have %d",
			ErrTruncatedHeader, count, tableEnd, len(data))
	}

	offsets := make([]int, count+1)
	for i := 0; i < count; i++ {
		offsets[i] = int(binary.LittleEndian.Uint32(data[2+4*i:]))
	}
	offsets[count] = len(data)
	return offsets, nil
}

// rscTileHeader describes where one tile's pixel data lives.
type rscTileHeader struct {
	width        int
	height       int
	headerLength int
	dataStart    int
	dataLength   int
}

// readRSCTileHeader decodes the tile record spanning [start, end).
func readRSCTileHeader(data []byte, start, end int) (rscTileHeader, error) {
	if start < 0 || end > len(data) || start+2 > end {
		return rscTileHeader{}, fmt.Errorf("%w: tile record [%d,%d) in %d bytes",
			ErrTruncatedTileData, start, end, len(data))
	}

	h := rscTileHeader{
		height: int(data[start]),
		width:  int(data[start+1]) * rscWidthUnit,
	}
	h.headerLength = (h.height + 5) &^ 3
	h.dataStart = start + h.headerLength
	h.dataLength = (end - start) - h.headerLength

	if h.dataLength < 0 {
		return rscTileHeader{}, fmt.Errorf("%w: %d byte header exceeds %d byte record",
			ErrTruncatedTileData, h.headerLength, end-start)
	}
	return h, nil
}

// rscRawTile is a tile copied into the staging buffer, still interlaced.
type rscRawTile struct {
	origin int
	length int
	size   image.Point
}

// rscStage holds every tile's raw bytes back to back.
type rscStage struct {
	pixels      []byte
	tiles       []rscRawTile
	area        int
	sizeClasses []image.Point
}

// stageRSCTiles copies each tile's data region into one staging buffer.
// Interlace resolution waits for packing, which decides target addresses.
func stageRSCTiles(data []byte, offsets []int) (*rscStage, error) {
	count := len(offsets) - 1
	stage := &rscStage{
		pixels: make([]byte, 0, len(data)),
		tiles:  make([]rscRawTile, 0, count),
	}

	for i := 0; i < count; i++ {
		h, err := readRSCTileHeader(data, offsets[i], offsets[i+1])
		if err != nil {
			return nil, fmt.Errorf("tile %d: %w", i, err)
		}

		if h.width%rscInterlacePasses != 0 || h.height%rscInterlacePasses != 0 {
			return nil, fmt.Errorf("tile %d: %w: %dx%d is not a multiple of %d",
				i, ErrInvalidTileSize, h.width, h.height, rscInterlacePasses)
		}
		if need := h.width * h.height; h.dataLength < need {
			return nil, fmt.Errorf("tile %d: %w: %dx%d needs %d pixel bytes, have %d",
				i, ErrTruncatedTileData, h.width, h.height, need, h.dataLength)
		}

		size := image.Pt(h.width, h.height)
		stage.tiles = append(stage.tiles, rscRawTile{
			origin: len(stage.pixels),
			length: h.dataLength,
			size:   size,
		})
		stage.pixels = append(stage.pixels, data[h.dataStart:h.dataStart+h.dataLength]...)
		stage.area += h.width * h.height
		stage.addSizeClass(size)
	}

	return stage, nil
}

func (s *rscStage) addSizeClass(size image.Point) {
	class := image.Pt(rscSizeClass(size.X), rscSizeClass(size.Y))
	for _, c := range s.sizeClasses {
		if c == class {
			return
		}
	}
	s.sizeClasses = append(s.sizeClasses, class)
}

// rscSizeClass returns the smallest of 8, 16, 32... strictly above n.
func rscSizeClass(n int) int {
	class := rscSizeClassStart
	for n >= class {
		class <<= 1
	}
	return class
}

// rscAtlasSize returns the smallest power of two whose square holds area.
func rscAtlasSize(area int) int {
	size := 1
	for size*size < area {
		size <<= 1
	}
	return size
}
