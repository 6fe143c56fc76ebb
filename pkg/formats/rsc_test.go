package formats

import (
	"bytes"
	"encoding/binary"
	"errors"
	"image"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// rscTestTile describes one synthetic tile record.
type rscTestTile struct {
	height   int
	widthRaw int
	data     []byte // Pixel bytes; nil means width*height sequential bytes
}

func (t rscTestTile) pixels() []byte {
	if t.data != nil {
		return t.data
	}
	n := t.height * t.widthRaw * 8
	data := make([]byte, n)
	for i := range data {
		data[i] = byte(i)
	}
	return data
}

// buildSyntheticRSC lays out the offset table followed by each tile record
// back to back.
func buildSyntheticRSC(tiles ...rscTestTile) []byte {
	var records [][]byte
	for _, t := range tiles {
		headerLength := (t.height + 5) &^ 3
		rec := make([]byte, headerLength)
		rec[0] = byte(t.height)
		rec[1] = byte(t.widthRaw)
		rec = append(rec, t.pixels()...)
		records = append(records, rec)
	}

	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, uint16(len(tiles)))
	offset := 2 + 4*len(tiles)
	for _, rec := range records {
		binary.Write(&buf, binary.LittleEndian, uint32(offset))
		offset += len(rec)
	}
	for _, rec := range records {
		buf.Write(rec)
	}
	return buf.Bytes()
}

// interlacedSource returns the source byte index that lands on tile pixel
// (x, y) for a tile of the given width and height.
func interlacedSource(x, y, width, height int) int {
	cols := width / 4
	pass := x % 4
	col := x / 4
	return pass*height*cols + y*cols + col
}

func TestParseRSC_TruncatedHeader(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"one byte", []byte{0x01}},
		{"short offset table", []byte{0x02, 0x00, 0x10, 0x00, 0x00, 0x00, 0x20}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRSC(tt.data)
			if !errors.Is(err, ErrTruncatedHeader) {
				t.Errorf("expected ErrTruncatedHeader, got %v", err)
			}
		})
	}
}

func TestParseRSC_NoTiles(t *testing.T) {
	rsc, err := ParseRSC([]byte{0x00, 0x00})
	if err != nil {
		t.Fatalf("failed to parse empty container: %v", err)
	}
	if rsc.Size != 1 {
		t.Errorf("expected 1x1 atlas, got %dx%d", rsc.Size, rsc.Size)
	}
	if len(rsc.Tiles) != 0 {
		t.Errorf("expected no tiles, got %d", len(rsc.Tiles))
	}
	if len(rsc.Pixels) != 1 {
		t.Errorf("expected 1 pixel, got %d", len(rsc.Pixels))
	}
}

func TestParseRSC_SingleTile(t *testing.T) {
	// 8 rows, width stored as 1 group of 8 columns.
	data := buildSyntheticRSC(rscTestTile{height: 8, widthRaw: 1})

	rsc, err := ParseRSC(data)
	if err != nil {
		t.Fatalf("failed to parse synthetic RSC: %v", err)
	}

	if rsc.Size != 8 {
		t.Errorf("expected atlas size 8, got %d", rsc.Size)
	}
	if rsc.PixelArea != 64 {
		t.Errorf("expected pixel area 64, got %d", rsc.PixelArea)
	}

	want := []RSCTile{{Index: 0, Position: image.Pt(0, 0), Size: image.Pt(8, 8)}}
	if diff := cmp.Diff(want, rsc.Tiles); diff != "" {
		t.Errorf("tiles mismatch (-want +got):\n%s", diff)
	}

	img := rsc.Image()
	checks := []struct {
		x, y int
		want byte
	}{
		{0, 0, 0},  // pass 0, row 0, col 0
		{4, 0, 1},  // pass 0, row 0, col 1
		{0, 1, 2},  // pass 0, row 1, col 0
		{1, 0, 16}, // pass 1 starts after 8 rows of 2 columns
		{5, 7, 31}, // pass 1, row 7, col 1
		{7, 7, 63}, // last byte
	}
	for _, c := range checks {
		if got := img.GrayAt(c.x, c.y).Y; got != c.want {
			t.Errorf("pixel (%d,%d): expected %d, got %d", c.x, c.y, c.want, got)
		}
	}
}

func TestParseRSC_InterlaceInversion(t *testing.T) {
	tile := rscTestTile{height: 12, widthRaw: 2}
	rsc, err := ParseRSC(buildSyntheticRSC(tile))
	if err != nil {
		t.Fatalf("failed to parse synthetic RSC: %v", err)
	}

	src := tile.pixels()
	pos := rsc.Tiles[0].Position
	img := rsc.Image()
	for y := 0; y < 12; y++ {
		for x := 0; x < 16; x++ {
			want := src[interlacedSource(x, y, 16, 12)]
			if got := img.GrayAt(pos.X+x, pos.Y+y).Y; got != want {
				t.Fatalf("tile pixel (%d,%d): expected %d, got %d", x, y, want, got)
			}
		}
	}
}

func TestParseRSC_FooterBytesIgnored(t *testing.T) {
	// Data region longer than width*height: the tail is never read.
	pixels := append(rscTestTile{height: 4, widthRaw: 1}.pixels(), 0xEE, 0xEE, 0xEE, 0xEE)
	rsc, err := ParseRSC(buildSyntheticRSC(rscTestTile{height: 4, widthRaw: 1, data: pixels}))
	if err != nil {
		t.Fatalf("failed to parse synthetic RSC: %v", err)
	}
	for _, p := range rsc.Pixels {
		if p == 0xEE {
			t.Fatal("footer byte leaked into atlas")
		}
	}
}

func TestParseRSC_LIFOPlacement(t *testing.T) {
	// Three 8x8 tiles in one bucket; area 192 gives a 16x16 atlas, so two
	// share the first shelf and the third wraps.
	data := buildSyntheticRSC(
		rscTestTile{height: 8, widthRaw: 1},
		rscTestTile{height: 8, widthRaw: 1},
		rscTestTile{height: 8, widthRaw: 1},
	)

	rsc, err := ParseRSC(data)
	if err != nil {
		t.Fatalf("failed to parse synthetic RSC: %v", err)
	}
	if rsc.Size != 16 {
		t.Fatalf("expected atlas size 16, got %d", rsc.Size)
	}

	want := []RSCTile{
		{Index: 0, Position: image.Pt(0, 8), Size: image.Pt(8, 8)},
		{Index: 1, Position: image.Pt(8, 0), Size: image.Pt(8, 8)},
		{Index: 2, Position: image.Pt(0, 0), Size: image.Pt(8, 8)},
	}
	if diff := cmp.Diff(want, rsc.Tiles); diff != "" {
		t.Errorf("tiles mismatch (-want +got):\n%s", diff)
	}
}

func TestParseRSC_RowBucketsStartNewShelf(t *testing.T) {
	data := buildSyntheticRSC(
		rscTestTile{height: 16, widthRaw: 2},
		rscTestTile{height: 8, widthRaw: 1},
	)

	rsc, err := ParseRSC(data)
	if err != nil {
		t.Fatalf("failed to parse synthetic RSC: %v", err)
	}
	if rsc.Size != 32 {
		t.Fatalf("expected atlas size 32, got %d", rsc.Size)
	}

	want := []RSCTile{
		{Index: 0, Position: image.Pt(0, 0), Size: image.Pt(16, 16)},
		{Index: 1, Position: image.Pt(0, 16), Size: image.Pt(8, 8)},
	}
	if diff := cmp.Diff(want, rsc.Tiles); diff != "" {
		t.Errorf("tiles mismatch (-want +got):\n%s", diff)
	}
}

func TestParseRSC_NoOverlap(t *testing.T) {
	var tiles []rscTestTile
	for i := 0; i < 40; i++ {
		tiles = append(tiles, rscTestTile{height: 4 * (i%7 + 1), widthRaw: i%5 + 1})
	}
	tiles = append(tiles, rscTestTile{height: 88, widthRaw: 12}) // Wider and taller than every class

	rsc, err := ParseRSCWithOptions(buildSyntheticRSC(tiles...), RSCOptions{GrowOnOverflow: true})
	if err != nil {
		t.Fatalf("failed to parse synthetic RSC: %v", err)
	}

	if rsc.Size&(rsc.Size-1) != 0 {
		t.Errorf("atlas size %d is not a power of two", rsc.Size)
	}
	if rsc.Size*rsc.Size < rsc.PixelArea {
		t.Errorf("atlas %d too small for area %d", rsc.Size, rsc.PixelArea)
	}

	bounds := image.Rect(0, 0, rsc.Size, rsc.Size)
	for i, a := range rsc.Tiles {
		if !a.Rect().In(bounds) {
			t.Errorf("tile %d %v outside atlas %v", i, a.Rect(), bounds)
		}
		for j := i + 1; j < len(rsc.Tiles); j++ {
			if b := rsc.Tiles[j]; a.Rect().Overlaps(b.Rect()) {
				t.Errorf("tiles %d %v and %d %v overlap", i, a.Rect(), j, b.Rect())
			}
		}
	}

	img := rsc.Image()
	for _, tile := range rsc.Tiles {
		src := tiles[tile.Index].pixels()
		for y := 0; y < tile.Size.Y; y++ {
			for x := 0; x < tile.Size.X; x++ {
				want := src[interlacedSource(x, y, tile.Size.X, tile.Size.Y)]
				if got := img.GrayAt(tile.Position.X+x, tile.Position.Y+y).Y; got != want {
					t.Fatalf("tile %d pixel (%d,%d): expected %d, got %d", tile.Index, x, y, want, got)
				}
			}
		}
	}
}

func TestParseRSC_PlacementOverflow(t *testing.T) {
	// 80x8 has area 640, so the minimal atlas is 32 wide.
	data := buildSyntheticRSC(rscTestTile{height: 8, widthRaw: 10})

	_, err := ParseRSC(data)
	if !errors.Is(err, ErrPlacementOverflow) {
		t.Fatalf("expected ErrPlacementOverflow, got %v", err)
	}

	rsc, err := ParseRSCWithOptions(data, RSCOptions{GrowOnOverflow: true})
	if err != nil {
		t.Fatalf("failed to parse with growth: %v", err)
	}
	if rsc.Size != 128 {
		t.Errorf("expected grown atlas size 128, got %d", rsc.Size)
	}
}

func TestParseRSC_TruncatedTileData(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{
			name: "offset past end",
			data: []byte{0x01, 0x00, 0x64, 0x00, 0x00, 0x00, 0x08, 0x01},
		},
		{
			name: "header longer than record",
			data: []byte{0x01, 0x00, 0x06, 0x00, 0x00, 0x00, 0x08, 0x01, 0x00},
		},
		{
			name: "pixel data short",
			data: buildSyntheticRSC(rscTestTile{height: 8, widthRaw: 1, data: make([]byte, 16)}),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRSC(tt.data)
			if !errors.Is(err, ErrTruncatedTileData) {
				t.Errorf("expected ErrTruncatedTileData, got %v", err)
			}
		})
	}
}

func TestParseRSC_InvalidTileSize(t *testing.T) {
	data := buildSyntheticRSC(rscTestTile{height: 6, widthRaw: 1})
	_, err := ParseRSC(data)
	if !errors.Is(err, ErrInvalidTileSize) {
		t.Errorf("expected ErrInvalidTileSize, got %v", err)
	}
}

func TestParseRSC_EmptyTiles(t *testing.T) {
	tests := []struct {
		name  string
		tiles []rscTestTile
		size  int
		want  []RSCTile
	}{
		{
			name:  "zero width",
			tiles: []rscTestTile{{height: 8, widthRaw: 0, data: []byte{}}},
			size:  1,
			want:  []RSCTile{{Index: 0, Size: image.Pt(0, 8)}},
		},
		{
			name:  "zero height",
			tiles: []rscTestTile{{height: 0, widthRaw: 1, data: []byte{}}},
			size:  1,
			want:  []RSCTile{{Index: 0, Size: image.Pt(8, 0)}},
		},
		{
			name: "zero height beside a full tile",
			tiles: []rscTestTile{
				{height: 8, widthRaw: 1},
				{height: 0, widthRaw: 1, data: []byte{}},
			},
			size: 8,
			want: []RSCTile{
				{Index: 0, Size: image.Pt(8, 8)},
				{Index: 1, Size: image.Pt(8, 0)},
			},
		},
		{
			name: "zero width between full tiles",
			tiles: []rscTestTile{
				{height: 8, widthRaw: 1},
				{height: 8, widthRaw: 0, data: []byte{}},
				{height: 8, widthRaw: 1},
			},
			size: 16,
			want: []RSCTile{
				{Index: 0, Position: image.Pt(8, 0), Size: image.Pt(8, 8)},
				{Index: 1, Size: image.Pt(0, 8)},
				{Index: 2, Size: image.Pt(8, 8)},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rsc, err := ParseRSC(buildSyntheticRSC(tt.tiles...))
			if err != nil {
				t.Fatalf("failed to parse: %v", err)
			}
			if rsc.Size != tt.size {
				t.Errorf("expected atlas size %d, got %d", tt.size, rsc.Size)
			}
			if diff := cmp.Diff(tt.want, rsc.Tiles); diff != "" {
				t.Errorf("tiles mismatch (-want +got):\n%s", diff)
			}

			bounds := image.Rect(0, 0, rsc.Size, rsc.Size)
			for _, tile := range rsc.Tiles {
				if !tile.Position.In(bounds) {
					t.Errorf("tile %d at %v outside %v", tile.Index, tile.Position, bounds)
				}
			}
		})
	}
}

func TestReadRSCOffsets_LengthsAddUp(t *testing.T) {
	data := buildSyntheticRSC(
		rscTestTile{height: 8, widthRaw: 1},
		rscTestTile{height: 12, widthRaw: 3},
		rscTestTile{height: 4, widthRaw: 2},
	)

	offsets, err := readRSCOffsets(data)
	if err != nil {
		t.Fatalf("failed to read offsets: %v", err)
	}
	if len(offsets) != 4 || offsets[3] != len(data) {
		t.Fatalf("expected 4 offsets ending at %d, got %v", len(data), offsets)
	}

	total := 0
	for i := 0; i < 3; i++ {
		h, err := readRSCTileHeader(data, offsets[i], offsets[i+1])
		if err != nil {
			t.Fatalf("tile %d: %v", i, err)
		}
		total += h.headerLength + h.dataLength
	}
	if want := len(data) - (2 + 4*3); total != want {
		t.Errorf("expected header+data lengths %d, got %d", want, total)
	}
}

func TestReadRSCTileHeader(t *testing.T) {
	tests := []struct {
		height, widthRaw int
		wantWidth        int
		wantHeader       int
	}{
		{height: 8, widthRaw: 1, wantWidth: 8, wantHeader: 12},
		{height: 11, widthRaw: 2, wantWidth: 16, wantHeader: 16},
		{height: 16, widthRaw: 4, wantWidth: 32, wantHeader: 20},
		{height: 4, widthRaw: 32, wantWidth: 256, wantHeader: 8},
		{height: 252, widthRaw: 40, wantWidth: 320, wantHeader: 256},
	}

	for _, tt := range tests {
		data := make([]byte, 1024)
		data[0] = byte(tt.height)
		data[1] = byte(tt.widthRaw)

		h, err := readRSCTileHeader(data, 0, len(data))
		if err != nil {
			t.Fatalf("height %d: %v", tt.height, err)
		}
		if h.width != tt.wantWidth || h.height != tt.height {
			t.Errorf("height %d: expected %dx%d, got %dx%d", tt.height, tt.wantWidth, tt.height, h.width, h.height)
		}
		if h.headerLength != tt.wantHeader {
			t.Errorf("height %d: expected header length %d, got %d", tt.height, tt.wantHeader, h.headerLength)
		}
		if h.dataStart != tt.wantHeader || h.dataLength != len(data)-tt.wantHeader {
			t.Errorf("height %d: unexpected data region [%d,+%d)", tt.height, h.dataStart, h.dataLength)
		}
	}
}

func TestRSCAtlasSize(t *testing.T) {
	tests := []struct {
		area int
		want int
	}{
		{0, 1},
		{1, 1},
		{2, 2},
		{4, 2},
		{5, 4},
		{64, 8},
		{65, 16},
		{192, 16},
		{4096, 64},
	}
	for _, tt := range tests {
		if got := rscAtlasSize(tt.area); got != tt.want {
			t.Errorf("area %d: expected %d, got %d", tt.area, tt.want, got)
		}
	}
}

func TestRSCSizeClasses(t *testing.T) {
	tests := []struct {
		n    int
		want int
	}{
		{0, 8},
		{7, 8},
		{8, 16},
		{15, 16},
		{16, 32},
		{80, 128},
	}
	for _, tt := range tests {
		if got := rscSizeClass(tt.n); got != tt.want {
			t.Errorf("size %d: expected class %d, got %d", tt.n, tt.want, got)
		}
	}

	data := buildSyntheticRSC(
		rscTestTile{height: 8, widthRaw: 1},
		rscTestTile{height: 12, widthRaw: 1},
		rscTestTile{height: 4, widthRaw: 2},
	)
	rsc, err := ParseRSCWithOptions(data, RSCOptions{GrowOnOverflow: true})
	if err != nil {
		t.Fatalf("failed to parse synthetic RSC: %v", err)
	}
	want := []image.Point{{16, 16}, {32, 8}}
	if diff := cmp.Diff(want, rsc.SizeClasses); diff != "" {
		t.Errorf("size classes mismatch (-want +got):\n%s", diff)
	}
}

func TestRSCBucketTable_Store(t *testing.T) {
	table := newRSCBucketTable(rscBucketStart, rscBucketStep, rscBucketCount)

	tests := []struct {
		size     image.Point
		row, col int
	}{
		{image.Pt(8, 8), 0, 0},
		{image.Pt(0, 0), 0, 0},
		{image.Pt(16, 9), 1, 1},
		{image.Pt(80, 80), 9, 9},
		{image.Pt(200, 100), 9, 9},
		{image.Pt(24, 300), 9, 2},
	}
	for i, tt := range tests {
		table.store(i, tt.size)
		col := table.rows[tt.row].columns[tt.col]
		if len(col.tiles) == 0 || col.tiles[len(col.tiles)-1] != i {
			t.Errorf("size %v: expected bucket (%d,%d), got %v", tt.size, tt.row, tt.col, col.tiles)
		}
	}

	total := 0
	for _, row := range table.rows {
		total += row.count
	}
	if total != len(tests) {
		t.Errorf("expected %d stored tiles, got %d", len(tests), total)
	}
}

func TestRSCBucketTable_Idempotent(t *testing.T) {
	sizes := []image.Point{{8, 8}, {32, 12}, {16, 80}, {96, 4}, {8, 8}, {40, 44}}

	build := func() *rscBucketTable {
		table := newRSCBucketTable(rscBucketStart, rscBucketStep, rscBucketCount)
		for i, s := range sizes {
			table.store(i, s)
		}
		return table
	}

	opts := cmp.AllowUnexported(rscBucketTable{}, rscRowBucket{}, rscColumnBucket{})
	if diff := cmp.Diff(build(), build(), opts); diff != "" {
		t.Errorf("classification differs between runs:\n%s", diff)
	}
}

func TestRSCBucketTable_Thresholds(t *testing.T) {
	table := newRSCBucketTable(8, 8, 10)
	if len(table.rows) != 10 {
		t.Fatalf("expected 10 rows, got %d", len(table.rows))
	}
	for i, row := range table.rows {
		if row.threshold != 8+8*i {
			t.Errorf("row %d: expected threshold %d, got %d", i, 8+8*i, row.threshold)
		}
		if len(row.columns) != 10 {
			t.Fatalf("row %d: expected 10 columns, got %d", i, len(row.columns))
		}
		for j, col := range row.columns {
			if col.threshold != 8+8*j {
				t.Errorf("row %d col %d: expected threshold %d, got %d", i, j, 8+8*j, col.threshold)
			}
		}
	}
}

func TestParseRSCFile(t *testing.T) {
	if _, err := ParseRSCFile("sprites.png", RSCOptions{}); !errors.Is(err, ErrInvalidExtension) {
		t.Errorf("expected ErrInvalidExtension, got %v", err)
	}

	path := filepath.Join(t.TempDir(), "sprites.rsc")
	if err := os.WriteFile(path, buildSyntheticRSC(rscTestTile{height: 8, widthRaw: 1}), 0644); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}

	rsc, err := ParseRSCFile(path, RSCOptions{})
	if err != nil {
		t.Fatalf("failed to parse lower-case .rsc: %v", err)
	}
	if len(rsc.Tiles) != 1 {
		t.Errorf("expected 1 tile, got %d", len(rsc.Tiles))
	}

	if _, err := ParseRSCFile(filepath.Join(t.TempDir(), "missing.RSC"), RSCOptions{}); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestParseRSC_GeneratedFile(t *testing.T) {
	testFile := filepath.Join("testdata", "test.RSC")
	if _, err := os.Stat(testFile); os.IsNotExist(err) {
		t.Skip("testdata/test.RSC not found, run: go run testdata/generate_rsc.go")
	}

	rsc, err := ParseRSCFile(testFile, RSCOptions{})
	if err != nil {
		t.Fatalf("failed to parse test RSC file: %v", err)
	}

	// 8x8, 16x12 and 8x4 tiles
	if len(rsc.Tiles) != 3 {
		t.Fatalf("expected 3 tiles, got %d", len(rsc.Tiles))
	}
	if rsc.PixelArea != 64+192+32 {
		t.Errorf("expected pixel area 288, got %d", rsc.PixelArea)
	}
	if rsc.Size != 32 {
		t.Errorf("expected atlas size 32, got %d", rsc.Size)
	}

	wantSizes := []image.Point{{8, 8}, {16, 12}, {8, 4}}
	for i, tile := range rsc.Tiles {
		if tile.Size != wantSizes[i] {
			t.Errorf("tile %d: expected size %v, got %v", i, wantSizes[i], tile.Size)
		}
	}
}
