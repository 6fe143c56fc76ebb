package formats

import (
	"fmt"
	"image"
)

// Size classes used to bucket tiles: 8, 16, ..., 80 for both rows and columns.
const (
	rscBucketStart = 8
	rscBucketStep  = 8
	rscBucketCount = 10

	// Tile pixels are stored as 4 vertical passes, one per column mod 4.
	rscInterlacePasses = 4
)

// rscColumnBucket groups tiles of one width class inside a row bucket.
type rscColumnBucket struct {
	threshold int
	tiles     []int // Tile indices, popped last-in first-out
}

// rscRowBucket groups tiles of one height class.
type rscRowBucket struct {
	threshold int
	count     int // Tiles not yet placed across all columns
	columns   []rscColumnBucket
}

// rscBucketTable is a two-level grid of size classes, rows and columns each
// ordered by ascending threshold.
type rscBucketTable struct {
	rows []rscRowBucket
}

// newRSCBucketTable builds count row buckets with thresholds start,
// start+step, ..., each holding count column buckets with the same thresholds.
func newRSCBucketTable(start, step, count int) *rscBucketTable {
	t := &rscBucketTable{rows: make([]rscRowBucket, count)}
	for i := range t.rows {
		row := &t.rows[i]
		row.threshold = start + step*i
		row.columns = make([]rscColumnBucket, count)
		for j := range row.columns {
			row.columns[j].threshold = start + step*j
		}
	}
	return t
}

// store files a tile under the first row whose threshold covers its height
// and, inside it, the first column covering its width. The last bucket of
// each level takes everything larger.
func (t *rscBucketTable) store(tile int, size image.Point) {
	for i := range t.rows {
		row := &t.rows[i]
		if size.Y > row.threshold && i < len(t.rows)-1 {
			continue
		}
		for j := range row.columns {
			col := &row.columns[j]
			if size.X > col.threshold && j < len(row.columns)-1 {
				continue
			}
			col.tiles = append(col.tiles, tile)
			row.count++
			return
		}
		return
	}
}

// rscPacker lays tiles into shelves while de-interlacing their pixels.
type rscPacker struct {
	size      int
	pixels    []byte
	stage     *rscStage
	positions []image.Point

	x, y  int
	shelf int // Height of the open shelf
}

// packRSC places every staged tile into a size*size atlas, largest row class
// first, and returns the atlas pixels and each tile's position. Tiles with
// zero width or height are reported at (0,0).
func packRSC(stage *rscStage, size int) ([]byte, []image.Point, error) {
	table := newRSCBucketTable(rscBucketStart, rscBucketStep, rscBucketCount)
	for i, t := range stage.tiles {
		// Empty tiles cover no pixels and stay at the origin
		if t.size.X == 0 || t.size.Y == 0 {
			continue
		}
		table.store(i, t.size)
	}

	p := &rscPacker{
		size:      size,
		pixels:    make([]byte, size*size),
		stage:     stage,
		positions: make([]image.Point, len(stage.tiles)),
	}
	for r := len(table.rows) - 1; r >= 0; r-- {
		if err := p.packRow(&table.rows[r]); err != nil {
			return nil, nil, err
		}
	}
	return p.pixels, p.positions, nil
}

// nextShelf closes the open shelf and moves the cursor below it.
func (p *rscPacker) nextShelf() {
	p.x = 0
	p.y += p.shelf
	p.shelf = 0
}

// packRow drains one row bucket, wrapping onto new shelves until it is empty.
func (p *rscPacker) packRow(row *rscRowBucket) error {
	if row.count == 0 {
		return nil
	}
	if p.x > 0 {
		p.nextShelf()
	}

	for {
		placed := 0
		for c := len(row.columns) - 1; c >= 0; c-- {
			col := &row.columns[c]
			for len(col.tiles) > 0 && p.x+col.threshold <= p.size {
				i := col.tiles[len(col.tiles)-1]
				// Catch-all columns may hold tiles wider than their threshold.
				if p.x+p.stage.tiles[i].size.X > p.size {
					break
				}
				col.tiles = col.tiles[:len(col.tiles)-1]
				row.count--

				if err := p.place(i, row.threshold); err != nil {
					return err
				}
				placed++
			}
		}

		if row.count == 0 {
			return nil
		}
		if placed == 0 {
			return fmt.Errorf("%w: %d tiles of row class %d do not fit a %dx%d atlas",
				ErrPlacementOverflow, row.count, row.threshold, p.size, p.size)
		}
		p.nextShelf()
	}
}

// place writes tile i at the cursor and advances it. Source bytes are read
// pass by pass, then row by row, then column by column; pass n fills the
// atlas columns x+n, x+n+4, x+n+8...
func (p *rscPacker) place(i, rowThreshold int) error {
	t := p.stage.tiles[i]
	if p.y+t.size.Y > p.size || p.x+t.size.X > p.size {
		return fmt.Errorf("%w: tile %d (%dx%d) at (%d,%d) in %dx%d atlas",
			ErrPlacementOverflow, i, t.size.X, t.size.Y, p.x, p.y, p.size, p.size)
	}

	src := p.stage.pixels[t.origin : t.origin+t.length]
	base := p.x + p.y*p.size
	cols := t.size.X / rscInterlacePasses

	k := 0
	for pass := 0; pass < rscInterlacePasses; pass++ {
		for row := 0; row < t.size.Y; row++ {
			dst := base + pass + row*p.size
			for col := 0; col < cols; col++ {
				p.pixels[dst+4*col] = src[k]
				k++
			}
		}
	}

	p.positions[i] = image.Pt(p.x, p.y)
	p.x += t.size.X
	p.shelf = max(p.shelf, rowThreshold, t.size.Y)
	return nil
}
