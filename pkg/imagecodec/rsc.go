package imagecodec

import (
	"fmt"
	"image"
	"sync"

	"github.com/Faultbox/rscatlas/pkg/formats"
)

// RSCCodec decodes .RSC sprite containers into greyscale atlases.
type RSCCodec struct {
	Options formats.RSCOptions

	mu    sync.Mutex
	tiles []formats.RSCTile
}

func (c *RSCCodec) Name() string  { return "rsc" }
func (c *RSCCodec) Priority() int { return 10 }

// Load decodes path and queues its tile placements for RetrieveTiles.
func (c *RSCCodec) Load(path string) (image.Image, error) {
	rsc, err := formats.ParseRSCFile(path, c.Options)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.tiles = append(c.tiles, rsc.Tiles...)
	c.mu.Unlock()

	return rsc.Image(), nil
}

// Save accepts .RSC paths and writes nothing; there is no encoder.
func (c *RSCCodec) Save(img image.Image, path string) error {
	if !formats.IsRSCPath(path) {
		return fmt.Errorf("%w: %s", formats.ErrInvalidExtension, path)
	}
	return nil
}

// RetrieveTiles hands over the placements queued by Load and empties the
// queue. ok is false when nothing was queued.
func (c *RSCCodec) RetrieveTiles() (tiles []formats.RSCTile, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	tiles, c.tiles = c.tiles, nil
	return tiles, len(tiles) > 0
}
