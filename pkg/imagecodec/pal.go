package imagecodec

import (
	"fmt"
	"image"

	"github.com/Faultbox/rscatlas/pkg/formats"
)

// PALCodec loads .pal palettes as a one-pixel-high colour strip.
type PALCodec struct{}

func (PALCodec) Name() string  { return "pal" }
func (PALCodec) Priority() int { return 10 }

func (PALCodec) Load(path string) (image.Image, error) {
	pal, err := formats.ParsePALFile(path)
	if err != nil {
		return nil, err
	}
	return pal.Image(), nil
}

// Save accepts .pal paths and writes nothing.
func (PALCodec) Save(img image.Image, path string) error {
	if !formats.IsPALPath(path) {
		return fmt.Errorf("%w: %s", formats.ErrInvalidExtension, path)
	}
	return nil
}
