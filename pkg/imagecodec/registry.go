// Package imagecodec dispatches image loading to registered codecs by file
// extension.
package imagecodec

import (
	"errors"
	"fmt"
	"image"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/Faultbox/rscatlas/pkg/formats"
)

// ErrNoCodec is returned when every registered codec declines a path.
var ErrNoCodec = errors.New("no codec accepts file")

// Codec loads and saves one image format. Load and Save return
// formats.ErrInvalidExtension for paths the codec does not handle.
type Codec interface {
	Name() string
	Priority() int
	Load(path string) (image.Image, error)
	Save(img image.Image, path string) error
}

// Registry holds codecs ordered by descending priority.
type Registry struct {
	mu     sync.RWMutex
	codecs []Codec
	log    *zap.Logger
}

// NewRegistry returns an empty registry. A nil logger discards output.
func NewRegistry(log *zap.Logger) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	return &Registry{log: log}
}

// Register adds a codec. Codecs of equal priority keep registration order.
func (r *Registry) Register(c Codec) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.codecs = append(r.codecs, c)
	sort.SliceStable(r.codecs, func(i, j int) bool {
		return r.codecs[i].Priority() > r.codecs[j].Priority()
	})
}

// Codecs returns the registered codecs in dispatch order.
func (r *Registry) Codecs() []Codec {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Codec(nil), r.codecs...)
}

// Load asks each codec in turn to decode path and returns the first result.
func (r *Registry) Load(path string) (image.Image, Codec, error) {
	for _, c := range r.Codecs() {
		img, err := c.Load(path)
		if errors.Is(err, formats.ErrInvalidExtension) {
			continue
		}
		if err != nil {
			return nil, c, fmt.Errorf("%s: %w", c.Name(), err)
		}
		r.log.Debug("image loaded",
			zap.String("codec", c.Name()),
			zap.String("path", path),
			zap.Stringer("bounds", img.Bounds()))
		return img, c, nil
	}
	return nil, nil, fmt.Errorf("%w: %s", ErrNoCodec, path)
}

// Save asks each codec in turn to encode img to path.
func (r *Registry) Save(img image.Image, path string) (Codec, error) {
	for _, c := range r.Codecs() {
		err := c.Save(img, path)
		if errors.Is(err, formats.ErrInvalidExtension) {
			continue
		}
		if err != nil {
			return c, fmt.Errorf("%s: %w", c.Name(), err)
		}
		r.log.Debug("image saved", zap.String("codec", c.Name()), zap.String("path", path))
		return c, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrNoCodec, path)
}

// NewDefaultRegistry registers the RSC and PAL codecs and returns the RSC
// codec too, for draining tile placements after loads.
func NewDefaultRegistry(log *zap.Logger, opts formats.RSCOptions) (*Registry, *RSCCodec) {
	r := NewRegistry(log)
	rsc := &RSCCodec{Options: opts}
	r.Register(rsc)
	r.Register(PALCodec{})
	return r, rsc
}
