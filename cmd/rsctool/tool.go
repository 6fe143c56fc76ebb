package main

import (
	"fmt"
	"image"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/Faultbox/rscatlas/internal/config"
	"github.com/Faultbox/rscatlas/internal/export"
	"github.com/Faultbox/rscatlas/internal/index"
	"github.com/Faultbox/rscatlas/internal/logger"
	"github.com/Faultbox/rscatlas/pkg/formats"
	"github.com/Faultbox/rscatlas/pkg/imagecodec"
)

// tool is the state shared by every command of one invocation.
type tool struct {
	cfg      *config.Config
	format   export.Format
	sidecar  export.Sidecar
	palette  *formats.PAL
	registry *imagecodec.Registry
	rsc      *imagecodec.RSCCodec
	index    *index.Store
	log      *zap.Logger
}

func setup(c *cli.Context) error {
	cfg, err := config.Load(config.Flags{
		Config:  c.String("config"),
		Debug:   c.Bool("debug"),
		LogFile: c.String("log-file"),
		Format:  c.String("format"),
		Out:     c.String("out"),
		Sidecar: c.String("sidecar"),
		Grow:    c.Bool("grow"),
		Palette: c.String("palette"),
		Index:   c.String("index"),
	})
	if err != nil {
		return err
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}

	logger.Debug("configuration loaded",
		zap.String("format", cfg.Output.Format),
		zap.String("out", cfg.Output.Dir),
		zap.String("sidecar", cfg.Output.Sidecar),
		zap.Bool("grow", cfg.Decode.GrowOnOverflow),
		zap.String("index", cfg.Index.Path))

	t := &tool{cfg: cfg, log: logger.Log}

	if t.format, err = export.ParseFormat(cfg.Output.Format); err != nil {
		return err
	}
	if t.sidecar, err = export.ParseSidecar(cfg.Output.Sidecar); err != nil {
		return err
	}

	if cfg.Decode.Palette != "" {
		if t.palette, err = formats.ParsePALFile(cfg.Decode.Palette); err != nil {
			return fmt.Errorf("loading palette: %w", err)
		}
	}

	if cfg.Index.Path != "" {
		if t.index, err = index.Open(cfg.Index.Path); err != nil {
			return fmt.Errorf("opening index: %w", err)
		}
	}

	t.registry, t.rsc = imagecodec.NewDefaultRegistry(
		t.log.Named("codec"),
		formats.RSCOptions{GrowOnOverflow: cfg.Decode.GrowOnOverflow},
	)

	c.App.Metadata = map[string]interface{}{"tool": t}
	return nil
}

func teardown(c *cli.Context) error {
	defer logger.Sync()

	if t, ok := c.App.Metadata["tool"].(*tool); ok && t.index != nil {
		return t.index.Close()
	}
	return nil
}

func toolFrom(c *cli.Context) *tool {
	return c.App.Metadata["tool"].(*tool)
}

// decodeFile loads path through the codec registry and writes the atlas and
// its manifest into outDir.
func (t *tool) decodeFile(path, outDir string) ([]string, error) {
	img, codec, err := t.registry.Load(path)
	if err != nil {
		return nil, err
	}

	// Drained per file so placements never mix between containers
	tiles, _ := t.rsc.RetrieveTiles()
	size := img.Bounds().Dx()

	if g, ok := img.(*image.Gray); ok && t.palette != nil {
		img = t.palette.Apply(g)
	}

	name := filepath.Base(path)
	base := strings.TrimSuffix(name, filepath.Ext(name))
	m := export.NewManifest(name, size, tiles)

	sidecar := t.sidecar
	if codec.Name() != "rsc" {
		sidecar = export.SidecarNone
	}

	paths, err := export.WriteAtlas(outDir, base, img, m, t.format, sidecar)
	if err != nil {
		return nil, err
	}

	if t.index != nil && codec.Name() == "rsc" {
		if err := t.index.Put(filepath.Clean(path), size, tiles); err != nil {
			return paths, fmt.Errorf("recording placements: %w", err)
		}
	}

	t.log.Info("atlas written",
		zap.String("source", path),
		zap.String("codec", codec.Name()),
		zap.Int("size", size),
		zap.Int("tiles", len(tiles)),
		zap.Strings("outputs", paths))
	return paths, nil
}
