package main

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/Faultbox/rscatlas/internal/logger"
	"github.com/Faultbox/rscatlas/pkg/formats"
)

func cmdInfo(c *cli.Context) error {
	if c.NArg() < 1 {
		cli.ShowCommandHelpAndExit(c, c.Command.Name, 1)
	}
	t := toolFrom(c)
	opts := formats.RSCOptions{GrowOnOverflow: t.cfg.Decode.GrowOnOverflow}

	for i, path := range c.Args().Slice() {
		rsc, err := formats.ParseRSCFile(path, opts)
		if err != nil {
			return cli.Exit(fmt.Sprintf("%s: %v", path, err), 1)
		}

		if i > 0 {
			fmt.Fprintln(c.App.Writer)
		}
		classes := make([]string, len(rsc.SizeClasses))
		for j, s := range rsc.SizeClasses {
			classes[j] = fmt.Sprintf("%dx%d", s.X, s.Y)
		}

		fmt.Fprintf(c.App.Writer, "File:         %s\n", path)
		fmt.Fprintf(c.App.Writer, "Tiles:        %d\n", len(rsc.Tiles))
		fmt.Fprintf(c.App.Writer, "Pixel area:   %d\n", rsc.PixelArea)
		fmt.Fprintf(c.App.Writer, "Atlas:        %dx%d\n", rsc.Size, rsc.Size)
		fmt.Fprintf(c.App.Writer, "Size classes: %s\n", strings.Join(classes, " "))
	}
	return nil
}

func cmdDecode(c *cli.Context) error {
	if c.NArg() < 1 {
		cli.ShowCommandHelpAndExit(c, c.Command.Name, 1)
	}
	t := toolFrom(c)

	for _, path := range c.Args().Slice() {
		paths, err := t.decodeFile(path, t.cfg.Output.Dir)
		if err != nil {
			return cli.Exit(fmt.Sprintf("%s: %v", path, err), 1)
		}
		for _, p := range paths {
			fmt.Fprintf(c.App.Writer, "Wrote: %s\n", p)
		}
	}
	return nil
}

func cmdBatch(c *cli.Context) error {
	if c.NArg() != 1 {
		cli.ShowCommandHelpAndExit(c, c.Command.Name, 1)
	}
	t := toolFrom(c)
	root := c.Args().First()

	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && formats.IsRSCPath(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return cli.Exit(err, 1)
	}

	bar := progressbar.NewOptions(len(files),
		progressbar.OptionSetDescription("decoding"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish())

	failed := 0
	for _, path := range files {
		// Mirror the source tree under the output directory
		rel, err := filepath.Rel(root, filepath.Dir(path))
		if err != nil {
			rel = "."
		}
		if _, err := t.decodeFile(path, filepath.Join(t.cfg.Output.Dir, rel)); err != nil {
			failed++
			logger.Error("decode failed", zap.String("path", path), zap.Error(err))
		}
		_ = bar.Add(1)
	}
	_ = bar.Finish()
	logger.Info("batch finished",
		zap.String("root", root),
		zap.Int("files", len(files)),
		zap.Int("failed", failed))

	fmt.Fprintf(c.App.Writer, "Decoded %d of %d files\n", len(files)-failed, len(files))
	if failed > 0 {
		return cli.Exit(fmt.Sprintf("%d files failed to decode", failed), 1)
	}
	return nil
}

func cmdTiles(c *cli.Context) error {
	if c.NArg() != 1 {
		cli.ShowCommandHelpAndExit(c, c.Command.Name, 1)
	}
	t := toolFrom(c)
	path := c.Args().First()

	var tiles []formats.RSCTile
	if c.Bool("cached") {
		if t.index == nil {
			return cli.Exit("--cached needs --index or index.path", 1)
		}
		var err error
		if tiles, err = t.index.Tiles(filepath.Clean(path)); err != nil {
			return cli.Exit(fmt.Sprintf("%s: %v", path, err), 1)
		}
	} else {
		rsc, err := formats.ParseRSCFile(path, formats.RSCOptions{GrowOnOverflow: t.cfg.Decode.GrowOnOverflow})
		if err != nil {
			return cli.Exit(fmt.Sprintf("%s: %v", path, err), 1)
		}
		tiles = rsc.Tiles
	}

	fmt.Fprintf(c.App.Writer, "%-6s %6s %6s %6s %6s\n", "TILE", "X", "Y", "W", "H")
	for _, tile := range tiles {
		fmt.Fprintf(c.App.Writer, "%-6d %6d %6d %6d %6d\n",
			tile.Index, tile.Position.X, tile.Position.Y, tile.Size.X, tile.Size.Y)
	}
	return nil
}

func cmdPalette(c *cli.Context) error {
	if c.NArg() != 1 {
		cli.ShowCommandHelpAndExit(c, c.Command.Name, 1)
	}
	t := toolFrom(c)
	path := c.Args().First()

	if !formats.IsPALPath(path) {
		return cli.Exit(fmt.Sprintf("%s: not a .pal file", path), 1)
	}
	paths, err := t.decodeFile(path, t.cfg.Output.Dir)
	if err != nil {
		return cli.Exit(fmt.Sprintf("%s: %v", path, err), 1)
	}
	for _, p := range paths {
		fmt.Fprintf(c.App.Writer, "Wrote: %s\n", p)
	}
	return nil
}

func cmdAtlases(c *cli.Context) error {
	t := toolFrom(c)
	if t.index == nil {
		logger.Warn("atlases requested without an index")
		return cli.Exit("no index configured, use --index or index.path", 1)
	}

	atlases, err := t.index.Atlases()
	if err != nil {
		return cli.Exit(err, 1)
	}
	for _, a := range atlases {
		fmt.Fprintf(c.App.Writer, "%-40s %5dx%-5d %d tiles\n", a.Source, a.Size, a.Size, a.TileCount)
	}
	return nil
}

func cmdConfig(c *cli.Context) error {
	t := toolFrom(c)

	var path string
	var err error
	switch {
	case c.String("save-to") != "":
		path = c.String("save-to")
		err = t.cfg.SaveTo(path)
	case c.Bool("save"):
		path, err = t.cfg.Save()
	default:
		return t.cfg.Write(c.App.Writer)
	}
	if err != nil {
		return cli.Exit(fmt.Sprintf("saving config: %v", err), 1)
	}

	logger.Info("configuration saved", zap.String("path", path))
	fmt.Fprintf(c.App.Writer, "Wrote: %s\n", path)
	return nil
}
