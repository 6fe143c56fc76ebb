// rsctool is a CLI utility for unpacking Zed RSC sprite containers into
// texture atlases.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "rsctool",
		Usage:   "Zed RSC sprite container utility",
		Version: "0.1.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				EnvVars: []string{"RSCTOOL_CONFIG"},
				Usage:   "path to config `FILE`",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "enable debug logging",
			},
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "also write logs to `FILE`",
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "atlas image format: png, bmp or tiff",
			},
			&cli.StringFlag{
				Name:    "out",
				Aliases: []string{"o"},
				Usage:   "output `DIR`",
			},
			&cli.StringFlag{
				Name:  "sidecar",
				Usage: "tile manifest format: json, yaml or none",
			},
			&cli.BoolFlag{
				Name:  "grow",
				Usage: "enlarge the atlas when the minimal one cannot hold every tile",
			},
			&cli.StringFlag{
				Name:  "palette",
				Usage: "colour atlases with the .pal `FILE`",
			},
			&cli.StringFlag{
				Name:  "index",
				Usage: "record tile placements in the SQLite `FILE`",
			},
		},
		Before: setup,
		After:  teardown,
		Commands: []*cli.Command{
			{
				Name:      "info",
				Usage:     "Show container information",
				ArgsUsage: "FILE.RSC...",
				Action:    cmdInfo,
			},
			{
				Name:      "decode",
				Aliases:   []string{"x"},
				Usage:     "Decode containers into atlas images and tile manifests",
				ArgsUsage: "FILE...",
				Action:    cmdDecode,
			},
			{
				Name:      "batch",
				Usage:     "Decode every .RSC file below a directory",
				ArgsUsage: "DIR",
				Action:    cmdBatch,
			},
			{
				Name:      "tiles",
				Usage:     "Print tile placements",
				ArgsUsage: "FILE.RSC",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "cached",
						Usage: "read placements from the index instead of decoding",
					},
				},
				Action: cmdTiles,
			},
			{
				Name:      "palette",
				Usage:     "Export a .pal palette as an image strip",
				ArgsUsage: "FILE.pal",
				Action:    cmdPalette,
			},
			{
				Name:   "atlases",
				Usage:  "List containers recorded in the index",
				Action: cmdAtlases,
			},
			{
				Name:  "config",
				Usage: "Print the effective configuration or store it",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "save",
						Usage: "write it as the per-user config file",
					},
					&cli.StringFlag{
						Name:  "save-to",
						Usage: "write it to `FILE`",
					},
				},
				Action: cmdConfig,
			},
		},
	}
}
