// Package config handles rsctool configuration loading and management.
package config

// Config holds all tool settings.
type Config struct {
	Output  OutputConfig  `yaml:"output"`
	Decode  DecodeConfig  `yaml:"decode"`
	Index   IndexConfig   `yaml:"index"`
	Logging LoggingConfig `yaml:"logging"`
}

// OutputConfig holds where and how atlases are written.
type OutputConfig struct {
	Format  string `yaml:"format"`  // png, bmp or tiff
	Dir     string `yaml:"dir"`     // Output directory
	Sidecar string `yaml:"sidecar"` // Tile manifest: json, yaml or none
}

// DecodeConfig holds decoder settings.
type DecodeConfig struct {
	GrowOnOverflow bool   `yaml:"grow_on_overflow"`
	Palette        string `yaml:"palette"` // Optional .pal applied to atlases
}

// IndexConfig holds the placement catalogue location.
type IndexConfig struct {
	Path string `yaml:"path"` // SQLite file; empty disables cataloguing
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Output: OutputConfig{
			Format:  "png",
			Dir:     ".",
			Sidecar: "json",
		},
		Decode: DecodeConfig{
			GrowOnOverflow: false,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}
