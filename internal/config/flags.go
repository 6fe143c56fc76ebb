package config

// Flags carries command-line overrides. Zero values leave the loaded
// configuration untouched.
type Flags struct {
	Config  string // Explicit config file path
	Debug   bool
	LogFile string
	Format  string
	Out     string
	Sidecar string
	Grow    bool
	Palette string
	Index   string
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config, f Flags) {
	if f.Debug {
		cfg.Logging.Level = "debug"
	}
	if f.LogFile != "" {
		cfg.Logging.LogFile = f.LogFile
	}
	if f.Format != "" {
		cfg.Output.Format = f.Format
	}
	if f.Out != "" {
		cfg.Output.Dir = f.Out
	}
	if f.Sidecar != "" {
		cfg.Output.Sidecar = f.Sidecar
	}
	if f.Grow {
		cfg.Decode.GrowOnOverflow = true
	}
	if f.Palette != "" {
		cfg.Decode.Palette = f.Palette
	}
	if f.Index != "" {
		cfg.Index.Path = f.Index
	}
}
