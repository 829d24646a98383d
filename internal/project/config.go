package project

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"

	"ossa/internal/lifetime"
	"ossa/internal/trace"
)

// Config is the decoded ossa.toml.
type Config struct {
	Completion CompletionConfig `toml:"completion"`
	Driver     DriverConfig     `toml:"driver"`
	Trace      TraceConfig      `toml:"trace"`
}

// CompletionConfig selects how lifetimes are completed.
type CompletionConfig struct {
	Boundary           string `toml:"boundary"`
	SplitCriticalEdges bool   `toml:"split_critical_edges"`
	Verify             bool   `toml:"verify"`
}

// DriverConfig controls parallelism. Zero jobs means GOMAXPROCS.
type DriverConfig struct {
	Jobs int `toml:"jobs"`
}

// TraceConfig mirrors the --trace flags.
type TraceConfig struct {
	Level  string `toml:"level"`
	Output string `toml:"output"`
	Mode   string `toml:"mode"`
}

// Default returns the configuration used when no ossa.toml is found.
func Default() Config {
	return Config{
		Completion: CompletionConfig{
			Boundary:           lifetime.BoundaryAvailability.String(),
			SplitCriticalEdges: true,
			Verify:             true,
		},
		Trace: TraceConfig{Level: trace.LevelOff.String(), Mode: trace.ModeStream.String()},
	}
}

// Load decodes path on top of the defaults. Unknown keys are errors.
func Load(path string) (Config, error) {
	cfg := Default()
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, fmt.Errorf("%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// LoadFrom finds ossa.toml above startDir and loads it. Without a file the
// defaults are returned with an empty path.
func LoadFrom(startDir string) (Config, string, error) {
	path, ok, err := FindConfig(startDir)
	if err != nil {
		return Config{}, "", err
	}
	if !ok {
		return Default(), "", nil
	}
	cfg, err := Load(path)
	if err != nil {
		return Config{}, path, err
	}
	return cfg, path, nil
}

// Validate checks the enumerated settings.
func (c Config) Validate() error {
	if _, err := lifetime.ParseBoundary(c.Completion.Boundary); err != nil {
		return fmt.Errorf("[completion].boundary: %w", err)
	}
	if c.Driver.Jobs < 0 {
		return fmt.Errorf("[driver].jobs must not be negative, got %d", c.Driver.Jobs)
	}
	if _, err := trace.ParseLevel(c.Trace.Level); err != nil {
		return fmt.Errorf("[trace].level: %w", err)
	}
	if c.Trace.Mode != "" {
		if _, err := trace.ParseMode(c.Trace.Mode); err != nil {
			return fmt.Errorf("[trace].mode: %w", err)
		}
	}
	return nil
}

// Boundary returns the parsed completion boundary.
func (c Config) Boundary() lifetime.Boundary {
	b, err := lifetime.ParseBoundary(c.Completion.Boundary)
	if err != nil {
		return lifetime.BoundaryAvailability
	}
	return b
}
