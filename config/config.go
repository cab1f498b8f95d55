// Package config handles cilweave.toml project configuration.
package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/wippyai/cilweave/errors"
	"github.com/wippyai/cilweave/weaver"
)

// FileName is the name of the configuration file.
const FileName = "cilweave.toml"

// Config represents a cilweave.toml configuration.
type Config struct {
	Weave  Weave  `toml:"weave"`
	Output Output `toml:"output"`
	Search Search `toml:"search"`

	// Dir is the directory containing the cilweave.toml file (set at load time).
	Dir string `toml:"-"`
}

// Weave configures wrapper synthesis.
type Weave struct {
	Rethrow     bool   `toml:"rethrow"`
	CloneSuffix string `toml:"clone-suffix"`
}

// Output configures terminal output. Color is "auto", "always" or "never".
type Output struct {
	Color   string `toml:"color"`
	Verbose bool   `toml:"verbose"`
}

// Search lists extra directories for referenced modules.
type Search struct {
	Dirs []string `toml:"dirs"`
}

// Default returns the configuration used when no file is found.
func Default() *Config {
	return &Config{
		Weave:  Weave{CloneSuffix: weaver.DefaultCloneSuffix},
		Output: Output{Color: "auto"},
	}
}

// Load parses the cilweave.toml file in dir.
func Load(dir string) (*Config, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindIO, err, "cannot read "+path)
	}

	c := Default()
	if err := toml.Unmarshal(data, c); err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidData, err, "parse error in "+path)
	}

	switch c.Output.Color {
	case "auto", "always", "never":
	default:
		return nil, errors.New(errors.PhaseConfig, errors.KindInvalidData).
			Value(c.Output.Color).
			Detail("%s: output.color must be auto, always or never", path).Build()
	}

	c.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindIO, err, "cannot resolve path "+dir)
	}
	return c, nil
}

// FindAndLoad walks up from startDir to find a cilweave.toml file and loads
// it. It returns nil when there is none.
func FindAndLoad(startDir string) (*Config, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindIO, err, "cannot resolve path "+startDir)
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, FileName)); err == nil {
			return Load(dir)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, nil
		}
		dir = parent
	}
}

// SearchDirPaths returns the search directories resolved against Dir.
func (c *Config) SearchDirPaths() []string {
	var paths []string
	for _, d := range c.Search.Dirs {
		if filepath.IsAbs(d) || c.Dir == "" {
			paths = append(paths, d)
			continue
		}
		paths = append(paths, filepath.Join(c.Dir, d))
	}
	return paths
}

// WeaverOptions returns the weaver options the file selects.
func (c *Config) WeaverOptions() weaver.Options {
	return weaver.Options{
		RethrowAfterExceptionHook: c.Weave.Rethrow,
		CloneSuffix:               c.Weave.CloneSuffix,
	}
}
