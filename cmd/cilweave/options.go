package main

import (
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"

	"github.com/wippyai/cilweave/config"
	"github.com/wippyai/cilweave/image"
	"github.com/wippyai/cilweave/metadata"
	"github.com/wippyai/cilweave/weaver"
)

type globalOptions struct {
	searchDirs []string
	configDir  string
	verbose    bool
	noColor    bool

	cfg    *config.Config
	logger *zap.Logger
}

// setup loads the configuration for the image named by the first argument,
// then configures logging and color. Flags override the file.
func (o *globalOptions) setup(cmd *cobra.Command, args []string) error {
	cfg, err := o.loadConfig(args)
	if err != nil {
		return err
	}
	o.cfg = cfg

	if o.logger, err = newLogger(o.verbose || cfg.Output.Verbose); err != nil {
		return err
	}
	weaver.SetLogger(o.logger)
	image.SetLogger(o.logger)

	color.NoColor = !o.useColor(cmd)
	return nil
}

func (o *globalOptions) teardown() {
	if o.logger != nil {
		_ = o.logger.Sync()
	}
}

func (o *globalOptions) loadConfig(args []string) (*config.Config, error) {
	if o.configDir != "" {
		return config.Load(o.configDir)
	}
	start := "."
	if len(args) > 0 {
		start = filepath.Dir(args[0])
	}
	cfg, err := config.FindAndLoad(start)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		cfg = config.Default()
	}
	return cfg, nil
}

func (o *globalOptions) useColor(cmd *cobra.Command) bool {
	if o.noColor {
		return false
	}
	switch o.cfg.Output.Color {
	case "always":
		return true
	case "never":
		return false
	}
	f, ok := cmd.OutOrStdout().(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// loadImage loads path with the search directories from flags and config.
func (o *globalOptions) loadImage(path string) (*metadata.Module, error) {
	dirs := append([]string(nil), o.searchDirs...)
	dirs = append(dirs, o.cfg.SearchDirPaths()...)
	return image.Load(path, dirs...)
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg.Build()
}
