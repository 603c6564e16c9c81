package cli

import (
	"bytes"
	"errors"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"github.com/hgpack/hgpack/pkg/bundler/config"
	hgerrors "github.com/hgpack/hgpack/pkg/errors"
	"github.com/hgpack/hgpack/pkg/serializer"
)

func formatFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"t"},
		Value:   string(serializer.FormatYAML),
		Usage:   "output format (" + strings.Join(serializer.SupportedFormats(), ", ") + ")",
	}
}

// parseOutputFormat extracts and validates the output format from CLI flags.
func parseOutputFormat(cmd *cli.Command) (serializer.Format, error) {
	outFormat := serializer.Format(cmd.String("format"))
	if outFormat.IsUnknown() {
		return "", hgerrors.Configuration("unknown output format: %q, valid formats are: %s",
			outFormat, strings.Join(serializer.SupportedFormats(), ", "))
	}
	return outFormat, nil
}

// fileConfig is the on-disk shape of --config.
type fileConfig struct {
	EntryPoint     string   `yaml:"entryPoint"`
	ForcedIncludes []string `yaml:"forcedIncludes"`
	BundleMode     string   `yaml:"bundleMode"`
	EncodingMode   string   `yaml:"encodingMode"`
	SearchPaths    []string `yaml:"searchPaths"`
	OutputDir      string   `yaml:"outputDir"`
	Interpreter    string   `yaml:"interpreter"`
	Backend        string   `yaml:"backend"`
}

func loadConfigFile(path string) ([]config.Option, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, hgerrors.Wrap(hgerrors.ErrCodeConfiguration, "failed to read config file "+path, err)
	}

	var fc fileConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&fc); err != nil && !errors.Is(err, io.EOF) {
		return nil, hgerrors.Wrap(hgerrors.ErrCodeConfiguration, "invalid config file "+path, err)
	}
	return fc.options()
}

func (fc fileConfig) options() ([]config.Option, error) {
	var opts []config.Option

	if fc.EntryPoint != "" {
		opts = append(opts, config.WithEntryPoint(fc.EntryPoint))
	}
	if fc.ForcedIncludes != nil {
		opts = append(opts, config.WithForcedIncludes(fc.ForcedIncludes...))
	}
	if fc.BundleMode != "" {
		mode, err := config.ParseBundleMode(fc.BundleMode)
		if err != nil {
			return nil, err
		}
		opts = append(opts, config.WithBundleMode(mode))
	}
	if fc.EncodingMode != "" {
		enc, err := config.ParseEncodingMode(fc.EncodingMode)
		if err != nil {
			return nil, err
		}
		opts = append(opts, config.WithEncodingMode(enc))
	}
	if len(fc.SearchPaths) > 0 {
		opts = append(opts, config.WithSearchPaths(fc.SearchPaths...))
	}
	if fc.OutputDir != "" {
		opts = append(opts, config.WithOutputDir(fc.OutputDir))
	}
	if fc.Interpreter != "" {
		opts = append(opts, config.WithInterpreter(fc.Interpreter))
	}
	if fc.Backend != "" {
		opts = append(opts, config.WithBackend(fc.Backend))
	}
	return opts, nil
}
