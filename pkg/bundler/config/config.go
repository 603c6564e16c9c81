package config

import (
	"fmt"
	"path/filepath"
	"regexp"
	"runtime"
	"slices"
	"time"

	"github.com/hgpack/hgpack/pkg/defaults"
	hgerrors "github.com/hgpack/hgpack/pkg/errors"
)

// BundleMode controls whether dependencies are merged into one artifact.
type BundleMode string

const (
	// BundleModeSingleFile merges the program and all its dependencies into one file.
	BundleModeSingleFile BundleMode = "single-file"

	// BundleModeMultiFile writes a launcher plus a separate library archive.
	BundleModeMultiFile BundleMode = "multi-file"
)

// ParseBundleMode converts a string to a BundleMode.
func ParseBundleMode(s string) (BundleMode, error) {
	switch BundleMode(s) {
	case BundleModeSingleFile, BundleModeMultiFile:
		return BundleMode(s), nil
	default:
		return "", hgerrors.Configuration("unknown bundle mode %q, valid modes are: %s, %s",
			s, BundleModeSingleFile, BundleModeMultiFile)
	}
}

// SupportedBundleModes returns the bundle mode names.
func SupportedBundleModes() []string {
	return []string{string(BundleModeSingleFile), string(BundleModeMultiFile)}
}

// EncodingMode controls text-encoding assumptions for embedded sources.
type EncodingMode string

const (
	// EncodingModeASCII rejects embedded text containing non-ASCII bytes.
	EncodingModeASCII EncodingMode = "ascii"

	// EncodingModeUnicode accepts UTF-8 text.
	EncodingModeUnicode EncodingMode = "unicode"
)

// ParseEncodingMode converts a string to an EncodingMode.
func ParseEncodingMode(s string) (EncodingMode, error) {
	switch EncodingMode(s) {
	case EncodingModeASCII, EncodingModeUnicode:
		return EncodingMode(s), nil
	default:
		return "", hgerrors.Configuration("unknown encoding mode %q, valid modes are: %s, %s",
			s, EncodingModeASCII, EncodingModeUnicode)
	}
}

// SupportedEncodingModes returns the encoding mode names.
func SupportedEncodingModes() []string {
	return []string{string(EncodingModeASCII), string(EncodingModeUnicode)}
}

var moduleNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)*$`)

// Config is the build configuration. It is immutable after creation;
// slice getters return copies.
type Config struct {
	entryPoint     string
	forcedIncludes []string
	bundleMode     BundleMode
	encodingMode   EncodingMode
	searchPaths    []string
	outputDir      string
	interpreter    string
	platform       string
	backend        string
	version        string
	buildTime      *time.Time
}

// Option is a functional option for configuring Config instances.
type Option func(*Config)

// NewConfig returns a Config populated with the compile-time defaults
// and then modified by opts.
func NewConfig(opts ...Option) *Config {
	c := &Config{
		entryPoint:     defaults.EntryPoint,
		forcedIncludes: defaults.ForcedIncludes(),
		bundleMode:     BundleMode(defaults.BundleMode),
		encodingMode:   EncodingMode(defaults.EncodingMode),
		outputDir:      defaults.OutputDir,
		interpreter:    defaults.Interpreter,
		platform:       runtime.GOOS,
		backend:        defaults.Backend,
		version:        "dev",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Derive returns a copy of c with opts applied. c is left unchanged.
func (c *Config) Derive(opts ...Option) *Config {
	cp := *c
	cp.forcedIncludes = slices.Clone(c.forcedIncludes)
	cp.searchPaths = slices.Clone(c.searchPaths)
	for _, opt := range opts {
		opt(&cp)
	}
	return &cp
}

// WithEntryPoint sets the script treated as the program's main module.
func WithEntryPoint(path string) Option {
	return func(c *Config) {
		c.entryPoint = path
	}
}

// WithForcedIncludes replaces the forced include list.
func WithForcedIncludes(modules ...string) Option {
	return func(c *Config) {
		c.forcedIncludes = slices.Clone(modules)
	}
}

// WithBundleMode sets the bundle mode.
func WithBundleMode(mode BundleMode) Option {
	return func(c *Config) {
		c.bundleMode = mode
	}
}

// WithEncodingMode sets the encoding mode.
func WithEncodingMode(mode EncodingMode) Option {
	return func(c *Config) {
		c.encodingMode = mode
	}
}

// WithSearchPaths sets the roots used to resolve forced includes.
func WithSearchPaths(paths ...string) Option {
	return func(c *Config) {
		c.searchPaths = slices.Clone(paths)
	}
}

// WithOutputDir sets the artifact output directory.
func WithOutputDir(dir string) Option {
	return func(c *Config) {
		c.outputDir = dir
	}
}

// WithInterpreter sets the launcher interpreter line.
func WithInterpreter(interp string) Option {
	return func(c *Config) {
		c.interpreter = interp
	}
}

// WithPlatform sets the target host platform (a GOOS value).
func WithPlatform(platform string) Option {
	return func(c *Config) {
		c.platform = platform
	}
}

// WithBackend selects the packaging backend by name.
func WithBackend(name string) Option {
	return func(c *Config) {
		c.backend = name
	}
}

// WithVersion sets the tool version stamped into artifacts.
func WithVersion(version string) Option {
	return func(c *Config) {
		c.version = version
	}
}

// WithBuildTime stamps a fixed build time into artifacts.
func WithBuildTime(t time.Time) Option {
	return func(c *Config) {
		utc := t.UTC()
		c.buildTime = &utc
	}
}

// EntryPoint returns the entry point path.
func (c *Config) EntryPoint() string { return c.entryPoint }

// ForcedIncludes returns a copy of the forced include list.
func (c *Config) ForcedIncludes() []string { return slices.Clone(c.forcedIncludes) }

// BundleMode returns the bundle mode.
func (c *Config) BundleMode() BundleMode { return c.bundleMode }

// EncodingMode returns the encoding mode.
func (c *Config) EncodingMode() EncodingMode { return c.encodingMode }

// SearchPaths returns the module search roots. When none were set, the
// directory containing the entry point is used.
func (c *Config) SearchPaths() []string {
	if len(c.searchPaths) == 0 {
		return []string{filepath.Dir(c.entryPoint)}
	}
	return slices.Clone(c.searchPaths)
}

// OutputDir returns the artifact output directory.
func (c *Config) OutputDir() string { return c.outputDir }

// Interpreter returns the launcher interpreter line.
func (c *Config) Interpreter() string { return c.interpreter }

// Platform returns the target host platform.
func (c *Config) Platform() string { return c.platform }

// Backend returns the packaging backend name.
func (c *Config) Backend() string { return c.backend }

// Version returns the tool version.
func (c *Config) Version() string { return c.version }

// BuildTime returns the fixed build time, if one was set.
func (c *Config) BuildTime() (time.Time, bool) {
	if c.buildTime == nil {
		return time.Time{}, false
	}
	return *c.buildTime, true
}

// Validate checks the configuration and returns a CONFIGURATION error
// describing the first problem found.
func (c *Config) Validate() error {
	if c.entryPoint == "" {
		return hgerrors.Configuration("entry point must not be empty")
	}
	if _, err := ParseBundleMode(string(c.bundleMode)); err != nil {
		return err
	}
	if _, err := ParseEncodingMode(string(c.encodingMode)); err != nil {
		return err
	}
	if c.outputDir == "" {
		return hgerrors.Configuration("output directory must not be empty")
	}
	if c.backend == "" {
		return hgerrors.Configuration("backend must not be empty")
	}

	seen := make(map[string]struct{}, len(c.forcedIncludes))
	for i, m := range c.forcedIncludes {
		if !moduleNamePattern.MatchString(m) {
			return hgerrors.Configuration("forced include %d: %q is not a valid module name", i, m)
		}
		if _, dup := seen[m]; dup {
			return hgerrors.Configuration("forced include %q listed more than once", m)
		}
		seen[m] = struct{}{}
	}
	return nil
}

// String implements fmt.Stringer for logging.
func (c *Config) String() string {
	return fmt.Sprintf("entry=%s mode=%s encoding=%s includes=%v out=%s",
		c.entryPoint, c.bundleMode, c.encodingMode, c.forcedIncludes, c.outputDir)
}
