// Package manifest declares what an artifact embeds.
//
// Every artifact carries a YAML manifest at ArchivePath inside its
// archive. The manifest lists each embedded module with its archive path
// and SHA256 digest. It carries no timestamp unless one is supplied, so
// identical inputs produce identical manifests.
package manifest

import (
	"bytes"
	"fmt"
	"slices"
	"sort"
	"time"

	"github.com/hgpack/hgpack/pkg/header"
	"gopkg.in/yaml.v3"
)

const (
	// Kind is the manifest resource kind.
	Kind = "BundleManifest"

	// ArchivePath is where the manifest lives inside an artifact archive.
	ArchivePath = "__hgpack__/manifest.yaml"
)

// ModuleKind describes how a module is stored.
type ModuleKind string

const (
	ModuleKindSource    ModuleKind = "source"
	ModuleKindPackage   ModuleKind = "package"
	ModuleKindExtension ModuleKind = "extension"
)

// Module is one embedded module.
type Module struct {
	Name   string     `json:"name" yaml:"name"`
	Kind   ModuleKind `json:"kind" yaml:"kind"`
	Path   string     `json:"path" yaml:"path"`
	SHA256 string     `json:"sha256" yaml:"sha256"`
	Forced bool       `json:"forced,omitempty" yaml:"forced,omitempty"`
}

// EntryPoint identifies the script run as __main__.
type EntryPoint struct {
	Name   string `json:"name" yaml:"name"`
	Path   string `json:"path" yaml:"path"`
	SHA256 string `json:"sha256" yaml:"sha256"`
}

// Manifest is the declared content of an artifact.
type Manifest struct {
	header.Header `json:",inline" yaml:",inline"`

	EntryPoint     EntryPoint `json:"entryPoint" yaml:"entryPoint"`
	BundleMode     string     `json:"bundleMode" yaml:"bundleMode"`
	EncodingMode   string     `json:"encodingMode" yaml:"encodingMode"`
	Platform       string     `json:"platform" yaml:"platform"`
	Library        string     `json:"library,omitempty" yaml:"library,omitempty"`
	ForcedIncludes []string   `json:"forcedIncludes" yaml:"forcedIncludes"`
	Modules        []Module   `json:"modules" yaml:"modules"`
}

// Option configures a Manifest.
type Option func(*Manifest)

// WithVersion records the tool version.
func WithVersion(v string) Option {
	return func(m *Manifest) {
		m.Metadata["tool-version"] = v
	}
}

// WithBuildTime records a build timestamp.
func WithBuildTime(t time.Time) Option {
	return func(m *Manifest) {
		header.WithBuildTime(t)(&m.Header)
	}
}

// New returns a Manifest with its header set.
func New(opts ...Option) *Manifest {
	m := &Manifest{Header: *header.New()}
	m.Set(Kind)
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Normalize sorts modules by name and forced includes lexically so the
// encoded form does not depend on discovery order.
func (m *Manifest) Normalize() {
	sort.Slice(m.Modules, func(i, j int) bool { return m.Modules[i].Name < m.Modules[j].Name })
	m.ForcedIncludes = slices.Clone(m.ForcedIncludes)
	sort.Strings(m.ForcedIncludes)
}

// ModuleNames returns the sorted embedded module names.
func (m *Manifest) ModuleNames() []string {
	names := make([]string, 0, len(m.Modules))
	for _, mod := range m.Modules {
		names = append(names, mod.Name)
	}
	sort.Strings(names)
	return names
}

// HasModule reports whether name is embedded.
func (m *Manifest) HasModule(name string) bool {
	for _, mod := range m.Modules {
		if mod.Name == name {
			return true
		}
	}
	return false
}

// MissingIncludes returns forced includes that are not embedded.
func (m *Manifest) MissingIncludes() []string {
	var missing []string
	for _, inc := range m.ForcedIncludes {
		if !m.HasModule(inc) {
			missing = append(missing, inc)
		}
	}
	return missing
}

// Validate checks the manifest header and that every forced include is embedded.
func (m *Manifest) Validate() error {
	if m.Kind != Kind {
		return fmt.Errorf("unexpected manifest kind %q, want %q", m.Kind, Kind)
	}
	if m.EntryPoint.Name == "" {
		return fmt.Errorf("manifest has no entry point")
	}
	if missing := m.MissingIncludes(); len(missing) > 0 {
		return fmt.Errorf("manifest does not embed forced includes %v", missing)
	}
	return nil
}

// Marshal encodes the manifest as YAML.
func (m *Manifest) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(m); err != nil {
		return nil, fmt.Errorf("failed to encode manifest: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode manifest: %w", err)
	}
	return buf.Bytes(), nil
}

// Parse decodes a YAML manifest.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to decode manifest: %w", err)
	}
	return &m, nil
}
