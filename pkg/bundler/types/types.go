package types

import (
	"context"

	"github.com/hgpack/hgpack/pkg/bundler/config"
	"github.com/hgpack/hgpack/pkg/bundler/result"
)

const (
	// BackendTypeZipapp bundles a Python entry point and its modules into
	// an executable zip application.
	BackendTypeZipapp BackendType = "zipapp"
)

// BackendType identifies a packaging backend.
type BackendType string

// String returns the backend name.
func (t BackendType) String() string {
	return string(t)
}

// Backend is the packaging backend the bundler delegates to.
// Build writes the artifact files into dir, which is private to the call,
// and returns a description of what it wrote.
type Backend interface {
	Build(ctx context.Context, cfg *config.Config, dir string) (*result.Artifact, error)

	// Supports reports whether the backend can produce artifacts for the
	// given platform (a GOOS value).
	Supports(platform string) bool
}

// SupportedTypes returns the backend types shipped with hgpack. Others may
// be registered at runtime.
func SupportedTypes() []BackendType {
	return []BackendType{
		BackendTypeZipapp,
	}
}

// SupportedTypesAsStrings returns supported backend types as strings.
func SupportedTypesAsStrings() []string {
	types := SupportedTypes()
	strs := make([]string, len(types))
	for i, t := range types {
		strs[i] = string(t)
	}
	return strs
}
