// Package types defines the packaging backend contract.
//
// A backend turns a validated config.Config into artifact files inside a
// private directory:
//
//	type Backend interface {
//	    Build(ctx context.Context, cfg *config.Config, dir string) (*result.Artifact, error)
//	    Supports(platform string) bool
//	}
//
// Backends are identified by BackendType, the name they are registered
// under in the bundler's registry. SupportedTypes lists the shipped ones.
//
// The bundler owns publishing: a backend never writes to the final output
// directory, so a failed or interrupted build cannot damage a previous
// artifact.
package types
