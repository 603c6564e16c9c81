// Package config provides the immutable build configuration.
//
// A Config is constructed once at process start and consumed once by the
// bundler. It follows the functional options pattern:
//
//	cfg := config.NewConfig(
//	    config.WithEntryPoint("git-remote-hg"),
//	    config.WithForcedIncludes("mercurial.cext.parsers"),
//	    config.WithBundleMode(config.BundleModeSingleFile),
//	)
//	if err := cfg.Validate(); err != nil {
//	    return err
//	}
//
// # Default Values
//
// With no options NewConfig returns the literal build configuration:
//   - EntryPoint: "git-remote-hg"
//   - ForcedIncludes: ["mercurial.cext.parsers"]
//   - BundleMode: single-file
//   - EncodingMode: unicode
//   - OutputDir: "dist"
//
// # Immutability
//
// There are no setters. Derive returns a modified copy, which is how the
// build-single-exe action forces single-file mode without touching the
// caller's configuration. Slice getters return copies.
package config
