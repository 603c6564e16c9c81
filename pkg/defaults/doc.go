// Package defaults provides the compile-time literals hgpack builds with.
//
// The build configuration is hard-coded: entry point, forced includes,
// bundle mode and encoding mode all have literal defaults here. The CLI
// may override them, but with no flags a build uses exactly these values.
//
// # Usage
//
//	cfg := config.NewConfig(
//	    config.WithEntryPoint(defaults.EntryPoint),
//	    config.WithForcedIncludes(defaults.ForcedIncludes()...),
//	)
//
// Timeouts follow the same pattern as the rest of the codebase: they are
// upper bounds and always respect a parent context deadline.
package defaults
