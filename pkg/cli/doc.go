// Package cli implements the hgpack command-line interface.
//
// # Overview
//
// hgpack bundles the git-remote-hg helper script and the Mercurial
// modules it needs into one executable artifact. Invoked without
// arguments it runs the default action, build-single-exe.
//
// # Commands
//
// build-single-exe - Build one self-contained executable (default):
//
//	hgpack
//	hgpack build-single-exe --entry ./git-remote-hg --output dist
//
// build - Build honoring --mode (single-file or multi-file):
//
//	hgpack build --mode multi-file
//
// inspect - Print the manifest embedded in an artifact:
//
//	hgpack inspect --format table dist/git-remote-hg
//
// push - Build, then publish the artifact to an OCI registry:
//
//	hgpack push --registry ghcr.io --repository example/git-remote-hg --tag v1.0.0
//
// # Configuration
//
// Build settings are resolved from, in increasing precedence, compiled-in
// defaults, a YAML file given with --config, HGPACK_* environment
// variables and flags:
//
//	entryPoint: git-remote-hg
//	forcedIncludes:
//	  - mercurial.cext.parsers
//	bundleMode: single-file
//	encodingMode: unicode
//	outputDir: dist
//
// SOURCE_DATE_EPOCH, when set, is stamped into the manifest as the build
// time. Otherwise artifacts carry no timestamp and rebuilds are
// byte-identical.
//
// # Exit Codes
//
//	0  success
//	1  unexpected failure
//	2  interrupted
//	3  configuration error (bad entry point, include list or flags)
//	4  packaging backend failure
//	5  unsupported host platform
//
// # Version Information
//
// Version information is embedded at build time:
//
//	go build -ldflags="-X 'github.com/hgpack/hgpack/pkg/cli.version=1.0.0'"
package cli
