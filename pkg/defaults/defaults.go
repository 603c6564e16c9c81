package defaults

import (
	"os"
	"time"
)

// DefaultAction is the subcommand injected when the program is invoked
// with no arguments.
const DefaultAction = "build-single-exe"

// Build configuration literals.
const (
	// EntryPoint is the script treated as the program's main module.
	EntryPoint = "git-remote-hg"

	// OutputDir is where artifacts are written.
	OutputDir = "dist"

	// Interpreter is written into the launcher line of every artifact.
	Interpreter = "/usr/bin/env python3"

	// BundleMode merges all dependencies into one artifact.
	BundleMode = "single-file"

	// EncodingMode allows non-ASCII text in embedded sources.
	EncodingMode = "unicode"

	// Backend is the packaging backend used when none is named.
	Backend = "zipapp"
)

// ForcedIncludes returns the modules embedded regardless of dependency
// detection. A new slice is returned on every call.
func ForcedIncludes() []string {
	return []string{"mercurial.cext.parsers"}
}

// Build timeouts.
const (
	// BuildTimeout bounds a single backend invocation. Zero lets the
	// backend run to completion.
	BuildTimeout time.Duration = 0

	// PushTimeout bounds publishing an artifact to a registry.
	PushTimeout = 2 * time.Minute
)

// File permissions.
const (
	ArtifactPerm  os.FileMode = 0o755
	LibraryPerm   os.FileMode = 0o644
	DirectoryPerm os.FileMode = 0o755
)

// SourceDateEpochEnv is the reproducible-builds variable that, when set,
// stamps a build timestamp into the artifact manifest.
const SourceDateEpochEnv = "SOURCE_DATE_EPOCH"
