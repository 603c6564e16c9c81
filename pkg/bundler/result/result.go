package result

import (
	"fmt"
	"time"

	"github.com/hgpack/hgpack/pkg/manifest"
)

// FileRole identifies what a produced file is for.
type FileRole string

const (
	// RoleExecutable is the launcher the user runs.
	RoleExecutable FileRole = "executable"

	// RoleLibrary is an auxiliary archive written in multi-file mode.
	RoleLibrary FileRole = "library"
)

// File is one file produced by a backend.
type File struct {
	// Name is the file name relative to the output directory.
	Name string `json:"name" yaml:"name"`

	// Path is where the file currently lives. Backends set it to the
	// staging location; the bundler rewrites it to the final location.
	Path string `json:"path" yaml:"path"`

	Role   FileRole `json:"role" yaml:"role"`
	Size   int64    `json:"size" yaml:"size"`
	SHA256 string   `json:"sha256" yaml:"sha256"`

	// Supersedes is a filepath.Match pattern for older versions of this
	// file. Matching files other than Name are removed from the output
	// directory once the whole artifact has been published.
	Supersedes string `json:"-" yaml:"-"`
}

// Artifact is what a backend returns from a build.
type Artifact struct {
	// Files are ordered so that the executable comes last; publishing
	// in order means the launcher never appears before its library.
	Files []File `json:"files" yaml:"files"`

	// Manifest declares the embedded content.
	Manifest *manifest.Manifest `json:"manifest" yaml:"manifest"`
}

// Executable returns the executable file of the artifact.
func (a *Artifact) Executable() (File, bool) {
	for _, f := range a.Files {
		if f.Role == RoleExecutable {
			return f, true
		}
	}
	return File{}, false
}

// TotalSize returns the summed size of all files.
func (a *Artifact) TotalSize() int64 {
	var n int64
	for _, f := range a.Files {
		n += f.Size
	}
	return n
}

// Output is the summary of a completed build.
type Output struct {
	BuildID   string        `json:"buildId" yaml:"buildId"`
	Backend   string        `json:"backend" yaml:"backend"`
	OutputDir string        `json:"outputDir" yaml:"outputDir"`
	Artifact  *Artifact     `json:"artifact" yaml:"artifact"`
	Duration  time.Duration `json:"duration" yaml:"duration"`
}

// TotalFiles returns the number of files written.
func (o *Output) TotalFiles() int {
	if o.Artifact == nil {
		return 0
	}
	return len(o.Artifact.Files)
}

// TotalSize returns the number of bytes written.
func (o *Output) TotalSize() int64 {
	if o.Artifact == nil {
		return 0
	}
	return o.Artifact.TotalSize()
}

// Summary returns a one-line human readable summary.
func (o *Output) Summary() string {
	modules := 0
	if o.Artifact != nil && o.Artifact.Manifest != nil {
		modules = len(o.Artifact.Manifest.Modules)
	}
	return fmt.Sprintf("Built %d files (%s) embedding %d modules in %.1fs",
		o.TotalFiles(), formatBytes(o.TotalSize()), modules, o.Duration.Seconds())
}

func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
