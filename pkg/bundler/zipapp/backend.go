package zipapp

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/hgpack/hgpack/pkg/bundler/config"
	"github.com/hgpack/hgpack/pkg/bundler/result"
	"github.com/hgpack/hgpack/pkg/defaults"
	hgerrors "github.com/hgpack/hgpack/pkg/errors"
	"github.com/hgpack/hgpack/pkg/manifest"
	"github.com/hgpack/hgpack/pkg/pymod"
)

const (
	// EntryModule is the archive module holding the entry point source.
	EntryModule = "__entry__"

	mainFile  = "__main__.py"
	entryFile = EntryModule + ".py"

	libSuffix     = ".lib.zip"
	windowsSuffix = ".pyz"
	libDigestLen  = 8
	stagedLibrary = ".library.zip"
)

var supportedPlatforms = []string{"darwin", "freebsd", "linux", "windows"}

// Backend builds Python zip applications.
type Backend struct{}

// New returns a zipapp Backend.
func New() *Backend {
	return &Backend{}
}

// Supports reports whether platform can run a zipapp launcher.
func (b *Backend) Supports(platform string) bool {
	return slices.Contains(supportedPlatforms, platform)
}

// ArtifactName returns the executable name for an entry point on platform.
func ArtifactName(entryPoint, platform string) string {
	name := strings.TrimSuffix(filepath.Base(entryPoint), ".py")
	if platform == "windows" {
		name += windowsSuffix
	}
	return name
}

// LibraryName returns the multi-file library name for an executable. The
// name carries a prefix of the library's SHA256 so a launcher always finds
// the library it was built with, even after a newer build published its own.
func LibraryName(executable, sha256Hex string) string {
	return strings.TrimSuffix(executable, windowsSuffix) + "." + sha256Hex[:libDigestLen] + libSuffix
}

func libraryPattern(executable string) string {
	return strings.TrimSuffix(executable, windowsSuffix) + ".*" + libSuffix
}

// Build bundles the entry point and its modules into dir.
func (b *Backend) Build(ctx context.Context, cfg *config.Config, dir string) (*result.Artifact, error) {
	mode := cfg.EncodingMode()

	entryPath := cfg.EntryPoint()
	fi, err := os.Stat(entryPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, hgerrors.Configuration("entry point %q does not exist", entryPath)
		}
		return nil, hgerrors.Wrap(hgerrors.ErrCodeConfiguration, "entry point is not accessible", err)
	}
	if !fi.Mode().IsRegular() {
		return nil, hgerrors.Configuration("entry point %q is not a regular file", entryPath)
	}

	entrySrc, err := os.ReadFile(entryPath)
	if err != nil {
		return nil, hgerrors.Backend("failed to read entry point", err)
	}
	if err := checkText(filepath.Base(entryPath), entrySrc, mode); err != nil {
		return nil, err
	}

	resolver, err := pymod.NewResolver(cfg.SearchPaths(), pymod.WithPlatform(cfg.Platform()))
	if err != nil {
		return nil, hgerrors.Wrap(hgerrors.ErrCodeConfiguration, "invalid search path", err)
	}

	graph, err := pymod.NewFinder(resolver).Find(ctx, entrySrc, cfg.ForcedIncludes())
	if err != nil {
		var nf *pymod.NotFoundError
		switch {
		case errors.As(err, &nf):
			return nil, hgerrors.Wrap(hgerrors.ErrCodeConfiguration, "forced include cannot be resolved", err)
		case ctx.Err() != nil:
			return nil, ctx.Err()
		default:
			return nil, hgerrors.Backend("module discovery failed", err)
		}
	}

	for _, m := range graph.Modules {
		if m.IsText() {
			if err := checkText(m.ArchivePath, m.Data, mode); err != nil {
				return nil, err
			}
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	name := ArtifactName(entryPath, cfg.Platform())
	multi := cfg.BundleMode() == config.BundleModeMultiFile

	man, moduleEntries, exts, err := b.describe(cfg, entrySrc, graph)
	if err != nil {
		return nil, err
	}

	modTime := zipEpoch
	if t, ok := cfg.BuildTime(); ok && t.After(zipEpoch) {
		modTime = t.Truncate(2 * time.Second)
	}

	artifact := &result.Artifact{Manifest: man}

	libName := ""
	if multi {
		lib, err := writeLibrary(dir, name, moduleEntries, modTime)
		if err != nil {
			return nil, err
		}
		libName = lib.Name
		man.Library = libName
		artifact.Files = append(artifact.Files, lib)
	}

	boot, err := renderBootstrap(bootstrapData{
		Version:     cfg.Version(),
		EntryModule: EntryModule,
		Library:     libName,
		Digest:      extensionDigest(exts),
		Extensions:  exts,
	})
	if err != nil {
		return nil, hgerrors.Backend("failed to render bootstrap", err)
	}

	manData, err := man.Marshal()
	if err != nil {
		return nil, hgerrors.Backend("failed to encode manifest", err)
	}

	launcherEntries := []archiveEntry{
		{name: mainFile, data: boot},
		{name: entryFile, data: entrySrc},
		{name: manifest.ArchivePath, data: manData},
	}

	if !multi {
		launcherEntries = append(launcherEntries, moduleEntries...)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	exePath := filepath.Join(dir, name)
	launcher := []byte("#!" + cfg.Interpreter() + "\n")
	size, sum, err := writeArchive(exePath, defaults.ArtifactPerm, launcher, launcherEntries, modTime)
	if err != nil {
		return nil, hgerrors.Backend("failed to write executable", err)
	}
	artifact.Files = append(artifact.Files, result.File{
		Name: name, Path: exePath, Role: result.RoleExecutable, Size: size, SHA256: sum,
	})

	slog.Debug("zipapp built",
		"name", name,
		"modules", len(graph.Modules),
		"extensions", len(exts),
		"mode", cfg.BundleMode(),
	)
	return artifact, nil
}

// writeLibrary writes the module archive of a multi-file build and names
// it after its content.
func writeLibrary(dir, executable string, entries []archiveEntry, modTime time.Time) (result.File, error) {
	tmp := filepath.Join(dir, stagedLibrary)
	size, sum, err := writeArchive(tmp, defaults.LibraryPerm, nil, entries, modTime)
	if err != nil {
		return result.File{}, hgerrors.Backend("failed to write library archive", err)
	}

	name := LibraryName(executable, sum)
	path := filepath.Join(dir, name)
	if err := os.Rename(tmp, path); err != nil {
		return result.File{}, hgerrors.Backend("failed to name library archive", err)
	}
	return result.File{
		Name:       name,
		Path:       path,
		Role:       result.RoleLibrary,
		Size:       size,
		SHA256:     sum,
		Supersedes: libraryPattern(executable),
	}, nil
}

// describe builds the manifest and archive entries for the module graph.
func (b *Backend) describe(cfg *config.Config, entrySrc []byte, graph *pymod.Graph) (*manifest.Manifest, []archiveEntry, []extensionRef, error) {
	mode := cfg.EncodingMode()

	opts := []manifest.Option{manifest.WithVersion(cfg.Version())}
	if t, ok := cfg.BuildTime(); ok {
		opts = append(opts, manifest.WithBuildTime(t))
	}
	man := manifest.New(opts...)

	entrySum := sha256.Sum256(entrySrc)
	man.EntryPoint = manifest.EntryPoint{
		Name:   filepath.Base(cfg.EntryPoint()),
		Path:   entryFile,
		SHA256: hex.EncodeToString(entrySum[:]),
	}
	man.BundleMode = string(cfg.BundleMode())
	man.EncodingMode = string(mode)
	man.Platform = cfg.Platform()
	man.ForcedIncludes = cfg.ForcedIncludes()

	entries := make([]archiveEntry, 0, len(graph.Modules))
	var exts []extensionRef
	for _, m := range graph.Modules {
		path, err := entryName(m.ArchivePath, mode)
		if err != nil {
			return nil, nil, nil, err
		}
		man.Modules = append(man.Modules, manifest.Module{
			Name:   m.Name,
			Kind:   m.Kind,
			Path:   path,
			SHA256: m.SHA256,
			Forced: m.Forced,
		})
		entries = append(entries, archiveEntry{
			name:   path,
			data:   m.Data,
			stored: !m.IsText(),
		})
		if !m.IsText() {
			exts = append(exts, extensionRef{Name: m.Name, Path: path, SHA256: m.SHA256})
		}
	}
	man.Normalize()

	if err := man.Validate(); err != nil {
		return nil, nil, nil, hgerrors.Backend("manifest is inconsistent", err)
	}
	return man, entries, exts, nil
}

// extensionDigest names the extraction directory after the extension
// contents so different builds never share extracted files.
func extensionDigest(exts []extensionRef) string {
	if len(exts) == 0 {
		return ""
	}
	h := sha256.New()
	for _, e := range exts {
		h.Write([]byte(e.Name))
		h.Write([]byte{0})
		h.Write([]byte(e.Path))
		h.Write([]byte{0})
		h.Write([]byte(e.SHA256))
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}
