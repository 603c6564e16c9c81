package bundler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hgpack/hgpack/pkg/bundler/config"
	"github.com/hgpack/hgpack/pkg/bundler/result"
	"github.com/hgpack/hgpack/pkg/bundler/types"
	"github.com/hgpack/hgpack/pkg/defaults"
	hgerrors "github.com/hgpack/hgpack/pkg/errors"
)

// DefaultBundler validates a configuration, runs the selected backend in
// a private staging directory and atomically publishes the result.
type DefaultBundler struct {
	registry *Registry
	timeout  time.Duration
	extra    []registration
}

type registration struct {
	t       types.BackendType
	backend types.Backend
}

// Option is a functional option for configuring DefaultBundler instances.
type Option func(*DefaultBundler)

// WithRegistry sets the backend registry. A nil registry keeps the
// built-in one.
func WithRegistry(r *Registry) Option {
	return func(b *DefaultBundler) {
		b.registry = r
	}
}

// WithBackend registers a backend under t, replacing any built-in one.
// Registration happens after all other options, so it also applies to a
// registry given with WithRegistry.
func WithBackend(t types.BackendType, backend types.Backend) Option {
	return func(b *DefaultBundler) {
		b.extra = append(b.extra, registration{t: t, backend: backend})
	}
}

// WithTimeout bounds a single backend invocation. Zero, the default,
// disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(b *DefaultBundler) {
		b.timeout = d
	}
}

// New creates a DefaultBundler with the built-in backends.
func New(opts ...Option) *DefaultBundler {
	b := &DefaultBundler{
		registry: NewRegistry(),
		timeout:  defaults.BuildTimeout,
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.registry == nil {
		b.registry = NewRegistry()
	}
	for _, r := range b.extra {
		b.registry.Register(r.t, r.backend)
	}
	b.extra = nil
	return b
}

// Make builds the artifact described by cfg into cfg.OutputDir().
//
// Nothing is written to the output directory until the backend has
// finished. Each produced file is then staged next to its final path and
// renamed into place, executable last, so a failure at any point leaves
// either no artifact or the previous one.
func (b *DefaultBundler) Make(ctx context.Context, cfg *config.Config) (out *result.Output, err error) {
	start := time.Now()
	buildID := uuid.NewString()
	log := slog.With("build_id", buildID)

	defer func() {
		buildDuration.Observe(time.Since(start).Seconds())
		buildTotal.WithLabelValues(buildStatus(err)).Inc()
	}()

	if cfg == nil {
		cfg = config.NewConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	bt := types.BackendType(cfg.Backend())
	backend, ok := b.registry.Get(bt)
	if !ok {
		return nil, hgerrors.Configuration("unknown backend %q, registered backends are: %s",
			bt, joinTypes(b.registry.List()))
	}
	if !backend.Supports(cfg.Platform()) {
		return nil, hgerrors.Environment("backend %s does not support platform %q", bt, cfg.Platform())
	}

	log.Info("building artifact",
		slog.String("entry_point", cfg.EntryPoint()),
		slog.String("mode", string(cfg.BundleMode())),
		slog.String("encoding", string(cfg.EncodingMode())),
		slog.Any("forced_includes", cfg.ForcedIncludes()),
		slog.String("backend", bt.String()),
	)

	if b.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}

	staging, err := os.MkdirTemp("", "hgpack-build-*")
	if err != nil {
		return nil, hgerrors.Backend("failed to create staging directory", err)
	}
	defer os.RemoveAll(staging)

	artifact, err := backend.Build(ctx, cfg, staging)
	if err != nil {
		log.Error("backend failed", "error", err)
		return nil, classifyBackendError(ctx, err)
	}
	if len(artifact.Files) == 0 {
		return nil, hgerrors.Backend("backend produced no files", nil)
	}

	if err := publish(ctx, cfg.OutputDir(), artifact); err != nil {
		return nil, classifyBackendError(ctx, err)
	}

	out = &result.Output{
		BuildID:   buildID,
		Backend:   bt.String(),
		OutputDir: cfg.OutputDir(),
		Artifact:  artifact,
		Duration:  time.Since(start),
	}

	artifactSize.Set(float64(out.TotalSize()))
	if artifact.Manifest != nil {
		artifactModules.Set(float64(len(artifact.Manifest.Modules)))
	}

	log.Info("artifact published",
		"files", out.TotalFiles(),
		"size_bytes", out.TotalSize(),
		"duration_sec", out.Duration.Seconds(),
		"output_dir", out.OutputDir,
	)
	return out, nil
}

// publish moves every artifact file from staging into dir. All files are
// staged as temp files first; renames happen only once every copy
// succeeded. A failed rename removes the files this run created, so files
// from a previous build are never replaced unless the whole artifact
// lands. File paths in artifact are rewritten to their final location.
func publish(ctx context.Context, dir string, artifact *result.Artifact) (err error) {
	if err := os.MkdirAll(dir, defaults.DirectoryPerm); err != nil {
		return hgerrors.Backend("failed to create output directory", err)
	}

	staged := make([]string, 0, len(artifact.Files))
	var created []string
	defer func() {
		if err != nil {
			for _, tmp := range staged {
				if tmp != "" {
					_ = os.Remove(tmp)
				}
			}
			for _, path := range created {
				_ = os.Remove(path)
			}
		}
	}()

	for _, f := range artifact.Files {
		if err := ctx.Err(); err != nil {
			return err
		}
		tmp, err := stageFrom(f.Path, dir, f.Name)
		if err != nil {
			return hgerrors.Backend("failed to stage "+f.Name, err)
		}
		staged = append(staged, tmp)
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	for i := range artifact.Files {
		final := filepath.Join(dir, artifact.Files[i].Name)
		_, statErr := os.Lstat(final)
		existed := statErr == nil
		if err := commitFile(staged[i], final); err != nil {
			return hgerrors.Backend("failed to publish "+artifact.Files[i].Name, err)
		}
		staged[i] = ""
		if !existed {
			created = append(created, final)
		}
		artifact.Files[i].Path = final
	}
	syncDir(dir)

	for _, f := range artifact.Files {
		removeSuperseded(dir, f)
	}
	return nil
}

// removeSuperseded deletes older versions of f left by previous builds.
func removeSuperseded(dir string, f result.File) {
	if f.Supersedes == "" {
		return
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, e := range entries {
		if e.IsDir() || e.Name() == f.Name {
			continue
		}
		if ok, _ := filepath.Match(f.Supersedes, e.Name()); !ok {
			continue
		}
		if err := os.Remove(filepath.Join(dir, e.Name())); err != nil {
			slog.Warn("failed to remove superseded file", "name", e.Name(), "error", err)
			continue
		}
		slog.Debug("removed superseded file", "name", e.Name())
	}
}

func joinTypes(ts []types.BackendType) string {
	names := make([]string, 0, len(ts))
	for _, t := range ts {
		names = append(names, t.String())
	}
	return strings.Join(names, ", ")
}

func stageFrom(src, dir, name string) (string, error) {
	in, err := os.Open(src)
	if err != nil {
		return "", err
	}
	defer in.Close()

	fi, err := in.Stat()
	if err != nil {
		return "", err
	}
	return stageFile(dir, name, in, fi.Mode().Perm())
}

// classifyBackendError keeps structured errors and cancellation as they
// are and wraps anything else as a BACKEND error.
func classifyBackendError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
		return fmt.Errorf("%w: %w", ctxErr, err)
	}
	var se *hgerrors.StructuredError
	if errors.As(err, &se) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return hgerrors.Backend("packaging backend failed", err)
}

func buildStatus(err error) string {
	if err == nil {
		return "success"
	}
	switch hgerrors.ExitCode(err) {
	case hgerrors.ExitCanceled:
		return "canceled"
	case hgerrors.ExitConfiguration:
		return "configuration"
	case hgerrors.ExitBackend:
		return "backend"
	case hgerrors.ExitEnvironment:
		return "environment"
	default:
		return "error"
	}
}
