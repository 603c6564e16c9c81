package bundler

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hgpack/hgpack/pkg/bundler/config"
	"github.com/hgpack/hgpack/pkg/bundler/result"
	"github.com/hgpack/hgpack/pkg/bundler/types"
	"github.com/hgpack/hgpack/pkg/bundler/zipapp"
	hgerrors "github.com/hgpack/hgpack/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	build func(ctx context.Context, cfg *config.Config, dir string) (*result.Artifact, error)
}

func (f *fakeBackend) Build(ctx context.Context, cfg *config.Config, dir string) (*result.Artifact, error) {
	return f.build(ctx, cfg, dir)
}

func (f *fakeBackend) Supports(platform string) bool {
	return platform != "plan9"
}

func newProject(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"git-remote-hg":                                          "from mercurial import util\n",
		"mercurial/__init__.py":                                  "",
		"mercurial/util.py":                                      "import os\n",
		"mercurial/cext/__init__.py":                             "",
		"mercurial/cext/parsers.cpython-311-x86_64-linux-gnu.so": "native",
	}
	for name, content := range files {
		p := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
	return root
}

func projectConfig(root, out string, opts ...config.Option) *config.Config {
	base := []config.Option{
		config.WithEntryPoint(filepath.Join(root, "git-remote-hg")),
		config.WithOutputDir(out),
		config.WithPlatform("linux"),
	}
	return config.NewConfig(append(base, opts...)...)
}

func listDir(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestMake_SingleFile(t *testing.T) {
	out := filepath.Join(t.TempDir(), "dist")
	cfg := projectConfig(newProject(t), out)

	res, err := New().Make(context.Background(), cfg)
	require.NoError(t, err)

	assert.Equal(t, []string{"git-remote-hg"}, listDir(t, out))
	assert.Equal(t, 1, res.TotalFiles())
	assert.NotEmpty(t, res.BuildID)
	assert.Equal(t, "zipapp", res.Backend)

	exe, ok := res.Artifact.Executable()
	require.True(t, ok)
	assert.Equal(t, filepath.Join(out, "git-remote-hg"), exe.Path)

	m, err := zipapp.ReadManifest(exe.Path)
	require.NoError(t, err)
	for _, inc := range cfg.ForcedIncludes() {
		assert.True(t, m.HasModule(inc), inc)
	}
}

func TestMake_MultiFile(t *testing.T) {
	out := t.TempDir()
	cfg := projectConfig(newProject(t), out, config.WithBundleMode(config.BundleModeMultiFile))

	res, err := New().Make(context.Background(), cfg)
	require.NoError(t, err)
	require.Equal(t, 2, res.TotalFiles())

	lib := res.Artifact.Files[0]
	assert.Regexp(t, `^git-remote-hg\.[0-9a-f]{8}\.lib\.zip$`, lib.Name)
	assert.ElementsMatch(t, []string{"git-remote-hg", lib.Name}, listDir(t, out))
}

func TestMake_MultiFileRebuildRemovesStaleLibrary(t *testing.T) {
	root := newProject(t)
	out := t.TempDir()
	cfg := projectConfig(root, out, config.WithBundleMode(config.BundleModeMultiFile))

	first, err := New().Make(context.Background(), cfg)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(root, "mercurial", "util.py"), []byte("import sys\n"), 0o644))
	second, err := New().Make(context.Background(), cfg)
	require.NoError(t, err)

	require.NotEqual(t, first.Artifact.Files[0].Name, second.Artifact.Files[0].Name)
	assert.ElementsMatch(t, []string{"git-remote-hg", second.Artifact.Files[0].Name}, listDir(t, out))
}

func TestMake_MultiFileFailedExecutableCommitKeepsPriorLibrary(t *testing.T) {
	out := t.TempDir()
	priorLib := filepath.Join(out, "git-remote-hg.deadbeef.lib.zip")
	require.NoError(t, os.WriteFile(priorLib, []byte("prior library"), 0o644))

	// a non-empty directory at the executable path makes the final rename fail
	blocker := filepath.Join(out, "git-remote-hg")
	require.NoError(t, os.MkdirAll(blocker, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(blocker, "keep"), []byte("x"), 0o644))

	cfg := projectConfig(newProject(t), out, config.WithBundleMode(config.BundleModeMultiFile))
	_, err := New().Make(context.Background(), cfg)
	require.Error(t, err)
	assert.True(t, hgerrors.IsCode(err, hgerrors.ErrCodeBackend))

	data, err := os.ReadFile(priorLib)
	require.NoError(t, err)
	assert.Equal(t, "prior library", string(data))
	assert.ElementsMatch(t, []string{"git-remote-hg", "git-remote-hg.deadbeef.lib.zip"}, listDir(t, out),
		"the new library and temp files must be removed")
}

func TestMake_MissingEntryPoint(t *testing.T) {
	out := filepath.Join(t.TempDir(), "dist")
	cfg := config.NewConfig(
		config.WithEntryPoint(filepath.Join(t.TempDir(), "missing")),
		config.WithOutputDir(out),
		config.WithPlatform("linux"),
	)

	_, err := New().Make(context.Background(), cfg)
	require.Error(t, err)
	assert.True(t, hgerrors.IsCode(err, hgerrors.ErrCodeConfiguration))
	assert.NotEqual(t, 0, hgerrors.ExitCode(err))

	_, statErr := os.Stat(out)
	assert.True(t, os.IsNotExist(statErr), "output directory must not be created")
}

func TestMake_InvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		opts []config.Option
	}{
		{"bad include", []config.Option{config.WithForcedIncludes("not a module")}},
		{"unknown backend", []config.Option{config.WithBackend("py2exe")}},
		{"bad mode", []config.Option{config.WithBundleMode("onefile")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := projectConfig(newProject(t), t.TempDir(), tt.opts...)
			_, err := New().Make(context.Background(), cfg)
			assert.True(t, hgerrors.IsCode(err, hgerrors.ErrCodeConfiguration), "got %v", err)
		})
	}
}

func TestMake_UnsupportedPlatform(t *testing.T) {
	cfg := projectConfig(newProject(t), t.TempDir(), config.WithPlatform("plan9"))

	_, err := New().Make(context.Background(), cfg)
	require.Error(t, err)
	assert.True(t, hgerrors.IsCode(err, hgerrors.ErrCodeEnvironment))
	assert.Equal(t, hgerrors.ExitEnvironment, hgerrors.ExitCode(err))
}

func TestMake_Deterministic(t *testing.T) {
	out := t.TempDir()
	cfg := projectConfig(newProject(t), out)
	path := filepath.Join(out, "git-remote-hg")

	_, err := New().Make(context.Background(), cfg)
	require.NoError(t, err)
	first, err := os.ReadFile(path)
	require.NoError(t, err)

	_, err = New().Make(context.Background(), cfg)
	require.NoError(t, err)
	second, err := os.ReadFile(path)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, []string{"git-remote-hg"}, listDir(t, out))
}

func TestMake_BackendFailureKeepsPriorArtifact(t *testing.T) {
	out := t.TempDir()
	prior := filepath.Join(out, "git-remote-hg")
	require.NoError(t, os.WriteFile(prior, []byte("previous build"), 0o755))

	failing := &fakeBackend{build: func(_ context.Context, _ *config.Config, dir string) (*result.Artifact, error) {
		partial := filepath.Join(dir, "git-remote-hg")
		if err := os.WriteFile(partial, []byte("#!/usr/bin/env python3\nPK\x03"), 0o755); err != nil {
			return nil, err
		}
		return nil, errors.New("compressor crashed")
	}}

	b := New(WithBackend(types.BackendTypeZipapp, failing))
	_, err := b.Make(context.Background(), projectConfig(newProject(t), out))
	require.Error(t, err)
	assert.True(t, hgerrors.IsCode(err, hgerrors.ErrCodeBackend))
	assert.Contains(t, err.Error(), "compressor crashed")

	data, err := os.ReadFile(prior)
	require.NoError(t, err)
	assert.Equal(t, "previous build", string(data))
	assert.Equal(t, []string{"git-remote-hg"}, listDir(t, out))
}

func TestMake_CanceledMidRun(t *testing.T) {
	out := filepath.Join(t.TempDir(), "dist")
	started := make(chan struct{})

	blocking := &fakeBackend{build: func(ctx context.Context, _ *config.Config, dir string) (*result.Artifact, error) {
		if err := os.WriteFile(filepath.Join(dir, "git-remote-hg"), []byte("#!trunc"), 0o755); err != nil {
			return nil, err
		}
		close(started)
		<-ctx.Done()
		return nil, ctx.Err()
	}}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()

	_, err := New(WithBackend(types.BackendTypeZipapp, blocking)).Make(ctx, projectConfig(newProject(t), out))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, hgerrors.ExitCanceled, hgerrors.ExitCode(err))

	_, statErr := os.Stat(filepath.Join(out, "git-remote-hg"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestMake_Timeout(t *testing.T) {
	slow := &fakeBackend{build: func(ctx context.Context, _ *config.Config, _ string) (*result.Artifact, error) {
		<-ctx.Done()
		return nil, errors.New("interrupted")
	}}

	b := New(WithBackend(types.BackendTypeZipapp, slow), WithTimeout(10*time.Millisecond))
	_, err := b.Make(context.Background(), projectConfig(newProject(t), t.TempDir()))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestMake_CustomBackend(t *testing.T) {
	called := false
	custom := &fakeBackend{build: func(_ context.Context, _ *config.Config, dir string) (*result.Artifact, error) {
		called = true
		path := filepath.Join(dir, "git-remote-hg")
		if err := os.WriteFile(path, []byte("#!/bin/sh\n"), 0o755); err != nil {
			return nil, err
		}
		return &result.Artifact{Files: []result.File{{Name: "git-remote-hg", Path: path, Role: result.RoleExecutable}}}, nil
	}}

	out := t.TempDir()
	b := New(WithBackend("pyinstaller", custom))
	res, err := b.Make(context.Background(), projectConfig(newProject(t), out, config.WithBackend("pyinstaller")))
	require.NoError(t, err)
	assert.True(t, called)
	assert.Equal(t, "pyinstaller", res.Backend)
	assert.Equal(t, []string{"git-remote-hg"}, listDir(t, out))
}

func TestMake_UnknownBackendListsRegistered(t *testing.T) {
	b := New(WithBackend("pyinstaller", &fakeBackend{}))
	_, err := b.Make(context.Background(), projectConfig(newProject(t), t.TempDir(), config.WithBackend("py2exe")))
	require.Error(t, err)
	assert.True(t, hgerrors.IsCode(err, hgerrors.ErrCodeConfiguration))
	assert.Contains(t, err.Error(), "pyinstaller, zipapp")
}

func TestNew_Options(t *testing.T) {
	assert.Zero(t, New().timeout, "builds are unbounded unless a timeout is set")

	custom := &fakeBackend{}
	r := NewRegistry()
	New(WithBackend("pyinstaller", custom), WithRegistry(r))
	got, ok := r.Get("pyinstaller")
	require.True(t, ok, "backend must land in the registry given later")
	assert.Same(t, custom, got)

	b := New(WithRegistry(nil))
	require.NotNil(t, b.registry)
	assert.Equal(t, 1, b.registry.Count())
}

func TestMake_NoFiles(t *testing.T) {
	empty := &fakeBackend{build: func(context.Context, *config.Config, string) (*result.Artifact, error) {
		return &result.Artifact{}, nil
	}}

	_, err := New(WithBackend(types.BackendTypeZipapp, empty)).Make(context.Background(), projectConfig(newProject(t), t.TempDir()))
	assert.True(t, hgerrors.IsCode(err, hgerrors.ErrCodeBackend))
}

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "artifact")
	require.NoError(t, os.WriteFile(path, []byte("old"), 0o644))

	require.NoError(t, WriteFileAtomic(path, strings.NewReader("new content"), 0o755))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "new content", string(data))
	assert.Equal(t, []string{"artifact"}, listDir(t, dir))

	err = WriteFileAtomic(filepath.Join(dir, "missing", "artifact"), strings.NewReader("x"), 0o644)
	assert.Error(t, err)
}

func TestWriteMetricsFile(t *testing.T) {
	_, _ = New().Make(context.Background(), config.NewConfig(config.WithEntryPoint("")))

	path := filepath.Join(t.TempDir(), "hgpack.prom")
	require.NoError(t, WriteMetricsFile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hgpack_build_total")
	assert.Contains(t, string(data), `status="configuration"`)
}

func TestBuildStatus(t *testing.T) {
	assert.Equal(t, "success", buildStatus(nil))
	assert.Equal(t, "configuration", buildStatus(hgerrors.Configuration("x")))
	assert.Equal(t, "backend", buildStatus(hgerrors.Backend("x", nil)))
	assert.Equal(t, "environment", buildStatus(hgerrors.Environment("x")))
	assert.Equal(t, "canceled", buildStatus(context.Canceled))
	assert.Equal(t, "error", buildStatus(errors.New("x")))
}
