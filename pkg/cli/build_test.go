package cli

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hgpack/hgpack/pkg/bundler/config"
	hgerrors "github.com/hgpack/hgpack/pkg/errors"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "hgpack.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfigFile(t *testing.T) {
	tests := []struct {
		name    string
		content string
		check   func(t *testing.T, cfg *config.Config)
		wantErr bool
	}{
		{
			name: "all fields",
			content: `entryPoint: bin/git-remote-hg
forcedIncludes:
  - mercurial.cext.parsers
  - mercurial.cext.osutil
bundleMode: multi-file
encodingMode: ascii
searchPaths: [lib, vendor]
outputDir: out
interpreter: /usr/bin/python3
backend: zipapp
`,
			check: func(t *testing.T, cfg *config.Config) {
				assert.Equal(t, "bin/git-remote-hg", cfg.EntryPoint())
				assert.Equal(t, []string{"mercurial.cext.parsers", "mercurial.cext.osutil"}, cfg.ForcedIncludes())
				assert.Equal(t, config.BundleModeMultiFile, cfg.BundleMode())
				assert.Equal(t, config.EncodingModeASCII, cfg.EncodingMode())
				assert.Equal(t, []string{"lib", "vendor"}, cfg.SearchPaths())
				assert.Equal(t, "out", cfg.OutputDir())
				assert.Equal(t, "/usr/bin/python3", cfg.Interpreter())
			},
		},
		{
			name:    "empty file keeps defaults",
			content: "",
			check: func(t *testing.T, cfg *config.Config) {
				assert.Equal(t, "git-remote-hg", cfg.EntryPoint())
				assert.Equal(t, []string{"mercurial.cext.parsers"}, cfg.ForcedIncludes())
			},
		},
		{
			name:    "explicit empty include list",
			content: "forcedIncludes: []\n",
			check: func(t *testing.T, cfg *config.Config) {
				assert.Empty(t, cfg.ForcedIncludes())
			},
		},
		{name: "unknown field", content: "entry: x\n", wantErr: true},
		{name: "bad mode", content: "bundleMode: onefile\n", wantErr: true},
		{name: "bad encoding", content: "encodingMode: latin1\n", wantErr: true},
		{name: "not yaml", content: "[", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts, err := loadConfigFile(writeConfig(t, tt.content))
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, hgerrors.IsCode(err, hgerrors.ErrCodeConfiguration))
				return
			}
			require.NoError(t, err)
			tt.check(t, config.NewConfig(opts...))
		})
	}
}

func TestLoadConfigFile_Missing(t *testing.T) {
	_, err := loadConfigFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.True(t, hgerrors.IsCode(err, hgerrors.ErrCodeConfiguration))
}

func TestSourceDateEpoch(t *testing.T) {
	t.Setenv("SOURCE_DATE_EPOCH", "")
	_, ok, err := sourceDateEpoch()
	require.NoError(t, err)
	assert.False(t, ok)

	t.Setenv("SOURCE_DATE_EPOCH", "1700000000")
	ts, ok, err := sourceDateEpoch()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), ts)

	t.Setenv("SOURCE_DATE_EPOCH", "yesterday")
	_, _, err = sourceDateEpoch()
	assert.True(t, hgerrors.IsCode(err, hgerrors.ErrCodeConfiguration))
}

func TestRun_ConfigPrecedence(t *testing.T) {
	project := newProject(t)
	fileOut := t.TempDir()
	envOut := t.TempDir()
	flagOut := t.TempDir()

	cfgPath := writeConfig(t, "entryPoint: "+filepath.Join(project, "git-remote-hg")+"\n"+
		"outputDir: "+fileOut+"\n"+
		"bundleMode: multi-file\n")

	// file only
	code, _, _ := runCLI(t, "build", "--config", cfgPath)
	require.Equal(t, hgerrors.ExitOK, code)
	libs, err := filepath.Glob(filepath.Join(fileOut, "git-remote-hg.*.lib.zip"))
	require.NoError(t, err)
	assert.Len(t, libs, 1)

	// env beats file
	t.Setenv("HGPACK_OUTPUT", envOut)
	t.Setenv("HGPACK_MODE", "single-file")
	code, _, _ = runCLI(t, "build", "--config", cfgPath)
	require.Equal(t, hgerrors.ExitOK, code)
	assert.FileExists(t, filepath.Join(envOut, "git-remote-hg"))
	libs, err = filepath.Glob(filepath.Join(envOut, "*.lib.zip"))
	require.NoError(t, err)
	assert.Empty(t, libs)

	// flag beats env
	code, _, _ = runCLI(t, "build", "--config", cfgPath, "--output", flagOut)
	require.Equal(t, hgerrors.ExitOK, code)
	assert.FileExists(t, filepath.Join(flagOut, "git-remote-hg"))
}

func TestRun_SourceDateEpochStampsManifest(t *testing.T) {
	project := newProject(t)
	out := t.TempDir()
	t.Setenv("SOURCE_DATE_EPOCH", "1700000000")

	code, _, _ := runCLI(t, "build",
		"--entry", filepath.Join(project, "git-remote-hg"),
		"--output", out,
	)
	require.Equal(t, hgerrors.ExitOK, code)

	code, stdout, _ := runCLI(t, "inspect", filepath.Join(out, "git-remote-hg"))
	require.Equal(t, hgerrors.ExitOK, code)
	assert.Contains(t, stdout, "2023-11-14T22:13:20Z")
}
