package manifest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleManifest() *Manifest {
	m := New(WithVersion("v0.3.0"))
	m.EntryPoint = EntryPoint{Name: "git-remote-hg", Path: "__entry__.py", SHA256: "aa"}
	m.BundleMode = "single-file"
	m.EncodingMode = "unicode"
	m.Platform = "linux"
	m.ForcedIncludes = []string{"mercurial.cext.parsers"}
	m.Modules = []Module{
		{Name: "mercurial.cext.parsers", Kind: ModuleKindExtension, Path: "mercurial/cext/parsers.so", SHA256: "cc", Forced: true},
		{Name: "mercurial", Kind: ModuleKindPackage, Path: "mercurial/__init__.py", SHA256: "bb"},
	}
	return m
}

func TestNew(t *testing.T) {
	m := New(WithVersion("v1"))
	assert.Equal(t, Kind, m.Kind)
	assert.Equal(t, "bundlemanifest.hgpack.dev/v1", m.APIVersion)
	assert.Equal(t, "v1", m.Metadata["tool-version"])
}

func TestNormalizeAndNames(t *testing.T) {
	m := sampleManifest()
	m.Normalize()

	assert.Equal(t, "mercurial", m.Modules[0].Name)
	assert.Equal(t, []string{"mercurial", "mercurial.cext.parsers"}, m.ModuleNames())
}

func TestValidate(t *testing.T) {
	m := sampleManifest()
	require.NoError(t, m.Validate())

	m.ForcedIncludes = append(m.ForcedIncludes, "mercurial.pure.parsers")
	err := m.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mercurial.pure.parsers")
	assert.Equal(t, []string{"mercurial.pure.parsers"}, m.MissingIncludes())

	bad := sampleManifest()
	bad.Kind = "Recipe"
	assert.Error(t, bad.Validate())

	noEntry := sampleManifest()
	noEntry.EntryPoint = EntryPoint{}
	assert.Error(t, noEntry.Validate())
}

func TestMarshalParse(t *testing.T) {
	m := sampleManifest()
	m.Normalize()

	data, err := m.Marshal()
	require.NoError(t, err)
	assert.Contains(t, string(data), "kind: BundleManifest")
	assert.NotContains(t, string(data), "build-timestamp")

	again, err := m.Marshal()
	require.NoError(t, err)
	assert.Equal(t, data, again)

	parsed, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, m, parsed)
}

func TestWithBuildTime(t *testing.T) {
	m := New(WithBuildTime(time.Unix(0, 0)))
	ts, ok := m.BuildTime()
	require.True(t, ok)
	assert.Equal(t, int64(0), ts.Unix())
}

func TestParseInvalid(t *testing.T) {
	_, err := Parse([]byte("modules: [unterminated"))
	assert.Error(t, err)
}
