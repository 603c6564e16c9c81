package result

import (
	"strings"
	"testing"
	"time"

	"github.com/hgpack/hgpack/pkg/manifest"
)

func TestArtifact_Executable(t *testing.T) {
	a := &Artifact{
		Files: []File{
			{Name: "git-remote-hg.3f2a9c1e.lib.zip", Role: RoleLibrary, Size: 300},
			{Name: "git-remote-hg", Role: RoleExecutable, Size: 100},
		},
	}

	exe, ok := a.Executable()
	if !ok {
		t.Fatal("Executable() returned false")
	}
	if exe.Name != "git-remote-hg" {
		t.Errorf("Executable().Name = %s, want git-remote-hg", exe.Name)
	}
	if a.TotalSize() != 400 {
		t.Errorf("TotalSize() = %d, want 400", a.TotalSize())
	}

	empty := &Artifact{}
	if _, ok := empty.Executable(); ok {
		t.Error("Executable() on empty artifact returned true")
	}
}

func TestOutput_Summary(t *testing.T) {
	output := &Output{
		Artifact: &Artifact{
			Files: []File{{Name: "git-remote-hg", Role: RoleExecutable, Size: 1024 * 1024 * 5}},
			Manifest: &manifest.Manifest{
				Modules: []manifest.Module{{Name: "__main__"}, {Name: "mercurial"}},
			},
		},
		Duration: 2500 * time.Millisecond,
	}

	summary := output.Summary()

	for _, want := range []string{"1 files", "5.0 MB", "2 modules", "2.5s"} {
		if !strings.Contains(summary, want) {
			t.Errorf("Summary missing %q: %s", want, summary)
		}
	}
}

func TestOutput_NilArtifact(t *testing.T) {
	output := &Output{}
	if output.TotalFiles() != 0 || output.TotalSize() != 0 {
		t.Errorf("empty output reported files=%d size=%d", output.TotalFiles(), output.TotalSize())
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		name  string
		bytes int64
		want  string
	}{
		{"bytes", 100, "100 B"},
		{"kilobytes", 1024, "1.0 KB"},
		{"megabytes", 1024 * 1024, "1.0 MB"},
		{"gigabytes", 1024 * 1024 * 1024, "1.0 GB"},
		{"mixed", 1536, "1.5 KB"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := formatBytes(tt.bytes)
			if got != tt.want {
				t.Errorf("formatBytes(%d) = %s, want %s", tt.bytes, got, tt.want)
			}
		})
	}
}
