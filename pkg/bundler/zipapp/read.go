package zipapp

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/hgpack/hgpack/pkg/manifest"
)

// ReadManifest extracts and parses the manifest embedded in an artifact.
func ReadManifest(path string) (*manifest.Manifest, error) {
	var m *manifest.Manifest
	err := withArchive(path, func(zr *zip.Reader) error {
		f, err := zr.Open(manifest.ArchivePath)
		if err != nil {
			return fmt.Errorf("%s has no manifest: %w", path, err)
		}
		defer f.Close()

		data, err := io.ReadAll(f)
		if err != nil {
			return fmt.Errorf("failed to read manifest from %s: %w", path, err)
		}
		m, err = manifest.Parse(data)
		return err
	})
	return m, err
}

// ListEntries returns the sorted member names of an artifact archive.
func ListEntries(path string) ([]string, error) {
	var names []string
	err := withArchive(path, func(zr *zip.Reader) error {
		for _, f := range zr.File {
			names = append(names, f.Name)
		}
		return nil
	})
	sort.Strings(names)
	return names, err
}

func withArchive(path string, fn func(*zip.Reader) error) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open artifact: %w", err)
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat artifact: %w", err)
	}

	zr, err := zip.NewReader(f, fi.Size())
	if err != nil {
		return fmt.Errorf("%s is not a zipapp artifact: %w", path, err)
	}
	return fn(zr)
}
