package bundler

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// WriteFileAtomic writes r to path so that path either keeps its previous
// content or holds the complete new content. The data goes to a temp
// file in the same directory, is synced, and is renamed into place.
func WriteFileAtomic(path string, r io.Reader, perm os.FileMode) error {
	tmp, err := stageFile(filepath.Dir(path), filepath.Base(path), r, perm)
	if err != nil {
		return err
	}
	if err := commitFile(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	syncDir(filepath.Dir(path))
	return nil
}

// stageFile copies r into a hidden temp file in dir and returns its path.
// The temp file is removed on error.
func stageFile(dir, name string, r io.Reader, perm os.FileMode) (_ string, err error) {
	f, err := os.CreateTemp(dir, "."+name+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file for %s: %w", name, err)
	}
	tmp := f.Name()
	defer func() {
		if err != nil {
			_ = f.Close()
			_ = os.Remove(tmp)
		}
	}()

	if _, err = io.Copy(f, r); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err = f.Chmod(perm); err != nil {
		return "", fmt.Errorf("failed to set permissions on %s: %w", name, err)
	}
	if err = f.Sync(); err != nil {
		return "", fmt.Errorf("failed to sync %s: %w", name, err)
	}
	if err = f.Close(); err != nil {
		return "", fmt.Errorf("failed to close %s: %w", name, err)
	}
	return tmp, nil
}

func commitFile(tmp, path string) error {
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to move %s into place: %w", filepath.Base(path), err)
	}
	return nil
}

// syncDir makes a rename durable. Directories cannot be synced on every
// platform, so failures to open or sync are ignored.
func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	defer d.Close()
	_ = d.Sync()
}
