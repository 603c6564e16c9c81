package zipapp

import (
	"archive/zip"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"sort"
	"time"
)

// zipEpoch is the earliest time the zip format can represent. Entries are
// stamped with it unless a build time is configured.
var zipEpoch = time.Date(1980, time.January, 1, 0, 0, 0, 0, time.UTC)

type archiveEntry struct {
	name   string
	data   []byte
	stored bool
}

// hashingWriter counts and hashes everything written through it.
type hashingWriter struct {
	w    io.Writer
	h    hash.Hash
	size int64
}

func newHashingWriter(w io.Writer) *hashingWriter {
	return &hashingWriter{w: w, h: sha256.New()}
}

func (hw *hashingWriter) Write(p []byte) (int, error) {
	n, err := hw.w.Write(p)
	hw.h.Write(p[:n])
	hw.size += int64(n)
	return n, err
}

func (hw *hashingWriter) sum() string {
	return hex.EncodeToString(hw.h.Sum(nil))
}

// writeArchive writes prefix followed by a zip of entries to path. Entries
// are sorted by name and share modTime so the output depends only on the
// entry contents. Zip offsets account for the prefix, so the result is
// readable both as a zip and as a prefixed executable.
func writeArchive(path string, perm os.FileMode, prefix []byte, entries []archiveEntry, modTime time.Time) (size int64, sum string, err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, perm)
	if err != nil {
		return 0, "", fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close %s: %w", path, cerr)
		}
	}()

	hw := newHashingWriter(f)
	if _, err := hw.Write(prefix); err != nil {
		return 0, "", fmt.Errorf("failed to write launcher: %w", err)
	}

	sorted := make([]archiveEntry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].name < sorted[j].name })

	zw := zip.NewWriter(hw)
	zw.SetOffset(int64(len(prefix)))
	for i, e := range sorted {
		if i > 0 && sorted[i-1].name == e.name {
			return 0, "", fmt.Errorf("duplicate archive entry %s", e.name)
		}

		hdr := &zip.FileHeader{
			Name:     e.name,
			Method:   zip.Deflate,
			Modified: modTime,
		}
		if e.stored {
			hdr.Method = zip.Store
		}
		hdr.SetMode(0o644)

		w, err := zw.CreateHeader(hdr)
		if err != nil {
			return 0, "", fmt.Errorf("failed to add %s: %w", e.name, err)
		}
		if _, err := w.Write(e.data); err != nil {
			return 0, "", fmt.Errorf("failed to write %s: %w", e.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return 0, "", fmt.Errorf("failed to finish archive: %w", err)
	}
	if err := f.Sync(); err != nil {
		return 0, "", fmt.Errorf("failed to sync %s: %w", path, err)
	}
	return hw.size, hw.sum(), nil
}
