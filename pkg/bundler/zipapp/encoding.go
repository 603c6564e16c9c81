package zipapp

import (
	"unicode/utf8"

	"github.com/hgpack/hgpack/pkg/bundler/config"
	hgerrors "github.com/hgpack/hgpack/pkg/errors"
	"golang.org/x/text/unicode/norm"
)

// checkText enforces the encoding mode on embedded source text.
func checkText(name string, data []byte, mode config.EncodingMode) error {
	switch mode {
	case config.EncodingModeASCII:
		for i, b := range data {
			if b >= utf8.RuneSelf {
				return hgerrors.Configuration("%s: non-ASCII byte 0x%02x at offset %d (encoding mode is %s)",
					name, b, i, mode)
			}
		}
	default:
		if !utf8.Valid(data) {
			return hgerrors.Configuration("%s: source is not valid UTF-8", name)
		}
	}
	return nil
}

// entryName returns the archive member name for p under mode. Unicode
// names are NFC-normalized so archives built on hosts with decomposed
// file names (macOS) match those built elsewhere.
func entryName(p string, mode config.EncodingMode) (string, error) {
	if mode == config.EncodingModeASCII {
		for i := 0; i < len(p); i++ {
			if p[i] >= utf8.RuneSelf {
				return "", hgerrors.Configuration("archive path %q is not ASCII (encoding mode is %s)", p, mode)
			}
		}
		return p, nil
	}
	return norm.NFC.String(p), nil
}
