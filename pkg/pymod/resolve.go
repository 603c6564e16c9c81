package pymod

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/hgpack/hgpack/pkg/manifest"
)

// nativeSuffixes are the extension module suffixes recognized after the
// module base name, e.g. parsers.cpython-311-x86_64-linux-gnu.so.
var nativeSuffixes = []string{".so", ".pyd"}

// Module is a resolved module file on a search root.
type Module struct {
	// Name is the dotted module name.
	Name string

	Kind manifest.ModuleKind

	// File is the absolute filesystem path.
	File string

	// ArchivePath is the slash-separated path relative to the search root.
	ArchivePath string

	// Forced is set when the module was named as a forced include.
	Forced bool

	Data   []byte
	SHA256 string
}

// IsPackage reports whether m is a package __init__.
func (m *Module) IsPackage() bool {
	return m.Kind == manifest.ModuleKindPackage
}

// IsText reports whether m holds source text.
func (m *Module) IsText() bool {
	return m.Kind != manifest.ModuleKindExtension
}

// Resolver maps dotted module names to files under a list of search roots.
// Roots are searched in order; the first match wins.
type Resolver struct {
	roots    []string
	platform string
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithPlatform sets the target platform (a GOOS name) used to choose
// between native extensions built for different platforms.
func WithPlatform(platform string) ResolverOption {
	return func(r *Resolver) {
		r.platform = platform
	}
}

// NewResolver returns a Resolver over roots. Roots are made absolute.
func NewResolver(roots []string, opts ...ResolverOption) (*Resolver, error) {
	abs := make([]string, 0, len(roots))
	for _, r := range roots {
		a, err := filepath.Abs(r)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve search path %q: %w", r, err)
		}
		abs = append(abs, a)
	}
	r := &Resolver{roots: abs}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Roots returns the absolute search roots.
func (r *Resolver) Roots() []string {
	return append([]string(nil), r.roots...)
}

// Resolve finds name on the search roots. It returns ErrNotFound wrapped
// with the module name when nothing matches.
func (r *Resolver) Resolve(name string) (*Module, error) {
	rel := filepath.FromSlash(strings.ReplaceAll(name, ".", "/"))
	for _, root := range r.roots {
		if m, ok := r.resolveIn(root, rel, name); ok {
			return m, nil
		}
	}
	return nil, &NotFoundError{Name: name}
}

// resolveIn follows the interpreter's lookup order within one root:
// package, native extension, then source module.
func (r *Resolver) resolveIn(root, rel, name string) (*Module, bool) {
	base := filepath.Join(root, rel)

	initFile := filepath.Join(base, "__init__.py")
	if isFile(initFile) {
		return newModule(root, initFile, name, manifest.ModuleKindPackage), true
	}

	if ext, ok := findExtension(base, r.platform); ok {
		return newModule(root, ext, name, manifest.ModuleKindExtension), true
	}

	srcFile := base + ".py"
	if isFile(srcFile) {
		return newModule(root, srcFile, name, manifest.ModuleKindSource), true
	}
	return nil, false
}

func newModule(root, file, name string, kind manifest.ModuleKind) *Module {
	rel, err := filepath.Rel(root, file)
	if err != nil {
		rel = filepath.Base(file)
	}
	return &Module{
		Name:        name,
		Kind:        kind,
		File:        file,
		ArchivePath: filepath.ToSlash(rel),
	}
}

// findExtension looks for base.so, base.pyd or base.<tag>.so / base.<tag>.pyd.
// A tag naming platform wins over an untagged file for that platform,
// which wins over anything else. Ties go to the first name in sort order
// so the choice is stable across filesystems.
func findExtension(base, platform string) (string, bool) {
	dir := filepath.Dir(base)
	stem := filepath.Base(base)

	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", false
	}

	var matches []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		n := e.Name()
		for _, suffix := range nativeSuffixes {
			if !strings.HasSuffix(n, suffix) {
				continue
			}
			trimmed := strings.TrimSuffix(n, suffix)
			if trimmed == stem || strings.HasPrefix(trimmed, stem+".") {
				matches = append(matches, filepath.Join(dir, n))
			}
		}
	}
	if len(matches) == 0 {
		return "", false
	}
	sort.Strings(matches)

	best, bestScore := matches[0], -1
	for _, m := range matches {
		if score := extensionScore(filepath.Base(m), stem, platform); score > bestScore {
			best, bestScore = m, score
		}
	}
	return best, true
}

// platformMarkers are substrings of CPython ABI tags per GOOS name, e.g.
// cpython-311-x86_64-linux-gnu, cpython-311-darwin, cp311-win_amd64.
var platformMarkers = map[string]string{
	"linux":   "linux",
	"darwin":  "darwin",
	"freebsd": "freebsd",
	"windows": "win",
}

func extensionScore(file, stem, platform string) int {
	if platform == "" {
		return 0
	}
	suffix := ".so"
	if platform == "windows" {
		suffix = ".pyd"
	}
	if !strings.HasSuffix(file, suffix) {
		return 0
	}
	tag := strings.TrimPrefix(strings.TrimSuffix(file, suffix), stem)
	marker := platformMarkers[platform]
	switch {
	case tag == "":
		return 1
	case marker != "" && strings.Contains(tag, marker):
		return 2
	default:
		return 0
	}
}

func isFile(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.Mode().IsRegular()
}

// Available lists every module name discoverable under the search roots.
func (r *Resolver) Available() []string {
	seen := make(map[string]struct{})
	for _, root := range r.roots {
		_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			if d.IsDir() {
				if path != root && strings.HasPrefix(d.Name(), ".") {
					return filepath.SkipDir
				}
				return nil
			}
			if name, ok := moduleNameFor(root, path); ok {
				seen[name] = struct{}{}
			}
			return nil
		})
	}

	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func moduleNameFor(root, path string) (string, bool) {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return "", false
	}
	rel = filepath.ToSlash(rel)

	switch {
	case strings.HasSuffix(rel, "/__init__.py"):
		rel = strings.TrimSuffix(rel, "/__init__.py")
	case strings.HasSuffix(rel, ".py"):
		rel = strings.TrimSuffix(rel, ".py")
	default:
		found := false
		for _, suffix := range nativeSuffixes {
			if strings.HasSuffix(rel, suffix) {
				rel = strings.TrimSuffix(rel, suffix)
				dir, file := pathSplit(rel)
				if i := strings.Index(file, "."); i >= 0 {
					file = file[:i]
				}
				rel = dir + file
				found = true
				break
			}
		}
		if !found {
			return "", false
		}
	}
	if rel == "" || rel == "__init__.py" {
		return "", false
	}
	return strings.ReplaceAll(rel, "/", "."), true
}

func pathSplit(p string) (dir, file string) {
	i := strings.LastIndex(p, "/")
	return p[:i+1], p[i+1:]
}

// Suggest returns the candidate closest to name by edit distance, or ""
// when nothing is close enough to be a plausible typo.
func Suggest(name string, candidates []string) string {
	limit := len(name) / 3
	if limit < 2 {
		limit = 2
	}

	best, bestDist := "", limit+1
	for _, c := range candidates {
		d := levenshtein.ComputeDistance(name, c)
		if d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}

// NotFoundError reports a module that no search root provides.
type NotFoundError struct {
	Name       string
	Suggestion string
}

func (e *NotFoundError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("module %q not found on search path (did you mean %q?)", e.Name, e.Suggestion)
	}
	return fmt.Sprintf("module %q not found on search path", e.Name)
}
