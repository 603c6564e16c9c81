package pymod

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"
)

// Graph is the set of modules reachable from an entry point plus the
// forced includes, sorted by name.
type Graph struct {
	Modules []*Module
}

// Names returns the module names in order.
func (g *Graph) Names() []string {
	names := make([]string, len(g.Modules))
	for i, m := range g.Modules {
		names[i] = m.Name
	}
	return names
}

// Finder computes the module closure of an entry point.
type Finder struct {
	resolver *Resolver
	workers  int
}

// NewFinder returns a Finder over resolver. Hashing runs on up to
// GOMAXPROCS goroutines.
func NewFinder(resolver *Resolver) *Finder {
	return &Finder{
		resolver: resolver,
		workers:  runtime.GOMAXPROCS(0),
	}
}

// Find resolves the forced includes, then walks imports starting from
// the entry source and the forced modules. Forced includes must resolve;
// other imports that do not resolve are assumed to come from the
// interpreter and are skipped. Every returned module has Data and SHA256 set.
func (f *Finder) Find(ctx context.Context, entrySource []byte, forced []string) (*Graph, error) {
	forcedMods, err := f.resolveForced(ctx, forced)
	if err != nil {
		return nil, err
	}

	found := make(map[string]*Module)
	visited := make(map[string]struct{})
	var queue []string

	for _, m := range forcedMods {
		found[m.Name] = m
		visited[m.Name] = struct{}{}
		queue = append(queue, parents(m.Name)...)
		if m.IsText() {
			if err := load(m); err != nil {
				return nil, err
			}
			queue = append(queue, ScanImports(m.Data, packageOf(m))...)
		}
	}
	queue = append(queue, ScanImports(entrySource, "")...)

	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		name := queue[0]
		queue = queue[1:]
		if _, ok := visited[name]; ok {
			continue
		}
		visited[name] = struct{}{}

		m, err := f.resolver.Resolve(name)
		if err != nil {
			slog.Debug("import not on search path, skipping", "module", name)
			continue
		}
		found[name] = m
		queue = append(queue, parents(name)...)

		if m.IsText() {
			if err := load(m); err != nil {
				return nil, err
			}
			queue = append(queue, ScanImports(m.Data, packageOf(m))...)
		}
	}

	mods := make([]*Module, 0, len(found))
	for _, m := range found {
		mods = append(mods, m)
	}
	sort.Slice(mods, func(i, j int) bool { return mods[i].Name < mods[j].Name })

	if err := f.hash(ctx, mods); err != nil {
		return nil, err
	}

	slog.Debug("module graph resolved", "modules", len(mods), "forced", len(forcedMods))
	return &Graph{Modules: mods}, nil
}

// resolveForced resolves every forced include concurrently. When several
// fail, the error for the earliest include in the list is returned.
func (f *Finder) resolveForced(ctx context.Context, forced []string) ([]*Module, error) {
	mods := make([]*Module, len(forced))
	errs := make([]error, len(forced))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(f.workers)
	for i, name := range forced {
		i, name := i, name
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				errs[i] = err
				return nil
			}
			m, err := f.resolver.Resolve(name)
			if err != nil {
				errs[i] = err
				return nil
			}
			m.Forced = true
			mods[i] = m
			return nil
		})
	}
	_ = g.Wait()

	for _, err := range errs {
		if err == nil {
			continue
		}
		var nf *NotFoundError
		if errors.As(err, &nf) {
			nf.Suggestion = Suggest(nf.Name, f.resolver.Available())
		}
		return nil, err
	}
	return mods, nil
}

// hash loads remaining module data and computes SHA256 digests in parallel.
func (f *Finder) hash(ctx context.Context, mods []*Module) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(f.workers)
	for _, m := range mods {
		m := m
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if m.Data == nil {
				if err := load(m); err != nil {
					return err
				}
			}
			sum := sha256.Sum256(m.Data)
			m.SHA256 = hex.EncodeToString(sum[:])
			return nil
		})
	}
	return g.Wait()
}

func load(m *Module) error {
	if m.Data != nil {
		return nil
	}
	data, err := os.ReadFile(m.File)
	if err != nil {
		return fmt.Errorf("failed to read module %s: %w", m.Name, err)
	}
	if data == nil {
		data = []byte{}
	}
	m.Data = data
	return nil
}
