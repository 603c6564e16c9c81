package pymod

import (
	"bufio"
	"bytes"
	"regexp"
	"strings"
)

var (
	importStmt = regexp.MustCompile(`^import\s+(.+)$`)
	fromStmt   = regexp.MustCompile(`^from\s+(\.*)([A-Za-z_][\w.]*)?\s+import\s+(.+)$`)
	identifier = regexp.MustCompile(`^[A-Za-z_][\w]*$`)
)

// ScanImports returns the module names a source file may import.
//
// pkg is the package the file belongs to and is used to anchor relative
// imports. Names after "from X import" are reported both as X and X.name
// since either may be a submodule; callers drop names that do not resolve.
// Statements are recognized at the start of a line at any indentation;
// dynamic imports are not.
func ScanImports(src []byte, pkg string) []string {
	var names []string
	seen := make(map[string]struct{})
	add := func(n string) {
		if n == "" {
			return
		}
		if _, ok := seen[n]; ok {
			return
		}
		seen[n] = struct{}{}
		names = append(names, n)
	}

	for _, line := range logicalLines(src) {
		if m := importStmt.FindStringSubmatch(line); m != nil {
			for _, part := range strings.Split(m[1], ",") {
				add(dottedName(part))
			}
			continue
		}

		m := fromStmt.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		base := m[2]
		if dots := len(m[1]); dots > 0 {
			anchor := relativeAnchor(pkg, dots)
			if anchor == "" && pkg == "" {
				continue
			}
			base = joinName(anchor, base)
		}
		add(base)

		targets := strings.Trim(strings.TrimSpace(m[3]), "()")
		for _, part := range strings.Split(targets, ",") {
			n := dottedName(part)
			if n == "" || n == "*" || !identifier.MatchString(n) {
				continue
			}
			add(joinName(base, n))
		}
	}
	return names
}

// logicalLines strips comments and joins parenthesized continuations.
func logicalLines(src []byte) []string {
	var (
		lines   []string
		pending strings.Builder
		open    bool
	)

	sc := bufio.NewScanner(bytes.NewReader(src))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Text()
		if i := strings.Index(line, "#"); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(line), `\`))

		if open {
			pending.WriteString(" ")
			pending.WriteString(line)
			if strings.Contains(line, ")") {
				lines = append(lines, pending.String())
				pending.Reset()
				open = false
			}
			continue
		}

		if strings.HasPrefix(line, "from ") && strings.Contains(line, "(") && !strings.Contains(line, ")") {
			pending.WriteString(line)
			open = true
			continue
		}
		if line != "" {
			lines = append(lines, line)
		}
	}
	if open {
		lines = append(lines, pending.String())
	}
	return lines
}

// dottedName trims whitespace and an "as" alias.
func dottedName(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.Index(s, " as "); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

// relativeAnchor drops dots-1 trailing components from pkg.
func relativeAnchor(pkg string, dots int) string {
	parts := strings.Split(pkg, ".")
	if pkg == "" {
		parts = nil
	}
	drop := dots - 1
	if drop >= len(parts) {
		return ""
	}
	return strings.Join(parts[:len(parts)-drop], ".")
}

func joinName(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	default:
		return a + "." + b
	}
}

// parents returns the enclosing package names of name, outermost first.
func parents(name string) []string {
	parts := strings.Split(name, ".")
	out := make([]string, 0, len(parts)-1)
	for i := 1; i < len(parts); i++ {
		out = append(out, strings.Join(parts[:i], "."))
	}
	return out
}

// packageOf returns the package a module's relative imports are anchored to.
func packageOf(m *Module) string {
	if m.IsPackage() {
		return m.Name
	}
	if i := strings.LastIndex(m.Name, "."); i >= 0 {
		return m.Name[:i]
	}
	return ""
}
