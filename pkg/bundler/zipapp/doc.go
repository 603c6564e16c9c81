// Package zipapp implements the packaging backend that turns a Python
// entry script into a self-contained executable zip application.
//
// # Artifact Layout
//
// Single-file mode writes one executable:
//
//	git-remote-hg            #!/usr/bin/env python3 + zip
//	├── __main__.py          generated bootstrap
//	├── __entry__.py         the entry point source
//	├── __hgpack__/manifest.yaml
//	└── mercurial/...        embedded modules
//
// Multi-file mode moves the modules into git-remote-hg.<sha8>.lib.zip
// next to the executable; the bootstrap puts it on sys.path at startup.
// The digest in the name keeps an older launcher paired with its own
// library while a newer build is being published.
//
// Native extension modules cannot be imported from a zip. The bootstrap
// extracts them once into a content-addressed temp directory and installs
// a meta path finder that loads them from there.
//
// # Determinism
//
// Entries are sorted and stamped with a fixed time (the zip epoch, or the
// configured build time), and the manifest carries no wall-clock data, so
// identical inputs produce byte-identical artifacts.
package zipapp
