// Package pymod resolves Python module names to files on a search path
// and computes the set of modules an entry script needs.
//
// Resolution follows the interpreter's file layout: "a.b.c" is satisfied
// by a/b/c/__init__.py, a/b/c.py, or a native extension such as
// a/b/c.cpython-311-x86_64-linux-gnu.so or a/b/c.pyd, checked in that
// order on each root.
//
// Dependency detection is static and line based. Anything it misses can
// be named as a forced include, which must resolve or the build fails
// with a suggestion for the closest available module name.
package pymod
