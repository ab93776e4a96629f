// Package walk enumerates the regular files of a directory tree.
package walk

import (
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// Visitor is called once for every regular file.
type Visitor func(path string, info os.FileInfo) error

// SkipFunc reports whether a directory below the root should be pruned.
type SkipFunc func(path string, info os.FileInfo) bool

// Files visits every regular file under root, depth-first, in lexical order
// within each directory. Symbolic links are reported by Lstat and are
// neither followed nor visited. The first error returned by the visitor or
// the file system stops the walk and is returned.
func Files(fsys afero.Fs, root string, skip SkipFunc, visit Visitor) error {
	return afero.Walk(fsys, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if info.IsDir() {
			if path != root && skip != nil && skip(path, info) {
				return filepath.SkipDir
			}
			return nil
		}

		if !info.Mode().IsRegular() {
			return nil
		}

		return visit(path, info)
	})
}

// SkipNames prunes directories whose base name is one of names.
func SkipNames(names ...string) SkipFunc {
	set := make(map[string]struct{}, len(names))
	for _, name := range names {
		set[name] = struct{}{}
	}

	return func(_ string, info os.FileInfo) bool {
		_, ok := set[info.Name()]
		return ok
	}
}

// SkipPaths prunes the given directories. Paths are compared after
// filepath.Clean.
func SkipPaths(paths ...string) SkipFunc {
	set := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		set[filepath.Clean(p)] = struct{}{}
	}

	return func(path string, _ os.FileInfo) bool {
		_, ok := set[filepath.Clean(path)]
		return ok
	}
}

// Any combines skip functions; a directory is pruned if any of them says so.
func Any(funcs ...SkipFunc) SkipFunc {
	return func(path string, info os.FileInfo) bool {
		for _, fn := range funcs {
			if fn != nil && fn(path, info) {
				return true
			}
		}
		return false
	}
}
