package scanner

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
)

// loaders maps recognized source extensions to the esbuild loader that
// parses them. Plain .js files may contain JSX.
var loaders = map[string]api.Loader{
	".js":  api.LoaderJSX,
	".jsx": api.LoaderJSX,
	".mjs": api.LoaderJS,
	".cjs": api.LoaderJS,
	".ts":  api.LoaderTS,
	".tsx": api.LoaderTSX,
}

// LoaderFor returns the esbuild loader for path's extension.
func LoaderFor(path string) (api.Loader, bool) {
	loader, ok := loaders[strings.ToLower(filepath.Ext(path))]
	return loader, ok
}

// IsSourceFile reports whether path has a recognized source extension.
// TypeScript declaration files carry no code and are never sources.
func IsSourceFile(path string) bool {
	if strings.HasSuffix(strings.ToLower(path), ".d.ts") {
		return false
	}
	_, ok := LoaderFor(path)
	return ok
}

// SourceExtensions lists the recognized extensions in sorted order.
func SourceExtensions() []string {
	exts := make([]string, 0, len(loaders))
	for ext := range loaders {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}
