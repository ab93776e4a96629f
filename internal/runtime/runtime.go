// Package runtime ships the browser-side client runtime that user code
// imports as "wakuwork/client".
package runtime

import (
	_ "embed"
	"regexp"

	"github.com/evanw/esbuild/pkg/api"
)

// Specifier is the import path the client runtime is published under.
const Specifier = "wakuwork/client"

const namespace = "wakuwork-runtime"

//go:embed client.js
var clientJS string

// ClientSource returns the embedded client runtime module.
func ClientSource() string {
	return clientJS
}

// Plugin resolves Specifier to the embedded runtime. Imports made by the
// runtime itself (react, react-server-dom-webpack) are resolved from
// resolveDir, normally the project root, so they come from the project's
// own node_modules.
func Plugin(resolveDir string) api.Plugin {
	filter := "^" + regexp.QuoteMeta(Specifier) + "$"

	return api.Plugin{
		Name: namespace,
		Setup: func(build api.PluginBuild) {
			build.OnResolve(api.OnResolveOptions{Filter: filter},
				func(args api.OnResolveArgs) (api.OnResolveResult, error) {
					return api.OnResolveResult{
						Path:      Specifier,
						Namespace: namespace,
					}, nil
				})

			build.OnLoad(api.OnLoadOptions{Filter: ".*", Namespace: namespace},
				func(args api.OnLoadArgs) (api.OnLoadResult, error) {
					contents := clientJS
					return api.OnLoadResult{
						Contents:   &contents,
						ResolveDir: resolveDir,
						Loader:     api.LoaderJS,
					}, nil
				})
		},
	}
}

// Alias redirects Specifier to a runtime module on disk instead of the
// embedded one.
func Alias(path string) map[string]string {
	return map[string]string{Specifier: path}
}
