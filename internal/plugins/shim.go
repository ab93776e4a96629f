package plugins

import (
	"context"

	"golang.org/x/net/html"
)

const moduleLoaderShim = `
globalThis.__webpack_require__ = function (id) {
  return import(id);
};
`

// ModuleLoaderShimScript returns the body of the inline script that defines
// the global module loader used to resolve server-delivered client
// component references. It always returns the same fragment.
func ModuleLoaderShimScript() string {
	return moduleLoaderShim
}

// ModuleLoaderShim appends the module loader shim to the HTML entry.
type ModuleLoaderShim struct{}

// Name implements Plugin.
func (ModuleLoaderShim) Name() string {
	return "module-loader-shim"
}

// TransformHTML implements HTMLPlugin.
func (ModuleLoaderShim) TransformHTML(_ context.Context, doc *html.Node) error {
	return AppendInlineScript(doc, nil, ModuleLoaderShimScript())
}
