// Package plugins provides the HTML-transform extensions run on the built
// HTML entry.
//
// Plugins receive the parsed document after script sources have been
// rewritten to their bundled file names and before it is written to the
// public directory. They must be deterministic: the same document in gives
// the same document out.
package plugins

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Plugin represents a build extension
type Plugin interface {
	// Name returns the unique name of the plugin
	Name() string
}

// HTMLPlugin hooks the HTML-transform stage of the bundle step.
type HTMLPlugin interface {
	Plugin

	// TransformHTML modifies the parsed HTML entry in place
	TransformHTML(ctx context.Context, doc *html.Node) error
}

// Run applies plugins to doc in order, stopping at the first error.
func Run(ctx context.Context, doc *html.Node, plugins ...HTMLPlugin) error {
	for _, p := range plugins {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := p.TransformHTML(ctx, doc); err != nil {
			return fmt.Errorf("html plugin %s: %w", p.Name(), err)
		}
	}
	return nil
}

// FindElement returns the first element of type a in document order.
func FindElement(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := FindElement(c, a); found != nil {
			return found
		}
	}
	return nil
}

// AppendInlineScript appends <script>body</script> to the document body.
// The HTML parser always synthesizes a body, so a missing one is an error
// in the document tree itself.
func AppendInlineScript(doc *html.Node, attrs []html.Attribute, body string) error {
	target := FindElement(doc, atom.Body)
	if target == nil {
		return fmt.Errorf("document has no <body>")
	}

	script := &html.Node{
		Type:     html.ElementNode,
		DataAtom: atom.Script,
		Data:     "script",
		Attr:     attrs,
	}
	script.AppendChild(&html.Node{
		Type: html.TextNode,
		Data: body,
	})
	target.AppendChild(script)

	return nil
}

// Render serializes doc back to HTML.
func Render(doc *html.Node) (string, error) {
	var b strings.Builder
	if err := html.Render(&b, doc); err != nil {
		return "", err
	}
	return b.String(), nil
}
