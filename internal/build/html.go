package build

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	builderrors "github.com/wakuwork/wakuwork/internal/errors"
	"github.com/wakuwork/wakuwork/internal/plugins"
	"github.com/wakuwork/wakuwork/internal/scanner"
)

// HTMLEntry is the parsed HTML entry of a project together with the local
// module scripts and stylesheets it references.
type HTMLEntry struct {
	doc     *html.Node
	scripts []htmlRef
	styles  []htmlRef
}

type htmlRef struct {
	node *html.Node
	attr string
	path string
}

// LoadHTMLEntry parses the HTML file at path. References starting with "/"
// resolve against root, others against the file's directory. Remote and
// data URLs are left alone.
func LoadHTMLEntry(fsys afero.Fs, root, path string) (*HTMLEntry, error) {
	raw, err := afero.ReadFile(fsys, path)
	if err != nil {
		return nil, builderrors.NewIOError("READ_FAILED", "failed to read HTML entry", err).
			WithLocation(path, 0, 0)
	}

	doc, err := html.Parse(bytes.NewReader(raw))
	if err != nil {
		return nil, builderrors.NewParseError("HTML_PARSE_FAILED", "failed to parse HTML entry", err).
			WithLocation(path, 0, 0)
	}

	entry := &HTMLEntry{doc: doc}
	dir := filepath.Dir(path)

	var visit func(n *html.Node)
	visit = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Script:
				if strings.EqualFold(attr(n, "type"), "module") {
					if local, ok := localRef(root, dir, attr(n, "src")); ok {
						entry.scripts = append(entry.scripts, htmlRef{node: n, attr: "src", path: local})
					}
				}
			case atom.Link:
				if hasToken(attr(n, "rel"), "stylesheet") {
					if local, ok := localRef(root, dir, attr(n, "href")); ok {
						entry.styles = append(entry.styles, htmlRef{node: n, attr: "href", path: local})
					}
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	visit(doc)

	return entry, nil
}

// Entries returns the bundler entries the document references: module
// scripts as main0, main1, ... and stylesheets as style0, style1, ...
func (e *HTMLEntry) Entries() []scanner.Entry {
	entries := make([]scanner.Entry, 0, len(e.scripts)+len(e.styles))
	for i, ref := range e.scripts {
		entries = append(entries, scanner.Entry{Name: fmt.Sprintf("main%d", i), Path: ref.path})
	}
	for i, ref := range e.styles {
		entries = append(entries, scanner.Entry{Name: fmt.Sprintf("style%d", i), Path: ref.path})
	}
	return entries
}

// Rewrite points every referenced script and stylesheet at its emitted
// file under basePath. Stylesheets split out of a script entry are linked
// from <head>. References without an emitted unit are left unchanged.
func (e *HTMLEntry) Rewrite(units []OutputUnit, basePath string) {
	byName := make(map[string]OutputUnit, len(units))
	for _, unit := range units {
		byName[unit.Name] = unit
	}

	linked := make(map[string]bool)
	for i, ref := range e.scripts {
		unit, ok := byName[fmt.Sprintf("main%d", i)]
		if !ok {
			continue
		}
		setAttr(ref.node, ref.attr, basePath+unit.FileName)

		if unit.CSSBundle != "" && !linked[unit.CSSBundle] {
			linked[unit.CSSBundle] = true
			e.linkStylesheet(basePath + unit.CSSBundle)
		}
	}

	for i, ref := range e.styles {
		if unit, ok := byName[fmt.Sprintf("style%d", i)]; ok {
			setAttr(ref.node, ref.attr, basePath+unit.FileName)
		}
	}
}

// Render runs the HTML plugins over the document and serializes it.
func (e *HTMLEntry) Render(ctx context.Context, htmlPlugins ...plugins.HTMLPlugin) (string, error) {
	if err := plugins.Run(ctx, e.doc, htmlPlugins...); err != nil {
		return "", err
	}
	return plugins.Render(e.doc)
}

func (e *HTMLEntry) linkStylesheet(href string) {
	head := plugins.FindElement(e.doc, atom.Head)
	if head == nil {
		return
	}
	head.AppendChild(&html.Node{
		Type:     html.ElementNode,
		DataAtom: atom.Link,
		Data:     "link",
		Attr: []html.Attribute{
			{Key: "rel", Val: "stylesheet"},
			{Key: "href", Val: href},
		},
	})
}

// localRef resolves ref to a file path when it names a local file.
func localRef(root, dir, ref string) (string, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" || strings.HasPrefix(ref, "//") || strings.HasPrefix(ref, "#") {
		return "", false
	}

	lower := strings.ToLower(ref)
	for _, scheme := range []string{"http:", "https:", "data:", "blob:"} {
		if strings.HasPrefix(lower, scheme) {
			return "", false
		}
	}

	if i := strings.IndexAny(ref, "?#"); i >= 0 {
		ref = ref[:i]
	}

	if strings.HasPrefix(ref, "/") {
		return filepath.Join(root, filepath.FromSlash(ref)), true
	}
	return filepath.Join(dir, filepath.FromSlash(ref)), true
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Namespace == "" && strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}
	return ""
}

func setAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && strings.EqualFold(a.Key, key) {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

func hasToken(list, token string) bool {
	for _, field := range strings.Fields(list) {
		if strings.EqualFold(field, token) {
			return true
		}
	}
	return false
}
