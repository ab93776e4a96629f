package plugins

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

func parseDoc(t *testing.T, src string) *html.Node {
	t.Helper()
	doc, err := html.Parse(strings.NewReader(src))
	require.NoError(t, err)
	return doc
}

func TestModuleLoaderShimScriptIsPure(t *testing.T) {
	first := ModuleLoaderShimScript()

	assert.Equal(t, first, ModuleLoaderShimScript())
	assert.Contains(t, first, "globalThis.__webpack_require__")
	assert.Contains(t, first, "return import(id);")
}

func TestModuleLoaderShimAppendsToBody(t *testing.T) {
	doc := parseDoc(t, `<!doctype html><html><head><title>x</title></head><body><div id="root"></div></body></html>`)

	require.NoError(t, ModuleLoaderShim{}.TransformHTML(context.Background(), doc))

	body := FindElement(doc, atom.Body)
	require.NotNil(t, body)
	last := body.LastChild
	require.NotNil(t, last)
	assert.Equal(t, atom.Script, last.DataAtom)
	require.NotNil(t, last.FirstChild)
	assert.Equal(t, ModuleLoaderShimScript(), last.FirstChild.Data)

	out, err := Render(doc)
	require.NoError(t, err)
	assert.Contains(t, out, `<div id="root"></div><script>`)
	assert.True(t, strings.HasSuffix(out, "</script></body></html>"))
}

func TestModuleLoaderShimDeterministic(t *testing.T) {
	src := `<html><body><p>hi</p></body></html>`

	render := func() string {
		doc := parseDoc(t, src)
		require.NoError(t, ModuleLoaderShim{}.TransformHTML(context.Background(), doc))
		out, err := Render(doc)
		require.NoError(t, err)
		return out
	}

	assert.Equal(t, render(), render())
}

func TestModuleLoaderShimWithoutBodyMarkup(t *testing.T) {
	doc := parseDoc(t, `<title>bare</title>`)

	require.NoError(t, ModuleLoaderShim{}.TransformHTML(context.Background(), doc))

	out, err := Render(doc)
	require.NoError(t, err)
	assert.Contains(t, out, "<body><script>")
}

func TestLiveReloadClient(t *testing.T) {
	doc := parseDoc(t, `<html><body></body></html>`)

	plugin := LiveReloadClient{URL: "ws://localhost:35729/livereload"}
	require.NoError(t, plugin.TransformHTML(context.Background(), doc))

	out, err := Render(doc)
	require.NoError(t, err)
	assert.Contains(t, out, `new WebSocket("ws://localhost:35729/livereload")`)
	assert.Contains(t, out, `"rebuilt"`)
}

func TestLiveReloadClientDisabled(t *testing.T) {
	doc := parseDoc(t, `<html><body></body></html>`)

	require.NoError(t, LiveReloadClient{}.TransformHTML(context.Background(), doc))
	assert.Nil(t, FindElement(doc, atom.Script))
}

type failingPlugin struct{}

func (failingPlugin) Name() string { return "failing" }

func (failingPlugin) TransformHTML(context.Context, *html.Node) error {
	return errors.New("nope")
}

func TestRun(t *testing.T) {
	doc := parseDoc(t, `<html><body></body></html>`)

	err := Run(context.Background(), doc, ModuleLoaderShim{}, failingPlugin{}, LiveReloadClient{URL: "ws://x"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "html plugin failing")

	scripts := 0
	body := FindElement(doc, atom.Body)
	for c := body.FirstChild; c != nil; c = c.NextSibling {
		scripts++
	}
	assert.Equal(t, 1, scripts)
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Run(ctx, parseDoc(t, `<p></p>`), ModuleLoaderShim{})
	assert.ErrorIs(t, err, context.Canceled)
}
