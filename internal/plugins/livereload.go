package plugins

import (
	"context"
	"encoding/json"
	"fmt"

	"golang.org/x/net/html"
)

// LiveReloadClient injects a script that reloads the page whenever the
// watch server announces a finished build.
type LiveReloadClient struct {
	// URL is the websocket endpoint, e.g. ws://localhost:35729/livereload
	URL string
}

// Name implements Plugin.
func (LiveReloadClient) Name() string {
	return "livereload-client"
}

// TransformHTML implements HTMLPlugin.
func (l LiveReloadClient) TransformHTML(_ context.Context, doc *html.Node) error {
	if l.URL == "" {
		return nil
	}

	url, err := json.Marshal(l.URL)
	if err != nil {
		return err
	}

	return AppendInlineScript(doc, nil, fmt.Sprintf(liveReloadScript, url))
}

const liveReloadScript = `
(function connect() {
  var ws = new WebSocket(%s);
  ws.onmessage = function (ev) {
    try {
      if (JSON.parse(ev.data).type === "rebuilt") location.reload();
    } catch (e) {}
  };
  ws.onclose = function () { setTimeout(connect, 1000); };
})();
`
