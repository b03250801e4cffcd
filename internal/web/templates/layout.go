package templates

import (
	"context"
	"time"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/dataviewer/internal/core"
)

// HTMXSource is the script tag source for htmx.
const HTMXSource = "https://unpkg.com/htmx.org@2.0.4"

// Layout wraps body in the page shell.
func Layout(title string, body templ.Component) templ.Component {
	return component(func(ctx context.Context, h *htmlWriter) {
		h.raw("<!DOCTYPE html>\n<html lang=\"en\"><head><meta charset=\"utf-8\">")
		h.raw(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
		h.raw("<title>")
		h.text(title)
		h.raw("</title>")
		h.raw(`<link rel="stylesheet" href="/static/viewer.css">`)
		h.raw("<script")
		h.attr("src", HTMXSource)
		h.raw("></script></head><body>")
		h.raw(`<header class="topbar"><a href="/">Datasets</a></header>`)
		h.raw(`<div id="alerts"></div><main>`)
		h.render(ctx, body)
		h.raw("</main></body></html>")
	})
}

// CatalogPage lists the registered datasets with an upload form.
func CatalogPage(entries []core.Entry) templ.Component {
	return Layout("Datasets", component(func(ctx context.Context, h *htmlWriter) {
		h.raw("<h1>Datasets</h1>")
		if len(entries) == 0 {
			h.raw(`<p class="empty">No datasets registered. Upload a file below.</p>`)
		} else {
			h.raw(`<table class="catalog"><thead><tr><th>Name</th><th>Source</th><th>Rows</th><th>Columns</th><th>Loaded</th><th></th></tr></thead><tbody>`)
			for _, e := range entries {
				h.raw("<tr><td>")
				h.text(e.Name)
				h.raw("</td><td>")
				h.text(string(e.Kind) + ": " + e.Origin)
				h.rawf("</td><td>%d</td><td>%d</td><td>", e.Rows, e.Columns)
				h.text(e.LoadedAt.Format(time.DateTime))
				h.raw("</td><td><button")
				h.attr("hx-post", "/api/sessions")
				h.attr("hx-vals", jsonAttr(map[string]any{"dataset": e.Name}))
				h.attr("hx-target", "#alerts")
				h.raw(">Open</button></td></tr>")
			}
			h.raw("</tbody></table>")
		}
		h.raw(`<h2>Open a file</h2>`)
		h.raw(`<form hx-post="/api/sessions/upload" hx-encoding="multipart/form-data" hx-target="#alerts">`)
		h.raw(`<input type="file" name="file" accept=".csv,.tsv,.txt,.json,.yaml,.yml,.parquet,.zst" required>`)
		h.raw(`<button type="submit">Upload</button></form>`)
	}))
}

// ErrorAlert renders an error message fragment.
func ErrorAlert(message, action, code string) templ.Component {
	return component(func(_ context.Context, h *htmlWriter) {
		h.raw(`<div class="alert alert-error" role="alert"><strong>`)
		h.text(message)
		h.raw("</strong>")
		if action != "" {
			h.raw(" <span>")
			h.text(action)
			h.raw("</span>")
		}
		h.raw(` <code>`)
		h.text(code)
		h.raw("</code></div>")
	})
}
