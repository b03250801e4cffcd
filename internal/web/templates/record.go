package templates

import (
	"context"
	"strconv"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/dataviewer/internal/grid"
)

// RecordPanel is the single-row detail view, grouped by column label path.
func RecordPanel(sessionID string, rec *grid.Record) templ.Component {
	api := ViewData{SessionID: sessionID}.api
	return component(func(_ context.Context, h *htmlWriter) {
		h.raw(`<section class="record"><h2>`)
		h.text(rec.IndexText)
		h.rawf(`</h2><p class="position">Row %d of %d</p>`, rec.Position, rec.Total)
		for _, g := range rec.Groups {
			h.raw("<fieldset><legend>")
			h.text(g.Title)
			h.raw("</legend><dl>")
			for _, f := range g.Fields {
				h.raw("<dt>")
				h.text(f.LabelText)
				h.raw("</dt><dd")
				if f.DType != "" {
					h.attr("data-dtype", f.DType)
				}
				h.raw(">")
				h.text(f.Text)
				h.raw("</dd>")
			}
			h.raw("</dl></fieldset>")
		}
		h.raw(`<nav class="pager">`)
		if rec.ViewRow > 0 {
			recordLink(h, api("/record/"+strconv.Itoa(rec.ViewRow-1)), "Previous")
		}
		if rec.Position < rec.Total {
			recordLink(h, api("/record/"+strconv.Itoa(rec.ViewRow+1)), "Next")
		}
		h.raw("</nav></section>")
	})
}

func recordLink(h *htmlWriter, url, label string) {
	h.raw("<button")
	h.attr("hx-get", url)
	h.attr("hx-target", "#record")
	h.raw(">")
	h.text(label)
	h.raw("</button>")
}

// ColumnSelector renders the column tree as a checkbox form posting a
// column-selection intent.
func ColumnSelector(sessionID string, tree []grid.TreeNode) templ.Component {
	api := ViewData{SessionID: sessionID}.api
	return component(func(_ context.Context, h *htmlWriter) {
		h.raw("<form")
		h.attr("hx-post", api("/columns"))
		swapGrid(h)
		h.raw(">")
		treeList(h, tree)
		h.raw(`<button type="submit">Apply</button></form>`)
	})
}

func treeList(h *htmlWriter, nodes []grid.TreeNode) {
	h.raw(`<ul class="column-tree">`)
	for _, n := range nodes {
		h.raw("<li>")
		if len(n.Children) > 0 {
			h.raw("<span>")
			h.text(n.Text)
			h.raw("</span>")
			treeList(h, n.Children)
		} else {
			h.raw(`<label><input type="checkbox" name="col"`)
			h.intAttr("value", n.Value)
			if n.Selected {
				h.raw(" checked")
			}
			h.raw("> ")
			h.text(n.Text)
			h.raw("</label>")
		}
		h.raw("</li>")
	}
	h.raw("</ul>")
}
