package templates

import (
	"context"
	"fmt"
	"strconv"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/dataviewer/internal/core"
	"github.com/JonMunkholm/dataviewer/internal/grid"
)

// Window is a run of body rows starting at view row Start.
type Window struct {
	Rows    []grid.Row
	Start   int
	End     int
	HasMore bool
}

// WindowOf converts an intent result to a body window.
func WindowOf(res core.Result) Window {
	return Window{Rows: res.Rows, Start: res.Start, End: res.End, HasMore: res.HasMore}
}

// ViewData is the model of the grid page.
type ViewData struct {
	SessionID string
	Dataset   string
	Header    []grid.Row
	Body      Window
	Status    core.Status
}

func (d ViewData) api(path string) string {
	return "/api/sessions/" + d.SessionID + path
}

// ViewPage is the full grid page.
func ViewPage(d ViewData) templ.Component {
	return Layout(d.Dataset, component(func(ctx context.Context, h *htmlWriter) {
		h.raw("<h1>")
		h.text(d.Dataset)
		h.raw(`</h1><nav class="toolbar">`)
		toolbarButton(h, d.api("/filters/clear"), "Clear filters")
		toolbarButton(h, d.api("/filter-row"), "Toggle filter row")
		h.raw("<button")
		h.attr("hx-get", d.api("/columns/tree"))
		h.attr("hx-target", "#columns")
		h.raw(">Columns</button>")
		h.raw("<button")
		h.attr("hx-delete", d.api(""))
		h.attr("hx-confirm", "Close this view?")
		h.raw(">Close</button></nav>")
		h.raw(`<aside id="columns"></aside><aside id="record"></aside>`)
		h.render(ctx, Table(d))
	}))
}

func toolbarButton(h *htmlWriter, url, label string) {
	h.raw("<button")
	h.attr("hx-post", url)
	h.attr("hx-target", "#grid")
	h.attr("hx-swap", "outerHTML")
	h.raw(">")
	h.text(label)
	h.raw("</button>")
}

// Table is the swappable grid fragment: status line, header and the first
// body window.
func Table(d ViewData) templ.Component {
	return component(func(ctx context.Context, h *htmlWriter) {
		h.raw(`<div id="grid">`)
		h.render(ctx, StatusLine(d.Status))
		h.raw(`<table class="grid"><thead>`)
		h.render(ctx, HeaderRows(d.SessionID, d.Header))
		h.raw(`</thead><tbody id="grid-body">`)
		h.render(ctx, BodyRows(d.SessionID, d.Body, d.Status.IndexLevels+d.Status.Columns))
		h.raw("</tbody></table></div>")
	})
}

// StatusLine summarizes the visible rows and columns.
func StatusLine(st core.Status) templ.Component {
	return component(func(_ context.Context, h *htmlWriter) {
		h.raw(`<p class="status">`)
		h.rawf("%d of %d rows, %d of %d columns", st.Rows, st.TotalRows, st.Columns, st.TotalColumns)
		if st.Filtered {
			h.raw(", filtered")
		}
		if st.Sort != nil {
			target := "column"
			if st.Sort.OnIndex {
				target = "index level"
			}
			h.text(fmt.Sprintf(", sorted by %s %d %s", target, st.Sort.Position, st.Sort.Direction))
		}
		h.raw("</p>")
	})
}

// HeaderRows renders the header rows. Leaf and index-name cells post sort
// intents; filter cells are inputs posting the whole filter row.
func HeaderRows(sessionID string, rows []grid.Row) templ.Component {
	api := ViewData{SessionID: sessionID}.api
	return component(func(_ context.Context, h *htmlWriter) {
		for _, row := range rows {
			h.raw("<tr>")
			for _, c := range row {
				h.raw("<th")
				cellAttrs(h, c)
				switch {
				case c.Role == grid.RoleHeaderLeaf && c.Attrs.ViewCol >= 0 && c.Text != "":
					h.attr("hx-post", api("/sort/column"))
					h.attr("hx-vals", jsonAttr(map[string]any{
						"columnIndex": c.Attrs.ViewCol,
						"sortState":   nextSort(c.Attrs.Sort),
					}))
					swapGrid(h)
				case c.Role == grid.RoleIndexLabel && !c.Attrs.Leading:
					h.attr("hx-post", api("/sort/index"))
					h.attr("hx-vals", jsonAttr(map[string]any{
						"level":     c.Level,
						"sortState": nextSort(c.Attrs.Sort),
					}))
					swapGrid(h)
				}
				h.raw(">")
				if c.Role == grid.RoleHeaderFilter {
					filterInput(h, api("/filters"), c)
				} else {
					h.text(c.Text)
					if c.Attrs.Sort != "" {
						h.raw(` <span class="sort">`)
						h.text(sortGlyph(c.Attrs.Sort))
						h.raw("</span>")
					}
				}
				h.raw("</th>")
			}
			h.raw("</tr>")
		}
	})
}

func filterInput(h *htmlWriter, url string, c grid.Cell) {
	name := "index." + strconv.Itoa(c.Level)
	if c.Attrs.ViewCol >= 0 {
		name = "col." + strconv.Itoa(c.Attrs.ViewCol)
	}
	h.raw(`<input type="search" class="filter"`)
	h.attr("name", name)
	h.attr("value", c.Text)
	h.attr("hx-post", url)
	h.attr("hx-trigger", "keyup changed delay:400ms, search")
	h.attr("hx-include", "#grid thead input.filter")
	swapGrid(h)
	h.raw(">")
}

func swapGrid(h *htmlWriter) {
	h.attr("hx-target", "#grid")
	h.attr("hx-swap", "outerHTML")
}

// BodyRows renders a window of body rows followed, when more rows exist, by
// a sentinel row that loads the next window once scrolled into view.
func BodyRows(sessionID string, win Window, width int) templ.Component {
	api := ViewData{SessionID: sessionID}.api
	return component(func(_ context.Context, h *htmlWriter) {
		for _, row := range win.Rows {
			h.raw("<tr>")
			for _, c := range row {
				tag := "td"
				if c.Role == grid.RoleIndexLabel {
					tag = "th"
				}
				h.raw("<" + tag)
				cellAttrs(h, c)
				if c.Role == grid.RoleDataCell {
					h.attr("hx-get", api("/record/"+strconv.Itoa(c.Attrs.ViewRow)))
					h.attr("hx-target", "#record")
				}
				h.raw(">")
				h.text(c.Text)
				h.raw("</" + tag + ">")
			}
			h.raw("</tr>")
		}
		if win.HasMore {
			h.raw(`<tr class="sentinel"`)
			h.attr("hx-post", api("/load-more"))
			h.attr("hx-vals", jsonAttr(map[string]any{"currentRowCount": win.End}))
			h.attr("hx-trigger", "revealed")
			h.attr("hx-swap", "outerHTML")
			h.raw("><td")
			h.intAttr("colspan", max(width, 1))
			h.raw(">Loading more rows</td></tr>")
		}
	})
}

func cellAttrs(h *htmlWriter, c grid.Cell) {
	h.attr("class", cellClass(c))
	if c.RowSpan > 1 {
		h.intAttr("rowspan", c.RowSpan)
	}
	if c.ColSpan > 1 {
		h.intAttr("colspan", c.ColSpan)
	}
	if c.Attrs.ViewCol >= 0 {
		h.intAttr("data-col", c.Attrs.ViewCol)
	}
	if c.Attrs.ViewRow >= 0 {
		h.intAttr("data-row", c.Attrs.ViewRow)
	}
	if c.Attrs.DType != "" {
		h.attr("data-dtype", c.Attrs.DType)
	}
}

func cellClass(c grid.Cell) string {
	class := string(c.Role) + " level-" + strconv.Itoa(c.Level)
	if c.Attrs.IndexEdge {
		class += " index-edge"
	}
	if c.Attrs.GroupEdge {
		class += " group-edge"
	}
	if c.Attrs.Leading {
		class += " leading"
	}
	return class
}

func nextSort(current string) string {
	switch current {
	case "asc":
		return "desc"
	case "desc":
		return "none"
	}
	return "asc"
}

func sortGlyph(dir string) string {
	if dir == "desc" {
		return "▼"
	}
	return "▲"
}
