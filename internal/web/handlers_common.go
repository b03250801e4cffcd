package web

// Shared request parsing and response helpers.

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/JonMunkholm/dataviewer/internal/core"
	"github.com/JonMunkholm/dataviewer/internal/dataset"
	"github.com/JonMunkholm/dataviewer/internal/grid"
	"github.com/JonMunkholm/dataviewer/internal/source"
	"github.com/JonMunkholm/dataviewer/internal/view"
	"github.com/JonMunkholm/dataviewer/internal/web/templates"
)

// DefaultMaxBodySize caps request bodies when no upload limit is configured.
const DefaultMaxBodySize = 100 * 1024 * 1024

func (s *Server) maxBodySize() int64 {
	if s.cfg.Upload.MaxFileSize > 0 {
		return s.cfg.Upload.MaxFileSize
	}
	return DefaultMaxBodySize
}

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

func isJSONBody(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Content-Type"), "application/json")
}

func isYAMLBody(r *http.Request) bool {
	ct := r.Header.Get("Content-Type")
	return strings.Contains(ct, "yaml")
}

// decodeJSON reads one JSON value from the request body. Size-limit errors
// pass through unchanged so they map to 413.
func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return err
		}
		if errors.Is(err, io.EOF) {
			return badRequest("empty body")
		}
		return badRequest("decode json: %v", err)
	}
	return nil
}

// decodeRaw reads a dataset payload as YAML or JSON by Content-Type.
func (s *Server) decodeRaw(w http.ResponseWriter, r *http.Request) (dataset.Raw, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxBodySize())
	decode := source.DecodeJSON
	if isYAMLBody(r) {
		decode = source.DecodeYAML
	}
	raw, err := decode(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return dataset.Raw{}, err
		}
		return dataset.Raw{}, badRequest("%v", err)
	}
	return raw, nil
}

// queryInt parses an optional integer query parameter.
func queryInt(r *http.Request, name string, def int) (int, error) {
	val := r.URL.Query().Get(name)
	if val == "" {
		return def, nil
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return 0, badRequest("%s must be an integer", name)
	}
	return i, nil
}

// formInt parses an integer form value. Missing values yield def.
func formInt(r *http.Request, name string, def int) (int, error) {
	val := strings.TrimSpace(r.FormValue(name))
	if val == "" {
		return def, nil
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return 0, badRequest("%s must be an integer", name)
	}
	return i, nil
}

// decodeIntent reads an intent from a JSON body or, for form posts such as
// HTMX requests, through fromForm.
func decodeIntent[T core.Intent](r *http.Request, fromForm func(*http.Request) (T, error)) (T, error) {
	var in T
	if isJSONBody(r) {
		err := decodeJSON(r, &in)
		return in, err
	}
	if err := r.ParseForm(); err != nil {
		return in, badRequest("parse form: %v", err)
	}
	return fromForm(r)
}

// filtersFromForm reads "index.<level>" and "col.<viewCol>" inputs.
func filtersFromForm(r *http.Request) (core.FiltersChanged, error) {
	var in core.FiltersChanged
	for key, vals := range r.PostForm {
		if len(vals) == 0 {
			continue
		}
		prefix, pos, ok := strings.Cut(key, ".")
		if !ok {
			continue
		}
		n, err := strconv.Atoi(pos)
		if err != nil {
			return in, badRequest("filter %q has no position", key)
		}
		switch prefix {
		case "index":
			in.IndexFilters = append(in.IndexFilters, core.IndexFilter{Level: n, Value: vals[0]})
		case "col":
			in.ColumnFilters = append(in.ColumnFilters, core.ColumnFilter{Col: n, Value: vals[0]})
		}
	}
	return in, nil
}

func columnSortFromForm(r *http.Request) (core.ColumnSort, error) {
	col, err := formInt(r, "columnIndex", -1)
	if err != nil {
		return core.ColumnSort{}, err
	}
	return core.ColumnSort{ColumnIndex: col, SortState: view.Direction(r.FormValue("sortState"))}, nil
}

func indexSortFromForm(r *http.Request) (core.IndexSort, error) {
	level, err := formInt(r, "level", 0)
	if err != nil {
		return core.IndexSort{}, err
	}
	return core.IndexSort{Level: level, SortState: view.Direction(r.FormValue("sortState"))}, nil
}

func columnsFromForm(r *http.Request) (core.ColumnSelectionChanged, error) {
	var in core.ColumnSelectionChanged
	for _, v := range r.PostForm["col"] {
		n, err := strconv.Atoi(v)
		if err != nil {
			return in, badRequest("column %q is not a position", v)
		}
		in.SelectedColumns = append(in.SelectedColumns, n)
	}
	return in, nil
}

func loadMoreFromForm(r *http.Request) (core.LoadMoreRows, error) {
	count, err := formInt(r, "currentRowCount", 0)
	if err != nil {
		return core.LoadMoreRows{}, err
	}
	size, err := formInt(r, "bufferSize", 0)
	if err != nil {
		return core.LoadMoreRows{}, err
	}
	return core.LoadMoreRows{CurrentRowCount: count, BufferSize: size}, nil
}

// resultResponse is the JSON body of an intent response. HeaderRows is set
// when the header must be redrawn.
type resultResponse struct {
	core.Result
	HeaderRows []grid.Row `json:"headerRows,omitempty"`
}

// respondResult writes an intent result. HTMX requests get the whole grid
// fragment, or only the appended rows after load-more.
func (s *Server) respondResult(w http.ResponseWriter, r *http.Request, res core.Result) {
	sess, err := s.service.Session(sessionID(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}

	if isHTMX(r) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if !res.Header && !res.Body {
			width := res.Status.IndexLevels + res.Status.Columns
			templates.BodyRows(sess.ID.String(), templates.WindowOf(res), width).Render(r.Context(), w)
			return
		}
		body := res
		if !res.Body {
			body = sess.FirstWindow()
		}
		templates.Table(viewData(sess, body)).Render(r.Context(), w)
		return
	}

	out := resultResponse{Result: res}
	if res.Header {
		out.HeaderRows = sess.Header()
	}
	writeJSON(w, r, http.StatusOK, out)
}

func viewData(sess *core.Session, first core.Result) templates.ViewData {
	return templates.ViewData{
		SessionID: sess.ID.String(),
		Dataset:   sess.Dataset,
		Header:    sess.Header(),
		Body:      templates.WindowOf(first),
		Status:    first.Status,
	}
}
