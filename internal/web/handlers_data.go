package web

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/dataviewer/internal/core"
	"github.com/JonMunkholm/dataviewer/internal/grid"
	"github.com/JonMunkholm/dataviewer/internal/web/templates"
)

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	sess, err := s.service.Session(sessionID(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, sess.Status())
}

// headerResponse is the JSON body of the header endpoint.
type headerResponse struct {
	Rows   []grid.Row  `json:"rows"`
	Status core.Status `json:"status"`
}

func (s *Server) handleHeader(w http.ResponseWriter, r *http.Request) {
	sess, err := s.service.Session(sessionID(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	rows := sess.Header()
	if isHTMX(r) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		templates.HeaderRows(sess.ID.String(), rows).Render(r.Context(), w)
		return
	}
	writeJSON(w, r, http.StatusOK, headerResponse{Rows: rows, Status: sess.Status()})
}

// bodyResponse is the JSON body of the body window endpoint.
type bodyResponse struct {
	Start     int        `json:"start"`
	End       int        `json:"end"`
	TotalRows int        `json:"totalRows"`
	HasMore   bool       `json:"hasMore"`
	Rows      []grid.Row `json:"rows"`
}

// handleBody returns the window [start, end) of the body. end defaults to
// one buffer past start; both are clipped to the view.
func (s *Server) handleBody(w http.ResponseWriter, r *http.Request) {
	sess, err := s.service.Session(sessionID(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	start, err := queryInt(r, "start", 0)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	end, err := queryInt(r, "end", -1)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if r.URL.Query().Has("end") {
		end = max(end, start, 0)
	}

	bw := sess.Window(start, end)
	st := bw.Status

	if isHTMX(r) {
		win := templates.Window{Rows: bw.Rows, Start: bw.Start, End: bw.End, HasMore: bw.HasMore}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		templates.BodyRows(sess.ID.String(), win, st.IndexLevels+st.Columns).Render(r.Context(), w)
		return
	}
	writeJSON(w, r, http.StatusOK, bodyResponse{
		Start:     bw.Start,
		End:       bw.End,
		TotalRows: st.Rows,
		HasMore:   bw.HasMore,
		Rows:      bw.Rows,
	})
}

// handleRecord returns the detail view of one view row.
func (s *Server) handleRecord(w http.ResponseWriter, r *http.Request) {
	sess, err := s.service.Session(sessionID(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	row, err := strconv.Atoi(chi.URLParam(r, "row"))
	if err != nil {
		s.fail(w, r, badRequest("row must be an integer"))
		return
	}
	rec, err := sess.Record(row)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if isHTMX(r) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		templates.RecordPanel(sess.ID.String(), rec).Render(r.Context(), w)
		return
	}
	writeJSON(w, r, http.StatusOK, rec)
}

// handleColumnTree returns the column selector tree.
func (s *Server) handleColumnTree(w http.ResponseWriter, r *http.Request) {
	sess, err := s.service.Session(sessionID(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	tree := sess.ColumnTree()
	if isHTMX(r) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		templates.ColumnSelector(sess.ID.String(), tree).Render(r.Context(), w)
		return
	}
	if tree == nil {
		tree = []grid.TreeNode{}
	}
	writeJSON(w, r, http.StatusOK, tree)
}
