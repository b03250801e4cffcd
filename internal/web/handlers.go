package web

import (
	"net/http"

	"github.com/JonMunkholm/dataviewer/internal/core"
	"github.com/JonMunkholm/dataviewer/internal/dataset"
	"github.com/JonMunkholm/dataviewer/internal/web/templates"
)

// handleCatalog renders the dataset list.
func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	templates.CatalogPage(s.service.Catalog().All()).Render(r.Context(), w)
}

// handleViewPage renders the grid page of an open session.
func (s *Server) handleViewPage(w http.ResponseWriter, r *http.Request) {
	sess, err := s.service.Session(sessionID(r))
	if err != nil {
		s.respondError(w, r, err, http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	templates.ViewPage(viewData(sess, sess.FirstWindow())).Render(r.Context(), w)
}

// handleListDatasets returns the catalog as JSON.
func (s *Server) handleListDatasets(w http.ResponseWriter, r *http.Request) {
	entries := s.service.Catalog().All()
	if entries == nil {
		entries = []core.Entry{}
	}
	writeJSON(w, r, http.StatusOK, entries)
}

// createSessionRequest opens either a catalog dataset by name or an inline
// payload.
type createSessionRequest struct {
	Dataset string `json:"dataset"`
	Name    string `json:"name"`
	dataset.Raw
}

// sessionResponse describes a newly opened session.
type sessionResponse struct {
	ID      string      `json:"id"`
	Dataset string      `json:"dataset"`
	URL     string      `json:"url"`
	Status  core.Status `json:"status"`
}

// handleCreateSession opens a session from JSON or a form field "dataset".
func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var (
		sess *core.Session
		err  error
	)
	if isJSONBody(r) {
		r.Body = http.MaxBytesReader(w, r.Body, s.maxBodySize())
		var req createSessionRequest
		if err := decodeJSON(r, &req); err != nil {
			s.fail(w, r, err)
			return
		}
		if req.Dataset != "" {
			sess, err = s.service.OpenDataset(ctx, req.Dataset)
		} else {
			name := req.Name
			if name == "" {
				name = "payload"
			}
			sess, err = s.service.OpenRaw(ctx, name, req.Raw)
		}
	} else {
		name := r.FormValue("dataset")
		if name == "" {
			s.fail(w, r, badRequest("dataset is required"))
			return
		}
		sess, err = s.service.OpenDataset(ctx, name)
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respondOpened(w, r, sess)
}

// respondOpened redirects HTMX clients to the grid page and returns the
// session description to everyone else.
func (s *Server) respondOpened(w http.ResponseWriter, r *http.Request, sess *core.Session) {
	url := "/view/" + sess.ID.String()
	if isHTMX(r) {
		w.Header().Set("HX-Redirect", url)
		w.WriteHeader(http.StatusCreated)
		return
	}
	w.Header().Set("Location", url)
	writeJSON(w, r, http.StatusCreated, sessionResponse{
		ID:      sess.ID.String(),
		Dataset: sess.Dataset,
		URL:     url,
		Status:  sess.Status(),
	})
}

// handleCloseSession drops a session.
func (s *Server) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	if err := s.service.Close(r.Context(), sessionID(r)); err != nil {
		s.fail(w, r, err)
		return
	}
	if isHTMX(r) {
		w.Header().Set("HX-Redirect", "/")
	}
	w.WriteHeader(http.StatusNoContent)
}

// healthResponse is the body of /healthz.
type healthResponse struct {
	Status   string                 `json:"status"`
	Sessions int                    `json:"sessions"`
	Datasets int                    `json:"datasets"`
	Loads    core.LoadLimiterStatus `json:"loads"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, healthResponse{
		Status:   "ok",
		Sessions: s.service.SessionCount(),
		Datasets: s.service.Catalog().Len(),
		Loads:    s.service.Limiter().Status(),
	})
}
