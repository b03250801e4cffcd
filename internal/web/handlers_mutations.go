package web

// Handlers that change session state: intents and data updates. Each one
// answers with the redraw result, see respondResult.

import (
	"net/http"

	"github.com/JonMunkholm/dataviewer/internal/core"
)

// apply runs in against the URL session and writes the result.
func (s *Server) apply(w http.ResponseWriter, r *http.Request, in core.Intent) {
	res, err := s.service.Apply(r.Context(), sessionID(r), in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respondResult(w, r, res)
}

func (s *Server) handleFilters(w http.ResponseWriter, r *http.Request) {
	in, err := decodeIntent(r, filtersFromForm)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.apply(w, r, in)
}

func (s *Server) handleClearFilters(w http.ResponseWriter, r *http.Request) {
	s.apply(w, r, core.ClearFilters{})
}

func (s *Server) handleToggleFilterRow(w http.ResponseWriter, r *http.Request) {
	s.apply(w, r, core.ToggleFilterRow{})
}

func (s *Server) handleSortColumn(w http.ResponseWriter, r *http.Request) {
	in, err := decodeIntent(r, columnSortFromForm)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.apply(w, r, in)
}

func (s *Server) handleSortIndex(w http.ResponseWriter, r *http.Request) {
	in, err := decodeIntent(r, indexSortFromForm)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.apply(w, r, in)
}

func (s *Server) handleSelectColumns(w http.ResponseWriter, r *http.Request) {
	in, err := decodeIntent(r, columnsFromForm)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.apply(w, r, in)
}

func (s *Server) handleLoadMore(w http.ResponseWriter, r *http.Request) {
	in, err := decodeIntent(r, loadMoreFromForm)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.apply(w, r, in)
}

// handleSetData replaces the session dataset.
func (s *Server) handleSetData(w http.ResponseWriter, r *http.Request) {
	raw, err := s.decodeRaw(w, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	res, err := s.service.SetData(r.Context(), sessionID(r), raw)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respondResult(w, r, res)
}

// handlePatchValues updates cell values, keeping the view state when the
// shape is unchanged.
func (s *Server) handlePatchValues(w http.ResponseWriter, r *http.Request) {
	raw, err := s.decodeRaw(w, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	res, err := s.service.PatchValues(r.Context(), sessionID(r), raw)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respondResult(w, r, res)
}
