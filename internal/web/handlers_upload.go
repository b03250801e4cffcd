package web

import (
	"errors"
	"fmt"
	"net/http"
)

// multipartMemory is the part of a multipart form kept in memory; the rest
// spills to temporary files.
const multipartMemory = 32 << 20

// handleUploadSession decodes an uploaded file (csv, json, yaml or parquet,
// optionally zstd-compressed) and opens a session over it.
func (s *Server) handleUploadSession(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxBodySize())

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.fail(w, r, fmt.Errorf("file too large: %w", err))
			return
		}
		s.fail(w, r, badRequest("invalid form: %v", err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		s.fail(w, r, badRequest("no file provided"))
		return
	}
	defer file.Close()

	sess, err := s.service.OpenUpload(r.Context(), header.Filename, file)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respondOpened(w, r, sess)
}
