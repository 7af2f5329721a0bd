package web

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"nstrack/internal/fitx"
	"nstrack/internal/gpx"
	"nstrack/internal/nst"
	"nstrack/internal/store"
)

// decodeStored re-decodes the archived file of a track.
func (s *Server) decodeStored(w http.ResponseWriter, t store.Track) (*nst.File, bool) {
	if s.im == nil {
		writeError(w, http.StatusServiceUnavailable, "importer not available")
		return nil, false
	}
	f, err := s.im.Decode(t)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("decode %s: %v", t.SourceName, err))
		return nil, false
	}
	return f, true
}

func attachment(w http.ResponseWriter, t store.Track, ext, contentType string) {
	name := strings.TrimSuffix(t.SourceName, filepath.Ext(t.SourceName))
	if name == "" {
		name = fmt.Sprintf("track-%d", t.ID)
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s%s"`, name, ext))
}

// GET /api/track/{id}/gpx
func (s *Server) handleTrackGPX(w http.ResponseWriter, r *http.Request) {
	t, ok := s.trackFromPath(w, r)
	if !ok {
		return
	}
	f, ok := s.decodeStored(w, t)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := gpx.Write(&buf, f); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	attachment(w, t, ".gpx", "application/gpx+xml")
	_, _ = buf.WriteTo(w)
}

// GET /api/track/{id}/fit
func (s *Server) handleTrackFIT(w http.ResponseWriter, r *http.Request) {
	t, ok := s.trackFromPath(w, r)
	if !ok {
		return
	}
	f, ok := s.decodeStored(w, t)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := fitx.Encode(&buf, f); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, fitx.ErrNoPoints) {
			status = http.StatusUnprocessableEntity
		}
		writeError(w, status, err.Error())
		return
	}
	attachment(w, t, ".fit", "application/vnd.ant.fit")
	_, _ = buf.WriteTo(w)
}
