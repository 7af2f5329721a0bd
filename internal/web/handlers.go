package web

import (
	"database/sql"
	"errors"
	"log"
	"math"
	"net/http"
	"os"
	"strconv"
	"strings"

	"nstrack/internal/importlog"
	"nstrack/internal/store"
)

const (
	tracksPageSize    = 25
	tracksPageSizeMax = 200
)

type tracksResp struct {
	Items      []store.Track `json:"items"`
	Page       int           `json:"page"`
	PageSize   int           `json:"page_size"`
	Total      int           `json:"total"`
	TotalPages int           `json:"total_pages"`
}

// GET /api/tracks?kind=track&page=1&page_size=25
func (s *Server) handleTracks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	kind := strings.TrimSpace(q.Get("kind")) // "" => all
	page := 1
	if p, err := strconv.Atoi(q.Get("page")); err == nil && p > 0 {
		page = p
	}
	size := tracksPageSize
	if v, err := strconv.Atoi(q.Get("page_size")); err == nil && v > 0 {
		size = min(v, tracksPageSizeMax)
	}

	total, err := s.db.CountTracks(kind)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	totalPages := (total + size - 1) / size
	if totalPages > 0 && page > totalPages {
		page = totalPages
	}

	items, err := s.db.ListTracks(kind, size, (page-1)*size)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if items == nil {
		items = []store.Track{}
	}
	writeJSON(w, http.StatusOK, tracksResp{
		Items:      items,
		Page:       page,
		PageSize:   size,
		Total:      total,
		TotalPages: totalPages,
	})
}

// trackFromPath loads the track named by the {id} path segment and writes
// the error response when there is none.
func (s *Server) trackFromPath(w http.ResponseWriter, r *http.Request) (store.Track, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "bad id")
		return store.Track{}, false
	}
	t, err := s.db.GetTrack(id)
	if errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusNotFound, "no such track")
		return t, false
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return t, false
	}
	return t, true
}

// GET /api/track/{id} -> GeoJSON feature with the track summary as
// properties and [lon, lat, ele] coordinates.
func (s *Server) handleTrackGeoJSON(w http.ResponseWriter, r *http.Request) {
	t, ok := s.trackFromPath(w, r)
	if !ok {
		return
	}
	pts, err := s.db.Trackpoints(t.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	type pt [3]float64
	coords := make([]pt, 0, len(pts))
	for _, p := range pts {
		if math.Abs(p.Lat) > 90 || math.Abs(p.Lon) > 180 {
			continue
		}
		coords = append(coords, pt{p.Lon, p.Lat, p.ElevM})
	}
	if len(coords) < 2 {
		log.Printf("geojson: track %d -> %d points (nothing to draw)", t.ID, len(coords))
	}

	pauses, err := s.db.PauseEvents(t.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"type": "Feature",
		"geometry": map[string]any{
			"type":        "LineString",
			"coordinates": coords,
		},
		"properties": map[string]any{
			"track":  t,
			"pauses": len(pauses),
		},
	})
}

// DELETE /api/track/{id} or POST /api/track/{id}/delete
func (s *Server) handleTrackDelete(w http.ResponseWriter, r *http.Request) {
	t, ok := s.trackFromPath(w, r)
	if !ok {
		return
	}
	raw, err := s.db.DeleteTrack(t.ID)
	if err != nil {
		log.Printf("delete track %d: %v", t.ID, err)
		writeError(w, http.StatusInternalServerError, "failed to delete track")
		return
	}
	if err := os.Remove(raw); err != nil && !errors.Is(err, os.ErrNotExist) {
		importlog.Printf("delete: track %d: raw file: %v", t.ID, err)
	}
	importlog.Printf("delete: track %d (%s)", t.ID, t.SourceName)
	writeJSON(w, http.StatusOK, map[string]int64{"deleted": t.ID})
}
