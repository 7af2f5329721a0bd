package web

import (
	"database/sql"
	"math"
	"net/http"
	"strconv"
)

// GET /api/series/{id}?width=900
// Returns time-bucketed speed, elevation and distance so a chart can be drawn
// without the full point list.
func (s *Server) handleTrackSeries(w http.ResponseWriter, r *http.Request) {
	t, ok := s.trackFromPath(w, r)
	if !ok {
		return
	}

	// width → target number of points
	width := 900
	if q := r.URL.Query().Get("width"); q != "" {
		if v, err := strconv.Atoi(q); err == nil && v > 100 {
			width = v
		}
	}

	var span sql.NullFloat64
	if err := s.db.QueryRow(`SELECT MAX(t_offset_s) FROM trackpoints WHERE track_id=?`, t.ID).Scan(&span); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	// Choose a bucket so we return roughly width..2*width points
	bucket := 1
	if span.Valid && span.Float64 > 0 {
		bucket = max(int(math.Ceil(span.Float64/(float64(width)*1.5))), 1)
	}

	rows, err := s.db.Query(`
		SELECT (CAST(t_offset_s AS INTEGER) / ?) * ? AS t_bin,
		       AVG(speed_mps) AS spd,
		       AVG(elev_m)    AS elev,
		       MAX(dist_m)    AS dist
		FROM trackpoints
		WHERE track_id=?
		GROUP BY t_bin
		ORDER BY t_bin
	`, bucket, bucket, t.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	defer rows.Close()

	type series struct {
		Bucket int       `json:"bucket"` // seconds per sample
		T      []int     `json:"t"`      // seconds since track start
		Spd    []float64 `json:"spd"`    // m/s
		Elev   []float64 `json:"elev"`   // m
		Dist   []float64 `json:"dist"`   // m
	}
	out := series{Bucket: bucket, T: []int{}, Spd: []float64{}, Elev: []float64{}, Dist: []float64{}}

	for rows.Next() {
		var tbin int
		var spd, elev, dist float64
		if err := rows.Scan(&tbin, &spd, &elev, &dist); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		out.T = append(out.T, tbin)
		out.Spd = append(out.Spd, spd)
		out.Elev = append(out.Elev, elev)
		out.Dist = append(out.Dist, dist)
	}
	if err := rows.Err(); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, out)
}
