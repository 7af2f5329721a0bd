package web

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"nstrack/internal/cfg"
	"nstrack/internal/importer"
	"nstrack/internal/metrics"
	"nstrack/internal/store"
)

type Server struct {
	db  *store.DB
	im  *importer.Importer
	m   *metrics.Metrics
	mux *http.ServeMux
}

// New returns the HTTP server for the archive API. m may be nil.
func New(c cfg.Config, db *store.DB, im *importer.Importer, m *metrics.Metrics) *http.Server {
	return &http.Server{Addr: c.HTTPAddr, Handler: NewHandler(db, im, m)}
}

// NewHandler builds the routes. Requests need basic auth once a user
// exists.
func NewHandler(db *store.DB, im *importer.Importer, m *metrics.Metrics) http.Handler {
	mux := http.NewServeMux()
	s := &Server{db: db, im: im, m: m, mux: mux}

	mux.HandleFunc("GET /api/tracks", s.handleTracks)
	mux.HandleFunc("GET /api/track/{id}", s.handleTrackGeoJSON)
	mux.HandleFunc("GET /api/track/{id}/gpx", s.handleTrackGPX)
	mux.HandleFunc("GET /api/track/{id}/fit", s.handleTrackFIT)
	mux.HandleFunc("DELETE /api/track/{id}", s.handleTrackDelete)
	mux.HandleFunc("POST /api/track/{id}/delete", s.handleTrackDelete)
	mux.HandleFunc("GET /api/series/{id}", s.handleTrackSeries)
	mux.HandleFunc("POST /api/import", s.handleImportNow)
	mux.HandleFunc("POST /api/upload", s.handleFileUpload)
	mux.HandleFunc("GET /api/logs", s.handleLogsSSE)
	if s.m != nil {
		mux.Handle("GET /metrics", s.m.Handler())
	}

	handler := http.Handler(s)
	if ok, err := db.HasUsers(); err != nil {
		log.Printf("http: user lookup failed, requiring auth: %v", err)
		handler = withBasicAuth(handler, db)
	} else if ok {
		handler = withBasicAuth(handler, db)
	} else {
		log.Printf("http: no users configured, authentication disabled")
	}
	return handler
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func withBasicAuth(next http.Handler, db *store.DB) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if ok {
			user, err := db.Authenticate(u, p)
			if err == nil {
				db.UpdateLastLogin(user.ID)
				next.ServeHTTP(w, r)
				return
			}
			if !errors.Is(err, store.ErrBadCredentials) {
				log.Printf("http: auth: %v", err)
			}
		}
		w.Header().Set("WWW-Authenticate", `Basic realm="nstrack"`)
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
