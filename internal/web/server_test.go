package web

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"nstrack/internal/cfg"
	"nstrack/internal/fitx"
	"nstrack/internal/importer"
	"nstrack/internal/metrics"
	"nstrack/internal/nst/nsttest"
	"nstrack/internal/store"
)

func newTestServer(t *testing.T, user, pass string) (http.Handler, *store.DB) {
	t.Helper()
	root := t.TempDir()
	db, err := store.Open(filepath.Join(root, "nstrack.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := store.Migrate(db); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	if user != "" {
		if _, err := db.CreateUser(user, pass); err != nil {
			t.Fatalf("CreateUser: %v", err)
		}
	}
	c := cfg.Default()
	c.RawStore = filepath.Join(root, "raw")
	m := metrics.New()
	return NewHandler(db, importer.New(c, db, m), m), db
}

func do(h http.Handler, method, target string, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	if body == nil {
		body = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, target, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func upload(t *testing.T, h http.Handler, files map[string][]byte) uploadResponse {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for name, data := range files {
		fw, err := mw.CreateFormFile("files", name)
		if err != nil {
			t.Fatal(err)
		}
		_, _ = fw.Write(data)
	}
	mw.Close()
	rec := do(h, "POST", "/api/upload", &body, mw.FormDataContentType())
	var resp uploadResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("upload response: %v", err)
	}
	return resp
}

func sampleTrack() []byte {
	start := time.Date(2008, 9, 20, 10, 0, 0, 0, time.UTC)
	return nsttest.Track{ID: 21, Name: "Forest loop", Activity: 11, Start: start, TZHours: 3, Points: 5}.Bytes()
}

func TestTrackLifecycle(t *testing.T) {
	h, _ := newTestServer(t, "", "")

	rec := do(h, "GET", "/api/tracks", nil, "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"items":[]`) {
		t.Fatalf("Expected an empty list, got %d %s", rec.Code, rec.Body)
	}

	resp := upload(t, h, map[string][]byte{"W0021.dat": sampleTrack(), "notes.txt": []byte("x")})
	if resp.Imported != 1 || resp.Failed != 1 || len(resp.IDs) != 1 {
		t.Fatalf("Unexpected upload response %+v", resp)
	}
	id := resp.IDs[0]
	base := "/api/track/" + itoa(id)

	if again := upload(t, h, map[string][]byte{"W0021.dat": sampleTrack()}); again.Duplicates != 1 {
		t.Errorf("Expected a duplicate upload, got %+v", again)
	}

	var list tracksResp
	rec = do(h, "GET", "/api/tracks?kind=track", nil, "")
	if err := json.NewDecoder(rec.Body).Decode(&list); err != nil {
		t.Fatal(err)
	}
	if list.Total != 1 || len(list.Items) != 1 || list.Items[0].Name != "Forest loop" || list.Items[0].Activity != "Hiking" {
		t.Fatalf("Unexpected list %+v", list)
	}

	var feat struct {
		Geometry struct {
			Type        string       `json:"type"`
			Coordinates [][3]float64 `json:"coordinates"`
		} `json:"geometry"`
	}
	rec = do(h, "GET", base, nil, "")
	if err := json.NewDecoder(rec.Body).Decode(&feat); err != nil {
		t.Fatal(err)
	}
	if feat.Geometry.Type != "LineString" || len(feat.Geometry.Coordinates) != 5 {
		t.Errorf("Unexpected geometry %+v", feat.Geometry)
	}

	rec = do(h, "GET", base+"/gpx", nil, "")
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "application/gpx+xml" ||
		!strings.Contains(rec.Body.String(), "<name>[Forest loop]</name>") {
		t.Errorf("Unexpected GPX response %d %q", rec.Code, rec.Header().Get("Content-Type"))
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, `filename="W0021.gpx"`) {
		t.Errorf("Unexpected disposition %q", cd)
	}

	rec = do(h, "GET", base+"/fit", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("FIT export: %d %s", rec.Code, rec.Body)
	}
	if _, recs, err := fitx.Read(rec.Body); err != nil || len(recs) != 5 {
		t.Errorf("Expected 5 FIT records, got %d (%v)", len(recs), err)
	}

	var series struct {
		Bucket int       `json:"bucket"`
		T      []int     `json:"t"`
		Dist   []float64 `json:"dist"`
	}
	rec = do(h, "GET", "/api/series/"+itoa(id), nil, "")
	if err := json.NewDecoder(rec.Body).Decode(&series); err != nil {
		t.Fatal(err)
	}
	if series.Bucket != 1 || len(series.T) != 5 || series.Dist[4] != 12 {
		t.Errorf("Unexpected series %+v", series)
	}

	if rec = do(h, "POST", base+"/delete", nil, ""); rec.Code != http.StatusOK {
		t.Fatalf("Delete: %d %s", rec.Code, rec.Body)
	}
	if rec = do(h, "GET", base, nil, ""); rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 after delete, got %d", rec.Code)
	}
	if rec = do(h, "DELETE", base, nil, ""); rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 deleting twice, got %d", rec.Code)
	}
}

func TestBadID(t *testing.T) {
	h, _ := newTestServer(t, "", "")
	if rec := do(h, "GET", "/api/track/abc", nil, ""); rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", rec.Code)
	}
}

func TestUploadWithoutFiles(t *testing.T) {
	h, _ := newTestServer(t, "", "")
	resp := upload(t, h, nil)
	if resp.Success || resp.Error == "" {
		t.Errorf("Expected an upload error, got %+v", resp)
	}
}

func TestBasicAuth(t *testing.T) {
	h, _ := newTestServer(t, "runner", "correct horse")

	rec := do(h, "GET", "/api/tracks", nil, "")
	if rec.Code != http.StatusUnauthorized || rec.Header().Get("WWW-Authenticate") == "" {
		t.Fatalf("Expected 401 with a challenge, got %d", rec.Code)
	}

	req := httptest.NewRequest("GET", "/api/tracks", nil)
	req.SetBasicAuth("runner", "wrong password")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 for a wrong password, got %d", rec.Code)
	}

	req = httptest.NewRequest("GET", "/api/tracks", nil)
	req.SetBasicAuth("runner", "correct horse")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("Expected 200 with credentials, got %d", rec.Code)
	}
}

func TestMetricsRoute(t *testing.T) {
	h, _ := newTestServer(t, "", "")
	upload(t, h, map[string][]byte{"W0021.dat": sampleTrack()})
	rec := do(h, "GET", "/metrics", nil, "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `nstrack_points_total{kind="track"} 5`) {
		t.Errorf("Unexpected metrics response %d", rec.Code)
	}
}

func itoa(id int64) string { return strconv.FormatInt(id, 10) }

func TestMetricsRouteDisabled(t *testing.T) {
	db, err := store.Open(filepath.Join(t.TempDir(), "nstrack.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()
	if err := store.Migrate(db); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	h := NewHandler(db, nil, nil)
	if rec := do(h, "GET", "/metrics", nil, ""); rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 without metrics, got %d", rec.Code)
	}
	if rec := do(h, "POST", "/api/import", nil, ""); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503 without an importer, got %d", rec.Code)
	}
}
