package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"nstrack/internal/nst"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	return string(body)
}

func TestDecodedAndFile(t *testing.T) {
	m := New()
	f := &nst.File{
		Header: &nst.Header{Kind: nst.KindTemporary},
		Points: make([]nst.Point, 5),
		Stats:  nst.Stats{BadUnix: 2, SpikeLat: 1},
	}
	m.Decoded(f, 3*time.Millisecond)
	m.File("temporary", ResultImported)
	m.File("temporary", ResultImported)
	m.File("unknown", ResultError)

	out := scrape(t, m)
	for _, want := range []string{
		`nstrack_points_total{kind="temporary"} 5`,
		`nstrack_corrections_total{correction="bad_unix"} 2`,
		`nstrack_corrections_total{correction="spike_lat"} 1`,
		`nstrack_files_total{kind="temporary",result="imported"} 2`,
		`nstrack_files_total{kind="unknown",result="error"} 1`,
		`nstrack_decode_seconds_count{kind="temporary"} 1`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %q in scrape output", want)
		}
	}
	if strings.Contains(out, `correction="two_deltas"`) {
		t.Error("Zero corrections should not be exported")
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.File("track", ResultError)
	m.Decoded(&nst.File{Header: &nst.Header{Kind: nst.KindTrack}}, time.Second)
}
