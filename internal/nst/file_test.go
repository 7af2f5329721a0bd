package nst

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSummaryFallsBackToPoints(t *testing.T) {
	file, err := Parse(splicedTrack(), Options{})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	s := file.Summary()
	if math.Abs(s.TotalTime-100.3) > 1e-9 {
		t.Errorf("Expected total time from last point, got %v", s.TotalTime)
	}
	if math.Abs(s.TotalDistance-0.5033) > 1e-9 {
		t.Errorf("Expected 0.5033 km, got %v", s.TotalDistance)
	}
	if want := 0.5033 / (100.3 / 3600); math.Abs(s.NetSpeed-want) > 1e-9 {
		t.Errorf("Expected net speed %v, got %v", want, s.NetSpeed)
	}
	if s.RealTime != 1800 {
		t.Errorf("Expected real time 1800 s, got %v", s.RealTime)
	}
	if math.Abs(s.GrossSpeed-0.5033*2) > 1e-9 {
		t.Errorf("Expected gross speed %v, got %v", 0.5033*2, s.GrossSpeed)
	}
	if math.Abs(s.MaxSpeed-11.52) > 1e-9 || math.Abs(s.MeanSpeed-8.64) > 1e-9 {
		t.Errorf("Expected max 11.52 and mean 8.64 km/h, got %v and %v", s.MaxSpeed, s.MeanSpeed)
	}
	if math.Abs(s.ElevationGain-10) > 1e-9 {
		t.Errorf("Expected 10 m climb, got %v", s.ElevationGain)
	}
	if !strings.HasPrefix(s.String(), "[Total time: 0:01:40.300; Total distance: 0.503 km;") {
		t.Errorf("Unexpected summary line %q", s.String())
	}
}

func TestSummaryUsesHeaderTotals(t *testing.T) {
	f := trackHeader(20000, 360000, 1000000)
	f.u32(0).u32(1).u8(0x07, 0x82).absolute(0, lat0, lon0, 0, 0, 0).i64(symbian(testStartUTC))
	file, err := Parse(f.b, Options{})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	s := file.Summary()
	if s.TotalTime != 3600 || s.TotalDistance != 10 || s.NetSpeed != 10 {
		t.Errorf("Expected 3600 s, 10 km, 10 km/h, got %v, %v, %v", s.TotalTime, s.TotalDistance, s.NetSpeed)
	}
}

func TestSummaryTemporaryStopFallback(t *testing.T) {
	file, err := Parse(damagedTemporary(), Options{})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	s := file.Summary()
	// No stop time: the last point in local time closes the track.
	if math.Abs(s.RealTime-2) > 1e-6 {
		t.Errorf("Expected 2 s real time, got %v", s.RealTime)
	}
}

func TestFormatDuration(t *testing.T) {
	cases := map[float64]string{
		0:       "0:00:00.000",
		100.3:   "0:01:40.300",
		3723.25: "1:02:03.250",
		90000:   "25:00:00.000",
	}
	for in, want := range cases {
		if got := FormatDuration(in); got != want {
			t.Errorf("FormatDuration(%v): expected %s, got %s", in, want, got)
		}
	}
}

func TestOpenFillsModTime(t *testing.T) {
	f := &fixture{}
	f.u32(AppID).u32(uint32(KindRoute)).u32(1000).u32(0x100 + 1)
	f.at(offTrackID).u32(9).ascii("Lakeside").u32(0)
	f.at(0x100).u32(1).u8(0x00).absolute(0, lat0, lon0, 0, 0, 0)

	path := filepath.Join(t.TempDir(), "R0000001.dat")
	if err := os.WriteFile(path, f.b, 0o644); err != nil {
		t.Fatal(err)
	}
	fi, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	file, err := Open(path, Options{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if got, want := file.Points[0].Unix, float64(fi.ModTime().UnixMilli())/1000; got != want {
		t.Errorf("Expected route seeded at %v, got %v", want, got)
	}
}
