package nst

import (
	"math"
	"testing"
)

func TestDMMToDegrees(t *testing.T) {
	cases := []struct {
		raw  int32
		want float64
	}{
		{45300000, 45.5},
		{-135150000, -135.25},
		{0, 0},
		{-150000, -0.25},
	}
	for _, tc := range cases {
		p := Point{Lat: dmmToMinutes(tc.raw)}
		if got := p.LatDeg(); math.Abs(got-tc.want) > 1e-12 {
			t.Errorf("dmm %d: expected %v, got %v", tc.raw, tc.want, got)
		}
	}
}

func TestAdvanceAbsoluteWithoutDeviceTime(t *testing.T) {
	prev := Point{Unix: 1000, Elapsed: 10, Dist: 500}
	l, _ := Dispatch(0x00, false)
	p := Advance(prev, RawRecord{Layout: l, Time: 1250, Lat: 45300000, Lon: -7150000, Elevation: 1234, Velocity: 250, Distance: 300})
	if p.Elapsed != 12.5 {
		t.Errorf("Expected elapsed 12.5, got %v", p.Elapsed)
	}
	if p.Unix != 1002.5 {
		t.Errorf("Expected unix 1002.5, got %v", p.Unix)
	}
	if p.ElevationM() != 123.4 {
		t.Errorf("Expected 123.4 m, got %v", p.ElevationM())
	}
	if p.LonDeg() != -7.25 {
		t.Errorf("Expected -7.25, got %v", p.LonDeg())
	}
	if p.Dist != 800 || p.DeltaDist != 300 {
		t.Errorf("Expected dist 800 (delta 300), got %d (%d)", p.Dist, p.DeltaDist)
	}
}

func TestAdvanceDeviceTime(t *testing.T) {
	l, _ := Dispatch(0x07, true)
	p := Advance(Point{Unix: 5}, RawRecord{Layout: l, Time: 100, DeviceTime: symbian(testStartUTC)})
	if p.Unix != testStartUTC || !p.DeviceTime {
		t.Errorf("Expected device time %v, got %v (flag %v)", testStartUTC, p.Unix, p.DeviceTime)
	}
}

func TestDeltaRoundTrip(t *testing.T) {
	abs, _ := Dispatch(0x00, false)
	d8, _ := Dispatch(0x80, false)
	d16, _ := Dispatch(0x9A, false)

	p := Advance(Point{Unix: testStartUTC}, RawRecord{Layout: abs, Time: 0, Lat: 60300000, Lon: 24560000, Elevation: 150, Velocity: 300})
	startLat, startLon := p.Lat, p.Lon

	recs := []RawRecord{
		{Layout: d8, Time: 100, Lat: 12, Lon: -7, Elevation: 3, Velocity: 5, Distance: 310},
		{Layout: d16, Time: 100, Lat: -30, Lon: 200, Elevation: -1, Velocity: -400, Distance: 70000},
		{Layout: d8, Time: 50, Lat: 1, Lon: 1, Elevation: 0, Velocity: 0, Distance: 0},
	}
	var sumLat, sumLon, sumEle, sumV, sumD int64
	for _, r := range recs {
		p = Advance(p, r)
		sumLat += int64(r.Lat)
		sumLon += int64(r.Lon)
		sumEle += int64(r.Elevation)
		sumV += int64(r.Velocity)
		sumD += int64(r.Distance)
	}
	if p.Lat != startLat+sumLat || p.Lon != startLon+sumLon {
		t.Errorf("Position drifted: got %d,%d want %d,%d", p.Lat, p.Lon, startLat+sumLat, startLon+sumLon)
	}
	if p.Elevation != 150+sumEle || p.Velocity != 300+sumV || p.Dist != sumD {
		t.Errorf("Unexpected accumulation: %+v", p)
	}
	if p.Elapsed != 2.5 || p.Unix != testStartUTC+2.5 {
		t.Errorf("Expected elapsed 2.5 and unix start+2.5, got %v and %v", p.Elapsed, p.Unix)
	}
}

func TestDistanceMonotonic(t *testing.T) {
	d, _ := Dispatch(0x83, false)
	p := Point{}
	for i := 0; i < 200; i++ {
		next := Advance(p, RawRecord{Layout: d, Time: 100, Distance: uint32(i * 37 % 500)})
		if next.Dist < p.Dist {
			t.Fatalf("Distance decreased at %d: %d -> %d", i, p.Dist, next.Dist)
		}
		p = next
	}
}

func TestSymbianEpoch(t *testing.T) {
	// 2008-09-20 10:00:00 UTC.
	const stored = 63390160800000000
	if got := SymbianToUnix(stored); got != 1221904800 {
		t.Errorf("Expected 1221904800, got %v", got)
	}
	if got := UnixToSymbian(0); got != 62168256000*1e6 {
		t.Errorf("Expected the unix epoch at 62168256000 s, got %d", got)
	}
	if got := UnixToSymbian(SymbianToUnix(stored)); got != stored {
		t.Errorf("Round trip: expected %d, got %d", stored, got)
	}
}
