package nst

import (
	"math"
	"testing"
)

func near(a, b float64) bool { return math.Abs(a-b) < 1e-6 }

func TestTimeFilterFirstRecordUntouched(t *testing.T) {
	f := &TimeFilter{}
	p := Point{Unix: 99999, Elapsed: 7000}
	f.Apply(&p, Point{}, true, 0)
	if p.Unix != 99999 || p.Elapsed != 7000 {
		t.Errorf("First record should not be corrected, got %+v", p)
	}
	if f.Stats.Total() != 0 {
		t.Errorf("Expected no corrections, got %+v", *f.Stats)
	}
}

func TestTimeFilterBranches(t *testing.T) {
	prev := Point{Unix: 1000, Elapsed: 50}
	cases := []struct {
		name          string
		unix, elapsed float64
		wantUnix      float64
		wantElapsed   float64
		check         func(Stats) int
	}{
		{"consistent", 1001, 51, 1001, 51, func(s Stats) int { return 1 - s.Total() }},
		{"two deltas", 1200, 51, 1001, 51, func(s Stats) int { return s.TwoDeltas }},
		{"bad unix", 900, 51, 1001, 51, func(s Stats) int { return s.BadUnix }},
		{"bad both", 900, 40, 1000.2, 50.2, func(s Stats) int { return s.BadBoth }},
		{"bad elapsed", 1002, 4000, 1002, 52, func(s Stats) int { return s.BadElapsed }},
	}
	for _, tc := range cases {
		f := &TimeFilter{}
		p := Point{Unix: tc.unix, Elapsed: tc.elapsed}
		f.Apply(&p, prev, false, 0x300)
		if !near(p.Unix, tc.wantUnix) || !near(p.Elapsed, tc.wantElapsed) {
			t.Errorf("%s: expected %v/%v, got %v/%v", tc.name, tc.wantUnix, tc.wantElapsed, p.Unix, p.Elapsed)
		}
		if tc.check(*f.Stats) != 1 {
			t.Errorf("%s: unexpected stats %+v", tc.name, *f.Stats)
		}
	}
}

func TestTimeFilterSkipsRecordAfterSuspectPause(t *testing.T) {
	f := &TimeFilter{}
	prev := Point{Unix: 1000, Elapsed: 50}
	p := Point{Unix: 1200, Elapsed: 51}
	f.Apply(&p, prev, false, 0)

	// The next step carries the rest of the pause and is accepted as is.
	q := Point{Unix: 1300, Elapsed: 52}
	f.Apply(&q, p, false, 0)
	if q.Unix != 1300 || q.Elapsed != 52 {
		t.Errorf("Record after a suspect pause should be untouched, got %+v", q)
	}

	r := Point{Unix: 1500, Elapsed: 53}
	f.Apply(&r, q, false, 0)
	if r.Unix != 1301 {
		t.Errorf("Expected the filter to resume, got unix %v", r.Unix)
	}
}

func TestTimeFilterSpike(t *testing.T) {
	// 0.01 deg north of the previous point.
	prev := Point{Unix: 1000, Elapsed: 50, Lat: 36300000, Lon: 14760000, Elevation: 1500, Dist: 900}
	p := prev
	p.Unix, p.Elapsed = 1001, 51
	p.Lat += 6000
	p.Lon += 10
	p.Elevation += 5000
	p.DeltaDist, p.Dist = 120, 1020

	f := &TimeFilter{}
	f.Apply(&p, prev, false, 0)
	if p.Lat != prev.Lat {
		t.Errorf("Expected latitude spike to be dropped, got %d", p.Lat)
	}
	if p.Lon != prev.Lon+10 {
		t.Errorf("Expected longitude to be kept, got %d", p.Lon)
	}
	if p.Elevation != prev.Elevation {
		t.Errorf("Expected elevation spike to be dropped, got %d", p.Elevation)
	}
	if p.Dist != 1020 {
		t.Errorf("Expected distance to be kept, got %d", p.Dist)
	}
	if f.Stats.SpikeLat != 1 || f.Stats.SpikeEle != 1 || f.Stats.SpikeLon != 0 {
		t.Errorf("Unexpected stats %+v", *f.Stats)
	}
}

func TestTimeFilterDistanceBound(t *testing.T) {
	prev := Point{Unix: 1000, Elapsed: 50, Dist: 900}
	p := Point{Unix: 1001, Elapsed: 51, DeltaDist: 150000, Dist: 150900}
	f := &TimeFilter{}
	f.Apply(&p, prev, false, 0)
	if p.DeltaDist != 0 || p.Dist != 900 {
		t.Errorf("Expected distance jump to be dropped, got %d/%d", p.DeltaDist, p.Dist)
	}

	q := Point{Unix: 1002, Elapsed: 52, DeltaDist: 600, Dist: 1500}
	f = &TimeFilter{DistanceBound: 500}
	f.Apply(&q, p, false, 0)
	if q.Dist != 900 {
		t.Errorf("Expected custom bound to apply, got %d", q.Dist)
	}
}
