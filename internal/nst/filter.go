package nst

import "math"

// Correction thresholds for temporary files.
const (
	maxUnixStep    = 3600 // s
	maxElapsedStep = 300  // s
	maxClockSkew   = 130  // s, longest ordinary pause
	minClockSkew   = -0.5 // s
	stalledStep    = 0.2  // s
	spikeMinutes   = 600  // 0.001 deg in minutes x1e4
	spikeElevation = 5000 // 500 m in dm
)

// DefaultDistanceBound rejects delta distances of 1 km or more.
const DefaultDistanceBound = 100000

// Stats counts the corrections applied while decoding one file.
type Stats struct {
	BadUnix     int `json:"bad_unix"`
	BadElapsed  int `json:"bad_elapsed"`
	BadBoth     int `json:"bad_both"`
	TwoDeltas   int `json:"two_deltas"`
	SpikeLat    int `json:"spike_lat"`
	SpikeLon    int `json:"spike_lon"`
	SpikeEle    int `json:"spike_ele"`
	BadDistance int `json:"bad_distance"`
	UnknownTag  int `json:"unknown_tag"`
	PauseSplice int `json:"pause_splice"`
}

// Counts returns the non-zero counters keyed by their JSON names.
func (s Stats) Counts() map[string]int {
	m := map[string]int{
		"bad_unix":     s.BadUnix,
		"bad_elapsed":  s.BadElapsed,
		"bad_both":     s.BadBoth,
		"two_deltas":   s.TwoDeltas,
		"spike_lat":    s.SpikeLat,
		"spike_lon":    s.SpikeLon,
		"spike_ele":    s.SpikeEle,
		"bad_distance": s.BadDistance,
		"unknown_tag":  s.UnknownTag,
		"pause_splice": s.PauseSplice,
	}
	for k, v := range m {
		if v == 0 {
			delete(m, k)
		}
	}
	return m
}

// Total returns the number of corrections, not counting pause splices.
func (s Stats) Total() int {
	return s.BadUnix + s.BadElapsed + s.BadBoth + s.TwoDeltas +
		s.SpikeLat + s.SpikeLon + s.SpikeEle + s.BadDistance + s.UnknownTag
}

// TimeFilter reconciles the two clocks of temporary-file records and drops
// single-sample spikes. Temporary files are written while recording and
// both clocks glitch independently.
type TimeFilter struct {
	// DistanceBound is the exclusive upper limit for a delta distance in cm.
	DistanceBound int64
	Logf          func(format string, args ...any)
	Stats         *Stats

	suspect bool
}

func (f *TimeFilter) logf(format string, args ...any) {
	if f.Logf != nil {
		f.Logf(format, args...)
	}
}

func (f *TimeFilter) stats() *Stats {
	if f.Stats == nil {
		f.Stats = &Stats{}
	}
	return f.Stats
}

// Apply corrects p in place against prev. first marks the first record of
// the file; at is the record offset used in log lines.
func (f *TimeFilter) Apply(p *Point, prev Point, first bool, at int) {
	st := f.stats()
	du := p.Unix - prev.Unix
	dt := p.Elapsed - prev.Elapsed
	goodUnix := 0 < du && du < maxUnixStep
	goodElapsed := 0 <= dt && dt < maxElapsedStep

	switch {
	case first || f.suspect:
		f.suspect = false
	case goodUnix && goodElapsed:
		if skew := du - dt; !(minClockSkew < skew && skew <= maxClockSkew) {
			step := math.Min(du, dt)
			p.Unix = prev.Unix + step
			p.Elapsed = prev.Elapsed + step
			f.suspect = true
			st.TwoDeltas++
			f.logf("nst: two distinct time deltas at 0x%x (unix %+.2f s, elapsed %+.2f s)", at, du, dt)
		}
	case goodElapsed:
		p.Unix = prev.Unix + dt
		st.BadUnix++
		f.logf("nst: bad unix time at 0x%x", at)
	case !goodUnix:
		p.Unix = prev.Unix + stalledStep
		p.Elapsed = prev.Elapsed + stalledStep
		st.BadBoth++
		f.logf("nst: bad unix and elapsed time at 0x%x", at)
	default:
		p.Elapsed = prev.Elapsed + du
		st.BadElapsed++
		f.logf("nst: bad elapsed time at 0x%x", at)
	}

	if !first {
		if abs64(p.Lat-prev.Lat) >= spikeMinutes {
			p.Lat = prev.Lat
			st.SpikeLat++
			f.logf("nst: bad latitude at 0x%x", at)
		}
		if abs64(p.Lon-prev.Lon) >= spikeMinutes {
			p.Lon = prev.Lon
			st.SpikeLon++
			f.logf("nst: bad longitude at 0x%x", at)
		}
		if abs64(p.Elevation-prev.Elevation) >= spikeElevation {
			p.Elevation = prev.Elevation
			st.SpikeEle++
			f.logf("nst: bad elevation at 0x%x", at)
		}
	}

	bound := f.DistanceBound
	if bound <= 0 {
		bound = DefaultDistanceBound
	}
	if p.DeltaDist < 0 || p.DeltaDist >= bound {
		f.logf("nst: bad distance %d cm at 0x%x", p.DeltaDist, at)
		p.DeltaDist = 0
		p.Dist = prev.Dist
		st.BadDistance++
	}
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
