package nst

import (
	"fmt"
	"log"
	"math"
	"os"
	"strings"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Options tune decoding of one file.
type Options struct {
	// DistanceBound rejects temporary-file delta distances at or above this
	// many cm.
	DistanceBound int64
	// ModTime seeds route files, which store no start time. Open fills it
	// from the file when zero.
	ModTime time.Time
	Logf    func(format string, args ...any)
}

// DefaultOptions returns the options used by the command-line tools.
func DefaultOptions() Options {
	return Options{DistanceBound: DefaultDistanceBound, Logf: log.Printf}
}

// File is a fully decoded SportsTracker file.
type File struct {
	Header      *Header
	PauseEvents []PauseEvent
	Pauses      []Pause
	Points      []Point
	Stats       Stats
}

// Stream reads the header and pause table and returns a decoder positioned
// at the first trackpoint.
func Stream(data []byte, opts Options) (*Header, []PauseEvent, *Decoder, error) {
	c := &cursor{buf: data}
	h, err := readHeader(c)
	if err != nil {
		return nil, nil, nil, err
	}

	ctx := DecodeContext{
		Kind:          h.Kind,
		NewFormat:     h.NewFormat,
		TZHours:       h.TZHours,
		Start:         h.StartUTC,
		DistanceBound: opts.DistanceBound,
		Logf:          opts.Logf,
	}
	if h.Kind == KindRoute && !opts.ModTime.IsZero() {
		ctx.Start = float64(opts.ModTime.UnixMilli()) / 1000
	}
	if h.Kind == KindTemporary {
		return h, nil, NewDecoder(data, h.Start, ctx), nil
	}

	if err := c.seek(h.Start); err != nil {
		return nil, nil, nil, fmt.Errorf("main block: %w", err)
	}
	var events []PauseEvent
	if h.Kind == KindTrack {
		if events, ctx.Pauses, err = readPauseTable(c); err != nil {
			return nil, nil, nil, err
		}
	}
	count, err := c.u32()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("trackpoint count: %w", err)
	}
	ctx.Count = int(count)
	return h, events, NewDecoder(data, c.off, ctx), nil
}

// Parse decodes a whole file held in memory.
func Parse(data []byte, opts Options) (*File, error) {
	h, events, dec, err := Stream(data, opts)
	if err != nil {
		return nil, err
	}
	f := &File{Header: h, PauseEvents: events, Pauses: dec.ctx.Pauses}
	if h.Kind != KindTemporary {
		f.Points = make([]Point, 0, min(dec.ctx.Count, dec.cur.remaining()/minRecordLen))
	}
	for p, err := range dec.Points() {
		if err != nil {
			return nil, err
		}
		f.Points = append(f.Points, p)
	}
	f.Stats = dec.Stats()
	return f, nil
}

// Open reads and decodes the file at path.
func Open(path string, opts Options) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if opts.ModTime.IsZero() {
		if fi, err := os.Stat(path); err == nil {
			opts.ModTime = fi.ModTime()
		}
	}
	f, err := Parse(data, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Summary is the overview of a decoded file.
type Summary struct {
	Kind          FileKind
	Points        int
	TotalTime     float64 // s
	TotalDistance float64 // km
	NetSpeed      float64 // km/h over recording time

	// Tracks only.
	StartLocal, StopLocal float64 // unix seconds, local wall clock
	RealTime              float64 // s, pauses included
	GrossSpeed            float64 // km/h over real time

	MeanSpeed     float64 // km/h over samples
	MaxSpeed      float64 // km/h
	ElevationGain float64 // m
}

// Summary computes totals, falling back to the last point where the header
// has no value.
func (f *File) Summary() Summary {
	h := f.Header
	s := Summary{Kind: h.Kind, Points: len(f.Points)}
	var last Point
	if len(f.Points) > 0 {
		last = f.Points[len(f.Points)-1]
	}

	s.TotalTime = h.TotalTime
	if s.TotalTime == 0 {
		s.TotalTime = last.Elapsed
	}
	s.TotalDistance = float64(h.TotalDistance) / 1e5
	if h.TotalDistance == 0 {
		s.TotalDistance = last.DistKM()
	}
	s.NetSpeed = perHour(s.TotalDistance, s.TotalTime)

	if h.Kind != KindRoute {
		s.StartLocal = h.StartLocal
		s.StopLocal = h.StopLocal
		if !h.HasStop {
			s.StopLocal = last.Unix + h.TZHours*3600
		}
		s.RealTime = s.StopLocal - s.StartLocal
		s.GrossSpeed = perHour(s.TotalDistance, s.RealTime)
	}

	if len(f.Points) == 0 {
		return s
	}
	speeds := make([]float64, len(f.Points))
	ele := make([]float64, len(f.Points))
	for i, p := range f.Points {
		speeds[i] = p.SpeedKMH()
		ele[i] = p.ElevationM()
	}
	s.MeanSpeed = stat.Mean(speeds, nil)
	s.MaxSpeed = floats.Max(speeds)
	if len(ele) > 1 {
		climb := make([]float64, len(ele)-1)
		floats.SubTo(climb, ele[1:], ele[:len(ele)-1])
		for i, v := range climb {
			climb[i] = math.Max(v, 0)
		}
		s.ElevationGain = floats.Sum(climb)
	}
	return s
}

func perHour(km, sec float64) float64 {
	if sec <= 0 {
		return 0
	}
	return km / (sec / 3600)
}

// String renders the summary the way it is stored in GPX descriptions.
func (s Summary) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[Total time: %s; Total distance: %.3f km; Net speed: %.3f km/h",
		FormatDuration(s.TotalTime), s.TotalDistance, s.NetSpeed)
	if s.Kind != KindRoute {
		fmt.Fprintf(&b, "; Start localtime: %s; Stop localtime: %s; Real time: %s; Gross speed: %.3f km/h",
			FormatLocal(s.StartLocal), FormatLocal(s.StopLocal), FormatDuration(s.RealTime), s.GrossSpeed)
	}
	b.WriteString("]")
	return b.String()
}

// FormatDuration renders seconds as H:MM:SS.mmm.
func FormatDuration(sec float64) string {
	neg := ""
	if sec < 0 {
		neg, sec = "-", -sec
	}
	ms := int64(math.Round(sec * 1000))
	return fmt.Sprintf("%s%d:%02d:%02d.%03d", neg, ms/3600000, ms/60000%60, ms/1000%60, ms%1000)
}

// FormatLocal renders a local wall-clock unix time without a zone suffix.
func FormatLocal(sec float64) string {
	return unixTime(sec).Format("2006-01-02T15:04:05.000")
}
