// Command nst2gpx converts Symbian SportsTracker tracks (W*.dat), routes
// (R*.dat) and interrupted recordings (Rec*.tmp) to GPX and, optionally, FIT.
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"

	"nstrack/internal/fitx"
	"nstrack/internal/gpx"
	"nstrack/internal/nst"
)

const (
	exitOK    = 0
	exitFatal = 1
	exitUsage = 2
)

type options struct {
	out       string
	fit       bool
	stats     bool
	statsJSON bool
	dryRun    bool
	jobs      int
	bound     int64
}

type result struct {
	path string
	file *nst.File
	err  error
}

type fileStats struct {
	File          string         `json:"file"`
	Kind          string         `json:"kind"`
	Version       uint32         `json:"version"`
	Name          string         `json:"name"`
	Points        int            `json:"points"`
	TotalTime     float64        `json:"total_time_s"`
	TotalDistance float64        `json:"total_distance_km"`
	NetSpeed      float64        `json:"net_speed_kmh"`
	MeanSpeed     float64        `json:"mean_speed_kmh"`
	MaxSpeed      float64        `json:"max_speed_kmh"`
	ElevationGain float64        `json:"elevation_gain_m"`
	Corrections   map[string]int `json:"corrections"`
	Error         string         `json:"error,omitempty"`
}

func main() {
	log.SetFlags(0)
	log.SetPrefix("nst2gpx: ")
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("nst2gpx", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var o options
	fs.StringVar(&o.out, "o", "", "output GPX path for a single input (- for stdout)")
	fs.BoolVar(&o.fit, "fit", false, "also write a FIT activity next to the GPX")
	fs.BoolVar(&o.stats, "stats", false, "print a summary and correction counts per file to stderr")
	fs.BoolVar(&o.statsJSON, "stats-json", false, "print one JSON object per file to stdout")
	fs.BoolVar(&o.dryRun, "dry-run", false, "decode only, write nothing")
	fs.IntVar(&o.jobs, "j", runtime.NumCPU(), "files decoded in parallel")
	fs.Int64Var(&o.bound, "distance-bound", nst.DefaultDistanceBound, "reject recording delta distances at or above this many cm")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "usage: nst2gpx [flags] file...\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}

	files := fs.Args()
	switch {
	case len(files) == 0:
		fs.Usage()
		return exitUsage
	case o.out != "" && len(files) > 1:
		fmt.Fprintln(stderr, "nst2gpx: -o needs exactly one input file")
		return exitUsage
	case o.out == "-" && (o.statsJSON || o.fit):
		fmt.Fprintln(stderr, "nst2gpx: -o - cannot be combined with -stats-json or -fit")
		return exitUsage
	case o.jobs < 1 || o.bound <= 0:
		fmt.Fprintln(stderr, "nst2gpx: -j and -distance-bound must be positive")
		return exitUsage
	}

	results := make([]result, len(files))
	var g errgroup.Group
	g.SetLimit(o.jobs)
	for i, path := range files {
		g.Go(func() error {
			results[i] = convert(path, o, stdout)
			return nil
		})
	}
	_ = g.Wait()

	code := exitOK
	enc := json.NewEncoder(stdout)
	for _, r := range results {
		if r.err != nil {
			log.Printf("%v", r.err)
			code = exitFatal
		}
		if o.stats && r.file != nil {
			printStats(stderr, r)
		}
		if o.statsJSON {
			_ = enc.Encode(statsOf(r))
		}
	}
	return code
}

func convert(path string, o options, stdout io.Writer) result {
	opts := nst.DefaultOptions()
	opts.DistanceBound = o.bound
	name := filepath.Base(path)
	opts.Logf = func(format string, args ...any) {
		log.Printf("%s: %s", name, fmt.Sprintf(format, args...))
	}
	f, err := nst.Open(path, opts)
	if err != nil {
		return result{path: path, err: err}
	}
	r := result{path: path, file: f}
	if o.dryRun {
		return r
	}

	out := o.out
	if out == "" {
		out = strings.TrimSuffix(path, filepath.Ext(path)) + ".gpx"
	}
	if out == "-" {
		r.err = gpx.Write(stdout, f)
	} else {
		r.err = gpx.WriteFile(out, f)
	}
	if r.err != nil {
		r.err = fmt.Errorf("%s: %w", path, r.err)
		return r
	}

	if o.fit {
		r.err = writeFIT(strings.TrimSuffix(out, filepath.Ext(out))+".fit", f)
	}
	return r
}

func writeFIT(path string, f *nst.File) error {
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := fitx.Encode(out, f); err != nil {
		out.Close()
		os.Remove(path)
		return fmt.Errorf("%s: %w", path, err)
	}
	return out.Close()
}

func printStats(w io.Writer, r result) {
	f := r.file
	fmt.Fprintf(w, "%s: %s %q, %d points\n", r.path, f.Header.Kind, f.Header.Name, len(f.Points))
	fmt.Fprintf(w, "  %s\n", f.Summary())
	if n := f.Stats.Total(); n > 0 || f.Stats.PauseSplice > 0 {
		fmt.Fprintf(w, "  corrections: %d %v\n", n, f.Stats.Counts())
	}
}

func statsOf(r result) fileStats {
	s := fileStats{File: r.path, Corrections: map[string]int{}}
	if r.err != nil {
		s.Error = r.err.Error()
	}
	if r.file == nil {
		return s
	}
	f := r.file
	sum := f.Summary()
	s.Kind = f.Header.Kind.String()
	s.Version = f.Header.Version
	s.Name = f.Header.Name
	s.Points = len(f.Points)
	s.TotalTime = sum.TotalTime
	s.TotalDistance = sum.TotalDistance
	s.NetSpeed = sum.NetSpeed
	s.MeanSpeed = sum.MeanSpeed
	s.MaxSpeed = sum.MaxSpeed
	s.ElevationGain = sum.ElevationGain
	s.Corrections = f.Stats.Counts()
	return s
}
