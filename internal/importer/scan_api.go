package importer

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"nstrack/internal/importlog"
	"nstrack/internal/mount"
)

// ScanSummary is returned to the web API after a manual import.
type ScanSummary struct {
	Roots      []string `json:"roots"`
	Dirs       []string `json:"dirs"`
	FoundFiles int      `json:"found_files"`
	Imported   int      `json:"imported"`
	Duplicates int      `json:"duplicates"`
	Errors     []string `json:"errors"`
}

// ScanOnce scans the SportsTracker data directories once and ingests any
// track, route or recording files in name order.
func (im *Importer) ScanOnce() (ScanSummary, error) {
	sum := ScanSummary{Roots: im.c.SearchRoots, Dirs: im.trackerDirs()}
	if len(sum.Dirs) == 0 {
		importlog.Printf("import: no tracker dirs found (search_roots=%v, tracker_dirs=%v)", im.c.SearchRoots, im.c.TrackerDirs)
		return sum, nil
	}

	files, errs := listTrackFiles(sum.Dirs)
	sum.Errors = errs
	sum.FoundFiles = len(files)
	importlog.Printf("import: %d dir(s) -> %d file(s)", len(sum.Dirs), len(files))

	for _, f := range files {
		_, err := im.IngestFile(f)
		switch {
		case err == nil:
			sum.Imported++
		case errors.Is(err, ErrDuplicate):
			sum.Duplicates++
		default:
			sum.Errors = append(sum.Errors, fmt.Sprintf("%s: %v", f, err))
			importlog.Printf("import: %s: %v", filepath.Base(f), err)
		}
	}
	return sum, nil
}

// trackerDirs resolves tracker_dirs: absolute entries are used as they are,
// relative ones are looked up below the search roots.
func (im *Importer) trackerDirs() []string {
	var dirs, rel []string
	for _, d := range im.c.TrackerDirs {
		switch {
		case d == "":
		case !filepath.IsAbs(d):
			rel = append(rel, d)
		default:
			if st, err := os.Stat(d); err == nil && st.IsDir() {
				dirs = append(dirs, d)
			}
		}
	}
	return append(dirs, mount.FindTrackerDirs(im.c.SearchRoots, rel)...)
}

func listTrackFiles(dirs []string) (files, errs []string) {
	for _, d := range dirs {
		entries, err := os.ReadDir(d)
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", d, err))
			continue
		}
		for _, e := range entries {
			if e.Type().IsRegular() && mount.IsTrackFile(e.Name()) {
				files = append(files, filepath.Join(d, e.Name()))
			}
		}
	}
	sort.Strings(files)
	return files, errs
}
