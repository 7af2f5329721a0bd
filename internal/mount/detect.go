package mount

import (
	"os"
	"path/filepath"
	"strings"
)

// FindTrackerDirs scans roots for SportsTracker data directories. Each
// entry of trackerDirs is tried below every mounted volume and below the
// root itself (some card readers mount the card as the root).
func FindTrackerDirs(roots, trackerDirs []string) []string {
	var hits []string
	seen := map[string]bool{}
	add := func(p string) {
		if st, err := os.Stat(p); err == nil && st.IsDir() && !seen[p] {
			seen[p] = true
			hits = append(hits, p)
		}
	}
	for _, r := range roots {
		if r == "" {
			continue
		}
		for _, d := range trackerDirs {
			add(filepath.Join(r, d))
		}
		entries, _ := os.ReadDir(r)
		for _, e := range entries {
			if !e.IsDir() {
				continue
			}
			for _, d := range trackerDirs {
				add(filepath.Join(r, e.Name(), d))
			}
		}
	}
	return hits
}

// IsTrackFile reports whether name looks like a SportsTracker data file:
// W*.dat tracks, R*.dat routes or Rec*.tmp recordings.
func IsTrackFile(name string) bool {
	name = strings.ToLower(filepath.Base(name))
	switch filepath.Ext(name) {
	case ".dat":
		return strings.HasPrefix(name, "w") || strings.HasPrefix(name, "r")
	case ".tmp":
		return strings.HasPrefix(name, "rec")
	}
	return false
}
