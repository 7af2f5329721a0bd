package mount

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFindTrackerDirs(t *testing.T) {
	root := t.TempDir()
	card := filepath.Join(root, "NOKIA", "Data", "SportsTracker", "Tracks")
	direct := filepath.Join(root, "SportsTracker", "Routes")
	for _, d := range []string{card, direct, filepath.Join(root, "USB", "Music")} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			t.Fatal(err)
		}
	}

	dirs := []string{"Data/SportsTracker/Tracks", "SportsTracker/Routes"}
	hits := FindTrackerDirs([]string{root, "", filepath.Join(root, "missing")}, dirs)
	if len(hits) != 2 {
		t.Fatalf("Expected 2 dirs, got %v", hits)
	}
	if hits[0] != direct || hits[1] != card {
		t.Errorf("Unexpected dirs %v", hits)
	}

	// Listing the same root twice does not duplicate hits.
	if again := FindTrackerDirs([]string{root, root}, dirs); len(again) != 2 {
		t.Errorf("Expected 2 unique dirs, got %v", again)
	}
}

func TestIsTrackFile(t *testing.T) {
	for name, want := range map[string]bool{
		"W20090601.dat":  true,
		"R0001.DAT":      true,
		"Rec0001.tmp":    true,
		"config.dat":     false,
		"notes.tmp":      false,
		"W20090601.gpx":  false,
		"/a/b/W0001.dat": true,
	} {
		if got := IsTrackFile(name); got != want {
			t.Errorf("IsTrackFile(%q) = %v, expected %v", name, got, want)
		}
	}
}
