package cfg

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"nstrack/internal/nst"
)

type Config struct {
	DBPath      string   `json:"db_path" yaml:"db_path"`
	RawStore    string   `json:"raw_store" yaml:"raw_store"`
	ExportDir   string   `json:"export_dir" yaml:"export_dir"`
	HTTPAddr    string   `json:"http_addr" yaml:"http_addr"`
	PollMs      int      `json:"poll_ms" yaml:"poll_ms"`
	SearchRoots []string `json:"search_roots" yaml:"search_roots"`
	TrackerDirs []string `json:"tracker_dirs" yaml:"tracker_dirs"`
	AuthUser    string   `json:"auth_user" yaml:"auth_user"`
	AuthPass    string   `json:"auth_pass" yaml:"auth_pass"`
	// DistanceBoundCM rejects temporary-file delta distances at or above
	// this many cm.
	DistanceBoundCM int64 `json:"distance_bound_cm" yaml:"distance_bound_cm"`
	Metrics         bool  `json:"metrics" yaml:"metrics"`
}

func Default() Config {
	return Config{
		DBPath:      "./data/nstrack.db",
		RawStore:    "./data/raw_nst",
		ExportDir:   "",
		HTTPAddr:    "127.0.0.1:8766",
		PollMs:      0,
		SearchRoots: []string{"/Volumes", "/media", "/run/media", "E:/"},
		TrackerDirs: []string{
			"Data/SportsTracker/Tracks", // phone memory card
			"Data/SportsTracker/Routes",
			"Data/SportsTracker/Temp", // recording interrupted
			"SportsTracker/Tracks",    // copied by hand
			"SportsTracker/Routes",
		},
		AuthUser:        "",
		AuthPass:        "",
		DistanceBoundCM: nst.DefaultDistanceBound,
		Metrics:         true,
	}
}

// DecodeOptions returns the decoder options for this configuration.
func (c Config) DecodeOptions() nst.Options {
	o := nst.DefaultOptions()
	if c.DistanceBoundCM > 0 {
		o.DistanceBound = c.DistanceBoundCM
	}
	return o
}

// Load reads JSON, or YAML when the path ends in .yaml or .yml. Missing or
// broken files give the defaults.
func Load(path string) Config {
	c := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		log.Printf("config: using defaults (%v)", err)
		return c
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, &c)
	default:
		err = json.Unmarshal(b, &c)
	}
	if err != nil {
		log.Printf("config decode: %v (using defaults)", err)
		return Default()
	}
	return c
}
