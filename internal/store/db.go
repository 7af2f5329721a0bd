package store

import (
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"nstrack/internal/nst"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// timeLayout keeps stored timestamps sortable as text.
const timeLayout = "2006-01-02T15:04:05.000Z"

type DB struct{ *sql.DB }

type Track struct {
	ID           int64     `json:"id"`
	UID          string    `json:"uid"`
	Kind         string    `json:"kind"`
	TrackID      uint32    `json:"track_id"`
	Version      uint32    `json:"format_version"`
	Name         string    `json:"name"`
	Comment      string    `json:"comment,omitempty"`
	Activity     string    `json:"activity,omitempty"`
	UserID       uint32    `json:"user_id"`
	TZHours      float64   `json:"tz_hours"`
	StartTimeUTC time.Time `json:"start_time_utc"`
	TotalTimeS   float64   `json:"total_time_s"`
	RealTimeS    float64   `json:"real_time_s"`
	DistanceM    float64   `json:"distance_m"`
	NetSpeedKMH  float64   `json:"net_speed_kmh"`
	MaxSpeedKMH  float64   `json:"max_speed_kmh"`
	AscentM      float64   `json:"ascent_m"`
	Points       int       `json:"points"`
	Corrections  int       `json:"corrections"`
	SourceName   string    `json:"source_name"`
	RawPath      string    `json:"-"`
}

type Trackpoint struct {
	Index    int
	TOffsetS float64
	Unix     float64
	Lat, Lon float64
	ElevM    float64
	SpeedMPS float64
	DistM    float64
}

func Open(path string) (*DB, error) {
	// ensure parent directory exists (SQLite won't create parents)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?cache=shared&mode=rwc&_pragma=foreign_keys(1)&_pragma=busy_timeout(8000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	return &DB{db}, nil
}

func (db *DB) WithTx(fn func(*sql.Tx) error) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func Migrate(db *DB) error {
	goose.SetBaseFS(embedMigrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return err
	}
	return goose.Up(db.DB, "migrations")
}

// TrackUID identifies a recording independently of the file it came in.
// Routes carry no start time, so their name stands in for it.
func TrackUID(h *nst.Header) string {
	if h.Kind == nst.KindRoute {
		return fmt.Sprintf("%s:%d:%s", h.Kind, h.ID, h.Name)
	}
	return fmt.Sprintf("%s:%d:%d", h.Kind, h.ID, int64(h.StartUTC*1000))
}

// TrackFromFile fills the stored summary of a decoded file.
func TrackFromFile(f *nst.File, rawPath, source string) Track {
	h := f.Header
	sum := f.Summary()
	t := Track{
		UID:         TrackUID(h),
		Kind:        h.Kind.String(),
		TrackID:     h.ID,
		Version:     h.Version,
		Name:        h.Name,
		Comment:     h.Comment,
		UserID:      h.UserID,
		TZHours:     h.TZHours,
		TotalTimeS:  sum.TotalTime,
		RealTimeS:   sum.RealTime,
		DistanceM:   sum.TotalDistance * 1000,
		NetSpeedKMH: sum.NetSpeed,
		MaxSpeedKMH: sum.MaxSpeed,
		AscentM:     sum.ElevationGain,
		Points:      len(f.Points),
		Corrections: f.Stats.Total(),
		SourceName:  source,
		RawPath:     rawPath,
	}
	if h.Kind != nst.KindRoute {
		t.Activity = h.ActivityName()
	}
	if len(f.Points) > 0 {
		t.StartTimeUTC = f.Points[0].Time().UTC()
	} else {
		t.StartTimeUTC = nst.Point{Unix: h.StartUTC}.Time().UTC()
	}
	return t
}

func (db *DB) LookupTrackByUID(tx *sql.Tx, uid string) (int64, error) {
	var id int64
	err := tx.QueryRow("SELECT id FROM tracks WHERE uid=?", uid).Scan(&id)
	return id, err
}

func (db *DB) LookupTrackByHash(tx *sql.Tx, h string) (int64, error) {
	var id int64
	err := tx.QueryRow("SELECT id FROM tracks WHERE file_hash=?", h).Scan(&id)
	return id, err
}

func (db *DB) TrackRawPath(id int64) (string, error) {
	var path string
	err := db.QueryRow(`SELECT raw_path FROM tracks WHERE id = ?`, id).Scan(&path)
	if err != nil {
		return "", err
	}
	return path, nil
}

func (db *DB) InsertTrack(tx *sql.Tx, t Track, hash string) (int64, error) {
	res, err := tx.Exec(`INSERT INTO tracks(
		uid,file_hash,kind,track_id,format_version,name,comment,activity,user_id,tz_hours,start_time_utc,
		total_time_s,real_time_s,distance_m,net_speed_kmh,max_speed_kmh,ascent_m,points,corrections,source_name,raw_path,created_at
	) VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		t.UID, hash, t.Kind, t.TrackID, t.Version, t.Name, t.Comment, t.Activity, t.UserID, t.TZHours,
		t.StartTimeUTC.UTC().Format(timeLayout), t.TotalTimeS, t.RealTimeS, t.DistanceM, t.NetSpeedKMH,
		t.MaxSpeedKMH, t.AscentM, t.Points, t.Corrections, t.SourceName, t.RawPath,
		time.Now().UTC().Format(timeLayout))
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// InsertPoints stores the trackpoints with offsets relative to the first.
func (db *DB) InsertPoints(tx *sql.Tx, id int64, pts []nst.Point) error {
	stmt, err := tx.Prepare(`INSERT INTO trackpoints(track_id,idx,t_offset_s,unix,lat_deg,lon_deg,elev_m,speed_mps,dist_m) VALUES(?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	if len(pts) == 0 {
		return nil
	}
	t0 := pts[0].Unix
	for i, p := range pts {
		if _, err := stmt.Exec(id, i, p.Unix-t0, p.Unix, p.LatDeg(), p.LonDeg(), p.ElevationM(), p.SpeedMS(), float64(p.Dist)/100); err != nil {
			return err
		}
	}
	return nil
}

func (db *DB) InsertPauses(tx *sql.Tx, id int64, events []nst.PauseEvent) error {
	stmt, err := tx.Prepare(`INSERT INTO pauses(track_id,seq,kind,elapsed_s,unix) VALUES(?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for i, e := range events {
		if _, err := stmt.Exec(id, i, int(e.Kind), e.Elapsed, e.Unix); err != nil {
			return err
		}
	}
	return nil
}

const trackColumns = `id,uid,kind,track_id,format_version,name,comment,activity,user_id,tz_hours,start_time_utc,
	total_time_s,real_time_s,distance_m,net_speed_kmh,max_speed_kmh,ascent_m,points,corrections,source_name,raw_path`

type scanner interface{ Scan(dest ...any) error }

func scanTrack(s scanner) (Track, error) {
	var t Track
	var start string
	err := s.Scan(&t.ID, &t.UID, &t.Kind, &t.TrackID, &t.Version, &t.Name, &t.Comment, &t.Activity, &t.UserID,
		&t.TZHours, &start, &t.TotalTimeS, &t.RealTimeS, &t.DistanceM, &t.NetSpeedKMH, &t.MaxSpeedKMH,
		&t.AscentM, &t.Points, &t.Corrections, &t.SourceName, &t.RawPath)
	if err != nil {
		return t, err
	}
	if t.StartTimeUTC, err = time.Parse(timeLayout, start); err != nil {
		return t, fmt.Errorf("track %d start %q: %w", t.ID, start, err)
	}
	return t, nil
}

func (db *DB) GetTrack(id int64) (Track, error) {
	return scanTrack(db.QueryRow(`SELECT `+trackColumns+` FROM tracks WHERE id=?`, id))
}

// ListTracks returns tracks newest first, optionally limited to one kind.
func (db *DB) ListTracks(kind string, limit, offset int) ([]Track, error) {
	q := `SELECT ` + trackColumns + ` FROM tracks`
	var args []any
	if kind != "" {
		q += ` WHERE kind = ?`
		args = append(args, kind)
	}
	q += ` ORDER BY start_time_utc DESC, id DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Track
	for rows.Next() {
		t, err := scanTrack(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (db *DB) CountTracks(kind string) (int, error) {
	var n int
	var err error
	if kind == "" {
		err = db.QueryRow(`SELECT COUNT(*) FROM tracks`).Scan(&n)
	} else {
		err = db.QueryRow(`SELECT COUNT(*) FROM tracks WHERE kind = ?`, kind).Scan(&n)
	}
	return n, err
}

func (db *DB) Trackpoints(id int64) ([]Trackpoint, error) {
	rows, err := db.Query(`
		SELECT idx, t_offset_s, unix, lat_deg, lon_deg, elev_m, speed_mps, dist_m
		FROM trackpoints WHERE track_id = ? ORDER BY idx`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Trackpoint
	for rows.Next() {
		var p Trackpoint
		if err := rows.Scan(&p.Index, &p.TOffsetS, &p.Unix, &p.Lat, &p.Lon, &p.ElevM, &p.SpeedMPS, &p.DistM); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (db *DB) PauseEvents(id int64) ([]nst.PauseEvent, error) {
	rows, err := db.Query(`SELECT kind, elapsed_s, unix FROM pauses WHERE track_id = ? ORDER BY seq`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []nst.PauseEvent
	for rows.Next() {
		var e nst.PauseEvent
		var kind int
		if err := rows.Scan(&kind, &e.Elapsed, &e.Unix); err != nil {
			return nil, err
		}
		e.Kind = nst.PauseKind(kind)
		out = append(out, e)
	}
	return out, rows.Err()
}

// DeleteTrack removes a track with its points and pauses and returns the
// archived file path so the caller can remove it.
func (db *DB) DeleteTrack(id int64) (string, error) {
	var raw string
	err := db.WithTx(func(tx *sql.Tx) error {
		if err := tx.QueryRow(`SELECT raw_path FROM tracks WHERE id = ?`, id).Scan(&raw); err != nil {
			return err
		}
		for _, q := range []string{
			`DELETE FROM trackpoints WHERE track_id = ?`,
			`DELETE FROM pauses WHERE track_id = ?`,
			`DELETE FROM tracks WHERE id = ?`,
		} {
			if _, err := tx.Exec(q, id); err != nil {
				return err
			}
		}
		return nil
	})
	return raw, err
}
