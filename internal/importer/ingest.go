package importer

import (
	"crypto/sha1"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"nstrack/internal/gpx"
	"nstrack/internal/importlog"
	"nstrack/internal/metrics"
	"nstrack/internal/nst"
	"nstrack/internal/store"
)

var ErrDuplicate = errors.New("duplicate track")

// IngestFile archives, decodes and stores one SportsTracker file.
func (im *Importer) IngestFile(src string) (int64, error) {
	fi, err := os.Stat(src)
	if err != nil {
		return 0, err
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return 0, err
	}
	name := filepath.Base(src)
	return im.ingest(data, name, name, fi.ModTime())
}

// IngestUpload stores a file received over HTTP. The archived copy gets a
// random name so uploads of equally named files never collide.
func (im *Importer) IngestUpload(name string, data []byte) (int64, error) {
	name = filepath.Base(name)
	return im.ingest(data, name, "upload-"+uuid.NewString()+"-"+name, im.now())
}

func (im *Importer) ingest(data []byte, name, rawName string, modTime time.Time) (int64, error) {
	sum := sha1.Sum(data)
	hash := hex.EncodeToString(sum[:])

	opts := im.c.DecodeOptions()
	opts.ModTime = modTime
	opts.Logf = importlog.Prefixed(name)
	began := time.Now()
	f, err := nst.Parse(data, opts)
	if err != nil {
		im.m.File(kindOf(data), metrics.ResultError)
		return 0, fmt.Errorf("decode %s: %w", name, err)
	}
	im.m.Decoded(f, time.Since(began))
	kind := f.Header.Kind.String()

	dstDir := filepath.Join(im.c.RawStore, im.now().Format("2006/01/02"))
	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return 0, err
	}
	dstPath := filepath.Join(dstDir, rawName+"."+hash[:8]+".zst")

	var id int64
	err = im.db.WithTx(func(tx *sql.Tx) error {
		if err := im.checkDuplicate(tx, store.TrackUID(f.Header), hash, name); err != nil {
			return err
		}

		if err := writeRaw(dstPath, data); err != nil {
			return fmt.Errorf("archive: %w", err)
		}
		t := store.TrackFromFile(f, dstPath, name)
		var err error
		if id, err = im.db.InsertTrack(tx, t, hash); err != nil {
			return err
		}
		if err := im.db.InsertPoints(tx, id, f.Points); err != nil {
			return err
		}
		if err := im.db.InsertPauses(tx, id, f.PauseEvents); err != nil {
			return err
		}
		importlog.Printf("importer: imported id=%d from %s (%s, %d points, %.3f km, %d corrections)",
			id, name, kind, t.Points, t.DistanceM/1000, t.Corrections)
		return nil
	})
	switch {
	case errors.Is(err, ErrDuplicate):
		im.m.File(kind, metrics.ResultDuplicate)
		return 0, err
	case err != nil:
		_ = os.Remove(dstPath)
		im.m.File(kind, metrics.ResultError)
		return 0, err
	}
	im.m.File(kind, metrics.ResultImported)

	if im.c.ExportDir != "" {
		im.export(f, name)
	}
	return id, nil
}

func (im *Importer) export(f *nst.File, name string) {
	if err := os.MkdirAll(im.c.ExportDir, 0o755); err != nil {
		importlog.Printf("export: %v", err)
		return
	}
	out := filepath.Join(im.c.ExportDir, strings.TrimSuffix(name, filepath.Ext(name))+".gpx")
	if err := gpx.WriteFile(out, f); err != nil {
		importlog.Printf("export: %s: %v", out, err)
		return
	}
	importlog.Printf("export: wrote %s", out)
}

// Decode re-reads the archived file of a stored track.
func (im *Importer) Decode(t store.Track) (*nst.File, error) {
	data, err := ReadRaw(t.RawPath)
	if err != nil {
		return nil, err
	}
	opts := im.c.DecodeOptions()
	opts.ModTime = t.StartTimeUTC
	opts.Logf = func(string, ...any) {}
	return nst.Parse(data, opts)
}

func kindOf(data []byte) string {
	h, _ := nst.ReadHeader(data)
	if h == nil {
		return "unknown"
	}
	return h.Kind.String()
}

// checkDuplicate returns ErrDuplicate when the track uid or the file hash is
// already stored. Lookup failures are returned as they are.
func (im *Importer) checkDuplicate(tx *sql.Tx, uid, hash, name string) error {
	_, err := im.db.LookupTrackByUID(tx, uid)
	switch {
	case err == nil:
		importlog.Printf("importer: skip duplicate (uid %s) %s", uid, name)
		return ErrDuplicate
	case !errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("lookup uid %s: %w", uid, err)
	}
	_, err = im.db.LookupTrackByHash(tx, hash)
	switch {
	case err == nil:
		importlog.Printf("importer: skip duplicate (hash) %s", name)
		return ErrDuplicate
	case !errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("lookup hash: %w", err)
	}
	return nil
}
