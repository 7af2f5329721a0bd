// Package gpx renders decoded SportsTracker files as GPX 1.1.
package gpx

import (
	"encoding/xml"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"time"

	gogpx "github.com/twpayne/go-gpx"

	"nstrack/internal/nst"
)

// TrackPointExtensionNS is the Garmin namespace used for per-point speed.
const TrackPointExtensionNS = "http://www.garmin.com/xmlschemas/TrackPointExtension/v2"

const creator = "nstrack"

// Build converts a decoded file into a GPX document. Routes become a single
// rte, tracks and temporary files a single trk with one trkseg.
func Build(f *nst.File) *gogpx.GPX {
	h := f.Header
	sum := f.Summary()
	g := &gogpx.GPX{
		Version: "1.1",
		Creator: creator,
		Metadata: &gogpx.MetadataType{
			Name: "[" + h.Name + "]",
		},
	}

	pts := make([]*gogpx.WptType, 0, len(f.Points))
	for _, p := range f.Points {
		pts = append(pts, waypoint(p))
	}

	if h.Kind == nst.KindRoute {
		g.Rte = []*gogpx.RteType{{
			Name:  g.Metadata.Name,
			Desc:  sum.String(),
			RtePt: pts,
		}}
		return g
	}

	g.Metadata.Desc = "[" + h.ActivityName() + "]"
	g.Metadata.Author = &gogpx.PersonType{Name: strconv.FormatUint(uint64(h.UserID), 10)}
	g.Metadata.Time = startTime(h)
	g.Trk = []*gogpx.TrkType{{
		Name:   g.Metadata.Name,
		Desc:   sum.String(),
		Cmt:    h.Comment,
		TrkSeg: []*gogpx.TrkSegType{{TrkPt: pts}},
	}}
	return g
}

// startTime is the UTC start shown in the recording's own zone.
func startTime(h *nst.Header) time.Time {
	sec, frac := math.Modf(h.StartUTC)
	return time.Unix(int64(sec), int64(frac*1e9)).In(h.Zone())
}

func waypoint(p nst.Point) *gogpx.WptType {
	speed := round3(p.SpeedMS())
	ext := fmt.Sprintf(`<gpxtpx:TrackPointExtension xmlns:gpxtpx="%s"><gpxtpx:speed>%s</gpxtpx:speed></gpxtpx:TrackPointExtension>`,
		TrackPointExtensionNS, formatFloat(speed))
	return &gogpx.WptType{
		Lat:        p.LatDeg(),
		Lon:        p.LonDeg(),
		Ele:        p.ElevationM(),
		Time:       p.Time(),
		Name:       strconv.Itoa(p.Index + 1),
		Desc:       fmt.Sprintf("Speed %s km/h Distance %s km", formatFloat(round3(p.SpeedKMH())), formatFloat(round3(p.DistKM()))),
		Extensions: &gogpx.ExtensionsType{XML: []byte(ext)},
	}
}

func round3(v float64) float64 { return math.Round(v*1000) / 1000 }

func formatFloat(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

// Write writes the GPX document for f to w.
func Write(w io.Writer, f *nst.File) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	if err := Build(f).WriteIndent(w, "", "  "); err != nil {
		return fmt.Errorf("encode gpx: %w", err)
	}
	return nil
}

// WriteFile writes the GPX document for f to path.
func WriteFile(path string, f *nst.File) error {
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Write(out, f); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
