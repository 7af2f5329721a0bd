package fitx

import (
	"io"
	"time"

	"github.com/tormoder/fit"
)

const semicirclesToDeg = 180.0 / 2147483648.0 // 2^31

type Activity struct {
	StartTimeUTC time.Time
	Sport        string
	SubSport     string
	DurationS    float64
	DistanceM    float64
	AvgSpeedMPS  float64
	MaxSpeedMPS  float64
	AscentM      float64
}

type Record struct {
	Time     time.Time
	Lat      *float64
	Lon      *float64
	ElevM    *float64
	DistM    float64
	SpeedMPS *float64
}

// Read decodes a FIT activity. It is used to check exported files.
func Read(r io.Reader) (Activity, []Record, error) {
	fd, err := fit.Decode(r)
	if err != nil {
		return Activity{}, nil, err
	}
	af, err := fd.Activity()
	if err != nil {
		return Activity{}, nil, err
	}
	if len(af.Sessions) == 0 {
		return Activity{}, nil, nil
	}
	s := af.Sessions[0]

	// total_timer_time: s (scale 1000), total_distance: m (scale 100),
	// speeds: m/s (scale 1000)
	meta := Activity{
		StartTimeUTC: s.StartTime.UTC(),
		Sport:        s.Sport.String(),
		SubSport:     s.SubSport.String(),
		DurationS:    float64(s.TotalTimerTime) / timeScale,
		DistanceM:    float64(s.TotalDistance) / 100,
		AvgSpeedMPS:  float64(s.AvgSpeed) / speedScale,
		MaxSpeedMPS:  float64(s.MaxSpeed) / speedScale,
		AscentM:      float64(s.TotalAscent),
	}

	recs := make([]Record, 0, len(af.Records))
	for _, rr := range af.Records {
		r := Record{Time: rr.Timestamp.UTC(), DistM: float64(rr.Distance) / 100}

		if rr.PositionLat.Semicircles() != 0 && rr.PositionLong.Semicircles() != 0 {
			lat := float64(rr.PositionLat.Semicircles()) * semicirclesToDeg
			lon := float64(rr.PositionLong.Semicircles()) * semicirclesToDeg
			if lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180 {
				r.Lat, r.Lon = &lat, &lon
			}
		}
		if rr.Speed != 0xFFFF {
			v := float64(rr.Speed) / speedScale
			r.SpeedMPS = &v
		}
		if rr.Altitude != 0xFFFF {
			v := float64(rr.Altitude)/altitudeScale - altitudeOffset
			r.ElevM = &v
		}
		recs = append(recs, r)
	}
	return meta, recs, nil
}
