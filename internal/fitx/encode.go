package fitx

import (
	"encoding/binary"
	"errors"
	"io"
	"math"
	"time"

	"github.com/tormoder/fit"

	"nstrack/internal/nst"
)

// FIT scaling per profile.
const (
	altitudeScale  = 5    // altitude: (m + 500) * 5
	altitudeOffset = 500  // m
	speedScale     = 1000 // speed: m/s * 1000
	timeScale      = 1000 // total_timer_time: s * 1000
)

var ErrNoPoints = errors.New("fitx: track has no points")

// sports maps SportsTracker activity indexes to FIT sport/sub-sport.
var sports = map[uint16]struct {
	sport fit.Sport
	sub   fit.SubSport
}{
	0:  {fit.SportWalking, fit.SubSportGeneric},
	1:  {fit.SportRunning, fit.SubSportGeneric},
	2:  {fit.SportCycling, fit.SubSportGeneric},
	3:  {fit.SportCrossCountrySkiing, fit.SubSportGeneric},
	10: {fit.SportCycling, fit.SubSportMountain},
	11: {fit.SportHiking, fit.SubSportGeneric},
	12: {fit.SportInlineSkating, fit.SubSportGeneric},
	13: {fit.SportAlpineSkiing, fit.SubSportGeneric},
	14: {fit.SportPaddling, fit.SubSportGeneric},
	15: {fit.SportRowing, fit.SubSportGeneric},
	16: {fit.SportGolf, fit.SubSportGeneric},
	17: {fit.SportTraining, fit.SubSportGeneric},
}

// SportFor returns the FIT sport for an activity index; unknown and
// "Other" activities are generic.
func SportFor(activity uint16) (fit.Sport, fit.SubSport) {
	if s, ok := sports[activity]; ok {
		return s.sport, s.sub
	}
	return fit.SportGeneric, fit.SubSportGeneric
}

// Encode writes a decoded track as a FIT activity file: one record per
// point, one session and the activity summary.
func Encode(w io.Writer, f *nst.File) error {
	if len(f.Points) == 0 {
		return ErrNoPoints
	}
	first, last := f.Points[0], f.Points[len(f.Points)-1]
	start, end := first.Time(), last.Time()

	h := fit.NewHeader(fit.V20, true)
	file, err := fit.NewFile(fit.FileTypeActivity, h)
	if err != nil {
		return err
	}
	file.FileId.TimeCreated = start
	file.FileId.Manufacturer = fit.ManufacturerDevelopment

	act, err := file.Activity()
	if err != nil {
		return err
	}

	for _, p := range f.Points {
		r := fit.NewRecordMsg()
		r.Timestamp = p.Time()
		r.PositionLat = fit.NewLatitudeDegrees(p.LatDeg())
		r.PositionLong = fit.NewLongitudeDegrees(p.LonDeg())
		r.Altitude = altitude(p.ElevationM())
		r.Distance = uint32(p.Dist) // cm == m * 100
		r.Speed = speed(p.SpeedMS())
		act.Records = append(act.Records, r)
	}

	sum := f.Summary()
	sport, sub := SportFor(f.Header.Activity)
	timer := uint32(math.Round(sum.TotalTime * timeScale))

	s := fit.NewSessionMsg()
	s.Timestamp = end
	s.StartTime = start
	s.StartPositionLat = fit.NewLatitudeDegrees(first.LatDeg())
	s.StartPositionLong = fit.NewLongitudeDegrees(first.LonDeg())
	s.Sport = sport
	s.SubSport = sub
	s.Event = fit.EventSession
	s.EventType = fit.EventTypeStop
	s.TotalElapsedTime = uint32(math.Round(end.Sub(start).Seconds() * timeScale))
	s.TotalTimerTime = timer
	s.TotalDistance = uint32(math.Round(sum.TotalDistance * 1e5))
	s.AvgSpeed = speed(sum.NetSpeed / 3.6)
	s.MaxSpeed = speed(sum.MaxSpeed / 3.6)
	s.TotalAscent = uint16(sum.ElevationGain)
	s.NumLaps = 1
	act.Sessions = append(act.Sessions, s)

	a := fit.NewActivityMsg()
	a.Timestamp = end
	a.TotalTimerTime = timer
	a.NumSessions = 1
	a.Type = fit.ActivityModeManual
	a.Event = fit.EventActivity
	a.EventType = fit.EventTypeStop
	a.LocalTimestamp = end.Add(time.Duration(f.Header.TZHours * float64(time.Hour)))
	act.Activity = a

	return fit.Encode(w, file, binary.LittleEndian)
}

func altitude(m float64) uint16 {
	v := (m + altitudeOffset) * altitudeScale
	switch {
	case v < 0:
		return 0
	case v > 0xFFFE:
		return 0xFFFE
	}
	return uint16(v + 0.5)
}

func speed(ms float64) uint16 {
	v := ms * speedScale
	switch {
	case v < 0:
		return 0
	case v > 0xFFFE:
		return 0xFFFE
	}
	return uint16(v + 0.5)
}
