package nst

import "time"

// Point is a decoded trackpoint. Positions are kept as signed minutes x1e4
// so that long delta chains accumulate without rounding drift.
type Point struct {
	Index int
	Kind  FileKind

	Unix    float64 // seconds since the Unix epoch, UTC
	Elapsed float64 // seconds of recording time, pauses excluded

	Lat, Lon  int64 // signed minutes x1e4
	Elevation int64 // decimetres
	Velocity  int64 // cm/s
	DeltaDist int64 // cm since the previous point
	Dist      int64 // cumulative cm

	// DeviceTime is set when the record carried its own timestamp.
	DeviceTime bool
}

const minutesScale = 1e4 * 60

func (p Point) LatDeg() float64     { return float64(p.Lat) / minutesScale }
func (p Point) LonDeg() float64     { return float64(p.Lon) / minutesScale }
func (p Point) ElevationM() float64 { return float64(p.Elevation) / 10 }
func (p Point) SpeedMS() float64    { return float64(p.Velocity) / 100 }
func (p Point) SpeedKMH() float64   { return float64(p.Velocity) / 100 * 3.6 }
func (p Point) DistKM() float64     { return float64(p.Dist) / 1e5 }
func (p Point) Time() time.Time     { return unixTime(p.Unix) }

// dmmToMinutes converts signed DDDmm.mmmm x1e4 to signed minutes x1e4. The
// sign applies to the whole value: |v| = deg*1e6 + minutes*1e4.
func dmmToMinutes(v int32) int64 {
	a := int64(v)
	neg := a < 0
	if neg {
		a = -a
	}
	m := a/1e6*60*1e4 + a%1e6
	if neg {
		return -m
	}
	return m
}

// Advance applies one record to the previous point and returns the next one.
// Index, Kind and any later corrections are left to the caller.
func Advance(prev Point, r RawRecord) Point {
	var p Point
	switch r.Layout.Shape {
	case ShapeAbsolute:
		p.Elapsed = float64(r.Time) / 100
		p.Lat = dmmToMinutes(r.Lat)
		p.Lon = dmmToMinutes(r.Lon)
		p.Elevation = int64(r.Elevation)
		p.Velocity = int64(r.Velocity)
		if r.Layout.DeviceTime {
			p.Unix = SymbianToUnix(r.DeviceTime)
			p.DeviceTime = true
		} else {
			p.Unix = prev.Unix + (p.Elapsed - prev.Elapsed)
		}
	default:
		dt := float64(r.Time) / 100
		p.Elapsed = prev.Elapsed + dt
		p.Unix = prev.Unix + dt
		p.Lat = prev.Lat + int64(r.Lat)
		p.Lon = prev.Lon + int64(r.Lon)
		p.Elevation = prev.Elevation + int64(r.Elevation)
		p.Velocity = prev.Velocity + int64(r.Velocity)
	}
	p.DeltaDist = int64(r.Distance)
	p.Dist = prev.Dist + p.DeltaDist
	return p
}
