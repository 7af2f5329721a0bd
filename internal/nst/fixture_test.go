package nst

import (
	"encoding/binary"
	"math"
)

// fixture assembles little-endian test files.
type fixture struct {
	b []byte
}

func (f *fixture) at(off int) *fixture {
	if off < len(f.b) {
		panic("fixture: offset moves backwards")
	}
	f.b = append(f.b, make([]byte, off-len(f.b))...)
	return f
}

func (f *fixture) u8(v ...byte) *fixture { f.b = append(f.b, v...); return f }
func (f *fixture) u16(v uint16) *fixture { f.b = binary.LittleEndian.AppendUint16(f.b, v); return f }
func (f *fixture) i16(v int16) *fixture  { return f.u16(uint16(v)) }
func (f *fixture) u32(v uint32) *fixture { f.b = binary.LittleEndian.AppendUint32(f.b, v); return f }
func (f *fixture) i32(v int32) *fixture  { return f.u32(uint32(v)) }
func (f *fixture) i64(v int64) *fixture  { f.b = binary.LittleEndian.AppendUint64(f.b, uint64(v)); return f }

// symbian converts unix seconds to Symbian microseconds.
func symbian(unix float64) int64 {
	return int64(math.Round((unix + symbianEpochOffset) * 1e6))
}

// ascii writes an SCSU string field holding plain ASCII.
func (f *fixture) ascii(s string) *fixture {
	f.u8(byte(len(s) * 4))
	f.b = append(f.b, s...)
	return f
}

// absolute writes an old-format absolute record body (tag excluded).
func (f *fixture) absolute(t uint32, lat, lon, ele int32, v uint16, dist uint32) *fixture {
	return f.u32(t).i32(lat).i32(lon).i32(ele).u16(v).u32(dist)
}

// delta writes a short delta record body: u8 dt, i16 lat/lon/ele, i8 v,
// u16 dist.
func (f *fixture) delta(dt byte, dlat, dlon, dele int16, dv int8, dist uint16) *fixture {
	return f.u8(dt).i16(dlat).i16(dlon).i16(dele).u8(byte(dv)).u16(dist)
}

const (
	testStartUTC = 1_600_000_000.0
	testTZ       = 9
	testMain     = 0x300
)

// trackHeader writes a track header with the main block at testMain.
func trackHeader(version uint32, totalTime, totalDist uint32) *fixture {
	f := &fixture{}
	f.u32(AppID).u32(uint32(KindTrack)).u32(version).u32(testMain + 1)
	wide := 0
	if version >= versionNewFormat {
		wide = 4
	}
	local := testStartUTC + testTZ*3600
	f.at(offTrackID).u32(42).u32(totalTime)
	if wide > 0 {
		f.u32(0)
	}
	f.u32(totalDist).i64(symbian(local)).i64(symbian(local + 1800))
	f.u32(7).u32(0).u16(1)
	f.at(offTrackName + wide).ascii("Morning run")
	f.at(offStartStopUTC + wide).i64(symbian(testStartUTC)).i64(symbian(testStartUTC + 1800))
	if wide > 0 {
		f.at(offComment).ascii("by the river")
	}
	return f.at(testMain)
}

// tempHeader writes a temporary file header; records start at tempStart.
func tempHeader() *fixture {
	f := &fixture{}
	f.u32(AppID).u32(uint32(KindTemporary)).u32(0).u32(20000).u32(0)
	local := testStartUTC + testTZ*3600
	f.at(offTrackID+4).u32(1).u32(0).u32(0).u32(0)
	f.i64(symbian(local)).i64(0)
	f.u32(7).u32(0).u16(0)
	f.at(offTrackName + 8).ascii("Rec")
	f.at(len(f.b) + tempUTCSkip).i64(symbian(testStartUTC)).i64(0)
	f.at(offComment + 4).u8(0)
	return f.at(tempStart)
}

// tempRecord writes a labelled 0x07 record of a temporary file.
func (f *fixture) tempRecord(t uint32, lat, lon, ele int32, dist uint32, unix float64) *fixture {
	f.u8(0x02, 0x00, 0x00, 0x00, 0x07, 0x83)
	return f.absolute(t, lat, lon, ele, 100, dist).i64(symbian(unix))
}
