// Package nst reads Nokia (Symbian) SportsTracker files: W*.dat tracks,
// R*.dat routes and Rec*.tmp capture logs.
//
// A file is a fixed-offset header followed by a main block. Tracks carry a
// pause table before the trackpoints; routes go straight to the
// trackpoints; temporary files interleave labelled records without a usable
// count. Trackpoints are a chain of tagged records where most records are
// deltas against the previous decoded point.
package nst

import (
	"errors"
	"math"
	"strconv"
	"time"
)

// AppID is the SportsTracker application id stored at offset 0.
const AppID = 0x0E4935E8

// FileKind is the u32 file type stored at offset 4.
type FileKind uint32

const (
	KindConfig    FileKind = 1
	KindTrack     FileKind = 2
	KindRoute     FileKind = 3
	KindTemporary FileKind = 4
)

func (k FileKind) String() string {
	switch k {
	case KindConfig:
		return "config"
	case KindTrack:
		return "track"
	case KindRoute:
		return "route"
	case KindTemporary:
		return "temporary"
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// Fatal decode errors.
var (
	ErrBadMagic           = errors.New("nst: not a SportsTracker file")
	ErrUnsupportedVersion = errors.New("nst: unsupported file version")
	ErrTruncated          = errors.New("nst: unexpected end of data")
	ErrUnknownTag         = errors.New("nst: unknown trackpoint tag")
	ErrPauseMismatch      = errors.New("nst: resume does not match suspend")
	ErrCountMismatch      = errors.New("nst: trackpoint count mismatch")
)

// symbianEpochOffset is the number of seconds between 0000-01-01 (nominal
// Gregorian, as counted by Symbian) and the Unix epoch.
const symbianEpochOffset = 62168256000

// SymbianToUnix converts Symbian microseconds to Unix seconds.
func SymbianToUnix(us int64) float64 {
	return float64(us)/1e6 - symbianEpochOffset
}

// UnixToSymbian converts Unix seconds to Symbian microseconds.
func UnixToSymbian(sec float64) int64 {
	return int64(math.Round((sec + symbianEpochOffset) * 1e6))
}

// unixTime converts float Unix seconds to time.Time, keeping milliseconds.
func unixTime(sec float64) time.Time {
	return time.UnixMilli(int64(math.Round(sec * 1000))).UTC()
}

// Activities indexed by the activity field of the header.
var Activities = []string{
	"Walking", "Running", "Cycling", "Skiing",
	"Other 1", "Other 2", "Other 3", "Other 4", "Other 5", "Other 6",
	"Mountain biking", "Hiking", "Roller skating", "Downhill skiing",
	"Paddling", "Rowing", "Golf", "Indoor",
}

// ActivityName returns the label for an activity index, or the number itself
// when it is outside the known list.
func ActivityName(a uint16) string {
	if int(a) < len(Activities) {
		return Activities[a]
	}
	return strconv.Itoa(int(a))
}
