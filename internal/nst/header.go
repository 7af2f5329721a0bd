package nst

import (
	"fmt"
	"time"

	"nstrack/internal/scsu"
)

// Version thresholds.
const (
	versionRoute     = 10000 // old routes and temporary files start here
	versionNewFormat = 20000 // two-byte record headers, device timestamps
)

// tempStart is where the labelled record stream of a temporary file is
// scanned from. The address stored in the header is not usable there.
const tempStart = 0x250

// Header offsets of track files. Temporary files shift all of them by 4.
const (
	offTrackID      = 0x14
	offTrackName    = 0x46
	offStartStopUTC = 0x18E
	offComment      = 0x222
	tempUTCSkip     = 0x137 // from the end of the name in temporary files
)

// Header is the information part of a track, route or temporary file.
type Header struct {
	Kind      FileKind
	Version   uint32
	NewFormat bool
	// Start is the offset of the main block: the pause table for tracks,
	// the trackpoint count for routes, the scan start for temporary files.
	Start int

	ID            uint32  // track or route id
	TotalTime     float64 // s, zero for routes
	TotalDistance int64   // cm

	StartLocal, StopLocal float64 // unix seconds, local wall clock
	StartUTC, StopUTC     float64
	HasStop               bool
	TZHours               float64

	UserID   uint32
	Activity uint16
	Name     string
	Comment  string
}

// ActivityName returns the activity label.
func (h *Header) ActivityName() string { return ActivityName(h.Activity) }

// Zone returns a fixed zone for the recorded time-zone offset.
func (h *Header) Zone() *time.Location {
	off := int(h.TZHours * 3600)
	return time.FixedZone(fmt.Sprintf("UTC%+.4g", h.TZHours), off)
}

// ReadHeader parses the header of a SportsTracker file.
func ReadHeader(data []byte) (*Header, error) {
	return readHeader(&cursor{buf: data})
}

func readHeader(c *cursor) (*Header, error) {
	app, err := c.u32()
	if err != nil {
		return nil, err
	}
	kind, err := c.u32()
	if err != nil {
		return nil, err
	}
	h := &Header{Kind: FileKind(kind)}
	if app != AppID {
		return nil, fmt.Errorf("%w: application id 0x%08x", ErrBadMagic, app)
	}

	shift := 0
	switch h.Kind {
	case KindTrack, KindRoute:
	case KindTemporary:
		blank, err := c.u32()
		if err != nil {
			return nil, err
		}
		if blank != 0 {
			return nil, fmt.Errorf("%w: temporary file blank 0x%x", ErrBadMagic, blank)
		}
		shift = 4
	default:
		return nil, fmt.Errorf("%w: file type %s", ErrBadMagic, h.Kind)
	}

	if h.Version, err = c.u32(); err != nil {
		return nil, err
	}
	start, err := c.u32()
	if err != nil {
		return nil, err
	}

	switch h.Kind {
	case KindTemporary:
		if h.Version < versionRoute {
			return nil, fmt.Errorf("%w: temporary file version %d", ErrUnsupportedVersion, h.Version)
		}
		h.NewFormat = true
		h.Start = tempStart
	default:
		h.NewFormat = h.Version >= versionNewFormat
		h.Start = int(start) - 1
	}

	if h.Kind == KindRoute {
		return h, readRouteInfo(c, h)
	}
	return h, readTrackInfo(c, h, shift)
}

func readTrackInfo(c *cursor, h *Header, shift int) error {
	wide := 0
	if h.NewFormat {
		wide = 4
	}
	if err := c.seek(offTrackID + shift); err != nil {
		return err
	}
	var err error
	if h.ID, err = c.u32(); err != nil {
		return err
	}
	total, err := c.u32()
	if err != nil {
		return err
	}
	h.TotalTime = float64(total) / 100
	if err := c.skip(wide); err != nil {
		return err
	}
	dist, err := c.u32()
	if err != nil {
		return err
	}
	h.TotalDistance = int64(dist)

	startLocal, stopLocal, err := timePair(c)
	if err != nil {
		return err
	}
	if h.Kind == KindTemporary && stopLocal <= startLocal {
		stopLocal = 0
	}
	h.StartLocal = SymbianToUnix(startLocal)
	h.StopLocal = SymbianToUnix(stopLocal)
	h.HasStop = stopLocal != 0

	if h.UserID, err = c.u32(); err != nil {
		return err
	}
	if err := c.skip(4); err != nil {
		return err
	}
	if h.Activity, err = c.u16(); err != nil {
		return err
	}

	if err := c.seek(offTrackName + wide + shift); err != nil {
		return err
	}
	if h.Name, err = readSCSU(c); err != nil {
		return fmt.Errorf("track name: %w", err)
	}

	if h.Kind == KindTemporary {
		err = c.skip(tempUTCSkip)
	} else {
		err = c.seek(offStartStopUTC + wide + shift)
	}
	if err != nil {
		return err
	}
	startUTC, stopUTC, err := timePair(c)
	if err != nil {
		return err
	}
	if h.Kind == KindTemporary && stopUTC <= startUTC {
		stopUTC = 0
	}
	h.StartUTC = SymbianToUnix(startUTC)
	h.StopUTC = SymbianToUnix(stopUTC)
	h.TZHours = float64((startLocal-startUTC)/1e6) / 3600

	if h.NewFormat {
		if err := c.seek(offComment + shift); err != nil {
			return err
		}
		if h.Comment, err = readSCSU(c); err != nil {
			return fmt.Errorf("comment: %w", err)
		}
	}
	return nil
}

func readRouteInfo(c *cursor, h *Header) error {
	if err := c.seek(offTrackID); err != nil {
		return err
	}
	var err error
	if h.ID, err = c.u32(); err != nil {
		return err
	}
	if h.Name, err = readSCSU(c); err != nil {
		return fmt.Errorf("route name: %w", err)
	}
	dist, err := c.u32()
	if err != nil {
		return err
	}
	h.TotalDistance = int64(dist)
	return nil
}

func timePair(c *cursor) (int64, int64, error) {
	a, err := c.i64()
	if err != nil {
		return 0, 0, err
	}
	b, err := c.i64()
	if err != nil {
		return 0, 0, err
	}
	return a, b, nil
}

// readSCSU reads a length-prefixed SCSU string. The prefix holds the
// character count times four in one byte, or times eight in a little-endian
// u16 when its lowest bit is set. The compressed length is not stored, so
// the cursor is advanced by what the decoder consumed.
func readSCSU(c *cursor) (string, error) {
	lo, err := c.u8()
	if err != nil {
		return "", err
	}
	size := int(lo)
	if lo&1 == 1 {
		hi, err := c.u8()
		if err != nil {
			return "", err
		}
		size = int(uint16(lo)|uint16(hi)<<8) >> 1
	}
	start := c.off
	end := min(start+size, len(c.buf))
	s, n, err := scsu.DecodeExact(c.buf[start:end], size>>2)
	if err != nil {
		return "", fmt.Errorf("at 0x%x: %w", start, err)
	}
	c.off = start + n
	return s, nil
}
