// Package nsttest builds small SportsTracker files for tests of the
// packages that consume decoded tracks.
package nsttest

import (
	"encoding/binary"
	"time"

	"nstrack/internal/nst"
)

// Track describes an old-format track file.
type Track struct {
	ID       uint32
	Name     string // ASCII, under 64 characters
	UserID   uint32
	Activity uint16
	Start    time.Time
	TZHours  int
	Points   int // one per second, 3 m apart, heading north
}

const (
	mainBlock = 0x200
	lat0      = 60300000 // 60 deg 30 min
	lon0      = 24360000
	stepCM    = 300
)

// Bytes renders the file.
func (t Track) Bytes() []byte {
	b := make([]byte, mainBlock)
	le := binary.LittleEndian
	le.PutUint32(b[0:], nst.AppID)
	le.PutUint32(b[4:], uint32(nst.KindTrack))
	le.PutUint32(b[8:], 1000)
	le.PutUint32(b[12:], mainBlock+1)

	n := max(t.Points, 0)
	utc := float64(t.Start.UnixMilli()) / 1000
	local := utc + float64(t.TZHours)*3600
	span := float64(max(n-1, 0))

	le.PutUint32(b[0x14:], t.ID)
	le.PutUint32(b[0x18:], uint32(span*100))
	le.PutUint32(b[0x1C:], uint32(span*stepCM))
	le.PutUint64(b[0x20:], uint64(nst.UnixToSymbian(local)))
	le.PutUint64(b[0x28:], uint64(nst.UnixToSymbian(local+span)))
	le.PutUint32(b[0x30:], t.UserID)
	le.PutUint16(b[0x38:], t.Activity)

	b[0x46] = byte(len(t.Name) * 4)
	copy(b[0x47:], t.Name)

	le.PutUint64(b[0x18E:], uint64(nst.UnixToSymbian(utc)))
	le.PutUint64(b[0x196:], uint64(nst.UnixToSymbian(utc+span)))

	b = le.AppendUint32(b, 0) // no pauses
	b = le.AppendUint32(b, uint32(n))
	for i := range n {
		b = append(b, 0x00)
		b = le.AppendUint32(b, uint32(i*100))
		b = le.AppendUint32(b, uint32(lat0+i*60))
		b = le.AppendUint32(b, lon0)
		b = le.AppendUint32(b, uint32(1000+i))
		b = le.AppendUint16(b, stepCM)
		d := uint32(stepCM)
		if i == 0 {
			d = 0
		}
		b = le.AppendUint32(b, d)
	}
	return b
}
