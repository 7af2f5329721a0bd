package nst

import "fmt"

// PauseKind is the flag byte of a pause table entry.
type PauseKind uint8

const (
	PauseStart          PauseKind = 1
	PauseStop           PauseKind = 2
	PauseManualSuspend  PauseKind = 3
	PauseAutoSuspend    PauseKind = 4
	PauseResume         PauseKind = 5
	PauseTimeCorrection PauseKind = 8
)

const pauseEntrySize = 1 + 4 + 1 + 8

// PauseEvent is one raw entry of the pause table.
type PauseEvent struct {
	Kind    PauseKind
	Elapsed float64 // seconds
	Unix    float64 // local time in old-format files, UTC in new ones
}

// Pause is a resume or time-correction point used to re-anchor the clock of
// the trackpoints that follow it.
type Pause struct {
	ElapsedAtSuspend float64
	Duration         float64
	ResumeUnix       float64
}

// ReadPauseTable reads a u32 count followed by that many 14-byte entries
// starting at b[0]. It returns the pauses and the number of bytes read.
func ReadPauseTable(b []byte) ([]Pause, int, error) {
	c := &cursor{buf: b}
	_, pauses, err := readPauseTable(c)
	return pauses, c.off, err
}

func readPauseTable(c *cursor) ([]PauseEvent, []Pause, error) {
	n, err := c.u32()
	if err != nil {
		return nil, nil, fmt.Errorf("pause count: %w", err)
	}
	if int64(n)*pauseEntrySize > int64(c.remaining()) {
		return nil, nil, fmt.Errorf("%w: %d pause entries at 0x%x", ErrTruncated, n, c.off)
	}

	events := make([]PauseEvent, 0, n)
	var pauses []Pause
	var suspend *PauseEvent
	for i := uint32(0); i < n; i++ {
		at := c.off
		b, _ := c.take(pauseEntrySize)
		f := fields{b: b}
		f.u8() // always 0x01
		ev := PauseEvent{Elapsed: float64(f.u32()) / 100}
		ev.Kind = PauseKind(f.u8())
		ev.Unix = SymbianToUnix(int64(f.u64()))
		events = append(events, ev)

		switch ev.Kind {
		case PauseManualSuspend, PauseAutoSuspend:
			s := ev
			suspend = &s
		case PauseResume:
			if suspend == nil || suspend.Elapsed != ev.Elapsed {
				return events, nil, fmt.Errorf("%w: entry %d at 0x%x, elapsed %.2f s", ErrPauseMismatch, i, at, ev.Elapsed)
			}
			pauses = append(pauses, Pause{
				ElapsedAtSuspend: ev.Elapsed,
				Duration:         ev.Unix - suspend.Unix,
				ResumeUnix:       ev.Unix,
			})
		case PauseTimeCorrection:
			pauses = append(pauses, Pause{ElapsedAtSuspend: ev.Elapsed, ResumeUnix: ev.Unix})
		}
	}
	return events, pauses, nil
}

// PauseSplicer re-anchors the unix time of points that follow a pause.
type PauseSplicer struct {
	queue     []Pause
	newFormat bool
	tzShift   float64
}

// NewPauseSplicer copies pauses into a FIFO. tzHours converts the local
// pause timestamps of old-format files to UTC.
func NewPauseSplicer(pauses []Pause, newFormat bool, tzHours float64) *PauseSplicer {
	return &PauseSplicer{
		queue:     append([]Pause(nil), pauses...),
		newFormat: newFormat,
		tzShift:   tzHours * 3600,
	}
}

// Pending returns the number of pauses not yet consumed.
func (s *PauseSplicer) Pending() int { return len(s.queue) }

// Apply pops the front pause once the point has reached it and rewrites the
// point's unix time from it. Points with their own timestamp keep it. It
// reports whether a pause was consumed.
func (s *PauseSplicer) Apply(p *Point) bool {
	if len(s.queue) == 0 || p.Elapsed+0.5 < s.queue[0].ElapsedAtSuspend {
		return false
	}
	front := s.queue[0]
	s.queue = s.queue[1:]
	if p.DeviceTime {
		return true
	}
	if s.newFormat {
		p.Unix = (p.Elapsed - front.ElapsedAtSuspend) + front.ResumeUnix
		return true
	}
	resume := front.ResumeUnix - s.tzShift
	if p.Unix < resume {
		p.Unix = (p.Elapsed - front.ElapsedAtSuspend) + resume
	}
	return true
}
