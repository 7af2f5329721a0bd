package nst

import (
	"bytes"
	"fmt"
	"iter"
)

// trackLabel precedes every trackpoint record of a temporary file.
var trackLabel = []byte{0x02, 0x00, 0x00, 0x00}

// DecodeContext holds the per-file inputs of the trackpoint decoder. It is
// not modified while decoding.
type DecodeContext struct {
	Kind      FileKind
	NewFormat bool
	TZHours   float64
	// Start is the unix time of the seed point the first record is
	// applied to.
	Start float64
	// Count is the declared number of trackpoints. Temporary files have no
	// usable count and ignore it.
	Count  int
	Pauses []Pause

	DistanceBound int64
	Logf          func(format string, args ...any)
}

// Decoder produces the trackpoints of one file in order.
type Decoder struct {
	ctx   DecodeContext
	cur   *cursor
	stats Stats
	last  Point
	n     int
}

// NewDecoder returns a decoder reading records from data starting at off.
func NewDecoder(data []byte, off int, ctx DecodeContext) *Decoder {
	return &Decoder{ctx: ctx, cur: &cursor{buf: data, off: off}}
}

// Stats returns the corrections applied so far.
func (d *Decoder) Stats() Stats { return d.stats }

// Last returns the last emitted point, or the seed point before any.
func (d *Decoder) Last() Point { return d.last }

// Decoded returns the number of points emitted so far.
func (d *Decoder) Decoded() int { return d.n }

func (d *Decoder) logf(format string, args ...any) {
	if d.ctx.Logf != nil {
		d.ctx.Logf(format, args...)
	}
}

// Points iterates over the decoded points. A fatal error is yielded once
// with a zero Point and ends the iteration. A Decoder can be ranged over
// only once.
func (d *Decoder) Points() iter.Seq2[Point, error] {
	d.last = Point{Kind: d.ctx.Kind, Unix: d.ctx.Start}
	if d.ctx.Kind == KindTemporary {
		return d.temporary
	}
	return d.counted
}

func (d *Decoder) counted(yield func(Point, error) bool) {
	splicer := NewPauseSplicer(d.ctx.Pauses, d.ctx.NewFormat, d.ctx.TZHours)
	for i := 0; i < d.ctx.Count; i++ {
		at := d.cur.off
		if d.cur.remaining() == 0 {
			yield(Point{}, fmt.Errorf("%w: declared %d, decoded %d", ErrCountMismatch, d.ctx.Count, i))
			return
		}
		tag, err := d.cur.u8()
		if err == nil && d.ctx.NewFormat {
			err = d.cur.skip(1)
		}
		if err != nil {
			yield(Point{}, err)
			return
		}
		layout, ok := Dispatch(tag, d.ctx.NewFormat)
		if !ok {
			d.stats.UnknownTag++
			yield(Point{}, fmt.Errorf("%w 0x%02x at 0x%x (point %d of %d)", ErrUnknownTag, tag, at, i, d.ctx.Count))
			return
		}
		rec, err := readRecord(d.cur, tag, layout)
		if err != nil {
			yield(Point{}, fmt.Errorf("point %d: %w", i, err))
			return
		}

		p := Advance(d.last, rec)
		p.Index, p.Kind = i, d.ctx.Kind
		if splicer.Apply(&p) {
			d.stats.PauseSplice++
		}
		d.last, d.n = p, d.n+1
		if !yield(p, nil) {
			return
		}
	}
}

// temporary scans for labelled records. Damaged stretches are skipped one
// byte at a time and the stream ends at the first incomplete record.
func (d *Decoder) temporary(yield func(Point, error) bool) {
	layout, _ := Dispatch(0x07, true)
	filter := &TimeFilter{DistanceBound: d.ctx.DistanceBound, Logf: d.ctx.Logf, Stats: &d.stats}
	c := d.cur
	for c.remaining() >= len(trackLabel) {
		if !bytes.HasPrefix(c.buf[c.off:], trackLabel) {
			c.off++
			continue
		}
		c.off += len(trackLabel)
		at := c.off
		if c.remaining() < 2 {
			return
		}
		tag, second := c.buf[c.off], c.buf[c.off+1]
		c.off += 2
		if tag != 0x07 || (second != 0x82 && second != 0x83) {
			if tag != 0x00 || second != 0x00 {
				d.stats.UnknownTag++
				d.logf("nst: unknown record header %02x%02x at 0x%x after %d points", tag, second, at, d.n)
			}
			continue
		}
		if c.remaining() < layout.Size() {
			return
		}
		rec, _ := readRecord(c, tag, layout)

		p := Advance(d.last, rec)
		p.Index, p.Kind = d.n, d.ctx.Kind
		filter.Apply(&p, d.last, d.n == 0, at)
		d.last, d.n = p, d.n+1
		if !yield(p, nil) {
			return
		}
	}
}
