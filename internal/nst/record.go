package nst

import "fmt"

// Shape is the on-disk family of a trackpoint record.
type Shape uint8

const (
	ShapeAbsolute  Shape = iota // full position, elapsed counter
	ShapeDelta                  // differences against the previous point
	ShapeDeltaJump              // delta plus two jump fields seen on long gaps
)

func (s Shape) String() string {
	switch s {
	case ShapeAbsolute:
		return "absolute"
	case ShapeDelta:
		return "delta"
	case ShapeDeltaJump:
		return "delta+jump"
	}
	return fmt.Sprintf("shape(%d)", uint8(s))
}

// minRecordLen is the smallest record on disk: an old-format tag and delta.
const minRecordLen = 11

// Layout describes the fields that follow a tag.
type Layout struct {
	Shape        Shape
	WideVelocity bool // i16 velocity delta instead of i8
	WideDistance bool // u32 delta distance instead of u16
	DeviceTime   bool // trailing i64 Symbian timestamp (absolute, new format)
	Trailer      bool // two opaque bytes (delta, new format)
}

// Size returns the number of bytes after the tag.
func (l Layout) Size() int {
	if l.Shape == ShapeAbsolute {
		n := 4 + 4 + 4 + 4 + 2 + 4
		if l.DeviceTime {
			n += 8
		}
		return n
	}
	n := 1 + 2 + 2 + 2 + 1 + 2
	if l.Shape == ShapeDeltaJump {
		n += 4
	}
	if l.WideVelocity {
		n++
	}
	if l.WideDistance {
		n += 2
	}
	if l.Trailer {
		n += 2
	}
	return n
}

// Dispatch maps a record tag to its layout. The mapping depends only on the
// tag and on whether the file uses the new (two-byte header) format.
func Dispatch(tag byte, newFormat bool) (Layout, bool) {
	if newFormat {
		switch tag {
		case 0x07:
			return Layout{Shape: ShapeAbsolute, DeviceTime: true}, true
		case 0x87:
			return Layout{Shape: ShapeDelta, Trailer: true}, true
		case 0x97:
			return Layout{Shape: ShapeDelta, WideVelocity: true, Trailer: true}, true
		case 0xC7:
			return Layout{Shape: ShapeDeltaJump, Trailer: true}, true
		case 0xD7:
			return Layout{Shape: ShapeDeltaJump, WideVelocity: true, Trailer: true}, true
		}
		return Layout{}, false
	}
	switch tag {
	case 0x00, 0x02, 0x03:
		return Layout{Shape: ShapeAbsolute}, true
	case 0x80, 0x82, 0x83:
		return Layout{Shape: ShapeDelta}, true
	case 0x92, 0x93:
		return Layout{Shape: ShapeDelta, WideVelocity: true}, true
	case 0x9A, 0x9B:
		return Layout{Shape: ShapeDelta, WideVelocity: true, WideDistance: true}, true
	case 0xC2, 0xC3:
		return Layout{Shape: ShapeDeltaJump}, true
	case 0xD2, 0xD3:
		return Layout{Shape: ShapeDeltaJump, WideVelocity: true}, true
	case 0xDA, 0xDB:
		return Layout{Shape: ShapeDeltaJump, WideVelocity: true, WideDistance: true}, true
	}
	return Layout{}, false
}

// RawRecord is one trackpoint record as stored. For absolute records the
// position fields are absolute values; for delta records they are
// differences against the previous point.
type RawRecord struct {
	Tag    byte
	Layout Layout

	Time      uint32 // elapsed counter or elapsed delta, 1/100 s
	Lat, Lon  int32  // DDDmm.mmmm x1e4 (absolute) or minutes x1e4 (delta)
	Elevation int32  // 1/10 m
	Velocity  int32  // cm/s
	Distance  uint32 // delta distance, cm

	DeviceTime int64 // Symbian microseconds when Layout.DeviceTime

	Jump    [2]int16 // opaque, ShapeDeltaJump only
	Unknown [2]byte  // opaque, new-format deltas only
}

// readRecord decodes the body of a record whose tag has been consumed.
func readRecord(c *cursor, tag byte, l Layout) (RawRecord, error) {
	b, err := c.take(l.Size())
	if err != nil {
		return RawRecord{}, err
	}
	r := RawRecord{Tag: tag, Layout: l}
	f := fields{b: b}

	if l.Shape == ShapeAbsolute {
		r.Time = f.u32()
		r.Lat = int32(f.u32())
		r.Lon = int32(f.u32())
		r.Elevation = int32(f.u32())
		r.Velocity = int32(f.u16())
		r.Distance = f.u32()
		if l.DeviceTime {
			r.DeviceTime = int64(f.u64())
		}
		return r, nil
	}

	r.Time = uint32(f.u8())
	if l.Shape == ShapeDeltaJump {
		r.Jump[0] = int16(f.u16())
	}
	r.Lat = int32(int16(f.u16()))
	r.Lon = int32(int16(f.u16()))
	if l.Shape == ShapeDeltaJump {
		r.Jump[1] = int16(f.u16())
	}
	r.Elevation = int32(int16(f.u16()))
	if l.WideVelocity {
		r.Velocity = int32(int16(f.u16()))
	} else {
		r.Velocity = int32(int8(f.u8()))
	}
	if l.WideDistance {
		r.Distance = f.u32()
	} else {
		r.Distance = uint32(f.u16())
	}
	if l.Trailer {
		r.Unknown[0] = f.u8()
		r.Unknown[1] = f.u8()
	}
	return r, nil
}

// fields walks a slice already checked to hold a whole record.
type fields struct {
	b []byte
	i int
}

func (f *fields) u8() byte {
	v := f.b[f.i]
	f.i++
	return v
}

func (f *fields) u16() uint16 {
	v := uint16(f.b[f.i]) | uint16(f.b[f.i+1])<<8
	f.i += 2
	return v
}

func (f *fields) u32() uint32 {
	v := uint32(f.u16())
	return v | uint32(f.u16())<<16
}

func (f *fields) u64() uint64 {
	v := uint64(f.u32())
	return v | uint64(f.u32())<<32
}
