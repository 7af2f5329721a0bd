// Package scsu decodes text compressed with the Standard Compression Scheme
// for Unicode (Unicode Technical Standard #6) into UTF-8.
//
// Symbian stores variable-length strings as SCSU without recording their
// byte length, only the character count. Decode therefore reports how many
// input bytes it consumed so the caller can resume reading right after the
// string.
package scsu

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

// ErrCharCount is returned by DecodeExact when the input runs out before the
// declared number of characters has been produced.
var ErrCharCount = errors.New("scsu: decoded character count mismatch")

// Single-byte mode tags.
const (
	tagSQ0 = 0x01 // quote from window 0..7 (0x01-0x08)
	tagSDX = 0x0B
	tagSQU = 0x0E
	tagSCU = 0x0F
	tagSC0 = 0x10 // change to window 0..7 (0x10-0x17)
	tagSD0 = 0x18 // define window 0..7 (0x18-0x1F)
)

// Unicode mode tags.
const (
	tagUC0 = 0xE0 // 0xE0-0xE7
	tagUD0 = 0xE8 // 0xE8-0xEF
	tagUQU = 0xF0
	tagUDX = 0xF1
	tagURS = 0xF2 // reserved
)

// staticWindows are the fixed windows used by SQn with a byte below 0x80.
var staticWindows = [8]rune{0x0000, 0x0080, 0x0100, 0x0300, 0x2000, 0x2080, 0x2100, 0x3000}

// defaultWindows is the initial state of the eight dynamic windows.
var defaultWindows = [8]rune{0x0080, 0x00C0, 0x0400, 0x0600, 0x0900, 0x3040, 0x30A0, 0xFF00}

// windowOffsets maps the index byte of SDn/UDn to a window start.
var windowOffsets = func() [256]rune {
	var t [256]rune
	for i := 0x01; i <= 0x67; i++ {
		t[i] = rune(i) * 0x80
	}
	for i := 0x68; i <= 0xA7; i++ {
		t[i] = rune(i)*0x80 + 0xAC00
	}
	t[0xF9] = 0x00C0
	t[0xFA] = 0x0250
	t[0xFB] = 0x0370
	t[0xFC] = 0x0530
	t[0xFD] = 0x3040
	t[0xFE] = 0x30A0
	t[0xFF] = 0xFF60
	return t
}()

type decoder struct {
	src     []byte
	pos     int
	windows [8]rune
	active  int
	unicode bool

	high        rune
	havePending bool

	out   []byte
	chars int
}

// Decode decodes up to chars characters from src. A negative chars decodes
// all of src. It returns the UTF-8 text, the number of bytes of src that were
// consumed and the number of characters produced, which is less than chars
// only when src ran out first.
func Decode(src []byte, chars int) (string, int, int) {
	if chars < 0 {
		chars = len(src)
	}
	d := &decoder{src: src, windows: defaultWindows, out: make([]byte, 0, len(src))}
	for d.chars < chars && d.step() {
	}
	return string(d.out), d.pos, d.chars
}

// DecodeExact is Decode with the character count post-condition enforced.
// Without it the caller's byte offset cannot be trusted.
func DecodeExact(src []byte, chars int) (string, int, error) {
	s, n, got := Decode(src, chars)
	if got != chars {
		return s, n, fmt.Errorf("%w: want %d, got %d", ErrCharCount, chars, got)
	}
	return s, n, nil
}

func (d *decoder) next() (byte, bool) {
	if d.pos >= len(d.src) {
		return 0, false
	}
	c := d.src[d.pos]
	d.pos++
	return c, true
}

func (d *decoder) next16() (rune, bool) {
	hi, ok := d.next()
	if !ok {
		return 0, false
	}
	lo, ok := d.next()
	if !ok {
		return 0, false
	}
	return rune(hi)<<8 | rune(lo), true
}

// step consumes one opcode and its arguments. It returns false once the
// input is exhausted.
func (d *decoder) step() bool {
	if d.unicode {
		return d.stepUnicode()
	}
	c, ok := d.next()
	if !ok {
		return false
	}
	switch {
	case c >= 0x80:
		d.emit(rune(c) - 0x80 + d.windows[d.active])
	case c >= 0x20, c == 0x00, c == 0x09, c == 0x0A, c == 0x0C, c == 0x0D:
		d.emit(rune(c))
	case c >= tagSQ0 && c <= tagSQ0+7:
		b, ok := d.next()
		if !ok {
			return false
		}
		n := c - tagSQ0
		if b < 0x80 {
			d.emit(rune(b) + staticWindows[n])
		} else {
			d.emit(rune(b) - 0x80 + d.windows[n])
		}
	case c >= tagSC0 && c <= tagSC0+7:
		d.active = int(c - tagSC0)
	case c >= tagSD0 && c <= tagSD0+7:
		b, ok := d.next()
		if !ok {
			return false
		}
		d.active = int(c - tagSD0)
		d.windows[d.active] = windowOffsets[b]
	case c == tagSDX:
		return d.defineExtended()
	case c == tagSQU:
		u, ok := d.next16()
		if !ok {
			return false
		}
		d.emit(u)
	case c == tagSCU:
		d.unicode = true
	}
	return true
}

func (d *decoder) stepUnicode() bool {
	c, ok := d.next()
	if !ok {
		return false
	}
	switch {
	case c <= 0xDF || c > tagURS:
		lo, ok := d.next()
		if !ok {
			return false
		}
		d.emit(rune(c)<<8 | rune(lo))
	case c == tagUQU:
		u, ok := d.next16()
		if !ok {
			return false
		}
		d.emit(u)
	case c >= tagUC0 && c <= tagUC0+7:
		d.active = int(c - tagUC0)
		d.unicode = false
	case c >= tagUD0 && c <= tagUD0+7:
		b, ok := d.next()
		if !ok {
			return false
		}
		d.active = int(c - tagUD0)
		d.windows[d.active] = windowOffsets[b]
		d.unicode = false
	case c == tagUDX:
		if !d.defineExtended() {
			return false
		}
		d.unicode = false
	}
	return true
}

// defineExtended handles SDX/UDX: three bits of window index and thirteen
// bits of offset in units of 0x80 above 0x10000.
func (d *decoder) defineExtended() bool {
	hi, ok := d.next()
	if !ok {
		return false
	}
	lo, ok := d.next()
	if !ok {
		return false
	}
	d.active = int(hi >> 5)
	d.windows[d.active] = 0x10000 + (rune(hi&0x1F)<<8|rune(lo))<<7
	return true
}

// emit appends one UTF-16 unit or code point. A high surrogate is held
// until its low half arrives and produces no character on its own.
func (d *decoder) emit(c rune) {
	switch {
	case c >= 0xD800 && c <= 0xDBFF:
		d.high = c & 0x3FF
		d.havePending = true
		return
	case c >= 0xDC00 && c <= 0xDFFF:
		if d.havePending {
			c = c + 0x2400 + d.high*0x400
			d.havePending = false
		} else {
			c = utf8.RuneError
		}
	}
	d.out = utf8.AppendRune(d.out, c)
	d.chars++
}
