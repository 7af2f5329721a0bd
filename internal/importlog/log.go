// Package importlog mirrors importer and decoder messages to the std log,
// a ring buffer and live subscribers (the /api/logs stream).
package importlog

import (
	"fmt"
	"log"
	"sync"
)

const maxLines = 500

// Ring keeps the last lines and fans new ones out to subscribers.
type Ring struct {
	mu    sync.Mutex
	max   int
	lines []string
	subs  map[chan string]struct{}
}

func NewRing(max int) *Ring {
	return &Ring{max: max, subs: map[chan string]struct{}{}}
}

var std = NewRing(maxLines)

// Printf mirrors to std log + ring buffer + live subscribers.
func Printf(format string, args ...any) { std.Printf(format, args...) }

// Prefixed returns a Printf that tags every line, e.g. with a file name.
func Prefixed(prefix string) func(string, ...any) {
	return func(format string, args ...any) {
		std.Printf("%s: %s", prefix, fmt.Sprintf(format, args...))
	}
}

func Snapshot(n int) []string     { return std.Snapshot(n) }
func Subscribe() chan string      { return std.Subscribe() }
func Unsubscribe(ch chan string) { std.Unsubscribe(ch) }

func (r *Ring) Printf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	log.Printf("%s", msg)

	r.mu.Lock()
	// drop oldest if full
	if len(r.lines) >= r.max {
		copy(r.lines, r.lines[1:])
		r.lines = r.lines[:r.max-1]
	}
	r.lines = append(r.lines, msg)
	// fan out (non-blocking)
	for ch := range r.subs {
		select {
		case ch <- msg:
		default:
		}
	}
	r.mu.Unlock()
}

// Snapshot returns the last n lines (or all if n<=0 or n>=len).
func (r *Ring) Snapshot(n int) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n <= 0 || n >= len(r.lines) {
		out := make([]string, len(r.lines))
		copy(out, r.lines)
		return out
	}
	out := make([]string, n)
	copy(out, r.lines[len(r.lines)-n:])
	return out
}

// Subscribe returns a channel that receives future log lines.
// Call Unsubscribe when done.
func (r *Ring) Subscribe() chan string {
	ch := make(chan string, 64)
	r.mu.Lock()
	r.subs[ch] = struct{}{}
	r.mu.Unlock()
	return ch
}

func (r *Ring) Unsubscribe(ch chan string) {
	r.mu.Lock()
	delete(r.subs, ch)
	r.mu.Unlock()
	close(ch)
}
