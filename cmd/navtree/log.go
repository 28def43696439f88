package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// logRing keeps the last lines logged while a full-screen view owns the
// terminal. Only the newest one is ever shown.
type logRing struct {
	mu    sync.Mutex
	lines []string
	next  int // slot the next line goes into
	full  bool
}

func newLogRing(size int) *logRing {
	return &logRing{lines: make([]string, size)}
}

func (b *logRing) Write(line string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lines[b.next] = line
	b.next = (b.next + 1) % len(b.lines)
	if b.next == 0 {
		b.full = true
	}
}

// Last returns the newest line, or "".
func (b *logRing) Last() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.next == 0 && !b.full {
		return ""
	}
	return b.lines[(b.next+len(b.lines)-1)%len(b.lines)]
}

// ringHandler implements slog.Handler, formatting records into a logRing.
type ringHandler struct {
	buf   *logRing
	level slog.Level
	attrs []slog.Attr
}

func newRingHandler(buf *logRing, level slog.Level) *ringHandler {
	return &ringHandler{buf: buf, level: level}
}

func (h *ringHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *ringHandler) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s %s", r.Time.Format(time.TimeOnly), r.Level, r.Message)
	for _, a := range h.attrs {
		fmt.Fprintf(&b, " %s=%v", a.Key, a.Value)
	}
	r.Attrs(func(a slog.Attr) bool {
		fmt.Fprintf(&b, " %s=%v", a.Key, a.Value)
		return true
	})
	h.buf.Write(b.String())
	return nil
}

func (h *ringHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ringHandler{
		buf:   h.buf,
		level: h.level,
		attrs: append(append([]slog.Attr(nil), h.attrs...), attrs...),
	}
}

func (h *ringHandler) WithGroup(name string) slog.Handler {
	return h
}

// captureLogs routes slog into a ring until the returned func is called.
func captureLogs(level slog.Level) (*logRing, func()) {
	prev := slog.Default()
	ring := newLogRing(100)
	slog.SetDefault(slog.New(newRingHandler(ring, level)))
	return ring, func() { slog.SetDefault(prev) }
}
