package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

// consoleHandler renders one line per record:
//
//	2026-01-02T15:04:05Z INFO workflow [doc 01J...]: message key=value ...
type consoleHandler struct {
	mu      *sync.Mutex
	w       io.Writer
	level   slog.Level
	verbose bool
	attrs   []slog.Attr
	prefix  string
}

func newConsoleHandler(w io.Writer, level slog.Level, verbose bool) *consoleHandler {
	return &consoleHandler{mu: &sync.Mutex{}, w: w, level: level, verbose: verbose}
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *consoleHandler) Handle(_ context.Context, r slog.Record) error {
	var component, document string
	fields := make([]slog.Attr, 0, len(h.attrs)+r.NumAttrs())
	keep := func(a slog.Attr) {
		switch a.Key {
		case FieldComponent:
			if component == "" {
				component = a.Value.Resolve().String()
			}
			return
		case FieldDocumentID:
			if document == "" {
				document = a.Value.Resolve().String()
			}
		}
		fields = append(fields, a)
	}
	for _, a := range h.attrs {
		keep(a)
	}
	r.Attrs(func(a slog.Attr) bool {
		a.Key = h.prefix + a.Key
		keep(a)
		return true
	})

	at := r.Time
	if at.IsZero() {
		at = time.Now()
	}
	buf := make([]byte, 0, 256)
	buf = at.UTC().AppendFormat(buf, time.RFC3339)
	buf = append(buf, ' ')
	buf = append(buf, r.Level.String()...)
	buf = append(buf, ' ')
	if component != "" {
		buf = append(buf, component...)
		if document != "" {
			buf = fmt.Appendf(buf, " [doc %s]", document)
		}
		buf = append(buf, ": "...)
	}
	buf = append(buf, strings.TrimSpace(r.Message)...)
	if h.verbose {
		if src := r.Source(); src != nil {
			buf = fmt.Appendf(buf, " [%s:%d]", filepath.Base(src.File), src.Line)
		}
	}
	for _, a := range fields {
		buf = appendAttr(buf, "", a)
	}
	buf = append(buf, '\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.w.Write(buf)
	return err
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	clone.attrs = append(clone.attrs, h.attrs...)
	for _, a := range attrs {
		a.Key = h.prefix + a.Key
		clone.attrs = append(clone.attrs, a)
	}
	return &clone
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.prefix = h.prefix + name + "."
	return &clone
}

func appendAttr(buf []byte, prefix string, a slog.Attr) []byte {
	if a.Equal(slog.Attr{}) {
		return buf
	}
	v := a.Value.Resolve()
	if v.Kind() == slog.KindGroup {
		if a.Key != "" {
			prefix += a.Key + "."
		}
		for _, nested := range v.Group() {
			buf = appendAttr(buf, prefix, nested)
		}
		return buf
	}
	buf = append(buf, ' ')
	buf = append(buf, prefix...)
	buf = append(buf, a.Key...)
	buf = append(buf, '=')
	return appendValue(buf, v)
}

func appendValue(buf []byte, v slog.Value) []byte {
	var s string
	switch v.Kind() {
	case slog.KindTime:
		s = v.Time().UTC().Format(time.RFC3339)
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			s = err.Error()
		} else {
			s = fmt.Sprint(v.Any())
		}
	default:
		s = v.String()
	}
	if s == "" || strings.ContainsAny(s, " \t\n\r\"=") {
		return strconv.AppendQuote(buf, s)
	}
	return append(buf, s...)
}
