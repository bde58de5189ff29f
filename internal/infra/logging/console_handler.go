package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"slices"
	"strconv"
	"strings"
)

const (
	ansiCodeReset     = "\033[0m"
	ansiCodeRed       = "\033[31m"
	ansiCodeGreen     = "\033[32m"
	ansiCodeYellow    = "\033[33m"
	ansiCodeCyan      = "\033[36m"
	ansiCodeGray      = "\033[90m"
	ansiCodeUnderline = "\033[4m"
)

//nolint:gochecknoglobals
var ansiCodeMap = map[slog.Level]string{
	slog.LevelDebug: ansiCodeCyan,
	slog.LevelInfo:  ansiCodeGreen,
	slog.LevelWarn:  ansiCodeYellow,
	slog.LevelError: ansiCodeRed,
}

// ConsoleHandler implements slog.Handler with colored, human-readable output
// for development environments.
type ConsoleHandler struct {
	// Output is the destination for log output (typically os.Stdout or os.Stderr)
	Output io.Writer
	// Level is the minimum level for log records to be processed
	Level slog.Leveler
	// PkgLevels maps dotted logger names to minimum log levels. The longest
	// matching prefix wins; the empty key acts as a catch-all.
	PkgLevels map[string]slog.Level

	attrs  []slog.Attr
	groups []string
}

var _ slog.Handler = (*ConsoleHandler)(nil)

// Handle implements slog.Handler.
func (h *ConsoleHandler) Handle(_ context.Context, r slog.Record) error {
	attrs := make([]slog.Attr, 0, r.NumAttrs()+len(h.attrs))

	r.Attrs(func(a slog.Attr) bool {
		attrs = append(attrs, a)

		return true
	})

	attrs = append(attrs, h.attrs...)

	if !h.pkgEnabled(loggerName(attrs), r.Level) {
		return nil
	}

	var msg strings.Builder

	msg.WriteString(ansiCodeGray + r.Time.Format("15:04:05.000000") + ansiCodeReset)
	msg.WriteString(" " + ansiCodeMap[r.Level] + "[" + r.Level.String() + "]" + ansiCodeReset)
	msg.WriteString(" " + r.Message)

	var prefix string

	if len(h.groups) > 0 {
		prefix = strings.Join(h.groups, ".") + "."
	}

	if len(attrs) > 0 {
		msg.WriteString(" " + ansiCodeGray + "|" + ansiCodeReset)
		msg.WriteString(renderAttrs(prefix, attrs))
	}

	// caller
	frames := runtime.CallersFrames([]uintptr{r.PC})
	frame, _ := frames.Next()
	fn := strings.Split(frame.Function, string(os.PathSeparator))

	msg.WriteString("\n-> " + ansiCodeGray + fn[len(fn)-1] + "()")
	msg.WriteString(" in " + ansiCodeUnderline + frame.File + ":" + strconv.Itoa(frame.Line) + ansiCodeReset)

	_, err := fmt.Fprintln(h.Output, msg.String())

	return err //nolint:wrapcheck
}

func (h *ConsoleHandler) pkgEnabled(name string, level slog.Level) bool {
	parts := strings.Split(name, ".")

	for i := len(parts); i >= 0; i-- {
		minLevel, ok := h.PkgLevels[strings.Join(parts[:i], ".")]
		if ok {
			return level >= minLevel
		}
	}

	return true
}

func loggerName(attrs []slog.Attr) string {
	for _, attr := range attrs {
		if attr.Key == LoggerNameKey {
			return attr.Value.String()
		}
	}

	return ""
}

func renderAttrs(prefix string, attrs []slog.Attr) string {
	var out strings.Builder

	for _, attr := range attrs {
		if attr.Value.Kind() == slog.KindGroup {
			out.WriteString(renderAttrs(prefix+attr.Key+".", attr.Value.Group()))

			continue
		}

		out.WriteString(" " + prefix + attr.Key)
		out.WriteString("=" + ansiCodeGray + attr.Value.String() + ansiCodeReset)
	}

	return out.String()
}

// WithAttrs implements slog.Handler.WithAttrs.
func (h *ConsoleHandler) WithAttrs(attrs []slog.Attr) Handler {
	return &ConsoleHandler{
		Output:    h.Output,
		Level:     h.Level,
		PkgLevels: h.PkgLevels,
		attrs:     append(slices.Clip(h.attrs), attrs...),
		groups:    h.groups,
	}
}

// WithGroup implements slog.Handler.WithGroup.
func (h *ConsoleHandler) WithGroup(name string) Handler {
	return &ConsoleHandler{
		Output:    h.Output,
		Level:     h.Level,
		PkgLevels: h.PkgLevels,
		attrs:     h.attrs,
		groups:    append(slices.Clip(h.groups), name),
	}
}

// Enabled implements slog.Handler.Enabled.
func (h *ConsoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return h.Level.Level() <= level
}
