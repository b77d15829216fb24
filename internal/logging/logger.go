package logging

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// LevelSuccess reports a completed step. It sorts between INFO and WARN so
// it is shown whenever INFO is.
const LevelSuccess = slog.Level(2)

const timeLayout = "2006-01-02 15:04:05"

var (
	colorDebug   = lipgloss.Color("#808080")
	colorInfo    = lipgloss.Color("#64d2ff")
	colorSuccess = lipgloss.Color("#30d158")
	colorWarning = lipgloss.Color("#ffd60a")
	colorError   = lipgloss.Color("#ff453a")
)

// Init configures the global slog logger for console output on w
// (os.Stdout when nil). Debug lines are only emitted when debug is set.
func Init(w io.Writer, debug bool) *slog.Logger {
	if w == nil {
		w = os.Stdout
	}
	logger := New(w, debug)
	slog.SetDefault(logger)
	return logger
}

// New returns a logger writing "[LEVEL] timestamp - message" lines to w
func New(w io.Writer, debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(NewConsoleHandler(w, level))
}

// Success logs msg at LevelSuccess
func Success(logger *slog.Logger, msg string, args ...any) {
	logger.Log(context.Background(), LevelSuccess, msg, args...)
}

// WithRun returns a logger with the run id attached
func WithRun(logger *slog.Logger, runID string) *slog.Logger {
	return logger.With("run_id", runID)
}

// WithModel returns a logger scoped to one model record
func WithModel(logger *slog.Logger, modelID, modelName string) *slog.Logger {
	return logger.With(
		"model_id", modelID,
		"model_name", modelName,
	)
}

// ConsoleHandler is a slog.Handler producing the updater's human-readable lines.
// Level labels are coloured when the writer is a terminal.
type ConsoleHandler struct {
	mu     *sync.Mutex
	w      io.Writer
	level  slog.Leveler
	labels map[slog.Level]string
	attrs  []slog.Attr
	group  string
}

// NewConsoleHandler creates a handler that drops records below level
func NewConsoleHandler(w io.Writer, level slog.Leveler) *ConsoleHandler {
	renderer := lipgloss.NewRenderer(w)
	label := func(text string, color lipgloss.Color) string {
		return renderer.NewStyle().Foreground(color).Bold(true).Render("[" + text + "]")
	}

	return &ConsoleHandler{
		mu:    &sync.Mutex{},
		w:     w,
		level: level,
		labels: map[slog.Level]string{
			slog.LevelDebug: label("DEBUG", colorDebug),
			slog.LevelInfo:  label("INFO", colorInfo),
			LevelSuccess:    label("SUCCESS", colorSuccess),
			slog.LevelWarn:  label("WARNING", colorWarning),
			slog.LevelError: label("ERROR", colorError),
		},
	}
}

// Enabled implements slog.Handler
func (h *ConsoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle implements slog.Handler
func (h *ConsoleHandler) Handle(_ context.Context, r slog.Record) error {
	ts := r.Time
	if ts.IsZero() {
		ts = time.Now()
	}

	var buf bytes.Buffer
	buf.WriteString(h.labelFor(r.Level))
	buf.WriteByte(' ')
	buf.WriteString(ts.Format(timeLayout))
	buf.WriteString(" - ")
	buf.WriteString(r.Message)

	for _, a := range h.attrs {
		writeAttr(&buf, "", a)
	}
	r.Attrs(func(a slog.Attr) bool {
		writeAttr(&buf, h.group, a)
		return true
	})
	buf.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.w.Write(buf.Bytes())
	return err
}

// WithAttrs implements slog.Handler
func (h *ConsoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	clone.attrs = append(clone.attrs, h.attrs...)
	for _, a := range attrs {
		if h.group != "" {
			a.Key = h.group + "." + a.Key
		}
		clone.attrs = append(clone.attrs, a)
	}
	return &clone
}

// WithGroup implements slog.Handler
func (h *ConsoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	if clone.group != "" {
		clone.group += "." + name
	} else {
		clone.group = name
	}
	return &clone
}

func (h *ConsoleHandler) labelFor(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return h.labels[slog.LevelError]
	case level >= slog.LevelWarn:
		return h.labels[slog.LevelWarn]
	case level >= LevelSuccess:
		return h.labels[LevelSuccess]
	case level >= slog.LevelInfo:
		return h.labels[slog.LevelInfo]
	default:
		return h.labels[slog.LevelDebug]
	}
}

func writeAttr(buf *bytes.Buffer, group string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	key := a.Key
	if group != "" {
		key = group + "." + key
	}

	if a.Value.Kind() == slog.KindGroup {
		for _, sub := range a.Value.Group() {
			writeAttr(buf, key, sub)
		}
		return
	}

	value := a.Value.String()
	if value == "" || strings.ContainsAny(value, " \t\n\"=") {
		value = strconv.Quote(value)
	}
	buf.WriteByte(' ')
	buf.WriteString(key)
	buf.WriteByte('=')
	buf.WriteString(value)
}
