package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorPurple = "\033[35m"
	colorWhite  = "\033[37m"
)

type LogType string

const (
	TypeCommand LogType = "CMD"
	TypeDB      LogType = "DB"
	TypeSystem  LogType = "SYS"
	TypeError   LogType = "ERR"
)

// Options configure the handler. The zero value logs Info and above to stdout in color.
type Options struct {
	Level     slog.Leveler
	AddSource bool
	NoColor   bool
	Writer    io.Writer
}

// Handler writes one colored line per record:
// "[waifu] [15:04:05] [INFO] [CMD] message [cmd by user] [Status: ok] (took 3ms) k=v".
type Handler struct {
	opts   Options
	mu     *sync.Mutex
	attrs  []slog.Attr
	groups []string
}

func NewHandler(opts Options) *Handler {
	if opts.Level == nil {
		opts.Level = slog.LevelInfo
	}
	if opts.Writer == nil {
		opts.Writer = os.Stdout
	}
	return &Handler{opts: opts, mu: &sync.Mutex{}}
}

func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.opts.Level.Level()
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &Handler{
		opts:   h.opts,
		mu:     h.mu,
		attrs:  append(append([]slog.Attr(nil), h.attrs...), attrs...),
		groups: h.groups,
	}
}

func (h *Handler) WithGroup(name string) slog.Handler {
	return &Handler{
		opts:   h.opts,
		mu:     h.mu,
		attrs:  h.attrs,
		groups: append(append([]string(nil), h.groups...), name),
	}
}

func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	if shouldSkipLog(r.Message) {
		return nil
	}

	fields := collect(h.attrs, r)

	levelColor, levelText := colorGreen, r.Level.String()
	switch {
	case r.Level >= slog.LevelError:
		levelColor = colorRed
	case r.Level >= slog.LevelWarn:
		levelColor = colorYellow
	case r.Level < slog.LevelInfo:
		levelColor = colorPurple
	}

	message := r.Message
	if r.Level >= slog.LevelError {
		if loc := fields.errorLocation; loc != "" {
			message = fmt.Sprintf("%s (%s)", message, loc)
		} else if h.opts.AddSource && r.PC != 0 {
			frame, _ := runtime.CallersFrames([]uintptr{r.PC}).Next()
			message = fmt.Sprintf("%s (%s:%d)", message, filepath.Base(frame.File), frame.Line)
		}
		if fields.err != "" {
			message = fmt.Sprintf("%s: %s", message, fields.err)
		}
	}
	if fields.name != "" && fields.userName != "" {
		message = fmt.Sprintf("%s [%s by %s]", message, fields.name, fields.userName)
	}
	if fields.status != "" {
		message = fmt.Sprintf("%s [Status: %s]", message, fields.status)
	}
	if fields.took > 0 {
		message = fmt.Sprintf("%s (took %s)", message, fields.took.Round(time.Millisecond))
	}

	var b strings.Builder
	prefix := strings.Join(h.groups, ".")
	if prefix != "" {
		prefix += "."
	}
	for _, a := range fields.rest {
		fmt.Fprintf(&b, " %s%s=%v", prefix, a.Key, a.Value)
	}

	line := fmt.Sprintf("%s[waifu] [%s] [%s%s%s] [%s] %s%s%s\n",
		colorWhite,
		r.Time.Format("15:04:05"),
		levelColor,
		levelText,
		colorWhite,
		fields.logType,
		message,
		b.String(),
		colorReset,
	)
	if h.opts.NoColor {
		line = stripColor(line)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.opts.Writer, line)
	return err
}

var skippedMessages = []string{
	"locking buckets",
	"unlocking buckets",
	"gateway event",
	"cleaning up bucket",
	"cleaned up rate limit buckets",
	"binary message received",
	"received gateway message",
	"locking gateway rate limiter",
	"unlocking gateway rate limiter",
	"sending gateway command",
	"new request",
	"new response",
	"rate limit response headers",
	"sending heartbeat",
}

// shouldSkipLog drops disgo's per-request chatter.
func shouldSkipLog(msg string) bool {
	msg = strings.ToLower(msg)
	for _, skip := range skippedMessages {
		if strings.Contains(msg, skip) {
			return true
		}
	}
	return false
}

type recordFields struct {
	logType       LogType
	name          string
	userName      string
	status        string
	err           string
	errorLocation string
	took          time.Duration
	rest          []slog.Attr
}

func collect(handlerAttrs []slog.Attr, r slog.Record) recordFields {
	f := recordFields{logType: TypeSystem}
	visit := func(a slog.Attr) bool {
		switch a.Key {
		case "type":
			switch a.Value.String() {
			case KindCommand, KindComponent:
				f.logType = TypeCommand
			case KindDB:
				f.logType = TypeDB
			case KindError:
				f.logType = TypeError
			}
		case "name":
			f.name = a.Value.String()
		case "user_name":
			f.userName = a.Value.String()
		case "status":
			f.status = a.Value.String()
		case "error":
			f.err = fmt.Sprintf("%v", a.Value.Any())
		case "error_location":
			f.errorLocation = a.Value.String()
		case "took":
			if a.Value.Kind() == slog.KindDuration {
				f.took = a.Value.Duration()
			}
		default:
			f.rest = append(f.rest, a)
		}
		return true
	}
	for _, a := range handlerAttrs {
		visit(a)
	}
	r.Attrs(visit)
	if f.logType == TypeSystem && r.Level >= slog.LevelError {
		f.logType = TypeError
	}
	return f
}

func stripColor(s string) string {
	for _, c := range []string{colorReset, colorRed, colorGreen, colorYellow, colorPurple, colorWhite} {
		s = strings.ReplaceAll(s, c, "")
	}
	return s
}
