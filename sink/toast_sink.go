package sink

import (
	"chatty/contract"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/gookit/color"
)

type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Toast is one user-visible notification.
type Toast struct {
	Level   Level
	Message string
	At      time.Time
}

// ToastSink prints notifications as one coloured line each and keeps the
// last ones for the terminal to replay.
type ToastSink struct {
	log     *slog.Logger
	out     io.Writer
	colours bool
	keep    int

	mu     sync.Mutex
	recent []Toast
}

var _ contract.INotifier = (*ToastSink)(nil)

func NewToastSink(log *slog.Logger, out io.Writer, colours bool, keep int) *ToastSink {
	return &ToastSink{log: log, out: out, colours: colours, keep: keep}
}

func (s *ToastSink) Success(message string) {
	s.log.Info("Notification", "level", LevelSuccess, "message", message)
	s.show(Toast{Level: LevelSuccess, Message: message, At: time.Now()})
}

func (s *ToastSink) Error(message string) {
	s.log.Warn("Notification", "level", LevelError, "message", message)
	s.show(Toast{Level: LevelError, Message: message, At: time.Now()})
}

// Recent returns the kept toasts, oldest first.
func (s *ToastSink) Recent() []Toast {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Toast, len(s.recent))
	copy(out, s.recent)
	return out
}

func (s *ToastSink) show(t Toast) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.keep > 0 {
		s.recent = append(s.recent, t)
		if len(s.recent) > s.keep {
			s.recent = s.recent[len(s.recent)-s.keep:]
		}
	}
	_, _ = fmt.Fprintln(s.out, s.render(t))
}

func (s *ToastSink) render(t Toast) string {
	icon, style := "✔", color.New(color.FgGreen, color.OpBold)
	if t.Level == LevelError {
		icon, style = "✖", color.New(color.FgRed, color.OpBold)
	}
	line := fmt.Sprintf("%s %s", icon, t.Message)
	if !s.colours {
		return line
	}
	return style.Render(line)
}
