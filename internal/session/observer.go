package session

import (
	"strings"

	"github.com/rs/zerolog"
)

// Severity classifies text handed to an Observer.
type Severity int

const (
	SeverityData Severity = iota // decoded device output
	SeverityInfo
	SeveritySuccess
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeveritySuccess:
		return "success"
	case SeverityError:
		return "error"
	default:
		return "data"
	}
}

// Observer renders what the session produces. Append receives everything
// that also lands in the session buffer; Status receives transient state
// that does not.
type Observer interface {
	Append(msg string, sev Severity)
	Status(msg string)
}

// Observers fans out to each element.
type Observers []Observer

func (o Observers) Append(msg string, sev Severity) {
	for _, ob := range o {
		ob.Append(msg, sev)
	}
}

func (o Observers) Status(msg string) {
	for _, ob := range o {
		ob.Status(msg)
	}
}

type nopObserver struct{}

func (nopObserver) Append(string, Severity) {}
func (nopObserver) Status(string)           {}

// LogObserver writes observer traffic to a zerolog logger.
type LogObserver struct {
	Logger zerolog.Logger
}

func (l LogObserver) Append(msg string, sev Severity) {
	text := strings.TrimSpace(msg)
	if text == "" {
		return
	}
	var ev *zerolog.Event
	switch sev {
	case SeverityData:
		ev = l.Logger.Debug()
	case SeverityError:
		ev = l.Logger.Warn()
	default:
		ev = l.Logger.Info()
	}
	ev.Str("severity", sev.String()).Msg(text)
}

func (l LogObserver) Status(msg string) {
	l.Logger.Info().Str("severity", "status").Msg(msg)
}
