package sinks

import (
	"context"

	"github.com/sirupsen/logrus"

	"areacloud/logging"
)

// Logrus forwards events to a logrus logger, mapping severities to levels
// and event attributes to fields.
type Logrus struct {
	logger *logrus.Logger
}

// NewLogrus constructs a sink writing through logger.
func NewLogrus(logger *logrus.Logger) *Logrus {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Logrus{logger: logger}
}

// Write satisfies logging.Sink.
func (s *Logrus) Write(event logging.Event) error {
	fields := logrus.Fields{
		"tick":  event.Tick,
		"actor": formatEntity(event.Actor),
	}
	if event.Category != "" {
		fields["category"] = event.Category
	}
	if len(event.Targets) > 0 {
		targets := make([]string, 0, len(event.Targets))
		for _, target := range event.Targets {
			targets = append(targets, formatEntity(target))
		}
		fields["targets"] = targets
	}
	if event.Payload != nil {
		fields["payload"] = event.Payload
	}
	for k, v := range event.Extra {
		if _, exists := fields[k]; !exists {
			fields[k] = v
		}
	}
	entry := s.logger.WithFields(fields)
	if !event.Time.IsZero() {
		entry = entry.WithTime(event.Time)
	}
	entry.Log(levelFor(event.Severity), string(event.Type))
	return nil
}

// Close satisfies logging.Sink.
func (s *Logrus) Close(context.Context) error {
	return nil
}

func levelFor(severity logging.Severity) logrus.Level {
	switch severity {
	case logging.SeverityDebug:
		return logrus.DebugLevel
	case logging.SeverityWarn:
		return logrus.WarnLevel
	case logging.SeverityError:
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}
