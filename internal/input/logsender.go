package input

import (
	"log/slog"
	"strings"
)

// LogSender accepts every event and only logs it. It backs dry runs.
type LogSender struct {
	log *slog.Logger
}

// NewLogSender returns a sender that never touches the desktop.
func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{log: logger.With("component", "input", "dry_run", true)}
}

// Send logs the batch and reports it as fully injected.
func (s *LogSender) Send(events []Event) (int, error) {
	parts := make([]string, len(events))
	for i, ev := range events {
		parts[i] = ev.String()
	}
	s.log.Info("would inject", "count", len(events), "events", strings.Join(parts, " "))
	return len(events), nil
}
