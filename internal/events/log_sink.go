package events

import (
	"context"

	"go.uber.org/zap"
)

// LogSink writes every event to a structured logger. Useful in development
// and as a durable trail when no metrics backend is scraped.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink builds a LogSink; a nil logger is replaced with a nop.
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger}
}

// Consume logs each event in the batch.
func (s *LogSink) Consume(_ context.Context, batch []Event) error {
	for _, evt := range batch {
		s.logger.Info("screener event",
			zap.String("id", evt.ID),
			zap.Time("ts", evt.TS),
			zap.String("stage", string(evt.Stage)),
			zap.String("screener", evt.Screener),
			zap.Int("rows", evt.Rows),
			zap.Duration("dur", evt.Dur),
			zap.String("note", evt.Note),
		)
	}
	return nil
}

// Close is a no-op; the logger outlives the sink.
func (s *LogSink) Close(context.Context) error { return nil }
