package sinks

import (
	"context"

	"go.uber.org/zap"

	"github.com/kelvinho/progressd/internal/progress"
)

// LogSink emits structured logs for debugging tracker streams. It is useful
// during development or wherever a metrics backend is unavailable.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink wires a Zap logger to the sink interface.
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger}
}

// Consume logs each event in the batch using structured fields.
func (s *LogSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		s.logger.Info("tracker event",
			zap.String("tracker_id", evt.TrackerUUID().String()),
			zap.String("stage", string(evt.Stage)),
			zap.Float64("local", evt.Local),
			zap.Float64("true", evt.True),
			zap.Int("percent", evt.Percent),
			zap.Int("depth", evt.Depth),
			zap.String("note", evt.Note),
		)
	}
	return nil
}

// Close implements the Sink interface; it performs no action.
func (s *LogSink) Close(context.Context) error {
	return nil
}
