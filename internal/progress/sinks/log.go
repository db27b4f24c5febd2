package sinks

import (
	"context"

	"go.uber.org/zap"

	"github.com/websightdev/websight/internal/progress"
)

// LogSink mirrors the progress stream into structured logs. Fetch
// starts are logged at debug level to keep large crawls readable.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink wires a zap logger to the sink interface.
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger}
}

// Consume logs each event in the batch.
func (s *LogSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		fields := []zap.Field{
			zap.String("run_id", evt.RunID.String()),
			zap.String("url", evt.URL),
		}
		switch evt.Stage {
		case progress.StageFetchStart:
			s.logger.Debug("fetch started", append(fields, zap.Int("depth", evt.Depth))...)
		case progress.StageFetchDone:
			fields = append(fields,
				zap.Int("depth", evt.Depth),
				zap.String("status_class", string(evt.StatusClass)),
				zap.Duration("dur", evt.Dur),
			)
			if evt.Note != "" {
				fields = append(fields, zap.String("reason", evt.Note))
			}
			s.logger.Info("fetch completed", fields...)
		case progress.StageLinkFound:
			s.logger.Debug("link discovered", append(fields, zap.String("source", evt.Source))...)
		case progress.StageCrawlStart:
			s.logger.Info("crawl started", fields...)
		case progress.StageCrawlDone:
			s.logger.Info("crawl finished", append(fields, zap.Duration("dur", evt.Dur))...)
		}
	}
	return nil
}

// Close implements the Sink interface; it performs no action.
func (s *LogSink) Close(context.Context) error {
	return nil
}
