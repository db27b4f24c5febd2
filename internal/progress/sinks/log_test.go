package sinks

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/websightdev/websight/internal/progress"
)

func TestLogSink_Consume(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.DebugLevel)
	sink := NewLogSink(zap.New(core))

	runID := uuid.New()
	now := time.Now().UTC()
	batch := []progress.Event{
		{RunID: runID, TS: now, Stage: progress.StageCrawlStart, URL: "https://ex.com/"},
		{RunID: runID, TS: now, Stage: progress.StageFetchDone, URL: "https://ex.com/a", StatusClass: progress.Status4xx, Dur: time.Millisecond, Note: "http 404"},
		{RunID: runID, TS: now, Stage: progress.StageLinkFound, URL: "https://ex.com/b", Source: "https://ex.com/"},
	}
	require.NoError(t, sink.Consume(context.Background(), batch))

	entries := logs.All()
	require.Len(t, entries, 3)
	require.Equal(t, "crawl started", entries[0].Message)
	require.Equal(t, "fetch completed", entries[1].Message)
	require.Equal(t, "link discovered", entries[2].Message)

	fields := entries[1].ContextMap()
	require.Equal(t, "4xx", fields["status_class"])
	require.Equal(t, "http 404", fields["reason"])
}

func TestLogSink_NilLogger(t *testing.T) {
	t.Parallel()

	sink := NewLogSink(nil)
	require.NoError(t, sink.Consume(context.Background(), nil))
	require.NoError(t, sink.Close(context.Background()))
}
