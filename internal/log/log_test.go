package log

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/classwind/internal/pubsub"
)

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	InitWriter(&buf)
	t.Cleanup(reset)
	return &buf
}

func reset() {
	stdMu.Lock()
	std = nil
	stdMu.Unlock()
}

func TestLog_Format(t *testing.T) {
	tests := []struct {
		name   string
		write  func()
		expect string
	}{
		{
			name:   "fields",
			write:  func() { Info(CatSort, "sorted", "edits", 2, "uri", "file:///a.html") },
			expect: "[INFO] [sort] sorted edits=2 uri=file:///a.html\n",
		},
		{
			name:   "orphan key",
			write:  func() { Warn(CatRanking, "lookup", "path") },
			expect: "[WARN] [ranking] lookup path=<missing>\n",
		},
		{
			name:   "error field",
			write:  func() { ErrorErr(CatBatch, "tool failed", os.ErrNotExist) },
			expect: "[ERROR] [batch] tool failed error=file does not exist\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := captureLogs(t)
			tt.write()
			require.Contains(t, buf.String(), tt.expect)
		})
	}
}

func TestFormatEntry(t *testing.T) {
	now := time.Date(2025, 12, 6, 10, 45, 0, 0, time.UTC)
	got := formatEntry(now, LevelError, CatSort, "aborted", []any{"uri", "a.html", "edits"})
	require.Equal(t, "2025-12-06T10:45:00 [ERROR] [sort] aborted uri=a.html edits=<missing>\n", got)
	require.Equal(t, "UNKNOWN", Level(9).String())
}

func TestLog_MinLevelAndDisable(t *testing.T) {
	buf := captureLogs(t)

	SetMinLevel(LevelWarn)
	Debug(CatDiff, "hidden")
	Info(CatDiff, "hidden")
	Error(CatDiff, "shown")
	require.NotContains(t, buf.String(), "hidden")
	require.Contains(t, buf.String(), "[ERROR] [diff] shown")

	buf.Reset()
	SetEnabled(false)
	Error(CatDiff, "muted")
	require.Empty(t, buf.String())
}

func TestLog_NoLoggerIsQuiet(t *testing.T) {
	reset()
	require.NotPanics(t, func() { Info(CatUI, "nobody listening") })
	require.Nil(t, NewListener(context.Background()))
}

func TestNewListener_ReceivesEntries(t *testing.T) {
	captureLogs(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	listener := NewListener(ctx)
	require.NotNil(t, listener)

	Info(CatHighlight, "cycle activated", "id", "c1")

	event, ok := listener.Listen()().(LogEvent)
	require.True(t, ok)
	require.Equal(t, pubsub.CreatedEvent, event.Type)
	require.Contains(t, event.Payload, "[INFO] [highlight] cycle activated id=c1")
}

func TestInitWithTeaLog_WritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "debug.log")
	cleanup, err := InitWithTeaLog(path, "classwind")
	require.NoError(t, err)
	t.Cleanup(reset)

	Info(CatConfig, "loaded")
	cleanup()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "[INFO] [config] loaded")
}
