package observability_test

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	zapobserver "go.uber.org/zap/zaptest/observer"

	"github.com/tailored-agentic-units/rrp/observability"
)

func TestLevel_ZapLevel(t *testing.T) {
	tests := []struct {
		name  string
		level observability.Level
		want  zapcore.Level
	}{
		{name: "verbose maps to Debug", level: observability.LevelVerbose, want: zapcore.DebugLevel},
		{name: "info maps to Info", level: observability.LevelInfo, want: zapcore.InfoLevel},
		{name: "warning maps to Warn", level: observability.LevelWarning, want: zapcore.WarnLevel},
		{name: "error maps to Error", level: observability.LevelError, want: zapcore.ErrorLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.level.ZapLevel(); got != tt.want {
				t.Errorf("Level(%d).ZapLevel() = %v, want %v", tt.level, got, tt.want)
			}
		})
	}
}

func TestZapObserver_Fields(t *testing.T) {
	core, logs := zapobserver.New(zapcore.DebugLevel)
	obs := observability.NewZapObserver(zap.New(core))

	emitted := time.Date(2024, 3, 9, 12, 30, 0, 0, time.UTC)
	obs.OnEvent(context.Background(), observability.Event{
		Type:      "pack.missing",
		Level:     observability.LevelWarning,
		Timestamp: emitted,
		Source:    "pack.Open",
		Data:      map[string]any{"id": "mymod:lang/en_us.json"},
	})

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("got %d log entries, want 1", len(entries))
	}
	entry := entries[0]
	if entry.Message != "pack.missing" {
		t.Errorf("message = %q, want %q", entry.Message, "pack.missing")
	}
	if !entry.Time.Equal(emitted) {
		t.Errorf("time = %v, want event timestamp %v", entry.Time, emitted)
	}
	if entry.Level != zapcore.WarnLevel {
		t.Errorf("level = %v, want warn", entry.Level)
	}
	fields := entry.ContextMap()
	if fields["source"] != "pack.Open" {
		t.Errorf("source field = %v, want pack.Open", fields["source"])
	}
	if fields["id"] != "mymod:lang/en_us.json" {
		t.Errorf("id field = %v, want mymod:lang/en_us.json", fields["id"])
	}
}

func TestZapObserver_LevelFiltering(t *testing.T) {
	core, logs := zapobserver.New(zapcore.InfoLevel)
	obs := observability.NewZapObserver(zap.New(core))

	obs.OnEvent(context.Background(), observability.Event{
		Type:  "pack.put",
		Level: observability.LevelVerbose,
	})

	if logs.Len() != 0 {
		t.Errorf("got %d entries, want verbose event filtered at info level", logs.Len())
	}
}
