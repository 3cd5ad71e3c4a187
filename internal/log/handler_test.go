package log_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	ctxlog "github.com/ErlanBelekov/workflow-scheduler/internal/log"
	"github.com/ErlanBelekov/workflow-scheduler/internal/requestid"
)

func TestContextHandler_AddsIdentifiers(t *testing.T) {
	var buf bytes.Buffer
	logger := ctxlog.New(&buf, "production", slog.LevelInfo)

	ctx := requestid.WithRequestID(context.Background(), "req-1")
	ctx = ctxlog.WithScheduleID(ctx, "sched-1")
	logger.InfoContext(ctx, "triggered")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if rec["request_id"] != "req-1" {
		t.Errorf("request_id = %v", rec["request_id"])
	}
	if rec["schedule_id"] != "sched-1" {
		t.Errorf("schedule_id = %v", rec["schedule_id"])
	}
}

func TestContextHandler_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := ctxlog.New(&buf, "production", slog.LevelWarn)

	logger.Info("dropped")
	if buf.Len() != 0 {
		t.Errorf("info line written at warn level: %s", buf.String())
	}
}
