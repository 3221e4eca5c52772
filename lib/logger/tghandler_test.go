package logger

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

// Services are constructed on a logger that already carries the
// Telegram mirror, deriving per-module loggers with With. The wrapper
// must survive that derivation and must not swallow sub-ERROR records.
func TestTelegramHandlerSurvivesDerivedLoggers(t *testing.T) {
	var buf bytes.Buffer
	inner := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	log := slog.New(NewTelegramHandler(inner, nil, slog.LevelError))

	svcLog := log.With(slog.String("module", "stats"))
	if _, ok := svcLog.Handler().(*TelegramHandler); !ok {
		t.Fatalf("derived handler is %T, mirror path lost", svcLog.Handler())
	}

	svcLog.Error("monthly rollup diverged from ledger scan", slog.String("member_id", "m1"))
	out := buf.String()
	if !strings.Contains(out, "monthly rollup diverged") || !strings.Contains(out, "module=stats") {
		t.Fatalf("wrapped handler did not receive the record: %q", out)
	}
}

func TestTelegramHandlerPassesLowLevels(t *testing.T) {
	var buf bytes.Buffer
	inner := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	h := NewTelegramHandler(inner, nil, slog.LevelError)

	if !h.Enabled(context.Background(), slog.LevelInfo) {
		t.Fatal("INFO disabled, the mirror threshold must not gate regular logging")
	}

	slog.New(h).Info("starting api server")
	if !strings.Contains(buf.String(), "starting api server") {
		t.Fatalf("INFO record lost: %q", buf.String())
	}
}

func TestTelegramHandlerGroup(t *testing.T) {
	var buf bytes.Buffer
	inner := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	log := slog.New(NewTelegramHandler(inner, nil, slog.LevelError)).WithGroup("ledger")

	if _, ok := log.Handler().(*TelegramHandler); !ok {
		t.Fatalf("grouped handler is %T, mirror path lost", log.Handler())
	}
	log.Error("settlement failed")
	if !strings.Contains(buf.String(), "settlement failed") {
		t.Fatalf("grouped record lost: %q", buf.String())
	}
}
