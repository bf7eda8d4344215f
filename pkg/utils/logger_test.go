package utils

import (
	"context"
	"testing"

	"go.uber.org/zap"
)

func TestNewLogger(t *testing.T) {
	t.Run("debug mode returns development logger", func(t *testing.T) {
		logger, err := NewLogger(true)
		if err != nil {
			t.Fatalf("NewLogger(true) error: %v", err)
		}
		if logger == nil {
			t.Fatal("NewLogger(true) returned nil logger")
		}
		if !logger.Core().Enabled(zap.DebugLevel) {
			t.Error("debug logger should enable debug level")
		}
		_ = logger.Sync()
	})

	t.Run("production mode returns production logger", func(t *testing.T) {
		logger, err := NewLogger(false)
		if err != nil {
			t.Fatalf("NewLogger(false) error: %v", err)
		}
		if logger == nil {
			t.Fatal("NewLogger(false) returned nil logger")
		}
		if logger.Core().Enabled(zap.DebugLevel) {
			t.Error("production logger should not enable debug level")
		}
		_ = logger.Sync()
	})
}

func TestLoggerFromContext(t *testing.T) {
	fallback := zap.NewExample()
	if got := LoggerFromContext(context.Background(), fallback); got != fallback {
		t.Error("empty context should return fallback")
	}
	if got := LoggerFromContext(context.Background(), nil); got == nil {
		t.Error("nil fallback should return a no-op logger")
	}

	scoped := zap.NewNop().With(zap.String("request_id", "r1"))
	ctx := ContextWithLogger(context.Background(), scoped)
	if got := LoggerFromContext(ctx, fallback); got != scoped {
		t.Error("context logger should win over fallback")
	}
}
