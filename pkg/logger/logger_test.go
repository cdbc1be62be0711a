package logger

import (
	"context"
	"log/slog"
	"testing"
)

func TestLoggerInit(t *testing.T) {
	if err := Init(); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}
	defer func() {
		if err := Sync(); err != nil {
			t.Errorf("failed to sync logger: %v", err)
		}
	}()

	log := Get()
	if log == nil {
		t.Fatal("logger is nil after initialization")
	}

	// Init twice must be safe.
	if err := Init(); err != nil {
		t.Fatalf("failed to re-initialize logger: %v", err)
	}
}

func TestLoggerBasic(t *testing.T) {
	if err := Init(); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}

	log := Get()
	ctx := context.Background()

	log.Debug(ctx, "debug message", String("k", "v"))
	log.Info(ctx, "info message", Int("count", 3), Float64("score", 1.5))
	log.Warn(ctx, "warn message", Bool("flag", true))
	log.Error(ctx, "error message", Any("payload", map[string]int{"a": 1}))
}

func TestNamedLogger(t *testing.T) {
	if err := Init(); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}

	named := Named("matchmaker")
	if named == nil {
		t.Fatal("named logger is nil")
	}
	named.Info(context.Background(), "named logger message")

	child := named.Named("inner")
	if child == nil {
		t.Fatal("nested named logger is nil")
	}
}

func TestSetLevel(t *testing.T) {
	if err := Init(); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}

	SetLevel(slog.LevelDebug)
	SetLevel(slog.LevelInfo)

	for _, level := range []string{"debug", "info", "warn", "error"} {
		if err := SetLevelString(level); err != nil {
			t.Errorf("SetLevelString(%q) failed: %v", level, err)
		}
	}
	if err := SetLevelString("loud"); err == nil {
		t.Error("SetLevelString accepted an unknown level")
	}
}
