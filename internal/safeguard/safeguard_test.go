package safeguard

import (
	"io"
	"log/slog"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 100}))
}

func TestRunRecoversPanic(t *testing.T) {
	t.Parallel()

	ran := false
	Run(discardLogger(), "test.step", func() {
		ran = true
		panic("boom")
	})

	if !ran {
		t.Error("expected fn to run before panicking")
	}
}

func TestRunPassesThroughNormalReturn(t *testing.T) {
	t.Parallel()

	called := false
	Run(discardLogger(), "test.step", func() {
		called = true
	})

	if !called {
		t.Error("expected fn to run")
	}
}
