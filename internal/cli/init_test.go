package cli

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	applog "aidance/internal/log"
)

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("AIDANCE_TEST_PORT=9191\nAIDANCE_TEST_KEPT=fromfile\n"), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}

	t.Setenv("AIDANCE_TEST_PORT", "")
	os.Unsetenv("AIDANCE_TEST_PORT")
	t.Setenv("AIDANCE_TEST_KEPT", "fromenv")

	LoadEnvFile(filepath.Join(dir, "missing.env"), path)

	if got := os.Getenv("AIDANCE_TEST_PORT"); got != "9191" {
		t.Fatalf("expected value from file, got %q", got)
	}
	if got := os.Getenv("AIDANCE_TEST_KEPT"); got != "fromenv" {
		t.Fatalf("existing variable must win, got %q", got)
	}
}

func TestSetupLogger(t *testing.T) {
	logger := SetupLogger("debug")
	if logger.Component() != applog.ComponentApp {
		t.Fatalf("unexpected component %q", logger.Component())
	}
	if !logger.Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("debug level must be enabled")
	}
}

func TestGracefulShutdownStop(t *testing.T) {
	ctx, stop := GracefulShutdown(context.Background(), applog.Discard())
	stop()
	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("stop must cancel the context")
	}
}
