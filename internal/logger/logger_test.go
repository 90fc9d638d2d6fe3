package logger

import (
	"testing"

	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLoggerRedactsSecretKeys(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := FromCore(core)

	log.Warn("revalidate", "secret", "hunter2", "topic", "products/update")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["secret"] != "[REDACTED]" {
		t.Fatalf("expected secret redacted, got %v", fields["secret"])
	}
	if fields["topic"] != "products/update" {
		t.Fatalf("expected topic kept, got %v", fields["topic"])
	}
}

func TestLoggerWithCarriesFields(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	log := FromCore(core).With("cart_id", "c1")

	log.Info("dispatch")
	log.Debug("dropped below level")

	if logs.Len() != 1 {
		t.Fatalf("expected 1 entry, got %d", logs.Len())
	}
	if got := logs.All()[0].ContextMap()["cart_id"]; got != "c1" {
		t.Fatalf("expected cart_id c1, got %v", got)
	}
}
