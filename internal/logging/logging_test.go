package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestPreInitLoggerUsesConfiguredHandler(t *testing.T) {
	logger := L("engine")

	var buf bytes.Buffer
	Init("text", "info", &buf)

	logger.Info("backend selected", "backend", "duplication")

	out := buf.String()
	if !strings.Contains(out, "msg=\"backend selected\"") {
		t.Fatalf("expected message, got: %s", out)
	}
	if !strings.Contains(out, "component=engine") {
		t.Fatalf("expected component field, got: %s", out)
	}
	if !strings.Contains(out, "backend=duplication") {
		t.Fatalf("expected backend field, got: %s", out)
	}
}

func TestPreInitLoggerRespectsConfiguredLevel(t *testing.T) {
	logger := L("engine")

	var buf bytes.Buffer
	Init("text", "warn", &buf)

	logger.Info("hidden")
	logger.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info log should be filtered at warn level: %s", out)
	}
	if !strings.Contains(out, "shown") {
		t.Fatalf("warn log should be emitted: %s", out)
	}
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	Init("json", "info", &buf)
	t.Cleanup(func() { Init("text", "info", nil) })

	L("validator").Info("frame rejected", "meanIntensity", 1.5)

	out := buf.String()
	if !strings.Contains(out, `"component":"validator"`) {
		t.Fatalf("expected JSON component field, got: %s", out)
	}
	if !strings.Contains(out, `"msg":"frame rejected"`) {
		t.Fatalf("expected JSON message, got: %s", out)
	}
}
