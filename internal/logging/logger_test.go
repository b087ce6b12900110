package logging

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "yaml"}); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	if _, err := New(Options{Level: "loud"}); err == nil {
		t.Fatal("expected error for unknown level")
	}
}

func TestNewJSONEmitsAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Level: "debug", Format: "json", Output: &buf})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	logger.Info("playback started", String("session_id", "abc"), Int("frames", 4))
	line := buf.String()
	for _, want := range []string{`"msg":"playback started"`, `"session_id":"abc"`, `"frames":4`} {
		if !strings.Contains(line, want) {
			t.Errorf("log line missing %s: %s", want, line)
		}
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Level: "warn", Format: "json", Output: &buf})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	logger.Info("dropped")
	logger.Warn("kept")
	if strings.Contains(buf.String(), "dropped") {
		t.Error("info line should have been filtered at warn level")
	}
	if !strings.Contains(buf.String(), "kept") {
		t.Error("warn line missing")
	}
}

func TestErrorAttrHandlesNil(t *testing.T) {
	attr := Error(nil)
	if attr.Value.String() != "<nil>" {
		t.Fatalf("unexpected nil error rendering: %q", attr.Value.String())
	}
	attr = Error(errors.New("boom"))
	if attr.Key != "error" {
		t.Fatalf("unexpected key %q", attr.Key)
	}
}

func TestComponentLoggerToleratesNilBase(t *testing.T) {
	logger := NewComponentLogger(nil, "scheduler")
	logger.Info("should not panic")
}
