package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNew_Levels(t *testing.T) {
	quiet, err := New(false)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if quiet.Core().Enabled(zapcore.DebugLevel) {
		t.Error("expected debug to be disabled by default")
	}
	if !quiet.Core().Enabled(zapcore.InfoLevel) {
		t.Error("expected info to be enabled")
	}

	verbose, err := New(true)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if !verbose.Core().Enabled(zapcore.DebugLevel) {
		t.Error("expected debug to be enabled when verbose")
	}
}
