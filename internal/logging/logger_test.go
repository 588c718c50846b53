package logging

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestNewFallsBackToInfoOnBadLevel(t *testing.T) {
	l := New("test", "not-a-level", "json")
	if l.GetLevel() != logrus.InfoLevel {
		t.Errorf("expected info level fallback, got %v", l.GetLevel())
	}
}

func TestNewTextFormatter(t *testing.T) {
	l := New("test", "debug", "text")
	if _, ok := l.Formatter.(*logrus.TextFormatter); !ok {
		t.Errorf("expected text formatter, got %T", l.Formatter)
	}
}

func TestDiscardSuppressesOutput(t *testing.T) {
	l := Discard("test")
	if _, ok := l.Out.(discardWriter); !ok {
		t.Errorf("expected discard writer, got %T", l.Out)
	}
}

func TestWithContextAttachesTraceID(t *testing.T) {
	l := New("test", "info", "json")
	ctx := WithTraceID(context.Background(), "trace-123")
	entry := l.WithContext(ctx)
	if entry.Data["trace_id"] != "trace-123" {
		t.Errorf("expected trace_id field, got %v", entry.Data["trace_id"])
	}
}

func TestNewTraceIDIsUnique(t *testing.T) {
	if NewTraceID() == NewTraceID() {
		t.Errorf("expected distinct trace IDs")
	}
}
