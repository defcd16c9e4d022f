package log

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

func newBufferLogger(component string) (*Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	logger := New(Config{
		Component: component,
		Handler:   slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}),
	})
	return logger, &buf
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{" warn ", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseLevel(tt.in); got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestLogger_WithComponent(t *testing.T) {
	logger, buf := newBufferLogger(ComponentApp)

	logger.WithComponent(ComponentLedger).Info("saved")

	out := buf.String()
	if strings.Count(out, "component=") != 1 {
		t.Errorf("expected exactly one component attribute, got %q", out)
	}
	if !strings.Contains(out, "component=ledger") {
		t.Errorf("expected ledger component, got %q", out)
	}
}

func TestLogFields(t *testing.T) {
	id := uuid.MustParse("7b0c3cf8-2f0d-4d6b-a1aa-9e6f4c3b2a10")
	fields := NewFields().
		WithEntity("budget", id).
		WithMonth(time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC)).
		WithOperation(OpTransfer).
		WithError(nil)

	if fields[FieldEntityID] != id.String() {
		t.Errorf("entity id = %v", fields[FieldEntityID])
	}
	if fields[FieldMonth] != "2024-03" {
		t.Errorf("month = %v, want 2024-03", fields[FieldMonth])
	}
	if _, ok := fields[FieldError]; ok {
		t.Error("nil error must not add a field")
	}
	if len(fields.ToSlice()) != 2*len(fields) {
		t.Errorf("ToSlice length = %d", len(fields.ToSlice()))
	}
}

func TestStructuredLogger_LogLedgerWrite(t *testing.T) {
	logger, buf := newBufferLogger(ComponentHTTP)
	sl := NewStructuredLogger(logger)

	sl.LogLedgerWrite(context.Background(), OpCreate, "account", uuid.New(), time.Time{})

	out := buf.String()
	for _, want := range []string{"Ledger updated", "entity=account", "operation=create"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in %q", want, out)
		}
	}
	if strings.Contains(out, "month=") {
		t.Errorf("zero month must be omitted, got %q", out)
	}
}

func TestMiddleware_FromContext(t *testing.T) {
	logger, buf := newBufferLogger(ComponentApp)
	var got *Logger
	handler := Middleware(logger)(
		RequestIDMiddleware(func(*http.Request) string { return "req_1" })(
			http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = FromContext(r.Context())
			})))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if got == nil {
		t.Fatal("logger not found in context")
	}
	got.Info("inside")
	if !strings.Contains(buf.String(), "request_id=req_1") {
		t.Errorf("expected request id in %q", buf.String())
	}
}

func TestFromContext_Default(t *testing.T) {
	if l := FromContext(context.Background()); l.Component() != "unknown" {
		t.Errorf("expected unknown component, got %q", l.Component())
	}
}
