package logging

import (
	"bytes"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/skobkin/debugpanel/internal/config"
)

type errorWriter struct {
	err error
}

func (w errorWriter) Write([]byte) (int, error) {
	return 0, w.err
}

func TestFanoutWriter_ContinuesWhenOneDestinationFails(t *testing.T) {
	var dst bytes.Buffer
	w := newFanoutWriter(errorWriter{err: errors.New("broken stdout")}, &dst)

	n, err := w.Write([]byte("test"))
	if err != nil {
		t.Fatalf("write returned error: %v", err)
	}
	if n != len("test") {
		t.Fatalf("unexpected bytes written: got %d, want %d", n, len("test"))
	}
	if got := dst.String(); got != "test" {
		t.Fatalf("unexpected destination contents: got %q", got)
	}
}

func TestFanoutWriter_FailsWhenEveryDestinationFails(t *testing.T) {
	want := errors.New("first")
	w := newFanoutWriter(errorWriter{err: want}, errorWriter{err: errors.New("second")})

	if _, err := w.Write([]byte("x")); !errors.Is(err, want) {
		t.Fatalf("expected first error, got %v", err)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{in: "", want: slog.LevelInfo},
		{in: "DEBUG", want: slog.LevelDebug},
		{in: " warning ", want: slog.LevelWarn},
		{in: "error", want: slog.LevelError},
		{in: "verbose", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Fatalf("%q: expected error", tt.in)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Fatalf("%q: expected %v, got %v (err=%v)", tt.in, tt.want, got, err)
		}
	}
}

func TestManagerConfigure_WritesToConsoleAndFile(t *testing.T) {
	origDefault := slog.Default()
	t.Cleanup(func() { slog.SetDefault(origDefault) })

	var console bytes.Buffer
	logPath := filepath.Join(t.TempDir(), "logs", "app.log")
	m := NewManagerWithConsole(&console)
	t.Cleanup(func() { _ = m.Close() })

	if err := m.Configure(config.LoggingConfig{Level: "debug", LogToFile: true}, logPath); err != nil {
		t.Fatalf("configure manager: %v", err)
	}
	if m.Level() != slog.LevelDebug {
		t.Fatalf("expected debug level, got %v", m.Level())
	}

	m.Logger("test").Debug("file must receive this message")
	if err := m.Close(); err != nil {
		t.Fatalf("close manager: %v", err)
	}

	raw, err := os.ReadFile(filepath.Clean(logPath))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	for name, got := range map[string]string{"file": string(raw), "console": console.String()} {
		if !strings.Contains(got, "file must receive this message") || !strings.Contains(got, "component=test") {
			t.Fatalf("%s missing log line: %q", name, got)
		}
	}
}

func TestManagerConfigure_RejectsUnknownLevel(t *testing.T) {
	m := NewManagerWithConsole(nil)
	if err := m.Configure(config.LoggingConfig{Level: "loud"}, ""); err == nil {
		t.Fatalf("expected level error")
	}
}
