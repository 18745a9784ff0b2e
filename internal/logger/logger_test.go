package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestSetup_ReturnsJSONLogger(t *testing.T) {
	var buf bytes.Buffer
	l := Setup(&buf, "production")

	if l == nil {
		t.Fatal("expected non-nil logger")
	}

	l.Info("dispatched clock in job", slog.String("email", "a@example.com"))

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected valid JSON log output, got error: %v\nraw output: %s", err, buf.String())
	}

	if entry["msg"] != "dispatched clock in job" {
		t.Errorf("msg = %q, want %q", entry["msg"], "dispatched clock in job")
	}
	if entry["email"] != "a@example.com" {
		t.Errorf("email = %q, want %q", entry["email"], "a@example.com")
	}
	if _, ok := entry["time"]; !ok {
		t.Error("expected 'time' field in JSON log output")
	}
	if entry["level"] != "INFO" {
		t.Errorf("level = %q, want INFO", entry["level"])
	}
}

func TestSetup_LevelByEnvironment(t *testing.T) {
	tests := []struct {
		name      string
		appEnv    string
		wantDebug bool
	}{
		{name: "development emits debug", appEnv: "development", wantDebug: true},
		{name: "production suppresses debug", appEnv: "production", wantDebug: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			l := Setup(&buf, tt.appEnv)

			l.Debug("claim cycle")

			if got := buf.Len() > 0; got != tt.wantDebug {
				t.Errorf("debug output present = %v, want %v", got, tt.wantDebug)
			}
		})
	}
}

func TestSetup_MultipleAttributes(t *testing.T) {
	var buf bytes.Buffer
	l := Setup(&buf, "production")

	l.Info("clock job completed",
		slog.String("email", "a@example.com"),
		slog.String("action", "Clock In"),
		slog.Int("http_status", 200),
		slog.Float64("delay_seconds", 42.5),
	)

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse JSON: %v", err)
	}

	if entry["action"] != "Clock In" {
		t.Errorf("action = %q, want %q", entry["action"], "Clock In")
	}
	if entry["http_status"] != float64(200) {
		t.Errorf("http_status = %v, want %v", entry["http_status"], 200)
	}
	if entry["delay_seconds"] != 42.5 {
		t.Errorf("delay_seconds = %v, want 42.5", entry["delay_seconds"])
	}
}

func TestSetupDefault_SetsGlobalLogger(t *testing.T) {
	var buf bytes.Buffer
	SetupDefault(&buf, "production")

	slog.Default().Info("global test", slog.String("test_key", "test_val"))

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse JSON: %v\nraw: %s", err, buf.String())
	}

	if entry["msg"] != "global test" {
		t.Errorf("msg = %q, want %q", entry["msg"], "global test")
	}
	if entry["test_key"] != "test_val" {
		t.Errorf("test_key = %q, want %q", entry["test_key"], "test_val")
	}
}
