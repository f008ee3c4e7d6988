package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestLogLevelString(t *testing.T) {
	tests := []struct {
		level    Level
		expected string
	}{
		{DebugLevel, "DEBUG"},
		{InfoLevel, "INFO"},
		{WarnLevel, "WARN"},
		{ErrorLevel, "ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := tt.level.String(); got != tt.expected {
				t.Errorf("Level.String() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected Level
	}{
		{"DEBUG", DebugLevel},
		{"debug", DebugLevel},
		{"INFO", InfoLevel},
		{"info", InfoLevel},
		{"WARN", WarnLevel},
		{"warn", WarnLevel},
		{"WARNING", WarnLevel},
		{"warning", WarnLevel},
		{"ERROR", ErrorLevel},
		{"error", ErrorLevel},
		{"invalid", InfoLevel}, // a config typo must not silence the log
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseLevel(tt.input); got != tt.expected {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestFieldConstructors(t *testing.T) {
	t.Run("String", func(t *testing.T) {
		f := String("transport", "exec")
		if f.Key != "transport" || f.Value != "exec" {
			t.Errorf("String() = %+v, want {Key:transport Value:exec}", f)
		}
	})

	t.Run("Int", func(t *testing.T) {
		f := Count(42)
		if f.Key != "count" || f.Value != 42 {
			t.Errorf("Count() = %+v, want {Key:count Value:42}", f)
		}
	})

	t.Run("Uint64", func(t *testing.T) {
		f := Seq(9876543210)
		if f.Key != "seq" || f.Value != uint64(9876543210) {
			t.Errorf("Seq() = %+v", f)
		}
	})

	t.Run("Bool", func(t *testing.T) {
		f := Bool("running", true)
		if f.Key != "running" || f.Value != true {
			t.Errorf("Bool() = %+v", f)
		}
	})

	t.Run("Duration", func(t *testing.T) {
		f := Duration("settle", 2*time.Second)
		if f.Key != "settle" || f.Value != "2s" {
			t.Errorf("Duration() = %+v", f)
		}
	})

	t.Run("Error", func(t *testing.T) {
		err := errors.New("no active audio server session")
		f := Error(err)
		if f.Key != "error" || f.Value != "no active audio server session" {
			t.Errorf("Error() = %+v", f)
		}
	})

	t.Run("Error_nil", func(t *testing.T) {
		f := Error(nil)
		if f.Key != "error" || f.Value != nil {
			t.Errorf("Error(nil) = %+v", f)
		}
	})

	t.Run("Any", func(t *testing.T) {
		alternatives := []string{"vlc_media_player", "system"}
		f := Any("alternatives", alternatives)
		if f.Key != "alternatives" {
			t.Errorf("Any() key = %v, want alternatives", f.Key)
		}
	})
}

// The routing components log through the typed helpers so field keys stay
// uniform across the stream; pin the keys down here.
func TestRoutingFieldHelpers(t *testing.T) {
	tests := []struct {
		name  string
		field Field
		key   string
		value any
	}{
		{"Component", Component("routing"), "component", "routing"},
		{"ClientName", ClientName("vlc_media_player"), "client", "vlc_media_player"},
		{"PortName", PortName("rivendell_0:record_0L"), "port", "rivendell_0:record_0L"},
		{"Edge", Edge("rivendell_0:playout_0L", "stereo_tool:in_1"), "edge", "rivendell_0:playout_0L -> stereo_tool:in_1"},
		{"ProfileName", ProfileName("live-broadcast"), "profile", "live-broadcast"},
		{"Operation", Operation("switch_input"), "operation", "switch_input"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.field.Key != tt.key || tt.field.Value != tt.value {
				t.Errorf("%s = %+v, want {Key:%s Value:%v}", tt.name, tt.field, tt.key, tt.value)
			}
		})
	}
}

func TestJSONLogger_BasicLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, DebugLevel)

	logger.Info("client appeared", ClientName("vlc_media_player"))

	var entry LogEntry
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Failed to unmarshal log entry: %v", err)
	}

	if entry.Level != "INFO" {
		t.Errorf("Level = %v, want INFO", entry.Level)
	}
	if entry.Message != "client appeared" {
		t.Errorf("Message = %v, want 'client appeared'", entry.Message)
	}
	if entry.Fields["client"] != "vlc_media_player" {
		t.Errorf("Fields[client] = %v, want 'vlc_media_player'", entry.Fields["client"])
	}
	if entry.Time == "" {
		t.Error("Time field is empty")
	}
}

func TestJSONLogger_LogLevels(t *testing.T) {
	tests := []struct {
		name     string
		logFunc  func(Logger)
		expected string
	}{
		{
			name:     "Debug",
			logFunc:  func(l Logger) { l.Debug("peer classified as capture source") },
			expected: "DEBUG",
		},
		{
			name:     "Info",
			logFunc:  func(l Logger) { l.Info("chain established") },
			expected: "INFO",
		},
		{
			name:     "Warn",
			logFunc:  func(l Logger) { l.Warn("disconnect skipped: edge is critical") },
			expected: "WARN",
		},
		{
			name:     "Error",
			logFunc:  func(l Logger) { l.Error("audio server session lost") },
			expected: "ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewJSONLogger(&buf, DebugLevel)

			tt.logFunc(logger)

			var entry LogEntry
			if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
				t.Fatalf("Failed to unmarshal: %v", err)
			}

			if entry.Level != tt.expected {
				t.Errorf("Level = %v, want %v", entry.Level, tt.expected)
			}
		})
	}
}

func TestJSONLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, WarnLevel)

	// Below the configured level: dropped
	logger.Debug("pair-up choice")
	logger.Info("graph refreshed")

	// At or above: kept
	logger.Warn("unknown source, safety-preserved")
	logger.Error("audio server session lost")

	output := buf.String()
	lines := strings.Split(strings.TrimSpace(output), "\n")

	if len(lines) != 2 {
		t.Errorf("Expected 2 log entries, got %d", len(lines))
	}

	var warnEntry LogEntry
	if err := json.Unmarshal([]byte(lines[0]), &warnEntry); err != nil {
		t.Fatalf("Failed to unmarshal WARN entry: %v", err)
	}
	if warnEntry.Level != "WARN" {
		t.Errorf("First entry level = %v, want WARN", warnEntry.Level)
	}

	var errorEntry LogEntry
	if err := json.Unmarshal([]byte(lines[1]), &errorEntry); err != nil {
		t.Fatalf("Failed to unmarshal ERROR entry: %v", err)
	}
	if errorEntry.Level != "ERROR" {
		t.Errorf("Second entry level = %v, want ERROR", errorEntry.Level)
	}
}

func TestJSONLogger_MultipleFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, InfoLevel)

	logger.Info("input switched",
		ClientName("system"),
		Count(2),
		Bool("partial", false),
	)

	var entry LogEntry
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Failed to unmarshal: %v", err)
	}

	if entry.Fields["client"] != "system" {
		t.Errorf("client field = %v, want system", entry.Fields["client"])
	}
	if entry.Fields["count"] != float64(2) { // JSON unmarshals numbers as float64
		t.Errorf("count field = %v, want 2", entry.Fields["count"])
	}
	if entry.Fields["partial"] != false {
		t.Errorf("partial field = %v, want false", entry.Fields["partial"])
	}
}

func TestJSONLogger_With(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, InfoLevel)

	// Components scope themselves off the daemon's root logger.
	childLogger := logger.With(
		Component("monitor"),
		String("tick", "1s"),
	)

	childLogger.Info("client disappeared", ClientName("vlc_media_player"))

	var entry LogEntry
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Failed to unmarshal: %v", err)
	}

	if entry.Fields["component"] != "monitor" {
		t.Errorf("component field = %v, want monitor", entry.Fields["component"])
	}
	if entry.Fields["tick"] != "1s" {
		t.Errorf("tick field = %v, want 1s", entry.Fields["tick"])
	}
	if entry.Fields["client"] != "vlc_media_player" {
		t.Errorf("client field = %v, want vlc_media_player", entry.Fields["client"])
	}
}

func TestJSONLogger_SetLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, InfoLevel)

	if logger.GetLevel() != InfoLevel {
		t.Errorf("Initial level = %v, want InfoLevel", logger.GetLevel())
	}

	// SIGHUP path: the daemon re-applies the configured level.
	logger.SetLevel(ErrorLevel)

	if logger.GetLevel() != ErrorLevel {
		t.Errorf("After SetLevel, level = %v, want ErrorLevel", logger.GetLevel())
	}

	logger.Debug("pair-up choice")
	logger.Info("graph refreshed")

	if buf.Len() != 0 {
		t.Error("Expected no output for Debug/Info at ErrorLevel")
	}

	logger.Error("audio server session lost")

	if buf.Len() == 0 {
		t.Error("Expected output for Error at ErrorLevel")
	}
}

func TestDefaultLogger(t *testing.T) {
	logger := DefaultLogger()
	if logger == nil {
		t.Fatal("DefaultLogger() returned nil")
	}

	// Must not panic when used.
	logger.Debug("default logger probe")
}

func TestGlobalHelperFunctions(t *testing.T) {
	var buf bytes.Buffer
	SetDefaultLogger(NewJSONLogger(&buf, DebugLevel))

	Debug("peer classified")
	Info("profile activated")
	Warn("launch failed")
	ErrorLog("audio server session lost")

	output := buf.String()
	lines := strings.Split(strings.TrimSpace(output), "\n")

	if len(lines) != 4 {
		t.Errorf("Expected 4 log entries, got %d", len(lines))
	}

	levels := []string{"DEBUG", "INFO", "WARN", "ERROR"}
	for i, expectedLevel := range levels {
		var entry LogEntry
		if err := json.Unmarshal([]byte(lines[i]), &entry); err != nil {
			t.Fatalf("Failed to unmarshal entry %d: %v", i, err)
		}
		if entry.Level != expectedLevel {
			t.Errorf("Entry %d level = %v, want %v", i, entry.Level, expectedLevel)
		}
	}
}

func TestGlobalWith(t *testing.T) {
	var buf bytes.Buffer
	SetDefaultLogger(NewJSONLogger(&buf, InfoLevel))

	childLogger := With(String("service", "rdx-jackd"))
	childLogger.Info("starting")

	var entry LogEntry
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Failed to unmarshal: %v", err)
	}

	if entry.Fields["service"] != "rdx-jackd" {
		t.Errorf("service field = %v, want rdx-jackd", entry.Fields["service"])
	}
}

func TestJSONLogger_NoFieldsOmitted(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, InfoLevel)

	logger.Info("no preferred input detected")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Failed to unmarshal: %v", err)
	}

	// When no fields are present, the fields key should be omitted
	if _, exists := entry["fields"]; exists {
		t.Error("Expected fields key to be omitted when empty")
	}
}

func BenchmarkJSONLogger_Info(b *testing.B) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, InfoLevel)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		logger.Info("connection changed",
			Edge("rivendell_0:playout_0L", "stereo_tool:in_1"),
			Bool("connected", true),
		)
	}
}

func BenchmarkJSONLogger_InfoFiltered(b *testing.B) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, ErrorLevel)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		// Filtered out before any marshalling happens.
		logger.Info("connection changed",
			Edge("rivendell_0:playout_0L", "stereo_tool:in_1"),
			Bool("connected", true),
		)
	}
}
