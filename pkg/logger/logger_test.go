package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelFiltering(t *testing.T) {
	tests := []struct {
		level   string
		present []string
		absent  []string
	}{
		{"debug", []string{"debug message", "info message", "warn message", "error message"}, nil},
		{"WARNING", []string{"warn message", "error message"}, []string{"debug message", "info message"}},
		{"CRITICAL", []string{"error message"}, []string{"info message", "warn message"}},
		{"bogus", []string{"info message"}, []string{"debug message"}},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			log := NewWithWriter(&buf, Config{Level: tt.level})

			log.Debug("debug message")
			log.Info("info message")
			log.Warn("warn message")
			log.Error("error message")

			for _, want := range tt.present {
				assert.Contains(t, buf.String(), want)
			}
			for _, unwanted := range tt.absent {
				assert.NotContains(t, buf.String(), unwanted)
			}
		})
	}
}

func TestWithFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, Config{Level: "info"}).With("component", "dispatcher")

	log.Info("dispatched", "plugin", "noop")

	assert.Contains(t, buf.String(), "component=dispatcher")
	assert.Contains(t, buf.String(), "plugin=noop")
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, Config{Level: "info", Format: "json"})

	log.Info("file processed", "path", "/watch/a.jpg", "attempt", 1)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "file processed", entry["msg"])
	assert.Equal(t, "/watch/a.jpg", entry["path"])
	assert.Equal(t, float64(1), entry["attempt"])
}

func TestFileOutput(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "daemon.log")

	log := New(Config{Level: "info", Output: logFile})
	log.Info("message 1")
	log.Error("message 2")

	data, err := os.ReadFile(logFile) // nolint:gosec
	require.NoError(t, err)
	assert.Contains(t, string(data), "message 1")
	assert.Contains(t, string(data), "message 2")
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		level string
		want  string
	}{
		{"debug", "DEBUG"},
		{"INFO", "INFO"},
		{"warn", "WARN"},
		{"WARNING", "WARN"},
		{"error", "ERROR"},
		{"CRITICAL", "ERROR"},
		{"", "INFO"},
		{"unknown", "INFO"},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.level).String())
		})
	}
}

func TestValidLevel(t *testing.T) {
	assert.True(t, ValidLevel("DEBUG"))
	assert.True(t, ValidLevel("critical"))
	assert.False(t, ValidLevel("verbose"))
	assert.False(t, ValidLevel(""))
}

func TestNoop(t *testing.T) {
	log := Noop()
	require.NotNil(t, log)

	log.Debug("debug")
	log.With("k", "v").Error("error")
}

func BenchmarkLogWithFields(b *testing.B) {
	log := Noop()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		log.Info("benchmark message", "key1", "value1", "key2", 42, "key3", true)
	}
}
