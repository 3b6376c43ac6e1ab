package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerWritesKeyValues(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("Validator", &buf, "debug")

	log.Info("Document validated", "pages", 3, "err", errors.New("boom"))

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "Validator", line["component"])
	assert.Equal(t, "Document validated", line["message"])
	assert.Equal(t, float64(3), line["pages"])
	assert.Equal(t, "boom", line["err"])
	assert.Equal(t, "info", line["level"])
}

func TestLoggerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("Pool", &buf, "warn")

	log.Debug("hidden")
	log.Info("hidden")
	log.Warn("shown")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "shown")
}

func TestLoggerWithCarriesFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("Orchestrator", &buf, "info").With("request_id", "abc")

	log.Info("Step 1")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "abc", line["request_id"])
}

func TestParseLevel(t *testing.T) {
	testCases := []struct {
		in   string
		want zerolog.Level
	}{
		{"DEBUG", zerolog.DebugLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"", zerolog.InfoLevel},
		{"verbose", zerolog.InfoLevel},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.want, ParseLevel(tc.in), tc.in)
	}
}

func TestConfigureFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "worker.log")
	closer, err := Configure(Options{Level: "info", Format: "json", FilePath: path})
	require.NoError(t, err)

	NewLogger("Config").Info("written to file")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "written to file")

	_, err = Configure(Options{Level: "info"})
	require.NoError(t, err)
}
