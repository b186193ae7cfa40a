package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"", zerolog.InfoLevel},
		{"trace", zerolog.TraceLevel},
		{"DEBUG", zerolog.DebugLevel},
		{"warning", zerolog.WarnLevel},
		{" error ", zerolog.ErrorLevel},
		{"critical", CriticalLevel},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestCriticalDoesNotExit(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	Critical(&logger).Str("host", "giris.dpu.edu.tr").Msg("login server is not resolvable")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "critical", line["level"])
	assert.Equal(t, "giris.dpu.edu.tr", line["host"])
}

func TestInitWritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dpulogin.log")
	require.NoError(t, Init(Config{Level: "debug", Format: "json", File: path}))
	t.Cleanup(func() { _ = Init(Config{Format: "json"}) })

	logger := Component("supervisor")
	logger.Debug().Msg("hello")
	logger.Trace().Msg("dropped")

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var line map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(data), &line))
	assert.Equal(t, "supervisor", line["component"])
	assert.Equal(t, "debug", line["level"])
	assert.Equal(t, "hello", line["message"])
}

func TestInitRejectsUnknownFormat(t *testing.T) {
	assert.Error(t, Init(Config{Format: "xml"}))
	assert.Error(t, Init(Config{Level: "nope"}))
}
