package logging

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatterPlain(t *testing.T) {
	entry := &log.Entry{
		Time:    time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC),
		Level:   log.InfoLevel,
		Message: "Activity logged",
		Data: log.Fields{
			"status": "working",
			"app":    "Inbox",
			"error":  errors.New("boom"),
		},
	}

	out, err := (&Formatter{}).Format(entry)
	require.NoError(t, err)
	assert.Equal(t, "[2025-03-03 09:00:00] [+] Activity logged app=Inbox error=boom status=working\n", string(out))
}

func TestFormatterLevels(t *testing.T) {
	tests := []struct {
		level log.Level
		want  string
	}{
		{log.ErrorLevel, "[!]"},
		{log.WarnLevel, "[~]"},
		{log.InfoLevel, "[+]"},
		{log.DebugLevel, "[*]"},
	}

	for _, tt := range tests {
		out, err := (&Formatter{}).Format(&log.Entry{Level: tt.level, Message: "x"})
		require.NoError(t, err)
		assert.Contains(t, string(out), tt.want)
	}
}

func TestFormatterColors(t *testing.T) {
	out, err := (&Formatter{Colors: true}).Format(&log.Entry{Level: log.WarnLevel, Message: "Failed to log activity"})
	require.NoError(t, err)
	assert.Contains(t, string(out), yellow)
	assert.Contains(t, string(out), reset)
}

func TestSetup(t *testing.T) {
	defer log.SetOutput(os.Stderr)
	defer log.SetLevel(log.InfoLevel)

	path := filepath.Join(t.TempDir(), "logs", "agent.log")
	closer, err := Setup("debug", path)
	require.NoError(t, err)

	assert.Equal(t, log.DebugLevel, log.GetLevel())
	log.Info("written to file")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "[+] written to file")
}

func TestSetupInvalidLevel(t *testing.T) {
	closer, err := Setup("loud", "")
	require.Error(t, err)
	assert.NotNil(t, closer)
}
