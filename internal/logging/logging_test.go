package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup_Levels(t *testing.T) {
	tests := []struct {
		opts Options
		want logrus.Level
	}{
		{Options{}, logrus.InfoLevel},
		{Options{Level: "warn"}, logrus.WarnLevel},
		{Options{Level: "DEBUG"}, logrus.DebugLevel},
		{Options{Level: "nonsense"}, logrus.InfoLevel},
		{Options{Level: "info", Verbose: true}, logrus.DebugLevel},
		{Options{Level: "trace", Verbose: true}, logrus.TraceLevel},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Setup(tt.opts).GetLevel(), "%+v", tt.opts)
	}
}

func TestSetup_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup(Options{Output: &buf})
	logger.WithField("sigma", 0.5).Info("Sample computed")

	assert.Contains(t, buf.String(), `msg="Sample computed"`)
	assert.Contains(t, buf.String(), "sigma=0.5")
}

func TestSetup_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup(Options{Format: "json", Output: &buf})
	logger.WithField("T", 1000).Warn("Segment missed tolerance")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "warning", entry["level"])
	assert.Equal(t, "Segment missed tolerance", entry["msg"])
	assert.Equal(t, 1000.0, entry["T"])
}
