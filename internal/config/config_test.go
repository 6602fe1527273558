package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gait_config.txt")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
# session
DATARATE=100
WHICH_LEG=Left Leg
WHICH_ANGLE=Hip Flex
MIN_THRESHOLD=-10
MAX_THRESHOLD = 25.5

FEEDBACK_ENABLED=true
FEEDBACK_MIN_PIN=GPIO17
FEEDBACK_MAX_PIN=GPIO27
PULSE_LENGTH=150
FRAME_SOURCE=serial
SERIAL_PORT=/dev/ttyUSB0
IMU_GYRO_RANGE=2
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 100, cfg.DataRate)
	assert.Equal(t, "Left", cfg.WhichLeg)
	assert.Equal(t, "Hip", cfg.WhichAngle)
	assert.Equal(t, -10.0, cfg.MinThreshold)
	assert.Equal(t, 25.5, cfg.MaxThreshold)
	assert.True(t, cfg.FeedbackEnabled)
	assert.False(t, cfg.FeedbackGaitGated)
	assert.Equal(t, 150, cfg.PulseLength)
	assert.Equal(t, "serial", cfg.FrameSource)
	assert.Equal(t, byte(2), cfg.IMUGyroRange)

	// defaults survive
	assert.Equal(t, 115200, cfg.SerialBaudRate)
	assert.Equal(t, "gait/results", cfg.TopicResults)
	assert.Equal(t, "frame", cfg.GaitGyroSource)
}

func TestLoadErrors(t *testing.T) {
	cases := map[string]string{
		"unknown key":       "DATARATE=100\nMAX_THRESHOLD=1\nFOO=bar\n",
		"malformed line":    "DATARATE=100\nMAX_THRESHOLD\n",
		"missing rate":      "MAX_THRESHOLD=10\nFRAME_SOURCE=mock\n",
		"rate out of range": "DATARATE=0\n",
		"bad leg":           "DATARATE=100\nWHICH_LEG=Middle\n",
		"thresholds":        "DATARATE=100\nMIN_THRESHOLD=10\nMAX_THRESHOLD=5\nFRAME_SOURCE=mock\n",
		"feedback pins":     "DATARATE=100\nMAX_THRESHOLD=10\nFRAME_SOURCE=mock\nFEEDBACK_ENABLED=yes please\n",
		"no pins":           "DATARATE=100\nMAX_THRESHOLD=10\nFRAME_SOURCE=mock\nFEEDBACK_ENABLED=true\n",
		"mqtt needs broker": "DATARATE=100\nMAX_THRESHOLD=10\n",
		"gyro range":        "DATARATE=100\nIMU_GYRO_RANGE=4\n",
	}
	for name, body := range cases {
		_, err := Load(writeConfig(t, body))
		assert.Error(t, err, name)
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}

func TestInitGlobalOnce(t *testing.T) {
	first := writeConfig(t, "DATARATE=50\nMAX_THRESHOLD=10\nFRAME_SOURCE=mock\n")
	second := writeConfig(t, "DATARATE=200\nMAX_THRESHOLD=10\nFRAME_SOURCE=mock\n")

	require.NoError(t, InitGlobal(first))
	require.NoError(t, InitGlobal(second))
	require.NotNil(t, Get())
	assert.Equal(t, 50, Get().DataRate)
}
