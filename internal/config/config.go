// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
)

// Config holds all application configuration values.
type Config struct {
	// Session
	DataRate   int    // Hz
	WhichLeg   string // "Left" or "Right"
	WhichAngle string // "Hip", "Knee" or "Ankle"

	// Feedback
	MinThreshold      float64 // degrees
	MaxThreshold      float64 // degrees
	FeedbackEnabled   bool
	FeedbackGaitGated bool // only decide on the Middle->Late frame
	PulseLength       int  // milliseconds
	FeedbackMinPin    string
	FeedbackMaxPin    string

	// Frame input
	FrameSource    string // "mock", "mqtt" or "serial"
	SerialPort     string
	SerialBaudRate int

	// Gait gyro: "frame" uses the gyro in each frame, "spi" reads a local MPU9250
	GaitGyroSource string
	IMUSPIDevice   string
	IMUCSPin       string
	// Gyroscope: 0=±250°/s, 1=±500°/s, 2=±1000°/s, 3=±2000°/s
	IMUGyroRange byte

	// MQTT
	MQTTBroker          string
	MQTTClientIDApp     string
	MQTTClientIDConsole string
	MQTTClientIDWeb     string
	MQTTClientIDDisplay string

	// Topics
	TopicFrames  string
	TopicResults string

	// Storage
	DBPath string

	// Web Server
	WebServerPort int

	// Timing
	ConsoleLogInterval    int // milliseconds
	DisplayUpdateInterval int // milliseconds
}

var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// defaults returns a Config with every optional key filled in.
func defaults() *Config {
	return &Config{
		WhichLeg:              "Right",
		WhichAngle:            "Knee",
		PulseLength:           200,
		FrameSource:           "mqtt",
		SerialBaudRate:        115200,
		GaitGyroSource:        "frame",
		MQTTClientIDApp:       "gait-feedback-app",
		MQTTClientIDConsole:   "gait-feedback-console",
		MQTTClientIDWeb:       "gait-feedback-web",
		MQTTClientIDDisplay:   "gait-feedback-display",
		TopicFrames:           "gait/frames",
		TopicResults:          "gait/results",
		ConsoleLogInterval:    1000,
		DisplayUpdateInterval: 200,
	}
}

// Load reads the configuration file and returns a Config struct.
func Load(configPath string) (*Config, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	cfg := defaults()
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=VALUE
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid config line %d: %q", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if err := cfg.setValue(key, value); err != nil {
			return nil, fmt.Errorf("config line %d: %w", lineNum, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func parseInt(key, value string, lo, hi int) (int, error) {
	v, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	if v < lo || v > hi {
		return 0, fmt.Errorf("%s must be %d-%d, got %d", key, lo, hi, v)
	}
	return v, nil
}

func parseFloat(key, value string) (float64, error) {
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return v, nil
}

func parseBool(key, value string) (bool, error) {
	v, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return v, nil
}

func oneOf(key, value string, allowed ...string) (string, error) {
	for _, a := range allowed {
		if strings.EqualFold(value, a) {
			return a, nil
		}
	}
	return "", fmt.Errorf("%s must be one of %s, got %q", key, strings.Join(allowed, "/"), value)
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	var err error
	switch key {
	// Session
	case "DATARATE":
		c.DataRate, err = parseInt(key, value, 1, 1000)
	case "WHICH_LEG":
		c.WhichLeg, err = oneOf(key, strings.TrimSuffix(value, " Leg"), "Left", "Right")
	case "WHICH_ANGLE":
		c.WhichAngle, err = oneOf(key, strings.TrimSuffix(value, " Flex"), "Hip", "Knee", "Ankle")

	// Feedback
	case "MIN_THRESHOLD":
		c.MinThreshold, err = parseFloat(key, value)
	case "MAX_THRESHOLD":
		c.MaxThreshold, err = parseFloat(key, value)
	case "FEEDBACK_ENABLED":
		c.FeedbackEnabled, err = parseBool(key, value)
	case "FEEDBACK_GAIT_GATED":
		c.FeedbackGaitGated, err = parseBool(key, value)
	case "PULSE_LENGTH":
		c.PulseLength, err = parseInt(key, value, 1, 10000)
	case "FEEDBACK_MIN_PIN":
		c.FeedbackMinPin = value
	case "FEEDBACK_MAX_PIN":
		c.FeedbackMaxPin = value

	// Frame input
	case "FRAME_SOURCE":
		c.FrameSource, err = oneOf(key, value, "mock", "mqtt", "serial")
	case "SERIAL_PORT":
		c.SerialPort = value
	case "SERIAL_BAUD_RATE":
		c.SerialBaudRate, err = parseInt(key, value, 1200, 4000000)

	// Gait gyro
	case "GAIT_GYRO_SOURCE":
		c.GaitGyroSource, err = oneOf(key, value, "frame", "spi")
	case "IMU_SPI_DEVICE":
		c.IMUSPIDevice = value
	case "IMU_CS_PIN":
		c.IMUCSPin = value
	case "IMU_GYRO_RANGE":
		var v int
		v, err = parseInt(key, value, 0, 3)
		c.IMUGyroRange = byte(v)

	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID_APP":
		c.MQTTClientIDApp = value
	case "MQTT_CLIENT_ID_CONSOLE":
		c.MQTTClientIDConsole = value
	case "MQTT_CLIENT_ID_WEB":
		c.MQTTClientIDWeb = value
	case "MQTT_CLIENT_ID_DISPLAY":
		c.MQTTClientIDDisplay = value

	// Topics
	case "TOPIC_FRAMES":
		c.TopicFrames = value
	case "TOPIC_RESULTS":
		c.TopicResults = value

	// Storage
	case "DB_PATH":
		c.DBPath = value

	// Web Server
	case "WEB_SERVER_PORT":
		c.WebServerPort, err = parseInt(key, value, 0, 65535)

	// Timing
	case "CONSOLE_LOG_INTERVAL":
		c.ConsoleLogInterval, err = parseInt(key, value, 1, 3600000)
	case "DISPLAY_UPDATE_INTERVAL":
		c.DisplayUpdateInterval, err = parseInt(key, value, 1, 3600000)

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}
	return err
}

// validate checks that all required fields are set and consistent.
func (c *Config) validate() error {
	if c.DataRate == 0 {
		return fmt.Errorf("DATARATE is required")
	}
	if c.MinThreshold >= c.MaxThreshold {
		return fmt.Errorf("MIN_THRESHOLD (%g) must be below MAX_THRESHOLD (%g)", c.MinThreshold, c.MaxThreshold)
	}
	if c.FeedbackEnabled && (c.FeedbackMinPin == "" || c.FeedbackMaxPin == "") {
		return fmt.Errorf("FEEDBACK_MIN_PIN and FEEDBACK_MAX_PIN are required when FEEDBACK_ENABLED")
	}
	if c.FrameSource == "mqtt" && c.MQTTBroker == "" {
		return fmt.Errorf("MQTT_BROKER is required for FRAME_SOURCE=mqtt")
	}
	if c.FrameSource == "serial" && c.SerialPort == "" {
		return fmt.Errorf("SERIAL_PORT is required for FRAME_SOURCE=serial")
	}
	if c.GaitGyroSource == "spi" && (c.IMUSPIDevice == "" || c.IMUCSPin == "") {
		return fmt.Errorf("IMU_SPI_DEVICE and IMU_CS_PIN are required for GAIT_GYRO_SOURCE=spi")
	}
	return nil
}

// InitGlobal initializes the global configuration from file.
// Uses sync.Once to ensure this only runs once, even if called multiple times.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration instance.
// InitGlobal must be called first, or this will return nil.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
