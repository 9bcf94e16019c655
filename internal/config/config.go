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
	"time"
)

// Config holds all application configuration values. It is constructed once
// in main and threaded through the collector by reference; there is no
// package-level instance.
type Config struct {
	// Logging
	LogLevel string
	LogPath  string

	// Cycle timing
	CadenceSeconds int

	// Enabled sensor drivers and persistence sinks, in config order.
	Sensors []string
	Sinks   []string

	// Serial line link (temperature + humidity)
	SerialPort string
	SerialBaud uint

	// Pressure sensor
	PressureI2CBus  string
	PressureI2CAddr uint16

	// Append log + checkpoint
	CSVPath        string
	CheckpointPath string

	// Relational loader (external psql process)
	DBName     string
	DBUser     string
	DBHost     string
	DBPort     int
	DBTable    string
	DBPassword string // from environment, never from the config file

	// Remote backup
	BackupURL            string
	BackupTimeoutSeconds int
	BackupAPIKey         string // from environment

	// data.gov.sg remote drivers (optional sensors)
	DataGovBaseURL        string
	DataGovStationID      string
	DataGovTimeoutSeconds int
	DataGovAPIKey         string // from environment

	// MQTT (optional live sink + monitor apps)
	MQTTBroker            string
	MQTTTopic             string
	MQTTClientIDCollector string
	MQTTClientIDConsole   string
	MQTTClientIDWeb       string
	MQTTClientIDDisplay   string

	// Web monitor
	WebServerPort int

	// OLED display monitor
	DisplayI2CBus         string
	DisplayUpdateInterval int // milliseconds
}

// Load reads the configuration file and returns a Config struct. Secrets
// (DB_PASSWORD, BACKUP_API_KEY, DATAGOV_API_KEY) are taken from the process
// environment so they never live in the config file.
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

	cfg.DBPassword = os.Getenv("DB_PASSWORD")
	cfg.BackupAPIKey = os.Getenv("BACKUP_API_KEY")
	cfg.DataGovAPIKey = os.Getenv("DATAGOV_API_KEY")

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// defaults mirrors the constants the station has always shipped with; the
// config file only needs to name what differs.
func defaults() *Config {
	return &Config{
		LogLevel:              "info",
		LogPath:               "backend_log.log",
		CadenceSeconds:        5,
		Sensors:               []string{"serial_env", "pressure"},
		Sinks:                 []string{"csv", "postgres", "backup"},
		SerialPort:            "/dev/ttyACM0",
		SerialBaud:            9600,
		PressureI2CAddr:       0x76,
		CSVPath:               "data.csv",
		CheckpointPath:        "data_one.json",
		DBPort:                5432,
		DBTable:               "sensor_data",
		BackupTimeoutSeconds:  5,
		DataGovBaseURL:        "https://api-open.data.gov.sg/v2/real-time/api",
		DataGovStationID:      "S109",
		DataGovTimeoutSeconds: 3,
		MQTTTopic:             "weather/record",
		MQTTClientIDCollector: "weather-collector",
		MQTTClientIDConsole:   "weather-console",
		MQTTClientIDWeb:       "weather-web",
		MQTTClientIDDisplay:   "weather-display",
		WebServerPort:         8080,
		DisplayUpdateInterval: 1000,
	}
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	switch key {
	// Logging
	case "LOG_LEVEL":
		c.LogLevel = value
	case "LOG_PATH":
		c.LogPath = value

	// Timing
	case "CADENCE_SECONDS":
		secs, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid CADENCE_SECONDS %q: %w", value, err)
		}
		if secs <= 0 {
			return fmt.Errorf("CADENCE_SECONDS must be positive, got %d", secs)
		}
		c.CadenceSeconds = secs

	// Enabled drivers and sinks
	case "SENSORS":
		c.Sensors = splitList(value)
	case "SINKS":
		c.Sinks = splitList(value)

	// Serial line link
	case "SERIAL_PORT":
		c.SerialPort = value
	case "SERIAL_BAUD":
		baud, err := strconv.ParseUint(value, 10, 32)
		if err != nil {
			return fmt.Errorf("invalid SERIAL_BAUD %q: %w", value, err)
		}
		c.SerialBaud = uint(baud)

	// Pressure sensor
	case "PRESSURE_I2C_BUS":
		c.PressureI2CBus = value
	case "PRESSURE_I2C_ADDR":
		addr, err := strconv.ParseUint(value, 0, 16)
		if err != nil {
			return fmt.Errorf("invalid PRESSURE_I2C_ADDR %q: %w", value, err)
		}
		c.PressureI2CAddr = uint16(addr)

	// Files
	case "CSV_PATH":
		c.CSVPath = value
	case "CHECKPOINT_PATH":
		c.CheckpointPath = value

	// Relational loader
	case "DB_NAME":
		c.DBName = value
	case "DB_USER":
		c.DBUser = value
	case "DB_HOST":
		c.DBHost = value
	case "DB_PORT":
		port, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid DB_PORT %q: %w", value, err)
		}
		c.DBPort = port
	case "DB_TABLE":
		c.DBTable = value

	// Remote backup
	case "BACKUP_URL":
		c.BackupURL = value
	case "BACKUP_TIMEOUT_SECONDS":
		secs, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid BACKUP_TIMEOUT_SECONDS %q: %w", value, err)
		}
		if secs < 1 || secs > 9 {
			return fmt.Errorf("BACKUP_TIMEOUT_SECONDS must be 1-9, got %d", secs)
		}
		c.BackupTimeoutSeconds = secs

	// data.gov.sg
	case "DATAGOV_BASE_URL":
		c.DataGovBaseURL = value
	case "DATAGOV_STATION_ID":
		c.DataGovStationID = value
	case "DATAGOV_TIMEOUT_SECONDS":
		secs, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid DATAGOV_TIMEOUT_SECONDS %q: %w", value, err)
		}
		if secs < 1 || secs > 9 {
			return fmt.Errorf("DATAGOV_TIMEOUT_SECONDS must be 1-9, got %d", secs)
		}
		c.DataGovTimeoutSeconds = secs

	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_TOPIC":
		c.MQTTTopic = value
	case "MQTT_CLIENT_ID_COLLECTOR":
		c.MQTTClientIDCollector = value
	case "MQTT_CLIENT_ID_CONSOLE":
		c.MQTTClientIDConsole = value
	case "MQTT_CLIENT_ID_WEB":
		c.MQTTClientIDWeb = value
	case "MQTT_CLIENT_ID_DISPLAY":
		c.MQTTClientIDDisplay = value

	// Web monitor
	case "WEB_SERVER_PORT":
		port, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid WEB_SERVER_PORT %q: %w", value, err)
		}
		c.WebServerPort = port

	// Display monitor
	case "DISPLAY_I2C_BUS":
		c.DisplayI2CBus = value
	case "DISPLAY_UPDATE_INTERVAL":
		interval, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid DISPLAY_UPDATE_INTERVAL %q: %w", value, err)
		}
		c.DisplayUpdateInterval = interval

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return nil
}

// validate checks that every enabled driver and sink has what it needs.
func (c *Config) validate() error {
	if len(c.Sensors) == 0 {
		return fmt.Errorf("SENSORS must enable at least one driver")
	}
	if len(c.Sinks) == 0 {
		return fmt.Errorf("SINKS must enable at least one sink")
	}
	for _, s := range c.Sensors {
		switch s {
		case "serial_env":
			if c.SerialPort == "" {
				return fmt.Errorf("SERIAL_PORT is required for the serial_env driver")
			}
			if c.SerialBaud == 0 {
				return fmt.Errorf("SERIAL_BAUD is required for the serial_env driver")
			}
		case "pressure":
			// bus may be empty: first available
		case "rainfall", "windspeed", "winddirection", "uvindex":
			if c.DataGovBaseURL == "" {
				return fmt.Errorf("DATAGOV_BASE_URL is required for the %s driver", s)
			}
			if c.DataGovStationID == "" && s != "uvindex" {
				return fmt.Errorf("DATAGOV_STATION_ID is required for the %s driver", s)
			}
		default:
			return fmt.Errorf("unknown sensor driver: %q", s)
		}
	}
	for _, s := range c.Sinks {
		switch s {
		case "csv":
			if c.CSVPath == "" {
				return fmt.Errorf("CSV_PATH is required for the csv sink")
			}
		case "postgres":
			if c.DBName == "" || c.DBUser == "" || c.DBHost == "" || c.DBTable == "" {
				return fmt.Errorf("DB_NAME, DB_USER, DB_HOST and DB_TABLE are required for the postgres sink")
			}
		case "backup":
			if c.BackupURL == "" {
				return fmt.Errorf("BACKUP_URL is required for the backup sink")
			}
		case "mqtt":
			if c.MQTTBroker == "" {
				return fmt.Errorf("MQTT_BROKER is required for the mqtt sink")
			}
		default:
			return fmt.Errorf("unknown sink: %q", s)
		}
	}
	if c.CheckpointPath == "" {
		return fmt.Errorf("CHECKPOINT_PATH is required")
	}
	return nil
}

// Cadence returns the target duration between cycle starts.
func (c *Config) Cadence() time.Duration {
	return time.Duration(c.CadenceSeconds) * time.Second
}

func splitList(value string) []string {
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
