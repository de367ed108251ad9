package lib

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

/* This file implements logic for 'user controlled' configuration of each part of the monitor */

const (
	// FILE NAMES in the 'data directory'
	ConfigFilePath = "config.json" // the file path for the monitor configuration
	EnvFilePath    = ".env"        // optional environment overrides
)

// environment variables that override the config file
const (
	EnvLogLevel       = "SPECTROSCOPE_LOG_LEVEL"
	EnvStreamURL      = "SPECTROSCOPE_STREAM_URL"
	EnvRPCPort        = "SPECTROSCOPE_RPC_PORT"
	EnvMetricsAddress = "SPECTROSCOPE_METRICS_ADDRESS"
)

// Config is the structure of the user configuration options
type Config struct {
	MainConfig                    // main options spanning over all modules
	RPCConfig                     // command driver options
	StreamConfig                  // streaming driver options
	DispatchConfig                // dispatcher options
	MetricsConfig                 // telemetry options
	Modules        []ModuleConfig `json:"modules"` // subscribers and plugins in registration order
}

// DefaultConfig() returns a Config with developer set options
func DefaultConfig() Config {
	return Config{
		MainConfig:     DefaultMainConfig(),
		RPCConfig:      DefaultRPCConfig(),
		StreamConfig:   DefaultStreamConfig(),
		DispatchConfig: DefaultDispatchConfig(),
		MetricsConfig:  DefaultMetricsConfig(),
		Modules:        DefaultModules(),
	}
}

// MAIN CONFIG BELOW

type MainConfig struct {
	LogLevel    string `json:"logLevel"` // any level includes the levels above it: debug < info < warning < error
	DataDirPath string `json:"-"`        // set at runtime from the --data-dir flag
}

// DefaultMainConfig() sets log level to 'info'
func DefaultMainConfig() MainConfig {
	return MainConfig{LogLevel: "info"}
}

// GetLogLevel() parses the log string in the config file into a LogLevel Enum
func (m *MainConfig) GetLogLevel() int32 {
	switch {
	case strings.Contains(strings.ToLower(m.LogLevel), "deb"):
		return DebugLevel
	case strings.Contains(strings.ToLower(m.LogLevel), "inf"):
		return InfoLevel
	case strings.Contains(strings.ToLower(m.LogLevel), "war"):
		return WarnLevel
	case strings.Contains(strings.ToLower(m.LogLevel), "err"):
		return ErrorLevel
	default:
		return DebugLevel
	}
}

// DefaultDataDirPath() is $USERHOME/.spectroscope
func DefaultDataDirPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		panic(err)
	}
	return filepath.Join(home, ".spectroscope")
}

// RPC CONFIG BELOW

// RPCConfig configures the command driver http server
type RPCConfig struct {
	RPCPort  string `json:"rpcPort"`  // the port where the rpc server is hosted
	RPCUrl   string `json:"rpcURL"`   // the url the cli uses to reach the rpc server
	TimeoutS int    `json:"timeoutS"` // the per request deadline in seconds; expiry cancels the remaining module calls
	// MaxConnections caps the concurrently served connections; 0 is unlimited
	MaxConnections int `json:"maxConnections"`
	// SyncWatchList makes successful add/del commands update the streaming watch-list
	SyncWatchList bool `json:"syncWatchList"`
}

// DefaultRPCConfig() sets rpc url to localhost:50010
func DefaultRPCConfig() RPCConfig {
	return RPCConfig{
		RPCPort:        "50010",
		RPCUrl:         "http://localhost:50010",
		TimeoutS:       30,
		MaxConnections: 64,
		SyncWatchList:  true,
	}
}

// STREAM CONFIG BELOW

// StreamConfig configures the streaming driver
type StreamConfig struct {
	StreamURL   string `json:"streamURL"`   // websocket endpoint of the beacon validator stream; empty disables streaming
	MaxBackoffS int    `json:"maxBackoffS"` // upper bound of the reconnect backoff interval
	MaxElapsedS int    `json:"maxElapsedS"` // give up reconnecting after this long; 0 retries forever
}

// DefaultStreamConfig() points at a local beacon node
func DefaultStreamConfig() StreamConfig {
	return StreamConfig{
		StreamURL:   "ws://localhost:4000/validators/stream",
		MaxBackoffS: 30,
		MaxElapsedS: 0,
	}
}

// DISPATCH CONFIG BELOW

// DispatchConfig configures the dispatcher
type DispatchConfig struct {
	Parallel        bool `json:"parallel"`        // run the modules of one stage concurrently (output order is unaffected)
	ModuleTimeoutMS int  `json:"moduleTimeoutMS"` // deadline of each module call; expiry fails only that module
}

// DefaultDispatchConfig() runs the modules sequentially with a 3 second deadline per module
func DefaultDispatchConfig() DispatchConfig {
	return DispatchConfig{Parallel: false, ModuleTimeoutMS: 3000}
}

// METRICS CONFIG BELOW

// MetricsConfig represents the configuration for the metrics server
type MetricsConfig struct {
	MetricsEnabled    bool   `json:"metricsEnabled"`    // if the metrics are enabled
	PrometheusAddress string `json:"prometheusAddress"` // the address of the server
}

// DefaultMetricsConfig() returns the default metrics configuration
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		MetricsEnabled:    true,
		PrometheusAddress: "0.0.0.0:9095",
	}
}

// MODULE CONFIG BELOW

// ModuleConfig selects a module type and its options
type ModuleConfig struct {
	Type    string         `json:"type"`              // the registered module type (ex. 'badgerdb')
	Name    string         `json:"name,omitempty"`    // instance name, defaults to the type
	Options map[string]any `json:"options,omitempty"` // validated against the module's option schema
}

// InstanceName() returns the configured name or the type
func (m ModuleConfig) InstanceName() string {
	if m.Name != "" {
		return m.Name
	}
	return m.Type
}

// DefaultModules() wires the database path and the status alert path
func DefaultModules() []ModuleConfig {
	return []ModuleConfig{
		{Type: "db_update"},
		{Type: "status_alert"},
		{Type: "badgerdb"},
		{Type: "alert_log"},
	}
}

// WriteToFile() saves the Config object to a JSON file
func (c Config) WriteToFile(filepath string) error {
	jsonBytes, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath, jsonBytes, os.ModePerm)
}

// NewConfigFromFile() populates a Config object from a JSON file, defaults fill any blanks
func NewConfigFromFile(filepath string) (Config, error) {
	fileBytes, err := os.ReadFile(filepath)
	if err != nil {
		return Config{}, err
	}
	// an explicit module list replaces the default list entirely
	c := DefaultConfig()
	if err = json.Unmarshal(fileBytes, &c); err != nil {
		return Config{}, err
	}
	return c, nil
}

// ApplyEnv() loads the optional .env file in the data directory and applies overrides from the environment
func (c *Config) ApplyEnv(dataDirPath string) ErrorI {
	envPath := filepath.Join(dataDirPath, EnvFilePath)
	if _, err := os.Stat(envPath); err == nil {
		// godotenv never overrides variables already present in the environment
		if err = godotenv.Load(envPath); err != nil {
			return ErrLoadEnv(err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return ErrLoadEnv(err)
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv(EnvStreamURL); v != "" {
		c.StreamURL = v
	}
	if v := os.Getenv(EnvRPCPort); v != "" {
		c.RPCPort = v
	}
	if v := os.Getenv(EnvMetricsAddress); v != "" {
		c.PrometheusAddress = v
	}
	return nil
}
