package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// Config represents the audiohald configuration
type Config struct {
	UCM struct {
		// Backend selects the use-case-manager implementation ("mock")
		Backend string `yaml:"backend"`
		Card    string `yaml:"card"`
		// FailCode makes the mock backend reject every device update with this status
		FailCode uint32 `yaml:"fail_code"`
		Journal  bool   `yaml:"journal"`
	} `yaml:"ucm"`

	Routing struct {
		DefaultRole string `yaml:"default_role"`
	} `yaml:"routing"`

	Web struct {
		Port        int    `yaml:"port"`
		BindAddress string `yaml:"bind_address"`
	} `yaml:"web"`

	API struct {
		UnixSocket string `yaml:"unix_socket"`
	} `yaml:"api"`

	Storage struct {
		DatabasePath string `yaml:"database_path"`
		MaxRecords   int    `yaml:"max_records"`
	} `yaml:"storage"`

	Logging struct {
		Level      string `yaml:"level"`
		File       string `yaml:"file"`
		MaxSize    int    `yaml:"max_size"`
		MaxBackups int    `yaml:"max_backups"`
		MaxAge     int    `yaml:"max_age"`
		Compress   bool   `yaml:"compress"`
		Console    bool   `yaml:"console"`
		Structured bool   `yaml:"structured"`
	} `yaml:"logging"`
}

// LoadConfig loads configuration from a YAML file
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.applyDefaults()
	return &config, nil
}

// Default returns a configuration with every default applied
func Default() *Config {
	var config Config
	config.applyDefaults()
	return &config
}

func (c *Config) applyDefaults() {
	if c.UCM.Backend == "" {
		c.UCM.Backend = "mock"
	}
	if c.UCM.Card == "" {
		c.UCM.Card = "default"
	}
	if c.Routing.DefaultRole == "" {
		c.Routing.DefaultRole = "media"
	}
	if c.Web.Port == 0 {
		c.Web.Port = 8090
	}
	if c.Web.BindAddress == "" {
		c.Web.BindAddress = "127.0.0.1"
	}
	if c.API.UnixSocket == "" {
		c.API.UnixSocket = "/tmp/audiohald.sock"
	}
	if c.Storage.MaxRecords == 0 {
		c.Storage.MaxRecords = 5000
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.MaxSize == 0 {
		c.Logging.MaxSize = 100
	}
	if c.Logging.MaxBackups == 0 {
		c.Logging.MaxBackups = 5
	}
	if c.Logging.MaxAge == 0 {
		c.Logging.MaxAge = 30
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	switch c.UCM.Backend {
	case "mock":
	default:
		return fmt.Errorf("unsupported ucm backend: %q", c.UCM.Backend)
	}
	if c.UCM.Journal && c.Storage.DatabasePath == "" {
		return fmt.Errorf("storage database path is required when the route journal is enabled")
	}
	if c.Web.Port < 0 || c.Web.Port > 65535 {
		return fmt.Errorf("invalid web port: %d", c.Web.Port)
	}
	if c.Storage.MaxRecords < 0 {
		return fmt.Errorf("invalid max records: %d", c.Storage.MaxRecords)
	}
	return nil
}

// Save writes the configuration to path as YAML
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
