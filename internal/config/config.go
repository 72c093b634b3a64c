package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config defines storytree configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	DB         DBConfig         `yaml:"db"`
	Log        LogConfig        `yaml:"log"`
	Transport  TransportConfig  `yaml:"transport"`
	Auth       AuthConfig       `yaml:"auth"`
	Clubhouse  ClubhouseConfig  `yaml:"clubhouse"`
	Tree       TreeConfig       `yaml:"tree"`
	Credential CredentialConfig `yaml:"credential"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type DBConfig struct {
	Path string `yaml:"path"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	Path  string `yaml:"path"`
}

// TransportConfig selects how the MCP server is exposed: "stdio" or "http".
type TransportConfig struct {
	Mode string `yaml:"mode"`
}

type AuthConfig struct {
	Enabled bool `yaml:"enabled"`
}

// ClubhouseConfig holds remote service settings. Token and ProjectID are
// defaults; values stored in the settings table take precedence.
type ClubhouseConfig struct {
	URL       string `yaml:"url"`
	Token     string `yaml:"token"`
	ProjectID string `yaml:"project_id"`
}

type TreeConfig struct {
	GroupByEpic bool `yaml:"group_by_epic"`
}

// CredentialConfig names the helper command used by the login command.
type CredentialConfig struct {
	Helper string `yaml:"helper"`
}

// Load reads configuration from an optional YAML file and environment variables.
func Load() (Config, error) {
	cfg := Config{
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 8080,
		},
		DB: DBConfig{
			Path: "storytree.db",
		},
		Log: LogConfig{
			Level: "info",
		},
		Transport: TransportConfig{
			Mode: "stdio",
		},
		Clubhouse: ClubhouseConfig{
			URL: "https://api.clubhouse.io/api/v3",
		},
	}

	if path := os.Getenv("STORYTREE_CONFIG_PATH"); path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	if host := os.Getenv("STORYTREE_SERVER_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if portStr := os.Getenv("STORYTREE_SERVER_PORT"); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return fmt.Errorf("invalid STORYTREE_SERVER_PORT: %w", err)
		}
		cfg.Server.Port = port
	}
	if dbPath := os.Getenv("STORYTREE_DB_PATH"); dbPath != "" {
		cfg.DB.Path = dbPath
	}
	if level := os.Getenv("STORYTREE_LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}
	if logPath := os.Getenv("STORYTREE_LOG_PATH"); logPath != "" {
		cfg.Log.Path = logPath
	}
	if mode := os.Getenv("STORYTREE_TRANSPORT"); mode != "" {
		cfg.Transport.Mode = mode
	}
	if enabled := os.Getenv("STORYTREE_AUTH_ENABLED"); enabled != "" {
		v, err := strconv.ParseBool(enabled)
		if err != nil {
			return fmt.Errorf("invalid STORYTREE_AUTH_ENABLED: %w", err)
		}
		cfg.Auth.Enabled = v
	}
	if token := os.Getenv("STORYTREE_CLUBHOUSE_TOKEN"); token != "" {
		cfg.Clubhouse.Token = token
	}
	if url := os.Getenv("STORYTREE_CLUBHOUSE_URL"); url != "" {
		cfg.Clubhouse.URL = url
	}
	if project := os.Getenv("STORYTREE_PROJECT_ID"); project != "" {
		cfg.Clubhouse.ProjectID = project
	}
	if group := os.Getenv("STORYTREE_GROUP_BY_EPIC"); group != "" {
		v, err := strconv.ParseBool(group)
		if err != nil {
			return fmt.Errorf("invalid STORYTREE_GROUP_BY_EPIC: %w", err)
		}
		cfg.Tree.GroupByEpic = v
	}
	if helper := os.Getenv("STORYTREE_CREDENTIAL_HELPER"); helper != "" {
		cfg.Credential.Helper = helper
	}
	return nil
}

// Validate checks values that cannot be defaulted.
func (c Config) Validate() error {
	switch c.Transport.Mode {
	case "stdio", "http":
	default:
		return fmt.Errorf("invalid transport mode %q: want stdio or http", c.Transport.Mode)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if p := strings.TrimSpace(c.Clubhouse.ProjectID); p != "" {
		if _, err := strconv.ParseInt(p, 10, 64); err != nil {
			return fmt.Errorf("invalid clubhouse project id %q: %w", p, err)
		}
	}
	return nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}
