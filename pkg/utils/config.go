package utils

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Platform PlatformConfig `yaml:"platform"`
	Database DatabaseConfig `yaml:"database"`
	Match    MatchConfig    `yaml:"match"`
	Search   SearchConfig   `yaml:"search"`
	API      APIConfig      `yaml:"api"`
	Log      LogConfig      `yaml:"log"`
}

type PlatformConfig struct {
	BaseURL     string        `yaml:"base_url"`
	UserAgent   string        `yaml:"user_agent"`
	Timeout     time.Duration `yaml:"timeout"`
	Workers     int           `yaml:"workers"`
	CourseDelay time.Duration `yaml:"course_delay"`
}

type DatabaseConfig struct {
	Path   string `yaml:"path"`
	Driver string `yaml:"driver"`
}

type MatchConfig struct {
	TrackThreshold int `yaml:"track_threshold"`
	PoolThreshold  int `yaml:"pool_threshold"`
}

type SearchConfig struct {
	Sensitivity    int     `yaml:"sensitivity"`
	MinPrimaryRank float64 `yaml:"min_primary_rank"`
}

type APIConfig struct {
	Addr                 string        `yaml:"addr"`
	SyncAddr             string        `yaml:"sync_addr"`
	GrpcAddr             string        `yaml:"grpc_addr"`
	JWTSecret            string        `yaml:"jwt_secret"`
	JWTIssuer            string        `yaml:"jwt_issuer"`
	JWTTTL               time.Duration `yaml:"jwt_ttl"`
	OperatorPasswordHash string        `yaml:"operator_password_hash"`
	SessionSecret        string        `yaml:"session_secret"`
	AllowedOrigins       []string      `yaml:"allowed_origins"`
}

type LogConfig struct {
	Mode string `yaml:"mode"`
}

// Credentials for the remote platform. Never persisted.
type Credentials struct {
	Email    string
	Password string
}

func DefaultConfig() Config {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		home = "."
	}
	return Config{
		Platform: PlatformConfig{
			BaseURL:     "https://jornadadedados.alpaclass.com",
			UserAgent:   "Mozilla/5.0",
			Timeout:     60 * time.Second,
			Workers:     15,
			CourseDelay: time.Second,
		},
		Database: DatabaseConfig{
			Path:   filepath.Join(home, ".jornada", "data.db"),
			Driver: "sqlite",
		},
		Match: MatchConfig{TrackThreshold: 80, PoolThreshold: 65},
		Search: SearchConfig{
			Sensitivity: 80,
		},
		API: APIConfig{
			Addr:           ":8080",
			SyncAddr:       ":7070",
			GrpcAddr:       ":9090",
			JWTSecret:      "dev-secret-change-me",
			JWTIssuer:      "plano-jornada",
			JWTTTL:         24 * time.Hour,
			SessionSecret:  "dev-session-secret-change-me",
			AllowedOrigins: []string{"http://localhost:3000", "http://localhost:8501"},
		},
		Log: LogConfig{Mode: "dev"},
	}
}

// DefaultConfigPath is $JORNADA_CONFIG, or jornada.yaml in the working
// directory.
func DefaultConfigPath() string {
	if v := strings.TrimSpace(os.Getenv("JORNADA_CONFIG")); v != "" {
		return v
	}
	return "jornada.yaml"
}

// LoadConfig reads the YAML file at path (a missing file is not an error),
// then applies JORNADA_* environment overrides on top.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		b, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(b, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}
	cfg.applyEnvOverrides()
	cfg.clamp()
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("JORNADA_BASE_URL"); v != "" {
		c.Platform.BaseURL = v
	}
	if v := envInt("JORNADA_WORKERS"); v > 0 {
		c.Platform.Workers = v
	}
	if v := os.Getenv("JORNADA_DB_PATH"); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv("JORNADA_DB_DRIVER"); v != "" {
		c.Database.Driver = v
	}
	if v := os.Getenv("JORNADA_JWT_SECRET"); v != "" {
		c.API.JWTSecret = v
	}
	if v := envInt("JORNADA_JWT_TTL_HOURS"); v > 0 {
		c.API.JWTTTL = time.Duration(v) * time.Hour
	}
	if v := os.Getenv("JORNADA_OPERATOR_PASSWORD_HASH"); v != "" {
		c.API.OperatorPasswordHash = v
	}
	if v := os.Getenv("JORNADA_SESSION_SECRET"); v != "" {
		c.API.SessionSecret = v
	}
	if v := os.Getenv("JORNADA_API_ADDR"); v != "" {
		c.API.Addr = v
	}
	if v := os.Getenv("JORNADA_GRPC_ADDR"); v != "" {
		c.API.GrpcAddr = v
	}
	if v := os.Getenv("JORNADA_LOG_MODE"); v != "" {
		c.Log.Mode = v
	}
}

func (c *Config) clamp() {
	if c.Platform.Workers <= 0 {
		c.Platform.Workers = 15
	}
	if c.Platform.Timeout <= 0 {
		c.Platform.Timeout = 60 * time.Second
	}
	c.Search.Sensitivity = ClampSensitivity(c.Search.Sensitivity)
}

// ClampSensitivity keeps a search threshold inside 30..100; zero means default.
func ClampSensitivity(v int) int {
	switch {
	case v == 0:
		return 80
	case v < 30:
		return 30
	case v > 100:
		return 100
	default:
		return v
	}
}

// LoadCredentials reads platform credentials from the environment.
func LoadCredentials() Credentials {
	return Credentials{
		Email:    strings.TrimSpace(os.Getenv("JORNADA_EMAIL")),
		Password: os.Getenv("JORNADA_PASSWORD"),
	}
}

func envInt(name string) int {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}
