// Package config loads notasolver settings from YAML and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/aretw0/notasolver/internal/logging"
	"gopkg.in/yaml.v3"
)

// DefaultPath is read when no config file is given. It may be absent.
const DefaultPath = "notasolver.yaml"

// Store backends.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Config is the full application configuration.
type Config struct {
	LogLevel string         `yaml:"log_level"`
	Store    StoreConfig    `yaml:"store"`
	OCR      OCRConfig      `yaml:"ocr"`
	Solver   SolverConfig   `yaml:"solver"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	HTTP     HTTPConfig     `yaml:"http"`
}

type StoreConfig struct {
	Backend string      `yaml:"backend"`
	Redis   RedisConfig `yaml:"redis"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// OCRConfig holds the Mathpix endpoint and credentials.
type OCRConfig struct {
	URL     string        `yaml:"url"`
	AppID   string        `yaml:"app_id"`
	AppKey  string        `yaml:"app_key"`
	Timeout time.Duration `yaml:"timeout"`
}

// SolverConfig holds the Wolfram|Alpha endpoint, credentials and
// presentation hints.
type SolverConfig struct {
	URL      string        `yaml:"url"`
	AppID    string        `yaml:"app_id"`
	Timeout  time.Duration `yaml:"timeout"`
	PodState string        `yaml:"podstate"`
	Format   string        `yaml:"format"`
	Mag      string        `yaml:"mag"`
}

type PipelineConfig struct {
	// MaxInFlight caps concurrent network calls. 0 is unlimited.
	MaxInFlight int `yaml:"max_in_flight"`
}

type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		LogLevel: "info",
		Store: StoreConfig{
			Backend: BackendMemory,
			Redis: RedisConfig{
				Addr:   "localhost:6379",
				Prefix: "notasolver:equation:",
			},
		},
		OCR: OCRConfig{
			URL:     "https://api.mathpix.com/v3/strokes",
			Timeout: 30 * time.Second,
		},
		Solver: SolverConfig{
			URL:      "https://api.wolframalpha.com/v2/query",
			Timeout:  60 * time.Second,
			PodState: "Step-by-step solution",
			Format:   "image",
			Mag:      "2.0",
		},
		HTTP: HTTPConfig{
			Addr: ":8080",
		},
	}
}

// Load builds the configuration from defaults, then the YAML file at path,
// then environment variables. An empty path reads DefaultPath if it exists;
// an explicit path must exist.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
		// No file is fine: defaults and environment only.
	default:
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv() error {
	str := map[string]*string{
		"NOTASOLVER_LOG_LEVEL":      &c.LogLevel,
		"NOTASOLVER_STORE_BACKEND":  &c.Store.Backend,
		"NOTASOLVER_REDIS_ADDR":     &c.Store.Redis.Addr,
		"NOTASOLVER_REDIS_PASSWORD": &c.Store.Redis.Password,
		"NOTASOLVER_OCR_URL":        &c.OCR.URL,
		"NOTASOLVER_OCR_APP_ID":     &c.OCR.AppID,
		"NOTASOLVER_OCR_APP_KEY":    &c.OCR.AppKey,
		"NOTASOLVER_SOLVER_URL":     &c.Solver.URL,
		"NOTASOLVER_SOLVER_APP_ID":  &c.Solver.AppID,
		"NOTASOLVER_HTTP_ADDR":      &c.HTTP.Addr,
	}
	for name, dst := range str {
		if v, ok := os.LookupEnv(name); ok {
			*dst = v
		}
	}

	if v, ok := os.LookupEnv("NOTASOLVER_MAX_IN_FLIGHT"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("NOTASOLVER_MAX_IN_FLIGHT: %w", err)
		}
		c.Pipeline.MaxInFlight = n
	}
	return nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	switch c.Store.Backend {
	case BackendMemory:
	case BackendRedis:
		if c.Store.Redis.Addr == "" {
			return errors.New("store.redis.addr is required for the redis backend")
		}
	default:
		return fmt.Errorf("store.backend: unknown backend %q", c.Store.Backend)
	}
	if c.OCR.Timeout <= 0 {
		return errors.New("ocr.timeout must be positive")
	}
	if c.Solver.Timeout <= 0 {
		return errors.New("solver.timeout must be positive")
	}
	if c.Pipeline.MaxInFlight < 0 {
		return errors.New("pipeline.max_in_flight must not be negative")
	}
	return nil
}
