package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"github.com/ZanzyTHEbar/orbis-trust/internal/errors"
)

// Classifier kinds understood by the model store
const (
	KindLogistic         = "logistic"
	KindRandomForest     = "random_forest"
	KindGradientBoosting = "gradient_boosting"
)

// Config is the process configuration. It is read once at startup.
type Config struct {
	Port           string
	GinMode        string
	LogLevel       slog.Level
	ModelDir       string
	ManifestPath   string
	TransformerURL string
	Device         string
	AllowedOrigins []string
	EnableHSTS     bool
	MaxBodyBytes   int64

	ClassicalTimeout   time.Duration
	TransformerTimeout time.Duration
	RequestTimeout     time.Duration
	BatchConcurrency   int

	CacheTTL      time.Duration
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

type VectorizerEntry struct {
	Path string `toml:"path"`
}

type ClassifierEntry struct {
	Name string `toml:"name"`
	Kind string `toml:"kind"`
	Path string `toml:"path"`
}

type TransformerEntry struct {
	Name              string  `toml:"name"`
	Endpoint          string  `toml:"endpoint"`
	MaxLength         int     `toml:"max_length"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
}

// Manifest lists the model artifacts that make up the ensemble
type Manifest struct {
	Vectorizer  VectorizerEntry   `toml:"vectorizer"`
	Classifiers []ClassifierEntry `toml:"classifiers"`
	Transformer *TransformerEntry `toml:"transformer"`

	// Dir resolves relative artifact paths
	Dir string `toml:"-"`
}

// Load reads configuration from the environment, after an optional .env file
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("Failed to read .env file", "error", err)
	}

	cfg := &Config{
		Port:           getEnvOrDefault("PORT", "5000"),
		GinMode:        getEnvOrDefault("GIN_MODE", "release"),
		ModelDir:       getEnvOrDefault("MODEL_DIR", "./models"),
		TransformerURL: os.Getenv("TRANSFORMER_URL"),
		Device:         getEnvOrDefault("DEVICE", "cpu"),
		RedisAddr:      os.Getenv("REDIS_ADDR"),
		RedisPassword:  os.Getenv("REDIS_PASSWORD"),
		EnableHSTS:     os.Getenv("ENABLE_HSTS") == "true",
	}

	manifest := getEnvOrDefault("MODEL_MANIFEST", "models.toml")
	if filepath.IsAbs(manifest) {
		cfg.ManifestPath = manifest
	} else {
		cfg.ManifestPath = filepath.Join(cfg.ModelDir, manifest)
	}

	for _, origin := range strings.Split(getEnvOrDefault("ALLOWED_ORIGINS", "*"), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, origin)
		}
	}

	var err error
	if cfg.LogLevel, err = parseLogLevel(getEnvOrDefault("LOG_LEVEL", "info")); err != nil {
		return nil, err
	}
	if cfg.ClassicalTimeout, err = getDuration("CLASSICAL_TIMEOUT", 5*time.Second); err != nil {
		return nil, err
	}
	if cfg.TransformerTimeout, err = getDuration("TRANSFORMER_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.RequestTimeout, err = getDuration("REQUEST_TIMEOUT", 60*time.Second); err != nil {
		return nil, err
	}
	if cfg.CacheTTL, err = getDuration("CACHE_TTL", 0); err != nil {
		return nil, err
	}
	if cfg.BatchConcurrency, err = getInt("BATCH_CONCURRENCY", 4); err != nil {
		return nil, err
	}
	if cfg.BatchConcurrency < 1 {
		return nil, errors.NewConfigurationError(fmt.Sprintf("BATCH_CONCURRENCY must be at least 1, got %d", cfg.BatchConcurrency), nil)
	}
	if cfg.RedisDB, err = getInt("REDIS_DB", 0); err != nil {
		return nil, err
	}
	maxBody, err := getInt("MAX_BODY_BYTES", 2<<20)
	if err != nil {
		return nil, err
	}
	cfg.MaxBodyBytes = int64(maxBody)

	return cfg, nil
}

// LoadManifest parses a TOML model manifest and validates its entries
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewConfigurationError(fmt.Sprintf("failed to read model manifest '%s'", path), err)
	}

	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, errors.NewConfigurationError("failed to parse model manifest", err)
	}
	m.Dir = filepath.Dir(path)

	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks that every classical entry is complete and names are unique
func (m *Manifest) Validate() error {
	if m.Vectorizer.Path == "" {
		return errors.NewConfigurationError("manifest is missing [vectorizer] path", nil)
	}
	if len(m.Classifiers) == 0 {
		return errors.NewConfigurationError("manifest lists no classifiers", nil)
	}

	seen := make(map[string]bool)
	for _, c := range m.Classifiers {
		if c.Name == "" || c.Path == "" {
			return errors.NewConfigurationError("classifier entries need a name and a path", nil)
		}
		switch c.Kind {
		case KindLogistic, KindRandomForest, KindGradientBoosting:
		default:
			return errors.NewConfigurationError(fmt.Sprintf("classifier %s has unknown kind %q", c.Name, c.Kind), nil)
		}
		if seen[c.Name] {
			return errors.NewConfigurationError(fmt.Sprintf("duplicate model name %s", c.Name), nil)
		}
		seen[c.Name] = true
	}

	if t := m.Transformer; t != nil {
		if t.Name == "" {
			return errors.NewConfigurationError("[transformer] needs a name", nil)
		}
		if seen[t.Name] {
			return errors.NewConfigurationError(fmt.Sprintf("duplicate model name %s", t.Name), nil)
		}
		if t.MaxLength < 0 || t.RequestsPerSecond < 0 {
			return errors.NewConfigurationError("[transformer] limits must not be negative", nil)
		}
	}

	return nil
}

// Resolve returns an artifact path relative to the manifest's directory
func (m *Manifest) Resolve(path string) string {
	if filepath.IsAbs(path) || m.Dir == "" {
		return path
	}
	return filepath.Join(m.Dir, path)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		// bare integers are seconds
		secs, convErr := strconv.Atoi(value)
		if convErr != nil {
			return 0, errors.NewConfigurationError(fmt.Sprintf("invalid duration for %s: %q", key, value), err)
		}
		d = time.Duration(secs) * time.Second
	}
	if d < 0 {
		return 0, errors.NewConfigurationError(fmt.Sprintf("%s must not be negative", key), nil)
	}
	return d, nil
}

func getInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, errors.NewConfigurationError(fmt.Sprintf("invalid integer for %s: %q", key, value), err)
	}
	return n, nil
}

func parseLogLevel(value string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(value)); err != nil {
		return 0, errors.NewConfigurationError(fmt.Sprintf("invalid LOG_LEVEL %q", value), err)
	}
	return level, nil
}
