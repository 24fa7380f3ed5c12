package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	apperrors "github.com/ZanzyTHEbar/orbis-trust/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestLoad_Defaults(t *testing.T) {
	chdir(t, t.TempDir())
	for _, key := range []string{"PORT", "MODEL_DIR", "MODEL_MANIFEST", "CLASSICAL_TIMEOUT", "TRANSFORMER_TIMEOUT",
		"BATCH_CONCURRENCY", "CACHE_TTL", "LOG_LEVEL", "ALLOWED_ORIGINS", "DEVICE", "REQUEST_TIMEOUT", "REDIS_DB", "MAX_BODY_BYTES", "ENABLE_HSTS"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "5000", cfg.Port)
	assert.Equal(t, "./models", cfg.ModelDir)
	assert.Equal(t, filepath.Join("./models", "models.toml"), cfg.ManifestPath)
	assert.Equal(t, "cpu", cfg.Device)
	assert.Equal(t, 5*time.Second, cfg.ClassicalTimeout)
	assert.Equal(t, 30*time.Second, cfg.TransformerTimeout)
	assert.Equal(t, 60*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 4, cfg.BatchConcurrency)
	assert.Zero(t, cfg.CacheTTL)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
	assert.Equal(t, int64(2<<20), cfg.MaxBodyBytes)
	assert.False(t, cfg.EnableHSTS)
}

func TestLoad_Overrides(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("PORT", "8081")
	t.Setenv("MODEL_DIR", "/srv/models")
	t.Setenv("MODEL_MANIFEST", "/etc/orbis/models.toml")
	t.Setenv("CLASSICAL_TIMEOUT", "250ms")
	t.Setenv("TRANSFORMER_TIMEOUT", "10")
	t.Setenv("BATCH_CONCURRENCY", "8")
	t.Setenv("CACHE_TTL", "5m")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("ALLOWED_ORIGINS", "http://a.test, http://b.test")
	t.Setenv("MAX_BODY_BYTES", "4096")
	t.Setenv("ENABLE_HSTS", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8081", cfg.Port)
	assert.Equal(t, "/etc/orbis/models.toml", cfg.ManifestPath)
	assert.Equal(t, 250*time.Millisecond, cfg.ClassicalTimeout)
	assert.Equal(t, 10*time.Second, cfg.TransformerTimeout)
	assert.Equal(t, 8, cfg.BatchConcurrency)
	assert.Equal(t, 5*time.Minute, cfg.CacheTTL)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.AllowedOrigins)
	assert.Equal(t, int64(4096), cfg.MaxBodyBytes)
	assert.True(t, cfg.EnableHSTS)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"CLASSICAL_TIMEOUT", "soon"},
		{"BATCH_CONCURRENCY", "0"},
		{"BATCH_CONCURRENCY", "many"},
		{"LOG_LEVEL", "chatty"},
		{"CACHE_TTL", "-1s"},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			chdir(t, t.TempDir())
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			require.Error(t, err)

			appErr := apperrors.ToAppError(err)
			assert.Equal(t, apperrors.CategoryConfiguration, appErr.Category)
		})
	}
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	t.Setenv("PORT", "")
	os.Unsetenv("PORT")
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("PORT=7070\n"), 0644))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "7070", cfg.Port)
}

const manifestTOML = `
[vectorizer]
path = "vectorizer.json"

[[classifiers]]
name = "Logistic"
kind = "logistic"
path = "logistic.json"

[[classifiers]]
name = "XGBoost"
kind = "gradient_boosting"
path = "/abs/xgboost.json"

[transformer]
name = "BERT"
endpoint = "http://localhost:8500"
max_length = 256
requests_per_second = 20
`

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "models.toml")
	require.NoError(t, os.WriteFile(path, []byte(manifestTOML), 0644))

	m, err := LoadManifest(path)
	require.NoError(t, err)

	assert.Equal(t, dir, m.Dir)
	require.Len(t, m.Classifiers, 2)
	assert.Equal(t, KindGradientBoosting, m.Classifiers[1].Kind)
	require.NotNil(t, m.Transformer)
	assert.Equal(t, 256, m.Transformer.MaxLength)
	assert.Equal(t, 20.0, m.Transformer.RequestsPerSecond)

	assert.Equal(t, filepath.Join(dir, "vectorizer.json"), m.Resolve(m.Vectorizer.Path))
	assert.Equal(t, "/abs/xgboost.json", m.Resolve(m.Classifiers[1].Path))
}

func TestLoadManifest_Missing(t *testing.T) {
	_, err := LoadManifest(filepath.Join(t.TempDir(), "absent.toml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read model manifest")
}

func TestManifest_Validate(t *testing.T) {
	valid := func() Manifest {
		return Manifest{
			Vectorizer:  VectorizerEntry{Path: "v.json"},
			Classifiers: []ClassifierEntry{{Name: "Logistic", Kind: KindLogistic, Path: "l.json"}},
		}
	}

	tests := []struct {
		name   string
		mutate func(*Manifest)
		errMsg string
	}{
		{"valid without transformer", func(*Manifest) {}, ""},
		{"missing vectorizer", func(m *Manifest) { m.Vectorizer.Path = "" }, "vectorizer"},
		{"no classifiers", func(m *Manifest) { m.Classifiers = nil }, "no classifiers"},
		{"unknown kind", func(m *Manifest) { m.Classifiers[0].Kind = "svm" }, "unknown kind"},
		{"duplicate names", func(m *Manifest) {
			m.Classifiers = append(m.Classifiers, m.Classifiers[0])
		}, "duplicate model name"},
		{"transformer shares a name", func(m *Manifest) {
			m.Transformer = &TransformerEntry{Name: "Logistic"}
		}, "duplicate model name"},
		{"negative max length", func(m *Manifest) {
			m.Transformer = &TransformerEntry{Name: "BERT", MaxLength: -1}
		}, "must not be negative"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := valid()
			tt.mutate(&m)
			err := m.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}
