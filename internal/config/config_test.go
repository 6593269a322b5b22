package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("MODEL_SERVER_URL", "")
	t.Setenv("DATA_SOURCE", "")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, DataSourceMongoDB, cfg.DataSource)
	assert.Equal(t, "dairy", cfg.MongoDB.DBName)
	assert.False(t, cfg.Model.Enabled())
	assert.Equal(t, 5*time.Second, cfg.Model.Timeout)
	assert.Equal(t, "0 5 * * *", cfg.Scheduler.CronSchedule)
}

func TestLoad_FromEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	content := "APP_PORT=9090\nMODEL_SERVER_URL=http://models:8000\nMODEL_TIMEOUT=2s\nMODEL_NAME=xgboost\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Cleanup(func() {
		for _, key := range []string{"APP_PORT", "MODEL_SERVER_URL", "MODEL_TIMEOUT", "MODEL_NAME"} {
			_ = os.Unsetenv(key)
		}
	})

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.True(t, cfg.Model.Enabled())
	assert.Equal(t, "xgboost", cfg.Model.Name)
	assert.Equal(t, 2*time.Second, cfg.Model.Timeout)
}

func TestLoad_InvalidTimeout(t *testing.T) {
	t.Setenv("MODEL_TIMEOUT", "soon")

	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.ErrorContains(t, err, "MODEL_TIMEOUT")
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server:     ServerConfig{Port: "8080"},
			MongoDB:    MongoDBConfig{URI: "mongodb://localhost:27017", DBName: "dairy"},
			DataSource: DataSourceMongoDB,
			Scheduler:  SchedulerConfig{Enabled: true, CronSchedule: "0 5 * * *", Timezone: "UTC"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"missing_port", func(c *Config) { c.Server.Port = "" }, "APP_PORT"},
		{"missing_mongo_uri", func(c *Config) { c.MongoDB.URI = "" }, "MONGODB_URI"},
		{"unknown_source", func(c *Config) { c.DataSource = "csv" }, "DATA_SOURCE"},
		{"sheets_without_credentials", func(c *Config) { c.DataSource = DataSourceSheets }, "GOOGLE_SHEETS_CREDENTIALS_PATH"},
		{"sheets_complete", func(c *Config) {
			c.DataSource = DataSourceSheets
			c.Sheets = SheetsConfig{CredentialsPath: "/creds.json", SpreadsheetID: "sheet"}
		}, ""},
		{"bad_timezone", func(c *Config) { c.Scheduler.Timezone = "Mars/Olympus" }, "TIMEZONE"},
		{"scheduler_disabled_ignores_timezone", func(c *Config) {
			c.Scheduler = SchedulerConfig{Enabled: false, Timezone: "Mars/Olympus"}
		}, ""},
		{"model_zero_timeout", func(c *Config) { c.Model = ModelConfig{ServerURL: "http://m"} }, "MODEL_TIMEOUT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
