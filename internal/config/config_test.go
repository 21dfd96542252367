package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("applies defaults without a config file", func(t *testing.T) {
		t.Chdir(t.TempDir())

		cfg, err := Load("")
		require.NoError(t, err)

		assert.Equal(t, 102, cfg.Scheduler.MaxCallsPerDay)
		assert.Equal(t, 1, cfg.Scheduler.FetchBatchSize)
		assert.Equal(t, "*/5 * * * *", cfg.Scheduler.Cron)
		assert.True(t, cfg.Scheduler.RunOnStart)
		assert.Equal(t, DriverPostgres, cfg.Storage.Driver)
		assert.Equal(t, 10*time.Second, cfg.FMP.Timeout)
		assert.Equal(t, []string{"NASDAQ", "NYSE", "TSE", "SSE", "HKEX", "LSE"}, cfg.FMP.Exchanges)
		assert.False(t, cfg.Kafka.Enabled())
	})

	t.Run("reads yaml and lets the environment override it", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "config.yaml")
		yaml := []byte(`
storage:
  driver: mongo
scheduler:
  max_calls_per_day: 250
fmp:
  api_key: from-file
kafka:
  brokers: ["kafka-1:9092", "kafka-2:9092"]
`)
		require.NoError(t, os.WriteFile(path, yaml, 0o600))
		t.Setenv("FMP_API_KEY", "from-env")

		cfg, err := Load(path)
		require.NoError(t, err)

		assert.Equal(t, DriverMongo, cfg.Storage.Driver)
		assert.Equal(t, 250, cfg.Scheduler.MaxCallsPerDay)
		assert.Equal(t, "from-env", cfg.FMP.APIKey)
		assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.Brokers)
		assert.True(t, cfg.Kafka.Enabled())
	})

	t.Run("fails on a missing explicit config file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
		require.Error(t, err)
	})
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Storage:   StorageConfig{Driver: DriverPostgres},
			FMP:       FMPConfig{APIKey: "key"},
			Scheduler: SchedulerConfig{Cron: "*/5 * * * *", MaxCallsPerDay: 102, FetchBatchSize: 1},
			Secrets:   SecretsConfig{Provider: SecretsProviderEnv},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid config", func(*Config) {}, ""},
		{"zero call budget", func(c *Config) { c.Scheduler.MaxCallsPerDay = 0 }, "max_calls_per_day"},
		{"zero batch size", func(c *Config) { c.Scheduler.FetchBatchSize = 0 }, "fetch_batch_size"},
		{"unknown driver", func(c *Config) { c.Storage.Driver = "sqlite" }, "storage.driver"},
		{"missing api key", func(c *Config) { c.FMP.APIKey = "" }, "fmp.api_key"},
		{"unknown secrets provider", func(c *Config) { c.Secrets.Provider = "vault" }, "secrets.provider"},
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
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

type fakeParameterStore struct {
	values map[string]string
	err    error
}

func (f *fakeParameterStore) GetParameter(ctx context.Context, in *ssm.GetParameterInput, _ ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	v, ok := f.values[*in.Name]
	if !ok {
		return nil, &types.ParameterNotFound{}
	}
	return &ssm.GetParameterOutput{Parameter: &types.Parameter{Name: in.Name, Value: &v}}, nil
}

func TestResolveSecrets(t *testing.T) {
	t.Run("is a no-op for the env provider", func(t *testing.T) {
		cfg := &Config{Secrets: SecretsConfig{Provider: SecretsProviderEnv}, FMP: FMPConfig{APIKey: "local"}}
		require.NoError(t, cfg.ResolveSecrets(context.Background(), &fakeParameterStore{err: errors.New("unused")}))
		assert.Equal(t, "local", cfg.FMP.APIKey)
	})

	t.Run("overwrites credentials found in parameter store", func(t *testing.T) {
		cfg := &Config{
			Secrets:  SecretsConfig{Provider: SecretsProviderSSM, Prefix: "/stockpikr/"},
			FMP:      FMPConfig{APIKey: "local"},
			Database: DatabaseConfig{Password: "postgres"},
		}
		store := &fakeParameterStore{values: map[string]string{
			"/stockpikr/FMP_API_KEY":   "prod-key",
			"/stockpikr/SMTP_PASSWORD": "smtp-secret",
		}}

		require.NoError(t, cfg.ResolveSecrets(context.Background(), store))
		assert.Equal(t, "prod-key", cfg.FMP.APIKey)
		assert.Equal(t, "smtp-secret", cfg.Email.Password)
		assert.Equal(t, "postgres", cfg.Database.Password)
	})

	t.Run("returns store failures", func(t *testing.T) {
		cfg := &Config{Secrets: SecretsConfig{Provider: SecretsProviderSSM}}
		err := cfg.ResolveSecrets(context.Background(), &fakeParameterStore{err: errors.New("access denied")})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "access denied")
	})
}
