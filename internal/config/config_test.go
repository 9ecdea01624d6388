package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("ENVIRONMENT", "")
	t.Setenv("AUTO_TASK_ASSIGNMENT", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "50051", cfg.Server.GRPCPort)
	assert.True(t, cfg.IsDevelopment())
	assert.True(t, cfg.Server.EnableReflection)
	assert.False(t, cfg.Dispatch.AutoTaskAssignment)
	assert.Equal(t, 30*time.Second, cfg.Dispatch.ParameterCacheTTL)
	assert.Equal(t, 20, cfg.Dispatch.DefaultPageSize)
	assert.Equal(t, "host=localhost port=5432 user=postgres password=postgres dbname=storeflow sslmode=disable", cfg.Database.DSN())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("AUTO_TASK_ASSIGNMENT", "true")
	t.Setenv("PARAMETER_CACHE_TTL", "2m")
	t.Setenv("DB_PORT", "not-a-number")
	t.Setenv("DB_DRIVER", "sqlite3")
	t.Setenv("DB_NAME", "store")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.Dispatch.AutoTaskAssignment)
	assert.Equal(t, 2*time.Minute, cfg.Dispatch.ParameterCacheTTL)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "file:store?cache=shared&_fk=1", cfg.Database.DSN())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "unknown driver", mutate: func(c *Config) { c.Database.Driver = "oracle" }, wantErr: true},
		{name: "missing secret in production", mutate: func(c *Config) {
			c.Server.Environment = "production"
			c.JWT.AccessSecret = ""
		}, wantErr: true},
		{name: "bad timezone", mutate: func(c *Config) { c.Dispatch.Timezone = "Mars/Olympus" }, wantErr: true},
		{name: "page size above max", mutate: func(c *Config) { c.Dispatch.DefaultPageSize = 500 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("ENVIRONMENT", "development")
			cfg, err := Load()
			require.NoError(t, err)
			tt.mutate(cfg)

			err = cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.NotEmpty(t, cfg.JWT.AccessSecret)
		})
	}
}
