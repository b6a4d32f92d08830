package config

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Env:          "production",
		DBSSLMode:    "require",
		JWTSecret:    "secure-secret-at-least-32-chars-long",
		JWTTTLHours:  24,
		DBPassword:   "secure-password",
		Port:         "8080",
		RedisURL:     "redis://localhost:6379",
		BcryptCost:   10,
		DBSchemaMode: SchemaModeHybrid,
	}
}

func TestConfig_ValidateSSLMode(t *testing.T) {
	tests := []struct {
		name        string
		env         string
		sslMode     string
		expectError bool
	}{
		{"Production with empty SSL mode", "production", "", true},
		{"Production with disable SSL mode", "production", "disable", true},
		{"Production with require SSL mode", "production", "require", false},
		{"Prod with disable SSL mode", "prod", "disable", true},
		{"Prod with verify-full SSL mode", "prod", "verify-full", false},
		{"Development with disable SSL mode", "development", "disable", false},
		{"Test with empty SSL mode", "test", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			c.Env = tt.env
			c.DBSSLMode = tt.sslMode

			err := c.Validate()
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_ValidateRequiredFields(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"missing port", func(c *Config) { c.Port = "" }},
		{"missing secret", func(c *Config) { c.JWTSecret = "" }},
		{"default secret in production", func(c *Config) { c.JWTSecret = defaultJWTSecret }},
		{"short secret in production", func(c *Config) { c.JWTSecret = "short" }},
		{"weak db password in production", func(c *Config) { c.DBPassword = "password" }},
		{"zero token ttl", func(c *Config) { c.JWTTTLHours = 0 }},
		{"bcrypt cost too low", func(c *Config) { c.BcryptCost = 1 }},
		{"bcrypt cost too high", func(c *Config) { c.BcryptCost = 40 }},
		{"unknown schema mode", func(c *Config) { c.DBSchemaMode = "magic" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestLoadConfig_EnvOverridesAndNormalization(t *testing.T) {
	t.Cleanup(viper.Reset)
	t.Setenv("APP_ENV", "development")
	t.Setenv("DB_SSLMODE", "  DISABLE  ")
	t.Setenv("DB_SCHEMA_MODE", "SQL")
	t.Setenv("PORT", "9090")

	c, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "disable", c.DBSSLMode)
	assert.Equal(t, SchemaModeSQL, c.DBSchemaMode)
	assert.Equal(t, "9090", c.Port)
	assert.Equal(t, "warbler", c.DBName)
	assert.Equal(t, 24*7, c.JWTTTLHours)
	assert.True(t, c.IsTestLike())
	assert.False(t, c.IsProduction())
}

func TestConfig_DSN(t *testing.T) {
	c := &Config{DBHost: "db", DBUser: "u", DBPassword: "p", DBName: "warbler", DBPort: "5432", DBSSLMode: "disable"}
	assert.Equal(t, "host=db user=u password=p dbname=warbler port=5432 sslmode=disable", c.DSN())
}
