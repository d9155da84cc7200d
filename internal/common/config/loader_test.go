package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	applyDefaults(cfg)

	assert.Equal(t, "rental-genie", cfg.App.Name)
	assert.Equal(t, 8080, cfg.App.Port)
	assert.Equal(t, "none", cfg.Database.Backend)
	assert.Equal(t, "genai", cfg.GenAI.Provider)
	assert.Equal(t, 0.70, cfg.Conversation.ConfidenceThreshold)
	assert.Equal(t, 2, cfg.Conversation.RecentTurnWindow)
	assert.Equal(t, 3, cfg.Conversation.MissingFieldPromptThreshold)
	assert.Equal(t, ":9102", cfg.Metrics.Address)
}

func TestApplyDefaults_KeepsExplicitValues(t *testing.T) {
	cfg := &Config{}
	cfg.Conversation.ConfidenceThreshold = 0.85
	cfg.GenAI.Provider = "openai"
	applyDefaults(cfg)

	assert.Equal(t, 0.85, cfg.Conversation.ConfidenceThreshold)
	assert.Equal(t, "openai", cfg.GenAI.Provider)
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults are valid", func(*Config) {}, false},
		{"postgres requires host", func(c *Config) { c.Database.Backend = "postgres" }, true},
		{"postgres with host", func(c *Config) {
			c.Database.Backend = "postgres"
			c.Database.Postgres.Host = "localhost"
		}, false},
		{"redis requires address", func(c *Config) { c.Database.Backend = "redis" }, true},
		{"unknown backend", func(c *Config) { c.Database.Backend = "dynamo" }, true},
		{"openai requires api key", func(c *Config) { c.GenAI.Provider = "openai" }, true},
		{"openai with api key", func(c *Config) {
			c.GenAI.Provider = "openai"
			c.GenAI.APIKey = "sk-test"
		}, false},
		{"genai requires base url", func(c *Config) { c.GenAI.BaseURL = "" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{}
			applyDefaults(cfg)
			cfg.GenAI.BaseURL = "http://localhost:8090"
			tt.mutate(cfg)

			err := validateConfig(cfg)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPostgresDSN(t *testing.T) {
	cfg := PostgresConfig{
		Host:     "db.internal",
		Port:     5432,
		User:     "genie",
		Password: "secret",
		Database: "rental_genie",
		SSLMode:  "require",
	}

	assert.Equal(t,
		"host=db.internal port=5432 user=genie password=secret dbname=rental_genie sslmode=require",
		cfg.GetDSN())
}
