package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExpandEnv(t *testing.T) {
	t.Setenv("TEST_HOST", "db.internal")

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"set variable", "host: ${TEST_HOST}", "host: db.internal"},
		{"set variable ignores default", "host: ${TEST_HOST:fallback}", "host: db.internal"},
		{"unset with default", "host: ${TEST_MISSING:localhost}", "host: localhost"},
		{"unset with empty default", "password: ${TEST_MISSING:}", "password: "},
		{"unset without default kept as-is", "host: ${TEST_MISSING}", "host: ${TEST_MISSING}"},
		{"multiple placeholders", "${TEST_HOST}:${TEST_PORT:5432}", "db.internal:5432"},
		{"no placeholder", "plain text", "plain text"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, expandEnv(tt.in))
		})
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := &Config{}
		cfg.Security.JWT.Secret = "secret"
		cfg.LLM.Provider = "openai"
		cfg.LLM.MaxRetries = 3
		return cfg
	}

	assert.NoError(t, valid().Validate())

	cfg := valid()
	cfg.Security.JWT.Secret = ""
	assert.Error(t, cfg.Validate())

	cfg = valid()
	cfg.LLM.Provider = "bedrock"
	assert.Error(t, cfg.Validate())

	cfg = valid()
	cfg.LLM.Provider = "azure"
	assert.Error(t, cfg.Validate(), "azure requires api_version")
	cfg.LLM.APIVersion = "2024-02-01"
	assert.NoError(t, cfg.Validate())

	cfg = valid()
	cfg.LLM.MaxRetries = 0
	assert.Error(t, cfg.Validate())
}
