package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("ACCESS_TOKEN_SECRET", "access")
	t.Setenv("REFRESH_TOKEN_SECRET", "refresh")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)
	for _, k := range []string{"PORT", "ENVIRONMENT", "ACCESS_EXP", "REFRESH_EXP", "RESET_EXP", "SMTP_PORT", "COOKIE_SECURE", "FRONTEND_URL_DEV", "REDIS_URL"} {
		t.Setenv(k, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, EnvDevelopment, cfg.Environment)
	assert.Equal(t, 15*time.Minute, cfg.AccessTTL)
	assert.Equal(t, 7*24*time.Hour, cfg.RefreshTTL)
	assert.Equal(t, 15*time.Minute, cfg.ResetTTL)
	assert.Equal(t, 587, cfg.SMTPPort)
	assert.False(t, cfg.CookieSecure)
	assert.False(t, cfg.IsProduction())
	assert.Equal(t, "http://localhost:3000", cfg.FrontendURL())
}

func TestLoad_Production(t *testing.T) {
	setRequired(t)
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("COOKIE_SECURE", "")
	t.Setenv("FRONTEND_URL_PROD", "https://app.example.com")
	t.Setenv("ACCESS_EXP", "1h")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.True(t, cfg.CookieSecure)
	assert.Equal(t, time.Hour, cfg.AccessTTL)
	assert.Equal(t, "https://app.example.com", cfg.FrontendURL())
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"missing access secret", map[string]string{"ACCESS_TOKEN_SECRET": ""}},
		{"missing refresh secret", map[string]string{"REFRESH_TOKEN_SECRET": ""}},
		{"same secrets", map[string]string{"REFRESH_TOKEN_SECRET": "access"}},
		{"bad access exp", map[string]string{"ACCESS_EXP": "15s"}},
		{"bad refresh exp", map[string]string{"REFRESH_EXP": "week"}},
		{"bad environment", map[string]string{"ENVIRONMENT": "staging"}},
		{"bad smtp port", map[string]string{"SMTP_PORT": "abc"}},
		{"bad tls flag", map[string]string{"SMTP_USE_TLS": "maybe"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequired(t)
			t.Setenv("ENVIRONMENT", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load()
			assert.Error(t, err)
		})
	}
}
