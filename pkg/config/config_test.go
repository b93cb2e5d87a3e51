package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", "")
	t.Setenv("ADMIN_COOKIE_NAME", "")
	t.Setenv("ADMIN_SESSION_TTL", "")
	t.Setenv("SIGNIN_RATE_LIMIT", "")
	t.Setenv("SIGNIN_RATE_WINDOW", "")
	t.Setenv("UPLOAD_MAX_BODY", "")

	cfg := Load()

	assert.Equal(t, EnvProduction, cfg.Env)
	assert.False(t, cfg.IsDevelopment())
	assert.True(t, cfg.SecureCookies())
	assert.Equal(t, "temurun_admin", cfg.AdminCookieName)
	assert.Equal(t, 8*time.Hour, cfg.AdminSessionTTL)
	assert.Equal(t, 5, cfg.SigninRateLimit)
	assert.Equal(t, 10*time.Minute, cfg.SigninRateWindow)
	assert.Equal(t, "db", cfg.RateLimitBackend)
	assert.Equal(t, "10M", cfg.UploadMaxBody)
}

func TestLoad_AdminSecretsRequiredUnlessDevelopment(t *testing.T) {
	t.Setenv("APP_ENV", "")
	t.Setenv("ADMIN_SESSION_SECRET", "")
	t.Setenv("ADMIN_PASSCODE", "")
	t.Setenv("ADMIN_PASSCODE_HASH", "")

	assert.EqualError(t, Load().AdminSecretsError(), "missing required env ADMIN_SESSION_SECRET")

	t.Setenv("ADMIN_SESSION_SECRET", "s3cret")
	assert.EqualError(t, Load().AdminSecretsError(), "missing required env ADMIN_PASSCODE or ADMIN_PASSCODE_HASH")

	t.Setenv("ADMIN_PASSCODE", "letmein")
	assert.NoError(t, Load().AdminSecretsError())

	t.Setenv("ADMIN_SESSION_SECRET", "")
	t.Setenv("APP_ENV", "Development")
	cfg := Load()
	assert.True(t, cfg.IsDevelopment())
	assert.False(t, cfg.SecureCookies())
	assert.NoError(t, cfg.AdminSecretsError())
}

func TestEnvDurationDefault(t *testing.T) {
	t.Setenv("X_DUR", "90")
	assert.Equal(t, 90*time.Second, EnvDurationDefault("X_DUR", time.Minute))

	t.Setenv("X_DUR", "14d")
	assert.Equal(t, time.Minute, EnvDurationDefault("X_DUR", time.Minute))

	t.Setenv("X_DUR", "336h")
	assert.Equal(t, 14*24*time.Hour, EnvDurationDefault("X_DUR", time.Minute))

	t.Setenv("X_DUR", "-5")
	assert.Equal(t, time.Minute, EnvDurationDefault("X_DUR", time.Minute))
}

func TestEnvBoolDefault(t *testing.T) {
	t.Setenv("X_BOOL", "true")
	assert.True(t, EnvBoolDefault("X_BOOL", false))

	t.Setenv("X_BOOL", "nope")
	assert.False(t, EnvBoolDefault("X_BOOL", false))
}

func TestCSV(t *testing.T) {
	assert.Nil(t, CSV(""))
	assert.Equal(t, []string{"a:9092", "b:9092"}, CSV(" a:9092 ,, b:9092 "))
}
