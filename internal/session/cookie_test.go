package session

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Skotchmaster/temurun/pkg/config"
)

func TestCreateCookie_SecureWhenAppEnvUnset(t *testing.T) {
	t.Setenv("APP_ENV", "")
	t.Setenv("ADMIN_SESSION_TTL", "")
	cfg := config.Load()

	ck := CreateCookie(cfg.AdminCookieName, "token", cfg.AdminSessionTTL, cfg.SecureCookies())

	assert.True(t, ck.Secure)
	assert.True(t, ck.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, ck.SameSite)
	assert.Equal(t, int((8 * time.Hour).Seconds()), ck.MaxAge)
}

func TestCreateCookie_PlainInDevelopment(t *testing.T) {
	t.Setenv("APP_ENV", config.EnvDevelopment)
	cfg := config.Load()

	assert.False(t, CreateCookie(cfg.AdminCookieName, "token", time.Hour, cfg.SecureCookies()).Secure)
}

func TestDeleteCookie_Expires(t *testing.T) {
	ck := DeleteCookie(DefaultCookieName, true)

	assert.Equal(t, -1, ck.MaxAge)
	assert.Empty(t, ck.Value)
	assert.True(t, ck.Secure)
}
