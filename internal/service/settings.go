package service

import (
	"context"
	"strings"

	"github.com/Skotchmaster/temurun/internal/repo"
	"github.com/Skotchmaster/temurun/internal/whatsapp"
	"github.com/Skotchmaster/temurun/pkg/logging"
)

const (
	SourceSettings = "settings"
	SourceEnv      = "env"
	SourceDefault  = "default"
)

type SettingsService struct {
	Repo *repo.GormRepo
	// EnvWANumber is WA_NUMBER from the environment.
	EnvWANumber string
}

// WANumber resolves the WhatsApp number: settings row, then env, then the
// built-in default. A failed settings read falls through to env.
func (s *SettingsService) WANumber(ctx context.Context) (string, string) {
	v, ok, err := s.Repo.GetSetting(ctx, repo.SettingWANumber)
	if err != nil {
		logging.FromContext(ctx).Warn("settings_read_failed", "key", repo.SettingWANumber, "error", err)
	}
	if ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v), SourceSettings
	}
	if n := strings.TrimSpace(s.EnvWANumber); n != "" {
		return n, SourceEnv
	}
	return whatsapp.DefaultNumber, SourceDefault
}

func (s *SettingsService) SaveWANumber(ctx context.Context, raw string) error {
	n := strings.TrimSpace(raw)
	if n == "" {
		return validationf("WhatsApp number is required")
	}
	if !whatsapp.IsLikelyValidNumber(n) {
		return validationf("WhatsApp number must be in international format, e.g. +62811xxxxxxx")
	}
	return s.Repo.UpsertSetting(ctx, repo.SettingWANumber, n)
}
