package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Skotchmaster/temurun/internal/models"
)

const SettingWANumber = "wa_number"

// GetSetting reports ok=false for a missing key.
func (r *GormRepo) GetSetting(ctx context.Context, key string) (string, bool, error) {
	var s models.Setting
	err := r.DB.WithContext(ctx).Where(&models.Setting{Key: key}).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return s.Value, true, nil
}

func (r *GormRepo) UpsertSetting(ctx context.Context, key, value string) error {
	return r.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&models.Setting{Key: key, Value: value, UpdatedAt: time.Now().UTC()}).Error
}
