package store

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Well-known setting keys. Values name an AI backend ("openai" or "stub").
const (
	SettingTextBackend  = "ai.text_backend"
	SettingImageBackend = "ai.image_backend"
	SettingIdeasBackend = "ai.ideas_backend"
)

// GetSettings returns all persisted settings as a key/value map.
func (s *Store) GetSettings(ctx context.Context) (map[string]string, error) {
	var settings []Setting
	if err := s.db.WithContext(ctx).Find(&settings).Error; err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	out := make(map[string]string, len(settings))
	for _, setting := range settings {
		out[setting.Key] = setting.Value
	}
	return out, nil
}

// GetSetting returns one setting value, or fallback when unset. Query
// failures also fall back, but are logged so a broken store does not pass
// silently for a missing key.
func (s *Store) GetSetting(ctx context.Context, key, fallback string) string {
	var setting Setting
	if err := s.db.WithContext(ctx).Take(&setting, "key = ?", key).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Warn("failed to load setting",
				zap.String("key", key),
				zap.Error(err))
		}
		return fallback
	}
	if setting.Value == "" {
		return fallback
	}
	return setting.Value
}

// PutSettings upserts the given key/value pairs. Changes affect only tasks
// created afterwards; running pipelines keep the configuration captured at
// task creation.
func (s *Store) PutSettings(ctx context.Context, values map[string]string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for key, value := range values {
			setting := Setting{Key: key, Value: value}
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "key"}},
				DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
			}).Create(&setting).Error; err != nil {
				return fmt.Errorf("failed to save setting %s: %w", key, err)
			}
		}
		return nil
	})
}
