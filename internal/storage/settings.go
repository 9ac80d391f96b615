package storage

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Setting 通用键值配置表，值为 JSON 文本（例如调度计划）
type Setting struct {
	Key       string    `gorm:"primaryKey;size:64" json:"key"`
	Value     string    `gorm:"type:text" json:"value"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// GetSetting 不存在时返回 ("", false, nil)
func (s *Store) GetSetting(ctx context.Context, key string) (string, bool, error) {
	var st Setting
	silent := s.DB.Session(&gorm.Session{Logger: s.DB.Logger.LogMode(logger.Silent)})
	err := silent.WithContext(ctx).Where("key = ?", key).First(&st).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return st.Value, true, nil
}

// PutSetting 写入或覆盖
func (s *Store) PutSetting(ctx context.Context, key, value string) error {
	st := Setting{Key: key, Value: value, UpdatedAt: time.Now()}
	return s.DB.WithContext(ctx).Save(&st).Error
}
