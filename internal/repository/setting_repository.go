package repository

import (
	"errors"
	"fmt"
	"time"

	"github.com/milhas-next/internal/constants"
	"github.com/milhas-next/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrUnknownSettingKey 设置键不在允许列表中
var ErrUnknownSettingKey = errors.New("unknown setting key")

// knownSettingKeys 允许写入的设置键
var knownSettingKeys = map[string]struct{}{
	constants.SettingKeyProgramCostConfig: {},
}

// SettingRepository 设置数据访问接口
type SettingRepository interface {
	GetByKey(key string) (*models.Setting, error)
	Upsert(key string, value models.JSON) (*models.Setting, error)
	Reset(key string) (bool, error)
}

// GormSettingRepository GORM 实现
type GormSettingRepository struct {
	db *gorm.DB
}

// NewSettingRepository 创建设置仓库
func NewSettingRepository(db *gorm.DB) *GormSettingRepository {
	return &GormSettingRepository{db: db}
}

func checkSettingKey(key string) error {
	if _, ok := knownSettingKeys[key]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSettingKey, key)
	}
	return nil
}

// GetByKey 获取设置，不存在时返回 nil
func (r *GormSettingRepository) GetByKey(key string) (*models.Setting, error) {
	var setting models.Setting
	if err := r.db.Where("key = ?", key).First(&setting).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &setting, nil
}

// Upsert 以单条语句写入设置，并发保存同一键不会产生主键冲突
func (r *GormSettingRepository) Upsert(key string, value models.JSON) (*models.Setting, error) {
	if err := checkSettingKey(key); err != nil {
		return nil, err
	}
	setting := &models.Setting{Key: key, ValueJSON: value, UpdatedAt: time.Now().UTC()}
	err := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value_json", "updated_at"}),
	}).Create(setting).Error
	if err != nil {
		return nil, err
	}
	return setting, nil
}

// Reset 删除设置使读取回退到默认值，返回是否存在过该设置
func (r *GormSettingRepository) Reset(key string) (bool, error) {
	if err := checkSettingKey(key); err != nil {
		return false, err
	}
	result := r.db.Where("key = ?", key).Delete(&models.Setting{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
