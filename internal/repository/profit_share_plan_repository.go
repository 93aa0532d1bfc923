package repository

import (
	"errors"
	"time"

	"github.com/milhas-next/internal/models"

	"gorm.io/gorm"
)

// ProfitSharePlanRepository 分润方案数据访问接口
type ProfitSharePlanRepository interface {
	FindEffective(teamID, ownerID uint, at time.Time) (*models.ProfitSharePlan, error)
	FindPredecessor(teamID, ownerID uint, from time.Time) (*models.ProfitSharePlan, error)
	FindSuccessor(teamID, ownerID uint, from time.Time) (*models.ProfitSharePlan, error)
	FindByEffectiveFrom(teamID, ownerID uint, from time.Time) (*models.ProfitSharePlan, error)
	GetByID(id uint) (*models.ProfitSharePlan, error)
	ListByOwner(teamID, ownerID uint) ([]models.ProfitSharePlan, error)
	Create(plan *models.ProfitSharePlan) error
	Update(plan *models.ProfitSharePlan) error
	ReplaceItems(planID uint, items []models.ProfitSharePlanItem) error
	WithTx(tx *gorm.DB) ProfitSharePlanRepository
	Transaction(fn func(tx *gorm.DB) error) error
}

// GormProfitSharePlanRepository GORM 实现
type GormProfitSharePlanRepository struct {
	db *gorm.DB
}

// NewProfitSharePlanRepository 创建分润方案仓库
func NewProfitSharePlanRepository(db *gorm.DB) *GormProfitSharePlanRepository {
	return &GormProfitSharePlanRepository{db: db}
}

// WithTx 绑定事务
func (r *GormProfitSharePlanRepository) WithTx(tx *gorm.DB) ProfitSharePlanRepository {
	if tx == nil {
		return r
	}
	return &GormProfitSharePlanRepository{db: tx}
}

// Transaction 执行事务
func (r *GormProfitSharePlanRepository) Transaction(fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return nil
	}
	return r.db.Transaction(fn)
}

func (r *GormProfitSharePlanRepository) ownerScope(teamID, ownerID uint) *gorm.DB {
	return r.db.Model(&models.ProfitSharePlan{}).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC").Order("id ASC")
		}).
		Where("team_id = ? AND owner_id = ?", teamID, ownerID)
}

func firstPlan(query *gorm.DB) (*models.ProfitSharePlan, error) {
	var plan models.ProfitSharePlan
	if err := query.First(&plan).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &plan, nil
}

// FindEffective 查找覆盖某一时刻的启用方案，多个命中时取生效开始最晚者
func (r *GormProfitSharePlanRepository) FindEffective(teamID, ownerID uint, at time.Time) (*models.ProfitSharePlan, error) {
	at = utc(at)
	return firstPlan(r.ownerScope(teamID, ownerID).
		Where("is_active = ?", true).
		Where("effective_from <= ?", at).
		Where("(effective_to IS NULL OR effective_to > ?)", at).
		Order("effective_from DESC").
		Order("id DESC"))
}

// FindPredecessor 查找紧邻 from 之前开始的启用方案
func (r *GormProfitSharePlanRepository) FindPredecessor(teamID, ownerID uint, from time.Time) (*models.ProfitSharePlan, error) {
	return firstPlan(r.ownerScope(teamID, ownerID).
		Where("is_active = ?", true).
		Where("effective_from < ?", utc(from)).
		Order("effective_from DESC").
		Order("id DESC"))
}

// FindSuccessor 查找紧邻 from 之后开始的启用方案
func (r *GormProfitSharePlanRepository) FindSuccessor(teamID, ownerID uint, from time.Time) (*models.ProfitSharePlan, error) {
	return firstPlan(r.ownerScope(teamID, ownerID).
		Where("is_active = ?", true).
		Where("effective_from > ?", utc(from)).
		Order("effective_from ASC").
		Order("id ASC"))
}

// FindByEffectiveFrom 查找同一生效开始时间的启用方案
func (r *GormProfitSharePlanRepository) FindByEffectiveFrom(teamID, ownerID uint, from time.Time) (*models.ProfitSharePlan, error) {
	return firstPlan(r.ownerScope(teamID, ownerID).
		Where("is_active = ?", true).
		Where("effective_from = ?", utc(from)).
		Order("id DESC"))
}

// GetByID 获取方案（含明细）
func (r *GormProfitSharePlanRepository) GetByID(id uint) (*models.ProfitSharePlan, error) {
	if id == 0 {
		return nil, nil
	}
	return firstPlan(r.db.Model(&models.ProfitSharePlan{}).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC").Order("id ASC")
		}).
		Where("id = ?", id))
}

// ListByOwner 获取负责人的方案历史，按生效开始倒序
func (r *GormProfitSharePlanRepository) ListByOwner(teamID, ownerID uint) ([]models.ProfitSharePlan, error) {
	plans := make([]models.ProfitSharePlan, 0)
	query := r.db.Model(&models.ProfitSharePlan{}).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC").Order("id ASC")
		}).
		Where("team_id = ?", teamID)
	if ownerID > 0 {
		query = query.Where("owner_id = ?", ownerID)
	}
	if err := query.Order("effective_from DESC").Order("id DESC").Find(&plans).Error; err != nil {
		return nil, err
	}
	return plans, nil
}

// Create 创建方案（明细一并写入）
func (r *GormProfitSharePlanRepository) Create(plan *models.ProfitSharePlan) error {
	return r.db.Create(plan).Error
}

// Update 更新方案主表字段（不含明细）
func (r *GormProfitSharePlanRepository) Update(plan *models.ProfitSharePlan) error {
	return r.db.Model(plan).
		Select("is_active", "effective_from", "effective_to", "updated_at").
		Updates(plan).Error
}

// ReplaceItems 重写方案明细
func (r *GormProfitSharePlanRepository) ReplaceItems(planID uint, items []models.ProfitSharePlanItem) error {
	if err := r.db.Where("plan_id = ?", planID).Delete(&models.ProfitSharePlanItem{}).Error; err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}
	for i := range items {
		items[i].ID = 0
		items[i].PlanID = planID
	}
	return r.db.Create(&items).Error
}
