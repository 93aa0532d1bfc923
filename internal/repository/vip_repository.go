package repository

import (
	"errors"
	"time"

	"github.com/milhas-next/internal/constants"
	"github.com/milhas-next/internal/models"

	"gorm.io/gorm"
)

// VipRepository VIP 收款与分配配置数据访问接口
type VipRepository interface {
	ListPaidPayments(teamID uint, start, end time.Time) ([]models.VipPayment, error)
	ListPayments(filter VipPaymentListFilter) ([]models.VipPayment, int64, error)
	CreatePayment(payment *models.VipPayment) error
	GetSetting(teamID uint) (*models.VipRateioSetting, error)
	SaveSetting(setting *models.VipRateioSetting) error
	WithTx(tx *gorm.DB) VipRepository
}

// GormVipRepository GORM 实现
type GormVipRepository struct {
	db *gorm.DB
}

// NewVipRepository 创建 VIP 仓库
func NewVipRepository(db *gorm.DB) *GormVipRepository {
	return &GormVipRepository{db: db}
}

// WithTx 绑定事务
func (r *GormVipRepository) WithTx(tx *gorm.DB) VipRepository {
	if tx == nil {
		return r
	}
	return &GormVipRepository{db: tx}
}

// ListPaidPayments 获取时间窗口 [start, end) 内已到账且金额为正的收款
func (r *GormVipRepository) ListPaidPayments(teamID uint, start, end time.Time) ([]models.VipPayment, error) {
	payments := make([]models.VipPayment, 0)
	err := r.db.
		Where("team_id = ?", teamID).
		Where("status = ?", constants.VipPaymentStatusPaid).
		Where("amount_cents > 0").
		Where("paid_at >= ? AND paid_at < ?", utc(start), utc(end)).
		Order("paid_at ASC").
		Order("id ASC").
		Find(&payments).Error
	if err != nil {
		return nil, err
	}
	return payments, nil
}

// ListPayments 收款列表
func (r *GormVipRepository) ListPayments(filter VipPaymentListFilter) ([]models.VipPayment, int64, error) {
	query := r.db.Model(&models.VipPayment{}).Where("team_id = ?", filter.TeamID)
	if filter.ResponsibleID > 0 {
		query = query.Where("responsible_id = ?", filter.ResponsibleID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	payments := make([]models.VipPayment, 0)
	query = applyPagination(query, filter.Page, filter.PageSize)
	if err := query.Order("paid_at DESC").Order("id DESC").Find(&payments).Error; err != nil {
		return nil, 0, err
	}
	return payments, total, nil
}

// CreatePayment 创建收款
func (r *GormVipRepository) CreatePayment(payment *models.VipPayment) error {
	return r.db.Create(payment).Error
}

// GetSetting 获取团队分配配置
func (r *GormVipRepository) GetSetting(teamID uint) (*models.VipRateioSetting, error) {
	var setting models.VipRateioSetting
	if err := r.db.Where("team_id = ?", teamID).First(&setting).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &setting, nil
}

// SaveSetting 保存团队分配配置
func (r *GormVipRepository) SaveSetting(setting *models.VipRateioSetting) error {
	if setting.ID == 0 {
		return r.db.Create(setting).Error
	}
	return r.db.Save(setting).Error
}
