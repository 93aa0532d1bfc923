package repository

import (
	"errors"
	"time"

	"github.com/milhas-next/internal/constants"
	"github.com/milhas-next/internal/models"

	"gorm.io/gorm"
)

// SaleRepository 销售数据访问接口
type SaleRepository interface {
	GetByID(id uint) (*models.Sale, error)
	ListSettledInWindow(teamID uint, start, end time.Time) ([]models.Sale, error)
	Create(sale *models.Sale) error
	UpdatePaymentStatus(id uint, status string) error
	WithTx(tx *gorm.DB) SaleRepository
}

// GormSaleRepository GORM 实现
type GormSaleRepository struct {
	db *gorm.DB
}

// NewSaleRepository 创建销售仓库
func NewSaleRepository(db *gorm.DB) *GormSaleRepository {
	return &GormSaleRepository{db: db}
}

// WithTx 绑定事务
func (r *GormSaleRepository) WithTx(tx *gorm.DB) SaleRepository {
	if tx == nil {
		return r
	}
	return &GormSaleRepository{db: tx}
}

// GetByID 获取销售（含积分账户与采购批次）
func (r *GormSaleRepository) GetByID(id uint) (*models.Sale, error) {
	if id == 0 {
		return nil, nil
	}
	var sale models.Sale
	if err := r.db.Preload("Cedente").Preload("Purchase").First(&sale, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &sale, nil
}

// ListSettledInWindow 获取时间窗口 [start, end) 内未取消的销售，按销售时间升序
func (r *GormSaleRepository) ListSettledInWindow(teamID uint, start, end time.Time) ([]models.Sale, error) {
	sales := make([]models.Sale, 0)
	err := r.db.
		Preload("Cedente").
		Preload("Purchase").
		Where("team_id = ?", teamID).
		Where("payment_status <> ?", constants.SalePaymentStatusCanceled).
		Where("sold_at >= ? AND sold_at < ?", utc(start), utc(end)).
		Order("sold_at ASC").
		Order("id ASC").
		Find(&sales).Error
	if err != nil {
		return nil, err
	}
	return sales, nil
}

// Create 创建销售
func (r *GormSaleRepository) Create(sale *models.Sale) error {
	return r.db.Create(sale).Error
}

// UpdatePaymentStatus 更新支付状态（销售唯一允许的变更）
func (r *GormSaleRepository) UpdatePaymentStatus(id uint, status string) error {
	return r.db.Model(&models.Sale{}).Where("id = ?", id).Update("payment_status", status).Error
}
