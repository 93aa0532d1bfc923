package repository

import (
	"errors"
	"time"

	"github.com/milhas-next/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// EmployeePayoutRepository 日结佣金数据访问接口
type EmployeePayoutRepository interface {
	ListByTeamDateForUpdate(teamID uint, date string) ([]models.EmployeePayout, error)
	GetByID(id uint) (*models.EmployeePayout, error)
	GetByIDForUpdate(id uint) (*models.EmployeePayout, error)
	Create(payout *models.EmployeePayout) error
	UpdateFinancials(payout *models.EmployeePayout) error
	DeleteUnpaid(ids []uint) (int64, error)
	MarkPaid(id, adminID uint, paidAt time.Time) (int64, error)
	List(filter PayoutListFilter) ([]models.EmployeePayout, int64, error)
	WithTx(tx *gorm.DB) EmployeePayoutRepository
	Transaction(fn func(tx *gorm.DB) error) error
}

// GormEmployeePayoutRepository GORM 实现
type GormEmployeePayoutRepository struct {
	db *gorm.DB
}

// NewEmployeePayoutRepository 创建日结佣金仓库
func NewEmployeePayoutRepository(db *gorm.DB) *GormEmployeePayoutRepository {
	return &GormEmployeePayoutRepository{db: db}
}

// WithTx 绑定事务
func (r *GormEmployeePayoutRepository) WithTx(tx *gorm.DB) EmployeePayoutRepository {
	if tx == nil {
		return r
	}
	return &GormEmployeePayoutRepository{db: tx}
}

// Transaction 执行事务
func (r *GormEmployeePayoutRepository) Transaction(fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return nil
	}
	return r.db.Transaction(fn)
}

// ListByTeamDateForUpdate 加锁读取团队某日全部记录
func (r *GormEmployeePayoutRepository) ListByTeamDateForUpdate(teamID uint, date string) ([]models.EmployeePayout, error) {
	rows := make([]models.EmployeePayout, 0)
	err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("team_id = ? AND payout_date = ?", teamID, date).
		Order("user_id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// GetByID 获取记录
func (r *GormEmployeePayoutRepository) GetByID(id uint) (*models.EmployeePayout, error) {
	return r.first(r.db, id)
}

// GetByIDForUpdate 加锁获取记录
func (r *GormEmployeePayoutRepository) GetByIDForUpdate(id uint) (*models.EmployeePayout, error) {
	return r.first(r.db.Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *GormEmployeePayoutRepository) first(query *gorm.DB, id uint) (*models.EmployeePayout, error) {
	if id == 0 {
		return nil, nil
	}
	var payout models.EmployeePayout
	if err := query.First(&payout, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &payout, nil
}

// Create 创建记录
func (r *GormEmployeePayoutRepository) Create(payout *models.EmployeePayout) error {
	return r.db.Create(payout).Error
}

// UpdateFinancials 仅更新财务字段，已付款记录不受影响
func (r *GormEmployeePayoutRepository) UpdateFinancials(payout *models.EmployeePayout) error {
	return r.db.Model(payout).
		Where("paid_by IS NULL").
		Select(
			"gross_cents",
			"tax_cents",
			"fee_cents",
			"net_cents",
			"flat_commission_cents",
			"bonus_commission_cents",
			"pool_share_cents",
			"sale_count",
			"updated_at",
		).
		Updates(payout).Error
}

// DeleteUnpaid 删除指定的未付款记录
func (r *GormEmployeePayoutRepository) DeleteUnpaid(ids []uint) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result := r.db.Where("id IN ? AND paid_by IS NULL", ids).Delete(&models.EmployeePayout{})
	return result.RowsAffected, result.Error
}

// MarkPaid 标记付款，仅对未付款记录生效，返回受影响行数
func (r *GormEmployeePayoutRepository) MarkPaid(id, adminID uint, paidAt time.Time) (int64, error) {
	result := r.db.Model(&models.EmployeePayout{}).
		Where("id = ? AND paid_by IS NULL", id).
		Updates(map[string]interface{}{
			"paid_by":    adminID,
			"paid_at":    utc(paidAt),
			"updated_at": time.Now().UTC(),
		})
	return result.RowsAffected, result.Error
}

// List 日结佣金列表
func (r *GormEmployeePayoutRepository) List(filter PayoutListFilter) ([]models.EmployeePayout, int64, error) {
	query := r.db.Model(&models.EmployeePayout{})
	if filter.TeamID > 0 {
		query = query.Where("team_id = ?", filter.TeamID)
	}
	if filter.Date != "" {
		query = query.Where("payout_date = ?", filter.Date)
	}
	if filter.DateFrom != "" {
		query = query.Where("payout_date >= ?", filter.DateFrom)
	}
	if filter.DateTo != "" {
		query = query.Where("payout_date <= ?", filter.DateTo)
	}
	if filter.UserID > 0 {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.Paid != nil {
		if *filter.Paid {
			query = query.Where("paid_by IS NOT NULL")
		} else {
			query = query.Where("paid_by IS NULL")
		}
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	rows := make([]models.EmployeePayout, 0)
	query = applyPagination(query, filter.Page, filter.PageSize)
	if err := query.Order("payout_date DESC").Order("user_id ASC").Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}
