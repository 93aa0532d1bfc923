package repository

import (
	"errors"

	"github.com/milhas-next/internal/constants"
	"github.com/milhas-next/internal/models"

	"gorm.io/gorm"
)

// EmployeeRepository 员工与团队数据访问接口
type EmployeeRepository interface {
	GetByID(id uint) (*models.Employee, error)
	ListByTeam(teamID uint, activeOnly bool) ([]models.Employee, error)
	CountInTeam(teamID uint, ids []uint) (int64, error)
	ListTeamIDs() ([]uint, error)
	GetTeam(teamID uint) (*models.Team, error)
	WithTx(tx *gorm.DB) EmployeeRepository
}

// GormEmployeeRepository GORM 实现
type GormEmployeeRepository struct {
	db *gorm.DB
}

// NewEmployeeRepository 创建员工仓库
func NewEmployeeRepository(db *gorm.DB) *GormEmployeeRepository {
	return &GormEmployeeRepository{db: db}
}

// WithTx 绑定事务
func (r *GormEmployeeRepository) WithTx(tx *gorm.DB) EmployeeRepository {
	if tx == nil {
		return r
	}
	return &GormEmployeeRepository{db: tx}
}

// GetByID 获取员工
func (r *GormEmployeeRepository) GetByID(id uint) (*models.Employee, error) {
	if id == 0 {
		return nil, nil
	}
	var employee models.Employee
	if err := r.db.First(&employee, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &employee, nil
}

// ListByTeam 获取团队员工，按 ID 升序
func (r *GormEmployeeRepository) ListByTeam(teamID uint, activeOnly bool) ([]models.Employee, error) {
	employees := make([]models.Employee, 0)
	query := r.db.Where("team_id = ?", teamID)
	if activeOnly {
		query = query.Where("status = ?", constants.EmployeeStatusActive)
	}
	if err := query.Order("id ASC").Find(&employees).Error; err != nil {
		return nil, err
	}
	return employees, nil
}

// CountInTeam 统计 ids 中属于团队的员工数
func (r *GormEmployeeRepository) CountInTeam(teamID uint, ids []uint) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	var count int64
	err := r.db.Model(&models.Employee{}).
		Where("team_id = ? AND id IN ?", teamID, ids).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

// ListTeamIDs 获取全部团队 ID
func (r *GormEmployeeRepository) ListTeamIDs() ([]uint, error) {
	ids := make([]uint, 0)
	if err := r.db.Model(&models.Team{}).Order("id ASC").Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// GetTeam 获取团队
func (r *GormEmployeeRepository) GetTeam(teamID uint) (*models.Team, error) {
	if teamID == 0 {
		return nil, nil
	}
	var team models.Team
	if err := r.db.First(&team, teamID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &team, nil
}
