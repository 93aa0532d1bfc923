package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/milhas-next/internal/allocation"
	"github.com/milhas-next/internal/cache"
	"github.com/milhas-next/internal/constants"
	"github.com/milhas-next/internal/logger"
	"github.com/milhas-next/internal/models"
	"github.com/milhas-next/internal/repository"

	"gorm.io/gorm"
)

// DefaultPayoutTaxBps 日结代扣税 8%
const DefaultPayoutTaxBps int64 = 800

// PayoutOptions 日结计算参数
type PayoutOptions struct {
	Location     *time.Location
	TaxBps       int64
	FlatRateBps  int64
	BonusRateBps int64
	LockTTL      time.Duration
}

// DailyPayoutResult 日结重算结果
type DailyPayoutResult struct {
	TeamID              uint                    `json:"team_id"`
	Date                string                  `json:"date"`
	Rows                []models.EmployeePayout `json:"rows"`
	Created             int                     `json:"created"`
	Updated             int                     `json:"updated"`
	Unchanged           int                     `json:"unchanged"`
	Deleted             int                     `json:"deleted"`
	Frozen              int                     `json:"frozen"`
	SaleCount           int                     `json:"sale_count"`
	ConsistencyWarnings int                     `json:"consistency_warnings"`
}

// SalePreview 单笔销售的佣金与分润预览（只读）
type SalePreview struct {
	Sale       SaleCommission `json:"commission"`
	SellerID   uint           `json:"seller_id"`
	OwnerID    uint           `json:"owner_id"`
	Plan       *ResolvedPlan  `json:"plan"`
	PoolCents  int64          `json:"pool_cents"`
	PoolShares map[uint]int64 `json:"pool_shares"`
}

// PayoutService 日结佣金服务
type PayoutService struct {
	saleRepo       repository.SaleRepository
	planRepo       repository.ProfitSharePlanRepository
	payoutRepo     repository.EmployeePayoutRepository
	employeeRepo   repository.EmployeeRepository
	settingService *SettingService
	planService    *ProfitSharePlanService
	locker         cache.Locker
	options        PayoutOptions
	now            func() time.Time
}

// NewPayoutService 创建日结佣金服务
func NewPayoutService(
	saleRepo repository.SaleRepository,
	planRepo repository.ProfitSharePlanRepository,
	payoutRepo repository.EmployeePayoutRepository,
	employeeRepo repository.EmployeeRepository,
	settingService *SettingService,
	planService *ProfitSharePlanService,
	locker cache.Locker,
	options PayoutOptions,
) *PayoutService {
	if options.Location == nil {
		options.Location = time.UTC
	}
	if options.TaxBps <= 0 {
		options.TaxBps = DefaultPayoutTaxBps
	}
	if options.LockTTL <= 0 {
		options.LockTTL = 2 * time.Minute
	}
	if locker == nil {
		locker = cache.NewLocalLocker()
	}
	return &PayoutService{
		saleRepo:       saleRepo,
		planRepo:       planRepo,
		payoutRepo:     payoutRepo,
		employeeRepo:   employeeRepo,
		settingService: settingService,
		planService:    planService,
		locker:         locker,
		options:        options,
		now:            time.Now,
	}
}

// Location 业务时区
func (s *PayoutService) Location() *time.Location {
	return s.options.Location
}

// DayWindow 业务时区下某日的 [start, end)
func (s *PayoutService) DayWindow(date string) (time.Time, time.Time, error) {
	start, err := time.ParseInLocation(constants.DateLayout, strings.TrimSpace(date), s.options.Location)
	if err != nil {
		return time.Time{}, time.Time{}, newValidationError("date", "invalid date %q", date)
	}
	return start, start.AddDate(0, 0, 1), nil
}

// Now 当前时间（业务时区）
func (s *PayoutService) Now() time.Time {
	return s.now().In(s.options.Location)
}

// Today 业务时区下的今天
func (s *PayoutService) Today() string {
	return s.now().In(s.options.Location).Format(constants.DateLayout)
}

type payoutAccumulator struct {
	flat      int64
	bonus     int64
	pool      int64
	fee       int64
	saleCount int
}

// RecomputeDay 重算团队某日的日结记录并与已存记录对账
// 整个过程在一个事务内完成：任一销售失败则不提交任何写入。
func (s *PayoutService) RecomputeDay(ctx context.Context, teamID uint, date string) (*DailyPayoutResult, error) {
	if teamID == 0 {
		return nil, newValidationError("team_id", "required")
	}
	start, end, err := s.DayWindow(date)
	if err != nil {
		return nil, err
	}
	date = start.Format(constants.DateLayout)

	lease, err := s.locker.Acquire(ctx, fmt.Sprintf("payout:%d:%s", teamID, date), s.options.LockTTL)
	if err != nil {
		if errors.Is(err, cache.ErrLockNotAcquired) {
			return nil, fmt.Errorf("%w: team=%d date=%s", ErrPayoutRunInProgress, teamID, date)
		}
		return nil, err
	}
	defer lease.Release()
	keepAlive := cache.StartKeepAlive(lease, s.options.LockTTL/3)
	defer keepAlive.Stop()

	costs, err := s.settingService.GetProgramCostSetting()
	if err != nil {
		return nil, err
	}
	calculator := NewCommissionCalculator(s.options.FlatRateBps, s.options.BonusRateBps, costs)
	result := &DailyPayoutResult{TeamID: teamID, Date: date}

	err = s.payoutRepo.Transaction(func(tx *gorm.DB) error {
		payoutRepo := s.payoutRepo.WithTx(tx)
		existing, err := payoutRepo.ListByTeamDateForUpdate(teamID, date)
		if err != nil {
			return err
		}
		sales, err := s.saleRepo.WithTx(tx).ListSettledInWindow(teamID, start, end)
		if err != nil {
			return err
		}

		lookup := &saleLookup{
			planRepo:     s.planRepo.WithTx(tx),
			employeeRepo: s.employeeRepo.WithTx(tx),
			members:      make(map[uint]bool),
		}
		totals, err := s.accumulate(ctx, lookup, calculator, teamID, date, sales, result)
		if err != nil {
			return err
		}
		computed := s.buildRows(teamID, date, totals)
		if err := s.reconcile(payoutRepo, existing, computed, result); err != nil {
			return err
		}
		// 提交前确认仍持有锁，锁丢失说明可能已有其他运行取得，放弃提交
		lockErr := keepAlive.Err()
		if lockErr == nil {
			lockErr = lease.Extend(ctx)
		}
		if lockErr != nil {
			return fmt.Errorf("%w: team=%d date=%s: %v", ErrPayoutRunInProgress, teamID, date, lockErr)
		}
		return nil
	})
	if err != nil {
		logger.Ctx(ctx).Warnw("payout_recompute_failed", "team_id", teamID, "date", date, "error", err)
		return nil, err
	}

	logger.Ctx(ctx).Infow("payout_recompute_done",
		"team_id", teamID,
		"date", date,
		"sales", result.SaleCount,
		"created", result.Created,
		"updated", result.Updated,
		"unchanged", result.Unchanged,
		"deleted", result.Deleted,
		"frozen", result.Frozen,
	)
	return result, nil
}

// saleLookup 事务内的方案与成员查询（成员校验结果按员工 ID 缓存）
type saleLookup struct {
	planRepo     repository.ProfitSharePlanRepository
	employeeRepo repository.EmployeeRepository
	members      map[uint]bool
}

func (l *saleLookup) memberOfTeam(employeeID, teamID uint) (bool, error) {
	if employeeID == 0 {
		return false, nil
	}
	if known, ok := l.members[employeeID]; ok {
		return known, nil
	}
	employee, err := l.employeeRepo.GetByID(employeeID)
	if err != nil {
		return false, err
	}
	found := employee != nil && employee.TeamID == teamID
	l.members[employeeID] = found
	return found, nil
}

// checkSaleReferences 校验销售引用的出让人、负责人、销售员与采购批次均存在
func checkSaleReferences(lookup *saleLookup, sale *models.Sale, teamID uint, date string) (uint, error) {
	if sale.Cedente == nil {
		return 0, &NotFoundError{Entity: "cedente", ID: sale.CedenteID, TeamID: teamID, Date: date, SaleID: sale.ID}
	}
	if sale.PurchaseID != nil && sale.Purchase == nil {
		return 0, &NotFoundError{Entity: "purchase", ID: *sale.PurchaseID, TeamID: teamID, Date: date, SaleID: sale.ID}
	}
	ownerID := sale.Cedente.OwnerID
	found, err := lookup.memberOfTeam(ownerID, teamID)
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, &NotFoundError{Entity: "owner", ID: ownerID, TeamID: teamID, Date: date, SaleID: sale.ID}
	}
	found, err = lookup.memberOfTeam(sale.SellerID, teamID)
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, &NotFoundError{Entity: "seller", ID: sale.SellerID, TeamID: teamID, Date: date, SaleID: sale.ID}
	}
	return ownerID, nil
}

func (s *PayoutService) accumulate(
	ctx context.Context,
	lookup *saleLookup,
	calculator *CommissionCalculator,
	teamID uint,
	date string,
	sales []models.Sale,
	result *DailyPayoutResult,
) (map[uint]*payoutAccumulator, error) {
	totals := make(map[uint]*payoutAccumulator)
	get := func(userID uint) *payoutAccumulator {
		acc, ok := totals[userID]
		if !ok {
			acc = &payoutAccumulator{}
			totals[userID] = acc
		}
		return acc
	}

	for i := range sales {
		sale := &sales[i]
		ownerID, err := checkSaleReferences(lookup, sale, teamID, date)
		if err != nil {
			return nil, err
		}
		commission, err := calculator.Calculate(SaleInputFromModel(sale))
		if err != nil {
			return nil, err
		}

		seller := get(sale.SellerID)
		seller.flat += commission.FlatCommissionCents
		seller.bonus += commission.BonusCommissionCents
		seller.fee += commission.FeeCents
		seller.saleCount++

		pool := commission.Pool()
		if pool > 0 {
			// 方案按销售发生时刻解析，而非运行时刻
			plan, err := s.planService.resolve(ctx, lookup.planRepo, ownerID, teamID, sale.SoldAt)
			if err != nil {
				return nil, err
			}
			if plan.Warning != nil {
				result.ConsistencyWarnings++
			}
			shares, err := allocation.SplitBps(pool, plan.Shares)
			if err != nil {
				return nil, err
			}
			for payeeID, amount := range shares {
				if amount > 0 {
					get(payeeID).pool += amount
				}
			}
		}
		result.SaleCount++
	}
	return totals, nil
}

func (s *PayoutService) buildRows(teamID uint, date string, totals map[uint]*payoutAccumulator) []models.EmployeePayout {
	userIDs := make([]uint, 0, len(totals))
	for userID := range totals {
		userIDs = append(userIDs, userID)
	}
	sort.Slice(userIDs, func(i, j int) bool { return userIDs[i] < userIDs[j] })

	rows := make([]models.EmployeePayout, 0, len(userIDs))
	for _, userID := range userIDs {
		acc := totals[userID]
		gross := acc.flat + acc.bonus + acc.pool
		tax := applyBps(gross, s.options.TaxBps)
		rows = append(rows, models.EmployeePayout{
			TeamID:               teamID,
			PayoutDate:           date,
			UserID:               userID,
			GrossCents:           gross,
			TaxCents:             tax,
			FeeCents:             acc.fee,
			NetCents:             gross - tax + acc.fee,
			FlatCommissionCents:  acc.flat,
			BonusCommissionCents: acc.bonus,
			PoolShareCents:       acc.pool,
			SaleCount:            acc.saleCount,
		})
	}
	return rows
}

// reconcile 已付款记录保持不变；未付款记录按需更新，不再出现的用户记录删除
func (s *PayoutService) reconcile(
	repo repository.EmployeePayoutRepository,
	existing []models.EmployeePayout,
	computed []models.EmployeePayout,
	result *DailyPayoutResult,
) error {
	existingByUser := make(map[uint]*models.EmployeePayout, len(existing))
	for i := range existing {
		existingByUser[existing[i].UserID] = &existing[i]
	}

	rows := make([]models.EmployeePayout, 0, len(computed)+len(existing))
	seen := make(map[uint]struct{}, len(computed))
	for i := range computed {
		row := computed[i]
		seen[row.UserID] = struct{}{}
		current, ok := existingByUser[row.UserID]
		switch {
		case !ok:
			if err := repo.Create(&row); err != nil {
				return err
			}
			result.Created++
		case current.IsPaid():
			row = *current
			result.Frozen++
		case current.SameFinancials(&row):
			row = *current
			result.Unchanged++
		default:
			row.ID = current.ID
			row.CreatedAt = current.CreatedAt
			if err := repo.UpdateFinancials(&row); err != nil {
				return err
			}
			result.Updated++
		}
		rows = append(rows, row)
	}

	stale := make([]uint, 0)
	for i := range existing {
		row := existing[i]
		if _, ok := seen[row.UserID]; ok {
			continue
		}
		if row.IsPaid() {
			result.Frozen++
			rows = append(rows, row)
			continue
		}
		stale = append(stale, row.ID)
	}
	deleted, err := repo.DeleteUnpaid(stale)
	if err != nil {
		return err
	}
	result.Deleted = int(deleted)

	sort.Slice(rows, func(i, j int) bool { return rows[i].UserID < rows[j].UserID })
	result.Rows = rows
	return nil
}

// MarkPaid 标记付款，标记后该记录不再被重算修改
func (s *PayoutService) MarkPaid(ctx context.Context, payoutID, adminID uint) (*models.EmployeePayout, error) {
	if adminID == 0 {
		return nil, newValidationError("paid_by", "required")
	}
	var updated *models.EmployeePayout
	err := s.payoutRepo.Transaction(func(tx *gorm.DB) error {
		repo := s.payoutRepo.WithTx(tx)
		payout, err := repo.GetByIDForUpdate(payoutID)
		if err != nil {
			return err
		}
		if payout == nil {
			return &NotFoundError{Entity: "employee_payout", ID: payoutID}
		}
		if payout.IsPaid() {
			return ErrPayoutAlreadyPaid
		}
		affected, err := repo.MarkPaid(payoutID, adminID, s.now())
		if err != nil {
			return err
		}
		if affected == 0 {
			return ErrPayoutAlreadyPaid
		}
		updated, err = repo.GetByID(payoutID)
		return err
	})
	if err != nil {
		return nil, err
	}
	logger.Ctx(ctx).Infow("payout_marked_paid",
		"payout_id", payoutID,
		"team_id", updated.TeamID,
		"user_id", updated.UserID,
		"date", updated.PayoutDate,
		"paid_by", adminID,
	)
	return updated, nil
}

// ListPayouts 日结记录列表
func (s *PayoutService) ListPayouts(ctx context.Context, filter repository.PayoutListFilter) ([]models.EmployeePayout, int64, error) {
	return s.payoutRepo.List(filter)
}

// PreviewSale 预览单笔销售的佣金与分润（不写入）
func (s *PayoutService) PreviewSale(ctx context.Context, saleID uint) (*SalePreview, error) {
	sale, err := s.saleRepo.GetByID(saleID)
	if err != nil {
		return nil, err
	}
	if sale == nil {
		return nil, &NotFoundError{Entity: "sale", ID: saleID, SaleID: saleID}
	}
	lookup := &saleLookup{planRepo: s.planRepo, employeeRepo: s.employeeRepo, members: make(map[uint]bool)}
	if _, err := checkSaleReferences(lookup, sale, sale.TeamID, sale.SoldAt.In(s.options.Location).Format(constants.DateLayout)); err != nil {
		return nil, err
	}
	costs, err := s.settingService.GetProgramCostSetting()
	if err != nil {
		return nil, err
	}
	commission, err := NewCommissionCalculator(s.options.FlatRateBps, s.options.BonusRateBps, costs).Calculate(SaleInputFromModel(sale))
	if err != nil {
		return nil, err
	}
	plan, err := s.planService.Resolve(ctx, sale.Cedente.OwnerID, sale.TeamID, sale.SoldAt)
	if err != nil {
		return nil, err
	}
	shares, err := allocation.SplitBps(commission.Pool(), plan.Shares)
	if err != nil {
		return nil, err
	}
	return &SalePreview{
		Sale:       commission,
		SellerID:   sale.SellerID,
		OwnerID:    sale.Cedente.OwnerID,
		Plan:       plan,
		PoolCents:  commission.Pool(),
		PoolShares: shares,
	}, nil
}
