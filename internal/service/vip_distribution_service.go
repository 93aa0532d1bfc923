package service

import (
	"context"
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

	"github.com/cespare/xxhash/v2"
	"gorm.io/datatypes"
)

// VipSettingInput VIP 分配配置输入
type VipSettingInput struct {
	OwnerShareBps  int64 `json:"owner_share_bps" validate:"min=0,max=10000"`
	OthersShareBps int64 `json:"others_share_bps" validate:"min=0,max=10000"`
	TaxBps         int64 `json:"tax_bps" validate:"min=0,max=10000"`
	PayoutDays     []int `json:"payout_days" validate:"required,min=1,max=31,unique,dive,min=1,max=31"`
}

// VipPaymentInput VIP 收款录入
type VipPaymentInput struct {
	TeamID        uint      `json:"team_id" validate:"required"`
	AmountCents   int64     `json:"amount_cents" validate:"gt=0"`
	ResponsibleID uint      `json:"responsible_id" validate:"required"`
	Status        string    `json:"status" validate:"omitempty,oneof=PENDING PAID CANCELED"`
	Description   string    `json:"description" validate:"max=255"`
	PaidAt        time.Time `json:"paid_at" validate:"required"`
}

// VipEmployeeEarning 员工月度 VIP 收益
type VipEmployeeEarning struct {
	EmployeeID       uint   `json:"employee_id"`
	Name             string `json:"name"`
	EarningsCents    int64  `json:"earnings_cents"`
	OwnerShareCents  int64  `json:"owner_share_cents"`
	OthersShareCents int64  `json:"others_share_cents"`
	OwnPaidCents     int64  `json:"own_paid_cents"`
}

// VipDistributionSummary 月度分配汇总
type VipDistributionSummary struct {
	TeamID                uint                 `json:"team_id"`
	Month                 string               `json:"month"`
	PaymentCount          int                  `json:"payment_count"`
	TotalPaidCents        int64                `json:"total_paid_cents"`
	TotalTaxCents         int64                `json:"total_tax_cents"`
	TotalNetCents         int64                `json:"total_net_cents"`
	TotalOwnerShareCents  int64                `json:"total_owner_share_cents"`
	TotalOthersShareCents int64                `json:"total_others_share_cents"`
	TotalEarningsCents    int64                `json:"total_earnings_cents"`
	Employees             []VipEmployeeEarning `json:"employees"`
	PayoutDates           []string             `json:"payout_dates"`
	Setting               VipSettingInput      `json:"setting"`
}

// VipDistributionService VIP 月度分配服务
type VipDistributionService struct {
	vipRepo      repository.VipRepository
	employeeRepo repository.EmployeeRepository
	location     *time.Location
	cacheTTL     time.Duration
}

// NewVipDistributionService 创建 VIP 月度分配服务
func NewVipDistributionService(vipRepo repository.VipRepository, employeeRepo repository.EmployeeRepository, location *time.Location, cacheTTL time.Duration) *VipDistributionService {
	if location == nil {
		location = time.UTC
	}
	if cacheTTL <= 0 {
		cacheTTL = 10 * time.Minute
	}
	return &VipDistributionService{
		vipRepo:      vipRepo,
		employeeRepo: employeeRepo,
		location:     location,
		cacheTTL:     cacheTTL,
	}
}

// VipDefaultSetting 未配置团队的默认值
func VipDefaultSetting() VipSettingInput {
	return VipSettingInput{
		OwnerShareBps:  5000,
		OthersShareBps: 5000,
		TaxBps:         0,
		PayoutDays:     []int{10},
	}
}

func vipSettingFromModel(setting *models.VipRateioSetting) VipSettingInput {
	if setting == nil {
		return VipDefaultSetting()
	}
	days := make([]int, len(setting.PayoutDays))
	copy(days, setting.PayoutDays)
	return VipSettingInput{
		OwnerShareBps:  setting.OwnerShareBps,
		OthersShareBps: setting.OthersShareBps,
		TaxBps:         setting.TaxBps,
		PayoutDays:     days,
	}
}

func vipVersionKey(teamID uint) string {
	return fmt.Sprintf("vip:version:%d", teamID)
}

func vipSummaryKey(teamID uint, month string, version int64, roster uint64) string {
	return fmt.Sprintf("vip:summary:%d:%s:v%d:r%x", teamID, month, version, roster)
}

// vipRosterFingerprint 在岗名单指纹，员工加入、停用或改名后缓存自然失效
func vipRosterFingerprint(roster []models.Employee) uint64 {
	entries := make([]string, 0, len(roster))
	for _, employee := range roster {
		entries = append(entries, fmt.Sprintf("%d:%s", employee.ID, employee.Name))
	}
	sort.Strings(entries)
	return xxhash.Sum64String(strings.Join(entries, "\n"))
}

func (s *VipDistributionService) invalidate(ctx context.Context, teamID uint) {
	if err := cache.BumpVersion(ctx, vipVersionKey(teamID)); err != nil {
		logger.Ctx(ctx).Warnw("vip_summary_invalidate_failed", "team_id", teamID, "error", err)
	}
}

// GetSetting 获取团队分配配置（未配置时返回默认值）
func (s *VipDistributionService) GetSetting(ctx context.Context, teamID uint) (VipSettingInput, error) {
	setting, err := s.vipRepo.GetSetting(teamID)
	if err != nil {
		return VipSettingInput{}, err
	}
	return vipSettingFromModel(setting), nil
}

// UpdateSetting 校验并保存团队分配配置
// 负责人份额仅作记录，实际为净额减去其余员工份额，两者之和不要求为 10000。
func (s *VipDistributionService) UpdateSetting(ctx context.Context, teamID uint, input VipSettingInput) (VipSettingInput, error) {
	if teamID == 0 {
		return VipSettingInput{}, newValidationError("team_id", "required")
	}
	if err := validateStruct(input); err != nil {
		return VipSettingInput{}, err
	}
	setting, err := s.vipRepo.GetSetting(teamID)
	if err != nil {
		return VipSettingInput{}, err
	}
	if setting == nil {
		setting = &models.VipRateioSetting{TeamID: teamID}
	}
	days := append([]int(nil), input.PayoutDays...)
	sort.Ints(days)
	setting.OwnerShareBps = input.OwnerShareBps
	setting.OthersShareBps = input.OthersShareBps
	setting.TaxBps = input.TaxBps
	setting.PayoutDays = datatypes.JSONSlice[int](days)
	if err := s.vipRepo.SaveSetting(setting); err != nil {
		return VipSettingInput{}, err
	}
	s.invalidate(ctx, teamID)
	logger.Ctx(ctx).Infow("vip_setting_updated", "team_id", teamID, "others_share_bps", input.OthersShareBps, "tax_bps", input.TaxBps)
	return vipSettingFromModel(setting), nil
}

// RecordPayment 录入 VIP 收款；负责员工须属于该团队
func (s *VipDistributionService) RecordPayment(ctx context.Context, input VipPaymentInput) (*models.VipPayment, error) {
	if err := validateStruct(input); err != nil {
		return nil, err
	}
	count, err := s.employeeRepo.CountInTeam(input.TeamID, []uint{input.ResponsibleID})
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, newValidationError("responsible_id", "employee %d outside team %d", input.ResponsibleID, input.TeamID)
	}
	status := strings.TrimSpace(input.Status)
	if status == "" {
		status = constants.VipPaymentStatusPaid
	}
	payment := &models.VipPayment{
		TeamID:        input.TeamID,
		AmountCents:   input.AmountCents,
		ResponsibleID: input.ResponsibleID,
		Status:        status,
		Description:   strings.TrimSpace(input.Description),
		PaidAt:        input.PaidAt,
	}
	if err := s.vipRepo.CreatePayment(payment); err != nil {
		return nil, err
	}
	s.invalidate(ctx, input.TeamID)
	return payment, nil
}

// ListPayments VIP 收款列表
func (s *VipDistributionService) ListPayments(ctx context.Context, filter repository.VipPaymentListFilter) ([]models.VipPayment, int64, error) {
	return s.vipRepo.ListPayments(filter)
}

// MonthWindow 业务时区下某月的 [start, end)
func (s *VipDistributionService) MonthWindow(month string) (time.Time, time.Time, error) {
	start, err := time.ParseInLocation(constants.MonthLayout, strings.TrimSpace(month), s.location)
	if err != nil {
		return time.Time{}, time.Time{}, newValidationError("month", "invalid month %q", month)
	}
	return start, start.AddDate(0, 1, 0), nil
}

// Distribute 计算团队某月 VIP 收入的分配
// 每笔收款先扣税，净额按其余员工份额拆出，余下归负责人；其余员工份额按 ID 升序平均分配。
func (s *VipDistributionService) Distribute(ctx context.Context, teamID uint, month string) (*VipDistributionSummary, error) {
	if teamID == 0 {
		return nil, newValidationError("team_id", "required")
	}
	start, end, err := s.MonthWindow(month)
	if err != nil {
		return nil, err
	}
	month = start.Format(constants.MonthLayout)

	version, err := cache.Version(ctx, vipVersionKey(teamID))
	if err != nil {
		logger.Ctx(ctx).Warnw("vip_summary_cache_version_failed", "team_id", teamID, "error", err)
	}
	roster, err := s.employeeRepo.ListByTeam(teamID, true)
	if err != nil {
		return nil, err
	}
	cacheKey := vipSummaryKey(teamID, month, version, vipRosterFingerprint(roster))
	var cached VipDistributionSummary
	if hit, err := cache.GetJSON(ctx, cacheKey, &cached); err == nil && hit {
		return &cached, nil
	}

	setting, err := s.GetSetting(ctx, teamID)
	if err != nil {
		return nil, err
	}
	payments, err := s.vipRepo.ListPaidPayments(teamID, start, end)
	if err != nil {
		return nil, err
	}

	summary, err := distributeVip(teamID, month, setting, payments, roster)
	if err != nil {
		return nil, err
	}
	summary.PayoutDates = scheduledPayoutDates(start, setting.PayoutDays)

	if err := cache.SetJSON(ctx, cacheKey, summary, s.cacheTTL); err != nil {
		logger.Ctx(ctx).Warnw("vip_summary_cache_set_failed", "team_id", teamID, "month", month, "error", err)
	}
	logger.Ctx(ctx).Infow("vip_distribution_done",
		"team_id", teamID,
		"month", month,
		"payments", summary.PaymentCount,
		"total_net_cents", summary.TotalNetCents,
	)
	return summary, nil
}

func distributeVip(teamID uint, month string, setting VipSettingInput, payments []models.VipPayment, roster []models.Employee) (*VipDistributionSummary, error) {
	summary := &VipDistributionSummary{TeamID: teamID, Month: month, Setting: setting}
	names := make(map[uint]string, len(roster))
	rosterIDs := make([]uint, 0, len(roster))
	for _, employee := range roster {
		names[employee.ID] = employee.Name
		rosterIDs = append(rosterIDs, employee.ID)
	}
	earnings := make(map[uint]*VipEmployeeEarning, len(roster))
	get := func(id uint) *VipEmployeeEarning {
		entry, ok := earnings[id]
		if !ok {
			entry = &VipEmployeeEarning{EmployeeID: id, Name: names[id]}
			earnings[id] = entry
		}
		return entry
	}
	for _, id := range rosterIDs {
		get(id)
	}

	for _, payment := range payments {
		if payment.AmountCents <= 0 {
			continue
		}
		tax := applyBps(payment.AmountCents, setting.TaxBps)
		net := payment.AmountCents - tax
		othersShare := applyBps(net, setting.OthersShareBps)
		ownerShare := net - othersShare

		responsible := get(payment.ResponsibleID)
		responsible.OwnPaidCents += payment.AmountCents
		responsible.OwnerShareCents += ownerShare
		responsible.EarningsCents += ownerShare

		others := make([]uint, 0, len(rosterIDs))
		for _, id := range rosterIDs {
			if id != payment.ResponsibleID {
				others = append(others, id)
			}
		}
		if len(others) == 0 {
			// 无其他员工时其余份额归负责人
			responsible.OthersShareCents += othersShare
			responsible.EarningsCents += othersShare
		} else {
			split, err := allocation.SplitEvenly(othersShare, others)
			if err != nil {
				return nil, err
			}
			for id, amount := range split {
				entry := get(id)
				entry.OthersShareCents += amount
				entry.EarningsCents += amount
			}
		}

		summary.PaymentCount++
		summary.TotalPaidCents += payment.AmountCents
		summary.TotalTaxCents += tax
		summary.TotalNetCents += net
		summary.TotalOwnerShareCents += ownerShare
		summary.TotalOthersShareCents += othersShare
	}

	ids := make([]uint, 0, len(earnings))
	for id := range earnings {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	summary.Employees = make([]VipEmployeeEarning, 0, len(ids))
	for _, id := range ids {
		summary.Employees = append(summary.Employees, *earnings[id])
		summary.TotalEarningsCents += earnings[id].EarningsCents
	}

	if summary.TotalPaidCents != summary.TotalTaxCents+summary.TotalNetCents ||
		summary.TotalNetCents != summary.TotalOwnerShareCents+summary.TotalOthersShareCents ||
		summary.TotalEarningsCents != summary.TotalNetCents {
		return nil, fmt.Errorf("%w: team=%d month=%s paid=%d tax=%d net=%d earnings=%d",
			ErrConservationViolated, teamID, month,
			summary.TotalPaidCents, summary.TotalTaxCents, summary.TotalNetCents, summary.TotalEarningsCents)
	}
	return summary, nil
}

// scheduledPayoutDates 参考月次月的付款日，超过当月天数时取月末
func scheduledPayoutDates(monthStart time.Time, days []int) []string {
	next := monthStart.AddDate(0, 1, 0)
	lastDay := next.AddDate(0, 1, -1).Day()
	seen := make(map[int]struct{}, len(days))
	clamped := make([]int, 0, len(days))
	for _, day := range days {
		if day < 1 {
			continue
		}
		if day > lastDay {
			day = lastDay
		}
		if _, ok := seen[day]; ok {
			continue
		}
		seen[day] = struct{}{}
		clamped = append(clamped, day)
	}
	sort.Ints(clamped)
	dates := make([]string, 0, len(clamped))
	for _, day := range clamped {
		dates = append(dates, time.Date(next.Year(), next.Month(), day, 0, 0, 0, 0, next.Location()).Format(constants.DateLayout))
	}
	return dates
}
