package main

import (
	"context"
	"errors"
	"time"

	"github.com/milhas-next/internal/app"
	"github.com/milhas-next/internal/authz"
	"github.com/milhas-next/internal/config"
	"github.com/milhas-next/internal/constants"
	"github.com/milhas-next/internal/logger"
	"github.com/milhas-next/internal/models"
	"github.com/milhas-next/internal/provider"
	"github.com/milhas-next/internal/service"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func main() {
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()

	db, err := app.InitStorage(cfg)
	if err != nil {
		stdLog.Fatalf("Failed to init database: %v", err)
	}
	// 种子数据不依赖队列
	cfg.Queue.Enabled = false
	container, err := provider.NewContainer(cfg, db)
	if err != nil {
		stdLog.Fatalf("Failed to init container: %v", err)
	}
	defer container.Close()

	location := container.PayoutService.Location()
	ctx := context.Background()

	// 团队与员工
	team := models.Team{Name: "Equipe Demo"}
	if err := firstOrCreate(db, &team, "name = ?", team.Name); err != nil {
		stdLog.Fatalf("Failed to seed team: %v", err)
	}
	names := []string{"Ana Souza", "Bruno Lima", "Carla Dias"}
	employees := make([]models.Employee, 0, len(names))
	for _, name := range names {
		employee := models.Employee{TeamID: team.ID, Name: name, Status: constants.EmployeeStatusActive}
		if err := firstOrCreate(db, &employee, "team_id = ? AND name = ?", team.ID, name); err != nil {
			stdLog.Fatalf("Failed to seed employee %s: %v", name, err)
		}
		employees = append(employees, employee)
	}
	owner, seller, partner := employees[0], employees[1], employees[2]

	// 积分账户与采购批次
	cedente := models.Cedente{TeamID: team.ID, OwnerID: owner.ID, Name: "Marcos Pereira", Document: "000.000.000-00"}
	if err := firstOrCreate(db, &cedente, "team_id = ? AND name = ?", team.ID, cedente.Name); err != nil {
		stdLog.Fatalf("Failed to seed cedente: %v", err)
	}
	purchase := models.Purchase{
		TeamID:              team.ID,
		CedenteID:           cedente.ID,
		Program:             constants.ProgramLatam,
		Points:              500000,
		CostMilheiroCents:   1600,
		TargetMilheiroCents: 2400,
		PurchasedAt:         time.Now().UTC().AddDate(0, 0, -30),
	}
	if err := firstOrCreate(db, &purchase, "cedente_id = ? AND program = ?", cedente.ID, purchase.Program); err != nil {
		stdLog.Fatalf("Failed to seed purchase: %v", err)
	}

	// 项目默认成本
	if _, err := container.SettingService.UpdateProgramCostSetting(service.ProgramCostSetting{
		CostMilheiroCents: map[string]int64{
			constants.ProgramLatam:  1700,
			constants.ProgramSmiles: 1500,
			constants.ProgramAzul:   1400,
			constants.ProgramTap:    2000,
		},
	}); err != nil {
		stdLog.Fatalf("Failed to seed program costs: %v", err)
	}

	// 分润方案：负责人 70%，合伙人 30%
	today := time.Now().In(location)
	planFrom := today.AddDate(0, 0, -7).Format(constants.DateLayout)
	if _, err := container.PlanService.Upsert(ctx, service.PlanUpsertInput{
		TeamID:        team.ID,
		OwnerID:       owner.ID,
		EffectiveFrom: planFrom,
		Items: []service.PlanItemInput{
			{PayeeID: owner.ID, Percent: decimal.NewFromInt(70)},
			{PayeeID: partner.ID, Percent: decimal.NewFromInt(30)},
		},
	}); err != nil {
		stdLog.Fatalf("Failed to seed plan: %v", err)
	}

	// 今日销售
	var saleCount int64
	if err := db.Model(&models.Sale{}).Where("team_id = ?", team.ID).Count(&saleCount).Error; err != nil {
		stdLog.Fatalf("Failed to count sales: %v", err)
	}
	if saleCount == 0 {
		purchaseID := purchase.ID
		sales := []models.Sale{
			{
				TeamID:        team.ID,
				CedenteID:     cedente.ID,
				SellerID:      seller.ID,
				PurchaseID:    &purchaseID,
				Program:       constants.ProgramLatam,
				Points:        100000,
				MilheiroCents: 2500,
				FeeCents:      5990,
				PaymentStatus: constants.SalePaymentStatusPaid,
				SoldAt:        today.Add(-2 * time.Hour),
			},
			{
				TeamID:        team.ID,
				CedenteID:     cedente.ID,
				SellerID:      seller.ID,
				Program:       constants.ProgramLatam,
				Points:        50000,
				MilheiroCents: 2200,
				PaymentStatus: constants.SalePaymentStatusPending,
				SoldAt:        today.Add(-time.Hour),
			},
		}
		if err := db.Create(&sales).Error; err != nil {
			stdLog.Fatalf("Failed to seed sales: %v", err)
		}
	}

	// VIP 收款
	vipPayment := models.VipPayment{
		TeamID:        team.ID,
		AmountCents:   19900,
		ResponsibleID: owner.ID,
		Status:        constants.VipPaymentStatusPaid,
		Description:   "Assinatura VIP",
		PaidAt:        today.UTC(),
	}
	if err := firstOrCreate(db, &vipPayment, "team_id = ? AND description = ?", team.ID, vipPayment.Description); err != nil {
		stdLog.Fatalf("Failed to seed vip payment: %v", err)
	}

	// 演示角色
	demoRoles := map[string][]string{
		"auditor":    {authz.RoleReadonlyAuditor},
		"financeiro": {authz.RoleFinance},
		"operacoes":  {authz.RoleOperations},
	}
	for username, roles := range demoRoles {
		hash, err := service.HashPassword(username + "123")
		if err != nil {
			stdLog.Fatalf("Failed to hash password: %v", err)
		}
		admin := models.Admin{Username: username, DisplayName: username, PasswordHash: hash}
		if err := firstOrCreate(db, &admin, "username = ?", username); err != nil {
			stdLog.Fatalf("Failed to seed admin %s: %v", username, err)
		}
		if err := container.AuthzService.SetAdminRoles(admin.ID, roles); err != nil {
			stdLog.Fatalf("Failed to grant roles to %s: %v", username, err)
		}
	}

	result, err := container.PayoutService.RecomputeDay(ctx, team.ID, today.Format(constants.DateLayout))
	if err != nil {
		stdLog.Fatalf("Failed to recompute payouts: %v", err)
	}
	logger.Infow("seed_done",
		"team_id", team.ID,
		"payout_rows", len(result.Rows),
		"sales", result.SaleCount,
	)
}

// firstOrCreate 按条件查找，不存在时创建
func firstOrCreate(db *gorm.DB, dest interface{}, query string, args ...interface{}) error {
	err := db.Where(query, args...).First(dest).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	return db.Create(dest).Error
}
