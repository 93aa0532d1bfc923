package service

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/milhas-next/internal/cache"
	"github.com/milhas-next/internal/constants"
	"github.com/milhas-next/internal/models"
	"github.com/milhas-next/internal/repository"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

var testLocation = time.FixedZone("BRT", -3*3600)

type testEnv struct {
	db       *gorm.DB
	settings *SettingService
	plans    *ProfitSharePlanService
	payouts  *PayoutService
	vip      *VipDistributionService
	locker   *cache.LocalLocker
}

func setupServiceTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:svc_%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{DisableForeignKeyConstraintWhenMigrating: true})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := models.MigrateModels(db); err != nil {
		t.Fatalf("migrate models failed: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := setupServiceTestDB(t)
	employeeRepo := repository.NewEmployeeRepository(db)
	planRepo := repository.NewProfitSharePlanRepository(db)
	settings := NewSettingService(repository.NewSettingRepository(db))
	plans := NewProfitSharePlanService(planRepo, employeeRepo, testLocation)
	locker := cache.NewLocalLocker()
	payouts := NewPayoutService(
		repository.NewSaleRepository(db),
		planRepo,
		repository.NewEmployeePayoutRepository(db),
		employeeRepo,
		settings,
		plans,
		locker,
		PayoutOptions{Location: testLocation, TaxBps: 800, FlatRateBps: 100, BonusRateBps: 3000},
	)
	vip := NewVipDistributionService(repository.NewVipRepository(db), employeeRepo, testLocation, time.Minute)
	return &testEnv{db: db, settings: settings, plans: plans, payouts: payouts, vip: vip, locker: locker}
}

func (e *testEnv) createTeam(t *testing.T, name string) models.Team {
	t.Helper()
	team := models.Team{Name: name}
	if err := e.db.Create(&team).Error; err != nil {
		t.Fatalf("create team failed: %v", err)
	}
	return team
}

func (e *testEnv) createEmployee(t *testing.T, teamID uint, name string) models.Employee {
	t.Helper()
	employee := models.Employee{TeamID: teamID, Name: name, Status: constants.EmployeeStatusActive}
	if err := e.db.Create(&employee).Error; err != nil {
		t.Fatalf("create employee failed: %v", err)
	}
	return employee
}

func (e *testEnv) createCedente(t *testing.T, teamID, ownerID uint) models.Cedente {
	t.Helper()
	cedente := models.Cedente{TeamID: teamID, OwnerID: ownerID, Name: fmt.Sprintf("cedente-%d", ownerID)}
	if err := e.db.Create(&cedente).Error; err != nil {
		t.Fatalf("create cedente failed: %v", err)
	}
	return cedente
}

func (e *testEnv) createPurchase(t *testing.T, teamID, cedenteID uint, costCents, targetCents int64) models.Purchase {
	t.Helper()
	purchase := models.Purchase{
		TeamID:              teamID,
		CedenteID:           cedenteID,
		Program:             constants.ProgramLatam,
		Points:              1000000,
		CostMilheiroCents:   costCents,
		TargetMilheiroCents: targetCents,
		PurchasedAt:         time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
	}
	if err := e.db.Create(&purchase).Error; err != nil {
		t.Fatalf("create purchase failed: %v", err)
	}
	return purchase
}

func (e *testEnv) createSale(t *testing.T, sale models.Sale) models.Sale {
	t.Helper()
	if sale.Program == "" {
		sale.Program = constants.ProgramLatam
	}
	if sale.PaymentStatus == "" {
		sale.PaymentStatus = constants.SalePaymentStatusPaid
	}
	if err := e.db.Create(&sale).Error; err != nil {
		t.Fatalf("create sale failed: %v", err)
	}
	return sale
}

func int64Ptr(v int64) *int64 {
	return &v
}

func uintPtr(v uint) *uint {
	return &v
}
