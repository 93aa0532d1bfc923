//go:build integration
// +build integration

package repository

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/milhas-next/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// setupPostgresIntegrationDB 初始化 PostgreSQL 集成测试数据库。
func setupPostgresIntegrationDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := strings.TrimSpace(os.Getenv("TEST_POSTGRES_DSN"))
	if dsn == "" {
		t.Skip("skip postgres integration test: TEST_POSTGRES_DSN is empty")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{DisableForeignKeyConstraintWhenMigrating: true})
	if err != nil {
		t.Fatalf("open postgres failed: %v", err)
	}

	cleanupModels := []interface{}{
		&models.EmployeePayout{},
		&models.ProfitSharePlanItem{},
		&models.ProfitSharePlan{},
	}
	_ = db.Migrator().DropTable(cleanupModels...)
	if err := db.AutoMigrate(cleanupModels...); err != nil {
		t.Fatalf("migrate postgres models failed: %v", err)
	}

	t.Cleanup(func() {
		_ = db.Migrator().DropTable(cleanupModels...)
		sqlDB, err := db.DB()
		if err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func TestPostgresPayoutLockingAndPlanResolution(t *testing.T) {
	db := setupPostgresIntegrationDB(t)

	planRepo := NewProfitSharePlanRepository(db)
	from := time.Date(2024, 1, 1, 3, 0, 0, 0, time.UTC)
	plan := &models.ProfitSharePlan{
		TeamID:        1,
		OwnerID:       7,
		IsActive:      true,
		EffectiveFrom: from,
		Items:         []models.ProfitSharePlanItem{{PayeeID: 7, Bps: 10000}},
	}
	if err := planRepo.Create(plan); err != nil {
		t.Fatalf("create plan failed: %v", err)
	}
	got, err := planRepo.FindEffective(1, 7, from.Add(time.Hour))
	if err != nil || got == nil {
		t.Fatalf("find effective failed: plan=%v err=%v", got, err)
	}

	payoutRepo := NewEmployeePayoutRepository(db)
	err = payoutRepo.Transaction(func(tx *gorm.DB) error {
		repo := payoutRepo.WithTx(tx)
		if err := repo.Create(&models.EmployeePayout{TeamID: 1, PayoutDate: "2024-01-01", UserID: 7, GrossCents: 10}); err != nil {
			return err
		}
		rows, err := repo.ListByTeamDateForUpdate(1, "2024-01-01")
		if err != nil {
			return err
		}
		if len(rows) != 1 {
			t.Fatalf("expected 1 locked row, got %d", len(rows))
		}
		return nil
	})
	if err != nil {
		t.Fatalf("transaction failed: %v", err)
	}
}
