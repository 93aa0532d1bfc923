package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/milhas-next/internal/cache"
	"github.com/milhas-next/internal/constants"
	"github.com/milhas-next/internal/models"
	"github.com/milhas-next/internal/repository"
)

type payoutScenario struct {
	env      *testEnv
	team     models.Team
	owner    models.Employee
	partner  models.Employee
	seller   models.Employee
	cedente  models.Cedente
	purchase models.Purchase
}

// newPayoutScenario 负责人 O 方案 {O:70%, P2:30%} 自 2024-05-01 生效
func newPayoutScenario(t *testing.T) *payoutScenario {
	t.Helper()
	env := newTestEnv(t)
	s := &payoutScenario{env: env}
	s.team = env.createTeam(t, "alpha")
	s.owner = env.createEmployee(t, s.team.ID, "owner")
	s.partner = env.createEmployee(t, s.team.ID, "partner")
	s.seller = env.createEmployee(t, s.team.ID, "seller")
	s.cedente = env.createCedente(t, s.team.ID, s.owner.ID)
	s.purchase = env.createPurchase(t, s.team.ID, s.cedente.ID, 2000, 0)
	if _, err := env.plans.Upsert(context.Background(), PlanUpsertInput{
		TeamID:        s.team.ID,
		OwnerID:       s.owner.ID,
		EffectiveFrom: "2024-05-01",
		Items:         planItems(s.owner.ID, "70", s.partner.ID, "30"),
	}); err != nil {
		t.Fatalf("upsert plan failed: %v", err)
	}
	return s
}

func (s *payoutScenario) sale(t *testing.T, sellerID uint, soldAt time.Time) models.Sale {
	t.Helper()
	return s.env.createSale(t, models.Sale{
		TeamID:        s.team.ID,
		CedenteID:     s.cedente.ID,
		SellerID:      sellerID,
		PurchaseID:    uintPtr(s.purchase.ID),
		Points:        10000,
		MilheiroCents: 3000,
		SoldAt:        soldAt,
	})
}

func rowsByUser(rows []models.EmployeePayout) map[uint]models.EmployeePayout {
	result := make(map[uint]models.EmployeePayout, len(rows))
	for _, row := range rows {
		result[row.UserID] = row
	}
	return result
}

func TestRecomputeDayEndToEnd(t *testing.T) {
	s := newPayoutScenario(t)
	ctx := context.Background()
	s.sale(t, s.seller.ID, time.Date(2024, 5, 10, 12, 0, 0, 0, testLocation))

	result, err := s.env.payouts.RecomputeDay(ctx, s.team.ID, "2024-05-10")
	if err != nil {
		t.Fatalf("recompute failed: %v", err)
	}
	if result.SaleCount != 1 || result.Created != 3 || len(result.Rows) != 3 {
		t.Fatalf("unexpected result: %+v", result)
	}
	rows := rowsByUser(result.Rows)

	seller := rows[s.seller.ID]
	if seller.FlatCommissionCents != 300 || seller.GrossCents != 300 || seller.TaxCents != 24 || seller.NetCents != 276 || seller.SaleCount != 1 {
		t.Fatalf("unexpected seller row: %+v", seller)
	}
	owner := rows[s.owner.ID]
	if owner.PoolShareCents != 6790 || owner.TaxCents != 543 || owner.NetCents != 6247 || owner.SaleCount != 0 {
		t.Fatalf("unexpected owner row: %+v", owner)
	}
	partner := rows[s.partner.ID]
	if partner.PoolShareCents != 2910 || partner.TaxCents != 233 || partner.NetCents != 2677 {
		t.Fatalf("unexpected partner row: %+v", partner)
	}

	var gross int64
	for _, row := range result.Rows {
		gross += row.GrossCents
	}
	if gross != 9700+300 {
		t.Fatalf("expected gross total 10000, got %d", gross)
	}
}

func TestRecomputeDaySellerIsOwner(t *testing.T) {
	s := newPayoutScenario(t)
	s.sale(t, s.owner.ID, time.Date(2024, 5, 10, 12, 0, 0, 0, testLocation))

	result, err := s.env.payouts.RecomputeDay(context.Background(), s.team.ID, "2024-05-10")
	if err != nil {
		t.Fatalf("recompute failed: %v", err)
	}
	rows := rowsByUser(result.Rows)
	if len(rows) != 2 || rows[s.owner.ID].GrossCents != 300+6790 || rows[s.partner.ID].GrossCents != 2910 {
		t.Fatalf("unexpected rows: %+v", result.Rows)
	}
}

func TestRecomputeDayFeeIsReimbursedUntaxed(t *testing.T) {
	s := newPayoutScenario(t)
	sale := s.sale(t, s.seller.ID, time.Date(2024, 5, 10, 12, 0, 0, 0, testLocation))
	if err := s.env.db.Model(&models.Sale{}).Where("id = ?", sale.ID).Update("fee_cents", 1000).Error; err != nil {
		t.Fatalf("update fee failed: %v", err)
	}

	result, err := s.env.payouts.RecomputeDay(context.Background(), s.team.ID, "2024-05-10")
	if err != nil {
		t.Fatalf("recompute failed: %v", err)
	}
	seller := rowsByUser(result.Rows)[s.seller.ID]
	// pv = 29000，flat = 290，tax = round(23.2) = 23
	if seller.FeeCents != 1000 || seller.GrossCents != 290 || seller.TaxCents != 23 || seller.NetCents != 290-23+1000 {
		t.Fatalf("unexpected seller row with fee: %+v", seller)
	}
}

func TestRecomputeDayIsIdempotent(t *testing.T) {
	s := newPayoutScenario(t)
	ctx := context.Background()
	s.sale(t, s.seller.ID, time.Date(2024, 5, 10, 12, 0, 0, 0, testLocation))

	first, err := s.env.payouts.RecomputeDay(ctx, s.team.ID, "2024-05-10")
	if err != nil {
		t.Fatalf("first recompute failed: %v", err)
	}
	second, err := s.env.payouts.RecomputeDay(ctx, s.team.ID, "2024-05-10")
	if err != nil {
		t.Fatalf("second recompute failed: %v", err)
	}
	if second.Created != 0 || second.Updated != 0 || second.Unchanged != 3 || second.Deleted != 0 {
		t.Fatalf("expected no changes on rerun: %+v", second)
	}
	for i := range first.Rows {
		if first.Rows[i].ID != second.Rows[i].ID || !first.Rows[i].SameFinancials(&second.Rows[i]) {
			t.Fatalf("row %d changed between runs", i)
		}
	}
	var count int64
	s.env.db.Model(&models.EmployeePayout{}).Count(&count)
	if count != 3 {
		t.Fatalf("expected 3 stored rows, got %d", count)
	}
}

func TestRecomputeDayKeepsPaidRowsFrozen(t *testing.T) {
	s := newPayoutScenario(t)
	ctx := context.Background()
	sale := s.sale(t, s.seller.ID, time.Date(2024, 5, 10, 12, 0, 0, 0, testLocation))

	first, err := s.env.payouts.RecomputeDay(ctx, s.team.ID, "2024-05-10")
	if err != nil {
		t.Fatalf("recompute failed: %v", err)
	}
	ownerRow := rowsByUser(first.Rows)[s.owner.ID]
	paid, err := s.env.payouts.MarkPaid(ctx, ownerRow.ID, 42)
	if err != nil {
		t.Fatalf("mark paid failed: %v", err)
	}
	if !paid.IsPaid() || paid.PaidAt == nil || *paid.PaidBy != 42 {
		t.Fatalf("expected paid row, got %+v", paid)
	}
	if _, err := s.env.payouts.MarkPaid(ctx, ownerRow.ID, 42); !errors.Is(err, ErrPayoutAlreadyPaid) {
		t.Fatalf("expected already paid, got %v", err)
	}

	if err := s.env.db.Model(&models.Sale{}).Where("id = ?", sale.ID).Update("milheiro_cents", 4000).Error; err != nil {
		t.Fatalf("update sale failed: %v", err)
	}
	second, err := s.env.payouts.RecomputeDay(ctx, s.team.ID, "2024-05-10")
	if err != nil {
		t.Fatalf("recompute failed: %v", err)
	}
	if second.Frozen != 1 || second.Updated != 2 {
		t.Fatalf("unexpected reconcile counts: %+v", second)
	}
	rows := rowsByUser(second.Rows)
	if rows[s.owner.ID].PoolShareCents != 6790 {
		t.Fatalf("paid row must remain unchanged, got %+v", rows[s.owner.ID])
	}
	// pv = 40000，flat = 400，profit = 20000，pool = 19600
	if rows[s.seller.ID].FlatCommissionCents != 400 || rows[s.partner.ID].PoolShareCents != 5880 {
		t.Fatalf("unpaid rows should be updated: %+v", second.Rows)
	}
}

func TestRecomputeDayDeletesStaleUnpaidRows(t *testing.T) {
	s := newPayoutScenario(t)
	ctx := context.Background()
	sale := s.sale(t, s.seller.ID, time.Date(2024, 5, 10, 12, 0, 0, 0, testLocation))

	first, err := s.env.payouts.RecomputeDay(ctx, s.team.ID, "2024-05-10")
	if err != nil {
		t.Fatalf("recompute failed: %v", err)
	}
	if _, err := s.env.payouts.MarkPaid(ctx, rowsByUser(first.Rows)[s.partner.ID].ID, 7); err != nil {
		t.Fatalf("mark paid failed: %v", err)
	}
	saleRepo := repository.NewSaleRepository(s.env.db)
	if err := saleRepo.UpdatePaymentStatus(sale.ID, constants.SalePaymentStatusCanceled); err != nil {
		t.Fatalf("cancel sale failed: %v", err)
	}

	second, err := s.env.payouts.RecomputeDay(ctx, s.team.ID, "2024-05-10")
	if err != nil {
		t.Fatalf("recompute failed: %v", err)
	}
	if second.SaleCount != 0 || second.Deleted != 2 || second.Frozen != 1 || len(second.Rows) != 1 {
		t.Fatalf("unexpected result after cancel: %+v", second)
	}
	if second.Rows[0].UserID != s.partner.ID {
		t.Fatalf("only the paid partner row should remain, got %+v", second.Rows)
	}
}

func TestRecomputeDayExcludesCanceledSales(t *testing.T) {
	s := newPayoutScenario(t)
	s.sale(t, s.seller.ID, time.Date(2024, 5, 10, 9, 0, 0, 0, testLocation))
	s.env.createSale(t, models.Sale{
		TeamID:        s.team.ID,
		CedenteID:     s.cedente.ID,
		SellerID:      s.seller.ID,
		Points:        50000,
		MilheiroCents: 3000,
		PaymentStatus: constants.SalePaymentStatusCanceled,
		SoldAt:        time.Date(2024, 5, 10, 10, 0, 0, 0, testLocation),
	})
	s.env.createSale(t, models.Sale{
		TeamID:        s.team.ID,
		CedenteID:     s.cedente.ID,
		SellerID:      s.seller.ID,
		PurchaseID:    uintPtr(s.purchase.ID),
		Points:        10000,
		MilheiroCents: 3000,
		PaymentStatus: constants.SalePaymentStatusPending,
		SoldAt:        time.Date(2024, 5, 10, 11, 0, 0, 0, testLocation),
	})

	result, err := s.env.payouts.RecomputeDay(context.Background(), s.team.ID, "2024-05-10")
	if err != nil {
		t.Fatalf("recompute failed: %v", err)
	}
	if result.SaleCount != 2 {
		t.Fatalf("expected pending and paid sales only, got %d", result.SaleCount)
	}
	if rowsByUser(result.Rows)[s.seller.ID].FlatCommissionCents != 600 {
		t.Fatalf("unexpected seller commission: %+v", result.Rows)
	}
}

func TestRecomputeDayUsesBusinessTimezoneWindow(t *testing.T) {
	s := newPayoutScenario(t)
	// 2024-05-10 23:30 BRT
	s.sale(t, s.seller.ID, time.Date(2024, 5, 11, 2, 30, 0, 0, time.UTC))
	// 2024-05-11 00:00 BRT
	s.sale(t, s.seller.ID, time.Date(2024, 5, 11, 3, 0, 0, 0, time.UTC))

	result, err := s.env.payouts.RecomputeDay(context.Background(), s.team.ID, "2024-05-10")
	if err != nil {
		t.Fatalf("recompute failed: %v", err)
	}
	if result.SaleCount != 1 {
		t.Fatalf("expected one sale in the local day, got %d", result.SaleCount)
	}
	next, err := s.env.payouts.RecomputeDay(context.Background(), s.team.ID, "2024-05-11")
	if err != nil {
		t.Fatalf("recompute failed: %v", err)
	}
	if next.SaleCount != 1 {
		t.Fatalf("expected midnight sale on the next day, got %d", next.SaleCount)
	}
}

func TestRecomputeDayUsesPlanInForceAtSaleTime(t *testing.T) {
	s := newPayoutScenario(t)
	ctx := context.Background()
	if _, err := s.env.plans.Upsert(ctx, PlanUpsertInput{
		TeamID:        s.team.ID,
		OwnerID:       s.owner.ID,
		EffectiveFrom: "2024-05-10",
		Items:         planItems(s.owner.ID, "100"),
	}); err != nil {
		t.Fatalf("upsert plan failed: %v", err)
	}
	s.sale(t, s.seller.ID, time.Date(2024, 5, 9, 23, 0, 0, 0, testLocation))

	result, err := s.env.payouts.RecomputeDay(ctx, s.team.ID, "2024-05-09")
	if err != nil {
		t.Fatalf("recompute failed: %v", err)
	}
	rows := rowsByUser(result.Rows)
	if rows[s.owner.ID].PoolShareCents != 6790 || rows[s.partner.ID].PoolShareCents != 2910 {
		t.Fatalf("expected the old plan for an old sale: %+v", result.Rows)
	}
}

func TestRecomputeDayMissingCedenteAbortsWithoutWrites(t *testing.T) {
	s := newPayoutScenario(t)
	s.sale(t, s.seller.ID, time.Date(2024, 5, 10, 9, 0, 0, 0, testLocation))
	orphan := s.env.createSale(t, models.Sale{
		TeamID:        s.team.ID,
		CedenteID:     9999,
		SellerID:      s.seller.ID,
		Points:        1000,
		MilheiroCents: 2000,
		SoldAt:        time.Date(2024, 5, 10, 10, 0, 0, 0, testLocation),
	})

	_, err := s.env.payouts.RecomputeDay(context.Background(), s.team.ID, "2024-05-10")
	var notFound *NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
	if notFound.Entity != "cedente" || notFound.ID != 9999 || notFound.SaleID != orphan.ID || notFound.Date != "2024-05-10" {
		t.Fatalf("unexpected error context: %+v", notFound)
	}
	var count int64
	s.env.db.Model(&models.EmployeePayout{}).Count(&count)
	if count != 0 {
		t.Fatalf("expected no rows committed, got %d", count)
	}
}

func TestRecomputeDayDanglingPurchaseAbortsWithoutWrites(t *testing.T) {
	s := newPayoutScenario(t)
	sale := s.sale(t, s.seller.ID, time.Date(2024, 5, 10, 9, 0, 0, 0, testLocation))
	if err := s.env.db.Model(&models.Sale{}).Where("id = ?", sale.ID).Update("purchase_id", 99999).Error; err != nil {
		t.Fatalf("update purchase failed: %v", err)
	}

	_, err := s.env.payouts.RecomputeDay(context.Background(), s.team.ID, "2024-05-10")
	var notFound *NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
	if notFound.Entity != "purchase" || notFound.ID != 99999 || notFound.SaleID != sale.ID || notFound.TeamID != s.team.ID {
		t.Fatalf("unexpected error context: %+v", notFound)
	}
	var count int64
	s.env.db.Model(&models.EmployeePayout{}).Count(&count)
	if count != 0 {
		t.Fatalf("expected no rows committed, got %d", count)
	}
	if _, err := s.env.payouts.PreviewSale(context.Background(), sale.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected preview to report missing purchase, got %v", err)
	}
}

func TestRecomputeDaySellerOutsideTeamAborts(t *testing.T) {
	s := newPayoutScenario(t)
	otherTeam := s.env.createTeam(t, "beta")
	stranger := s.env.createEmployee(t, otherTeam.ID, "stranger")
	s.sale(t, s.seller.ID, time.Date(2024, 5, 10, 9, 0, 0, 0, testLocation))
	foreign := s.sale(t, stranger.ID, time.Date(2024, 5, 10, 10, 0, 0, 0, testLocation))

	_, err := s.env.payouts.RecomputeDay(context.Background(), s.team.ID, "2024-05-10")
	var notFound *NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
	if notFound.Entity != "seller" || notFound.ID != stranger.ID || notFound.SaleID != foreign.ID {
		t.Fatalf("unexpected error context: %+v", notFound)
	}

	ghost := s.sale(t, 4242, time.Date(2024, 5, 11, 10, 0, 0, 0, testLocation))
	_, err = s.env.payouts.RecomputeDay(context.Background(), s.team.ID, "2024-05-11")
	if !errors.As(err, &notFound) || notFound.Entity != "seller" || notFound.SaleID != ghost.ID {
		t.Fatalf("expected missing seller to abort, got %v", err)
	}
	var count int64
	s.env.db.Model(&models.EmployeePayout{}).Count(&count)
	if count != 0 {
		t.Fatalf("expected no rows committed, got %d", count)
	}
}

func TestRecomputeDaySellerPayeeShareFloorsToZero(t *testing.T) {
	s := newPayoutScenario(t)
	ctx := context.Background()
	if _, err := s.env.plans.Upsert(ctx, PlanUpsertInput{
		TeamID:        s.team.ID,
		OwnerID:       s.owner.ID,
		EffectiveFrom: "2024-05-05",
		Items:         planItems(s.owner.ID, "99.99", s.seller.ID, "0.01"),
	}); err != nil {
		t.Fatalf("upsert plan failed: %v", err)
	}
	s.sale(t, s.seller.ID, time.Date(2024, 5, 10, 12, 0, 0, 0, testLocation))

	result, err := s.env.payouts.RecomputeDay(ctx, s.team.ID, "2024-05-10")
	if err != nil {
		t.Fatalf("recompute failed: %v", err)
	}
	rows := rowsByUser(result.Rows)
	if len(rows) != 2 {
		t.Fatalf("expected seller and owner rows only, got %+v", result.Rows)
	}
	// floor(9700*1/10000) = 0，余数归最大份额
	seller := rows[s.seller.ID]
	if seller.PoolShareCents != 0 || seller.FlatCommissionCents != 300 || seller.GrossCents != 300 || seller.SaleCount != 1 {
		t.Fatalf("unexpected seller row: %+v", seller)
	}
	if rows[s.owner.ID].PoolShareCents != 9700 {
		t.Fatalf("owner should absorb the whole pool: %+v", rows[s.owner.ID])
	}
}

func TestRecomputeDayRejectsConcurrentRun(t *testing.T) {
	s := newPayoutScenario(t)
	ctx := context.Background()
	lease, err := s.env.locker.Acquire(ctx, fmt.Sprintf("payout:%d:%s", s.team.ID, "2024-05-10"), time.Minute)
	if err != nil {
		t.Fatalf("acquire lock failed: %v", err)
	}
	if _, err := s.env.payouts.RecomputeDay(ctx, s.team.ID, "2024-05-10"); !errors.Is(err, ErrPayoutRunInProgress) {
		t.Fatalf("expected run in progress, got %v", err)
	}
	lease.Release()
	if _, err := s.env.payouts.RecomputeDay(ctx, s.team.ID, "2024-05-10"); err != nil {
		t.Fatalf("expected recompute after release, got %v", err)
	}
}

func TestRecomputeDayValidation(t *testing.T) {
	s := newPayoutScenario(t)
	ctx := context.Background()
	if _, err := s.env.payouts.RecomputeDay(ctx, 0, "2024-05-10"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation for team, got %v", err)
	}
	if _, err := s.env.payouts.RecomputeDay(ctx, s.team.ID, "10/05/2024"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation for date, got %v", err)
	}
	if _, err := s.env.payouts.MarkPaid(ctx, 12345, 1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found for missing payout, got %v", err)
	}
}

func TestPreviewSaleMatchesRecompute(t *testing.T) {
	s := newPayoutScenario(t)
	sale := s.sale(t, s.seller.ID, time.Date(2024, 5, 10, 12, 0, 0, 0, testLocation))

	preview, err := s.env.payouts.PreviewSale(context.Background(), sale.ID)
	if err != nil {
		t.Fatalf("preview failed: %v", err)
	}
	if preview.PoolCents != 9700 || preview.PoolShares[s.owner.ID] != 6790 || preview.PoolShares[s.partner.ID] != 2910 {
		t.Fatalf("unexpected preview: %+v", preview)
	}
	if preview.SellerID != s.seller.ID || preview.OwnerID != s.owner.ID || preview.Sale.FlatCommissionCents != 300 {
		t.Fatalf("unexpected preview parties: %+v", preview)
	}
	if _, err := s.env.payouts.PreviewSale(context.Background(), 9999); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

type expiringLocker struct{}

type expiredLease struct{}

func (expiringLocker) Acquire(context.Context, string, time.Duration) (cache.Lease, error) {
	return expiredLease{}, nil
}

func (expiredLease) Extend(context.Context) error { return cache.ErrLockLost }
func (expiredLease) Release()                     {}

func TestRecomputeDayLostLockRollsBack(t *testing.T) {
	s := newPayoutScenario(t)
	s.sale(t, s.seller.ID, time.Date(2024, 5, 10, 12, 0, 0, 0, testLocation))
	db := s.env.db
	employeeRepo := repository.NewEmployeeRepository(db)
	planRepo := repository.NewProfitSharePlanRepository(db)
	payouts := NewPayoutService(
		repository.NewSaleRepository(db),
		planRepo,
		repository.NewEmployeePayoutRepository(db),
		employeeRepo,
		s.env.settings,
		s.env.plans,
		expiringLocker{},
		PayoutOptions{Location: testLocation, TaxBps: 800},
	)

	if _, err := payouts.RecomputeDay(context.Background(), s.team.ID, "2024-05-10"); !errors.Is(err, ErrPayoutRunInProgress) {
		t.Fatalf("expected lost lock to abort the run, got %v", err)
	}
	var count int64
	db.Model(&models.EmployeePayout{}).Count(&count)
	if count != 0 {
		t.Fatalf("expected rollback, got %d rows", count)
	}
}
