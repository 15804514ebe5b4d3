package mysql

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	domain "loan-ledger/internal/domain/loan"
	"loan-ledger/pkg/calendar"

	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// openTestDB creates an in-memory sqlite DB with the ledger schema.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("auto-migrate: %v", err)
	}
	return db
}

func makeLoan(loanID, customerID, loanDate string) *domain.Loan {
	return &domain.Loan{
		LoanID:              loanID,
		CustomerID:          customerID,
		Principal:           10000,
		LoanDate:            calendar.Date(loanDate),
		DueDate:             calendar.Date(loanDate),
		InterestRatePercent: decimal.RequireFromString("10.5"),
		RepaymentExpected:   11050,
		RepaymentMethod:     domain.MethodCash,
		LateFeeRatePercent:  decimal.NewFromInt(10),
		LateBaseAmount:      10000,
		ContractStatus:      domain.StatusActive,
	}
}

func TestCreateAndGetByLoanID(t *testing.T) {
	db := openTestDB(t)
	repo := NewLoanRepository(db)
	ctx := context.Background()

	l := makeLoan("L20251001-001", "CUST001", "2025-10-01")
	if err := repo.Create(ctx, l); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if l.ID == 0 {
		t.Fatalf("Create did not set auto-increment ID")
	}

	got, err := repo.GetByLoanID(ctx, "L20251001-001")
	if err != nil {
		t.Fatalf("GetByLoanID: %v", err)
	}
	if got.CustomerID != "CUST001" || got.RepaymentExpected != 11050 {
		t.Fatalf("unexpected loan %+v", got)
	}
	if !got.InterestRatePercent.Equal(decimal.RequireFromString("10.5")) {
		t.Fatalf("rate round-trip: %s", got.InterestRatePercent)
	}
	if got.LoanDate != "2025-10-01" || got.ContractStatus != domain.StatusActive {
		t.Fatalf("unexpected loan %+v", got)
	}
}

func TestCreate_DuplicateLoanIDRejected(t *testing.T) {
	db := openTestDB(t)
	repo := NewLoanRepository(db)
	ctx := context.Background()

	if err := repo.Create(ctx, makeLoan("L20251001-001", "CUST001", "2025-10-01")); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := repo.Create(ctx, makeLoan("L20251001-001", "CUST002", "2025-10-01")); err == nil {
		t.Fatal("want unique violation on loan_id")
	}
}

func TestGetByLoanID_NotFound(t *testing.T) {
	repo := NewLoanRepository(openTestDB(t))
	_, err := repo.GetByLoanID(context.Background(), "L19990101-001")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
	_, err = repo.GetByLoanIDForUpdate(context.Background(), "L19990101-001")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("ForUpdate: want ErrNotFound, got %v", err)
	}
}

func TestSave_Cancellation(t *testing.T) {
	db := openTestDB(t)
	repo := NewLoanRepository(db)
	ctx := context.Background()

	l := makeLoan("L20251001-001", "CUST001", "2025-10-01")
	if err := repo.Create(ctx, l); err != nil {
		t.Fatalf("Create: %v", err)
	}
	at := time.Date(2025, 10, 5, 3, 0, 0, 0, time.UTC)
	l.ContractStatus = domain.StatusCancelled
	l.CancelledAt = &at
	l.CancelReason = "customer request"
	if err := repo.Save(ctx, l); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := repo.GetByLoanIDForUpdate(ctx, l.LoanID)
	if err != nil {
		t.Fatalf("GetByLoanIDForUpdate: %v", err)
	}
	if !got.IsCancelled() || got.CancelReason != "customer request" || got.CancelledAt == nil {
		t.Fatalf("cancellation not persisted: %+v", got)
	}
}

func TestListByCustomer_Ordered(t *testing.T) {
	db := openTestDB(t)
	repo := NewLoanRepository(db)
	ctx := context.Background()

	for _, l := range []*domain.Loan{
		makeLoan("L20251005-001", "CUST001", "2025-10-05"),
		makeLoan("L20251001-002", "CUST001", "2025-10-01"),
		makeLoan("L20251001-001", "CUST001", "2025-10-01"),
		makeLoan("L20251001-003", "CUST002", "2025-10-01"),
	} {
		if err := repo.Create(ctx, l); err != nil {
			t.Fatalf("Create %s: %v", l.LoanID, err)
		}
	}

	got, err := repo.ListByCustomer(ctx, "CUST001")
	if err != nil {
		t.Fatalf("ListByCustomer: %v", err)
	}
	want := []string{"L20251001-001", "L20251001-002", "L20251005-001"}
	if len(got) != len(want) {
		t.Fatalf("len=%d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].LoanID != want[i] {
			t.Fatalf("pos %d: got %s, want %s", i, got[i].LoanID, want[i])
		}
	}
}

func TestLoanIDsWithPrefix(t *testing.T) {
	db := openTestDB(t)
	repo := NewLoanRepository(db)
	ctx := context.Background()

	for _, l := range []*domain.Loan{
		makeLoan("L20251001-001", "CUST001", "2025-10-01"),
		makeLoan("L20251001-007", "CUST002", "2025-10-01"),
		makeLoan("L20251002-001", "CUST001", "2025-10-02"),
	} {
		if err := repo.Create(ctx, l); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	ids, err := repo.LoanIDsWithPrefix(ctx, "L20251001-")
	if err != nil {
		t.Fatalf("LoanIDsWithPrefix: %v", err)
	}
	sort.Strings(ids)
	if len(ids) != 2 || ids[0] != "L20251001-001" || ids[1] != "L20251001-007" {
		t.Fatalf("ids=%v", ids)
	}
}
