package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"dairy-collection-backend/internal/models"
	"dairy-collection-backend/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestLedger(t *testing.T) (*Service, *gorm.DB, *models.Customer) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	// In-memory sqlite is per-connection; a second pooled connection
	// would see an empty database.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.Customer{},
		&models.MilkEntry{},
		&models.Payment{},
		&models.Advance{},
	))

	svc := NewService(
		repository.NewEntryRepository(db),
		repository.NewPaymentRepository(db),
		repository.NewAdvanceRepository(db),
		repository.NewCustomerRepository(db),
		zap.NewNop(),
	)

	customer := &models.Customer{
		ID:             uuid.New(),
		AmcuCustomerID: "1",
		Name:           "Farmer One",
		IsActive:       true,
	}
	require.NoError(t, db.Create(customer).Error)
	return svc, db, customer
}

func day(d int) time.Time {
	return time.Date(2026, 3, d, 0, 0, 0, 0, time.UTC)
}

func seedEntry(t *testing.T, db *gorm.DB, customerID uuid.UUID, date time.Time, amount string) {
	t.Helper()
	amt := decimal.RequireFromString(amount)
	require.NoError(t, db.Create(&models.MilkEntry{
		ID:            uuid.New(),
		CustomerID:    customerID,
		Date:          date,
		Shift:         models.ShiftMorning,
		MilkType:      "COW",
		QuantityLitre: 10,
		RatePerLitre:  amt.Div(decimal.NewFromInt(10)).Round(2),
		Amount:        amt,
		Source:        models.SourceManual,
	}).Error)
}

func seedPayment(t *testing.T, db *gorm.DB, customerID uuid.UUID, date time.Time, amount string) {
	t.Helper()
	require.NoError(t, db.Create(&models.Payment{
		ID:         uuid.New(),
		CustomerID: customerID,
		Date:       date,
		Amount:     decimal.RequireFromString(amount),
		Mode:       "CASH",
	}).Error)
}

func seedAdvance(t *testing.T, db *gorm.DB, customerID uuid.UUID, date time.Time, amount string, createdAt time.Time) *models.Advance {
	t.Helper()
	advance := &models.Advance{
		ID:             uuid.New(),
		CustomerID:     customerID,
		Date:           date,
		Amount:         decimal.RequireFromString(amount),
		UtilizedAmount: decimal.Zero,
		Status:         models.AdvanceActive,
		CreatedAt:      createdAt,
	}
	require.NoError(t, db.Create(advance).Error)
	return advance
}

func TestStatementClosingBalance(t *testing.T) {
	svc, db, customer := newTestLedger(t)
	ctx := context.Background()

	seedEntry(t, db, customer.ID, day(1), "600")
	seedEntry(t, db, customer.ID, day(2), "400")
	seedPayment(t, db, customer.ID, day(2), "400")
	seedAdvance(t, db, customer.ID, day(1), "300", day(1))

	statement, err := svc.Statement(ctx, customer.ID, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, "1000.00", statement.Summary.TotalMilkAmount.StringFixed(2))
	assert.Equal(t, "400.00", statement.Summary.TotalPayments.StringFixed(2))
	assert.Equal(t, "300.00", statement.Summary.TotalAdvanceOutstanding.StringFixed(2))
	assert.Equal(t, "300.00", statement.Summary.ClosingBalance.StringFixed(2))

	// The running balance of the last line matches the closing figure.
	require.Len(t, statement.Lines, 4)
	last := statement.Lines[len(statement.Lines)-1]
	assert.Equal(t, "300.00", last.Balance.StringFixed(2))
}

func TestStatementRunningBalanceOrderedByDate(t *testing.T) {
	svc, db, customer := newTestLedger(t)

	seedEntry(t, db, customer.ID, day(3), "100")
	seedEntry(t, db, customer.ID, day(1), "200")
	seedPayment(t, db, customer.ID, day(2), "50")

	statement, err := svc.Statement(context.Background(), customer.ID, nil, nil)
	require.NoError(t, err)
	require.Len(t, statement.Lines, 3)

	assert.Equal(t, "2026-03-01", statement.Lines[0].Date.Format("2006-01-02"))
	assert.Equal(t, "200.00", statement.Lines[0].Balance.StringFixed(2))
	assert.Equal(t, "2026-03-02", statement.Lines[1].Date.Format("2006-01-02"))
	assert.Equal(t, "150.00", statement.Lines[1].Balance.StringFixed(2))
	assert.Equal(t, "2026-03-03", statement.Lines[2].Date.Format("2006-01-02"))
	assert.Equal(t, "250.00", statement.Lines[2].Balance.StringFixed(2))
}

func TestStatementDateBoundsSpareAdvances(t *testing.T) {
	svc, db, customer := newTestLedger(t)

	seedEntry(t, db, customer.ID, day(1), "500")
	seedEntry(t, db, customer.ID, day(20), "700")
	// Advance predates the window but its outstanding still counts.
	seedAdvance(t, db, customer.ID, day(1), "100", day(1))

	from, to := day(10), day(25)
	statement, err := svc.Statement(context.Background(), customer.ID, &from, &to)
	require.NoError(t, err)

	assert.Equal(t, "700.00", statement.Summary.TotalMilkAmount.StringFixed(2))
	assert.Equal(t, "100.00", statement.Summary.TotalAdvanceOutstanding.StringFixed(2))
	assert.Equal(t, "600.00", statement.Summary.ClosingBalance.StringFixed(2))
}

func TestStatementIdempotent(t *testing.T) {
	svc, db, customer := newTestLedger(t)

	seedEntry(t, db, customer.ID, day(1), "600")
	seedPayment(t, db, customer.ID, day(2), "100")
	seedAdvance(t, db, customer.ID, day(1), "50", day(1))

	first, err := svc.Statement(context.Background(), customer.ID, nil, nil)
	require.NoError(t, err)
	second, err := svc.Statement(context.Background(), customer.ID, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestApplyPaymentFullyAbsorbedByAdvances(t *testing.T) {
	svc, db, customer := newTestLedger(t)
	ctx := context.Background()

	a1 := seedAdvance(t, db, customer.ID, day(1), "100", day(1))
	a2 := seedAdvance(t, db, customer.ID, day(2), "200", day(2))

	result, err := svc.ApplyPayment(ctx, PaymentRequest{
		CustomerID: customer.ID,
		Date:       day(5),
		Amount:     decimal.RequireFromString("150"),
		UseAdvance: true,
	})
	require.NoError(t, err)

	// Whole amount absorbed: no payment row at all.
	assert.Nil(t, result.Payment)
	assert.Equal(t, "150.00", result.AdvanceUsed.StringFixed(2))

	var got models.Advance
	require.NoError(t, db.First(&got, "id = ?", a1.ID).Error)
	assert.Equal(t, models.AdvanceUtilized, got.Status)
	assert.Equal(t, "100.00", got.UtilizedAmount.StringFixed(2))

	got = models.Advance{}
	require.NoError(t, db.First(&got, "id = ?", a2.ID).Error)
	assert.Equal(t, models.AdvanceActive, got.Status)
	assert.Equal(t, "50.00", got.UtilizedAmount.StringFixed(2))

	var paymentCount int64
	require.NoError(t, db.Model(&models.Payment{}).Count(&paymentCount).Error)
	assert.Zero(t, paymentCount)
}

func TestApplyPaymentResidualCreatesAnnotatedPayment(t *testing.T) {
	svc, db, customer := newTestLedger(t)
	ctx := context.Background()

	seedAdvance(t, db, customer.ID, day(1), "100", day(1))
	seedAdvance(t, db, customer.ID, day(2), "200", day(2))

	result, err := svc.ApplyPayment(ctx, PaymentRequest{
		CustomerID: customer.ID,
		Date:       day(5),
		Amount:     decimal.RequireFromString("350"),
		Mode:       "UPI",
		UseAdvance: true,
	})
	require.NoError(t, err)

	assert.Equal(t, "300.00", result.AdvanceUsed.StringFixed(2))
	require.NotNil(t, result.Payment)
	assert.Equal(t, "50.00", result.Payment.Amount.StringFixed(2))
	assert.Contains(t, result.Payment.Notes, "300.00 from advance")

	var advances []models.Advance
	require.NoError(t, db.Order("created_at ASC").Find(&advances).Error)
	for _, a := range advances {
		assert.Equal(t, models.AdvanceUtilized, a.Status)
		assert.True(t, a.UtilizedAmount.Equal(a.Amount))
	}
}

func TestApplyPaymentWithoutAdvanceFlag(t *testing.T) {
	svc, db, customer := newTestLedger(t)

	advance := seedAdvance(t, db, customer.ID, day(1), "100", day(1))

	result, err := svc.ApplyPayment(context.Background(), PaymentRequest{
		CustomerID: customer.ID,
		Date:       day(5),
		Amount:     decimal.RequireFromString("80"),
	})
	require.NoError(t, err)

	require.NotNil(t, result.Payment)
	assert.Equal(t, "80.00", result.Payment.Amount.StringFixed(2))
	assert.True(t, result.AdvanceUsed.IsZero())
	assert.Equal(t, "CASH", result.Payment.Mode)

	var got models.Advance
	require.NoError(t, db.First(&got, "id = ?", advance.ID).Error)
	assert.True(t, got.UtilizedAmount.IsZero())
	assert.Equal(t, models.AdvanceActive, got.Status)
}

func TestApplyPaymentUseAdvanceWithNoActiveAdvances(t *testing.T) {
	svc, _, customer := newTestLedger(t)

	result, err := svc.ApplyPayment(context.Background(), PaymentRequest{
		CustomerID: customer.ID,
		Date:       day(5),
		Amount:     decimal.RequireFromString("120"),
		UseAdvance: true,
	})
	require.NoError(t, err)

	require.NotNil(t, result.Payment)
	assert.Equal(t, "120.00", result.Payment.Amount.StringFixed(2))
	assert.True(t, result.AdvanceUsed.IsZero())
}

func TestApplyPaymentValidation(t *testing.T) {
	svc, _, customer := newTestLedger(t)
	ctx := context.Background()

	_, err := svc.ApplyPayment(ctx, PaymentRequest{
		CustomerID: customer.ID,
		Amount:     decimal.Zero,
	})
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = svc.ApplyPayment(ctx, PaymentRequest{
		CustomerID: uuid.New(),
		Amount:     decimal.RequireFromString("10"),
	})
	assert.ErrorIs(t, err, ErrCustomerNotFound)
}

func TestConcurrentPaymentsNeverOverdrawAnAdvance(t *testing.T) {
	svc, db, customer := newTestLedger(t)
	ctx := context.Background()

	advance := seedAdvance(t, db, customer.ID, day(1), "100", day(1))

	// Two racing payments both want more than the advance holds. The
	// locked allocation must hand the pool to one of them; the other
	// sees only what is left.
	const racers = 2
	results := make([]*AllocationResult, racers)
	errs := make([]error, racers)

	var wg sync.WaitGroup
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = svc.ApplyPayment(ctx, PaymentRequest{
				CustomerID: customer.ID,
				Date:       day(5),
				Amount:     decimal.RequireFromString("80"),
				UseAdvance: true,
			})
		}(i)
	}
	wg.Wait()

	totalUsed := decimal.Zero
	for i := 0; i < racers; i++ {
		if errs[i] != nil {
			// A loser may give up after its retries; it must not have
			// touched the advance.
			require.ErrorIs(t, errs[i], ErrAllocationConflict)
			continue
		}
		totalUsed = totalUsed.Add(results[i].AdvanceUsed)
	}

	var got models.Advance
	require.NoError(t, db.First(&got, "id = ?", advance.ID).Error)
	assert.True(t, got.UtilizedAmount.LessThanOrEqual(got.Amount),
		"utilized %s exceeds advance amount %s", got.UtilizedAmount, got.Amount)
	assert.True(t, got.UtilizedAmount.Equal(totalUsed),
		"utilized %s does not match the sum of reported draws %s", got.UtilizedAmount, totalUsed)
	if got.UtilizedAmount.Equal(got.Amount) {
		assert.Equal(t, models.AdvanceUtilized, got.Status)
	}
}

func TestApplyPaymentGivesUpAfterRetriesOnLockErrors(t *testing.T) {
	svc, db, customer := newTestLedger(t)
	ctx := context.Background()

	// Every create from here on fails the way a busy sqlite does, so
	// all retries burn out.
	require.NoError(t, db.Callback().Create().Before("gorm:create").
		Register("test_lock_failure", func(tx *gorm.DB) {
			tx.AddError(errors.New("database is locked"))
		}))

	_, err := svc.ApplyPayment(ctx, PaymentRequest{
		CustomerID: customer.ID,
		Date:       day(5),
		Amount:     decimal.RequireFromString("50"),
	})
	require.ErrorIs(t, err, ErrAllocationConflict)

	var paymentCount int64
	require.NoError(t, db.Model(&models.Payment{}).Count(&paymentCount).Error)
	assert.Zero(t, paymentCount)
}

func TestApplyPaymentDoesNotRetryPermanentErrors(t *testing.T) {
	svc, db, customer := newTestLedger(t)

	require.NoError(t, db.Callback().Create().Before("gorm:create").
		Register("test_hard_failure", func(tx *gorm.DB) {
			tx.AddError(errors.New("constraint failed"))
		}))

	_, err := svc.ApplyPayment(context.Background(), PaymentRequest{
		CustomerID: customer.ID,
		Date:       day(5),
		Amount:     decimal.RequireFromString("50"),
	})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrAllocationConflict)
}

func TestStatementUnknownCustomer(t *testing.T) {
	svc, _, _ := newTestLedger(t)

	_, err := svc.Statement(context.Background(), uuid.New(), nil, nil)
	assert.ErrorIs(t, err, ErrCustomerNotFound)
}

func TestStatementSurvivesDeactivation(t *testing.T) {
	svc, db, customer := newTestLedger(t)

	seedEntry(t, db, customer.ID, day(1), "600")
	require.NoError(t, db.Model(customer).Update("is_active", false).Error)

	statement, err := svc.Statement(context.Background(), customer.ID, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "600.00", statement.Summary.ClosingBalance.StringFixed(2))
}

func TestAllocationLeavesUtilizedAdvancesAlone(t *testing.T) {
	svc, db, customer := newTestLedger(t)
	ctx := context.Background()

	spent := seedAdvance(t, db, customer.ID, day(1), "100", day(1))
	require.NoError(t, db.Model(spent).Updates(map[string]interface{}{
		"utilized_amount": decimal.RequireFromString("100"),
		"status":          models.AdvanceUtilized,
	}).Error)
	fresh := seedAdvance(t, db, customer.ID, day(2), "200", day(2))

	result, err := svc.ApplyPayment(ctx, PaymentRequest{
		CustomerID: customer.ID,
		Date:       day(5),
		Amount:     decimal.RequireFromString("150"),
		UseAdvance: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "150.00", result.AdvanceUsed.StringFixed(2))

	var got models.Advance
	require.NoError(t, db.First(&got, "id = ?", spent.ID).Error)
	assert.Equal(t, "100.00", got.UtilizedAmount.StringFixed(2))

	got = models.Advance{}
	require.NoError(t, db.First(&got, "id = ?", fresh.ID).Error)
	assert.Equal(t, "150.00", got.UtilizedAmount.StringFixed(2))
	assert.Equal(t, models.AdvanceActive, got.Status)
}
