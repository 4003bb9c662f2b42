package repository

import (
	"context"
	"testing"
	"time"

	"dairy-collection-backend/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newEntryTestDB(t *testing.T) (*EntryRepository, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Customer{}, &models.MilkEntry{}))
	return NewEntryRepository(db), db
}

func seedDayEntry(t *testing.T, db *gorm.DB, customerID uuid.UUID, date time.Time, shift string, qty float64, amount string) {
	t.Helper()
	require.NoError(t, db.Create(&models.MilkEntry{
		ID:            uuid.New(),
		CustomerID:    customerID,
		Date:          date,
		Time:          "06:00:00",
		Shift:         shift,
		MilkType:      "COW",
		QuantityLitre: qty,
		RatePerLitre:  decimal.RequireFromString("40"),
		Amount:        decimal.RequireFromString(amount),
		Source:        models.SourceAMCU,
	}).Error)
}

func TestTotalsCountEveryRowBeyondThePage(t *testing.T) {
	repo, db := newEntryTestDB(t)
	ctx := context.Background()
	customerID := uuid.New()
	date := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		seedDayEntry(t, db, customerID, date, models.ShiftMorning, 10, "400")
	}
	for i := 0; i < 3; i++ {
		seedDayEntry(t, db, customerID, date, models.ShiftEvening, 8, "320")
	}

	filter := EntryFilter{From: &date, To: &date}

	// A small page sees only part of the day.
	paged := filter
	paged.Limit = 2
	entries, total, err := repo.List(ctx, paged)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
	assert.EqualValues(t, 8, total)

	// The aggregates do not.
	totals, err := repo.Totals(ctx, filter)
	require.NoError(t, err)
	assert.EqualValues(t, 8, totals.Count)
	assert.InDelta(t, 74, totals.TotalQty, 1e-9)
	assert.InDelta(t, 50, totals.MorningQty, 1e-9)
	assert.InDelta(t, 24, totals.EveningQty, 1e-9)
	assert.Equal(t, "2960.00", totals.TotalAmount.StringFixed(2))
}

func TestTotalsEmptyDayIsZero(t *testing.T) {
	repo, _ := newEntryTestDB(t)

	date := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	totals, err := repo.Totals(context.Background(), EntryFilter{From: &date, To: &date})
	require.NoError(t, err)

	assert.Zero(t, totals.Count)
	assert.Zero(t, totals.TotalQty)
	assert.True(t, totals.TotalAmount.IsZero())
}

func TestTotalsHonoursFilter(t *testing.T) {
	repo, db := newEntryTestDB(t)
	ctx := context.Background()

	wanted := uuid.New()
	other := uuid.New()
	date := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	seedDayEntry(t, db, wanted, date, models.ShiftMorning, 10, "400")
	seedDayEntry(t, db, other, date, models.ShiftMorning, 99, "9900")

	totals, err := repo.Totals(ctx, EntryFilter{From: &date, To: &date, CustomerID: &wanted})
	require.NoError(t, err)
	assert.EqualValues(t, 1, totals.Count)
	assert.InDelta(t, 10, totals.TotalQty, 1e-9)
	assert.Equal(t, "400.00", totals.TotalAmount.StringFixed(2))
}
