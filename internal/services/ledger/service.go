package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"dairy-collection-backend/internal/models"
	"dairy-collection-backend/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrAllocationConflict surfaces after bounded retries when two
	// allocations raced over the same customer's advance pool.
	ErrAllocationConflict = errors.New("advance allocation conflict")
	ErrCustomerNotFound   = errors.New("customer not found")
	ErrInvalidAmount      = errors.New("payment amount must be positive")
)

const allocationRetries = 3

// Service computes passbook statements and settles payments against
// outstanding advances. Statements are derived on every read; no
// cached ledger state is authoritative.
type Service struct {
	entries   *repository.EntryRepository
	payments  *repository.PaymentRepository
	advances  *repository.AdvanceRepository
	customers *repository.CustomerRepository
	db        *gorm.DB
	log       *zap.Logger
}

func NewService(
	entries *repository.EntryRepository,
	payments *repository.PaymentRepository,
	advances *repository.AdvanceRepository,
	customers *repository.CustomerRepository,
	log *zap.Logger,
) *Service {
	return &Service{
		entries:   entries,
		payments:  payments,
		advances:  advances,
		customers: customers,
		db:        customers.DB(),
		log:       log.Named("ledger"),
	}
}

const (
	LineMilk    = "MILK"
	LinePayment = "PAYMENT"
	LineAdvance = "ADVANCE"
)

// Line is one passbook row. Never persisted, always recomputed.
type Line struct {
	SourceID    uuid.UUID       `json:"source_id"`
	Date        time.Time       `json:"date"`
	Type        string          `json:"type"`
	Description string          `json:"description"`
	Credit      decimal.Decimal `json:"credit"`
	Debit       decimal.Decimal `json:"debit"`
	Balance     decimal.Decimal `json:"balance"`
}

type Summary struct {
	TotalMilkQty            float64         `json:"total_milk_qty"`
	TotalMilkAmount         decimal.Decimal `json:"total_milk_amount"`
	TotalPayments           decimal.Decimal `json:"total_payments"`
	TotalAdvanceOutstanding decimal.Decimal `json:"total_advance_outstanding"`
	ClosingBalance          decimal.Decimal `json:"closing_balance"`
}

type Statement struct {
	Lines   []Line  `json:"lines"`
	Summary Summary `json:"summary"`
}

// Statement builds the running-balance passbook. Entries and payments
// are date-bounded; active advances always count in full at their
// undrawn amount, since their economic effect persists until drawn down.
func (s *Service) Statement(ctx context.Context, customerID uuid.UUID, from, to *time.Time) (*Statement, error) {
	// A statement for a customer who never existed is a caller error,
	// not an empty passbook. Deactivated customers keep theirs.
	if _, err := s.customers.GetByID(ctx, customerID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCustomerNotFound
		}
		return nil, err
	}

	entries, err := s.entries.ByCustomerBetween(ctx, customerID, from, to)
	if err != nil {
		return nil, err
	}
	payments, err := s.payments.ByCustomerBetween(ctx, customerID, from, to)
	if err != nil {
		return nil, err
	}
	advances, err := s.advances.ActiveByCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}

	summary := Summary{
		TotalMilkAmount:         decimal.Zero,
		TotalPayments:           decimal.Zero,
		TotalAdvanceOutstanding: decimal.Zero,
	}

	lines := make([]Line, 0, len(entries)+len(payments)+len(advances))
	for _, e := range entries {
		shift := "Morning"
		if e.Shift == models.ShiftEvening {
			shift = "Evening"
		}
		lines = append(lines, Line{
			SourceID:    e.ID,
			Date:        e.Date,
			Type:        LineMilk,
			Description: fmt.Sprintf("%s - %gL %s", shift, e.QuantityLitre, e.MilkType),
			Credit:      e.Amount,
			Debit:       decimal.Zero,
		})
		summary.TotalMilkQty += e.QuantityLitre
		summary.TotalMilkAmount = summary.TotalMilkAmount.Add(e.Amount)
	}
	for _, p := range payments {
		desc := p.Mode + " Payment"
		if p.Reference != "" {
			desc += " (" + p.Reference + ")"
		}
		lines = append(lines, Line{
			SourceID:    p.ID,
			Date:        p.Date,
			Type:        LinePayment,
			Description: desc,
			Credit:      decimal.Zero,
			Debit:       p.Amount,
		})
		summary.TotalPayments = summary.TotalPayments.Add(p.Amount)
	}
	for _, a := range advances {
		outstanding := a.Outstanding()
		lines = append(lines, Line{
			SourceID:    a.ID,
			Date:        a.Date,
			Type:        LineAdvance,
			Description: "Advance outstanding",
			Credit:      decimal.Zero,
			Debit:       outstanding,
		})
		summary.TotalAdvanceOutstanding = summary.TotalAdvanceOutstanding.Add(outstanding)
	}

	// Stable: same-day rows keep their insertion order, no further
	// tie-break is defined.
	sort.SliceStable(lines, func(i, j int) bool {
		return lines[i].Date.Before(lines[j].Date)
	})

	balance := decimal.Zero
	for i := range lines {
		balance = balance.Add(lines[i].Credit).Sub(lines[i].Debit)
		lines[i].Balance = balance
	}

	summary.ClosingBalance = summary.TotalMilkAmount.
		Sub(summary.TotalPayments).
		Sub(summary.TotalAdvanceOutstanding)

	return &Statement{Lines: lines, Summary: summary}, nil
}

// PaymentRequest settles cash against a customer's balance, optionally
// drawing down active advances first.
type PaymentRequest struct {
	CustomerID uuid.UUID
	Date       time.Time
	Amount     decimal.Decimal
	Mode       string
	Reference  string
	Note       string
	UseAdvance bool
}

// AllocationResult reports what ApplyPayment did. Payment is nil when
// the whole amount was absorbed by advances: the balance movement then
// lives entirely in the advances' utilized amounts.
type AllocationResult struct {
	Payment     *models.Payment `json:"payment"`
	AdvanceUsed decimal.Decimal `json:"advance_used"`
}

// ApplyPayment consumes active advances oldest-first (partial draws
// allowed), then records any residual as a Payment row. The whole
// allocation runs in one transaction with the advance rows locked, so
// two concurrent payments can never double-spend the same advance.
// Transient conflicts are retried a bounded number of times.
func (s *Service) ApplyPayment(ctx context.Context, req PaymentRequest) (*AllocationResult, error) {
	if !req.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if req.Mode == "" {
		req.Mode = "CASH"
	}
	if req.Date.IsZero() {
		now := time.Now()
		req.Date = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	}

	customer, err := s.customers.GetByID(ctx, req.CustomerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCustomerNotFound
		}
		return nil, err
	}
	if !customer.IsActive {
		return nil, ErrCustomerNotFound
	}

	var result *AllocationResult
	var lastErr error
	for attempt := 0; attempt < allocationRetries; attempt++ {
		result, lastErr = s.allocate(ctx, req)
		if lastErr == nil {
			return result, nil
		}
		if !isTransient(lastErr) {
			return nil, lastErr
		}
		s.log.Warn("allocation conflict, retrying",
			zap.String("customer_id", req.CustomerID.String()),
			zap.Int("attempt", attempt+1),
			zap.Error(lastErr))
		time.Sleep(time.Duration(attempt+1) * 25 * time.Millisecond)
	}
	return nil, fmt.Errorf("%w: %v", ErrAllocationConflict, lastErr)
}

func (s *Service) allocate(ctx context.Context, req PaymentRequest) (*AllocationResult, error) {
	result := &AllocationResult{AdvanceUsed: decimal.Zero}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		remaining := req.Amount

		if req.UseAdvance {
			query := tx.
				Where("customer_id = ? AND status = ?", req.CustomerID, models.AdvanceActive).
				Order("created_at ASC")
			// sqlite has no FOR UPDATE; its writer lock serializes anyway.
			if tx.Dialector.Name() == "postgres" {
				query = query.Clauses(clause.Locking{Strength: "UPDATE"})
			}

			var advances []models.Advance
			if err := query.Find(&advances).Error; err != nil {
				return err
			}

			for i := range advances {
				if !remaining.IsPositive() {
					break
				}
				adv := &advances[i]
				available := adv.Outstanding()
				if !available.IsPositive() {
					continue
				}

				take := decimal.Min(available, remaining)
				adv.UtilizedAmount = adv.UtilizedAmount.Add(take)
				if adv.UtilizedAmount.GreaterThanOrEqual(adv.Amount) {
					adv.Status = models.AdvanceUtilized
				}
				if err := tx.Save(adv).Error; err != nil {
					return err
				}

				result.AdvanceUsed = result.AdvanceUsed.Add(take)
				remaining = remaining.Sub(take)
			}
		}

		// Fully absorbed by advances: no payment row at all. The
		// advances' lower outstanding already reflects the settlement.
		if !remaining.IsPositive() && result.AdvanceUsed.IsPositive() {
			return nil
		}

		notes := req.Note
		if result.AdvanceUsed.IsPositive() {
			notes = strings.TrimSpace(fmt.Sprintf("%s (₹%s from advance)", req.Note, result.AdvanceUsed.StringFixed(2)))
		}

		payment := &models.Payment{
			ID:         uuid.New(),
			CustomerID: req.CustomerID,
			Date:       req.Date,
			Amount:     remaining,
			Mode:       req.Mode,
			Reference:  req.Reference,
			Notes:      notes,
		}
		if err := tx.Create(payment).Error; err != nil {
			return err
		}
		result.Payment = payment
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func isTransient(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "deadlock") ||
		strings.Contains(msg, "could not serialize") ||
		strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "lock timeout")
}
