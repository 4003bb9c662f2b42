package amcu

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"dairy-collection-backend/internal/events"
	"dairy-collection-backend/internal/models"
	"dairy-collection-backend/internal/repository"
	"dairy-collection-backend/internal/services/rates"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Service turns decoded packets into priced, persisted milk entries.
type Service struct {
	customers *repository.CustomerRepository
	entries   *repository.EntryRepository
	engine    *rates.Engine
	bus       *events.Bus
	db        *gorm.DB
	log       *zap.Logger
}

func NewService(
	customers *repository.CustomerRepository,
	entries *repository.EntryRepository,
	engine *rates.Engine,
	bus *events.Bus,
	log *zap.Logger,
) *Service {
	return &Service{
		customers: customers,
		entries:   entries,
		engine:    engine,
		bus:       bus,
		db:        customers.DB(),
		log:       log.Named("amcu"),
	}
}

// IngestFields parses a raw field map straight off the decoder, ingests
// it, and records the raw packet in the audit log. Failures are
// per-packet: the caller keeps feeding the stream.
func (s *Service) IngestFields(ctx context.Context, fields Fields) (*models.MilkEntry, error) {
	packet, err := ParsePacket(fields, time.Now())
	if err != nil {
		s.logPacket(ctx, fields, false, err.Error())
		s.bus.Publish(events.TypeDecoderError, events.DecoderError{
			Reason:    err.Error(),
			RawPacket: fields,
		})
		return nil, err
	}

	entry, err := s.Ingest(ctx, packet, models.SourceAMCU)
	if err != nil {
		s.logPacket(ctx, fields, false, err.Error())
		s.bus.Publish(events.TypeDecoderError, events.DecoderError{
			Reason:    err.Error(),
			RawPacket: fields,
		})
		return nil, err
	}

	s.logPacket(ctx, fields, true, "")
	return entry, nil
}

// Ingest prices and persists one pour. The entry row is the only write;
// event publication is fire-and-forget and can never roll it back.
func (s *Service) Ingest(ctx context.Context, p *Packet, source string) (*models.MilkEntry, error) {
	customer, err := s.customers.FindByAmcuID(ctx, p.CustomerExternalID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: amcu id %s", ErrCustomerNotFound, p.CustomerExternalID)
		}
		return nil, err
	}

	milkType := p.MilkType
	if milkType == "" {
		milkType = customer.MilkTypeDefault
	}
	if milkType == "" {
		milkType = "COW"
	}

	rate, amount, err := s.price(ctx, p, milkType)
	if err != nil {
		return nil, err
	}

	entry := &models.MilkEntry{
		ID:            uuid.New(),
		CustomerID:    customer.ID,
		Date:          p.Date,
		Time:          p.Time,
		Shift:         p.Shift,
		MilkType:      milkType,
		QuantityLitre: p.QuantityLitre,
		Fat:           p.Fat,
		Snf:           p.Snf,
		Clr:           p.Clr,
		RatePerLitre:  rate,
		Amount:        amount,
		Source:        source,
	}

	if err := s.entries.Create(ctx, entry); err != nil {
		return nil, err
	}

	s.log.Info("entry created",
		zap.String("entry_id", entry.ID.String()),
		zap.String("customer", p.CustomerExternalID),
		zap.Float64("qty", p.QuantityLitre),
		zap.String("amount", amount.String()),
		zap.String("source", source))

	s.bus.Publish(events.TypeEntryCreated, entry)
	return entry, nil
}

// ManualEntry is an operator-keyed pour, bypassing the decoder but not
// the pricing or validation rules.
type ManualEntry struct {
	CustomerID    uuid.UUID
	Date          time.Time
	Time          string
	Shift         string
	MilkType      string
	QuantityLitre float64
	Fat           *float64
	Snf           *float64
	Clr           *float64
	Amount        *decimal.Decimal
}

func (s *Service) IngestManual(ctx context.Context, m ManualEntry) (*models.MilkEntry, error) {
	customer, err := s.customers.GetByID(ctx, m.CustomerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCustomerNotFound
		}
		return nil, err
	}
	if !customer.IsActive {
		return nil, ErrCustomerNotFound
	}
	if m.QuantityLitre <= 0 {
		return nil, fmt.Errorf("%w: quantity", ErrBadField)
	}

	p := &Packet{
		CustomerExternalID: customer.AmcuCustomerID,
		QuantityLitre:      m.QuantityLitre,
		Fat:                m.Fat,
		Snf:                m.Snf,
		Clr:                m.Clr,
		Amount:             m.Amount,
		Shift:              m.Shift,
		MilkType:           m.MilkType,
		Date:               m.Date,
		Time:               m.Time,
	}
	if p.Shift == "" {
		if time.Now().Hour() < 12 {
			p.Shift = models.ShiftMorning
		} else {
			p.Shift = models.ShiftEvening
		}
	}
	if p.Date.IsZero() {
		now := time.Now()
		p.Date = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	}
	if p.Time == "" {
		p.Time = time.Now().Format("15:04:05")
	}

	return s.Ingest(ctx, p, models.SourceManual)
}

// price resolves the rate/amount pair. A device-supplied amount wins
// and the rate is derived from it; otherwise the rate engine prices the
// sample and a zero rate rejects the entry outright.
func (s *Service) price(ctx context.Context, p *Packet, milkType string) (decimal.Decimal, decimal.Decimal, error) {
	if p.Amount != nil {
		amount := p.Amount.Round(2)
		if !amount.IsPositive() {
			return decimal.Zero, decimal.Zero, ErrZeroAmount
		}
		return rates.RateFromAmount(amount, p.QuantityLitre), amount, nil
	}

	fat, snf := s.engine.Defaults(ctx)
	if p.Fat != nil {
		fat = *p.Fat
	}
	if p.Snf != nil {
		snf = *p.Snf
	}

	rate := s.engine.Rate(ctx, milkType, fat, snf)
	if !rate.IsPositive() {
		return decimal.Zero, decimal.Zero, fmt.Errorf("%w: %s fat=%.1f snf=%.1f",
			ErrRateUnavailable, milkType, fat, snf)
	}

	amount := rates.Amount(p.QuantityLitre, rate)
	if !amount.IsPositive() {
		return decimal.Zero, decimal.Zero, ErrZeroAmount
	}
	return rate, amount, nil
}

// RecentLogs returns the latest raw device traffic, newest first.
func (s *Service) RecentLogs(ctx context.Context, limit int) ([]models.AmcuLog, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var logs []models.AmcuLog
	err := s.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&logs).Error
	return logs, err
}

// logPacket records raw traffic for debugging. Failures here must never
// affect ingestion, so they are logged and swallowed.
func (s *Service) logPacket(ctx context.Context, fields Fields, parsedOK bool, errMsg string) {
	payload, _ := json.Marshal(fields)
	row := &models.AmcuLog{
		ID:           uuid.New(),
		RawText:      string(payload),
		Packet:       payload,
		ParsedOK:     parsedOK,
		ErrorMessage: errMsg,
	}
	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		s.log.Warn("failed to record amcu log", zap.Error(err))
	}
}
