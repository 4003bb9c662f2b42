package rates

import (
	"context"
	"strconv"
	"sync"
	"time"

	"dairy-collection-backend/internal/models"
	"dairy-collection-backend/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	// DefaultTTL bounds how stale a cached rate card can be served.
	DefaultTTL = 60 * time.Second

	defaultFat = 4.0
	defaultSnf = 8.5
)

// Engine resolves the price per litre for a (milkType, fat, snf) sample
// from the active rate cards. Cards and settings are cached together
// with a TTL; any rate-card write must call Invalidate.
type Engine struct {
	cards    *repository.RateCardRepository
	settings *repository.SettingRepository
	log      *zap.Logger
	ttl      time.Duration

	mu            sync.RWMutex
	cachedCards   []models.RateCard
	cachedConfig  map[string]string
	cacheDeadline time.Time
}

func NewEngine(cards *repository.RateCardRepository, settings *repository.SettingRepository, log *zap.Logger) *Engine {
	return &Engine{
		cards:    cards,
		settings: settings,
		log:      log.Named("rates"),
		ttl:      DefaultTTL,
	}
}

// Rate returns the first matching card's rate, or zero when no active
// card covers the sample. Zero is a sentinel: callers decide whether a
// missing rate is fatal. A failed or timed-out load also yields zero
// (fail closed, never price milk on a guess).
func (e *Engine) Rate(ctx context.Context, milkType string, fat, snf float64) decimal.Decimal {
	cards, _, err := e.snapshot(ctx)
	if err != nil {
		e.log.Warn("rate card load failed, failing closed", zap.Error(err))
		return decimal.Zero
	}

	for i := range cards {
		card := &cards[i]
		if card.MilkType != milkType {
			continue
		}
		if card.MinFat != nil && fat < *card.MinFat {
			continue
		}
		if card.MaxFat != nil && fat >= *card.MaxFat {
			continue
		}
		if card.MinSnf != nil && snf < *card.MinSnf {
			continue
		}
		if card.MaxSnf != nil && snf >= *card.MaxSnf {
			continue
		}
		return card.RatePerLitre
	}

	e.log.Warn("no matching rate card",
		zap.String("milk_type", milkType),
		zap.Float64("fat", fat),
		zap.Float64("snf", snf))
	return decimal.Zero
}

// Amount prices a quantity at a rate, rounded half-up to two decimals.
// All currency math in the system goes through this rounding so the
// ledger never drifts.
func Amount(quantityLitre float64, rate decimal.Decimal) decimal.Decimal {
	return decimal.NewFromFloat(quantityLitre).Mul(rate).Round(2)
}

// RateFromAmount derives the effective rate when the device supplied
// the amount directly.
func RateFromAmount(amount decimal.Decimal, quantityLitre float64) decimal.Decimal {
	if quantityLitre == 0 {
		return decimal.Zero
	}
	return amount.Div(decimal.NewFromFloat(quantityLitre)).Round(2)
}

// Defaults returns the fat/snf assumed when the device sends no quality
// readings, from settings keys default_fat / default_snf.
func (e *Engine) Defaults(ctx context.Context) (fat, snf float64) {
	fat, snf = defaultFat, defaultSnf

	_, settings, err := e.snapshot(ctx)
	if err != nil {
		return fat, snf
	}
	if v, ok := settings["default_fat"]; ok {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			fat = parsed
		}
	}
	if v, ok := settings["default_snf"]; ok {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			snf = parsed
		}
	}
	return fat, snf
}

// Invalidate drops the cache so the next lookup reloads. Called on
// every rate-card or settings write.
func (e *Engine) Invalidate() {
	e.mu.Lock()
	e.cachedCards = nil
	e.cachedConfig = nil
	e.cacheDeadline = time.Time{}
	e.mu.Unlock()
}

func (e *Engine) snapshot(ctx context.Context) ([]models.RateCard, map[string]string, error) {
	e.mu.RLock()
	if !e.cacheDeadline.IsZero() && time.Now().Before(e.cacheDeadline) {
		cards, settings := e.cachedCards, e.cachedConfig
		e.mu.RUnlock()
		return cards, settings, nil
	}
	e.mu.RUnlock()

	cards, err := e.cards.ActiveCards(ctx)
	if err != nil {
		return nil, nil, err
	}
	settings, err := e.settings.All(ctx)
	if err != nil {
		return nil, nil, err
	}

	e.mu.Lock()
	e.cachedCards = cards
	e.cachedConfig = settings
	e.cacheDeadline = time.Now().Add(e.ttl)
	e.mu.Unlock()

	return cards, settings, nil
}
