package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"dairy-collection-backend/internal/repository"
	"dairy-collection-backend/internal/services/amcu"
	"dairy-collection-backend/internal/services/rates"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type EntryHandler struct {
	entries *repository.EntryRepository
	amcuSvc *amcu.Service
	engine  *rates.Engine
}

func NewEntryHandler(entries *repository.EntryRepository, amcuSvc *amcu.Service, engine *rates.Engine) *EntryHandler {
	return &EntryHandler{entries: entries, amcuSvc: amcuSvc, engine: engine}
}

func (h *EntryHandler) List(c *gin.Context) {
	filter, err := entryFilterFromQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	entries, total, err := h.entries.List(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch entries"})
		return
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}

	c.JSON(http.StatusOK, gin.H{
		"entries": entries,
		"pagination": gin.H{
			"page":  page,
			"limit": limit,
			"total": total,
			"pages": (total + int64(limit) - 1) / int64(limit),
		},
	})
}

// TodayStats aggregates today's pours for the dashboard.
func (h *EntryHandler) TodayStats(c *gin.Context) {
	day := time.Now()
	if raw := c.Query("date"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date, expected YYYY-MM-DD"})
			return
		}
		day = parsed
	}
	date := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())

	filter := repository.EntryFilter{From: &date, To: &date}

	// Totals run as a SUM over the whole day; the entry list below is
	// only the most recent page.
	totals, err := h.entries.Totals(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to aggregate entries"})
		return
	}

	filter.Limit = 1000
	entries, _, err := h.entries.List(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch entries"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"date":         date.Format("2006-01-02"),
		"entries":      entries,
		"count":        totals.Count,
		"total_qty":    totals.TotalQty,
		"total_amount": totals.TotalAmount,
		"morning_qty":  totals.MorningQty,
		"evening_qty":  totals.EveningQty,
	})
}

// CreateManual keys an entry by hand; it runs the same pricing and
// validation as device ingestion.
func (h *EntryHandler) CreateManual(c *gin.Context) {
	var payload struct {
		CustomerID    string           `json:"customer_id"`
		Date          string           `json:"date"`
		Time          string           `json:"time"`
		Shift         string           `json:"shift"`
		MilkType      string           `json:"milk_type"`
		QuantityLitre float64          `json:"quantity_litre"`
		Fat           *float64         `json:"fat"`
		Snf           *float64         `json:"snf"`
		Clr           *float64         `json:"clr"`
		Amount        *decimal.Decimal `json:"amount"`
	}
	if err := c.BindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	customerID, err := uuid.Parse(payload.CustomerID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid customer ID"})
		return
	}

	manual := amcu.ManualEntry{
		CustomerID:    customerID,
		Time:          payload.Time,
		Shift:         payload.Shift,
		MilkType:      payload.MilkType,
		QuantityLitre: payload.QuantityLitre,
		Fat:           payload.Fat,
		Snf:           payload.Snf,
		Clr:           payload.Clr,
		Amount:        payload.Amount,
	}
	if payload.Date != "" {
		date, err := time.Parse("2006-01-02", payload.Date)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date, expected YYYY-MM-DD"})
			return
		}
		manual.Date = date
	}

	entry, err := h.amcuSvc.IngestManual(c.Request.Context(), manual)
	if err != nil {
		respondIngestError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"entry": entry})
}

// Update is the explicit correction path. Quantity or quality changes
// re-derive the rate and amount unless a new amount is supplied
// directly.
func (h *EntryHandler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid entry ID"})
		return
	}

	var payload struct {
		Shift         *string          `json:"shift"`
		MilkType      *string          `json:"milk_type"`
		QuantityLitre *float64         `json:"quantity_litre"`
		Fat           *float64         `json:"fat"`
		Snf           *float64         `json:"snf"`
		Clr           *float64         `json:"clr"`
		Amount        *decimal.Decimal `json:"amount"`
	}
	if err := c.BindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	entry, err := h.entries.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "entry not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch entry"})
		return
	}

	if payload.Shift != nil {
		entry.Shift = *payload.Shift
	}
	if payload.MilkType != nil {
		entry.MilkType = *payload.MilkType
	}
	if payload.QuantityLitre != nil {
		if *payload.QuantityLitre <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "quantity must be positive"})
			return
		}
		entry.QuantityLitre = *payload.QuantityLitre
	}
	if payload.Fat != nil {
		entry.Fat = payload.Fat
	}
	if payload.Snf != nil {
		entry.Snf = payload.Snf
	}
	if payload.Clr != nil {
		entry.Clr = payload.Clr
	}

	if payload.Amount != nil {
		amount := payload.Amount.Round(2)
		if !amount.IsPositive() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "amount must be positive"})
			return
		}
		entry.Amount = amount
		entry.RatePerLitre = rates.RateFromAmount(amount, entry.QuantityLitre)
	} else {
		fat, snf := h.engine.Defaults(c.Request.Context())
		if entry.Fat != nil {
			fat = *entry.Fat
		}
		if entry.Snf != nil {
			snf = *entry.Snf
		}
		rate := h.engine.Rate(c.Request.Context(), entry.MilkType, fat, snf)
		if !rate.IsPositive() {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "no matching rate card for corrected values"})
			return
		}
		entry.RatePerLitre = rate
		entry.Amount = rates.Amount(entry.QuantityLitre, rate)
	}

	if err := h.entries.Save(c.Request.Context(), entry); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update entry"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"entry": entry})
}

func (h *EntryHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid entry ID"})
		return
	}
	if err := h.entries.Delete(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete entry"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "entry deleted"})
}

func entryFilterFromQuery(c *gin.Context) (repository.EntryFilter, error) {
	filter := repository.EntryFilter{
		Shift:    c.Query("shift"),
		MilkType: c.Query("milkType"),
		Source:   c.Query("source"),
	}

	from, to, err := parseDateRange(c.Query("from"), c.Query("to"))
	if err != nil {
		return filter, errors.New("invalid date, expected YYYY-MM-DD")
	}
	filter.From, filter.To = from, to

	if raw := c.Query("customerId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return filter, errors.New("invalid customer ID")
		}
		filter.CustomerID = &id
	}

	filter.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	filter.Limit, _ = strconv.Atoi(c.DefaultQuery("limit", "50"))
	return filter, nil
}

func respondIngestError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, amcu.ErrCustomerNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, amcu.ErrRateUnavailable):
		// Configuration defect: operators must fix the rate cards.
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error(), "code": "RATE_UNAVAILABLE"})
	case errors.Is(err, amcu.ErrZeroAmount),
		errors.Is(err, amcu.ErrMissingField),
		errors.Is(err, amcu.ErrBadField):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create entry"})
	}
}
