package handler

import (
	"errors"
	"net/http"

	"dairy-collection-backend/internal/models"
	"dairy-collection-backend/internal/repository"
	"dairy-collection-backend/internal/services/rates"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type RateCardHandler struct {
	rateCards *repository.RateCardRepository
	settings  *repository.SettingRepository
	engine    *rates.Engine
}

func NewRateCardHandler(rateCards *repository.RateCardRepository, settings *repository.SettingRepository, engine *rates.Engine) *RateCardHandler {
	return &RateCardHandler{rateCards: rateCards, settings: settings, engine: engine}
}

func (h *RateCardHandler) List(c *gin.Context) {
	cards, err := h.rateCards.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch rate cards"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"rate_cards": cards})
}

func (h *RateCardHandler) Create(c *gin.Context) {
	var payload struct {
		MilkType     string          `json:"milk_type"`
		MinFat       *float64        `json:"min_fat"`
		MaxFat       *float64        `json:"max_fat"`
		MinSnf       *float64        `json:"min_snf"`
		MaxSnf       *float64        `json:"max_snf"`
		RatePerLitre decimal.Decimal `json:"rate_per_litre"`
	}
	if err := c.BindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	if payload.MilkType == "" || !payload.RatePerLitre.IsPositive() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "milk_type and a positive rate_per_litre are required"})
		return
	}

	card := &models.RateCard{
		ID:           uuid.New(),
		MilkType:     payload.MilkType,
		MinFat:       payload.MinFat,
		MaxFat:       payload.MaxFat,
		MinSnf:       payload.MinSnf,
		MaxSnf:       payload.MaxSnf,
		RatePerLitre: payload.RatePerLitre,
		IsActive:     true,
	}
	if err := h.rateCards.Create(c.Request.Context(), card); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create rate card"})
		return
	}

	h.engine.Invalidate()
	c.JSON(http.StatusCreated, gin.H{"rate_card": card})
}

func (h *RateCardHandler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid rate card ID"})
		return
	}

	var payload struct {
		MilkType     *string          `json:"milk_type"`
		MinFat       *float64         `json:"min_fat"`
		MaxFat       *float64         `json:"max_fat"`
		MinSnf       *float64         `json:"min_snf"`
		MaxSnf       *float64         `json:"max_snf"`
		RatePerLitre *decimal.Decimal `json:"rate_per_litre"`
		IsActive     *bool            `json:"is_active"`
	}
	if err := c.BindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	card, err := h.rateCards.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "rate card not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch rate card"})
		return
	}

	if payload.MilkType != nil {
		card.MilkType = *payload.MilkType
	}
	if payload.MinFat != nil {
		card.MinFat = payload.MinFat
	}
	if payload.MaxFat != nil {
		card.MaxFat = payload.MaxFat
	}
	if payload.MinSnf != nil {
		card.MinSnf = payload.MinSnf
	}
	if payload.MaxSnf != nil {
		card.MaxSnf = payload.MaxSnf
	}
	if payload.RatePerLitre != nil {
		card.RatePerLitre = *payload.RatePerLitre
	}
	if payload.IsActive != nil {
		card.IsActive = *payload.IsActive
	}

	if err := h.rateCards.Save(c.Request.Context(), card); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update rate card"})
		return
	}

	h.engine.Invalidate()
	c.JSON(http.StatusOK, gin.H{"rate_card": card})
}

func (h *RateCardHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid rate card ID"})
		return
	}
	if err := h.rateCards.Delete(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete rate card"})
		return
	}

	h.engine.Invalidate()
	c.JSON(http.StatusOK, gin.H{"message": "rate card deleted"})
}

// Preview answers "what would this sample pay right now".
func (h *RateCardHandler) Preview(c *gin.Context) {
	var payload struct {
		MilkType string  `json:"milk_type"`
		Fat      float64 `json:"fat"`
		Snf      float64 `json:"snf"`
	}
	if err := c.BindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	rate := h.engine.Rate(c.Request.Context(), payload.MilkType, payload.Fat, payload.Snf)
	c.JSON(http.StatusOK, gin.H{"rate_per_litre": rate, "matched": rate.IsPositive()})
}

// InvalidateCache force-drops the rate/settings cache, for operators
// who changed data out of band.
func (h *RateCardHandler) InvalidateCache(c *gin.Context) {
	h.engine.Invalidate()
	c.JSON(http.StatusOK, gin.H{"message": "rate cache invalidated"})
}

// SetSetting writes a key/value setting and drops the engine cache so
// the change is visible to the next lookup.
func (h *RateCardHandler) SetSetting(c *gin.Context) {
	var payload struct {
		Key   string `json:"key"`
		Value string `json:"value"`
	}
	if err := c.BindJSON(&payload); err != nil || payload.Key == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	if err := h.settings.Set(c.Request.Context(), payload.Key, payload.Value); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save setting"})
		return
	}

	h.engine.Invalidate()
	c.JSON(http.StatusOK, gin.H{"message": "setting saved"})
}
