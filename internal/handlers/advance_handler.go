package handler

import (
	"errors"
	"net/http"
	"time"

	"dairy-collection-backend/internal/models"
	"dairy-collection-backend/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type AdvanceHandler struct {
	advances  *repository.AdvanceRepository
	customers *repository.CustomerRepository
}

func NewAdvanceHandler(advances *repository.AdvanceRepository, customers *repository.CustomerRepository) *AdvanceHandler {
	return &AdvanceHandler{advances: advances, customers: customers}
}

func (h *AdvanceHandler) List(c *gin.Context) {
	var customerID *uuid.UUID
	if raw := c.Query("customerId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid customer ID"})
			return
		}
		customerID = &id
	}

	advances, err := h.advances.List(c.Request.Context(), customerID, c.Query("status"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch advances"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"advances": advances})
}

func (h *AdvanceHandler) Create(c *gin.Context) {
	var payload struct {
		CustomerID string          `json:"customer_id"`
		Amount     decimal.Decimal `json:"amount"`
		Date       string          `json:"date"`
		Note       string          `json:"note"`
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
	if !payload.Amount.IsPositive() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount must be positive"})
		return
	}

	if _, err := h.customers.GetByID(c.Request.Context(), customerID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "customer not found"})
		return
	}

	date := time.Now()
	if payload.Date != "" {
		parsed, err := time.Parse("2006-01-02", payload.Date)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date, expected YYYY-MM-DD"})
			return
		}
		date = parsed
	}

	advance := &models.Advance{
		ID:             uuid.New(),
		CustomerID:     customerID,
		Date:           time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location()),
		Amount:         payload.Amount.Round(2),
		UtilizedAmount: decimal.Zero,
		Status:         models.AdvanceActive,
		Note:           payload.Note,
	}
	if err := h.advances.Create(c.Request.Context(), advance); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create advance"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"advance": advance})
}

// Update adjusts note or amount. The amount can never drop below what
// has already been drawn down.
func (h *AdvanceHandler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid advance ID"})
		return
	}

	var payload struct {
		Amount *decimal.Decimal `json:"amount"`
		Note   *string          `json:"note"`
	}
	if err := c.BindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	advance, err := h.advances.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "advance not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch advance"})
		return
	}

	if payload.Amount != nil {
		amount := payload.Amount.Round(2)
		if amount.LessThan(advance.UtilizedAmount) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "amount cannot be below utilized amount"})
			return
		}
		advance.Amount = amount
		if advance.UtilizedAmount.GreaterThanOrEqual(advance.Amount) {
			advance.Status = models.AdvanceUtilized
		} else {
			advance.Status = models.AdvanceActive
		}
	}
	if payload.Note != nil {
		advance.Note = *payload.Note
	}

	if err := h.advances.Save(c.Request.Context(), advance); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update advance"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"advance": advance})
}

// Delete removes an advance only while nothing has been drawn from it;
// a partially consumed advance is part of the settlement history.
func (h *AdvanceHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid advance ID"})
		return
	}

	advance, err := h.advances.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "advance not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch advance"})
		return
	}
	if advance.UtilizedAmount.IsPositive() {
		c.JSON(http.StatusConflict, gin.H{"error": "cannot delete a partially utilized advance"})
		return
	}

	if err := h.advances.Delete(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete advance"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "advance deleted"})
}
