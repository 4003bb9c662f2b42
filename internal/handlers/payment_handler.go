package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"dairy-collection-backend/internal/repository"
	"dairy-collection-backend/internal/services/ledger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type PaymentHandler struct {
	payments *repository.PaymentRepository
	ledger   *ledger.Service
}

func NewPaymentHandler(payments *repository.PaymentRepository, ledgerSvc *ledger.Service) *PaymentHandler {
	return &PaymentHandler{payments: payments, ledger: ledgerSvc}
}

func (h *PaymentHandler) List(c *gin.Context) {
	filter := repository.PaymentFilter{Mode: c.Query("mode")}

	from, to, err := parseDateRange(c.Query("from"), c.Query("to"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date, expected YYYY-MM-DD"})
		return
	}
	filter.From, filter.To = from, to

	if raw := c.Query("customerId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid customer ID"})
			return
		}
		filter.CustomerID = &id
	}
	filter.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	filter.Limit, _ = strconv.Atoi(c.DefaultQuery("limit", "50"))

	payments, total, err := h.payments.List(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch payments"})
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
		"payments": payments,
		"pagination": gin.H{
			"page":  page,
			"limit": limit,
			"total": total,
			"pages": (total + int64(limit) - 1) / int64(limit),
		},
	})
}

// Create settles a payment, optionally drawing down advances first.
// When advances absorb the full amount no payment row is created; the
// response then carries a nil payment and the advance_used total.
func (h *PaymentHandler) Create(c *gin.Context) {
	var payload struct {
		CustomerID string          `json:"customer_id"`
		Date       string          `json:"date"`
		Amount     decimal.Decimal `json:"amount"`
		Mode       string          `json:"mode"`
		Reference  string          `json:"reference"`
		Note       string          `json:"note"`
		UseAdvance bool            `json:"use_advance"`
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

	req := ledger.PaymentRequest{
		CustomerID: customerID,
		Amount:     payload.Amount,
		Mode:       payload.Mode,
		Reference:  payload.Reference,
		Note:       payload.Note,
		UseAdvance: payload.UseAdvance,
	}
	if payload.Date != "" {
		date, err := time.Parse("2006-01-02", payload.Date)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date, expected YYYY-MM-DD"})
			return
		}
		req.Date = date
	}

	result, err := h.ledger.ApplyPayment(c.Request.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, ledger.ErrCustomerNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "customer not found"})
		case errors.Is(err, ledger.ErrInvalidAmount):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, ledger.ErrAllocationConflict):
			c.JSON(http.StatusConflict, gin.H{"error": "concurrent allocation, please retry"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to record payment"})
		}
		return
	}

	message := "Payment recorded successfully."
	if result.AdvanceUsed.IsPositive() {
		message = "Payment recorded. ₹" + result.AdvanceUsed.StringFixed(2) + " deducted from advance."
	}
	c.JSON(http.StatusCreated, gin.H{
		"payment":      result.Payment,
		"advance_used": result.AdvanceUsed,
		"message":      message,
	})
}

func (h *PaymentHandler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payment ID"})
		return
	}

	var payload struct {
		Date      *string          `json:"date"`
		Amount    *decimal.Decimal `json:"amount"`
		Mode      *string          `json:"mode"`
		Reference *string          `json:"reference"`
		Note      *string          `json:"note"`
	}
	if err := c.BindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	payment, err := h.payments.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "payment not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch payment"})
		return
	}

	if payload.Date != nil {
		date, err := time.Parse("2006-01-02", *payload.Date)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date, expected YYYY-MM-DD"})
			return
		}
		payment.Date = date
	}
	if payload.Amount != nil {
		if !payload.Amount.IsPositive() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "amount must be positive"})
			return
		}
		payment.Amount = payload.Amount.Round(2)
	}
	if payload.Mode != nil {
		payment.Mode = *payload.Mode
	}
	if payload.Reference != nil {
		payment.Reference = *payload.Reference
	}
	if payload.Note != nil {
		payment.Notes = *payload.Note
	}

	if err := h.payments.Save(c.Request.Context(), payment); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update payment"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"payment": payment})
}

func (h *PaymentHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payment ID"})
		return
	}
	if err := h.payments.Delete(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete payment"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "payment deleted"})
}
