package handler

import (
	"errors"
	"net/http"
	"time"

	"dairy-collection-backend/internal/models"
	"dairy-collection-backend/internal/repository"
	"dairy-collection-backend/internal/services/ledger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CustomerHandler struct {
	customers *repository.CustomerRepository
	ledger    *ledger.Service
}

func NewCustomerHandler(customers *repository.CustomerRepository, ledgerSvc *ledger.Service) *CustomerHandler {
	return &CustomerHandler{customers: customers, ledger: ledgerSvc}
}

func (h *CustomerHandler) List(c *gin.Context) {
	activeOnly := c.Query("active") != "false"
	customers, err := h.customers.List(c.Request.Context(), c.Query("search"), activeOnly)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch customers"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"customers": customers})
}

func (h *CustomerHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid customer ID"})
		return
	}

	customer, err := h.customers.GetByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "customer not found"})
		return
	}

	statement, err := h.ledger.Statement(c.Request.Context(), id, nil, nil)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to compute balance"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"customer": customer, "summary": statement.Summary})
}

func (h *CustomerHandler) Create(c *gin.Context) {
	var payload struct {
		AmcuCustomerID  string `json:"amcu_customer_id"`
		Name            string `json:"name"`
		Phone           string `json:"phone"`
		Address         string `json:"address"`
		MilkTypeDefault string `json:"milk_type_default"`
	}
	if err := c.BindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	if payload.AmcuCustomerID == "" || payload.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "amcu_customer_id and name are required"})
		return
	}
	if payload.MilkTypeDefault == "" {
		payload.MilkTypeDefault = "COW"
	}

	customer := &models.Customer{
		ID:              uuid.New(),
		AmcuCustomerID:  payload.AmcuCustomerID,
		Name:            payload.Name,
		Phone:           payload.Phone,
		Address:         payload.Address,
		MilkTypeDefault: payload.MilkTypeDefault,
		IsActive:        true,
	}
	if err := h.customers.Create(c.Request.Context(), customer); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "customer with this AMCU ID already exists"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"customer": customer})
}

// Update applies only the supplied fields; absent keys are no-ops.
func (h *CustomerHandler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid customer ID"})
		return
	}

	var payload struct {
		Name            *string `json:"name"`
		Phone           *string `json:"phone"`
		Address         *string `json:"address"`
		MilkTypeDefault *string `json:"milk_type_default"`
		IsActive        *bool   `json:"is_active"`
	}
	if err := c.BindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	customer, err := h.customers.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "customer not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch customer"})
		return
	}

	if payload.Name != nil {
		customer.Name = *payload.Name
	}
	if payload.Phone != nil {
		customer.Phone = *payload.Phone
	}
	if payload.Address != nil {
		customer.Address = *payload.Address
	}
	if payload.MilkTypeDefault != nil {
		customer.MilkTypeDefault = *payload.MilkTypeDefault
	}
	if payload.IsActive != nil {
		customer.IsActive = *payload.IsActive
	}

	if err := h.customers.Save(c.Request.Context(), customer); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update customer"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"customer": customer})
}

func (h *CustomerHandler) Deactivate(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid customer ID"})
		return
	}
	if err := h.customers.Deactivate(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to deactivate customer"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "customer deactivated"})
}

// Passbook returns the derived statement with running balances.
func (h *CustomerHandler) Passbook(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid customer ID"})
		return
	}

	from, to, err := parseDateRange(c.Query("from"), c.Query("to"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date, expected YYYY-MM-DD"})
		return
	}

	statement, err := h.ledger.Statement(c.Request.Context(), id, from, to)
	if err != nil {
		if errors.Is(err, ledger.ErrCustomerNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "customer not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to build passbook"})
		return
	}
	c.JSON(http.StatusOK, statement)
}

func parseDateRange(fromRaw, toRaw string) (*time.Time, *time.Time, error) {
	var from, to *time.Time
	if fromRaw != "" {
		parsed, err := time.Parse("2006-01-02", fromRaw)
		if err != nil {
			return nil, nil, err
		}
		from = &parsed
	}
	if toRaw != "" {
		parsed, err := time.Parse("2006-01-02", toRaw)
		if err != nil {
			return nil, nil, err
		}
		to = &parsed
	}
	return from, to, nil
}
