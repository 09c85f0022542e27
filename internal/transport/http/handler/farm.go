package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"dairydesk/internal/app"
	"dairydesk/internal/transport/http/middleware"
	"dairydesk/internal/transport/http/response"
)

const dateLayout = "2006-01-02"

// FarmHandler exposes the customer, milk-collection, and payment CRUD
// routes. All routes run behind AuthJWT; records are scoped to the
// authenticated owner.
type FarmHandler struct {
	farmService *app.FarmService
}

func NewFarmHandler(farmService *app.FarmService) *FarmHandler {
	return &FarmHandler{farmService: farmService}
}

type customerRequest struct {
	Name    string `json:"name" binding:"required,max=100"`
	Phone   string `json:"phone" binding:"max=15"`
	Address string `json:"address"`
}

type customerUpdateRequest struct {
	Name    *string `json:"name"`
	Phone   *string `json:"phone"`
	Address *string `json:"address"`
}

func (h *FarmHandler) AddCustomer(c *gin.Context) {
	var req customerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	customer, err := h.farmService.AddCustomer(c.Request.Context(), currentUserID(c), app.CustomerInput{
		Name:    req.Name,
		Phone:   req.Phone,
		Address: req.Address,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, customer)
}

func (h *FarmHandler) ListCustomers(c *gin.Context) {
	customers, err := h.farmService.ListCustomers(c.Request.Context(), currentUserID(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, customers)
}

func (h *FarmHandler) UpdateCustomer(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req customerUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	customer, err := h.farmService.UpdateCustomer(c.Request.Context(), currentUserID(c), id, app.CustomerUpdateInput{
		Name:    req.Name,
		Phone:   req.Phone,
		Address: req.Address,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, customer)
}

func (h *FarmHandler) DeleteCustomer(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.farmService.DeleteCustomer(c.Request.Context(), currentUserID(c), id); err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, gin.H{"deleted": id})
}

type milkRequest struct {
	CustomerID    uint    `json:"customer_id" binding:"required"`
	Date          string  `json:"date" binding:"required"`
	Quantity      float64 `json:"quantity" binding:"required,gt=0"`
	Fat           float64 `json:"fat"`
	PricePerLitre float64 `json:"price_per_litre"`
	TotalPrice    float64 `json:"total_price"`
}

type milkUpdateRequest struct {
	Date          *string  `json:"date"`
	Quantity      *float64 `json:"quantity"`
	Fat           *float64 `json:"fat"`
	PricePerLitre *float64 `json:"price_per_litre"`
	TotalPrice    *float64 `json:"total_price"`
}

func (h *FarmHandler) AddMilkRecord(c *gin.Context) {
	var req milkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}
	date, err := time.Parse(dateLayout, req.Date)
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "date must be YYYY-MM-DD")
		return
	}

	record, err := h.farmService.AddMilkRecord(c.Request.Context(), currentUserID(c), app.MilkInput{
		CustomerID:    req.CustomerID,
		Date:          date,
		Quantity:      req.Quantity,
		Fat:           req.Fat,
		PricePerLitre: req.PricePerLitre,
		TotalPrice:    req.TotalPrice,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, record)
}

func (h *FarmHandler) ListMilkRecords(c *gin.Context) {
	records, err := h.farmService.ListMilkRecords(currentUserID(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, records)
}

func (h *FarmHandler) UpdateMilkRecord(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req milkUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	input := app.MilkUpdateInput{
		Quantity:      req.Quantity,
		Fat:           req.Fat,
		PricePerLitre: req.PricePerLitre,
		TotalPrice:    req.TotalPrice,
	}
	if req.Date != nil {
		date, err := time.Parse(dateLayout, *req.Date)
		if err != nil {
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "date must be YYYY-MM-DD")
			return
		}
		input.Date = &date
	}

	record, err := h.farmService.UpdateMilkRecord(currentUserID(c), id, input)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, record)
}

func (h *FarmHandler) DeleteMilkRecord(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.farmService.DeleteMilkRecord(currentUserID(c), id); err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, gin.H{"deleted": id})
}

type paymentRequest struct {
	CustomerID  uint    `json:"customer_id" binding:"required"`
	AmountPaid  float64 `json:"amount_paid" binding:"required,gt=0"`
	Date        string  `json:"date" binding:"required"`
	PaymentMode string  `json:"payment_mode"`
}

type paymentUpdateRequest struct {
	AmountPaid  *float64 `json:"amount_paid"`
	Date        *string  `json:"date"`
	PaymentMode *string  `json:"payment_mode"`
}

func (h *FarmHandler) AddPayment(c *gin.Context) {
	var req paymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}
	date, err := time.Parse(dateLayout, req.Date)
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "date must be YYYY-MM-DD")
		return
	}

	payment, err := h.farmService.AddPayment(c.Request.Context(), currentUserID(c), app.PaymentInput{
		CustomerID:  req.CustomerID,
		AmountPaid:  req.AmountPaid,
		Date:        date,
		PaymentMode: req.PaymentMode,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, payment)
}

func (h *FarmHandler) ListPayments(c *gin.Context) {
	payments, err := h.farmService.ListPayments(currentUserID(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, payments)
}

func (h *FarmHandler) UpdatePayment(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req paymentUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	input := app.PaymentUpdateInput{
		AmountPaid:  req.AmountPaid,
		PaymentMode: req.PaymentMode,
	}
	if req.Date != nil {
		date, err := time.Parse(dateLayout, *req.Date)
		if err != nil {
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "date must be YYYY-MM-DD")
			return
		}
		input.Date = &date
	}

	payment, err := h.farmService.UpdatePayment(currentUserID(c), id, input)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, payment)
}

func (h *FarmHandler) DeletePayment(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.farmService.DeletePayment(currentUserID(c), id); err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, gin.H{"deleted": id})
}

func (h *FarmHandler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, app.ErrInvalidInput):
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
	case errors.Is(err, app.ErrCustomerNotFound),
		errors.Is(err, app.ErrMilkNotFound),
		errors.Is(err, app.ErrPaymentNotFound):
		response.Error(c, http.StatusNotFound, response.CodeNotFound, err.Error())
	default:
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "request failed")
	}
}

func currentUserID(c *gin.Context) uint {
	return c.GetUint(middleware.ContextUserIDKey)
}

func pathID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid id")
		return 0, false
	}
	return uint(id), true
}
