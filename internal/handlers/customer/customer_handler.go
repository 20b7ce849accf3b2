// internal/handlers/customer/customer_handler.go
package customer

import (
	"errors"
	"net/http"

	"luckylogic-crm/internal/domain/customer"
	"luckylogic-crm/internal/middleware"
	xerrors "luckylogic-crm/internal/pkg/errors"
	"luckylogic-crm/internal/pkg/response"
	service "luckylogic-crm/internal/service/customer"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type CustomerHandler struct {
	customerService *service.CustomerService
	logger          *zap.Logger
}

func NewCustomerHandler(customerService *service.CustomerService, logger *zap.Logger) *CustomerHandler {
	return &CustomerHandler{
		customerService: customerService,
		logger:          logger,
	}
}

// ListCustomers returns one page of customers, optionally filtered by name.
func (h *CustomerHandler) ListCustomers(c *gin.Context) {
	var filters customer.CustomerListFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid query parameters", err)
		return
	}

	result, err := h.customerService.ListCustomers(c.Request.Context(), &filters)
	if err != nil {
		h.logger.Error("failed to list customers", zap.Error(err))
		response.Error(c, xerrors.HTTPStatus(err), "Failed to load customers. Please try again later.", err)
		return
	}

	response.Success(c, http.StatusOK, "customers retrieved", result)
}

// GetCustomer returns a single customer and stamps it as viewed.
func (h *CustomerHandler) GetCustomer(c *gin.Context) {
	id, ok := customerID(c)
	if !ok {
		response.Error(c, http.StatusNotFound, xerrors.MsgViewNotFound, xerrors.ErrNotFound)
		return
	}

	result, err := h.customerService.GetCustomer(c.Request.Context(), id)
	if err != nil {
		status := xerrors.HTTPStatus(err)
		if status >= http.StatusInternalServerError {
			h.logger.Error("failed to load customer", zap.String("customer_id", id), zap.Error(err))
		}
		response.Error(c, status, xerrors.ViewMessage(err), err)
		return
	}

	response.Success(c, http.StatusOK, "customer retrieved", result)
}

// CreateCustomer adds a customer.
func (h *CustomerHandler) CreateCustomer(c *gin.Context) {
	var req customer.CreateCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request", err)
		return
	}

	result, err := h.customerService.CreateCustomer(c.Request.Context(), &req, middleware.Actor(c))
	if err != nil {
		h.mutationError(c, xerrors.ActionAdd, err)
		return
	}

	response.Success(c, http.StatusCreated, "Customer added successfully.", result)
}

// UpdateCustomer replaces every editable field of a customer.
func (h *CustomerHandler) UpdateCustomer(c *gin.Context) {
	id, ok := customerID(c)
	if !ok {
		response.Error(c, http.StatusBadRequest, "invalid customer ID", nil)
		return
	}

	var req customer.UpdateCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request", err)
		return
	}

	result, err := h.customerService.UpdateCustomer(c.Request.Context(), id, &req, middleware.Actor(c))
	if err != nil {
		h.mutationError(c, xerrors.ActionUpdate, err)
		return
	}

	response.Success(c, http.StatusOK, "Customer updated successfully.", result)
}

// DeleteCustomer removes a customer.
func (h *CustomerHandler) DeleteCustomer(c *gin.Context) {
	id, ok := customerID(c)
	if !ok {
		response.Error(c, http.StatusBadRequest, "invalid customer ID", nil)
		return
	}

	if err := h.customerService.DeleteCustomer(c.Request.Context(), id, middleware.Actor(c)); err != nil {
		h.mutationError(c, xerrors.ActionDelete, err)
		return
	}

	response.Success(c, http.StatusOK, "Customer deleted successfully.", nil)
}

func (h *CustomerHandler) mutationError(c *gin.Context, action xerrors.Action, err error) {
	if errors.Is(err, xerrors.ErrInvalidInput) {
		response.ValidationError(c, err.Error(), err)
		return
	}

	h.logger.Error("customer mutation failed",
		zap.String("action", string(action)),
		zap.String("actor", middleware.Actor(c)),
		zap.Error(err),
	)
	response.Error(c, xerrors.HTTPStatus(err), xerrors.MutationMessage(action, err), err)
}

// customerID reads the :id path parameter. Ids are UUIDs.
func customerID(c *gin.Context) (string, bool) {
	raw := c.Param("id")
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", false
	}
	return id.String(), true
}
