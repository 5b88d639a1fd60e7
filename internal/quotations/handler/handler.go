// Package handler exposes the quotations module over HTTP.
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"labcrm_backend/internal/quotations/service"
	"labcrm_backend/internal/quotations/transport"
	"labcrm_backend/platform/httpkit"
	"labcrm_backend/platform/validator"
)

type Handler struct {
	service *service.Service
	val     *validator.Validator
}

func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{service: svc, val: val}
}

func (h *Handler) RegisterRoutes(group *gin.RouterGroup) {
	group.POST("", h.create)
	group.GET("/:id", h.get)
	group.PUT("/:id/status", h.updateStatus)
	group.PUT("/:id/contract", h.attachContract)
}

func (h *Handler) create(c *gin.Context) {
	var req transport.CreateQuotationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	actorID, _ := httpkit.ActorID(c)
	quotation, err := h.service.Create(c.Request.Context(), req, actorID)
	if err != nil {
		httpkit.DomainError(c, err)
		return
	}
	httpkit.JSON(c, http.StatusCreated, quotation)
}

func (h *Handler) get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}

	quotation, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		httpkit.DomainError(c, err)
		return
	}
	httpkit.OK(c, quotation)
}

func (h *Handler) updateStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}

	var req transport.UpdateQuotationStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	actorID, _ := httpkit.ActorID(c)
	quotation, err := h.service.UpdateStatus(c.Request.Context(), id, req.Status, actorID)
	if err != nil {
		httpkit.DomainError(c, err)
		return
	}
	httpkit.OK(c, quotation)
}

func (h *Handler) attachContract(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}

	var req transport.AttachContractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	quotation, err := h.service.AttachToContract(c.Request.Context(), id, req.ContractID)
	if err != nil {
		httpkit.DomainError(c, err)
		return
	}
	httpkit.OK(c, quotation)
}
