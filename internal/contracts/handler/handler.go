// Package handler exposes the contracts module over HTTP.
package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"labcrm_backend/internal/contracts/service"
	"labcrm_backend/internal/contracts/transport"
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
	group.GET("", h.list)
	group.GET("/:id", h.get)
	group.POST("/:id/sign", h.sign)
	group.POST("/:id/cancel", h.cancel)
	group.POST("/:id/convert-leads", h.convertLeads)
}

func (h *Handler) create(c *gin.Context) {
	var req transport.CreateContractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	contract, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		httpkit.DomainError(c, err)
		return
	}
	httpkit.JSON(c, http.StatusCreated, contract)
}

func (h *Handler) list(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	contracts, err := h.service.List(c.Request.Context(), limit, offset)
	if err != nil {
		httpkit.DomainError(c, err)
		return
	}
	httpkit.OK(c, gin.H{"contracts": contracts})
}

func (h *Handler) get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}

	contract, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		httpkit.DomainError(c, err)
		return
	}
	httpkit.OK(c, contract)
}

func (h *Handler) sign(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}

	actorID, _ := httpkit.ActorID(c)
	contract, err := h.service.Sign(c.Request.Context(), id, actorID)
	if err != nil {
		httpkit.DomainError(c, err)
		return
	}
	httpkit.OK(c, contract)
}

func (h *Handler) cancel(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}

	contract, err := h.service.Cancel(c.Request.Context(), id)
	if err != nil {
		httpkit.DomainError(c, err)
		return
	}
	httpkit.OK(c, contract)
}

func (h *Handler) convertLeads(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}

	actorID, _ := httpkit.ActorID(c)
	result, err := h.service.ConvertLeads(c.Request.Context(), id, actorID)
	if err != nil {
		httpkit.DomainError(c, err)
		return
	}
	httpkit.OK(c, result)
}
