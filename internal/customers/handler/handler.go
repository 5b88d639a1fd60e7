// Package handler exposes the customers module over HTTP.
package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"labcrm_backend/internal/customers/service"
	"labcrm_backend/internal/customers/transport"
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
	group.PUT("/:id", h.update)
	group.DELETE("/:id", h.remove)
}

func (h *Handler) create(c *gin.Context) {
	var req transport.CreateCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	customer, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		httpkit.DomainError(c, err)
		return
	}
	httpkit.JSON(c, http.StatusCreated, customer)
}

func (h *Handler) list(c *gin.Context) {
	var grade *string
	if value := c.Query("grade"); value != "" {
		grade = &value
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	customers, err := h.service.List(c.Request.Context(), grade, limit, offset)
	if err != nil {
		httpkit.DomainError(c, err)
		return
	}
	httpkit.OK(c, gin.H{"customers": customers})
}

func (h *Handler) get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}

	customer, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		httpkit.DomainError(c, err)
		return
	}
	httpkit.OK(c, customer)
}

func (h *Handler) update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}

	var req transport.UpdateCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	actorID, _ := httpkit.ActorID(c)
	customer, err := h.service.Update(c.Request.Context(), id, req, actorID)
	if err != nil {
		httpkit.DomainError(c, err)
		return
	}
	httpkit.OK(c, customer)
}

func (h *Handler) remove(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}

	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		httpkit.DomainError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
