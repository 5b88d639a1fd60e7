// Package handler exposes the studies module over HTTP.
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"labcrm_backend/internal/studies/service"
	"labcrm_backend/internal/studies/transport"
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

func (h *Handler) RegisterReceptionRoutes(group *gin.RouterGroup) {
	group.POST("", h.createReception)
	group.GET("/:id", h.getReception)
	group.POST("/:id/issue-number", h.issueNumber)
}

func (h *Handler) RegisterStudyRoutes(group *gin.RouterGroup) {
	group.POST("", h.createStudy)
	group.GET("/:id", h.getStudy)
	group.POST("/:id/complete", h.completeStudy)
}

func (h *Handler) createReception(c *gin.Context) {
	var req transport.CreateReceptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	reception, err := h.service.CreateReception(c.Request.Context(), req)
	if err != nil {
		httpkit.DomainError(c, err)
		return
	}
	httpkit.JSON(c, http.StatusCreated, reception)
}

func (h *Handler) getReception(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}

	reception, err := h.service.GetReception(c.Request.Context(), id)
	if err != nil {
		httpkit.DomainError(c, err)
		return
	}
	httpkit.OK(c, reception)
}

func (h *Handler) issueNumber(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}

	actorID, _ := httpkit.ActorID(c)
	reception, err := h.service.IssueTestNumber(c.Request.Context(), id, actorID)
	if err != nil {
		httpkit.DomainError(c, err)
		return
	}
	httpkit.OK(c, reception)
}

func (h *Handler) createStudy(c *gin.Context) {
	var req transport.CreateStudyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	study, err := h.service.CreateStudy(c.Request.Context(), req)
	if err != nil {
		httpkit.DomainError(c, err)
		return
	}
	httpkit.JSON(c, http.StatusCreated, study)
}

func (h *Handler) getStudy(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}

	study, err := h.service.GetStudy(c.Request.Context(), id)
	if err != nil {
		httpkit.DomainError(c, err)
		return
	}
	httpkit.OK(c, study)
}

func (h *Handler) completeStudy(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}

	actorID, _ := httpkit.ActorID(c)
	study, err := h.service.CompleteStudy(c.Request.Context(), id, actorID)
	if err != nil {
		httpkit.DomainError(c, err)
		return
	}
	httpkit.OK(c, study)
}
