// Package handler exposes the leads module over HTTP.
package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"labcrm_backend/internal/leads/automation"
	"labcrm_backend/internal/leads/conversion"
	"labcrm_backend/internal/leads/domain"
	"labcrm_backend/internal/leads/management"
	"labcrm_backend/internal/leads/transport"
	"labcrm_backend/platform/httpkit"
	"labcrm_backend/platform/validator"
)

type Handler struct {
	management *management.Service
	automation *automation.Engine
	conversion *conversion.Service
	val        *validator.Validator
}

func New(mgmt *management.Service, auto *automation.Engine, conv *conversion.Service, val *validator.Validator) *Handler {
	return &Handler{management: mgmt, automation: auto, conversion: conv, val: val}
}

func (h *Handler) RegisterRoutes(group *gin.RouterGroup) {
	group.POST("", h.create)
	group.GET("", h.list)
	group.GET("/:id", h.get)
	group.PUT("/:id/contact", h.updateContact)
	group.PUT("/:id/stage", h.updateStage)
	group.POST("/:id/tasks/:taskId/complete", h.completeTask)
	group.GET("/:id/tasks/progress", h.taskProgress)
	group.GET("/:id/activities", h.activities)
	group.POST("/:id/convert", h.convert)
	group.POST("/:id/sync", h.sync)
}

func (h *Handler) create(c *gin.Context) {
	var req transport.CreateLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	lead, err := h.management.Create(c.Request.Context(), req)
	if err != nil {
		httpkit.DomainError(c, err)
		return
	}
	httpkit.JSON(c, http.StatusCreated, lead)
}

func (h *Handler) list(c *gin.Context) {
	var status *string
	if value := c.Query("status"); value != "" {
		status = &value
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	leads, err := h.management.List(c.Request.Context(), status, limit, offset)
	if err != nil {
		httpkit.DomainError(c, err)
		return
	}
	httpkit.OK(c, gin.H{"leads": leads})
}

func (h *Handler) get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	lead, err := h.management.Get(c.Request.Context(), id)
	if err != nil {
		httpkit.DomainError(c, err)
		return
	}
	httpkit.OK(c, lead)
}

func (h *Handler) updateContact(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req transport.UpdateLeadContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	actorID, _ := httpkit.ActorID(c)
	lead, err := h.management.UpdateContact(c.Request.Context(), id, req, actorID)
	if err != nil {
		httpkit.DomainError(c, err)
		return
	}
	httpkit.OK(c, lead)
}

func (h *Handler) updateStage(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req transport.UpdateLeadStageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	actorID, _ := httpkit.ActorID(c)
	result, err := h.automation.UpdateLeadStage(c.Request.Context(), id, req.StageCode, actorID)
	if err != nil {
		httpkit.DomainError(c, err)
		return
	}
	httpkit.OK(c, result)
}

func (h *Handler) completeTask(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	taskID, ok := pathID(c, "taskId")
	if !ok {
		return
	}

	var req transport.CompleteTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		httpkit.Error(c, http.StatusBadRequest, "invalid request body", nil)
		return
	}

	actorID, _ := httpkit.ActorID(c)
	if err := h.automation.CompleteTask(c.Request.Context(), id, taskID, actorID, req.Notes); err != nil {
		httpkit.DomainError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) taskProgress(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	progress, err := h.automation.GetLeadTaskProgress(c.Request.Context(), id)
	if err != nil {
		httpkit.DomainError(c, err)
		return
	}
	httpkit.OK(c, progress)
}

func (h *Handler) activities(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	activities, err := h.management.Activities(c.Request.Context(), id, limit)
	if err != nil {
		httpkit.DomainError(c, err)
		return
	}
	httpkit.OK(c, gin.H{"activities": activities})
}

func (h *Handler) convert(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	actorID, _ := httpkit.ActorID(c)
	result, err := h.conversion.Convert(c.Request.Context(), id, actorID)
	if err != nil {
		httpkit.DomainError(c, err)
		return
	}
	httpkit.OK(c, result)
}

func (h *Handler) sync(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req transport.SyncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	actorID, _ := httpkit.ActorID(c)
	result, err := h.conversion.SyncLeadCustomerData(c.Request.Context(), id, domain.SyncDirection(req.Direction), actorID)
	if err != nil {
		httpkit.DomainError(c, err)
		return
	}
	if result == nil {
		httpkit.OK(c, gin.H{"synced": false})
		return
	}
	httpkit.OK(c, result)
}

func pathID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid "+name, nil)
		return uuid.Nil, false
	}
	return id, true
}
