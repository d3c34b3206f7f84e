package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/oleksiikomarychev/WorkoutApp-sub002/internal/domain"
	"github.com/oleksiikomarychev/WorkoutApp-sub002/internal/service"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MacroHandler serves CRUD over plan macros plus manual pass runs.
type MacroHandler struct {
	macros service.MacroService
}

// NewMacroHandler creates a new MacroHandler.
func NewMacroHandler(macros service.MacroService) *MacroHandler {
	return &MacroHandler{macros: macros}
}

// MacroRequest defines the expected JSON for creating or updating a
// macro. Body is a serialized mass-edit command and is compile-checked
// by the service.
type MacroRequest struct {
	PlanID   string `json:"planId" binding:"required"`
	Name     string `json:"name" binding:"required"`
	IsActive bool   `json:"isActive"`
	Priority int    `json:"priority"`
	Body     string `json:"body" binding:"required"`
}

func macroIDParam(c *gin.Context) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid macro ID format.")
		return primitive.NilObjectID, false
	}
	return id, true
}

func mapMacroError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrMacroNotFound):
		abortWithError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrMacroBadCommand):
		abortWithError(c, http.StatusUnprocessableEntity, err.Error())
	default:
		abortWithError(c, http.StatusInternalServerError, "Macro operation failed.")
	}
}

// CreateMacro handles POST /macros.
func (h *MacroHandler) CreateMacro(c *gin.Context) {
	var req MacroRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	planID, err := primitive.ObjectIDFromHex(req.PlanID)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid plan ID format.")
		return
	}
	macro := &domain.PlanMacro{
		PlanID:   planID,
		Name:     req.Name,
		IsActive: req.IsActive,
		Priority: req.Priority,
		Body:     req.Body,
	}
	created, err := h.macros.Create(c.Request.Context(), macro)
	if err != nil {
		mapMacroError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// GetMacro handles GET /macros/:id.
func (h *MacroHandler) GetMacro(c *gin.Context) {
	id, ok := macroIDParam(c)
	if !ok {
		return
	}
	macro, err := h.macros.GetByID(c.Request.Context(), id)
	if err != nil {
		mapMacroError(c, err)
		return
	}
	c.JSON(http.StatusOK, macro)
}

// ListMacros handles GET /plans/:id/macros.
func (h *MacroHandler) ListMacros(c *gin.Context) {
	planID, ok := planIDParam(c)
	if !ok {
		return
	}
	macros, err := h.macros.ListByPlan(c.Request.Context(), planID)
	if err != nil {
		mapMacroError(c, err)
		return
	}
	if macros == nil {
		macros = []domain.PlanMacro{}
	}
	c.JSON(http.StatusOK, macros)
}

// UpdateMacro handles PUT /macros/:id.
func (h *MacroHandler) UpdateMacro(c *gin.Context) {
	id, ok := macroIDParam(c)
	if !ok {
		return
	}
	var req MacroRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	planID, err := primitive.ObjectIDFromHex(req.PlanID)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid plan ID format.")
		return
	}
	macro := &domain.PlanMacro{
		ID:       id,
		PlanID:   planID,
		Name:     req.Name,
		IsActive: req.IsActive,
		Priority: req.Priority,
		Body:     req.Body,
	}
	if err := h.macros.Update(c.Request.Context(), macro); err != nil {
		mapMacroError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Macro updated."})
}

// DeleteMacro handles DELETE /macros/:id.
func (h *MacroHandler) DeleteMacro(c *gin.Context) {
	id, ok := macroIDParam(c)
	if !ok {
		return
	}
	if err := h.macros.Delete(c.Request.Context(), id); err != nil {
		mapMacroError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// RunMacros handles POST /applied-plans/:id/run-macros and runs all
// active macros of the plan's template against it immediately.
func (h *MacroHandler) RunMacros(c *gin.Context) {
	id, ok := appliedIDParam(c)
	if !ok {
		return
	}
	results, err := h.macros.RunForAppliedPlan(c.Request.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAppliedPlanNotFound):
			abortWithError(c, http.StatusNotFound, err.Error())
		case errors.Is(err, service.ErrPlanBusy):
			abortWithError(c, http.StatusConflict, err.Error())
		default:
			abortWithError(c, http.StatusInternalServerError, "Macro pass failed.")
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}
