package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/oleksiikomarychev/WorkoutApp-sub002/internal/domain"
	"github.com/oleksiikomarychev/WorkoutApp-sub002/internal/service"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PlanHandler holds the template plan service dependency.
type PlanHandler struct {
	planService service.PlanService
}

// NewPlanHandler creates a new PlanHandler.
func NewPlanHandler(planService service.PlanService) *PlanHandler {
	return &PlanHandler{planService: planService}
}

// --- DTOs for API (Data Transfer Objects) ---

// PlanRequest defines the expected JSON for creating or updating a
// template plan. The template tree is accepted as-is; the service
// validates order indices and set completeness.
type PlanRequest struct {
	Name          string             `json:"name" binding:"required"`
	Description   string             `json:"description"`
	DurationWeeks int                `json:"durationWeeks" binding:"required,min=1"`
	IsPublic      bool               `json:"isPublic"`
	Mesocycles    []domain.Mesocycle `json:"mesocycles" binding:"required"`
}

func planIDParam(c *gin.Context) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid plan ID format.")
		return primitive.NilObjectID, false
	}
	return id, true
}

func mapPlanError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrTemplateNotFound):
		abortWithError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrPlanAccessDenied):
		abortWithError(c, http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrSetOverspecified), errors.Is(err, service.ErrDurationOutOfRange):
		abortWithError(c, http.StatusBadRequest, err.Error())
	default:
		abortWithError(c, http.StatusInternalServerError, "Plan operation failed.")
	}
}

// --- Handler Methods ---

// CreatePlan handles POST /plans.
func (h *PlanHandler) CreatePlan(c *gin.Context) {
	var req PlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify user from token.")
		return
	}

	plan := &domain.Plan{
		AuthorID:      userID,
		Name:          req.Name,
		Description:   req.Description,
		DurationWeeks: req.DurationWeeks,
		IsPublic:      req.IsPublic,
		Mesocycles:    req.Mesocycles,
	}
	created, err := h.planService.Create(c.Request.Context(), plan)
	if err != nil {
		mapPlanError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// GetPlan handles GET /plans/:id.
func (h *PlanHandler) GetPlan(c *gin.Context) {
	id, ok := planIDParam(c)
	if !ok {
		return
	}
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify user from token.")
		return
	}
	plan, err := h.planService.GetByID(c.Request.Context(), id, userID)
	if err != nil {
		mapPlanError(c, err)
		return
	}
	c.JSON(http.StatusOK, plan)
}

// ListPlans handles GET /plans and returns the caller's own templates.
func (h *PlanHandler) ListPlans(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify user from token.")
		return
	}
	plans, err := h.planService.ListByAuthor(c.Request.Context(), userID)
	if err != nil {
		mapPlanError(c, err)
		return
	}
	if plans == nil {
		plans = []domain.Plan{}
	}
	c.JSON(http.StatusOK, plans)
}

// UpdatePlan handles PUT /plans/:id.
func (h *PlanHandler) UpdatePlan(c *gin.Context) {
	id, ok := planIDParam(c)
	if !ok {
		return
	}
	var req PlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify user from token.")
		return
	}

	plan := &domain.Plan{
		ID:            id,
		AuthorID:      userID,
		Name:          req.Name,
		Description:   req.Description,
		DurationWeeks: req.DurationWeeks,
		IsPublic:      req.IsPublic,
		Mesocycles:    req.Mesocycles,
	}
	if err := h.planService.Update(c.Request.Context(), plan); err != nil {
		mapPlanError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Plan updated."})
}

// DeletePlan handles DELETE /plans/:id.
func (h *PlanHandler) DeletePlan(c *gin.Context) {
	id, ok := planIDParam(c)
	if !ok {
		return
	}
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify user from token.")
		return
	}
	if err := h.planService.Delete(c.Request.Context(), id, userID); err != nil {
		mapPlanError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// DerivePlan handles POST /plans/:id/derive and clones a template into
// a new version owned by the caller, keeping the lineage root.
func (h *PlanHandler) DerivePlan(c *gin.Context) {
	id, ok := planIDParam(c)
	if !ok {
		return
	}
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify user from token.")
		return
	}
	derived, err := h.planService.Derive(c.Request.Context(), id, userID)
	if err != nil {
		mapPlanError(c, err)
		return
	}
	c.JSON(http.StatusCreated, derived)
}
