package api

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/oleksiikomarychev/WorkoutApp-sub002/internal/client"
	"github.com/oleksiikomarychev/WorkoutApp-sub002/internal/command"
	"github.com/oleksiikomarychev/WorkoutApp-sub002/internal/domain"
	"github.com/oleksiikomarychev/WorkoutApp-sub002/internal/service"
	"github.com/oleksiikomarychev/WorkoutApp-sub002/internal/tasks"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AppliedPlanHandler serves materialization and the read/lifecycle
// surface over applied plans.
type AppliedPlanHandler struct {
	materializer service.MaterializeService
	appliedPlans service.AppliedPlanService
	macros       service.MacroService
	queue        *asynq.Client
	statuses     *tasks.StatusStore
}

// NewAppliedPlanHandler creates a new AppliedPlanHandler. The queue and
// status store may be nil when async materialization is disabled.
func NewAppliedPlanHandler(
	materializer service.MaterializeService,
	appliedPlans service.AppliedPlanService,
	macros service.MacroService,
	queue *asynq.Client,
	statuses *tasks.StatusStore,
) *AppliedPlanHandler {
	return &AppliedPlanHandler{
		materializer: materializer,
		appliedPlans: appliedPlans,
		macros:       macros,
		queue:        queue,
		statuses:     statuses,
	}
}

// ApplyPlanRequest defines the expected JSON for materializing a plan.
type ApplyPlanRequest struct {
	StartDate         command.Date `json:"start_date" binding:"required"`
	CapacityRecordIDs []int        `json:"capacity_record_ids"`
}

func mapApplyError(c *gin.Context, err error) {
	var storeErr *client.StoreError
	switch {
	case errors.Is(err, service.ErrTemplateNotFound):
		abortWithError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrEmptyPlan),
		errors.Is(err, service.ErrSetUnderspecified),
		errors.Is(err, service.ErrCapacityUnavailable):
		abortWithError(c, http.StatusUnprocessableEntity, err.Error())
	case errors.As(err, &storeErr), errors.Is(err, client.ErrUpstreamUnreachable):
		abortWithError(c, http.StatusBadGateway, err.Error())
	default:
		abortWithError(c, http.StatusInternalServerError, "Materialization failed.")
	}
}

// ApplyPlan handles POST /plans/:id/apply. With ?async=true the work is
// queued and a task id is returned for polling.
func (h *AppliedPlanHandler) ApplyPlan(c *gin.Context) {
	planID, ok := planIDParam(c)
	if !ok {
		return
	}
	var req ApplyPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify user from token.")
		return
	}

	if c.Query("async") == "true" {
		if h.queue == nil || h.statuses == nil {
			abortWithError(c, http.StatusServiceUnavailable, "Async materialization is not enabled.")
			return
		}
		task, taskID, err := tasks.NewMaterializeTask(planID.Hex(), userID, req.StartDate.Time, req.CapacityRecordIDs)
		if err != nil {
			abortWithError(c, http.StatusInternalServerError, "Failed to build task.")
			return
		}
		if err := h.statuses.MarkPending(c.Request.Context(), taskID); err != nil {
			abortWithError(c, http.StatusInternalServerError, "Failed to record task status.")
			return
		}
		if _, err := h.queue.EnqueueContext(c.Request.Context(), task); err != nil {
			abortWithError(c, http.StatusInternalServerError, "Failed to enqueue task.")
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"task_id": taskID})
		return
	}

	applied, err := h.materializer.Apply(c.Request.Context(), service.ApplyInput{
		PlanID:            planID,
		UserID:            userID,
		StartDate:         req.StartDate.Time,
		CapacityRecordIDs: req.CapacityRecordIDs,
	})
	if err != nil {
		mapApplyError(c, err)
		return
	}

	// Attached macros fire once on the fresh instance. A failed pass
	// does not fail the apply: the plan is already active.
	if h.macros != nil {
		if _, err := h.macros.RunForAppliedPlan(c.Request.Context(), applied.ID); err != nil {
			log.Printf("Macro pass after apply of plan %s failed: %v", applied.ID.Hex(), err)
		}
	}
	c.JSON(http.StatusCreated, applied)
}

func appliedIDParam(c *gin.Context) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid applied plan ID format.")
		return primitive.NilObjectID, false
	}
	return id, true
}

func mapAppliedError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrAppliedPlanNotFound):
		abortWithError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrAppliedPlanAccessDenied):
		abortWithError(c, http.StatusForbidden, err.Error())
	default:
		abortWithError(c, http.StatusInternalServerError, "Applied plan operation failed.")
	}
}

// GetAppliedPlan handles GET /applied-plans/:id with the full workout
// and exercise detail joined in from the external stores.
func (h *AppliedPlanHandler) GetAppliedPlan(c *gin.Context) {
	id, ok := appliedIDParam(c)
	if !ok {
		return
	}
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify user from token.")
		return
	}
	detail, err := h.appliedPlans.GetDetail(c.Request.Context(), id, userID)
	if err != nil {
		mapAppliedError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

// ListAppliedPlans handles GET /applied-plans.
func (h *AppliedPlanHandler) ListAppliedPlans(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify user from token.")
		return
	}
	plans, err := h.appliedPlans.ListByUser(c.Request.Context(), userID)
	if err != nil {
		mapAppliedError(c, err)
		return
	}
	if plans == nil {
		plans = []domain.AppliedPlan{}
	}
	c.JSON(http.StatusOK, plans)
}

// DeactivateAppliedPlan handles POST /applied-plans/:id/deactivate.
func (h *AppliedPlanHandler) DeactivateAppliedPlan(c *gin.Context) {
	id, ok := appliedIDParam(c)
	if !ok {
		return
	}
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify user from token.")
		return
	}
	if err := h.appliedPlans.Deactivate(c.Request.Context(), id, userID); err != nil {
		mapAppliedError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Applied plan deactivated."})
}

// DeleteAppliedPlan handles DELETE /applied-plans/:id.
func (h *AppliedPlanHandler) DeleteAppliedPlan(c *gin.Context) {
	id, ok := appliedIDParam(c)
	if !ok {
		return
	}
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify user from token.")
		return
	}
	if err := h.appliedPlans.Delete(c.Request.Context(), id, userID); err != nil {
		mapAppliedError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
