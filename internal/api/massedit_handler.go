package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/oleksiikomarychev/WorkoutApp-sub002/internal/command"
	"github.com/oleksiikomarychev/WorkoutApp-sub002/internal/service"
	"github.com/oleksiikomarychev/WorkoutApp-sub002/internal/tasks"
)

// MassEditHandler serves the declarative bulk-edit surface over
// applied plans.
type MassEditHandler struct {
	editor   service.MassEditService
	queue    *asynq.Client
	statuses *tasks.StatusStore
}

// NewMassEditHandler creates a new MassEditHandler. The queue and
// status store may be nil when async execution is disabled.
func NewMassEditHandler(editor service.MassEditService, queue *asynq.Client, statuses *tasks.StatusStore) *MassEditHandler {
	return &MassEditHandler{editor: editor, queue: queue, statuses: statuses}
}

func mapMassEditError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrAppliedPlanNotFound):
		abortWithError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrPlanNotActive),
		errors.Is(err, command.ErrNoScope),
		errors.Is(err, command.ErrMalformedRange),
		errors.Is(err, command.ErrNoActions),
		errors.Is(err, command.ErrAmbiguousAction),
		errors.Is(err, command.ErrUnknownOperation),
		errors.Is(err, command.ErrReplaceNeedsKeys):
		abortWithError(c, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, service.ErrPlanBusy):
		abortWithError(c, http.StatusConflict, err.Error())
	default:
		abortWithError(c, http.StatusInternalServerError, "Mass edit failed.")
	}
}

// Execute handles POST /applied-plans/:id/mass-edit. The body is one
// mass-edit command; with ?async=true it is queued instead of run
// inline.
func (h *MassEditHandler) Execute(c *gin.Context) {
	appliedID, ok := appliedIDParam(c)
	if !ok {
		return
	}
	var cmd command.Command
	if err := c.ShouldBindJSON(&cmd); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	// Reject malformed commands before touching the lock or the queue.
	if err := cmd.Validate(); err != nil {
		abortWithError(c, http.StatusUnprocessableEntity, err.Error())
		return
	}

	if c.Query("async") == "true" {
		if h.queue == nil || h.statuses == nil {
			abortWithError(c, http.StatusServiceUnavailable, "Async mass edit is not enabled.")
			return
		}
		task, taskID, err := tasks.NewMassEditTask(appliedID.Hex(), &cmd)
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

	result, err := h.editor.Execute(c.Request.Context(), appliedID, &cmd)
	if err != nil {
		mapMassEditError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// TaskHandler serves polling and cancellation for queued work.
type TaskHandler struct {
	statuses *tasks.StatusStore
}

// NewTaskHandler creates a new TaskHandler.
func NewTaskHandler(statuses *tasks.StatusStore) *TaskHandler {
	return &TaskHandler{statuses: statuses}
}

// GetTask handles GET /tasks/:id.
func (h *TaskHandler) GetTask(c *gin.Context) {
	st, err := h.statuses.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, tasks.ErrTaskNotFound) {
			abortWithError(c, http.StatusNotFound, err.Error())
		} else {
			abortWithError(c, http.StatusInternalServerError, "Failed to read task status.")
		}
		return
	}
	c.JSON(http.StatusOK, st)
}

// CancelTask handles POST /tasks/:id/cancel. Only tasks that have not
// started yet can be cancelled.
func (h *TaskHandler) CancelTask(c *gin.Context) {
	cancelled, err := h.statuses.Cancel(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to cancel task.")
		return
	}
	if !cancelled {
		abortWithError(c, http.StatusConflict, "Task already started or finished.")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Task cancelled."})
}
