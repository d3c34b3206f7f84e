package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/oleksiikomarychev/WorkoutApp-sub002/internal/service"
	"github.com/oleksiikomarychev/WorkoutApp-sub002/internal/tasks"
)

// SetupRoutes wires all handlers under /api/v1. The queue client and
// status store may be nil; the async endpoints then answer 503.
func SetupRoutes(
	router *gin.Engine,
	jwtSecret string,
	planService service.PlanService,
	materializer service.MaterializeService,
	appliedPlans service.AppliedPlanService,
	editor service.MassEditService,
	macros service.MacroService,
	queue *asynq.Client,
	statuses *tasks.StatusStore,
) {
	planHandler := NewPlanHandler(planService)
	appliedHandler := NewAppliedPlanHandler(materializer, appliedPlans, macros, queue, statuses)
	massEditHandler := NewMassEditHandler(editor, queue, statuses)
	macroHandler := NewMacroHandler(macros)

	authMiddleware := AuthMiddleware(jwtSecret)

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	apiV1 := router.Group("/api/v1")
	protected := apiV1.Group("")
	protected.Use(authMiddleware)
	{
		planGroup := protected.Group("/plans")
		{
			planGroup.POST("", planHandler.CreatePlan)
			planGroup.GET("", planHandler.ListPlans)
			planGroup.GET("/:id", planHandler.GetPlan)
			planGroup.PUT("/:id", planHandler.UpdatePlan)
			planGroup.DELETE("/:id", planHandler.DeletePlan)
			planGroup.POST("/:id/derive", planHandler.DerivePlan)
			planGroup.POST("/:id/apply", appliedHandler.ApplyPlan)
			planGroup.GET("/:id/macros", macroHandler.ListMacros)
		}

		appliedGroup := protected.Group("/applied-plans")
		{
			appliedGroup.GET("", appliedHandler.ListAppliedPlans)
			appliedGroup.GET("/:id", appliedHandler.GetAppliedPlan)
			appliedGroup.POST("/:id/deactivate", appliedHandler.DeactivateAppliedPlan)
			appliedGroup.DELETE("/:id", appliedHandler.DeleteAppliedPlan)
			appliedGroup.POST("/:id/mass-edit", massEditHandler.Execute)
			appliedGroup.POST("/:id/run-macros", macroHandler.RunMacros)
		}

		macroGroup := protected.Group("/macros")
		{
			macroGroup.POST("", macroHandler.CreateMacro)
			macroGroup.GET("/:id", macroHandler.GetMacro)
			macroGroup.PUT("/:id", macroHandler.UpdateMacro)
			macroGroup.DELETE("/:id", macroHandler.DeleteMacro)
		}

		if statuses != nil {
			taskHandler := NewTaskHandler(statuses)
			taskGroup := protected.Group("/tasks")
			{
				taskGroup.GET("/:id", taskHandler.GetTask)
				taskGroup.POST("/:id/cancel", taskHandler.CancelTask)
			}
		}
	}
}
