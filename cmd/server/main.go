package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/oleksiikomarychev/WorkoutApp-sub002/internal/api"
	"github.com/oleksiikomarychev/WorkoutApp-sub002/internal/client"
	"github.com/oleksiikomarychev/WorkoutApp-sub002/internal/config"
	"github.com/oleksiikomarychev/WorkoutApp-sub002/internal/repository/mongo"
	"github.com/oleksiikomarychev/WorkoutApp-sub002/internal/rpe"
	"github.com/oleksiikomarychev/WorkoutApp-sub002/internal/service"
	"github.com/oleksiikomarychev/WorkoutApp-sub002/internal/tasks"
)

func main() {
	log.Println("Starting Plan Engine Server...")

	// --- Configuration ---
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("FATAL: Could not load config: %v", err)
	}
	log.Println("Configuration loaded.")

	// --- Database Connection ---
	dbClient, err := mongo.ConnectDB(cfg.Database.URI)
	if err != nil {
		log.Fatalf("FATAL: Could not connect to MongoDB: %v", err)
	}
	defer func() {
		log.Println("Disconnecting MongoDB...")
		if err := mongo.DisconnectDB(dbClient); err != nil {
			log.Printf("ERROR: Failed to disconnect MongoDB: %v", err)
		}
	}()
	appDB := dbClient.Database(cfg.Database.Name)
	log.Println("Database connection established.")

	// --- Ensure Indexes ---
	log.Println("Ensuring database indexes...")
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Minute)
		defer cancel()
		mongo.EnsurePlanIndexes(ctx, appDB.Collection("plans"))
		mongo.EnsureAppliedPlanIndexes(ctx, appDB)
		mongo.EnsureMacroIndexes(ctx, appDB.Collection("plan_macros"))
		log.Println("Index creation process completed.")
	}()

	// --- Redis (locks, task queue, task status) ---
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		log.Fatalf("FATAL: Could not connect to Redis: %v", err)
	}
	log.Println("Redis connection established.")

	queue := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer queue.Close()
	statuses := tasks.NewStatusStore(redisClient, 24*time.Hour)

	// --- Conversion Table Catalog ---
	catalog, err := rpe.LoadCatalog(cfg.RPE.ChartFile)
	if err != nil {
		log.Fatalf("FATAL: Could not load conversion chart: %v", err)
	}

	// --- External Store Clients ---
	log.Println("Initializing external store clients...")
	capacityClient := client.NewCapacityClient(client.Config{
		BaseURL: cfg.Services.Capacity.BaseURL,
		Timeout: cfg.Services.Capacity.Timeout,
		Retries: cfg.Services.Capacity.Retries,
	})
	workoutClient := client.NewWorkoutClient(client.Config{
		BaseURL: cfg.Services.Workout.BaseURL,
		Timeout: cfg.Services.Workout.Timeout,
		Retries: cfg.Services.Workout.Retries,
	})
	exerciseClient := client.NewExerciseClient(client.Config{
		BaseURL: cfg.Services.Exercise.BaseURL,
		Timeout: cfg.Services.Exercise.Timeout,
		Retries: cfg.Services.Exercise.Retries,
	})

	// --- Initialize Repositories ---
	log.Println("Initializing repositories...")
	planRepo := mongo.NewMongoPlanRepository(appDB)
	appliedRepo := mongo.NewMongoAppliedPlanRepository(appDB)
	macroRepo := mongo.NewMongoMacroRepository(appDB)

	// --- Initialize Services ---
	log.Println("Initializing services...")
	resolver := service.NewCapacityResolver(capacityClient)
	locker := service.NewRedisLocker(redisClient)
	planService := service.NewPlanService(planRepo)
	materializer := service.NewMaterializeService(planRepo, appliedRepo, resolver, workoutClient, exerciseClient, catalog)
	appliedPlanService := service.NewAppliedPlanService(appliedRepo, workoutClient, exerciseClient)
	massEditService := service.NewMassEditService(appliedRepo, workoutClient, exerciseClient, catalog, locker)
	macroService := service.NewMacroService(macroRepo, appliedRepo, massEditService)

	// --- Scheduled Macro Passes ---
	if cfg.Macros.Enabled {
		scheduler := service.NewMacroScheduler(macroService, appliedRepo)
		if err := scheduler.Start(cfg.Macros.CronSpec); err != nil {
			log.Fatalf("FATAL: Could not start macro scheduler: %v", err)
		}
		defer scheduler.Stop()
		log.Printf("Macro scheduler running with spec %q", cfg.Macros.CronSpec)
	}

	// --- Initialize Gin Engine ---
	// gin.SetMode(gin.ReleaseMode) // Uncomment for production
	router := gin.Default()

	// --- Setup Routes ---
	log.Println("Setting up API routes...")
	api.SetupRoutes(router, cfg.JWT.Secret,
		planService, materializer, appliedPlanService, massEditService, macroService,
		queue, statuses)

	// --- Start HTTP Server ---
	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	log.Printf("Server starting on %s", cfg.Server.Address)

	// --- Graceful Shutdown ---
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("FATAL: ListenAndServe Error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Fatalf("FATAL: Server forced to shutdown: %v", err)
	}

	log.Println("Server exiting.")
}
