package main

import (
	"context"
	"log"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/oleksiikomarychev/WorkoutApp-sub002/internal/client"
	"github.com/oleksiikomarychev/WorkoutApp-sub002/internal/config"
	"github.com/oleksiikomarychev/WorkoutApp-sub002/internal/repository/mongo"
	"github.com/oleksiikomarychev/WorkoutApp-sub002/internal/rpe"
	"github.com/oleksiikomarychev/WorkoutApp-sub002/internal/service"
	"github.com/oleksiikomarychev/WorkoutApp-sub002/internal/tasks"
)

func main() {
	log.Println("Starting Plan Engine Worker...")

	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("FATAL: Could not load config: %v", err)
	}

	dbClient, err := mongo.ConnectDB(cfg.Database.URI)
	if err != nil {
		log.Fatalf("FATAL: Could not connect to MongoDB: %v", err)
	}
	defer func() {
		if err := mongo.DisconnectDB(dbClient); err != nil {
			log.Printf("ERROR: Failed to disconnect MongoDB: %v", err)
		}
	}()
	appDB := dbClient.Database(cfg.Database.Name)
	log.Println("Database connection established.")

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

	catalog, err := rpe.LoadCatalog(cfg.RPE.ChartFile)
	if err != nil {
		log.Fatalf("FATAL: Could not load conversion chart: %v", err)
	}

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

	planRepo := mongo.NewMongoPlanRepository(appDB)
	appliedRepo := mongo.NewMongoAppliedPlanRepository(appDB)
	macroRepo := mongo.NewMongoMacroRepository(appDB)

	resolver := service.NewCapacityResolver(capacityClient)
	locker := service.NewRedisLocker(redisClient)
	materializer := service.NewMaterializeService(planRepo, appliedRepo, resolver, workoutClient, exerciseClient, catalog)
	massEditService := service.NewMassEditService(appliedRepo, workoutClient, exerciseClient, catalog, locker)
	macroService := service.NewMacroService(macroRepo, appliedRepo, massEditService)

	statuses := tasks.NewStatusStore(redisClient, 24*time.Hour)

	server := asynq.NewServer(asynq.RedisClientOpt{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}, asynq.Config{
		Concurrency: 10,
	})

	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypeMaterialize, tasks.NewMaterializeHandler(materializer, macroService, statuses))
	mux.HandleFunc(tasks.TypeMassEdit, tasks.NewMassEditHandler(massEditService, statuses))

	log.Printf("Worker started, redis=%s", cfg.Redis.Address)
	if err := server.Run(mux); err != nil {
		log.Fatalf("FATAL: Worker server stopped: %v", err)
	}
}
