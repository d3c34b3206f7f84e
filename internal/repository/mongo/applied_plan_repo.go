// internal/repository/mongo/applied_plan_repo.go
package mongo

import (
	"context"
	"errors"
	"time"

	"github.com/oleksiikomarychev/WorkoutApp-sub002/internal/domain"
	"github.com/oleksiikomarychev/WorkoutApp-sub002/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	appliedPlanCollectionName  = "applied_plans"
	appliedMesoCollectionName  = "applied_mesocycles"
	appliedMicroCollectionName = "applied_microcycles"
	counterCollectionName      = "counters"

	microcycleCounterName = "microcycle_external_id"
)

// mongoAppliedPlanRepository implements repository.AppliedPlanRepository
type mongoAppliedPlanRepository struct {
	plans    *mongo.Collection
	mesos    *mongo.Collection
	micros   *mongo.Collection
	counters *mongo.Collection
}

// NewMongoAppliedPlanRepository creates a new applied plan repository.
func NewMongoAppliedPlanRepository(db *mongo.Database) repository.AppliedPlanRepository {
	return &mongoAppliedPlanRepository{
		plans:    db.Collection(appliedPlanCollectionName),
		mesos:    db.Collection(appliedMesoCollectionName),
		micros:   db.Collection(appliedMicroCollectionName),
		counters: db.Collection(counterCollectionName),
	}
}

// CreateHierarchy inserts the applied plan and its node metadata.
// Callers pass the plan in pending status during a staged commit; the
// hierarchy becomes visible only once Activate runs.
func (r *mongoAppliedPlanRepository) CreateHierarchy(ctx context.Context, plan *domain.AppliedPlan, mesocycles []domain.AppliedMesocycle, microcycles []domain.AppliedMicrocycle) error {
	if plan.PlanID == primitive.NilObjectID || plan.UserID == "" {
		return errors.New("applied plan requires planId and userId")
	}
	now := time.Now().UTC()
	plan.CreatedAt = now
	plan.UpdatedAt = now

	if _, err := r.plans.InsertOne(ctx, plan); err != nil {
		return err
	}
	if len(mesocycles) > 0 {
		docs := make([]interface{}, len(mesocycles))
		for i := range mesocycles {
			docs[i] = mesocycles[i]
		}
		if _, err := r.mesos.InsertMany(ctx, docs); err != nil {
			return err
		}
	}
	if len(microcycles) > 0 {
		docs := make([]interface{}, len(microcycles))
		for i := range microcycles {
			docs[i] = microcycles[i]
		}
		if _, err := r.micros.InsertMany(ctx, docs); err != nil {
			return err
		}
	}
	return nil
}

// GetByID retrieves a single applied plan by its ID.
func (r *mongoAppliedPlanRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.AppliedPlan, error) {
	var plan domain.AppliedPlan
	err := r.plans.FindOne(ctx, bson.M{"_id": id}).Decode(&plan)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &plan, nil
}

// ListByUser retrieves the user's applied plans, newest first. Pending
// plans are excluded: a staged commit that has not finished (or was
// rolled back concurrently) must never be visible.
func (r *mongoAppliedPlanRepository) ListByUser(ctx context.Context, userID string) ([]domain.AppliedPlan, error) {
	var plans []domain.AppliedPlan
	filter := bson.M{"userId": userID, "status": domain.AppliedPlanActive}
	findOptions := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})

	cursor, err := r.plans.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &plans); err != nil {
		return nil, err
	}
	return plans, nil
}

// ListActive retrieves every active applied plan across users.
func (r *mongoAppliedPlanRepository) ListActive(ctx context.Context) ([]domain.AppliedPlan, error) {
	var plans []domain.AppliedPlan
	filter := bson.M{"status": domain.AppliedPlanActive, "isActive": true}

	cursor, err := r.plans.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &plans); err != nil {
		return nil, err
	}
	return plans, nil
}

// GetMicrocycles retrieves all microcycle metadata of an applied plan,
// ordered the way materialization assigned them.
func (r *mongoAppliedPlanRepository) GetMicrocycles(ctx context.Context, appliedPlanID primitive.ObjectID) ([]domain.AppliedMicrocycle, error) {
	var micros []domain.AppliedMicrocycle
	filter := bson.M{"appliedPlanId": appliedPlanID}
	findOptions := options.Find().SetSort(bson.D{{Key: "orderIndex", Value: 1}})

	cursor, err := r.micros.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &micros); err != nil {
		return nil, err
	}
	return micros, nil
}

// Activate flips a pending plan to active/visible and stores the
// capacity snapshot taken at materialization time.
func (r *mongoAppliedPlanRepository) Activate(ctx context.Context, id primitive.ObjectID, snapshot map[string]float64) error {
	filter := bson.M{"_id": id, "status": domain.AppliedPlanPending}
	updateDoc := bson.M{
		"$set": bson.M{
			"status":           domain.AppliedPlanActive,
			"isActive":         true,
			"capacitySnapshot": snapshot,
			"updatedAt":        time.Now().UTC(),
		},
	}
	result, err := r.plans.UpdateOne(ctx, filter, updateDoc)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// DeactivateOthers clears is_active on every other applied plan the
// user holds for the same root plan lineage.
func (r *mongoAppliedPlanRepository) DeactivateOthers(ctx context.Context, userID string, rootPlanID, keep primitive.ObjectID) error {
	filter := bson.M{
		"userId":     userID,
		"rootPlanId": rootPlanID,
		"isActive":   true,
		"_id":        bson.M{"$ne": keep},
	}
	updateDoc := bson.M{
		"$set": bson.M{"isActive": false, "updatedAt": time.Now().UTC()},
	}
	_, err := r.plans.UpdateMany(ctx, filter, updateDoc)
	return err
}

// SetActive toggles a plan's is_active flag.
func (r *mongoAppliedPlanRepository) SetActive(ctx context.Context, id primitive.ObjectID, active bool) error {
	updateDoc := bson.M{
		"$set": bson.M{"isActive": active, "updatedAt": time.Now().UTC()},
	}
	result, err := r.plans.UpdateOne(ctx, bson.M{"_id": id}, updateDoc)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// DeleteHierarchy removes the applied plan and all its node metadata.
// Used for both staged-commit rollback and cascading delete; deleting
// children first means an interrupted delete leaves no orphaned nodes
// under a still-listed plan.
func (r *mongoAppliedPlanRepository) DeleteHierarchy(ctx context.Context, id primitive.ObjectID) error {
	if _, err := r.micros.DeleteMany(ctx, bson.M{"appliedPlanId": id}); err != nil {
		return err
	}
	if _, err := r.mesos.DeleteMany(ctx, bson.M{"appliedPlanId": id}); err != nil {
		return err
	}
	result, err := r.plans.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// AllocateMicrocycleIDs reserves n consecutive external microcycle ids
// via an atomic counter document and returns the first of the block.
func (r *mongoAppliedPlanRepository) AllocateMicrocycleIDs(ctx context.Context, n int) (int, error) {
	if n <= 0 {
		return 0, errors.New("allocation size must be positive")
	}
	var counter struct {
		Value int `bson:"value"`
	}
	findOptions := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)
	err := r.counters.FindOneAndUpdate(
		ctx,
		bson.M{"_id": microcycleCounterName},
		bson.M{"$inc": bson.M{"value": n}},
		findOptions,
	).Decode(&counter)
	if err != nil {
		return 0, err
	}
	return counter.Value - n + 1, nil
}

// EnsureAppliedPlanIndexes creates necessary indexes. Call during startup.
func EnsureAppliedPlanIndexes(ctx context.Context, db *mongo.Database) {
	planIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "status", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index(),
		},
		{
			// Active-plan uniqueness scan per lineage.
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "rootPlanId", Value: 1}, {Key: "isActive", Value: 1}},
			Options: options.Index(),
		},
	}
	_, err := db.Collection(appliedPlanCollectionName).Indexes().CreateMany(ctx, planIndexes)
	if err != nil {
		// log.Printf("WARN: Failed to create applied plan indexes: %v", err)
	}

	nodeIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "appliedPlanId", Value: 1}, {Key: "orderIndex", Value: 1}},
			Options: options.Index(),
		},
	}
	_, err = db.Collection(appliedMesoCollectionName).Indexes().CreateMany(ctx, nodeIndexes)
	if err != nil {
		// log.Printf("WARN: Failed to create applied mesocycle indexes: %v", err)
	}
	_, err = db.Collection(appliedMicroCollectionName).Indexes().CreateMany(ctx, nodeIndexes)
	if err != nil {
		// log.Printf("WARN: Failed to create applied microcycle indexes: %v", err)
	}
}
