// internal/repository/mongo/macro_repo.go
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

const macroCollectionName = "plan_macros"

// mongoMacroRepository implements repository.MacroRepository
type mongoMacroRepository struct {
	collection *mongo.Collection
}

// NewMongoMacroRepository creates a new plan macro repository.
func NewMongoMacroRepository(db *mongo.Database) repository.MacroRepository {
	return &mongoMacroRepository{
		collection: db.Collection(macroCollectionName),
	}
}

// Create inserts a new macro.
func (r *mongoMacroRepository) Create(ctx context.Context, macro *domain.PlanMacro) (primitive.ObjectID, error) {
	if macro.PlanID == primitive.NilObjectID || macro.Name == "" {
		return primitive.NilObjectID, errors.New("macro requires planId and name")
	}
	macro.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	macro.CreatedAt = now
	macro.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, macro)
	if err != nil {
		return primitive.NilObjectID, err
	}
	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted macro ID")
	}
	return insertedID, nil
}

// GetByID retrieves a single macro by its ID.
func (r *mongoMacroRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.PlanMacro, error) {
	var macro domain.PlanMacro
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&macro)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &macro, nil
}

// ListByPlan retrieves macros attached to a plan in execution order:
// priority ascending, then creation time, then id. The sort is the
// deterministic total order the macro engine relies on.
func (r *mongoMacroRepository) ListByPlan(ctx context.Context, planID primitive.ObjectID, activeOnly bool) ([]domain.PlanMacro, error) {
	filter := bson.M{"planId": planID}
	if activeOnly {
		filter["isActive"] = true
	}
	findOptions := options.Find().SetSort(bson.D{
		{Key: "priority", Value: 1},
		{Key: "createdAt", Value: 1},
		{Key: "_id", Value: 1},
	})

	var macros []domain.PlanMacro
	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &macros); err != nil {
		return nil, err
	}
	return macros, nil
}

// Update replaces the mutable fields of a macro.
func (r *mongoMacroRepository) Update(ctx context.Context, macro *domain.PlanMacro) error {
	if macro.ID == primitive.NilObjectID {
		return errors.New("macro ID is required for update")
	}
	updateDoc := bson.M{
		"$set": bson.M{
			"name":      macro.Name,
			"isActive":  macro.IsActive,
			"priority":  macro.Priority,
			"body":      macro.Body,
			"updatedAt": time.Now().UTC(),
		},
	}
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": macro.ID}, updateDoc)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// Delete removes a macro.
func (r *mongoMacroRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// EnsureMacroIndexes creates necessary indexes. Call during startup.
func EnsureMacroIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "planId", Value: 1}, {Key: "priority", Value: 1}, {Key: "createdAt", Value: 1}},
			Options: options.Index(),
		},
	}
	_, err := collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		// log.Printf("WARN: Failed to create macro indexes: %v", err)
	}
}
