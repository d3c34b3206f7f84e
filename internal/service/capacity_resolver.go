// internal/service/capacity_resolver.go
package service

import (
	"context"
	"errors"

	"github.com/oleksiikomarychev/WorkoutApp-sub002/internal/domain"
)

// --- Error Definitions ---
var (
	// ErrCapacityUnavailable means the capacity store holds no record
	// at all for the user/exercise pair. Distinct from transient
	// upstream failure (client.ErrUpstreamUnreachable), which passes
	// through untouched so callers can retry instead of skip.
	ErrCapacityUnavailable = errors.New("no capacity record for user and exercise")
)

// CapacityGateway is the slice of the capacity store the resolver needs.
// Satisfied by *client.CapacityClient.
type CapacityGateway interface {
	CalculateEffectiveMax(ctx context.Context, userMaxID int) (float64, error)
	ByExercises(ctx context.Context, exerciseIDs []int) ([]domain.CapacityRecord, error)
}

// CapacityResolver returns a user's effective one-rep-max for an
// exercise, following the estimate precedence: manually verified 1RM,
// then derived true 1RM, then the store-computed effective value of the
// raw recorded max.
type CapacityResolver interface {
	EffectiveMax(ctx context.Context, userID string, exerciseID int) (float64, *domain.CapacityRecord, error)
}

type capacityResolver struct {
	capacity CapacityGateway
}

// NewCapacityResolver creates a new resolver over the capacity store.
func NewCapacityResolver(capacity CapacityGateway) CapacityResolver {
	return &capacityResolver{capacity: capacity}
}

func (r *capacityResolver) EffectiveMax(ctx context.Context, userID string, exerciseID int) (float64, *domain.CapacityRecord, error) {
	records, err := r.capacity.ByExercises(ctx, []int{exerciseID})
	if err != nil {
		return 0, nil, err
	}
	record := pickRecord(records, userID, exerciseID)
	if record == nil {
		return 0, nil, ErrCapacityUnavailable
	}
	if record.VerifiedMax != nil {
		return *record.VerifiedMax, record, nil
	}
	if record.TrueMax != nil {
		return *record.TrueMax, record, nil
	}
	// Only the raw max is known; the store owns the formula turning it
	// into an effective 1RM.
	max, err := r.capacity.CalculateEffectiveMax(ctx, record.ID)
	if err != nil {
		return 0, nil, err
	}
	return max, record, nil
}

func pickRecord(records []domain.CapacityRecord, userID string, exerciseID int) *domain.CapacityRecord {
	for i := range records {
		if records[i].UserID == userID && records[i].ExerciseID == exerciseID {
			return &records[i]
		}
	}
	return nil
}

// resolverRun caches effective maxes for one materialization run so
// each distinct exercise is resolved upstream exactly once.
type resolverRun struct {
	resolver CapacityResolver
	userID   string
	maxes    map[int]float64
	records  map[int]int // exercise id -> capacity record id
}

func newResolverRun(resolver CapacityResolver, userID string) *resolverRun {
	return &resolverRun{
		resolver: resolver,
		userID:   userID,
		maxes:    make(map[int]float64),
		records:  make(map[int]int),
	}
}

func (run *resolverRun) effectiveMax(ctx context.Context, exerciseID int) (float64, error) {
	if max, ok := run.maxes[exerciseID]; ok {
		return max, nil
	}
	max, record, err := run.resolver.EffectiveMax(ctx, run.userID, exerciseID)
	if err != nil {
		return 0, err
	}
	run.maxes[exerciseID] = max
	if record != nil {
		run.records[exerciseID] = record.ID
	}
	return max, nil
}
