// internal/domain/applied.go
package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AppliedPlanStatus tracks the staged-commit lifecycle of an applied plan.
type AppliedPlanStatus string

const (
	// AppliedPlanPending means the local hierarchy exists but the external
	// batch-create calls have not all succeeded yet. Pending plans are
	// never listed to clients.
	AppliedPlanPending AppliedPlanStatus = "pending"
	// AppliedPlanActive means all external creates succeeded and the plan
	// is visible.
	AppliedPlanActive AppliedPlanStatus = "active"
)

// AppliedPlan is a materialized, user-scoped, time-bound instance of a
// template Plan. Template edits never cascade into an applied plan.
type AppliedPlan struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	PlanID     primitive.ObjectID `bson:"planId" json:"planId"`
	RootPlanID primitive.ObjectID `bson:"rootPlanId" json:"rootPlanId"`
	UserID     string             `bson:"userId" json:"userId"`

	StartDate time.Time         `bson:"startDate" json:"startDate"`
	EndDate   time.Time         `bson:"endDate" json:"endDate"`
	Status    AppliedPlanStatus `bson:"status" json:"status"`
	IsActive  bool              `bson:"isActive" json:"isActive"`

	// CapacityRecordIDs are the user-max records bound at apply time.
	CapacityRecordIDs []int `bson:"capacityRecordIds" json:"capacityRecordIds"`

	// CapacitySnapshot maps exercise definition id (as decimal string,
	// mongo map keys must be strings) to the effective max resolved at
	// materialization time. The mass-edit executor reads it to recompute
	// weights without re-querying the capacity store.
	CapacitySnapshot map[string]float64 `bson:"capacitySnapshot,omitempty" json:"capacitySnapshot,omitempty"`

	// ClassSnapshot maps exercise definition id (same string keys) to
	// the classification its sets were resolved under, so later edits
	// re-derive against the same conversion table materialization used.
	ClassSnapshot map[string]string `bson:"classSnapshot,omitempty" json:"classSnapshot,omitempty"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// AppliedMesocycle mirrors a template mesocycle. TemplateOrderIndex is
// nullable because mass-edit can introduce nodes with no template origin.
type AppliedMesocycle struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	AppliedPlanID primitive.ObjectID `bson:"appliedPlanId" json:"appliedPlanId"`
	Name          string             `bson:"name" json:"name"`
	OrderIndex    int                `bson:"orderIndex" json:"orderIndex"`

	TemplateOrderIndex *int `bson:"templateOrderIndex,omitempty" json:"templateOrderIndex,omitempty"`
}

// AppliedMicrocycle mirrors a template microcycle. ExternalID is the
// identifier the workout store keys its workouts by; it is allocated
// locally (one per microcycle, unique across plans) and sent with every
// workout create.
type AppliedMicrocycle struct {
	ID                 primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	AppliedPlanID      primitive.ObjectID `bson:"appliedPlanId" json:"appliedPlanId"`
	AppliedMesocycleID primitive.ObjectID `bson:"appliedMesocycleId" json:"appliedMesocycleId"`
	OrderIndex         int                `bson:"orderIndex" json:"orderIndex"`
	ExternalID         int                `bson:"externalId" json:"externalId"`
	StartsOn           time.Time          `bson:"startsOn" json:"startsOn"`

	TemplateOrderIndex *int `bson:"templateOrderIndex,omitempty" json:"templateOrderIndex,omitempty"`
}
