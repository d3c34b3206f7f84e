// internal/domain/macro.go
package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PlanMacro is a named automatic bulk-edit rule attached to a template
// plan. Body is a serialized mass-edit command. Lower Priority runs
// earlier within a pass, and an earlier rule wins any numeric field it
// touches; ties break by CreatedAt, then ID, so a pass is a
// deterministic total order.
type PlanMacro struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	PlanID    primitive.ObjectID `bson:"planId" json:"planId"`
	Name      string             `bson:"name" json:"name"`
	IsActive  bool               `bson:"isActive" json:"isActive"`
	Priority  int                `bson:"priority" json:"priority"`
	Body      string             `bson:"body" json:"body"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}
