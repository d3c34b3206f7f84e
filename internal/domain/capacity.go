// internal/domain/capacity.go
package domain

// CapacityRecord describes what the capacity store knows about one
// user's max for one exercise. MaxWeight is the raw recorded max;
// TrueMax is the derived one-rep-max estimate; VerifiedMax is a
// manually confirmed one-rep-max. Resolution precedence is
// VerifiedMax > TrueMax > MaxWeight.
type CapacityRecord struct {
	ID          int      `json:"id"`
	UserID      string   `json:"user_id"`
	ExerciseID  int      `json:"exercise_id"`
	MaxWeight   float64  `json:"max_weight"`
	TrueMax     *float64 `json:"true_max,omitempty"`
	VerifiedMax *float64 `json:"verified_max,omitempty"`
}
