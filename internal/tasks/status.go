// internal/tasks/status.go
package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// State is the lifecycle stage of a queued task.
type State string

const (
	StatePending   State = "pending"
	StateRunning   State = "running"
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
)

var ErrTaskNotFound = errors.New("task not found")

// Status is the record returned to pollers.
type Status struct {
	TaskID string                 `json:"task_id"`
	Status State                  `json:"status"`
	Error  string                 `json:"error,omitempty"`
	Result interface{}            `json:"result,omitempty"`
	Meta   map[string]interface{} `json:"meta,omitempty"`
}

// StatusStore keeps task status records in redis so the API process
// and the worker process see the same lifecycle.
type StatusStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewStatusStore(rdb *redis.Client, ttl time.Duration) *StatusStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &StatusStore{rdb: rdb, ttl: ttl}
}

func (s *StatusStore) key(taskID string) string {
	return "task:status:" + taskID
}

func (s *StatusStore) put(ctx context.Context, st *Status) error {
	raw, err := json.Marshal(st)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, s.key(st.TaskID), raw, s.ttl).Err()
}

// Get returns the current status record for a task id.
func (s *StatusStore) Get(ctx context.Context, taskID string) (*Status, error) {
	raw, err := s.rdb.Get(ctx, s.key(taskID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to read task status: %w", err)
	}
	var st Status
	if err := json.Unmarshal(raw, &st); err != nil {
		return nil, fmt.Errorf("failed to decode task status: %w", err)
	}
	return &st, nil
}

// MarkPending records a freshly enqueued task.
func (s *StatusStore) MarkPending(ctx context.Context, taskID string) error {
	return s.put(ctx, &Status{TaskID: taskID, Status: StatePending})
}

// MarkRunning flips a task to running. It reports false without error
// when the task was cancelled before the worker picked it up.
func (s *StatusStore) MarkRunning(ctx context.Context, taskID string) (bool, error) {
	st, err := s.Get(ctx, taskID)
	if err != nil {
		if errors.Is(err, ErrTaskNotFound) {
			// Status record expired or was never written; run anyway.
			st = &Status{TaskID: taskID}
		} else {
			return false, err
		}
	}
	if st.Status == StateFailed || st.Status == StateSucceeded {
		return false, nil
	}
	st.Status = StateRunning
	return true, s.put(ctx, st)
}

// MarkSucceeded records the terminal success state with its result.
func (s *StatusStore) MarkSucceeded(ctx context.Context, taskID string, result interface{}) error {
	st, err := s.Get(ctx, taskID)
	if err != nil {
		st = &Status{TaskID: taskID}
	}
	st.Status = StateSucceeded
	st.Result = result
	st.Error = ""
	return s.put(ctx, st)
}

// MarkFailed records the terminal failure state.
func (s *StatusStore) MarkFailed(ctx context.Context, taskID string, cause error) error {
	st, err := s.Get(ctx, taskID)
	if err != nil {
		st = &Status{TaskID: taskID}
	}
	st.Status = StateFailed
	st.Error = cause.Error()
	return s.put(ctx, st)
}

// cancelScript flips a task to failed only while it is still pending,
// so a task that already started keeps running to completion.
var cancelScript = redis.NewScript(`
local raw = redis.call("GET", KEYS[1])
if not raw then return 0 end
local st = cjson.decode(raw)
if st["status"] ~= "pending" then return 0 end
st["status"] = "failed"
st["error"] = "cancelled before start"
redis.call("SET", KEYS[1], cjson.encode(st), "KEEPTTL")
return 1
`)

// Cancel aborts a task that has not started yet. It reports whether the
// cancellation took effect.
func (s *StatusStore) Cancel(ctx context.Context, taskID string) (bool, error) {
	n, err := cancelScript.Run(ctx, s.rdb, []string{s.key(taskID)}).Int()
	if err != nil {
		return false, fmt.Errorf("failed to cancel task: %w", err)
	}
	return n == 1, nil
}

// SetProgress publishes progress metadata for pollers.
func (s *StatusStore) SetProgress(ctx context.Context, taskID string, done, total int) {
	st, err := s.Get(ctx, taskID)
	if err != nil {
		return
	}
	if st.Meta == nil {
		st.Meta = make(map[string]interface{})
	}
	st.Meta["done"] = done
	st.Meta["total"] = total
	_ = s.put(ctx, st)
}
