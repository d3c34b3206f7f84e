package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/oleksiikomarychev/WorkoutApp-sub002/internal/domain"
)

func TestCapacityClient_CalculateEffectiveMax(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/capacity/calculate-effective-max" {
			t.Errorf("path = %s", r.URL.Path)
		}
		var req struct {
			UserMaxID int `json:"user_max_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserMaxID != 17 {
			t.Errorf("request body = %+v, err = %v", req, err)
		}
		json.NewEncoder(w).Encode(102.5)
	}))
	defer srv.Close()

	c := NewCapacityClient(Config{BaseURL: srv.URL, Timeout: time.Second})
	max, err := c.CalculateEffectiveMax(context.Background(), 17)
	if err != nil {
		t.Fatalf("CalculateEffectiveMax() error = %v", err)
	}
	if max != 102.5 {
		t.Errorf("CalculateEffectiveMax() = %g, want 102.5", max)
	}
}

func TestBaseClient_RetryPolicy(t *testing.T) {
	t.Run("retries 5xx then succeeds", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) < 3 {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			json.NewEncoder(w).Encode([]domain.Workout{{ID: 1}})
		}))
		defer srv.Close()

		c := NewWorkoutClient(Config{BaseURL: srv.URL, Timeout: time.Second, Retries: 3})
		workouts, err := c.BatchCreate(context.Background(), []domain.WorkoutCreate{{Name: "a"}})
		if err != nil {
			t.Fatalf("BatchCreate() error = %v", err)
		}
		if len(workouts) != 1 || workouts[0].ID != 1 {
			t.Errorf("BatchCreate() = %+v", workouts)
		}
		if calls.Load() != 3 {
			t.Errorf("upstream calls = %d, want 3", calls.Load())
		}
	})

	t.Run("exhausted retries surface as unreachable", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		c := NewWorkoutClient(Config{BaseURL: srv.URL, Timeout: time.Second, Retries: 1})
		_, err := c.ByMicrocycles(context.Background(), []int{1})
		if !errors.Is(err, ErrUpstreamUnreachable) {
			t.Errorf("ByMicrocycles() error = %v, want ErrUpstreamUnreachable", err)
		}
	})

	t.Run("4xx is not retried", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusUnprocessableEntity)
		}))
		defer srv.Close()

		c := NewExerciseClient(Config{BaseURL: srv.URL, Timeout: time.Second, Retries: 3})
		_, err := c.BatchCreate(context.Background(), nil)
		if err == nil || errors.Is(err, ErrUpstreamUnreachable) {
			t.Errorf("BatchCreate() error = %v, want non-retryable status error", err)
		}
		if calls.Load() != 1 {
			t.Errorf("upstream calls = %d, want 1", calls.Load())
		}
	})

	t.Run("404 maps to ErrNotFound", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer srv.Close()

		c := NewCapacityClient(Config{BaseURL: srv.URL, Timeout: time.Second})
		_, err := c.ByExercises(context.Background(), []int{9})
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("ByExercises() error = %v, want ErrNotFound", err)
		}
	})
}

func TestWorkoutClient_BatchCreateIdempotencyKey(t *testing.T) {
	var keys []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		keys = append(keys, r.Header.Get("Idempotency-Key"))
		if len(keys) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode([]domain.Workout{})
	}))
	defer srv.Close()

	c := NewWorkoutClient(Config{BaseURL: srv.URL, Timeout: time.Second, Retries: 2})
	if _, err := c.BatchCreate(context.Background(), nil); err != nil {
		t.Fatalf("BatchCreate() error = %v", err)
	}
	if len(keys) != 2 {
		t.Fatalf("upstream calls = %d, want 2", len(keys))
	}
	if keys[0] == "" || keys[0] != keys[1] {
		t.Errorf("idempotency keys %v must be stable across retries", keys)
	}
}

func TestStoreError(t *testing.T) {
	inner := ErrUpstreamUnreachable
	err := &StoreError{Store: "workout", BatchIndex: 2, Err: inner}
	if !errors.Is(err, ErrUpstreamUnreachable) {
		t.Error("StoreError must unwrap to its cause")
	}
	if err.Error() != "workout store: batch 2: upstream unreachable" {
		t.Errorf("Error() = %q", err.Error())
	}
}
