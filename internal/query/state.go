package query

import "time"

// Status is the lifecycle position of a query.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusPending Status = "pending"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// State is what a query exposes to rendering code.
type State[T any] struct {
	Data  T
	Error error
	// Status is idle for disabled queries without data.
	Status Status
	// IsLoading is true while a fetch is in flight and no data exists yet.
	IsLoading bool
	// IsFetching is true while a fetch is in flight, including behind stale data.
	IsFetching bool
	UpdatedAt  time.Time
}

// HasData reports whether Data holds a resolved value.
func (s State[T]) HasData() bool { return s.Status == StatusSuccess }

// IsError reports whether the last fetch failed.
func (s State[T]) IsError() bool { return s.Status == StatusError }

// IsIdle reports whether the query is disabled and has nothing cached.
func (s State[T]) IsIdle() bool { return s.Status == StatusIdle }
