package monitoring

import (
	"errors"
	"fmt"
)

var (
	// ErrAggregationFailed is returned by Collect when every requested group
	// failed.
	ErrAggregationFailed = errors.New("aggregation failed: every metric group failed")

	// ErrCollectionInFlight is returned by Scheduler.Refresh when another
	// collection has not finished yet.
	ErrCollectionInFlight = errors.New("collection already in flight")
)

// GroupFetchError records why one metric group is absent from a snapshot.
type GroupFetchError struct {
	Group Group
	Op    string // query that failed, e.g. "memLayout"
	Err   error
}

func (e *GroupFetchError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("[%s] %s: %v", e.Group, e.Op, e.Err)
	}
	return fmt.Sprintf("[%s] %v", e.Group, e.Err)
}

func (e *GroupFetchError) Unwrap() error {
	return e.Err
}

func fetchError(g Group, op string, err error) *GroupFetchError {
	return &GroupFetchError{Group: g, Op: op, Err: err}
}
