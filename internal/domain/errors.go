package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrTopicNotFound is returned when the cluster reports that a topic
	// does not exist.
	ErrTopicNotFound = errors.New("topic not found")

	// ErrEmptyPoll is returned when no message arrived within the poll
	// timeout. Transient; callers may retry.
	ErrEmptyPoll = errors.New("no message within poll timeout")

	// ErrEndOfPartition is returned when a partition consumer has reached
	// the end offset captured when it was opened. Terminal but expected.
	ErrEndOfPartition = errors.New("end of partition reached")

	// ErrCompletionTimeout is returned when an admin operation did not
	// complete within its operation timeout.
	ErrCompletionTimeout = errors.New("admin operation timed out")

	// ErrTopicNotLocal is returned when a diff is requested for a topic
	// that was already synced from the cluster.
	ErrTopicNotLocal = errors.New("topic is not local-only")

	// ErrUnknownView is returned when an invalid client view is selected.
	ErrUnknownView = errors.New("unknown client view")
)

// AdminOperationError reports a broker-side failure of a create, alter or
// delete operation.
type AdminOperationError struct {
	Op    string
	Topic string
	Err   error
}

func (e *AdminOperationError) Error() string {
	return fmt.Sprintf("%s topic %q: %v", e.Op, e.Topic, e.Err)
}

func (e *AdminOperationError) Unwrap() error {
	return e.Err
}
