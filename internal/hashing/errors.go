package hashing

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrIO                = errors.New("i/o error")
	ErrInternalInvariant = errors.New("internal invariant violation")
)

// PartitionError is returned by Run when at least one worker failed. Err is
// the failure of the lowest-indexed partition; Siblings holds the failures of
// every other partition, combined.
type PartitionError struct {
	Partition int
	Err       error
	Siblings  error
}

func (e *PartitionError) Error() string {
	if e.Siblings != nil {
		return fmt.Sprintf("partition %d: %v (other partitions: %v)", e.Partition, e.Err, e.Siblings)
	}
	return fmt.Sprintf("partition %d: %v", e.Partition, e.Err)
}

func (e *PartitionError) Unwrap() error { return e.Err }

func invalidArg(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

func ioErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrIO, fmt.Sprintf(format, args...))
}
