package verify

import "go.uber.org/zap"

const (
	ReasonSize = "size"
	ReasonHash = "hash"
)

type Mismatch struct {
	Path     string
	Reason   string
	Expected string
	Computed string
	// Partitions lists the partitions whose digests differ.
	Partitions []int
}

type Failure struct {
	Path string
	Err  error
}

type Result struct {
	Mismatches []Mismatch
	Failures   []Failure
}

func (r *Result) OK() bool { return len(r.Mismatches) == 0 && len(r.Failures) == 0 }

type Options struct {
	// Workers is the number of files verified at the same time. Each file is
	// re-hashed with the partitioning recorded in the index.
	Workers int
	Logger  *zap.Logger
}
