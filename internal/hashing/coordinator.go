package hashing

import (
	"context"
	"fmt"
	"os"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

type state int

const (
	stateIdle state = iota
	statePartitioning
	stateDispatching
	stateAwaiting
	stateCollected
	stateDone
	stateFailed
)

func (s state) String() string {
	switch s {
	case stateIdle:
		return "idle"
	case statePartitioning:
		return "partitioning"
	case stateDispatching:
		return "dispatching"
	case stateAwaiting:
		return "awaiting"
	case stateCollected:
		return "collected"
	case stateDone:
		return "done"
	case stateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// job is the state of a single run. Each worker writes only its own slot in
// digests and errs; the coordinator reads them after every worker returned.
type job struct {
	path  string
	size  int64
	opts  Options
	open  opener
	log   *zap.Logger
	state state

	digests []ChunkDigest
	errs    []error
}

func (j *job) transition(to state) {
	j.log.Debug("hash job state", zap.Stringer("from", j.state), zap.Stringer("to", to))
	j.state = to
}

// Run hashes the file at path in opts.Workers concurrent partitions and
// returns the digests ordered by partition. It either returns a digest for
// every partition or an error; when workers fail, the error is a
// *PartitionError for the lowest failing partition.
func Run(ctx context.Context, path string, opts Options) (*Result, error) {
	opts = opts.withDefaults()
	if err := opts.validate(); err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, ioErr("stat %s: %v", path, err)
	}
	if !info.Mode().IsRegular() {
		return nil, ioErr("%s is not a regular file", path)
	}

	return run(ctx, path, info.Size(), opts, openFile)
}

// RunSize is Run over the first size bytes of path instead of the whole file.
func RunSize(ctx context.Context, path string, size int64, opts Options) (*Result, error) {
	opts = opts.withDefaults()
	if err := opts.validate(); err != nil {
		return nil, err
	}
	return run(ctx, path, size, opts, openFile)
}

func run(ctx context.Context, path string, size int64, opts Options, open opener) (*Result, error) {
	j := &job{
		path: path,
		size: size,
		opts: opts,
		open: open,
		log:  opts.Logger.With(zap.String("path", path)),
	}

	j.transition(statePartitioning)
	ranges, err := Partition(size, opts.Workers, opts.BlockSize)
	if err != nil {
		j.transition(stateFailed)
		return nil, err
	}
	j.digests = make([]ChunkDigest, len(ranges))
	j.errs = make([]error, len(ranges))

	j.transition(stateDispatching)
	var wg sync.WaitGroup
	wg.Add(len(ranges))
	for _, r := range ranges {
		go j.worker(ctx, &wg, r, r.Index == len(ranges)-1)
	}

	j.transition(stateAwaiting)
	wg.Wait()
	j.transition(stateCollected)

	if err := j.failure(); err != nil {
		j.transition(stateFailed)
		j.log.Debug("hash job failed", zap.Error(err))
		return nil, err
	}
	j.transition(stateDone)

	return &Result{
		Path:      path,
		Size:      size,
		Algorithm: normalizeAlgorithm(opts.Algorithm),
		BlockSize: opts.BlockSize,
		Workers:   opts.Workers,
		Digests:   j.digests,
	}, nil
}

func (j *job) worker(ctx context.Context, wg *sync.WaitGroup, r FileRange, final bool) {
	defer wg.Done()

	d, err := hashRange(ctx, j.open, j.path, r, final, j.opts.BlockSize, j.opts.Algorithm, j.opts.Observer)
	if err != nil {
		j.errs[r.Index] = err
	} else {
		j.digests[r.Index] = d
	}
	j.log.Debug("partition finished",
		zap.Int("partition", r.Index),
		zap.Int64("start", r.Start),
		zap.Int64("length", r.Length),
		zap.Error(err),
	)

	if j.opts.Observer != nil {
		j.opts.Observer.PartitionDone(r.Index, err)
	}
}

func (j *job) failure() error {
	first := -1
	var siblings error
	for i, err := range j.errs {
		if err == nil {
			continue
		}
		if first < 0 {
			first = i
			continue
		}
		siblings = multierr.Append(siblings, fmt.Errorf("partition %d: %w", i, err))
	}
	if first < 0 {
		return nil
	}
	return &PartitionError{Partition: first, Err: j.errs[first], Siblings: siblings}
}
