package metrics

import (
	"sync/atomic"
	"time"
)

// Stats counts files and partitions hashed during a command. It satisfies
// hashing.Observer so it can be handed straight to a run.
type Stats struct {
	TotalBytes int64

	Total      int64
	Processed  int64
	OK         int64
	Mismatches int64
	Errors     int64

	Partitions      int64
	PartitionErrors int64
	Blocks          int64
	BytesHashed     int64

	Started  time.Time
	Finished time.Time
}

func (s *Stats) Start() { s.Started = time.Now() }
func (s *Stats) Stop()  { s.Finished = time.Now() }
func (s *Stats) Duration() time.Duration {
	if s.Finished.IsZero() {
		return time.Since(s.Started)
	}
	return s.Finished.Sub(s.Started)
}

func (s *Stats) BlockHashed(_, _, n int) {
	atomic.AddInt64(&s.Blocks, 1)
	atomic.AddInt64(&s.BytesHashed, int64(n))
}

func (s *Stats) PartitionDone(_ int, err error) {
	if err != nil {
		atomic.AddInt64(&s.PartitionErrors, 1)
		return
	}
	atomic.AddInt64(&s.Partitions, 1)
}
