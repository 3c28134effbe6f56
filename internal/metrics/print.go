package metrics

import (
	"fmt"
	"io"
	"sync/atomic"

	"github.com/dustin/go-humanize"
)

type Snapshot struct {
	DurationMs      int64
	Total           int64
	Processed       int64
	OK              int64
	Mismatches      int64
	Errors          int64
	Partitions      int64
	PartitionErrors int64
	Blocks          int64
	BytesHashed     int64
	TotalBytes      int64
}

func (s *Stats) Snapshot() Snapshot {
	dur := s.Duration()

	return Snapshot{
		DurationMs:      dur.Milliseconds(),
		Total:           atomic.LoadInt64(&s.Total),
		Processed:       atomic.LoadInt64(&s.Processed),
		OK:              atomic.LoadInt64(&s.OK),
		Mismatches:      atomic.LoadInt64(&s.Mismatches),
		Errors:          atomic.LoadInt64(&s.Errors),
		Partitions:      atomic.LoadInt64(&s.Partitions),
		PartitionErrors: atomic.LoadInt64(&s.PartitionErrors),
		Blocks:          atomic.LoadInt64(&s.Blocks),
		BytesHashed:     atomic.LoadInt64(&s.BytesHashed),
		TotalBytes:      atomic.LoadInt64(&s.TotalBytes),
	}
}

func Print(w io.Writer, s *Stats) {
	snap := s.Snapshot()

	fmt.Fprintln(w, "--- stats ---")
	fmt.Fprintln(w, "duration_ms:", snap.DurationMs)
	if snap.Total > 0 {
		fmt.Fprintln(w, "files:", snap.Total)
		fmt.Fprintln(w, "processed:", snap.Processed)
		fmt.Fprintln(w, "ok:", snap.OK)
		fmt.Fprintln(w, "mismatches:", snap.Mismatches)
		fmt.Fprintln(w, "errors:", snap.Errors)
	}
	fmt.Fprintln(w, "partitions:", snap.Partitions)
	fmt.Fprintln(w, "partition_errors:", snap.PartitionErrors)
	fmt.Fprintln(w, "blocks:", snap.Blocks)
	fmt.Fprintln(w, "bytes_hashed:", snap.BytesHashed)
	fmt.Fprintln(w, "total_bytes:", snap.TotalBytes)

	if snap.DurationMs > 0 {
		secs := float64(snap.DurationMs) / 1000.0
		bps := float64(snap.BytesHashed) / secs
		fmt.Fprintln(w, "throughput_bytes_per_sec:", bps)
		fmt.Fprintf(w, "throughput: %s/s\n", humanize.Bytes(uint64(bps)))
	}
}
