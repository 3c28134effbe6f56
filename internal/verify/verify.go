// Package verify re-hashes files recorded in an index and reports the ones
// whose content changed.
package verify

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"chunkhash/internal/hashing"
	"chunkhash/internal/index"
	"chunkhash/internal/metrics"
	"chunkhash/internal/progress"
	"chunkhash/internal/report"
)

type byteCounter struct{ n int64 }

func (c *byteCounter) BlockHashed(_, _, n int)  { atomic.AddInt64(&c.n, int64(n)) }
func (c *byteCounter) PartitionDone(int, error) {}

func Verify(ctx context.Context, idx *index.Index, opts Options, stats *metrics.Stats, bar *progress.Bar) *Result {
	workers := opts.Workers
	if workers <= 0 {
		workers = 1
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	res := &Result{}
	var mu sync.Mutex

	jobs := make(chan index.FileItem)
	var wg sync.WaitGroup

	worker := func() {
		defer wg.Done()

		for fi := range jobs {
			finish := func() {
				atomic.AddInt64(&stats.Processed, 1)
			}
			advance := func(n int64) {
				if n > 0 && bar != nil {
					bar.AddBytes(n)
				}
			}
			fail := func(err error) {
				atomic.AddInt64(&stats.Errors, 1)
				log.Warn("verify failed", zap.String("path", fi.Path), zap.Error(err))
				mu.Lock()
				res.Failures = append(res.Failures, Failure{Path: fi.Path, Err: err})
				mu.Unlock()
			}
			mismatch := func(m Mismatch) {
				atomic.AddInt64(&stats.Mismatches, 1)
				log.Info("mismatch", zap.String("path", m.Path), zap.String("reason", m.Reason), zap.Ints("partitions", m.Partitions))
				mu.Lock()
				res.Mismatches = append(res.Mismatches, m)
				mu.Unlock()
			}

			info, err := os.Stat(fi.Path)
			if err != nil {
				fail(err)
				advance(fi.Size)
				finish()
				continue
			}
			if info.Size() != fi.Size {
				mismatch(Mismatch{
					Path:     fi.Path,
					Reason:   ReasonSize,
					Expected: fmt.Sprint(fi.Size),
					Computed: fmt.Sprint(info.Size()),
				})
				advance(fi.Size)
				finish()
				continue
			}

			counter := &byteCounter{}
			observers := hashing.MultiObserver{stats, counter}
			if bar != nil {
				observers = append(observers, bar)
			}

			computed, err := hashing.Run(ctx, fi.Path, hashing.Options{
				Workers:   fi.Workers,
				BlockSize: fi.BlockSize,
				Algorithm: fi.Algorithm,
				Observer:  observers,
				Logger:    log,
			})
			sent := atomic.LoadInt64(&counter.n)
			if err != nil {
				fail(err)
				advance(fi.Size - sent)
				finish()
				continue
			}
			advance(fi.Size - sent)

			doc := report.NewDocument(computed)
			if differing := diffPartitions(fi.Partitions, doc.Partitions); len(differing) > 0 || !strings.EqualFold(doc.Root, fi.Root) {
				mismatch(Mismatch{
					Path:       fi.Path,
					Reason:     ReasonHash,
					Expected:   fi.Root,
					Computed:   doc.Root,
					Partitions: differing,
				})
				finish()
				continue
			}

			atomic.AddInt64(&stats.OK, 1)
			finish()
		}
	}

	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go worker()
	}

	for _, fi := range idx.Files {
		jobs <- fi
	}
	close(jobs)

	wg.Wait()

	sort.Slice(res.Mismatches, func(i, j int) bool { return res.Mismatches[i].Path < res.Mismatches[j].Path })
	sort.Slice(res.Failures, func(i, j int) bool { return res.Failures[i].Path < res.Failures[j].Path })
	return res
}

func diffPartitions(expected, computed []report.Partition) []int {
	differing := make([]int, 0)
	for i := range computed {
		if i >= len(expected) || !strings.EqualFold(strings.TrimSpace(expected[i].Hash), computed[i].Hash) {
			differing = append(differing, i)
		}
	}
	return differing
}
