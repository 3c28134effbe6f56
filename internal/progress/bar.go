package progress

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
)

type SnapshotFn func() (partitionsDone, partitions, failed, bytesHashed int64)

// Bar renders hashing progress. It satisfies hashing.Observer; block
// notifications are queued on a channel and drawn by a single goroutine.
type Bar struct {
	bar  *progressbar.ProgressBar
	ch   chan int64
	done chan struct{}
	stop chan struct{}
	wg   sync.WaitGroup

	snap   SnapshotFn
	lastB  int64
	lastAt time.Time
}

func New(w io.Writer, totalBytes int64, snap SnapshotFn) *Bar {
	b := &Bar{
		ch:     make(chan int64, 16384),
		done:   make(chan struct{}),
		stop:   make(chan struct{}),
		snap:   snap,
		lastAt: time.Now(),
	}

	b.bar = progressbar.NewOptions64(
		totalBytes,
		progressbar.OptionSetWriter(w),
		progressbar.OptionUseANSICodes(true),
		progressbar.OptionSetDescription("hashing"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionThrottle(120*time.Millisecond),
	)

	_ = b.bar.RenderBlank()
	go func() {
		defer close(b.done)
		for n := range b.ch {
			_ = b.bar.Add64(n)
		}
		_ = b.bar.Finish()
	}()

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		t := time.NewTicker(1 * time.Second)
		defer t.Stop()
		for {
			select {
			case <-t.C:
				b.updateDescription()
			case <-b.stop:
				return
			}
		}
	}()

	return b
}

func (b *Bar) AddBytes(n int64) {
	if n <= 0 {
		return
	}
	b.ch <- n
}

func (b *Bar) BlockHashed(_, _, n int) { b.AddBytes(int64(n)) }

func (b *Bar) PartitionDone(int, error) {}

func (b *Bar) Close() {
	close(b.stop)
	b.wg.Wait()
	close(b.ch)
	<-b.done
}

func (b *Bar) updateDescription() {
	if b.snap == nil {
		return
	}
	done, total, failed, bytesHashed := b.snap()

	now := time.Now()
	dt := now.Sub(b.lastAt).Seconds()

	mbps := 0.0
	if dt > 0 {
		dBytes := bytesHashed - b.lastB
		mbps = (float64(dBytes) / 1_000_000.0) / dt
	}

	b.lastB = bytesHashed
	b.lastAt = now

	b.bar.Describe(fmt.Sprintf("hashing %d/%d partitions | failed=%d | %.1f MB/s", done, total, failed, mbps))
}
