package hashing

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap/zaptest"
)

const emptySHA256 = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"

func TestRun_EmptyFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "empty.bin", nil)

	res, err := Run(context.Background(), path, Options{Workers: 4, BlockSize: 4096, Logger: zaptest.NewLogger(t)})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Digests) != 4 {
		t.Fatalf("got %d digests, want 4", len(res.Digests))
	}
	for i, d := range res.Digests {
		if d.Partition != i {
			t.Fatalf("digest %d carries partition %d", i, d.Partition)
		}
		if got := hex.EncodeToString(d.Sum); got != emptySHA256 {
			t.Fatalf("partition %d: got %s, want %s", i, got, emptySHA256)
		}
	}
}

func TestRun_SingleBlockSingleWorker(t *testing.T) {
	content := patternData(DefaultBlockSize)
	path := writeFile(t, t.TempDir(), "block.bin", content)

	res, err := Run(context.Background(), path, Options{Workers: 1, BlockSize: DefaultBlockSize})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := sha256.Sum256(content)
	if len(res.Digests) != 1 || !bytes.Equal(res.Digests[0].Sum, want[:]) {
		t.Fatalf("digest mismatch:\n got: %+v\nwant: %x", res.Digests, want)
	}
	if !bytes.Equal(res.Root(), want[:]) {
		t.Fatalf("root of a single partition should be the file digest, got %x", res.Root())
	}
	if res.Algorithm != "SHA256" || res.Size != int64(len(content)) {
		t.Fatalf("unexpected result metadata: %+v", res)
	}
}

func TestRun_WorkerCountInvariance(t *testing.T) {
	content := patternData(40_003)
	path := writeFile(t, t.TempDir(), "data.bin", content)

	seen := map[[2]int64][]byte{}
	for _, workers := range []int{1, 2, 5, 8} {
		res, err := Run(context.Background(), path, Options{Workers: workers, BlockSize: 512})
		if err != nil {
			t.Fatalf("Run(workers=%d): %v", workers, err)
		}
		if len(res.Digests) != workers {
			t.Fatalf("workers=%d: got %d digests", workers, len(res.Digests))
		}

		var rebuilt []byte
		for i, d := range res.Digests {
			if d.Partition != i {
				t.Fatalf("workers=%d: slot %d holds partition %d", workers, i, d.Partition)
			}
			part := content[d.Start : d.Start+d.Length]
			rebuilt = append(rebuilt, part...)

			want := sha256.Sum256(part)
			if !bytes.Equal(d.Sum, want[:]) {
				t.Fatalf("workers=%d partition %d: digest does not match its byte range", workers, i)
			}

			key := [2]int64{d.Start, d.Length}
			if prev, ok := seen[key]; ok && !bytes.Equal(prev, d.Sum) {
				t.Fatalf("range %v hashed differently across worker counts", key)
			}
			seen[key] = d.Sum
		}
		if !bytes.Equal(rebuilt, content) {
			t.Fatalf("workers=%d: partitions do not reconstruct the file", workers)
		}
	}
}

func TestRun_Deterministic(t *testing.T) {
	path := writeFile(t, t.TempDir(), "data.bin", patternData(100_000))
	opts := Options{Workers: 7, BlockSize: 1000}

	first, err := Run(context.Background(), path, opts)
	if err != nil {
		t.Fatalf("first Run: %v", err)
	}
	second, err := Run(context.Background(), path, opts)
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	for i := range first.Digests {
		if !bytes.Equal(first.Digests[i].Sum, second.Digests[i].Sum) {
			t.Fatalf("partition %d differs between runs", i)
		}
	}
	if !bytes.Equal(first.Root(), second.Root()) {
		t.Fatalf("roots differ between runs")
	}
}

func TestRun_UnevenSplit(t *testing.T) {
	content := []byte("0123456789")
	path := writeFile(t, t.TempDir(), "ten.bin", content)

	res, err := Run(context.Background(), path, Options{Workers: 3, BlockSize: 2})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	wantParts := []string{"012", "345", "6789"}
	for i, d := range res.Digests {
		want := sha256.Sum256([]byte(wantParts[i]))
		if !bytes.Equal(d.Sum, want[:]) {
			t.Fatalf("partition %d: digest is not sha256(%q)", i, wantParts[i])
		}
	}
}

func TestRun_InvalidArguments(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "never-opened.bin")

	tests := []struct {
		name string
		opts Options
	}{
		{"zero workers", Options{Workers: 0, BlockSize: 4096}},
		{"negative block size", Options{Workers: 4, BlockSize: -1}},
		{"unknown algorithm", Options{Workers: 4, BlockSize: 4096, Algorithm: "CRC32"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// The path does not exist, so an I/O attempt would surface as ErrIO.
			_, err := Run(context.Background(), missing, tt.opts)
			if !errors.Is(err, ErrInvalidArgument) {
				t.Fatalf("expected ErrInvalidArgument, got %v", err)
			}
			if errors.Is(err, ErrIO) {
				t.Fatalf("invalid arguments must fail before any I/O, got %v", err)
			}
		})
	}
}

func TestRun_MissingFile(t *testing.T) {
	_, err := Run(context.Background(), filepath.Join(t.TempDir(), "missing.bin"), Options{Workers: 2, BlockSize: 16})
	if !errors.Is(err, ErrIO) {
		t.Fatalf("expected ErrIO, got %v", err)
	}
}

func TestRun_TruncatedDuringRun(t *testing.T) {
	dir := t.TempDir()
	full := patternData(100)
	path := writeFile(t, dir, "full.bin", full)
	short := writeFile(t, dir, "short.bin", full[:30])

	// Every worker sees the file after it shrank to 30 bytes.
	shrunk := func(string) (file, error) {
		return os.Open(short)
	}

	obs := newRecordingObserver()
	opts := Options{Workers: 4, BlockSize: 8, Observer: obs}.withDefaults()

	res, err := run(context.Background(), path, int64(len(full)), opts, shrunk)
	if res != nil {
		t.Fatalf("a failed run must not return digests, got %+v", res)
	}
	if !errors.Is(err, ErrIO) {
		t.Fatalf("expected ErrIO, got %v", err)
	}

	var perr *PartitionError
	if !errors.As(err, &perr) {
		t.Fatalf("expected *PartitionError, got %T", err)
	}
	if perr.Partition != 1 {
		t.Fatalf("expected partition 1 to be reported first, got %d", perr.Partition)
	}
	if perr.Siblings == nil {
		t.Fatalf("expected failures of partitions 2 and 3 to be attached")
	}

	if obs.calls != 4 {
		t.Fatalf("expected all 4 workers to finish, got %d", obs.calls)
	}
	if obs.done[0] != nil {
		t.Fatalf("partition 0 covers bytes still present, got %v", obs.done[0])
	}
}

func TestRun_Canceled(t *testing.T) {
	path := writeFile(t, t.TempDir(), "data.bin", patternData(1<<16))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := Run(ctx, path, Options{Workers: 4, BlockSize: 1024})
	if res != nil {
		t.Fatalf("canceled run returned a result")
	}
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestRunSize_HashesPrefix(t *testing.T) {
	content := patternData(1000)
	path := writeFile(t, t.TempDir(), "data.bin", content)

	res, err := RunSize(context.Background(), path, 600, Options{Workers: 3, BlockSize: 64})
	if err != nil {
		t.Fatalf("RunSize: %v", err)
	}
	for _, d := range res.Digests {
		want := sha256.Sum256(content[d.Start : d.Start+d.Length])
		if !bytes.Equal(d.Sum, want[:]) {
			t.Fatalf("partition %d digest mismatch", d.Partition)
		}
	}
	if last := res.Digests[2]; last.Start+last.Length != 600 {
		t.Fatalf("last partition ends at %d, want 600", last.Start+last.Length)
	}
}
