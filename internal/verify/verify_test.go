package verify

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"chunkhash/internal/hashing"
	"chunkhash/internal/index"
	"chunkhash/internal/metrics"
)

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, data, 0o600); err != nil {
		t.Fatalf("write file %s: %v", p, err)
	}
	return p
}

func record(t *testing.T, path string, workers int) index.FileItem {
	t.Helper()
	res, err := hashing.Run(context.Background(), path, hashing.Options{Workers: workers, BlockSize: 256})
	if err != nil {
		t.Fatalf("Run %s: %v", path, err)
	}
	return index.FromResult(res, time.Now())
}

func flipByte(t *testing.T, path string, offset int64) {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	data[offset] ^= 0xFF
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

type want struct {
	processed  int64
	ok         int64
	mismatches int64
	errors     int64
}

func TestVerify_TableDriven(t *testing.T) {
	content := bytes.Repeat([]byte("ABCDEFGH"), 1024) // 8 KiB

	tests := []struct {
		name       string
		setup      func(t *testing.T, dir string) []index.FileItem
		want       want
		wantReason string
		wantParts  []int
	}{
		{
			name: "all ok",
			setup: func(t *testing.T, dir string) []index.FileItem {
				return []index.FileItem{
					record(t, writeFile(t, dir, "a.bin", content), 4),
					record(t, writeFile(t, dir, "b.bin", content[:100]), 3),
				}
			},
			want: want{processed: 2, ok: 2},
		},
		{
			name: "changed partition recorded",
			setup: func(t *testing.T, dir string) []index.FileItem {
				p := writeFile(t, dir, "a.bin", content)
				fi := record(t, p, 4)
				flipByte(t, p, 5000) // partition 2 of 4 (2048 bytes each)
				return []index.FileItem{fi}
			},
			want:       want{processed: 1, mismatches: 1},
			wantReason: ReasonHash,
			wantParts:  []int{2},
		},
		{
			name: "size change recorded",
			setup: func(t *testing.T, dir string) []index.FileItem {
				p := writeFile(t, dir, "a.bin", content)
				fi := record(t, p, 2)
				writeFile(t, dir, "a.bin", append(content, 'x'))
				return []index.FileItem{fi}
			},
			want:       want{processed: 1, mismatches: 1},
			wantReason: ReasonSize,
		},
		{
			name: "missing file is an error",
			setup: func(t *testing.T, dir string) []index.FileItem {
				p := writeFile(t, dir, "a.bin", content)
				fi := record(t, p, 2)
				if err := os.Remove(p); err != nil {
					t.Fatal(err)
				}
				return []index.FileItem{fi}
			},
			want: want{processed: 1, errors: 1},
		},
		{
			name: "bad recorded algorithm is an error",
			setup: func(t *testing.T, dir string) []index.FileItem {
				fi := record(t, writeFile(t, dir, "a.bin", content), 2)
				fi.Algorithm = "MD4"
				return []index.FileItem{fi}
			},
			want: want{processed: 1, errors: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items := tt.setup(t, t.TempDir())
			idx := &index.Index{Version: index.Version}
			for _, fi := range items {
				idx.Put(fi)
			}

			stats := &metrics.Stats{}
			atomic.StoreInt64(&stats.Total, int64(len(items)))

			res := Verify(context.Background(), idx, Options{Workers: 2}, stats, nil)

			got := want{
				processed:  atomic.LoadInt64(&stats.Processed),
				ok:         atomic.LoadInt64(&stats.OK),
				mismatches: atomic.LoadInt64(&stats.Mismatches),
				errors:     atomic.LoadInt64(&stats.Errors),
			}
			if got != tt.want {
				t.Fatalf("stats mismatch:\n got: %+v\nwant: %+v", got, tt.want)
			}
			if res.OK() != (tt.want.mismatches == 0 && tt.want.errors == 0) {
				t.Fatalf("OK() = %v for %+v", res.OK(), res)
			}
			if len(res.Failures) != int(tt.want.errors) {
				t.Fatalf("failures: got %d, want %d", len(res.Failures), tt.want.errors)
			}

			if tt.wantReason == "" {
				return
			}
			m := res.Mismatches[0]
			if m.Reason != tt.wantReason {
				t.Fatalf("reason: got %q, want %q", m.Reason, tt.wantReason)
			}
			if len(m.Partitions) != len(tt.wantParts) {
				t.Fatalf("partitions: got %v, want %v", m.Partitions, tt.wantParts)
			}
			for i := range m.Partitions {
				if m.Partitions[i] != tt.wantParts[i] {
					t.Fatalf("partitions: got %v, want %v", m.Partitions, tt.wantParts)
				}
			}
			if m.Reason == ReasonHash && m.Expected == m.Computed {
				t.Fatalf("hash mismatch with equal roots: %+v", m)
			}
		})
	}
}

func TestVerify_CountsBytes(t *testing.T) {
	dir := t.TempDir()
	content := bytes.Repeat([]byte("z"), 3000)
	fi := record(t, writeFile(t, dir, "a.bin", content), 3)

	idx := &index.Index{Version: index.Version}
	idx.Put(fi)

	stats := &metrics.Stats{}
	res := Verify(context.Background(), idx, Options{}, stats, nil)
	if !res.OK() {
		t.Fatalf("unexpected failures: %+v", res)
	}
	if got := atomic.LoadInt64(&stats.BytesHashed); got != 3000 {
		t.Fatalf("bytes hashed: got %d, want 3000", got)
	}
	if got := atomic.LoadInt64(&stats.Partitions); got != 3 {
		t.Fatalf("partitions: got %d, want 3", got)
	}
}
