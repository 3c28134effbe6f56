package hashing

import (
	"bytes"
	"context"
	"encoding/hex"
	"os"
)

type CompareResult struct {
	Algorithm string
	Workers   int
	Paths     []string
	Sizes     []int64
	MinSize   int64
	MaxSize   int64
	// PartitionHashes[p][f] is the hex digest of partition p in file f.
	PartitionHashes     [][]string
	DifferingPartitions []int
	TailBytes           []int64
}

// CompareFiles hashes the common prefix of every file with the same
// partitioning and reports which partitions differ. Bytes past the shortest
// file are reported as tails and not hashed.
func CompareFiles(ctx context.Context, paths []string, opts Options) (*CompareResult, error) {
	if len(paths) < 2 {
		return nil, invalidArg("need at least 2 files, got %d", len(paths))
	}
	opts = opts.withDefaults()
	if err := opts.validate(); err != nil {
		return nil, err
	}

	sizes := make([]int64, len(paths))
	var minSize, maxSize int64
	for i, p := range paths {
		st, err := os.Stat(p)
		if err != nil {
			return nil, ioErr("stat %s: %v", p, err)
		}
		sz := st.Size()
		sizes[i] = sz

		if i == 0 {
			minSize, maxSize = sz, sz
			continue
		}
		minSize = min(minSize, sz)
		maxSize = max(maxSize, sz)
	}

	results := make([]*Result, len(paths))
	for i, p := range paths {
		res, err := RunSize(ctx, p, minSize, opts)
		if err != nil {
			return nil, err
		}
		results[i] = res
	}

	hashes := make([][]string, opts.Workers)
	differing := make([]int, 0)
	for s := 0; s < opts.Workers; s++ {
		hashes[s] = make([]string, len(paths))
		ref := results[0].Digests[s].Sum
		same := true
		for fi, res := range results {
			sum := res.Digests[s].Sum
			hashes[s][fi] = hex.EncodeToString(sum)
			if !bytes.Equal(sum, ref) {
				same = false
			}
		}
		if !same {
			differing = append(differing, s)
		}
	}

	tails := make([]int64, len(paths))
	for i := range sizes {
		tails[i] = sizes[i] - minSize
	}

	return &CompareResult{
		Algorithm:           normalizeAlgorithm(opts.Algorithm),
		Workers:             opts.Workers,
		Paths:               paths,
		Sizes:               sizes,
		MinSize:             minSize,
		MaxSize:             maxSize,
		PartitionHashes:     hashes,
		DifferingPartitions: differing,
		TailBytes:           tails,
	}, nil
}
