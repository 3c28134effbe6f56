// Package hashing computes per-partition digests of a file with one
// concurrent worker per partition.
package hashing

import (
	"io"

	"go.uber.org/zap"
)

const (
	DefaultWorkers   = 4
	DefaultBlockSize = 4096
	DefaultAlgorithm = "SHA256"
)

// FileRange is the byte interval [Start, Start+Length) hashed by one worker.
type FileRange struct {
	Index  int
	Start  int64
	Length int64
}

func (r FileRange) End() int64 { return r.Start + r.Length }

type ChunkDigest struct {
	Partition int
	Start     int64
	// Length is the number of bytes actually hashed.
	Length int64
	Sum    []byte
}

// Observer receives progress notifications from workers. Implementations must
// be safe for concurrent use and should return quickly.
type Observer interface {
	BlockHashed(partition, block, n int)
	PartitionDone(partition int, err error)
}

type Options struct {
	Workers   int
	BlockSize int
	Algorithm string
	Observer  Observer
	Logger    *zap.Logger
}

func (o Options) withDefaults() Options {
	if o.Algorithm == "" {
		o.Algorithm = DefaultAlgorithm
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

func (o Options) validate() error {
	if o.Workers <= 0 {
		return invalidArg("worker count must be > 0, got %d", o.Workers)
	}
	if o.BlockSize <= 0 {
		return invalidArg("block size must be > 0, got %d", o.BlockSize)
	}
	if !Supported(o.Algorithm) {
		return invalidArg("unsupported algorithm: %q", o.Algorithm)
	}
	return nil
}

type Result struct {
	Path      string
	Size      int64
	Algorithm string
	BlockSize int
	Workers   int
	Digests   []ChunkDigest
}

// file is what a worker needs from its private handle.
type file interface {
	io.ReadSeeker
	io.Closer
}

type opener func(path string) (file, error)

// MultiObserver fans notifications out to every non-nil observer.
type MultiObserver []Observer

func (m MultiObserver) BlockHashed(partition, block, n int) {
	for _, o := range m {
		if o != nil {
			o.BlockHashed(partition, block, n)
		}
	}
}

func (m MultiObserver) PartitionDone(partition int, err error) {
	for _, o := range m {
		if o != nil {
			o.PartitionDone(partition, err)
		}
	}
}
