package hashing

import "fmt"

// Partition splits [0, fileSize) into workers contiguous ranges. Every range
// gets fileSize/workers bytes and the last one also takes the remainder, so
// 10 bytes over 3 workers gives lengths 3, 3, 4.
func Partition(fileSize int64, workers, blockSize int) ([]FileRange, error) {
	if workers <= 0 {
		return nil, invalidArg("worker count must be > 0, got %d", workers)
	}
	if blockSize <= 0 {
		return nil, invalidArg("block size must be > 0, got %d", blockSize)
	}
	if fileSize < 0 {
		return nil, invalidArg("file size must be >= 0, got %d", fileSize)
	}

	base := fileSize / int64(workers)
	rem := fileSize % int64(workers)

	ranges := make([]FileRange, workers)
	for i := range ranges {
		length := base
		if i == workers-1 {
			length += rem
		}
		ranges[i] = FileRange{
			Index:  i,
			Start:  int64(i) * base,
			Length: length,
		}
	}

	if err := checkTiling(ranges, fileSize); err != nil {
		return nil, err
	}
	return ranges, nil
}

func checkTiling(ranges []FileRange, fileSize int64) error {
	var next int64
	for i, r := range ranges {
		if r.Index != i {
			return fmt.Errorf("%w: range %d carries index %d", ErrInternalInvariant, i, r.Index)
		}
		if r.Length < 0 {
			return fmt.Errorf("%w: range %d has negative length %d", ErrInternalInvariant, i, r.Length)
		}
		if r.Start != next {
			return fmt.Errorf("%w: range %d starts at %d, want %d", ErrInternalInvariant, i, r.Start, next)
		}
		next = r.End()
	}
	if next != fileSize {
		return fmt.Errorf("%w: ranges cover %d bytes, file has %d", ErrInternalInvariant, next, fileSize)
	}
	return nil
}
