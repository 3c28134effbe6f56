package hashing

import (
	"context"
	"crypto/sha256"
	"crypto/sha512"
	"errors"
	"hash"
	"io"
	"os"
	"strings"

	"github.com/zeebo/blake3"
)

func normalizeAlgorithm(algorithm string) string {
	return strings.ToUpper(strings.TrimSpace(algorithm))
}

func newHasher(algorithm string) (hash.Hash, error) {
	switch normalizeAlgorithm(algorithm) {
	case "SHA256":
		return sha256.New(), nil
	case "SHA512_256":
		return sha512.New512_256(), nil
	case "SHA384":
		return sha512.New384(), nil
	case "SHA512":
		return sha512.New(), nil
	case "BLAKE3":
		return blake3.New(), nil
	default:
		return nil, invalidArg("unsupported algorithm: %q", algorithm)
	}
}

// Supported reports whether algorithm names a hash this package can compute.
func Supported(algorithm string) bool {
	_, err := newHasher(algorithm)
	return err == nil
}

// Algorithms lists the accepted algorithm names.
func Algorithms() []string {
	return []string{"SHA256", "SHA512_256", "SHA384", "SHA512", "BLAKE3"}
}

func openFile(path string) (file, error) {
	return os.Open(path) // #nosec G304
}

// hashRange digests exactly the bytes of r. Only the final partition may run
// into end of file before r.Length bytes were read.
func hashRange(ctx context.Context, open opener, path string, r FileRange, final bool, blockSize int, algorithm string, obs Observer) (ChunkDigest, error) {
	if r.Start < 0 || r.Length < 0 {
		return ChunkDigest{}, invalidArg("invalid range: start=%d length=%d", r.Start, r.Length)
	}

	h, err := newHasher(algorithm)
	if err != nil {
		return ChunkDigest{}, err
	}

	f, err := open(path)
	if err != nil {
		return ChunkDigest{}, ioErr("open %s: %v", path, err)
	}
	defer func() {
		_ = f.Close()
	}()

	if r.Length > 0 {
		end, err := f.Seek(0, io.SeekEnd)
		if err != nil {
			return ChunkDigest{}, ioErr("seek %s: %v", path, err)
		}
		if r.Start > end || (r.Start == end && !final) {
			return ChunkDigest{}, ioErr("seek out of bounds: offset %d, file has %d bytes", r.Start, end)
		}
	}
	if _, err := f.Seek(r.Start, io.SeekStart); err != nil {
		return ChunkDigest{}, ioErr("seek %s to %d: %v", path, r.Start, err)
	}

	buf := make([]byte, blockSize)
	var read int64
	for block := 0; read < r.Length; block++ {
		if err := ctx.Err(); err != nil {
			return ChunkDigest{}, err
		}

		toRead := int64(len(buf))
		if remain := r.Length - read; remain < toRead {
			toRead = remain
		}

		n, rerr := io.ReadFull(f, buf[:toRead])
		if n > 0 {
			if _, werr := h.Write(buf[:n]); werr != nil {
				return ChunkDigest{}, werr
			}
			read += int64(n)
			if obs != nil {
				obs.BlockHashed(r.Index, block, n)
			}
		}

		if rerr != nil {
			if errors.Is(rerr, io.EOF) || errors.Is(rerr, io.ErrUnexpectedEOF) {
				if final {
					break
				}
				return ChunkDigest{}, ioErr("unexpected end of file at offset %d (wanted %d bytes from %d)", r.Start+read, r.Length, r.Start)
			}
			return ChunkDigest{}, ioErr("read %s at %d: %v", path, r.Start+read, rerr)
		}
	}

	return ChunkDigest{
		Partition: r.Index,
		Start:     r.Start,
		Length:    read,
		Sum:       h.Sum(nil),
	}, nil
}
