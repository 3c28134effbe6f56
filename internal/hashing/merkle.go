package hashing

// Root combines the partition digests into a binary Merkle root with the
// run's algorithm. Adjacent pairs are hashed as left||right and an odd node
// at the end of a level is promoted unhashed. A single partition's root is
// its own digest, i.e. the whole-file digest.
//
// The root depends on how the file was partitioned: the same content hashed
// with a different worker count yields a different root.
func (r *Result) Root() []byte {
	if r == nil || len(r.Digests) == 0 {
		return nil
	}

	level := make([][]byte, len(r.Digests))
	for i, d := range r.Digests {
		level[i] = d.Sum
	}
	if len(level) == 1 {
		return level[0]
	}

	h, err := newHasher(r.Algorithm)
	if err != nil {
		return nil
	}

	for len(level) > 1 {
		next := make([][]byte, 0, (len(level)+1)/2)
		for i := 0; i+1 < len(level); i += 2 {
			h.Reset()
			h.Write(level[i])
			h.Write(level[i+1])
			next = append(next, h.Sum(nil))
		}
		if len(level)%2 == 1 {
			next = append(next, level[len(level)-1])
		}
		level = next
	}
	return level[0]
}
