package index

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"chunkhash/internal/hashing"
	"chunkhash/internal/report"
)

func Load(path string) (*Index, error) {
	data, err := os.ReadFile(path) // #nosec G304
	if err != nil {
		return nil, err
	}

	var idx Index
	if err := yaml.Unmarshal(data, &idx); err != nil {
		return nil, fmt.Errorf("index %s: %w", path, err)
	}
	if idx.Version == 0 {
		idx.Version = Version
	}
	if idx.Version != Version {
		return nil, fmt.Errorf("index %s: unsupported version %d", path, idx.Version)
	}

	for i, fi := range idx.Files {
		if fi.Path == "" {
			return nil, fmt.Errorf("index %s: entry %d has no path", path, i)
		}
		if fi.Workers != len(fi.Partitions) {
			return nil, fmt.Errorf("index %s: %s records %d workers but %d partitions", path, fi.Path, fi.Workers, len(fi.Partitions))
		}
	}
	return &idx, nil
}

// Open loads the index at path, or returns an empty one if it does not exist.
func Open(path string) (*Index, error) {
	idx, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return &Index{Version: Version}, nil
	}
	return idx, err
}

// Save writes the index through a temporary file so readers never observe a
// partial document.
func Save(path string, idx *Index) error {
	if idx.Version == 0 {
		idx.Version = Version
	}
	data, err := yaml.Marshal(idx)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer func() {
		_ = os.Remove(tmp.Name())
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func FromResult(res *hashing.Result, at time.Time) FileItem {
	return FileItem{
		Document:   report.NewDocument(res),
		RecordedAt: at.UTC(),
	}
}

// Put adds item, replacing any earlier record for the same path. Files stay
// sorted by path.
func (idx *Index) Put(item FileItem) {
	for i := range idx.Files {
		if idx.Files[i].Path == item.Path {
			idx.Files[i] = item
			return
		}
	}
	idx.Files = append(idx.Files, item)
	sort.Slice(idx.Files, func(i, j int) bool { return idx.Files[i].Path < idx.Files[j].Path })
}

func (idx *Index) Get(path string) (FileItem, bool) {
	for _, fi := range idx.Files {
		if fi.Path == path {
			return fi, true
		}
	}
	return FileItem{}, false
}

func (idx *Index) TotalBytes() int64 {
	var total int64
	for _, fi := range idx.Files {
		total += fi.Size
	}
	return total
}
