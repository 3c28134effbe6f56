package index

import (
	"time"

	"chunkhash/internal/report"
)

const Version = 1

// Index is the on-disk record of previously hashed files.
type Index struct {
	Version int        `yaml:"version"`
	Files   []FileItem `yaml:"files"`
}

type FileItem struct {
	report.Document `yaml:",inline"`
	RecordedAt      time.Time `yaml:"recorded_at"`
}
