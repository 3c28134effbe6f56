// Package report renders hashing results for people and for other tools.
package report

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"gopkg.in/yaml.v3"

	"chunkhash/internal/hashing"
)

const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

type Partition struct {
	Index  int    `json:"index" yaml:"index"`
	Start  int64  `json:"start" yaml:"start"`
	Length int64  `json:"length" yaml:"length"`
	Hash   string `json:"hash" yaml:"hash"`
}

// Document is the structured form of a hashing.Result.
type Document struct {
	Path       string      `json:"path" yaml:"path"`
	Size       int64       `json:"size" yaml:"size"`
	Algorithm  string      `json:"algorithm" yaml:"algorithm"`
	BlockSize  int         `json:"block_size" yaml:"block_size"`
	Workers    int         `json:"workers" yaml:"workers"`
	Root       string      `json:"root" yaml:"root"`
	Partitions []Partition `json:"partitions" yaml:"partitions"`
}

// HexDigests lists the digests in partition order with hex encoded sums.
func HexDigests(digests []hashing.ChunkDigest) []Partition {
	out := make([]Partition, len(digests))
	for i, d := range digests {
		out[i] = Partition{
			Index:  d.Partition,
			Start:  d.Start,
			Length: d.Length,
			Hash:   hex.EncodeToString(d.Sum),
		}
	}
	return out
}

func NewDocument(res *hashing.Result) Document {
	return Document{
		Path:       res.Path,
		Size:       res.Size,
		Algorithm:  res.Algorithm,
		BlockSize:  res.BlockSize,
		Workers:    res.Workers,
		Root:       hex.EncodeToString(res.Root()),
		Partitions: HexDigests(res.Digests),
	}
}

func ValidFormat(format string) bool {
	switch strings.ToLower(format) {
	case FormatText, FormatJSON, FormatYAML:
		return true
	}
	return false
}

func Format(w io.Writer, res *hashing.Result, format string) error {
	doc := NewDocument(res)

	switch strings.ToLower(format) {
	case FormatText:
		return writeText(w, doc)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

func writeText(w io.Writer, doc Document) error {
	label := color.New(color.Bold)
	hash := color.New(color.FgCyan)

	if _, err := label.Fprintf(w, "%s\n", doc.Path); err != nil {
		return err
	}
	fmt.Fprintf(w, "  size:      %s (%d bytes)\n", humanize.IBytes(uint64(doc.Size)), doc.Size)
	fmt.Fprintf(w, "  algorithm: %s\n", doc.Algorithm)
	fmt.Fprintf(w, "  workers:   %d\n", doc.Workers)
	fmt.Fprintf(w, "  block:     %s\n", humanize.IBytes(uint64(doc.BlockSize)))
	fmt.Fprintln(w)

	for _, p := range doc.Partitions {
		fmt.Fprintf(w, "  [%d] %d+%d  ", p.Index, p.Start, p.Length)
		hash.Fprintln(w, p.Hash)
	}
	fmt.Fprintln(w)

	label.Fprint(w, "  root: ")
	_, err := hash.Fprintln(w, doc.Root)
	return err
}

// WriteCompare prints the outcome of hashing.CompareFiles.
func WriteCompare(w io.Writer, res *hashing.CompareResult) {
	fmt.Fprintf(w, "Algorithm:  %s\n", res.Algorithm)
	fmt.Fprintf(w, "Partitions: %d\n\n", res.Workers)

	fmt.Fprintln(w, "Files:")
	for i, p := range res.Paths {
		fmt.Fprintf(w, "  [%d] %s (size=%d)\n", i, p, res.Sizes[i])
	}
	fmt.Fprintln(w)

	if res.MinSize != res.MaxSize {
		fmt.Fprintf(w, "Size mismatch detected.\nOverlap: %d bytes\nMax: %d bytes\n\n", res.MinSize, res.MaxSize)
		for i, tb := range res.TailBytes {
			if tb > 0 {
				fmt.Fprintf(w, "  [%d] extra tail: %d bytes\n", i, tb)
			}
		}
		fmt.Fprintln(w)
	}

	if len(res.DifferingPartitions) == 0 && res.MinSize == res.MaxSize {
		color.New(color.FgGreen).Fprintln(w, "Result: All partitions match and sizes match (files identical).")
		return
	}

	if len(res.DifferingPartitions) == 0 {
		color.New(color.FgYellow).Fprintln(w, "Result: All partitions match over overlap; only tails differ.")
		return
	}

	color.New(color.FgRed).Fprintf(w, "Differing partitions: %v\n\n", res.DifferingPartitions)

	for _, s := range res.DifferingPartitions {
		fmt.Fprintf(w, "Partition %d differs:\n", s)
		for fi, p := range res.Paths {
			fmt.Fprintf(w, "  [%d] %s\n      %s\n", fi, p, res.PartitionHashes[s][fi])
		}
		fmt.Fprintln(w)
	}
}
