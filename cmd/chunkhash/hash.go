package main

import (
	"context"
	"os"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"chunkhash/internal/hashing"
	"chunkhash/internal/index"
	"chunkhash/internal/metrics"
	"chunkhash/internal/progress"
	"chunkhash/internal/report"
)

func (a *app) hashCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hash FILE [FILE...]",
		Short: "Hash files and print the per-partition digests",
		Args:  minArgs(1, "at least one file"),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, path := range args {
				if err := a.hashFile(cmd.Context(), path); err != nil {
					return err
				}
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringP("format", "o", report.FormatText, "output format: text, json, yaml")
	f.Bool("progress", false, "show a progress bar and statistics on stderr")
	f.String("index", "", "record the result in this index file")
	return cmd
}

func (a *app) hashFile(ctx context.Context, path string) error {
	opts := a.cfg.HashOptions()
	opts.Logger = a.log

	stats := &metrics.Stats{}
	opts.Observer = stats

	var bar *progress.Bar
	if a.cfg.Progress {
		if info, err := os.Stat(path); err == nil {
			atomic.StoreInt64(&stats.TotalBytes, info.Size())
			bar = progress.New(a.stderr, info.Size(), partitionSnapshot(stats, int64(opts.Workers)))
			opts.Observer = hashing.MultiObserver{stats, bar}
		}
	}

	stats.Start()
	res, err := hashing.Run(ctx, path, opts)
	stats.Stop()
	if bar != nil {
		bar.Close()
	}
	if err != nil {
		return err
	}

	a.log.Debug("hashed file",
		zap.String("path", path),
		zap.Int64("size", res.Size),
		zap.Duration("took", stats.Duration()),
	)

	if err := report.Format(a.stdout, res, a.cfg.Format); err != nil {
		return err
	}
	if a.cfg.Progress {
		metrics.Print(a.stderr, stats)
	}

	if a.cfg.Index != "" {
		return recordResult(a.cfg.Index, res)
	}
	return nil
}

func recordResult(indexPath string, res *hashing.Result) error {
	idx, err := index.Open(indexPath)
	if err != nil {
		return err
	}
	idx.Put(index.FromResult(res, time.Now()))
	return index.Save(indexPath, idx)
}

func partitionSnapshot(stats *metrics.Stats, partitions int64) progress.SnapshotFn {
	return func() (int64, int64, int64, int64) {
		return atomic.LoadInt64(&stats.Partitions),
			partitions,
			atomic.LoadInt64(&stats.PartitionErrors),
			atomic.LoadInt64(&stats.BytesHashed)
	}
}
