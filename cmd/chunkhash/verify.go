package main

import (
	"fmt"
	"sync/atomic"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"chunkhash/internal/index"
	"chunkhash/internal/metrics"
	"chunkhash/internal/progress"
	"chunkhash/internal/verify"
)

func (a *app) verifyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify INDEX",
		Short: "Re-hash every file recorded in an index and report changes",
		Args:  exactArgs(1, "an index file"),
		RunE: func(cmd *cobra.Command, args []string) error {
			idx, err := index.Load(args[0])
			if err != nil {
				return err
			}

			stats := &metrics.Stats{}
			stats.Start()
			atomic.StoreInt64(&stats.Total, int64(len(idx.Files)))
			atomic.StoreInt64(&stats.TotalBytes, idx.TotalBytes())

			var bar *progress.Bar
			if a.cfg.Progress {
				bar = progress.New(a.stderr, idx.TotalBytes(), func() (int64, int64, int64, int64) {
					return atomic.LoadInt64(&stats.Processed),
						atomic.LoadInt64(&stats.Total),
						atomic.LoadInt64(&stats.Mismatches) + atomic.LoadInt64(&stats.Errors),
						atomic.LoadInt64(&stats.BytesHashed)
				})
			}

			res := verify.Verify(cmd.Context(), idx, verify.Options{Workers: a.cfg.Jobs, Logger: a.log}, stats, bar)
			if bar != nil {
				bar.Close()
			}
			stats.Stop()

			if a.cfg.Progress {
				metrics.Print(a.stderr, stats)
			}
			a.printVerify(res)

			if err := cmd.Context().Err(); err != nil {
				return err
			}
			if !res.OK() {
				return errMismatch
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.IntP("jobs", "j", 2, "number of files verified at the same time")
	f.Bool("progress", false, "show a progress bar and statistics on stderr")
	return cmd
}

func (a *app) printVerify(res *verify.Result) {
	red := color.New(color.FgRed)

	fmt.Fprintln(a.stdout, "mismatched files:", len(res.Mismatches))
	for _, m := range res.Mismatches {
		switch m.Reason {
		case verify.ReasonSize:
			red.Fprintf(a.stdout, "  %s: size changed (recorded %s, now %s)\n", m.Path, m.Expected, m.Computed)
		default:
			red.Fprintf(a.stdout, "  %s: partitions %v differ\n", m.Path, m.Partitions)
		}
	}

	fmt.Fprintln(a.stdout, "failed files:", len(res.Failures))
	for _, f := range res.Failures {
		red.Fprintf(a.stdout, "  %s: %v\n", f.Path, f.Err)
	}

	if res.OK() {
		color.New(color.FgGreen).Fprintln(a.stdout, "Result: all recorded files match.")
	}
}
