package main

import (
	"github.com/spf13/cobra"

	"chunkhash/internal/hashing"
	"chunkhash/internal/report"
)

func (a *app) compareCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "compare FILE FILE [FILE...]",
		Short: "Find the partitions in which files differ",
		Long: `compare hashes the common prefix of every file with the same partitioning
and lists the partitions whose digests differ. Bytes beyond the shortest file
are reported as tails.`,
		Args: minArgs(2, "at least two files"),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := a.cfg.HashOptions()
			opts.Logger = a.log

			res, err := hashing.CompareFiles(cmd.Context(), args, opts)
			if err != nil {
				return err
			}
			report.WriteCompare(a.stdout, res)

			if len(res.DifferingPartitions) > 0 || res.MinSize != res.MaxSize {
				return errMismatch
			}
			return nil
		},
	}
}
