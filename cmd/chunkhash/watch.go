package main

import (
	"context"
	"encoding/hex"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"chunkhash/internal/hashing"
	"chunkhash/internal/watch"
)

func (a *app) watchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch DIR",
		Short: "Hash files as they are written to a directory",
		Long: `watch hashes every file created or written in DIR once it has been quiet
for the debounce interval and records the result in the index file.`,
		Args: exactArgs(1, "a directory"),
		RunE: func(cmd *cobra.Command, args []string) error {
			var mu sync.Mutex
			opts := a.cfg.HashOptions()
			opts.Logger = a.log

			handle := func(ctx context.Context, path string) error {
				res, err := hashing.Run(ctx, path, opts)
				if err != nil {
					return err
				}
				a.log.Info("hashed file",
					zap.String("path", path),
					zap.Int64("size", res.Size),
					zap.String("root", hex.EncodeToString(res.Root())),
				)
				if a.cfg.Index == "" {
					return nil
				}

				mu.Lock()
				defer mu.Unlock()
				return recordResult(a.cfg.Index, res)
			}

			w, err := watch.New(args[0], watch.Options{
				Debounce:  a.cfg.Watch.Debounce,
				Patterns:  a.cfg.Watch.Patterns,
				TailMagic: a.cfg.Watch.TailMagic,
				Logger:    a.log,
			}, handle)
			if err != nil {
				return err
			}
			return w.Run(cmd.Context())
		},
	}

	f := cmd.Flags()
	f.String("index", "", "record hashed files in this index file")
	f.Duration("debounce", 100*time.Millisecond, "quiet period before a written file is hashed")
	f.StringSlice("pattern", nil, "only hash files whose name matches this glob (repeatable)")
	f.String("tail-magic", "", "only hash files ending with this string")
	return cmd
}
