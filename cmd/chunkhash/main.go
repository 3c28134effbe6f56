package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"chunkhash/internal/config"
	"chunkhash/internal/hashing"
	"chunkhash/internal/logging"
)

// Exit codes
const (
	ExitSuccess      = 0
	ExitGeneralError = 1
	ExitInvalidArgs  = 2
	ExitIOError      = 3
	ExitMismatch     = 4
)

var errMismatch = errors.New("verification failed")

type usageError struct{ msg string }

func (e *usageError) Error() string { return e.msg }

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	a := &app{stdout: stdout, stderr: stderr}
	root := a.rootCommand()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if a.log != nil {
		_ = a.log.Sync()
	}
	if err != nil {
		if !errors.Is(err, errMismatch) {
			fmt.Fprintln(stderr, "Error:", err)
		}
		return exitCode(err)
	}
	return ExitSuccess
}

func exitCode(err error) int {
	var uerr *usageError
	switch {
	case errors.As(err, &uerr), errors.Is(err, hashing.ErrInvalidArgument):
		return ExitInvalidArgs
	case errors.Is(err, errMismatch):
		return ExitMismatch
	case errors.Is(err, hashing.ErrIO):
		return ExitIOError
	default:
		return ExitGeneralError
	}
}

type app struct {
	stdout io.Writer
	stderr io.Writer

	configFile string
	v          *viper.Viper
	cfg        *config.Config
	log        *zap.Logger
}

// flagKeys maps config keys to the flag that overrides them.
var flagKeys = map[string]string{
	"workers":          "workers",
	"block_size":       "block-size",
	"algorithm":        "algorithm",
	"log_level":        "log-level",
	"format":           "format",
	"progress":         "progress",
	"index":            "index",
	"jobs":             "jobs",
	"watch.debounce":   "debounce",
	"watch.patterns":   "pattern",
	"watch.tail_magic": "tail-magic",
}

func (a *app) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "chunkhash",
		Short: "Hash files in concurrent byte-range partitions",
		Long: `chunkhash splits a file into contiguous byte ranges, hashes every range on
its own worker and reports the per-partition digests in partition order,
together with a Merkle root over them.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &usageError{msg: err.Error()}
	})

	pf := root.PersistentFlags()
	pf.StringVar(&a.configFile, "config", "", "config file (default ./chunkhash.yaml if present)")
	pf.String("log-level", "info", "log level: debug, info, warn, error")
	pf.IntP("workers", "w", hashing.DefaultWorkers, "number of partitions hashed concurrently")
	pf.StringP("block-size", "b", fmt.Sprint(hashing.DefaultBlockSize), "read size per block, e.g. 4096 or 64KiB")
	pf.StringP("algorithm", "a", hashing.DefaultAlgorithm, "hash algorithm: SHA256, SHA512_256, SHA384, SHA512, BLAKE3")

	root.AddCommand(a.hashCommand())
	root.AddCommand(a.compareCommand())
	root.AddCommand(a.verifyCommand())
	root.AddCommand(a.watchCommand())
	return root
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	v, err := config.New(a.configFile)
	if err != nil {
		return err
	}
	for key, name := range flagKeys {
		if f := cmd.Flags().Lookup(name); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return err
			}
		}
	}

	cfg, err := config.Load(v)
	if err != nil {
		return err
	}
	log, err := logging.New(cfg.LogLevel)
	if err != nil {
		return &usageError{msg: err.Error()}
	}

	a.v, a.cfg, a.log = v, cfg, log
	a.log.Debug("configuration loaded",
		zap.String("config_file", v.ConfigFileUsed()),
		zap.Int("workers", cfg.Workers),
		zap.Int("block_size", cfg.BlockSize),
		zap.String("algorithm", cfg.Algorithm),
	)
	return nil
}

func exactArgs(n int, what string) cobra.PositionalArgs {
	return func(_ *cobra.Command, args []string) error {
		if len(args) != n {
			return &usageError{msg: fmt.Sprintf("expected %s, got %d argument(s)", what, len(args))}
		}
		return nil
	}
}

func minArgs(n int, what string) cobra.PositionalArgs {
	return func(_ *cobra.Command, args []string) error {
		if len(args) < n {
			return &usageError{msg: fmt.Sprintf("expected %s, got %d argument(s)", what, len(args))}
		}
		return nil
	}
}
