package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/Sternrassler/course-catalog/internal/config"
	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		colorError.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := config.New()
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "catalog",
		Short: "Browse and cache programming course chapters",
		Long: `catalog fetches chapter listings and chapter content from the
course content service and caches them in a session cache and a
persistent store (memory, redis or sqlite).

Every flag can also be set with a CATALOG_* environment variable or in a
config file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configPath, "config", "c", "", "config file (yaml, toml or json)")
	flags.String("base-url", "", "content service base URL")
	flags.String("store", "", "persistent store: memory, redis or sqlite")
	flags.String("redis-addr", "", "redis address for --store=redis")
	flags.String("sqlite-path", "", "database file for --store=sqlite")
	flags.String("log-level", "", "debug, info, warn or error")
	flags.Bool("log-pretty", false, "human-readable logs")

	// Flags win over file and environment values only when set.
	for _, key := range []string{"base_url", "store", "redis_addr", "sqlite_path", "log_level", "log_pretty"} {
		v.BindPFlag(key, flags.Lookup(strings.ReplaceAll(key, "_", "-")))
	}

	var load loader = func(cmd *cobra.Command) (*app, error) {
		cfg, err := config.Load(v, configPath)
		if err != nil {
			return nil, err
		}
		return newApp(cmd.Context(), cfg)
	}

	rootCmd.AddCommand(
		newChaptersCmd(load),
		newChapterCmd(load),
		newWarmCmd(load, v),
		newServeCmd(load, v),
	)
	return rootCmd
}

type loader func(cmd *cobra.Command) (*app, error)
