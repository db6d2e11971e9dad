package main

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/Sternrassler/course-catalog/internal/config"
	"github.com/Sternrassler/course-catalog/pkg/metrics"
	"github.com/Sternrassler/course-catalog/pkg/warm"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newChaptersCmd(load loader) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:     "chapters <language>",
		Short:   "List the chapters of a language",
		Example: "  catalog chapters python3",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := load(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			view := a.nav.ShowLanguage(cmd.Context(), args[0])
			if asJSON {
				return renderJSON(cmd.OutOrStdout(), view)
			}
			return quietCancel(cmd, renderChapters(cmd.OutOrStdout(), args[0], view))
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the view as JSON")
	return cmd
}

func newChapterCmd(load loader) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:     "chapter <language> <title>",
		Short:   "Show the content of one chapter",
		Example: `  catalog chapter go "Control Flow"`,
		Args:    cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := load(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			title := strings.Join(args[1:], " ")
			view := a.nav.ShowChapter(cmd.Context(), args[0], title)
			if asJSON {
				return renderJSON(cmd.OutOrStdout(), view)
			}
			return quietCancel(cmd, renderChapter(cmd.OutOrStdout(), view))
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the view as JSON")
	return cmd
}

// warmConfig derives the warm-up settings. The per-chapter deadline is
// warm_timeout, not client_timeout, so retried chapters can still finish.
func warmConfig(cfg *config.Config) warm.Config {
	return warm.Config{
		MaxConcurrency: cfg.WarmConcurrency,
		Timeout:        cfg.WarmTimeout,
	}
}

func newWarmCmd(load loader, v *viper.Viper) *cobra.Command {
	var showStats bool

	cmd := &cobra.Command{
		Use:   "warm <language>...",
		Short: "Pre-fetch every chapter of one or more languages",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := load(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			w := warm.New(a.orch, warmConfig(a.cfg))

			out := cmd.OutOrStdout()
			var failed []string
			for _, language := range args {
				report, err := w.Warm(cmd.Context(), language)
				if report != nil {
					renderWarmReport(out, report)
				}
				if err != nil {
					if cmd.Context().Err() != nil {
						return quietCancel(cmd, errCancelled)
					}
					colorError.Fprintf(out, "%s: %v\n", language, err)
					failed = append(failed, language)
				}
			}

			if showStats {
				counters, err := metrics.Snapshot()
				if err != nil {
					return err
				}
				renderCounters(out, counters,
					"catalog_cache_hits_total",
					"catalog_cache_misses_total",
					"catalog_requests_total",
					"catalog_retries_total",
					"catalog_inflight_joins_total",
					"catalog_warm_chapters_total",
				)
			}

			if len(failed) > 0 {
				return errors.New("warm-up failed for " + strings.Join(failed, ", "))
			}
			return nil
		},
	}
	cmd.Flags().Int("concurrency", 0, "parallel chapter fetches")
	cmd.Flags().BoolVar(&showStats, "stats", false, "print cache and request counters")
	v.BindPFlag("warm_concurrency", cmd.Flags().Lookup("concurrency"))
	return cmd
}

func newServeCmd(load loader, v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve catalog views as JSON over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := load(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			srv := &http.Server{
				Addr:              a.cfg.ListenAddr,
				Handler:           newServer(a.orch, a.store),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errc := make(chan error, 1)
			go func() {
				a.logger.Info().
					Str("addr", a.cfg.ListenAddr).
					Str("store", a.cfg.Store).
					Str("base_url", a.cfg.BaseURL).
					Msg("Starting catalog server")
				errc <- srv.ListenAndServe()
			}()

			select {
			case err := <-errc:
				return err
			case <-cmd.Context().Done():
			}

			a.logger.Info().Msg("Shutting down")
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(ctx)
		},
	}
	cmd.Flags().String("listen", "", "listen address")
	v.BindPFlag("listen_addr", cmd.Flags().Lookup("listen"))
	return cmd
}

// quietCancel reports an interrupted command without failing it.
func quietCancel(cmd *cobra.Command, err error) error {
	if errors.Is(err, errCancelled) {
		colorWarning.Fprintln(cmd.ErrOrStderr(), "Cancelled")
		return nil
	}
	return err
}
