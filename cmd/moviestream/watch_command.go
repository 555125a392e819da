package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"moviestream/internal/catalog"
	"moviestream/internal/localcache"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	var genre, search string
	var debounce time.Duration

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Reprint the catalog whenever the local cache changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := ctx.openEngine()
			if err != nil {
				return fmt.Errorf("start engine: %w", err)
			}
			defer eng.Close()

			runCtx := cmd.Context()
			if runCtx == nil {
				runCtx = context.Background()
			}

			eng.SetFilter(genre)
			eng.SetSearch(search)

			out := cmd.OutOrStdout()
			cancel := eng.Subscribe(func(s catalog.Snapshot) {
				fmt.Fprintf(out, "\n%s\n", time.Now().Format(time.Kitchen))
				fmt.Fprintln(out, renderMovies(s.View))
				fmt.Fprintf(out, "Showing %d of %d movies (source: %s)\n", len(s.View), len(s.Catalog), s.Tier)
			})
			defer cancel()

			if ctx.offline() {
				eng.LoadLocal(runCtx)
			} else {
				res := eng.Load(runCtx)
				printDiagnostic(cmd.ErrOrStderr(), res.Diagnostic)
			}

			return localcache.Watch(runCtx, eng.Cache(), debounce, ctx.baseLogger(), func() {
				eng.LoadLocal(runCtx)
			})
		},
	}

	cmd.Flags().StringVarP(&genre, "genre", "g", catalog.GenreAll, "Genre filter")
	cmd.Flags().StringVarP(&search, "search", "s", "", "Search text")
	cmd.Flags().DurationVar(&debounce, "debounce", 200*time.Millisecond, "Quiet period before reprinting")
	return cmd
}
