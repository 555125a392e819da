package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"moviestream/internal/localcache"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or reset the local catalog cache",
	}
	cacheCmd.AddCommand(newCacheShowCommand(ctx))
	cacheCmd.AddCommand(newCacheClearCommand(ctx))
	return cacheCmd
}

func newCacheShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the cached catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := localcache.Open(cfg, ctx.baseLogger())
			if err != nil {
				return fmt.Errorf("open cache: %w", err)
			}
			defer store.Close()

			entry, found, err := store.Load(cmd.Context())
			if err != nil {
				return fmt.Errorf("read cache: %w", err)
			}
			if jsonOutput {
				payload := map[string]any{
					"backend":  cfg.Cache.Backend,
					"location": store.Location(),
					"present":  found,
					"movies":   entry.Movies,
				}
				if found {
					payload["updated_at"] = entry.UpdatedAt.UTC().Format(time.RFC3339)
				}
				return writeJSON(cmd, payload)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Backend:  %s\n", cfg.Cache.Backend)
			fmt.Fprintf(out, "Location: %s\n", store.Location())
			fmt.Fprintf(out, "Present:  %s\n", yesNo(found))
			if !found {
				return nil
			}
			fmt.Fprintf(out, "Updated:  %s\n", entry.UpdatedAt.Local().Format(time.RFC1123))
			fmt.Fprintln(out, renderMovies(entry.Movies))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newCacheClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete the cached catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := localcache.Open(cfg, ctx.baseLogger())
			if err != nil {
				return fmt.Errorf("open cache: %w", err)
			}
			defer store.Close()

			if err := store.Clear(cmd.Context()); err != nil {
				return fmt.Errorf("clear cache: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cleared cache at %s\n", store.Location())
			return nil
		},
	}
}
