package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"moviestream/internal/catalog"
	"moviestream/internal/engine"
	"moviestream/internal/services"
)

func newListCommand(ctx *commandContext) *cobra.Command {
	var genre, search string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List movies, optionally filtered by genre and search text",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withEngine(cmd, func(_ context.Context, eng *engine.Engine, res engine.Resolution) error {
				if cmd.Flags().Changed("genre") {
					eng.SetFilter(genre)
				}
				eng.SetSearch(search)
				snap := eng.Snapshot()

				if jsonOutput {
					return writeJSON(cmd, listOutput{
						Tier:       snap.Tier.String(),
						Diagnostic: snap.Diagnostic,
						Criteria:   snap.Criteria,
						Total:      len(snap.Catalog),
						Movies:     snap.View,
					})
				}

				printDiagnostic(cmd.ErrOrStderr(), res.Diagnostic)
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, renderMovies(snap.View))
				fmt.Fprintf(out, "Showing %d of %d movies (source: %s)\n", len(snap.View), len(snap.Catalog), snap.Tier)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&genre, "genre", "g", "", "Only show movies whose genre contains this text (\"all\" for every genre)")
	cmd.Flags().StringVarP(&search, "search", "s", "", "Only show movies whose title, genre, or description contains this text")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newGenresCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "genres",
		Short: "List the genres present in the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withEngine(cmd, func(_ context.Context, eng *engine.Engine, res engine.Resolution) error {
				genres := eng.Genres()
				if jsonOutput {
					return writeJSON(cmd, genres)
				}
				printDiagnostic(cmd.ErrOrStderr(), res.Diagnostic)
				out := cmd.OutOrStdout()
				for _, g := range genres {
					fmt.Fprintln(out, g)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newRefreshCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Reload the catalog and update the local cache",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withEngine(cmd, func(_ context.Context, eng *engine.Engine, res engine.Resolution) error {
				if jsonOutput {
					return writeJSON(cmd, map[string]any{
						"tier":       res.Tier.String(),
						"count":      len(res.Catalog),
						"degraded":   res.Degraded(),
						"diagnostic": res.Diagnostic,
						"request_id": res.RequestID,
					})
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Loaded %d movies from %s\n", len(res.Catalog), res.Tier)
				printDiagnostic(cmd.ErrOrStderr(), res.Diagnostic)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

type movieFlags struct {
	title       string
	year        string
	rating      string
	genre       string
	description string
	poster      string
	stream      string
	download    string
}

func (f *movieFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.title, "title", "", "Movie title")
	cmd.Flags().StringVar(&f.year, "year", "", "Release year")
	cmd.Flags().StringVar(&f.rating, "rating", "", "Rating, e.g. 8.5/10")
	cmd.Flags().StringVar(&f.genre, "genre", "", "Genre, e.g. \"Action, Drama\"")
	cmd.Flags().StringVar(&f.description, "description", "", "Short description")
	cmd.Flags().StringVar(&f.poster, "poster", "", "Poster image URL")
	cmd.Flags().StringVar(&f.stream, "stream", "", "Stream link")
	cmd.Flags().StringVar(&f.download, "download", "", "Download link")
}

// apply copies every flag the user set onto base.
func (f *movieFlags) apply(cmd *cobra.Command, base catalog.Movie) catalog.Movie {
	set := func(name string, dst *string, value string) {
		if cmd.Flags().Changed(name) {
			*dst = value
		}
	}
	set("title", &base.Title, f.title)
	set("year", &base.Year, f.year)
	set("rating", &base.Rating, f.rating)
	set("genre", &base.Genre, f.genre)
	set("description", &base.Description, f.description)
	set("poster", &base.PosterURL, f.poster)
	set("stream", &base.StreamURL, f.stream)
	set("download", &base.DownloadURL, f.download)
	return base
}

func newAddCommand(ctx *commandContext) *cobra.Command {
	var flags movieFlags
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a movie to the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withEngine(cmd, func(runCtx context.Context, eng *engine.Engine, _ engine.Resolution) error {
				res, err := eng.Create(runCtx, flags.apply(cmd, catalog.Movie{}))
				if err != nil && errors.Is(err, services.ErrValidation) {
					return fmt.Errorf("add movie: --title and --genre are required")
				}
				if jsonOutput {
					if encErr := writeJSON(cmd, toMutationOutput(res)); encErr != nil {
						return encErr
					}
					return err
				}
				printMutation(cmd.OutOrStdout(), res)
				fmt.Fprintln(cmd.OutOrStdout(), renderMovieDetail(res.Movie))
				return err
			})
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newUpdateCommand(ctx *commandContext) *cobra.Command {
	var flags movieFlags
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Edit a movie; unset flags keep their current value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseMovieID(args[0])
			if err != nil {
				return err
			}
			return ctx.withEngine(cmd, func(runCtx context.Context, eng *engine.Engine, _ engine.Resolution) error {
				current, ok := eng.Catalog().Find(id)
				if !ok {
					return fmt.Errorf("update movie: no movie with id %d", id)
				}
				res, err := eng.Update(runCtx, id, flags.apply(cmd, current))
				switch {
				case engine.IsNotFound(err):
					return fmt.Errorf("update movie: no movie with id %d", id)
				case errors.Is(err, services.ErrValidation):
					return fmt.Errorf("update movie: title and genre cannot be blank")
				}
				if jsonOutput {
					if encErr := writeJSON(cmd, toMutationOutput(res)); encErr != nil {
						return encErr
					}
					return err
				}
				printMutation(cmd.OutOrStdout(), res)
				fmt.Fprintln(cmd.OutOrStdout(), renderMovieDetail(res.Movie))
				return err
			})
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newDeleteCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Remove a movie from the catalog",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseMovieID(args[0])
			if err != nil {
				return err
			}
			return ctx.withEngine(cmd, func(runCtx context.Context, eng *engine.Engine, _ engine.Resolution) error {
				res, err := eng.Delete(runCtx, id)
				if jsonOutput {
					if encErr := writeJSON(cmd, toMutationOutput(res)); encErr != nil {
						return encErr
					}
					return err
				}
				printMutation(cmd.OutOrStdout(), res)
				return err
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func parseMovieID(raw string) (int, error) {
	id, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid movie id %q", raw)
	}
	return id, nil
}
