// Package movies implements the movies command, a terminal client for the
// binged API.
package movies

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"

	"github.com/tphakala/binged/internal/conf"
	"github.com/tphakala/binged/internal/datastore"
	"github.com/tphakala/binged/internal/errors"
	"github.com/tphakala/binged/internal/httpclient"
	"github.com/tphakala/binged/internal/logger"
	"github.com/tphakala/binged/internal/tracker"
)

// Command creates the movies command. opts are passed to every controller
// the subcommands build.
func Command(settings *conf.Settings, opts ...tracker.ControllerOption) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "movies",
		Short: "List, add, edit and delete movies through the API",
	}

	f := &factory{settings: settings, opts: opts}
	cmd.AddCommand(
		listCommand(f),
		addCommand(f),
		editCommand(f),
		deleteCommand(f),
		statsCommand(f),
	)
	return cmd
}

type factory struct {
	settings *conf.Settings
	opts     []tracker.ControllerOption
}

// controller builds a tracker controller talking to the configured API.
func (f *factory) controller() (*tracker.Controller, error) {
	client := httpclient.New(&httpclient.Config{DefaultTimeout: f.settings.Client.Timeout})
	client.LogRequests(logger.Global().Module("client"))

	api, err := tracker.NewHTTPAPI(f.settings.Client.APIBase, client)
	if err != nil {
		return nil, err
	}

	locale, err := language.Parse(f.settings.Client.Locale)
	if err != nil {
		locale = language.English
	}

	opts := append([]tracker.ControllerOption{
		tracker.WithLocale(locale),
		tracker.WithLocation(f.settings.Location()),
	}, f.opts...)
	return tracker.NewController(api, opts...), nil
}

// load builds a controller and fetches the list.
func (f *factory) load(cmd *cobra.Command) (*tracker.Controller, error) {
	c, err := f.controller()
	if err != nil {
		return nil, err
	}
	if err := c.Load(cmd.Context()); err != nil {
		return nil, stateError(c, err)
	}
	return c, nil
}

// stateError prefers the controller's user facing message over err.
// Validation errors never reach the controller state and pass through.
func stateError(c *tracker.Controller, err error) error {
	if errors.IsValidation(err) {
		return err
	}
	if msg := c.Snapshot().LastError; msg != "" {
		return errors.NewStd(msg)
	}
	return err
}

func listCommand(f *factory) *cobra.Command {
	var (
		search    string
		sortKey   string
		minRating string
		asJSON    bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List movies",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := tracker.ParseSortKey(sortKey)
			if err != nil {
				return err
			}

			c, err := f.load(cmd)
			if err != nil {
				return err
			}
			c.SetSearch(search)
			c.SetSort(key)
			if err := c.ParseMinRating(minRating); err != nil {
				return err
			}

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), c.View())
			}
			return writeTable(cmd.OutOrStdout(), c.View())
		},
	}

	cmd.Flags().StringVarP(&search, "search", "s", "", "Only show titles or genres containing this text")
	cmd.Flags().StringVar(&sortKey, "sort", string(tracker.SortDateAdded), "Sort by rating, title, year or dateAdded")
	cmd.Flags().StringVar(&minRating, "min-rating", "", "Only show movies rated at least this")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of a table")
	return cmd
}

// draftFlags are shared by add and edit
type draftFlags struct {
	title, genre, rating, review, year, watchedDate, status string
}

func (d *draftFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&d.title, "title", "", "Title")
	cmd.Flags().StringVar(&d.genre, "genre", "", "Genre")
	cmd.Flags().StringVar(&d.rating, "rating", "", "Rating from 1 to 10")
	cmd.Flags().StringVar(&d.review, "review", "", "Review text")
	cmd.Flags().StringVar(&d.year, "year", "", "Release year")
	cmd.Flags().StringVar(&d.watchedDate, "watched-date", "", "Date watched, YYYY-MM-DD")
	cmd.Flags().StringVar(&d.status, "status", "", "watched or watchlist")
}

// apply copies the flags the user set onto draft.
func (d *draftFlags) apply(cmd *cobra.Command, draft tracker.Draft) tracker.Draft {
	set := func(name string, dst *string, v string) {
		if cmd.Flags().Changed(name) {
			*dst = v
		}
	}
	set("title", &draft.Title, d.title)
	set("genre", &draft.Genre, d.genre)
	set("rating", &draft.Rating, d.rating)
	set("review", &draft.Review, d.review)
	set("year", &draft.Year, d.year)
	set("watched-date", &draft.WatchedDate, d.watchedDate)
	set("status", &draft.Status, d.status)
	return draft
}

func addCommand(f *factory) *cobra.Command {
	var flags draftFlags

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a movie",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := f.controller()
			if err != nil {
				return err
			}
			c.SetDraft(flags.apply(cmd, tracker.EmptyDraft()))
			return submit(cmd, c)
		},
	}

	flags.register(cmd)
	return cmd
}

func editCommand(f *factory) *cobra.Command {
	var flags draftFlags

	cmd := &cobra.Command{
		Use:   "edit ID",
		Short: "Edit a movie; flags that are not given keep their current value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			c, err := f.load(cmd)
			if err != nil {
				return err
			}
			if err := c.Edit(id); err != nil {
				return fmt.Errorf("movie %d not found", id)
			}
			c.SetDraft(flags.apply(cmd, c.Snapshot().Draft))
			return submit(cmd, c)
		},
	}

	flags.register(cmd)
	return cmd
}

func submit(cmd *cobra.Command, c *tracker.Controller) error {
	if err := c.Submit(cmd.Context()); err != nil {
		return stateError(c, err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Movie saved")
	return nil
}

func deleteCommand(f *factory) *cobra.Command {
	var assumeYes bool

	cmd := &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a movie",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			c, err := f.controller()
			if err != nil {
				return err
			}

			attempted, err := c.Delete(cmd.Context(), id, newConfirmer(cmd, assumeYes))
			if err != nil {
				return stateError(c, err)
			}
			if !attempted {
				fmt.Fprintln(cmd.OutOrStdout(), "Cancelled")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Movie deleted")
			return nil
		},
	}

	cmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}

func statsCommand(f *factory) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show collection statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := f.load(cmd)
			if err != nil {
				return err
			}

			stats := c.Stats()
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), stats)
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "Total\t%d\n", stats.Total)
			fmt.Fprintf(w, "Watched\t%d\n", stats.Watched)
			fmt.Fprintf(w, "Watchlist\t%d\n", stats.Watchlist)
			fmt.Fprintf(w, "Average rating\t%s\n", stats.AvgRating)
			return w.Flush()
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	return cmd
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid movie id %q", s)
	}
	return id, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeTable(w io.Writer, movies []datastore.Movie) error {
	if len(movies) == 0 {
		_, err := fmt.Fprintln(w, "No movies found")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tYEAR\tRATING\t\tSTATUS\tGENRE\tWATCHED\tADDED")
	for _, m := range movies {
		year := "-"
		if m.Year != nil {
			year = strconv.Itoa(*m.Year)
		}
		watched := "-"
		if m.WatchedDate != nil {
			watched = m.WatchedDate.String()
		}
		rating, stars := "-", ""
		if m.HasRating() {
			rating = strconv.FormatFloat(*m.Rating, 'f', 1, 64)
			stars = tracker.StarString(*m.Rating)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			m.ID, m.Title, year, rating, stars,
			m.Status, m.Genre, watched, m.DateAdded)
	}
	return tw.Flush()
}
