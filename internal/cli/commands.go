package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/citypath/overlay/internal/events"
	"github.com/citypath/overlay/internal/overlay"
)

func newGridCmd(opts *RootOptions) *cobra.Command {
	var theme string
	cmd := &cobra.Command{
		Use:   "grid",
		Short: "Load the cell grid and print the choropleth scene summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := getContext(cmd)
			if err != nil {
				return err
			}
			if err := cc.coord.LoadGrid(cmd.Context()); err != nil {
				return err
			}
			scene := cc.coord.SetTheme(overlay.Theme(theme))
			if opts.JSONOut {
				return printResult(cmd, opts, scene.Legend)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "theme=%s field=%s cells=%d skipped=%d domain=[%g, %g]\n",
				scene.Theme, scene.Legend.Field, len(scene.Polygons), scene.Skipped,
				scene.Legend.Domain.Min, scene.Legend.Domain.Max)
			return nil
		},
	}
	cmd.Flags().StringVar(&theme, "theme", string(overlay.ThemeHeat), "choropleth theme (heat, greenspace, population)")
	return cmd
}

func newHotspotsCmd(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "hotspots",
		Short: "Load the hotspot markers",
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := getContext(cmd)
			if err != nil {
				return err
			}
			if err := cc.coord.LoadHotspots(cmd.Context()); err != nil {
				return err
			}
			return printMarkers(cmd, opts, cc.coord.Markers())
		},
	}
}

func newRecommendCmd(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:       "recommend [parks|clinics]",
		Short:     "Fetch recommended sites and replace the suggestion layer",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{overlay.IntentParks, overlay.IntentClinics},
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := getContext(cmd)
			if err != nil {
				return err
			}
			ms, err := cc.coord.SuggestSites(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printMarkers(cmd, opts, ms)
		},
	}
	return cmd
}

func newAskCmd(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ask <question>",
		Short: "Run one advisory turn, streaming the answer",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := getContext(cmd)
			if err != nil {
				return err
			}
			question := args[0]
			for _, a := range args[1:] {
				question += " " + a
			}
			turn, err := cc.coord.Ask(cmd.Context(), question, func(delta string) {
				fmt.Fprint(cmd.OutOrStdout(), delta)
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout())
			if len(turn.Markers) > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "(%d suggested sites placed on the map, intent %s)\n",
					len(turn.Markers), turn.Intent)
			}
			return nil
		},
	}
}

func newLayersCmd(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "layers",
		Short: "Print the layer catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := getContext(cmd)
			if err != nil {
				return err
			}
			catalog, err := cc.coord.Layers(cmd.Context())
			if err != nil {
				return err
			}
			if opts.JSONOut {
				return printResult(cmd, opts, catalog)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "city: %s\n", catalog.City)
			for _, l := range catalog.Layers {
				fmt.Fprintf(cmd.OutOrStdout(), "  %-16s %-10s %s\n", l.ID, l.Type, l.Name)
			}
			return nil
		},
	}
}

func newEventsCmd(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Manage community events",
	}
	cmd.AddCommand(newEventsListCmd(opts), newEventsCreateCmd(opts), newEventsDeleteCmd(opts))
	return cmd
}

func newEventsListCmd(opts *RootOptions) *cobra.Command {
	var filter, sortBy string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List events with the panel's filter and sort",
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := getContext(cmd)
			if err != nil {
				return err
			}
			now := time.Now()
			list, total, upcoming, past := cc.coord.EventPanel(filter, sortBy, now)
			if opts.JSONOut {
				return printResult(cmd, opts, list)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "total=%d upcoming=%d past=%d\n", total, upcoming, past)
			for _, e := range list {
				st := events.DeriveStatus(e, now)
				fmt.Fprintf(cmd.OutOrStdout(), "  %s  %-24s %-18s %s\n", e.ID, e.Title, e.Category, st.Text)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&filter, "filter", events.FilterAll, "all, upcoming, past, or a category name")
	cmd.Flags().StringVar(&sortBy, "sort", events.SortByDate, "date, title, or created")
	return cmd
}

func newEventsCreateCmd(opts *RootOptions) *cobra.Command {
	var in events.CreateInput
	var hexID string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an event at a hotspot marker (local leaders only)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := getContext(cmd)
			if err != nil {
				return err
			}
			marker := overlay.Marker{Source: overlay.SourceHotspot, HexID: hexID, Lat: in.Lat, Lon: in.Lon}
			e, err := cc.coord.CreateEventFrom(marker, in)
			if err != nil {
				return err
			}
			if opts.JSONOut {
				return printResult(cmd, opts, e)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s (%s at %s)\n", e.ID, e.Title, e.When.Format(time.RFC3339))
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&in.Title, "title", "", "event title")
	f.StringVar(&in.Datetime, "when", "", "local date/time, e.g. 2026-09-20T18:30")
	f.StringVar(&in.Category, "category", "", "event category")
	f.StringVar(&in.Desc, "desc", "", "description")
	f.StringVar(&in.SourceName, "source-name", "", "marker label the event is anchored to")
	f.StringVar(&hexID, "hex", "", "anchor cell identifier")
	f.Float64Var(&in.Lat, "lat", 0, "latitude")
	f.Float64Var(&in.Lon, "lon", 0, "longitude")
	return cmd
}

func newEventsDeleteCmd(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := getContext(cmd)
			if err != nil {
				return err
			}
			if err := cc.coord.RemoveEvent(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return nil
		},
	}
}

func printMarkers(cmd *cobra.Command, opts *RootOptions, ms []overlay.Marker) error {
	if opts.JSONOut {
		return printResult(cmd, opts, ms)
	}
	for _, m := range ms {
		style := overlay.StyleFor(m.Source, m.Intent)
		fmt.Fprintf(cmd.OutOrStdout(), "  %-24s %-14s %8.4f %9.4f  %s\n",
			m.ID, m.Source, m.Lat, m.Lon, style.Color)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d markers\n", len(ms))
	return nil
}
