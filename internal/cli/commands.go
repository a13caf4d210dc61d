package cli

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/amedasmap/amedasmap/internal/amedas"
)

const defaultRankingLimit = 30

func (a *app) stationsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stations",
		Short: "List the station directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			stations, err := a.client().FetchStations(cmd.Context())
			if err != nil {
				return err
			}

			list := sortedStations(stations)
			fmt.Fprintln(a.out, a.header.Render(fmt.Sprintf("%d stations", len(list))))
			return a.table([]string{"ID", "NAME", "ROMANIZED", "LAT", "LON"}, func(w io.Writer) {
				for _, st := range list {
					fmt.Fprintf(w, "%s\t%s\t%s\t%.4f\t%.4f\n",
						st.ID, st.NameLocal, st.NameRomanized, st.Latitude, st.Longitude)
				}
			})
		},
	}
}

func (a *app) latestCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "latest",
		Short: "Print the latest observation time",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			t, err := a.client().FetchLatestTime(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, t.Format(time.RFC3339))
			return nil
		},
	}
}

func (a *app) snapshotCommand() *cobra.Command {
	var elementName string

	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Show the latest snapshot classified for one element",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			element, err := amedas.ParseElement(elementName)
			if err != nil {
				return err
			}
			stations, snapshot, err := a.loadSnapshot(cmd.Context())
			if err != nil {
				return err
			}

			observations := append([]amedas.Observation(nil), snapshot.Observations...)
			sort.Slice(observations, func(i, j int) bool {
				return observations[i].StationID < observations[j].StationID
			})

			fmt.Fprintln(a.out, a.header.Render(snapshot.Time.Format(time.RFC3339)+" "+element.Title()))
			return a.table([]string{"ID", "NAME", "VALUE", "KEY"}, func(w io.Writer) {
				for _, obs := range observations {
					if !obs.HasValidData(element) {
						continue
					}
					key := "-"
					if k, ok := amedas.ClassifyObservation(obs, element); ok {
						key = k.Identifier()
					}
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
						obs.StationID, stations[obs.StationID].NameLocal, obs.Text(element), key)
				}
			})
		},
	}
	cmd.Flags().StringVarP(&elementName, "element", "e", string(amedas.ElementTemperature), "element to classify")
	return cmd
}

func (a *app) seriesCommand() *cobra.Command {
	var (
		at     string
		hourly int
	)

	cmd := &cobra.Command{
		Use:   "series <stationID>",
		Short: "Show the 24 hour series of one station",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := a.client()
			loc := a.location()

			var anchor time.Time
			if at != "" {
				t, err := time.Parse(time.RFC3339, at)
				if err != nil {
					return fmt.Errorf("invalid --at: %w", err)
				}
				anchor = t
			} else {
				t, err := client.FetchLatestTime(cmd.Context())
				if err != nil {
					return err
				}
				anchor = t
			}

			aggregator := amedas.NewSeriesAggregator(amedas.SeriesConfig{
				Fetcher:  client,
				Location: loc,
				Logger:   a.logger,
			})
			series, err := aggregator.Load(cmd.Context(), args[0], anchor)
			if err != nil {
				return err
			}
			if hourly > 0 {
				series = amedas.HourlySamples(series, hourly)
			}

			elements := amedas.ElementsWithData(series)
			headers := []string{"TIME"}
			for _, e := range elements {
				headers = append(headers, strings.ToUpper(string(e)))
			}

			fmt.Fprintln(a.out, a.header.Render(fmt.Sprintf("%s %d samples ending %s",
				args[0], len(series), anchor.In(loc).Format(time.RFC3339))))
			return a.table(headers, func(w io.Writer) {
				for _, obs := range series {
					cells := []string{obs.Time.In(loc).Format("01-02 15:04")}
					for _, e := range elements {
						cells = append(cells, obs.Text(e))
					}
					fmt.Fprintln(w, strings.Join(cells, "\t"))
				}
			})
		},
	}
	cmd.Flags().StringVar(&at, "at", "", "anchor time in RFC3339 (default: latest observation time)")
	cmd.Flags().IntVar(&hourly, "hourly", 0, "only show the newest n on-the-hour samples")
	return cmd
}

func (a *app) rankingCommand() *cobra.Command {
	var (
		elementName string
		limit       int
	)

	cmd := &cobra.Command{
		Use:   "ranking",
		Short: "Rank the latest snapshot by one element",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			element, err := amedas.ParseElement(elementName)
			if err != nil {
				return err
			}
			if limit <= 0 {
				return fmt.Errorf("--limit must be positive, got %d", limit)
			}
			stations, snapshot, err := a.loadSnapshot(cmd.Context())
			if err != nil {
				return err
			}

			ranked := amedas.Rank(snapshot.Observations, element, limit)
			fmt.Fprintln(a.out, a.header.Render(snapshot.Time.Format(time.RFC3339)+" "+element.Title()))
			return a.table([]string{"RANK", "ID", "NAME", "VALUE"}, func(w io.Writer) {
				for i, obs := range ranked {
					fmt.Fprintf(w, "%d\t%s\t%s\t%s\n",
						i+1, obs.StationID, stations[obs.StationID].NameLocal, obs.Text(element))
				}
			})
		},
	}
	cmd.Flags().StringVarP(&elementName, "element", "e", string(amedas.ElementTemperature), "element to rank by")
	cmd.Flags().IntVarP(&limit, "limit", "n", defaultRankingLimit, "number of stations to show")
	return cmd
}

func (a *app) keysCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "keys",
		Short: "List every marker key the classifier can produce",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			keys := amedas.AllKeys()
			fmt.Fprintln(a.out, a.header.Render(fmt.Sprintf("%d keys", len(keys))))
			return a.table([]string{"IDENTIFIER", "SHAPE", "ROTATION"}, func(w io.Writer) {
				for _, k := range keys {
					fmt.Fprintf(w, "%s\t%s\t%s\n",
						k.Identifier(), k.Shape, strconv.FormatFloat(k.RotationDegrees(), 'f', -1, 64))
				}
			})
		},
	}
}

// loadSnapshot fetches the directory and the latest snapshot.
func (a *app) loadSnapshot(ctx context.Context) (map[string]amedas.Station, *amedas.Snapshot, error) {
	client := a.client()

	stations, err := client.FetchStations(ctx)
	if err != nil {
		return nil, nil, err
	}
	latest, err := client.FetchLatestTime(ctx)
	if err != nil {
		return nil, nil, err
	}
	snapshot, err := client.FetchSnapshot(ctx, latest)
	if err != nil {
		return nil, nil, err
	}
	a.logger.Debug().
		Time("observed_at", snapshot.Time).
		Int("observations", len(snapshot.Observations)).
		Msg("snapshot loaded")
	return stations, snapshot, nil
}

func (a *app) table(headers []string, rows func(w io.Writer)) error {
	tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(headers, "\t"))
	rows(tw)
	return tw.Flush()
}

func sortedStations(stations map[string]amedas.Station) []amedas.Station {
	list := make([]amedas.Station, 0, len(stations))
	for _, st := range stations {
		list = append(list, st)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list
}
