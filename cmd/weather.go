package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var weatherCmd = &cobra.Command{
	Use:   "weather <location>",
	Short: "Look up current weather for a location",
	Long:  "Resolves weather the same way recommendations do: cache, live lookup over location variants, then seasonal averages.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initApp(ctx, "recommend")
		if err != nil {
			return err
		}
		defer env.Close()

		obs := env.Weather.Resolve(ctx, strings.Join(args, " "))

		out := cmd.OutOrStdout()
		_, _ = fmt.Fprintf(out, "Location:    %s", obs.Location)
		if obs.Country != "" {
			_, _ = fmt.Fprintf(out, ", %s", obs.Country)
		}
		_, _ = fmt.Fprintln(out)
		_, _ = fmt.Fprintf(out, "Temperature: %.1f°C\n", obs.Temperature)
		_, _ = fmt.Fprintf(out, "Humidity:    %.0f%%\n", obs.Humidity)
		_, _ = fmt.Fprintf(out, "Rainfall:    %.1f mm", obs.Rainfall)
		if obs.RainfallEstimated {
			_, _ = fmt.Fprint(out, " (estimated)")
		}
		_, _ = fmt.Fprintln(out)
		_, _ = fmt.Fprintf(out, "Conditions:  %s\n", obs.Description)
		if obs.IsDefault {
			_, _ = fmt.Fprintln(out, "Source:      seasonal average (live lookup unavailable)")
		} else if obs.MatchedQuery != "" {
			_, _ = fmt.Fprintf(out, "Matched:     %s\n", obs.MatchedQuery)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(weatherCmd)
}
