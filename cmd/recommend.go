package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/crop-advisor/internal/recommend"
)

var (
	recSoilType string
	recLocation string
	recFarmSize float64
	recJSON     bool
)

var recommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Recommend crops for a farm",
	Long:  "Runs the recommendation pipeline once and prints the top crops. Trains a model first if none is saved.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initApp(ctx, "recommend")
		if err != nil {
			return err
		}
		defer env.Close()

		if !env.Classifier.Ready() {
			zap.L().Info("recommend: no saved model, training now")
			if _, err := env.Classifier.Train(ctx); err != nil {
				return err
			}
		}

		res, err := env.Engine.Recommend(ctx, recommend.Request{
			SoilType: recSoilType,
			Location: recLocation,
			FarmSize: recFarmSize,
		})
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if recJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		}

		w := res.Weather
		_, _ = fmt.Fprintf(out, "%s (%s season, %s region)\n", res.Location, res.Season, res.Region)
		_, _ = fmt.Fprintf(out, "Weather: %.1f°C, %.0f%% humidity, %.1f mm rain", w.Temperature, w.Humidity, w.Rainfall)
		if w.IsDefault {
			_, _ = fmt.Fprint(out, " (seasonal average)")
		}
		_, _ = fmt.Fprintf(out, "\nSoil: %s, health %d/100 (%s)\n\n", res.SoilAnalysis.Type, res.SoilAnalysis.Health.Score, res.SoilAnalysis.Health.Status)

		tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(tw, "RANK\tCROP\tCONFIDENCE\tINCOME (INR)\tPERIOD\tHARVEST\tIN SEASON")
		for _, r := range res.Recommendations {
			_, _ = fmt.Fprintf(tw, "%d\t%s\t%.1f%%\t%.0f\t%s\t%s\t%t\n",
				r.Rank, r.Crop, r.Confidence, r.ExpectedIncome, r.GrowingPeriod, r.HarvestDate, r.SeasonalMatch)
		}
		if err := tw.Flush(); err != nil {
			return err
		}

		_, _ = fmt.Fprintf(out, "\n%s\n", res.ConfidenceNote)
		return nil
	},
}

func init() {
	recommendCmd.Flags().StringVar(&recSoilType, "soil-type", "", "soil type (e.g. loamy, clay, black_cotton)")
	recommendCmd.Flags().StringVar(&recLocation, "location", "", "city or region")
	recommendCmd.Flags().Float64Var(&recFarmSize, "farm-size", 1, "farm size in acres")
	recommendCmd.Flags().BoolVar(&recJSON, "json", false, "print the full result as JSON")
	rootCmd.AddCommand(recommendCmd)
}
