package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/crop-advisor/internal/pricebook"
)

var pricesReplace bool

var pricesCmd = &cobra.Command{
	Use:   "prices",
	Short: "Manage observed market prices",
}

var pricesImportCmd = &cobra.Command{
	Use:   "import <csv>",
	Short: "Import mandi prices from a CSV file or URL",
	Long:  "Loads Date, Market, Crop, Price_per_qtl rows into the price store. Income estimates use them when pricing.use_market_prices is set.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("prices"); err != nil {
			return err
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		start := time.Now()
		n, err := pricebook.Import(ctx, st, newFetcher(), args[0], pricesReplace)
		if err != nil {
			return err
		}

		zap.L().Info("prices: import complete",
			zap.Int64("rows", n),
			zap.Bool("replace", pricesReplace),
			zap.Duration("elapsed", time.Since(start)),
		)
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Imported %d prices\n", n)
		return nil
	},
}

var pricesLatestCmd = &cobra.Command{
	Use:   "latest <crop>",
	Short: "Show the latest observed price for a crop",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("prices"); err != nil {
			return err
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		crop := strings.ToLower(strings.TrimSpace(args[0]))
		mp, err := st.LatestPrice(ctx, crop)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if mp == nil {
			_, _ = fmt.Fprintf(out, "No market prices recorded for %s\n", crop)
			return nil
		}
		_, _ = fmt.Fprintf(out, "%s: Rs %.2f/qtl on %s (%s)\n",
			mp.Crop, mp.PricePerQuintal, mp.ObservedOn.Format(time.DateOnly), mp.Market)
		return nil
	},
}

func init() {
	pricesImportCmd.Flags().BoolVar(&pricesReplace, "replace", false, "replace all stored prices instead of upserting")
	pricesCmd.AddCommand(pricesImportCmd, pricesLatestCmd)
	rootCmd.AddCommand(pricesCmd)
}
