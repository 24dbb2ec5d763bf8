package main

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/sells-group/crop-advisor/internal/crops"
)

var (
	planSoilType string
	planFarmSize float64
	planJSON     bool
)

var cropsCmd = &cobra.Command{
	Use:   "crops",
	Short: "List the crops the advisor knows about",
	RunE: func(cmd *cobra.Command, args []string) error {
		kb, err := crops.Load()
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(w, "CROP\tNAME\tCATEGORY\tDAYS\tPLANTING MONTHS")
		for _, c := range kb.Catalog() {
			_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
				c.Crop, c.Name, c.Category, c.DurationDays, monthList(c.BestPlantingMonths))
		}
		return w.Flush()
	},
}

var planCmd = &cobra.Command{
	Use:   "plan <crop>",
	Short: "Print the growing plan for a crop",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kb, err := crops.Load()
		if err != nil {
			return err
		}

		plan, err := kb.Plan(args[0], crops.PlanOptions{
			SoilType: planSoilType,
			FarmSize: planFarmSize,
			Now:      time.Now(),
		})
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if planJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(plan)
		}

		_, _ = fmt.Fprintf(out, "%s (%s), %d days\n", plan.Name, plan.Category, plan.DurationDays)
		_, _ = fmt.Fprintf(out, "Plant: %s\n", plan.RecommendedPlantingDate)
		_, _ = fmt.Fprintf(out, "Water: %s | pH %s | %s\n\n", plan.WaterRequirement, plan.SoilPHRange, plan.TemperatureRange)

		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(w, "STAGE\tDAYS\tFROM\tTO")
		for _, s := range plan.Stages {
			_, _ = fmt.Fprintf(w, "%s\t%d-%d\t%s\t%s\n", s.Name, s.StartDay, s.EndDay, s.StartDate, s.EndDate)
		}
		if err := w.Flush(); err != nil {
			return err
		}

		tips := slices.Concat(plan.Tips, plan.SoilTips, plan.ScaleTips)
		if len(tips) > 0 {
			_, _ = fmt.Fprintln(out)
			for _, t := range tips {
				_, _ = fmt.Fprintf(out, "- %s\n", t)
			}
		}
		return nil
	},
}

func monthList(months []int) string {
	names := make([]string, 0, len(months))
	for _, m := range months {
		names = append(names, time.Month(m).String()[:3])
	}
	return strings.Join(names, ", ")
}

func init() {
	planCmd.Flags().StringVar(&planSoilType, "soil-type", "", "tailor irrigation and fertilizer tips to this soil")
	planCmd.Flags().Float64Var(&planFarmSize, "farm-size", 0, "farm size in acres")
	planCmd.Flags().BoolVar(&planJSON, "json", false, "print the plan as JSON")
	cropsCmd.AddCommand(planCmd)
	rootCmd.AddCommand(cropsCmd)
}
