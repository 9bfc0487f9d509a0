package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/warp/budget-engine/budget"
)

var forecastDays int

var forecastCmd = &cobra.Command{
	Use:   "forecast",
	Short: "Project scheduled bills and income day by day",
	Args:  cobra.NoArgs,
	RunE:  runForecast,
}

func init() {
	forecastCmd.Flags().IntVar(&forecastDays, "days", 62, "Days to show (the projection covers 12 months)")
	rootCmd.AddCommand(forecastCmd)
}

func runForecast(_ *cobra.Command, _ []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	f, err := a.Forecast.Generate(context.Background())
	if err != nil {
		return err
	}
	days := f.Days
	if forecastDays > 0 && forecastDays < len(days) {
		days = days[:forecastDays]
	}
	if flagJSON {
		return printJSON(budget.Forecast{From: f.From, To: f.To, Days: days})
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "DATE\tFISCAL\tITEM\tAMOUNT\tBALANCE")
	for _, d := range days {
		for _, it := range d.Items {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", d.Date, d.FiscalMonth, it.Name, money(it.Amount), money(d.RunningBalance))
		}
	}
	return w.Flush()
}
