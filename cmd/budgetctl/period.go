package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/warp/budget-engine/budget"
)

var periodCmd = &cobra.Command{
	Use:   "period [YYYY-MM]",
	Short: "Show the date range of a fiscal month (default: current)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runPeriod,
}

func init() {
	rootCmd.AddCommand(periodCmd)
}

func runPeriod(_ *cobra.Command, args []string) error {
	m, given, err := monthArg(args)
	if err != nil {
		return err
	}
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()
	ctx := context.Background()

	var p budget.Period
	if given {
		p, err = a.Resolver.Range(ctx, m)
	} else {
		m, p, err = a.Resolver.Current(ctx)
	}
	if err != nil {
		return err
	}

	if flagJSON {
		return printJSON(struct {
			Month  budget.FiscalMonth `json:"month"`
			Period budget.Period      `json:"period"`
			Days   int                `json:"length_days"`
		}{m, p, p.Length()})
	}
	fmt.Printf("%s  %s .. %s  (%d days)\n", m, p.Start, p.End, p.Length())
	if p.Contains(a.Resolver.Today()) {
		fmt.Println("Contains today.")
	}
	return nil
}
