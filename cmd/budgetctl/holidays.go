package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/warp/budget-engine/app"
)

var holidaysJurisdiction string

var holidaysCmd = &cobra.Command{
	Use:   "holidays",
	Short: "Inspect or refresh the holiday calendar",
}

var holidaysListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored holidays",
	Args:  cobra.NoArgs,
	RunE:  runHolidaysList,
}

var holidaysRefreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Fetch last, this and next year's holidays from the provider",
	Args:  cobra.NoArgs,
	RunE:  runHolidaysRefresh,
}

func init() {
	holidaysCmd.PersistentFlags().StringVar(&holidaysJurisdiction, "jurisdiction", "", "Jurisdiction (default: configured)")
	holidaysCmd.AddCommand(holidaysListCmd, holidaysRefreshCmd)
	rootCmd.AddCommand(holidaysCmd)
}

func jurisdiction(ctx context.Context, a *app.App) (string, error) {
	if j := strings.TrimSpace(holidaysJurisdiction); j != "" {
		return strings.ToUpper(j), nil
	}
	s, err := a.Resolver.Settings(ctx)
	if err != nil {
		return "", err
	}
	return s.Jurisdiction, nil
}

func runHolidaysList(_ *cobra.Command, _ []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()
	ctx := context.Background()

	j, err := jurisdiction(ctx, a)
	if err != nil {
		return err
	}
	hs, err := a.Calendar.Load(ctx, j)
	if err != nil {
		return err
	}
	dates := hs.Dates()
	if flagJSON {
		return printJSON(dates)
	}
	if len(dates) == 0 {
		fmt.Printf("No holidays stored for %s. Run `budgetctl holidays refresh`.\n", j)
		return nil
	}
	for _, d := range dates {
		fmt.Printf("%s  %s\n", d, d.Weekday())
	}
	return nil
}

func runHolidaysRefresh(_ *cobra.Command, _ []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()
	ctx := context.Background()

	j, err := jurisdiction(ctx, a)
	if err != nil {
		return err
	}
	n, err := a.Calendar.Refresh(ctx, j)
	if err != nil {
		return err
	}
	if flagJSON {
		return printJSON(map[string]any{"jurisdiction": j, "stored": n})
	}
	fmt.Printf("Stored %d holidays for %s\n", n, j)
	return nil
}
