package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/warp/budget-engine/budget"
)

var (
	setupFiscalDay    int
	setupJurisdiction string
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Store the fiscal settings (once)",
	Long: `Store the household's fiscal day and holiday jurisdiction. Settings are
write-once. Without flags the [fiscal] section of HOUSEHOLD_FILE is used.`,
	Args: cobra.NoArgs,
	RunE: runSetup,
}

func init() {
	setupCmd.Flags().IntVar(&setupFiscalDay, "fiscal-day", 0, "Fiscal day start, 1-28")
	setupCmd.Flags().StringVar(&setupJurisdiction, "jurisdiction", "", "Holiday jurisdiction, e.g. DE or DE-BY")
	rootCmd.AddCommand(setupCmd)
}

func runSetup(_ *cobra.Command, _ []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()
	ctx := context.Background()

	if setupFiscalDay == 0 && setupJurisdiction == "" {
		if a.Config.Household == nil {
			return errors.New("pass --fiscal-day and --jurisdiction, or set HOUSEHOLD_FILE")
		}
		configured, err := a.EnsureSettings(ctx)
		if err != nil {
			return err
		}
		if !configured {
			return budget.ErrSettingsImmutable
		}
	} else {
		settings := budget.FiscalSettings{
			FiscalDayStart: setupFiscalDay,
			Jurisdiction:   strings.ToUpper(strings.TrimSpace(setupJurisdiction)),
		}
		if err := a.Setup.Setup(ctx, settings); err != nil {
			return err
		}
	}

	s, err := a.Resolver.Settings(ctx)
	if err != nil {
		return err
	}
	if flagJSON {
		return printJSON(s)
	}
	fmt.Printf("Configured: fiscal day %d, jurisdiction %s\n", s.FiscalDayStart, s.Jurisdiction)
	fmt.Println("Run `budgetctl holidays refresh` to fetch public holidays.")
	return nil
}
