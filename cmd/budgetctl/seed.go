package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/warp/budget-engine/factory"
)

var (
	seedFile     string
	seedScenario string
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load a household from a JSON file or a built-in scenario",
	Long: `Seed an unconfigured store with settings, budgets, transactions,
cashflows, savings accounts and goals. Fails without writing anything
when the store already has fiscal settings.`,
	Args: cobra.NoArgs,
	RunE: runSeed,
}

var scenariosCmd = &cobra.Command{
	Use:   "scenarios",
	Short: "List built-in demo scenarios",
	Args:  cobra.NoArgs,
	RunE:  runScenarios,
}

func init() {
	seedCmd.Flags().StringVarP(&seedFile, "file", "f", "", "Household JSON file")
	seedCmd.Flags().StringVarP(&seedScenario, "scenario", "s", "", "Built-in scenario ID")
	rootCmd.AddCommand(seedCmd, scenariosCmd)
}

func runSeed(_ *cobra.Command, _ []string) error {
	if (seedFile == "") == (seedScenario == "") {
		return errors.New("pass exactly one of --file or --scenario")
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()
	f := factory.NewHouseholdFactory()

	var h *factory.HouseholdJSON
	if seedFile != "" {
		data, err := os.ReadFile(seedFile)
		if err != nil {
			return fmt.Errorf("reading household: %w", err)
		}
		if h, err = f.ParseHousehold(data); err != nil {
			return err
		}
	} else {
		s, err := factory.GetScenario(seedScenario)
		if err != nil {
			return err
		}
		h = s.Build(a.Resolver.Today())
	}

	res, err := f.Seed(context.Background(), a.Store, h)
	if err != nil {
		return err
	}
	if flagJSON {
		return printJSON(res)
	}
	fmt.Printf("Seeded %d subcategories, %d transactions, %d cashflows, %d accounts, %d goals, %d holidays\n",
		len(res.Subcategories), res.Transactions, res.Cashflows, len(res.Accounts), len(res.Goals), res.Holidays)
	return nil
}

func runScenarios(_ *cobra.Command, _ []string) error {
	all := factory.Scenarios()
	if flagJSON {
		return printJSON(all)
	}
	for _, s := range all {
		fmt.Printf("%-20s %s\n", s.ID, s.Description)
	}
	return nil
}
