package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/warp/budget-engine/budget"
)

var savingsCmd = &cobra.Command{
	Use:   "savings",
	Short: "List savings accounts and goals in funding order",
	Args:  cobra.NoArgs,
	RunE:  runSavings,
}

var withdrawCmd = &cobra.Command{
	Use:   "withdraw GOAL_ID AMOUNT",
	Short: "Take money out of a savings goal",
	Args:  cobra.ExactArgs(2),
	RunE:  runWithdraw,
}

func init() {
	rootCmd.AddCommand(savingsCmd, withdrawCmd)
}

func runSavings(_ *cobra.Command, _ []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	accounts, err := a.Store.ListAccountsWithGoals(context.Background())
	if err != nil {
		return err
	}
	ranking := budget.RankGoals(accounts, a.Resolver.Today())
	if flagJSON {
		return printJSON(map[string]any{"accounts": accounts, "ranking": ranking})
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ACCOUNT\tNAME\tBALANCE")
	for _, acc := range accounts {
		fmt.Fprintf(w, "%d\t%s\t%s\n", acc.ID, acc.Name, money(acc.Balance))
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "RANK\tGOAL\tACCOUNT\tMONTHS LEFT\tREQUIRED/MONTH")
	for _, g := range ranking {
		fmt.Fprintf(w, "%d\t%s (#%d)\t%d\t%d\t%s\n", g.Rank, g.GoalName, g.GoalID, g.AccountID, g.MonthsRemaining, money(g.RequiredMonthly))
	}
	return w.Flush()
}

func runWithdraw(_ *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("goal id %q: %w", args[0], err)
	}
	amount, err := decimal.NewFromString(args[1])
	if err != nil {
		return fmt.Errorf("amount %q: %w", args[1], err)
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	wd, err := budget.NewWithdrawalService(a.Store).Withdraw(context.Background(), budget.GoalID(id), amount)
	if err != nil {
		return err
	}
	if flagJSON {
		return printJSON(wd)
	}
	fmt.Printf("Withdrew %s from goal %d; %s left\n", money(wd.Amount), wd.GoalID, money(wd.CurrentAmount))
	return nil
}
