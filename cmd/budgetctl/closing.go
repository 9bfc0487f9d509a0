package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/warp/budget-engine/budget"
)

var (
	closeIfNeeded bool
	runsLimit     int
)

var statusCmd = &cobra.Command{
	Use:   "status [YYYY-MM]",
	Short: "Show whether a fiscal month needs closing (default: last ended)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runStatus,
}

var closeCmd = &cobra.Command{
	Use:   "close [YYYY-MM]",
	Short: "Close a fiscal month and distribute its surplus (default: last ended)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runClose,
}

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recent close attempts",
	Args:  cobra.NoArgs,
	RunE:  runRuns,
}

func init() {
	closeCmd.Flags().BoolVar(&closeIfNeeded, "if-needed", false, "Exit quietly when the month is already closed")
	runsCmd.Flags().IntVarP(&runsLimit, "limit", "l", 20, "Number of runs to show")
	rootCmd.AddCommand(statusCmd, closeCmd, runsCmd)
}

// targetMonth returns the month argument or the last ended fiscal month.
func targetMonth(ctx context.Context, e *budget.ClosingEngine, args []string) (budget.FiscalMonth, error) {
	m, given, err := monthArg(args)
	if err != nil || given {
		return m, err
	}
	return e.LastEndedMonth(ctx)
}

func runStatus(_ *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()
	ctx := context.Background()

	m, err := targetMonth(ctx, a.Closing, args)
	if err != nil {
		return err
	}
	st, err := a.Closing.Status(ctx, m)
	if err != nil {
		return err
	}
	if flagJSON {
		return printJSON(st)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Month\t%s\n", st.Month)
	fmt.Fprintf(w, "Period\t%s .. %s\n", st.Period.Start, st.Period.End)
	fmt.Fprintf(w, "Closed\t%s\n", yesNo(st.IsClosed))
	fmt.Fprintf(w, "Close needed\t%s\n", yesNo(st.IsNeeded))
	fmt.Fprintf(w, "Overdue\t%s (%d days past end)\n", yesNo(st.IsOverdue), st.DaysPastEnd)
	fmt.Fprintf(w, "Open subcategories\t%s\n", idList(st.OpenSubcategories))
	return w.Flush()
}

func runClose(_ *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()
	ctx := context.Background()

	m, err := targetMonth(ctx, a.Closing, args)
	if err != nil {
		return err
	}
	if closeIfNeeded {
		st, err := a.Closing.Status(ctx, m)
		if err != nil {
			return err
		}
		if !st.IsNeeded {
			if !flagJSON {
				fmt.Printf("%s: nothing to close\n", m)
			}
			return nil
		}
	}

	res, err := a.Closing.Run(ctx, m)
	if flagJSON {
		if perr := printJSON(res); perr != nil {
			return perr
		}
		return err
	}

	printCloseResult(res)
	if err != nil && budget.IsRetryable(err) {
		fmt.Fprintln(os.Stderr, "Nothing was written; the close can be retried.")
	}
	return err
}

func printCloseResult(res *budget.CloseResult) {
	if res == nil {
		return
	}
	fmt.Printf("Close %s  %s .. %s  run %s\n", res.Month, res.Period.Start, res.Period.End, res.RunID)
	for _, s := range res.Steps {
		mark := "ok"
		if !s.Success {
			mark = "FAILED: " + s.Error
		}
		fmt.Printf("  %-22s %s\n", s.Name, mark)
	}
	fmt.Printf("Outcome: %s\n", res.Outcome)
	if res.Plan == nil {
		return
	}

	fmt.Printf("Surplus: %s\n", money(res.Surplus))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "  RANK\tGOAL\tREQUIRED/MONTH\tAMOUNT")
	for _, al := range res.Plan.Allocations {
		fmt.Fprintf(w, "  %d\t%s\t%s\t%s\n", al.Rank, al.GoalName, money(al.RequiredMonthly), money(al.Amount))
	}
	if fb := res.Plan.Fallback; fb != nil {
		fmt.Fprintf(w, "  -\taccount %d (remainder)\t-\t%s\n", fb.AccountID, money(fb.Amount))
	}
	w.Flush()
	if res.Plan.Undistributed.IsPositive() {
		fmt.Printf("Undistributed (no savings account): %s\n", money(res.Plan.Undistributed))
	}
}

func runRuns(_ *cobra.Command, _ []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	runs, err := a.Store.ListCloseRuns(context.Background(), runsLimit)
	if err != nil {
		return err
	}
	if flagJSON {
		return printJSON(runs)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STARTED\tMONTH\tOUTCOME\tCLOSED\tSURPLUS\tALLOCATED\tERROR")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%04d-%02d\t%s\t%d\t%s\t%s\t%s\n",
			r.StartedAt.Format("2006-01-02 15:04"), r.Year, int(r.Month), r.Outcome,
			r.NewlyClosed, money(r.Surplus), money(r.Allocated), r.Error)
	}
	return w.Flush()
}
