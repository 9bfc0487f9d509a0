/*
allocation.go - Surplus distribution across savings goals

PURPOSE:
  Turns a distributable surplus into an immutable AllocationPlan. Nothing
  here mutates a store; closing.go applies the plan afterwards as deltas.

ALGORITHM:
  1. Eligible goals: active with needed = target - current > 0
  2. rank = 0 when the target date has passed, else high=1, medium=2, low=3
  3. monthsRemaining = max(1, calendar month difference today -> target)
  4. requiredMonthly = needed / monthsRemaining, rounded to cents
  5. Order by (rank, monthsRemaining), then target date, then goal ID
  6. Greedy: each goal receives min(remaining, requiredMonthly)
  7. Whatever is left goes to the account with the lowest ID

  Goals without a target date keep their priority rank, count as one month
  remaining and sort after dated goals of the same rank and months.

INVARIANT:
  Σ allocations + fallback deposit + undistributed == surplus
*/
package budget

import (
	"sort"

	"github.com/shopspring/decimal"
)

// GoalAllocation is the amount assigned to one goal in a plan.
type GoalAllocation struct {
	GoalID          GoalID          `json:"goal_id"`
	AccountID       AccountID       `json:"account_id"`
	GoalName        string          `json:"goal_name"`
	Rank            int             `json:"rank"`
	MonthsRemaining int             `json:"months_remaining"`
	RequiredMonthly decimal.Decimal `json:"required_monthly"`
	Amount          decimal.Decimal `json:"amount"`
}

// FallbackDeposit is the remainder deposited directly into an account.
type FallbackDeposit struct {
	AccountID AccountID       `json:"account_id"`
	Amount    decimal.Decimal `json:"amount"`
}

// AllocationPlan is the full, not yet applied, distribution of a surplus.
type AllocationPlan struct {
	Surplus     decimal.Decimal  `json:"surplus"`
	Allocations []GoalAllocation `json:"allocations"`
	Fallback    *FallbackDeposit `json:"fallback,omitempty"`

	// Undistributed is non-zero only when money is left and no account exists.
	Undistributed decimal.Decimal `json:"undistributed"`
}

// Allocated returns the sum of goal allocations.
func (p AllocationPlan) Allocated() decimal.Decimal {
	total := decimal.Zero
	for _, a := range p.Allocations {
		total = total.Add(a.Amount)
	}
	return total
}

type rankedGoal struct {
	goal     SavingsGoal
	rank     int
	months   int
	required decimal.Decimal
}

// RankGoals returns the eligible goals in allocation order.
func RankGoals(accounts []SavingsAccount, today Date) []GoalAllocation {
	ranked := rankGoals(accounts, today)
	out := make([]GoalAllocation, len(ranked))
	for i, r := range ranked {
		out[i] = GoalAllocation{
			GoalID:          r.goal.ID,
			AccountID:       r.goal.AccountID,
			GoalName:        r.goal.Name,
			Rank:            r.rank,
			MonthsRemaining: r.months,
			RequiredMonthly: r.required,
			Amount:          decimal.Zero,
		}
	}
	return out
}

func rankGoals(accounts []SavingsAccount, today Date) []rankedGoal {
	var ranked []rankedGoal
	for _, acc := range accounts {
		for _, g := range acc.Goals {
			if !g.Active {
				continue
			}
			needed := g.Needed()
			if !needed.IsPositive() {
				continue
			}
			if g.AccountID == 0 {
				g.AccountID = acc.ID
			}

			rank := g.Priority.rank()
			months := 1
			if !g.TargetDate.IsZero() {
				if g.TargetDate.Before(today) {
					rank = 0
				}
				if m := MonthsBetween(today, g.TargetDate); m > months {
					months = m
				}
			}
			ranked = append(ranked, rankedGoal{
				goal:     g,
				rank:     rank,
				months:   months,
				required: RoundMoney(needed.Div(decimal.NewFromInt(int64(months)))),
			})
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.rank != b.rank {
			return a.rank < b.rank
		}
		if a.months != b.months {
			return a.months < b.months
		}
		ad, bd := a.goal.TargetDate, b.goal.TargetDate
		switch {
		case ad.IsZero() != bd.IsZero():
			return bd.IsZero()
		case !ad.Equal(bd):
			return ad.Before(bd)
		}
		return a.goal.ID < b.goal.ID
	})
	return ranked
}

// PlanAllocations distributes surplus across the accounts' goals. A
// non-positive surplus yields an empty plan.
func PlanAllocations(surplus decimal.Decimal, accounts []SavingsAccount, today Date) AllocationPlan {
	plan := AllocationPlan{Surplus: surplus, Undistributed: decimal.Zero}
	if !surplus.IsPositive() {
		return plan
	}

	remaining := surplus
	for _, r := range rankGoals(accounts, today) {
		if !remaining.IsPositive() {
			break
		}
		amount := decimal.Min(remaining, r.required)
		if !amount.IsPositive() {
			continue
		}
		plan.Allocations = append(plan.Allocations, GoalAllocation{
			GoalID:          r.goal.ID,
			AccountID:       r.goal.AccountID,
			GoalName:        r.goal.Name,
			Rank:            r.rank,
			MonthsRemaining: r.months,
			RequiredMonthly: r.required,
			Amount:          amount,
		})
		remaining = remaining.Sub(amount)
	}

	if !remaining.IsPositive() {
		return plan
	}
	if fallback, ok := lowestAccount(accounts); ok {
		plan.Fallback = &FallbackDeposit{AccountID: fallback, Amount: remaining}
	} else {
		plan.Undistributed = remaining
	}
	return plan
}

func lowestAccount(accounts []SavingsAccount) (AccountID, bool) {
	if len(accounts) == 0 {
		return 0, false
	}
	lowest := accounts[0].ID
	for _, a := range accounts[1:] {
		if a.ID < lowest {
			lowest = a.ID
		}
	}
	return lowest, true
}
