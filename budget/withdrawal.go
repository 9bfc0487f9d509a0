package budget

import (
	"context"

	"github.com/shopspring/decimal"
)

// WithdrawalService takes money back out of a savings goal.
type WithdrawalService struct {
	store TxStore
}

func NewWithdrawalService(store TxStore) *WithdrawalService {
	return &WithdrawalService{store: store}
}

// Withdrawal is the result of a successful withdrawal.
type Withdrawal struct {
	GoalID        GoalID          `json:"goal_id"`
	AccountID     AccountID       `json:"account_id"`
	Amount        decimal.Decimal `json:"amount"`
	CurrentAmount decimal.Decimal `json:"current_amount"`
}

// Withdraw decrements the goal and its account by amount in one transaction.
func (s *WithdrawalService) Withdraw(ctx context.Context, goalID GoalID, amount decimal.Decimal) (*Withdrawal, error) {
	if goalID <= 0 {
		return nil, &ValidationError{Field: "goal_id", Message: "must be positive"}
	}
	amount = RoundMoney(amount)
	if !amount.IsPositive() {
		return nil, &ValidationError{Field: "amount", Message: "must be greater than zero"}
	}

	var out Withdrawal
	err := s.store.WithTx(ctx, func(tx Tx) error {
		g, err := tx.Goal(ctx, goalID)
		if err != nil {
			return err
		}
		if amount.GreaterThan(g.CurrentAmount) {
			return &InsufficientFundsError{
				GoalID:    goalID,
				Available: g.CurrentAmount.StringFixed(MoneyPlaces),
				Requested: amount.StringFixed(MoneyPlaces),
			}
		}
		if err := tx.ApplyGoalDelta(ctx, goalID, amount.Neg()); err != nil {
			return err
		}
		if err := tx.ApplyAccountDelta(ctx, g.AccountID, amount.Neg()); err != nil {
			return err
		}
		out = Withdrawal{
			GoalID:        goalID,
			AccountID:     g.AccountID,
			Amount:        amount,
			CurrentAmount: g.CurrentAmount.Sub(amount),
		}
		return nil
	})
	if err != nil {
		if IsClientError(err) || IsNotFound(err) {
			return nil, err
		}
		return nil, &TransactionFailure{Op: "withdraw", Err: err}
	}
	return &out, nil
}
