package budget_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/budget-engine/budget"
)

func TestWithdraw(t *testing.T) {
	ctx := context.Background()
	h := newHousehold(t, budget.ClosingOptions{})
	svc := budget.NewWithdrawalService(h.store)

	t.Run("decrements goal and account", func(t *testing.T) {
		w, err := svc.Withdraw(ctx, h.goal90, dec("40"))
		require.NoError(t, err)
		assert.Equal(t, "60.00", w.CurrentAmount.StringFixed(2))
		assert.Equal(t, "60.00", h.goalAmount(t, h.goal90))
		assert.Equal(t, "960.00", h.balance(t))
	})

	t.Run("rejects more than the goal holds", func(t *testing.T) {
		_, err := svc.Withdraw(ctx, h.goal90, dec("61"))
		assert.ErrorIs(t, err, budget.ErrInsufficientFunds)
		assert.Equal(t, "60.00", h.goalAmount(t, h.goal90))
	})

	t.Run("rejects non-positive amounts", func(t *testing.T) {
		_, err := svc.Withdraw(ctx, h.goal90, dec("0"))
		assert.True(t, budget.IsClientError(err))
	})

	t.Run("unknown goal", func(t *testing.T) {
		_, err := svc.Withdraw(ctx, 9999, dec("1"))
		assert.True(t, budget.IsNotFound(err))
	})
}
