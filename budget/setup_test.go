package budget_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/budget-engine/budget"
	"github.com/warp/budget-engine/budget/store"
)

func TestSetup_IsImmutable(t *testing.T) {
	ctx := context.Background()
	mem := store.NewTxMemory()
	svc := budget.NewSetupService(mem, nil)

	require.NoError(t, svc.Setup(ctx, budget.FiscalSettings{FiscalDayStart: 25, Jurisdiction: "DE"}))

	err := svc.Setup(ctx, budget.FiscalSettings{FiscalDayStart: 1, Jurisdiction: "DE"})
	assert.ErrorIs(t, err, budget.ErrSettingsImmutable)

	err = budget.NewSetupService(store.NewTxMemory(), nil).Setup(ctx, budget.FiscalSettings{FiscalDayStart: 29, Jurisdiction: "DE"})
	assert.True(t, budget.IsClientError(err))
}
