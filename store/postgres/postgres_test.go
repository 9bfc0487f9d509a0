package postgres_test

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/budget-engine/budget"
	"github.com/warp/budget-engine/store/postgres"
)

func TestDialect(t *testing.T) {
	assert.True(t, postgres.Dialect.Numbered)
	require.NotNil(t, postgres.Dialect.TxOptions)
	assert.Equal(t, sql.LevelSerializable, postgres.Dialect.TxOptions.Isolation)
	assert.Contains(t, postgres.Dialect.LockPeriodSQL, "pg_advisory_xact_lock")
	assert.False(t, postgres.Dialect.Serialize)
}

func TestNew_RequiresURL(t *testing.T) {
	_, err := postgres.New("")
	assert.Error(t, err)
}

// TestLockPeriod_QueuesSameMonth needs a disposable database in
// POSTGRES_TEST_URL.
func TestLockPeriod_QueuesSameMonth(t *testing.T) {
	url := os.Getenv("POSTGRES_TEST_URL")
	if url == "" {
		t.Skip("POSTGRES_TEST_URL not set")
	}
	s, err := postgres.New(url)
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	july := budget.FiscalMonth{Year: 2024, Month: time.July}
	locked, release, done := make(chan struct{}), make(chan struct{}), make(chan error, 2)

	// GIVEN: one transaction holds July's lock
	go func() {
		done <- s.WithTx(ctx, func(tx budget.Tx) error {
			if err := tx.LockPeriod(ctx, july); err != nil {
				return err
			}
			close(locked)
			<-release
			return nil
		})
	}()
	<-locked

	// WHEN: a second transaction asks for the same month
	second := make(chan struct{})
	go func() {
		done <- s.WithTx(ctx, func(tx budget.Tx) error {
			if err := tx.LockPeriod(ctx, july); err != nil {
				return err
			}
			close(second)
			return nil
		})
	}()

	// THEN: it waits until the first commits
	select {
	case <-second:
		t.Fatal("second transaction took the lock while it was held")
	case <-time.After(200 * time.Millisecond):
	}
	close(release)
	select {
	case <-second:
	case <-time.After(5 * time.Second):
		t.Fatal("second transaction never got the lock")
	}
	require.NoError(t, <-done)
	require.NoError(t, <-done)
}
