package postgres_test

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/warp/payroll-engine/store/postgres"
	"github.com/warp/payroll-engine/store/storetest"
)

// Runs only when PAYROLL_TEST_DATABASE_URL points at a disposable database.
func TestPostgresStore(t *testing.T) {
	url := os.Getenv("PAYROLL_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("PAYROLL_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	s, err := postgres.Connect(ctx, url)
	require.NoError(t, err)
	t.Cleanup(s.Close)

	storetest.Run(t, func(t *testing.T) storetest.Store {
		require.NoError(t, s.Truncate(ctx))
		return s
	})
}
