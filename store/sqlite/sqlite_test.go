package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/payroll-engine/core"
	"github.com/warp/payroll-engine/payroll"
	"github.com/warp/payroll-engine/store/sqlite"
	"github.com/warp/payroll-engine/store/storetest"
)

func newStore(t *testing.T) *sqlite.Store {
	s, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) storetest.Store { return newStore(t) })
}

func TestSQLiteStore_PersistsAcrossReopen(t *testing.T) {
	// GIVEN: A file-backed store with a slip
	path := filepath.Join(t.TempDir(), "payroll.db")
	ctx := context.Background()

	s, err := sqlite.New(path)
	require.NoError(t, err)
	require.NoError(t, s.PutStructure(ctx, payroll.SalaryStructure{
		EmployeeID: "EMP001",
		Earnings:   map[string]core.Money{"basic": core.NewMoney(30000)},
		UpdatedAt:  time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC),
	}))
	require.NoError(t, s.Close())

	// WHEN: The database is reopened and migrated again
	s, err = sqlite.New(path)
	require.NoError(t, err)
	defer s.Close()

	// THEN: The data is still there
	got, err := s.GetStructure(ctx, "EMP001")
	require.NoError(t, err)
	assert.True(t, got.Earnings["basic"].Equal(core.NewMoney(30000)))
	assert.Equal(t, 2025, got.UpdatedAt.Year())
}
