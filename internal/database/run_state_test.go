package database

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trogers1052/quote-refresh-service/internal/models"
)

func TestLoadRunState_ReturnsNilWhenAbsent(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	db := &DB{conn: sqlDB}

	mock.ExpectQuery("SELECT .* FROM scheduler_state").
		WithArgs(models.RunStateID).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	state, err := db.LoadRunState(context.Background(), models.RunStateID)
	require.NoError(t, err)
	assert.Nil(t, state)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveRunState_Upserts(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	db := &DB{conn: sqlDB}

	state := &models.RunState{
		ID:                  models.RunStateID,
		LastRunTime:         1700000000,
		APILimitHit:         true,
		APILimitResetTime:   1700006400,
		PreviousTickerCount: 3,
	}

	mock.ExpectExec("INSERT INTO scheduler_state .* ON CONFLICT \\(id\\) DO UPDATE").
		WithArgs(state.ID, state.LastRunTime, state.APILimitHit, state.APILimitResetTime, state.PreviousTickerCount).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, db.SaveRunState(context.Background(), state))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRunStateRepository(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	testDB := SetupTestDB(t)
	defer testDB.Cleanup(t)
	ctx := context.Background()

	t.Run("SaveRunState then LoadRunState round trips", func(t *testing.T) {
		testDB.TruncateAll(t)

		state := &models.RunState{ID: models.RunStateID, LastRunTime: 100, PreviousTickerCount: 2}
		require.NoError(t, testDB.SaveRunState(ctx, state))

		state.LastRunTime = 200
		state.APILimitHit = true
		state.APILimitResetTime = 86400
		require.NoError(t, testDB.SaveRunState(ctx, state))

		loaded, err := testDB.LoadRunState(ctx, models.RunStateID)
		require.NoError(t, err)
		require.NotNil(t, loaded)
		assert.Equal(t, *state, *loaded)
	})
}
