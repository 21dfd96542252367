package database

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trogers1052/quote-refresh-service/internal/models"
)

func testQuote(symbol, price string) models.QuoteSnapshot {
	return models.QuoteSnapshot{
		Symbol:          symbol,
		Name:            symbol + " Inc.",
		Price:           decimal.RequireFromString(price),
		Exchange:        "NASDAQ",
		Volume:          1000,
		Timestamp:       1700000000,
		StoredTimestamp: 1700000100,
	}
}

func TestBulkReplaceQuotes_Success(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	db := &DB{conn: sqlDB}

	quotes := []models.QuoteSnapshot{testQuote("AAPL", "189.5"), testQuote("MSFT", "410.1")}

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM latest_stock_quotes").WillReturnResult(sqlmock.NewResult(0, 2))
	prep := mock.ExpectPrepare("INSERT INTO latest_stock_quotes")
	prep.ExpectExec().WillReturnResult(sqlmock.NewResult(0, 1))
	prep.ExpectExec().WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err = db.BulkReplaceQuotes(context.Background(), quotes)
	require.NoError(t, err)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBulkReplaceQuotes_EmptyIsNoop(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	db := &DB{conn: sqlDB}

	require.NoError(t, db.BulkReplaceQuotes(context.Background(), nil))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBulkReplaceQuotes_ReturnsErrorIfBeginFails(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	db := &DB{conn: sqlDB}

	mock.ExpectBegin().WillReturnError(errors.New("begin failed"))

	err = db.BulkReplaceQuotes(context.Background(), []models.QuoteSnapshot{testQuote("AAPL", "1")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to begin transaction")

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBulkReplaceQuotes_RollsBackWhenInsertFails(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	db := &DB{conn: sqlDB}

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM latest_stock_quotes").WillReturnResult(sqlmock.NewResult(0, 1))
	prep := mock.ExpectPrepare("INSERT INTO latest_stock_quotes")
	prep.ExpectExec().WillReturnError(errors.New("insert failed"))
	mock.ExpectRollback()

	err = db.BulkReplaceQuotes(context.Background(), []models.QuoteSnapshot{testQuote("AAPL", "1")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to insert quote for AAPL")

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAddBulkQuotes_IgnoresExistingSymbols(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	db := &DB{conn: sqlDB}

	mock.ExpectBegin()
	prep := mock.ExpectPrepare(`INSERT INTO latest_stock_quotes .* ON CONFLICT \(symbol\) DO NOTHING`)
	prep.ExpectExec().WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err = db.AddBulkQuotes(context.Background(), []models.QuoteSnapshot{testQuote("AAPL", "1")})
	require.NoError(t, err)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetQuote_ReturnsNilWhenMissing(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	db := &DB{conn: sqlDB}

	mock.ExpectQuery("SELECT .* FROM latest_stock_quotes WHERE symbol").
		WithArgs("NOPE").
		WillReturnRows(sqlmock.NewRows([]string{"symbol"}))

	q, err := db.GetQuote(context.Background(), "NOPE")
	require.NoError(t, err)
	assert.Nil(t, q)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCountQuotes(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	db := &DB{conn: sqlDB}

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM latest_stock_quotes`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(42))

	count, err := db.CountQuotes(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(42), count)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestQuotesRepository(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	testDB := SetupTestDB(t)
	defer testDB.Cleanup(t)
	ctx := context.Background()

	t.Run("BulkReplaceQuotes replaces only fetched symbols", func(t *testing.T) {
		testDB.TruncateAll(t)

		require.NoError(t, testDB.AddBulkQuotes(ctx, []models.QuoteSnapshot{
			testQuote("AAPL", "100"),
			testQuote("MSFT", "200"),
		}))

		require.NoError(t, testDB.BulkReplaceQuotes(ctx, []models.QuoteSnapshot{testQuote("AAPL", "145.775")}))

		aapl, err := testDB.GetQuote(ctx, "AAPL")
		require.NoError(t, err)
		require.NotNil(t, aapl)
		assert.True(t, decimal.RequireFromString("145.775").Equal(aapl.Price))

		msft, err := testDB.GetQuote(ctx, "MSFT")
		require.NoError(t, err)
		require.NotNil(t, msft)
		assert.True(t, decimal.NewFromInt(200).Equal(msft.Price))

		count, err := testDB.CountQuotes(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(2), count)
	})

	t.Run("AddBulkQuotes keeps existing rows", func(t *testing.T) {
		testDB.TruncateAll(t)

		require.NoError(t, testDB.AddBulkQuotes(ctx, []models.QuoteSnapshot{testQuote("AAPL", "100")}))
		require.NoError(t, testDB.AddBulkQuotes(ctx, []models.QuoteSnapshot{
			testQuote("AAPL", "999"),
			testQuote("NVDA", "500"),
		}))

		aapl, err := testDB.GetQuote(ctx, "AAPL")
		require.NoError(t, err)
		assert.True(t, decimal.NewFromInt(100).Equal(aapl.Price))

		quotes, err := testDB.GetQuotes(ctx, []string{"AAPL", "NVDA", "MISSING"})
		require.NoError(t, err)
		require.Len(t, quotes, 2)
		assert.Equal(t, "AAPL", quotes[0].Symbol)
		assert.Equal(t, "NVDA", quotes[1].Symbol)
	})
}
