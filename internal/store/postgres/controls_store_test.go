package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/tradecrawl/screenerd/internal/screener"
)

func strPtr(s string) *string { return &s }
func intPtr(n int) *int       { return &n }

func TestFetchEnabledReadsRows(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewControlsStoreWithPool(mock, "controls")
	require.NoError(t, err)

	columns := []string{
		"strategy", "url", "description", "holding_period",
		"tradetype", "instrument_type", "max_positions",
	}
	rows := pgxmock.NewRows(columns).
		AddRow(
			strPtr("BTST_STBT"),
			strPtr("https://in.tradingview.com/screener/0DOKyjG6/"),
			strPtr("Buy today sell tomorrow"),
			strPtr("BTST"),
			strPtr("LONG"),
			strPtr("EQ"),
			intPtr(5),
		).
		AddRow(
			strPtr("Swing"),
			strPtr("https://in.tradingview.com/screener/mToYMbsV/"),
			nil, nil, nil, nil, nil,
		)
	mock.ExpectQuery("SELECT strategy").WillReturnRows(rows)

	got, err := store.FetchEnabled(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)

	require.Equal(t, screener.ControlRow{
		Strategy:       "BTST_STBT",
		URL:            "https://in.tradingview.com/screener/0DOKyjG6/",
		Description:    "Buy today sell tomorrow",
		HoldingPeriod:  "BTST",
		TradeType:      "LONG",
		InstrumentType: "EQ",
		MaxPositions:   intPtr(5),
	}, got[0])

	require.Equal(t, "Swing", got[1].Strategy)
	require.Empty(t, got[1].Description)
	require.Empty(t, got[1].HoldingPeriod)
	require.Nil(t, got[1].MaxPositions)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFetchEnabledQueryError(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewControlsStoreWithPool(mock, "controls")
	require.NoError(t, err)

	mock.ExpectQuery("SELECT strategy").WillReturnError(errors.New("connection refused"))

	_, err = store.FetchEnabled(context.Background())
	require.Error(t, err)
	require.ErrorIs(t, err, screener.ErrStoreUnavailable)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNewControlsStoreWithPoolValidation(t *testing.T) {
	t.Parallel()

	_, err := NewControlsStoreWithPool(nil, "controls")
	require.Error(t, err)

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	_, err = NewControlsStoreWithPool(mock, "controls; DROP TABLE controls")
	require.Error(t, err)

	store, err := NewControlsStoreWithPool(mock, "")
	require.NoError(t, err)
	require.Equal(t, "controls", store.table)
	require.Equal(t, defaultQueryTimeout, store.queryTimeout)
}

func TestNewControlsStoreRequiresDSN(t *testing.T) {
	t.Parallel()

	_, err := NewControlsStore(context.Background(), ControlsStoreConfig{})
	require.Error(t, err)
}
