package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quotevault/histprice-service/internal/domain"
	"github.com/quotevault/histprice-service/internal/services"
)

func TestTrackingService_Track_NewSymbol(t *testing.T) {
	repo := newMockSymbolRepo()
	svc := services.NewTrackingService(repo, newTestLogger())

	symbol, err := svc.Track(context.Background(), "aapl")
	require.NoError(t, err)

	assert.Equal(t, "AAPL", symbol.Name)
	assert.True(t, symbol.Active)
	assert.Equal(t, domain.AttemptNeverRun, symbol.LastAttemptStatus)
	assert.NotZero(t, symbol.ID)
}

func TestTrackingService_Track_AlreadyActive(t *testing.T) {
	repo := newMockSymbolRepo()
	svc := services.NewTrackingService(repo, newTestLogger())

	first, err := svc.Track(context.Background(), "MSFT")
	require.NoError(t, err)

	second, err := svc.Track(context.Background(), "MSFT")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)

	count, err := repo.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestTrackingService_Track_ReactivatesInactive(t *testing.T) {
	repo := newMockSymbolRepo()
	svc := services.NewTrackingService(repo, newTestLogger())

	symbol, err := svc.Track(context.Background(), "NVDA")
	require.NoError(t, err)

	_, err = svc.Deactivate(context.Background(), "NVDA")
	require.NoError(t, err)

	reactivated, err := svc.Track(context.Background(), "NVDA")
	require.NoError(t, err)

	assert.Equal(t, symbol.ID, reactivated.ID)
	assert.True(t, reactivated.Active)
}

func TestTrackingService_Track_InvalidName(t *testing.T) {
	repo := newMockSymbolRepo()
	svc := services.NewTrackingService(repo, newTestLogger())

	tests := []string{"", "toolongsymbol", "AAPL!", ".AAPL", "AAPL."}
	for _, name := range tests {
		_, err := svc.Track(context.Background(), name)
		assert.ErrorIs(t, err, domain.ErrInvalidSymbol, "name %q", name)
	}
}

func TestTrackingService_Track_RepositoryError(t *testing.T) {
	repo := newMockSymbolRepo()
	repo.getErr = errors.New("connection reset")
	svc := services.NewTrackingService(repo, newTestLogger())

	_, err := svc.Track(context.Background(), "AAPL")
	assert.ErrorIs(t, err, domain.ErrInternal)
}

func TestTrackingService_Deactivate(t *testing.T) {
	repo := newMockSymbolRepo()
	svc := services.NewTrackingService(repo, newTestLogger())

	_, err := svc.Track(context.Background(), "TSLA")
	require.NoError(t, err)

	symbol, err := svc.Deactivate(context.Background(), "tsla")
	require.NoError(t, err)
	assert.False(t, symbol.Active)

	active, err := repo.ListActive(context.Background())
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestTrackingService_Deactivate_NotFound(t *testing.T) {
	repo := newMockSymbolRepo()
	svc := services.NewTrackingService(repo, newTestLogger())

	_, err := svc.Deactivate(context.Background(), "GHOST")
	assert.ErrorIs(t, err, domain.ErrSymbolNotFound)
}

func TestTrackingService_List(t *testing.T) {
	repo := newMockSymbolRepo()
	svc := services.NewTrackingService(repo, newTestLogger())

	for _, name := range []string{"AAPL", "MSFT", "BRK.B"} {
		_, err := svc.Track(context.Background(), name)
		require.NoError(t, err)
	}

	symbols, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, symbols, 3)
}

func TestTrackingService_Get_Normalizes(t *testing.T) {
	repo := newMockSymbolRepo()
	svc := services.NewTrackingService(repo, newTestLogger())

	_, err := svc.Track(context.Background(), "BRK.B")
	require.NoError(t, err)

	symbol, err := svc.Get(context.Background(), "  brk.b ")
	require.NoError(t, err)
	assert.Equal(t, "BRK.B", symbol.Name)
}
