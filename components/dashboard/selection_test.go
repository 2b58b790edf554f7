package dashboard

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectorStaleTicketCannotCommit(t *testing.T) {
	sel := NewSelector()
	firstCtx, first, releaseFirst := sel.Begin(context.Background(), "v", "101")
	defer releaseFirst()
	_, second, releaseSecond := sel.Begin(context.Background(), "v", "202")
	defer releaseSecond()

	assert.ErrorIs(t, firstCtx.Err(), context.Canceled, "older load should be cancelled")
	assert.False(t, sel.Current(first))
	assert.True(t, sel.Current(second))

	_, err := sel.Commit(second, &InsightSet{SKU: "202"}, nil)
	require.NoError(t, err)
	_, err = sel.Commit(first, &InsightSet{SKU: "101"}, nil)
	require.ErrorIs(t, err, ErrSuperseded)

	snap := sel.Snapshot("v")
	assert.Equal(t, StatusReady, snap.Status)
	assert.Equal(t, "202", snap.Set.SKU)
}

func TestSelectorLoadingAndErrorStates(t *testing.T) {
	sel := NewSelector()
	assert.Equal(t, StatusIdle, sel.Snapshot("v").Status)

	_, ticket, release := sel.Begin(context.Background(), "v", "101")
	defer release()
	assert.Equal(t, Snapshot{Status: StatusLoading, SKU: "101", UpdatedAt: sel.Snapshot("v").UpdatedAt}, sel.Snapshot("v"))

	snap, err := sel.Commit(ticket, nil, &InsightError{Kind: InsightBreakeven, Err: errors.New("Service unavailable")})
	require.NoError(t, err)
	assert.Equal(t, StatusError, snap.Status)
	assert.Equal(t, "Service unavailable", snap.Error)
	assert.Nil(t, snap.Set)
}

func TestSelectorForgetInvalidatesTickets(t *testing.T) {
	sel := NewSelector()
	loadCtx, ticket, release := sel.Begin(context.Background(), "v", "101")
	defer release()
	sel.Forget("v")

	assert.ErrorIs(t, loadCtx.Err(), context.Canceled)
	_, err := sel.Commit(ticket, &InsightSet{}, nil)
	assert.ErrorIs(t, err, ErrSuperseded)

	_, fresh, releaseFresh := sel.Begin(context.Background(), "v", "101")
	defer releaseFresh()
	assert.NotEqual(t, ticket, fresh)
	assert.False(t, sel.Current(ticket))
}
