package dashboard

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadInsightSetFetchesAllKinds(t *testing.T) {
	src := newFakeSource()
	set, err := LoadInsightSet(context.Background(), src, " 101 ")
	require.NoError(t, err)

	assert.Equal(t, "101", set.SKU)
	assert.Equal(t, "Product 101", set.ProfitMargin.Title)
	assert.Equal(t, float64(84), set.Breakeven.BreakevenUnits)
	assert.Equal(t, "Customers like it.", set.CommentAnalysis.SummaryEN)
	assert.Equal(t, len(InsightKinds), src.calls["101"])
}

func TestLoadInsightSetIsAllOrNothing(t *testing.T) {
	src := newFakeSource()
	boom := errors.New("Not found.")
	src.fail[InsightRestockTime] = boom

	set, err := LoadInsightSet(context.Background(), src, "101")
	require.ErrorIs(t, err, boom)
	var insightErr *InsightError
	require.ErrorAs(t, err, &insightErr)
	assert.Equal(t, InsightRestockTime, insightErr.Kind)
	assert.Equal(t, InsightSet{}, set)
}

func TestLoadInsightSetHonoursCancellation(t *testing.T) {
	src := newFakeSource()
	src.gate("101")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := LoadInsightSet(ctx, src, "101")
	require.ErrorIs(t, err, context.Canceled)
}

func TestLoadInsightSetValidatesInput(t *testing.T) {
	_, err := LoadInsightSet(context.Background(), newFakeSource(), "")
	require.ErrorIs(t, err, errMissingSKU)
	_, err = LoadInsightSet(context.Background(), nil, "1")
	require.Error(t, err)
}
