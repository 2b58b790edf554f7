package dashboard

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryHoldsInsightCardsInOrder(t *testing.T) {
	reg := NewRegistry(WithoutCharts())
	defs := reg.Definitions()
	require.Len(t, defs, len(InsightKinds))
	for i, kind := range InsightKinds {
		assert.Equal(t, kind.WidgetCode(), defs[i].Code)
		_, ok := reg.Provider(defs[i].Code)
		assert.True(t, ok, "missing provider for %s", defs[i].Code)
	}
}

func TestRegistryRejectsProviderWithoutDefinition(t *testing.T) {
	reg := NewRegistry(WithoutCharts())
	noop := ProviderFunc(func(context.Context, WidgetContext) (WidgetData, error) { return WidgetData{}, nil })
	require.Error(t, reg.RegisterProvider("seller.widget.unknown", noop))
	require.Error(t, reg.RegisterProvider(InsightBreakeven.WidgetCode(), nil))
	require.Error(t, reg.RegisterDefinition(WidgetDefinition{}))
}

func TestRegistryAppendsExtraCards(t *testing.T) {
	code := "seller.widget.custom_note"
	reg := NewRegistry(WithoutCharts(), WithExtraCards(func(reg *Registry) error {
		if err := reg.RegisterDefinition(WidgetDefinition{Code: code, Name: "Note"}); err != nil {
			return err
		}
		return reg.RegisterProvider(code, ProviderFunc(func(context.Context, WidgetContext) (WidgetData, error) {
			return WidgetData{"title": "Note"}, nil
		}))
	}))

	defs := reg.Definitions()
	require.Len(t, defs, len(InsightKinds)+1)
	assert.Equal(t, code, defs[len(defs)-1].Code)
	_, ok := reg.Provider(code)
	assert.True(t, ok)

	assert.Len(t, NewRegistry(WithoutCharts()).Definitions(), len(InsightKinds))
}

func TestRegistryReplacesDefinitionInPlace(t *testing.T) {
	reg := NewRegistry(WithoutCharts())
	code := InsightProfitMargin.WidgetCode()
	require.NoError(t, reg.RegisterDefinition(WidgetDefinition{Code: code, Kind: InsightProfitMargin, Name: "Margin"}))

	defs := reg.Definitions()
	assert.Equal(t, code, defs[0].Code)
	assert.Equal(t, "Margin", defs[0].Name)
	_, ok := reg.Provider(code)
	assert.True(t, ok, "replacing a definition keeps its provider")
}
