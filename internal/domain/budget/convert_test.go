package budget

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/renobook/renobook/internal/domain/sheet"
)

func legacyResult(items ...sheet.Item) *sheet.ParseResult {
	return &sheet.ParseResult{Layout: sheet.LayoutLegacy, Items: items}
}

func TestFromSheet_CurrentLayoutPassesThrough(t *testing.T) {
	result := &sheet.ParseResult{
		Layout: sheet.LayoutCurrent,
		Items: []sheet.Item{{
			Category:    "家电",
			SeqNum:      2,
			ProjectName: "冰箱",
			Unit:        "台",
			Quantity:    "1",
			Budget:      "8000",
			Invested:    "3000",
			Final:       "7500",
		}},
	}

	items := FromSheet(result, DefaultLegacyMerge)
	require.Len(t, items, 1)

	item := items[0]
	assert.Equal(t, "冰箱", item.ProjectName)
	assert.Equal(t, 8000.0, item.BudgetCost)
	assert.Equal(t, 3000.0, item.CurrentInvestment)
	assert.Equal(t, 7500.0, item.FinalCost)
	assert.InDelta(t, 500.0, item.Diff, 0.01)
}

func TestFromSheet_LegacySecondBudgetWins(t *testing.T) {
	items := FromSheet(legacyResult(sheet.Item{
		ProjectName: "水电改造",
		Budget:      "10000", // 1st
		Invested:    "12000", // 2nd
		Final:       "9000",  // old actual spend
	}), DefaultLegacyMerge)
	require.Len(t, items, 1)

	item := items[0]
	assert.Equal(t, 12000.0, item.BudgetCost)
	assert.Equal(t, 9000.0, item.CurrentInvestment, "distinct spend carries over as current investment")
	assert.Zero(t, item.FinalCost, "legacy actuals never populate final cost")
	assert.InDelta(t, 12000.0, item.Diff, 0.01)
}

func TestFromSheet_LegacyFallsBackToFirstBudget(t *testing.T) {
	items := FromSheet(legacyResult(sheet.Item{
		ProjectName: "吊顶",
		Budget:      "6000",
		Invested:    "", // no revised budget
		Final:       "",
	}), DefaultLegacyMerge)
	require.Len(t, items, 1)
	assert.Equal(t, 6000.0, items[0].BudgetCost)
}

func TestFromSheet_LegacyPlaceholderSpendDropsToZero(t *testing.T) {
	tests := []struct {
		name  string
		final string
		want  float64
	}{
		{"exact match", "12000", 0},
		{"within epsilon", "12000.009", 0},
		{"outside epsilon", "12000.02", 12000.02},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items := FromSheet(legacyResult(sheet.Item{
				ProjectName: "橱柜",
				Budget:      "10000",
				Invested:    "12000",
				Final:       tt.final,
			}), DefaultLegacyMerge)
			require.Len(t, items, 1)
			assert.InDelta(t, tt.want, items[0].CurrentInvestment, 0.001)
		})
	}
}

func TestFromSheet_EpsilonIsConfigurable(t *testing.T) {
	items := FromSheet(legacyResult(sheet.Item{
		ProjectName: "橱柜",
		Budget:      "10000",
		Invested:    "12000",
		Final:       "11999",
	}), LegacyMergeConfig{Epsilon: 5})
	require.Len(t, items, 1)
	assert.Zero(t, items[0].CurrentInvestment)
}

func TestFromSheet_UnparseableNumbersDefaultToZero(t *testing.T) {
	items := FromSheet(&sheet.ParseResult{
		Layout: sheet.LayoutCurrent,
		Items: []sheet.Item{{
			ProjectName: "未定",
			Budget:      "待定",
			Invested:    "-5",
			Final:       "",
		}},
	}, DefaultLegacyMerge)
	require.Len(t, items, 1)

	item := items[0]
	assert.Zero(t, item.BudgetCost)
	assert.Zero(t, item.CurrentInvestment)
	assert.Zero(t, item.Diff)
}

func TestComputeDiff(t *testing.T) {
	item := Item{BudgetCost: 100, FinalCost: 130}
	item.ComputeDiff()
	assert.Equal(t, -30.0, item.Diff)
}
