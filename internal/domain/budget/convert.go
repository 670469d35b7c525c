package budget

import (
	"math"
	"strconv"
	"strings"

	"github.com/renobook/renobook/internal/domain/sheet"
)

// LegacyMergeConfig tunes the folding of the historical two-stage-budget
// layout into the single-budget model. The defaults reflect observed
// behavior of old sheets; they are tuning knobs, not invariants.
type LegacyMergeConfig struct {
	// Epsilon bounds the "old actual spend equals the budget" comparison
	// that marks placeholder spend figures.
	Epsilon float64
}

// DefaultLegacyMerge is the merge configuration used by the import path.
var DefaultLegacyMerge = LegacyMergeConfig{Epsilon: 0.01}

// FromSheet maps a parsed spreadsheet into import-ready items, folding
// legacy-layout rows into the current field set.
//
// For legacy sheets the revised (2nd) budget wins over the first-stage
// figure when present, and the old actual-spend column becomes the current
// investment — unless it equals the resolved budget within Epsilon, which
// old sheets used as placeholder data; carrying that forward would report a
// spurious zero variance. The merge is best-effort and knowingly lossy:
// a genuine spend that coincides with the budget is dropped too.
func FromSheet(result *sheet.ParseResult, cfg LegacyMergeConfig) []Item {
	items := make([]Item, 0, len(result.Items))
	for _, row := range result.Items {
		item := Item{
			CategoryName:   row.Category,
			SeqNum:         row.SeqNum,
			ProjectName:    row.ProjectName,
			Unit:           row.Unit,
			BudgetQuantity: row.Quantity,
			Remark:         row.Remark,
		}

		if result.Layout == sheet.LayoutLegacy {
			first := parseNumber(row.Budget)
			second, secondOK := parseNumberOK(row.Invested)
			budget := first
			if secondOK {
				budget = second
			}
			spend := parseNumber(row.Final)
			if math.Abs(spend-budget) <= cfg.Epsilon {
				spend = 0
			}
			item.BudgetCost = budget
			item.CurrentInvestment = spend
			item.FinalCost = 0
		} else {
			item.BudgetCost = parseNumber(row.Budget)
			item.CurrentInvestment = parseNumber(row.Invested)
			item.FinalCost = parseNumber(row.Final)
		}

		item.ComputeDiff()
		items = append(items, item)
	}
	return items
}

// parseNumber reads a cost cell leniently; absent or unparseable values
// default to 0.
func parseNumber(s string) float64 {
	v, _ := parseNumberOK(s)
	return v
}

func parseNumberOK(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 {
		return 0, false
	}
	return v, true
}
