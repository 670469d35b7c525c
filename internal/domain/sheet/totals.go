package sheet

import (
	"github.com/shopspring/decimal"
)

// blockTotals aggregates the three cost columns over a run of data rows.
type blockTotals struct {
	budget   decimal.Decimal
	invested decimal.Decimal
	final    decimal.Decimal
}

func (t *blockTotals) add(c *Cells, row int) {
	t.budget = t.budget.Add(decimal.NewFromFloat(parseAmount(c.Get(row, ColBudget))))
	t.invested = t.invested.Add(decimal.NewFromFloat(parseAmount(c.Get(row, ColInvested))))
	t.final = t.final.Add(decimal.NewFromFloat(parseAmount(c.Get(row, ColFinal))))
}

func (t *blockTotals) diff() decimal.Decimal {
	return t.budget.Sub(t.final)
}

// write puts the aggregates into row through the cell accessor. A sum of
// exactly zero is cleared rather than written as 0; the diff keeps its sign
// and is cleared only when exactly zero, so overspend stays visible.
func (t *blockTotals) write(c *Cells, row int) {
	c.Set(row, ColBudget, zeroAsBlank(t.budget))
	c.Set(row, ColInvested, zeroAsBlank(t.invested))
	c.Set(row, ColFinal, zeroAsBlank(t.final))
	c.Set(row, ColDiff, zeroAsBlank(t.diff()))
}

func zeroAsBlank(d decimal.Decimal) any {
	if d.IsZero() {
		return nil
	}
	return d.InexactFloat64()
}

// RecalculateTotals re-derives every category's total row. For each
// category header the nearest following 合计 row is located, scanning
// forward only until the marker or the next category header; a category
// without a total row is skipped. Between the two, rows whose first column
// parses as a non-negative integer are summed. Idempotent: running it twice
// without data changes writes identical values both times.
func RecalculateTotals(c *Cells) {
	maxRow := c.MaxRow()
	for row := 1; row <= maxRow; row++ {
		if _, ok := StripCategoryPrefix(c.Get(row, ColSeq)); !ok {
			continue
		}

		totalRow := 0
		for i := row + 1; i <= maxRow; i++ {
			c0 := c.Get(i, ColSeq)
			if c0 == TotalMarker {
				totalRow = i
				break
			}
			if _, ok := StripCategoryPrefix(c0); ok {
				break
			}
		}
		if totalRow == 0 {
			continue
		}

		var totals blockTotals
		for i := row + 1; i < totalRow; i++ {
			if _, ok := ParseSeq(c.Get(i, ColSeq)); ok {
				totals.add(c, i)
			}
		}
		totals.write(c, totalRow)
	}
}

// RecalculateGrandTotal performs the same aggregation across every data row
// in the sheet, ignoring category boundaries, and writes the result into
// the first 总计 row. Sheets without one are left untouched.
func RecalculateGrandTotal(c *Cells) {
	maxRow := c.MaxRow()
	grandRow := 0
	var totals blockTotals

	for row := 1; row <= maxRow; row++ {
		c0 := c.Get(row, ColSeq)
		if grandRow == 0 && c0 == GrandTotalMarker {
			grandRow = row
			continue
		}
		if _, ok := ParseSeq(c0); ok {
			totals.add(c, row)
		}
	}

	if grandRow > 0 {
		totals.write(c, grandRow)
	}
}
