package sheet

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// BuildItem is one line of a rebuilt sheet.
type BuildItem struct {
	Project  string
	Unit     string
	Quantity string
	Budget   float64
	Invested float64
	Final    float64
	Remark   string
}

// BuildCategory is one category block of a rebuilt sheet, in display order.
type BuildCategory struct {
	Name  string
	Items []BuildItem
}

var columnWidths = []float64{8, 25, 8, 10, 12, 12, 12, 12, 40}

// BuildWorkbook re-derives a complete spreadsheet from store state: a
// grand-total row on top, then one block per category (header, column
// header, data rows renumbered densely from 1, category total). The same
// zero-as-blank rendering rules apply as everywhere else.
func BuildWorkbook(categories []BuildCategory) (*excelize.File, error) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	c := NewCells(f, sheet)

	for i, width := range columnWidths {
		name, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			continue
		}
		if err := f.SetColWidth(sheet, name, name, width); err != nil {
			return nil, fmt.Errorf("failed to set column width: %w", err)
		}
	}

	var grand blockTotals
	for _, cat := range categories {
		for _, item := range cat.Items {
			grand.budget = grand.budget.Add(decimal.NewFromFloat(item.Budget))
			grand.invested = grand.invested.Add(decimal.NewFromFloat(item.Invested))
			grand.final = grand.final.Add(decimal.NewFromFloat(item.Final))
		}
	}

	row := 1
	c.Set(row, ColSeq, GrandTotalMarker)
	grand.write(c, row)
	row += 2 // blank separator

	for ordinal, cat := range categories {
		c.Set(row, ColSeq, OrdinalPrefix(ordinal+1)+cat.Name)
		row++
		writeColumnHeader(c, row)
		row++

		var totals blockTotals
		for seq, item := range cat.Items {
			writeDataRow(c, row, seq+1, ItemFields{
				Project:  item.Project,
				Unit:     item.Unit,
				Quantity: item.Quantity,
				Budget:   item.Budget,
				Invested: item.Invested,
				Final:    item.Final,
				Remark:   item.Remark,
			})
			totals.budget = totals.budget.Add(decimal.NewFromFloat(item.Budget))
			totals.invested = totals.invested.Add(decimal.NewFromFloat(item.Invested))
			totals.final = totals.final.Add(decimal.NewFromFloat(item.Final))
			row++
		}

		c.Set(row, ColSeq, TotalMarker)
		totals.write(c, row)
		row++
	}

	return f, nil
}
