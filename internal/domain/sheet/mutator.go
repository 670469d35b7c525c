package sheet

import (
	"fmt"
	"sort"
)

// ItemFields carries the values written into a newly inserted data row.
// The display sequence and the diff column are derived, never supplied.
type ItemFields struct {
	Project  string
	Unit     string
	Quantity string
	Budget   float64
	Invested float64
	Final    float64
	Remark   string
}

// ErrCategoryRowNotFound is returned when an insert targets a category that
// has no header row in the sheet.
var ErrCategoryRowNotFound = fmt.Errorf("category header row not found")

// ErrAllRowsProtected is returned when a delete request named only
// structural rows, so nothing was removed.
var ErrAllRowsProtected = fmt.Errorf("all requested rows are protected")

// InsertItem adds a data row at the end of the named category's block:
// immediately before its total row, or before the next category header when
// the block has no total yet, or after the last numeric data row. The new
// row's sequence is one past the block's current maximum. Totals are
// recalculated for the whole sheet afterwards.
func InsertItem(c *Cells, category string, fields ItemFields) error {
	catRow := findCategoryRow(c, category)
	if catRow == 0 {
		return fmt.Errorf("%w: %s", ErrCategoryRowNotFound, category)
	}

	maxRow := c.MaxRow()
	insertRow := catRow + 1
	for i := catRow + 1; i <= maxRow; i++ {
		c0 := c.Get(i, ColSeq)
		if c0 == TotalMarker {
			insertRow = i
			break
		}
		if _, ok := StripCategoryPrefix(c0); ok {
			insertRow = i
			break
		}
		if _, ok := ParseSeq(c0); ok {
			insertRow = i + 1
		}
	}

	maxSeq := 0
	for i := catRow + 1; i < insertRow; i++ {
		if seq, ok := ParseSeq(c.Get(i, ColSeq)); ok && seq > maxSeq {
			maxSeq = seq
		}
	}

	if err := c.InsertRow(insertRow); err != nil {
		return fmt.Errorf("failed to insert row %d: %w", insertRow, err)
	}
	writeDataRow(c, insertRow, maxSeq+1, fields)

	RecalculateTotals(c)
	RecalculateGrandTotal(c)
	return nil
}

// InsertCategory appends a fresh category block after the last existing
// category's total row (or before the next header when scanning meets one
// first). The new block's ordinal prefix is one past the highest prefix
// already on the sheet; it opens with a header row, a column-header row,
// and an empty total row.
func InsertCategory(c *Cells, name string) error {
	maxRow := c.MaxRow()
	lastCatRow := 0
	lastOrdinal := 0
	for i := 1; i <= maxRow; i++ {
		if n := PrefixOrdinal(c.Get(i, ColSeq)); n > 0 {
			lastCatRow = i
			if n > lastOrdinal {
				lastOrdinal = n
			}
		}
	}

	insertRow := maxRow + 1
	if lastCatRow > 0 {
		for i := lastCatRow + 1; i <= maxRow; i++ {
			c0 := c.Get(i, ColSeq)
			if c0 == TotalMarker {
				insertRow = i + 1
				break
			}
			if _, ok := StripCategoryPrefix(c0); ok {
				insertRow = i
				break
			}
		}
	}

	for offset := 0; offset < 3; offset++ {
		if err := c.InsertRow(insertRow + offset); err != nil {
			return fmt.Errorf("failed to insert row %d: %w", insertRow+offset, err)
		}
	}

	c.Set(insertRow, ColSeq, OrdinalPrefix(lastOrdinal+1)+name)
	writeColumnHeader(c, insertRow+1)
	c.Set(insertRow+2, ColSeq, TotalMarker)
	return nil
}

// DeleteRows removes the requested data rows, 0-based as tagged by the
// parser. Structural rows (category headers, column headers, total rows)
// are recomputed from the sheet's current state and never removed, even
// when named in the request. Deletion proceeds from the highest row index
// down so earlier removals cannot shift later targets. When the whole
// request was protected nothing is removed and ErrAllRowsProtected is
// returned; a mixed request deletes what it can and reports both counts.
// Totals are recalculated unconditionally.
func DeleteRows(c *Cells, rowIndices []int) (deleted, blocked int, err error) {
	protected := make(map[int]bool)
	maxRow := c.MaxRow()
	for i := 1; i <= maxRow; i++ {
		c0 := c.Get(i, ColSeq)
		if c0 == "" {
			continue
		}
		if _, ok := StripCategoryPrefix(c0); ok {
			protected[i-1] = true
			continue
		}
		if c0 == SeqHeaderToken || c0 == TotalMarker || c0 == GrandTotalMarker {
			protected[i-1] = true
		}
	}

	deletable := make([]int, 0, len(rowIndices))
	for _, idx := range rowIndices {
		if protected[idx] {
			blocked++
			continue
		}
		deletable = append(deletable, idx)
	}

	if len(deletable) == 0 {
		return 0, blocked, fmt.Errorf("%w (%d blocked)", ErrAllRowsProtected, blocked)
	}

	sort.Sort(sort.Reverse(sort.IntSlice(deletable)))
	for _, idx := range deletable {
		if err := c.RemoveRow(idx + 1); err != nil {
			return deleted, blocked, fmt.Errorf("failed to remove row %d: %w", idx+1, err)
		}
		deleted++
	}

	RecalculateTotals(c)
	RecalculateGrandTotal(c)
	return deleted, blocked, nil
}

// findCategoryRow locates the header row whose prefix-stripped name equals
// category exactly.
func findCategoryRow(c *Cells, category string) int {
	maxRow := c.MaxRow()
	for i := 1; i <= maxRow; i++ {
		if name, ok := StripCategoryPrefix(c.Get(i, ColSeq)); ok && name == category {
			return i
		}
	}
	return 0
}

// writeDataRow populates one data row. Zero amounts render as blank cells;
// the stored model keeps the zeros.
func writeDataRow(c *Cells, row, seq int, fields ItemFields) {
	c.Set(row, ColSeq, seq)
	c.Set(row, ColProject, fields.Project)
	c.Set(row, ColUnit, blankIfEmpty(fields.Unit))
	c.Set(row, ColQuantity, blankIfEmpty(fields.Quantity))
	c.Set(row, ColBudget, positiveOrBlank(fields.Budget))
	c.Set(row, ColInvested, positiveOrBlank(fields.Invested))
	c.Set(row, ColFinal, positiveOrBlank(fields.Final))
	diff := fields.Budget - fields.Final
	if diff != 0 {
		c.Set(row, ColDiff, diff)
	} else {
		c.Set(row, ColDiff, nil)
	}
	c.Set(row, ColRemark, blankIfEmpty(fields.Remark))
}

func writeColumnHeader(c *Cells, row int) {
	for col, label := range Headers {
		if col == len(Headers)-1 {
			c.Set(row, col+1, RemarkHeader)
			return
		}
		c.Set(row, col+1, label)
	}
}

func blankIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func positiveOrBlank(v float64) any {
	if v > 0 {
		return v
	}
	return nil
}
