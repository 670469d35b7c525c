package sheet

import (
	"github.com/xuri/excelize/v2"
)

// mergedRegion is a rectangular merged block, 1-based inclusive bounds.
// The anchor (top-left) cell holds the region's value.
type mergedRegion struct {
	minRow, minCol, maxRow, maxCol int
}

func (m mergedRegion) contains(row, col int) bool {
	return row >= m.minRow && row <= m.maxRow && col >= m.minCol && col <= m.maxCol
}

// Cells provides merged-region-safe access to one worksheet. Reads inside a
// merged region resolve to the anchor cell; writes to non-anchor members are
// silently discarded. Malformed references never propagate: Get returns ""
// and Set no-ops, since spreadsheet irregularities are not reportable errors.
type Cells struct {
	f      *excelize.File
	sheet  string
	merged []mergedRegion
}

// NewCells wraps a worksheet. The merged-region list is snapshotted here and
// must be refreshed after any row insertion or deletion.
func NewCells(f *excelize.File, sheet string) *Cells {
	c := &Cells{f: f, sheet: sheet}
	c.Refresh()
	return c
}

// Refresh re-reads the merged-region list from the worksheet.
func (c *Cells) Refresh() {
	c.merged = c.merged[:0]
	regions, err := c.f.GetMergeCells(c.sheet)
	if err != nil {
		return
	}
	for _, region := range regions {
		startCol, startRow, err := excelize.CellNameToCoordinates(region.GetStartAxis())
		if err != nil {
			continue
		}
		endCol, endRow, err := excelize.CellNameToCoordinates(region.GetEndAxis())
		if err != nil {
			continue
		}
		c.merged = append(c.merged, mergedRegion{
			minRow: startRow, minCol: startCol,
			maxRow: endRow, maxCol: endCol,
		})
	}
}

// Get returns the trimmed value at (row, col), 1-based. Inside a merged
// region the anchor's value is returned regardless of which member was
// asked for.
func (c *Cells) Get(row, col int) string {
	if row < 1 || col < 1 {
		return ""
	}
	for _, region := range c.merged {
		if region.contains(row, col) {
			row, col = region.minRow, region.minCol
			break
		}
	}
	name, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return ""
	}
	value, err := c.f.GetCellValue(c.sheet, name)
	if err != nil {
		return ""
	}
	return cleanCell(value)
}

// Set writes value at (row, col), 1-based. A write into a merged region is
// applied only at the anchor; writes to other members are dropped. A nil
// value clears the cell.
func (c *Cells) Set(row, col int, value any) {
	if row < 1 || col < 1 {
		return
	}
	for _, region := range c.merged {
		if region.contains(row, col) {
			if row != region.minRow || col != region.minCol {
				return
			}
			break
		}
	}
	name, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return
	}
	// Write failures against corrupt references are swallowed by design of
	// this boundary; the rest of the sheet must remain usable.
	_ = c.f.SetCellValue(c.sheet, name, value)
}

// MaxRow returns the number of the last populated row, or 0 on a broken
// worksheet.
func (c *Cells) MaxRow() int {
	rows, err := c.f.GetRows(c.sheet)
	if err != nil {
		return 0
	}
	return len(rows)
}

// InsertRow inserts one blank row before row (1-based), shifting subsequent
// rows down, and refreshes the merged-region snapshot.
func (c *Cells) InsertRow(row int) error {
	if err := c.f.InsertRows(c.sheet, row, 1); err != nil {
		return err
	}
	c.Refresh()
	return nil
}

// RemoveRow deletes row (1-based), shifting subsequent rows up, and
// refreshes the merged-region snapshot.
func (c *Cells) RemoveRow(row int) error {
	if err := c.f.RemoveRow(c.sheet, row); err != nil {
		return err
	}
	c.Refresh()
	return nil
}
