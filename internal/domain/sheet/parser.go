package sheet

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Layout identifies which historical column layout a sheet uses.
type Layout int

const (
	// LayoutCurrent is the single-budget layout:
	// 预算费用 / 当前投入 / 最终花费.
	LayoutCurrent Layout = iota
	// LayoutLegacy is the two-stage-budget layout:
	// 1st预算费用 / 2nd预算费用 / 最终实际花费.
	LayoutLegacy
)

// Item is one data row lifted out of the grid. All value fields keep the
// raw cell text; numeric interpretation happens in the store adapter. For
// LayoutLegacy sheets Budget/Invested/Final carry the 1st-budget,
// 2nd-budget and actual-spend columns respectively, in source order.
type Item struct {
	RowIndex    int // 0-based row in the source grid, for in-place updates
	Category    string
	SeqNum      int
	ProjectName string
	Unit        string
	Quantity    string
	Budget      string
	Invested    string
	Final       string
	Diff        string
	Remark      string
}

// ParseResult is the structured view of one budget sheet.
type ParseResult struct {
	Categories  []string // unique, first-seen order
	Items       []Item
	Headers     []string
	Layout      Layout
	TotalRows   int
	SkippedRows int
}

// ParseReader opens a workbook and parses its active sheet.
func ParseReader(r io.Reader) (*ParseResult, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()
	return ParseWorkbook(f)
}

// ParseFile opens a workbook file and parses its active sheet.
func ParseFile(path string) (*ParseResult, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()
	return ParseWorkbook(f)
}

// ParseWorkbook parses the active sheet of an already-open workbook.
func ParseWorkbook(f *excelize.File) (*ParseResult, error) {
	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	if sheet == "" {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheet, err)
	}
	return ParseGrid(rows), nil
}

// ParseGrid classifies every row of a flat grid and extracts the ordered
// category list and item records. No header metadata is trusted; rows are
// recognized purely by content. Malformed data rows are skipped, never
// reported as errors: one bad row must not block loading the rest.
func ParseGrid(rows [][]string) *ParseResult {
	result := &ParseResult{
		Categories: make([]string, 0, 8),
		Items:      make([]Item, 0, 64),
		Layout:     sniffLayout(rows),
	}
	result.Headers = Headers
	if result.Layout == LayoutLegacy {
		result.Headers = legacyHeaders
	}

	seen := make(map[string]bool)
	currentCategory := ""
	headerRow := -1

	for i, row := range rows {
		c0 := cellAt(row, 0)
		if c0 == "" {
			continue
		}

		if name, ok := StripCategoryPrefix(c0); ok {
			// A repeated header still switches context for the rows that
			// follow; only the first occurrence claims an ordering slot.
			currentCategory = name
			if !seen[name] {
				seen[name] = true
				result.Categories = append(result.Categories, name)
			}
			continue
		}

		if c0 == SeqHeaderToken && strings.Contains(cellAt(row, 1), ItemHeaderToken) {
			if headerRow < 0 {
				headerRow = i
			}
			continue
		}

		seq, ok := ParseSeq(c0)
		if !ok || headerRow < 0 || i <= headerRow {
			// Total markers, blank noise, or data-looking rows above the
			// first column header. The mutator cares about some of these
			// as structural anchors; the parser does not.
			if ok {
				result.SkippedRows++
			}
			continue
		}

		category := currentCategory
		if category == "" {
			category = Uncategorized
		}
		result.Items = append(result.Items, Item{
			RowIndex:    i,
			Category:    category,
			SeqNum:      seq,
			ProjectName: cellAt(row, 1),
			Unit:        cellAt(row, 2),
			Quantity:    cellAt(row, 3),
			Budget:      cellAt(row, 4),
			Invested:    cellAt(row, 5),
			Final:       cellAt(row, 6),
			Diff:        cellAt(row, 7),
			Remark:      cellAt(row, 8),
		})
		result.TotalRows++
	}

	return result
}

// sniffLayout looks at the first column-header row to decide which
// historical layout the sheet uses. Sheets without a recognizable header
// default to the current layout.
func sniffLayout(rows [][]string) Layout {
	for _, row := range rows {
		if cellAt(row, 0) != SeqHeaderToken {
			continue
		}
		for _, cell := range row {
			c := strings.ToLower(strings.TrimSpace(cell))
			if strings.Contains(c, "1st") || strings.Contains(c, "2nd") {
				return LayoutLegacy
			}
			if strings.Contains(cell, "当前投入") {
				return LayoutCurrent
			}
		}
		return LayoutCurrent
	}
	return LayoutCurrent
}
