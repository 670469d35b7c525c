// Package sheet reconciles the free-form budget spreadsheet layout
// (ordinal category headers, column headers, data rows, total rows,
// merged cells) with structured category/item records.
package sheet

import (
	"strconv"
	"strings"
)

// Spreadsheet structure markers. A category block always nests as
// category-header, column-header, data rows, total row.
const (
	TotalMarker      = "合计"
	GrandTotalMarker = "总计"
	SeqHeaderToken   = "序号"
	ItemHeaderToken  = "项目"
	Uncategorized    = "未分类"
)

// Column positions, 1-based as excelize counts them.
const (
	ColSeq      = 1
	ColProject  = 2
	ColUnit     = 3
	ColQuantity = 4
	ColBudget   = 5 // legacy layout: 1st预算费用
	ColInvested = 6 // legacy layout: 2nd预算费用
	ColFinal    = 7 // legacy layout: 最终实际花费
	ColDiff     = 8
	ColRemark   = 9
)

// categoryPrefixes are the ordinal markers that open a category block,
// in numeric order. Ten categories is the ceiling the prefix table supports.
var categoryPrefixes = []string{
	"一、", "二、", "三、", "四、", "五、",
	"六、", "七、", "八、", "九、", "十、",
}

// RemarkHeader is the long-form remark column label used when writing
// column-header rows.
const RemarkHeader = "备注：选购意向（网购/实体店，品牌，型号等）"

// Headers is the fixed descriptive header list returned with parse output.
var Headers = []string{
	"序号", "项目", "单位", "预算数量", "预算费用", "当前投入", "最终花费", "差价", "备注",
}

// legacyHeaders is the two-stage-budget layout's column list.
var legacyHeaders = []string{
	"序号", "项目", "单位", "预算数量", "1st预算费用", "2nd预算费用", "最终实际花费", "差价", "备注",
}

// StripCategoryPrefix reports whether s opens a category block, and if so
// returns the category name with the ordinal prefix removed.
func StripCategoryPrefix(s string) (string, bool) {
	s = strings.TrimSpace(s)
	for _, prefix := range categoryPrefixes {
		if strings.HasPrefix(s, prefix) {
			return strings.TrimSpace(strings.TrimPrefix(s, prefix)), true
		}
	}
	return "", false
}

// PrefixOrdinal returns the 1-based ordinal of the category prefix opening
// s, or 0 when s is not a category header.
func PrefixOrdinal(s string) int {
	s = strings.TrimSpace(s)
	for i, prefix := range categoryPrefixes {
		if strings.HasPrefix(s, prefix) {
			return i + 1
		}
	}
	return 0
}

// OrdinalPrefix returns the prefix for a 1-based ordinal, or "" beyond the
// supported ceiling (the block still parses, it just carries no marker).
func OrdinalPrefix(n int) string {
	if n < 1 || n > len(categoryPrefixes) {
		return ""
	}
	return categoryPrefixes[n-1]
}

// ParseSeq parses a trimmed column-0 value as a display sequence number.
// Only non-negative integers qualify as data-row markers.
func ParseSeq(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}

// cleanCell trims a raw cell value and normalizes blank or literal "nan"
// (an artifact of earlier tooling) to the empty string.
func cleanCell(s string) string {
	s = strings.TrimSpace(s)
	if s == "nan" {
		return ""
	}
	return s
}

// cellAt returns the cleaned value of column col (0-based) in row, or ""
// when the row is too short.
func cellAt(row []string, col int) string {
	if col < 0 || col >= len(row) {
		return ""
	}
	return cleanCell(row[col])
}

// parseAmount reads a numeric cell leniently: blank or unparseable
// values become 0, never an error.
func parseAmount(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}
