package sheet

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Validation is the outcome of a structural check on an uploaded sheet.
// Errors block an import; warnings do not.
type Validation struct {
	Valid         bool     `json:"valid"`
	Errors        []string `json:"errors"`
	Warnings      []string `json:"warnings"`
	CategoryCount int      `json:"category_count"`
	HasData       bool     `json:"has_data"`
}

// ValidateReader checks that a workbook has the structure an import needs:
// at least one category header, a recognizable column-header row, and
// ideally some data rows. File-level read failures are reported as
// validation errors, not raised.
func ValidateReader(r io.Reader) *Validation {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return &Validation{Valid: false, Errors: []string{fmt.Sprintf("文件读取失败: %v", err)}, Warnings: []string{}}
	}
	defer f.Close()

	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	rows, err := f.GetRows(sheet)
	if err != nil {
		return &Validation{Valid: false, Errors: []string{fmt.Sprintf("文件读取失败: %v", err)}, Warnings: []string{}}
	}
	return ValidateGrid(rows)
}

// ValidateGrid runs the structural check against a flat grid.
func ValidateGrid(rows [][]string) *Validation {
	v := &Validation{Errors: []string{}, Warnings: []string{}}

	if len(rows) == 0 {
		v.Errors = append(v.Errors, "Excel文件为空")
		return v
	}

	hasHeader := false
	for _, row := range rows {
		c0 := cellAt(row, 0)
		if _, ok := StripCategoryPrefix(c0); ok {
			v.CategoryCount++
			continue
		}
		if c0 == SeqHeaderToken && strings.Contains(cellAt(row, 1), ItemHeaderToken) {
			hasHeader = true
			continue
		}
		if _, ok := ParseSeq(c0); ok {
			v.HasData = true
		}
	}

	if v.CategoryCount == 0 {
		v.Errors = append(v.Errors, `未找到分类行（应以"一、"、"二、"等开头）`)
	}
	if !hasHeader {
		v.Errors = append(v.Errors, `未找到表头行（应包含"序号"和"项目"列）`)
	}
	if !v.HasData {
		v.Warnings = append(v.Warnings, "未找到任何数据行（序号为数字的行）")
	}

	v.Valid = len(v.Errors) == 0
	return v
}
