package service

import (
	"context"
	"io"
	"strconv"

	"github.com/gocarina/gocsv"
	"github.com/xuri/excelize/v2"

	"github.com/renobook/renobook/internal/domain/sheet"
	apperrors "github.com/renobook/renobook/internal/errors"
)

// ExportWorkbook re-derives a spreadsheet from store state. The output is
// canonical: dense sequence numbers, recomputed totals, the current column
// layout regardless of what was originally imported.
func (s *BudgetService) ExportWorkbook(ctx context.Context) (*excelize.File, error) {
	overview, err := s.Overview(ctx)
	if err != nil {
		return nil, err
	}

	categories := make([]sheet.BuildCategory, 0, len(overview.Groups))
	for _, group := range overview.Groups {
		cat := sheet.BuildCategory{Name: group.Category.Name}
		for _, item := range group.Items {
			cat.Items = append(cat.Items, sheet.BuildItem{
				Project:  item.ProjectName,
				Unit:     item.Unit,
				Quantity: item.BudgetQuantity,
				Budget:   item.BudgetCost,
				Invested: item.CurrentInvestment,
				Final:    item.FinalCost,
				Remark:   item.Remark,
			})
		}
		categories = append(categories, cat)
	}

	f, err := sheet.BuildWorkbook(categories)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternal, err)
	}
	return f, nil
}

// csvRow mirrors the spreadsheet's column layout for flat exports.
type csvRow struct {
	Category string `csv:"分类"`
	SeqNum   int    `csv:"序号"`
	Project  string `csv:"项目"`
	Unit     string `csv:"单位"`
	Quantity string `csv:"预算数量"`
	Budget   string `csv:"预算费用"`
	Invested string `csv:"当前投入"`
	Final    string `csv:"最终花费"`
	Diff     string `csv:"差价"`
	Remark   string `csv:"备注"`
}

// ExportCSV writes the budget book as UTF-8 CSV with a BOM so spreadsheet
// applications pick up the encoding.
func (s *BudgetService) ExportCSV(ctx context.Context, w io.Writer) error {
	items, err := s.repo.ListItems(ctx)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrStore, err)
	}

	rows := make([]csvRow, 0, len(items))
	for _, item := range items {
		rows = append(rows, csvRow{
			Category: item.CategoryName,
			SeqNum:   item.SeqNum,
			Project:  item.ProjectName,
			Unit:     item.Unit,
			Quantity: item.BudgetQuantity,
			Budget:   formatAmount(item.BudgetCost),
			Invested: formatAmount(item.CurrentInvestment),
			Final:    formatAmount(item.FinalCost),
			Diff:     formatAmount(item.Diff),
			Remark:   item.Remark,
		})
	}

	if _, err := w.Write([]byte("\xEF\xBB\xBF")); err != nil {
		return apperrors.Wrap(apperrors.ErrInternal, err)
	}
	if err := gocsv.Marshal(&rows, w); err != nil {
		return apperrors.Wrap(apperrors.ErrInternal, err)
	}
	return nil
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
