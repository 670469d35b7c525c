// Package report renders the budget book as a printable PDF document.
package report

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/signintech/gopdf"

	budgetservice "github.com/renobook/renobook/internal/domain/budget/service"
	apperrors "github.com/renobook/renobook/internal/errors"
)

const fontName = "cjk"

// fontCandidates are tried in order when no font path is configured.
// Rendering Chinese requires a CJK-capable TTF; the built-in PDF fonts
// cannot encode it.
var fontCandidates = []string{
	"/usr/share/fonts/truetype/wqy/wqy-microhei.ttc",
	"/usr/share/fonts/truetype/wqy/wqy-zenhei.ttc",
	"/usr/share/fonts/opentype/noto/NotoSansCJK-Regular.ttc",
	"/usr/share/fonts/truetype/droid/DroidSansFallbackFull.ttf",
	"/System/Library/Fonts/STHeiti Light.ttc",
}

// A4 geometry in points.
const (
	pageWidth  = 595.0
	pageHeight = 842.0
	marginX    = 40.0
	marginTop  = 50.0
	bottomY    = 790.0
	rowHeight  = 18.0
)

var columnX = []float64{marginX, 70, 230, 265, 305, 360, 415, 470}

// Renderer produces PDF reports. The CJK font is resolved once, on first
// use, and the outcome is cached for the process lifetime.
type Renderer struct {
	fontPath string
	logger   *slog.Logger

	fontOnce     sync.Once
	resolvedFont string
	fontErr      error
}

// NewRenderer creates a PDF renderer. fontPath may be empty, in which case
// well-known system font locations are probed on first render.
func NewRenderer(fontPath string, logger *slog.Logger) *Renderer {
	return &Renderer{fontPath: fontPath, logger: logger}
}

func (r *Renderer) font() (string, error) {
	r.fontOnce.Do(func() {
		candidates := fontCandidates
		if r.fontPath != "" {
			candidates = append([]string{r.fontPath}, candidates...)
		}
		for _, path := range candidates {
			if _, err := os.Stat(path); err == nil {
				r.resolvedFont = path
				return
			}
		}
		r.fontErr = fmt.Errorf("no CJK font found (set PDF_FONT_PATH)")
	})
	return r.resolvedFont, r.fontErr
}

// Render lays out the whole budget book: a grand summary on top, then one
// table per category with a subtotal line.
func (r *Renderer) Render(ctx context.Context, title string, overview *budgetservice.Overview) ([]byte, error) {
	fontPath, err := r.font()
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternal, err)
	}

	pdf := &gopdf.GoPdf{}
	pdf.Start(gopdf.Config{PageSize: *gopdf.PageSizeA4})
	if err := pdf.AddTTFFont(fontName, fontPath); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternal, fmt.Errorf("failed to load font: %w", err))
	}
	pdf.AddPage()

	y := marginTop
	r.text(pdf, marginX, y, 18, title)
	y += 34

	r.text(pdf, marginX, y, 10, fmt.Sprintf(
		"总预算 %s 元    当前投入 %s 元    最终花费 %s 元    差价 %s 元    共 %d 项",
		formatMoney(overview.Budget), formatMoney(overview.Invested),
		formatMoney(overview.Final), formatMoney(overview.Diff), overview.Items))
	y += 30

	for _, group := range overview.Groups {
		y = r.pageBreak(pdf, y, rowHeight*3)

		r.text(pdf, marginX, y, 13, group.Category.Name)
		y += rowHeight + 4

		y = r.headerRow(pdf, y)
		for _, item := range group.Items {
			y = r.pageBreak(pdf, y, rowHeight)
			cells := []string{
				fmt.Sprintf("%d", item.SeqNum),
				truncate(item.ProjectName, 18),
				item.Unit,
				item.BudgetQuantity,
				formatMoney(item.BudgetCost),
				formatMoney(item.CurrentInvestment),
				formatMoney(item.FinalCost),
				formatMoney(item.Diff),
			}
			for col, cell := range cells {
				r.text(pdf, columnX[col], y, 9, cell)
			}
			if remark := truncate(item.Remark, 40); remark != "" {
				y += rowHeight - 4
				r.text(pdf, columnX[1], y, 7, remark)
			}
			y += rowHeight
		}

		y = r.pageBreak(pdf, y, rowHeight)
		r.text(pdf, marginX, y, 9, fmt.Sprintf(
			"本分类合计：预算 %s 元 | 当前投入 %s 元 | 最终花费 %s 元 | 差价 %s 元",
			formatMoney(group.Budget), formatMoney(group.Invested),
			formatMoney(group.Final), formatMoney(group.Diff)))
		y += rowHeight + 10
	}

	r.logger.InfoContext(ctx, "pdf rendered", slog.Int("categories", len(overview.Groups)))
	return pdf.GetBytesPdf(), nil
}

var tableHeaders = []string{"序号", "项目", "单位", "数量", "预算", "当前投入", "最终花费", "差价"}

func (r *Renderer) headerRow(pdf *gopdf.GoPdf, y float64) float64 {
	for col, h := range tableHeaders {
		r.text(pdf, columnX[col], y, 9, h)
	}
	pdf.SetLineWidth(0.5)
	pdf.Line(marginX, y+rowHeight-5, pageWidth-marginX, y+rowHeight-5)
	return y + rowHeight
}

func (r *Renderer) pageBreak(pdf *gopdf.GoPdf, y, need float64) float64 {
	if y+need > bottomY {
		pdf.AddPage()
		return marginTop
	}
	return y
}

func (r *Renderer) text(pdf *gopdf.GoPdf, x, y, size float64, s string) {
	if s == "" {
		return
	}
	_ = pdf.SetFont(fontName, "", size)
	pdf.SetX(x)
	pdf.SetY(y)
	_ = pdf.Cell(nil, s)
}

func formatMoney(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%.0f", v)
	}
	return fmt.Sprintf("%.2f", v)
}

func truncate(s string, maxRunes int) string {
	runes := []rune(s)
	if len(runes) <= maxRunes {
		return s
	}
	return string(runes[:maxRunes-1]) + "…"
}
