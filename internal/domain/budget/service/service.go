// Package service orchestrates budget operations on top of the repository:
// validation, grouping for display, spreadsheet import/export, and the
// renumbering that keeps sequence numbers dense.
package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/renobook/renobook/internal/domain/budget"
	"github.com/renobook/renobook/internal/domain/budget/repository"
	"github.com/renobook/renobook/internal/domain/sheet"
	apperrors "github.com/renobook/renobook/internal/errors"
)

// Backuper is the slice of the backup service the import path needs: a
// snapshot is taken before any bulk replace so a bad file never costs data.
type Backuper interface {
	Create(ctx context.Context, description string) (string, error)
}

// BudgetService exposes the budget book's operations.
type BudgetService struct {
	repo    repository.BudgetRepository
	backups Backuper
	logger  *slog.Logger
}

// NewBudgetService creates a budget service. backups may be nil in tests;
// the import path then skips its safety snapshot.
func NewBudgetService(repo repository.BudgetRepository, backups Backuper, logger *slog.Logger) *BudgetService {
	return &BudgetService{repo: repo, backups: backups, logger: logger}
}

// Init prepares the underlying store.
func (s *BudgetService) Init(ctx context.Context) error {
	if err := s.repo.Init(ctx); err != nil {
		return apperrors.Wrap(apperrors.ErrStore, err)
	}
	return nil
}

// CategoryGroup is one category with its items, for display.
type CategoryGroup struct {
	Category budget.Category `json:"category"`
	Items    []budget.Item   `json:"items"`
	Budget   float64         `json:"budget_total"`
	Invested float64         `json:"invested_total"`
	Final    float64         `json:"final_total"`
	Diff     float64         `json:"diff_total"`
}

// Overview is the whole book grouped by category, with grand totals.
// Detached items appear under a synthetic uncategorized group at the end.
type Overview struct {
	Groups   []CategoryGroup `json:"groups"`
	Budget   float64         `json:"budget_total"`
	Invested float64         `json:"invested_total"`
	Final    float64         `json:"final_total"`
	Diff     float64         `json:"diff_total"`
	Items    int             `json:"item_count"`
}

// Overview loads and groups the whole budget book.
func (s *BudgetService) Overview(ctx context.Context) (*Overview, error) {
	categories, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStore, err)
	}
	items, err := s.repo.ListItems(ctx)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStore, err)
	}

	byCategory := make(map[int64][]budget.Item, len(categories))
	var detached []budget.Item
	for _, item := range items {
		if item.CategoryID == nil {
			detached = append(detached, item)
			continue
		}
		byCategory[*item.CategoryID] = append(byCategory[*item.CategoryID], item)
	}

	overview := &Overview{Items: len(items)}
	var budgetSum, investedSum, finalSum decimal.Decimal

	appendGroup := func(cat budget.Category, catItems []budget.Item) {
		group := CategoryGroup{Category: cat, Items: catItems}
		var b, inv, fin decimal.Decimal
		for _, item := range catItems {
			b = b.Add(decimal.NewFromFloat(item.BudgetCost))
			inv = inv.Add(decimal.NewFromFloat(item.CurrentInvestment))
			fin = fin.Add(decimal.NewFromFloat(item.FinalCost))
		}
		group.Budget, _ = b.Float64()
		group.Invested, _ = inv.Float64()
		group.Final, _ = fin.Float64()
		group.Diff, _ = b.Sub(fin).Float64()
		overview.Groups = append(overview.Groups, group)
		budgetSum = budgetSum.Add(b)
		investedSum = investedSum.Add(inv)
		finalSum = finalSum.Add(fin)
	}

	for _, cat := range categories {
		appendGroup(cat, byCategory[cat.ID])
	}
	if len(detached) > 0 {
		appendGroup(budget.Category{Name: sheet.Uncategorized}, detached)
	}

	overview.Budget, _ = budgetSum.Float64()
	overview.Invested, _ = investedSum.Float64()
	overview.Final, _ = finalSum.Float64()
	overview.Diff, _ = budgetSum.Sub(finalSum).Float64()
	return overview, nil
}

// GetItem resolves one item.
func (s *BudgetService) GetItem(ctx context.Context, id int64) (*budget.Item, error) {
	item, err := s.repo.GetItem(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.ErrItemNotFound
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStore, err)
	}
	return item, nil
}

// ItemInput carries user-authored item fields. The diff is never accepted
// from callers; it is re-derived on every write.
type ItemInput struct {
	Category          string  `json:"category"`
	ProjectName       string  `json:"project_name"`
	Unit              string  `json:"unit"`
	BudgetQuantity    string  `json:"budget_quantity"`
	BudgetCost        float64 `json:"budget_cost"`
	CurrentInvestment float64 `json:"current_investment"`
	FinalCost         float64 `json:"final_cost"`
	Remark            string  `json:"remark"`
}

func (in *ItemInput) validate() error {
	if strings.TrimSpace(in.ProjectName) == "" {
		return apperrors.ErrEmptyProjectName
	}
	if in.BudgetCost < 0 || in.CurrentInvestment < 0 || in.FinalCost < 0 {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "金额不能为负数")
	}
	return nil
}

// AddItem appends an item to a category, creating the category on demand.
func (s *BudgetService) AddItem(ctx context.Context, in ItemInput) (*budget.Item, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	item := &budget.Item{
		ProjectName:       strings.TrimSpace(in.ProjectName),
		Unit:              strings.TrimSpace(in.Unit),
		BudgetQuantity:    strings.TrimSpace(in.BudgetQuantity),
		BudgetCost:        in.BudgetCost,
		CurrentInvestment: in.CurrentInvestment,
		FinalCost:         in.FinalCost,
		Remark:            strings.TrimSpace(in.Remark),
	}
	if _, err := s.repo.AddItem(ctx, item, strings.TrimSpace(in.Category)); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStore, err)
	}
	s.logger.InfoContext(ctx, "item added",
		slog.Int64("id", item.ID),
		slog.String("project", item.ProjectName),
		slog.String("category", in.Category))
	return item, nil
}

// UpdateItem rewrites an item's user-authored fields.
func (s *BudgetService) UpdateItem(ctx context.Context, id int64, in ItemInput) (*budget.Item, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	item, err := s.GetItem(ctx, id)
	if err != nil {
		return nil, err
	}

	item.ProjectName = strings.TrimSpace(in.ProjectName)
	item.Unit = strings.TrimSpace(in.Unit)
	item.BudgetQuantity = strings.TrimSpace(in.BudgetQuantity)
	item.BudgetCost = in.BudgetCost
	item.CurrentInvestment = in.CurrentInvestment
	item.FinalCost = in.FinalCost
	item.Remark = strings.TrimSpace(in.Remark)

	err = s.repo.UpdateItem(ctx, item, strings.TrimSpace(in.Category))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.ErrItemNotFound
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStore, err)
	}
	return item, nil
}

// DeleteItems removes items by id and renumbers each touched category so
// sequences stay dense. Returns how many items were deleted.
func (s *BudgetService) DeleteItems(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, apperrors.ErrNothingSelected
	}

	touched := make(map[int64]struct{})
	for _, id := range ids {
		item, err := s.repo.GetItem(ctx, id)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return 0, apperrors.Wrap(apperrors.ErrStore, err)
		}
		if item.CategoryID != nil {
			touched[*item.CategoryID] = struct{}{}
		}
	}

	deleted, err := s.repo.DeleteItems(ctx, ids)
	if err != nil {
		return 0, apperrors.Wrap(apperrors.ErrStore, err)
	}
	for categoryID := range touched {
		if err := s.repo.RenumberCategory(ctx, categoryID); err != nil {
			return deleted, apperrors.Wrap(apperrors.ErrStore, err)
		}
	}
	s.logger.InfoContext(ctx, "items deleted", slog.Int64("count", deleted))
	return deleted, nil
}

// ListCategories returns all categories in display order.
func (s *BudgetService) ListCategories(ctx context.Context) ([]budget.Category, error) {
	categories, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStore, err)
	}
	return categories, nil
}

// AddCategory creates a category; existing names resolve to the existing
// category without growing the list.
func (s *BudgetService) AddCategory(ctx context.Context, name string) (int64, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, apperrors.ErrEmptyCategory
	}
	id, err := s.repo.AddCategory(ctx, name)
	if err != nil {
		return 0, apperrors.Wrap(apperrors.ErrStore, err)
	}
	return id, nil
}

// DeleteCategory removes a category and reports its name and how many
// items were detached (the items survive, uncategorized).
func (s *BudgetService) DeleteCategory(ctx context.Context, id int64) (string, int, error) {
	name, detached, err := s.repo.DeleteCategory(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", 0, apperrors.ErrCategoryNotFound
	}
	if err != nil {
		return "", 0, apperrors.Wrap(apperrors.ErrStore, err)
	}
	s.logger.InfoContext(ctx, "category deleted",
		slog.String("name", name), slog.Int("detached", detached))
	return name, detached, nil
}

// ReorderCategories applies new display positions.
func (s *BudgetService) ReorderCategories(ctx context.Context, orders []repository.CategoryOrder) error {
	if len(orders) == 0 {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "排序列表不能为空")
	}
	if err := s.repo.ReorderCategories(ctx, orders); err != nil {
		return apperrors.Wrap(apperrors.ErrStore, err)
	}
	return nil
}

// ReorderItems applies new sequence positions within one category, then
// renumbers to keep the run dense.
func (s *BudgetService) ReorderItems(ctx context.Context, categoryID int64, orders []repository.ItemOrder) error {
	if len(orders) == 0 {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "排序列表不能为空")
	}
	if err := s.repo.ReorderItems(ctx, categoryID, orders); err != nil {
		return apperrors.Wrap(apperrors.ErrStore, err)
	}
	if err := s.repo.RenumberCategory(ctx, categoryID); err != nil {
		return apperrors.Wrap(apperrors.ErrStore, err)
	}
	return nil
}
