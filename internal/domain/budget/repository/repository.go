// Package repository persists budget categories and items in SQLite.
package repository

import (
	"context"

	"github.com/renobook/renobook/internal/domain/budget"
)

// CategoryOrder assigns a display position to a category.
type CategoryOrder struct {
	ID         int64 `json:"id"`
	OrderIndex int   `json:"order_index"`
}

// ItemOrder assigns a display sequence to an item within its category.
type ItemOrder struct {
	ID     int64 `json:"id"`
	SeqNum int   `json:"seq_num"`
}

// BudgetRepository is the store boundary for categories and items.
// Not-found conditions surface as sql.ErrNoRows so callers can tell them
// apart from infrastructure failures.
type BudgetRepository interface {
	Init(ctx context.Context) error

	ListCategories(ctx context.Context) ([]budget.Category, error)
	GetCategoryByName(ctx context.Context, name string) (*budget.Category, error)
	// AddCategory returns the existing id when the name is already taken.
	AddCategory(ctx context.Context, name string) (int64, error)
	// DeleteCategory detaches the category's items before removing it and
	// returns the category name and how many items were detached.
	DeleteCategory(ctx context.Context, id int64) (string, int, error)
	ReorderCategories(ctx context.Context, orders []CategoryOrder) error

	ListItems(ctx context.Context) ([]budget.Item, error)
	GetItem(ctx context.Context, id int64) (*budget.Item, error)
	AddItem(ctx context.Context, item *budget.Item, categoryName string) (int64, error)
	UpdateItem(ctx context.Context, item *budget.Item, categoryName string) error
	DeleteItems(ctx context.Context, ids []int64) (int64, error)
	RenumberCategory(ctx context.Context, categoryID int64) error
	ReorderItems(ctx context.Context, categoryID int64, orders []ItemOrder) error

	// ImportReplace atomically wipes and reloads the whole store from a
	// parsed spreadsheet: categories in encounter order, items resolved to
	// their category by name (creating 未分类 on demand).
	ImportReplace(ctx context.Context, categories []string, items []budget.Item) error
}
