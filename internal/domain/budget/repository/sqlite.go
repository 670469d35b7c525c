package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/renobook/renobook/internal/domain/budget"
	"github.com/renobook/renobook/internal/domain/sheet"
	"github.com/renobook/renobook/pkg/db"
)

// SQLiteBudgetRepository implements BudgetRepository on SQLite. Every
// public method runs under the connection's bounded retry policy so
// transient lock or I/O failures are absorbed before they reach callers.
type SQLiteBudgetRepository struct {
	db *db.DB
}

// NewSQLiteBudgetRepository creates a SQLite-backed budget repository.
func NewSQLiteBudgetRepository(database *db.DB) *SQLiteBudgetRepository {
	return &SQLiteBudgetRepository{db: database}
}

// Init creates the schema when missing.
func (r *SQLiteBudgetRepository) Init(ctx context.Context) error {
	return r.db.WithRetry(ctx, func(ctx context.Context) error {
		statements := []string{
			`CREATE TABLE IF NOT EXISTS categories (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				name TEXT NOT NULL UNIQUE,
				order_index INTEGER DEFAULT 0,
				created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
			)`,
			`CREATE TABLE IF NOT EXISTS items (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				category_id INTEGER,
				seq_num INTEGER NOT NULL,
				project_name TEXT NOT NULL,
				unit TEXT,
				budget_quantity TEXT,
				budget_cost REAL DEFAULT 0,
				current_investment REAL DEFAULT 0,
				final_cost REAL DEFAULT 0,
				diff REAL DEFAULT 0,
				remark TEXT,
				created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
				FOREIGN KEY (category_id) REFERENCES categories(id) ON DELETE SET NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_items_category_id ON items(category_id)`,
			`CREATE INDEX IF NOT EXISTS idx_items_seq_num ON items(seq_num)`,
			`CREATE INDEX IF NOT EXISTS idx_categories_order ON categories(order_index)`,
		}
		for _, stmt := range statements {
			if _, err := r.db.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("failed to init schema: %w", err)
			}
		}
		return nil
	})
}

// ListCategories returns all categories in display order.
func (r *SQLiteBudgetRepository) ListCategories(ctx context.Context) ([]budget.Category, error) {
	var categories []budget.Category
	err := r.db.WithRetry(ctx, func(ctx context.Context) error {
		rows, err := r.db.QueryContext(ctx,
			`SELECT id, name, order_index, created_at FROM categories ORDER BY order_index, id`)
		if err != nil {
			return fmt.Errorf("failed to list categories: %w", err)
		}
		defer rows.Close()

		categories = categories[:0]
		for rows.Next() {
			var c budget.Category
			if err := rows.Scan(&c.ID, &c.Name, &c.OrderIndex, &c.CreatedAt); err != nil {
				return fmt.Errorf("failed to scan category: %w", err)
			}
			categories = append(categories, c)
		}
		return rows.Err()
	})
	return categories, err
}

// GetCategoryByName returns the category with that exact name, or
// sql.ErrNoRows.
func (r *SQLiteBudgetRepository) GetCategoryByName(ctx context.Context, name string) (*budget.Category, error) {
	var c budget.Category
	err := r.db.WithRetry(ctx, func(ctx context.Context) error {
		return r.db.QueryRowContext(ctx,
			`SELECT id, name, order_index, created_at FROM categories WHERE name = ?`, name).
			Scan(&c.ID, &c.Name, &c.OrderIndex, &c.CreatedAt)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sql.ErrNoRows
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get category %q: %w", name, err)
	}
	return &c, nil
}

// AddCategory inserts a category at the end of the display order. Adding a
// name that already exists returns the existing identity; the category
// count does not grow.
func (r *SQLiteBudgetRepository) AddCategory(ctx context.Context, name string) (int64, error) {
	var id int64
	err := r.db.WithRetry(ctx, func(ctx context.Context) error {
		err := r.db.QueryRowContext(ctx, `SELECT id FROM categories WHERE name = ?`, name).Scan(&id)
		if err == nil {
			return nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("failed to look up category %q: %w", name, err)
		}

		var maxOrder sql.NullInt64
		if err := r.db.QueryRowContext(ctx, `SELECT MAX(order_index) FROM categories`).Scan(&maxOrder); err != nil {
			return fmt.Errorf("failed to read category order: %w", err)
		}

		result, err := r.db.ExecContext(ctx,
			`INSERT INTO categories (name, order_index) VALUES (?, ?)`, name, maxOrder.Int64+1)
		if err != nil {
			return fmt.Errorf("failed to insert category %q: %w", name, err)
		}
		id, err = result.LastInsertId()
		return err
	})
	return id, err
}

// DeleteCategory removes a category, detaching (not deleting) its items.
func (r *SQLiteBudgetRepository) DeleteCategory(ctx context.Context, id int64) (string, int, error) {
	var name string
	var detached int
	err := r.db.WithRetry(ctx, func(ctx context.Context) error {
		tx, err := r.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		if err := tx.QueryRowContext(ctx, `SELECT name FROM categories WHERE id = ?`, id).Scan(&name); err != nil {
			return err // sql.ErrNoRows passes through as the not-found signal
		}

		result, err := tx.ExecContext(ctx, `UPDATE items SET category_id = NULL WHERE category_id = ?`, id)
		if err != nil {
			return fmt.Errorf("failed to detach items: %w", err)
		}
		n, _ := result.RowsAffected()
		detached = int(n)

		if _, err := tx.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id); err != nil {
			return fmt.Errorf("failed to delete category: %w", err)
		}
		return tx.Commit()
	})
	if err != nil {
		return "", 0, err
	}
	return name, detached, nil
}

// ReorderCategories applies new display positions in one transaction.
func (r *SQLiteBudgetRepository) ReorderCategories(ctx context.Context, orders []CategoryOrder) error {
	return r.db.WithRetry(ctx, func(ctx context.Context) error {
		tx, err := r.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		for _, order := range orders {
			if _, err := tx.ExecContext(ctx,
				`UPDATE categories SET order_index = ? WHERE id = ?`, order.OrderIndex, order.ID); err != nil {
				return fmt.Errorf("failed to reorder category %d: %w", order.ID, err)
			}
		}
		return tx.Commit()
	})
}

const itemColumns = `i.id, i.category_id, COALESCE(c.name, ''), i.seq_num, i.project_name,
	COALESCE(i.unit, ''), COALESCE(i.budget_quantity, ''), i.budget_cost,
	i.current_investment, i.final_cost, i.diff, COALESCE(i.remark, ''),
	i.created_at, i.updated_at`

func scanItem(row interface{ Scan(...any) error }) (*budget.Item, error) {
	var item budget.Item
	err := row.Scan(
		&item.ID, &item.CategoryID, &item.CategoryName, &item.SeqNum, &item.ProjectName,
		&item.Unit, &item.BudgetQuantity, &item.BudgetCost,
		&item.CurrentInvestment, &item.FinalCost, &item.Diff, &item.Remark,
		&item.CreatedAt, &item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if item.CategoryName == "" {
		item.CategoryName = sheet.Uncategorized
	}
	return &item, nil
}

// ListItems returns every item ordered by category display order, then
// sequence.
func (r *SQLiteBudgetRepository) ListItems(ctx context.Context) ([]budget.Item, error) {
	var items []budget.Item
	err := r.db.WithRetry(ctx, func(ctx context.Context) error {
		rows, err := r.db.QueryContext(ctx, `
			SELECT `+itemColumns+`
			FROM items i
			LEFT JOIN categories c ON i.category_id = c.id
			ORDER BY c.order_index, c.id, i.seq_num, i.id`)
		if err != nil {
			return fmt.Errorf("failed to list items: %w", err)
		}
		defer rows.Close()

		items = items[:0]
		for rows.Next() {
			item, err := scanItem(rows)
			if err != nil {
				return fmt.Errorf("failed to scan item: %w", err)
			}
			items = append(items, *item)
		}
		return rows.Err()
	})
	return items, err
}

// GetItem resolves one item by id, or sql.ErrNoRows.
func (r *SQLiteBudgetRepository) GetItem(ctx context.Context, id int64) (*budget.Item, error) {
	var item *budget.Item
	err := r.db.WithRetry(ctx, func(ctx context.Context) error {
		row := r.db.QueryRowContext(ctx, `
			SELECT `+itemColumns+`
			FROM items i
			LEFT JOIN categories c ON i.category_id = c.id
			WHERE i.id = ?`, id)
		var scanErr error
		item, scanErr = scanItem(row)
		return scanErr
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sql.ErrNoRows
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get item %d: %w", id, err)
	}
	return item, nil
}

// AddItem inserts an item into the named category (created on demand when
// missing; blank means uncategorized). The display sequence is one past the
// category's current maximum, and the diff is recomputed before writing.
func (r *SQLiteBudgetRepository) AddItem(ctx context.Context, item *budget.Item, categoryName string) (int64, error) {
	var id int64
	err := r.db.WithRetry(ctx, func(ctx context.Context) error {
		var categoryID *int64
		if categoryName != "" {
			cid, err := r.addCategoryLocked(ctx, categoryName)
			if err != nil {
				return err
			}
			categoryID = &cid
		}

		seq := item.SeqNum
		if categoryID != nil {
			var maxSeq sql.NullInt64
			if err := r.db.QueryRowContext(ctx,
				`SELECT MAX(seq_num) FROM items WHERE category_id = ?`, *categoryID).Scan(&maxSeq); err != nil {
				return fmt.Errorf("failed to read max sequence: %w", err)
			}
			seq = int(maxSeq.Int64) + 1
		} else if seq < 1 {
			seq = 1
		}

		item.ComputeDiff()
		result, err := r.db.ExecContext(ctx, `
			INSERT INTO items (
				category_id, seq_num, project_name, unit, budget_quantity,
				budget_cost, current_investment, final_cost, diff, remark
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			categoryID, seq, item.ProjectName, item.Unit, item.BudgetQuantity,
			item.BudgetCost, item.CurrentInvestment, item.FinalCost, item.Diff, item.Remark,
		)
		if err != nil {
			return fmt.Errorf("failed to insert item: %w", err)
		}
		id, err = result.LastInsertId()
		if err == nil {
			item.ID = id
			item.SeqNum = seq
			item.CategoryID = categoryID
			if categoryName != "" {
				item.CategoryName = categoryName
			} else {
				item.CategoryName = sheet.Uncategorized
			}
		}
		return err
	})
	return id, err
}

// addCategoryLocked is AddCategory without its own retry wrapper, for use
// inside an already-retried operation.
func (r *SQLiteBudgetRepository) addCategoryLocked(ctx context.Context, name string) (int64, error) {
	var id int64
	err := r.db.QueryRowContext(ctx, `SELECT id FROM categories WHERE name = ?`, name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("failed to look up category %q: %w", name, err)
	}

	var maxOrder sql.NullInt64
	if err := r.db.QueryRowContext(ctx, `SELECT MAX(order_index) FROM categories`).Scan(&maxOrder); err != nil {
		return 0, fmt.Errorf("failed to read category order: %w", err)
	}
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO categories (name, order_index) VALUES (?, ?)`, name, maxOrder.Int64+1)
	if err != nil {
		return 0, fmt.Errorf("failed to insert category %q: %w", name, err)
	}
	return result.LastInsertId()
}

// UpdateItem rewrites an item's fields, recomputing the diff. A blank
// categoryName keeps the current category; naming one resolves or creates
// it. Unknown ids return sql.ErrNoRows.
func (r *SQLiteBudgetRepository) UpdateItem(ctx context.Context, item *budget.Item, categoryName string) error {
	return r.db.WithRetry(ctx, func(ctx context.Context) error {
		var categoryID *int64
		if categoryName != "" {
			cid, err := r.addCategoryLocked(ctx, categoryName)
			if err != nil {
				return err
			}
			categoryID = &cid
		} else {
			var current sql.NullInt64
			err := r.db.QueryRowContext(ctx,
				`SELECT category_id FROM items WHERE id = ?`, item.ID).Scan(&current)
			if errors.Is(err, sql.ErrNoRows) {
				return sql.ErrNoRows
			}
			if err != nil {
				return fmt.Errorf("failed to read item %d: %w", item.ID, err)
			}
			if current.Valid {
				categoryID = &current.Int64
			}
		}

		item.ComputeDiff()
		result, err := r.db.ExecContext(ctx, `
			UPDATE items SET
				category_id = ?, seq_num = ?, project_name = ?, unit = ?,
				budget_quantity = ?, budget_cost = ?, current_investment = ?,
				final_cost = ?, diff = ?, remark = ?, updated_at = CURRENT_TIMESTAMP
			WHERE id = ?`,
			categoryID, item.SeqNum, item.ProjectName, item.Unit,
			item.BudgetQuantity, item.BudgetCost, item.CurrentInvestment,
			item.FinalCost, item.Diff, item.Remark, item.ID,
		)
		if err != nil {
			return fmt.Errorf("failed to update item %d: %w", item.ID, err)
		}
		if n, _ := result.RowsAffected(); n == 0 {
			return sql.ErrNoRows
		}
		item.CategoryID = categoryID
		if categoryName != "" {
			item.CategoryName = categoryName
		}
		return nil
	})
}

// DeleteItems removes items by id and returns how many rows went away.
func (r *SQLiteBudgetRepository) DeleteItems(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	var deleted int64
	err := r.db.WithRetry(ctx, func(ctx context.Context) error {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
		args := make([]any, len(ids))
		for i, id := range ids {
			args[i] = id
		}
		result, err := r.db.ExecContext(ctx,
			`DELETE FROM items WHERE id IN (`+placeholders+`)`, args...)
		if err != nil {
			return fmt.Errorf("failed to delete items: %w", err)
		}
		deleted, _ = result.RowsAffected()
		return nil
	})
	return deleted, err
}

// RenumberCategory rewrites a category's sequence numbers as a dense
// 1-based run, keeping the current order.
func (r *SQLiteBudgetRepository) RenumberCategory(ctx context.Context, categoryID int64) error {
	return r.db.WithRetry(ctx, func(ctx context.Context) error {
		tx, err := r.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		rows, err := tx.QueryContext(ctx,
			`SELECT id FROM items WHERE category_id = ? ORDER BY seq_num, id`, categoryID)
		if err != nil {
			return fmt.Errorf("failed to list category items: %w", err)
		}
		var ids []int64
		for rows.Next() {
			var id int64
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return fmt.Errorf("failed to scan item id: %w", err)
			}
			ids = append(ids, id)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		for i, id := range ids {
			if _, err := tx.ExecContext(ctx,
				`UPDATE items SET seq_num = ? WHERE id = ?`, i+1, id); err != nil {
				return fmt.Errorf("failed to renumber item %d: %w", id, err)
			}
		}
		return tx.Commit()
	})
}

// ReorderItems applies new sequence positions within one category.
func (r *SQLiteBudgetRepository) ReorderItems(ctx context.Context, categoryID int64, orders []ItemOrder) error {
	return r.db.WithRetry(ctx, func(ctx context.Context) error {
		tx, err := r.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		for _, order := range orders {
			if _, err := tx.ExecContext(ctx,
				`UPDATE items SET seq_num = ? WHERE id = ? AND category_id = ?`,
				order.SeqNum, order.ID, categoryID); err != nil {
				return fmt.Errorf("failed to reorder item %d: %w", order.ID, err)
			}
		}
		return tx.Commit()
	})
}

// ImportReplace wipes and reloads the store in one transaction. On any
// failure the whole load rolls back: readers never see a partial
// category/item mix.
func (r *SQLiteBudgetRepository) ImportReplace(ctx context.Context, categories []string, items []budget.Item) error {
	return r.db.WithRetry(ctx, func(ctx context.Context) error {
		tx, err := r.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		if _, err := tx.ExecContext(ctx, `DELETE FROM items`); err != nil {
			return fmt.Errorf("failed to clear items: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM categories`); err != nil {
			return fmt.Errorf("failed to clear categories: %w", err)
		}

		order := 0
		categoryIDs := make(map[string]int64, len(categories))
		insertCategory := func(name string) (int64, error) {
			order++
			result, err := tx.ExecContext(ctx,
				`INSERT INTO categories (name, order_index) VALUES (?, ?)`, name, order)
			if err != nil {
				return 0, fmt.Errorf("failed to insert category %q: %w", name, err)
			}
			return result.LastInsertId()
		}

		for _, name := range categories {
			if strings.TrimSpace(name) == "" {
				continue
			}
			id, err := insertCategory(name)
			if err != nil {
				return err
			}
			categoryIDs[name] = id
		}

		for i := range items {
			item := &items[i]
			name := item.CategoryName
			if strings.TrimSpace(name) == "" {
				name = sheet.Uncategorized
			}
			categoryID, ok := categoryIDs[name]
			if !ok {
				id, err := insertCategory(name)
				if err != nil {
					return err
				}
				categoryIDs[name] = id
				categoryID = id
			}

			item.ComputeDiff()
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO items (
					category_id, seq_num, project_name, unit, budget_quantity,
					budget_cost, current_investment, final_cost, diff, remark
				) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				categoryID, item.SeqNum, item.ProjectName, item.Unit, item.BudgetQuantity,
				item.BudgetCost, item.CurrentInvestment, item.FinalCost, item.Diff, item.Remark,
			); err != nil {
				return fmt.Errorf("failed to insert item %q: %w", item.ProjectName, err)
			}
		}

		return tx.Commit()
	})
}
