// Package budget defines the normalized category/item model backing the
// renovation budget book.
package budget

import "time"

// Category is a named, ordered grouping of budget line items. Names are
// unique; re-adding an existing name yields the existing category.
type Category struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	OrderIndex int       `json:"order_index"`
	CreatedAt  time.Time `json:"created_at"`
}

// Item is one budgeted line. CategoryID is a weak reference: deleting the
// category detaches the item instead of deleting it. Diff is derived as
// budget minus final cost and is never user-authored.
type Item struct {
	ID                int64     `json:"id"`
	CategoryID        *int64    `json:"category_id"`
	CategoryName      string    `json:"category"`
	SeqNum            int       `json:"seq_num"`
	ProjectName       string    `json:"project_name"`
	Unit              string    `json:"unit"`
	BudgetQuantity    string    `json:"budget_quantity"`
	BudgetCost        float64   `json:"budget_cost"`
	CurrentInvestment float64   `json:"current_investment"`
	FinalCost         float64   `json:"final_cost"`
	Diff              float64   `json:"diff"`
	Remark            string    `json:"remark"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// ComputeDiff re-derives the diff field. Call after any cost mutation.
func (i *Item) ComputeDiff() {
	i.Diff = i.BudgetCost - i.FinalCost
}
