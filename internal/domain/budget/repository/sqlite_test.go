package repository

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/renobook/renobook/internal/domain/budget"
	"github.com/renobook/renobook/pkg/db"
)

func newTestRepo(t *testing.T) *SQLiteBudgetRepository {
	t.Helper()
	database, err := db.New(db.Config{Path: filepath.Join(t.TempDir(), "test.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	repo := NewSQLiteBudgetRepository(database)
	require.NoError(t, repo.Init(context.Background()))
	return repo
}

func fakeItem() *budget.Item {
	return &budget.Item{
		ProjectName:       gofakeit.ProductName(),
		Unit:              "项",
		BudgetQuantity:    "1",
		BudgetCost:        float64(gofakeit.Number(100, 50000)),
		CurrentInvestment: float64(gofakeit.Number(0, 5000)),
	}
}

func TestInit_Idempotent(t *testing.T) {
	repo := newTestRepo(t)
	require.NoError(t, repo.Init(context.Background()))
}

func TestAddCategory_Uniqueness(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	first, err := repo.AddCategory(ctx, "基装工程")
	require.NoError(t, err)

	again, err := repo.AddCategory(ctx, "基装工程")
	require.NoError(t, err)
	assert.Equal(t, first, again, "re-adding the same name returns the existing id")

	categories, err := repo.ListCategories(ctx)
	require.NoError(t, err)
	assert.Len(t, categories, 1)
}

func TestAddCategory_OrdersByInsertion(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	for _, name := range []string{"基装工程", "定制家具", "家电"} {
		_, err := repo.AddCategory(ctx, name)
		require.NoError(t, err)
	}

	categories, err := repo.ListCategories(ctx)
	require.NoError(t, err)
	require.Len(t, categories, 3)
	assert.Equal(t, "基装工程", categories[0].Name)
	assert.Equal(t, "家电", categories[2].Name)
}

func TestGetCategoryByName_NotFound(t *testing.T) {
	repo := newTestRepo(t)
	_, err := repo.GetCategoryByName(context.Background(), "没有的分类")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestAddItem_AssignsDenseSequence(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	a := fakeItem()
	_, err := repo.AddItem(ctx, a, "家电")
	require.NoError(t, err)
	assert.Equal(t, 1, a.SeqNum)

	b := fakeItem()
	_, err = repo.AddItem(ctx, b, "家电")
	require.NoError(t, err)
	assert.Equal(t, 2, b.SeqNum)

	// a different category starts its own run
	c := fakeItem()
	_, err = repo.AddItem(ctx, c, "卫浴")
	require.NoError(t, err)
	assert.Equal(t, 1, c.SeqNum)
}

func TestAddItem_RecomputesDiff(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	item := &budget.Item{ProjectName: "马桶", BudgetCost: 3000, FinalCost: 3200, Diff: 999}
	id, err := repo.AddItem(ctx, item, "卫浴")
	require.NoError(t, err)

	stored, err := repo.GetItem(ctx, id)
	require.NoError(t, err)
	assert.InDelta(t, -200.0, stored.Diff, 0.01)
}

func TestGetItem_NotFound(t *testing.T) {
	repo := newTestRepo(t)
	_, err := repo.GetItem(context.Background(), 9999)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestUpdateItem(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	item := fakeItem()
	id, err := repo.AddItem(ctx, item, "家电")
	require.NoError(t, err)

	item.ProjectName = "洗碗机"
	item.BudgetCost = 6000
	item.FinalCost = 5500
	require.NoError(t, repo.UpdateItem(ctx, item, ""))

	stored, err := repo.GetItem(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "洗碗机", stored.ProjectName)
	assert.Equal(t, "家电", stored.CategoryName, "blank category keeps the current one")
	assert.InDelta(t, 500.0, stored.Diff, 0.01)
}

func TestUpdateItem_MovesCategory(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	item := fakeItem()
	_, err := repo.AddItem(ctx, item, "家电")
	require.NoError(t, err)

	require.NoError(t, repo.UpdateItem(ctx, item, "智能家居"))

	stored, err := repo.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, "智能家居", stored.CategoryName)
}

func TestUpdateItem_NotFound(t *testing.T) {
	repo := newTestRepo(t)
	err := repo.UpdateItem(context.Background(), &budget.Item{ID: 424242, ProjectName: "x"}, "")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestDeleteItems(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	var ids []int64
	for i := 0; i < 3; i++ {
		item := fakeItem()
		id, err := repo.AddItem(ctx, item, "家电")
		require.NoError(t, err)
		ids = append(ids, id)
	}

	deleted, err := repo.DeleteItems(ctx, ids[:2])
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	items, err := repo.ListItems(ctx)
	require.NoError(t, err)
	assert.Len(t, items, 1)

	deleted, err = repo.DeleteItems(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, deleted)
}

func TestDeleteCategory_DetachesItems(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	item := fakeItem()
	_, err := repo.AddItem(ctx, item, "家电")
	require.NoError(t, err)
	require.NotNil(t, item.CategoryID)

	name, detached, err := repo.DeleteCategory(ctx, *item.CategoryID)
	require.NoError(t, err)
	assert.Equal(t, "家电", name)
	assert.Equal(t, 1, detached)

	stored, err := repo.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.CategoryID, "item survives its category")
	assert.Equal(t, "未分类", stored.CategoryName)
}

func TestDeleteCategory_NotFound(t *testing.T) {
	repo := newTestRepo(t)
	_, _, err := repo.DeleteCategory(context.Background(), 777)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestRenumberCategory(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	var items []*budget.Item
	for i := 0; i < 3; i++ {
		item := fakeItem()
		_, err := repo.AddItem(ctx, item, "家电")
		require.NoError(t, err)
		items = append(items, item)
	}

	// punch a hole in the sequence
	_, err := repo.DeleteItems(ctx, []int64{items[1].ID})
	require.NoError(t, err)
	require.NoError(t, repo.RenumberCategory(ctx, *items[0].CategoryID))

	remaining, err := repo.ListItems(ctx)
	require.NoError(t, err)
	require.Len(t, remaining, 2)
	assert.Equal(t, 1, remaining[0].SeqNum)
	assert.Equal(t, 2, remaining[1].SeqNum)
}

func TestReorderCategoriesAndItems(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	firstID, err := repo.AddCategory(ctx, "基装工程")
	require.NoError(t, err)
	secondID, err := repo.AddCategory(ctx, "家电")
	require.NoError(t, err)

	require.NoError(t, repo.ReorderCategories(ctx, []CategoryOrder{
		{ID: secondID, OrderIndex: 1},
		{ID: firstID, OrderIndex: 2},
	}))

	categories, err := repo.ListCategories(ctx)
	require.NoError(t, err)
	require.Len(t, categories, 2)
	assert.Equal(t, "家电", categories[0].Name)

	a, b := fakeItem(), fakeItem()
	_, err = repo.AddItem(ctx, a, "家电")
	require.NoError(t, err)
	_, err = repo.AddItem(ctx, b, "家电")
	require.NoError(t, err)

	require.NoError(t, repo.ReorderItems(ctx, secondID, []ItemOrder{
		{ID: b.ID, SeqNum: 1},
		{ID: a.ID, SeqNum: 2},
	}))

	items, err := repo.ListItems(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, b.ID, items[0].ID)
}

func TestImportReplace(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	stale := fakeItem()
	_, err := repo.AddItem(ctx, stale, "旧分类")
	require.NoError(t, err)

	err = repo.ImportReplace(ctx,
		[]string{"基装工程", "家电"},
		[]budget.Item{
			{CategoryName: "基装工程", SeqNum: 1, ProjectName: "拆除", BudgetCost: 2000},
			{CategoryName: "家电", SeqNum: 1, ProjectName: "冰箱", BudgetCost: 8000},
			{CategoryName: "", SeqNum: 1, ProjectName: "杂项"},
		})
	require.NoError(t, err)

	categories, err := repo.ListCategories(ctx)
	require.NoError(t, err)
	names := make([]string, len(categories))
	for i, c := range categories {
		names[i] = c.Name
	}
	assert.Equal(t, []string{"基装工程", "家电", "未分类"}, names)

	items, err := repo.ListItems(ctx)
	require.NoError(t, err)
	assert.Len(t, items, 3)
}

func TestImportReplace_RollsBackOnFailure(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	original := fakeItem()
	_, err := repo.AddItem(ctx, original, "保留分类")
	require.NoError(t, err)

	// a duplicate category name violates the unique constraint mid-load
	err = repo.ImportReplace(ctx,
		[]string{"甲", "甲"},
		[]budget.Item{{CategoryName: "甲", SeqNum: 1, ProjectName: "新项目"}})
	require.Error(t, err)

	categories, err := repo.ListCategories(ctx)
	require.NoError(t, err)
	require.Len(t, categories, 1)
	assert.Equal(t, "保留分类", categories[0].Name)

	items, err := repo.ListItems(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, original.ProjectName, items[0].ProjectName)
}
