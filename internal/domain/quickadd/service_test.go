package quickadd

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/renobook/renobook/internal/domain/budget/repository"
	budgetservice "github.com/renobook/renobook/internal/domain/budget/service"
	apperrors "github.com/renobook/renobook/internal/errors"
	"github.com/renobook/renobook/pkg/db"
)

type noopBackuper struct{}

func (noopBackuper) Create(context.Context, string) (string, error) { return "", nil }

func newTestService(t *testing.T) (*Service, *budgetservice.BudgetService) {
	t.Helper()
	database, err := db.New(db.Config{Path: filepath.Join(t.TempDir(), "test.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	budgets := budgetservice.NewBudgetService(repository.NewSQLiteBudgetRepository(database), noopBackuper{}, logger)
	require.NoError(t, budgets.Init(context.Background()))
	return NewService(budgets, logger), budgets
}

func TestParseText_EmptyInput(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.ParseText(context.Background(), "   ")
	assert.ErrorIs(t, err, apperrors.ErrEmptyText)
}

func TestParseText_ResolvesAgainstExistingCategories(t *testing.T) {
	svc, budgets := newTestService(t)
	ctx := context.Background()
	_, err := budgets.AddCategory(ctx, "卫浴设备")
	require.NoError(t, err)

	preview, err := svc.ParseText(ctx, "花洒，1个，预算500元")
	require.NoError(t, err)
	assert.Equal(t, "花洒", preview.ProjectName)
	assert.Equal(t, "1", preview.Quantity)
	assert.Equal(t, "个", preview.Unit)
	assert.Equal(t, "500", preview.Budget)
	assert.Equal(t, "卫浴设备", preview.Category)
}

func TestParseAndAdd_StoresItem(t *testing.T) {
	svc, budgets := newTestService(t)
	ctx := context.Background()
	_, err := budgets.AddCategory(ctx, "定制家具")
	require.NoError(t, err)

	item, err := svc.ParseAndAdd(ctx, "定制衣柜，2套，预算5000元，当前投入2000元")
	require.NoError(t, err)
	assert.Equal(t, "定制衣柜", item.ProjectName)
	assert.Equal(t, "定制家具", item.CategoryName)
	assert.Equal(t, "套", item.Unit)
	assert.Equal(t, "2", item.BudgetQuantity)
	assert.InDelta(t, 5000, item.BudgetCost, 1e-9)
	assert.InDelta(t, 2000, item.CurrentInvestment, 1e-9)
	assert.Zero(t, item.FinalCost)
}

func TestParseAndAdd_SynthesizesCategory(t *testing.T) {
	svc, _ := newTestService(t)

	item, err := svc.ParseAndAdd(context.Background(), "院子绿化，预算2000元")
	require.NoError(t, err)
	assert.Equal(t, "院子绿化", item.CategoryName)
}

func TestParseAndAdd_UnrecognizableProjectName(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.ParseAndAdd(context.Background(), "12345")
	assert.ErrorIs(t, err, apperrors.ErrEmptyProjectName)
}

func TestParseAndAddBatch(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	text := "马桶，1个，预算3000元\n12345\n\n地板，80平方米，预算30000元"
	result, err := svc.ParseAndAddBatch(ctx, text)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Succeeded)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Items, 2)
	assert.Equal(t, "马桶", result.Items[0].ProjectName)
	assert.Equal(t, "地板", result.Items[1].ProjectName)

	require.Len(t, result.Failures, 1)
	assert.Equal(t, 2, result.Failures[0].Line)
	assert.Equal(t, "12345", result.Failures[0].Text)
	assert.Equal(t, apperrors.ErrEmptyProjectName.Message, result.Failures[0].Reason)
}

func TestParseAndAddBatch_OnlyBlankLines(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.ParseAndAddBatch(context.Background(), "\n  \n")
	assert.ErrorIs(t, err, apperrors.ErrEmptyText)
}
