package sheet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsertItem_AppendsBeforeTotalRow(t *testing.T) {
	_, c := fillGrid(t, budgetGrid())

	err := InsertItem(c, "基装工程", ItemFields{
		Project: "吊顶",
		Unit:    "项",
		Budget:  5000,
	})
	require.NoError(t, err)

	// the new row lands where 合计 used to be; 合计 shifts down one
	assert.Equal(t, "3", c.Get(7, ColSeq), "sequence continues past the block maximum")
	assert.Equal(t, "吊顶", c.Get(7, ColProject))
	assert.Equal(t, "5000", c.Get(7, ColBudget))
	assert.Equal(t, TotalMarker, c.Get(8, ColSeq))

	// totals already reflect the insertion
	assert.Equal(t, "17000", c.Get(8, ColBudget))
	assert.Equal(t, "20000", c.Get(1, ColBudget))
}

func TestInsertItem_UnknownCategory(t *testing.T) {
	_, c := fillGrid(t, budgetGrid())

	err := InsertItem(c, "不存在的分类", ItemFields{Project: "x"})
	assert.ErrorIs(t, err, ErrCategoryRowNotFound)
}

func TestInsertItem_ZeroAmountsRenderBlank(t *testing.T) {
	_, c := fillGrid(t, budgetGrid())

	require.NoError(t, InsertItem(c, "卫浴设备", ItemFields{Project: "浴室柜"}))

	row := 11 // before that block's 合计, which shifted to 12
	assert.Equal(t, "浴室柜", c.Get(row, ColProject))
	assert.Empty(t, c.Get(row, ColBudget))
	assert.Empty(t, c.Get(row, ColFinal))
	assert.Empty(t, c.Get(row, ColDiff))
}

func TestInsertCategory_UsesNextOrdinal(t *testing.T) {
	_, c := fillGrid(t, budgetGrid())

	require.NoError(t, InsertCategory(c, "定制家具"))

	// appended after 卫浴设备's 合计 row (row 11)
	assert.Equal(t, "三、定制家具", c.Get(12, ColSeq))
	assert.Equal(t, SeqHeaderToken, c.Get(13, ColSeq))
	assert.Equal(t, RemarkHeader, c.Get(13, ColRemark))
	assert.Equal(t, TotalMarker, c.Get(14, ColSeq))
}

func TestDeleteRows_MixedRequestDeletesDataOnly(t *testing.T) {
	_, c := fillGrid(t, budgetGrid())

	// 0-based: row 2 is the 一、基装工程 header, row 4 is the 拆除 data row
	deleted, blocked, err := DeleteRows(c, []int{2, 4})
	require.NoError(t, err)

	assert.Equal(t, 1, deleted)
	assert.Equal(t, 1, blocked)
	assert.Equal(t, "一、基装工程", c.Get(3, ColSeq), "category header survives")
	assert.Equal(t, "水电", c.Get(5, ColProject), "remaining rows shifted up")
}

func TestDeleteRows_AllProtectedFails(t *testing.T) {
	_, c := fillGrid(t, budgetGrid())

	// grand total, category header, column header, total row (all 0-based)
	deleted, blocked, err := DeleteRows(c, []int{0, 2, 3, 6})

	assert.ErrorIs(t, err, ErrAllRowsProtected)
	assert.Zero(t, deleted)
	assert.Equal(t, 4, blocked)
	assert.Equal(t, "拆除", c.Get(5, ColProject), "sheet untouched")
}

func TestDeleteRows_RecalculatesTotals(t *testing.T) {
	_, c := fillGrid(t, budgetGrid())

	// delete 水电 (0-based row 5)
	deleted, _, err := DeleteRows(c, []int{5})
	require.NoError(t, err)
	require.Equal(t, 1, deleted)

	assert.Equal(t, "2000", c.Get(6, ColBudget), "category total drops to the surviving row")
	assert.Equal(t, "5000", c.Get(1, ColBudget), "grand total follows")
}

func TestDeleteRows_DescendingOrderSurvivesMultiDelete(t *testing.T) {
	_, c := fillGrid(t, budgetGrid())

	deleted, blocked, err := DeleteRows(c, []int{4, 5, 9})
	require.NoError(t, err)

	assert.Equal(t, 3, deleted)
	assert.Zero(t, blocked)
	assert.Equal(t, TotalMarker, c.Get(5, ColSeq))
	assert.Empty(t, c.Get(5, ColBudget), "empty block total clears")
}
