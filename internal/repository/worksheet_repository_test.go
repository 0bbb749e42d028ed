package repository

import (
	"context"
	"errors"
	"testing"
	"time"
	"worksheet_backend/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func newWorksheet(creator uint, subject string) *model.Worksheet {
	return &model.Worksheet{
		CreatorID:      creator,
		Subject:        subject,
		Grade:          5,
		Format:         model.FormatStandard,
		RequestedCount: 3,
		StoredCount:    3,
		Request:        datatypes.JSON(`{"subject":"math"}`),
		Tasks:          datatypes.JSON(`[]`),
		Trace:          datatypes.JSON(`[]`),
		Quota:          datatypes.JSON(`{}`),
	}
}

func TestWorksheetCreateAndFind(t *testing.T) {
	repo := NewWorksheetRepository(newTestDB(t))
	ctx := context.Background()

	ws := newWorksheet(7, "math")
	require.NoError(t, repo.Create(ctx, ws))
	require.NotEmpty(t, ws.ID)

	require.NoError(t, repo.UpdateArchiveURL(ctx, ws.ID, "/uploads/worksheets/x.json"))

	found, err := repo.FindByID(ctx, ws.ID)
	require.NoError(t, err)
	assert.Equal(t, uint(7), found.CreatorID)
	assert.Equal(t, "/uploads/worksheets/x.json", found.ArchiveURL)
	assert.JSONEq(t, `{"subject":"math"}`, string(found.Request))

	_, err = repo.FindByID(ctx, "missing")
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}

func TestWorksheetList(t *testing.T) {
	repo := NewWorksheetRepository(newTestDB(t))
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	for i, creator := range []uint{1, 1, 2, 1, 0} {
		ws := newWorksheet(creator, "math")
		ws.CreatedAt = base.Add(time.Duration(i) * time.Hour)
		require.NoError(t, repo.Create(ctx, ws))
	}

	list, total, err := repo.List(ctx, 1, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, list, 2)
	assert.True(t, list[0].CreatedAt.After(list[1].CreatedAt))
	// 列表不返回题目与轨迹
	assert.Empty(t, list[0].Tasks)
	assert.Empty(t, list[0].Trace)

	list, total, err = repo.List(ctx, 1, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, list, 1)

	// 匿名只列出匿名练习卷
	list, total, err = repo.List(ctx, 0, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, list, 1)
	assert.Zero(t, list[0].CreatorID)
}
