package repository

import (
	"context"
	"worksheet_backend/internal/model"

	"gorm.io/gorm"
)

type WorksheetRepository struct {
	DB *gorm.DB
}

func NewWorksheetRepository(db *gorm.DB) *WorksheetRepository {
	return &WorksheetRepository{DB: db}
}

func (r *WorksheetRepository) Create(ctx context.Context, ws *model.Worksheet) error {
	return r.DB.WithContext(ctx).Create(ws).Error
}

func (r *WorksheetRepository) UpdateArchiveURL(ctx context.Context, id, url string) error {
	return r.DB.WithContext(ctx).Model(&model.Worksheet{}).
		Where("id = ?", id).
		Update("archive_url", url).
		Error
}

func (r *WorksheetRepository) FindByID(ctx context.Context, id string) (*model.Worksheet, error) {
	var ws model.Worksheet
	err := r.DB.WithContext(ctx).First(&ws, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &ws, nil
}

// List 按创建时间倒序分页，只列出该创建者的练习卷；creatorID 为 0 时只列匿名练习卷
func (r *WorksheetRepository) List(ctx context.Context, creatorID uint, page, limit int) ([]model.Worksheet, int64, error) {
	var (
		list  []model.Worksheet
		total int64
	)

	query := r.DB.WithContext(ctx).Model(&model.Worksheet{}).
		Where("creator_id = ?", creatorID).
		Session(&gorm.Session{})

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	err := query.Omit("tasks", "trace", "request").
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&list).Error
	return list, total, err
}
