package repo

import (
	"context"

	"github.com/google/uuid"

	"github.com/Skotchmaster/etutoring/internal/models"
)

type DocumentFilter struct {
	OwnerID *uuid.UUID
	ClassID *uuid.UUID
}

func (r *GormRepo) CreateDocument(ctx context.Context, d *models.Document) error {
	return r.DB.WithContext(ctx).Create(d).Error
}

func (r *GormRepo) GetDocument(ctx context.Context, id uuid.UUID) (*models.Document, error) {
	var d models.Document
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(&d).Error; err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *GormRepo) ListDocuments(ctx context.Context, f DocumentFilter, offset, limit int) (int64, []models.Document, error) {
	tx := r.DB.WithContext(ctx).Model(&models.Document{})
	if f.OwnerID != nil {
		tx = tx.Where("owner_id = ?", *f.OwnerID)
	}
	if f.ClassID != nil {
		tx = tx.Where("class_id = ?", *f.ClassID)
	}
	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return 0, nil, err
	}
	items := make([]models.Document, 0, limit)
	if err := tx.Order("created_at DESC").Offset(offset).Limit(limit).Find(&items).Error; err != nil {
		return 0, nil, err
	}
	return total, items, nil
}

func (r *GormRepo) DeleteDocument(ctx context.Context, id uuid.UUID) error {
	return affected(r.DB.WithContext(ctx).Delete(&models.Document{}, "id = ?", id))
}

func (r *GormRepo) CreateBlog(ctx context.Context, b *models.Blog) error {
	return r.DB.WithContext(ctx).Create(b).Error
}

func (r *GormRepo) GetBlog(ctx context.Context, id uuid.UUID) (*models.Blog, error) {
	var b models.Blog
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(&b).Error; err != nil {
		return nil, err
	}
	return &b, nil
}

// ListBlogs returns public blogs plus the viewer's own; all blogs when viewer is nil.
func (r *GormRepo) ListBlogs(ctx context.Context, viewer *uuid.UUID, offset, limit int) (int64, []models.Blog, error) {
	tx := r.DB.WithContext(ctx).Model(&models.Blog{})
	if viewer != nil {
		tx = tx.Where("visibility = ? OR author_id = ?", models.BlogPublic, *viewer)
	}
	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return 0, nil, err
	}
	items := make([]models.Blog, 0, limit)
	if err := tx.Order("created_at DESC").Offset(offset).Limit(limit).Find(&items).Error; err != nil {
		return 0, nil, err
	}
	return total, items, nil
}

func (r *GormRepo) SaveBlog(ctx context.Context, b *models.Blog) error {
	return r.DB.WithContext(ctx).Save(b).Error
}

func (r *GormRepo) DeleteBlog(ctx context.Context, id uuid.UUID) error {
	if err := r.DB.WithContext(ctx).Where("blog_id = ?", id).Delete(&models.BlogComment{}).Error; err != nil {
		return err
	}
	return affected(r.DB.WithContext(ctx).Delete(&models.Blog{}, "id = ?", id))
}

func (r *GormRepo) CreateComment(ctx context.Context, c *models.BlogComment) error {
	return r.DB.WithContext(ctx).Create(c).Error
}

func (r *GormRepo) ListComments(ctx context.Context, blogID uuid.UUID, offset, limit int) (int64, []models.BlogComment, error) {
	tx := r.DB.WithContext(ctx).Model(&models.BlogComment{}).Where("blog_id = ?", blogID)
	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return 0, nil, err
	}
	items := make([]models.BlogComment, 0, limit)
	if err := tx.Order("created_at ASC").Offset(offset).Limit(limit).Find(&items).Error; err != nil {
		return 0, nil, err
	}
	return total, items, nil
}
