package search

import (
	"context"
	"sort"
	"strings"

	"gorm.io/gorm"

	"github.com/Skotchmaster/etutoring/internal/models"
)

// SQLIndex answers queries straight from the relational tables with LIKE matching.
type SQLIndex struct {
	DB *gorm.DB
}

func NewSQLIndex(db *gorm.DB) *SQLIndex {
	return &SQLIndex{DB: db}
}

func (x *SQLIndex) Upsert(context.Context, Doc) error { return nil }

func (x *SQLIndex) Remove(context.Context, string) error { return nil }

func (x *SQLIndex) Search(ctx context.Context, q Query) (int64, []Doc, error) {
	pattern := "%" + escapeLike(strings.ToLower(q.Text)) + "%"
	window := q.Offset + q.Limit

	kinds := []string{KindBlog, KindDocument, KindCourse}
	if q.Kind != "" {
		kinds = []string{q.Kind}
	}

	var total int64
	var docs []Doc
	for _, kind := range kinds {
		n, found, err := x.searchKind(ctx, kind, pattern, q, window)
		if err != nil {
			return 0, nil, err
		}
		total += n
		docs = append(docs, found...)
	}

	sort.SliceStable(docs, func(i, j int) bool { return docs[i].CreatedAt.After(docs[j].CreatedAt) })
	if q.Offset >= len(docs) {
		return total, []Doc{}, nil
	}
	end := q.Offset + q.Limit
	if end > len(docs) {
		end = len(docs)
	}
	return total, docs[q.Offset:end], nil
}

func (x *SQLIndex) searchKind(ctx context.Context, kind, pattern string, q Query, window int) (int64, []Doc, error) {
	db := x.DB.WithContext(ctx)
	var total int64

	switch kind {
	case KindBlog:
		tx := db.Model(&models.Blog{}).
			Where("(LOWER(title) LIKE ? ESCAPE '\\' OR LOWER(content) LIKE ? ESCAPE '\\')", pattern, pattern)
		if !q.Admin {
			tx = tx.Where("visibility = ? OR author_id = ?", models.BlogPublic, q.ViewerID)
		}
		if err := tx.Count(&total).Error; err != nil {
			return 0, nil, err
		}
		var blogs []models.Blog
		if err := tx.Order("created_at DESC").Limit(window).Find(&blogs).Error; err != nil {
			return 0, nil, err
		}
		docs := make([]Doc, len(blogs))
		for i := range blogs {
			docs[i] = BlogDoc(&blogs[i])
		}
		return total, docs, nil

	case KindDocument:
		tx := db.Model(&models.Document{}).
			Where("(LOWER(title) LIKE ? ESCAPE '\\' OR LOWER(file_name) LIKE ? ESCAPE '\\')", pattern, pattern)
		if !q.Admin {
			tx = tx.Where("owner_id = ?", q.ViewerID)
		}
		if err := tx.Count(&total).Error; err != nil {
			return 0, nil, err
		}
		var items []models.Document
		if err := tx.Order("created_at DESC").Limit(window).Find(&items).Error; err != nil {
			return 0, nil, err
		}
		docs := make([]Doc, len(items))
		for i := range items {
			docs[i] = DocumentDoc(&items[i])
		}
		return total, docs, nil

	default:
		tx := db.Model(&models.Course{}).
			Where("(LOWER(title) LIKE ? ESCAPE '\\' OR LOWER(code) LIKE ? ESCAPE '\\' OR LOWER(description) LIKE ? ESCAPE '\\')", pattern, pattern, pattern)
		if err := tx.Count(&total).Error; err != nil {
			return 0, nil, err
		}
		var courses []models.Course
		if err := tx.Order("created_at DESC").Limit(window).Find(&courses).Error; err != nil {
			return 0, nil, err
		}
		docs := make([]Doc, len(courses))
		for i := range courses {
			docs[i] = CourseDoc(&courses[i])
		}
		return total, docs, nil
	}
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
