package search

import "github.com/Skotchmaster/etutoring/internal/models"

func BlogDoc(b *models.Blog) Doc {
	return Doc{
		ID:        b.ID.String(),
		Kind:      KindBlog,
		Title:     b.Title,
		Body:      b.Content,
		OwnerID:   b.AuthorID.String(),
		Public:    b.Visibility == models.BlogPublic,
		CreatedAt: b.CreatedAt,
	}
}

func DocumentDoc(d *models.Document) Doc {
	return Doc{
		ID:        d.ID.String(),
		Kind:      KindDocument,
		Title:     d.Title,
		Body:      d.FileName,
		OwnerID:   d.OwnerID.String(),
		CreatedAt: d.CreatedAt,
	}
}

func CourseDoc(c *models.Course) Doc {
	return Doc{
		ID:        c.ID.String(),
		Kind:      KindCourse,
		Title:     c.Code + " " + c.Title,
		Body:      c.Description,
		OwnerID:   c.OwnerID.String(),
		Public:    true,
		CreatedAt: c.CreatedAt,
	}
}
