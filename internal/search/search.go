package search

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	KindBlog     = "blog"
	KindDocument = "document"
	KindCourse   = "course"
)

func ValidKind(kind string) bool {
	switch kind {
	case "", KindBlog, KindDocument, KindCourse:
		return true
	}
	return false
}

type Doc struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	OwnerID   string    `json:"owner_id"`
	Public    bool      `json:"public"`
	CreatedAt time.Time `json:"created_at"`
}

// Query filters hits to public docs and the viewer's own, unless Admin is set.
type Query struct {
	Text     string
	Kind     string
	ViewerID uuid.UUID
	Admin    bool
	Offset   int
	Limit    int
}

type Index interface {
	Search(ctx context.Context, q Query) (int64, []Doc, error)
	Upsert(ctx context.Context, doc Doc) error
	Remove(ctx context.Context, id string) error
}
