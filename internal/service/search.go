package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/Skotchmaster/etutoring/internal/search"
)

type SearchService struct {
	Index search.Index
}

func (s *SearchService) Search(ctx context.Context, actor Actor, text, kind string, offset, limit int) (int64, []search.Doc, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, nil, invalid("q is required")
	}
	if !search.ValidKind(kind) {
		return 0, nil, invalid("type must be blog, document or course")
	}
	total, docs, err := s.Index.Search(ctx, search.Query{
		Text:     text,
		Kind:     kind,
		ViewerID: actor.ID,
		Admin:    actor.IsAdmin(),
		Offset:   offset,
		Limit:    limit,
	})
	if err != nil {
		return 0, nil, fmt.Errorf("search: %w", err)
	}
	return total, docs, nil
}
