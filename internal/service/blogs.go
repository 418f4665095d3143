package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/Skotchmaster/etutoring/internal/models"
	"github.com/Skotchmaster/etutoring/internal/mykafka"
	"github.com/Skotchmaster/etutoring/internal/repo"
	"github.com/Skotchmaster/etutoring/internal/search"
)

const maxCommentLength = 2000

type BlogService struct {
	Repo     *repo.GormRepo
	Index    search.Index
	Events   *Events
	Notifier *NotificationService
}

type BlogInput struct {
	Title      *string
	Content    *string
	Visibility *string
}

func applyBlog(b *models.Blog, in BlogInput) error {
	if in.Title != nil {
		b.Title = strings.TrimSpace(*in.Title)
	}
	if in.Content != nil {
		b.Content = strings.TrimSpace(*in.Content)
	}
	if in.Visibility != nil {
		b.Visibility = *in.Visibility
	}
	if b.Visibility == "" {
		b.Visibility = models.BlogPublic
	}
	if b.Title == "" || b.Content == "" {
		return invalid("title and content are required")
	}
	if b.Visibility != models.BlogPublic && b.Visibility != models.BlogPrivate {
		return invalid("visibility must be public or private")
	}
	return nil
}

func (s *BlogService) Create(ctx context.Context, actor Actor, in BlogInput) (*models.Blog, error) {
	b := &models.Blog{AuthorID: actor.ID}
	if err := applyBlog(b, in); err != nil {
		return nil, err
	}
	if err := s.Repo.CreateBlog(ctx, b); err != nil {
		return nil, storeErr(err, "blog")
	}
	indexDoc(ctx, s.Index, search.BlogDoc(b))
	s.Events.Publish(ctx, mykafka.TopicContentEvents, b.ID.String(), "blog_created", map[string]any{
		"blog_id":   b.ID,
		"author_id": b.AuthorID,
	})
	return b, nil
}

func (s *BlogService) List(ctx context.Context, actor Actor, offset, limit int) (int64, []models.Blog, error) {
	var viewer *uuid.UUID
	if !actor.IsAdmin() {
		viewer = &actor.ID
	}
	total, items, err := s.Repo.ListBlogs(ctx, viewer, offset, limit)
	if err != nil {
		return 0, nil, storeErr(err, "blogs")
	}
	return total, items, nil
}

// Get hides private blogs of other authors as not found.
func (s *BlogService) Get(ctx context.Context, actor Actor, id uuid.UUID) (*models.Blog, error) {
	b, err := s.Repo.GetBlog(ctx, id)
	if err != nil {
		return nil, storeErr(err, "blog")
	}
	if b.Visibility == models.BlogPrivate && b.AuthorID != actor.ID && !actor.IsAdmin() {
		return nil, fmt.Errorf("blog %w", ErrNotFound)
	}
	return b, nil
}

func (s *BlogService) editable(ctx context.Context, actor Actor, id uuid.UUID) (*models.Blog, error) {
	b, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && b.AuthorID != actor.ID {
		return nil, forbidden("only the author can change this blog")
	}
	return b, nil
}

func (s *BlogService) Update(ctx context.Context, actor Actor, id uuid.UUID, in BlogInput) (*models.Blog, error) {
	b, err := s.editable(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := applyBlog(b, in); err != nil {
		return nil, err
	}
	if err := s.Repo.SaveBlog(ctx, b); err != nil {
		return nil, storeErr(err, "blog")
	}
	indexDoc(ctx, s.Index, search.BlogDoc(b))
	return b, nil
}

func (s *BlogService) Delete(ctx context.Context, actor Actor, id uuid.UUID) error {
	if _, err := s.editable(ctx, actor, id); err != nil {
		return err
	}
	if err := s.Repo.DeleteBlog(ctx, id); err != nil {
		return storeErr(err, "blog")
	}
	unindexDoc(ctx, s.Index, id.String())
	s.Events.Publish(ctx, mykafka.TopicContentEvents, id.String(), "blog_deleted", map[string]any{"blog_id": id})
	return nil
}

func (s *BlogService) AddComment(ctx context.Context, actor Actor, blogID uuid.UUID, content string) (*models.BlogComment, error) {
	b, err := s.Get(ctx, actor, blogID)
	if err != nil {
		return nil, err
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, invalid("content is required")
	}
	if len(content) > maxCommentLength {
		return nil, invalid("content exceeds %d characters", maxCommentLength)
	}

	c := &models.BlogComment{BlogID: blogID, AuthorID: actor.ID, Content: content}
	if err := s.Repo.CreateComment(ctx, c); err != nil {
		return nil, storeErr(err, "comment")
	}
	if b.AuthorID != actor.ID {
		s.Notifier.Notify(ctx, b.AuthorID, NotifyBlogComment, fmt.Sprintf("New comment on %q", b.Title))
	}
	return c, nil
}

func (s *BlogService) Comments(ctx context.Context, actor Actor, blogID uuid.UUID, offset, limit int) (int64, []models.BlogComment, error) {
	if _, err := s.Get(ctx, actor, blogID); err != nil {
		return 0, nil, err
	}
	total, items, err := s.Repo.ListComments(ctx, blogID, offset, limit)
	if err != nil {
		return 0, nil, storeErr(err, "comments")
	}
	return total, items, nil
}
