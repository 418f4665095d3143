package service

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/Skotchmaster/etutoring/internal/logging"
	"github.com/Skotchmaster/etutoring/internal/models"
	"github.com/Skotchmaster/etutoring/internal/mykafka"
	"github.com/Skotchmaster/etutoring/internal/repo"
	"github.com/Skotchmaster/etutoring/internal/search"
	"github.com/Skotchmaster/etutoring/internal/storage"
)

type DocumentService struct {
	Repo   *repo.GormRepo
	Store  storage.ObjectStore
	Index  search.Index
	Events *Events
}

type UploadInput struct {
	Title       string
	ClassID     *uuid.UUID
	FileName    string
	ContentType string
	Size        int64
	Body        io.Reader
}

func (s *DocumentService) storeReady() error {
	if s.Store == nil {
		return fmt.Errorf("document storage %w", ErrUnavailable)
	}
	return nil
}

func cleanFileName(name string) string {
	name = path.Base(strings.ReplaceAll(name, `\`, "/"))
	if name == "." || name == "/" {
		return ""
	}
	return name
}

func (s *DocumentService) Upload(ctx context.Context, actor Actor, in UploadInput) (*models.Document, error) {
	if err := s.storeReady(); err != nil {
		return nil, err
	}
	fileName := cleanFileName(in.FileName)
	if fileName == "" || in.Body == nil {
		return nil, invalid("file is required")
	}
	if in.Size <= 0 {
		return nil, invalid("file is empty")
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		title = fileName
	}
	if in.ClassID != nil {
		ok, err := canAccessClass(ctx, s.Repo, actor, *in.ClassID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, forbidden("not a member of this class")
		}
	}

	id := uuid.New()
	doc := &models.Document{
		Base:        models.Base{ID: id},
		OwnerID:     actor.ID,
		ClassID:     in.ClassID,
		Title:       title,
		FileName:    fileName,
		ObjectKey:   fmt.Sprintf("documents/%s/%s", id, fileName),
		ContentType: in.ContentType,
		Size:        in.Size,
	}

	if err := s.Store.Put(ctx, doc.ObjectKey, in.Body, in.Size, in.ContentType); err != nil {
		return nil, fmt.Errorf("upload object: %w", err)
	}
	if err := s.Repo.CreateDocument(ctx, doc); err != nil {
		if rmErr := s.Store.Remove(ctx, doc.ObjectKey); rmErr != nil {
			logging.FromContext(ctx).Error("document_orphan_object", "key", doc.ObjectKey, "error", rmErr)
		}
		return nil, storeErr(err, "document")
	}

	indexDoc(ctx, s.Index, search.DocumentDoc(doc))
	s.Events.Publish(ctx, mykafka.TopicContentEvents, doc.ID.String(), "document_uploaded", map[string]any{
		"document_id": doc.ID,
		"owner_id":    doc.OwnerID,
		"size":        doc.Size,
	})
	return doc, nil
}

// List returns the caller's documents, a class's documents, or everything for an admin.
func (s *DocumentService) List(ctx context.Context, actor Actor, classID *uuid.UUID, offset, limit int) (int64, []models.Document, error) {
	f := repo.DocumentFilter{ClassID: classID}
	switch {
	case actor.IsAdmin():
	case classID != nil:
		ok, err := canAccessClass(ctx, s.Repo, actor, *classID)
		if err != nil {
			return 0, nil, err
		}
		if !ok {
			return 0, nil, forbidden("not a member of this class")
		}
	default:
		f.OwnerID = &actor.ID
	}
	total, items, err := s.Repo.ListDocuments(ctx, f, offset, limit)
	if err != nil {
		return 0, nil, storeErr(err, "documents")
	}
	return total, items, nil
}

func (s *DocumentService) canRead(ctx context.Context, actor Actor, d *models.Document) (bool, error) {
	if actor.IsAdmin() || d.OwnerID == actor.ID {
		return true, nil
	}
	if d.ClassID == nil {
		return false, nil
	}
	return canAccessClass(ctx, s.Repo, actor, *d.ClassID)
}

func (s *DocumentService) Get(ctx context.Context, actor Actor, id uuid.UUID) (*models.Document, error) {
	d, err := s.Repo.GetDocument(ctx, id)
	if err != nil {
		return nil, storeErr(err, "document")
	}
	ok, err := s.canRead(ctx, actor, d)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, forbidden("no access to this document")
	}
	return d, nil
}

// Download returns the metadata and an open object; the caller closes Body.
func (s *DocumentService) Download(ctx context.Context, actor Actor, id uuid.UUID) (*models.Document, *storage.Object, error) {
	if err := s.storeReady(); err != nil {
		return nil, nil, err
	}
	d, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, nil, err
	}
	obj, err := s.Store.Get(ctx, d.ObjectKey)
	if err != nil {
		return nil, nil, fmt.Errorf("download object: %w", err)
	}
	return d, obj, nil
}

func (s *DocumentService) Delete(ctx context.Context, actor Actor, id uuid.UUID) error {
	if err := s.storeReady(); err != nil {
		return err
	}
	d, err := s.Repo.GetDocument(ctx, id)
	if err != nil {
		return storeErr(err, "document")
	}
	if !actor.IsAdmin() && d.OwnerID != actor.ID {
		return forbidden("only the owner can delete a document")
	}
	if err := s.Store.Remove(ctx, d.ObjectKey); err != nil {
		return fmt.Errorf("remove object: %w", err)
	}
	if err := s.Repo.DeleteDocument(ctx, id); err != nil {
		return storeErr(err, "document")
	}
	unindexDoc(ctx, s.Index, id.String())
	s.Events.Publish(ctx, mykafka.TopicContentEvents, id.String(), "document_deleted", map[string]any{"document_id": id})
	return nil
}
