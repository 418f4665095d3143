package httpserver

import (
	"fmt"
	"mime"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/etutoring/internal/logging"
	"github.com/Skotchmaster/etutoring/internal/service"
	"github.com/Skotchmaster/etutoring/internal/transport"
)

type DocumentHTTP struct {
	Svc *service.DocumentService
}

func (h *DocumentHTTP) Upload(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "documents.upload")

	fh, err := c.FormFile("file")
	if err != nil {
		return badRequest(l, "document_upload_error", "file is required", err)
	}
	var classID *uuid.UUID
	if raw := c.FormValue("class_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return badRequest(l, "document_upload_error", "class_id is not a uuid", err)
		}
		classID = &id
	}

	f, err := fh.Open()
	if err != nil {
		return badRequest(l, "document_upload_error", "cannot read file", err)
	}
	defer f.Close()

	contentType := fh.Header.Get(echo.HeaderContentType)
	if contentType == "" {
		contentType = echo.MIMEOctetStream
	}
	doc, err := h.Svc.Upload(ctx, actorOf(c), service.UploadInput{
		Title:       c.FormValue("title"),
		ClassID:     classID,
		FileName:    fh.Filename,
		ContentType: contentType,
		Size:        fh.Size,
		Body:        f,
	})
	if err != nil {
		return fail(l, "document_upload_error", err)
	}

	l.Info("document_uploaded", "document_id", doc.ID, "size", doc.Size)
	return c.JSON(http.StatusCreated, doc)
}

func (h *DocumentHTTP) List(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "documents.list")

	classID, err := optionalID(c, "class_id")
	if err != nil {
		return badRequest(l, "documents_list_failed", "class_id is not a uuid", err)
	}
	p := pageOf(c)
	total, items, err := h.Svc.List(ctx, actorOf(c), classID, p.Offset, p.Limit)
	if err != nil {
		return fail(l, "documents_list_failed", err)
	}
	return c.JSON(http.StatusOK, transport.NewList(items, p, total))
}

func (h *DocumentHTTP) Get(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "documents.get")

	id, err := parseID(c, "id")
	if err != nil {
		return badRequest(l, "document_get_failed", "id is not a uuid", err)
	}
	doc, err := h.Svc.Get(ctx, actorOf(c), id)
	if err != nil {
		return fail(l, "document_get_failed", err)
	}
	return c.JSON(http.StatusOK, doc)
}

func (h *DocumentHTTP) Download(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "documents.download")

	id, err := parseID(c, "id")
	if err != nil {
		return badRequest(l, "document_download_failed", "id is not a uuid", err)
	}
	doc, obj, err := h.Svc.Download(ctx, actorOf(c), id)
	if err != nil {
		return fail(l, "document_download_failed", err)
	}
	defer obj.Body.Close()

	disposition := mime.FormatMediaType("attachment", map[string]string{"filename": doc.FileName})
	if disposition == "" {
		disposition = fmt.Sprintf("attachment; filename=%q", doc.ID.String())
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, disposition)
	contentType := obj.ContentType
	if contentType == "" {
		contentType = doc.ContentType
	}
	return c.Stream(http.StatusOK, contentType, obj.Body)
}

func (h *DocumentHTTP) Delete(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "documents.delete")

	id, err := parseID(c, "id")
	if err != nil {
		return badRequest(l, "document_delete_failed", "id is not a uuid", err)
	}
	if err := h.Svc.Delete(ctx, actorOf(c), id); err != nil {
		return fail(l, "document_delete_failed", err)
	}
	return c.NoContent(http.StatusNoContent)
}

type BlogHTTP struct {
	Svc *service.BlogService
}

func blogInput(req transport.BlogRequest) service.BlogInput {
	return service.BlogInput{Title: req.Title, Content: req.Content, Visibility: req.Visibility}
}

func (h *BlogHTTP) List(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "blogs.list")

	p := pageOf(c)
	total, items, err := h.Svc.List(ctx, actorOf(c), p.Offset, p.Limit)
	if err != nil {
		return fail(l, "blogs_list_failed", err)
	}
	return c.JSON(http.StatusOK, transport.NewList(items, p, total))
}

func (h *BlogHTTP) Get(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "blogs.get")

	id, err := parseID(c, "id")
	if err != nil {
		return badRequest(l, "blog_get_failed", "id is not a uuid", err)
	}
	b, err := h.Svc.Get(ctx, actorOf(c), id)
	if err != nil {
		return fail(l, "blog_get_failed", err)
	}
	return c.JSON(http.StatusOK, b)
}

func (h *BlogHTTP) Create(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "blogs.create")

	var req transport.BlogRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "blog_create_failed", "invalid body", err)
	}
	b, err := h.Svc.Create(ctx, actorOf(c), blogInput(req))
	if err != nil {
		return fail(l, "blog_create_failed", err)
	}

	l.Info("blog_created", "blog_id", b.ID)
	return c.JSON(http.StatusCreated, b)
}

func (h *BlogHTTP) Update(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "blogs.update")

	id, err := parseID(c, "id")
	if err != nil {
		return badRequest(l, "blog_update_failed", "id is not a uuid", err)
	}
	var req transport.BlogRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "blog_update_failed", "invalid body", err)
	}
	b, err := h.Svc.Update(ctx, actorOf(c), id, blogInput(req))
	if err != nil {
		return fail(l, "blog_update_failed", err)
	}
	return c.JSON(http.StatusOK, b)
}

func (h *BlogHTTP) Delete(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "blogs.delete")

	id, err := parseID(c, "id")
	if err != nil {
		return badRequest(l, "blog_delete_failed", "id is not a uuid", err)
	}
	if err := h.Svc.Delete(ctx, actorOf(c), id); err != nil {
		return fail(l, "blog_delete_failed", err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *BlogHTTP) AddComment(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "blogs.comment")

	id, err := parseID(c, "id")
	if err != nil {
		return badRequest(l, "comment_create_failed", "id is not a uuid", err)
	}
	var req transport.CommentRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "comment_create_failed", "invalid body", err)
	}
	cm, err := h.Svc.AddComment(ctx, actorOf(c), id, req.Content)
	if err != nil {
		return fail(l, "comment_create_failed", err)
	}
	return c.JSON(http.StatusCreated, cm)
}

func (h *BlogHTTP) Comments(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "blogs.comments")

	id, err := parseID(c, "id")
	if err != nil {
		return badRequest(l, "comments_list_failed", "id is not a uuid", err)
	}
	p := pageOf(c)
	total, items, err := h.Svc.Comments(ctx, actorOf(c), id, p.Offset, p.Limit)
	if err != nil {
		return fail(l, "comments_list_failed", err)
	}
	return c.JSON(http.StatusOK, transport.NewList(items, p, total))
}
