package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/target/kb-assistant-web/internal/adminapi"
	"github.com/target/kb-assistant-web/internal/domain/model"
	apperrors "github.com/target/kb-assistant-web/internal/errors"
)

// DocumentBackend is the subset of the admin API the document screens use.
type DocumentBackend interface {
	ListDocuments(ctx context.Context) (model.DocumentList, error)
	KBDetail(ctx context.Context, id string) (model.Document, error)
	UpdateKB(ctx context.Context, id string, in model.KBInput) (any, error)
	DeleteKB(ctx context.Context, id string) (any, error)
	ReembedDocument(ctx context.Context, id string) (any, error)
	IngestDocument(ctx context.Context, file adminapi.Upload, opts model.IngestOptions) (model.IngestResult, error)
	IngestBatch(ctx context.Context, files []adminapi.Upload, opts model.IngestOptions) (model.IngestResult, error)
}

var _ DocumentBackend = (*adminapi.Service)(nil)

// DocumentService adds input checks and upload routing on top of the admin API.
type DocumentService struct {
	backend DocumentBackend
}

// NewDocumentService constructs a DocumentService.
func NewDocumentService(backend DocumentBackend) *DocumentService {
	return &DocumentService{backend: backend}
}

// List fetches every document and filters client side.
func (s *DocumentService) List(ctx context.Context, filter model.DocumentFilter) ([]model.Document, error) {
	docs, err := s.backend.ListDocuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return filter.Apply(docs), nil
}

// Detail fetches one document.
func (s *DocumentService) Detail(ctx context.Context, id string) (model.Document, error) {
	id, err := requireID(id)
	if err != nil {
		return model.Document{}, err
	}
	return s.backend.KBDetail(ctx, id)
}

// Upload sends one file to the single-ingest endpoint and several to the batch endpoint.
func (s *DocumentService) Upload(ctx context.Context, files []adminapi.Upload, opts model.IngestOptions) (model.IngestResult, error) {
	if err := opts.Validate(); err != nil {
		return model.IngestResult{}, apperrors.ValidationField("visibility", err.Error())
	}
	switch len(files) {
	case 0:
		return model.IngestResult{}, apperrors.ValidationField("files", "select at least one file")
	case 1:
		return s.backend.IngestDocument(ctx, files[0], opts)
	default:
		// A document id names exactly one file.
		opts.DocID = ""
		return s.backend.IngestBatch(ctx, files, opts)
	}
}

// SetVisibility changes who can retrieve a document.
func (s *DocumentService) SetVisibility(ctx context.Context, id, visibility string) error {
	id, err := requireID(id)
	if err != nil {
		return err
	}
	vis, ok := model.ParseVisibility(visibility)
	if !ok {
		return apperrors.ValidationField("visibility", "visibility must be public or private")
	}
	_, err = s.backend.UpdateKB(ctx, id, model.KBInput{Visibility: vis})
	return err
}

// Delete removes a document.
func (s *DocumentService) Delete(ctx context.Context, id string) error {
	id, err := requireID(id)
	if err != nil {
		return err
	}
	_, err = s.backend.DeleteKB(ctx, id)
	return err
}

// Reembed asks the backend to rebuild a document's vectors.
func (s *DocumentService) Reembed(ctx context.Context, id string) error {
	id, err := requireID(id)
	if err != nil {
		return err
	}
	_, err = s.backend.ReembedDocument(ctx, id)
	return err
}

func requireID(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", apperrors.ValidationField("doc_id", "document id is required")
	}
	return id, nil
}
