// Package adminapi is a typed catalogue of the backend's endpoints. Each method
// is a single call through the API client; failures are returned unchanged.
package adminapi

import (
	"context"
	"io"
	"net/http"
	"strconv"

	"github.com/target/kb-assistant-web/internal/apiclient"
	"github.com/target/kb-assistant-web/internal/domain/model"
)

// Service exposes one method per backend endpoint.
type Service struct {
	api *apiclient.Client
}

// New wraps an API client.
func New(api *apiclient.Client) *Service {
	return &Service{api: api}
}

// ListRoles returns every role.
func (s *Service) ListRoles(ctx context.Context) (model.RoleList, error) {
	return apiclient.Do[model.RoleList](ctx, s.api, PathListRoles, apiclient.RequestConfig{})
}

// SetRoles creates or updates a role.
func (s *Service) SetRoles(ctx context.Context, role model.RoleInput) (any, error) {
	return apiclient.Do[any](ctx, s.api, PathSetRoles, apiclient.RequestConfig{Method: http.MethodPost, Body: role})
}

// ListPermissions returns permissions, restricted to module when it is non-empty.
func (s *Service) ListPermissions(ctx context.Context, module string) (model.PermissionList, error) {
	path, err := BuildPath(PathListPermissions, map[string]string{"module": module})
	if err != nil {
		return model.PermissionList{}, err
	}
	return apiclient.Do[model.PermissionList](ctx, s.api, path, apiclient.RequestConfig{Endpoint: "/rbac/list_permissions"})
}

// GetRolePermissions returns the permission codes granted to a role.
func (s *Service) GetRolePermissions(ctx context.Context, roleCode string) (model.RolePermissions, error) {
	path, err := BuildPath(PathRolePermissions, map[string]string{"role_code": roleCode})
	if err != nil {
		return model.RolePermissions{}, err
	}
	return apiclient.Do[model.RolePermissions](ctx, s.api, path, apiclient.RequestConfig{Endpoint: PathRolePermissions})
}

// SetRolePermissions replaces the permission codes granted to a role.
func (s *Service) SetRolePermissions(ctx context.Context, roleCode string, permCodes []string) (any, error) {
	path, err := BuildPath(PathRolePermissions, map[string]string{"role_code": roleCode})
	if err != nil {
		return nil, err
	}
	if permCodes == nil {
		permCodes = []string{}
	}
	return apiclient.Do[any](ctx, s.api, path, apiclient.RequestConfig{
		Method:   http.MethodPut,
		Body:     model.RolePermissions{PermCodes: permCodes},
		Endpoint: PathRolePermissions,
	})
}

// GetUserRoles returns the role codes assigned to a user.
func (s *Service) GetUserRoles(ctx context.Context, username string) (model.UserRoles, error) {
	path, err := BuildPath(PathUserRoles, map[string]string{"username": username})
	if err != nil {
		return model.UserRoles{}, err
	}
	return apiclient.Do[model.UserRoles](ctx, s.api, path, apiclient.RequestConfig{Endpoint: PathUserRoles})
}

// SetUserRoles replaces the role codes assigned to a user.
func (s *Service) SetUserRoles(ctx context.Context, username string, roleCodes []string) (any, error) {
	path, err := BuildPath(PathUserRoles, map[string]string{"username": username})
	if err != nil {
		return nil, err
	}
	if roleCodes == nil {
		roleCodes = []string{}
	}
	return apiclient.Do[any](ctx, s.api, path, apiclient.RequestConfig{
		Method:   http.MethodPut,
		Body:     model.RoleCodes{RoleCodes: roleCodes},
		Endpoint: PathUserRoles,
	})
}

// ListDocuments returns the knowledge-base documents.
func (s *Service) ListDocuments(ctx context.Context) (model.DocumentList, error) {
	return apiclient.Do[model.DocumentList](ctx, s.api, PathKBList, apiclient.RequestConfig{})
}

// CreateKB creates a knowledge-base entry.
func (s *Service) CreateKB(ctx context.Context, in model.KBInput) (any, error) {
	return apiclient.Do[any](ctx, s.api, PathKBCreate, apiclient.RequestConfig{Method: http.MethodPost, Body: in})
}

// UpdateKB updates a knowledge-base entry, e.g. its visibility.
func (s *Service) UpdateKB(ctx context.Context, id string, in model.KBInput) (any, error) {
	return s.kbCall(ctx, kbCall{tmpl: PathKBUpdate, id: id, method: http.MethodPut, body: in})
}

// DeleteKB removes a knowledge-base entry.
func (s *Service) DeleteKB(ctx context.Context, id string) (any, error) {
	return s.kbCall(ctx, kbCall{tmpl: PathKBDelete, id: id, method: http.MethodDelete})
}

// ReembedDocument asks the backend to re-chunk and re-embed a document.
func (s *Service) ReembedDocument(ctx context.Context, id string) (any, error) {
	return s.kbCall(ctx, kbCall{tmpl: PathKBReembed, id: id, method: http.MethodPost})
}

// KBDetail returns a single document.
func (s *Service) KBDetail(ctx context.Context, id string) (model.Document, error) {
	path, err := BuildPath(PathKBDetail, map[string]string{"kb_id": id})
	if err != nil {
		return model.Document{}, err
	}
	return apiclient.Do[model.Document](ctx, s.api, path, apiclient.RequestConfig{Endpoint: PathKBDetail})
}

type kbCall struct {
	tmpl   string
	id     string
	method string
	body   any
}

func (s *Service) kbCall(ctx context.Context, c kbCall) (any, error) {
	path, err := BuildPath(c.tmpl, map[string]string{"kb_id": c.id})
	if err != nil {
		return nil, err
	}
	return apiclient.Do[any](ctx, s.api, path, apiclient.RequestConfig{Method: c.method, Body: c.body, Endpoint: c.tmpl})
}

// Upload is one file to ingest.
type Upload struct {
	Filename string
	Content  io.Reader
}

// IngestDocument uploads a single file under the "file" field.
func (s *Service) IngestDocument(ctx context.Context, file Upload, opts model.IngestOptions) (model.IngestResult, error) {
	return s.ingest(ctx, PathKBIngest, "file", []Upload{file}, opts)
}

// IngestBatch uploads several files under the repeated "files" field.
func (s *Service) IngestBatch(ctx context.Context, files []Upload, opts model.IngestOptions) (model.IngestResult, error) {
	return s.ingest(ctx, PathKBIngestBatch, "files", files, opts)
}

func (s *Service) ingest(ctx context.Context, path, field string, files []Upload, opts model.IngestOptions) (model.IngestResult, error) {
	vis := opts.Visibility
	if vis == "" {
		vis = model.VisibilityPublic
	}
	form := apiclient.Multipart{
		Fields: []apiclient.FormField{{Name: "visibility", Value: string(vis)}},
	}
	if opts.DocID != "" {
		form.Fields = append(form.Fields, apiclient.FormField{Name: "doc_id", Value: opts.DocID})
	}
	form.Fields = append(form.Fields, apiclient.FormField{Name: "overwrite", Value: strconv.FormatBool(opts.Overwrite)})
	for _, f := range files {
		form.Files = append(form.Files, apiclient.File{Field: field, Filename: f.Filename, Content: f.Content})
	}

	raw, err := s.api.Upload(ctx, path, form)
	if err != nil {
		return model.IngestResult{}, err
	}
	var out model.IngestResult
	if err := out.UnmarshalJSON(raw); err != nil {
		return model.IngestResult{}, &apiclient.Error{Method: http.MethodPost, Path: path, Status: http.StatusOK, Message: apiclient.GenericFailureMessage}
	}
	return out, nil
}

// AdminStats returns the dashboard counters.
func (s *Service) AdminStats(ctx context.Context) (model.AdminStats, error) {
	return apiclient.Do[model.AdminStats](ctx, s.api, PathAdminStats, apiclient.RequestConfig{})
}

// SendChat posts a question and returns the assistant's answer.
func (s *Service) SendChat(ctx context.Context, req model.ChatRequest) (model.ChatReply, error) {
	return apiclient.Do[model.ChatReply](ctx, s.api, PathChat, apiclient.RequestConfig{Method: http.MethodPost, Body: req})
}
