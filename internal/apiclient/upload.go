package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	apperrors "github.com/target/kb-assistant-web/internal/errors"
)

// File is one part of a multipart upload.
type File struct {
	// Field is the form field name ("file" or "files").
	Field    string
	Filename string
	Content  io.Reader
}

// Multipart is a form upload. Fields are written in the given order before files.
type Multipart struct {
	Fields []FormField
	Files  []File
	// Endpoint is a metrics label; see RequestConfig.Endpoint.
	Endpoint string
}

// FormField is a plain form value.
type FormField struct {
	Name  string
	Value string
}

// Upload POSTs a multipart form. The body is streamed through a pipe so large
// documents are never buffered whole.
func (c *Client) Upload(ctx context.Context, path string, form Multipart) (json.RawMessage, error) {
	if strings.TrimSpace(path) == "" {
		return nil, apperrors.Wrap(ErrEmptyPath, apperrors.ErrCodeValidation, "invalid request")
	}
	if len(form.Files) == 0 {
		return nil, apperrors.Validation("at least one file is required")
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(writeMultipart(mw, form))
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url(path), pr)
	if err != nil {
		_ = pr.CloseWithError(err)
		return nil, apperrors.Wrapf(err, apperrors.ErrCodeValidation, "build upload %s", path)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	raw, err := c.do(ctx, req, doParams{path: path, endpoint: form.Endpoint})
	// Unblock the writer goroutine if the transport gave up before draining the body.
	_ = pr.Close()
	return raw, err
}

func writeMultipart(mw *multipart.Writer, form Multipart) error {
	for _, f := range form.Fields {
		if err := mw.WriteField(f.Name, f.Value); err != nil {
			return fmt.Errorf("write field %s: %w", f.Name, err)
		}
	}
	for _, f := range form.Files {
		if f.Content == nil {
			return errors.New("upload file has no content")
		}
		part, err := mw.CreateFormFile(f.Field, f.Filename)
		if err != nil {
			return fmt.Errorf("create part %s: %w", f.Filename, err)
		}
		if _, err := io.Copy(part, f.Content); err != nil {
			return fmt.Errorf("copy %s: %w", f.Filename, err)
		}
	}
	return mw.Close()
}
