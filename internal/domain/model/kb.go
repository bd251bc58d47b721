//revive:disable-next-line:var-naming // matches the backend resource vocabulary
package model

import (
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// Visibility controls who can retrieve a document's chunks.
type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
)

// Valid reports whether the visibility is supported.
func (v Visibility) Valid() bool {
	return v == VisibilityPublic || v == VisibilityPrivate
}

// ParseVisibility normalizes input, defaulting blank values to public.
func ParseVisibility(s string) (Visibility, bool) {
	v := Visibility(strings.ToLower(strings.TrimSpace(s)))
	if v == "" {
		return VisibilityPublic, true
	}
	return v, v.Valid()
}

// Document is an ingested knowledge-base document.
type Document struct {
	DocID            string     `json:"doc_id"`
	OriginalFilename string     `json:"original_filename"`
	StoredPath       string     `json:"stored_path,omitempty"`
	Visibility       Visibility `json:"visibility"`
	UploaderUserID   int64      `json:"uploader_user_id,omitempty"`
	UploaderUsername string     `json:"uploader_username,omitempty"`
	ChunkCount       int        `json:"chunk_count"`
	FileSize         int64      `json:"file_size,omitempty"`
	CreatedAt        *time.Time `json:"created_at,omitempty"`
	UpdatedAt        *time.Time `json:"updated_at,omitempty"`
}

// DocumentList accepts either a bare array or an object wrapping the documents
// under "documents", "items" or "kbs".
type DocumentList []Document

// UnmarshalJSON implements json.Unmarshaler.
func (l *DocumentList) UnmarshalJSON(b []byte) error {
	trimmed := strings.TrimSpace(string(b))
	if trimmed == "null" || trimmed == "" {
		*l = nil
		return nil
	}
	if strings.HasPrefix(trimmed, "[") {
		var docs []Document
		if err := json.Unmarshal(b, &docs); err != nil {
			return err
		}
		*l = docs
		return nil
	}
	var wrapped struct {
		Documents []Document `json:"documents"`
		Items     []Document `json:"items"`
		KBs       []Document `json:"kbs"`
	}
	if err := json.Unmarshal(b, &wrapped); err != nil {
		return err
	}
	switch {
	case wrapped.Documents != nil:
		*l = wrapped.Documents
	case wrapped.Items != nil:
		*l = wrapped.Items
	default:
		*l = wrapped.KBs
	}
	return nil
}

// DocumentFilter narrows a document listing client side.
type DocumentFilter struct {
	// Visibility filters exactly; empty or "all" keeps every document.
	Visibility string
	// Search matches filename, document id or uploader, case-insensitively.
	Search string
}

// Apply returns the matching documents in their original order.
func (f DocumentFilter) Apply(docs []Document) []Document {
	vis := strings.ToLower(strings.TrimSpace(f.Visibility))
	term := strings.ToLower(strings.TrimSpace(f.Search))
	out := make([]Document, 0, len(docs))
	for _, d := range docs {
		if vis != "" && vis != "all" && string(d.Visibility) != vis {
			continue
		}
		if term != "" && !containsFold(term, d.OriginalFilename, d.DocID, d.UploaderUsername) {
			continue
		}
		out = append(out, d)
	}
	return out
}

// KBInput is the body for create and update calls.
type KBInput struct {
	Name        string     `json:"name,omitempty"`
	Description string     `json:"description,omitempty"`
	Visibility  Visibility `json:"visibility,omitempty"`
}

// IngestOptions are the form fields sent alongside uploaded files.
type IngestOptions struct {
	Visibility Visibility
	DocID      string
	Overwrite  bool
}

// Validate checks the visibility value.
func (o IngestOptions) Validate() error {
	if o.Visibility != "" && !o.Visibility.Valid() {
		return errors.New("visibility must be public or private")
	}
	return nil
}

// IngestResult is the backend's answer to an upload. Unknown fields are kept in Raw.
type IngestResult struct {
	DocID      string          `json:"doc_id,omitempty"`
	ChunkCount int             `json:"chunk_count,omitempty"`
	Message    string          `json:"message,omitempty"`
	Raw        json.RawMessage `json:"-"`
}

// UnmarshalJSON keeps the raw body for display.
func (r *IngestResult) UnmarshalJSON(b []byte) error {
	type plain IngestResult
	var p plain
	// Batch responses may be arrays; those only populate Raw.
	if strings.HasPrefix(strings.TrimSpace(string(b)), "{") {
		if err := json.Unmarshal(b, &p); err != nil {
			return err
		}
	}
	*r = IngestResult(p)
	r.Raw = append(json.RawMessage(nil), b...)
	return nil
}
