package httpx

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/target/kb-assistant-web/internal/adminapi"
	"github.com/target/kb-assistant-web/internal/domain/model"
	apperrors "github.com/target/kb-assistant-web/internal/errors"
	"github.com/target/kb-assistant-web/internal/http/validation"
)

const (
	kbListPath        = "/admin/kb"
	multipartMemLimit = 8 << 20
)

var visibilityOptions = []string{string(model.VisibilityPublic), string(model.VisibilityPrivate)}

// KBPage lists documents filtered by ?visibility and ?q.
func (h *UIHandlers) KBPage(w http.ResponseWriter, r *http.Request) {
	c := h.clientOr500(w, r)
	if c == nil {
		return
	}
	qv := r.URL.Query()
	filter := model.DocumentFilter{Visibility: qv.Get("visibility"), Search: qv.Get("q")}
	docs, err := c.Documents.List(backendCtx(r), filter)
	if err != nil && sessionLost(w, r, c) {
		return
	}
	data := basePageData(r, metaFor(PageKB, "Knowledge base"))
	data["Documents"] = docs
	data["Filter"] = filter
	data["VisibilityOptions"] = visibilityOptions
	data["MaxUploadBytes"] = h.MaxUploadBytes
	h.setLoadError(r, data, err, "kb")
	h.renderPage(w, r, data)
}

// KBDetail shows one document.
func (h *UIHandlers) KBDetail(w http.ResponseWriter, r *http.Request) {
	c := h.clientOr500(w, r)
	if c == nil {
		return
	}
	doc, err := c.Documents.Detail(backendCtx(r), r.PathValue("id"))
	if err != nil {
		if sessionLost(w, r, c) {
			return
		}
		if apperrors.IsNotFound(err) {
			h.NotFound(w, r)
			return
		}
	}
	data := basePageData(r, metaFor(PageKBDetail, "Document"))
	data["Document"] = doc
	data["VisibilityOptions"] = visibilityOptions
	h.setLoadError(r, data, err, "kb-detail")
	h.renderPage(w, r, data)
}

// KBUpload ingests one or more files. One file goes to the single endpoint,
// several to the batch endpoint.
func (h *UIHandlers) KBUpload(w http.ResponseWriter, r *http.Request) {
	c := h.clientOr500(w, r)
	if c == nil {
		return
	}
	if h.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.MaxUploadBytes)
	}
	if err := r.ParseMultipartForm(multipartMemLimit); err != nil {
		h.finishAction(w, r, actionOutcome{Err: uploadFormError(err), Redirect: kbListPath})
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	visibility := r.FormValue("visibility")
	fv := validation.New().
		Validate("visibility", visibility, validation.OneOf("Visibility", visibilityOptions)).
		Validate("doc_id", r.FormValue("doc_id"), validation.MaxLength("Document id", 128))
	if !fv.Valid() {
		h.finishAction(w, r, actionOutcome{Err: firstFieldError(fv.Errors()), Redirect: kbListPath})
		return
	}
	vis, _ := model.ParseVisibility(visibility)
	opts := model.IngestOptions{
		Visibility: vis,
		DocID:      strings.TrimSpace(r.FormValue("doc_id")),
		Overwrite:  isChecked(r.FormValue("overwrite")),
	}

	uploads, closeAll, err := openUploads(r.MultipartForm.File["files"])
	defer closeAll()
	if err != nil {
		h.finishAction(w, r, actionOutcome{Err: err, Redirect: kbListPath})
		return
	}

	res, err := c.Documents.Upload(backendCtx(r), uploads, opts)
	h.finishAction(w, r, actionOutcome{Err: err, Success: uploadSuccessMessage(len(uploads), res), Redirect: kbListPath})
}

func uploadFormError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return apperrors.ValidationField("files", fmt.Sprintf("upload exceeds the %s limit", formatBytes(tooLarge.Limit)))
	}
	return apperrors.ValidationField("files", "unable to read the uploaded files")
}

func firstFieldError(errs map[string]string) error {
	for field, msg := range errs {
		return apperrors.ValidationField(field, msg)
	}
	return nil
}

func openUploads(headers []*multipart.FileHeader) ([]adminapi.Upload, func(), error) {
	var files []multipart.File
	closeAll := func() {
		for _, f := range files {
			_ = f.Close()
		}
	}
	uploads := make([]adminapi.Upload, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			return nil, closeAll, apperrors.Wrapf(err, apperrors.ErrCodeValidation, "unable to read %s", fh.Filename)
		}
		files = append(files, f)
		uploads = append(uploads, adminapi.Upload{Filename: fh.Filename, Content: f})
	}
	return uploads, closeAll, nil
}

func uploadSuccessMessage(n int, res model.IngestResult) string {
	switch {
	case res.Message != "":
		return res.Message
	case n == 1 && res.DocID != "":
		return "Uploaded " + res.DocID + " (" + strconv.Itoa(res.ChunkCount) + " chunks)."
	default:
		return "Uploaded " + strconv.Itoa(n) + " document(s)."
	}
}

func isChecked(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "on", "true", "1", "yes":
		return true
	default:
		return false
	}
}

// KBDelete removes a document.
func (h *UIHandlers) KBDelete(w http.ResponseWriter, r *http.Request) {
	c := h.clientOr500(w, r)
	if c == nil {
		return
	}
	id := r.PathValue("id")
	err := c.Documents.Delete(backendCtx(r), id)
	h.finishAction(w, r, actionOutcome{Err: err, Success: "Deleted " + id + ".", Redirect: kbListPath})
}

// KBVisibility changes who can retrieve a document.
func (h *UIHandlers) KBVisibility(w http.ResponseWriter, r *http.Request) {
	c := h.clientOr500(w, r)
	if c == nil {
		return
	}
	id := r.PathValue("id")
	if err := r.ParseForm(); err != nil {
		h.finishAction(w, r, actionOutcome{Err: err, Redirect: kbListPath})
		return
	}
	raw := r.PostFormValue("visibility")
	err := c.Documents.SetVisibility(backendCtx(r), id, raw)
	vis, _ := model.ParseVisibility(raw)
	h.finishAction(w, r, actionOutcome{
		Err:      err,
		Success:  id + " is now " + string(vis) + ".",
		Redirect: returnPath(r, kbListPath),
	})
}

// KBReembed rebuilds a document's vectors.
func (h *UIHandlers) KBReembed(w http.ResponseWriter, r *http.Request) {
	c := h.clientOr500(w, r)
	if c == nil {
		return
	}
	id := r.PathValue("id")
	err := c.Documents.Reembed(backendCtx(r), id)
	h.finishAction(w, r, actionOutcome{Err: err, Success: "Re-embedding " + id + " started.", Redirect: returnPath(r, kbListPath)})
}

// returnPath honours a local "return_to" form value.
func returnPath(r *http.Request, fallback string) string {
	p := r.FormValue("return_to")
	if p == "" || !strings.HasPrefix(p, "/") || strings.HasPrefix(p, "//") || strings.Contains(p, "\\") {
		return fallback
	}
	return p
}
