package api

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/tendant/simple-files/pkg/simplefiles"
)

// CreateFileRequest is the upload body. ParentID may be absent, null, 0 or
// an id string; Data is base64 encoded.
type CreateFileRequest struct {
	Name     string          `json:"name"`
	Type     string          `json:"type"`
	ParentID json.RawMessage `json:"parentId,omitempty"`
	IsPublic bool            `json:"isPublic"`
	Data     string          `json:"data,omitempty"`
}

// FileResponse is the public view of an object. The content location is
// never exposed.
type FileResponse struct {
	ID       string `json:"id"`
	UserID   string `json:"userId"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	IsPublic bool   `json:"isPublic"`
	ParentID string `json:"parentId"`
}

func toFileResponse(o *simplefiles.Object) FileResponse {
	return FileResponse{
		ID:       o.ID.String(),
		UserID:   o.OwnerID.String(),
		Name:     o.Name,
		Type:     string(o.Kind),
		IsPublic: o.IsPublic,
		ParentID: simplefiles.FormatParentID(o.ParentID),
	}
}

// dataEncodings are tried in order; padded and unpadded, standard and
// URL-safe alphabets are all accepted.
var dataEncodings = []*base64.Encoding{
	base64.StdEncoding,
	base64.RawStdEncoding,
	base64.URLEncoding,
	base64.RawURLEncoding,
}

// decodeData returns nil for payloads no encoding accepts, which are then
// reported as missing.
func decodeData(s string) []byte {
	for _, enc := range dataEncodings {
		if data, err := enc.DecodeString(s); err == nil {
			return data
		}
	}
	return nil
}

// CreateFile stores a folder, file or image
func (h *Handler) CreateFile(w http.ResponseWriter, r *http.Request) {
	var req CreateFileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, r, http.StatusBadRequest, msgInvalidBody)
		return
	}

	data := decodeData(req.Data)

	createReq := simplefiles.CreateObjectRequest{
		Name:     req.Name,
		Kind:     simplefiles.Kind(req.Type),
		IsPublic: req.IsPublic,
		Data:     data,
	}
	if err := createReq.Validate(); err != nil {
		writeError(w, r, err)
		return
	}
	parentID, err := simplefiles.ParseParentIDJSON(req.ParentID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	createReq.ParentID = parentID

	object, err := h.service.CreateObject(r.Context(), UserIDFromContext(r.Context()), createReq)
	if err != nil {
		writeError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, toFileResponse(object))
}

// GetFile returns one object visible to the caller
func (h *Handler) GetFile(w http.ResponseWriter, r *http.Request) {
	id, err := simplefiles.ParseObjectID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	object, err := h.service.GetObject(r.Context(), UserIDFromContext(r.Context()), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, toFileResponse(object))
}

// ListFiles returns one page of the caller's objects under parentId
func (h *Handler) ListFiles(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	parentID, err := simplefiles.ParseParentID(query.Get("parentId"))
	if err != nil {
		// An unknown parent simply has no children
		render.JSON(w, r, []FileResponse{})
		return
	}

	page, err := strconv.Atoi(query.Get("page"))
	if err != nil {
		page = 0
	}

	objects, err := h.service.ListObjects(r.Context(), UserIDFromContext(r.Context()), parentID, page)
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := make([]FileResponse, 0, len(objects))
	for _, object := range objects {
		resp = append(resp, toFileResponse(object))
	}
	render.JSON(w, r, resp)
}

// PublishFile makes an object public
func (h *Handler) PublishFile(w http.ResponseWriter, r *http.Request) {
	h.setVisibility(w, r, true)
}

// UnpublishFile makes an object private
func (h *Handler) UnpublishFile(w http.ResponseWriter, r *http.Request) {
	h.setVisibility(w, r, false)
}

func (h *Handler) setVisibility(w http.ResponseWriter, r *http.Request, isPublic bool) {
	id, err := simplefiles.ParseObjectID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	object, err := h.service.SetVisibility(r.Context(), UserIDFromContext(r.Context()), id, isPublic)
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, toFileResponse(object))
}

// GetFileData streams the content of a file or image, or one of the image
// thumbnails when size is set.
func (h *Handler) GetFileData(w http.ResponseWriter, r *http.Request) {
	id, err := simplefiles.ParseObjectID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	width := 0
	if size := r.URL.Query().Get("size"); size != "" {
		width, err = strconv.Atoi(size)
		if err != nil {
			writeMessage(w, r, http.StatusBadRequest, msgInvalidSize)
			return
		}
		if width <= 0 {
			writeError(w, r, simplefiles.ErrContentNotFound)
			return
		}
	}

	content, err := h.service.FetchContent(r.Context(), UserIDFromContext(r.Context()), id, width)
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", content.MimeType)
	w.Header().Set("Content-Length", strconv.Itoa(len(content.Data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(content.Data)
}
