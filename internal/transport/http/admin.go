package http

import (
	"io"
	"mime"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"mcq-practice-service/internal/domain"
)

const maxImportBytes = 10 << 20

func (h *Handler) SaveCategory(w http.ResponseWriter, r *http.Request) {
	var cat domain.Category
	if err := decodeJSON(w, r, &cat); err != nil {
		writeDomainError(w, r, err)
		return
	}
	if id := chi.URLParam(r, "categoryID"); id != "" {
		cat.ID = id
	}
	if err := h.service.SaveCategory(r.Context(), cat); err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cat)
}

func (h *Handler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteCategory(r.Context(), chi.URLParam(r, "categoryID")); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type subcategoryRequest struct {
	Name string `json:"name"`
	Icon string `json:"icon"`
}

func (h *Handler) AddSubcategory(w http.ResponseWriter, r *http.Request) {
	var req subcategoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDomainError(w, r, err)
		return
	}
	sub, err := h.service.AddSubcategory(r.Context(), chi.URLParam(r, "categoryID"), req.Name, req.Icon)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sub)
}

func (h *Handler) EditSubcategory(w http.ResponseWriter, r *http.Request) {
	var req subcategoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDomainError(w, r, err)
		return
	}
	err := h.service.EditSubcategory(r.Context(), chi.URLParam(r, "categoryID"), chi.URLParam(r, "subcategoryID"), req.Name, req.Icon)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) DeleteSubcategory(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteSubcategory(r.Context(), chi.URLParam(r, "categoryID"), chi.URLParam(r, "subcategoryID")); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListPendingMCQs(w http.ResponseWriter, r *http.Request) {
	limit, err := queryLimit(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "invalid limit")
		return
	}
	mcqs, err := h.service.FetchPendingMCQs(r.Context(), limit)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mcqs)
}

func (h *Handler) ListAdminMCQs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	mcqs, err := h.service.FetchMCQsForAdmin(r.Context(), q.Get("categoryId"), q.Get("subcategoryId"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mcqs)
}

func (h *Handler) CreateMCQ(w http.ResponseWriter, r *http.Request) {
	var req mcqRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDomainError(w, r, err)
		return
	}
	if msg := req.validate(); msg != "" {
		writeError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", msg)
		return
	}
	mcq := req.mcq()
	mcq.CreatedByUID = mustIdentity(r).UID
	id, err := h.service.CreateMCQAsAdmin(r.Context(), mcq)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (h *Handler) ApproveMCQ(w http.ResponseWriter, r *http.Request) {
	if err := h.service.ApproveMCQ(r.Context(), chi.URLParam(r, "mcqID")); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) DeleteMCQ(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteMCQ(r.Context(), chi.URLParam(r, "mcqID")); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ImportMCQs accepts a CSV body directly or as the "file" field of a
// multipart form.
func (h *Handler) ImportMCQs(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImportBytes)

	var src io.Reader = r.Body
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		file, _, err := r.FormFile("file")
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "missing file field")
			return
		}
		defer file.Close()
		src = file
	}

	report, err := h.service.ImportMCQsCSV(r.Context(), src)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	h.logger.Info("csv import", zap.String("by", mustIdentity(r).UID), zap.Int("imported", report.Imported))
	writeJSON(w, http.StatusOK, report)
}

func (h *Handler) Seed(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.Seed(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *Handler) ListAllComments(w http.ResponseWriter, r *http.Request) {
	comments, err := h.service.FetchCommentsForAdmin(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, comments)
}

func (h *Handler) ApproveComment(w http.ResponseWriter, r *http.Request) {
	if err := h.service.ApproveComment(r.Context(), chi.URLParam(r, "commentID")); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) RevokeComment(w http.ResponseWriter, r *http.Request) {
	if err := h.service.RevokeComment(r.Context(), chi.URLParam(r, "commentID")); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) EditComment(w http.ResponseWriter, r *http.Request) {
	var req commentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDomainError(w, r, err)
		return
	}
	if err := h.service.EditComment(r.Context(), chi.URLParam(r, "commentID"), req.Text); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	limit, err := queryLimit(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "invalid limit")
		return
	}
	users, err := h.service.FetchUsers(r.Context(), limit)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (h *Handler) SetAdmin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		IsAdmin bool `json:"isAdmin"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		writeDomainError(w, r, err)
		return
	}
	if err := h.service.SetAdmin(r.Context(), chi.URLParam(r, "uid"), body.IsAdmin); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	uid := chi.URLParam(r, "uid")
	if uid == mustIdentity(r).UID {
		writeError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "cannot delete yourself")
		return
	}
	if err := h.service.DeleteUser(r.Context(), uid); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
