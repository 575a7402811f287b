package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"mcq-practice-service/internal/app"
	"mcq-practice-service/internal/domain"
)

// SessionPublisher forwards identity session changes to the reconciler.
type SessionPublisher interface {
	Publish(ctx context.Context, ev domain.SessionEvent)
}

// Handler serves the REST API on top of the data access service and the
// session reconciler.
type Handler struct {
	service    *app.Service
	reconciler *app.Reconciler
	sessions   SessionPublisher
	logger     *zap.Logger
}

func NewHandler(service *app.Service, reconciler *app.Reconciler, sessions SessionPublisher, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{service: service, reconciler: reconciler, sessions: sessions, logger: logger}
}

// displayName prefers the reconciled profile over the token's claim.
func (h *Handler) displayName(ident domain.Identity) *string {
	if user, ok := h.reconciler.Current(ident.UID); ok && user.DisplayName != nil {
		return user.DisplayName
	}
	return ident.DisplayName
}

func mustIdentity(r *http.Request) domain.Identity {
	ident, _ := IdentityFrom(r.Context())
	return ident
}

func queryLimit(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		return 0, domain.ErrInvalidInput
	}
	return limit, nil
}

// Categories

func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.service.FetchCategories(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cats)
}

func (h *Handler) GetCategory(w http.ResponseWriter, r *http.Request) {
	cat, err := h.service.GetCategory(r.Context(), chi.URLParam(r, "categoryID"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cat)
}

// MCQs

func (h *Handler) ListCategoryMCQs(w http.ResponseWriter, r *http.Request) {
	limit, err := queryLimit(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "invalid limit")
		return
	}
	order := app.OrderSequential
	switch r.URL.Query().Get("order") {
	case "", "sequential":
	case "random":
		order = app.OrderRandom
	default:
		writeError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "order must be sequential or random")
		return
	}

	mcqs, err := h.service.FetchMCQsByCategory(r.Context(), chi.URLParam(r, "categoryID"), limit, order)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mcqs)
}

func (h *Handler) ListMCQsByIDs(w http.ResponseWriter, r *http.Request) {
	var ids []string
	for _, id := range strings.Split(r.URL.Query().Get("ids"), ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	mcqs, err := h.service.FetchMCQsByIDs(r.Context(), ids)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, approvedOnly(mcqs))
}

// approvedOnly hides MCQs still awaiting moderation from non-admin reads.
func approvedOnly(mcqs []domain.MCQ) []domain.MCQ {
	out := make([]domain.MCQ, 0, len(mcqs))
	for _, mcq := range mcqs {
		if mcq.Approved {
			out = append(out, mcq)
		}
	}
	return out
}

func (h *Handler) GetMCQ(w http.ResponseWriter, r *http.Request) {
	mcq, err := h.service.GetApprovedMCQ(r.Context(), chi.URLParam(r, "mcqID"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mcq)
}

type mcqRequest struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	AnswerIndex   int      `json:"answerIndex"`
	Explanation   string   `json:"explanation"`
	CategoryID    string   `json:"categoryId"`
	SubcategoryID string   `json:"subcategoryId"`
}

func (req mcqRequest) validate() string {
	switch {
	case strings.TrimSpace(req.Question) == "":
		return "question is required"
	case len(req.Options) < 2:
		return "at least two options are required"
	case req.AnswerIndex < 0 || req.AnswerIndex >= len(req.Options):
		return "answerIndex out of range"
	case req.CategoryID == "":
		return "categoryId is required"
	}
	for _, opt := range req.Options {
		if strings.TrimSpace(opt) == "" {
			return "options must not be empty"
		}
	}
	return ""
}

func (req mcqRequest) mcq() domain.MCQ {
	return domain.MCQ{
		Question:      strings.TrimSpace(req.Question),
		Options:       req.Options,
		AnswerIndex:   req.AnswerIndex,
		Explanation:   req.Explanation,
		CategoryID:    req.CategoryID,
		SubcategoryID: req.SubcategoryID,
	}
}

func (h *Handler) SubmitMCQ(w http.ResponseWriter, r *http.Request) {
	var req mcqRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDomainError(w, r, err)
		return
	}
	if msg := req.validate(); msg != "" {
		writeError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", msg)
		return
	}

	ident := mustIdentity(r)
	draft := req.mcq()
	draft.CreatedByUID = ident.UID
	author := ""
	if name := h.displayName(ident); name != nil {
		author = *name
	}

	id, err := h.service.SubmitMCQ(r.Context(), draft, author)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (h *Handler) AnswerMCQ(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Selected *int `json:"selected"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		writeDomainError(w, r, err)
		return
	}
	if body.Selected == nil {
		writeError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "selected is required")
		return
	}

	ident := mustIdentity(r)
	result, err := h.service.AnswerMCQ(r.Context(), ident.UID, domain.AnswerSubmission{
		MCQID:    chi.URLParam(r, "mcqID"),
		Selected: *body.Selected,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if result.Awarded > 0 {
		h.refreshAfterAward(r.Context(), ident.UID)
	}
	writeJSON(w, http.StatusOK, result)
}

// refreshAfterAward republishes the profile so open views pick up the new
// score. A caller without a session has nothing to refresh.
func (h *Handler) refreshAfterAward(ctx context.Context, uid string) {
	if _, err := h.reconciler.Refresh(ctx, uid); err != nil && !errors.Is(err, domain.ErrNotSignedIn) {
		h.logger.Warn("refresh after answer", zap.String("uid", uid), zap.Error(err))
	}
}

// Comments

func (h *Handler) ListComments(w http.ResponseWriter, r *http.Request) {
	comments, err := h.service.FetchComments(r.Context(), chi.URLParam(r, "mcqID"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, comments)
}

type commentRequest struct {
	Text string `json:"text"`
}

func (h *Handler) AddComment(w http.ResponseWriter, r *http.Request) {
	var req commentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDomainError(w, r, err)
		return
	}
	ident := mustIdentity(r)
	id, err := h.service.AddUserComment(r.Context(), chi.URLParam(r, "mcqID"), ident.UID, req.Text, h.displayName(ident))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

// Favorites

func (h *Handler) ListFavorites(w http.ResponseWriter, r *http.Request) {
	ids, err := h.service.FetchFavoriteMCQIDs(r.Context(), mustIdentity(r).UID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ids)
}

func (h *Handler) ListFavoriteMCQs(w http.ResponseWriter, r *http.Request) {
	ids, err := h.service.FetchFavoriteMCQIDs(r.Context(), mustIdentity(r).UID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	mcqs, err := h.service.FetchMCQsByIDs(r.Context(), ids)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, approvedOnly(mcqs))
}

func (h *Handler) AddFavorite(w http.ResponseWriter, r *http.Request) {
	if err := h.service.AddFavorite(r.Context(), mustIdentity(r).UID, chi.URLParam(r, "mcqID")); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) RemoveFavorite(w http.ResponseWriter, r *http.Request) {
	if err := h.service.RemoveFavorite(r.Context(), mustIdentity(r).UID, chi.URLParam(r, "mcqID")); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
