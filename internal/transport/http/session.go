package http

import (
	"net/http"

	"mcq-practice-service/internal/domain"
)

// SignIn reports a sign-in (or, with ?event=token_refreshed, a token refresh)
// for the caller's identity and returns the reconciled profile.
func (h *Handler) SignIn(w http.ResponseWriter, r *http.Request) {
	ident := mustIdentity(r)
	kind := domain.SessionSignedIn
	if r.URL.Query().Get("event") == string(domain.SessionTokenRefresh) {
		kind = domain.SessionTokenRefresh
	}
	h.sessions.Publish(r.Context(), domain.SessionEvent{Kind: kind, Identity: ident})

	user, ok := h.reconciler.Current(ident.UID)
	if !ok {
		writeError(w, r, http.StatusServiceUnavailable, "UNAVAILABLE", "session not established")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// Register stores the profile of a new account with its chosen display name
// and signs it in.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var body struct {
		DisplayName string `json:"displayName"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		writeDomainError(w, r, err)
		return
	}
	ident := mustIdentity(r)
	if _, err := h.service.RegisterProfile(r.Context(), ident, body.DisplayName); err != nil {
		writeDomainError(w, r, err)
		return
	}
	h.sessions.Publish(r.Context(), domain.SessionEvent{Kind: domain.SessionSignedIn, Identity: ident})

	user, _ := h.reconciler.Current(ident.UID)
	writeJSON(w, http.StatusCreated, user)
}

func (h *Handler) SignOut(w http.ResponseWriter, r *http.Request) {
	ident := mustIdentity(r)
	h.sessions.Publish(r.Context(), domain.SessionEvent{Kind: domain.SessionSignedOut, Identity: domain.Identity{UID: ident.UID}})
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := h.reconciler.Current(mustIdentity(r).UID)
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "not signed in")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *Handler) RefreshProfile(w http.ResponseWriter, r *http.Request) {
	user, err := h.reconciler.Refresh(r.Context(), mustIdentity(r).UID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}
