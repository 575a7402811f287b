package http

import (
	"bytes"
	"context"
	"net/http"
	"strings"
	"testing"

	"mcq-practice-service/internal/domain"
)

func TestSessionEndpoints(t *testing.T) {
	env := newTestEnv(t)
	token := env.token(t, "u1", "Alice")

	if status := env.do(t, http.MethodGet, "/api/v1/session/me", token, nil, nil); status != http.StatusUnauthorized {
		t.Fatalf("expected 401 before sign-in, got %d", status)
	}

	var user domain.CurrentUser
	if status := env.do(t, http.MethodPost, "/api/v1/session", token, nil, &user); status != http.StatusOK {
		t.Fatalf("sign in: status %d", status)
	}
	if user.UID != "u1" || user.DisplayName == nil || *user.DisplayName != "Alice" {
		t.Fatalf("unexpected user: %+v", user)
	}
	if _, err := env.service.GetUserProfile(context.Background(), "u1"); err != nil {
		t.Fatalf("expected profile persisted: %v", err)
	}

	if status := env.do(t, http.MethodGet, "/api/v1/session/me", token, nil, &user); status != http.StatusOK {
		t.Fatalf("me: status %d", status)
	}
	if status := env.do(t, http.MethodPost, "/api/v1/session/refresh", token, nil, &user); status != http.StatusOK {
		t.Fatalf("refresh: status %d", status)
	}

	if status := env.do(t, http.MethodDelete, "/api/v1/session", token, nil, nil); status != http.StatusNoContent {
		t.Fatalf("sign out: status %d", status)
	}
	if status := env.do(t, http.MethodGet, "/api/v1/session/me", token, nil, nil); status != http.StatusUnauthorized {
		t.Fatalf("expected 401 after sign-out, got %d", status)
	}
}

func TestAuthRequired(t *testing.T) {
	env := newTestEnv(t)
	if status := env.do(t, http.MethodGet, "/api/v1/favorites", "", nil, nil); status != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", status)
	}
	if status := env.do(t, http.MethodGet, "/api/v1/favorites", "garbage", nil, nil); status != http.StatusUnauthorized {
		t.Fatalf("expected 401 with bad token, got %d", status)
	}
}

func TestSubmitModerateAndAnswer(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	userToken := env.token(t, "u1", "Alice")
	adminToken := env.token(t, "admin", "Root")

	env.do(t, http.MethodPost, "/api/v1/session", userToken, nil, nil)
	env.do(t, http.MethodPost, "/api/v1/session", adminToken, nil, nil)

	if status := env.do(t, http.MethodGet, "/api/v1/admin/mcqs/pending", userToken, nil, nil); status != http.StatusForbidden {
		t.Fatalf("expected 403 for non-admin, got %d", status)
	}
	if err := env.service.SetAdmin(ctx, "admin", true); err != nil {
		t.Fatalf("set admin: %v", err)
	}

	invalid := map[string]any{"question": "q", "options": []string{"only"}, "answerIndex": 0, "categoryId": "english"}
	if status := env.do(t, http.MethodPost, "/api/v1/mcqs", userToken, invalid, nil); status != http.StatusBadRequest {
		t.Fatalf("expected 400 for one option, got %d", status)
	}

	var created struct {
		ID string `json:"id"`
	}
	draft := map[string]any{
		"question":    "Synonym of quick?",
		"options":     []string{"Slow", "Rapid", "Late", "Dull"},
		"answerIndex": 1,
		"categoryId":  "english",
	}
	if status := env.do(t, http.MethodPost, "/api/v1/mcqs", userToken, draft, &created); status != http.StatusCreated {
		t.Fatalf("submit: status %d", status)
	}

	var visible []domain.MCQ
	env.do(t, http.MethodGet, "/api/v1/categories/english/mcqs", "", nil, &visible)
	if len(visible) != 0 {
		t.Fatalf("pending mcq must not be listed: %+v", visible)
	}
	if status := env.do(t, http.MethodGet, "/api/v1/mcqs/"+created.ID, "", nil, nil); status != http.StatusNotFound {
		t.Fatalf("expected pending mcq hidden, got %d", status)
	}
	env.do(t, http.MethodGet, "/api/v1/mcqs?ids="+created.ID, "", nil, &visible)
	if len(visible) != 0 {
		t.Fatalf("pending mcq must not be served by id: %+v", visible)
	}
	if status := env.do(t, http.MethodPost, "/api/v1/mcqs/"+created.ID+"/answer", userToken, map[string]int{"selected": 1}, nil); status != http.StatusNotFound {
		t.Fatalf("expected answering a pending mcq to fail, got %d", status)
	}

	var pending []domain.MCQ
	if status := env.do(t, http.MethodGet, "/api/v1/admin/mcqs/pending", adminToken, nil, &pending); status != http.StatusOK {
		t.Fatalf("pending: status %d", status)
	}
	if len(pending) != 1 || pending[0].CreatedByDisplayName != "Alice" || pending[0].CreatedByUID != "u1" {
		t.Fatalf("unexpected pending: %+v", pending)
	}

	if status := env.do(t, http.MethodPost, "/api/v1/admin/mcqs/"+created.ID+"/approve", adminToken, nil, nil); status != http.StatusNoContent {
		t.Fatalf("approve: status %d", status)
	}
	env.do(t, http.MethodGet, "/api/v1/categories/english/mcqs?order=random&limit=5", "", nil, &visible)
	if len(visible) != 1 || !visible[0].Approved {
		t.Fatalf("expected approved mcq listed: %+v", visible)
	}

	var result domain.AnswerResult
	if status := env.do(t, http.MethodPost, "/api/v1/mcqs/"+created.ID+"/answer", userToken, map[string]int{"selected": 1}, &result); status != http.StatusOK {
		t.Fatalf("answer: status %d", status)
	}
	if !result.Correct || result.Awarded != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}

	var user domain.CurrentUser
	env.do(t, http.MethodGet, "/api/v1/session/me", userToken, nil, &user)
	if user.ScoreByCategory["english"] != 1 {
		t.Fatalf("expected score in session view after answering: %+v", user)
	}
}

func TestErrorMapping(t *testing.T) {
	env := newTestEnv(t)
	if status := env.do(t, http.MethodGet, "/api/v1/mcqs/missing", "", nil, nil); status != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", status)
	}
	if status := env.do(t, http.MethodGet, "/api/v1/categories/english/mcqs?order=weird", "", nil, nil); status != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", status)
	}
	if status := env.do(t, http.MethodGet, "/healthz", "", nil, nil); status != http.StatusOK {
		t.Fatalf("expected healthz ok, got %d", status)
	}
}

func TestFavoritesAndComments(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	token := env.token(t, "u1", "Alice")
	env.do(t, http.MethodPost, "/api/v1/session", token, nil, nil)

	id, err := env.service.CreateMCQAsAdmin(ctx, domain.MCQ{Question: "q", Options: []string{"a", "b"}, CategoryID: "c"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if status := env.do(t, http.MethodPut, "/api/v1/favorites/"+id, token, nil, nil); status != http.StatusNoContent {
		t.Fatalf("add favorite: status %d", status)
	}
	var mcqs []domain.MCQ
	env.do(t, http.MethodGet, "/api/v1/favorites/mcqs", token, nil, &mcqs)
	if len(mcqs) != 1 || mcqs[0].ID != id {
		t.Fatalf("unexpected favorites: %+v", mcqs)
	}
	env.do(t, http.MethodDelete, "/api/v1/favorites/"+id, token, nil, nil)
	var ids []string
	env.do(t, http.MethodGet, "/api/v1/favorites", token, nil, &ids)
	if len(ids) != 0 {
		t.Fatalf("expected no favorites, got %v", ids)
	}

	var created struct {
		ID string `json:"id"`
	}
	if status := env.do(t, http.MethodPost, "/api/v1/mcqs/"+id+"/comments", token, map[string]string{"text": "nice"}, &created); status != http.StatusCreated {
		t.Fatalf("comment: status %d", status)
	}
	var comments []domain.Comment
	env.do(t, http.MethodGet, "/api/v1/mcqs/"+id+"/comments", "", nil, &comments)
	if len(comments) != 0 {
		t.Fatalf("unapproved comment visible: %+v", comments)
	}
	if err := env.service.ApproveComment(ctx, created.ID); err != nil {
		t.Fatalf("approve: %v", err)
	}
	env.do(t, http.MethodGet, "/api/v1/mcqs/"+id+"/comments", "", nil, &comments)
	if len(comments) != 1 || comments[0].DisplayName == nil || *comments[0].DisplayName != "Alice" {
		t.Fatalf("unexpected comments: %+v", comments)
	}
}

func TestAdminCSVImport(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	token := env.token(t, "admin", "Root")
	if err := env.service.UpsertUserProfile(ctx, domain.UserProfile{UID: "admin"}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := env.service.SetAdmin(ctx, "admin", true); err != nil {
		t.Fatalf("set admin: %v", err)
	}

	body := "question,option1,option2,option3,option4,answerIndex,categoryId,subcategoryId,explanation\n" +
		"Q1,a,b,c,d,2,math,,\n"
	req, err := http.NewRequest(http.MethodPost, env.server.URL+"/api/v1/admin/mcqs/import", bytes.NewBufferString(body))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "text/csv")
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("import: status %d", resp.StatusCode)
	}

	mcqs, err := env.service.FetchMCQsSequential(ctx, "math", 10)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(mcqs) != 1 || !strings.EqualFold(mcqs[0].Question, "q1") || mcqs[0].AnswerIndex != 2 {
		t.Fatalf("unexpected imported mcqs: %+v", mcqs)
	}
}
