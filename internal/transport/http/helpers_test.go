package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"mcq-practice-service/internal/app"
	"mcq-practice-service/internal/domain"
	"mcq-practice-service/internal/identity"
	"mcq-practice-service/internal/infra/memory"
)

type testEnv struct {
	server     *httptest.Server
	service    *app.Service
	reconciler *app.Reconciler
	verifier   *identity.Verifier
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	service := app.NewService(memory.NewStore(), memory.NewLocalStore(), nil)
	reconciler := app.NewReconciler(service, memory.NewSessionStore(), nil)
	broker := identity.NewBroker()
	stop := reconciler.Watch(broker)
	t.Cleanup(stop)

	verifier := identity.NewVerifier("test-secret", "")
	handler := NewHandler(service, reconciler, broker, nil)
	router := NewRouter(handler, NewWSHandler(handler), NewAuthenticator(verifier, service), zap.NewNop())

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return &testEnv{server: server, service: service, reconciler: reconciler, verifier: verifier}
}

func (e *testEnv) token(t *testing.T, uid, name string) string {
	t.Helper()
	ident := domain.Identity{UID: uid, Method: domain.SignInPassword}
	if name != "" {
		ident.DisplayName = &name
	}
	token, err := e.verifier.Issue(ident, time.Hour)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return token
}

// do sends a JSON request and decodes a JSON response into out when given.
func (e *testEnv) do(t *testing.T, method, path, token string, body any, out any) int {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, e.server.URL+path, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	if out != nil && resp.StatusCode < 300 && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode response of %s %s: %v", method, path, err)
		}
	}
	return resp.StatusCode
}
