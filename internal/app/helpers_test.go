package app_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"mcq-practice-service/internal/app"
	"mcq-practice-service/internal/docstore"
	"mcq-practice-service/internal/domain"
	"mcq-practice-service/internal/infra/memory"
)

// faultyStore fails selected primitives with domain.ErrUnavailable.
type faultyStore struct {
	*memory.Store
	failGet    bool
	failQuery  bool
	failSet    bool
	failUpdate bool
}

var errOffline = fmt.Errorf("backend offline: %w", domain.ErrUnavailable)

func (f *faultyStore) Get(ctx context.Context, collection, id string) (docstore.Document, error) {
	if f.failGet {
		return docstore.Document{}, errOffline
	}
	return f.Store.Get(ctx, collection, id)
}

func (f *faultyStore) Query(ctx context.Context, collection string, q docstore.Query) ([]docstore.Document, error) {
	if f.failQuery {
		return nil, errOffline
	}
	return f.Store.Query(ctx, collection, q)
}

func (f *faultyStore) Set(ctx context.Context, collection, id string, data map[string]any, opts ...docstore.SetOption) error {
	if f.failSet {
		return errOffline
	}
	return f.Store.Set(ctx, collection, id, data, opts...)
}

func (f *faultyStore) Update(ctx context.Context, collection, id string, updates []docstore.Update) error {
	if f.failUpdate {
		return errOffline
	}
	return f.Store.Update(ctx, collection, id, updates)
}

type fixture struct {
	store   *faultyStore
	local   *memory.LocalStore
	service *app.Service
	clock   *fakeClock
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store: &faultyStore{Store: memory.NewStore()},
		local: memory.NewLocalStore(),
		clock: &fakeClock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)},
	}
	f.service = app.NewService(f.store, f.local, nil, app.WithClock(f.clock.now))
	return f
}

func (f *fixture) addMCQ(t *testing.T, mcq domain.MCQ, approved bool) string {
	t.Helper()
	ctx := context.Background()
	var (
		id  string
		err error
	)
	if approved {
		id, err = f.service.CreateMCQAsAdmin(ctx, mcq)
	} else {
		id, err = f.service.SubmitMCQ(ctx, mcq, "")
	}
	if err != nil {
		t.Fatalf("create mcq: %v", err)
	}
	return id
}

func sampleMCQ(category string, question string) domain.MCQ {
	return domain.MCQ{
		Question:    question,
		Options:     []string{"a", "b", "c", "d"},
		AnswerIndex: 1,
		CategoryID:  category,
	}
}

func strPtr(s string) *string { return &s }
