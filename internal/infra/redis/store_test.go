package redis

import (
	"context"
	"errors"
	"sync"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"mcq-practice-service/internal/docstore"
	"mcq-practice-service/internal/domain"
)

func TestStoreCreateGetQueryDelete(t *testing.T) {
	ctx := context.Background()
	_, client := newTestRedis(t)
	store := NewStore(client)

	a, err := store.Create(ctx, "mcqs", map[string]any{"categoryId": "english", "approved": true, "n": 2})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := store.Create(ctx, "mcqs", map[string]any{"categoryId": "english", "approved": false, "n": 1}); err != nil {
		t.Fatalf("create: %v", err)
	}

	doc, err := store.Get(ctx, "mcqs", a)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if doc.Data["n"] != float64(2) {
		t.Fatalf("unexpected data: %+v", doc.Data)
	}

	docs, err := store.Query(ctx, "mcqs", docstore.Query{
		Where: []docstore.Filter{docstore.Where("approved", true)},
	})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(docs) != 1 || docs[0].ID != a {
		t.Fatalf("unexpected query result: %+v", docs)
	}

	all, err := store.Query(ctx, "mcqs", docstore.Query{OrderBy: "n"})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(all) != 2 || all[1].ID != a {
		t.Fatalf("expected ordering by n, got %+v", all)
	}

	if err := store.Delete(ctx, "mcqs", a); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Get(ctx, "mcqs", a); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStoreSetMergeAndUpdate(t *testing.T) {
	ctx := context.Background()
	_, client := newTestRedis(t)
	store := NewStore(client)

	err := store.Update(ctx, "users", "u1", []docstore.Update{{Path: "isAdmin", Value: true}})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on missing doc, got %v", err)
	}

	if err := store.Set(ctx, "users", "u1", map[string]any{
		"displayName":     "Alice",
		"scoreByCategory": map[string]any{"english": 1},
	}); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := store.Set(ctx, "users", "u1", map[string]any{
		"scoreByCategory": map[string]any{"computer": 2},
	}, docstore.Merge()); err != nil {
		t.Fatalf("merge: %v", err)
	}
	if err := store.Update(ctx, "users", "u1", []docstore.Update{
		{Path: "scoreByCategory.english", Value: docstore.Increment(4)},
		{Path: "answeredMCQs.m1", Value: true},
	}); err != nil {
		t.Fatalf("update: %v", err)
	}

	doc, err := store.Get(ctx, "users", "u1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	var profile domain.UserProfile
	if err := doc.Decode(&profile); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if *profile.DisplayName != "Alice" || profile.ScoreByCategory["english"] != 5 || profile.ScoreByCategory["computer"] != 2 || !profile.AnsweredMCQs["m1"] {
		t.Fatalf("unexpected profile: %+v", profile)
	}

	if err := store.Set(ctx, "users", "u1", map[string]any{"displayName": "Bob"}); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	doc, _ = store.Get(ctx, "users", "u1")
	if _, ok := doc.Data["scoreByCategory"]; ok {
		t.Fatalf("overwrite must drop old fields: %+v", doc.Data)
	}
}

func TestStoreConcurrentIncrements(t *testing.T) {
	ctx := context.Background()
	_, client := newTestRedis(t)
	store := NewStore(client)
	if err := store.Set(ctx, "users", "u1", map[string]any{}); err != nil {
		t.Fatalf("set: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := store.Update(ctx, "users", "u1", []docstore.Update{{Path: "score", Value: docstore.Increment(1)}}); err != nil {
				t.Errorf("update: %v", err)
			}
		}()
	}
	wg.Wait()

	doc, err := store.Get(ctx, "users", "u1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if doc.Data["score"] != float64(5) {
		t.Fatalf("expected 5, got %v", doc.Data["score"])
	}
}

func TestStoreUnavailable(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer client.Close()
	store := NewStore(client)
	mr.Close()

	if _, err := store.Get(context.Background(), "users", "u1"); !errors.Is(err, domain.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestBackendErrorMapsACLRejections(t *testing.T) {
	denied := backendError(errors.New("NOPERM User mcq has no permissions to run the 'set' command"))
	if !errors.Is(denied, domain.ErrPermissionDenied) {
		t.Fatalf("expected permission denied, got %v", denied)
	}
	if errors.Is(denied, domain.ErrUnavailable) {
		t.Fatalf("permission error must not read as unavailable: %v", denied)
	}

	down := backendError(errors.New("dial tcp 127.0.0.1:6379: connect: connection refused"))
	if !errors.Is(down, domain.ErrUnavailable) {
		t.Fatalf("expected unavailable, got %v", down)
	}
}
