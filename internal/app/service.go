package app

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"mcq-practice-service/internal/docstore"
	"mcq-practice-service/internal/domain"
)

// Collections of the content namespace.
const (
	categoriesCollection = "categories"
	mcqsCollection       = "mcqs"
	commentsCollection   = "comments"
	usersCollection      = "users"
	favoritesCollection  = "favorites"
)

// DefaultLimit caps listing reads when the caller passes no limit.
const (
	DefaultMCQLimit  = 100
	DefaultUserLimit = 200
)

// LocalStore is process-local persistence that survives restarts. It backs
// the last tier of score recording only.
type LocalStore interface {
	// Load decodes the value under key into v; a missing key leaves v untouched.
	Load(key string, v any) error
	Save(key string, v any) error
}

// CategoryCache memoizes the category listing. Writes invalidate it.
type CategoryCache interface {
	Categories(ctx context.Context, load func(context.Context) ([]domain.Category, error)) ([]domain.Category, error)
	Invalidate(ctx context.Context)
}

// Service maps domain operations onto document store primitives.
type Service struct {
	store  docstore.Store
	local  LocalStore
	cache  CategoryCache
	logger *zap.Logger
	now    func() time.Time

	localMu sync.Mutex // serializes read-modify-write of the local fallback
}

// Option configures a Service.
type Option func(*Service)

// WithCategoryCache serves FetchCategories through cache.
func WithCategoryCache(cache CategoryCache) Option {
	return func(s *Service) { s.cache = cache }
}

// WithClock is test-only for deterministic timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(store docstore.Store, local LocalStore, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		store:  store,
		local:  local,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// checkKey rejects ids that cannot be used as a single segment of a dotted
// update path or a collection path.
func checkKey(kind, id string) error {
	if strings.ContainsAny(id, "./") {
		return fmt.Errorf("%s %q must not contain '.' or '/': %w", kind, id, domain.ErrInvalidInput)
	}
	return nil
}

func favoritesPath(uid string) string {
	return docstore.Path(usersCollection, uid, favoritesCollection)
}

// detached keeps writes running when the caller goes away; a client that
// navigates off mid-write should not abort it.
func detached(ctx context.Context) context.Context {
	return context.WithoutCancel(ctx)
}
