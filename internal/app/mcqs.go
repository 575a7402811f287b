package app

import (
	"context"
	"errors"
	"fmt"
	"math/rand"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"mcq-practice-service/internal/docstore"
	"mcq-practice-service/internal/domain"
)

// Order selects how FetchMCQsByCategory arranges its result.
type Order int

const (
	// OrderSequential returns a stable order, used for practice review.
	OrderSequential Order = iota
	// OrderRandom reshuffles on every call, used for quiz mode.
	OrderRandom
)

const pointReadConcurrency = 8

// FetchMCQsByCategory returns approved MCQs of a category, at most limit.
// Random order samples from every approved MCQ of the category before capping.
func (s *Service) FetchMCQsByCategory(ctx context.Context, categoryID string, limit int, order Order) ([]domain.MCQ, error) {
	if limit <= 0 {
		limit = DefaultMCQLimit
	}
	q := docstore.Query{
		Where: []docstore.Filter{
			docstore.Where("categoryId", categoryID),
			docstore.Where("approved", true),
		},
	}
	if order == OrderSequential {
		q.Limit = limit
	}

	docs, err := s.store.Query(ctx, mcqsCollection, q)
	if err != nil {
		return nil, fmt.Errorf("fetch mcqs of %s: %w", categoryID, err)
	}
	mcqs, err := decodeMCQs(docs)
	if err != nil {
		return nil, err
	}

	if order == OrderRandom {
		rand.Shuffle(len(mcqs), func(i, j int) { mcqs[i], mcqs[j] = mcqs[j], mcqs[i] })
		if len(mcqs) > limit {
			mcqs = mcqs[:limit]
		}
	}
	return mcqs, nil
}

// FetchMCQsSequential is FetchMCQsByCategory in stable order.
func (s *Service) FetchMCQsSequential(ctx context.Context, categoryID string, limit int) ([]domain.MCQ, error) {
	return s.FetchMCQsByCategory(ctx, categoryID, limit, OrderSequential)
}

// FetchMCQsRandom is FetchMCQsByCategory freshly shuffled.
func (s *Service) FetchMCQsRandom(ctx context.Context, categoryID string, limit int) ([]domain.MCQ, error) {
	return s.FetchMCQsByCategory(ctx, categoryID, limit, OrderRandom)
}

// FetchMCQsByIDs resolves each id with its own point read, in input order.
// Ids that do not resolve are skipped; any other failure fails the batch.
func (s *Service) FetchMCQsByIDs(ctx context.Context, ids []string) ([]domain.MCQ, error) {
	found := make([]*domain.MCQ, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(pointReadConcurrency)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			mcq, err := s.GetMCQ(gctx, id)
			if errors.Is(err, domain.ErrNotFound) {
				return nil
			}
			if err != nil {
				return err
			}
			found[i] = &mcq
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("fetch mcqs by id: %w", err)
	}

	out := make([]domain.MCQ, 0, len(ids))
	for _, mcq := range found {
		if mcq != nil {
			out = append(out, *mcq)
		}
	}
	return out, nil
}

// GetMCQ returns one MCQ regardless of approval.
func (s *Service) GetMCQ(ctx context.Context, id string) (domain.MCQ, error) {
	if id == "" {
		return domain.MCQ{}, fmt.Errorf("get mcq: empty id: %w", domain.ErrNotFound)
	}
	doc, err := s.store.Get(ctx, mcqsCollection, id)
	if err != nil {
		return domain.MCQ{}, fmt.Errorf("get mcq: %w", err)
	}
	var mcq domain.MCQ
	if err := doc.Decode(&mcq); err != nil {
		return domain.MCQ{}, err
	}
	mcq.ID = doc.ID
	return mcq, nil
}

// GetApprovedMCQ returns an MCQ only once it has passed moderation; a
// pending MCQ reads as not found.
func (s *Service) GetApprovedMCQ(ctx context.Context, id string) (domain.MCQ, error) {
	mcq, err := s.GetMCQ(ctx, id)
	if err != nil {
		return domain.MCQ{}, err
	}
	if !mcq.Approved {
		return domain.MCQ{}, fmt.Errorf("get mcq %s: pending approval: %w", id, domain.ErrNotFound)
	}
	return mcq, nil
}

// SubmitMCQ stores a user submission awaiting moderation. The draft is taken
// as given: option count and answer index are checked by the caller.
func (s *Service) SubmitMCQ(ctx context.Context, draft domain.MCQ, authorDisplayName string) (string, error) {
	if authorDisplayName == "" {
		authorDisplayName = "Admin"
	}
	draft.CreatedByDisplayName = authorDisplayName
	return s.createMCQ(ctx, draft, false)
}

// CreateMCQAsAdmin stores an admin-authored MCQ, approved immediately.
func (s *Service) CreateMCQAsAdmin(ctx context.Context, mcq domain.MCQ) (string, error) {
	if mcq.CreatedByDisplayName == "" {
		mcq.CreatedByDisplayName = "Admin"
	}
	return s.createMCQ(ctx, mcq, true)
}

func (s *Service) createMCQ(ctx context.Context, mcq domain.MCQ, approved bool) (string, error) {
	if err := checkKey("category id", mcq.CategoryID); err != nil {
		return "", err
	}
	mcq.ID = ""
	mcq.Approved = approved
	data, err := docstore.Encode(mcq)
	if err != nil {
		return "", err
	}
	delete(data, "id")

	id, err := s.store.Create(detached(ctx), mcqsCollection, data)
	if err != nil {
		return "", fmt.Errorf("create mcq: %w", err)
	}
	s.logger.Debug("mcq created", zap.String("id", id), zap.Bool("approved", approved))
	return id, nil
}

// ApproveMCQ marks an MCQ approved. Approving twice is a no-op.
func (s *Service) ApproveMCQ(ctx context.Context, id string) error {
	err := s.store.Update(detached(ctx), mcqsCollection, id, []docstore.Update{{Path: "approved", Value: true}})
	if err != nil {
		return fmt.Errorf("approve mcq %s: %w", id, err)
	}
	return nil
}

// DeleteMCQ removes an MCQ physically.
func (s *Service) DeleteMCQ(ctx context.Context, id string) error {
	if err := s.store.Delete(detached(ctx), mcqsCollection, id); err != nil {
		return fmt.Errorf("delete mcq %s: %w", id, err)
	}
	return nil
}

// FetchPendingMCQs lists MCQs awaiting approval.
func (s *Service) FetchPendingMCQs(ctx context.Context, limit int) ([]domain.MCQ, error) {
	if limit <= 0 {
		limit = DefaultMCQLimit
	}
	docs, err := s.store.Query(ctx, mcqsCollection, docstore.Query{
		Where: []docstore.Filter{docstore.Where("approved", false)},
		Limit: limit,
	})
	if err != nil {
		return nil, fmt.Errorf("fetch pending mcqs: %w", err)
	}
	return decodeMCQs(docs)
}

// FetchMCQsForAdmin lists MCQs in every approval state, optionally narrowed by
// category and, within a category, subcategory.
func (s *Service) FetchMCQsForAdmin(ctx context.Context, categoryID, subcategoryID string) ([]domain.MCQ, error) {
	var q docstore.Query
	if categoryID != "" {
		q.Where = append(q.Where, docstore.Where("categoryId", categoryID))
		if subcategoryID != "" {
			q.Where = append(q.Where, docstore.Where("subcategoryId", subcategoryID))
		}
	}
	docs, err := s.store.Query(ctx, mcqsCollection, q)
	if err != nil {
		return nil, fmt.Errorf("fetch mcqs: %w", err)
	}
	return decodeMCQs(docs)
}

// AnswerMCQ judges a quiz answer and credits the user's category score the
// first time they answer that MCQ correctly. An empty uid judges without credit.
// Only approved MCQs can be answered.
func (s *Service) AnswerMCQ(ctx context.Context, uid string, submission domain.AnswerSubmission) (domain.AnswerResult, error) {
	mcq, err := s.GetApprovedMCQ(ctx, submission.MCQID)
	if err != nil {
		return domain.AnswerResult{}, err
	}
	if submission.Selected < 0 || submission.Selected >= len(mcq.Options) {
		return domain.AnswerResult{}, fmt.Errorf("option %d of mcq %s: %w", submission.Selected, mcq.ID, domain.ErrInvalidInput)
	}

	result := domain.AnswerResult{
		MCQID:       mcq.ID,
		Correct:     submission.Selected == mcq.AnswerIndex,
		AnswerIndex: mcq.AnswerIndex,
		Explanation: mcq.Explanation,
	}
	if !result.Correct || uid == "" {
		return result, nil
	}

	if s.HasAnswered(ctx, uid, mcq.ID) {
		result.AlreadyAnswered = true
		return result, nil
	}
	if err := s.IncrementUserScore(ctx, uid, mcq.CategoryID, 1, mcq.ID); err != nil {
		return result, err
	}
	result.Awarded = 1
	return result, nil
}

func decodeMCQs(docs []docstore.Document) ([]domain.MCQ, error) {
	return decodeAll[domain.MCQ](docs, func(m *domain.MCQ, id string) { m.ID = id })
}
