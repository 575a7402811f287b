package app

import (
	"context"
	"fmt"
	"strings"

	"mcq-practice-service/internal/docstore"
	"mcq-practice-service/internal/domain"
)

// AddUserComment stores a comment awaiting moderation and returns its id.
func (s *Service) AddUserComment(ctx context.Context, mcqID, uid, text string, displayName *string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("add comment: empty text: %w", domain.ErrInvalidInput)
	}
	data, err := docstore.Encode(domain.Comment{
		MCQID:       mcqID,
		UID:         uid,
		Text:        text,
		DisplayName: displayName,
		CreatedAt:   s.now().UnixMilli(),
		Approved:    false,
	})
	if err != nil {
		return "", err
	}
	delete(data, "id")

	id, err := s.store.Create(detached(ctx), commentsCollection, data)
	if err != nil {
		return "", fmt.Errorf("add comment on %s: %w", mcqID, err)
	}
	return id, nil
}

// FetchComments returns approved comments of an MCQ, newest first.
func (s *Service) FetchComments(ctx context.Context, mcqID string) ([]domain.Comment, error) {
	docs, err := s.store.Query(ctx, commentsCollection, docstore.Query{
		Where: []docstore.Filter{
			docstore.Where("mcqId", mcqID),
			docstore.Where("approved", true),
		},
		OrderBy: "createdAt",
		Desc:    true,
	})
	if err != nil {
		return nil, fmt.Errorf("fetch comments of %s: %w", mcqID, err)
	}
	return decodeComments(docs)
}

// FetchCommentsForAdmin returns every comment regardless of approval.
func (s *Service) FetchCommentsForAdmin(ctx context.Context) ([]domain.Comment, error) {
	docs, err := s.store.Query(ctx, commentsCollection, docstore.Query{OrderBy: "createdAt", Desc: true})
	if err != nil {
		return nil, fmt.Errorf("fetch comments: %w", err)
	}
	return decodeComments(docs)
}

// ApproveComment makes a comment visible.
func (s *Service) ApproveComment(ctx context.Context, id string) error {
	return s.updateComment(ctx, id, "approved", true)
}

// RevokeComment hides a previously approved comment.
func (s *Service) RevokeComment(ctx context.Context, id string) error {
	return s.updateComment(ctx, id, "approved", false)
}

// EditComment replaces a comment's text without touching its approval.
func (s *Service) EditComment(ctx context.Context, id, text string) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("edit comment: empty text: %w", domain.ErrInvalidInput)
	}
	return s.updateComment(ctx, id, "text", text)
}

func (s *Service) updateComment(ctx context.Context, id, field string, value any) error {
	err := s.store.Update(detached(ctx), commentsCollection, id, []docstore.Update{{Path: field, Value: value}})
	if err != nil {
		return fmt.Errorf("update comment %s: %w", id, err)
	}
	return nil
}

func decodeComments(docs []docstore.Document) ([]domain.Comment, error) {
	return decodeAll[domain.Comment](docs, func(c *domain.Comment, id string) { c.ID = id })
}
