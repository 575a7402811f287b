package app

import (
	"context"
	"fmt"

	"mcq-practice-service/internal/docstore"
	"mcq-practice-service/internal/domain"
)

// AddFavorite (re)creates the favorite with a fresh timestamp.
func (s *Service) AddFavorite(ctx context.Context, uid, mcqID string) error {
	data, err := docstore.Encode(domain.Favorite{MCQID: mcqID, AddedAt: s.now().UnixMilli()})
	if err != nil {
		return err
	}
	if err := s.store.Set(detached(ctx), favoritesPath(uid), mcqID, data); err != nil {
		return fmt.Errorf("add favorite %s for %s: %w", mcqID, uid, err)
	}
	return nil
}

// RemoveFavorite flags the favorite as removed; the record is kept.
func (s *Service) RemoveFavorite(ctx context.Context, uid, mcqID string) error {
	err := s.store.Update(detached(ctx), favoritesPath(uid), mcqID, []docstore.Update{{Path: "removed", Value: true}})
	if err != nil {
		return fmt.Errorf("remove favorite %s for %s: %w", mcqID, uid, err)
	}
	return nil
}

// FetchFavoriteMCQIDs lists the user's favorites that are not removed.
func (s *Service) FetchFavoriteMCQIDs(ctx context.Context, uid string) ([]string, error) {
	docs, err := s.store.Query(ctx, favoritesPath(uid), docstore.Query{})
	if err != nil {
		return nil, fmt.Errorf("fetch favorites of %s: %w", uid, err)
	}
	ids := make([]string, 0, len(docs))
	for _, doc := range docs {
		if removed, _ := doc.Data["removed"].(bool); removed {
			continue
		}
		ids = append(ids, doc.ID)
	}
	return ids, nil
}

// GetFavorite returns the raw favorite record, including removed ones.
func (s *Service) GetFavorite(ctx context.Context, uid, mcqID string) (domain.Favorite, error) {
	doc, err := s.store.Get(ctx, favoritesPath(uid), mcqID)
	if err != nil {
		return domain.Favorite{}, fmt.Errorf("get favorite: %w", err)
	}
	var fav domain.Favorite
	if err := doc.Decode(&fav); err != nil {
		return domain.Favorite{}, err
	}
	fav.MCQID = doc.ID
	return fav, nil
}
