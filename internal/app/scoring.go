package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"mcq-practice-service/internal/docstore"
	"mcq-practice-service/internal/domain"
	"mcq-practice-service/internal/metrics"
)

// Keys of the local fallback tier.
const (
	LocalScoresKey   = "localScores"
	LocalAnsweredKey = "localAnswered"
)

// IncrementUserScore adds delta to the user's category score and marks mcqID
// answered. It adds on every call; callers guard with HasAnswered.
//
// The write falls through three tiers: an atomic store update, then a
// read-merge-write of the whole profile, then the local store. Local entries
// are never copied back to the document store.
func (s *Service) IncrementUserScore(ctx context.Context, uid, categoryID string, delta int, mcqID string) error {
	if err := checkKey("category id", categoryID); err != nil {
		return err
	}
	if err := checkKey("mcq id", mcqID); err != nil {
		return err
	}
	ctx = detached(ctx)
	log := s.logger.With(zap.String("uid", uid), zap.String("category", categoryID), zap.String("mcq", mcqID))

	err := s.store.Update(ctx, usersCollection, uid, []docstore.Update{
		{Path: "scoreByCategory." + categoryID, Value: docstore.Increment(delta)},
		{Path: "answeredMCQs." + mcqID, Value: true},
	})
	if err == nil {
		metrics.ScoreWrites.WithLabelValues(metrics.TierAtomic).Inc()
		return nil
	}
	log.Warn("atomic score update failed, merging profile", zap.Error(err))

	err = s.mergeScore(ctx, uid, categoryID, delta, mcqID)
	if err == nil {
		metrics.ScoreWrites.WithLabelValues(metrics.TierMerge).Inc()
		return nil
	}
	log.Error("merged score update failed, keeping score locally", zap.Error(err))

	if err := s.recordLocally(categoryID, delta, mcqID); err != nil {
		metrics.ScoreWrites.WithLabelValues(metrics.TierFailed).Inc()
		return fmt.Errorf("increment score of %s: %w", uid, err)
	}
	metrics.ScoreWrites.WithLabelValues(metrics.TierLocal).Inc()
	return nil
}

func (s *Service) mergeScore(ctx context.Context, uid, categoryID string, delta int, mcqID string) error {
	profile, err := s.GetUserProfile(ctx, uid)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	profile.UID = uid

	scores := make(map[string]int, len(profile.ScoreByCategory)+1)
	for k, v := range profile.ScoreByCategory {
		scores[k] = v
	}
	scores[categoryID] += delta

	answered := make(map[string]bool, len(profile.AnsweredMCQs)+1)
	for k, v := range profile.AnsweredMCQs {
		answered[k] = v
	}
	answered[mcqID] = true

	profile.ScoreByCategory = scores
	profile.AnsweredMCQs = answered
	return s.UpsertUserProfile(ctx, profile)
}

func (s *Service) recordLocally(categoryID string, delta int, mcqID string) error {
	if s.local == nil {
		return fmt.Errorf("no local store: %w", domain.ErrUnavailable)
	}
	s.localMu.Lock()
	defer s.localMu.Unlock()

	scores := map[string]int{}
	if err := s.local.Load(LocalScoresKey, &scores); err != nil {
		return err
	}
	answered := map[string]bool{}
	if err := s.local.Load(LocalAnsweredKey, &answered); err != nil {
		return err
	}
	scores[categoryID] += delta
	answered[mcqID] = true

	if err := s.local.Save(LocalScoresKey, scores); err != nil {
		return err
	}
	return s.local.Save(LocalAnsweredKey, answered)
}

// HasAnswered reports whether the user already got mcqID credited, either in
// the stored profile or in the local fallback.
func (s *Service) HasAnswered(ctx context.Context, uid, mcqID string) bool {
	profile, err := s.GetUserProfile(ctx, uid)
	if err == nil && profile.AnsweredMCQs[mcqID] {
		return true
	}
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		s.logger.Warn("answered check failed, using local record", zap.String("uid", uid), zap.Error(err))
	}
	return s.answeredLocally(mcqID)
}

func (s *Service) answeredLocally(mcqID string) bool {
	if s.local == nil {
		return false
	}
	answered := map[string]bool{}
	s.localMu.Lock()
	err := s.local.Load(LocalAnsweredKey, &answered)
	s.localMu.Unlock()
	if err != nil {
		s.logger.Warn("read local answered record", zap.Error(err))
		return false
	}
	return answered[mcqID]
}

// LocalScores returns scores kept by the local fallback tier.
func (s *Service) LocalScores() (map[string]int, error) {
	scores := map[string]int{}
	if s.local == nil {
		return scores, nil
	}
	s.localMu.Lock()
	defer s.localMu.Unlock()
	if err := s.local.Load(LocalScoresKey, &scores); err != nil {
		return nil, err
	}
	return scores, nil
}
