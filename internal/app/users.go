package app

import (
	"context"
	"fmt"

	"mcq-practice-service/internal/docstore"
	"mcq-practice-service/internal/domain"
)

// GetUserProfile returns the stored profile or an error wrapping domain.ErrNotFound.
func (s *Service) GetUserProfile(ctx context.Context, uid string) (domain.UserProfile, error) {
	doc, err := s.store.Get(ctx, usersCollection, uid)
	if err != nil {
		return domain.UserProfile{}, fmt.Errorf("get profile: %w", err)
	}
	var profile domain.UserProfile
	if err := doc.Decode(&profile); err != nil {
		return domain.UserProfile{}, err
	}
	profile.UID = doc.ID
	return profile, nil
}

// UpsertUserProfile merge-writes the profile. Zero-valued maps and a false
// admin flag leave stored values in place.
func (s *Service) UpsertUserProfile(ctx context.Context, profile domain.UserProfile) error {
	if profile.UID == "" {
		return fmt.Errorf("upsert profile: empty uid: %w", domain.ErrInvalidInput)
	}
	data, err := docstore.Encode(profile)
	if err != nil {
		return err
	}
	if err := s.store.Set(detached(ctx), usersCollection, profile.UID, data, docstore.Merge()); err != nil {
		return fmt.Errorf("upsert profile %s: %w", profile.UID, err)
	}
	return nil
}

// RegisterProfile saves the profile of a freshly registered account, with the
// display name chosen at registration taking precedence.
func (s *Service) RegisterProfile(ctx context.Context, ident domain.Identity, displayName string) (domain.UserProfile, error) {
	profile := profileFromIdentity(ident)
	if displayName != "" {
		profile.DisplayName = &displayName
	}
	if err := s.UpsertUserProfile(ctx, profile); err != nil {
		return domain.UserProfile{}, err
	}
	return profile, nil
}

// FetchUsers lists profiles, at most limit.
func (s *Service) FetchUsers(ctx context.Context, limit int) ([]domain.UserProfile, error) {
	if limit <= 0 {
		limit = DefaultUserLimit
	}
	docs, err := s.store.Query(ctx, usersCollection, docstore.Query{Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("fetch users: %w", err)
	}
	return decodeAll[domain.UserProfile](docs, func(p *domain.UserProfile, id string) { p.UID = id })
}

// SetAdmin promotes or demotes a user.
func (s *Service) SetAdmin(ctx context.Context, uid string, isAdmin bool) error {
	err := s.store.Update(detached(ctx), usersCollection, uid, []docstore.Update{{Path: "isAdmin", Value: isAdmin}})
	if err != nil {
		return fmt.Errorf("set admin %s: %w", uid, err)
	}
	return nil
}

// IsAdmin reports the stored admin flag; an absent profile is not an admin.
func (s *Service) IsAdmin(ctx context.Context, uid string) (bool, error) {
	profile, err := s.GetUserProfile(ctx, uid)
	if err != nil {
		return false, err
	}
	return profile.IsAdmin, nil
}

// DeleteUser removes a profile document. Its favorites are not touched.
func (s *Service) DeleteUser(ctx context.Context, uid string) error {
	if err := s.store.Delete(detached(ctx), usersCollection, uid); err != nil {
		return fmt.Errorf("delete user %s: %w", uid, err)
	}
	return nil
}
