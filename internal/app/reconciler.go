package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"mcq-practice-service/internal/domain"
)

// IdentitySource delivers identity-provider session changes. The returned
// function removes the subscription.
type IdentitySource interface {
	OnSessionChange(fn func(ctx context.Context, ev domain.SessionEvent)) (unsubscribe func())
}

// ProfileStore is the slice of the data access layer reconciliation needs.
type ProfileStore interface {
	GetUserProfile(ctx context.Context, uid string) (domain.UserProfile, error)
	UpsertUserProfile(ctx context.Context, profile domain.UserProfile) error
}

// Reconciler keeps every signed-in user's profile view in step with identity
// session changes. Profiles are re-read only on sign-in and explicit Refresh.
type Reconciler struct {
	profiles ProfileStore
	sessions SessionRepository
	logger   *zap.Logger
	sf       singleflight.Group
}

func NewReconciler(profiles ProfileStore, sessions SessionRepository, logger *zap.Logger) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{profiles: profiles, sessions: sessions, logger: logger}
}

// Watch subscribes to src and returns the unsubscribe handle.
func (r *Reconciler) Watch(src IdentitySource) (stop func()) {
	return src.OnSessionChange(r.HandleSessionChange)
}

// HandleSessionChange applies one identity event.
func (r *Reconciler) HandleSessionChange(ctx context.Context, ev domain.SessionEvent) {
	switch ev.Kind {
	case domain.SessionSignedOut:
		r.SignOut(ev.Identity.UID)
	case domain.SessionSignedIn, domain.SessionTokenRefresh:
		r.SignIn(ctx, ev.Identity)
	default:
		r.logger.Warn("unknown session event", zap.String("kind", string(ev.Kind)))
	}
}

// SignIn resolves the profile for ident and publishes it on the user's
// session. It never fails: when the store cannot be used the view carries
// identity fields only and is marked offline.
func (r *Reconciler) SignIn(ctx context.Context, ident domain.Identity) domain.CurrentUser {
	session := r.sessions.GetOrCreate(ident.UID)
	session.setIdentity(ident)

	user := r.resolve(ctx, ident)
	session.Publish(user)
	current, _ := session.Current()
	return current
}

func (r *Reconciler) resolve(ctx context.Context, ident domain.Identity) domain.CurrentUser {
	profile, err := r.profiles.GetUserProfile(ctx, ident.UID)
	if err == nil {
		return domain.CurrentUser{UserProfile: profile, IsAnonymous: ident.IsAnonymous}
	}

	base := profileFromIdentity(ident)
	if errors.Is(err, domain.ErrNotFound) {
		createErr := r.profiles.UpsertUserProfile(ctx, base)
		if createErr == nil {
			r.logger.Info("created user profile", zap.String("uid", ident.UID))
			return domain.CurrentUser{UserProfile: base, IsAnonymous: ident.IsAnonymous}
		}
		r.logger.Warn("create user profile failed, using identity fields", zap.String("uid", ident.UID), zap.Error(createErr))
	} else {
		r.logger.Warn("load user profile failed, using identity fields", zap.String("uid", ident.UID), zap.Error(err))
	}
	return domain.CurrentUser{UserProfile: base, IsAnonymous: ident.IsAnonymous, Offline: true}
}

// SignOut tears the user's session down.
func (r *Reconciler) SignOut(uid string) {
	r.sessions.Delete(uid)
}

// Current returns the reconciled view for uid.
func (r *Reconciler) Current(uid string) (domain.CurrentUser, bool) {
	session, ok := r.sessions.Get(uid)
	if !ok {
		return domain.CurrentUser{}, false
	}
	return session.Current()
}

// Session returns the active session for uid.
func (r *Reconciler) Session(uid string) (*Session, bool) {
	return r.sessions.Get(uid)
}

// Refresh re-reads the stored profile and republishes it. A missing profile
// leaves the current view unchanged; read errors propagate.
func (r *Reconciler) Refresh(ctx context.Context, uid string) (domain.CurrentUser, error) {
	session, ok := r.sessions.Get(uid)
	if !ok {
		return domain.CurrentUser{}, fmt.Errorf("refresh %s: %w", uid, domain.ErrNotSignedIn)
	}

	_, err, _ := r.sf.Do(uid, func() (interface{}, error) {
		profile, err := r.profiles.GetUserProfile(ctx, uid)
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		session.Publish(domain.CurrentUser{UserProfile: profile, IsAnonymous: session.Identity().IsAnonymous})
		return nil, nil
	})
	if err != nil {
		return domain.CurrentUser{}, fmt.Errorf("refresh %s: %w", uid, err)
	}
	current, _ := session.Current()
	return current, nil
}

func profileFromIdentity(ident domain.Identity) domain.UserProfile {
	return domain.UserProfile{
		UID:         ident.UID,
		DisplayName: ident.DisplayName,
		Email:       ident.Email,
		PhotoURL:    ident.PhotoURL,
	}
}
