package domain

// SignInMethod names how the identity provider authenticated a session.
type SignInMethod string

const (
	SignInPassword  SignInMethod = "password"
	SignInGoogle    SignInMethod = "google"
	SignInAnonymous SignInMethod = "anonymous"
	SignInPhone     SignInMethod = "phone"
)

// Identity is the identity-provider view of a signed-in user.
type Identity struct {
	UID         string       `json:"uid"`
	DisplayName *string      `json:"displayName"`
	Email       *string      `json:"email"`
	PhotoURL    *string      `json:"photoURL"`
	Method      SignInMethod `json:"method,omitempty"`
	IsAnonymous bool         `json:"isAnonymous"`
}

// SessionEventKind enumerates identity session transitions.
type SessionEventKind string

const (
	SessionSignedIn     SessionEventKind = "signed_in"
	SessionTokenRefresh SessionEventKind = "token_refreshed"
	SessionSignedOut    SessionEventKind = "signed_out"
)

// SessionEvent is emitted by the identity boundary on every session change.
type SessionEvent struct {
	Kind     SessionEventKind
	Identity Identity
}

// CurrentUser is the reconciled view of a signed-in user exposed to clients.
// Offline is set when the profile store could not be reached and only
// identity-provider fields are known.
type CurrentUser struct {
	UserProfile
	IsAnonymous bool  `json:"isAnonymous"`
	Offline     bool  `json:"offline,omitempty"`
	SyncedAt    int64 `json:"syncedAt"` // unix millis of the last reconciliation
}
