package identity

import (
	"context"
	"errors"
	"testing"
	"time"

	"mcq-practice-service/internal/domain"
)

func TestVerifierRoundTrip(t *testing.T) {
	v := NewVerifier("secret", "mcq-practice")
	name := "Alice"
	token, err := v.Issue(domain.Identity{UID: "u1", DisplayName: &name, Method: domain.SignInGoogle}, time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	ident, err := v.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if ident.UID != "u1" || ident.DisplayName == nil || *ident.DisplayName != "Alice" {
		t.Fatalf("unexpected identity: %+v", ident)
	}
	if ident.Email != nil || ident.IsAnonymous || ident.Method != domain.SignInGoogle {
		t.Fatalf("unexpected identity: %+v", ident)
	}
}

func TestVerifierAnonymous(t *testing.T) {
	v := NewVerifier("secret", "")
	token, err := v.Issue(domain.Identity{UID: "anon", IsAnonymous: true}, time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	ident, err := v.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !ident.IsAnonymous || ident.Method != domain.SignInAnonymous {
		t.Fatalf("expected anonymous identity, got %+v", ident)
	}
}

func TestVerifierRejects(t *testing.T) {
	issuer := NewVerifier("secret", "mcq-practice")
	expired, err := issuer.Issue(domain.Identity{UID: "u1"}, -time.Minute)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	good, err := issuer.Issue(domain.Identity{UID: "u1"}, time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	cases := []struct {
		name     string
		verifier *Verifier
		token    string
	}{
		{"expired", issuer, expired},
		{"wrong secret", NewVerifier("other", "mcq-practice"), good},
		{"wrong issuer", NewVerifier("secret", "someone-else"), good},
		{"garbage", issuer, "not-a-token"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := tc.verifier.Verify(tc.token); !errors.Is(err, ErrInvalidToken) {
				t.Fatalf("expected ErrInvalidToken, got %v", err)
			}
		})
	}
}

func TestBrokerDeliversUntilUnsubscribed(t *testing.T) {
	b := NewBroker()
	var got []domain.SessionEvent
	stop := b.OnSessionChange(func(_ context.Context, ev domain.SessionEvent) {
		got = append(got, ev)
	})

	b.SignIn(context.Background(), domain.Identity{UID: "u1"})
	b.SignOut(context.Background(), "u1")
	stop()
	stop()
	b.SignIn(context.Background(), domain.Identity{UID: "u2"})

	if len(got) != 2 {
		t.Fatalf("expected 2 events, got %d", len(got))
	}
	if got[0].Kind != domain.SessionSignedIn || got[1].Kind != domain.SessionSignedOut || got[1].Identity.UID != "u1" {
		t.Fatalf("unexpected events: %+v", got)
	}
}
