package identity

import (
	"context"
	"sync"

	"mcq-practice-service/internal/domain"
)

// Broker fans session changes out to subscribers in process. It is the
// app.IdentitySource the HTTP session endpoints publish into.
type Broker struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]func(context.Context, domain.SessionEvent)
}

func NewBroker() *Broker {
	return &Broker{subs: make(map[int]func(context.Context, domain.SessionEvent))}
}

// OnSessionChange registers fn and returns its unsubscribe handle.
func (b *Broker) OnSessionChange(fn func(ctx context.Context, ev domain.SessionEvent)) func() {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = fn
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
		})
	}
}

// Publish delivers ev to every subscriber and returns once all have handled it.
func (b *Broker) Publish(ctx context.Context, ev domain.SessionEvent) {
	b.mu.RLock()
	fns := make([]func(context.Context, domain.SessionEvent), 0, len(b.subs))
	for _, fn := range b.subs {
		fns = append(fns, fn)
	}
	b.mu.RUnlock()

	for _, fn := range fns {
		fn(ctx, ev)
	}
}

// SignIn publishes a sign-in for ident.
func (b *Broker) SignIn(ctx context.Context, ident domain.Identity) {
	b.Publish(ctx, domain.SessionEvent{Kind: domain.SessionSignedIn, Identity: ident})
}

// SignOut publishes a sign-out for uid.
func (b *Broker) SignOut(ctx context.Context, uid string) {
	b.Publish(ctx, domain.SessionEvent{Kind: domain.SessionSignedOut, Identity: domain.Identity{UID: uid}})
}
