package app

import (
	"context"
	"strings"
)

// Actor identifies the authenticated caller of the hosted board service.
type Actor struct {
	UserID string
	Email  string
}

// actorContextKey stores context keys for actor values.
type actorContextKey struct{}

// WithActor attaches a normalized actor to ctx.
func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, normalizeActor(actor))
}

// ActorFromContext returns the actor when one with a user id is present.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(Actor)
	if !ok {
		return Actor{}, false
	}
	actor = normalizeActor(actor)
	if actor.UserID == "" {
		return Actor{}, false
	}
	return actor, true
}

// normalizeActor trims actor fields.
func normalizeActor(actor Actor) Actor {
	actor.UserID = strings.TrimSpace(actor.UserID)
	actor.Email = strings.ToLower(strings.TrimSpace(actor.Email))
	return actor
}
