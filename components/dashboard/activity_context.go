package dashboard

import "context"

// Actor identifies who triggered a service call. Activity records fall back
// to the viewer's session when no actor is attached.
type Actor struct {
	SessionID string
	SellerID  string
	TenantID  string
	RequestID string
}

type actorKey struct{}

// WithActor attaches actor to ctx.
func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFrom returns the actor attached to ctx.
func ActorFrom(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(actorKey{}).(Actor)
	return actor, ok
}

func (a Actor) orViewer(viewer ViewerContext) Actor {
	if a.SessionID == "" {
		a.SessionID = viewer.SessionID
	}
	if a.SellerID == "" {
		a.SellerID = viewer.SellerID
	}
	return a
}
