package connections

import "context"

// Status is one service's reply to a connection check. Profile is set only
// by services that return it inline (YouTube Music).
type Status struct {
	Connected bool
	Profile   *Identity
}

// Upstream is the backend that owns the provider integrations.
type Upstream interface {
	// Consolidated reports fitbit, googleFit and youtubeMusic in one call.
	Consolidated(ctx context.Context, force bool) (Connections, error)
	Status(ctx context.Context, svc Service, force bool) (Status, error)
	Profile(ctx context.Context, svc Service) (*Identity, error)
	Disconnect(ctx context.Context, svc Service) error
	LoginURL(ctx context.Context, svc Service) (string, error)
}
