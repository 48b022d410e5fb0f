package connections

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Aggregator reconciles the upstream services into one State.
//
// Refresh calls are serialized; a second caller waits for the first to
// finish instead of interleaving with it.
type Aggregator struct {
	upstream Upstream
	log      *slog.Logger
	now      func() time.Time

	refreshMu sync.Mutex

	mu    sync.RWMutex
	state State
}

// NewAggregator creates an Aggregator with every service disconnected.
func NewAggregator(upstream Upstream, log *slog.Logger) *Aggregator {
	if log == nil {
		log = slog.Default()
	}
	return &Aggregator{
		upstream: upstream,
		log:      log,
		now:      time.Now,
		state:    State{Connected: NewConnections()},
	}
}

// State returns a copy of the current view.
func (a *Aggregator) State() State {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.state.clone()
}

func (a *Aggregator) update(fn func(*State)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	fn(&a.state)
}

// Refresh re-checks every service and returns the resulting view. Upstream
// failures never surface as errors: a service that cannot be confirmed is
// treated as disconnected.
func (a *Aggregator) Refresh(ctx context.Context, force bool) State {
	a.refreshMu.Lock()
	defer a.refreshMu.Unlock()

	conns, err := a.upstream.Consolidated(ctx, force)
	if err == nil && conns != nil {
		a.applyConsolidated(conns)
		return a.State()
	}
	if err != nil {
		a.log.Warn("consolidated connection check failed, checking services individually", "error", err)
	}

	a.refreshEach(ctx, force)
	return a.State()
}

func (a *Aggregator) applyConsolidated(conns Connections) {
	c := NewConnections()
	c[Fitbit] = conns[Fitbit]
	c[GoogleFit] = conns[GoogleFit]
	c[YouTubeMusic] = conns[YouTubeMusic]

	a.update(func(s *State) {
		s.Connected = c
		s.reconcile()
		if !c.AnyIdentity() {
			s.setUser(nil, "")
		}
		s.LastChecked = a.now()
	})
	a.log.Debug("connections refreshed", "path", "consolidated",
		"fitbit", c[Fitbit], "googleFit", c[GoogleFit], "youtubeMusic", c[YouTubeMusic])
}

// refreshEach runs the per-service checks in priority order. Each check
// commits its own result and re-derives the authenticated flag, so a
// cancelled refresh leaves a consistent view of what completed.
func (a *Aggregator) refreshEach(ctx context.Context, force bool) {
	resolved := false

	for _, svc := range Services {
		if err := ctx.Err(); err != nil {
			a.log.Warn("connection refresh cancelled", "remaining_from", svc, "error", err)
			return
		}

		st, err := a.upstream.Status(ctx, svc, force)
		if err != nil {
			a.log.Warn("connection check failed", "service", svc, "error", err)
			st = Status{}
		}

		var user *Identity
		if st.Connected && !resolved {
			user, resolved = a.resolveIdentity(ctx, svc, st)
		}

		a.update(func(s *State) {
			s.Connected[svc] = st.Connected
			s.reconcile()
			switch {
			case user == nil:
			case svc == GoogleFit:
				u := *user
				s.setUser(u.mergeOnto(s.User), svc)
			case svc == YouTubeMusic:
				if s.User == nil || s.userFrom == YouTubeMusic {
					s.setUser(user, svc)
				}
			default:
				s.setUser(user, svc)
			}
		})
	}

	a.update(func(s *State) {
		s.reconcile()
		if !s.IsAuthenticated && !s.Connected[YouTubeMusic] {
			s.setUser(nil, "")
		}
		s.LastChecked = a.now()
	})
	st := a.State()
	a.log.Debug("connections refreshed", "path", "individual",
		"fitbit", st.Connected[Fitbit], "appleFitness", st.Connected[AppleFitness],
		"googleFit", st.Connected[GoogleFit], "youtubeMusic", st.Connected[YouTubeMusic])
}

// resolveIdentity fetches the profile for a connected service. The bool
// result reports whether this service claimed identity priority. YouTube
// Music's profile is only used when no other service supplied one.
func (a *Aggregator) resolveIdentity(ctx context.Context, svc Service, st Status) (*Identity, bool) {
	if !svc.IdentityBearing() {
		if st.Profile == nil {
			return nil, false
		}
		if cur := a.State(); cur.User != nil && cur.userFrom != svc {
			return nil, false
		}
		return st.Profile, true
	}

	p, err := a.upstream.Profile(ctx, svc)
	if err != nil {
		a.log.Warn("profile fetch failed", "service", svc, "error", err)
		return nil, false
	}
	if p == nil {
		return nil, false
	}
	return p, true
}

// Logout disconnects one service. The identity is dropped only when no
// identity-bearing service remains connected.
func (a *Aggregator) Logout(ctx context.Context, svc Service) error {
	if err := a.upstream.Disconnect(ctx, svc); err != nil {
		err = fmt.Errorf("disconnect %s: %w", svc, err)
		a.recordError(err)
		return err
	}

	a.update(func(s *State) {
		s.Connected[svc] = false
		s.IsAuthenticated = s.Connected.AnyIdentity()
		switch {
		case !s.IsAuthenticated:
			s.setUser(nil, "")
		case s.userFrom == svc:
			s.userFrom = firstIdentityService(s.Connected)
		}
		s.AuthError = ""
	})
	a.log.Info("service disconnected", "service", svc)
	return nil
}

// LogoutAll disconnects every service. Services whose disconnect fails keep
// their flag; the joined error is returned and recorded.
func (a *Aggregator) LogoutAll(ctx context.Context) error {
	var errs []error
	done := make([]Service, 0, len(Services))
	for _, svc := range Services {
		if err := a.upstream.Disconnect(ctx, svc); err != nil {
			errs = append(errs, fmt.Errorf("disconnect %s: %w", svc, err))
			continue
		}
		done = append(done, svc)
	}

	a.update(func(s *State) {
		for _, svc := range done {
			s.Connected[svc] = false
		}
		s.IsAuthenticated = s.Connected.AnyIdentity()
		switch {
		case !s.IsAuthenticated:
			s.setUser(nil, "")
		case s.userFrom != "" && !s.Connected[s.userFrom]:
			s.userFrom = firstIdentityService(s.Connected)
		}
	})

	if err := errors.Join(errs...); err != nil {
		a.recordError(err)
		return err
	}
	a.update(func(s *State) { s.AuthError = "" })
	a.log.Info("all services disconnected")
	return nil
}

// LoginURL returns the authorization URL the user should visit to link svc.
func (a *Aggregator) LoginURL(ctx context.Context, svc Service) (string, error) {
	u, err := a.upstream.LoginURL(ctx, svc)
	if err == nil && u == "" {
		err = errors.New("no authorization URL provided")
	}
	if err != nil {
		err = fmt.Errorf("login %s: %w", svc, err)
		a.recordError(err)
		return "", err
	}
	return u, nil
}

// firstIdentityService returns the highest-priority connected service that
// can carry an identity.
func firstIdentityService(c Connections) Service {
	for _, svc := range Services {
		if svc.IdentityBearing() && c[svc] {
			return svc
		}
	}
	return ""
}

func (a *Aggregator) recordError(err error) {
	a.log.Error("connection action failed", "error", err)
	a.update(func(s *State) { s.AuthError = err.Error() })
}

// Watch refreshes every interval until ctx is done.
func (a *Aggregator) Watch(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.Refresh(ctx, false)
		}
	}
}
