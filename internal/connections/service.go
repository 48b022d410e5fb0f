// Package connections tracks which upstream fitness and music integrations
// are linked and resolves a single user identity from their profiles.
package connections

import (
	"fmt"
	"time"
)

// Service identifies one upstream integration.
type Service string

const (
	Fitbit       Service = "fitbit"
	AppleFitness Service = "appleFitness"
	GoogleFit    Service = "googleFit"
	YouTubeMusic Service = "youtubeMusic"
)

// Services lists every integration in identity priority order.
var Services = []Service{Fitbit, AppleFitness, GoogleFit, YouTubeMusic}

// ParseService accepts both the camelCase identifiers and the snake_case
// names used by the consolidated endpoint.
func ParseService(s string) (Service, error) {
	switch s {
	case "fitbit":
		return Fitbit, nil
	case "appleFitness", "apple_fitness", "apple-fitness":
		return AppleFitness, nil
	case "googleFit", "google_fit", "google-fit":
		return GoogleFit, nil
	case "youtubeMusic", "youtube_music", "youtube-music":
		return YouTubeMusic, nil
	}
	return "", fmt.Errorf("unknown service %q", s)
}

// IdentityBearing reports whether the service can authenticate a user.
// YouTube Music links media only.
func (s Service) IdentityBearing() bool {
	return s == Fitbit || s == AppleFitness || s == GoogleFit
}

// Connections maps every service to its connected flag.
type Connections map[Service]bool

// NewConnections returns a map with every service disconnected.
func NewConnections() Connections {
	c := make(Connections, len(Services))
	for _, s := range Services {
		c[s] = false
	}
	return c
}

// Clone copies c, filling any missing service with false.
func (c Connections) Clone() Connections {
	out := NewConnections()
	for _, s := range Services {
		out[s] = c[s]
	}
	return out
}

// AnyIdentity reports whether an identity-bearing service is connected.
func (c Connections) AnyIdentity() bool {
	for s, ok := range c {
		if ok && s.IdentityBearing() {
			return true
		}
	}
	return false
}

// Identity is the unified user profile.
type Identity struct {
	DisplayName string `json:"displayName,omitempty"`
	FullName    string `json:"fullName,omitempty"`
	Email       string `json:"email,omitempty"`
	Avatar      string `json:"avatar,omitempty"`
	Picture     string `json:"picture,omitempty"`
}

// mergeOnto layers the non-empty fields of i over base.
func (i Identity) mergeOnto(base *Identity) *Identity {
	out := Identity{}
	if base != nil {
		out = *base
	}
	set := func(dst *string, src string) {
		if src != "" {
			*dst = src
		}
	}
	set(&out.DisplayName, i.DisplayName)
	set(&out.FullName, i.FullName)
	set(&out.Email, i.Email)
	set(&out.Avatar, i.Avatar)
	set(&out.Picture, i.Picture)
	return &out
}

// State is a snapshot of the aggregated connection view.
type State struct {
	Connected       Connections `json:"connected"`
	IsAuthenticated bool        `json:"isAuthenticated"`
	User            *Identity   `json:"user"`
	AuthError       string      `json:"authError,omitempty"`
	LastChecked     time.Time   `json:"lastChecked,omitzero"`

	// userFrom names the service that supplied User.
	userFrom Service
}

// setUser records u as the identity supplied by svc.
func (s *State) setUser(u *Identity, svc Service) {
	s.User = u
	s.userFrom = svc
	if u == nil {
		s.userFrom = ""
	}
}

// reconcile derives IsAuthenticated from the connected map and drops an
// identity whose supplying service is no longer connected.
func (s *State) reconcile() {
	s.IsAuthenticated = s.Connected.AnyIdentity()
	if s.userFrom != "" && !s.Connected[s.userFrom] {
		s.setUser(nil, "")
	}
}

func (s State) clone() State {
	out := s
	out.Connected = s.Connected.Clone()
	if s.User != nil {
		u := *s.User
		out.User = &u
	}
	return out
}
