// Package player runs headless music-player sessions: a queue, transport
// controls and repeat/shuffle modes driving a pluggable playback backend.
package player

import (
	"context"
	"strings"
)

// Track is what a backend needs to start playing a song.
type Track struct {
	VideoID  string
	Start    float64 // seconds
	Duration float64 // seconds, 0 if unknown
}

// EventType enumerates backend notifications.
type EventType int

const (
	EventPlaying EventType = iota
	EventPaused
	EventEnded
	EventProgress
)

func (t EventType) String() string {
	switch t {
	case EventPlaying:
		return "playing"
	case EventPaused:
		return "paused"
	case EventEnded:
		return "ended"
	case EventProgress:
		return "progress"
	}
	return "unknown"
}

// Event is a state change reported by a backend.
type Event struct {
	Type     EventType
	Position float64
}

// PlaybackBackend drives actual media playback. Implementations must not
// invoke subscribers from inside their own method calls.
type PlaybackBackend interface {
	Load(ctx context.Context, t Track) error
	Play(ctx context.Context) error
	Pause(ctx context.Context) error
	Seek(ctx context.Context, seconds float64) error
	SetVolume(ctx context.Context, volume int) error
	// Subscribe registers fn for events and returns a function that removes it.
	Subscribe(fn func(Event)) (unsubscribe func())
}

var demoPrefixes = []string{"demo", "track_", "workout_demo"}

// IsDemo reports whether videoID is a placeholder that no backend can load.
func IsDemo(videoID string) bool {
	if videoID == "" {
		return true
	}
	for _, p := range demoPrefixes {
		if strings.HasPrefix(videoID, p) {
			return true
		}
	}
	return false
}
