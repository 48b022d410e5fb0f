package player

import (
	"context"
	"errors"
	"sync"
	"time"
)

// VirtualBackend simulates playback with a clock advanced by Advance or Run.
type VirtualBackend struct {
	mu       sync.Mutex
	track    Track
	loaded   bool
	playing  bool
	position float64
	volume   int
	subs     map[int]func(Event)
	nextSub  int
}

// Compile-time check: VirtualBackend satisfies PlaybackBackend.
var _ PlaybackBackend = (*VirtualBackend)(nil)

// NewVirtualBackend creates an idle backend at full volume.
func NewVirtualBackend() *VirtualBackend {
	return &VirtualBackend{volume: 100, subs: make(map[int]func(Event))}
}

var errNotLoaded = errors.New("virtual backend: nothing loaded")

func (b *VirtualBackend) Load(_ context.Context, t Track) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.track = t
	b.loaded = true
	b.playing = false
	b.position = t.Start
	return nil
}

func (b *VirtualBackend) Play(_ context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.loaded {
		return errNotLoaded
	}
	b.playing = true
	return nil
}

func (b *VirtualBackend) Pause(_ context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.playing = false
	return nil
}

func (b *VirtualBackend) Seek(_ context.Context, seconds float64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.loaded {
		return errNotLoaded
	}
	b.position = max(0, seconds)
	return nil
}

func (b *VirtualBackend) SetVolume(_ context.Context, volume int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.volume = volume
	return nil
}

func (b *VirtualBackend) Subscribe(fn func(Event)) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextSub
	b.nextSub++
	b.subs[id] = fn
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs, id)
	}
}

// Playing reports whether the simulated clock is running.
func (b *VirtualBackend) Playing() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.playing
}

// Volume returns the last volume set.
func (b *VirtualBackend) Volume() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.volume
}

// Position returns the simulated playhead in seconds.
func (b *VirtualBackend) Position() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.position
}

// Advance moves the playhead by d while playing and notifies subscribers.
// Reaching the track duration stops playback and emits EventEnded.
func (b *VirtualBackend) Advance(d time.Duration) {
	b.mu.Lock()
	if !b.playing {
		b.mu.Unlock()
		return
	}
	b.position += d.Seconds()
	ev := Event{Type: EventProgress, Position: b.position}
	if b.track.Duration > 0 && b.position >= b.track.Duration {
		b.position = b.track.Duration
		b.playing = false
		ev = Event{Type: EventEnded, Position: b.position}
	}
	subs := make([]func(Event), 0, len(b.subs))
	for _, fn := range b.subs {
		subs = append(subs, fn)
	}
	b.mu.Unlock()

	for _, fn := range subs {
		fn(ev)
	}
}

// Run advances the clock every tick until ctx is done.
func (b *VirtualBackend) Run(ctx context.Context, tick time.Duration) {
	ticker := time.NewTicker(tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.Advance(tick)
		}
	}
}
