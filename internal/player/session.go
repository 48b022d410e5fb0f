package player

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"slices"
	"sync"
)

// Song is a playable queue entry.
type Song struct {
	ID        string  `json:"id"`
	VideoID   string  `json:"videoId"`
	Title     string  `json:"title"`
	Artist    string  `json:"artist,omitempty"`
	Album     string  `json:"album,omitempty"`
	Duration  float64 `json:"duration,omitempty"`
	Thumbnail string  `json:"thumbnail,omitempty"`
	BPM       int     `json:"bpm,omitempty"`
}

// RepeatMode controls what happens when a song ends.
type RepeatMode string

const (
	RepeatNone RepeatMode = "none"
	RepeatAll  RepeatMode = "all"
	RepeatOne  RepeatMode = "one"
)

func (m RepeatMode) next() RepeatMode {
	switch m {
	case RepeatNone:
		return RepeatAll
	case RepeatAll:
		return RepeatOne
	}
	return RepeatNone
}

const defaultVolume = 50

// Snapshot is the persisted state of a session.
type Snapshot struct {
	Current  *Song      `json:"currentSong"`
	Queue    []Song     `json:"queue"`
	Playing  bool       `json:"isPlaying"`
	Position float64    `json:"currentTime"`
	Volume   int        `json:"volume"`
	Muted    bool       `json:"muted"`
	Repeat   RepeatMode `json:"repeatMode"`
	Shuffle  bool       `json:"shuffleEnabled"`
}

func newSnapshot() Snapshot {
	return Snapshot{Queue: []Song{}, Volume: defaultVolume, Repeat: RepeatNone}
}

func (s Snapshot) clone() Snapshot {
	out := s
	out.Queue = slices.Clone(s.Queue)
	if out.Queue == nil {
		out.Queue = []Song{}
	}
	if s.Current != nil {
		c := *s.Current
		out.Current = &c
	}
	return out
}

var (
	ErrNoSong     = errors.New("player: no song loaded")
	ErrQueueEmpty = errors.New("player: queue is empty")
)

// Session is one listener's player. All methods are safe for concurrent use.
type Session struct {
	id      string
	backend PlaybackBackend
	store   Store
	log     *slog.Logger
	shuffle func(n int, swap func(i, j int))

	mu          sync.Mutex
	state       Snapshot
	unsubscribe func()
	stop        func()
}

func newSession(id string, backend PlaybackBackend, store Store, log *slog.Logger, state Snapshot) *Session {
	s := &Session{
		id:      id,
		backend: backend,
		store:   store,
		log:     log.With("session", id),
		shuffle: rand.Shuffle,
		state:   state,
	}
	s.unsubscribe = backend.Subscribe(s.handleEvent)
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// persist must be called with s.mu held.
func (s *Session) persist(ctx context.Context) {
	if s.store == nil {
		return
	}
	if err := s.store.Save(ctx, s.id, s.state); err != nil {
		s.log.Warn("saving player state", "error", err)
	}
}

// restore reloads a persisted song into the backend.
func (s *Session) restore(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur := s.state.Current
	if cur == nil || IsDemo(cur.VideoID) {
		return nil
	}
	if err := s.backend.Load(ctx, Track{VideoID: cur.VideoID, Start: s.state.Position, Duration: cur.Duration}); err != nil {
		s.state.Playing = false
		return fmt.Errorf("restoring %s: %w", cur.VideoID, err)
	}
	if err := s.applyVolume(ctx); err != nil {
		return err
	}
	if s.state.Playing {
		if err := s.backend.Play(ctx); err != nil {
			s.state.Playing = false
			return fmt.Errorf("resuming %s: %w", cur.VideoID, err)
		}
	}
	return nil
}

// Play makes song current and starts it from the beginning. Demo songs
// are tracked as playing without touching the backend.
func (s *Session) Play(ctx context.Context, song Song) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playLocked(ctx, song)
}

func (s *Session) playLocked(ctx context.Context, song Song) error {
	s.state.Current = &song
	s.state.Position = 0
	s.state.Playing = true
	defer s.persist(ctx)

	if IsDemo(song.VideoID) {
		s.log.Debug("playing demo track", "song", song.ID)
		return nil
	}
	if err := s.backend.Load(ctx, Track{VideoID: song.VideoID, Duration: song.Duration}); err != nil {
		s.state.Playing = false
		return fmt.Errorf("loading %s: %w", song.VideoID, err)
	}
	if err := s.backend.Play(ctx); err != nil {
		s.state.Playing = false
		return fmt.Errorf("playing %s: %w", song.VideoID, err)
	}
	s.log.Info("playing", "song", song.ID, "video", song.VideoID)
	return nil
}

// PlayQueue replaces the queue with songs and plays the first one.
func (s *Session) PlayQueue(ctx context.Context, songs []Song) error {
	if len(songs) == 0 {
		return ErrQueueEmpty
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Queue = slices.Clone(songs)
	return s.playLocked(ctx, songs[0])
}

// TogglePlay pauses a playing song or resumes a paused one.
func (s *Session) TogglePlay(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Current == nil {
		return ErrNoSong
	}
	defer s.persist(ctx)

	want := !s.state.Playing
	if !IsDemo(s.state.Current.VideoID) {
		var err error
		if want {
			err = s.backend.Play(ctx)
		} else {
			err = s.backend.Pause(ctx)
		}
		if err != nil {
			return fmt.Errorf("toggle play: %w", err)
		}
	}
	s.state.Playing = want
	return nil
}

// Seek moves the playhead, clamped to the song length when it is known.
func (s *Session) Seek(ctx context.Context, seconds float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Current == nil {
		return ErrNoSong
	}
	seconds = max(0, seconds)
	if d := s.state.Current.Duration; d > 0 {
		seconds = min(seconds, d)
	}
	if !IsDemo(s.state.Current.VideoID) {
		if err := s.backend.Seek(ctx, seconds); err != nil {
			return fmt.Errorf("seek: %w", err)
		}
	}
	s.state.Position = seconds
	s.persist(ctx)
	return nil
}

// SetVolume sets the volume (clamped to 0-100). Zero mutes; anything else unmutes.
func (s *Session) SetVolume(ctx context.Context, volume int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Volume = min(100, max(0, volume))
	s.state.Muted = s.state.Volume == 0
	defer s.persist(ctx)
	return s.applyVolume(ctx)
}

// ToggleMute silences the backend while remembering the volume.
func (s *Session) ToggleMute(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Muted = !s.state.Muted
	defer s.persist(ctx)
	return s.applyVolume(ctx)
}

func (s *Session) applyVolume(ctx context.Context) error {
	v := s.state.Volume
	if s.state.Muted {
		v = 0
	}
	if err := s.backend.SetVolume(ctx, v); err != nil {
		return fmt.Errorf("set volume: %w", err)
	}
	return nil
}

// Next plays the song after the current one, wrapping at the end of the
// queue. A current song missing from the queue moves to the first entry.
func (s *Session) Next(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stepLocked(ctx, 1)
}

// Previous plays the song before the current one, wrapping at the start.
// A current song missing from the queue moves to the last entry.
func (s *Session) Previous(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stepLocked(ctx, -1)
}

func (s *Session) stepLocked(ctx context.Context, dir int) error {
	q := s.state.Queue
	if len(q) == 0 {
		return ErrQueueEmpty
	}
	if s.state.Current == nil {
		return ErrNoSong
	}

	id := s.state.Current.ID
	i := slices.IndexFunc(q, func(song Song) bool { return song.ID == id })
	switch {
	case i >= 0:
		i = (i + dir + len(q)) % len(q)
	case dir > 0:
		i = 0
	default:
		i = len(q) - 1
	}
	return s.playLocked(ctx, q[i])
}

// ToggleShuffle flips shuffle mode. Enabling it shuffles the queue once.
func (s *Session) ToggleShuffle(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Shuffle = !s.state.Shuffle
	if s.state.Shuffle && len(s.state.Queue) > 1 {
		q := s.state.Queue
		s.shuffle(len(q), func(i, j int) { q[i], q[j] = q[j], q[i] })
	}
	s.persist(ctx)
}

// CycleRepeat advances the repeat mode none -> all -> one -> none.
func (s *Session) CycleRepeat(ctx context.Context) RepeatMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Repeat = s.state.Repeat.next()
	s.persist(ctx)
	return s.state.Repeat
}

// Enqueue appends songs to the queue.
func (s *Session) Enqueue(ctx context.Context, songs ...Song) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Queue = append(s.state.Queue, songs...)
	s.persist(ctx)
}

// Remove drops every queue entry with the given song ID.
func (s *Session) Remove(ctx context.Context, songID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Queue = slices.DeleteFunc(s.state.Queue, func(song Song) bool { return song.ID == songID })
	s.persist(ctx)
}

// ClearQueue empties the queue. The current song keeps playing.
func (s *Session) ClearQueue(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Queue = []Song{}
	s.persist(ctx)
}

func (s *Session) handleEvent(ev Event) {
	ctx := context.Background()
	s.mu.Lock()
	defer s.mu.Unlock()

	switch ev.Type {
	case EventPlaying:
		s.state.Playing = true
	case EventPaused:
		s.state.Playing = false
		s.state.Position = ev.Position
	case EventProgress:
		s.state.Position = ev.Position
	case EventEnded:
		if s.state.Repeat == RepeatOne && s.state.Current != nil {
			s.replayLocked(ctx)
			return
		}
		if err := s.stepLocked(ctx, 1); err != nil {
			s.log.Info("playback finished", "reason", err)
			s.state.Playing = false
		}
	}
	s.persist(ctx)
}

func (s *Session) replayLocked(ctx context.Context) {
	s.state.Position = 0
	defer s.persist(ctx)
	if IsDemo(s.state.Current.VideoID) {
		return
	}
	if err := s.backend.Seek(ctx, 0); err != nil {
		s.log.Warn("replay seek failed", "error", err)
	}
	if err := s.backend.Play(ctx); err != nil {
		s.log.Warn("replay failed", "error", err)
		s.state.Playing = false
	}
}

// close detaches the session from its backend and stops the backend.
func (s *Session) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
	if s.stop != nil {
		s.stop()
		s.stop = nil
	}
}
