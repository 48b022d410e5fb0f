package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/claude/pulseboard/internal/player"
	"github.com/go-chi/chi/v5"
)

func (s *Server) session(w http.ResponseWriter, r *http.Request) (*player.Session, bool) {
	sess, err := s.players.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, player.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "player session not found"})
			return nil, false
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return nil, false
	}
	return sess, true
}

// writePlayerResult maps session errors onto statuses and otherwise returns the new state.
func (s *Server) writePlayerResult(w http.ResponseWriter, sess *player.Session, err error) {
	switch {
	case errors.Is(err, player.ErrNoSong), errors.Is(err, player.ErrQueueEmpty):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case err != nil:
		s.log.Error("player action failed", "session", sess.ID(), "error", err)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
	default:
		writeJSON(w, http.StatusOK, sessionResponse(sess))
	}
}

type playerState struct {
	ID string `json:"id"`
	player.Snapshot
}

func sessionResponse(sess *player.Session) playerState {
	return playerState{ID: sess.ID(), Snapshot: sess.Snapshot()}
}

func (s *Server) playerAction(fn func(ctx context.Context, sess *player.Session) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := s.session(w, r)
		if !ok {
			return
		}
		s.writePlayerResult(w, sess, fn(r.Context(), sess))
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return false
	}
	return true
}

func (s *Server) handleCreatePlayer(w http.ResponseWriter, r *http.Request) {
	sess, err := s.players.Create(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusCreated, sessionResponse(sess))
}

func (s *Server) handlePlayerState(w http.ResponseWriter, r *http.Request) {
	if sess, ok := s.session(w, r); ok {
		writeJSON(w, http.StatusOK, sessionResponse(sess))
	}
}

func (s *Server) handleDeletePlayer(w http.ResponseWriter, r *http.Request) {
	if err := s.players.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handlePlayerPlay plays {"song": {...}} or replaces the queue with
// {"queue": [...]} and plays its first entry.
func (s *Server) handlePlayerPlay(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req struct {
		Song  *player.Song  `json:"song"`
		Queue []player.Song `json:"queue"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	var err error
	switch {
	case len(req.Queue) > 0:
		err = sess.PlayQueue(r.Context(), req.Queue)
	case req.Song != nil:
		err = sess.Play(r.Context(), *req.Song)
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "song or queue required"})
		return
	}
	s.writePlayerResult(w, sess, err)
}

func (s *Server) handlePlayerSeek(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req struct {
		Seconds float64 `json:"seconds"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	s.writePlayerResult(w, sess, sess.Seek(r.Context(), req.Seconds))
}

func (s *Server) handlePlayerVolume(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req struct {
		Volume int `json:"volume"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	s.writePlayerResult(w, sess, sess.SetVolume(r.Context(), req.Volume))
}

func (s *Server) handleQueueAdd(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req struct {
		Songs []player.Song `json:"songs"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	sess.Enqueue(r.Context(), req.Songs...)
	writeJSON(w, http.StatusOK, sessionResponse(sess))
}

func (s *Server) handleQueueRemove(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	sess.Remove(r.Context(), chi.URLParam(r, "songID"))
	writeJSON(w, http.StatusOK, sessionResponse(sess))
}
