// Package session holds a parlor owner's working copy of their rooms. Room
// edits stay local until Save sends the whole room list to the server and the
// server's reconciled state replaces the local copy.
package session

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/Tom8810/janso/internal/parlor"
)

// State is the lifecycle state of a session.
type State int

const (
	StateLoading State = iota
	StateReady
	StateSaving
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateSaving:
		return "saving"
	}
	return "unknown"
}

var (
	// ErrNotReady is returned for edits before a load completed or while a
	// save is in flight.
	ErrNotReady = errors.New("session is not ready")
	// ErrRoomNotFound is returned for edits of a room not in the working copy.
	ErrRoomNotFound = errors.New("room not found")
	// ErrInvalidRoom is returned when a new room lacks a name or tables.
	ErrInvalidRoom = errors.New("invalid room")
)

// Backend reads and writes a parlor on the server.
type Backend interface {
	Fetch(ctx context.Context, parlorID string) (*parlor.Parlor, error)
	Save(ctx context.Context, parlorID string, rooms []parlor.Room) (*parlor.Parlor, error)
}

// Identity resolves the signed-in owner to the parlor they manage.
type Identity interface {
	ParlorID() string
}

// StaticIdentity is an Identity for a fixed parlor id.
type StaticIdentity string

func (s StaticIdentity) ParlorID() string { return string(s) }

// ConfirmFunc asks the owner whether a room may be removed.
type ConfirmFunc func(room parlor.Room) bool

// View is a copy of the session state.
type View struct {
	State  State
	Dirty  bool
	Parlor *parlor.Parlor
}

// Session is the management working copy of one parlor.
type Session struct {
	backend  Backend
	identity Identity
	confirm  ConfirmFunc
	newID    func() string

	mu     sync.Mutex
	state  State
	parlor *parlor.Parlor
	dirty  bool
}

// Option configures a Session.
type Option func(*Session)

// WithConfirm sets the removal confirmation. Without it removals are
// always confirmed.
func WithConfirm(f ConfirmFunc) Option {
	return func(s *Session) { s.confirm = f }
}

// WithIDGenerator replaces the id generator for new rooms.
func WithIDGenerator(f func() string) Option {
	return func(s *Session) { s.newID = f }
}

// New creates a session in the loading state.
func New(backend Backend, identity Identity, opts ...Option) *Session {
	s := &Session{
		backend:  backend,
		identity: identity,
		confirm:  func(parlor.Room) bool { return true },
		newID:    NewTimestampIDs(nil).Next,
		state:    StateLoading,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load fetches the owner's parlor and discards local edits. On failure the
// previous state is kept and the error returned; there is no retry.
func (s *Session) Load(ctx context.Context) error {
	s.mu.Lock()
	if s.state == StateSaving {
		s.mu.Unlock()
		return ErrNotReady
	}
	id := s.identity.ParlorID()
	s.mu.Unlock()

	p, err := s.backend.Fetch(ctx, id)
	if err != nil {
		logrus.WithError(err).WithField("parlor_id", id).Warn("failed to load parlor")
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.parlor = p
	s.dirty = false
	s.state = StateReady
	return nil
}

// IncrementWaiting adds one waiting player. A room at or above its capacity
// is left unchanged.
func (s *Session) IncrementWaiting(roomID string) error {
	return s.updateRoom(roomID, func(r *parlor.Room) {
		if r.WaitingCount < r.Capacity() {
			r.WaitingCount++
		}
	})
}

// DecrementWaiting removes one waiting player; at zero it does nothing.
func (s *Session) DecrementWaiting(roomID string) error {
	return s.updateRoom(roomID, func(r *parlor.Room) {
		r.WaitingCount = max(r.WaitingCount-1, 0)
	})
}

// ToggleAvailability flips whether a room can be played immediately.
func (s *Session) ToggleAvailability(roomID string) error {
	return s.updateRoom(roomID, func(r *parlor.Room) {
		r.CanPlayImmediately = !r.CanPlayImmediately
	})
}

func (s *Session) updateRoom(roomID string, edit func(*parlor.Room)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateReady {
		return ErrNotReady
	}
	i := s.indexOf(roomID)
	if i < 0 {
		return ErrRoomNotFound
	}
	edit(&s.parlor.Rooms[i])
	s.dirty = true
	return nil
}

// AddRoomLocal appends an unsaved room with a client-generated id. It is
// written on the next Save.
func (s *Session) AddRoomLocal(rankName string, tableCount int) (parlor.Room, error) {
	rankName = strings.TrimSpace(rankName)
	if rankName == "" || tableCount < 1 {
		return parlor.Room{}, ErrInvalidRoom
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateReady {
		return parlor.Room{}, ErrNotReady
	}
	room := parlor.Room{
		ID:                 s.newID(),
		RankName:           rankName,
		TableCount:         tableCount,
		Status:             parlor.StatusActive,
		CanPlayImmediately: true,
	}
	s.parlor.Rooms = append(s.parlor.Rooms, room)
	s.dirty = true
	return room, nil
}

// RemoveRoomLocal drops a room from the working copy once the owner confirms
// and reports whether it was removed. Saving afterwards does not delete the
// stored room.
func (s *Session) RemoveRoomLocal(roomID string) (bool, error) {
	s.mu.Lock()
	if s.state != StateReady {
		s.mu.Unlock()
		return false, ErrNotReady
	}
	i := s.indexOf(roomID)
	if i < 0 {
		s.mu.Unlock()
		return false, ErrRoomNotFound
	}
	room := s.parlor.Rooms[i]
	s.mu.Unlock()

	if !s.confirm(room) {
		return false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateReady {
		return false, ErrNotReady
	}
	if i = s.indexOf(roomID); i < 0 {
		return false, ErrRoomNotFound
	}
	s.parlor.Rooms = slices.Delete(s.parlor.Rooms, i, i+1)
	s.dirty = true
	return true, nil
}

// Save sends the entire working room list and replaces the working copy with
// the server's answer. Without local edits it does nothing. On failure the
// local edits and the dirty flag are kept.
func (s *Session) Save(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateReady {
		s.mu.Unlock()
		return ErrNotReady
	}
	if !s.dirty {
		s.mu.Unlock()
		return nil
	}
	s.state = StateSaving
	id := s.parlor.ID
	rooms := slices.Clone(s.parlor.Rooms)
	s.mu.Unlock()

	p, err := s.backend.Save(ctx, id, rooms)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateReady
	if err != nil {
		logrus.WithError(err).WithField("parlor_id", id).Warn("failed to save parlor")
		return err
	}
	s.parlor = p
	s.dirty = false
	return nil
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := View{State: s.state, Dirty: s.dirty}
	if s.parlor != nil {
		p := *s.parlor
		p.Rooms = slices.Clone(s.parlor.Rooms)
		v.Parlor = &p
	}
	return v
}

// Room returns a copy of one room of the working copy.
func (s *Session) Room(roomID string) (parlor.Room, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.parlor == nil {
		return parlor.Room{}, false
	}
	if i := s.indexOf(roomID); i >= 0 {
		return s.parlor.Rooms[i], true
	}
	return parlor.Room{}, false
}

func (s *Session) indexOf(roomID string) int {
	return slices.IndexFunc(s.parlor.Rooms, func(r parlor.Room) bool { return r.ID == roomID })
}
