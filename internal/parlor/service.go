// Package parlor maps stored parlor and room documents to domain records and
// performs the batched room writes behind the management console.
//
// Room writes are merge-upserts keyed by room id. A room missing from a
// submitted list is left untouched in the store: removal is never propagated.
package parlor

import (
	"context"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/Tom8810/janso/internal/store"
)

// Collection is the top-level collection holding parlor documents.
const Collection = "parlors"

// RoomsCollection returns the room sub-collection path of a parlor.
func RoomsCollection(parlorID string) string {
	return store.CollectionPath(Collection, parlorID, "rooms")
}

// Notifier is told about rooms that became playable immediately after an
// update committed.
type Notifier interface {
	RoomsOpened(parlor Parlor, rooms []Room)
}

// Service is the parlor data access service.
type Service struct {
	store    store.Store
	notifier Notifier
}

// NewService creates a service over the given document store.
func NewService(s store.Store) *Service {
	return &Service{store: s}
}

// SetNotifier installs the room-opened hook. A nil notifier disables it.
func (s *Service) SetNotifier(n Notifier) {
	s.notifier = n
}

// GetParlor returns a parlor with all of its rooms.
func (s *Service) GetParlor(ctx context.Context, id string) (*Parlor, error) {
	if id == "" {
		return nil, InvalidParlorID()
	}
	snap, err := s.store.GetDocument(ctx, Collection, id)
	if err != nil {
		return nil, translate(err, "get", id, msgGetFailed)
	}
	p := decodeParlor(snap)
	p.Rooms, err = s.listRooms(ctx, id)
	if err != nil {
		return nil, translate(err, "get", id, msgGetFailed)
	}
	return &p, nil
}

// GetDetail returns the public view of a parlor, including its profile.
func (s *Service) GetDetail(ctx context.Context, id string) (*Detail, error) {
	if id == "" {
		return nil, InvalidParlorID()
	}
	snap, err := s.store.GetDocument(ctx, Collection, id)
	if err != nil {
		return nil, translate(err, "detail", id, msgGetFailed)
	}
	d := Detail{Parlor: decodeParlor(snap), Profile: decodeProfile(snap)}
	d.Rooms, err = s.listRooms(ctx, id)
	if err != nil {
		return nil, translate(err, "detail", id, msgGetFailed)
	}
	return &d, nil
}

// Exists reports whether a parlor document exists.
func (s *Service) Exists(ctx context.Context, id string) (bool, error) {
	_, err := s.store.GetDocument(ctx, Collection, id)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, store.ErrNotFound), errors.Is(err, store.ErrInvalidPath):
		return false, nil
	}
	return false, translate(err, "exists", id, msgGetFailed)
}

// ListParlors returns the public listing of every parlor.
func (s *Service) ListParlors(ctx context.Context) ([]Summary, error) {
	snaps, err := s.store.ListCollection(ctx, Collection)
	if err != nil {
		return nil, translate(err, "list", "", msgListFailed)
	}

	summaries := make([]Summary, 0, len(snaps))
	for i := range snaps {
		p := decodeParlor(&snaps[i])
		rooms, err := s.listRooms(ctx, p.ID)
		if err != nil {
			return nil, translate(err, "list", p.ID, msgListFailed)
		}
		summaries = append(summaries, Summary{
			ID:                p.ID,
			Name:              p.Name,
			Address:           p.Address,
			RoomsCount:        len(rooms),
			HasAvailableRooms: hasAvailableRoom(rooms),
		})
	}
	return summaries, nil
}

// UpdateParlorRooms merge-upserts every submitted room in one batch and
// returns the parlor as stored afterwards. An empty list writes nothing.
func (s *Service) UpdateParlorRooms(ctx context.Context, id string, rooms []Room) (*Parlor, error) {
	if id == "" {
		return nil, InvalidParlorID()
	}
	rooms, err := normalizeRooms(rooms)
	if err != nil {
		return nil, err
	}

	before, err := s.GetParlor(ctx, id)
	if err != nil {
		return nil, translate(err, "update", id, msgUpdateFailed)
	}

	writes := make([]store.Write, 0, len(rooms))
	for _, r := range rooms {
		writes = append(writes, store.Write{
			Collection: RoomsCollection(id),
			ID:         r.ID,
			Fields:     encodeRoom(r),
			Merge:      true,
		})
	}
	if err := s.store.BatchWrite(ctx, writes); err != nil {
		return nil, translate(err, "update", id, msgUpdateFailed)
	}

	after, err := s.GetParlor(ctx, id)
	if err != nil {
		return nil, translate(err, "update", id, msgUpdateFailed)
	}

	if s.notifier != nil {
		if opened := openedRooms(before.Rooms, after.Rooms); len(opened) > 0 {
			s.notifier.RoomsOpened(*after, opened)
		}
	}
	return after, nil
}

// AddRoom stores a room under a store-generated id and returns the parlor.
func (s *Service) AddRoom(ctx context.Context, id string, room Room) (*Parlor, error) {
	if id == "" {
		return nil, InvalidParlorID()
	}
	room, err := normalizeRoom(room, false)
	if err != nil {
		return nil, err
	}
	room.RankName = strings.TrimSpace(room.RankName)
	if room.RankName == "" {
		return nil, InvalidRoomData()
	}

	if _, err := s.store.GetDocument(ctx, Collection, id); err != nil {
		return nil, translate(err, "add_room", id, msgAddFailed)
	}

	room.ID = s.store.NewID()
	if err := s.store.BatchWrite(ctx, []store.Write{{
		Collection: RoomsCollection(id),
		ID:         room.ID,
		Fields:     encodeRoom(room),
	}}); err != nil {
		return nil, translate(err, "add_room", id, msgAddFailed)
	}

	logrus.WithFields(logrus.Fields{
		"parlor_id": id,
		"room_id":   room.ID,
	}).Info("room added")
	return s.GetParlor(ctx, id)
}

// SaveParlor merge-upserts a parlor document and the given rooms atomically.
// Registration and seeding use it.
func (s *Service) SaveParlor(ctx context.Context, id string, reg Registration, rooms []Room) error {
	if id == "" {
		return InvalidParlorID()
	}
	rooms, err := normalizeRooms(rooms)
	if err != nil {
		return err
	}

	writes := []store.Write{{
		Collection: Collection,
		ID:         id,
		Fields:     encodeRegistration(reg),
		Merge:      true,
	}}
	for _, r := range rooms {
		writes = append(writes, store.Write{
			Collection: RoomsCollection(id),
			ID:         r.ID,
			Fields:     encodeRoom(r),
			Merge:      true,
		})
	}
	if err := s.store.BatchWrite(ctx, writes); err != nil {
		return translate(err, "save", id, msgSaveFailed)
	}
	return nil
}

func (s *Service) listRooms(ctx context.Context, parlorID string) ([]Room, error) {
	snaps, err := s.store.ListCollection(ctx, RoomsCollection(parlorID))
	if err != nil {
		return nil, err
	}
	rooms := make([]Room, 0, len(snaps))
	for i := range snaps {
		rooms = append(rooms, decodeRoom(&snaps[i]))
	}
	return rooms, nil
}

func hasAvailableRoom(rooms []Room) bool {
	for _, r := range rooms {
		if r.Status == StatusActive && r.CanPlayImmediately {
			return true
		}
	}
	return false
}

// openedRooms returns active rooms that could not be played immediately
// before and can now.
func openedRooms(before, after []Room) []Room {
	previous := make(map[string]Room, len(before))
	for _, r := range before {
		previous[r.ID] = r
	}
	var opened []Room
	for _, r := range after {
		old, ok := previous[r.ID]
		if !ok || old.CanPlayImmediately || !r.CanPlayImmediately || r.Status != StatusActive {
			continue
		}
		opened = append(opened, r)
	}
	return opened
}
