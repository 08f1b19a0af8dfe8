package parlor

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Tom8810/janso/internal/apperr"
	"github.com/Tom8810/janso/internal/model"
	"github.com/Tom8810/janso/internal/store"
)

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	gormDB, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := gormDB.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, gormDB.AutoMigrate(&model.Document{}))
	return store.NewGormStore(gormDB)
}

// seedParlor writes p-001 with room r-101 holding two waiting players.
func seedParlor(t *testing.T, s store.Store) {
	t.Helper()
	require.NoError(t, s.BatchWrite(context.Background(), []store.Write{
		{Collection: Collection, ID: "p-001", Fields: map[string]any{"name": "雀荘さくら", "address": "東京都新宿区1-1"}},
		{Collection: RoomsCollection("p-001"), ID: "r-101", Fields: map[string]any{
			"rank_name": "テンピン", "waiting_count": 2, "table_count": 1, "status": "active",
		}},
	}))
}

type recordingNotifier struct {
	parlors []Parlor
	rooms   [][]Room
}

func (n *recordingNotifier) RoomsOpened(p Parlor, rooms []Room) {
	n.parlors = append(n.parlors, p)
	n.rooms = append(n.rooms, rooms)
}

// failingStore fails every call with a raw driver-like error.
type failingStore struct {
	store.Store
}

func (failingStore) GetDocument(context.Context, string, string) (*store.Snapshot, error) {
	return nil, errors.New("pq: connection refused")
}

func TestService_GetParlor(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedParlor(t, s)
	svc := NewService(s)

	p, err := svc.GetParlor(ctx, "p-001")
	require.NoError(t, err)
	assert.Equal(t, "雀荘さくら", p.Name)
	require.Len(t, p.Rooms, 1)
	assert.Equal(t, Room{
		ID: "r-101", RankName: "テンピン", WaitingCount: 2, TableCount: 1,
		Status: StatusActive, CanPlayImmediately: false,
	}, p.Rooms[0])
}

func TestService_GetParlorWithoutRooms(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	require.NoError(t, s.BatchWrite(ctx, []store.Write{
		{Collection: Collection, ID: "p-002", Fields: map[string]any{"name": "空の雀荘"}},
	}))

	p, err := NewService(s).GetParlor(ctx, "p-002")
	require.NoError(t, err)
	assert.NotNil(t, p.Rooms)
	assert.Empty(t, p.Rooms)
}

func TestService_GetParlorNotFound(t *testing.T) {
	_, err := NewService(newTestStore(t)).GetParlor(context.Background(), "does-not-exist")
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
	assert.Equal(t, MsgParlorNotFound, apperr.From(err).Message)
}

func TestService_StoreFailureIsTranslated(t *testing.T) {
	svc := NewService(failingStore{Store: newTestStore(t)})

	_, err := svc.GetParlor(context.Background(), "p-001")
	require.Error(t, err)
	appErr := apperr.From(err)
	assert.Equal(t, apperr.KindInternal, appErr.Kind)
	assert.Equal(t, msgGetFailed, appErr.Message)
	assert.NotContains(t, appErr.Message, "pq:")
}

func TestService_UpdateParlorRooms(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedParlor(t, s)
	svc := NewService(s)

	rooms := []Room{
		{ID: "r-101", RankName: "テンピン", WaitingCount: 3, TableCount: 1, Status: StatusActive},
		{ID: "r-102", RankName: "テンゴ", WaitingCount: 0, TableCount: 2, Status: StatusActive, CanPlayImmediately: true},
	}
	first, err := svc.UpdateParlorRooms(ctx, "p-001", rooms)
	require.NoError(t, err)
	require.Len(t, first.Rooms, 2)
	assert.Equal(t, "雀荘さくら", first.Name, "room writes must not touch parlor fields")

	second, err := svc.UpdateParlorRooms(ctx, "p-001", rooms)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestService_UpdateKeepsUnlistedRooms(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedParlor(t, s)
	svc := NewService(s)

	p, err := svc.UpdateParlorRooms(ctx, "p-001", []Room{{ID: "r-102", RankName: "フリー", TableCount: 1}})
	require.NoError(t, err)
	assert.Len(t, p.Rooms, 2)

	p, err = svc.UpdateParlorRooms(ctx, "p-001", []Room{})
	require.NoError(t, err)
	assert.Len(t, p.Rooms, 2, "an empty list writes nothing")
}

func TestService_UpdatePreservesExplicitFalse(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedParlor(t, s)
	svc := NewService(s)

	p, err := svc.UpdateParlorRooms(ctx, "p-001", []Room{
		{ID: "r-101", RankName: "テンピン", WaitingCount: 0, TableCount: 1, CanPlayImmediately: false},
	})
	require.NoError(t, err)
	require.Len(t, p.Rooms, 1)
	assert.False(t, p.Rooms[0].CanPlayImmediately)
}

func TestService_UpdateRejectsInvalidRoomWithoutWriting(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedParlor(t, s)
	svc := NewService(s)

	_, err := svc.UpdateParlorRooms(ctx, "p-001", []Room{
		{ID: "r-101", RankName: "テンピン", WaitingCount: 0, TableCount: 1},
		{RankName: "id なし"},
	})
	require.Error(t, err)
	assert.Equal(t, CodeInvalidRoomData, apperr.From(err).Code)

	p, err := svc.GetParlor(ctx, "p-001")
	require.NoError(t, err)
	require.Len(t, p.Rooms, 1)
	assert.Equal(t, 2, p.Rooms[0].WaitingCount)
}

func TestService_UpdateUnknownParlor(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	svc := NewService(s)

	_, err := svc.UpdateParlorRooms(ctx, "p-404", []Room{{ID: "r-1"}})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	list, err := s.ListCollection(ctx, RoomsCollection("p-404"))
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestService_UpdateNotifiesOpenedRooms(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedParlor(t, s)
	svc := NewService(s)
	n := &recordingNotifier{}
	svc.SetNotifier(n)

	_, err := svc.UpdateParlorRooms(ctx, "p-001", []Room{
		{ID: "r-101", RankName: "テンピン", WaitingCount: 0, TableCount: 1, CanPlayImmediately: true},
	})
	require.NoError(t, err)
	require.Len(t, n.rooms, 1)
	assert.Equal(t, "p-001", n.parlors[0].ID)
	assert.Equal(t, "r-101", n.rooms[0][0].ID)

	// Already open: no second notification.
	_, err = svc.UpdateParlorRooms(ctx, "p-001", []Room{
		{ID: "r-101", RankName: "テンピン", WaitingCount: 0, TableCount: 1, CanPlayImmediately: true},
	})
	require.NoError(t, err)
	assert.Len(t, n.rooms, 1)
}

func TestService_AddRoom(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedParlor(t, s)
	svc := NewService(s)

	p, err := svc.AddRoom(ctx, "p-001", Room{RankName: " リャンピン ", TableCount: 2, CanPlayImmediately: true})
	require.NoError(t, err)
	require.Len(t, p.Rooms, 2)

	var added *Room
	for i := range p.Rooms {
		if p.Rooms[i].ID != "r-101" {
			added = &p.Rooms[i]
		}
	}
	require.NotNil(t, added)
	assert.NotEmpty(t, added.ID)
	assert.Equal(t, "リャンピン", added.RankName)
	assert.Equal(t, StatusActive, added.Status)

	_, err = svc.AddRoom(ctx, "p-404", Room{RankName: "x"})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestService_ListParlors(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedParlor(t, s)
	svc := NewService(s)
	require.NoError(t, svc.SaveParlor(ctx, "p-002", Registration{Name: "雀荘つばき", Address: "大阪府"}, []Room{
		{ID: "r-201", RankName: "フリー", TableCount: 1, CanPlayImmediately: true},
		{ID: "r-202", RankName: "セット", TableCount: 1, Status: StatusInactive, CanPlayImmediately: true},
	}))

	list, err := svc.ListParlors(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)

	byID := map[string]Summary{}
	for _, sum := range list {
		byID[sum.ID] = sum
	}
	assert.Equal(t, Summary{ID: "p-001", Name: "雀荘さくら", Address: "東京都新宿区1-1", RoomsCount: 1}, byID["p-001"])
	assert.Equal(t, 2, byID["p-002"].RoomsCount)
	assert.True(t, byID["p-002"].HasAvailableRooms)
}

func TestService_GetDetail(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newTestStore(t))
	reg := Registration{
		Name:    "雀荘つばき",
		Address: "大阪府 大阪市北区",
		Profile: Profile{
			PhoneNumber:   "06-0000-0000",
			BusinessHours: &BusinessHours{Open: "12:00", Close: "23:00"},
			MaxCapacity:   16,
		},
	}
	require.NoError(t, svc.SaveParlor(ctx, "p-002", reg, nil))

	d, err := svc.GetDetail(ctx, "p-002")
	require.NoError(t, err)
	assert.Equal(t, "雀荘つばき", d.Name)
	assert.Equal(t, "06-0000-0000", d.PhoneNumber)
	assert.Equal(t, 16, d.MaxCapacity)
	assert.Equal(t, "23:00", d.BusinessHours.Close)
	assert.Empty(t, d.Rooms)
}

func TestService_AddRoomRequiresRankName(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedParlor(t, s)

	_, err := NewService(s).AddRoom(ctx, "p-001", Room{RankName: "  ", TableCount: 1})
	assert.Equal(t, CodeInvalidRoomData, apperr.From(err).Code)
}

func TestService_Exists(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedParlor(t, s)
	svc := NewService(s)

	ok, err := svc.Exists(ctx, "p-001")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.Exists(ctx, "p-404")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = svc.Exists(ctx, "a/b")
	require.NoError(t, err)
	assert.False(t, ok)
}
