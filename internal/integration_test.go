package internal

import (
	"context"
	"fmt"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Tom8810/janso/config"
	"github.com/Tom8810/janso/internal/api"
	"github.com/Tom8810/janso/internal/auth"
	"github.com/Tom8810/janso/internal/db"
	"github.com/Tom8810/janso/internal/mw"
	"github.com/Tom8810/janso/internal/parlor"
	"github.com/Tom8810/janso/internal/seed"
	"github.com/Tom8810/janso/internal/session"
	"github.com/Tom8810/janso/internal/store"
)

type openedRecorder struct {
	mu     sync.Mutex
	opened []string
}

func (r *openedRecorder) RoomsOpened(_ parlor.Parlor, rooms []parlor.Room) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, room := range rooms {
		r.opened = append(r.opened, room.ID)
	}
}

func (r *openedRecorder) ids() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.opened...)
}

// TestOwnerSessionLifecycle drives an owner's working copy against a real
// server seeded with the demo parlors, from load through two saves.
func TestOwnerSessionLifecycle(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ctx := context.Background()

	// --- Test Setup ---
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	gormDB, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := gormDB.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	defer sqlDB.Close()
	require.NoError(t, db.Migrate(gormDB))

	parlors := parlor.NewService(store.NewGormStore(gormDB))
	recorder := &openedRecorder{}
	parlors.SetNotifier(recorder)
	authSvc := auth.NewService(gormDB, parlors, auth.NewTokenManager("integration", time.Hour), auth.NewMemoryRevoker())

	f, err := seed.Load("../config/seed.yaml")
	require.NoError(t, err)
	require.NoError(t, seed.Apply(ctx, f, parlors, authSvc))

	cfg := &config.Config{Server: config.ServerConfig{
		RateLimitPerSec:     1000,
		RateLimitBurst:      1000,
		AuthRateLimitPerMin: 60000,
	}}
	quiet := logrus.New()
	quiet.SetLevel(logrus.PanicLevel)
	handler := api.NewHandler(api.Deps{
		Parlors:         parlors,
		Auth:            authSvc,
		DB:              gormDB,
		Cache:           mw.NewResponseCache(time.Minute),
		DefaultParlorID: "p-001",
		EnforceOwner:    true,
	})
	server := httptest.NewServer(api.NewRouter(handler, cfg, quiet))
	defer server.Close()

	login, err := authSvc.Login(ctx, "test@example.com", "password123")
	require.NoError(t, err)
	require.Equal(t, "p-001", login.ParlorID)

	backend := session.NewHTTPBackend(server.URL, server.Client(), login.Token)
	sess := session.New(backend, session.StaticIdentity(login.ParlorID))

	stored := func(t *testing.T, roomID string) parlor.Room {
		t.Helper()
		p, err := backend.Fetch(ctx, "p-001")
		require.NoError(t, err)
		for _, r := range p.Rooms {
			if r.ID == roomID {
				return r
			}
		}
		t.Fatalf("room %s not stored", roomID)
		return parlor.Room{}
	}

	// --- Cycle 1: waiting players are counted locally, then saved ---
	t.Run("Cycle 1: Counting Waiting Players", func(t *testing.T) {
		require.NoError(t, sess.Load(ctx))
		view := sess.Snapshot()
		assert.Equal(t, session.StateReady, view.State)
		assert.Len(t, view.Parlor.Rooms, 5)

		for i := 0; i < 3; i++ {
			require.NoError(t, sess.IncrementWaiting("r-101"))
		}
		room, ok := sess.Room("r-101")
		require.True(t, ok)
		assert.Equal(t, 4, room.WaitingCount, "one table seats four")
		assert.True(t, sess.Snapshot().Dirty)
		assert.Equal(t, 2, stored(t, "r-101").WaitingCount, "local edits are not sent before Save")

		require.NoError(t, sess.Save(ctx))
		assert.False(t, sess.Snapshot().Dirty)
		assert.Equal(t, 4, stored(t, "r-101").WaitingCount)
		assert.Empty(t, recorder.ids())
	})

	// --- Cycle 2: the room opens up, a room is added and one dropped locally ---
	t.Run("Cycle 2: Room Opens Up", func(t *testing.T) {
		for i := 0; i < 5; i++ {
			require.NoError(t, sess.DecrementWaiting("r-101"))
		}
		require.NoError(t, sess.ToggleAvailability("r-101"))
		added, err := sess.AddRoomLocal("デカピン", 2)
		require.NoError(t, err)
		removed, err := sess.RemoveRoomLocal("r-105")
		require.NoError(t, err)
		require.True(t, removed)

		require.NoError(t, sess.Save(ctx))

		r101 := stored(t, "r-101")
		assert.Equal(t, 0, r101.WaitingCount)
		assert.True(t, r101.CanPlayImmediately)
		assert.Equal(t, "デカピン", stored(t, added.ID).RankName)
		assert.Equal(t, 5, stored(t, "r-105").WaitingCount, "rooms dropped locally stay stored")

		view := sess.Snapshot()
		assert.Len(t, view.Parlor.Rooms, 6, "the working copy is replaced by the stored parlor")
		assert.Equal(t, []string{"r-101"}, recorder.ids())
	})

	// --- Cycle 3: another owner cannot write this parlor ---
	t.Run("Cycle 3: Foreign Owner Is Rejected", func(t *testing.T) {
		other, err := authSvc.Register(ctx, auth.Registration{
			Email:     "other@example.com",
			Password:  "password123",
			Name:      "雀荘 よそ",
			OwnerName: "他人",
		})
		require.NoError(t, err)

		intruder := session.New(session.NewHTTPBackend(server.URL, server.Client(), other.Token),
			session.StaticIdentity("p-001"))
		require.NoError(t, intruder.Load(ctx))
		require.NoError(t, intruder.IncrementWaiting("r-101"))

		err = intruder.Save(ctx)
		var apiErr *session.APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, auth.CodePermissionDenied, apiErr.Code)
		assert.Equal(t, 0, stored(t, "r-101").WaitingCount)
	})
}
