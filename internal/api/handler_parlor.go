package api

import (
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/Tom8810/janso/internal/mw"
	"github.com/Tom8810/janso/internal/parlor"
)

// GetParlor handles GET /api/parlor?id=. Without an id it serves the signed-in
// owner's parlor, else the configured default parlor.
func (h *Handler) GetParlor(c *gin.Context) {
	id := c.Query("id")
	if id == "" {
		if accountID, ok := mw.AccountID(c); ok {
			id = accountID
		} else {
			id = h.defaultParlorID
		}
	}

	p, err := h.parlors.GetParlor(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// UpdateParlor handles POST /api/parlor/update.
//
// Every submitted room is merge-upserted by id in one batch and the stored
// parlor is returned. Rooms left out of the list are NOT deleted: removing a
// room in the console and saving leaves its document in place.
func (h *Handler) UpdateParlor(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		h.fail(c, parlor.MalformedBody())
		return
	}
	id, rooms, err := decodeUpdateRequest(body)
	if err != nil {
		h.fail(c, err)
		return
	}
	if err := h.checkOwner(c, id); err != nil {
		h.fail(c, err)
		return
	}

	p, err := h.parlors.UpdateParlorRooms(c.Request.Context(), id, rooms)
	if err != nil {
		h.fail(c, err)
		return
	}
	logUpdate(id, rooms)
	h.invalidate()
	c.JSON(http.StatusOK, p)
}

func logUpdate(id string, rooms []parlor.Room) {
	summary := make([]string, 0, len(rooms))
	for _, r := range rooms {
		summary = append(summary, fmt.Sprintf("%s(%s) waiting=%d tables=%d can_play=%t",
			r.ID, r.RankName, r.WaitingCount, r.TableCount, r.CanPlayImmediately))
	}
	logrus.WithFields(logrus.Fields{
		"parlor_id": id,
		"rooms":     len(rooms),
		"summary":   summary,
	}).Info("parlor rooms updated")
}

type addRoomRequest struct {
	ID   string      `json:"id"`
	Room roomPayload `json:"room"`
}

// AddRoom handles POST /api/parlor/rooms. The room id is allocated by the
// store.
func (h *Handler) AddRoom(c *gin.Context) {
	var req addRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, parlor.InvalidRoomData())
		return
	}
	if req.ID == "" {
		h.fail(c, parlor.InvalidParlorID())
		return
	}
	if err := h.checkOwner(c, req.ID); err != nil {
		h.fail(c, err)
		return
	}

	room := req.Room.toRoom()
	room.ID = ""
	p, err := h.parlors.AddRoom(c.Request.Context(), req.ID, room)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.invalidate()
	c.JSON(http.StatusCreated, p)
}

// ListParlors handles GET /api/parlors.
func (h *Handler) ListParlors(c *gin.Context) {
	list, err := h.parlors.ListParlors(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// GetParlorDetail handles GET /api/parlors/:id.
func (h *Handler) GetParlorDetail(c *gin.Context) {
	d, err := h.parlors.GetDetail(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}
