package api

import (
	"bytes"
	"encoding/json"

	"github.com/Tom8810/janso/internal/parlor"
)

// roomPayload is a room as submitted by the management console. Pointer
// fields distinguish absent values from zero values.
type roomPayload struct {
	ID                 *string `json:"id"`
	RankName           *string `json:"rank_name"`
	WaitingCount       *int    `json:"waiting_count"`
	TableCount         *int    `json:"table_count"`
	Status             string  `json:"status"`
	CanPlayImmediately *bool   `json:"can_play_immediately"`
}

// toRoom applies the write defaults. A missing can_play_immediately follows
// the waiting count.
func (p roomPayload) toRoom() parlor.Room {
	r := parlor.Room{Status: parlor.RoomStatus(p.Status)}
	if p.ID != nil {
		r.ID = *p.ID
	}
	if p.RankName != nil {
		r.RankName = *p.RankName
	}
	if p.WaitingCount != nil {
		r.WaitingCount = *p.WaitingCount
	}
	if p.TableCount != nil {
		r.TableCount = *p.TableCount
	}
	if p.CanPlayImmediately != nil {
		r.CanPlayImmediately = *p.CanPlayImmediately
	} else {
		r.CanPlayImmediately = r.WaitingCount == 0
	}
	return r
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// decodeUpdateRequest parses {id, rooms}. A body that is not a JSON object is
// malformed-body; otherwise the first problem is reported as
// invalid-parlor-id, invalid-rooms-data or invalid-room-data, in that order.
func decodeUpdateRequest(body []byte) (string, []parlor.Room, error) {
	var req map[string]json.RawMessage
	if err := json.Unmarshal(body, &req); err != nil || req == nil {
		return "", nil, parlor.MalformedBody()
	}

	var id string
	if err := json.Unmarshal(req["id"], &id); err != nil || id == "" {
		return "", nil, parlor.InvalidParlorID()
	}

	rawRooms := req["rooms"]
	var items []json.RawMessage
	if isNull(rawRooms) {
		return "", nil, parlor.InvalidRoomsData()
	}
	if err := json.Unmarshal(rawRooms, &items); err != nil {
		return "", nil, parlor.InvalidRoomsData()
	}

	rooms := make([]parlor.Room, 0, len(items))
	for _, item := range items {
		var p roomPayload
		if err := json.Unmarshal(item, &p); err != nil || isNull(item) {
			return "", nil, parlor.InvalidRoomData()
		}
		if p.ID == nil || *p.ID == "" || p.RankName == nil {
			return "", nil, parlor.InvalidRoomData()
		}
		rooms = append(rooms, p.toRoom())
	}
	return id, rooms, nil
}
