package parlor

import "strings"

// normalizeRoom fills the defaults of a submitted room and checks its bounds.
// requireID is false for rooms whose id the store allocates.
func normalizeRoom(r Room, requireID bool) (Room, error) {
	if requireID && (r.ID == "" || strings.Contains(r.ID, "/")) {
		return r, InvalidRoomData()
	}
	if r.Status == "" {
		r.Status = StatusActive
	}
	if !r.Status.Valid() {
		return r, InvalidRoomData()
	}
	if r.TableCount < 0 || r.WaitingCount < 0 || r.WaitingCount > r.Capacity() {
		return r, InvalidRoomData()
	}
	return r, nil
}

// normalizeRooms validates a full submitted room list. Ids must be unique
// within the list because they key documents of one parlor.
func normalizeRooms(rooms []Room) ([]Room, error) {
	out := make([]Room, 0, len(rooms))
	seen := make(map[string]struct{}, len(rooms))
	for _, r := range rooms {
		n, err := normalizeRoom(r, true)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[n.ID]; dup {
			return nil, InvalidRoomData()
		}
		seen[n.ID] = struct{}{}
		out = append(out, n)
	}
	return out, nil
}
