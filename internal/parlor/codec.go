package parlor

import (
	"github.com/Tom8810/janso/internal/store"
)

// Stored field names.
const (
	fieldRankName           = "rank_name"
	fieldWaitingCount       = "waiting_count"
	fieldTableCount         = "table_count"
	fieldStatus             = "status"
	fieldCanPlayImmediately = "can_play_immediately"

	fieldName           = "name"
	fieldAddress        = "address"
	fieldAddressDetails = "address_details"
	fieldPhoneNumber    = "phone_number"
	fieldBusinessHours  = "business_hours"
	fieldDescription    = "description"
	fieldMaxCapacity    = "max_capacity"
	fieldOwnerName      = "owner_name"
	fieldOwnerEmail     = "owner_email"
)

// decodeRoom applies the read defaults to a stored room. Counts are clamped
// so the result is always a valid update payload: tables to at least zero,
// waiting players to [0, Capacity()]. A missing can_play_immediately is
// derived from the clamped waiting count; a stored false is kept as is.
func decodeRoom(snap *store.Snapshot) Room {
	room := Room{ID: snap.ID, Status: StatusActive}
	if v, ok := snap.String(fieldRankName); ok {
		room.RankName = v
	}
	if v, ok := snap.Int(fieldWaitingCount); ok {
		room.WaitingCount = v
	}
	if v, ok := snap.Int(fieldTableCount); ok {
		room.TableCount = v
	}
	room.TableCount = max(room.TableCount, 0)
	room.WaitingCount = min(max(room.WaitingCount, 0), room.Capacity())
	if v, ok := snap.String(fieldStatus); ok && RoomStatus(v).Valid() {
		room.Status = RoomStatus(v)
	}
	if v, ok := snap.Bool(fieldCanPlayImmediately); ok {
		room.CanPlayImmediately = v
	} else {
		room.CanPlayImmediately = room.WaitingCount == 0
	}
	return room
}

// encodeRoom returns exactly the five persisted room fields.
func encodeRoom(r Room) map[string]any {
	return map[string]any{
		fieldRankName:           r.RankName,
		fieldWaitingCount:       r.WaitingCount,
		fieldTableCount:         r.TableCount,
		fieldStatus:             string(r.Status),
		fieldCanPlayImmediately: r.CanPlayImmediately,
	}
}

func decodeParlor(snap *store.Snapshot) Parlor {
	p := Parlor{ID: snap.ID}
	p.Name, _ = snap.String(fieldName)
	p.Address, _ = snap.String(fieldAddress)
	return p
}

func decodeProfile(snap *store.Snapshot) Profile {
	var prof Profile
	prof.PhoneNumber, _ = snap.String(fieldPhoneNumber)
	prof.Description, _ = snap.String(fieldDescription)
	prof.MaxCapacity, _ = snap.Int(fieldMaxCapacity)
	if m, ok := snap.Map(fieldBusinessHours); ok {
		open, _ := m["open"].(string)
		closing, _ := m["close"].(string)
		prof.BusinessHours = &BusinessHours{Open: open, Close: closing}
	}
	if m, ok := snap.Map(fieldAddressDetails); ok {
		str := func(k string) string { s, _ := m[k].(string); return s }
		prof.AddressDetails = &AddressDetails{
			PostalCode: str("postal_code"),
			Prefecture: str("prefecture"),
			Address1:   str("address1"),
			Address2:   str("address2"),
			Building:   str("building"),
		}
	}
	return prof
}

func encodeRegistration(reg Registration) map[string]any {
	fields := map[string]any{
		fieldName:        reg.Name,
		fieldAddress:     reg.Address,
		fieldOwnerName:   reg.OwnerName,
		fieldOwnerEmail:  reg.OwnerMail,
		fieldPhoneNumber: reg.PhoneNumber,
		fieldDescription: reg.Description,
		fieldMaxCapacity: reg.MaxCapacity,
	}
	if reg.BusinessHours != nil {
		fields[fieldBusinessHours] = map[string]any{
			"open":  reg.BusinessHours.Open,
			"close": reg.BusinessHours.Close,
		}
	}
	if d := reg.AddressDetails; d != nil {
		fields[fieldAddressDetails] = map[string]any{
			"postal_code": d.PostalCode,
			"prefecture":  d.Prefecture,
			"address1":    d.Address1,
			"address2":    d.Address2,
			"building":    d.Building,
		}
	}
	return fields
}
