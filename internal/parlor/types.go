package parlor

// SeatsPerTable is the number of players one mahjong table seats.
const SeatsPerTable = 4

// RoomStatus is the lifecycle flag of a room.
type RoomStatus string

const (
	StatusActive   RoomStatus = "active"
	StatusInactive RoomStatus = "inactive"
)

// Valid reports whether s is a known status.
func (s RoomStatus) Valid() bool {
	return s == StatusActive || s == StatusInactive
}

// Room is a stakes tier within a parlor with its waiting-room state.
type Room struct {
	ID                 string     `json:"id"`
	RankName           string     `json:"rank_name"`
	WaitingCount       int        `json:"waiting_count"`
	TableCount         int        `json:"table_count"`
	Status             RoomStatus `json:"status"`
	CanPlayImmediately bool       `json:"can_play_immediately"`
}

// Capacity is the highest waiting count a room accepts: one full table of
// players per table, counting at least one table.
func (r Room) Capacity() int {
	return SeatsPerTable * max(r.TableCount, 1)
}

// Parlor is a mahjong venue with its rooms.
type Parlor struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address"`
	Rooms   []Room `json:"rooms"`
}

// BusinessHours is the daily opening window, e.g. "10:00" to "23:00".
type BusinessHours struct {
	Open  string `json:"open" yaml:"open"`
	Close string `json:"close" yaml:"close"`
}

// AddressDetails holds the structured address entered at registration.
type AddressDetails struct {
	PostalCode string `json:"postal_code" yaml:"postal_code"`
	Prefecture string `json:"prefecture" yaml:"prefecture"`
	Address1   string `json:"address1" yaml:"address1"`
	Address2   string `json:"address2" yaml:"address2"`
	Building   string `json:"building" yaml:"building"`
}

// Profile holds the owner-entered parlor fields beyond name and address.
type Profile struct {
	PhoneNumber    string          `json:"phone_number,omitempty" yaml:"phone_number"`
	BusinessHours  *BusinessHours  `json:"business_hours,omitempty" yaml:"business_hours"`
	Description    string          `json:"description,omitempty" yaml:"description"`
	MaxCapacity    int             `json:"max_capacity,omitempty" yaml:"max_capacity"`
	AddressDetails *AddressDetails `json:"address_details,omitempty" yaml:"address_details"`
}

// Detail is the public view of a parlor.
type Detail struct {
	Parlor
	Profile
}

// Summary is one entry of the public listing.
type Summary struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	Address           string `json:"address"`
	RoomsCount        int    `json:"rooms_count"`
	HasAvailableRooms bool   `json:"has_available_rooms"`
}

// Registration is the data needed to create a parlor document.
type Registration struct {
	Name      string
	Address   string
	OwnerName string
	OwnerMail string
	Profile
}
