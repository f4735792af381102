package models

// Room is an immutable teaching space record.
type Room struct {
	ID         int64    `db:"id" json:"id"`
	RoomNumber string   `db:"room_number" json:"room_number"`
	Capacity   int      `db:"capacity" json:"capacity"`
	Type       RoomType `db:"type" json:"type"`
	Building   string   `db:"building" json:"building,omitempty"`
}
