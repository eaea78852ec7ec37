package domain

import "time"

// A user reviews a given medicine at most once, and only after a DELIVERED
// order containing it.
type Review struct {
	ID         int64     `db:"id" json:"id"`
	UserID     int64     `db:"user_id" json:"user_id"`
	MedicineID int64     `db:"medicine_id" json:"medicine_id"`
	Rating     int32     `db:"rating" json:"rating"`
	Comment    string    `db:"comment" json:"comment"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
