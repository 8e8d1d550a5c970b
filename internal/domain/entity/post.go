package entity

import "time"

// Post is the sample business entity. No special lifecycle beyond CRUD.
type Post struct {
	ID        int64
	UserID    string
	Title     string
	Content   string
	Published bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
