package domain

import "time"

// Comment is a note attached to a request. Internal comments are hidden from clients.
type Comment struct {
	ID         int64
	RequestID  int64
	AuthorID   int64
	AuthorName string
	Body       string
	Internal   bool
	CreatedAt  time.Time
}
