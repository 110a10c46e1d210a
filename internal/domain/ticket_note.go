package domain

import "time"

// SystemAuthor is the author name recorded when no user is attached to a note.
const SystemAuthor = "System"

// TicketNote is an append-only entry in a ticket thread.
type TicketNote struct {
	ID         int64
	TicketID   int64
	UserID     *int64
	AuthorName string
	Note       string
	IsInternal bool
	CreatedAt  time.Time
}
