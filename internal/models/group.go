package models

import "time"

// Group names a multi-party conversation; its messages live on the group's
// chat row like any other conversation.
type Group struct {
	ID        int       `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	OwnerID   int       `db:"owner_id" json:"owner_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	ChatID    int       `db:"chat_id" json:"chat_id"`
}
