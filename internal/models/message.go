package models

import "time"

// Message is immutable once created; there is no edit or delete.
type Message struct {
	ID            int       `db:"id" json:"id"`
	ChatID        int       `db:"chat_id" json:"chat_id"`
	SenderID      int       `db:"sender_id" json:"sender_id"`
	Content       string    `db:"content" json:"content"`
	AttachmentURL *string   `db:"attachment_url" json:"attachment_url,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}
