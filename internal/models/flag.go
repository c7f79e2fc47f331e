package models

import "time"

// Flag records that an actor flagged a message. One flag per
// (message, actor); re-flagging is a no-op.
type Flag struct {
	ID        int       `db:"id" json:"id"`
	MessageID int       `db:"message_id" json:"message_id"`
	FlaggedBy int       `db:"flagged_by" json:"flagged_by"`
	Reason    *string   `db:"reason" json:"reason,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// FlaggedMessage is the classifier's structured finding, distinct from a
// human or system Flag.
type FlaggedMessage struct {
	ID          int       `db:"id" json:"id"`
	ChildID     int       `db:"child_id" json:"child_id"`
	MessageID   int       `db:"message_id" json:"message_id"`
	MatchedTerm string    `db:"matched_term" json:"matched_term"`
	Category    string    `db:"category" json:"category"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
