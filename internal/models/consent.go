package models

import "time"

// IntroductionStatus is the state of a parent-to-parent introduction.
type IntroductionStatus string

const (
	IntroductionPending  IntroductionStatus = "pending"
	IntroductionAccepted IntroductionStatus = "accepted"
	IntroductionRejected IntroductionStatus = "rejected"
)

// PendingContactRequest is upserted when a child tries to start a chat with
// a child from another family, so the contacted child's parent is informed
// in-app. Unique per (child, contact).
type PendingContactRequest struct {
	ID            int       `db:"id" json:"id"`
	ChildID       int       `db:"child_id" json:"child_id"`
	ContactUserID int       `db:"contact_user_id" json:"contact_user_id"`
	ChatID        int       `db:"chat_id" json:"chat_id"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// IntroductionRecord drives the parent-to-parent approval workflow. Unique
// per unordered child pair; terminal once status leaves pending.
type IntroductionRecord struct {
	ID              int                `db:"id" json:"id"`
	ChatID          int                `db:"chat_id" json:"chat_id"`
	InvitingChildID int                `db:"inviting_child_id" json:"inviting_child_id"`
	InvitedChildID  int                `db:"invited_child_id" json:"invited_child_id"`
	Status          IntroductionStatus `db:"status" json:"status"`
	CreatedAt       time.Time          `db:"created_at" json:"created_at"`
}
