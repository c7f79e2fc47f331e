package models

import "time"

// Chat is a conversation: either a two-party pair or a group. Pair
// participants are stored sorted so the pair is order-independent; user1 and
// user2 may be the same account for the self-referential parent approval
// channel. Group conversations carry a group id and no pair.
type Chat struct {
	ID        int       `db:"id" json:"id"`
	User1ID   *int      `db:"user1_id" json:"user1_id,omitempty"`
	User2ID   *int      `db:"user2_id" json:"user2_id,omitempty"`
	GroupID   *int      `db:"group_id" json:"group_id,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// IsGroup reports whether the conversation is group-tagged.
func (c Chat) IsGroup() bool {
	return c.GroupID != nil
}

// HasParticipant reports whether the user is one of the pair participants.
// Group membership is checked in the repository.
func (c Chat) HasParticipant(userID int) bool {
	return (c.User1ID != nil && *c.User1ID == userID) || (c.User2ID != nil && *c.User2ID == userID)
}

// ChatSummary is the per-user view of a pair chat.
type ChatSummary struct {
	ChatID   int       `db:"id" json:"chat_id"`
	FriendID int       `json:"friend_id"`
	Created  time.Time `db:"created_at" json:"created_at"`
}
