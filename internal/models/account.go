package models

import (
	"time"

	"sniksnak-service/internal/policy"
)

// Role distinguishes parents, children and fixed system identities.
type Role string

const (
	RoleParent Role = "parent"
	RoleChild  Role = "child"
	// RoleSystem marks well-known relay identities. System accounts only
	// ever author advisory messages, never act as a human.
	RoleSystem Role = "system"
)

// Account is a chat identity.
type Account struct {
	ID        int       `db:"id" json:"id"`
	Username  string    `db:"username" json:"username"`
	Email     *string   `db:"email" json:"email,omitempty"`
	Role      Role      `db:"role" json:"role"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// ParentChildLink ties a child account to its supervising parent. Only the
// owning parent may mutate the surveillance level.
type ParentChildLink struct {
	ID                int         `db:"id" json:"id"`
	ParentID          int         `db:"parent_id" json:"parent_id"`
	ChildID           int         `db:"child_id" json:"child_id"`
	SurveillanceLevel policy.Tier `db:"surveillance_level" json:"surveillance_level"`
	CreatedAt         time.Time   `db:"created_at" json:"created_at"`
}
