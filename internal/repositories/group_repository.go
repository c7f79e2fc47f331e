package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"sniksnak-service/internal/models"
)

var ErrGroupNotFound = errors.New("group not found")

// GroupRepository abstracts group persistence. Each group owns exactly one
// group-tagged conversation; its messages go through MessageRepository.
type GroupRepository interface {
	CreateGroup(ctx context.Context, ownerID int, name string, memberIDs []int) (models.Group, error)
	ListGroupsForUser(ctx context.Context, userID int) ([]models.Group, error)
	IsMember(ctx context.Context, groupID, userID int) (bool, error)
	GetGroup(ctx context.Context, groupID int) (models.Group, error)
}

// GroupRepo is a sqlx implementation of GroupRepository.
type GroupRepo struct {
	db *sqlx.DB
}

// NewGroupRepo constructs a GroupRepo.
func NewGroupRepo(db *sqlx.DB) *GroupRepo {
	return &GroupRepo{db: db}
}

// CreateGroup creates the group, its conversation and membership rows in one
// transaction.
func (r *GroupRepo) CreateGroup(ctx context.Context, ownerID int, name string, memberIDs []int) (models.Group, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Group{}, err
	}
	defer tx.Rollback()

	var group models.Group
	if err := tx.QueryRowxContext(ctx,
		`INSERT INTO groups (name, owner_id) VALUES ($1, $2)
         RETURNING id, name, owner_id, created_at`, name, ownerID).
		Scan(&group.ID, &group.Name, &group.OwnerID, &group.CreatedAt); err != nil {
		return models.Group{}, err
	}

	if err := tx.QueryRowxContext(ctx,
		`INSERT INTO chats (group_id) VALUES ($1) RETURNING id`, group.ID).
		Scan(&group.ChatID); err != nil {
		return models.Group{}, err
	}

	members := append([]int{ownerID}, memberIDs...)
	for _, memberID := range members {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO group_members (group_id, user_id) VALUES ($1, $2)
             ON CONFLICT (group_id, user_id) DO NOTHING`, group.ID, memberID); err != nil {
			return models.Group{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return models.Group{}, err
	}
	return group, nil
}

// ListGroupsForUser returns the groups the user belongs to.
func (r *GroupRepo) ListGroupsForUser(ctx context.Context, userID int) ([]models.Group, error) {
	var groups []models.Group
	err := r.db.SelectContext(ctx, &groups,
		`SELECT g.id, g.name, g.owner_id, g.created_at, c.id AS chat_id FROM groups g
         JOIN chats c ON c.group_id = g.id
         JOIN group_members gm ON gm.group_id = g.id
         WHERE gm.user_id=$1 ORDER BY g.created_at DESC`, userID)
	return groups, err
}

// IsMember checks group membership.
func (r *GroupRepo) IsMember(ctx context.Context, groupID, userID int) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS(SELECT 1 FROM group_members WHERE group_id=$1 AND user_id=$2)`,
		groupID, userID)
	return exists, err
}

// GetGroup fetches a group and its conversation id.
func (r *GroupRepo) GetGroup(ctx context.Context, groupID int) (models.Group, error) {
	var group models.Group
	err := r.db.GetContext(ctx, &group,
		`SELECT g.id, g.name, g.owner_id, g.created_at, c.id AS chat_id FROM groups g
         JOIN chats c ON c.group_id = g.id
         WHERE g.id=$1`, groupID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Group{}, ErrGroupNotFound
	}
	return group, err
}
