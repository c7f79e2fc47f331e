package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"sniksnak-service/internal/models"
	"sniksnak-service/internal/policy"
)

var (
	ErrChatNotFound = errors.New("chat not found")
	// ErrNoReadAccess is returned when the surveillance tier denies the read.
	ErrNoReadAccess = errors.New("surveillance tier denies read access")
)

// ChatRepository abstracts conversation persistence.
type ChatRepository interface {
	EnsureChat(ctx context.Context, userID, otherID int) (models.Chat, error)
	GetChat(ctx context.Context, chatID int) (models.Chat, error)
	IsParticipant(ctx context.Context, chatID, userID int) (bool, error)
	ListChats(ctx context.Context, userID int) ([]models.ChatSummary, error)
	ListChatsForChild(ctx context.Context, childID int, vis policy.Visibility) ([]models.Chat, error)
	ChatHasFlags(ctx context.Context, chatID int) (bool, error)
}

// ChatRepo is a sqlx implementation of ChatRepository.
type ChatRepo struct {
	db *sqlx.DB
}

// NewChatRepo constructs a ChatRepo.
func NewChatRepo(db *sqlx.DB) *ChatRepo {
	return &ChatRepo{db: db}
}

// EnsureChat finds or creates the pair chat for the canonical (sorted) pair
// in a single statement, so two concurrent triggers for the same pair cannot
// produce two channels. userID == otherID is allowed and yields the
// self-referential approval channel.
func (r *ChatRepo) EnsureChat(ctx context.Context, userID, otherID int) (models.Chat, error) {
	user1, user2 := userID, otherID
	if user1 > user2 {
		user1, user2 = user2, user1
	}

	var chat models.Chat
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO chats (user1_id, user2_id) VALUES ($1, $2)
         ON CONFLICT (user1_id, user2_id) WHERE group_id IS NULL
         DO UPDATE SET user1_id = EXCLUDED.user1_id
         RETURNING id, user1_id, user2_id, group_id, created_at`,
		user1, user2).StructScan(&chat)
	return chat, err
}

// GetChat fetches a conversation by id.
func (r *ChatRepo) GetChat(ctx context.Context, chatID int) (models.Chat, error) {
	var chat models.Chat
	err := r.db.GetContext(ctx, &chat,
		`SELECT id, user1_id, user2_id, group_id, created_at FROM chats WHERE id=$1`, chatID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Chat{}, ErrChatNotFound
	}
	return chat, err
}

// IsParticipant checks whether a user belongs to the conversation, covering
// both pair participants and group members.
func (r *ChatRepo) IsParticipant(ctx context.Context, chatID, userID int) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS(
            SELECT 1 FROM chats c
            LEFT JOIN group_members gm ON gm.group_id = c.group_id AND gm.user_id=$2
            WHERE c.id=$1 AND (c.user1_id=$2 OR c.user2_id=$2 OR gm.user_id IS NOT NULL))`,
		chatID, userID)
	return exists, err
}

// ListChats returns the pair chats the user participates in. Group
// conversations are listed through the group endpoints.
func (r *ChatRepo) ListChats(ctx context.Context, userID int) ([]models.ChatSummary, error) {
	rows, err := r.db.QueryxContext(ctx,
		`SELECT id, user1_id, user2_id, group_id, created_at FROM chats
         WHERE group_id IS NULL AND (user1_id=$1 OR user2_id=$1)
         ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []models.ChatSummary
	for rows.Next() {
		var chat models.Chat
		if err := rows.StructScan(&chat); err != nil {
			return nil, err
		}
		friendID := *chat.User1ID
		if friendID == userID {
			friendID = *chat.User2ID
		}
		result = append(result, models.ChatSummary{ChatID: chat.ID, FriendID: friendID, Created: chat.CreatedAt})
	}
	return result, rows.Err()
}

// ListChatsForChild returns the child's conversations permitted by the
// visibility decision. The tier gate lives here, at the data-access
// boundary, rather than in the handler alone.
func (r *ChatRepo) ListChatsForChild(ctx context.Context, childID int, vis policy.Visibility) ([]models.Chat, error) {
	base := `SELECT c.id, c.user1_id, c.user2_id, c.group_id, c.created_at FROM chats c
        LEFT JOIN group_members gm ON gm.group_id = c.group_id AND gm.user_id=$1
        WHERE (c.user1_id=$1 OR c.user2_id=$1 OR gm.user_id IS NOT NULL)`

	var query string
	switch vis {
	case policy.VisibilityFull:
		query = base + ` ORDER BY c.created_at DESC`
	case policy.VisibilityFlaggedOnly:
		query = base + ` AND EXISTS (
                SELECT 1 FROM messages m
                JOIN flags f ON f.message_id = m.id
                WHERE m.chat_id = c.id)
            ORDER BY c.created_at DESC`
	default:
		return nil, ErrNoReadAccess
	}

	var chats []models.Chat
	err := r.db.SelectContext(ctx, &chats, query, childID)
	return chats, err
}

// ChatHasFlags reports whether any message in the conversation carries a flag.
func (r *ChatRepo) ChatHasFlags(ctx context.Context, chatID int) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS(
            SELECT 1 FROM messages m
            JOIN flags f ON f.message_id = m.id
            WHERE m.chat_id=$1)`, chatID)
	return exists, err
}
