package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"sniksnak-service/internal/models"
)

var ErrMessageNotFound = errors.New("message not found")

// MessageRepository defines interactions for chat messages.
type MessageRepository interface {
	CreateMessage(ctx context.Context, chatID, senderID int, content string, attachmentURL *string) (models.Message, error)
	CreateMessageIfAbsent(ctx context.Context, chatID, senderID int, content string) (models.Message, bool, error)
	ListMessages(ctx context.Context, chatID int) ([]models.Message, error)
	GetMessage(ctx context.Context, messageID int) (models.Message, error)
}

// MessageRepo is a sqlx-backed repository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// CreateMessage stores a message in a chat.
func (r *MessageRepo) CreateMessage(ctx context.Context, chatID, senderID int, content string, attachmentURL *string) (models.Message, error) {
	var msg models.Message
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO messages (chat_id, sender_id, content, attachment_url) VALUES ($1, $2, $3, $4)
         RETURNING id, chat_id, sender_id, content, attachment_url, created_at`,
		chatID, senderID, content, attachmentURL).StructScan(&msg)
	return msg, err
}

// CreateMessageIfAbsent inserts the message unless one with identical content
// already exists in the chat. The check-before-insert runs as one statement
// against the (chat_id, md5(content)) index, so sequential repeats are always
// suppressed. Two truly simultaneous identical inserts can still both land;
// there is no unique constraint on content because ordinary chat messages may
// legitimately repeat. The second return value reports whether a row was
// inserted.
func (r *MessageRepo) CreateMessageIfAbsent(ctx context.Context, chatID, senderID int, content string) (models.Message, bool, error) {
	var msg models.Message
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO messages (chat_id, sender_id, content)
         SELECT $1, $2, $3
         WHERE NOT EXISTS (
             SELECT 1 FROM messages WHERE chat_id=$1 AND md5(content)=md5($3::text))
         RETURNING id, chat_id, sender_id, content, attachment_url, created_at`,
		chatID, senderID, content).StructScan(&msg)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, false, nil
	}
	if err != nil {
		return models.Message{}, false, err
	}
	return msg, true, nil
}

// ListMessages returns the chat's messages in creation order.
func (r *MessageRepo) ListMessages(ctx context.Context, chatID int) ([]models.Message, error) {
	var msgs []models.Message
	err := r.db.SelectContext(ctx, &msgs,
		`SELECT id, chat_id, sender_id, content, attachment_url, created_at
         FROM messages WHERE chat_id=$1 ORDER BY created_at ASC`, chatID)
	return msgs, err
}

// GetMessage retrieves a single message.
func (r *MessageRepo) GetMessage(ctx context.Context, messageID int) (models.Message, error) {
	var msg models.Message
	err := r.db.GetContext(ctx, &msg,
		`SELECT id, chat_id, sender_id, content, attachment_url, created_at
         FROM messages WHERE id=$1`, messageID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, ErrMessageNotFound
	}
	return msg, err
}
