package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"sniksnak-service/internal/models"
)

// FlagRepository is the idempotent ledger of flags and classifier findings.
type FlagRepository interface {
	RecordFlag(ctx context.Context, messageID, actorID int, reason *string) (models.Flag, bool, error)
	ListFlags(ctx context.Context, messageID int) ([]models.Flag, error)
	CreateFlaggedMessage(ctx context.Context, childID, messageID int, matchedTerm, category string) (models.FlaggedMessage, error)
	ListFlaggedMessagesForChild(ctx context.Context, childID int) ([]models.FlaggedMessage, error)
}

// FlagRepo is a sqlx implementation of FlagRepository.
type FlagRepo struct {
	db *sqlx.DB
}

// NewFlagRepo constructs a FlagRepo.
func NewFlagRepo(db *sqlx.DB) *FlagRepo {
	return &FlagRepo{db: db}
}

// RecordFlag inserts a flag unless one already exists for (message, actor).
// The unique constraint carries the idempotency; no read-then-write window.
// The second return value reports whether this call created the flag, which
// is the trigger condition for relay notification.
func (r *FlagRepo) RecordFlag(ctx context.Context, messageID, actorID int, reason *string) (models.Flag, bool, error) {
	var flag models.Flag
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO flags (message_id, flagged_by, reason) VALUES ($1, $2, $3)
         ON CONFLICT (message_id, flagged_by) DO NOTHING
         RETURNING id, message_id, flagged_by, reason, created_at`,
		messageID, actorID, reason).StructScan(&flag)
	if err == nil {
		return flag, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return models.Flag{}, false, err
	}

	// Conflict path: return the existing record.
	err = r.db.GetContext(ctx, &flag,
		`SELECT id, message_id, flagged_by, reason, created_at
         FROM flags WHERE message_id=$1 AND flagged_by=$2`, messageID, actorID)
	return flag, false, err
}

// ListFlags returns all flags on a message.
func (r *FlagRepo) ListFlags(ctx context.Context, messageID int) ([]models.Flag, error) {
	var flags []models.Flag
	err := r.db.SelectContext(ctx, &flags,
		`SELECT id, message_id, flagged_by, reason, created_at FROM flags WHERE message_id=$1`,
		messageID)
	return flags, err
}

// CreateFlaggedMessage stores the classifier's structured finding.
func (r *FlagRepo) CreateFlaggedMessage(ctx context.Context, childID, messageID int, matchedTerm, category string) (models.FlaggedMessage, error) {
	var fm models.FlaggedMessage
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO flagged_messages (child_id, message_id, matched_term, category) VALUES ($1, $2, $3, $4)
         RETURNING id, child_id, message_id, matched_term, category, created_at`,
		childID, messageID, matchedTerm, category).StructScan(&fm)
	return fm, err
}

// ListFlaggedMessagesForChild returns the child's risk records, newest first.
func (r *FlagRepo) ListFlaggedMessagesForChild(ctx context.Context, childID int) ([]models.FlaggedMessage, error) {
	var fms []models.FlaggedMessage
	err := r.db.SelectContext(ctx, &fms,
		`SELECT id, child_id, message_id, matched_term, category, created_at
         FROM flagged_messages WHERE child_id=$1 ORDER BY created_at DESC`, childID)
	return fms, err
}
