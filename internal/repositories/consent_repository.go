package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"sniksnak-service/internal/models"
)

var ErrIntroductionNotFound = errors.New("introduction not found")

// ConsentRepository persists pending contact requests and introductions.
type ConsentRepository interface {
	UpsertContactRequest(ctx context.Context, childID, contactUserID, chatID int) (models.PendingContactRequest, error)
	ListContactRequestsForChild(ctx context.Context, childID int) ([]models.PendingContactRequest, error)
	UpsertIntroduction(ctx context.Context, chatID, invitingChildID, invitedChildID int) (models.IntroductionRecord, bool, error)
	GetIntroduction(ctx context.Context, childA, childB int) (models.IntroductionRecord, error)
	SetIntroductionStatus(ctx context.Context, childA, childB int, status models.IntroductionStatus) (models.IntroductionRecord, error)
}

// ConsentRepo is a sqlx implementation of ConsentRepository.
type ConsentRepo struct {
	db *sqlx.DB
}

// NewConsentRepo constructs a ConsentRepo.
func NewConsentRepo(db *sqlx.DB) *ConsentRepo {
	return &ConsentRepo{db: db}
}

// UpsertContactRequest records that contactUserID tried to reach childID.
// Repeats update the chat reference instead of duplicating the row.
func (r *ConsentRepo) UpsertContactRequest(ctx context.Context, childID, contactUserID, chatID int) (models.PendingContactRequest, error) {
	var req models.PendingContactRequest
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO pending_contact_requests (child_id, contact_user_id, chat_id) VALUES ($1, $2, $3)
         ON CONFLICT (child_id, contact_user_id) DO UPDATE SET chat_id = EXCLUDED.chat_id
         RETURNING id, child_id, contact_user_id, chat_id, created_at`,
		childID, contactUserID, chatID).StructScan(&req)
	return req, err
}

// ListContactRequestsForChild returns requests targeting the child.
func (r *ConsentRepo) ListContactRequestsForChild(ctx context.Context, childID int) ([]models.PendingContactRequest, error) {
	var reqs []models.PendingContactRequest
	err := r.db.SelectContext(ctx, &reqs,
		`SELECT id, child_id, contact_user_id, chat_id, created_at
         FROM pending_contact_requests WHERE child_id=$1 ORDER BY created_at DESC`, childID)
	return reqs, err
}

// UpsertIntroduction finds or creates the introduction for the unordered
// child pair in one statement. The unique expression index on
// (LEAST, GREATEST) makes concurrent initiations collapse to one record.
// The second return value reports whether the record was created.
func (r *ConsentRepo) UpsertIntroduction(ctx context.Context, chatID, invitingChildID, invitedChildID int) (models.IntroductionRecord, bool, error) {
	var rec models.IntroductionRecord
	var inserted bool
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO introduction_records (chat_id, inviting_child_id, invited_child_id) VALUES ($1, $2, $3)
         ON CONFLICT (LEAST(inviting_child_id, invited_child_id), GREATEST(inviting_child_id, invited_child_id))
         DO UPDATE SET chat_id = introduction_records.chat_id
         RETURNING id, chat_id, inviting_child_id, invited_child_id, status, created_at,
                   (xmax = 0) AS inserted`,
		chatID, invitingChildID, invitedChildID).
		Scan(&rec.ID, &rec.ChatID, &rec.InvitingChildID, &rec.InvitedChildID, &rec.Status, &rec.CreatedAt, &inserted)
	return rec, inserted, err
}

// GetIntroduction fetches the introduction for the unordered child pair.
func (r *ConsentRepo) GetIntroduction(ctx context.Context, childA, childB int) (models.IntroductionRecord, error) {
	var rec models.IntroductionRecord
	err := r.db.GetContext(ctx, &rec,
		`SELECT id, chat_id, inviting_child_id, invited_child_id, status, created_at
         FROM introduction_records
         WHERE LEAST(inviting_child_id, invited_child_id) = LEAST($1::int, $2::int)
           AND GREATEST(inviting_child_id, invited_child_id) = GREATEST($1::int, $2::int)`,
		childA, childB)
	if errors.Is(err, sql.ErrNoRows) {
		return models.IntroductionRecord{}, ErrIntroductionNotFound
	}
	return rec, err
}

// SetIntroductionStatus moves the introduction to the given status and
// returns the updated record.
func (r *ConsentRepo) SetIntroductionStatus(ctx context.Context, childA, childB int, status models.IntroductionStatus) (models.IntroductionRecord, error) {
	var rec models.IntroductionRecord
	err := r.db.QueryRowxContext(ctx,
		`UPDATE introduction_records SET status=$3
         WHERE LEAST(inviting_child_id, invited_child_id) = LEAST($1::int, $2::int)
           AND GREATEST(inviting_child_id, invited_child_id) = GREATEST($1::int, $2::int)
         RETURNING id, chat_id, inviting_child_id, invited_child_id, status, created_at`,
		childA, childB, status).StructScan(&rec)
	if errors.Is(err, sql.ErrNoRows) {
		return models.IntroductionRecord{}, ErrIntroductionNotFound
	}
	return rec, err
}
