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
	ErrAccountNotFound = errors.New("account not found")
	ErrLinkNotFound    = errors.New("parent-child link not found")
)

// AccountRepository abstracts account and parent-child link persistence.
type AccountRepository interface {
	CreateAccount(ctx context.Context, username string, email *string, role models.Role) (models.Account, error)
	GetAccount(ctx context.Context, id int) (models.Account, error)
	GetAccountByUsername(ctx context.Context, username string) (models.Account, error)
	CreateLink(ctx context.Context, parentID, childID int, tier policy.Tier) (models.ParentChildLink, error)
	GetLink(ctx context.Context, parentID, childID int) (models.ParentChildLink, error)
	SetSurveillanceTier(ctx context.Context, parentID, childID int, tier policy.Tier) error
	ListChildren(ctx context.Context, parentID int) ([]models.ParentChildLink, error)
	ListParents(ctx context.Context, childID int) ([]models.ParentChildLink, error)
	ShareParent(ctx context.Context, childA, childB int) (bool, error)
}

// AccountRepo is a sqlx implementation of AccountRepository.
type AccountRepo struct {
	db *sqlx.DB
}

// NewAccountRepo constructs an AccountRepo.
func NewAccountRepo(db *sqlx.DB) *AccountRepo {
	return &AccountRepo{db: db}
}

// CreateAccount inserts a new account.
func (r *AccountRepo) CreateAccount(ctx context.Context, username string, email *string, role models.Role) (models.Account, error) {
	var account models.Account
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO accounts (username, email, role) VALUES ($1, $2, $3)
         RETURNING id, username, email, role, created_at`,
		username, email, role).StructScan(&account)
	return account, err
}

// GetAccount fetches an account by id.
func (r *AccountRepo) GetAccount(ctx context.Context, id int) (models.Account, error) {
	var account models.Account
	err := r.db.GetContext(ctx, &account,
		`SELECT id, username, email, role, created_at FROM accounts WHERE id=$1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Account{}, ErrAccountNotFound
	}
	return account, err
}

// GetAccountByUsername fetches an account by its unique username.
func (r *AccountRepo) GetAccountByUsername(ctx context.Context, username string) (models.Account, error) {
	var account models.Account
	err := r.db.GetContext(ctx, &account,
		`SELECT id, username, email, role, created_at FROM accounts WHERE username=$1`, username)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Account{}, ErrAccountNotFound
	}
	return account, err
}

// CreateLink provisions a parent-child link. The unique constraint on
// (parent_id, child_id) makes concurrent provisioning collapse to one row.
func (r *AccountRepo) CreateLink(ctx context.Context, parentID, childID int, tier policy.Tier) (models.ParentChildLink, error) {
	var link models.ParentChildLink
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO parent_child_links (parent_id, child_id, surveillance_level) VALUES ($1, $2, $3)
         ON CONFLICT (parent_id, child_id) DO UPDATE SET parent_id = EXCLUDED.parent_id
         RETURNING id, parent_id, child_id, surveillance_level, created_at`,
		parentID, childID, tier).StructScan(&link)
	return link, err
}

// GetLink fetches the link between a parent and a child.
func (r *AccountRepo) GetLink(ctx context.Context, parentID, childID int) (models.ParentChildLink, error) {
	var link models.ParentChildLink
	err := r.db.GetContext(ctx, &link,
		`SELECT id, parent_id, child_id, surveillance_level, created_at
         FROM parent_child_links WHERE parent_id=$1 AND child_id=$2`, parentID, childID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.ParentChildLink{}, ErrLinkNotFound
	}
	return link, err
}

// SetSurveillanceTier updates the tier on an existing link. Returns
// ErrLinkNotFound when the caller does not own a link to the child, so the
// handler can reject with a forbidden outcome.
func (r *AccountRepo) SetSurveillanceTier(ctx context.Context, parentID, childID int, tier policy.Tier) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE parent_child_links SET surveillance_level=$3 WHERE parent_id=$1 AND child_id=$2`,
		parentID, childID, tier)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrLinkNotFound
	}
	return nil
}

// ListChildren returns all links owned by the parent.
func (r *AccountRepo) ListChildren(ctx context.Context, parentID int) ([]models.ParentChildLink, error) {
	var links []models.ParentChildLink
	err := r.db.SelectContext(ctx, &links,
		`SELECT id, parent_id, child_id, surveillance_level, created_at
         FROM parent_child_links WHERE parent_id=$1 ORDER BY created_at ASC`, parentID)
	return links, err
}

// ListParents returns all links pointing at the child.
func (r *AccountRepo) ListParents(ctx context.Context, childID int) ([]models.ParentChildLink, error) {
	var links []models.ParentChildLink
	err := r.db.SelectContext(ctx, &links,
		`SELECT id, parent_id, child_id, surveillance_level, created_at
         FROM parent_child_links WHERE child_id=$1 ORDER BY created_at ASC`, childID)
	return links, err
}

// ShareParent reports whether two children belong to the same parent.
func (r *AccountRepo) ShareParent(ctx context.Context, childA, childB int) (bool, error) {
	var shared bool
	err := r.db.GetContext(ctx, &shared,
		`SELECT EXISTS(
            SELECT 1 FROM parent_child_links a
            JOIN parent_child_links b ON a.parent_id = b.parent_id
            WHERE a.child_id=$1 AND b.child_id=$2)`, childA, childB)
	return shared, err
}
