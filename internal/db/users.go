package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/threadline/backend/internal/model"
)

const userColumns = `
	id, subject_id, provider, username, avatar_url, role, banned, ban_reason,
	shadow_banned, muted_until, warning_count, created_at, updated_at
`

func scanUser(row pgx.Row) (*model.User, error) {
	var user model.User
	err := row.Scan(
		&user.ID,
		&user.SubjectID,
		&user.Provider,
		&user.Username,
		&user.AvatarURL,
		&user.Role,
		&user.Banned,
		&user.BanReason,
		&user.ShadowBanned,
		&user.MutedUntil,
		&user.WarningCount,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUser returns pgx.ErrNoRows when the identity has no record.
func (db *Postgres) GetUser(ctx context.Context, id model.Identity) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE subject_id = $1 AND provider = $2`
	return scanUser(db.Pool.QueryRow(ctx, query, id.SubjectID, id.Provider))
}

// UpsertUserProfile refreshes username/avatar only; role and restrictions are untouched.
func (db *Postgres) UpsertUserProfile(ctx context.Context, ext model.ExternalIdentity) (*model.User, error) {
	query := `
		INSERT INTO users (subject_id, provider, username, avatar_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		ON CONFLICT (subject_id, provider)
		DO UPDATE SET username = EXCLUDED.username, avatar_url = EXCLUDED.avatar_url, updated_at = NOW()
		RETURNING ` + userColumns
	return scanUser(db.Pool.QueryRow(ctx, query, ext.Identity.SubjectID, ext.Identity.Provider, ext.Username, ext.AvatarURL))
}

// EnsureRole creates the record if needed and forces its role.
func (db *Postgres) EnsureRole(ctx context.Context, id model.Identity, role model.Role) (*model.User, error) {
	query := `
		INSERT INTO users (subject_id, provider, role, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		ON CONFLICT (subject_id, provider)
		DO UPDATE SET role = EXCLUDED.role, updated_at = NOW()
		RETURNING ` + userColumns
	return scanUser(db.Pool.QueryRow(ctx, query, id.SubjectID, id.Provider, role))
}

// UpdateUser locks the user row, lets fn mutate it, and writes it back together with
// the optional audit record in one transaction.
func (db *Postgres) UpdateUser(ctx context.Context, id model.Identity, fn func(*model.User) error, audit *model.ModerationAction) (*model.User, error) {
	var out *model.User
	err := db.inTx(ctx, func(tx pgx.Tx) error {
		user, err := scanUser(tx.QueryRow(ctx,
			`SELECT `+userColumns+` FROM users WHERE subject_id = $1 AND provider = $2 FOR UPDATE`,
			id.SubjectID, id.Provider,
		))
		if err != nil {
			return err
		}
		if err := fn(user); err != nil {
			return err
		}
		if user.WarningCount < 0 {
			user.WarningCount = 0
		}

		updated, err := scanUser(tx.QueryRow(ctx, `
			UPDATE users
			SET role = $2, banned = $3, ban_reason = $4, shadow_banned = $5,
				muted_until = $6, warning_count = $7, updated_at = NOW()
			WHERE id = $1
			RETURNING `+userColumns,
			user.ID, user.Role, user.Banned, user.BanReason, user.ShadowBanned,
			user.MutedUntil, user.WarningCount,
		))
		if err != nil {
			return fmt.Errorf("failed to update user: %w", err)
		}
		if audit != nil {
			if err := insertAudit(ctx, tx, audit); err != nil {
				return err
			}
		}
		out = updated
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// GetUserStats aggregates activity for id. Deleted comments are not counted.
func (db *Postgres) GetUserStats(ctx context.Context, id model.Identity) (model.UserStats, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM comments
				WHERE author_subject_id = $1 AND author_provider = $2 AND deleted = FALSE),
			(SELECT COALESCE(SUM(upvotes), 0) FROM comments
				WHERE author_subject_id = $1 AND author_provider = $2 AND deleted = FALSE),
			(SELECT COALESCE(SUM(downvotes), 0) FROM comments
				WHERE author_subject_id = $1 AND author_provider = $2 AND deleted = FALSE),
			(SELECT COUNT(*) FROM reports
				WHERE reporter_subject_id = $1 AND reporter_provider = $2)
	`
	var comments, upvotes, downvotes, reports int64
	if err := db.Pool.QueryRow(ctx, query, id.SubjectID, id.Provider).Scan(
		&comments, &upvotes, &downvotes, &reports,
	); err != nil {
		return model.UserStats{}, fmt.Errorf("failed to query user stats: %w", err)
	}
	return model.UserStats{
		Identity:          id,
		Comments:          comments,
		UpvotesReceived:   upvotes,
		DownvotesReceived: downvotes,
		ReportsFiled:      reports,
	}, nil
}
