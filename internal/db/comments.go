package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/threadline/backend/internal/model"
	"github.com/threadline/backend/internal/vote"
)

const commentColumns = `
	id, media_type, media_id, parent_id, author_subject_id, author_provider, author_username,
	content, pinned, locked, deleted, deleted_by_subject_id, deleted_by_provider,
	shadow_hidden, edited, votes, upvotes, downvotes, score, version, created_at, updated_at
`

func scanComment(row pgx.Row) (*model.Comment, error) {
	var (
		c             model.Comment
		deletedBySubj *string
		deletedByProv *string
		votesJSON     []byte
	)
	err := row.Scan(
		&c.ID,
		&c.MediaType,
		&c.MediaID,
		&c.ParentID,
		&c.Author.SubjectID,
		&c.Author.Provider,
		&c.AuthorUsername,
		&c.Content,
		&c.Pinned,
		&c.Locked,
		&c.Deleted,
		&deletedBySubj,
		&deletedByProv,
		&c.ShadowHidden,
		&c.Edited,
		&votesJSON,
		&c.Tally.Upvotes,
		&c.Tally.Downvotes,
		&c.Tally.Score,
		&c.Version,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if deletedBySubj != nil && deletedByProv != nil {
		c.DeletedBy = &model.Identity{SubjectID: *deletedBySubj, Provider: model.Provider(*deletedByProv)}
	}
	c.Votes = vote.Ledger{}
	if len(votesJSON) > 0 {
		if err := json.Unmarshal(votesJSON, &c.Votes); err != nil {
			return nil, fmt.Errorf("failed to unmarshal votes: %w", err)
		}
	}
	return &c, nil
}

func (db *Postgres) CreateComment(ctx context.Context, c *model.Comment) (*model.Comment, error) {
	query := `
		INSERT INTO comments (
			media_type, media_id, parent_id, author_subject_id, author_provider, author_username,
			content, shadow_hidden, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
		RETURNING ` + commentColumns
	return scanComment(db.Pool.QueryRow(ctx, query,
		c.MediaType, c.MediaID, c.ParentID, c.Author.SubjectID, c.Author.Provider, c.AuthorUsername,
		c.Content, c.ShadowHidden,
	))
}

// GetComment returns pgx.ErrNoRows for unknown ids. Soft-deleted rows are returned.
func (db *Postgres) GetComment(ctx context.Context, id int64) (*model.Comment, error) {
	return scanComment(db.Pool.QueryRow(ctx, `SELECT `+commentColumns+` FROM comments WHERE id = $1`, id))
}

func commentOrder(sort string) string {
	switch sort {
	case model.SortOld:
		return "created_at ASC, id ASC"
	case model.SortTop:
		return "score DESC, created_at DESC, id DESC"
	default:
		return "created_at DESC, id DESC"
	}
}

// ListComments returns non-deleted comments for one media item, pinned first.
func (db *Postgres) ListComments(ctx context.Context, q model.CommentQuery) ([]model.Comment, error) {
	query := `SELECT ` + commentColumns + `
		FROM comments
		WHERE media_type = $1 AND media_id = $2 AND deleted = FALSE
			AND (shadow_hidden = FALSE OR $3 OR (author_subject_id = $4 AND author_provider = $5))
		ORDER BY pinned DESC, ` + commentOrder(q.Sort) + `
		LIMIT $6 OFFSET $7`

	rows, err := db.Pool.Query(ctx, query,
		q.MediaType, q.MediaID, q.IncludeHidden, q.Viewer.SubjectID, q.Viewer.Provider, q.Limit, q.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query comments: %w", err)
	}
	defer rows.Close()

	comments := make([]model.Comment, 0)
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan comment: %w", err)
		}
		comments = append(comments, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return comments, nil
}

// UpdateComment locks the row, lets fn mutate content or moderation flags, and writes
// them back with the optional audit record in one transaction.
func (db *Postgres) UpdateComment(ctx context.Context, id int64, fn func(*model.Comment) error, audit *model.ModerationAction) (*model.Comment, error) {
	var out *model.Comment
	err := db.inTx(ctx, func(tx pgx.Tx) error {
		c, err := scanComment(tx.QueryRow(ctx, `SELECT `+commentColumns+` FROM comments WHERE id = $1 FOR UPDATE`, id))
		if err != nil {
			return err
		}
		if err := fn(c); err != nil {
			return err
		}

		var deletedBySubj, deletedByProv *string
		if c.DeletedBy != nil {
			subj, prov := c.DeletedBy.SubjectID, string(c.DeletedBy.Provider)
			deletedBySubj, deletedByProv = &subj, &prov
		}
		updated, err := scanComment(tx.QueryRow(ctx, `
			UPDATE comments
			SET content = $2, pinned = $3, locked = $4, deleted = $5,
				deleted_by_subject_id = $6, deleted_by_provider = $7, edited = $8,
				version = version + 1, updated_at = NOW()
			WHERE id = $1
			RETURNING `+commentColumns,
			c.ID, c.Content, c.Pinned, c.Locked, c.Deleted, deletedBySubj, deletedByProv, c.Edited,
		))
		if err != nil {
			return fmt.Errorf("failed to update comment: %w", err)
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
