package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/threadline/backend/internal/model"
	"github.com/threadline/backend/internal/vote"
)

// MutateVotes serializes vote changes on one comment. The row is locked with
// SELECT ... FOR UPDATE, fn mutates c.Votes, and the ledger plus its replayed tally
// are written back only if the version is unchanged. An error from fn aborts the
// transaction and is returned as is.
func (db *Postgres) MutateVotes(ctx context.Context, commentID int64, fn func(c *model.Comment) error) (*model.Comment, error) {
	var out *model.Comment
	err := db.inTx(ctx, func(tx pgx.Tx) error {
		c, err := scanComment(tx.QueryRow(ctx,
			`SELECT `+commentColumns+` FROM comments WHERE id = $1 FOR UPDATE`, commentID,
		))
		if err != nil {
			return err
		}
		if err := fn(c); err != nil {
			return err
		}

		votesJSON, tally, err := encodeVotes(c.Votes)
		if err != nil {
			return err
		}

		tag, err := tx.Exec(ctx, `
			UPDATE comments
			SET votes = $2, upvotes = $3, downvotes = $4, score = $5, version = version + 1
			WHERE id = $1 AND version = $6
		`, c.ID, votesJSON, tally.Upvotes, tally.Downvotes, tally.Score, c.Version)
		if err != nil {
			return fmt.Errorf("failed to update votes: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrVersionConflict
		}

		c.Tally = tally
		c.Version++
		out = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// encodeVotes prunes the ledger before marshalling so the stored ledger and the
// stored counts always describe the same votes.
func encodeVotes(l vote.Ledger) ([]byte, vote.Tally, error) {
	if l == nil {
		l = vote.Ledger{}
	}
	l.Prune()
	raw, err := json.Marshal(l)
	if err != nil {
		return nil, vote.Tally{}, fmt.Errorf("failed to marshal votes: %w", err)
	}
	return raw, l.Tally(), nil
}
