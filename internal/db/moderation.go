package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/threadline/backend/internal/model"
)

func insertAudit(ctx context.Context, tx pgx.Tx, a *model.ModerationAction) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	var targetSubj, targetProv *string
	if a.Target != nil {
		subj, prov := a.Target.SubjectID, string(a.Target.Provider)
		targetSubj, targetProv = &subj, &prov
	}
	err := tx.QueryRow(ctx, `
		INSERT INTO moderation_actions (
			id, action, actor_subject_id, actor_provider, target_subject_id, target_provider,
			comment_id, report_id, reason, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
		RETURNING created_at
	`, a.ID, a.Action, a.Actor.SubjectID, a.Actor.Provider, targetSubj, targetProv,
		a.CommentID, a.ReportID, a.Reason,
	).Scan(&a.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert moderation action: %w", err)
	}
	return nil
}

// ListModerationActions returns the audit log, newest first.
func (db *Postgres) ListModerationActions(ctx context.Context, limit, offset int) ([]model.ModerationAction, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT id, action, actor_subject_id, actor_provider, target_subject_id, target_provider,
			comment_id, report_id, reason, created_at
		FROM moderation_actions
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query moderation actions: %w", err)
	}
	defer rows.Close()

	actions := make([]model.ModerationAction, 0)
	for rows.Next() {
		var (
			a                      model.ModerationAction
			targetSubj, targetProv *string
		)
		if err := rows.Scan(
			&a.ID, &a.Action, &a.Actor.SubjectID, &a.Actor.Provider, &targetSubj, &targetProv,
			&a.CommentID, &a.ReportID, &a.Reason, &a.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan moderation action: %w", err)
		}
		if targetSubj != nil && targetProv != nil {
			a.Target = &model.Identity{SubjectID: *targetSubj, Provider: model.Provider(*targetProv)}
		}
		actions = append(actions, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return actions, nil
}

// prefixed qualifies a column list with a table alias.
func prefixed(alias, columns string) string {
	parts := strings.Split(columns, ",")
	for i, p := range parts {
		parts[i] = alias + "." + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}
