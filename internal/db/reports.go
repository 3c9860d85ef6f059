package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/threadline/backend/internal/model"
)

const reportColumns = `
	r.id, r.comment_id, r.reporter_subject_id, r.reporter_provider, r.reason, r.details, r.status,
	r.resolved_by_subject_id, r.resolved_by_provider, r.resolution_note, r.created_at, r.resolved_at
`

func reportDest(r *model.Report, resolvedBySubj, resolvedByProv **string) []any {
	return []any{
		&r.ID,
		&r.CommentID,
		&r.Reporter.SubjectID,
		&r.Reporter.Provider,
		&r.Reason,
		&r.Details,
		&r.Status,
		resolvedBySubj,
		resolvedByProv,
		&r.Resolution,
		&r.CreatedAt,
		&r.ResolvedAt,
	}
}

func finishReport(r *model.Report, resolvedBySubj, resolvedByProv *string) {
	if resolvedBySubj != nil && resolvedByProv != nil {
		r.ResolvedBy = &model.Identity{SubjectID: *resolvedBySubj, Provider: model.Provider(*resolvedByProv)}
	}
}

func scanReport(row pgx.Row) (*model.Report, error) {
	var (
		r                              model.Report
		resolvedBySubj, resolvedByProv *string
	)
	if err := row.Scan(reportDest(&r, &resolvedBySubj, &resolvedByProv)...); err != nil {
		return nil, err
	}
	finishReport(&r, resolvedBySubj, resolvedByProv)
	return &r, nil
}

// CreateReport inserts a pending report. A second report by the same reporter on the
// same comment fails with a unique violation (see IsUniqueViolation).
func (db *Postgres) CreateReport(ctx context.Context, r *model.Report) (*model.Report, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	query := `
		INSERT INTO reports AS r (id, comment_id, reporter_subject_id, reporter_provider, reason, details, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, 'pending', NOW())
		RETURNING ` + reportColumns
	return scanReport(db.Pool.QueryRow(ctx, query,
		r.ID, r.CommentID, r.Reporter.SubjectID, r.Reporter.Provider, r.Reason, r.Details,
	))
}

func (db *Postgres) GetReport(ctx context.Context, id string) (*model.Report, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, pgx.ErrNoRows
	}
	return scanReport(db.Pool.QueryRow(ctx, `SELECT `+reportColumns+` FROM reports r WHERE r.id = $1`, id))
}

// UpdateReport locks the report row, lets fn change its status, and writes it back
// with the audit record in one transaction.
func (db *Postgres) UpdateReport(ctx context.Context, id string, fn func(*model.Report) error, audit *model.ModerationAction) (*model.Report, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, pgx.ErrNoRows
	}
	var out *model.Report
	err := db.inTx(ctx, func(tx pgx.Tx) error {
		r, err := scanReport(tx.QueryRow(ctx, `SELECT `+reportColumns+` FROM reports r WHERE r.id = $1 FOR UPDATE`, id))
		if err != nil {
			return err
		}
		if err := fn(r); err != nil {
			return err
		}

		var resolvedBySubj, resolvedByProv *string
		if r.ResolvedBy != nil {
			subj, prov := r.ResolvedBy.SubjectID, string(r.ResolvedBy.Provider)
			resolvedBySubj, resolvedByProv = &subj, &prov
		}
		updated, err := scanReport(tx.QueryRow(ctx, `
			UPDATE reports AS r
			SET status = $2, resolved_by_subject_id = $3, resolved_by_provider = $4,
				resolution_note = $5, resolved_at = $6
			WHERE r.id = $1
			RETURNING `+reportColumns,
			r.ID, r.Status, resolvedBySubj, resolvedByProv, r.Resolution, r.ResolvedAt,
		))
		if err != nil {
			return fmt.Errorf("failed to update report: %w", err)
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

// ListReportQueue returns reports in status, oldest first, each with its comment.
func (db *Postgres) ListReportQueue(ctx context.Context, status model.ReportStatus, limit, offset int) ([]model.ReportedComment, error) {
	query := `
		SELECT ` + reportColumns + `, ` + prefixed("c", commentColumns) + `
		FROM reports r
		JOIN comments c ON c.id = r.comment_id
		WHERE r.status = $1
		ORDER BY r.created_at ASC
		LIMIT $2 OFFSET $3`

	rows, err := db.Pool.Query(ctx, query, status, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query report queue: %w", err)
	}
	defer rows.Close()

	items := make([]model.ReportedComment, 0)
	for rows.Next() {
		var (
			item                           model.ReportedComment
			resolvedBySubj, resolvedByProv *string
		)
		dest := reportDest(&item.Report, &resolvedBySubj, &resolvedByProv)
		row := &splitRow{rows: rows, head: dest}
		c, err := scanComment(row)
		if err != nil {
			return nil, fmt.Errorf("failed to scan report queue: %w", err)
		}
		finishReport(&item.Report, resolvedBySubj, resolvedByProv)
		item.Comment = *c
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// splitRow prepends fixed destinations to a Scan call so two scanners can share one row.
type splitRow struct {
	rows pgx.Rows
	head []any
}

func (s *splitRow) Scan(dest ...any) error {
	return s.rows.Scan(append(append([]any{}, s.head...), dest...)...)
}
