package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/threadline/backend/internal/model"
)

const webhookColumns = `id, name, url, method, headers, body, events, enabled, updated_at`

func scanWebhookConfig(row pgx.Row) (*model.WebhookConfig, error) {
	var cfg model.WebhookConfig
	var headersJSON, eventsJSON []byte
	if err := row.Scan(
		&cfg.ID, &cfg.Name, &cfg.URL, &cfg.Method, &headersJSON, &cfg.Body, &eventsJSON, &cfg.Enabled, &cfg.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(headersJSON, &cfg.Headers); err != nil {
		return nil, fmt.Errorf("failed to unmarshal headers: %w", err)
	}
	if err := json.Unmarshal(eventsJSON, &cfg.Events); err != nil {
		return nil, fmt.Errorf("failed to unmarshal events: %w", err)
	}
	return &cfg, nil
}

func marshalWebhookJSON(cfg model.WebhookConfig) ([]byte, []byte, error) {
	headers := cfg.Headers
	if headers == nil {
		headers = []model.WebhookHeader{}
	}
	headersJSON, err := json.Marshal(headers)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal headers: %w", err)
	}
	events := cfg.Events
	if events == nil {
		events = []model.EventType{}
	}
	eventsJSON, err := json.Marshal(events)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal events: %w", err)
	}
	return headersJSON, eventsJSON, nil
}

// GetWebhookConfigs - 웹훅 설정 전체 목록 조회 (최신순)
func (db *Postgres) GetWebhookConfigs(ctx context.Context) ([]model.WebhookConfig, error) {
	rows, err := db.Pool.Query(ctx, `SELECT `+webhookColumns+` FROM webhook_configs ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query webhook configs: %w", err)
	}
	defer rows.Close()

	configs := []model.WebhookConfig{}
	for rows.Next() {
		cfg, err := scanWebhookConfig(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan webhook config: %w", err)
		}
		configs = append(configs, *cfg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return configs, nil
}

// GetWebhookConfigByID - ID로 단건 조회 (없으면 pgx.ErrNoRows)
func (db *Postgres) GetWebhookConfigByID(ctx context.Context, id int) (*model.WebhookConfig, error) {
	return scanWebhookConfig(db.Pool.QueryRow(ctx, `SELECT `+webhookColumns+` FROM webhook_configs WHERE id = $1`, id))
}

// CreateWebhookConfig - 신규 웹훅 설정 저장
func (db *Postgres) CreateWebhookConfig(ctx context.Context, cfg model.WebhookConfig) (int, error) {
	headersJSON, eventsJSON, err := marshalWebhookJSON(cfg)
	if err != nil {
		return 0, err
	}

	var id int
	err = db.Pool.QueryRow(ctx, `
		INSERT INTO webhook_configs (name, url, method, headers, body, events, enabled, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		RETURNING id
	`, cfg.Name, cfg.URL, cfg.Method, headersJSON, cfg.Body, eventsJSON, cfg.Enabled).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert webhook config: %w", err)
	}
	return id, nil
}

// UpdateWebhookConfig - ID로 웹훅 설정 수정 (없으면 pgx.ErrNoRows)
func (db *Postgres) UpdateWebhookConfig(ctx context.Context, id int, cfg model.WebhookConfig) error {
	headersJSON, eventsJSON, err := marshalWebhookJSON(cfg)
	if err != nil {
		return err
	}

	tag, err := db.Pool.Exec(ctx, `
		UPDATE webhook_configs
		SET name = $1, url = $2, method = $3, headers = $4, body = $5, events = $6, enabled = $7, updated_at = NOW()
		WHERE id = $8
	`, cfg.Name, cfg.URL, cfg.Method, headersJSON, cfg.Body, eventsJSON, cfg.Enabled, id)
	if err != nil {
		return fmt.Errorf("failed to update webhook config: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// DeleteWebhookConfig - ID로 웹훅 설정 삭제 (없으면 pgx.ErrNoRows)
func (db *Postgres) DeleteWebhookConfig(ctx context.Context, id int) error {
	tag, err := db.Pool.Exec(ctx, `DELETE FROM webhook_configs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete webhook config: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
