package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/threadline/backend/internal/config"
	"github.com/threadline/backend/internal/vote"
)

func TestBuildPostgresURL(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.PostgresConfig
		want    string
		wantErr bool
	}{
		{
			name: "database url wins",
			cfg:  config.PostgresConfig{DatabaseURL: "postgres://x@db/app", User: "ignored", Database: "ignored"},
			want: "postgres://x@db/app",
		},
		{
			name: "parts with password",
			cfg:  config.PostgresConfig{Host: "db", Port: "6543", User: "app", Password: "p@ss", Database: "threads", SSLMode: "require"},
			want: "postgres://app:p%40ss@db:6543/threads?sslmode=require",
		},
		{
			name: "defaults",
			cfg:  config.PostgresConfig{User: "app", Database: "threads"},
			want: "postgres://app@localhost:5432/threads?sslmode=disable",
		},
		{
			name:    "missing user",
			cfg:     config.PostgresConfig{Database: "threads"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := buildPostgresURL(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestErrorHelpers(t *testing.T) {
	assert.True(t, IsNoRows(pgx.ErrNoRows))
	assert.True(t, IsNoRows(fmt.Errorf("wrapped: %w", pgx.ErrNoRows)))
	assert.False(t, IsNoRows(errors.New("other")))

	assert.True(t, IsUniqueViolation(&pgconn.PgError{Code: "23505"}))
	assert.True(t, IsUniqueViolation(fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})))
	assert.False(t, IsUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, IsUniqueViolation(errors.New("other")))
}

func TestPrefixed(t *testing.T) {
	assert.Equal(t, "c.id, c.name", prefixed("c", "\n\tid,\n\tname\n"))
}

func TestEncodeVotes(t *testing.T) {
	l := vote.Ledger{"discord:1": vote.Up, "discord:2": vote.Direction("sideways"), "google:3": vote.Down}

	raw, tally, err := encodeVotes(l)
	require.NoError(t, err)
	assert.JSONEq(t, `{"discord:1":"up","google:3":"down"}`, string(raw))
	assert.Equal(t, vote.NewTally(1, 1), tally)
	assert.NotContains(t, l, "discord:2")

	raw, tally, err = encodeVotes(nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(raw))
	assert.Equal(t, vote.Tally{}, tally)
}
