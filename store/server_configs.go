package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/marcelom97/scimprobe/config"
)

type dbServerConfig struct {
	ID                  string         `db:"id"`
	Name                string         `db:"name"`
	BaseURL             string         `db:"base_url"`
	AuthKind            string         `db:"auth_kind"`
	Token               sql.NullString `db:"token"`
	Username            sql.NullString `db:"username"`
	Password            sql.NullString `db:"password"`
	APIHeader           sql.NullString `db:"api_header"`
	APIValue            sql.NullString `db:"api_value"`
	AcceptInvalidCerts  bool           `db:"accept_invalid_certs"`
	CreatedAt           time.Time      `db:"created_at"`
	UpdatedAt           time.Time      `db:"updated_at"`
}

func serverConfigRow(c config.ServerConfig, created, updated time.Time) dbServerConfig {
	return dbServerConfig{
		ID:                 c.ID,
		Name:               c.Name,
		BaseURL:            c.BaseURL,
		AuthKind:           string(c.AuthKind),
		Token:              nullString(c.Token),
		Username:           nullString(c.Username),
		Password:           nullString(c.Password),
		APIHeader:          nullString(c.APIHeader),
		APIValue:           nullString(c.APIValue),
		AcceptInvalidCerts: c.AcceptInvalidCerts,
		CreatedAt:          created,
		UpdatedAt:          updated,
	}
}

func (r dbServerConfig) toConfig() config.ServerConfig {
	return config.ServerConfig{
		ID:                 r.ID,
		Name:               r.Name,
		BaseURL:            r.BaseURL,
		AuthKind:           config.AuthKind(r.AuthKind),
		Token:              r.Token.String,
		Username:           r.Username.String,
		Password:           r.Password.String,
		APIHeader:          r.APIHeader.String,
		APIValue:           r.APIValue.String,
		AcceptInvalidCerts: r.AcceptInvalidCerts,
		CreatedAt:          r.CreatedAt.Format(time.RFC3339),
		UpdatedAt:          r.UpdatedAt.Format(time.RFC3339),
	}
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// SaveServerConfig inserts or updates a server config.
func (s *Store) SaveServerConfig(ctx context.Context, c config.ServerConfig, created, updated time.Time) error {
	const q = `INSERT INTO server_configs
		(id, name, base_url, auth_kind, token, username, password, api_header, api_value, accept_invalid_certs, created_at, updated_at)
		VALUES (:id, :name, :base_url, :auth_kind, :token, :username, :password, :api_header, :api_value, :accept_invalid_certs, :created_at, :updated_at)
		ON CONFLICT(id) DO UPDATE SET name=excluded.name, base_url=excluded.base_url, auth_kind=excluded.auth_kind,
			token=excluded.token, username=excluded.username, password=excluded.password,
			api_header=excluded.api_header, api_value=excluded.api_value,
			accept_invalid_certs=excluded.accept_invalid_certs, updated_at=excluded.updated_at`
	_, err := s.db.NamedExecContext(ctx, q, serverConfigRow(c, created, updated))
	return err
}

func (s *Store) GetServerConfigs(ctx context.Context) ([]config.ServerConfig, error) {
	var rows []dbServerConfig
	if err := s.db.SelectContext(ctx, &rows, `SELECT * FROM server_configs ORDER BY updated_at DESC`); err != nil {
		return nil, err
	}
	out := make([]config.ServerConfig, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toConfig())
	}
	return out, nil
}

func (s *Store) GetServerConfig(ctx context.Context, id string) (*config.ServerConfig, error) {
	var row dbServerConfig
	err := s.db.GetContext(ctx, &row, `SELECT * FROM server_configs WHERE id = ?`, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	c := row.toConfig()
	return &c, nil
}

func (s *Store) DeleteServerConfig(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM server_configs WHERE id = ?`, id)
	return err
}
