package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/marcelom97/scimprobe/model"
)

type dbFieldMappingRule struct {
	ID             string         `db:"id"`
	ServerConfigID string         `db:"server_config_id"`
	SCIMAttribute  string         `db:"scim_attribute"`
	DisplayName    string         `db:"display_name"`
	Required       bool           `db:"required"`
	Format         string         `db:"format"`
	RegexPattern   sql.NullString `db:"regex_pattern"`
	Description    sql.NullString `db:"description"`
	CreatedAt      time.Time      `db:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at"`
}

func fieldMappingRuleRow(r model.FieldMappingRule) dbFieldMappingRule {
	row := dbFieldMappingRule{
		ID:             r.ID,
		ServerConfigID: r.ServerConfigID,
		SCIMAttribute:  r.SCIMAttribute,
		DisplayName:    r.DisplayName,
		Required:       r.Required,
		Format:         string(r.Format),
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
	if r.RegexPattern != nil {
		row.RegexPattern = sql.NullString{String: *r.RegexPattern, Valid: true}
	}
	if r.Description != nil {
		row.Description = sql.NullString{String: *r.Description, Valid: true}
	}
	return row
}

func (r dbFieldMappingRule) toModel() model.FieldMappingRule {
	out := model.FieldMappingRule{
		ID:             r.ID,
		ServerConfigID: r.ServerConfigID,
		SCIMAttribute:  r.SCIMAttribute,
		DisplayName:    r.DisplayName,
		Required:       r.Required,
		Format:         model.FieldFormat(r.Format),
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
	if r.RegexPattern.Valid {
		out.RegexPattern = &r.RegexPattern.String
	}
	if r.Description.Valid {
		out.Description = &r.Description.String
	}
	return out
}

func (s *Store) SaveFieldMappingRule(ctx context.Context, r model.FieldMappingRule) error {
	const q = `INSERT INTO field_mapping_rules
		(id, server_config_id, scim_attribute, display_name, required, format, regex_pattern, description, created_at, updated_at)
		VALUES (:id, :server_config_id, :scim_attribute, :display_name, :required, :format, :regex_pattern, :description, :created_at, :updated_at)
		ON CONFLICT(id) DO UPDATE SET scim_attribute=excluded.scim_attribute, display_name=excluded.display_name,
			required=excluded.required, format=excluded.format, regex_pattern=excluded.regex_pattern,
			description=excluded.description, updated_at=excluded.updated_at`
	_, err := s.db.NamedExecContext(ctx, q, fieldMappingRuleRow(r))
	return err
}

func (s *Store) GetFieldMappingRules(ctx context.Context, serverConfigID string) ([]model.FieldMappingRule, error) {
	var rows []dbFieldMappingRule
	const q = `SELECT * FROM field_mapping_rules WHERE server_config_id = ? ORDER BY scim_attribute ASC`
	if err := s.db.SelectContext(ctx, &rows, q, serverConfigID); err != nil {
		return nil, err
	}
	out := make([]model.FieldMappingRule, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toModel())
	}
	return out, nil
}

func (s *Store) DeleteFieldMappingRule(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM field_mapping_rules WHERE id = ?`, id)
	return err
}
