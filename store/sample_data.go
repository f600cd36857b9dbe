package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/marcelom97/scimprobe/model"
)

type dbSampleData struct {
	ID             string    `db:"id"`
	ServerConfigID string    `db:"server_config_id"`
	ResourceType   string    `db:"resource_type"`
	Name           string    `db:"name"`
	DataJSON       string    `db:"data_json"`
	IsDefault      bool      `db:"is_default"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}

func sampleDataRow(d model.SampleData) dbSampleData {
	return dbSampleData{
		ID:             d.ID,
		ServerConfigID: d.ServerConfigID,
		ResourceType:   d.ResourceType,
		Name:           d.Name,
		DataJSON:       d.DataJSON,
		IsDefault:      d.IsDefault,
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
	}
}

func (r dbSampleData) toModel() model.SampleData {
	return model.SampleData{
		ID:             r.ID,
		ServerConfigID: r.ServerConfigID,
		ResourceType:   r.ResourceType,
		Name:           r.Name,
		DataJSON:       r.DataJSON,
		IsDefault:      r.IsDefault,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}

func (s *Store) SaveSampleData(ctx context.Context, d model.SampleData) error {
	const q = `INSERT INTO sample_data
		(id, server_config_id, resource_type, name, data_json, is_default, created_at, updated_at)
		VALUES (:id, :server_config_id, :resource_type, :name, :data_json, :is_default, :created_at, :updated_at)
		ON CONFLICT(id) DO UPDATE SET name=excluded.name, data_json=excluded.data_json, updated_at=excluded.updated_at`
	_, err := s.db.NamedExecContext(ctx, q, sampleDataRow(d))
	return err
}

func (s *Store) GetSampleData(ctx context.Context, serverConfigID string) ([]model.SampleData, error) {
	var rows []dbSampleData
	const q = `SELECT * FROM sample_data WHERE server_config_id = ? ORDER BY resource_type, name ASC`
	if err := s.db.SelectContext(ctx, &rows, q, serverConfigID); err != nil {
		return nil, err
	}
	out := make([]model.SampleData, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toModel())
	}
	return out, nil
}

func (s *Store) SampleDataCount(ctx context.Context, serverConfigID string) (int, error) {
	var count int
	const q = `SELECT COUNT(*) FROM sample_data WHERE server_config_id = ?`
	if err := s.db.GetContext(ctx, &count, q, serverConfigID); err != nil {
		return 0, err
	}
	return count, nil
}

func (s *Store) DeleteSampleData(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sample_data WHERE id = ?`, id)
	return err
}

// defaultSampleBodies are the five canned SCIM resources seeded for a
// server config that has none yet, per spec.md §6.
var defaultSampleBodies = []struct {
	resourceType string
	name         string
	json         string
}{
	{"user", "Standard User", `{
  "schemas": ["urn:ietf:params:scim:schemas:core:2.0:User"],
  "userName": "jane.smith@example.com",
  "name": {"givenName": "Jane", "familyName": "Smith", "formatted": "Jane Smith"},
  "displayName": "Jane Smith",
  "emails": [{"value": "jane.smith@example.com", "type": "work", "primary": true}],
  "phoneNumbers": [{"value": "+1-555-0101", "type": "work"}],
  "title": "Software Engineer",
  "active": true
}`},
	{"user", "Admin User", `{
  "schemas": ["urn:ietf:params:scim:schemas:core:2.0:User"],
  "userName": "admin@example.com",
  "name": {"givenName": "Admin", "familyName": "User", "formatted": "Admin User"},
  "displayName": "Admin User",
  "emails": [{"value": "admin@example.com", "type": "work", "primary": true}],
  "title": "System Administrator",
  "active": true
}`},
	{"user", "Contractor", `{
  "schemas": ["urn:ietf:params:scim:schemas:core:2.0:User"],
  "userName": "contractor@external.com",
  "name": {"givenName": "Alex", "familyName": "Contractor"},
  "displayName": "Alex Contractor",
  "emails": [{"value": "contractor@external.com", "type": "work", "primary": true}],
  "title": "External Contractor",
  "active": true
}`},
	{"group", "Engineering Team", `{
  "schemas": ["urn:ietf:params:scim:schemas:core:2.0:Group"],
  "displayName": "Engineering Team",
  "members": []
}`},
	{"group", "Marketing Team", `{
  "schemas": ["urn:ietf:params:scim:schemas:core:2.0:Group"],
  "displayName": "Marketing Team",
  "members": []
}`},
}

// SeedDefaultSampleData inserts the five canned templates for a server
// config, per db.rs::seed_default_sample_data.
func (s *Store) SeedDefaultSampleData(ctx context.Context, serverConfigID string) error {
	now := time.Now()
	for _, d := range defaultSampleBodies {
		item := model.SampleData{
			ID:             uuid.New().String(),
			ServerConfigID: serverConfigID,
			ResourceType:   d.resourceType,
			Name:           d.name,
			DataJSON:       d.json,
			IsDefault:      true,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := s.SaveSampleData(ctx, item); err != nil {
			return err
		}
	}
	return nil
}

// EnsureDefaultSampleData seeds the default templates only if the server
// config has no sample data yet, per spec.md §6's "on first use" clause.
func (s *Store) EnsureDefaultSampleData(ctx context.Context, serverConfigID string) error {
	count, err := s.SampleDataCount(ctx, serverConfigID)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	return s.SeedDefaultSampleData(ctx, serverConfigID)
}
