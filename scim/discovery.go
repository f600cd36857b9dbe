package scim

import (
	"encoding/json"
	"strings"
)

// SchemaDefinition represents a SCIM schema definition
type SchemaDefinition struct {
	ID          string                `json:"id"`
	Name        string                `json:"name,omitempty"`
	Description string                `json:"description,omitempty"`
	Attributes  []AttributeDefinition `json:"attributes,omitempty"`
}

// AttributeDefinition describes a SCIM attribute
type AttributeDefinition struct {
	Name            string                `json:"name"`
	Type            string                `json:"type"`
	SubAttributes   []AttributeDefinition `json:"subAttributes,omitempty"`
	MultiValued     bool                  `json:"multiValued"`
	Description     string                `json:"description,omitempty"`
	Required        bool                  `json:"required"`
	CaseExact       bool                  `json:"caseExact"`
	Mutability      string                `json:"mutability"`
	Returned        string                `json:"returned"`
	Uniqueness      string                `json:"uniqueness"`
	ReferenceTypes  []string              `json:"referenceTypes,omitempty"`
	CanonicalValues []string              `json:"canonicalValues,omitempty"`
}

// CoreSchemaPrefixes are the SCIM-defined schema URN prefixes that the
// custom-schema discovery pre-pass excludes: anything starting with one of
// these is a core or message schema, not a server's own extension.
var CoreSchemaPrefixes = []string{
	"urn:ietf:params:scim:schemas:core:2.0:",
	"urn:ietf:params:scim:api:messages:2.0:",
}

// SchemasResponse is the body of a GET /Schemas response: either a bare
// array of SchemaDefinition, or (per RFC 7644 §3.4.2) a ListResponse
// wrapping them. Servers vary; UnmarshalJSON accepts both shapes.
type SchemasResponse struct {
	Schemas []SchemaDefinition
}

func (s *SchemasResponse) UnmarshalJSON(data []byte) error {
	var list ListResponse[SchemaDefinition]
	if err := json.Unmarshal(data, &list); err == nil {
		s.Schemas = list.Resources
		return nil
	}
	var bare []SchemaDefinition
	if err := json.Unmarshal(data, &bare); err != nil {
		return err
	}
	s.Schemas = bare
	return nil
}

// DiscoveredAttribute is a flattened (schema, attribute, type) tuple
// surfaced by the custom-schema discovery pre-pass.
type DiscoveredAttribute struct {
	SchemaURN string
	AttrName  string
	AttrType  string
}

// FlattenCustomAttributes walks the schemas returned by a server's
// /Schemas endpoint and extracts the attributes of non-core schemas,
// skipping empty names and attributes of type complex, binary, or any
// multiValued attribute (these have no single deterministic test value).
func FlattenCustomAttributes(schemas []SchemaDefinition) []DiscoveredAttribute {
	var out []DiscoveredAttribute
	for _, s := range schemas {
		if isCoreSchema(s.ID) {
			continue
		}
		for _, attr := range s.Attributes {
			if attr.Name == "" {
				continue
			}
			t := strings.ToLower(attr.Type)
			if t == "complex" || t == "binary" || attr.MultiValued {
				continue
			}
			out = append(out, DiscoveredAttribute{
				SchemaURN: s.ID,
				AttrName:  attr.Name,
				AttrType:  t,
			})
		}
	}
	return out
}

func isCoreSchema(urn string) bool {
	for _, prefix := range CoreSchemaPrefixes {
		if strings.HasPrefix(urn, prefix) {
			return true
		}
	}
	return false
}
