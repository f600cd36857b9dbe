package scim

// Core schema URNs for the User and Group resource types. The body
// generators in the validation and loadtest packages write these URNs as
// string literals and do not reference these constants.
const (
	SchemaUser  = "urn:ietf:params:scim:schemas:core:2.0:User"
	SchemaGroup = "urn:ietf:params:scim:schemas:core:2.0:Group"
)
