package valueobject

import (
	"errors"
	"strings"
)

// MaxSchemaNameLength bounds generated schema identifiers below the
// PostgreSQL identifier limit of 63 bytes.
const MaxSchemaNameLength = 63

// SchemaName is a validated per-tenant storage namespace identifier.
//
// A SchemaName can only be constructed through NewSchemaName, which
// normalizes the tenant and repository name into a safe SQL identifier.
// This is the only value ever interpolated into schema-qualified
// statements; caller-supplied strings must never reach a query directly.
//
// Two very long (tenant, repository) pairs that only differ past the
// truncation point map to the same schema. The original system behaves
// the same way and callers are expected to keep identifiers short.
type SchemaName string

// NewSchemaName derives the storage namespace for a tenant and repository
// pair. Both inputs are case-folded and stripped of any character outside
// [a-z0-9_], then combined as tenant_<tenant>_repo_<name> and truncated to
// MaxSchemaNameLength.
func NewSchemaName(tenant, repoName string) (SchemaName, error) {
	safeTenant := sanitizeIdentifierPart(tenant)
	safeRepo := sanitizeIdentifierPart(repoName)

	if safeTenant == "" {
		return "", errors.New("tenant must contain at least one alphanumeric character")
	}
	if safeRepo == "" {
		return "", errors.New("repository name must contain at least one alphanumeric character")
	}

	name := "tenant_" + safeTenant + "_repo_" + safeRepo
	if len(name) > MaxSchemaNameLength {
		name = name[:MaxSchemaNameLength]
	}
	return SchemaName(name), nil
}

// String returns the schema identifier.
func (s SchemaName) String() string {
	return string(s)
}

// TenantSchemaPrefix returns the schema-name prefix shared by all
// repositories of a tenant, used for namespace discovery queries.
func TenantSchemaPrefix(tenant string) string {
	return "tenant_" + sanitizeIdentifierPart(tenant) + "_repo_"
}

func sanitizeIdentifierPart(raw string) string {
	var sb strings.Builder
	for _, r := range strings.ToLower(raw) {
		if r == '_' || (r >= '0' && r <= '9') || (r >= 'a' && r <= 'z') {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
