package domain

import "time"

// FieldType enumerates the semantic types the schema discovery job can
// assign to a customer record field.
type FieldType string

const (
	FieldString  FieldType = "string"
	FieldNumber  FieldType = "number"
	FieldBoolean FieldType = "boolean"
	FieldDate    FieldType = "date"
	FieldEmail   FieldType = "email"
)

// CustomerRecord is a sparse, schemaless record owned by the platform.
// ExternalID correlates it to a warehouse row when the record was created
// or enriched by a warehouse sync.
type CustomerRecord struct {
	ID         string    `json:"id" db:"id"`
	AccountID  string    `json:"account_id" db:"account_id"`
	ExternalID string    `json:"external_id,omitempty" db:"external_id"`
	Version    int       `json:"version" db:"version"`
	Fields     FieldMap  `json:"fields" db:"fields"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

// FieldMetadata describes one discovered field across all customer records.
// There is at most one row per Name; discovery upserts keyed on Name.
type FieldMetadata struct {
	Name    string    `json:"name" db:"name"`
	Type    FieldType `json:"type" db:"type"`
	IsArray bool      `json:"is_array" db:"is_array"`
}

// StructuralFields are record attributes that describe the record itself
// rather than customer data. Discovery never samples them. Callers may pass
// their own exclusion set; this is the default.
func StructuralFields() []string {
	return []string{"id", "account_id", "external_id", "version", "lists", "segments", "created_at", "updated_at"}
}
