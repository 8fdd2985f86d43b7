package domain

import "time"

// DBType enumerates the warehouse backends an integration can point at.
type DBType string

const (
	DBSnowflake DBType = "snowflake"
	DBMySQL     DBType = "mysql"
	DBPostgres  DBType = "postgres"
	DBBigQuery  DBType = "bigquery"
	DBRedshift  DBType = "redshift"
)

// FrequencyUnit is the unit of an integration's sync cadence.
type FrequencyUnit string

const (
	FreqMinute FrequencyUnit = "MINUTE"
	FreqHour   FrequencyUnit = "HOUR"
	FreqDay    FrequencyUnit = "DAY"
	FreqWeek   FrequencyUnit = "WEEK"
)

// Duration returns the length of one frequency unit. Unknown units fall
// back to a day so a misconfigured integration never busy-loops.
func (u FrequencyUnit) Duration() time.Duration {
	switch u {
	case FreqMinute:
		return time.Minute
	case FreqHour:
		return time.Hour
	case FreqDay:
		return 24 * time.Hour
	case FreqWeek:
		return 7 * 24 * time.Hour
	default:
		return 24 * time.Hour
	}
}

// DatabaseConfig carries the connection parameters and query for one
// warehouse integration.
type DatabaseConfig struct {
	Type      DBType `json:"type" db:"db_type"`
	Account   string `json:"account" db:"db_account"`
	User      string `json:"user" db:"db_user"`
	Password  string `json:"-" db:"db_password"`
	Database  string `json:"database" db:"db_database"`
	Schema    string `json:"schema" db:"db_schema"`
	Warehouse string `json:"warehouse" db:"db_warehouse"`
	Query     string `json:"query" db:"db_query"`
}

// Integration links an account to a warehouse database on a sync cadence.
// LastSync is the only field the sync engine mutates, and it only moves
// forward.
type Integration struct {
	ID              string          `json:"id" db:"id"`
	AccountID       string          `json:"account_id" db:"account_id"`
	Database        *DatabaseConfig `json:"database" db:"-"`
	FrequencyNumber int             `json:"frequency_number" db:"frequency_number"`
	FrequencyUnit   FrequencyUnit   `json:"frequency_unit" db:"frequency_unit"`
	LastSync        time.Time       `json:"last_sync" db:"last_sync"`
}

// Account owns provider credentials and integrations. Read-only to the
// sync engine.
type Account struct {
	ID            string `json:"id" db:"id"`
	Name          string `json:"name" db:"name"`
	MailgunAPIKey string `json:"-" db:"mailgun_api_key"`
	MailgunDomain string `json:"mailgun_domain" db:"mailgun_domain"`
}

// HasMailgun reports whether the account carries pull-provider credentials.
func (a Account) HasMailgun() bool {
	return a.MailgunAPIKey != "" && a.MailgunDomain != ""
}
