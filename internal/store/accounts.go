package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ignite/audience-sync/internal/domain"
)

// AccountStore reads platform accounts. The sync engine never writes them.
type AccountStore struct {
	db *sql.DB
}

// NewAccountStore creates an account store on the given database.
func NewAccountStore(db *sql.DB) *AccountStore {
	return &AccountStore{db: db}
}

// ListMailgunAccounts returns one page of accounts holding pull-provider
// credentials, ordered by id for stable batching.
func (s *AccountStore) ListMailgunAccounts(ctx context.Context, offset, limit int) ([]domain.Account, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, mailgun_api_key, mailgun_domain
		FROM accounts
		WHERE mailgun_api_key <> '' AND mailgun_domain <> ''
		ORDER BY id
		OFFSET $1 LIMIT $2
	`, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("querying mailgun accounts: %w", err)
	}
	defer rows.Close()

	var accounts []domain.Account
	for rows.Next() {
		var a domain.Account
		if err := rows.Scan(&a.ID, &a.Name, &a.MailgunAPIKey, &a.MailgunDomain); err != nil {
			return nil, fmt.Errorf("scanning account row: %w", err)
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}
