package ingest

import (
	"github.com/ignite/audience-sync/internal/domain"
	"github.com/ignite/audience-sync/internal/mailgun"
)

// Provider names stamped on sink rows.
const (
	ProviderMailgun = "mailgun"
	ProviderSES     = "ses"
)

// Correlation identifiers are user variables threaded through the original
// send by the platform, not assigned by the provider.
const (
	varAudienceID = "audience_id"
	varCustomerID = "customer_id"
)

// Normalize maps a raw provider event onto the canonical message status
// record. Events missing either correlation identifier cannot be linked
// back to a platform record and are dropped (ok=false).
func Normalize(ev mailgun.Event, provider string) (domain.MessageStatusEvent, bool) {
	audienceID := ev.Variable(varAudienceID)
	customerID := ev.Variable(varCustomerID)
	if audienceID == "" || customerID == "" {
		return domain.MessageStatusEvent{}, false
	}

	return domain.MessageStatusEvent{
		AudienceID: audienceID,
		CustomerID: customerID,
		MessageID:  ev.Message.Headers.MessageID,
		EventType:  ev.Event,
		Provider:   provider,
		CreatedAt:  ev.Time(),
	}, true
}
