// Package webhook implements the inbound SES/SNS receiver. SES publishes
// delivery notifications to an SNS topic subscribed to this endpoint;
// events are parked in the staging table and drained by the ingestion job.
package webhook

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/ignite/audience-sync/internal/config"
	"github.com/ignite/audience-sync/internal/domain"
	"github.com/ignite/audience-sync/internal/pkg/httputil"
	"github.com/ignite/audience-sync/internal/pkg/logger"
)

// Staging parks raw events for the ingestion drain.
type Staging interface {
	Insert(ctx context.Context, ev domain.StagingEvent) error
}

// snsEnvelope is the SNS wrapper around every delivery to an HTTP
// subscriber. Message holds the SES notification as a JSON string.
type snsEnvelope struct {
	Type         string `json:"Type"`
	SubscribeURL string `json:"SubscribeURL"`
	Message      string `json:"Message"`
	MessageId    string `json:"MessageId"`
	TopicArn     string `json:"TopicArn"`
}

// sesNotification is the SES event inside the SNS envelope. Correlation
// ids arrive as message tags stamped on the original send.
type sesNotification struct {
	EventType        string `json:"eventType"`
	NotificationType string `json:"notificationType"`
	Mail             struct {
		MessageID string              `json:"messageId"`
		Timestamp time.Time           `json:"timestamp"`
		Tags      map[string][]string `json:"tags"`
	} `json:"mail"`
}

// Receiver handles inbound SNS posts.
type Receiver struct {
	staging Staging
}

// NewReceiver creates a receiver writing to the given staging store.
func NewReceiver(staging Staging) *Receiver {
	return &Receiver{staging: staging}
}

// Router builds the receiver's HTTP surface.
func Router(r *Receiver, cfg config.WebhookConfig) *chi.Mux {
	mux := chi.NewRouter()
	mux.Use(middleware.Recoverer)
	mux.Use(middleware.RealIP)
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	mux.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		httputil.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.Post("/webhooks/ses", r.HandleSES)
	return mux
}

// HandleSES processes one SNS delivery. Malformed payloads are logged and
// acknowledged with 200 so SNS does not retry them forever.
func (rc *Receiver) HandleSES(w http.ResponseWriter, req *http.Request) {
	body, err := io.ReadAll(req.Body)
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	var envelope snsEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}

	if envelope.Type == "SubscriptionConfirmation" {
		rc.confirmSubscription(req.Context(), envelope)
		w.WriteHeader(http.StatusOK)
		return
	}

	var notification sesNotification
	if err := json.Unmarshal([]byte(envelope.Message), &notification); err != nil {
		logger.Warn("unparseable SES notification", "sns_message", envelope.MessageId, "error", err)
		w.WriteHeader(http.StatusOK)
		return
	}

	ev, ok := stagingEvent(notification)
	if !ok {
		logger.Warn("SES event missing correlation tags", "message", notification.Mail.MessageID)
		w.WriteHeader(http.StatusOK)
		return
	}

	if err := rc.staging.Insert(req.Context(), ev); err != nil {
		logger.Error("failed to stage SES event", "message", ev.MessageID, "error", err)
		http.Error(w, "storage error", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// confirmSubscription completes the SNS handshake by fetching the
// subscribe URL. Failure is logged; SNS re-sends the confirmation.
func (rc *Receiver) confirmSubscription(ctx context.Context, envelope snsEnvelope) {
	logger.Info("confirming SNS subscription", "topic", envelope.TopicArn)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, envelope.SubscribeURL, nil)
	if err != nil {
		logger.Error("building subscription confirmation request", "error", err)
		return
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		logger.Error("confirming SNS subscription", "error", err)
		return
	}
	resp.Body.Close()
	logger.Info("SNS subscription confirmed", "topic", envelope.TopicArn)
}

// stagingEvent maps an SES notification onto a staging row. Events
// without both correlation tags cannot be linked to a platform record.
func stagingEvent(n sesNotification) (domain.StagingEvent, bool) {
	eventType := n.EventType
	if eventType == "" {
		eventType = n.NotificationType
	}

	audienceID := firstTag(n.Mail.Tags, "audience_id")
	customerID := firstTag(n.Mail.Tags, "customer_id")
	if audienceID == "" || customerID == "" || eventType == "" {
		return domain.StagingEvent{}, false
	}

	createdAt := n.Mail.Timestamp
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	return domain.StagingEvent{
		AudienceID: audienceID,
		CustomerID: customerID,
		MessageID:  n.Mail.MessageID,
		EventType:  eventType,
		CreatedAt:  createdAt.UTC(),
	}, true
}

func firstTag(tags map[string][]string, name string) string {
	if vals := tags[name]; len(vals) > 0 {
		return vals[0]
	}
	return ""
}
