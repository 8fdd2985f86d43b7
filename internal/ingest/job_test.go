package ingest

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/audience-sync/internal/domain"
	"github.com/ignite/audience-sync/internal/mailgun"
)

type fakeSink struct {
	max    *time.Time
	events []domain.MessageStatusEvent
	err    error
}

func (f *fakeSink) MaxTimestamp(ctx context.Context) (*time.Time, error) {
	return f.max, nil
}

func (f *fakeSink) InsertBatch(ctx context.Context, events []domain.MessageStatusEvent) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, events...)
	return nil
}

type fakeAccounts struct {
	accounts []domain.Account
}

func (f *fakeAccounts) ListMailgunAccounts(ctx context.Context, offset, limit int) ([]domain.Account, error) {
	if offset >= len(f.accounts) {
		return nil, nil
	}
	end := offset + limit
	if end > len(f.accounts) {
		end = len(f.accounts)
	}
	return f.accounts[offset:end], nil
}

type fakeAPI struct {
	pages     map[string][]*mailgun.EventsPage
	fetched   map[string]int
	listErr   map[string]error
	nextCalls int
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{pages: map[string][]*mailgun.EventsPage{}, fetched: map[string]int{}, listErr: map[string]error{}}
}

func (f *fakeAPI) ListEvents(ctx context.Context, creds mailgun.Credentials, query mailgun.EventsQuery) (*mailgun.EventsPage, error) {
	if err := f.listErr[creds.Domain]; err != nil {
		return nil, err
	}
	f.fetched[creds.Domain] = 1
	return f.pages[creds.Domain][0], nil
}

func (f *fakeAPI) NextPage(ctx context.Context, creds mailgun.Credentials, pageURL string) (*mailgun.EventsPage, error) {
	f.nextCalls++
	idx := f.fetched[creds.Domain]
	f.fetched[creds.Domain] = idx + 1
	return f.pages[creds.Domain][idx], nil
}

type fakeStaging struct {
	rows      []domain.StagingEvent
	takeCalls int
}

func (f *fakeStaging) TakeBatch(ctx context.Context, limit int) ([]domain.StagingEvent, error) {
	f.takeCalls++
	if len(f.rows) == 0 {
		return nil, nil
	}
	if limit > len(f.rows) {
		limit = len(f.rows)
	}
	out := make([]domain.StagingEvent, limit)
	copy(out, f.rows[:limit])
	return out, nil
}

func (f *fakeStaging) Delete(ctx context.Context, id int64) error {
	for i, r := range f.rows {
		if r.ID == id {
			f.rows = append(f.rows[:i], f.rows[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("row %d not found", id)
}

func event(ts time.Time, audienceID, customerID, messageID, eventType string) mailgun.Event {
	ev := mailgun.Event{
		Event:         eventType,
		Timestamp:     float64(ts.Unix()),
		UserVariables: map[string]any{},
	}
	ev.Message.Headers.MessageID = messageID
	if audienceID != "" {
		ev.UserVariables["audience_id"] = audienceID
	}
	if customerID != "" {
		ev.UserVariables["customer_id"] = customerID
	}
	return ev
}

func page(next string, events ...mailgun.Event) *mailgun.EventsPage {
	return &mailgun.EventsPage{Items: events, Paging: mailgun.Paging{Next: next}}
}

func mailgunAccount(id string) domain.Account {
	return domain.Account{ID: id, MailgunAPIKey: "key-" + id, MailgunDomain: id + ".example.com"}
}

func TestNormalizeDropsMissingCorrelationIDs(t *testing.T) {
	now := time.Now()

	_, ok := Normalize(event(now, "", "cust-1", "m1", "delivered"), ProviderMailgun)
	assert.False(t, ok)

	_, ok = Normalize(event(now, "aud-1", "", "m1", "delivered"), ProviderMailgun)
	assert.False(t, ok)

	ev, ok := Normalize(event(now, "aud-1", "cust-1", "m1", "delivered"), ProviderMailgun)
	require.True(t, ok)
	assert.Equal(t, "aud-1", ev.AudienceID)
	assert.Equal(t, "cust-1", ev.CustomerID)
	assert.Equal(t, ProviderMailgun, ev.Provider)
}

func TestWatermarkDefaultsToEpochFloor(t *testing.T) {
	tracker := NewWatermarkTracker(&fakeSink{})
	wm, err := tracker.Current(context.Background())
	require.NoError(t, err)
	assert.Equal(t, EpochFloor, wm)

	max := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	tracker = NewWatermarkTracker(&fakeSink{max: &max})
	wm, err = tracker.Current(context.Background())
	require.NoError(t, err)
	assert.Equal(t, max, wm)
}

func TestPullPaginationStopsAtWatermark(t *testing.T) {
	wm := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	acct := mailgunAccount("acct-1")

	// Pages with strictly decreasing last-event timestamps; page 3 reaches
	// the watermark, so page 4 must never be fetched.
	api := newFakeAPI()
	api.pages[acct.MailgunDomain] = []*mailgun.EventsPage{
		page("p2",
			event(wm.Add(100*time.Second), "aud-1", "cust-1", "m1", "delivered"),
			event(wm.Add(90*time.Second), "aud-1", "", "m2", "delivered"), // dropped
		),
		page("p3",
			event(wm.Add(50*time.Second), "aud-1", "cust-2", "m3", "opened"),
		),
		page("p4",
			event(wm.Add(-10*time.Second), "aud-1", "cust-3", "m4", "bounced"),
		),
		page("",
			event(wm.Add(-20*time.Second), "aud-1", "cust-4", "m5", "delivered"),
		),
	}

	sink := &fakeSink{max: &wm}
	job := NewJob(api, &fakeAccounts{accounts: []domain.Account{acct}}, sink, &fakeStaging{}, 500)
	job.Run(context.Background())

	// Pages 1-3 fetched (ListEvents + 2 NextPage), page 4 never requested.
	assert.Equal(t, 3, api.fetched[acct.MailgunDomain])
	assert.Equal(t, 2, api.nextCalls)

	// Conforming events from the fetched pages are collected; the event
	// missing its customer id is dropped and not counted.
	require.Len(t, sink.events, 3)
	assert.Equal(t, "m1", sink.events[0].MessageID)
	assert.Equal(t, "m3", sink.events[1].MessageID)
	assert.Equal(t, "m4", sink.events[2].MessageID)
}

func TestPullStopsOnEmptyPage(t *testing.T) {
	wm := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	acct := mailgunAccount("acct-1")

	api := newFakeAPI()
	api.pages[acct.MailgunDomain] = []*mailgun.EventsPage{
		page("p2", event(wm.Add(time.Hour), "aud-1", "cust-1", "m1", "delivered")),
		page("p3"), // empty page: end of data even though a cursor remains
	}

	sink := &fakeSink{max: &wm}
	job := NewJob(api, &fakeAccounts{accounts: []domain.Account{acct}}, sink, &fakeStaging{}, 500)
	job.Run(context.Background())

	assert.Equal(t, 2, api.fetched[acct.MailgunDomain])
	assert.Len(t, sink.events, 1)
}

func TestPullAccountFailureDoesNotAbortBatch(t *testing.T) {
	wm := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	bad := mailgunAccount("acct-bad")
	good := mailgunAccount("acct-good")

	api := newFakeAPI()
	api.listErr[bad.MailgunDomain] = errors.New("401 invalid key")
	api.pages[good.MailgunDomain] = []*mailgun.EventsPage{
		page("", event(wm.Add(time.Minute), "aud-1", "cust-1", "m1", "delivered")),
	}

	sink := &fakeSink{max: &wm}
	job := NewJob(api, &fakeAccounts{accounts: []domain.Account{bad, good}}, sink, &fakeStaging{}, 500)
	job.Run(context.Background())

	require.Len(t, sink.events, 1)
	assert.Equal(t, "m1", sink.events[0].MessageID)
}

func TestPushDrainsStagingInBatches(t *testing.T) {
	staging := &fakeStaging{}
	for i := 0; i < 1200; i++ {
		staging.rows = append(staging.rows, domain.StagingEvent{
			ID:         int64(i + 1),
			AudienceID: "aud-1",
			CustomerID: fmt.Sprintf("cust-%d", i),
			MessageID:  fmt.Sprintf("m-%d", i),
			EventType:  "delivered",
			CreatedAt:  time.Now(),
		})
	}

	sink := &fakeSink{}
	job := NewJob(newFakeAPI(), &fakeAccounts{}, sink, staging, 500)
	job.Run(context.Background())

	// 500 + 500 + 200, then the empty batch that ends the loop.
	assert.Equal(t, 4, staging.takeCalls)
	assert.Empty(t, staging.rows)
	require.Len(t, sink.events, 1200)
	assert.Equal(t, ProviderSES, sink.events[0].Provider)
}
