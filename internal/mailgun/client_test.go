package mailgun

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(server *httptest.Server) *Client {
	return &Client{
		baseURL: server.URL,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

func testCreds() Credentials {
	return Credentials{APIKey: "key-test", Domain: "mg.example.com"}
}

func TestListEvents(t *testing.T) {
	begin := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v3/mg.example.com/events", r.URL.Path)
		assert.Equal(t, "1717200000", r.URL.Query().Get("begin"))
		assert.Equal(t, "yes", r.URL.Query().Get("ascending"))

		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "api", user)
		assert.Equal(t, "key-test", pass)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"items": []map[string]any{
				{
					"event":     "delivered",
					"timestamp": 1717200100.5,
					"message":   map[string]any{"headers": map[string]any{"message-id": "msg-1"}},
					"user-variables": map[string]any{
						"audience_id": "aud-1",
						"customer_id": "cust-1",
					},
				},
			},
			"paging": map[string]any{"next": "https://api.mailgun.net/v3/mg.example.com/events/page2"},
		})
	}))
	defer server.Close()

	client := newTestClient(server)

	page, err := client.ListEvents(context.Background(), testCreds(), EventsQuery{Begin: begin, Ascending: true, Limit: 300})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)

	ev := page.Items[0]
	assert.Equal(t, "delivered", ev.Event)
	assert.Equal(t, "msg-1", ev.Message.Headers.MessageID)
	assert.Equal(t, "aud-1", ev.Variable("audience_id"))
	assert.Equal(t, "cust-1", ev.Variable("customer_id"))
	assert.Equal(t, int64(1717200100), ev.Time().Unix())
	assert.Equal(t, "https://api.mailgun.net/v3/mg.example.com/events/page2", page.Paging.Next)
}

func TestNextPageEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v3/mg.example.com/events/page2", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"items":  []any{},
			"paging": map[string]any{"next": ""},
		})
	}))
	defer server.Close()

	client := newTestClient(server)

	page, err := client.NextPage(context.Background(), testCreds(), server.URL+"/v3/mg.example.com/events/page2")
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.True(t, page.LastEventTime().IsZero())
}

func TestListEventsAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"invalid key"}`, http.StatusUnauthorized)
	}))
	defer server.Close()

	client := newTestClient(server)

	_, err := client.ListEvents(context.Background(), testCreds(), EventsQuery{Begin: time.Now()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
}

func TestVariableNonString(t *testing.T) {
	ev := Event{UserVariables: map[string]any{"audience_id": float64(42)}}
	assert.Equal(t, "42", ev.Variable("audience_id"))
	assert.Equal(t, "", ev.Variable("customer_id"))
}
