package mailgun

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/ignite/audience-sync/internal/config"
	"github.com/ignite/audience-sync/internal/pkg/httpretry"
)

// Client is a Mailgun events API client. One client serves all accounts;
// credentials are passed per call because every account holds its own API
// key and sending domain.
type Client struct {
	baseURL    string
	httpClient httpretry.HTTPDoer
}

// NewClient creates a new Mailgun API client.
func NewClient(cfg config.MailgunConfig) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		httpClient: httpretry.NewRetryClient(&http.Client{
			Timeout: cfg.Timeout(),
		}, 3),
	}
}

// doRequest makes an authenticated GET against an absolute URL.
// Mailgun uses Basic Auth with "api" as the username.
func (c *Client) doRequest(ctx context.Context, apiKey, fullURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.SetBasicAuth("api", apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	return body, nil
}

// ListEvents opens a forward scan of the domain's events beginning at
// query.Begin. Subsequent pages are fetched with NextPage using the cursor
// in the returned page's Paging.Next.
func (c *Client) ListEvents(ctx context.Context, creds Credentials, query EventsQuery) (*EventsPage, error) {
	params := url.Values{}
	params.Set("begin", strconv.FormatInt(query.Begin.Unix(), 10))
	if query.Ascending {
		params.Set("ascending", "yes")
	}
	if query.Limit > 0 {
		params.Set("limit", strconv.Itoa(query.Limit))
	}

	fullURL := fmt.Sprintf("%s/v3/%s/events?%s", c.baseURL, creds.Domain, params.Encode())

	body, err := c.doRequest(ctx, creds.APIKey, fullURL)
	if err != nil {
		return nil, fmt.Errorf("fetching events: %w", err)
	}

	var page EventsPage
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, fmt.Errorf("parsing events response: %w", err)
	}

	return &page, nil
}

// NextPage follows an absolute paging URL returned by a previous page.
func (c *Client) NextPage(ctx context.Context, creds Credentials, pageURL string) (*EventsPage, error) {
	body, err := c.doRequest(ctx, creds.APIKey, pageURL)
	if err != nil {
		return nil, fmt.Errorf("fetching events page: %w", err)
	}

	var page EventsPage
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, fmt.Errorf("parsing events page: %w", err)
	}

	return &page, nil
}
