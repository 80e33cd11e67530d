package bot

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultAPIURL is the Telegram Bot API location
const DefaultAPIURL = "https://api.telegram.org"

var errRequestFailed = errors.New("bot API request failed")

// APIClient calls the Telegram Bot API methods the bot needs at startup
type APIClient struct {
	client *http.Client
	apiURL string
	token  string
}

type APIOption func(c *APIClient)

// WithAPIURL specifies the Bot API location. Defaults to DefaultAPIURL
func WithAPIURL(apiURL string) APIOption {
	return func(c *APIClient) {
		c.apiURL = strings.TrimSuffix(apiURL, "/")
	}
}

// NewAPIClient creates a new Bot API client for the given bot token
func NewAPIClient(token string, timeout time.Duration, opts ...APIOption) *APIClient {
	c := &APIClient{
		client: &http.Client{Timeout: timeout},
		apiURL: DefaultAPIURL,
		token:  token,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

type setWebhook struct {
	URL         string `json:"url"`
	SecretToken string `json:"secret_token,omitempty"`
}

type apiResponse struct {
	Description string `json:"description"`
	OK          bool   `json:"ok"`
}

// SetWebhook points Telegram at the given webhook URL.
// Updates are then sent with the secret token header, if one is set
func (c *APIClient) SetWebhook(ctx context.Context, webhookURL, secret string) error {
	body, err := json.Marshal(&setWebhook{
		URL:         webhookURL,
		SecretToken: secret,
	})
	if err != nil {
		return fmt.Errorf("unable to encode setWebhook: %w", err)
	}

	endpoint := fmt.Sprintf("%s/bot%s/setWebhook", c.apiURL, c.token)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("unable to create new POST request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		// The URL carries the token, keep it out of the error
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}

		return fmt.Errorf("unable to execute setWebhook: %w", err)
	}
	defer resp.Body.Close()

	var res apiResponse

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxUpdateSize)).Decode(&res); err != nil {
		return fmt.Errorf("%w: status code %d", errRequestFailed, resp.StatusCode)
	}

	if resp.StatusCode != http.StatusOK || !res.OK {
		return fmt.Errorf("%w: status code %d: %s", errRequestFailed, resp.StatusCode, res.Description)
	}

	return nil
}
