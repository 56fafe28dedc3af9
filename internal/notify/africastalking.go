package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// AfricasTalking sends SMS through the Africa's Talking messaging REST API.
type AfricasTalking struct {
	client   *http.Client
	baseURL  string
	apiKey   string
	username string
}

// NewAfricasTalking builds an SMS client for the given credentials.
func NewAfricasTalking(baseURL, apiKey, username string) *AfricasTalking {
	return &AfricasTalking{
		client:   &http.Client{Timeout: 10 * time.Second},
		baseURL:  baseURL,
		apiKey:   apiKey,
		username: username,
	}
}

// Send posts one message to one recipient. Delivery is fire-and-forget from
// the caller's perspective; an error here is logged, never retried.
func (a *AfricasTalking) Send(ctx context.Context, phoneNumber, message string) error {
	form := url.Values{
		"username": {a.username},
		"to":       {phoneNumber},
		"message":  {message},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build sms request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("apiKey", a.apiKey)

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("send sms: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("sms gateway status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}
