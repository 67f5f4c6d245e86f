// Package notify posts chat notifications to an incoming-webhook endpoint.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/stacklok/gitsorted/internal/httpclient"
	"github.com/stacklok/gitsorted/internal/issues"
)

//go:generate mockgen -destination=mocks/mock_notifier.go -package=mocks -source=notify.go Notifier

// Notifier sends a plain text message to a chat channel.
type Notifier interface {
	Send(ctx context.Context, text string) error
}

// webhookPayload is the incoming-webhook body understood by Slack and compatible services
type webhookPayload struct {
	Text string `json:"text"`
}

// WebhookNotifier posts messages to a fixed webhook URL.
type WebhookNotifier struct {
	client httpclient.Client
	url    string
}

// NewWebhookNotifier creates a notifier for webhookURL.
func NewWebhookNotifier(client httpclient.Client, webhookURL string) *WebhookNotifier {
	return &WebhookNotifier{
		client: client,
		url:    webhookURL,
	}
}

// Send posts {"text": text}. Any non-2xx answer is a failure.
func (n *WebhookNotifier) Send(ctx context.Context, text string) error {
	body, err := json.Marshal(webhookPayload{Text: text})
	if err != nil {
		return fmt.Errorf("failed to encode notification: %w", err)
	}

	if _, err := n.client.Post(ctx, n.url, body, nil); err != nil {
		var httpErr *httpclient.HTTPError
		if errors.As(err, &httpErr) &&
			(httpErr.StatusCode == http.StatusUnauthorized || httpErr.StatusCode == http.StatusForbidden) {
			return fmt.Errorf("%w: posting notification: %w", issues.ErrAuth, err)
		}
		return fmt.Errorf("%w: posting notification: %w", issues.ErrTransport, err)
	}
	return nil
}
