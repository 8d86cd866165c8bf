// Package notify forwards export confirmations to an ntfy-compatible
// endpoint.
package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultTimeout = 5 * time.Second

// Notifier posts plain-text messages to one endpoint.
type Notifier struct {
	endpoint string
	title    string
	client   *http.Client
}

// New returns a Notifier for endpoint. A nil client gets a short timeout.
func New(endpoint, title string, client *http.Client) *Notifier {
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	return &Notifier{endpoint: endpoint, title: title, client: client}
}

// Notify posts message.
func (n *Notifier) Notify(ctx context.Context, message string) error {
	return Send(ctx, n.client, n.endpoint, n.title, message)
}

// Send sends a message to the requested endpoint using HTTP POST. A non-empty
// title is passed in the ntfy Title header.
func Send(ctx context.Context, client *http.Client, endpoint, title, message string) error {
	if endpoint == "" {
		return errors.New("notify: endpoint is empty")
	}
	c := client
	if c == nil {
		c = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(message))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "text/plain")
	if title != "" {
		req.Header.Set("Title", title)
	}

	resp, err := c.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("ntfy notification failed: status=%d", resp.StatusCode)
	}
	return nil
}
