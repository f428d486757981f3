// Package api is the REST client for the chat server's per-feature
// endpoints. Every failure is converted into a fault at this boundary so
// the layers above never see raw transport errors.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/harborchat/harbor-client/internal/chat"
	"github.com/harborchat/harbor-client/internal/fault"
)

// Client issues feature requests against a base URL.
type Client struct {
	base string
	http *http.Client
}

// New builds a client. httpClient may be nil for a default with a 15s
// timeout.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{base: baseURL, http: httpClient}
}

// StarMessage stars a message for the current user.
func (c *Client) StarMessage(ctx context.Context, messageID string) error {
	return c.do(ctx, http.MethodPut, "/messages/"+url.PathEscape(messageID)+"/star", nil)
}

// UnstarMessage removes a star.
func (c *Client) UnstarMessage(ctx context.Context, messageID string) error {
	return c.do(ctx, http.MethodDelete, "/messages/"+url.PathEscape(messageID)+"/star", nil)
}

// PinMessage pins a message in its channel.
func (c *Client) PinMessage(ctx context.Context, messageID string) error {
	return c.do(ctx, http.MethodPut, "/messages/"+url.PathEscape(messageID)+"/pin", nil)
}

// UnpinMessage removes a pin.
func (c *Client) UnpinMessage(ctx context.Context, messageID string) error {
	return c.do(ctx, http.MethodDelete, "/messages/"+url.PathEscape(messageID)+"/pin", nil)
}

// BlockUser blocks a user.
func (c *Client) BlockUser(ctx context.Context, userID string) error {
	return c.do(ctx, http.MethodPut, "/users/"+url.PathEscape(userID)+"/block", nil)
}

// UnblockUser unblocks a user.
func (c *Client) UnblockUser(ctx context.Context, userID string) error {
	return c.do(ctx, http.MethodDelete, "/users/"+url.PathEscape(userID)+"/block", nil)
}

// UpdateAutoDelete replaces the auto-delete settings.
func (c *Client) UpdateAutoDelete(ctx context.Context, settings chat.AutoDeleteSettings) error {
	return c.do(ctx, http.MethodPut, "/settings/auto-delete", settings)
}

// ReportMessage files a report against a message.
func (c *Client) ReportMessage(ctx context.Context, messageID, reason string) error {
	body := map[string]string{"reason": reason}
	return c.do(ctx, http.MethodPost, "/messages/"+url.PathEscape(messageID)+"/report", body)
}

// ReportUser files a report against a user.
func (c *Client) ReportUser(ctx context.Context, userID, reason string) error {
	body := map[string]string{"reason": reason}
	return c.do(ctx, http.MethodPost, "/users/"+url.PathEscape(userID)+"/report", body)
}

// MarkRead advances the read marker for a channel.
func (c *Client) MarkRead(ctx context.Context, channelID, messageID string) error {
	body := map[string]string{"message_id": messageID}
	return c.do(ctx, http.MethodPost, "/channels/"+url.PathEscape(channelID)+"/read", body)
}

func (c *Client) do(ctx context.Context, method, path string, body any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fault.App("EncodeError", err.Error())
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return fault.App("RequestError", err.Error())
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fault.From(err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	return fault.HTTP(resp.StatusCode, errorMessage(resp))
}

// errorMessage pulls the server's error text out of the response body,
// falling back to the status text.
func errorMessage(resp *http.Response) string {
	data, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err == nil && len(data) > 0 {
		var payload struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &payload) == nil && payload.Error != "" {
			return payload.Error
		}
	}
	return fmt.Sprintf("%s %s", resp.Request.Method, http.StatusText(resp.StatusCode))
}
