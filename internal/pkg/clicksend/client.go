package clicksend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/MitchCasey/ReviewPing/internal/pkg/env"
)

const defaultAPIBaseURL = "https://rest.clicksend.com/v3"

// Gateway error classification. Each of these implies a different operator
// action (top up the gateway account, rotate the API key, shorten the
// template), so they are surfaced as distinct errors rather than one
// generic failure.
var (
	ErrInsufficientCredit = errors.New("clicksend: insufficient gateway credit")
	ErrInvalidCredentials = errors.New("clicksend: invalid API credentials")
	ErrMessageTooLong     = errors.New("clicksend: message body too long")
)

// Client sends SMS through the ClickSend REST API.
type Client struct {
	Username   string
	APIKey     string
	SenderID   string
	APIBaseURL string

	HTTPClient *http.Client
}

// NewClientFromEnv builds a client from environment configuration.
func NewClientFromEnv() *Client {
	return &Client{
		Username:   strings.TrimSpace(env.GetEnv("CLICKSEND_USERNAME", "")),
		APIKey:     strings.TrimSpace(env.GetEnv("CLICKSEND_API_KEY", "")),
		SenderID:   strings.TrimSpace(env.GetEnv("CLICKSEND_SENDER_ID", "")),
		APIBaseURL: strings.TrimSpace(env.GetEnv("CLICKSEND_API_BASE_URL", defaultAPIBaseURL)),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type sendRequest struct {
	Messages []sendMessage `json:"messages"`
}

type sendMessage struct {
	To     string `json:"to"`
	Body   string `json:"body"`
	From   string `json:"from,omitempty"`
	Source string `json:"source"`
}

type sendResponse struct {
	ResponseCode string `json:"response_code"`
	ResponseMsg  string `json:"response_msg"`
	Data         struct {
		Messages []struct {
			MessageID string `json:"message_id"`
			Status    string `json:"status"`
		} `json:"messages"`
	} `json:"data"`
}

// Send delivers one SMS to an E.164 number and returns the gateway message
// id. Errors are classified where the gateway response allows it.
func (c *Client) Send(ctx context.Context, to, body string) (string, error) {
	if strings.TrimSpace(c.Username) == "" || strings.TrimSpace(c.APIKey) == "" {
		return "", ErrInvalidCredentials
	}

	payload, err := json.Marshal(sendRequest{
		Messages: []sendMessage{{
			To:     to,
			Body:   body,
			From:   c.SenderID,
			Source: "reviewping",
		}},
	})
	if err != nil {
		return "", err
	}

	u := strings.TrimRight(c.APIBaseURL, "/") + "/sms/send"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.Username, c.APIKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return "", ErrInvalidCredentials
	}

	var out sendResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("clicksend send failed: status=%d body=%s", resp.StatusCode, string(raw))
	}

	if classified := classify(out.ResponseCode, out.ResponseMsg); classified != nil {
		return "", classified
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("clicksend send failed: status=%d code=%s msg=%s", resp.StatusCode, out.ResponseCode, out.ResponseMsg)
	}
	if len(out.Data.Messages) == 0 {
		return "", fmt.Errorf("clicksend response contained no messages: %s", string(raw))
	}

	msg := out.Data.Messages[0]
	if classified := classify(msg.Status, ""); classified != nil {
		return "", classified
	}
	if msg.Status != "SUCCESS" {
		return "", fmt.Errorf("clicksend message rejected: status=%s", msg.Status)
	}
	return msg.MessageID, nil
}

func classify(code, msg string) error {
	switch strings.ToUpper(strings.TrimSpace(code)) {
	case "INSUFFICIENT_CREDIT":
		return ErrInsufficientCredit
	case "BAD_CREDENTIALS", "UNAUTHORIZED":
		return ErrInvalidCredentials
	case "BODY_TOO_LONG":
		return ErrMessageTooLong
	}
	if strings.Contains(strings.ToLower(msg), "too long") {
		return ErrMessageTooLong
	}
	return nil
}
