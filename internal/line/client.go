package line

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	replyEndpoint = "https://api.line.me/v2/bot/message/reply"

	// Reply tokens expire quickly on the platform side, so there is no
	// point waiting longer than this.
	defaultTimeout = 5 * time.Second

	maxMessagesPerReply = 5
)

// Client is a minimal LINE Messaging API client covering what the
// webhook needs: replying to events.
type Client struct {
	token      string
	secret     string
	httpClient *http.Client
}

func NewClient(channelToken, channelSecret string) *Client {
	return &Client{
		token:      channelToken,
		secret:     channelSecret,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
}

// Enabled reports whether the client has credentials. Without them the
// webhook still accepts events, it just cannot answer.
func (c *Client) Enabled() bool {
	return c.token != ""
}

type textMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type replyRequest struct {
	ReplyToken string        `json:"replyToken"`
	Messages   []textMessage `json:"messages"`
}

// Reply sends text messages in answer to a webhook event.
func (c *Client) Reply(ctx context.Context, replyToken string, texts ...string) error {
	const op = "line.Client.Reply"

	if !c.Enabled() {
		return fmt.Errorf("%s: channel token not configured", op)
	}
	if len(texts) == 0 || len(texts) > maxMessagesPerReply {
		return fmt.Errorf("%s: need between 1 and %d messages, got %d", op, maxMessagesPerReply, len(texts))
	}

	msgs := make([]textMessage, 0, len(texts))
	for _, t := range texts {
		msgs = append(msgs, textMessage{Type: "text", Text: t})
	}

	body, err := json.Marshal(replyRequest{ReplyToken: replyToken, Messages: msgs})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, replyEndpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s: reply api returned %d: %s", op, resp.StatusCode, detail)
	}
	return nil
}

// ValidateSignature checks the X-Line-Signature header against the raw
// request body. With no channel secret configured validation is
// skipped, which keeps local development workable.
func (c *Client) ValidateSignature(body []byte, signature string) bool {
	if c.secret == "" {
		return true
	}
	mac := hmac.New(sha256.New, []byte(c.secret))
	mac.Write(body)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
