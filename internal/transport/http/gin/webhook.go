package httpgin

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/example/tablegate/internal/line"
	"github.com/example/tablegate/internal/service"
)

type webhookEvent struct {
	Type       string `json:"type"`
	ReplyToken string `json:"replyToken"`
	Source     struct {
		UserID string `json:"userId"`
	} `json:"source"`
	Message struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"message"`
}

type webhookPayload struct {
	Events []webhookEvent `json:"events"`
}

// handleWebhook receives LINE platform events. It answers 200 no matter
// what happens inside: a non-200 makes the platform retry and
// eventually disable the webhook, which is worse than a dropped reply.
func handleWebhook(
	svcs *service.Services,
	client *line.Client,
	storeID, liffURL string,
	logger *slog.Logger,
) gin.HandlerFunc {
	return func(c *gin.Context) {
		ok := gin.H{"status": "ok"}

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			logger.Warn("webhook body read failed", slog.String("error", err.Error()))
			c.JSON(http.StatusOK, ok)
			return
		}

		if !client.ValidateSignature(body, c.GetHeader("X-Line-Signature")) {
			logger.Warn("webhook signature mismatch, dropping events")
			c.JSON(http.StatusOK, ok)
			return
		}

		var payload webhookPayload
		if err := json.Unmarshal(body, &payload); err != nil {
			logger.Warn("webhook payload unparseable", slog.String("error", err.Error()))
			c.JSON(http.StatusOK, ok)
			return
		}

		for _, ev := range payload.Events {
			handleEvent(c, svcs, client, storeID, liffURL, logger, ev)
		}

		c.JSON(http.StatusOK, ok)
	}
}

func handleEvent(
	c *gin.Context,
	svcs *service.Services,
	client *line.Client,
	storeID, liffURL string,
	logger *slog.Logger,
	ev webhookEvent,
) {
	ctx := c.Request.Context()

	reply := func(texts ...string) {
		if !client.Enabled() || ev.ReplyToken == "" {
			return
		}
		if err := client.Reply(ctx, ev.ReplyToken, texts...); err != nil {
			logger.Warn("line reply failed",
				slog.String("event_type", ev.Type),
				slog.String("error", err.Error()))
		}
	}

	switch ev.Type {
	case "follow":
		reply("友だち追加ありがとうございます！🍽️\nこちらからご予約いただけます:\n" + liffURL)

	case "message":
		if ev.Message.Type != "text" {
			return
		}
		text := strings.TrimSpace(ev.Message.Text)

		if strings.HasPrefix(text, "/") {
			result := svcs.Command.Apply(ctx, storeID, ev.Source.UserID, text)
			reply(result.Message)
			return
		}

		switch {
		case strings.Contains(text, "予約"):
			reply("ご予約はこちらからどうぞ:\n" + liffURL)
		case strings.Contains(text, "確認"), strings.Contains(text, "変更"), strings.Contains(text, "キャンセル"):
			reply("ご予約内容の確認はこちらから:\n" + liffURL)
		case strings.Contains(text, "営業時間"):
			reply("営業時間のご案内:\nランチ 11:00-15:00\nディナー 17:00-21:00\n定休日: 不定休")
		default:
			reply("メッセージありがとうございます。\nご予約は「予約」、ご確認は「確認」とお送りください。")
		}
	}
}
