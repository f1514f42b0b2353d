package handler

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/juju/errors"
	log "github.com/sirupsen/logrus"

	"github.com/flowdeck/flowdeck/types"
	"github.com/flowdeck/flowdeck/utils"
)

const telegramAPIBase = "https://api.telegram.org"

// messageHandler runs the outbound messaging node against the Telegram
// bot API.
//
// Config:
// - chatId: string, required
// - botToken: string, falls back to the engine-wide token
// - message: string, templated; falls back to the upstream AI text when
//   empty, so "AI then notify" chains need no explicit wiring
// - apiBase: string, test seam
type messageHandler struct {
	client   *http.Client
	botToken string
}

func (h *messageHandler) Execute(ctx types.Context, node *types.ResolvedNode, data types.Data) (types.Data, error) {
	cfg := node.Data.Config

	chatID, _ := cfg.GetString("chatId")
	if chatID == "" {
		return nil, types.NewMissingFieldError(node.ID, "chatId")
	}

	token, _ := cfg.GetString("botToken")
	if token == "" {
		token = h.botToken
	}
	if token == "" {
		return nil, types.NewMissingFieldError(node.ID, "botToken")
	}

	template, _ := cfg.GetString("message")
	message := Render(template, data)
	if message == "" {
		message = data.LookupString("ai_response.text")
	}
	if message == "" {
		return nil, types.NewMissingFieldError(node.ID, "message")
	}

	apiBase, _ := cfg.GetString("apiBase")
	if apiBase == "" {
		apiBase = telegramAPIBase
	}

	payload, err := utils.Serialize(map[string]any{
		"chat_id": chatID,
		"text":    message,
	})
	if err != nil {
		return nil, errors.Trace(err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", apiBase, token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, errors.Trace(err)
	}
	req.Header.Set("Content-Type", "application/json")

	log.Debugf("%s message node %s: sending %d chars to chat %s", ctx.RunID(), node.ID, len(message), chatID)
	resp, err := h.client.Do(req)
	if err != nil {
		return nil, types.NewRetryError(errors.Annotatef(err, "sending telegram message"), 0)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, types.NewRetryError(errors.Trace(err), 0)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, types.NewUpstreamError(resp.StatusCode, string(raw))
	}

	var decoded struct {
		Result struct {
			MessageID int64 `json:"message_id"`
		} `json:"result"`
	}
	// a non-JSON OK body is still a successful send
	_ = utils.Unserialize(raw, &decoded)

	out := data.Clone()
	out.Set("telegram", types.Data{
		"chatId":    chatID,
		"messageId": decoded.Result.MessageID,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
	return out, nil
}
