package bot

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
)

// SecretTokenHeader is the header Telegram sets to the webhook's secret token
const SecretTokenHeader = "X-Telegram-Bot-Api-Secret-Token" //nolint:gosec // header name

const maxUpdateSize = 1 << 20

// update is the subset of a Telegram update the bot handles
type update struct {
	Message  *message `json:"message"`
	UpdateID int64    `json:"update_id"`
}

type message struct {
	Text      string `json:"text"`
	Chat      chat   `json:"chat"`
	MessageID int64  `json:"message_id"`
}

type chat struct {
	ID int64 `json:"id"`
}

// sendMessage is a Bot API call, returned as the webhook response body
type sendMessage struct {
	Method           string `json:"method"`
	Text             string `json:"text"`
	ChatID           int64  `json:"chat_id"`
	ReplyToMessageID int64  `json:"reply_to_message_id,omitempty"`
}

// Webhook serves Telegram webhook updates. Replies are sent back
// in the response body, so no outbound Bot API calls are made
type Webhook struct {
	bot    *Bot
	secret string
}

// NewWebhook creates a new webhook handler.
// If the secret is set, updates without the matching secret token are rejected
func NewWebhook(bot *Bot, secret string) *Webhook {
	return &Webhook{
		bot:    bot,
		secret: secret,
	}
}

func (h *Webhook) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.secret != "" {
		token := r.Header.Get(SecretTokenHeader)

		if subtle.ConstantTimeCompare([]byte(token), []byte(h.secret)) != 1 {
			w.WriteHeader(http.StatusUnauthorized)

			return
		}
	}

	var u update

	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxUpdateSize)).Decode(&u); err != nil {
		w.WriteHeader(http.StatusBadRequest)

		return
	}

	// Edits, joins, callbacks... are acknowledged and ignored
	if u.Message == nil || u.Message.Text == "" {
		w.WriteHeader(http.StatusOK)

		return
	}

	reply := &sendMessage{
		Method:           "sendMessage",
		ChatID:           u.Message.Chat.ID,
		Text:             h.bot.Reply(r.Context(), u.Message.Text),
		ReplyToMessageID: u.Message.MessageID,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	_ = json.NewEncoder(w).Encode(reply) //nolint:errcheck // Fine to ignore
}
