package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-telegram/bot/models"
	log "github.com/sirupsen/logrus"

	"kartobot/internal/generation"
	"kartobot/internal/genimage"
	"kartobot/internal/history"
	"kartobot/internal/quota"
)

// Downloader fetches the bytes of a user-uploaded photo.
type Downloader interface {
	DownloadPhoto(ctx context.Context, fileID string) ([]byte, error)
}

// NotifierFactory builds the notifier bound to one chat.
type NotifierFactory func(chatID int64) generation.Notifier

// WebhookHandler processes Telegram update envelopes. It always replies
// 200 {"ok":true} to POSTs regardless of internal outcome, so Telegram does
// not retry the webhook.
type WebhookHandler struct {
	Orch     *generation.Orchestrator
	Quota    *quota.Store
	Files    Downloader
	Notify   NotifierFactory
	Recorder *history.Recorder
	Backend  string
	Limit    int
}

func (h *WebhookHandler) limit() int {
	if h.Limit > 0 {
		return h.Limit
	}
	return quota.DefaultDailyLimit
}

func (h *WebhookHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	var upd models.Update
	if err := json.NewDecoder(r.Body).Decode(&upd); err == nil {
		h.process(r.Context(), upd.Message)
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
}

func (h *WebhookHandler) process(ctx context.Context, msg *models.Message) {
	if msg == nil || msg.From == nil || msg.From.IsBot {
		return
	}

	id := quota.Identity{
		TelegramID: msg.From.ID,
		Username:   msg.From.Username,
		FirstName:  msg.From.FirstName,
		LastName:   msg.From.LastName,
	}
	n := h.Notify(msg.Chat.ID)

	switch {
	case len(msg.Photo) > 0:
		h.generate(ctx, id, n, msg)
	case msg.Text != "":
		h.command(ctx, id, n, msg)
	}
}

func (h *WebhookHandler) command(ctx context.Context, id quota.Identity, n generation.Notifier, msg *models.Message) {
	count, _, err := h.Quota.CheckAndReset(ctx, id, time.Now())
	if err != nil {
		log.WithError(err).WithField("telegram_id", id.TelegramID).Error("quota check failed")
		return
	}

	limit := h.limit()
	switch msg.Text {
	case "/start":
		name := id.FirstName
		if name == "" {
			name = "друг"
		}
		n.Send(ctx, fmt.Sprintf(
			"Привет, %s! 👋\n\n"+
				"Я генерирую открытки с бабушкиным юмором.\n\n"+
				"📸 Отправь мне фото, и я создам открытку.\n"+
				"✨ Осталось генераций сегодня: %d/%d",
			name, limit-count, limit))
	case "/limit":
		n.Send(ctx, fmt.Sprintf(
			"📊 Твой лимит на сегодня:\nИспользовано: %d/%d\nОсталось: %d/%d",
			count, limit, limit-count, limit))
	default:
		n.Send(ctx, "Отправь мне фото, чтобы создать открытку! 📸")
	}
}

func (h *WebhookHandler) generate(ctx context.Context, id quota.Identity, n generation.Notifier, msg *models.Message) {
	// Telegram sends photo sizes smallest first; take the largest.
	photo := msg.Photo[len(msg.Photo)-1]

	data, err := h.Files.DownloadPhoto(ctx, photo.FileID)
	if err != nil {
		log.WithError(err).WithField("telegram_id", id.TelegramID).Warn("photo download failed")
		n.Send(ctx, "❌ Не удалось получить фото. Попробуйте еще раз!")
		return
	}

	in := genimage.Input{
		ImageBase64: genimage.Artifact{Data: data, MIME: "image/jpeg"}.DataURL(),
		Prompt:      strings.TrimSpace(msg.Caption),
	}

	start := time.Now()
	out := h.Orch.Run(ctx, generation.Job{Identity: id, Input: in, Notifier: n})
	if out.Err != nil {
		log.WithError(out.Err).WithFields(log.Fields{
			"telegram_id": id.TelegramID,
			"state":       out.State.String(),
		}).Warn("generation did not succeed")
	}

	h.Recorder.Record(ctx, id.TelegramID, h.Backend, out.State.String(), out.Err, time.Since(start))
}
