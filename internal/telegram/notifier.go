package telegram

import (
	"bytes"
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	log "github.com/sirupsen/logrus"

	"kartobot/internal/generation"
)

// ChatNotifier owns the status message for one chat. Delivery failures are
// logged and swallowed: messaging is not part of the success contract.
type ChatNotifier struct {
	Bot    *bot.Bot
	ChatID int64
}

func NewChatNotifier(b *bot.Bot, chatID int64) *ChatNotifier {
	return &ChatNotifier{Bot: b, ChatID: chatID}
}

func (n *ChatNotifier) Send(ctx context.Context, text string) {
	_, err := n.Bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: n.ChatID,
		Text:   text,
	})
	if err != nil {
		log.WithError(err).WithField("chat_id", n.ChatID).Warn("send message failed")
	}
}

func (n *ChatNotifier) Start(ctx context.Context, text string) *generation.MessageRef {
	msg, err := n.Bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: n.ChatID,
		Text:   text,
	})
	if err != nil {
		log.WithError(err).WithField("chat_id", n.ChatID).Warn("start progress message failed")
		return nil
	}
	return &generation.MessageRef{ChatID: n.ChatID, MessageID: msg.ID}
}

func (n *ChatNotifier) Update(ctx context.Context, ref *generation.MessageRef, text string) {
	if ref == nil {
		return
	}
	_, err := n.Bot.EditMessageText(ctx, &bot.EditMessageTextParams{
		ChatID:    ref.ChatID,
		MessageID: ref.MessageID,
		Text:      text,
	})
	if err != nil {
		log.WithError(err).WithField("chat_id", ref.ChatID).Warn("edit progress message failed")
	}
}

func (n *ChatNotifier) Finish(ctx context.Context, ref *generation.MessageRef, fin generation.Finish) {
	if !fin.OK {
		if ref == nil {
			n.Send(ctx, fin.Text)
			return
		}
		n.Update(ctx, ref, fin.Text)
		return
	}

	if ref != nil {
		_, err := n.Bot.DeleteMessage(ctx, &bot.DeleteMessageParams{
			ChatID:    ref.ChatID,
			MessageID: ref.MessageID,
		})
		if err != nil {
			log.WithError(err).WithField("chat_id", ref.ChatID).Warn("delete progress message failed")
		}
	}

	var photo models.InputFile
	if fin.Artifact.URL != "" {
		photo = &models.InputFileString{Data: fin.Artifact.URL}
	} else {
		photo = &models.InputFileUpload{
			Filename: "card.jpg",
			Data:     bytes.NewReader(fin.Artifact.Data),
		}
	}
	_, err := n.Bot.SendPhoto(ctx, &bot.SendPhotoParams{
		ChatID:  n.ChatID,
		Photo:   photo,
		Caption: fin.Caption,
	})
	if err != nil {
		log.WithError(err).WithField("chat_id", n.ChatID).Warn("send photo failed")
	}
}
