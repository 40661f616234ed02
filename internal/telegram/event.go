package telegram

import (
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/eldtechnologies/fileshare/internal/chat"
	"github.com/eldtechnologies/fileshare/internal/models"
)

// toEvent classifies an update. Updates without a user are dropped.
func toEvent(u tgbotapi.Update) (chat.Event, bool) {
	if cq := u.CallbackQuery; cq != nil {
		if cq.From == nil {
			return chat.Event{}, false
		}
		ev := chat.Event{
			Kind:       chat.EventCallback,
			From:       sender(cq.From),
			CallbackID: cq.ID,
			Data:       cq.Data,
		}
		if cq.Message != nil {
			ev.MessageID = cq.Message.MessageID
			if cq.Message.Chat != nil {
				ev.ChatID = cq.Message.Chat.ID
			}
		}
		if ev.ChatID == 0 {
			ev.ChatID = cq.From.ID
		}
		return ev, true
	}

	m := u.Message
	if m == nil || m.From == nil || m.Chat == nil {
		return chat.Event{}, false
	}
	ev := chat.Event{
		From:      sender(m.From),
		ChatID:    m.Chat.ID,
		MessageID: m.MessageID,
	}

	switch {
	case m.IsCommand():
		ev.Kind = chat.EventCommand
		ev.Command = strings.ToLower(m.Command())
		ev.Args = strings.Fields(m.CommandArguments())
	case mediaKind(m) != "":
		ev.Kind = chat.EventMedia
		ev.MediaKind = mediaKind(m)
	case m.Text != "":
		ev.Kind = chat.EventText
		ev.Text = m.Text
	default:
		ev.Kind = chat.EventOther
	}
	return ev, true
}

func mediaKind(m *tgbotapi.Message) models.FileKind {
	switch {
	case len(m.Photo) > 0:
		return models.KindPhoto
	case m.Video != nil:
		return models.KindVideo
	case m.Audio != nil:
		return models.KindAudio
	case m.Document != nil:
		return models.KindDocument
	}
	return ""
}

func sender(u *tgbotapi.User) chat.Sender {
	return chat.Sender{
		ID:        u.ID,
		Username:  u.UserName,
		FirstName: u.FirstName,
		LastName:  u.LastName,
	}
}
