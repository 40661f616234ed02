package handlers

import (
	"context"
	"fmt"

	"github.com/eldtechnologies/fileshare/internal/chat"
	"github.com/eldtechnologies/fileshare/internal/conversation"
)

func (h *Handler) cmdBroadcast(ctx context.Context, ev chat.Event) {
	if h.requireAdmin(ctx, ev) == nil {
		return
	}
	h.sessions.Set(ev.From.ID, conversation.NewBroadcast(ev.From.ID, h.store, h.chat, h.opts.RelayTimeout, h.logger))
	h.reply(ctx, ev.ChatID,
		"📢 Broadcast message\n\n"+
			"Send me the message you want to broadcast to all users.\n"+
			"You can send text, photos, videos, or any media.\n\n"+
			"Use /cancel to cancel the broadcast.", nil)
}

// runBroadcast copies the operator's message to every user. The session has
// already been removed from the table.
func (h *Handler) runBroadcast(ctx context.Context, ev chat.Event, b *conversation.Broadcast) {
	h.reply(ctx, ev.ChatID, "📤 Broadcasting message...", nil)

	tally, err := b.Fire(ctx, ev.ChatID, ev.MessageID)
	if err != nil {
		h.logger.Error().Err(err).Int64("user_id", ev.From.ID).Msg("broadcast failed")
		h.reply(ctx, ev.ChatID, "⚠️ Broadcast failed. Try again later.", nil)
		return
	}
	h.reply(ctx, ev.ChatID, fmt.Sprintf(
		"✅ Broadcast completed!\n\n✅ Success: %d\n🚫 Blocked: %d\n❌ Failed: %d\n📊 Total: %d",
		tally.Success, tally.Blocked, tally.Failed, tally.Total), nil)
}
