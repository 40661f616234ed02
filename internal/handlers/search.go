package handlers

import (
	"context"
	"fmt"

	"github.com/eldtechnologies/fileshare/internal/callback"
	"github.com/eldtechnologies/fileshare/internal/chat"
	"github.com/eldtechnologies/fileshare/internal/conversation"
)

// browse shows the most recent batches to users who pass the gate.
func (h *Handler) browse(ctx context.Context, ev chat.Event) {
	res, err := h.gate.Check(ctx, ev.From.ID)
	if err != nil {
		h.logger.Error().Err(err).Int64("user_id", ev.From.ID).Msg("membership check failed")
		h.reply(ctx, ev.ChatID, "⚠️ Something went wrong. Try again later.", nil)
		return
	}
	if !res.Admitted {
		h.reply(ctx, ev.ChatID, "⚠️ You must join the following channels to browse files:",
			h.joinKeyboard(ctx, res.Missing, callback.Browse()))
		return
	}

	text, kb, err := h.browseList(ctx)
	if err != nil {
		h.reply(ctx, ev.ChatID, "⚠️ Could not load files.", nil)
		return
	}
	h.reply(ctx, ev.ChatID, text, kb)
}

func (h *Handler) browseList(ctx context.Context) (string, chat.Keyboard, error) {
	batches, err := h.store.ListRecentBatches(ctx, h.opts.ListLimit)
	if err != nil {
		h.logger.Error().Err(err).Msg("list batches failed")
		return "", nil, err
	}
	if len(batches) == 0 {
		return "📋 No files available yet.", nil, nil
	}
	return "📂 Browse files:", h.batchListKeyboard(batches, callback.Show), nil
}

// onCheckBrowse is the "I joined" button of a browse prompt.
func (h *Handler) onCheckBrowse(ctx context.Context, ev chat.Event) {
	res, err := h.gate.Check(ctx, ev.From.ID)
	if err != nil {
		h.logger.Error().Err(err).Int64("user_id", ev.From.ID).Msg("membership check failed")
		h.answer(ctx, ev.CallbackID, "Something went wrong. Try again later.", true)
		return
	}
	if !res.Admitted {
		h.answer(ctx, ev.CallbackID, "❌ Please join all channels first!", true)
		return
	}

	text, kb, err := h.browseList(ctx)
	if err != nil {
		h.answer(ctx, ev.CallbackID, "Could not load files.", true)
		return
	}
	h.answer(ctx, ev.CallbackID, "", false)
	h.edit(ctx, ev.ChatID, ev.MessageID, text, kb)
}

// onShowBatch answers a browse or search pick with a card linking to the
// batch. Delivery itself goes through the deep link.
func (h *Handler) onShowBatch(ctx context.Context, ev chat.Event, batchID string) {
	b, err := h.store.GetBatch(ctx, batchID)
	if err != nil {
		h.logger.Error().Err(err).Str("batch_id", batchID).Msg("get batch failed")
		h.answer(ctx, ev.CallbackID, "Could not load the batch.", true)
		return
	}
	h.answer(ctx, ev.CallbackID, "", false)
	if b == nil {
		h.reply(ctx, ev.ChatID, "❌ Batch not found.", nil)
		return
	}
	kb := chat.Keyboard{chat.Row(chat.Button{Text: "📥 Get Files", URL: ShareLink(h.opts.BotUsername, b.ID)})}
	h.reply(ctx, ev.ChatID, fmt.Sprintf(
		"📦 %s\n\n📁 Files: %d\n\nTap the button below to get the files:", b.Title, len(b.Files)), kb)
}

func (h *Handler) startSearch(ctx context.Context, ev chat.Event) {
	h.sessions.Set(ev.From.ID, conversation.Searching{})
	h.reply(ctx, ev.ChatID, "🔍 Send me a search query:", nil)
}

func (h *Handler) runSearch(ctx context.Context, ev chat.Event) {
	query, err := cleanTitle(ev.Text)
	if err != nil || query == "" {
		h.reply(ctx, ev.ChatID, "❌ No results found.", nil)
		return
	}
	results, err := h.store.SearchBatches(ctx, query, h.opts.ListLimit)
	if err != nil {
		h.logger.Error().Err(err).Msg("search batches failed")
		h.reply(ctx, ev.ChatID, "⚠️ Search failed. Try again later.", nil)
		return
	}
	if len(results) == 0 {
		h.reply(ctx, ev.ChatID, "❌ No results found.", nil)
		return
	}
	h.reply(ctx, ev.ChatID, fmt.Sprintf("🔍 Search results for '%s':", query),
		h.batchListKeyboard(results, callback.Show))
}

func (h *Handler) info(ctx context.Context, ev chat.Event) {
	text := "ℹ️ Bot information:\n\n" +
		"This bot shares collections of files through links.\n" +
		"Use 📂 Browse to see the latest batches or 🔍 Search to find one by title."
	if err := h.chat.SendMenu(ctx, ev.ChatID, text, mainMenu); err != nil {
		h.logger.Warn().Err(err).Int64("user_id", ev.From.ID).Msg("send menu failed")
	}
}
