package handlers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/eldtechnologies/fileshare/internal/callback"
	"github.com/eldtechnologies/fileshare/internal/chat"
	"github.com/eldtechnologies/fileshare/internal/conversation"
	"github.com/eldtechnologies/fileshare/internal/models"
)

var titleTooLongText = fmt.Sprintf("❌ The title is too long (max %d characters). Send a shorter title:", maxTitleLen)

var doneKeyboard = chat.Keyboard{chat.Row(chat.Button{Text: "✅ Done", Data: callback.Done()})}

// cmdGen starts an authoring session, replacing any residual conversation.
func (h *Handler) cmdGen(ctx context.Context, ev chat.Event) {
	if h.requireAdmin(ctx, ev) == nil {
		return
	}
	h.sessions.Set(ev.From.ID, conversation.NewAuthoring(ev.From.ID, h.chat, h.store))
	h.reply(ctx, ev.ChatID,
		"📤 Send me the files you want to add to this batch.\n\nWhen you're done, tap Done or send /done.",
		doneKeyboard)
}

func (h *Handler) continueAuthoring(ctx context.Context, ev chat.Event, s *conversation.Authoring, finalize bool) {
	if ev.Kind == chat.EventText && s.Phase() == conversation.AwaitingTitle {
		title, err := cleanTitle(ev.Text)
		if err != nil {
			h.reply(ctx, ev.ChatID, titleTooLongText, nil)
			return
		}
		ev.Text = title
	}

	step, err := s.Handle(ctx, ev, finalize)
	if err != nil {
		h.logger.Error().Err(err).Int64("user_id", ev.From.ID).Msg("batch commit failed")
		h.reply(ctx, ev.ChatID, "❌ Could not save the batch. Send the title again to retry, or /cancel.", nil)
		return
	}

	switch step.Kind {
	case conversation.StepFileAdded:
		// Silent; the Done button stays on the prompt.
	case conversation.StepFileFailed:
		h.logger.Warn().Err(step.Err).Int64("user_id", ev.From.ID).Msg("archive forward failed")
		h.reply(ctx, ev.ChatID, "⚠️ That file could not be stored. Send it again.", nil)
	case conversation.StepIgnored:
		if s.Phase() == conversation.AwaitingTitle {
			h.reply(ctx, ev.ChatID, "📝 Send the title for this batch as text.", nil)
		}
	case conversation.StepAborted:
		h.sessions.Clear(ev.From.ID)
		h.reply(ctx, ev.ChatID, "❌ No files received. Operation cancelled.", nil)
	case conversation.StepAwaitTitle:
		h.reply(ctx, ev.ChatID, fmt.Sprintf(
			"📊 Files received:\n\n%s\n\nTotal files: %d\n\n📝 Now send me the title for this batch:",
			formatCounts(step.Counts), len(s.Files())), nil)
	case conversation.StepTitleRejected:
		h.reply(ctx, ev.ChatID, "The title cannot be empty. Send a title:", nil)
	case conversation.StepCommitted:
		h.sessions.Clear(ev.From.ID)
		b := step.Batch
		h.logger.Info().
			Str("batch_id", b.ID).
			Int64("user_id", ev.From.ID).
			Int("files", len(b.Files)).
			Msg("batch created")
		h.reply(ctx, ev.ChatID, fmt.Sprintf(
			"✅ Batch created successfully!\n\n📝 Title: %s\n📁 Files: %d\n🆔 ID: %s\n\n🔗 Share link:\n%s",
			b.Title, len(b.Files), b.ID, ShareLink(h.opts.BotUsername, b.ID)), nil)
	}
}

// formatCounts lists non-zero kinds in display order.
func formatCounts(counts models.KindCounts) string {
	var lines []string
	for _, k := range models.FileKinds {
		if n := counts[k]; n > 0 {
			lines = append(lines, fmt.Sprintf("• %s: %d", kindLabel(k), n))
		}
	}
	return strings.Join(lines, "\n")
}

func kindLabel(k models.FileKind) string {
	s := string(k)
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func (h *Handler) batchListKeyboard(batches []models.Batch, data func(string) string) chat.Keyboard {
	kb := make(chat.Keyboard, 0, len(batches))
	for _, b := range batches {
		kb = append(kb, chat.Row(chat.Button{Text: "📦 " + b.Title, Data: data(b.ID)}))
	}
	return kb
}

func (h *Handler) cmdList(ctx context.Context, ev chat.Event) {
	if h.requireAdmin(ctx, ev) == nil {
		return
	}
	batches, err := h.store.ListRecentBatches(ctx, h.opts.ListLimit)
	if err != nil {
		h.logger.Error().Err(err).Msg("list batches failed")
		h.reply(ctx, ev.ChatID, "⚠️ Could not load batches.", nil)
		return
	}
	if len(batches) == 0 {
		h.reply(ctx, ev.ChatID, "📋 No batches found.", nil)
		return
	}
	h.reply(ctx, ev.ChatID, "📋 All batches:", h.batchListKeyboard(batches, callback.View))
}

// onListBatches re-renders the admin list in place.
func (h *Handler) onListBatches(ctx context.Context, ev chat.Event) {
	batches, err := h.store.ListRecentBatches(ctx, h.opts.ListLimit)
	if err != nil {
		h.logger.Error().Err(err).Msg("list batches failed")
		h.answer(ctx, ev.CallbackID, "Could not load batches.", true)
		return
	}
	h.answer(ctx, ev.CallbackID, "", false)
	if len(batches) == 0 {
		h.edit(ctx, ev.ChatID, ev.MessageID, "📋 No batches found.", nil)
		return
	}
	h.edit(ctx, ev.ChatID, ev.MessageID, "📋 All batches:", h.batchListKeyboard(batches, callback.View))
}

func (h *Handler) onViewBatch(ctx context.Context, ev chat.Event, batchID string) {
	b, err := h.store.GetBatch(ctx, batchID)
	if err != nil {
		h.logger.Error().Err(err).Str("batch_id", batchID).Msg("get batch failed")
		h.answer(ctx, ev.CallbackID, "Could not load the batch.", true)
		return
	}
	h.answer(ctx, ev.CallbackID, "", false)
	if b == nil {
		h.edit(ctx, ev.ChatID, ev.MessageID, "❌ Batch not found.", backKeyboard())
		return
	}

	counts := models.CountKinds(b.Files)
	text := fmt.Sprintf(
		"📦 Batch details:\n\n📝 Title: %s\n📁 Files: %d\n%s\n👁️ Views: %d\n📅 Created: %s\n\n🔗 Link: %s",
		b.Title, len(b.Files), formatCounts(counts), b.Views,
		b.CreatedAt.Format("2006-01-02 15:04"), ShareLink(h.opts.BotUsername, b.ID))
	kb := chat.Keyboard{
		chat.Row(
			chat.Button{Text: "✏️ Edit Title", Data: callback.Edit(b.ID)},
			chat.Button{Text: "🗑️ Delete", Data: callback.Delete(b.ID)},
		),
		chat.Row(chat.Button{Text: "🔙 Back", Data: callback.List()}),
	}
	h.edit(ctx, ev.ChatID, ev.MessageID, text, kb)
}

func backKeyboard() chat.Keyboard {
	return chat.Keyboard{chat.Row(chat.Button{Text: "🔙 Back", Data: callback.List()})}
}

func (h *Handler) onEditBatch(ctx context.Context, ev chat.Event, batchID string) {
	h.sessions.Set(ev.From.ID, conversation.EditingTitle{BatchID: batchID})
	h.answer(ctx, ev.CallbackID, "", false)
	h.edit(ctx, ev.ChatID, ev.MessageID, "✏️ Send me the new title for this batch, or /cancel.", nil)
}

func (h *Handler) receiveTitle(ctx context.Context, ev chat.Event, s conversation.EditingTitle) {
	if ev.Kind != chat.EventText {
		h.reply(ctx, ev.ChatID, "✏️ Send the new title as text, or /cancel.", nil)
		return
	}
	if !h.isAdmin(ctx, ev.From.ID) {
		h.sessions.Clear(ev.From.ID)
		h.reply(ctx, ev.ChatID, "⛔ You are not authorized.", nil)
		return
	}
	title, err := cleanTitle(ev.Text)
	if err != nil {
		h.reply(ctx, ev.ChatID, titleTooLongText, nil)
		return
	}
	if title == "" {
		h.reply(ctx, ev.ChatID, "The title cannot be empty. Send a title:", nil)
		return
	}

	err = h.store.UpdateBatchTitle(ctx, s.BatchID, title)
	switch {
	case errors.Is(err, models.ErrNotFound):
		h.sessions.Clear(ev.From.ID)
		h.reply(ctx, ev.ChatID, "❌ Batch not found.", nil)
	case err != nil:
		h.logger.Error().Err(err).Str("batch_id", s.BatchID).Msg("update title failed")
		h.reply(ctx, ev.ChatID, "⚠️ Could not update the title. Send it again, or /cancel.", nil)
	default:
		h.sessions.Clear(ev.From.ID)
		h.logger.Info().Str("batch_id", s.BatchID).Int64("user_id", ev.From.ID).Msg("batch title updated")
		h.reply(ctx, ev.ChatID, fmt.Sprintf("✅ Batch title updated to: %s", title), backKeyboard())
	}
}

func (h *Handler) onDeleteBatch(ctx context.Context, ev chat.Event, batchID string) {
	err := h.store.DeleteBatch(ctx, batchID)
	switch {
	case errors.Is(err, models.ErrNotFound):
		h.answer(ctx, ev.CallbackID, "", false)
		h.edit(ctx, ev.ChatID, ev.MessageID, "❌ Batch not found.", backKeyboard())
	case err != nil:
		h.logger.Error().Err(err).Str("batch_id", batchID).Msg("delete batch failed")
		h.answer(ctx, ev.CallbackID, "Could not delete the batch.", true)
	default:
		h.logger.Info().Str("batch_id", batchID).Int64("user_id", ev.From.ID).Msg("batch deleted")
		h.answer(ctx, ev.CallbackID, "Deleted", false)
		h.edit(ctx, ev.ChatID, ev.MessageID, "✅ Batch deleted successfully!", backKeyboard())
	}
}

// onFinishAuthoring handles the Done button.
func (h *Handler) onFinishAuthoring(ctx context.Context, ev chat.Event) {
	s, ok := h.sessions.Get(ev.From.ID).(*conversation.Authoring)
	if !ok {
		h.answer(ctx, ev.CallbackID, "No upload in progress.", true)
		return
	}
	h.answer(ctx, ev.CallbackID, "", false)
	h.continueAuthoring(ctx, ev, s, true)
}
