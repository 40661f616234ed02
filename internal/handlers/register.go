package handlers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/eldtechnologies/fileshare/internal/callback"
	"github.com/eldtechnologies/fileshare/internal/chat"
	"github.com/eldtechnologies/fileshare/internal/delivery"
	"github.com/eldtechnologies/fileshare/internal/ids"
	"github.com/eldtechnologies/fileshare/internal/models"
)

// batchLinkPrefix marks a deep-link argument that names a batch.
const batchLinkPrefix = "batch_"

// cmdStart registers the user and either delivers a linked batch or shows
// the main menu.
func (h *Handler) cmdStart(ctx context.Context, ev chat.Event) {
	h.register(ctx, ev.From)

	if len(ev.Args) > 0 && strings.HasPrefix(ev.Args[0], batchLinkPrefix) {
		h.deliver(ctx, ev, strings.TrimPrefix(ev.Args[0], batchLinkPrefix))
		return
	}

	name := ev.From.FirstName
	if name == "" {
		name = "there"
	}
	if err := h.chat.SendMenu(ctx, ev.ChatID, fmt.Sprintf(
		"👋 Welcome %s!\n\nUse the buttons below to browse or search for files.", name), mainMenu); err != nil {
		h.logger.Warn().Err(err).Int64("user_id", ev.From.ID).Msg("send menu failed")
	}
}

// register upserts the user and notifies admins the first time they appear.
func (h *Handler) register(ctx context.Context, from chat.Sender) {
	created, err := h.store.UpsertUser(ctx, models.User{
		UserID:     from.ID,
		Username:   from.Username,
		FirstName:  from.FirstName,
		LastName:   from.LastName,
		LastActive: time.Now().UTC(),
	})
	if err != nil {
		h.logger.Error().Err(err).Int64("user_id", from.ID).Msg("register user failed")
		return
	}
	if created {
		h.logger.Info().Int64("user_id", from.ID).Msg("new user registered")
		h.notifyAdmins(ctx, from)
	}
}

func (h *Handler) notifyAdmins(ctx context.Context, from chat.Sender) {
	stats, err := h.store.Stats(ctx)
	if err != nil {
		h.logger.Error().Err(err).Msg("stats for new user notification failed")
		return
	}
	admins, err := h.store.ListAdmins(ctx)
	if err != nil {
		h.logger.Error().Err(err).Msg("list admins failed")
		return
	}

	username := "N/A"
	if from.Username != "" {
		username = "@" + from.Username
	}
	text := fmt.Sprintf(
		"👤 New user joined!\n\n📊 User count: %d\n👤 Name: %s\n🆔 Username: %s\n💬 Chat ID: %d",
		stats.Users, strings.TrimSpace(from.FirstName+" "+from.LastName), username, from.ID)

	for _, a := range admins {
		if err := h.chat.SendText(ctx, a.UserID, text, nil); err != nil {
			h.logger.Warn().Err(err).Int64("admin_id", a.UserID).Msg("new user notification failed")
		}
	}
}

// deliver runs the delivery pipeline for a request made by message.
func (h *Handler) deliver(ctx context.Context, ev chat.Event, batchID string) {
	report, err := h.delivery.Deliver(ctx, batchID, ev.From.ID)
	if err != nil {
		h.logger.Error().Err(err).Str("batch_id", batchID).Int64("user_id", ev.From.ID).Msg("delivery failed")
		h.reply(ctx, ev.ChatID, "⚠️ Something went wrong. Try again later.", nil)
		return
	}

	switch report.Outcome {
	case delivery.Blocked:
		h.reply(ctx, ev.ChatID, "⚠️ You must join the following channels to access files:",
			h.joinKeyboard(ctx, report.Missing, retryData(batchID)))
	case delivery.NotFound:
		h.reply(ctx, ev.ChatID, "❌ Batch not found. The link is invalid or the batch was deleted.", nil)
	case delivery.Delivered:
		h.reply(ctx, ev.ChatID, deliveredText(report), nil)
	}
}

// retryData is the payload of the "I joined" button. An unparsable batch ID
// still gets a retry, through browsing.
func retryData(batchID string) string {
	id, err := ids.ParseBatchID(batchID)
	if err != nil {
		return callback.Browse()
	}
	return callback.Fsub(id)
}

func deliveredText(r *delivery.Report) string {
	if failed := r.Failed(); failed > 0 {
		return fmt.Sprintf("📦 %s\n\n⚠️ %d of %d files could not be sent.", r.Batch.Title, failed, r.Attempted())
	}
	return fmt.Sprintf("📦 %s\n\n✅ %d files sent.", r.Batch.Title, r.Attempted())
}

// onCheckFsub is the "I joined" button of a delivery prompt.
func (h *Handler) onCheckFsub(ctx context.Context, ev chat.Event, batchID string) {
	report, err := h.delivery.Deliver(ctx, batchID, ev.From.ID)
	if err != nil {
		h.logger.Error().Err(err).Str("batch_id", batchID).Int64("user_id", ev.From.ID).Msg("delivery failed")
		h.answer(ctx, ev.CallbackID, "Something went wrong. Try again later.", true)
		return
	}

	switch report.Outcome {
	case delivery.Blocked:
		h.answer(ctx, ev.CallbackID, "❌ Please join all channels first!", true)
	case delivery.NotFound:
		h.answer(ctx, ev.CallbackID, "", false)
		h.edit(ctx, ev.ChatID, ev.MessageID, "❌ Batch not found.", nil)
	case delivery.Delivered:
		h.answer(ctx, ev.CallbackID, "", false)
		h.edit(ctx, ev.ChatID, ev.MessageID, deliveredText(report), nil)
	}
}
