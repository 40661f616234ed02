package handlers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/eldtechnologies/fileshare/internal/chat"
	"github.com/eldtechnologies/fileshare/internal/models"
)

func (h *Handler) cmdAddAdmin(ctx context.Context, ev chat.Event) {
	if !h.requireOwner(ctx, ev) {
		return
	}
	userID, err := parseIDArg(ev.Args)
	if err != nil {
		h.reply(ctx, ev.ChatID, "Usage: /addadmin <user_id>", nil)
		return
	}
	if userID == h.opts.OwnerID {
		h.reply(ctx, ev.ChatID, "ℹ️ That user is the owner.", nil)
		return
	}
	if err := h.store.UpsertAdmin(ctx, models.Admin{UserID: userID}); err != nil {
		h.logger.Error().Err(err).Int64("target_id", userID).Msg("add admin failed")
		h.reply(ctx, ev.ChatID, "⚠️ Could not add the admin.", nil)
		return
	}
	h.logger.Info().Int64("target_id", userID).Int64("user_id", ev.From.ID).Msg("admin added")
	h.reply(ctx, ev.ChatID, fmt.Sprintf("✅ User %d added as admin!", userID), nil)
}

func (h *Handler) cmdRemoveAdmin(ctx context.Context, ev chat.Event) {
	if !h.requireOwner(ctx, ev) {
		return
	}
	userID, err := parseIDArg(ev.Args)
	if err != nil {
		h.reply(ctx, ev.ChatID, "Usage: /removeadmin <user_id>", nil)
		return
	}
	if err := h.removeAdmin(ctx, userID); err != nil {
		switch {
		case errors.Is(err, models.ErrOwnerImmutable):
			h.reply(ctx, ev.ChatID, "❌ Cannot remove the owner!", nil)
		case errors.Is(err, models.ErrNotFound):
			h.reply(ctx, ev.ChatID, "❌ User not found in admin list.", nil)
		default:
			h.logger.Error().Err(err).Int64("target_id", userID).Msg("remove admin failed")
			h.reply(ctx, ev.ChatID, "⚠️ Could not remove the admin.", nil)
		}
		return
	}
	h.logger.Info().Int64("target_id", userID).Int64("user_id", ev.From.ID).Msg("admin removed")
	h.reply(ctx, ev.ChatID, fmt.Sprintf("✅ User %d removed from admins!", userID), nil)
}

// removeAdmin refuses to touch the owner entry.
func (h *Handler) removeAdmin(ctx context.Context, userID int64) error {
	if userID == h.opts.OwnerID {
		return models.ErrOwnerImmutable
	}
	admin, err := h.store.GetAdmin(ctx, userID)
	if err != nil {
		return err
	}
	if admin == nil {
		return models.ErrNotFound
	}
	if admin.IsOwner {
		// A stale owner flag only survives if EnsureOwner has not run yet.
		if err := h.store.UpsertAdmin(ctx, models.Admin{UserID: userID}); err != nil {
			return err
		}
	}
	return h.store.RemoveAdmin(ctx, userID)
}

func (h *Handler) cmdListAdmin(ctx context.Context, ev chat.Event) {
	if h.requireAdmin(ctx, ev) == nil {
		return
	}
	admins, err := h.store.ListAdmins(ctx)
	if err != nil {
		h.logger.Error().Err(err).Msg("list admins failed")
		h.reply(ctx, ev.ChatID, "⚠️ Could not load admins.", nil)
		return
	}
	if len(admins) == 0 {
		h.reply(ctx, ev.ChatID, "📋 No admins found.", nil)
		return
	}

	var b strings.Builder
	b.WriteString("🛡️ Admins:\n")
	for _, a := range admins {
		role := "Admin"
		if a.IsOwner {
			role = "Owner"
		}
		fmt.Fprintf(&b, "\n• %d (%s)", a.UserID, role)
	}
	h.reply(ctx, ev.ChatID, b.String(), nil)
}
