package handlers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/eldtechnologies/fileshare/internal/chat"
	"github.com/eldtechnologies/fileshare/internal/models"
)

// FormatDashboard renders the aggregate counts shown by /dashboard and the
// stats CLI command.
func FormatDashboard(s *models.Stats) string {
	return fmt.Sprintf(
		"📊 Bot dashboard\n\n"+
			"👥 Total users: %d\n"+
			"📦 Total batches: %d\n"+
			"📁 Total files: %d\n"+
			"📢 Force subscribe channels: %d\n"+
			"🛡️ Total admins: %d",
		s.Users, s.Batches, s.Files, s.Groups, s.Admins)
}

func (h *Handler) cmdDashboard(ctx context.Context, ev chat.Event) {
	if h.requireAdmin(ctx, ev) == nil {
		return
	}
	stats, err := h.store.Stats(ctx)
	if err != nil {
		h.logger.Error().Err(err).Msg("stats failed")
		h.reply(ctx, ev.ChatID, "⚠️ Could not load statistics.", nil)
		return
	}
	h.reply(ctx, ev.ChatID, FormatDashboard(stats), nil)
}

const adminHelp = `🤖 Admin commands:

Force subscribe management:
/addfsub <channel_id> - Add force subscribe channel
/removefsub <channel_id> - Remove force subscribe channel
/listfsub - List all force subscribe channels

Admin management:
/addadmin <user_id> - Add new admin (owner only)
/removeadmin <user_id> - Remove admin (owner only)
/listadmin - Show all admins

Batch management:
/gen - Generate new file batch
/done - Finish adding files
/list - View all batches

Bot stats and management:
/dashboard - View bot statistics
/broadcast - Broadcast message to all users
/cancel - Cancel the current operation
/cmd - Show this command list`

func (h *Handler) cmdHelp(ctx context.Context, ev chat.Event) {
	if h.requireAdmin(ctx, ev) == nil {
		return
	}
	h.reply(ctx, ev.ChatID, adminHelp, nil)
}

// Stats serves the dashboard counts as JSON on the ops port.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.Stats(r.Context())
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to load stats")
		return
	}
	h.JSON(w, http.StatusOK, stats)
}
