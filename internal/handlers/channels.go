package handlers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/eldtechnologies/fileshare/internal/chat"
	"github.com/eldtechnologies/fileshare/internal/models"
	"github.com/eldtechnologies/fileshare/internal/store"
)

func (h *Handler) cmdAddFsub(ctx context.Context, ev chat.Event) {
	if h.requireAdmin(ctx, ev) == nil {
		return
	}
	groupID, err := parseIDArg(ev.Args)
	if err != nil {
		h.reply(ctx, ev.ChatID, "Usage: /addfsub <channel_id>\nExample: /addfsub -1001234567890", nil)
		return
	}
	if err := h.store.AddRequiredGroup(ctx, groupID); err != nil {
		h.logger.Error().Err(err).Int64("group_id", groupID).Msg("add required group failed")
		h.reply(ctx, ev.ChatID, "⚠️ Could not add the channel.", nil)
		return
	}
	h.logger.Info().Int64("group_id", groupID).Int64("user_id", ev.From.ID).Msg("required group added")
	h.reply(ctx, ev.ChatID, fmt.Sprintf("✅ Force subscribe channel %d added successfully!", groupID), nil)
}

func (h *Handler) cmdRemoveFsub(ctx context.Context, ev chat.Event) {
	if h.requireAdmin(ctx, ev) == nil {
		return
	}
	groupID, err := parseIDArg(ev.Args)
	if err != nil {
		h.reply(ctx, ev.ChatID, "Usage: /removefsub <channel_id>", nil)
		return
	}
	err = h.store.RemoveRequiredGroup(ctx, groupID)
	switch {
	case errors.Is(err, models.ErrNotFound):
		h.reply(ctx, ev.ChatID, "❌ Channel not found in the list.", nil)
		return
	case err != nil:
		h.logger.Error().Err(err).Int64("group_id", groupID).Msg("remove required group failed")
		h.reply(ctx, ev.ChatID, "⚠️ Could not remove the channel.", nil)
		return
	}
	if h.redis != nil {
		if err := h.redis.ForgetGroupInfo(ctx, groupID); err != nil {
			h.logger.Warn().Err(err).Int64("group_id", groupID).Msg("group info cache eviction failed")
		}
	}
	h.logger.Info().Int64("group_id", groupID).Int64("user_id", ev.From.ID).Msg("required group removed")
	h.reply(ctx, ev.ChatID, fmt.Sprintf("✅ Force subscribe channel %d removed successfully!", groupID), nil)
}

func (h *Handler) cmdListFsub(ctx context.Context, ev chat.Event) {
	if h.requireAdmin(ctx, ev) == nil {
		return
	}
	groups, err := h.store.ListRequiredGroups(ctx)
	if err != nil {
		h.logger.Error().Err(err).Msg("list required groups failed")
		h.reply(ctx, ev.ChatID, "⚠️ Could not load channels.", nil)
		return
	}
	if len(groups) == 0 {
		h.reply(ctx, ev.ChatID, "📋 No force subscribe channels configured.", nil)
		return
	}

	var b strings.Builder
	b.WriteString("📋 Force subscribe channels:\n")
	for _, g := range groups {
		info := h.groupInfo(ctx, g.GroupID)
		fmt.Fprintf(&b, "\n• %s (%d)", info.Title, g.GroupID)
	}
	h.reply(ctx, ev.ChatID, b.String(), nil)
}

// groupInfo resolves presentation metadata, through the cache when one is
// configured. It never fails: unknown groups get a placeholder title.
func (h *Handler) groupInfo(ctx context.Context, groupID int64) *models.GroupInfo {
	if h.redis != nil {
		info, err := h.redis.GetGroupInfo(ctx, groupID)
		if err != nil {
			h.logger.Warn().Err(err).Int64("group_id", groupID).Msg("group info cache read failed")
		} else if info != nil {
			return info
		}
	}

	info, err := h.chat.GroupInfo(ctx, groupID)
	if err != nil {
		h.logger.Warn().Err(err).Int64("group_id", groupID).Msg("group info lookup failed")
		return &models.GroupInfo{ID: groupID, Title: fmt.Sprintf("Channel %d", groupID)}
	}
	if info.Title == "" {
		info.Title = fmt.Sprintf("Channel %d", groupID)
	}

	if h.redis != nil {
		if err := h.redis.SetGroupInfo(ctx, info, store.GroupInfoTTL); err != nil {
			h.logger.Warn().Err(err).Int64("group_id", groupID).Msg("group info cache write failed")
		}
	}
	return info
}

// joinKeyboard lists a join button per missing group followed by a retry
// button carrying retry.
func (h *Handler) joinKeyboard(ctx context.Context, missing []int64, retry string) chat.Keyboard {
	kb := make(chat.Keyboard, 0, len(missing)+1)
	for _, id := range missing {
		info := h.groupInfo(ctx, id)
		if info.InviteLink == "" {
			continue
		}
		kb = append(kb, chat.Row(chat.Button{Text: "Join " + info.Title, URL: info.InviteLink}))
	}
	return append(kb, chat.Row(chat.Button{Text: "✅ I Joined All", Data: retry}))
}
