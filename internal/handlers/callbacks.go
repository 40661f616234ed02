package handlers

import (
	"context"

	"github.com/eldtechnologies/fileshare/internal/callback"
	"github.com/eldtechnologies/fileshare/internal/chat"
)

// handleCallback answers every button press exactly once.
func (h *Handler) handleCallback(ctx context.Context, ev chat.Event) {
	action, err := callback.Parse(ev.Data)
	if err != nil {
		h.logger.Debug().Str("data", ev.Data).Int64("user_id", ev.From.ID).Msg("unknown callback")
		h.answer(ctx, ev.CallbackID, "This button is no longer valid.", true)
		return
	}

	switch action.Kind {
	case callback.ViewBatch, callback.EditBatch, callback.DeleteBatch, callback.ListBatches:
		if !h.isAdmin(ctx, ev.From.ID) {
			h.answer(ctx, ev.CallbackID, "⛔ You are not authorized.", true)
			return
		}
	}

	switch action.Kind {
	case callback.ViewBatch:
		h.onViewBatch(ctx, ev, action.BatchID)
	case callback.EditBatch:
		h.onEditBatch(ctx, ev, action.BatchID)
	case callback.DeleteBatch:
		h.onDeleteBatch(ctx, ev, action.BatchID)
	case callback.ListBatches:
		h.onListBatches(ctx, ev)
	case callback.CheckFsub:
		h.onCheckFsub(ctx, ev, action.BatchID)
	case callback.CheckBrowse:
		h.onCheckBrowse(ctx, ev)
	case callback.ShowBatch:
		h.onShowBatch(ctx, ev, action.BatchID)
	case callback.FinishAuthoring:
		h.onFinishAuthoring(ctx, ev)
	default:
		h.answer(ctx, ev.CallbackID, "This button is no longer valid.", true)
	}
}
