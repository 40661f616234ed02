package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/eldtechnologies/fileshare/internal/chat"
	"github.com/eldtechnologies/fileshare/internal/conversation"
	"github.com/eldtechnologies/fileshare/internal/delivery"
	"github.com/eldtechnologies/fileshare/internal/gate"
	"github.com/eldtechnologies/fileshare/internal/metrics"
	"github.com/eldtechnologies/fileshare/internal/models"
	"github.com/eldtechnologies/fileshare/internal/store"
)

// Reply-keyboard labels shown to every user.
const (
	MenuBrowse = "📂 Browse"
	MenuSearch = "🔍 Search"
	MenuInfo   = "ℹ️ Info"
)

var mainMenu = [][]string{{MenuBrowse, MenuSearch}, {MenuInfo}}

// maxTitleLen caps batch titles, in runes.
const maxTitleLen = 200

// Options configures a Handler.
type Options struct {
	OwnerID      int64
	BotUsername  string
	ListLimit    int
	RelayTimeout time.Duration
}

// Handler routes inbound chat events and serves the ops endpoints.
type Handler struct {
	store    store.DataStore
	redis    *store.RedisStore
	chat     chat.Transport
	gate     *gate.Gate
	delivery *delivery.Pipeline
	sessions *conversation.Table
	opts     Options
	logger   zerolog.Logger
}

// NewHandler creates a new Handler. redis may be nil.
func NewHandler(ds store.DataStore, redis *store.RedisStore, transport chat.Transport, opts Options, logger zerolog.Logger) *Handler {
	if opts.ListLimit <= 0 {
		opts.ListLimit = 20
	}
	if opts.RelayTimeout <= 0 {
		opts.RelayTimeout = delivery.DefaultRelayTimeout
	}
	g := gate.New(ds, transport, logger)
	return &Handler{
		store:    ds,
		redis:    redis,
		chat:     transport,
		gate:     g,
		delivery: delivery.New(g, ds, transport, opts.RelayTimeout, logger),
		sessions: conversation.NewTable(),
		opts:     opts,
		logger:   logger,
	}
}

// EnsureOwner records the configured owner as the only owner. An owner left
// over from an earlier OWNER_ID becomes a plain admin.
func (h *Handler) EnsureOwner(ctx context.Context) error {
	if h.opts.OwnerID == 0 {
		return nil
	}
	return h.store.SetOwner(ctx, h.opts.OwnerID)
}

// ShareLink returns the deep link that delivers a batch.
func ShareLink(botUsername, batchID string) string {
	return fmt.Sprintf("https://t.me/%s?start=batch_%s", botUsername, batchID)
}

// Dispatch handles one inbound event. Events of one user are processed one
// at a time; different users proceed in parallel.
func (h *Handler) Dispatch(ctx context.Context, ev chat.Event) {
	defer func() {
		if r := recover(); r != nil {
			metrics.HandlerPanics.Inc()
			h.logger.Error().
				Interface("panic", r).
				Int64("user_id", ev.From.ID).
				Str("kind", ev.Kind.String()).
				Msg("handler panic")
		}
	}()
	metrics.UpdatesHandled.WithLabelValues(ev.Kind.String()).Inc()

	unlock := h.sessions.Lock(ev.From.ID)
	defer unlock()

	if ev.Kind == chat.EventCallback {
		h.handleCallback(ctx, ev)
		return
	}

	if ev.Kind == chat.EventCommand && ev.Command == "cancel" {
		h.cmdCancel(ctx, ev)
		return
	}

	if state := h.sessions.Get(ev.From.ID); state != nil {
		if h.continueSession(ctx, ev, state) {
			return
		}
	}

	switch ev.Kind {
	case chat.EventCommand:
		h.handleCommand(ctx, ev)
	case chat.EventText:
		h.handleMenuText(ctx, ev)
	}
}

// continueSession feeds ev to the user's conversation. It returns false when
// the event should fall through to the stateless handlers.
func (h *Handler) continueSession(ctx context.Context, ev chat.Event, state conversation.State) bool {
	switch s := state.(type) {
	case *conversation.Authoring:
		if ev.Kind == chat.EventCommand && ev.Command != "done" {
			return false
		}
		h.continueAuthoring(ctx, ev, s, ev.Kind == chat.EventCommand)
		return true

	case *conversation.Broadcast:
		if ev.Kind == chat.EventCommand {
			return false
		}
		h.sessions.Clear(ev.From.ID)
		h.runBroadcast(ctx, ev, s)
		return true

	case conversation.EditingTitle:
		if ev.Kind == chat.EventCommand {
			return false
		}
		h.receiveTitle(ctx, ev, s)
		return true

	case conversation.Searching:
		if ev.Kind != chat.EventText || isMenuLabel(ev.Text) {
			h.sessions.Clear(ev.From.ID)
			return false
		}
		h.sessions.Clear(ev.From.ID)
		h.runSearch(ctx, ev)
		return true
	}
	return false
}

func (h *Handler) handleCommand(ctx context.Context, ev chat.Event) {
	switch ev.Command {
	case "start":
		h.cmdStart(ctx, ev)
	case "addfsub":
		h.cmdAddFsub(ctx, ev)
	case "removefsub":
		h.cmdRemoveFsub(ctx, ev)
	case "listfsub":
		h.cmdListFsub(ctx, ev)
	case "addadmin":
		h.cmdAddAdmin(ctx, ev)
	case "removeadmin":
		h.cmdRemoveAdmin(ctx, ev)
	case "listadmin":
		h.cmdListAdmin(ctx, ev)
	case "gen":
		h.cmdGen(ctx, ev)
	case "done":
		h.reply(ctx, ev.ChatID, "Nothing to finish. Use /gen to start a batch.", nil)
	case "list":
		h.cmdList(ctx, ev)
	case "dashboard":
		h.cmdDashboard(ctx, ev)
	case "broadcast":
		h.cmdBroadcast(ctx, ev)
	case "cmd":
		h.cmdHelp(ctx, ev)
	default:
		h.reply(ctx, ev.ChatID, "Unknown command. Use /start.", nil)
	}
}

func (h *Handler) handleMenuText(ctx context.Context, ev chat.Event) {
	switch strings.TrimSpace(ev.Text) {
	case MenuBrowse:
		h.browse(ctx, ev)
	case MenuSearch:
		h.startSearch(ctx, ev)
	case MenuInfo:
		h.info(ctx, ev)
	}
}

func isMenuLabel(text string) bool {
	switch strings.TrimSpace(text) {
	case MenuBrowse, MenuSearch, MenuInfo:
		return true
	}
	return false
}

func (h *Handler) cmdCancel(ctx context.Context, ev chat.Event) {
	prev := h.sessions.Clear(ev.From.ID)
	if prev == nil {
		h.reply(ctx, ev.ChatID, "Nothing to cancel.", nil)
		return
	}
	h.logger.Info().Int64("user_id", ev.From.ID).Str("state", prev.Name()).Msg("conversation cancelled")
	h.reply(ctx, ev.ChatID, "❌ Cancelled.", nil)
}

// requireAdmin replies with a refusal and returns nil when the sender is not
// an admin.
func (h *Handler) requireAdmin(ctx context.Context, ev chat.Event) *models.Admin {
	admin, err := h.store.GetAdmin(ctx, ev.From.ID)
	if err != nil {
		h.logger.Error().Err(err).Int64("user_id", ev.From.ID).Msg("admin lookup failed")
		h.reply(ctx, ev.ChatID, "⚠️ Something went wrong. Try again later.", nil)
		return nil
	}
	if admin == nil {
		h.reply(ctx, ev.ChatID, "⛔ You are not authorized to use this command.", nil)
		return nil
	}
	return admin
}

// requireOwner admits only the configured owner.
func (h *Handler) requireOwner(ctx context.Context, ev chat.Event) bool {
	if h.opts.OwnerID != 0 && ev.From.ID == h.opts.OwnerID {
		return true
	}
	h.reply(ctx, ev.ChatID, "⛔ Only the owner can manage admins.", nil)
	return false
}

// isAdmin is the silent variant used by button handlers.
func (h *Handler) isAdmin(ctx context.Context, userID int64) bool {
	admin, err := h.store.GetAdmin(ctx, userID)
	if err != nil {
		h.logger.Error().Err(err).Int64("user_id", userID).Msg("admin lookup failed")
		return false
	}
	return admin != nil
}

// reply sends a message and logs a failure. Replies are best effort.
func (h *Handler) reply(ctx context.Context, chatID int64, text string, kb chat.Keyboard) {
	if err := h.chat.SendText(ctx, chatID, text, kb); err != nil {
		h.logger.Warn().Err(err).Int64("chat_id", chatID).Msg("reply failed")
	}
}

func (h *Handler) edit(ctx context.Context, chatID int64, messageID int, text string, kb chat.Keyboard) {
	if err := h.chat.EditText(ctx, chatID, messageID, text, kb); err != nil {
		h.logger.Warn().Err(err).Int64("chat_id", chatID).Msg("edit failed")
	}
}

func (h *Handler) answer(ctx context.Context, callbackID, text string, alert bool) {
	if err := h.chat.AnswerCallback(ctx, callbackID, text, alert); err != nil {
		h.logger.Warn().Err(err).Msg("answer callback failed")
	}
}

// parseIDArg reads the single numeric argument of an admin command.
func parseIDArg(args []string) (int64, error) {
	if len(args) == 0 {
		return 0, fmt.Errorf("%w: missing id", models.ErrMalformed)
	}
	id, err := strconv.ParseInt(strings.TrimSpace(args[0]), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a numeric id", models.ErrMalformed, args[0])
	}
	return id, nil
}

// errTitleTooLong rejects titles over maxTitleLen runes.
var errTitleTooLong = fmt.Errorf("%w: title longer than %d characters", models.ErrMalformed, maxTitleLen)

// cleanTitle trims title and drops control characters other than line
// breaks. Titles over maxTitleLen runes are rejected, never cut.
func cleanTitle(title string) (string, error) {
	title = strings.Map(func(r rune) rune {
		if r != '\n' && unicode.IsControl(r) {
			return -1
		}
		return r
	}, strings.TrimSpace(title))
	title = strings.TrimSpace(title)

	if utf8.RuneCountInString(title) > maxTitleLen {
		return "", errTitleTooLong
	}
	return title, nil
}

// JSON sends a JSON response with the given status code.
func (h *Handler) JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Error sends a JSON error response with the given status code.
func (h *Handler) Error(w http.ResponseWriter, status int, message string) {
	h.JSON(w, status, map[string]string{"error": message})
}
