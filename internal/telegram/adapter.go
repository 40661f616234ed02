// Package telegram implements the chat ports on top of the Bot API.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"github.com/eldtechnologies/fileshare/internal/chat"
	"github.com/eldtechnologies/fileshare/internal/models"
)

// Adapter implements chat.Transport.
type Adapter struct {
	bot       *tgbotapi.BotAPI
	archiveID int64
	logger    zerolog.Logger
}

var _ chat.Transport = (*Adapter)(nil)

// New connects to the Bot API. archiveID is the private storage channel.
func New(token string, archiveID int64, logger zerolog.Logger) (*Adapter, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("connect bot api: %w", err)
	}
	return &Adapter{
		bot:       bot,
		archiveID: archiveID,
		logger:    logger.With().Str("component", "telegram").Logger(),
	}, nil
}

// Username returns the bot's username, used in share links.
func (a *Adapter) Username() string {
	return a.bot.Self.UserName
}

// call runs fn and gives up when ctx ends. The Bot API client has no
// context support, so an abandoned call finishes in the background.
func call[T any](ctx context.Context, op string, fn func() (T, error)) (T, error) {
	type result struct {
		v   T
		err error
	}
	ch := make(chan result, 1)
	go func() {
		v, err := fn()
		ch <- result{v, err}
	}()

	select {
	case <-ctx.Done():
		var zero T
		return zero, &chat.TransportError{Op: op, Err: ctx.Err()}
	case r := <-ch:
		if r.err != nil {
			return r.v, &chat.TransportError{Op: op, Err: classify(r.err)}
		}
		return r.v, nil
	}
}

// classify maps "user blocked the bot" style API errors to chat.ErrBlocked.
func classify(err error) error {
	var apiErr *tgbotapi.Error
	if !errors.As(err, &apiErr) {
		return err
	}
	if apiErr.Code != 403 {
		return err
	}
	msg := strings.ToLower(apiErr.Message)
	if strings.Contains(msg, "blocked") || strings.Contains(msg, "deactivated") || strings.Contains(msg, "kicked") {
		return fmt.Errorf("%w: %s", chat.ErrBlocked, apiErr.Message)
	}
	return err
}

func inlineMarkup(kb chat.Keyboard) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(kb))
	for _, r := range kb {
		row := make([]tgbotapi.InlineKeyboardButton, 0, len(r))
		for _, b := range r {
			if b.URL != "" {
				row = append(row, tgbotapi.NewInlineKeyboardButtonURL(b.Text, b.URL))
			} else {
				row = append(row, tgbotapi.NewInlineKeyboardButtonData(b.Text, b.Data))
			}
		}
		rows = append(rows, row)
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func (a *Adapter) SendText(ctx context.Context, chatID int64, text string, kb chat.Keyboard) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.DisableWebPagePreview = true
	if kb != nil {
		msg.ReplyMarkup = inlineMarkup(kb)
	}
	_, err := call(ctx, "sendMessage", func() (tgbotapi.Message, error) {
		return a.bot.Send(msg)
	})
	return err
}

// SendMenu sends text with a persistent reply keyboard.
func (a *Adapter) SendMenu(ctx context.Context, chatID int64, text string, labels [][]string) error {
	rows := make([][]tgbotapi.KeyboardButton, 0, len(labels))
	for _, r := range labels {
		row := make([]tgbotapi.KeyboardButton, 0, len(r))
		for _, l := range r {
			row = append(row, tgbotapi.NewKeyboardButton(l))
		}
		rows = append(rows, tgbotapi.NewKeyboardButtonRow(row...))
	}
	markup := tgbotapi.NewReplyKeyboard(rows...)
	markup.ResizeKeyboard = true

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = markup
	_, err := call(ctx, "sendMessage", func() (tgbotapi.Message, error) {
		return a.bot.Send(msg)
	})
	return err
}

func (a *Adapter) EditText(ctx context.Context, chatID int64, messageID int, text string, kb chat.Keyboard) error {
	var edit tgbotapi.EditMessageTextConfig
	if kb != nil {
		edit = tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, text, inlineMarkup(kb))
	} else {
		edit = tgbotapi.NewEditMessageText(chatID, messageID, text)
	}
	edit.DisableWebPagePreview = true
	_, err := call(ctx, "editMessageText", func() (*tgbotapi.APIResponse, error) {
		return a.bot.Request(edit)
	})
	return err
}

func (a *Adapter) AnswerCallback(ctx context.Context, callbackID, text string, alert bool) error {
	cb := tgbotapi.NewCallback(callbackID, text)
	if alert {
		cb = tgbotapi.NewCallbackWithAlert(callbackID, text)
	}
	_, err := call(ctx, "answerCallbackQuery", func() (*tgbotapi.APIResponse, error) {
		return a.bot.Request(cb)
	})
	return err
}

func (a *Adapter) ForwardToArchive(ctx context.Context, fromChatID int64, messageID int) (int, error) {
	fwd := tgbotapi.NewForward(a.archiveID, fromChatID, messageID)
	msg, err := call(ctx, "forwardMessage", func() (tgbotapi.Message, error) {
		return a.bot.Send(fwd)
	})
	if err != nil {
		return 0, err
	}
	return msg.MessageID, nil
}

func (a *Adapter) CopyFromArchive(ctx context.Context, toChatID int64, archiveMessageID int) error {
	return a.CopyMessage(ctx, toChatID, a.archiveID, archiveMessageID)
}

func (a *Adapter) CopyMessage(ctx context.Context, toChatID, fromChatID int64, messageID int) error {
	cp := tgbotapi.NewCopyMessage(toChatID, fromChatID, messageID)
	_, err := call(ctx, "copyMessage", func() (tgbotapi.MessageID, error) {
		return a.bot.CopyMessage(cp)
	})
	return err
}

func (a *Adapter) MemberStatus(ctx context.Context, groupID, userID int64) (string, error) {
	cfg := tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{ChatID: groupID, UserID: userID},
	}
	member, err := call(ctx, "getChatMember", func() (tgbotapi.ChatMember, error) {
		return a.bot.GetChatMember(cfg)
	})
	if err != nil {
		return "", err
	}
	return member.Status, nil
}

// GroupInfo returns the group's title and an invite link. Public groups
// without an exported link fall back to their t.me address.
func (a *Adapter) GroupInfo(ctx context.Context, groupID int64) (*models.GroupInfo, error) {
	c, err := call(ctx, "getChat", func() (tgbotapi.Chat, error) {
		return a.bot.GetChat(tgbotapi.ChatInfoConfig{ChatConfig: tgbotapi.ChatConfig{ChatID: groupID}})
	})
	if err != nil {
		return nil, err
	}

	info := &models.GroupInfo{ID: groupID, Title: c.Title, InviteLink: c.InviteLink}
	if info.InviteLink == "" && c.UserName != "" {
		info.InviteLink = "https://t.me/" + c.UserName
	}
	if info.InviteLink == "" {
		link, err := call(ctx, "exportChatInviteLink", func() (string, error) {
			return a.bot.GetInviteLink(tgbotapi.ChatInviteLinkConfig{ChatConfig: tgbotapi.ChatConfig{ChatID: groupID}})
		})
		if err != nil {
			a.logger.Warn().Err(err).Int64("group_id", groupID).Msg("no invite link")
		} else {
			info.InviteLink = link
		}
	}
	return info, nil
}

// Run receives updates until ctx ends and hands them to handle through a
// chat.Queue, so one user's updates are handled in the order they arrived.
// Handlers run on a context detached from ctx. After ctx ends, Run waits up
// to drainTimeout for queued and in-flight handlers, then cancels them.
func (a *Adapter) Run(ctx context.Context, drainTimeout time.Duration, handle func(context.Context, chat.Event)) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := a.bot.GetUpdatesChan(u)

	go func() {
		<-ctx.Done()
		a.bot.StopReceivingUpdates()
	}()

	a.dispatch(ctx, updates, drainTimeout, handle)
}

func (a *Adapter) dispatch(ctx context.Context, updates <-chan tgbotapi.Update, drainTimeout time.Duration, handle func(context.Context, chat.Event)) {
	handlerCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	defer cancel()

	queue := chat.NewQueue(handle)
	defer a.drain(queue, drainTimeout, cancel)

	for {
		select {
		case <-ctx.Done():
			a.logger.Info().Msg("update loop stopped")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			ev, ok := toEvent(update)
			if !ok {
				continue
			}
			queue.Push(handlerCtx, ev)
		}
	}
}

func (a *Adapter) drain(queue *chat.Queue, timeout time.Duration, cancel context.CancelFunc) {
	done := make(chan struct{})
	go func() {
		queue.Wait()
		close(done)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-done:
		return
	case <-timer.C:
	}

	a.logger.Warn().
		Int("pending", queue.Pending()).
		Dur("timeout", timeout).
		Msg("handlers did not finish in time, cancelling")
	cancel()
	<-done
}
