package telegram

import (
	"context"
	"errors"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"github.com/eldtechnologies/fileshare/internal/chat"
	"github.com/eldtechnologies/fileshare/internal/models"
)

func message(text string) *tgbotapi.Message {
	return &tgbotapi.Message{
		MessageID: 10,
		From:      &tgbotapi.User{ID: 5, UserName: "ana", FirstName: "Ana"},
		Chat:      &tgbotapi.Chat{ID: 5},
		Text:      text,
	}
}

func TestToEventCommand(t *testing.T) {
	m := message("/start batch_01HZX")
	m.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: 6}}

	ev, ok := toEvent(tgbotapi.Update{Message: m})
	if !ok {
		t.Fatal("update dropped")
	}
	if ev.Kind != chat.EventCommand || ev.Command != "start" {
		t.Fatalf("got %s %q", ev.Kind, ev.Command)
	}
	if len(ev.Args) != 1 || ev.Args[0] != "batch_01HZX" {
		t.Errorf("args = %v", ev.Args)
	}
	if ev.From.ID != 5 || ev.From.Username != "ana" {
		t.Errorf("from = %+v", ev.From)
	}
}

func TestToEventMedia(t *testing.T) {
	tests := []struct {
		name string
		set  func(m *tgbotapi.Message)
		want models.FileKind
	}{
		{"photo", func(m *tgbotapi.Message) { m.Photo = []tgbotapi.PhotoSize{{FileID: "p"}} }, models.KindPhoto},
		{"video", func(m *tgbotapi.Message) { m.Video = &tgbotapi.Video{FileID: "v"} }, models.KindVideo},
		{"audio", func(m *tgbotapi.Message) { m.Audio = &tgbotapi.Audio{FileID: "a"} }, models.KindAudio},
		{"document", func(m *tgbotapi.Message) { m.Document = &tgbotapi.Document{FileID: "d"} }, models.KindDocument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := message("")
			tt.set(m)
			ev, ok := toEvent(tgbotapi.Update{Message: m})
			if !ok || ev.Kind != chat.EventMedia || ev.MediaKind != tt.want {
				t.Errorf("got ok=%v kind=%s media=%s", ok, ev.Kind, ev.MediaKind)
			}
		})
	}
}

func TestToEventTextAndOther(t *testing.T) {
	ev, _ := toEvent(tgbotapi.Update{Message: message("hello")})
	if ev.Kind != chat.EventText || ev.Text != "hello" {
		t.Errorf("text: got %s %q", ev.Kind, ev.Text)
	}

	m := message("")
	m.Sticker = &tgbotapi.Sticker{FileID: "s"}
	ev, _ = toEvent(tgbotapi.Update{Message: m})
	if ev.Kind != chat.EventOther {
		t.Errorf("sticker: got %s", ev.Kind)
	}
}

func TestToEventCallback(t *testing.T) {
	u := tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb1",
		From:    &tgbotapi.User{ID: 9},
		Message: &tgbotapi.Message{MessageID: 77, Chat: &tgbotapi.Chat{ID: 9}},
		Data:    "list",
	}}
	ev, ok := toEvent(u)
	if !ok || ev.Kind != chat.EventCallback {
		t.Fatalf("got ok=%v kind=%s", ok, ev.Kind)
	}
	if ev.CallbackID != "cb1" || ev.Data != "list" || ev.MessageID != 77 || ev.ChatID != 9 {
		t.Errorf("event = %+v", ev)
	}
}

func TestToEventDropsAnonymous(t *testing.T) {
	if _, ok := toEvent(tgbotapi.Update{}); ok {
		t.Error("empty update should be dropped")
	}
	m := message("hi")
	m.From = nil
	if _, ok := toEvent(tgbotapi.Update{Message: m}); ok {
		t.Error("message without sender should be dropped")
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		blocked bool
	}{
		{"blocked", &tgbotapi.Error{Code: 403, Message: "Forbidden: bot was blocked by the user"}, true},
		{"deactivated", &tgbotapi.Error{Code: 403, Message: "Forbidden: user is deactivated"}, true},
		{"other forbidden", &tgbotapi.Error{Code: 403, Message: "Forbidden: bot can't initiate conversation"}, false},
		{"bad request", &tgbotapi.Error{Code: 400, Message: "Bad Request: chat not found"}, false},
		{"network", errors.New("connection reset"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := chat.IsBlocked(classify(tt.err)); got != tt.blocked {
				t.Errorf("IsBlocked = %v, want %v", got, tt.blocked)
			}
		})
	}
}

func TestCallAbandonsOnTimeout(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	release := make(chan struct{})
	defer close(release)

	_, err := call(ctx, "slow", func() (int, error) {
		<-release
		return 1, nil
	})
	var te *chat.TransportError
	if !errors.As(err, &te) || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want transport error wrapping deadline", err)
	}
	if te.Op != "slow" {
		t.Errorf("op = %q", te.Op)
	}
}

func TestInlineMarkup(t *testing.T) {
	kb := chat.Keyboard{
		chat.Row(chat.Button{Text: "Join", URL: "https://t.me/x"}),
		chat.Row(chat.Button{Text: "A", Data: "list"}, chat.Button{Text: "B", Data: "browse"}),
	}
	m := inlineMarkup(kb)
	if len(m.InlineKeyboard) != 2 || len(m.InlineKeyboard[1]) != 2 {
		t.Fatalf("markup = %+v", m)
	}
	if u := m.InlineKeyboard[0][0].URL; u == nil || *u != "https://t.me/x" {
		t.Errorf("url button = %+v", m.InlineKeyboard[0][0])
	}
	if d := m.InlineKeyboard[1][1].CallbackData; d == nil || *d != "browse" {
		t.Errorf("data button = %+v", m.InlineKeyboard[1][1])
	}
}

func TestDispatchLetsHandlersFinishAfterStop(t *testing.T) {
	a := &Adapter{logger: zerolog.Nop()}
	ctx, stop := context.WithCancel(context.Background())

	updates := make(chan tgbotapi.Update, 1)
	updates <- tgbotapi.Update{Message: message("hello")}

	started := make(chan struct{})
	release := make(chan struct{})
	var handlerErr error
	done := make(chan struct{})
	go func() {
		defer close(done)
		a.dispatch(ctx, updates, time.Second, func(hctx context.Context, ev chat.Event) {
			close(started)
			<-release
			handlerErr = hctx.Err()
		})
	}()

	<-started
	stop()
	close(release)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("dispatch did not return")
	}
	if handlerErr != nil {
		t.Errorf("handler context ended by the stop signal: %v", handlerErr)
	}
}

func TestDispatchCancelsHandlersAfterDrainTimeout(t *testing.T) {
	a := &Adapter{logger: zerolog.Nop()}
	ctx, stop := context.WithCancel(context.Background())

	updates := make(chan tgbotapi.Update, 1)
	updates <- tgbotapi.Update{Message: message("hello")}

	started := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		a.dispatch(ctx, updates, 20*time.Millisecond, func(hctx context.Context, ev chat.Event) {
			close(started)
			<-hctx.Done()
		})
	}()

	<-started
	stop()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("stuck handler was not cancelled")
	}
}
