// Package chat defines the transport-neutral view of the messaging platform:
// inbound events, keyboards, and the ports the core needs to reach users,
// groups and the private archive.
package chat

import (
	"context"

	"github.com/eldtechnologies/fileshare/internal/models"
)

// EventKind classifies an inbound event.
type EventKind int

const (
	EventText EventKind = iota
	EventCommand
	EventMedia
	EventCallback
	EventOther
)

func (k EventKind) String() string {
	switch k {
	case EventText:
		return "text"
	case EventCommand:
		return "command"
	case EventMedia:
		return "media"
	case EventCallback:
		return "callback"
	default:
		return "other"
	}
}

// Sender identifies the user behind an event.
type Sender struct {
	ID        int64
	Username  string
	FirstName string
	LastName  string
}

// Event is one inbound update, already classified.
type Event struct {
	Kind      EventKind
	From      Sender
	ChatID    int64
	MessageID int

	// Command and Args are set for EventCommand ("start", "batch_...").
	Command string
	Args    []string

	// Text is the message text for EventText.
	Text string

	// MediaKind is set for EventMedia.
	MediaKind models.FileKind

	// CallbackID and Data are set for EventCallback. MessageID then refers
	// to the message carrying the pressed button.
	CallbackID string
	Data       string
}

// Button is an inline button carrying either callback data or a URL.
type Button struct {
	Text string
	Data string
	URL  string
}

// Keyboard is a grid of inline buttons. A nil keyboard sends none.
type Keyboard [][]Button

// Row is shorthand for a single keyboard row.
func Row(buttons ...Button) []Button {
	return buttons
}

// Messenger sends and edits messages addressed to users.
type Messenger interface {
	SendText(ctx context.Context, chatID int64, text string, kb Keyboard) error
	SendMenu(ctx context.Context, chatID int64, text string, labels [][]string) error
	EditText(ctx context.Context, chatID int64, messageID int, text string, kb Keyboard) error
	AnswerCallback(ctx context.Context, callbackID, text string, alert bool) error
}

// Archive is the private chat that holds the authoritative copy of every file.
type Archive interface {
	// ForwardToArchive forwards a message into the archive and returns the
	// archive-assigned message ID.
	ForwardToArchive(ctx context.Context, fromChatID int64, messageID int) (int, error)
	// CopyFromArchive copies an archived message to a user.
	CopyFromArchive(ctx context.Context, toChatID int64, archiveMessageID int) error
}

// Copier copies an arbitrary message to another chat.
type Copier interface {
	CopyMessage(ctx context.Context, toChatID, fromChatID int64, messageID int) error
}

// MemberLookup reports a user's status in a group.
type MemberLookup interface {
	MemberStatus(ctx context.Context, groupID, userID int64) (string, error)
}

// GroupDirectory resolves presentation metadata for a group.
type GroupDirectory interface {
	GroupInfo(ctx context.Context, groupID int64) (*models.GroupInfo, error)
}

// Transport is everything the bot needs from the platform.
type Transport interface {
	Messenger
	Archive
	Copier
	MemberLookup
	GroupDirectory
}
