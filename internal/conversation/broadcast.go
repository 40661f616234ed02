package conversation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/eldtechnologies/fileshare/internal/chat"
	"github.com/eldtechnologies/fileshare/internal/ids"
	"github.com/eldtechnologies/fileshare/internal/metrics"
)

// DefaultSendTimeout bounds a single broadcast copy.
const DefaultSendTimeout = 30 * time.Second

// ErrAlreadyFired is returned when a broadcast session is used twice.
var ErrAlreadyFired = errors.New("broadcast already sent")

// UserLister lists every known user.
type UserLister interface {
	ListUserIDs(ctx context.Context) ([]int64, error)
}

// Tally counts broadcast outcomes. Success + Blocked + Failed == Total.
type Tally struct {
	Success int
	Blocked int
	Failed  int
	Total   int
}

// Broadcast is armed for one operator and copies the next message they send
// to every known user, one recipient at a time.
type Broadcast struct {
	operatorID  int64
	fired       bool
	users       UserLister
	copier      chat.Copier
	sendTimeout time.Duration
	logger      zerolog.Logger
}

// NewBroadcast arms a broadcast session. A non-positive sendTimeout uses
// DefaultSendTimeout.
func NewBroadcast(operatorID int64, users UserLister, copier chat.Copier, sendTimeout time.Duration, logger zerolog.Logger) *Broadcast {
	if sendTimeout <= 0 {
		sendTimeout = DefaultSendTimeout
	}
	return &Broadcast{
		operatorID:  operatorID,
		users:       users,
		copier:      copier,
		sendTimeout: sendTimeout,
		logger:      logger.With().Str("component", "broadcast").Logger(),
	}
}

func (b *Broadcast) Name() string { return "broadcasting" }

// OperatorID returns the user who armed the session.
func (b *Broadcast) OperatorID() int64 { return b.operatorID }

// Fired reports whether the broadcast has been sent.
func (b *Broadcast) Fired() bool { return b.fired }

// Fire copies the message to every known user. A failure for one recipient
// never stops the rest. The session can fire only once.
func (b *Broadcast) Fire(ctx context.Context, fromChatID int64, messageID int) (Tally, error) {
	if b.fired {
		return Tally{}, ErrAlreadyFired
	}
	b.fired = true

	recipients, err := b.users.ListUserIDs(ctx)
	if err != nil {
		return Tally{}, fmt.Errorf("list users: %w", err)
	}

	runID := ids.NewRunID()
	log := b.logger.With().Str("run_id", runID).Int64("operator_id", b.operatorID).Logger()
	log.Info().Int("recipients", len(recipients)).Msg("broadcast started")

	tally := Tally{Total: len(recipients)}
	for _, userID := range recipients {
		err := b.send(ctx, userID, fromChatID, messageID)
		switch {
		case err == nil:
			tally.Success++
			metrics.BroadcastRecipients.WithLabelValues("success").Inc()
		case chat.IsBlocked(err):
			tally.Blocked++
			metrics.BroadcastRecipients.WithLabelValues("blocked").Inc()
		default:
			tally.Failed++
			metrics.BroadcastRecipients.WithLabelValues("failed").Inc()
			log.Debug().Err(err).Int64("user_id", userID).Msg("broadcast copy failed")
		}
	}

	log.Info().
		Int("success", tally.Success).
		Int("blocked", tally.Blocked).
		Int("failed", tally.Failed).
		Int("total", tally.Total).
		Msg("broadcast finished")
	return tally, nil
}

func (b *Broadcast) send(ctx context.Context, to, fromChatID int64, messageID int) error {
	ctx, cancel := context.WithTimeout(ctx, b.sendTimeout)
	defer cancel()
	return b.copier.CopyMessage(ctx, to, fromChatID, messageID)
}
