// Package delivery relays the files of a batch from the private archive to a
// requesting user once the membership gate admits them.
package delivery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/eldtechnologies/fileshare/internal/chat"
	"github.com/eldtechnologies/fileshare/internal/gate"
	"github.com/eldtechnologies/fileshare/internal/ids"
	"github.com/eldtechnologies/fileshare/internal/metrics"
	"github.com/eldtechnologies/fileshare/internal/models"
)

// DefaultRelayTimeout bounds a single file relay.
const DefaultRelayTimeout = 30 * time.Second

// Outcome is the overall result of a delivery request.
type Outcome int

const (
	Delivered Outcome = iota
	Blocked
	NotFound
)

func (o Outcome) String() string {
	switch o {
	case Delivered:
		return "delivered"
	case Blocked:
		return "blocked"
	case NotFound:
		return "not_found"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// BatchSource resolves batches and counts views.
type BatchSource interface {
	GetBatch(ctx context.Context, id string) (*models.Batch, error)
	IncrementViews(ctx context.Context, id string) (int64, error)
}

// Checker is the membership gate.
type Checker interface {
	Check(ctx context.Context, userID int64) (gate.Result, error)
}

// ItemResult is the outcome of relaying one file. Err is nil on success.
type ItemResult struct {
	File models.FileRef
	Err  error
}

// Report describes what a delivery request did.
type Report struct {
	Outcome Outcome
	// Missing is set when Outcome is Blocked.
	Missing []int64
	// Batch and Items are set when Outcome is Delivered.
	Batch *models.Batch
	Items []ItemResult
}

// Attempted returns the number of files a relay was attempted for.
func (r *Report) Attempted() int {
	return len(r.Items)
}

// Failed returns the number of files that could not be relayed.
func (r *Report) Failed() int {
	n := 0
	for _, it := range r.Items {
		if it.Err != nil {
			n++
		}
	}
	return n
}

// Pipeline runs gate → resolve → count view → relay.
type Pipeline struct {
	gate         Checker
	batches      BatchSource
	archive      chat.Archive
	relayTimeout time.Duration
	logger       zerolog.Logger
}

// New creates a Pipeline. A non-positive relayTimeout uses DefaultRelayTimeout.
func New(g Checker, batches BatchSource, archive chat.Archive, relayTimeout time.Duration, logger zerolog.Logger) *Pipeline {
	if relayTimeout <= 0 {
		relayTimeout = DefaultRelayTimeout
	}
	return &Pipeline{
		gate:         g,
		batches:      batches,
		archive:      archive,
		relayTimeout: relayTimeout,
		logger:       logger.With().Str("component", "delivery").Logger(),
	}
}

// Deliver sends every file of batchID to requesterID, in order. Per-file
// failures are recorded in the report and never stop the remaining files.
// The returned error is reserved for store failures.
func (p *Pipeline) Deliver(ctx context.Context, batchID string, requesterID int64) (*Report, error) {
	res, err := p.gate.Check(ctx, requesterID)
	if err != nil {
		return nil, fmt.Errorf("membership check: %w", err)
	}
	if !res.Admitted {
		metrics.Deliveries.WithLabelValues(Blocked.String()).Inc()
		return &Report{Outcome: Blocked, Missing: res.Missing}, nil
	}

	id, err := ids.ParseBatchID(batchID)
	if err != nil {
		metrics.Deliveries.WithLabelValues(NotFound.String()).Inc()
		return &Report{Outcome: NotFound}, nil
	}
	batch, err := p.batches.GetBatch(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get batch: %w", err)
	}
	if batch == nil {
		metrics.Deliveries.WithLabelValues(NotFound.String()).Inc()
		return &Report{Outcome: NotFound}, nil
	}

	views, err := p.batches.IncrementViews(ctx, batch.ID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			// Deleted between the read and the increment.
			metrics.Deliveries.WithLabelValues(NotFound.String()).Inc()
			return &Report{Outcome: NotFound}, nil
		}
		return nil, fmt.Errorf("increment views: %w", err)
	}
	batch.Views = views

	report := &Report{Outcome: Delivered, Batch: batch, Items: make([]ItemResult, 0, len(batch.Files))}
	for _, file := range batch.Files {
		err := p.relay(ctx, requesterID, file)
		if err != nil {
			metrics.RelayedFiles.WithLabelValues("failure").Inc()
			p.logger.Warn().
				Err(err).
				Str("batch_id", batch.ID).
				Int64("user_id", requesterID).
				Int("archive_message_id", file.ArchiveMessageID).
				Msg("file relay failed")
		} else {
			metrics.RelayedFiles.WithLabelValues("success").Inc()
		}
		report.Items = append(report.Items, ItemResult{File: file, Err: err})
	}

	metrics.Deliveries.WithLabelValues(Delivered.String()).Inc()
	p.logger.Info().
		Str("batch_id", batch.ID).
		Int64("user_id", requesterID).
		Int("attempted", report.Attempted()).
		Int("failed", report.Failed()).
		Msg("batch delivered")
	return report, nil
}

func (p *Pipeline) relay(ctx context.Context, to int64, file models.FileRef) error {
	ctx, cancel := context.WithTimeout(ctx, p.relayTimeout)
	defer cancel()

	start := time.Now()
	defer func() { metrics.RelayLatency.Observe(time.Since(start).Seconds()) }()

	return p.archive.CopyFromArchive(ctx, to, file.ArchiveMessageID)
}
