package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/eldtechnologies/fileshare/internal/chat"
	"github.com/eldtechnologies/fileshare/internal/ids"
	"github.com/eldtechnologies/fileshare/internal/metrics"
	"github.com/eldtechnologies/fileshare/internal/models"
)

// ErrWrongPhase is returned when an input does not apply to the session's phase.
var ErrWrongPhase = errors.New("input does not apply to the current step")

// Phase of an authoring session.
type Phase int

const (
	AwaitingFiles Phase = iota
	AwaitingTitle
	Done
	Aborted
)

func (p Phase) String() string {
	switch p {
	case AwaitingFiles:
		return "awaiting_files"
	case AwaitingTitle:
		return "awaiting_title"
	case Done:
		return "done"
	case Aborted:
		return "aborted"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// BatchCreator commits a finished batch.
type BatchCreator interface {
	CreateBatch(ctx context.Context, batch *models.Batch) error
}

// Authoring collects archived files for one operator and commits them as a
// batch once a title is given.
type Authoring struct {
	operatorID int64
	phase      Phase
	files      []models.FileRef
	counts     models.KindCounts

	archive chat.Archive
	batches BatchCreator
	now     func() time.Time
}

// NewAuthoring starts a session in AwaitingFiles with zeroed counts.
func NewAuthoring(operatorID int64, archive chat.Archive, batches BatchCreator) *Authoring {
	return &Authoring{
		operatorID: operatorID,
		phase:      AwaitingFiles,
		counts:     models.NewKindCounts(),
		archive:    archive,
		batches:    batches,
		now:        time.Now,
	}
}

func (a *Authoring) Name() string { return "authoring" }

// OperatorID returns the user who owns the session.
func (a *Authoring) OperatorID() int64 { return a.operatorID }

// Phase returns the current phase.
func (a *Authoring) Phase() Phase { return a.phase }

// Terminal reports whether the session has finished, successfully or not.
func (a *Authoring) Terminal() bool {
	return a.phase == Done || a.phase == Aborted
}

// Files returns a copy of the accumulated files in submission order.
func (a *Authoring) Files() []models.FileRef {
	out := make([]models.FileRef, len(a.files))
	copy(out, a.files)
	return out
}

// Counts returns a copy of the per-kind counters.
func (a *Authoring) Counts() models.KindCounts {
	out := make(models.KindCounts, len(a.counts))
	for k, v := range a.counts {
		out[k] = v
	}
	return out
}

// AddFile forwards a media message into the archive and records the
// archive's message ID. A failed forward records nothing.
func (a *Authoring) AddFile(ctx context.Context, fromChatID int64, messageID int, kind models.FileKind) (models.FileRef, error) {
	if a.phase != AwaitingFiles {
		return models.FileRef{}, ErrWrongPhase
	}
	if !kind.Valid() {
		return models.FileRef{}, fmt.Errorf("%w: unsupported media kind %q", models.ErrMalformed, kind)
	}

	archiveID, err := a.archive.ForwardToArchive(ctx, fromChatID, messageID)
	if err != nil {
		return models.FileRef{}, err
	}

	ref := models.FileRef{ArchiveMessageID: archiveID, Kind: kind}
	a.files = append(a.files, ref)
	a.counts[kind]++
	metrics.ArchivedFiles.WithLabelValues(string(kind)).Inc()
	return ref, nil
}

// Finalize ends file collection. With no files the session aborts and
// models.ErrNoFiles is returned.
func (a *Authoring) Finalize() (models.KindCounts, error) {
	if a.phase != AwaitingFiles {
		return nil, ErrWrongPhase
	}
	if len(a.files) == 0 {
		a.phase = Aborted
		return nil, models.ErrNoFiles
	}
	a.phase = AwaitingTitle
	return a.Counts(), nil
}

// Commit writes the batch with the given title. Surrounding whitespace is
// trimmed; a blank title is rejected and the session keeps waiting. A store
// failure also leaves the session waiting so the title can be sent again.
func (a *Authoring) Commit(ctx context.Context, title string) (*models.Batch, error) {
	if a.phase != AwaitingTitle {
		return nil, ErrWrongPhase
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is empty", models.ErrMalformed)
	}

	batch := &models.Batch{
		ID:        ids.NewBatchID(),
		Title:     title,
		Files:     a.Files(),
		CreatedBy: a.operatorID,
		CreatedAt: a.now().UTC(),
		Views:     0,
	}
	if err := a.batches.CreateBatch(ctx, batch); err != nil {
		return nil, fmt.Errorf("create batch: %w", err)
	}

	a.phase = Done
	metrics.BatchesCreated.Inc()
	return batch, nil
}

// StepKind says what an event did to an authoring session.
type StepKind int

const (
	StepIgnored StepKind = iota
	StepFileAdded
	StepFileFailed
	StepAwaitTitle
	StepAborted
	StepTitleRejected
	StepCommitted
)

// Step is the result of feeding one event to the session.
type Step struct {
	Kind   StepKind
	File   models.FileRef
	Counts models.KindCounts
	Batch  *models.Batch
	Err    error
}

// Handle routes one event according to the current phase. finalize is true
// when the event is the finalize signal (button or command). The returned
// error is reserved for store failures during Commit.
func (a *Authoring) Handle(ctx context.Context, ev chat.Event, finalize bool) (Step, error) {
	switch a.phase {
	case AwaitingFiles:
		if finalize {
			counts, err := a.Finalize()
			if err != nil {
				return Step{Kind: StepAborted, Err: err}, nil
			}
			return Step{Kind: StepAwaitTitle, Counts: counts}, nil
		}
		if ev.Kind != chat.EventMedia {
			return Step{Kind: StepIgnored}, nil
		}
		ref, err := a.AddFile(ctx, ev.ChatID, ev.MessageID, ev.MediaKind)
		if err != nil {
			return Step{Kind: StepFileFailed, Err: err}, nil
		}
		return Step{Kind: StepFileAdded, File: ref, Counts: a.Counts()}, nil

	case AwaitingTitle:
		if ev.Kind != chat.EventText {
			return Step{Kind: StepIgnored}, nil
		}
		batch, err := a.Commit(ctx, ev.Text)
		if err != nil {
			if errors.Is(err, models.ErrMalformed) {
				return Step{Kind: StepTitleRejected, Err: err}, nil
			}
			return Step{}, err
		}
		return Step{Kind: StepCommitted, Batch: batch}, nil

	default:
		return Step{Kind: StepIgnored}, nil
	}
}
