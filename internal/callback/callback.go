// Package callback encodes and decodes inline button payloads. Every payload
// maps to exactly one Action; anything else is rejected.
package callback

import (
	"errors"
	"fmt"
	"strings"

	"github.com/eldtechnologies/fileshare/internal/ids"
)

// MaxDataLen is the platform limit for button payloads, in bytes.
const MaxDataLen = 64

// ErrUnknown is returned for payloads that match no action.
var ErrUnknown = errors.New("unknown callback")

// Kind identifies what a button does.
type Kind int

const (
	ViewBatch Kind = iota + 1
	EditBatch
	DeleteBatch
	ListBatches
	CheckFsub
	CheckBrowse
	ShowBatch
	FinishAuthoring
)

var prefixes = map[Kind]string{
	ViewBatch:       "view",
	EditBatch:       "edit",
	DeleteBatch:     "del",
	ListBatches:     "list",
	CheckFsub:       "fsub",
	CheckBrowse:     "browse",
	ShowBatch:       "show",
	FinishAuthoring: "done",
}

func (k Kind) String() string {
	if p, ok := prefixes[k]; ok {
		return p
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// takesBatch reports whether the action carries a batch ID.
func (k Kind) takesBatch() bool {
	switch k {
	case ViewBatch, EditBatch, DeleteBatch, CheckFsub, ShowBatch:
		return true
	}
	return false
}

// Action is a decoded button payload.
type Action struct {
	Kind    Kind
	BatchID string
}

// Encode renders the action as button data.
func (a Action) Encode() string {
	if a.Kind.takesBatch() {
		return prefixes[a.Kind] + ":" + a.BatchID
	}
	return prefixes[a.Kind]
}

// Parse decodes button data.
func Parse(data string) (Action, error) {
	if data == "" || len(data) > MaxDataLen {
		return Action{}, fmt.Errorf("%w: %q", ErrUnknown, data)
	}
	name, arg, hasArg := strings.Cut(data, ":")

	for kind, prefix := range prefixes {
		if prefix != name {
			continue
		}
		if !kind.takesBatch() {
			if hasArg {
				return Action{}, fmt.Errorf("%w: %q", ErrUnknown, data)
			}
			return Action{Kind: kind}, nil
		}
		if !hasArg {
			return Action{}, fmt.Errorf("%w: %q", ErrUnknown, data)
		}
		id, err := ids.ParseBatchID(arg)
		if err != nil {
			return Action{}, fmt.Errorf("%w: %q", ErrUnknown, data)
		}
		return Action{Kind: kind, BatchID: id}, nil
	}
	return Action{}, fmt.Errorf("%w: %q", ErrUnknown, data)
}

// Helpers for building keyboards.

func View(batchID string) string   { return Action{Kind: ViewBatch, BatchID: batchID}.Encode() }
func Edit(batchID string) string   { return Action{Kind: EditBatch, BatchID: batchID}.Encode() }
func Delete(batchID string) string { return Action{Kind: DeleteBatch, BatchID: batchID}.Encode() }
func Show(batchID string) string   { return Action{Kind: ShowBatch, BatchID: batchID}.Encode() }
func Fsub(batchID string) string   { return Action{Kind: CheckFsub, BatchID: batchID}.Encode() }
func List() string                 { return Action{Kind: ListBatches}.Encode() }
func Browse() string               { return Action{Kind: CheckBrowse}.Encode() }
func Done() string                 { return Action{Kind: FinishAuthoring}.Encode() }
