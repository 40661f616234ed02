package callback

import (
	"errors"
	"testing"

	"github.com/eldtechnologies/fileshare/internal/ids"
)

func TestParseRoundTrip(t *testing.T) {
	id := ids.NewBatchID()
	actions := []Action{
		{Kind: ViewBatch, BatchID: id},
		{Kind: EditBatch, BatchID: id},
		{Kind: DeleteBatch, BatchID: id},
		{Kind: CheckFsub, BatchID: id},
		{Kind: ShowBatch, BatchID: id},
		{Kind: ListBatches},
		{Kind: CheckBrowse},
		{Kind: FinishAuthoring},
	}
	for _, want := range actions {
		data := want.Encode()
		if len(data) > MaxDataLen {
			t.Errorf("%s payload is %d bytes", want.Kind, len(data))
		}
		got, err := Parse(data)
		if err != nil {
			t.Errorf("Parse(%q): %v", data, err)
			continue
		}
		if got != want {
			t.Errorf("Parse(%q) = %+v, want %+v", data, got, want)
		}
	}
}

func TestParseRejects(t *testing.T) {
	id := ids.NewBatchID()
	tests := []struct {
		name string
		data string
	}{
		{"empty", ""},
		{"unknown prefix", "frobnicate:" + id},
		{"missing id", "view"},
		{"empty id", "view:"},
		{"bad id", "del:not-a-batch"},
		{"arg on bare action", "list:" + id},
		{"too long", "view:" + id + id + id},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse(tt.data); !errors.Is(err, ErrUnknown) {
				t.Errorf("Parse(%q) err = %v, want ErrUnknown", tt.data, err)
			}
		})
	}
}

func TestHelpers(t *testing.T) {
	id := ids.NewBatchID()
	if got := View(id); got != "view:"+id {
		t.Errorf("View = %q", got)
	}
	if got := Done(); got != "done" {
		t.Errorf("Done = %q", got)
	}
}
