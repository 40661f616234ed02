package ids

import (
	"errors"
	"strings"
	"testing"

	"github.com/eldtechnologies/fileshare/internal/models"
)

func TestBatchIDRoundTrip(t *testing.T) {
	id := NewBatchID()
	if len(id) != 26 {
		t.Fatalf("expected 26 chars, got %d (%q)", len(id), id)
	}

	parsed, err := ParseBatchID(strings.ToLower(id))
	if err != nil {
		t.Fatal(err)
	}
	if parsed != id {
		t.Fatalf("expected %q, got %q", id, parsed)
	}
}

func TestParseBatchIDRejectsGarbage(t *testing.T) {
	for _, in := range []string{"", "abc", "65f1c2d3e4a5b6c7d8e9f0a1", "!!!!!!!!!!!!!!!!!!!!!!!!!!"} {
		_, err := ParseBatchID(in)
		if !errors.Is(err, models.ErrMalformed) {
			t.Errorf("ParseBatchID(%q): expected ErrMalformed, got %v", in, err)
		}
	}
}

func TestRunIDsDiffer(t *testing.T) {
	if NewRunID() == NewRunID() {
		t.Fatal("run ids should be unique")
	}
}
